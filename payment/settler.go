package payment

import (
	"context"
	"time"
)

// Settler submits a transaction to the external wallet and waits for a definitive answer.
type Settler interface {
	Settle(ctx context.Context, tx Transaction) error
}

// SettlerFunc adapts a function to Settler.
type SettlerFunc func(ctx context.Context, tx Transaction) error

// Settle calls f.
func (f SettlerFunc) Settle(ctx context.Context, tx Transaction) error {
	return f(ctx, tx)
}

// SimulatedSettler confirms every transaction after Latency unless Fail rejects it.
type SimulatedSettler struct {
	Latency time.Duration
	Fail    func(Transaction) error
}

// Settle waits out the simulated latency and applies Fail.
func (s *SimulatedSettler) Settle(ctx context.Context, tx Transaction) error {
	if s.Latency > 0 {
		t := time.NewTimer(s.Latency)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
	if s.Fail != nil {
		return s.Fail(tx)
	}
	return nil
}

package payment

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	general_i "github.com/beka-birhanu/vinom-common/interfaces/general"
	"github.com/beka-birhanu/vinom-treasure-maze/maze"
	"github.com/google/uuid"
)

// Payment errors.
var (
	ErrNoSettler     = errors.New("payment gateway needs a settler")
	ErrNoLogger      = errors.New("payment gateway needs a logger")
	ErrInvalidAmount = errors.New("amount must be positive")
	ErrTimeout       = errors.New("transaction timed out without confirmation")
)

// Action names the kind of transaction.
type Action string

const (
	ActionClaimPlot       Action = "claim_plot"
	ActionPayFee          Action = "pay_fee"
	ActionCollectTreasure Action = "collect_treasure"
	ActionBuyGold         Action = "buy_gold"
)

// Status is the settlement state of a transaction.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusFailed    Status = "failed"
)

// Transaction is one collaborator call. A nil Recipient on a fee means the treasury.
type Transaction struct {
	ID        uuid.UUID      `json:"id"`
	Player    uuid.UUID      `json:"player"`
	Action    Action         `json:"action"`
	Amount    int64          `json:"amount"`
	Currency  string         `json:"currency"`
	Recipient *uuid.UUID     `json:"recipient,omitempty"`
	Plot      *maze.Position `json:"plot,omitempty"`
	Status    Status         `json:"status"`
	Error     string         `json:"error,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// Recorder persists transaction history.
type Recorder interface {
	Record(tx Transaction) error
}

// Config wires a Gateway.
type Config struct {
	Variant  Variant
	Settler  Settler
	Recorder Recorder // optional
	Logger   general_i.Logger
	Now      func() time.Time // defaults to time.Now
}

// Gateway performs the claim, fee, collection and purchase calls against a
// Settler and keeps their history.
type Gateway struct {
	variant  Variant
	settler  Settler
	recorder Recorder
	logger   general_i.Logger
	now      func() time.Time

	txs map[uuid.UUID]*Transaction
	sync.RWMutex
}

// NewGateway creates a Gateway for the configured variant.
func NewGateway(c *Config) (*Gateway, error) {
	if c.Settler == nil {
		return nil, ErrNoSettler
	}
	if c.Logger == nil {
		return nil, ErrNoLogger
	}
	now := c.Now
	if now == nil {
		now = time.Now
	}
	return &Gateway{
		variant:  c.Variant,
		settler:  c.Settler,
		recorder: c.Recorder,
		logger:   c.Logger,
		now:      now,
		txs:      make(map[uuid.UUID]*Transaction),
	}, nil
}

// Variant returns the integration the gateway talks to.
func (g *Gateway) Variant() Variant {
	return g.variant
}

// ClaimPlot pays the claim cost for a plot.
func (g *Gateway) ClaimPlot(ctx context.Context, player uuid.UUID, pos maze.Position, cost int64) error {
	return g.settle(ctx, Transaction{
		Player:   player,
		Action:   ActionClaimPlot,
		Amount:   cost,
		Currency: "gold",
		Plot:     &pos,
	})
}

// PayFee pays a crossing fee to recipient, or to the treasury when recipient is nil.
func (g *Gateway) PayFee(ctx context.Context, player uuid.UUID, amount int64, recipient *uuid.UUID) error {
	return g.settle(ctx, Transaction{
		Player:    player,
		Action:    ActionPayFee,
		Amount:    amount,
		Currency:  "gold",
		Recipient: recipient,
	})
}

// CollectTreasure pays a treasure value out of the treasury.
func (g *Gateway) CollectTreasure(ctx context.Context, player uuid.UUID, value int64) error {
	return g.settle(ctx, Transaction{
		Player:   player,
		Action:   ActionCollectTreasure,
		Amount:   value,
		Currency: "gold",
	})
}

// BuyGold spends amount of the variant currency and returns the gold bought.
func (g *Gateway) BuyGold(ctx context.Context, player uuid.UUID, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}
	if !g.variant.Convertible(amount) {
		return 0, fmt.Errorf("%w: %d %s exceeds the gold range", ErrInvalidAmount, amount, g.variant.Currency)
	}
	err := g.settle(ctx, Transaction{
		Player:   player,
		Action:   ActionBuyGold,
		Amount:   amount,
		Currency: g.variant.Currency,
	})
	if err != nil {
		return 0, err
	}
	return g.variant.ToGold(amount), nil
}

func (g *Gateway) settle(ctx context.Context, tx Transaction) error {
	tx.ID = uuid.New()
	tx.Status = StatusPending
	tx.CreatedAt = g.now()
	tx.UpdatedAt = tx.CreatedAt
	g.store(tx)

	err := g.settler.Settle(ctx, tx)
	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		g.logger.Warning(fmt.Sprintf("%s %s for player %s abandoned after timeout, funds may already be spent", tx.Action, tx.ID, tx.Player))
		err = ErrTimeout
	}

	tx.UpdatedAt = g.now()
	if err != nil {
		tx.Status = StatusFailed
		tx.Error = err.Error()
		g.store(tx)
		g.logger.Warning(fmt.Sprintf("%s %s for player %s failed: %s", tx.Action, tx.ID, tx.Player, err))
		return fmt.Errorf("%s: %w", tx.Action, err)
	}

	tx.Status = StatusConfirmed
	g.store(tx)
	g.logger.Info(fmt.Sprintf("%s %s for player %s confirmed: %d %s", tx.Action, tx.ID, tx.Player, tx.Amount, tx.Currency))
	return nil
}

func (g *Gateway) store(tx Transaction) {
	g.Lock()
	cp := tx
	g.txs[tx.ID] = &cp
	g.Unlock()

	if g.recorder == nil {
		return
	}
	if err := g.recorder.Record(tx); err != nil {
		g.logger.Error(fmt.Sprintf("recording transaction %s: %s", tx.ID, err))
	}
}

// History returns a player's transactions, newest first.
func (g *Gateway) History(player uuid.UUID) []Transaction {
	g.RLock()
	defer g.RUnlock()

	out := make([]Transaction, 0)
	for _, tx := range g.txs {
		if tx.Player == player {
			out = append(out, *tx)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// Prune drops settled transactions last updated more than olderThan ago.
func (g *Gateway) Prune(olderThan time.Duration) int {
	cutoff := g.now().Add(-olderThan)

	g.Lock()
	defer g.Unlock()
	n := 0
	for id, tx := range g.txs {
		if tx.Status != StatusPending && tx.UpdatedAt.Before(cutoff) {
			delete(g.txs, id)
			n++
		}
	}
	return n
}

package economy

import (
	"context"
	"errors"
	"fmt"
	"time"

	general_i "github.com/beka-birhanu/vinom-common/interfaces/general"
	"github.com/beka-birhanu/vinom-treasure-maze/maze"
	"github.com/beka-birhanu/vinom-treasure-maze/treasure"
	"github.com/google/uuid"
)

// Configuration errors.
var (
	ErrFeeRoutingUnset   = errors.New("fee routing must be chosen explicitly")
	ErrInvalidGrid       = errors.New("grid must be at least 1x1")
	ErrNegativeAmount    = errors.New("costs, fees and balances must not be negative")
	ErrNoPaymentProvider = errors.New("engine needs a payment provider")
	ErrNoLogger          = errors.New("engine needs a logger")
)

// PaymentProvider is the external wallet. Every call is all-or-nothing:
// an error means nothing was spent or credited.
type PaymentProvider interface {
	ClaimPlot(ctx context.Context, player uuid.UUID, pos maze.Position, cost int64) error
	// PayFee routes to the treasury when recipient is nil.
	PayFee(ctx context.Context, player uuid.UUID, amount int64, recipient *uuid.UUID) error
	CollectTreasure(ctx context.Context, player uuid.UUID, value int64) error
	// BuyGold converts amount of the provider's currency and returns the gold bought.
	BuyGold(ctx context.Context, player uuid.UUID, amount int64) (int64, error)
}

// FeeRouting decides who receives a crossing fee.
type FeeRouting int

const (
	FeeRoutingUnset FeeRouting = iota
	FeeToTreasury
	FeeToOwner
)

// ParseFeeRouting accepts "treasury" or "owner".
func ParseFeeRouting(s string) (FeeRouting, error) {
	switch s {
	case "treasury":
		return FeeToTreasury, nil
	case "owner":
		return FeeToOwner, nil
	default:
		return FeeRoutingUnset, fmt.Errorf("%w: got %q, want treasury or owner", ErrFeeRoutingUnset, s)
	}
}

func (f FeeRouting) String() string {
	switch f {
	case FeeToTreasury:
		return "treasury"
	case FeeToOwner:
		return "owner"
	default:
		return "unset"
	}
}

// Config holds the economy rules and the engine's collaborators.
type Config struct {
	Rows int
	Cols int

	InteriorClaimCost int64
	EdgeClaimCost     int64
	CrossingFee       int64
	StartingGold      int64
	InitialTreasury   int64
	FeeRouting        FeeRouting

	// PaymentTimeout bounds each provider call; an unanswered call counts as failed.
	PaymentTimeout time.Duration
	Treasure       treasure.Config

	Payments    PaymentProvider
	Logger      general_i.Logger
	MazeFactory func(rows, cols int) (*maze.Maze, error) // optional
	Seed        *uint64                                  // optional, for reproducible boards
}

// DefaultRules returns the standard 15x15 economy without collaborators.
// FeeRouting is left unset on purpose and must be filled in by the caller.
func DefaultRules() Config {
	return Config{
		Rows:              15,
		Cols:              15,
		InteriorClaimCost: 1000,
		EdgeClaimCost:     2000,
		CrossingFee:       50,
		StartingGold:      10000,
		InitialTreasury:   1_000_000,
		PaymentTimeout:    2 * time.Minute,
		Treasure:          treasure.DefaultConfig(),
	}
}

func (c *Config) validate() error {
	if c.Rows < 1 || c.Cols < 1 {
		return ErrInvalidGrid
	}
	if c.InteriorClaimCost < 0 || c.EdgeClaimCost < 0 || c.CrossingFee < 0 || c.StartingGold < 0 {
		return ErrNegativeAmount
	}
	if c.FeeRouting != FeeToTreasury && c.FeeRouting != FeeToOwner {
		return ErrFeeRoutingUnset
	}
	if c.Payments == nil {
		return ErrNoPaymentProvider
	}
	if c.Logger == nil {
		return ErrNoLogger
	}
	return nil
}

// ClaimCost returns the cost of claiming pos: border plots cost the edge price.
func (c *Config) ClaimCost(pos maze.Position) int64 {
	if maze.IsBorder(pos, c.Rows, c.Cols) {
		return c.EdgeClaimCost
	}
	return c.InteriorClaimCost
}

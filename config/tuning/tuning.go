package tuning

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/beka-birhanu/vinom-treasure-maze/economy"
	"github.com/beka-birhanu/vinom-treasure-maze/round"
	"github.com/beka-birhanu/vinom-treasure-maze/treasure"
	"gopkg.in/yaml.v3"
)

// Tuning is the game balance read from tuning.yaml.
type Tuning struct {
	ClaimSeconds      int `yaml:"claim_seconds"`
	PlaySeconds       int `yaml:"play_seconds"`
	DailyResetSeconds int `yaml:"daily_reset_seconds"` // 0 disables the reset

	Rows int `yaml:"rows"`
	Cols int `yaml:"cols"`

	InteriorClaimCost int64 `yaml:"interior_claim_cost"`
	EdgeClaimCost     int64 `yaml:"edge_claim_cost"`
	CrossingFee       int64 `yaml:"crossing_fee"`
	StartingGold      int64 `yaml:"starting_gold"`
	InitialTreasury   int64 `yaml:"initial_treasury"`

	PaymentTimeoutSeconds int `yaml:"payment_timeout_seconds"`
	SettleLatencyMs       int `yaml:"settle_latency_ms"`
	PruneAfterSeconds     int `yaml:"prune_after_seconds"`

	Treasure treasure.Config `yaml:"treasure"`
}

// Default returns the standard tuning.
func Default() Tuning {
	s := round.DefaultSchedule()
	r := economy.DefaultRules()
	return Tuning{
		ClaimSeconds:          int(s.Claim / time.Second),
		PlaySeconds:           int(s.Play / time.Second),
		Rows:                  r.Rows,
		Cols:                  r.Cols,
		InteriorClaimCost:     r.InteriorClaimCost,
		EdgeClaimCost:         r.EdgeClaimCost,
		CrossingFee:           r.CrossingFee,
		StartingGold:          r.StartingGold,
		InitialTreasury:       r.InitialTreasury,
		PaymentTimeoutSeconds: int(r.PaymentTimeout / time.Second),
		PruneAfterSeconds:     300,
		Treasure:              r.Treasure,
	}
}

// Load reads path over the defaults. A missing file yields the defaults.
func Load(path string) (Tuning, error) {
	t := Default()
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return t, nil
	}
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := t.Schedule().Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

// Schedule returns the round timing.
func (t Tuning) Schedule() round.Schedule {
	return round.Schedule{
		Claim:      time.Duration(t.ClaimSeconds) * time.Second,
		Play:       time.Duration(t.PlaySeconds) * time.Second,
		DailyReset: time.Duration(t.DailyResetSeconds) * time.Second,
	}
}

// Rules returns the economy rules without collaborators or fee routing.
func (t Tuning) Rules() economy.Config {
	return economy.Config{
		Rows:              t.Rows,
		Cols:              t.Cols,
		InteriorClaimCost: t.InteriorClaimCost,
		EdgeClaimCost:     t.EdgeClaimCost,
		CrossingFee:       t.CrossingFee,
		StartingGold:      t.StartingGold,
		InitialTreasury:   t.InitialTreasury,
		PaymentTimeout:    time.Duration(t.PaymentTimeoutSeconds) * time.Second,
		Treasure:          t.Treasure,
	}
}

func (t Tuning) SettleLatency() time.Duration {
	return time.Duration(t.SettleLatencyMs) * time.Millisecond
}

func (t Tuning) PruneAfter() time.Duration {
	return time.Duration(t.PruneAfterSeconds) * time.Second
}

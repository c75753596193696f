package payment

import (
	"errors"
	"fmt"
	"math"
)

// ErrUnknownVariant is returned for an unrecognised integration name.
var ErrUnknownVariant = errors.New("unknown payment variant")

// Variant describes one wallet integration and its gold conversion rate.
type Variant struct {
	Name        string
	Currency    string
	GoldPerUnit int64
}

// Supported integrations.
var (
	OnChainToken    = Variant{Name: "on-chain-token", Currency: "WAXP", GoldPerUnit: 1000}
	LightningSats   = Variant{Name: "lightning-sats", Currency: "sats", GoldPerUnit: 1}
	PlatformStars   = Variant{Name: "platform-stars", Currency: "stars", GoldPerUnit: 100}
	LocalSimulation = Variant{Name: "local-simulation", Currency: "gold", GoldPerUnit: 1}
)

// VariantByName looks up a supported integration.
func VariantByName(name string) (Variant, error) {
	for _, v := range []Variant{OnChainToken, LightningSats, PlatformStars, LocalSimulation} {
		if v.Name == name {
			return v, nil
		}
	}
	return Variant{}, fmt.Errorf("%w: %q", ErrUnknownVariant, name)
}

// Convertible reports whether amount converts to gold without overflow.
func (v Variant) Convertible(amount int64) bool {
	return amount >= 0 && (v.GoldPerUnit <= 1 || amount <= math.MaxInt64/v.GoldPerUnit)
}

// ToGold converts an amount of the variant's currency into gold.
func (v Variant) ToGold(amount int64) int64 {
	return amount * v.GoldPerUnit
}

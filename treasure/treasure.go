package treasure

import (
	"math"
	"math/rand/v2"
	"sort"
)

const ppmScale = 1_000_000

// Treasure is a collectible placed on the grid at round start.
type Treasure struct {
	Col       int   `json:"col"`
	Row       int   `json:"row"`
	Collected bool  `json:"collected"`
	Value     int64 `json:"value"`
}

// Config controls how many treasures are placed and how the pool is split.
type Config struct {
	Density            float64 `yaml:"density"`              // share of cells holding treasure
	PoolShare          float64 `yaml:"pool_share"`           // share of the treasury paid out
	MinValue           int64   `yaml:"min_value"`            // floor for a single treasure
	DegenerateMaxCount int     `yaml:"degenerate_max_count"` // count cap when the treasury is empty
}

// DefaultConfig returns the standard distribution: 10% of cells, half the treasury.
func DefaultConfig() Config {
	return Config{
		Density:            0.1,
		PoolShare:          0.5,
		MinValue:           10,
		DegenerateMaxCount: 3,
	}
}

// Generate distributes treasure with the default config.
func Generate(rows, cols int, treasury int64, rng *rand.Rand) []Treasure {
	return DefaultConfig().Generate(rows, cols, treasury, rng)
}

// Count returns how many treasures a rows x cols grid receives.
func (c Config) Count(rows, cols int, treasury int64) int {
	cells := rows * cols
	if cells <= 0 {
		return 0
	}
	n := int(float64(cells) * c.Density)
	if n < 1 {
		n = 1
	}
	if treasury <= 0 && c.DegenerateMaxCount > 0 && n > c.DegenerateMaxCount {
		n = c.DegenerateMaxCount
	}
	if n > cells {
		n = cells
	}
	return n
}

// Pool returns the amount of the treasury paid out through treasure,
// rounded down. PoolShare is applied in parts per million so large
// treasuries stay exact.
func (c Config) Pool(treasury int64) int64 {
	if treasury <= 0 || c.PoolShare <= 0 {
		return 0
	}
	if c.PoolShare >= 1 {
		return treasury
	}
	ppm := int64(math.Round(c.PoolShare * ppmScale))
	return treasury/ppmScale*ppm + treasury%ppmScale*ppm/ppmScale
}

// Generate places treasures on distinct random cells and splits the pool
// between them, weighting cells farther from the origin higher.
func (c Config) Generate(rows, cols int, treasury int64, rng *rand.Rand) []Treasure {
	n := c.Count(rows, cols, treasury)
	if n == 0 {
		return []Treasure{}
	}

	perm := rng.Perm(rows * cols)[:n]
	ts := make([]Treasure, n)
	for i, idx := range perm {
		ts[i] = Treasure{Col: idx % cols, Row: idx / cols}
	}
	sort.SliceStable(ts, func(i, j int) bool {
		return dist2(ts[i]) > dist2(ts[j])
	})

	minValue := c.MinValue
	if treasury <= 0 {
		minValue = 0
	}
	c.assignValues(ts, c.Pool(treasury), minValue)
	return ts
}

// assignValues gives rank i the weight (N-i)/N of a total weight (N+1)/2.
func (c Config) assignValues(ts []Treasure, pool, minValue int64) {
	n := int64(len(ts))
	// floor(pool * 2(N-i) / N(N+1)), split to avoid overflow.
	den := n * (n + 1)
	var sum int64
	for i := range ts {
		k := 2 * (n - int64(i))
		v := (pool/den)*k + (pool%den)*k/den
		if v < minValue {
			v = minValue
		}
		ts[i].Value = v
		sum += v
	}
	if rem := pool - sum; rem > 0 {
		ts[len(ts)-1].Value += rem
	}
}

// Total sums treasure values.
func Total(ts []Treasure) int64 {
	var sum int64
	for _, t := range ts {
		sum += t.Value
	}
	return sum
}

func dist2(t Treasure) int {
	return t.Col*t.Col + t.Row*t.Row
}

package treasure

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed))
}

func TestGenerate_CountAndPool(t *testing.T) {
	cases := []struct {
		rows, cols int
		treasury   int64
	}{
		{15, 15, 10_000},
		{15, 15, 1_000_000},
		{3, 3, 500},
		{1, 1, 100},
		{20, 7, 12_345},
		{10, 10, 1},
	}
	cfg := DefaultConfig()
	for _, tc := range cases {
		ts := Generate(tc.rows, tc.cols, tc.treasury, newRand(1))

		want := tc.rows * tc.cols / 10
		if want < 1 {
			want = 1
		}
		require.Len(t, ts, want)

		pool := tc.treasury / 2
		assert.LessOrEqual(t, Total(ts), pool+int64(len(ts))*cfg.MinValue, "%+v", tc)
		if pool >= int64(len(ts))*cfg.MinValue*int64(len(ts)+1) {
			assert.Equal(t, pool, Total(ts), "%+v", tc)
		}
	}
}

func TestGenerate_DistinctPositions(t *testing.T) {
	ts := Generate(30, 30, 50_000, newRand(5))
	seen := map[[2]int]bool{}
	for _, tr := range ts {
		key := [2]int{tr.Col, tr.Row}
		assert.False(t, seen[key], "duplicate %v", key)
		seen[key] = true
		assert.False(t, tr.Collected)
		assert.True(t, tr.Col >= 0 && tr.Col < 30 && tr.Row >= 0 && tr.Row < 30)
	}
}

func TestGenerate_FartherIsWorthMore(t *testing.T) {
	ts := Generate(15, 15, 1_000_000, newRand(2))
	require.Len(t, ts, 22)

	for i := 1; i < len(ts)-1; i++ {
		assert.GreaterOrEqual(t, dist2(ts[i-1]), dist2(ts[i]))
		assert.GreaterOrEqual(t, ts[i-1].Value, ts[i].Value)
	}
}

func TestGenerate_EmptyTreasury(t *testing.T) {
	ts := Generate(15, 15, 0, newRand(3))
	require.Len(t, ts, 3)
	assert.Zero(t, Total(ts))

	ts = Generate(15, 15, -50, newRand(3))
	require.Len(t, ts, 3)
	assert.Zero(t, Total(ts))
}

func TestGenerate_MinValueClamp(t *testing.T) {
	ts := Generate(10, 10, 20, newRand(4))
	require.Len(t, ts, 10)
	for _, tr := range ts {
		assert.GreaterOrEqual(t, tr.Value, int64(10))
	}
	assert.LessOrEqual(t, Total(ts), int64(10)+10*10)
}

func TestConfig_Count(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 22, cfg.Count(15, 15, 100))
	assert.Equal(t, 1, cfg.Count(2, 2, 100))
	assert.Equal(t, 3, cfg.Count(15, 15, 0))
	assert.Equal(t, 0, cfg.Count(0, 15, 100))
}

func TestPool_Exact(t *testing.T) {
	cfg := DefaultConfig()
	huge := int64(1<<60 + 1)
	assert.Equal(t, huge/2, cfg.Pool(huge))
	assert.Equal(t, int64(6172), cfg.Pool(12_345))
	assert.Zero(t, cfg.Pool(0))
	assert.Zero(t, cfg.Pool(-50))

	cfg.PoolShare = 0.3
	assert.Equal(t, int64(300_000_000_000_000_000), cfg.Pool(1_000_000_000_000_000_003))
	cfg.PoolShare = 1
	assert.Equal(t, huge, cfg.Pool(huge))
}

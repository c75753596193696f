package tuning

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	got, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), got)

	s := got.Schedule()
	assert.Equal(t, 10*time.Second, s.Claim)
	assert.Equal(t, 120*time.Second, s.Play)
	assert.Equal(t, time.Duration(0), s.DailyReset)

	r := got.Rules()
	assert.Equal(t, 15, r.Rows)
	assert.Equal(t, int64(50), r.CrossingFee)
	assert.Equal(t, 2*time.Minute, r.PaymentTimeout)
}

func TestLoad_OverridesOnlyGivenKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tuning.yaml")
	raw := []byte(`
claim_seconds: 5
rows: 9
crossing_fee: 75
settle_latency_ms: 250
treasure:
  density: 0.2
`)
	require.NoError(t, os.WriteFile(path, raw, 0o644))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, got.Schedule().Claim)
	assert.Equal(t, 120*time.Second, got.Schedule().Play)
	assert.Equal(t, 9, got.Rules().Rows)
	assert.Equal(t, 15, got.Rules().Cols)
	assert.Equal(t, int64(75), got.Rules().CrossingFee)
	assert.Equal(t, 250*time.Millisecond, got.SettleLatency())
	assert.InDelta(t, 0.2, got.Treasure.Density, 1e-9)
	assert.InDelta(t, 0.5, got.Treasure.PoolShare, 1e-9)
}

func TestLoad_Rejects(t *testing.T) {
	dir := t.TempDir()

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("rows: [1, 2"), 0o644))
	_, err := Load(bad)
	assert.Error(t, err)

	zero := filepath.Join(dir, "zero.yaml")
	require.NoError(t, os.WriteFile(zero, []byte("play_seconds: 0\n"), 0o644))
	_, err = Load(zero)
	assert.Error(t, err)
}

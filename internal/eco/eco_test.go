package eco

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultParams(t *testing.T) {
	p := DefaultParams()
	assert.InDelta(t, 1e-9, p.EnergyPerOpJ, 1e-15)
	assert.InDelta(t, 0.5, p.IdlePowerW, 1e-9)
	assert.InDelta(t, 475.0, p.CO2PerKWhG, 1e-9)
}

func TestCompute_ZeroOps(t *testing.T) {
	stats := DefaultParams().Compute(0, 0)
	assert.Equal(t, 0, stats.TotalOps)
	assert.Zero(t, stats.EnergyJ)
	assert.Zero(t, stats.CO2Grams)
	assert.Empty(t, stats.Tips)
}

func TestCompute_OpsAndOverhead(t *testing.T) {
	p := Params{EnergyPerOpJ: 1e-9, IdlePowerW: 0.5, CO2PerKWhG: 475}
	stats := p.Compute(1000, 2*time.Second)

	// 1000 ops * 1e-9 J + 2s * 0.5 W = 1e-6 + 1.0 J
	assert.InDelta(t, 1.000001, stats.EnergyJ, 1e-9)
	assert.InDelta(t, stats.EnergyJ/3_600_000.0, stats.EnergyKWh, 1e-18)
	assert.InDelta(t, stats.EnergyKWh*475, stats.CO2Grams, 1e-18)
	assert.Empty(t, stats.Tips)
}

func TestCompute_HighOpsTip(t *testing.T) {
	stats := DefaultParams().Compute(1001, time.Millisecond)
	assert.Len(t, stats.Tips, 1)
	assert.Contains(t, stats.Tips[0], "reducing loop iterations")
}

func TestHighUsage(t *testing.T) {
	assert.False(t, HighUsage(1000))
	assert.True(t, HighUsage(1001))
}

// Package eco implements the shared energy estimation model. The interpreter,
// the HTTP API and the green wrapper all derive energy and CO2 figures from
// the same formula: counted operations plus an idle-power overhead for the
// elapsed wall clock.
package eco

import "time"

// Params holds the estimation tunables. The defaults match the values the
// interpreter has always shipped with.
type Params struct {
	EnergyPerOpJ float64 `json:"energy_per_op_J"`
	IdlePowerW   float64 `json:"idle_power_W"`
	CO2PerKWhG   float64 `json:"co2_per_kwh_g"`
}

// DefaultParams returns the standard estimation parameters.
func DefaultParams() Params {
	return Params{
		EnergyPerOpJ: 1e-9,
		IdlePowerW:   0.5,
		CO2PerKWhG:   475,
	}
}

// Stats is the eco estimate attached to a run.
type Stats struct {
	TotalOps  int      `json:"total_ops"`
	EnergyJ   float64  `json:"energy_J"`
	EnergyKWh float64  `json:"energy_kWh"`
	CO2Grams  float64  `json:"co2_g"`
	Tips      []string `json:"tips"`
}

// highOpsThreshold is the op count above which a reduction tip is attached.
const highOpsThreshold = 1000

// Compute estimates energy use for a run of totalOps operations over elapsed
// wall time.
func (p Params) Compute(totalOps int, elapsed time.Duration) Stats {
	computeJ := float64(totalOps) * p.EnergyPerOpJ
	overheadJ := elapsed.Seconds() * p.IdlePowerW
	energyJ := computeJ + overheadJ
	kwh := energyJ / 3_600_000.0

	stats := Stats{
		TotalOps:  totalOps,
		EnergyJ:   energyJ,
		EnergyKWh: kwh,
		CO2Grams:  kwh * p.CO2PerKWhG,
		Tips:      []string{},
	}
	if totalOps > highOpsThreshold {
		stats.Tips = append(stats.Tips, "Consider reducing loop iterations or heavy math operations")
	}
	return stats
}

// HighUsage reports whether the op count is above the tip threshold.
func HighUsage(totalOps int) bool {
	return totalOps > highOpsThreshold
}

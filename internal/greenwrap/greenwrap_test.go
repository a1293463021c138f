package greenwrap

import (
	"context"
	"testing"
	"time"

	"github.com/Phineas-bot/PHINSECOLANG/internal/eco"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOps(t *testing.T) {
	tests := []struct {
		name   string
		output string
		want   int
		ok     bool
	}{
		{"plain line", "2500000\nECO_OPS: 5000000\n", 5000000, true},
		{"extra spacing", "ECO_OPS:   42", 42, true},
		{"json fragment", `{"result": 1, "eco_ops": 1234}`, 1234, true},
		{"missing", "hello world\n", 0, false},
		{"empty", "", 0, false},
		{"line wins over json", "ECO_OPS: 10\n\"eco_ops\": 20", 10, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseOps(tt.output)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMedian(t *testing.T) {
	assert.Zero(t, median(nil))
	assert.InDelta(t, 2.0, median([]float64{2}), 1e-9)
	assert.InDelta(t, 2.0, median([]float64{3, 1, 2}), 1e-9)
	assert.InDelta(t, 2.5, median([]float64{1, 2, 3, 4}), 1e-9)
}

func TestRun_EmptyCommand(t *testing.T) {
	_, err := Run(context.Background(), Options{Params: eco.DefaultParams()})
	assert.Error(t, err)
}

func TestRun_CollectsOpsAndTimes(t *testing.T) {
	report, err := Run(context.Background(), Options{
		Command: `echo "ECO_OPS: 7"`,
		Warmup:  1,
		Runs:    3,
		Params:  eco.DefaultParams(),
	})
	require.NoError(t, err)

	assert.Equal(t, 7, report.Ops)
	assert.Len(t, report.TimesS, 3)
	assert.Contains(t, report.StdoutTail, "ECO_OPS: 7")
	assert.Equal(t, "time_only+reported_ops", report.Backend)
	assert.Greater(t, report.EnergyJ, 0.0)
}

func TestRun_MissingOps(t *testing.T) {
	_, err := Run(context.Background(), Options{
		Command: `echo "no marker"`,
		Runs:    1,
		Params:  eco.DefaultParams(),
	})
	assert.ErrorIs(t, err, ErrNoOps)
}

func TestRun_NonZeroExitKeepsReport(t *testing.T) {
	report, err := Run(context.Background(), Options{
		Command: `echo "ECO_OPS: 9"; exit 3`,
		Runs:    2,
		Params:  eco.DefaultParams(),
	})
	require.NoError(t, err)
	assert.Equal(t, 9, report.Ops)
	assert.Len(t, report.TimesS, 2)
}

func TestRun_FailingCommandWithoutOps(t *testing.T) {
	_, err := Run(context.Background(), Options{
		Command: "exit 3",
		Runs:    1,
		Params:  eco.DefaultParams(),
	})
	assert.ErrorIs(t, err, ErrNoOps)
}

func TestRun_Timeout(t *testing.T) {
	start := time.Now()
	_, err := Run(context.Background(), Options{
		Command: "sleep 5",
		Runs:    1,
		Timeout: 100 * time.Millisecond,
		Params:  eco.DefaultParams(),
	})
	require.Error(t, err)
	assert.Less(t, time.Since(start), 3*time.Second)
}

func TestChildEnv_PassesEcoVars(t *testing.T) {
	t.Setenv("ECO_BENCH_N", "10")
	env := childEnv()
	assert.Contains(t, env, "ECO_BENCH_N=10")
}

// greenwrap is the universal green code wrapper. It runs a benchmark
// command, parses the ECO_OPS contract line from its output and prints a
// JSON report with elapsed time, estimated energy and CO2.
//
// Usage:
//
//	greenwrap -cmd "go run ./cmd/ecobench" -warmup 1 -runs 5
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Phineas-bot/PHINSECOLANG/internal/eco"
	"github.com/Phineas-bot/PHINSECOLANG/internal/greenwrap"
)

func main() {
	defaults := eco.DefaultParams()

	cmd := flag.String("cmd", "", "command to run (required, passed to the shell)")
	cwd := flag.String("cwd", "", "working directory for the command")
	warmup := flag.Int("warmup", 1, "warm-up runs (ignored in stats)")
	runs := flag.Int("runs", 5, "measured runs (median reported)")
	timeout := flag.Duration("timeout", 0, "per-run timeout (0 = none)")
	energyPerOp := flag.Float64("energy-per-op-j", defaults.EnergyPerOpJ, "energy per op [J]")
	idlePower := flag.Float64("idle-power-w", defaults.IdlePowerW, "idle power [W]")
	co2PerKWh := flag.Float64("co2-per-kwh-g", defaults.CO2PerKWhG, "grid intensity [g/kWh]")
	printStdout := flag.Bool("print-stdout", false, "echo child stdout")
	flag.Parse()

	if *cmd == "" {
		fmt.Fprintln(os.Stderr, "greenwrap: -cmd is required")
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, err := greenwrap.Run(ctx, greenwrap.Options{
		Command: *cmd,
		Dir:     *cwd,
		Warmup:  *warmup,
		Runs:    *runs,
		Timeout: *timeout,
		Params: eco.Params{
			EnergyPerOpJ: *energyPerOp,
			IdlePowerW:   *idlePower,
			CO2PerKWhG:   *co2PerKWh,
		},
		EchoStdout: *printStdout,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "greenwrap: %v\n", err)
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		fmt.Fprintf(os.Stderr, "greenwrap: encode report: %v\n", err)
		os.Exit(1)
	}
}

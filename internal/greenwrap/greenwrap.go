// Package greenwrap runs an arbitrary benchmark command, measures its wall
// time over several runs, parses the reported `ECO_OPS: <n>` line from its
// output and estimates energy and CO2 with the same parameters the EcoLang
// interpreter uses.
package greenwrap

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/Phineas-bot/PHINSECOLANG/internal/eco"
)

var (
	opsLineRe = regexp.MustCompile(`ECO_OPS:\s*(\d+)`)
	opsJSONRe = regexp.MustCompile(`"eco_ops"\s*:\s*(\d+)`)
)

// ErrNoOps is returned when the child output carries no ECO_OPS marker.
var ErrNoOps = errors.New("no ECO_OPS line in command output")

// exitError reports a child that ran to completion with a non-zero status.
type exitError struct{ code int }

func (e *exitError) Error() string { return fmt.Sprintf("child exited with code %d", e.code) }

// Options configures a wrapped measurement.
type Options struct {
	// Command is run through the shell so quoting behaves like a terminal.
	Command string
	Dir     string
	Warmup  int
	Runs    int
	// Timeout bounds each individual run; zero means no limit.
	Timeout time.Duration
	Params  eco.Params
	// EchoStdout mirrors the child's combined output to Stdout.
	EchoStdout bool
}

// Report is the JSON result printed by the greenwrap command.
type Report struct {
	Cmd        string     `json:"cmd"`
	Cwd        string     `json:"cwd"`
	Warmup     int        `json:"warmup"`
	Runs       int        `json:"runs"`
	TimesS     []float64  `json:"times_s"`
	StdoutTail string     `json:"stdout_tail"`
	ElapsedS   float64    `json:"elapsed_s"`
	Ops        int        `json:"ops"`
	EnergyJ    float64    `json:"energy_J"`
	CO2Grams   float64    `json:"co2_g"`
	Params     eco.Params `json:"params"`
	Backend    string     `json:"backend"`
}

// Run executes the configured command warmup+runs times and builds a Report.
// Warmup runs are executed but excluded from timing statistics. The reported
// elapsed time is the median of the measured runs; ops are parsed from the
// last run's output.
func Run(ctx context.Context, opts Options) (*Report, error) {
	if strings.TrimSpace(opts.Command) == "" {
		return nil, errors.New("command must not be empty")
	}
	warmup := max(0, opts.Warmup)
	runs := max(1, opts.Runs)

	var (
		times   []float64
		lastOut string
	)
	for i := 0; i < warmup+runs; i++ {
		elapsed, out, err := runOnce(ctx, opts)
		var ee *exitError
		if errors.As(err, &ee) {
			// A crashing benchmark still yields a report as long as it
			// printed its ops before dying.
			fmt.Fprintf(os.Stderr, "greenwrap: run %d of %q exited with code %d\n", i+1, opts.Command, ee.code)
		} else if err != nil {
			return nil, fmt.Errorf("run %d of %q: %w", i+1, opts.Command, err)
		}
		lastOut = out
		if i >= warmup {
			times = append(times, elapsed.Seconds())
		}
	}

	ops, ok := ParseOps(lastOut)
	if !ok {
		return nil, fmt.Errorf("%w: ensure the program prints 'ECO_OPS: <int>' or JSON with \"eco_ops\"", ErrNoOps)
	}

	elapsed := median(times)
	stats := opts.Params.Compute(ops, time.Duration(elapsed*float64(time.Second)))

	cwd := opts.Dir
	if cwd == "" {
		cwd, _ = os.Getwd()
	}
	return &Report{
		Cmd:        opts.Command,
		Cwd:        cwd,
		Warmup:     warmup,
		Runs:       runs,
		TimesS:     times,
		StdoutTail: tail(lastOut, 400),
		ElapsedS:   elapsed,
		Ops:        ops,
		EnergyJ:    stats.EnergyJ,
		CO2Grams:   stats.CO2Grams,
		Params:     opts.Params,
		Backend:    "time_only+reported_ops",
	}, nil
}

func runOnce(ctx context.Context, opts Options) (time.Duration, string, error) {
	runCtx := ctx
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, "/bin/sh", "-c", opts.Command)
	cmd.Dir = opts.Dir
	cmd.Env = childEnv()

	start := time.Now()
	out, err := cmd.CombinedOutput()
	elapsed := time.Since(start)

	if runCtx.Err() == context.DeadlineExceeded {
		return elapsed, string(out), fmt.Errorf("timeout after %s", opts.Timeout)
	}
	if opts.EchoStdout && len(out) > 0 {
		_, _ = os.Stdout.Write(out)
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			// Non-zero exits still produce usable output; the caller decides
			// whether to tolerate them.
			return elapsed, string(out), &exitError{code: exitErr.ExitCode()}
		}
		return elapsed, string(out), err
	}
	return elapsed, string(out), nil
}

// childEnv keeps the benchmark environment minimal: PATH so the shell can
// resolve binaries, plus any ECO_* variables so ECO_BENCH_N flows through.
func childEnv() []string {
	env := []string{"PATH=" + os.Getenv("PATH")}
	for _, kv := range os.Environ() {
		if strings.HasPrefix(kv, "ECO_") {
			env = append(env, kv)
		}
	}
	return env
}

// ParseOps extracts the reported op count from benchmark output. Both the
// plain `ECO_OPS: <n>` line and the JSON `"eco_ops": <n>` fragment are
// accepted.
func ParseOps(output string) (int, bool) {
	if m := opsLineRe.FindStringSubmatch(output); m != nil {
		n, err := strconv.Atoi(m[1])
		return n, err == nil
	}
	if m := opsJSONRe.FindStringSubmatch(output); m != nil {
		n, err := strconv.Atoi(m[1])
		return n, err == nil
	}
	return 0, false
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	s := append([]float64(nil), values...)
	sort.Float64s(s)
	mid := len(s) / 2
	if len(s)%2 == 1 {
		return s[mid]
	}
	return 0.5 * (s[mid-1] + s[mid])
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}

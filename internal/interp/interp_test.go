package interp

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, code string) *Result {
	t.Helper()
	it := New(Options{Clock: clockwork.NewFakeClock()})
	return it.Run(context.Background(), code, nil)
}

func runOK(t *testing.T, code string) *Result {
	t.Helper()
	res := run(t, code)
	require.Nil(t, res.Err, "unexpected error: %+v", res.Err)
	return res
}

func TestSay(t *testing.T) {
	res := runOK(t, `say "hello"
say 1 + 2
say 1.5 * 2`)
	assert.Equal(t, "hello\n3\n3\n", res.Output)
	require.NotNil(t, res.Eco)
	// three dispatches plus three prints
	assert.Equal(t, 3*5+3*50, res.Eco.TotalOps)
}

func TestLetAndConst(t *testing.T) {
	res := runOK(t, `let x = 4
let x = x + 1
say x`)
	assert.Equal(t, "5\n", res.Output)

	res = run(t, `const PI = 3.14
let PI = 3`)
	require.NotNil(t, res.Err)
	assert.Equal(t, CodeRuntime, res.Err.Code)
	assert.Contains(t, res.Err.Message, "Cannot reassign const 'PI'")

	res = run(t, `let x = 1
const x = 2`)
	require.NotNil(t, res.Err)
	assert.Contains(t, res.Err.Message, "already defined")
}

func TestIfElse(t *testing.T) {
	res := runOK(t, `let x = 10
if x > 5 then
say "big"
else
say "small"
end`)
	assert.Equal(t, "big\n", res.Output)

	res = runOK(t, `let x = 2
if x > 5 then
say "big"
elif x > 1 then
say "mid"
else
say "small"
end`)
	assert.Equal(t, "mid\n", res.Output)
}

func TestIfScopeDoesNotLeak(t *testing.T) {
	res := runOK(t, `let x = 1
if 1 == 1 then
let x = 99
end
say x`)
	assert.Equal(t, "1\n", res.Output)
}

func TestWhileMutationPersists(t *testing.T) {
	res := runOK(t, `let n = 3
while n > 0 then
say n
let n = n - 1
end
say "done"`)
	assert.Equal(t, "3\n2\n1\ndone\n", res.Output)
}

func TestForLoop(t *testing.T) {
	res := runOK(t, `for i = 1 to 3
say i
end`)
	assert.Equal(t, "1\n2\n3\n", res.Output)

	res = runOK(t, `for i = 10 to 4 step -3
say i
end`)
	assert.Equal(t, "10\n7\n4\n", res.Output)

	res = run(t, `for i = 1 to 5 step 0
say i
end`)
	require.NotNil(t, res.Err)
	assert.Contains(t, res.Err.Message, "step cannot be 0")
}

func TestRepeatClampsCount(t *testing.T) {
	limits := DefaultLimits()
	limits.MaxLoop = 3
	it := New(Options{Limits: limits, Clock: clockwork.NewFakeClock()})
	res := it.Run(context.Background(), `repeat 10 times
say "x"
end`, nil)
	require.Nil(t, res.Err)
	assert.Equal(t, 3, strings.Count(res.Output, "x"))
	assert.Contains(t, res.Warnings, "Repeat count limited to 3")
}

func TestRepeatBodyScopeResets(t *testing.T) {
	res := runOK(t, `let total = 0
repeat 3 times
let total = total + 1
end
say total`)
	assert.Equal(t, "0\n", res.Output)
}

func TestFunctions(t *testing.T) {
	res := runOK(t, `func double n
return n * 2
end
call double with 21 into answer
say answer`)
	assert.Equal(t, "42\n", res.Output)
	assert.Contains(t, res.Warnings, "func defined: double")

	// without `into`, a returned value prints
	res = runOK(t, `func greet name
return "hi " + name
end
call greet with "ada"`)
	assert.Equal(t, "hi ada\n", res.Output)
}

func TestFunctionArgMismatch(t *testing.T) {
	res := run(t, `func f a b
return a
end
call f with 1`)
	require.NotNil(t, res.Err)
	assert.Contains(t, res.Err.Message, "Argument count mismatch")
}

func TestCallDepthLimit(t *testing.T) {
	res := run(t, `func loop n
call loop with n
end
call loop with 0`)
	require.NotNil(t, res.Err)
	assert.Contains(t, res.Err.Message, "Call depth limit exceeded")
}

func TestTooManyParams(t *testing.T) {
	res := run(t, `func f a b c d
return a
end`)
	require.NotNil(t, res.Err)
	assert.Equal(t, CodeSyntax, res.Err.Code)
	assert.Contains(t, res.Err.Message, "Too many params")
}

func TestAskReadsInputs(t *testing.T) {
	it := New(Options{Clock: clockwork.NewFakeClock()})
	res := it.Run(context.Background(), `ask n
say n * 2`, map[string]any{"n": 21})
	require.Nil(t, res.Err)
	assert.Equal(t, "42\n", res.Output)

	res = New(Options{Clock: clockwork.NewFakeClock()}).Run(context.Background(), "ask missing", nil)
	require.NotNil(t, res.Err)
	assert.Contains(t, res.Err.Message, "Missing input for 'missing'")
}

func TestWarnAndEcoTip(t *testing.T) {
	res := runOK(t, `warn "careful"
ecoTip`)
	assert.Contains(t, res.Warnings, "careful")
	assert.True(t, strings.HasPrefix(res.Output, "ecoTip: "))
}

func TestSavePowerScalesOps(t *testing.T) {
	full := runOK(t, `say 1`)
	scaled := runOK(t, `savePower 50
say 1`)
	assert.Contains(t, scaled.Warnings, "savePower applied: level 50.0")
	// print cost halves from 50 to 25, dispatch cost stays fixed
	assert.Less(t, scaled.Eco.TotalOps, full.Eco.TotalOps)
}

func TestSavePowerFractionalLevel(t *testing.T) {
	res := runOK(t, `savePower 12.5
say 1`)
	assert.Contains(t, res.Warnings, "savePower applied: level 12.5")
}

func TestNumericValueTruncates(t *testing.T) {
	assert.Equal(t, int64(3), numericValue(3.0))
	assert.Equal(t, int64(3), numericValue(3.0000000000001))
	assert.Equal(t, int64(-2), numericValue(-2.0))
	// drift just below an integer is not snapped up
	assert.Equal(t, 2.9999999999999996, numericValue(2.9999999999999996))
	assert.Equal(t, 0.5, numericValue(0.5))
}

func TestStepLimit(t *testing.T) {
	limits := DefaultLimits()
	limits.MaxSteps = 3
	it := New(Options{Limits: limits, Clock: clockwork.NewFakeClock()})
	res := it.Run(context.Background(), strings.Repeat("say 1\n", 5), nil)
	require.NotNil(t, res.Err)
	assert.Equal(t, CodeStepLimit, res.Err.Code)
	assert.Contains(t, res.Warnings, "Step limit exceeded")
}

func TestLoopOpsBudgetAborts(t *testing.T) {
	limits := DefaultLimits()
	limits.MaxSteps = 60
	it := New(Options{Limits: limits, Clock: clockwork.NewFakeClock()})
	res := it.Run(context.Background(), `let n = 0
while n < 100 then
let n = n + 1
end
say n`, nil)
	require.Nil(t, res.Err)
	found := false
	for _, w := range res.Warnings {
		if strings.Contains(w, "aborted") {
			found = true
		}
	}
	assert.True(t, found, "expected loop budget warning, got %v", res.Warnings)
}

func TestOutputLimit(t *testing.T) {
	limits := DefaultLimits()
	limits.MaxOutputChars = 10
	it := New(Options{Limits: limits, Clock: clockwork.NewFakeClock()})
	res := it.Run(context.Background(), `say "0123456789abcdef"`, nil)
	require.NotNil(t, res.Err)
	assert.Equal(t, CodeOutputLimit, res.Err.Code)
}

func TestTimeout(t *testing.T) {
	// a pre-expired deadline trips the wall clock check on the first
	// statement
	limits := DefaultLimits()
	limits.MaxTime = -time.Millisecond
	it := New(Options{Limits: limits, Clock: clockwork.NewFakeClock()})
	res := it.Run(context.Background(), "say 1", nil)
	require.NotNil(t, res.Err)
	assert.Equal(t, CodeTimeout, res.Err.Code)
	assert.Equal(t, "Time limit exceeded", res.Err.Message)
}

func TestContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	it := New(Options{Clock: clockwork.NewFakeClock()})
	res := it.Run(ctx, "say 1", nil)
	require.NotNil(t, res.Err)
	assert.Equal(t, CodeTimeout, res.Err.Code)
	assert.Equal(t, "Run cancelled", res.Err.Message)
}

func TestSyntaxErrors(t *testing.T) {
	tests := []struct {
		code string
		want string
	}{
		{"frobnicate 1", "Unknown statement"},
		{"if 1 == 1 then\nsay 1", "Missing end"},
		{"end", "Unexpected 'end'"},
		{"else", "'else' without matching 'if'"},
		{"let = 5", "Invalid identifier"},
		{"repeat x times\nend", "Invalid repeat count"},
	}
	for _, tt := range tests {
		res := run(t, tt.code)
		require.NotNil(t, res.Err, tt.code)
		assert.Equal(t, CodeSyntax, res.Err.Code, tt.code)
		assert.Contains(t, res.Err.Message, tt.want, tt.code)
	}
}

func TestErrorCarriesLineInfo(t *testing.T) {
	res := run(t, `say 1
say unknownvar`)
	require.NotNil(t, res.Err)
	assert.Equal(t, 2, res.Err.Line)
	assert.Equal(t, "say unknownvar", res.Err.LineText)
	assert.Greater(t, res.Err.Column, len("say "))
}

func TestHighUsageWarning(t *testing.T) {
	res := runOK(t, `repeat 100 times
say "x"
end`)
	assert.Contains(t, res.Warnings, "High estimated energy use")
}

func TestCommentsAndBlankLines(t *testing.T) {
	res := runOK(t, `# a comment

say "ok"`)
	assert.Equal(t, "ok\n", res.Output)
}

func TestLimitsClamp(t *testing.T) {
	server := DefaultLimits()
	clamped := server.Clamp(Limits{MaxSteps: 50, MaxLoop: 999_999, MaxOutputChars: 100})
	assert.Equal(t, 50, clamped.MaxSteps)
	assert.Equal(t, server.MaxLoop, clamped.MaxLoop)
	assert.Equal(t, 100, clamped.MaxOutputChars)
	assert.Equal(t, server.MaxTime, clamped.MaxTime)
}

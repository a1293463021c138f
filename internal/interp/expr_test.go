package interp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func eval(t *testing.T, src string, env map[string]any) any {
	t.Helper()
	if env == nil {
		env = map[string]any{}
	}
	val, err := evalExpr(src, env, func() int { return 0 })
	require.Nil(t, err, "expression %q", src)
	return val
}

func evalFails(t *testing.T, src string, env map[string]any) *evalError {
	t.Helper()
	if env == nil {
		env = map[string]any{}
	}
	_, err := evalExpr(src, env, func() int { return 0 })
	require.NotNil(t, err, "expression %q should fail", src)
	return err
}

func TestEvalArithmetic(t *testing.T) {
	tests := []struct {
		expr string
		want any
	}{
		{"1 + 2", int64(3)},
		{"2 * 3 + 4", int64(10)},
		{"2 + 3 * 4", int64(14)},
		{"(2 + 3) * 4", int64(20)},
		{"7 - 10", int64(-3)},
		{"-5 + 2", int64(-3)},
		{"1.5 + 2.5", 4.0},
		{"1 + 2.0", 3.0},
		{"7 / 2", 3.5},
		{"6 / 3", 2.0},
		{"7 // 2", int64(3)},
		{"-7 // 2", int64(-4)},
		{"7 % 3", int64(1)},
		{"-7 % 3", int64(2)},
		{"7 % -3", int64(-2)},
		{"2 ** 8", int64(256)},
		{"2 ** 2 ** 3", int64(256)},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, eval(t, tt.expr, nil), tt.expr)
	}
}

func TestEvalStrings(t *testing.T) {
	assert.Equal(t, "ab", eval(t, `"a" + "b"`, nil))
	assert.Equal(t, "n=3", eval(t, `"n=" + 3`, nil))
	assert.Equal(t, "3x", eval(t, `3 + "x"`, nil))
	assert.Equal(t, "tab\there", eval(t, `"tab\there"`, nil))
}

func TestEvalComparisons(t *testing.T) {
	assert.Equal(t, true, eval(t, "1 < 2", nil))
	assert.Equal(t, false, eval(t, "2 < 1", nil))
	assert.Equal(t, true, eval(t, "2 <= 2", nil))
	assert.Equal(t, true, eval(t, `"a" == "a"`, nil))
	assert.Equal(t, true, eval(t, "1 == 1.0", nil))
	assert.Equal(t, true, eval(t, "1 != 2", nil))

	err := evalFails(t, "1 < 2 < 3", nil)
	assert.Contains(t, err.msg, "chained comparisons")
}

func TestEvalBoolOps(t *testing.T) {
	assert.Equal(t, true, eval(t, "1 < 2 and 3 < 4", nil))
	assert.Equal(t, false, eval(t, "1 < 2 and 4 < 3", nil))
	assert.Equal(t, true, eval(t, "4 < 3 or 1 < 2", nil))
	assert.Equal(t, true, eval(t, "not 0", nil))
	assert.Equal(t, false, eval(t, `not "x"`, nil))
}

func TestEvalVariables(t *testing.T) {
	env := map[string]any{"x": int64(10), "name": "eco"}
	assert.Equal(t, int64(20), eval(t, "x * 2", env))
	assert.Equal(t, "eco!", eval(t, `name + "!"`, env))

	err := evalFails(t, "y + 1", env)
	assert.Contains(t, err.msg, "undefined variable 'y'")
}

func TestEvalBuiltins(t *testing.T) {
	env := map[string]any{"xs": []any{int64(1), int64(2), int64(3)}}

	assert.Equal(t, int64(3), eval(t, "len(xs)", env))
	assert.Equal(t, int64(5), eval(t, `length("hello")`, env))
	assert.Equal(t, int64(42), eval(t, `toNumber("42")`, nil))
	assert.Equal(t, 1.5, eval(t, `toNumber("1.5")`, nil))
	assert.Equal(t, "7", eval(t, "toString(7)", nil))
	assert.Equal(t, []any{}, eval(t, "array()", nil))
	assert.Equal(t, int64(2), eval(t, "at(xs, 1)", env))
	assert.Equal(t, int64(3), eval(t, "at(xs, -1)", env))

	// append is functional, the original array is untouched
	got := eval(t, "append(xs, 4)", env)
	assert.Equal(t, []any{int64(1), int64(2), int64(3), int64(4)}, got)
	assert.Len(t, env["xs"], 3)

	err := evalFails(t, "at(xs, 9)", env)
	assert.Contains(t, err.msg, "index out of range")
}

func TestEvalErrors(t *testing.T) {
	tests := []struct {
		expr string
		want string
	}{
		{"1 / 0", "division by zero"},
		{"1 % 0", "modulo by zero"},
		{"2 ** 9", "exponent too large"},
		{"1 = 2", "use '==' to compare"},
		{"(1 + 2", "expected ')'"},
		{`nope(1)`, "unsupported function call 'nope'"},
	}
	for _, tt := range tests {
		err := evalFails(t, tt.expr, nil)
		assert.Contains(t, err.msg, tt.want, tt.expr)
	}
}

func TestEvalErrorColumn(t *testing.T) {
	err := evalFails(t, "1 + zz", nil)
	assert.Equal(t, 5, err.column)
}

// Package bench contains the portable benchmark kernels used to compare
// EcoLang against other languages. Each kernel reports the number of logical
// operations it performed so the green wrapper can estimate energy use from
// the `ECO_OPS: <n>` contract line.
package bench

import (
	"os"
	"strconv"
)

// DefaultN is the iteration count used when ECO_BENCH_N is unset or invalid.
const DefaultN = 5_000_000

// EnvVar is the environment variable controlling the iteration count.
const EnvVar = "ECO_BENCH_N"

// N returns the configured iteration count, falling back to DefaultN when
// the variable is unset or does not parse as an integer.
func N() int {
	raw, ok := os.LookupEnv(EnvVar)
	if !ok {
		return DefaultN
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return DefaultN
	}
	return n
}

// ParitySum sums the parity bit of every integer in [0, n).
// For n >= 0 the result equals n/2, the count of odd values below n.
func ParitySum(n int) int64 {
	var s int64
	for i := 0; i < n; i++ {
		s += int64(i & 1)
	}
	return s
}

// IfNestedResult mirrors the nested if/else sample: two comparisons on a
// constant, yielding the branch label and a fixed logical op count of 4
// (assignment, two comparisons, one print path).
func IfNestedResult() (label string, ops int) {
	a := 2
	if a > 0 {
		if a == 2 {
			return "inner-yes", 4
		}
		return "inner-no", 4
	}
	return "outer-no", 4
}

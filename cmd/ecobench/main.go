// ecobench is the portable EcoLang comparison benchmark. It prints an
// optional correctness line followed by the `ECO_OPS: <n>` line consumed by
// greenwrap. The iteration count comes from ECO_BENCH_N (default 5000000).
package main

import (
	"flag"
	"fmt"

	"github.com/Phineas-bot/PHINSECOLANG/internal/bench"
)

func main() {
	variant := flag.String("variant", "parity", "benchmark variant: parity or ifnested")
	flag.Parse()

	switch *variant {
	case "ifnested":
		label, ops := bench.IfNestedResult()
		fmt.Println(label)
		fmt.Printf("ECO_OPS: %d\n", ops)
	default:
		n := bench.N()
		fmt.Println(bench.ParitySum(n))
		fmt.Printf("ECO_OPS: %d\n", n)
	}
}

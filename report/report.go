// Package report turns the parallel executor's bookkeeping into the
// minimal text rendering the process entrypoint prints, grounded on this
// codebase's own plain fmt.Fprintf-based room/connection status logging.
// It is deliberately not the full pretty/JSON/TAP/JUnit formatter family
// a downstream front-end would own; it exists so the bootstrap command has
// something to show without reaching into executor internals.
package report

import (
	"fmt"
	"io"

	"github.com/lguibr/flintbench/executor"
)

// WriteSummary prints one line per test plus a totals line to w.
func WriteSummary(w io.Writer, out executor.TestRunOutput) {
	passed, failed := 0, 0
	for _, r := range out.Results {
		status := "PASS"
		if !r.Passed {
			status = "FAIL"
			failed++
		} else {
			passed++
		}
		fmt.Fprintf(w, "[%s] %s\n", status, r.Name)
		for _, f := range r.Failures {
			fmt.Fprintf(w, "    tick %d: expected %q, got %q at (%s)\n",
				f.Tick, f.Expected, f.Observed, f.Position)
		}
	}
	fmt.Fprintf(w, "%d passed, %d failed, %d total\n", passed, failed, passed+failed)
}

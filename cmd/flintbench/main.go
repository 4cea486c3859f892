// Command flintbench is the process entrypoint that wires configuration,
// logging, the bot client adapter, and the parallel executor together so
// the core is reachable from a shell, grounded on this codebase's own
// main.go config-then-engine-then-server bootstrap sequence.
package main

import (
	"fmt"
	"os"

	"github.com/lguibr/flintbench/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

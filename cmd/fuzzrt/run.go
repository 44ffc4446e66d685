//go:build linux

// run.go implements the 'fuzzrt run' command.
package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/kolkov/fuzzrt/internal/fuzz/ctrl"
	"github.com/kolkov/fuzzrt/internal/fuzz/defs"
)

// runCommand executes an instrumented target under the fork-server and
// prints feedback-map population statistics after each run.
//
// Flow:
//  1. Parse flags (-n executions, -p persistent mode)
//  2. Launch the target with the shared map and handshake pipes
//  3. For each requested execution: zero the map, send a go token,
//     read pid and status, summarize the map
//
// Example:
//
//	fuzzrt run -n 10 ./target
//	fuzzrt run -p -n 100 ./target --target-flag
func runCommand(args []string) {
	count, persistent, bin, targetArgs, err := parseRunArgs(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	c, err := ctrl.Launch(bin, targetArgs, persistent)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Launch failed: %v\n", err)
		os.Exit(1)
	}
	defer c.Close()

	for i := 0; i < count; i++ {
		if !persistent {
			c.ZeroMap()
		}
		pid, status, err := c.Exec(false)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Execution %d failed: %v\n", i+1, err)
			os.Exit(1)
		}

		fmt.Printf("run %d: pid=%d %s map: %d/%d entries set\n",
			i+1, pid, describeStatus(status), populated(c.Map().Bytes()), defs.MapSize)
	}
}

// parseRunArgs separates fuzzrt flags from the target binary and its
// arguments. Everything after the first non-flag argument belongs to the
// target.
func parseRunArgs(args []string) (count int, persistent bool, bin string, targetArgs []string, err error) {
	count = 1
	i := 0
	for ; i < len(args); i++ {
		switch args[i] {
		case "-p":
			persistent = true
		case "-n":
			if i+1 >= len(args) {
				return 0, false, "", nil, fmt.Errorf("-n requires a value")
			}
			i++
			count, err = strconv.Atoi(args[i])
			if err != nil || count < 1 {
				return 0, false, "", nil, fmt.Errorf("invalid -n value %q", args[i])
			}
		default:
			bin = args[i]
			targetArgs = args[i+1:]
			if bin == "" {
				return 0, false, "", nil, fmt.Errorf("no target binary specified")
			}
			return count, persistent, bin, targetArgs, nil
		}
	}
	return 0, false, "", nil, fmt.Errorf("no target binary specified")
}

// populated counts non-zero feedback-map entries.
func populated(area []byte) int {
	n := 0
	for _, b := range area {
		if b != 0 {
			n++
		}
	}
	return n
}

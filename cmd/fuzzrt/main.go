//go:build linux

// Package main implements the fuzzrt CLI tool.
//
// fuzzrt is the controller-side companion of the fuzzing runtime: it can
// drive an instrumented target under the fork-server for quick map
// inspection, extract concrete operand values for a chosen branch site, and
// wire the runtime dependency into a target module.
//
// Usage:
//
//	fuzzrt run ./target            # execute under the fork-server, print map stats
//	fuzzrt capture -id 17 ./target # capture operands of branch site 17
//	fuzzrt link ./targetdir        # add the runtime require to the target's go.mod
//
// The outer fuzzing loop (input generation, scheduling, corpus management)
// is a separate subsystem; fuzzrt only exercises the runtime contract.
package main

import (
	"fmt"
	"os"

	"github.com/kolkov/fuzzrt/fuzz"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]

	switch command {
	case "run":
		runCommand(os.Args[2:])
	case "capture":
		captureCommand(os.Args[2:])
	case "link":
		linkCommand(os.Args[2:])
	case "version", "--version", "-v":
		fmt.Printf("fuzzrt version %s\n", fuzz.Version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Print(`fuzzrt - coverage-guided fuzzing runtime tool

USAGE:
    fuzzrt <command> [arguments]

COMMANDS:
    run        Execute an instrumented target under the fork-server
    capture    Extract operand values for one branch site
    link       Add the runtime dependency to a target module's go.mod
    version    Show version information
    help       Show this help message

EXAMPLES:
    # Run a target 10 times and print feedback-map statistics
    fuzzrt run -n 10 ./target

    # Run in persistent mode
    fuzzrt run -p -n 100 ./target

    # Capture the concrete operands observed at branch site 4242
    fuzzrt capture -id 4242 ./target

    # Make a target module import the runtime
    fuzzrt link ./path/to/target

ABOUT:
    fuzzrt drives targets built against the github.com/kolkov/fuzzrt/fuzz
    runtime: an AFL-style fork-server with a shared feedback map, edge
    coverage counters and branch-distance recording, implemented in pure Go
    without CGO.
`)
}

//go:build linux

// capture.go implements the 'fuzzrt capture' command.
package main

import (
	"fmt"
	"os"
	"strconv"

	"golang.org/x/sys/unix"

	"github.com/kolkov/fuzzrt/internal/fuzz/ctrl"
)

// captureCommand runs the target once in value-capture mode: the chosen
// branch-site id is written into the map's capture slot before the run, and
// the first matching comparison records its operand pair and exits.
//
// The capture exit is the success signal; a run that ends without the
// sentinel means the watched site never fired.
//
// Example:
//
//	fuzzrt capture -id 4242 ./target
func captureCommand(args []string) {
	id, bin, targetArgs, err := parseCaptureArgs(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	c, err := ctrl.Launch(bin, targetArgs, false)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Launch failed: %v\n", err)
		os.Exit(1)
	}
	defer c.Close()

	c.ZeroMap()
	c.Map().SetCaptureTarget(id)

	pid, status, err := c.Exec(false)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Execution failed: %v\n", err)
		os.Exit(1)
	}

	a, b, ok := c.Map().CaptureResult()
	if !ok {
		fmt.Fprintf(os.Stderr, "branch site %d never fired (pid=%d %s)\n",
			id, pid, describeStatus(status))
		os.Exit(1)
	}
	fmt.Printf("branch site %d: operand_a=%d operand_b=%d\n", id, int32(a), int32(b))
}

func parseCaptureArgs(args []string) (id uint32, bin string, targetArgs []string, err error) {
	haveID := false
	i := 0
	for ; i < len(args); i++ {
		switch args[i] {
		case "-id":
			if i+1 >= len(args) {
				return 0, "", nil, fmt.Errorf("-id requires a value")
			}
			i++
			v, err := strconv.ParseUint(args[i], 10, 32)
			if err != nil {
				return 0, "", nil, fmt.Errorf("invalid -id value %q", args[i])
			}
			id = uint32(v)
			haveID = true
		default:
			if !haveID {
				return 0, "", nil, fmt.Errorf("-id is required")
			}
			return id, args[i], args[i+1:], nil
		}
	}
	return 0, "", nil, fmt.Errorf("no target binary specified")
}

// describeStatus renders a raw wait status for humans.
func describeStatus(status unix.WaitStatus) string {
	switch {
	case status.Exited():
		return fmt.Sprintf("exited(%d)", status.ExitStatus())
	case status.Signaled():
		return fmt.Sprintf("killed(%v)", status.Signal())
	case status.Stopped():
		return fmt.Sprintf("stopped(%v)", status.StopSignal())
	}
	return fmt.Sprintf("status(0x%x)", uint32(status))
}

// Package fuzz provides the public runtime API for the Pure-Go
// coverage-guided fuzzing runtime.
//
// This package is the call surface an instrumentation pass targets: the
// code generator inserts calls to [Edge] or [Guard] on control-flow edges,
// [Compare8] through [CompareStringN] on comparisons, and [Init] before the
// target's main logic. The runtime then records execution signal into a
// feedback map shared with a driving controller, and - when a controller is
// attached - supervises target executions through an AFL-style fork-server.
//
// # Execution model
//
// The controller launches the target once. [Init] attaches the shared
// feedback map named by the FUZZRT_SHM_ID environment variable and starts
// the fork-server on descriptors 198/199; from then on every 4-byte request
// from the controller triggers one target run, during which the recorders
// passively accumulate signal. Without a controller (or without the
// environment variable) the target runs normally and signal lands in a
// private buffer.
//
// Targets that want to amortize fork cost further call [Loop] at the top of
// an input-processing loop:
//
//	func main() {
//		fuzz.Init()
//		for fuzz.Loop(1000) {
//			processOneInput()
//		}
//	}
//
// # Manual instrumentation
//
// The entry points are fixed-signature and safe to call by hand for
// experiments:
//
//	fuzz.Edge(0x41ff)                   // covered edge at location 0x41ff
//	fuzz.Compare32(17, fuzz.Equal, x, 42)
//
// They must not be called concurrently from multiple threads for a single
// map attachment without external synchronization.
//
// # Value capture
//
// The Capture* variants implement a destructive diagnostic mode: the
// controller pre-selects one branch site, and the first matching call
// records the concrete operand pair into the map and terminates the
// process. The intentional exit is the success signal for that mode.
package fuzz

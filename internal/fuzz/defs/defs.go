// Package defs holds the constants shared between the in-target runtime and
// the controller side of the protocol. Both parties must agree on these
// values, so they live in one leaf package with no dependencies.
package defs

const (
	// MapSize is the capacity of the feedback map in bytes. Location and
	// branch identifiers are addressed modulo MapSize.
	MapSize = 1 << 16

	// ShmEnv names the environment variable holding the SysV shared-memory
	// id of the feedback map. Absent means "run unsupervised" with the
	// private fallback buffer.
	ShmEnv = "FUZZRT_SHM_ID"

	// PersistEnv, when set to any value, selects persistent mode: one
	// forked child handles many logical executions via self-suspend.
	PersistEnv = "FUZZRT_PERSISTENT"

	// RatioEnv selects what percentage (1-100) of eligible guard slots
	// receive instrumentation ids. Out-of-range values are a fatal
	// configuration error, never clamped.
	RatioEnv = "FUZZRT_INST_RATIO"

	// CtlFD is the well-known descriptor the supervised process reads
	// go tokens from (controller -> target). StFD is CtlFD+1 and carries
	// the hello, pid and status words back (target -> controller).
	CtlFD = 198
	StFD  = 199

	// MsgSize is the size of every handshake message: a single 32-bit
	// token, pid or wait-status word.
	MsgSize = 4

	// CaptureSentinel is written into the fourth capture-slot word when a
	// value capture succeeded. It lets the controller distinguish the
	// capture mechanism's intentional exit from a genuine target crash.
	CaptureSentinel = 12
)

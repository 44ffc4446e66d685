//go:build linux

// Package api provides the runtime entry points called by instrumented
// target code.
//
// These functions are invoked on every control-flow edge and every
// comparison in instrumented code, making them CRITICAL HOT PATHS. The
// fixed-signature entry points delegate to a process-default Context; the
// Context itself is an explicitly owned value so a multi-context embedding
// can thread its own through call sites by reference.
//
// Initialization order mirrors the supervised-execution model: the private
// fallback buffer is live from process start (so instrumentation in package
// initializers is safe), Init attaches the shared map and starts the
// fork-server, and only then does target main logic run. Init is idempotent
// and may be called late by targets that want to defer the supervisor past
// their own setup.
//
// Single-threaded by contract: callers must not invoke these concurrently
// for one map attachment without external synchronization (see the
// instrumentation call contract).
package api

import (
	"fmt"
	"os"
	"strconv"

	"golang.org/x/sys/unix"

	"github.com/kolkov/fuzzrt/internal/fuzz/branch"
	"github.com/kolkov/fuzzrt/internal/fuzz/capture"
	"github.com/kolkov/fuzzrt/internal/fuzz/defs"
	"github.com/kolkov/fuzzrt/internal/fuzz/edge"
	"github.com/kolkov/fuzzrt/internal/fuzz/forksrv"
	"github.com/kolkov/fuzzrt/internal/fuzz/region"
)

// Context bundles the recorders writing into one feedback map buffer. It
// owns the live-destination invariant: all recorders point at the same
// buffer, and the buffer only changes through SetRegion at controlled
// switch points (init, persistent-loop exit).
type Context struct {
	reg      *region.Region
	edges    edge.Recorder
	branches branch.Recorder
	watch    capture.Watcher
}

// NewContext returns a context recording into reg.
func NewContext(reg *region.Region) *Context {
	return &Context{
		reg:      reg,
		edges:    edge.New(reg.Bytes()),
		branches: branch.New(reg.Bytes()),
		watch:    capture.New(reg, unix.Exit),
	}
}

// SetRegion switches every recorder to a new destination buffer. Never
// called mid-execution.
func (c *Context) SetRegion(reg *region.Region) {
	c.reg = reg
	c.edges.SetArea(reg.Bytes())
	c.branches.SetArea(reg.Bytes())
	c.watch.SetRegion(reg)
}

// Region returns the context's active destination buffer.
func (c *Context) Region() *region.Region {
	return c.reg
}

// Edge records one covered edge. Hot path.
//
//go:nosplit
func (c *Context) Edge(cur uintptr) { c.edges.Edge(cur) }

// Guard records one guard-table hit. Hot path.
//
//go:nosplit
func (c *Context) Guard(id uint32) { c.edges.Guard(id) }

// Compare8 records an 8-bit comparison.
//
//go:nosplit
func (c *Context) Compare8(id uint32, kind branch.Kind, a, b int8) {
	c.branches.Compare8(id, kind, a, b)
}

// Compare16 records a 16-bit comparison.
//
//go:nosplit
func (c *Context) Compare16(id uint32, kind branch.Kind, a, b int16) {
	c.branches.Compare16(id, kind, a, b)
}

// Compare32 records a 32-bit comparison.
//
//go:nosplit
func (c *Context) Compare32(id uint32, kind branch.Kind, a, b int32) {
	c.branches.Compare32(id, kind, a, b)
}

// Compare64 records a 64-bit comparison.
//
//go:nosplit
func (c *Context) Compare64(id uint32, kind branch.Kind, a, b int64) {
	c.branches.Compare64(id, kind, a, b)
}

// CompareString records a string equality comparison.
func (c *Context) CompareString(id uint32, a, b string) {
	c.branches.CompareString(id, a, b)
}

// CompareStringN records a bounded string comparison.
func (c *Context) CompareStringN(id uint32, a, b string, n int) {
	c.branches.CompareStringN(id, a, b, n)
}

// Capture8 through CaptureString check a comparison site against the
// controller-selected capture target; a match stores the operands and
// terminates the process.

//go:nosplit
func (c *Context) Capture8(id uint32, a, b int8) { c.watch.Check8(id, a, b) }

//go:nosplit
func (c *Context) Capture16(id uint32, a, b int16) { c.watch.Check16(id, a, b) }

//go:nosplit
func (c *Context) Capture32(id uint32, a, b int32) { c.watch.Check32(id, a, b) }

//go:nosplit
func (c *Context) Capture64(id uint32, a, b int64) { c.watch.Check64(id, a, b) }

func (c *Context) CaptureString(id uint32, a, b string) { c.watch.CheckString(id, a, b) }

// === Process-default context and lifecycle ===

// Global mutable state modeling this OS process's one in-flight execution.
var (
	// ctx is the process-default coverage context used by the
	// fixed-signature entry points.
	ctx *Context

	// persistent records whether persistent mode was requested in the
	// environment at process start.
	persistent bool

	// initDone makes Init idempotent.
	initDone bool

	// Persistent-loop state, one loop per process like the supervisor
	// it cooperates with.
	firstPass = true
	cycleCnt  uint32

	// suspend parks the process between persistent iterations so the
	// supervising parent observes a stop. Replaced in tests.
	suspend = selfStop
)

func init() {
	ctx = NewContext(region.Private())
	persistent = os.Getenv(defs.PersistEnv) != ""
}

// Default returns the process-default coverage context.
func Default() *Context {
	return ctx
}

// Init attaches the shared feedback map and starts the fork-server. Safe to
// call multiple times; only the first call does anything.
//
// In a supervised run this never "returns" in the launching process in the
// ordinary sense: the supervisor loop takes over, and each return of Init is
// either a freshly forked child or an un-supervised standalone execution.
func Init() {
	if initDone {
		return
	}
	mapShared()
	forksrv.New(persistent).Run()
	initDone = true
}

// mapShared attaches the environment-supplied shared segment, replacing the
// private fallback buffer as the active destination. Attach failure is
// fatal: a supervised run is unusable without observability. No handle means
// an unsupervised run; the fallback buffer stays active.
func mapShared() {
	val := os.Getenv(defs.ShmEnv)
	if val == "" {
		return
	}
	id, err := strconv.Atoi(val)
	if err != nil {
		unix.Exit(1)
	}
	reg, err := region.Attach(id)
	if err != nil {
		unix.Exit(1)
	}
	ctx.SetRegion(reg)

	// Touch the map right away so the controller does not give up on a
	// target whose sparse instrumentation never writes byte 0.
	reg.SetMark()
}

// InitGuards populates a guard table honoring the density ratio from the
// environment. An out-of-range or unparsable ratio is a fatal configuration
// error with a diagnostic; it is never clamped.
func InitGuards(guards []uint32) {
	ratio := 100
	if val := os.Getenv(defs.RatioEnv); val != "" {
		var err error
		ratio, err = strconv.Atoi(val)
		if err != nil {
			fmt.Fprintf(os.Stderr, "fuzzrt: invalid %s %q: %v\n", defs.RatioEnv, val, err)
			os.Exit(1)
		}
	}
	if err := edge.InitGuards(guards, ratio); err != nil {
		fmt.Fprintf(os.Stderr, "fuzzrt: %v\n", err)
		os.Exit(1)
	}
}

// Loop is the cooperative persistent-mode iteration helper, called at the
// top of a target-owned loop processing many logical inputs in one forked
// process.
//
// With persistent mode active and a budget of k, Loop returns true exactly k
// times before returning false once; between iterations it self-suspends so
// the supervisor can resume it cheaply, and on every proceed the map's mark
// byte is freshly set and the previous-location register cleared. When the
// budget runs out the active buffer pivots back to the private fallback so
// code after the loop is not attributed to the fuzzed map.
//
// With persistent mode inactive, Loop returns true exactly once.
func Loop(max uint32) bool {
	if firstPass {
		// The parent resets state between iterations, but the first
		// iteration must erase any trace of what ran before the loop.
		if persistent {
			ctx.reg.Zero()
			ctx.reg.SetMark()
			ctx.edges.ResetPrev()
		}
		cycleCnt = max
		firstPass = false
		return true
	}

	if persistent {
		cycleCnt--
		if cycleCnt > 0 {
			suspend()

			ctx.reg.SetMark()
			ctx.edges.ResetPrev()
			return true
		}

		// Leaving the loop: pivot back to the private buffer so the
		// code that follows is not traced into the shared map.
		ctx.SetRegion(region.Private())
	}

	return false
}

// selfStop parks the process; the supervising parent sees a stop rather
// than an exit and can resume with SIGCONT.
func selfStop() {
	unix.Kill(unix.Getpid(), unix.SIGSTOP)
}

// === Fixed-signature entry points (instrumentation call contract) ===

// Edge records one covered edge in the default context.
//
//go:nosplit
func Edge(cur uintptr) { ctx.Edge(cur) }

// Guard records one guard-table hit in the default context.
//
//go:nosplit
func Guard(id uint32) { ctx.Guard(id) }

//go:nosplit
func Compare8(id uint32, kind branch.Kind, a, b int8) { ctx.Compare8(id, kind, a, b) }

//go:nosplit
func Compare16(id uint32, kind branch.Kind, a, b int16) { ctx.Compare16(id, kind, a, b) }

//go:nosplit
func Compare32(id uint32, kind branch.Kind, a, b int32) { ctx.Compare32(id, kind, a, b) }

//go:nosplit
func Compare64(id uint32, kind branch.Kind, a, b int64) { ctx.Compare64(id, kind, a, b) }

func CompareString(id uint32, a, b string) { ctx.CompareString(id, a, b) }

func CompareStringN(id uint32, a, b string, n int) { ctx.CompareStringN(id, a, b, n) }

//go:nosplit
func Capture8(id uint32, a, b int8) { ctx.Capture8(id, a, b) }

//go:nosplit
func Capture16(id uint32, a, b int16) { ctx.Capture16(id, a, b) }

//go:nosplit
func Capture32(id uint32, a, b int32) { ctx.Capture32(id, a, b) }

//go:nosplit
func Capture64(id uint32, a, b int64) { ctx.Capture64(id, a, b) }

func CaptureString(id uint32, a, b string) { ctx.CaptureString(id, a, b) }

// Reset restores the default context, loop state and persistent flag for
// tests. NOT safe for concurrent use and never called in a supervised run.
func Reset() {
	ctx = NewContext(region.Private())
	ctx.reg.Zero()
	persistent = os.Getenv(defs.PersistEnv) != ""
	initDone = false
	firstPass = true
	cycleCnt = 0
	suspend = selfStop
}

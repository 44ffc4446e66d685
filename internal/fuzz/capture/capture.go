// Package capture implements target-branch value capture: a destructive
// diagnostic mode that extracts the concrete operand values of one branch
// site chosen in advance by the controller.
//
// The controller writes the branch id to watch for into the feedback map's
// capture slot before the run. Every instrumented comparison calls Check*;
// non-matching sites return immediately at negligible cost. The first
// matching occurrence stores the operand pair and the success sentinel, then
// unconditionally terminates the process. The exit is not an error - it is
// the success signal for this mode, distinguishable from a genuine crash by
// the sentinel. The controller re-executes the target fresh for every branch
// site it wants values from, leaning on the fork-server's low per-execution
// overhead.
package capture

import "github.com/kolkov/fuzzrt/internal/fuzz/region"

// Watcher checks comparison sites against the controller-selected target id.
type Watcher struct {
	reg *region.Region

	// exit terminates the process after a successful capture. Replaced in
	// tests; defaults to the runtime exit that skips all cleanup.
	exit func(code int)
}

// New returns a watcher over reg using exit to terminate on capture.
func New(reg *region.Region, exit func(int)) Watcher {
	return Watcher{reg: reg, exit: exit}
}

// SetRegion redirects the watcher to a new region.
func (w *Watcher) SetRegion(reg *region.Region) {
	w.reg = reg
}

// Check records the operand pair if id matches the watched branch site and
// terminates the process. Operands are stored truncated to the 32-bit slot
// words. No-op when id does not match.
//
//go:nosplit
func (w *Watcher) Check(id uint32, a, b int64) {
	if id != w.reg.CaptureTarget() {
		return
	}
	w.reg.StoreCapture(uint32(a), uint32(b))
	w.exit(0)
}

// Check8 captures 8-bit operands, sign-extended into the slot words.
//
//go:nosplit
func (w *Watcher) Check8(id uint32, a, b int8) {
	w.Check(id, int64(a), int64(b))
}

// Check16 captures 16-bit operands.
//
//go:nosplit
func (w *Watcher) Check16(id uint32, a, b int16) {
	w.Check(id, int64(a), int64(b))
}

// Check32 captures 32-bit operands.
//
//go:nosplit
func (w *Watcher) Check32(id uint32, a, b int32) {
	w.Check(id, int64(a), int64(b))
}

// Check64 captures 64-bit operands, truncated to the 32-bit slot words.
//
//go:nosplit
func (w *Watcher) Check64(id uint32, a, b int64) {
	w.Check(id, a, b)
}

// CheckString captures the first byte of each string operand, matching the
// slot's fixed word width. Empty operands store 0.
func (w *Watcher) CheckString(id uint32, a, b string) {
	if id != w.reg.CaptureTarget() {
		return
	}
	var fa, fb byte
	if len(a) > 0 {
		fa = a[0]
	}
	if len(b) > 0 {
		fb = b[0]
	}
	w.reg.StoreCapture(uint32(fa), uint32(fb))
	w.exit(0)
}

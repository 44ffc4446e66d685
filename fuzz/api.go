//go:build linux

package fuzz

import (
	"github.com/kolkov/fuzzrt/internal/fuzz/api"
	"github.com/kolkov/fuzzrt/internal/fuzz/branch"
)

// Kind identifies a comparison family for the Compare entry points. The
// numeric values are part of the instrumentation call contract.
type Kind = branch.Kind

// Comparison kinds, grouped by the predicate applied to the signed operand
// distance.
const (
	UnsignedGreater   = branch.UnsignedGreater
	SignedGreater     = branch.SignedGreater
	Equal             = branch.Equal
	UnsignedGreaterEq = branch.UnsignedGreaterEq
	SignedGreaterEq   = branch.SignedGreaterEq
	UnsignedLess      = branch.UnsignedLess
	SignedLess        = branch.SignedLess
	NotEqual          = branch.NotEqual
	UnsignedLessEq    = branch.UnsignedLessEq
	SignedLessEq      = branch.SignedLessEq
	StringEqual       = branch.StringEqual
)

// Init attaches the shared feedback map and starts the fork-server.
//
// The instrumentation pass inserts this call before the target's main
// logic; targets using deferred initialization call it manually once their
// own setup is done. Safe to call multiple times.
func Init() {
	api.Init()
}

// Edge records one covered control-flow edge ending at location cur.
//
// Inserted by the instrumentation pass on every edge; the hottest call in
// the system.
//
//go:nosplit
func Edge(cur uintptr) {
	api.Edge(cur)
}

// Guard records a hit for guard-table style instrumentation, where id is the
// slot's pre-assigned location id (0 = not instrumented).
//
//go:nosplit
func Guard(id uint32) {
	api.Guard(id)
}

// InitGuards assigns location ids to a guard table at module load, honoring
// the FUZZRT_INST_RATIO density setting. An invalid ratio is a fatal
// configuration error.
func InitGuards(guards []uint32) {
	api.InitGuards(guards)
}

// Compare8 records a comparison of 8-bit operands at branch site id.
//
//go:nosplit
func Compare8(id uint32, kind Kind, a, b int8) {
	api.Compare8(id, kind, a, b)
}

// Compare16 records a comparison of 16-bit operands.
//
//go:nosplit
func Compare16(id uint32, kind Kind, a, b int16) {
	api.Compare16(id, kind, a, b)
}

// Compare32 records a comparison of 32-bit operands.
//
//go:nosplit
func Compare32(id uint32, kind Kind, a, b int32) {
	api.Compare32(id, kind, a, b)
}

// Compare64 records a comparison of 64-bit operands.
//
//go:nosplit
func Compare64(id uint32, kind Kind, a, b int64) {
	api.Compare64(id, kind, a, b)
}

// CompareString records a string equality comparison; the distance is the
// library three-way compare result.
func CompareString(id uint32, a, b string) {
	api.CompareString(id, a, b)
}

// CompareStringN records a bounded string comparison over at most n bytes,
// packing the compared length into the state cell best-effort.
func CompareStringN(id uint32, a, b string, n int) {
	api.CompareStringN(id, a, b, n)
}

// Capture8 checks an 8-bit comparison site against the controller-selected
// capture target; on a match it stores the operand pair and terminates the
// process.
//
//go:nosplit
func Capture8(id uint32, a, b int8) {
	api.Capture8(id, a, b)
}

// Capture16 checks a 16-bit comparison site against the capture target.
//
//go:nosplit
func Capture16(id uint32, a, b int16) {
	api.Capture16(id, a, b)
}

// Capture32 checks a 32-bit comparison site against the capture target.
//
//go:nosplit
func Capture32(id uint32, a, b int32) {
	api.Capture32(id, a, b)
}

// Capture64 checks a 64-bit comparison site against the capture target.
//
//go:nosplit
func Capture64(id uint32, a, b int64) {
	api.Capture64(id, a, b)
}

// CaptureString checks a string comparison site against the capture target;
// a match stores the first byte of each operand.
func CaptureString(id uint32, a, b string) {
	api.CaptureString(id, a, b)
}

// Loop is the persistent-mode iteration helper. Called at the top of a
// target-owned loop, it returns true while another logical input should be
// processed in this forked process and false when the iteration budget is
// exhausted (or, outside persistent mode, after a single iteration).
func Loop(max uint32) bool {
	return api.Loop(max)
}

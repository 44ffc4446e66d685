// Package region implements the feedback map: a fixed-size byte region shared
// between the supervised process and its controller.
//
// Before the shared segment is attached, writes land in a process-private
// fallback buffer so that instrumentation running from package initializers
// has somewhere safe to write. At most one buffer is the live destination at
// any time; the active buffer is only switched at init and at persistent-loop
// exit, never mid-execution.
//
// The first four 32-bit words of the region double as the capture slot used
// by the target-branch value capture mechanism (see internal/fuzz/capture).
// Word layout, little-endian:
//
//	[0] controller-selected target branch id
//	[1] observed operand A
//	[2] observed operand B
//	[3] sentinel (defs.CaptureSentinel) marking a successful capture
//
// Byte 0 is also the "mark byte": the runtime writes a non-zero value there
// immediately after attach so the controller never mistakes "no bytes touched
// yet" for "target crashed before any code ran". The overlap with the capture
// slot is deliberate; capture runs are a separate, destructive mode.
package region

import (
	"encoding/binary"

	"github.com/kolkov/fuzzrt/internal/fuzz/defs"
)

// fallback is the private buffer active until a shared segment is attached.
// One per process, matching the single in-flight execution it models.
var fallback [defs.MapSize]byte

// Region is a view over one feedback map buffer.
type Region struct {
	area   []byte
	shared bool
}

// Private returns a region over the process-private fallback buffer.
func Private() *Region {
	return &Region{area: fallback[:]}
}

// Wrap returns a region over an arbitrary caller-owned buffer of MapSize
// bytes. Used by the controller for its view of the shared segment and by
// tests.
func Wrap(area []byte) *Region {
	return &Region{area: area[:defs.MapSize], shared: true}
}

// Bytes returns the underlying buffer. Recorders index into this slice
// directly on the hot path.
//
//go:nosplit
func (r *Region) Bytes() []byte {
	return r.area
}

// Shared reports whether this region is backed by the shared segment rather
// than the private fallback buffer.
func (r *Region) Shared() bool {
	return r.shared
}

// Zero clears the whole region. Called at the top of a persistent loop so
// every iteration starts from a clean slate.
func (r *Region) Zero() {
	clear(r.area)
}

// SetMark writes the non-zero mark byte at offset 0.
//
//go:nosplit
func (r *Region) SetMark() {
	r.area[0] = 1
}

// Marked reports whether the mark byte is set. Controller side.
func (r *Region) Marked() bool {
	return r.area[0] != 0
}

// CaptureTarget returns the branch id the controller asked to watch for.
//
//go:nosplit
func (r *Region) CaptureTarget() uint32 {
	return binary.LittleEndian.Uint32(r.area[0:4])
}

// SetCaptureTarget stores the branch id to watch for. Controller side; must
// be written before the capture run starts.
func (r *Region) SetCaptureTarget(id uint32) {
	binary.LittleEndian.PutUint32(r.area[0:4], id)
}

// StoreCapture records the observed operand pair and the success sentinel.
// Runtime side; the process terminates immediately afterwards.
func (r *Region) StoreCapture(a, b uint32) {
	binary.LittleEndian.PutUint32(r.area[4:8], a)
	binary.LittleEndian.PutUint32(r.area[8:12], b)
	binary.LittleEndian.PutUint32(r.area[12:16], defs.CaptureSentinel)
}

// CaptureResult returns the captured operand pair. ok is false when the
// sentinel is absent, meaning the watched branch never fired (or the target
// died before reaching it).
func (r *Region) CaptureResult() (a, b uint32, ok bool) {
	if binary.LittleEndian.Uint32(r.area[12:16]) != defs.CaptureSentinel {
		return 0, 0, false
	}
	a = binary.LittleEndian.Uint32(r.area[4:8])
	b = binary.LittleEndian.Uint32(r.area[8:12])
	return a, b, true
}

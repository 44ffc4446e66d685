package region

import (
	"testing"

	"github.com/kolkov/fuzzrt/internal/fuzz/defs"
)

// TestPrivate tests that the process-private fallback region is usable and
// not reported as shared.
func TestPrivate(t *testing.T) {
	r := Private()
	if r.Shared() {
		t.Error("Private() region reported as shared")
	}
	if len(r.Bytes()) != defs.MapSize {
		t.Errorf("Private() region size = %d, want %d", len(r.Bytes()), defs.MapSize)
	}

	// Writes through one Private() view are visible through another: both
	// wrap the same process-wide buffer.
	r.Bytes()[100] = 42
	if got := Private().Bytes()[100]; got != 42 {
		t.Errorf("fallback buffer not shared between Private() views: got %d, want 42", got)
	}
	r.Zero()
}

// TestWrap tests that a wrapped caller-owned buffer is the write destination.
func TestWrap(t *testing.T) {
	buf := make([]byte, defs.MapSize)
	r := Wrap(buf)
	if !r.Shared() {
		t.Error("Wrap() region not reported as shared")
	}

	r.Bytes()[7] = 9
	if buf[7] != 9 {
		t.Errorf("write did not reach the wrapped buffer: buf[7] = %d, want 9", buf[7])
	}
}

// TestZero tests that Zero clears the entire region.
func TestZero(t *testing.T) {
	buf := make([]byte, defs.MapSize)
	for i := range buf {
		buf[i] = 0xFF
	}
	r := Wrap(buf)
	r.Zero()

	for i, b := range buf {
		if b != 0 {
			t.Fatalf("Zero() left buf[%d] = %d", i, b)
		}
	}
}

// TestMark tests the mark byte written after attach.
func TestMark(t *testing.T) {
	r := Wrap(make([]byte, defs.MapSize))
	if r.Marked() {
		t.Error("fresh region reports Marked()")
	}
	r.SetMark()
	if !r.Marked() {
		t.Error("SetMark() did not set the mark byte")
	}
	if r.Bytes()[0] == 0 {
		t.Error("mark byte at offset 0 is zero after SetMark()")
	}
}

// TestCaptureSlot tests the capture-slot word layout: target id, operand
// pair, success sentinel.
func TestCaptureSlot(t *testing.T) {
	r := Wrap(make([]byte, defs.MapSize))

	r.SetCaptureTarget(0xDEADBEEF)
	if got := r.CaptureTarget(); got != 0xDEADBEEF {
		t.Errorf("CaptureTarget() = 0x%X, want 0xDEADBEEF", got)
	}

	// Before a capture the sentinel is absent.
	if _, _, ok := r.CaptureResult(); ok {
		t.Error("CaptureResult() ok before any capture")
	}

	r.StoreCapture(17, 42)
	a, b, ok := r.CaptureResult()
	if !ok {
		t.Fatal("CaptureResult() not ok after StoreCapture")
	}
	if a != 17 || b != 42 {
		t.Errorf("CaptureResult() = (%d, %d), want (17, 42)", a, b)
	}

	// The target id word is untouched by the store.
	if got := r.CaptureTarget(); got != 0xDEADBEEF {
		t.Errorf("CaptureTarget() after StoreCapture = 0x%X, want 0xDEADBEEF", got)
	}
}

// TestCaptureSentinelValue pins the sentinel word written on capture.
func TestCaptureSentinelValue(t *testing.T) {
	buf := make([]byte, defs.MapSize)
	r := Wrap(buf)
	r.StoreCapture(0, 0)

	sentinel := uint32(buf[12]) | uint32(buf[13])<<8 | uint32(buf[14])<<16 | uint32(buf[15])<<24
	if sentinel != defs.CaptureSentinel {
		t.Errorf("sentinel word = %d, want %d", sentinel, defs.CaptureSentinel)
	}
}

// TestCaptureSlotMarkOverlap documents that a non-zero capture target id also
// flips the mark byte: both live at offset 0 and capture runs are a separate
// destructive mode.
func TestCaptureSlotMarkOverlap(t *testing.T) {
	r := Wrap(make([]byte, defs.MapSize))
	r.SetCaptureTarget(1)
	if !r.Marked() {
		t.Error("capture target id with non-zero low byte should set the mark byte")
	}
}

// BenchmarkCaptureTarget benchmarks the per-comparison target id read.
func BenchmarkCaptureTarget(b *testing.B) {
	r := Private()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = r.CaptureTarget()
	}
}

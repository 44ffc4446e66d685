//go:build linux

package region

import (
	"testing"

	"golang.org/x/sys/unix"

	"github.com/kolkov/fuzzrt/internal/fuzz/defs"
)

// newSegment creates a private SysV segment of size bytes and schedules its
// removal. Returns the segment id.
func newSegment(t *testing.T, size int) int {
	t.Helper()
	id, err := unix.SysvShmGet(unix.IPC_PRIVATE, size, unix.IPC_CREAT|unix.IPC_EXCL|0o600)
	if err != nil {
		t.Skipf("shmget unavailable: %v", err)
	}
	t.Cleanup(func() {
		unix.SysvShmCtl(id, unix.IPC_RMID, nil)
	})
	return id
}

// TestAttach tests that two attachments of one segment see each other's
// writes, the property the whole runtime/controller split rests on.
func TestAttach(t *testing.T) {
	id := newSegment(t, defs.MapSize)

	runtime, err := Attach(id)
	if err != nil {
		t.Fatalf("Attach(%d) runtime side: %v", id, err)
	}
	defer Detach(runtime)

	controller, err := Attach(id)
	if err != nil {
		t.Fatalf("Attach(%d) controller side: %v", id, err)
	}
	defer Detach(controller)

	if !runtime.Shared() {
		t.Error("attached region not reported as shared")
	}

	runtime.SetMark()
	runtime.Bytes()[1234] = 7

	if !controller.Marked() {
		t.Error("mark byte not visible through the second attachment")
	}
	if got := controller.Bytes()[1234]; got != 7 {
		t.Errorf("cross-attachment read = %d, want 7", got)
	}
}

// TestAttachTooSmall tests that a segment smaller than the map is rejected.
func TestAttachTooSmall(t *testing.T) {
	id := newSegment(t, 4096)

	if _, err := Attach(id); err == nil {
		t.Error("Attach accepted an undersized segment")
	}
}

// TestAttachBadID tests that a bogus segment id is reported as an error
// rather than a panic.
func TestAttachBadID(t *testing.T) {
	if _, err := Attach(-1); err == nil {
		t.Error("Attach(-1) succeeded")
	}
}

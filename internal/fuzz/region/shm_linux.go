//go:build linux

package region

import (
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/kolkov/fuzzrt/internal/fuzz/defs"
)

// Attach maps the SysV shared-memory segment with the given id and returns a
// region over it. The caller decides what an attach failure means; for a
// supervised run it is fatal, since the run is unobservable without the map.
func Attach(id int) (*Region, error) {
	mem, err := unix.SysvShmAttach(id, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("shmat id %d: %w", id, err)
	}
	if len(mem) < defs.MapSize {
		return nil, fmt.Errorf("shm segment %d is %d bytes, need %d", id, len(mem), defs.MapSize)
	}
	return &Region{area: mem[:defs.MapSize], shared: true}, nil
}

// Detach unmaps a shared region. Controller side only; the runtime never
// detaches (fatal paths leave map lifecycle to the controller).
func Detach(r *Region) error {
	if !r.shared {
		return nil
	}
	return unix.SysvShmDetach(r.area[:defs.MapSize:defs.MapSize])
}

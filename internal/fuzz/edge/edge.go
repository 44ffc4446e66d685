// Package edge implements the edge coverage recorder.
//
// Every instrumented control-flow edge bumps a saturating-by-wrap 8-bit hit
// counter in the feedback map, keyed by the hash of the previous and current
// location. This is the hottest path in the whole system - every edge of
// every execution - so Edge must be branch-free and allocation-free.
package edge

import "github.com/kolkov/fuzzrt/internal/fuzz/defs"

// Recorder accumulates edge hits into one destination buffer.
//
// A Recorder is owned by exactly one coverage context and must not be shared
// across threads for a single map attachment; prev is that thread's running
// previous-location register.
type Recorder struct {
	area []byte

	// prev holds the last edge's contribution to the next hash key.
	// Reset to zero at persistent-loop iteration boundaries.
	prev uintptr
}

// New returns a recorder writing into area, which must be at least
// defs.MapSize bytes.
func New(area []byte) Recorder {
	return Recorder{area: area[:defs.MapSize]}
}

// SetArea redirects the recorder to a new destination buffer. Only called at
// buffer-switch points (init, persistent-loop exit), never mid-execution.
func (r *Recorder) SetArea(area []byte) {
	r.area = area[:defs.MapSize]
}

// ResetPrev clears the previous-location register. Called at controlled
// reset points so the first edge of an iteration hashes against zero state.
//
//go:nosplit
func (r *Recorder) ResetPrev() {
	r.prev = 0
}

// Edge records one covered edge ending at cur.
//
// key = cur XOR prev; the byte at map[key] wraps modulo 256 (a frequency
// hint, not an exact counter). prev then becomes cur >> 1: the shift breaks
// the symmetry that would make a self-loop hash to the same key as the
// initial zero state, and halves the range to separate forward/back edges
// sharing an endpoint.
//
// The masks keep indexing in [0, MapSize) without a bounds-check branch.
//
//go:nosplit
func (r *Recorder) Edge(cur uintptr) {
	cur &= defs.MapSize - 1
	r.area[cur^r.prev]++
	r.prev = cur >> 1
}

// Guard records a hit for the guard-table instrumentation style: the guard
// slot's pre-assigned location id indexes the map directly. Id 0 means the
// slot was excluded by the instrumentation-density ratio; it still touches
// the map, in a harmless way.
//
//go:nosplit
func (r *Recorder) Guard(id uint32) {
	r.area[id&(defs.MapSize-1)]++
}

package edge

import (
	"testing"

	"github.com/kolkov/fuzzrt/internal/fuzz/defs"
)

// TestEdgeKey tests the edge hashing scheme: key = cur XOR prev, with prev
// carrying the previous location shifted right by one.
func TestEdgeKey(t *testing.T) {
	tests := []struct {
		name    string
		path    []uintptr
		wantSet []uintptr // keys that must hold exactly one hit
	}{
		{
			name:    "single edge hashes against zero state",
			path:    []uintptr{0x41},
			wantSet: []uintptr{0x41},
		},
		{
			name:    "two-step path",
			path:    []uintptr{0x41, 0x82},
			wantSet: []uintptr{0x41, 0x82 ^ (0x41 >> 1)},
		},
		{
			name:    "location above map size wraps",
			path:    []uintptr{defs.MapSize + 5},
			wantSet: []uintptr{5},
		},
		{
			name:    "self loop does not hash to zero",
			path:    []uintptr{0x41, 0x41},
			wantSet: []uintptr{0x41, 0x41 ^ (0x41 >> 1)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			area := make([]byte, defs.MapSize)
			r := New(area)
			for _, cur := range tt.path {
				r.Edge(cur)
			}

			want := make(map[uintptr]bool, len(tt.wantSet))
			for _, k := range tt.wantSet {
				want[k] = true
			}
			for i, b := range area {
				switch {
				case want[uintptr(i)] && b != 1:
					t.Errorf("area[0x%X] = %d, want 1", i, b)
				case !want[uintptr(i)] && b != 0:
					t.Errorf("area[0x%X] = %d, want 0", i, b)
				}
			}
		})
	}
}

// TestEdgeDirectionality tests that the A->B edge and the B->A edge land in
// different cells; the prev shift exists exactly for this.
func TestEdgeDirectionality(t *testing.T) {
	forward := make([]byte, defs.MapSize)
	r := New(forward)
	r.Edge(0x100)
	r.Edge(0x200)

	backward := make([]byte, defs.MapSize)
	r.SetArea(backward)
	r.ResetPrev()
	r.Edge(0x200)
	r.Edge(0x100)

	same := true
	for i := range forward {
		if forward[i] != backward[i] {
			same = false
			break
		}
	}
	if same {
		t.Error("A->B and B->A paths produced identical maps")
	}
}

// TestEdgeCounterWrap tests that the 8-bit hit counter wraps modulo 256
// without disturbing neighbors.
func TestEdgeCounterWrap(t *testing.T) {
	area := make([]byte, defs.MapSize)
	r := New(area)

	// Hammer one self-loop key 256+3 times past the first visit.
	r.Edge(0x41)
	key := uintptr(0x41 ^ (0x41 >> 1))
	for i := 0; i < 256+3; i++ {
		r.Edge(0x41)
	}

	if got := area[key]; got != 3 {
		t.Errorf("area[0x%X] = %d after wrap, want 3", key, got)
	}
	if got := area[0x41]; got != 1 {
		t.Errorf("area[0x41] = %d, want 1 (first visit only)", got)
	}
}

// TestResetPrev tests that clearing the previous-location register makes the
// next edge hash against zero state again.
func TestResetPrev(t *testing.T) {
	area := make([]byte, defs.MapSize)
	r := New(area)

	r.Edge(0x41)
	r.ResetPrev()
	r.Edge(0x41)

	if got := area[0x41]; got != 2 {
		t.Errorf("area[0x41] = %d, want 2 (both hits hash against zero state)", got)
	}
}

// TestSetArea tests that redirecting the recorder leaves the old buffer
// untouched.
func TestSetArea(t *testing.T) {
	first := make([]byte, defs.MapSize)
	second := make([]byte, defs.MapSize)
	r := New(first)

	r.Edge(0x10)
	r.SetArea(second)
	r.ResetPrev()
	r.Edge(0x20)

	if first[0x10] != 1 {
		t.Error("hit missing from the first buffer")
	}
	if first[0x20] != 0 {
		t.Error("hit leaked into the first buffer after SetArea")
	}
	if second[0x20] != 1 {
		t.Error("hit missing from the second buffer")
	}
}

// TestGuard tests direct guard-slot recording, including index masking and
// the excluded-slot id 0.
func TestGuard(t *testing.T) {
	area := make([]byte, defs.MapSize)
	r := New(area)

	r.Guard(5)
	r.Guard(5)
	r.Guard(defs.MapSize + 9) // wraps to 9
	r.Guard(0)                // excluded slot still touches the map

	if got := area[5]; got != 2 {
		t.Errorf("area[5] = %d, want 2", got)
	}
	if got := area[9]; got != 1 {
		t.Errorf("area[9] = %d, want 1 (masked index)", got)
	}
	if got := area[0]; got != 1 {
		t.Errorf("area[0] = %d, want 1 (id 0 hit)", got)
	}
}

// BenchmarkEdge benchmarks the hottest instrumentation call in the system.
func BenchmarkEdge(b *testing.B) {
	r := New(make([]byte, defs.MapSize))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		r.Edge(uintptr(i))
	}
}

// BenchmarkGuard benchmarks the guard-table recording path.
func BenchmarkGuard(b *testing.B) {
	r := New(make([]byte, defs.MapSize))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		r.Guard(uint32(i))
	}
}

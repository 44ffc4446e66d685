// Package branch implements the branch-distance recorder.
//
// For every instrumented comparison the recorder classifies the signed
// distance between the operands against the comparison kind and drives a
// 2-bit saturating state machine in the branch's feedback-map cell:
//
//	0 unseen -> 1 this-polarity-seen -> 3 saturated
//	         -> 2 other-polarity-seen -> 3 saturated
//
// Saturated cells are terminal: once both polarities have been observed the
// signal has reached its maximum informativeness and no further writes occur
// for that site. The machine is monotonic and idempotent per branch id -
// arrival order only affects how soon saturation is reached, never the final
// state. This is a deliberate lossy compression; no raw distance history is
// retained.
package branch

import (
	"strings"

	"github.com/kolkov/fuzzrt/internal/fuzz/defs"
)

// Kind identifies a comparison family. The numeric values are part of the
// instrumentation call contract and mirror the code generator's predicate
// codes; only the group (the tie-break predicate on the distance) matters
// for recording.
type Kind uint32

const (
	UnsignedGreater   Kind = 0 // dist > 0
	SignedGreater     Kind = 1 // dist > 0
	Equal             Kind = 2 // dist == 0
	UnsignedGreaterEq Kind = 3 // dist >= 0
	SignedGreaterEq   Kind = 4 // dist >= 0
	UnsignedLess      Kind = 5 // dist < 0
	SignedLess        Kind = 6 // dist < 0
	NotEqual          Kind = 7 // dist == 0 (polarity labels are arbitrary)
	UnsignedLessEq    Kind = 8 // dist <= 0
	SignedLessEq      Kind = 9 // dist <= 0

	// StringEqual is the kind used by the string-comparison variants; it
	// reuses the equality rule on the library three-way compare result.
	StringEqual Kind = 11
)

// taken reports whether dist satisfies the kind's "this polarity" predicate.
// Unknown kinds report ok=false and the observation is dropped.
func taken(kind Kind, dist int64) (hit, ok bool) {
	switch kind {
	case UnsignedGreater, SignedGreater:
		return dist > 0, true
	case Equal, NotEqual, StringEqual:
		return dist == 0, true
	case UnsignedGreaterEq, SignedGreaterEq:
		return dist >= 0, true
	case UnsignedLess, SignedLess:
		return dist < 0, true
	case UnsignedLessEq, SignedLessEq:
		return dist <= 0, true
	}
	return false, false
}

// next computes the state transition for one observation.
// Same-polarity repeats return the input state unchanged.
func next(state byte, hit bool) byte {
	if hit {
		switch state {
		case 0:
			return 1
		case 2:
			return 3
		}
	} else {
		switch state {
		case 0:
			return 2
		case 1:
			return 3
		}
	}
	return state
}

// Recorder updates branch state cells in one destination buffer.
type Recorder struct {
	area []byte
}

// New returns a recorder writing into area, which must be at least
// defs.MapSize bytes.
func New(area []byte) Recorder {
	return Recorder{area: area[:defs.MapSize]}
}

// SetArea redirects the recorder to a new destination buffer.
func (r *Recorder) SetArea(area []byte) {
	r.area = area[:defs.MapSize]
}

// Compare records one comparison with a precomputed signed distance.
// The sign of dist indicates which side of the branch was taken.
//
// Saturation is judged on the low 2 bits so that a cell carrying a packed
// string-comparison length still saturates correctly. Integer sites write
// the bare state, clearing any packed length a colliding bounded-string
// site stored - an accepted cost, like edge-key collisions.
//
//go:nosplit
func (r *Recorder) Compare(id uint32, kind Kind, dist int64) {
	cell := &r.area[id&(defs.MapSize-1)]
	state := *cell & 3
	if state == 3 {
		return
	}
	hit, ok := taken(kind, dist)
	if !ok {
		return
	}
	if ns := next(state, hit); ns != state {
		*cell = ns
	}
}

// Compare8 records a comparison of 8-bit operands.
//
//go:nosplit
func (r *Recorder) Compare8(id uint32, kind Kind, a, b int8) {
	r.Compare(id, kind, int64(a)-int64(b))
}

// Compare16 records a comparison of 16-bit operands.
//
//go:nosplit
func (r *Recorder) Compare16(id uint32, kind Kind, a, b int16) {
	r.Compare(id, kind, int64(a)-int64(b))
}

// Compare32 records a comparison of 32-bit operands.
//
//go:nosplit
func (r *Recorder) Compare32(id uint32, kind Kind, a, b int32) {
	r.Compare(id, kind, int64(a)-int64(b))
}

// Compare64 records a comparison of 64-bit operands. The subtraction wraps;
// only the sign relative to zero is consumed.
//
//go:nosplit
func (r *Recorder) Compare64(id uint32, kind Kind, a, b int64) {
	r.Compare(id, kind, a-b)
}

// CompareString records a string equality comparison using the library
// three-way compare result as the distance.
func (r *Recorder) CompareString(id uint32, a, b string) {
	r.Compare(id, StringEqual, int64(strings.Compare(a, b)))
}

// CompareStringN records a bounded string comparison over at most n bytes of
// each operand, packing the compared length into the 6 high bits of the
// state cell.
//
// The packing is lossy and best-effort: the length is truncated to 6 bits
// and only written on state transitions, so a later transition overwrites an
// earlier length (last write wins). Only state-transition correctness is
// guaranteed, never length history.
func (r *Recorder) CompareStringN(id uint32, a, b string, n int) {
	if n < 0 {
		n = 0
	}
	if len(a) > n {
		a = a[:n]
	}
	if len(b) > n {
		b = b[:n]
	}
	dist := int64(strings.Compare(a, b))

	cell := &r.area[id&(defs.MapSize-1)]
	state := *cell & 3
	if state == 3 {
		return
	}
	hit, _ := taken(StringEqual, dist)
	if ns := next(state, hit); ns != state {
		*cell = ns | byte(n&0x3f)<<2
	}
}

// State returns the 2-bit polarity state of a branch cell. Controller and
// test side; not on the hot path.
func (r *Recorder) State(id uint32) byte {
	return r.area[id&(defs.MapSize-1)] & 3
}

// PackedLen returns the compared length packed by CompareStringN, if any.
func (r *Recorder) PackedLen(id uint32) int {
	return int(r.area[id&(defs.MapSize-1)] >> 2)
}

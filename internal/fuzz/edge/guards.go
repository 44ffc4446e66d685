package edge

import (
	"fmt"
	"math/rand"

	"github.com/kolkov/fuzzrt/internal/fuzz/defs"
)

// InitGuards populates a guard table at module-load time.
//
// Each slot receives a random non-zero location id with probability
// ratio/100; excluded slots stay 0, meaning "do not instrument". The first
// slot is always set - a populated first slot also marks the table as
// initialized, so duplicate init calls (an artifact of some code-generation
// backends) return without re-rolling ids.
//
// ratio outside (0, 100] is a configuration error and is reported to the
// caller as an error; it must never be silently clamped.
func InitGuards(guards []uint32, ratio int) error {
	if ratio < 1 || ratio > 100 {
		return fmt.Errorf("invalid instrumentation ratio %d (must be 1-100)", ratio)
	}
	if len(guards) == 0 || guards[0] != 0 {
		return nil
	}

	guards[0] = uint32(rand.Intn(defs.MapSize-1)) + 1
	for i := 1; i < len(guards); i++ {
		if rand.Intn(100) < ratio {
			guards[i] = uint32(rand.Intn(defs.MapSize-1)) + 1
		} else {
			guards[i] = 0
		}
	}
	return nil
}

package note

import (
	"fmt"
	"math/rand/v2"
)

// RandomInRange samples a note uniformly from the inclusive MIDI range
// [low, high]. With includeAccidentals false the candidate set is restricted
// to natural pitches before sampling, keeping the distribution uniform over
// naturals. A non-nil previous pitch is excluded from the candidates so
// consecutive drills differ; if previous is the only eligible pitch it is
// returned anyway rather than looping forever.
func RandomInRange(low, high Note, includeAccidentals bool, previous *Note) (Note, error) {
	lowMIDI, highMIDI := low.MIDI(), high.MIDI()
	if lowMIDI > highMIDI {
		return Note{}, fmt.Errorf("note: invalid range %s..%s", low, high)
	}

	candidates := make([]int, 0, highMIDI-lowMIDI+1)
	for m := lowMIDI; m <= highMIDI; m++ {
		if !includeAccidentals && FromMIDI(m).Accidental != Natural {
			continue
		}
		candidates = append(candidates, m)
	}
	if len(candidates) == 0 {
		return Note{}, fmt.Errorf("note: no eligible pitches in %s..%s", low, high)
	}

	if previous != nil && len(candidates) > 1 {
		prevMIDI := previous.MIDI()
		kept := candidates[:0]
		for _, m := range candidates {
			if m != prevMIDI {
				kept = append(kept, m)
			}
		}
		if len(kept) > 0 {
			candidates = kept
		}
	}

	return FromMIDI(candidates[rand.IntN(len(candidates))]), nil
}

// Package note implements the musical note domain model: conversions
// between spelled notes, MIDI pitch numbers and equal-tempered frequencies,
// plus parsing, formatting and staff geometry.
//
// The canonical identity of a note is its MIDI number (middle C, octave 4,
// is 60). Frequencies are derived from MIDI and never compared directly;
// raw frequency readings must be quantized with FrequencyToMIDI first.
package note

import (
	"fmt"
	"math"
	"strings"
)

// Letter is one of the seven natural note letters.
type Letter int

const (
	C Letter = iota
	D
	E
	F
	G
	A
	B
)

// Accidental shifts a letter by a semitone.
type Accidental int

const (
	Natural Accidental = iota
	Sharp
	Flat
)

// Notation selects how notes are rendered.
type Notation int

const (
	// Latin renders letter names (C, D, E...).
	Latin Notation = iota
	// Solfege renders fixed-do names (Do, Re, Mi...).
	Solfege
)

// Note is an immutable spelled pitch. Two notes with different spellings
// but the same MIDI number compare equal via Equal.
type Note struct {
	Letter     Letter
	Accidental Accidental
	Octave     int
}

// semitones from C for each natural letter.
var letterSemitones = [7]int{0, 2, 4, 5, 7, 9, 11}

var latinNames = [7]string{"C", "D", "E", "F", "G", "A", "B"}
var solfegeNames = [7]string{"Do", "Re", "Mi", "Fa", "Sol", "La", "Si"}

// sharp-preferring spelling for each semitone within an octave.
var semitoneSpelling = [12]struct {
	letter Letter
	sharp  bool
}{
	{C, false}, {C, true}, {D, false}, {D, true}, {E, false}, {F, false},
	{F, true}, {G, false}, {G, true}, {A, false}, {A, true}, {B, false},
}

// MIDI returns the MIDI pitch number of the note. Octave 4 natural C is 60.
func (n Note) MIDI() int {
	offset := 0
	switch n.Accidental {
	case Sharp:
		offset = 1
	case Flat:
		offset = -1
	}
	return (n.Octave+1)*12 + letterSemitones[n.Letter] + offset
}

// FromMIDI returns the sharp-preferring spelling of a MIDI pitch number.
// It never produces a flat. Defined over all integers; negative values use
// a non-negative modulus so the octave/semitone split stays consistent.
func FromMIDI(midi int) Note {
	semitone := ((midi % 12) + 12) % 12
	octave := (midi-semitone)/12 - 1
	sp := semitoneSpelling[semitone]
	acc := Natural
	if sp.sharp {
		acc = Sharp
	}
	return Note{Letter: sp.letter, Accidental: acc, Octave: octave}
}

// MIDIToFrequency converts a MIDI pitch to its equal-tempered frequency
// in Hz, tuned to A4 = 440 Hz.
func MIDIToFrequency(midi int) float64 {
	return 440 * math.Pow(2, float64(midi-69)/12)
}

// FrequencyToMIDI quantizes a frequency to the nearest MIDI pitch number.
func FrequencyToMIDI(hz float64) int {
	return int(math.Round(69 + 12*math.Log2(hz/440)))
}

// Frequency returns the note's equal-tempered frequency in Hz.
func (n Note) Frequency() float64 {
	return MIDIToFrequency(n.MIDI())
}

// Equal reports whether two notes denote the same pitch. Enharmonic
// spellings (F♯ and G♭) are equal.
func (n Note) Equal(other Note) bool {
	return n.MIDI() == other.MIDI()
}

// Format renders the note in the given notation with its octave number,
// e.g. "F♯4" or "Sol3".
func (n Note) Format(system Notation) string {
	return fmt.Sprintf("%s%d", n.FormatShort(system), n.Octave)
}

// FormatShort renders the note name without the octave, e.g. "F♯" or "Sol".
func (n Note) FormatShort(system Notation) string {
	name := latinNames[n.Letter]
	if system == Solfege {
		name = solfegeNames[n.Letter]
	}
	switch n.Accidental {
	case Sharp:
		name += "♯"
	case Flat:
		name += "♭"
	}
	return name
}

// String renders the note in Latin notation.
func (n Note) String() string {
	return n.Format(Latin)
}

// StaffPosition returns the diatonic step offset from the treble-clef
// middle line (B4). Positive is above the middle line. Accidentals do not
// affect the position; they render as glyphs at the natural's line/space.
func (n Note) StaffPosition() int {
	return (n.Octave-4)*7 + int(n.Letter) - int(B)
}

// ErrNoMatch is returned by Parse for text that is not a recognizable note.
var ErrNoMatch = fmt.Errorf("note: no match")

// Parse reads a note from text: a solfège name or letter, an optional
// accidental (♯, #, ♭ or b) and an octave digit. Names are matched
// case-insensitively. Examples: "Sol3", "F#4", "do♯5", "Bb2".
func Parse(s string) (Note, error) {
	rest := strings.ToLower(strings.TrimSpace(s))
	if rest == "" {
		return Note{}, fmt.Errorf("%w: empty input", ErrNoMatch)
	}

	letter := Letter(-1)
	for i, name := range solfegeNames {
		lower := strings.ToLower(name)
		if strings.HasPrefix(rest, lower) {
			letter = Letter(i)
			rest = rest[len(lower):]
			break
		}
	}
	if letter < 0 {
		for i, name := range latinNames {
			if strings.HasPrefix(rest, strings.ToLower(name)) {
				letter = Letter(i)
				rest = rest[1:]
				break
			}
		}
	}
	if letter < 0 {
		return Note{}, fmt.Errorf("%w: %q", ErrNoMatch, s)
	}

	acc := Natural
	switch {
	case strings.HasPrefix(rest, "♯"), strings.HasPrefix(rest, "#"):
		acc = Sharp
		rest = strings.TrimPrefix(strings.TrimPrefix(rest, "♯"), "#")
	case strings.HasPrefix(rest, "♭"):
		acc = Flat
		rest = strings.TrimPrefix(rest, "♭")
	case strings.HasPrefix(rest, "b"):
		acc = Flat
		rest = rest[1:]
	}

	if len(rest) != 1 || rest[0] < '0' || rest[0] > '9' {
		return Note{}, fmt.Errorf("%w: %q", ErrNoMatch, s)
	}
	octave := int(rest[0] - '0')

	return Note{Letter: letter, Accidental: acc, Octave: octave}, nil
}

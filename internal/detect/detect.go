// Package detect turns a stream of per-frame pitch estimates into discrete
// note events. A note is emitted once its MIDI pitch has held steady for a
// stability window, duplicates are suppressed while the pitch is sustained,
// and sufficient silence re-arms detection so a repeated note after a pause
// counts as a fresh event.
package detect

import (
	"time"

	"eartrainer/internal/note"
)

// Config holds the stabilization thresholds.
type Config struct {
	// StabilityWindow is how long a candidate pitch must hold before it
	// is emitted.
	StabilityWindow time.Duration
	// RearmWindow is how long the signal must stay below RearmThreshold
	// before emission memory clears.
	RearmWindow time.Duration
	// RearmThreshold is the RMS level under which a frame counts toward
	// the re-arm timer. Stricter than the extractor's own silence gate.
	RearmThreshold float64
}

// DefaultConfig returns the default stabilization thresholds.
func DefaultConfig() Config {
	return Config{
		StabilityWindow: 250 * time.Millisecond,
		RearmWindow:     120 * time.Millisecond,
		RearmThreshold:  0.012,
	}
}

// Stabilizer is the per-session emission state machine. It is not safe for
// concurrent use; the capture loop is its single mutator. Timestamps are
// passed in per frame so tests can drive it deterministically.
type Stabilizer struct {
	cfg Config

	candidate      int
	hasCandidate   bool
	candidateSince time.Time

	lastEmitted int
	hasEmitted  bool

	lowSince  time.Time
	lowActive bool
}

// New returns a Stabilizer with the given thresholds. Zero thresholds are
// replaced by defaults.
func New(cfg Config) *Stabilizer {
	def := DefaultConfig()
	if cfg.StabilityWindow <= 0 {
		cfg.StabilityWindow = def.StabilityWindow
	}
	if cfg.RearmWindow <= 0 {
		cfg.RearmWindow = def.RearmWindow
	}
	if cfg.RearmThreshold <= 0 {
		cfg.RearmThreshold = def.RearmThreshold
	}
	return &Stabilizer{cfg: cfg}
}

// Reset clears all tracking state. Called when a new capture session begins.
func (s *Stabilizer) Reset() {
	s.hasCandidate = false
	s.hasEmitted = false
	s.lowActive = false
}

// Feed consumes one frame's pitch estimate (hz, ok from the extractor) and
// RMS level at time now. It returns a note and true exactly once per stable,
// newly arrived pitch.
func (s *Stabilizer) Feed(hz float64, ok bool, rms float64, now time.Time) (note.Note, bool) {
	// The re-arm timer runs independently of pitch tracking: enough
	// near-silence clears both the candidate and the emission memory so
	// the same pitch can fire again after a pause.
	if rms < s.cfg.RearmThreshold {
		if !s.lowActive {
			s.lowActive = true
			s.lowSince = now
		} else if now.Sub(s.lowSince) >= s.cfg.RearmWindow {
			s.hasCandidate = false
			s.hasEmitted = false
		}
	} else {
		s.lowActive = false
	}

	if !ok {
		// Transient dropout: candidacy restarts, but the last emitted
		// pitch stays suppressed until the re-arm timer clears it.
		s.hasCandidate = false
		return note.Note{}, false
	}

	midi := note.FrequencyToMIDI(hz)
	// Pathological extractor output (very short lags) can land outside
	// the MIDI range; clamp before spelling.
	if midi < 0 {
		midi = 0
	} else if midi > 127 {
		midi = 127
	}

	if !s.hasCandidate || midi != s.candidate {
		s.candidate = midi
		s.hasCandidate = true
		s.candidateSince = now
		return note.Note{}, false
	}

	if now.Sub(s.candidateSince) >= s.cfg.StabilityWindow &&
		(!s.hasEmitted || midi != s.lastEmitted) {
		s.lastEmitted = midi
		s.hasEmitted = true
		return note.FromMIDI(midi), true
	}

	return note.Note{}, false
}

// Package trainer holds the practice-session state: which note is the
// current target, how detected notes are judged against it, and the
// running score.
package trainer

import (
	"fmt"
	"sync"
	"time"

	"github.com/hako/durafmt"

	"eartrainer/internal/note"
)

// Result is the judgement of one detected note against the current target.
type Result int

const (
	// Correct means the detected pitch matched the target.
	Correct Result = iota
	// Incorrect means the detected pitch missed the target.
	Incorrect
)

// String returns the string representation of the result
func (r Result) String() string {
	switch r {
	case Correct:
		return "Correct"
	case Incorrect:
		return "Incorrect"
	default:
		return "Unknown"
	}
}

// Stats accumulates over a session.
type Stats struct {
	Attempts  int
	Correct   int
	StartedAt time.Time
}

// Session drills random notes from a range. Safe for concurrent use; the
// note callback arrives from the capture loop goroutine while the main
// goroutine reads the target.
type Session struct {
	mu sync.Mutex

	low                note.Note
	high               note.Note
	includeAccidentals bool

	target    note.Note
	hasTarget bool
	stats     Stats
}

// NewSession creates a session drilling notes in [low, high].
func NewSession(low, high note.Note, includeAccidentals bool) *Session {
	return &Session{
		low:                low,
		high:               high,
		includeAccidentals: includeAccidentals,
		stats:              Stats{StartedAt: time.Now()},
	}
}

// NextTarget picks a new target note, avoiding a repeat of the current one.
func (s *Session) NextTarget() (note.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var previous *note.Note
	if s.hasTarget {
		prev := s.target
		previous = &prev
	}

	target, err := note.RandomInRange(s.low, s.high, s.includeAccidentals, previous)
	if err != nil {
		return note.Note{}, fmt.Errorf("failed to pick target note: %w", err)
	}

	s.target = target
	s.hasTarget = true
	return target, nil
}

// Target returns the current target note, if one has been picked.
func (s *Session) Target() (note.Note, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.target, s.hasTarget
}

// Judge scores a detected note against the current target. Enharmonic
// spellings of the target count as correct.
func (s *Session) Judge(detected note.Note) Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stats.Attempts++
	if s.hasTarget && detected.Equal(s.target) {
		s.stats.Correct++
		return Correct
	}
	return Incorrect
}

// Stats returns a copy of the running statistics.
func (s *Session) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// Summary renders the session result for display at shutdown.
func (s *Session) Summary() string {
	s.mu.Lock()
	stats := s.stats
	s.mu.Unlock()

	elapsed := durafmt.Parse(time.Since(stats.StartedAt).Round(time.Second)).LimitFirstN(2)
	if stats.Attempts == 0 {
		return fmt.Sprintf("No notes attempted in %s.", elapsed)
	}
	accuracy := float64(stats.Correct) / float64(stats.Attempts) * 100
	return fmt.Sprintf("%d/%d correct (%.0f%%) in %s.",
		stats.Correct, stats.Attempts, accuracy, elapsed)
}

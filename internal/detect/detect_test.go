package detect

import (
	"testing"
	"time"

	"eartrainer/internal/note"
)

const (
	loudRMS  = 0.1
	quietRMS = 0.001
)

var (
	a4 = note.MIDIToFrequency(69) // 440 Hz
	c4 = note.MIDIToFrequency(60)
)

func newTestStabilizer() *Stabilizer {
	return New(Config{
		StabilityWindow: 100 * time.Millisecond,
		RearmWindow:     50 * time.Millisecond,
		RearmThreshold:  0.012,
	})
}

// feed pushes the same estimate for the given duration in fixed steps and
// returns the number of emissions.
func feed(s *Stabilizer, hz float64, ok bool, rms float64, start time.Time, dur, step time.Duration) (emissions int, last note.Note, end time.Time) {
	for t := start; !t.After(start.Add(dur)); t = t.Add(step) {
		if n, emitted := s.Feed(hz, ok, rms, t); emitted {
			emissions++
			last = n
		}
		end = t
	}
	return emissions, last, end
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.StabilityWindow != 250*time.Millisecond {
		t.Errorf("Expected 250ms stability window, got %v", cfg.StabilityWindow)
	}
	if cfg.RearmWindow != 120*time.Millisecond {
		t.Errorf("Expected 120ms re-arm window, got %v", cfg.RearmWindow)
	}
	if cfg.RearmThreshold != 0.012 {
		t.Errorf("Expected re-arm threshold 0.012, got %v", cfg.RearmThreshold)
	}
}

func TestFeed_EmitsOnceAfterStabilityWindow(t *testing.T) {
	s := newTestStabilizer()
	start := time.Now()

	// Held below the window: nothing emitted.
	n, _, _ := feed(s, a4, true, loudRMS, start, 90*time.Millisecond, 10*time.Millisecond)
	if n != 0 {
		t.Fatalf("Expected no emission below the stability window, got %d", n)
	}

	// Crossing the window: exactly one emission, then suppressed.
	n, got, _ := feed(s, a4, true, loudRMS, start.Add(100*time.Millisecond), 400*time.Millisecond, 10*time.Millisecond)
	if n != 1 {
		t.Fatalf("Expected exactly one emission, got %d", n)
	}
	if got.MIDI() != 69 {
		t.Errorf("Expected MIDI 69, got %d (%v)", got.MIDI(), got)
	}
}

func TestFeed_CandidateResetsOnPitchChange(t *testing.T) {
	s := newTestStabilizer()
	start := time.Now()

	// 80ms of A4, then switch to C4: the partial A4 stability must not
	// carry over.
	feed(s, a4, true, loudRMS, start, 80*time.Millisecond, 10*time.Millisecond)

	t2 := start.Add(90 * time.Millisecond)
	n, _, _ := feed(s, c4, true, loudRMS, t2, 90*time.Millisecond, 10*time.Millisecond)
	if n != 0 {
		t.Fatalf("Expected no emission before C4 held a full window, got %d", n)
	}

	n, got, _ := feed(s, c4, true, loudRMS, t2.Add(100*time.Millisecond), 100*time.Millisecond, 10*time.Millisecond)
	if n != 1 {
		t.Fatalf("Expected one C4 emission, got %d", n)
	}
	if got.MIDI() != 60 {
		t.Errorf("Expected MIDI 60, got %d", got.MIDI())
	}
}

func TestFeed_DistinctPitchesBothEmit(t *testing.T) {
	s := newTestStabilizer()
	start := time.Now()

	n1, _, end := feed(s, a4, true, loudRMS, start, 150*time.Millisecond, 10*time.Millisecond)
	n2, got, _ := feed(s, c4, true, loudRMS, end.Add(10*time.Millisecond), 150*time.Millisecond, 10*time.Millisecond)

	if n1 != 1 || n2 != 1 {
		t.Fatalf("Expected one emission per pitch, got %d and %d", n1, n2)
	}
	if got.MIDI() != 60 {
		t.Errorf("Expected second emission MIDI 60, got %d", got.MIDI())
	}
}

func TestFeed_DropoutClearsCandidateButNotMemory(t *testing.T) {
	s := newTestStabilizer()
	start := time.Now()

	n1, _, end := feed(s, a4, true, loudRMS, start, 150*time.Millisecond, 10*time.Millisecond)
	if n1 != 1 {
		t.Fatalf("Expected initial emission, got %d", n1)
	}

	// A brief loud dropout (shorter than the re-arm window) clears the
	// candidate but keeps the emission memory: the same pitch resuming
	// must not re-fire.
	s.Feed(0, false, loudRMS, end.Add(10*time.Millisecond))

	n2, _, _ := feed(s, a4, true, loudRMS, end.Add(20*time.Millisecond), 300*time.Millisecond, 10*time.Millisecond)
	if n2 != 0 {
		t.Errorf("Expected no re-emission after a transient dropout, got %d", n2)
	}
}

func TestFeed_RearmAllowsRepeatedNote(t *testing.T) {
	s := newTestStabilizer()
	start := time.Now()

	n1, _, end := feed(s, a4, true, loudRMS, start, 150*time.Millisecond, 10*time.Millisecond)
	if n1 != 1 {
		t.Fatalf("Expected initial emission, got %d", n1)
	}

	// Silence past the re-arm window clears emission memory.
	_, _, end = feed(s, 0, false, quietRMS, end.Add(10*time.Millisecond), 60*time.Millisecond, 10*time.Millisecond)

	// The same pitch after the pause counts as a fresh attack.
	n2, got, _ := feed(s, a4, true, loudRMS, end.Add(10*time.Millisecond), 150*time.Millisecond, 10*time.Millisecond)
	if n2 != 1 {
		t.Fatalf("Expected a second emission after re-arm, got %d", n2)
	}
	if got.MIDI() != 69 {
		t.Errorf("Expected MIDI 69, got %d", got.MIDI())
	}
}

func TestFeed_ShortSilenceDoesNotRearm(t *testing.T) {
	s := newTestStabilizer()
	start := time.Now()

	_, _, end := feed(s, a4, true, loudRMS, start, 150*time.Millisecond, 10*time.Millisecond)

	// 30ms of silence, below the 50ms re-arm window.
	_, _, end = feed(s, 0, false, quietRMS, end.Add(10*time.Millisecond), 30*time.Millisecond, 10*time.Millisecond)

	n, _, _ := feed(s, a4, true, loudRMS, end.Add(10*time.Millisecond), 200*time.Millisecond, 10*time.Millisecond)
	if n != 0 {
		t.Errorf("Expected no re-emission after too-short silence, got %d", n)
	}
}

func TestFeed_LoudFrameResetsRearmTimer(t *testing.T) {
	s := newTestStabilizer()
	start := time.Now()

	_, _, end := feed(s, a4, true, loudRMS, start, 150*time.Millisecond, 10*time.Millisecond)

	// Alternate quiet and loud so the low-amplitude timer keeps resetting.
	t0 := end.Add(10 * time.Millisecond)
	for i := 0; i < 20; i++ {
		rms := quietRMS
		if i%4 == 3 {
			rms = loudRMS
		}
		s.Feed(0, false, rms, t0.Add(time.Duration(i)*10*time.Millisecond))
	}

	n, _, _ := feed(s, a4, true, loudRMS, t0.Add(210*time.Millisecond), 200*time.Millisecond, 10*time.Millisecond)
	if n != 0 {
		t.Errorf("Expected emission memory intact when silence keeps breaking, got %d emissions", n)
	}
}

func TestFeed_ClampsPathologicalMIDI(t *testing.T) {
	s := newTestStabilizer()
	start := time.Now()

	// 20 kHz would quantize above MIDI 127; the clamp keeps FromMIDI in
	// range. The extractor normally rejects these, but the stabilizer
	// must stay total.
	n, got, _ := feed(s, 20000, true, loudRMS, start, 200*time.Millisecond, 10*time.Millisecond)
	if n != 1 {
		t.Fatalf("Expected one emission, got %d", n)
	}
	if got.MIDI() != 127 {
		t.Errorf("Expected clamped MIDI 127, got %d", got.MIDI())
	}
}

func TestReset(t *testing.T) {
	s := newTestStabilizer()
	start := time.Now()

	n1, _, end := feed(s, a4, true, loudRMS, start, 150*time.Millisecond, 10*time.Millisecond)
	if n1 != 1 {
		t.Fatalf("Expected initial emission, got %d", n1)
	}

	// A new capture session clears all state: the same pitch emits again.
	s.Reset()
	n2, _, _ := feed(s, a4, true, loudRMS, end.Add(10*time.Millisecond), 150*time.Millisecond, 10*time.Millisecond)
	if n2 != 1 {
		t.Errorf("Expected emission after Reset, got %d", n2)
	}
}

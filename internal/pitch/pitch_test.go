package pitch

import (
	"math"
	"testing"

	"eartrainer/internal/note"
)

const (
	testSampleRate  = 44100
	testFrameLength = 2048
)

func sineFrame(hz float64, amplitude float64) []float32 {
	frame := make([]float32, testFrameLength)
	for i := range frame {
		frame[i] = float32(amplitude * math.Sin(2*math.Pi*hz*float64(i)/testSampleRate))
	}
	return frame
}

func TestRMS(t *testing.T) {
	if got := RMS(nil); got != 0 {
		t.Errorf("Expected RMS 0 for empty frame, got %v", got)
	}

	constant := make([]float32, 100)
	for i := range constant {
		constant[i] = 0.5
	}
	if got := RMS(constant); math.Abs(got-0.5) > 1e-9 {
		t.Errorf("Expected RMS 0.5 for constant frame, got %v", got)
	}

	sine := sineFrame(440, 1.0)
	if got := RMS(sine); math.Abs(got-1/math.Sqrt2) > 0.01 {
		t.Errorf("Expected RMS near 0.707 for full-scale sine, got %v", got)
	}
}

func TestDetect_A440(t *testing.T) {
	frame := sineFrame(440, 0.5)

	hz, ok := Detect(frame, testSampleRate)
	if !ok {
		t.Fatal("Expected pitch from a clean 440 Hz sine")
	}
	if math.Abs(hz-440) > 5 {
		t.Errorf("Expected estimate within 5 Hz of 440, got %v", hz)
	}
	if midi := note.FrequencyToMIDI(hz); midi != 69 {
		t.Errorf("Expected quantization to MIDI 69, got %d", midi)
	}
}

func TestDetect_MiddleC(t *testing.T) {
	frame := sineFrame(261.63, 0.5)

	hz, ok := Detect(frame, testSampleRate)
	if !ok {
		t.Fatal("Expected pitch from a clean middle-C sine")
	}
	if midi := note.FrequencyToMIDI(hz); midi != 60 {
		t.Errorf("Expected quantization to MIDI 60, got %d (%.1f Hz)", midi, hz)
	}
}

func TestDetect_Silence(t *testing.T) {
	frame := make([]float32, testFrameLength)

	if _, ok := Detect(frame, testSampleRate); ok {
		t.Error("Expected no pitch from silence")
	}
}

func TestDetect_BelowAmplitudeGate(t *testing.T) {
	frame := sineFrame(440, 0.005)

	if _, ok := Detect(frame, testSampleRate); ok {
		t.Error("Expected the amplitude gate to reject a near-silent sine")
	}
}

func TestDetect_OutOfRange(t *testing.T) {
	tests := []struct {
		name string
		hz   float64
	}{
		{"below vocal range", 30},
		{"above instrumental range", 2600},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame := sineFrame(tt.hz, 0.5)
			if hz, ok := Detect(frame, testSampleRate); ok {
				t.Errorf("Expected rejection of %v Hz input, got %v Hz", tt.hz, hz)
			}
		})
	}
}

func TestDetect_DegenerateInput(t *testing.T) {
	if _, ok := Detect(nil, testSampleRate); ok {
		t.Error("Expected no pitch from nil frame")
	}
	if _, ok := Detect([]float32{0.5}, testSampleRate); ok {
		t.Error("Expected no pitch from single-sample frame")
	}
	if _, ok := Detect(sineFrame(440, 0.5), 0); ok {
		t.Error("Expected no pitch for zero sample rate")
	}
}

func TestDetect_LeadingSilence(t *testing.T) {
	frame := sineFrame(440, 0.5)
	// Zero out a lead-in; the trimming step should keep the estimate stable.
	for i := 0; i < 200; i++ {
		frame[i] = 0
	}

	hz, ok := Detect(frame, testSampleRate)
	if !ok {
		t.Fatal("Expected pitch despite a silent lead-in")
	}
	if math.Abs(hz-440) > 5 {
		t.Errorf("Expected estimate within 5 Hz of 440, got %v", hz)
	}
}

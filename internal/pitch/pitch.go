// Package pitch implements time-domain autocorrelation pitch detection over
// a single frame of audio samples.
package pitch

import "math"

const (
	// silenceRMS is the amplitude gate below which a frame carries no
	// usable pitch information.
	silenceRMS = 0.01
	// leadThreshold trims a near-silent lead-in before autocorrelation.
	leadThreshold = 0.02
	// minHz and maxHz bound plausible vocal/instrumental fundamentals.
	minHz = 50
	maxHz = 2000
)

// RMS returns the root-mean-square amplitude of the frame.
func RMS(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		v := float64(s)
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(samples)))
}

// Detect estimates the dominant fundamental frequency of one frame of
// time-domain samples in [-1, 1]. It returns ok=false when the frame is too
// quiet or the estimate falls outside the plausible vocal/instrumental
// range. Cost is O(n²) in the frame length; callers use a fixed frame size
// so each invocation is constant and bounded.
func Detect(samples []float32, sampleRate int) (hz float64, ok bool) {
	if len(samples) < 2 || sampleRate <= 0 {
		return 0, false
	}
	if RMS(samples) < silenceRMS {
		return 0, false
	}

	// Skip the silent lead-in so an attack at the end of the frame does
	// not smear the correlation.
	start := 0
	for start < len(samples) && math.Abs(float64(samples[start])) <= leadThreshold {
		start++
	}
	trimmed := samples[start:]
	n := len(trimmed)
	if n < 2 {
		return 0, false
	}

	corr := make([]float64, n)
	for lag := 0; lag < n; lag++ {
		var sum float64
		for i := 0; i+lag < n; i++ {
			sum += float64(trimmed[i]) * float64(trimmed[i+lag])
		}
		corr[lag] = sum
	}

	// The estimated period is the lag of the highest local maximum past
	// lag zero. A plateau or monotonic tail never qualifies.
	bestLag := 0
	bestVal := math.Inf(-1)
	for lag := 1; lag < n-1; lag++ {
		if corr[lag] > corr[lag-1] && corr[lag] > corr[lag+1] && corr[lag] > bestVal {
			bestVal = corr[lag]
			bestLag = lag
		}
	}
	if bestLag == 0 {
		return 0, false
	}

	hz = float64(sampleRate) / float64(bestLag)
	if hz < minHz || hz > maxHz {
		return 0, false
	}
	return hz, true
}

package audio

// Device represents an audio input device
type Device struct {
	ID        int
	Name      string
	IsDefault bool
}

// LatencyMode defines the latency priority
type LatencyMode int

const (
	// LowLatency prioritizes low latency (real-time)
	LowLatency LatencyMode = iota
	// HighStability prioritizes stability (larger buffer)
	HighStability
)

// Config holds capture configuration
type Config struct {
	DeviceID    int
	SampleRate  int
	FrameLength int
	Latency     LatencyMode
}

// DefaultConfig returns the default capture configuration
// Sample rate: 44.1kHz
// Frame length: 2048 samples (one analysis frame per read)
// Latency: LowLatency (real-time pitch tracking)
func DefaultConfig() Config {
	return Config{
		DeviceID:    -1, // -1 means use default device
		SampleRate:  44100,
		FrameLength: 2048,
		Latency:     LowLatency,
	}
}

// FrameSource is the interface for pulling time-domain analysis frames from
// a live capture session. ReadFrame blocks until a full frame of mono
// samples in [-1, 1] has been captured; the hardware paces the processing
// loop. Implementations must make Close idempotent and must fail any
// blocked ReadFrame once Close is called.
type FrameSource interface {
	// ReadFrame returns the next frame of samples, or an error once the
	// underlying stream has died or been closed.
	ReadFrame() ([]float32, error)

	// SampleRate returns the capture sample rate in Hz.
	SampleRate() int

	// Alive reports whether the underlying stream is still delivering.
	Alive() bool

	// Close releases all resources. Safe to call more than once.
	Close() error
}

// SourceFactory acquires a new capture session. The recovery supervisor
// holds one so it can tear down and transparently re-acquire a session;
// tests inject factories producing synthetic sources.
type SourceFactory func(Config) (FrameSource, error)

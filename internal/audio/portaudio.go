package audio

import (
	"fmt"
	"sync"
	"time"

	"github.com/gordonklaus/portaudio"
)

// PortAudioSource implements FrameSource using PortAudio
type PortAudioSource struct {
	config Config
	stream *portaudio.Stream
	buffer []float32

	mu     sync.Mutex
	alive  bool
	closed bool
}

// OpenPortAudio acquires a live microphone capture session. It is a
// SourceFactory. Permission or hardware denial surfaces here as an error;
// nothing is retried.
func OpenPortAudio(config Config) (FrameSource, error) {
	return NewPortAudioSource(config)
}

// NewPortAudioSource creates and starts a PortAudio capture stream
func NewPortAudioSource(config Config) (*PortAudioSource, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize PortAudio: %w", err)
	}

	device, err := inputDevice(config.DeviceID)
	if err != nil {
		portaudio.Terminate()
		return nil, err
	}

	var latency time.Duration
	switch config.Latency {
	case LowLatency:
		latency = device.DefaultLowInputLatency
	case HighStability:
		latency = device.DefaultHighInputLatency
	default:
		latency = device.DefaultLowInputLatency
	}

	s := &PortAudioSource{
		config: config,
		buffer: make([]float32, config.FrameLength),
	}

	streamParams := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   device,
			Channels: 1,
			Latency:  latency,
		},
		SampleRate:      float64(config.SampleRate),
		FramesPerBuffer: config.FrameLength,
	}

	stream, err := portaudio.OpenStream(streamParams, s.buffer)
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("failed to open stream: %w", err)
	}

	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return nil, fmt.Errorf("failed to start stream: %w", err)
	}

	s.stream = stream
	s.alive = true
	return s, nil
}

// inputDevice resolves the configured device ID to a PortAudio input device
func inputDevice(deviceID int) (*portaudio.DeviceInfo, error) {
	if deviceID == -1 {
		device, err := portaudio.DefaultInputDevice()
		if err != nil {
			return nil, fmt.Errorf("failed to get default input device: %w", err)
		}
		return device, nil
	}

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}
	if deviceID < 0 || deviceID >= len(devices) {
		return nil, fmt.Errorf("invalid device ID: %d", deviceID)
	}
	device := devices[deviceID]

	if device.MaxInputChannels <= 0 {
		return nil, fmt.Errorf("selected device '%s' (ID: %d) has no input channels (output-only device)",
			device.Name, deviceID)
	}
	return device, nil
}

// ReadFrame blocks until the next full analysis frame has been captured
func (s *PortAudioSource) ReadFrame() ([]float32, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, fmt.Errorf("source closed")
	}
	stream := s.stream
	s.mu.Unlock()

	if err := stream.Read(); err != nil {
		s.mu.Lock()
		s.alive = false
		s.mu.Unlock()
		return nil, fmt.Errorf("failed to read frame: %w", err)
	}

	// Copy out so the caller owns the frame across the next read.
	frame := make([]float32, len(s.buffer))
	copy(frame, s.buffer)
	return frame, nil
}

// SampleRate returns the capture sample rate in Hz
func (s *PortAudioSource) SampleRate() int {
	return s.config.SampleRate
}

// Alive reports whether the stream is still delivering frames
func (s *PortAudioSource) Alive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.alive && !s.closed
}

// Close releases the stream and terminates PortAudio. Idempotent.
func (s *PortAudioSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	s.alive = false

	var firstErr error
	if s.stream != nil {
		if err := s.stream.Stop(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to stop stream: %w", err)
		}
		if err := s.stream.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to close stream: %w", err)
		}
		s.stream = nil
	}

	if err := portaudio.Terminate(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("failed to terminate PortAudio: %w", err)
	}
	return firstErr
}

// ListDevices returns a list of available audio input devices
func ListDevices() ([]Device, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize PortAudio: %w", err)
	}
	defer portaudio.Terminate()

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}

	defaultInput, err := portaudio.DefaultInputDevice()
	if err != nil {
		// If we can't get the default device, continue without marking any as default
		defaultInput = nil
	}

	var result []Device
	for i, dev := range devices {
		// Only include devices with input channels
		if dev.MaxInputChannels > 0 {
			isDefault := false
			if defaultInput != nil && dev.Name == defaultInput.Name {
				isDefault = true
			}

			result = append(result, Device{
				ID:        i,
				Name:      dev.Name,
				IsDefault: isDefault,
			})
		}
	}

	return result, nil
}

// Package listen owns the live microphone capture session. It runs the
// per-frame detection loop (capture → pitch extraction → stabilization →
// note callback), watches session health, and transparently re-acquires the
// capture source when the stream dies or goes silent for too long.
package listen

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"eartrainer/internal/audio"
	"eartrainer/internal/detect"
	"eartrainer/internal/note"
	"eartrainer/internal/pitch"
)

// Status is the coarse session state reported to the status observer.
type Status int

const (
	// Listening means frames are being captured and analyzed.
	Listening Status = iota
	// Recovering means the capture source died and is being re-acquired.
	Recovering
	// Error means re-acquisition failed; a new Start call is required.
	Error
)

// String returns the string representation of the status
func (s Status) String() string {
	switch s {
	case Listening:
		return "Listening"
	case Recovering:
		return "Recovering"
	case Error:
		return "Error"
	default:
		return "Unknown"
	}
}

// presenceRMS is the minimal level counting as audible input. Frames
// quieter than this feed the silence-timeout recovery heuristic.
const presenceRMS = 0.003

// Options holds configuration for a Listener.
type Options struct {
	// StabilityWindow, RearmWindow and RearmThreshold tune the
	// stabilization engine; zero values take detect defaults.
	StabilityWindow time.Duration
	RearmWindow     time.Duration
	RearmThreshold  float64

	// RecoveryTimeout is how long the input may stay inaudible before
	// the session is presumed dead and re-acquired. Long intentional
	// pauses can trip it; recovery is cheap and invisible beyond a
	// status transition, so false positives are accepted.
	RecoveryTimeout time.Duration

	// OnStatus, when set, receives the coarse status and the current
	// RMS level on every processed frame and on every status change.
	OnStatus func(Status, float64)
}

// DefaultOptions returns the default listener options.
func DefaultOptions() Options {
	cfg := detect.DefaultConfig()
	return Options{
		StabilityWindow: cfg.StabilityWindow,
		RearmWindow:     cfg.RearmWindow,
		RearmThreshold:  cfg.RearmThreshold,
		RecoveryTimeout: 5 * time.Second,
	}
}

// Listener supervises one capture pipeline. At most one session is active
// per Listener; the session is an owned instance, never package state. All
// steady-state mutation happens on the loop goroutine — Start and Stop are
// the only other entry points.
type Listener struct {
	factory audio.SourceFactory
	cfg     audio.Config
	opts    Options
	log     *zap.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	done    chan struct{}
	source  audio.FrameSource
}

// New creates a Listener that acquires capture sessions from factory.
func New(factory audio.SourceFactory, cfg audio.Config, opts Options, log *zap.Logger) *Listener {
	if opts.RecoveryTimeout <= 0 {
		opts.RecoveryTimeout = DefaultOptions().RecoveryTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Listener{factory: factory, cfg: cfg, opts: opts, log: log}
}

// Start acquires a capture session and begins delivering note events to
// onNote from the loop goroutine. An acquisition failure (permission or
// hardware denial) is returned immediately and is never retried. Calling
// Start on a running Listener stops the current session first and starts a
// fresh one; that restart is the documented contract, not a no-op.
func (l *Listener) Start(onNote func(note.Note)) error {
	if onNote == nil {
		return fmt.Errorf("listen: nil note callback")
	}

	l.Stop()

	src, err := l.factory(l.cfg)
	if err != nil {
		return fmt.Errorf("failed to acquire capture source: %w", err)
	}

	stopCh := make(chan struct{})
	done := make(chan struct{})

	l.mu.Lock()
	l.running = true
	l.stopCh = stopCh
	l.done = done
	l.source = src
	l.mu.Unlock()

	stab := detect.New(detect.Config{
		StabilityWindow: l.opts.StabilityWindow,
		RearmWindow:     l.opts.RearmWindow,
		RearmThreshold:  l.opts.RearmThreshold,
	})

	l.log.Info("listening started",
		zap.Int("sample_rate", src.SampleRate()),
		zap.Duration("stability_window", l.opts.StabilityWindow),
		zap.Duration("recovery_timeout", l.opts.RecoveryTimeout))

	go l.loop(src, stab, onNote, stopCh, done)
	return nil
}

// Stop tears down the session: it cancels the loop, releases the capture
// source and waits for the goroutine to exit. Idempotent and safe to call
// when nothing is running.
func (l *Listener) Stop() {
	l.mu.Lock()
	if !l.running {
		l.mu.Unlock()
		return
	}
	l.running = false
	stopCh := l.stopCh
	done := l.done
	src := l.source
	l.source = nil
	l.mu.Unlock()

	close(stopCh)
	if src != nil {
		// Unblocks a ReadFrame in progress.
		src.Close()
	}
	<-done
	l.log.Info("listening stopped")
}

// loop is the single steady-state mutator: it pulls one frame at a time
// (the blocking read paces it at the hardware frame rate), feeds the
// extractor and stabilizer, and runs recovery inline so no two recovery
// attempts can ever overlap.
func (l *Listener) loop(src audio.FrameSource, stab *detect.Stabilizer, onNote func(note.Note), stopCh, done chan struct{}) {
	defer close(done)

	lastAudible := time.Now()

	for {
		select {
		case <-stopCh:
			return
		default:
		}

		frame, err := src.ReadFrame()
		if err != nil || !src.Alive() {
			select {
			case <-stopCh:
				return
			default:
			}
			if err != nil {
				l.log.Warn("capture source failed", zap.Error(err))
			} else {
				l.log.Warn("capture source no longer live")
			}
			src = l.recover(src, stab)
			if src == nil {
				return
			}
			lastAudible = time.Now()
			continue
		}

		now := time.Now()
		rms := pitch.RMS(frame)
		if rms >= presenceRMS {
			lastAudible = now
		}
		l.report(Listening, rms)

		// Prolonged inaudibility is indistinguishable from a stream
		// that silently died on some platforms; re-acquire either way.
		if now.Sub(lastAudible) > l.opts.RecoveryTimeout {
			l.log.Warn("no audible input, re-acquiring capture source",
				zap.Duration("timeout", l.opts.RecoveryTimeout))
			src = l.recover(src, stab)
			if src == nil {
				return
			}
			lastAudible = time.Now()
			continue
		}

		hz, ok := pitch.Detect(frame, src.SampleRate())
		if n, emitted := stab.Feed(hz, ok, rms, now); emitted {
			l.log.Debug("note detected",
				zap.String("note", n.String()),
				zap.Int("midi", n.MIDI()),
				zap.Float64("hz", hz))
			onNote(n)
		}
	}
}

// recover releases the dead source and acquires a replacement. It returns
// the new source, or nil when the listener was stopped meanwhile or
// re-acquisition failed. Failure is terminal for this session: status goes
// to Error and the caller must Start again.
func (l *Listener) recover(old audio.FrameSource, stab *detect.Stabilizer) audio.FrameSource {
	l.report(Recovering, 0)
	old.Close()

	src, err := l.factory(l.cfg)
	if err != nil {
		l.log.Error("recovery failed", zap.Error(err))
		l.report(Error, 0)
		l.mu.Lock()
		l.running = false
		l.mu.Unlock()
		return nil
	}

	// A stop may have raced the re-acquisition; a stopped session must
	// not be resurrected.
	l.mu.Lock()
	if !l.running {
		l.mu.Unlock()
		src.Close()
		return nil
	}
	l.source = src
	l.mu.Unlock()

	stab.Reset()
	l.log.Info("capture source recovered")
	l.report(Listening, 0)
	return src
}

func (l *Listener) report(status Status, level float64) {
	if l.opts.OnStatus != nil {
		l.opts.OnStatus(status, level)
	}
}

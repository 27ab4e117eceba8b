// Package midiecho forwards detected notes to a MIDI output port so an
// external synth can sound them back to the user.
package midiecho

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
	"go.uber.org/zap"
)

const (
	echoChannel  = 0
	echoVelocity = 96
)

// Echo owns one open MIDI output connection.
type Echo struct {
	drv  *rtmididrv.Driver
	out  drivers.Out
	send func(midi.Message) error
	log  *zap.Logger

	mu     sync.Mutex
	closed bool
}

// Open connects to the first MIDI output port whose name contains
// portName (case-insensitive); an empty portName picks the first port.
func Open(portName string, log *zap.Logger) (*Echo, error) {
	if log == nil {
		log = zap.NewNop()
	}

	drv, err := rtmididrv.New()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize MIDI driver: %w", err)
	}

	outs, err := drv.Outs()
	if err != nil {
		drv.Close()
		return nil, fmt.Errorf("failed to list MIDI outputs: %w", err)
	}

	var out drivers.Out
	for _, o := range outs {
		if portName == "" || strings.Contains(strings.ToLower(o.String()), strings.ToLower(portName)) {
			out = o
			break
		}
	}
	if out == nil {
		drv.Close()
		return nil, fmt.Errorf("no MIDI output port matching %q", portName)
	}

	if err := out.Open(); err != nil {
		drv.Close()
		return nil, fmt.Errorf("failed to open MIDI output %q: %w", out.String(), err)
	}

	send, err := midi.SendTo(out)
	if err != nil {
		out.Close()
		drv.Close()
		return nil, fmt.Errorf("failed to attach MIDI sender: %w", err)
	}

	log.Info("MIDI echo connected", zap.String("port", out.String()))
	return &Echo{drv: drv, out: out, send: send, log: log}, nil
}

// Play sounds a MIDI key for the given duration. The note-off is scheduled
// asynchronously so the capture loop is never blocked.
func (e *Echo) Play(key uint8, duration time.Duration) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	if err := e.send(midi.NoteOn(echoChannel, key, echoVelocity)); err != nil {
		e.log.Warn("MIDI note on failed", zap.Uint8("key", key), zap.Error(err))
		e.mu.Unlock()
		return
	}
	e.mu.Unlock()

	time.AfterFunc(duration, func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		if e.closed {
			return
		}
		if err := e.send(midi.NoteOff(echoChannel, key)); err != nil {
			e.log.Warn("MIDI note off failed", zap.Uint8("key", key), zap.Error(err))
		}
	})
}

// Close releases the port and driver. Idempotent.
func (e *Echo) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}
	e.closed = true

	var firstErr error
	if err := e.out.Close(); err != nil {
		firstErr = fmt.Errorf("failed to close MIDI output: %w", err)
	}
	if err := e.drv.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("failed to close MIDI driver: %w", err)
	}
	return firstErr
}

package midiecho

import (
	"testing"
	"time"
)

// MIDI output requires a real driver and at least one port; these tests
// skip where the environment has neither.

func TestOpen_NoMatchingPort(t *testing.T) {
	echo, err := Open("definitely-no-such-port-name", nil)
	if err == nil {
		echo.Close()
		t.Fatal("Expected error for an unmatched port name")
	}
	t.Logf("Got expected error: %v", err)
}

func TestOpenPlayClose(t *testing.T) {
	echo, err := Open("", nil)
	if err != nil {
		t.Skipf("No MIDI output port available: %v", err)
	}

	echo.Play(69, 10*time.Millisecond)
	time.Sleep(30 * time.Millisecond)

	if err := echo.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
	if err := echo.Close(); err != nil {
		t.Errorf("Second Close failed: %v", err)
	}

	// Play after Close is a no-op, not a panic.
	echo.Play(60, time.Millisecond)
}

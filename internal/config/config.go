// Package config loads, validates and saves the ear trainer's JSON
// configuration file.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"eartrainer/internal/note"
)

// Config holds application configuration
type Config struct {
	LowNote            string  `json:"low_note"`            // lowest drill note, e.g. "C3"
	HighNote           string  `json:"high_note"`           // highest drill note, e.g. "C5"
	IncludeAccidentals bool    `json:"include_accidentals"` // drill sharps too
	Notation           string  `json:"notation"`            // "latin" or "solfege"
	AudioDeviceID      int     `json:"audio_device_id"`     // -1 means system default
	StabilityMs        int     `json:"stability_ms"`        // pitch hold time before a note counts
	RearmMs            int     `json:"rearm_ms"`            // silence needed to re-arm a repeated note
	RearmThreshold     float64 `json:"rearm_threshold"`     // RMS level counting as silence
	RecoveryTimeoutMs  int     `json:"recovery_timeout_ms"` // inaudible time before mic re-acquisition
	MIDIEcho           bool    `json:"midi_echo"`           // forward detected notes to a MIDI out port
	MIDIPort           string  `json:"midi_port"`           // substring matching the MIDI out port name
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		LowNote:            "C3",
		HighNote:           "C5",
		IncludeAccidentals: false,
		Notation:           "latin",
		AudioDeviceID:      -1,
		StabilityMs:        250,
		RearmMs:            120,
		RearmThreshold:     0.012,
		RecoveryTimeoutMs:  5000,
		MIDIEcho:           false,
		MIDIPort:           "",
	}
}

// Load loads configuration from the specified path
func Load(path string) (*Config, error) {
	// If file doesn't exist, return default config
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// Save saves configuration to the specified path
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// GetConfigPath returns the default configuration file path
func GetConfigPath() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".config", "eartrainer", "config.json")
}

// Range parses and returns the configured drill note range
func (c *Config) Range() (low, high note.Note, err error) {
	low, err = note.Parse(c.LowNote)
	if err != nil {
		return note.Note{}, note.Note{}, fmt.Errorf("invalid low_note %q: %w", c.LowNote, err)
	}
	high, err = note.Parse(c.HighNote)
	if err != nil {
		return note.Note{}, note.Note{}, fmt.Errorf("invalid high_note %q: %w", c.HighNote, err)
	}
	return low, high, nil
}

// NotationSystem returns the configured notation as a note.Notation
func (c *Config) NotationSystem() note.Notation {
	if c.Notation == "solfege" {
		return note.Solfege
	}
	return note.Latin
}

// Validate validates all configuration fields
func (c *Config) Validate() error {
	low, high, err := c.Range()
	if err != nil {
		return err
	}
	if low.MIDI() > high.MIDI() {
		return fmt.Errorf("low_note %q is above high_note %q", c.LowNote, c.HighNote)
	}

	if c.Notation != "latin" && c.Notation != "solfege" {
		return fmt.Errorf("invalid notation: %s (must be 'latin' or 'solfege')", c.Notation)
	}

	if c.StabilityMs <= 0 || c.StabilityMs > 5000 {
		return fmt.Errorf("invalid stability_ms: %d (must be between 1 and 5000)", c.StabilityMs)
	}

	if c.RearmMs <= 0 || c.RearmMs > 5000 {
		return fmt.Errorf("invalid rearm_ms: %d (must be between 1 and 5000)", c.RearmMs)
	}

	if c.RearmThreshold <= 0 || c.RearmThreshold >= 1 {
		return fmt.Errorf("invalid rearm_threshold: %g (must be between 0 and 1)", c.RearmThreshold)
	}

	if c.RecoveryTimeoutMs <= 0 {
		return fmt.Errorf("invalid recovery_timeout_ms: %d (must be positive)", c.RecoveryTimeoutMs)
	}

	return nil
}

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/schollz/polysurface/internal/engine"
	perrors "github.com/schollz/polysurface/internal/errors"
	"github.com/schollz/polysurface/internal/types"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// OSCConfig addresses a remote synth.
type OSCConfig struct {
	Host       string `json:"host"`
	Port       int    `json:"port"`
	ListenPort int    `json:"listenPort,omitempty"` // analysis feedback, 0 disables
}

// MIDIConfig selects a MIDI output.
type MIDIConfig struct {
	PortName string `json:"portName,omitempty"`
	Channel  int    `json:"channel"`
}

// SequencerConfig is the initial step pattern.
type SequencerConfig struct {
	Steps []string `json:"steps"`
	Rate  string   `json:"rate"`
}

// Config is the main configuration structure
type Config struct {
	Tempo      float64         `json:"tempo"`
	TickMs     int             `json:"tickMs"`
	Engine     engine.Kind     `json:"engine"`
	OSC        OSCConfig       `json:"osc"`
	MIDI       MIDIConfig      `json:"midi"`
	ProjectDir string          `json:"projectDir"`
	PresetKey  string          `json:"presetKey"`
	Seed       uint64          `json:"seed"`
	Sequencer  SequencerConfig `json:"sequencer"`
	ArpRate    string          `json:"arpRate"`

	ReplayNoteLength float64 `json:"replayNoteLength"` // seconds
	KeyGateMs        int     `json:"keyGateMs"`
	AutoSaveMs       int     `json:"autoSaveMs"`
	ExportTakes      bool    `json:"exportTakes,omitempty"`
}

// Default returns a config with sensible defaults
func Default() *Config {
	return &Config{
		Tempo:  120,
		TickMs: 10,
		Engine: engine.KindSoft,
		OSC: OSCConfig{
			Host: "localhost",
			Port: 57120,
		},
		MIDI:       MIDIConfig{Channel: 1},
		ProjectDir: "save",
		PresetKey:  "preset",
		Seed:       1,
		Sequencer: SequencerConfig{
			Steps: []string{"C4", "D4", "E4", "F4", "G4", "A4", "B4", "C5"},
			Rate:  "8n",
		},
		ArpRate:          "16n",
		ReplayNoteLength: 0.25,
		KeyGateMs:        250,
		AutoSaveMs:       1000,
	}
}

// DefaultPath returns ~/.config/polysurface/config.json.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "polysurface", "config.json"), nil
}

// Load reads the config at path. A missing file yields defaults; fields
// absent from the file keep their default values.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the config to path, creating its directory.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func outOfRange(field string, v any) error {
	return fmt.Errorf("%s = %v: %w", field, v, perrors.ErrOutOfRange)
}

// Validate checks every field that the controller cannot clamp itself.
func (c *Config) Validate() error {
	if c.Tempo <= 0 {
		return outOfRange("tempo", c.Tempo)
	}
	if c.TickMs < 1 || c.TickMs > 1000 {
		return outOfRange("tickMs", c.TickMs)
	}
	switch c.Engine {
	case engine.KindOSC, engine.KindMIDI, engine.KindSoft, engine.KindSilent:
	default:
		return fmt.Errorf("unknown engine %q: %w", c.Engine, perrors.ErrInvalidState)
	}
	if c.Engine == engine.KindOSC && (c.OSC.Port < 1 || c.OSC.Port > 65535) {
		return outOfRange("osc.port", c.OSC.Port)
	}
	if c.MIDI.Channel < 1 || c.MIDI.Channel > 16 {
		return outOfRange("midi.channel", c.MIDI.Channel)
	}
	if c.ReplayNoteLength <= 0 {
		return outOfRange("replayNoteLength", c.ReplayNoteLength)
	}
	if c.KeyGateMs < 1 {
		return outOfRange("keyGateMs", c.KeyGateMs)
	}
	if _, err := c.SequencerNotes(); err != nil {
		return err
	}
	if _, err := types.ParseSubdivision(c.Sequencer.Rate); err != nil {
		return fmt.Errorf("sequencer.rate: %w", err)
	}
	if _, err := types.ParseSubdivision(c.ArpRate); err != nil {
		return fmt.Errorf("arpRate: %w", err)
	}
	return nil
}

// SequencerNotes parses the configured step notes.
func (c *Config) SequencerNotes() ([]types.Note, error) {
	if len(c.Sequencer.Steps) == 0 {
		return nil, fmt.Errorf("sequencer has no steps: %w", perrors.ErrOutOfRange)
	}
	notes := make([]types.Note, len(c.Sequencer.Steps))
	for i, s := range c.Sequencer.Steps {
		n, err := types.ParseNote(s)
		if err != nil {
			return nil, fmt.Errorf("sequencer step %d: %w", i, err)
		}
		notes[i] = n
	}
	return notes, nil
}

// TickDuration is the controller tick period.
func (c *Config) TickDuration() time.Duration {
	return time.Duration(c.TickMs) * time.Millisecond
}

// KeyGate is how long a key press sounds.
func (c *Config) KeyGate() time.Duration {
	return time.Duration(c.KeyGateMs) * time.Millisecond
}

// AutoSaveDelay is the debounce before saving a changed preset.
func (c *Config) AutoSaveDelay() time.Duration {
	return time.Duration(c.AutoSaveMs) * time.Millisecond
}

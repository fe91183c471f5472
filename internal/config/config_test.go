package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schollz/polysurface/internal/engine"
	perrors "github.com/schollz/polysurface/internal/errors"
	"github.com/schollz/polysurface/internal/types"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 10*time.Millisecond, cfg.TickDuration())
	assert.Equal(t, 250*time.Millisecond, cfg.KeyGate())
	assert.Equal(t, time.Second, cfg.AutoSaveDelay())

	notes, err := cfg.SequencerNotes()
	require.NoError(t, err)
	assert.Len(t, notes, 8)
	assert.Equal(t, types.Note("C4"), notes[0])
}

func TestLoadSave(t *testing.T) {
	t.Run("missing file gives defaults", func(t *testing.T) {
		cfg, err := Load(filepath.Join(t.TempDir(), "nope.json"))
		require.NoError(t, err)
		assert.Equal(t, Default(), cfg)
	})

	t.Run("round trip", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "sub", "config.json")
		cfg := Default()
		cfg.Tempo = 96
		cfg.Engine = engine.KindOSC
		cfg.Sequencer.Steps = []string{"A3", "C4"}
		require.NoError(t, cfg.Save(path))

		got, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, cfg, got)
	})

	t.Run("partial file keeps defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"tempo": 140}`), 0644))
		got, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, 140.0, got.Tempo)
		assert.Equal(t, 10, got.TickMs)
		assert.Equal(t, "localhost", got.OSC.Host)
	})

	t.Run("malformed file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.json")
		require.NoError(t, os.WriteFile(path, []byte(`{tempo`), 0644))
		_, err := Load(path)
		assert.Error(t, err)
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"tempo", func(c *Config) { c.Tempo = 0 }, perrors.ErrOutOfRange},
		{"tick", func(c *Config) { c.TickMs = 0 }, perrors.ErrOutOfRange},
		{"engine", func(c *Config) { c.Engine = "fm" }, perrors.ErrInvalidState},
		{"osc port", func(c *Config) { c.Engine = engine.KindOSC; c.OSC.Port = 0 }, perrors.ErrOutOfRange},
		{"midi channel", func(c *Config) { c.MIDI.Channel = 17 }, perrors.ErrOutOfRange},
		{"note length", func(c *Config) { c.ReplayNoteLength = 0 }, perrors.ErrOutOfRange},
		{"key gate", func(c *Config) { c.KeyGateMs = 0 }, perrors.ErrOutOfRange},
		{"no steps", func(c *Config) { c.Sequencer.Steps = nil }, perrors.ErrOutOfRange},
		{"bad step", func(c *Config) { c.Sequencer.Steps = []string{"H9"} }, perrors.ErrInvalidNote},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), tt.want)
		})
	}

	t.Run("bad rate", func(t *testing.T) {
		cfg := Default()
		cfg.ArpRate = "7n"
		assert.Error(t, cfg.Validate())
	})
}

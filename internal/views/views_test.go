package views

import (
	"errors"
	"strings"
	"testing"

	"github.com/charmbracelet/bubbles/help"
	"github.com/stretchr/testify/assert"

	"github.com/schollz/polysurface/internal/effects"
	"github.com/schollz/polysurface/internal/model"
	"github.com/schollz/polysurface/internal/scheduler"
	"github.com/schollz/polysurface/internal/types"
)

func TestRenderWaveform(t *testing.T) {
	t.Run("Columns", func(t *testing.T) {
		out := RenderWaveform(4, 1, []float64{0, 0.5, -1, 2})
		assert.Equal(t, " ▄██", out)
	})

	t.Run("Rows", func(t *testing.T) {
		out := RenderWaveform(2, 2, []float64{1, 0.25})
		assert.Equal(t, "█ \n█▄", out)
	})

	t.Run("Empty", func(t *testing.T) {
		out := RenderWaveform(3, 2, nil)
		assert.Equal(t, "   \n   ", out)
	})

	t.Run("Resampled", func(t *testing.T) {
		out := RenderWaveform(2, 1, []float64{1, 1, 0, 0})
		assert.Equal(t, "█ ", out)
	})
}

func TestRenderSparkline(t *testing.T) {
	assert.Equal(t, "▄█", RenderSparkline(2, []float64{0.1, 0.2}))
	assert.Equal(t, "  ", RenderSparkline(2, nil))
}

func TestGradient(t *testing.T) {
	assert.Equal(t, meterLow.Hex(), gradient(0).Hex())
	assert.Equal(t, meterHigh.Hex(), gradient(1).Hex())
	assert.Equal(t, gradient(1).Hex(), gradient(5).Hex(), "clamped")
}

func TestRenderMeter(t *testing.T) {
	assert.Equal(t, 10, strings.Count(RenderMeter(0.5, 0, 1, 20), "█"))
	assert.Equal(t, 0, strings.Count(RenderMeter(-3, 0, 1, 20), "█"))
	assert.Equal(t, 20, strings.Count(RenderMeter(1, 0, 1, 20), "█"))
}

func snapshot() model.Snapshot {
	s := model.Snapshot{
		Tempo:       120,
		Bar:         1,
		Beat:        2,
		Running:     true,
		ActiveNotes: []types.Note{"C4", "E4"},
		Steps: []scheduler.SequenceStep{
			{Note: "C4", Position: 0, Active: true},
			{Note: "D4", Position: 1, Active: false},
		},
		LastArp:    "E4",
		Recording:  true,
		Params:     effects.Defaults(),
		Selected:   "reverb.wet",
		Oscillator: types.OscSawtooth,
		Waveform:   []float64{0, 0.5, 1},
		Engine:     "soft",
	}
	s.Slots[types.SlotArpeggiator] = true
	return s
}

func TestRender(t *testing.T) {
	out := Render(snapshot(), Options{Width: 100, Help: help.New()})

	for _, want := range []string{
		"polysurface  soft",
		"playing",
		"120.0 bpm",
		"bar   2",
		"C4",
		"1 arpeggiator E4",
		"2 sequencer",
		"reverb.wet",
		"sawtooth",
		"rec 0",
		"octave +0",
		"●",
	} {
		assert.Contains(t, out, want)
	}

	t.Run("Errors", func(t *testing.T) {
		s := snapshot()
		s.LastErr = errors.New("step 9: out of range")
		assert.Contains(t, Render(s, Options{}), "step 9: out of range")

		s.EngineErr = errors.New("lost")
		assert.Contains(t, Render(s, Options{}), "engine: lost")
	})
}

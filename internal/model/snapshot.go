package model

import (
	"fmt"

	"github.com/schollz/polysurface/internal/effects"
	"github.com/schollz/polysurface/internal/engine"
	"github.com/schollz/polysurface/internal/scheduler"
	"github.com/schollz/polysurface/internal/types"
)

// Snapshot is a read-only copy of the state the presentation layer draws.
type Snapshot struct {
	Tempo    float64
	Position float64
	Bar      int
	Beat     float64
	Running  bool

	ActiveNotes []types.Note
	Octave      int
	Slots       [types.NumSlots]bool
	Steps       []scheduler.SequenceStep
	CurrentStep int
	LastArp     types.Note
	Clicks      int

	Recording      bool
	RecordedEvents int
	TakeEvents     int
	Replaying      bool

	Params     effects.Snapshot
	Selected   string
	Oscillator types.OscillatorType
	Waveform   []float64
	Spectrum   []float64
	Level      float64

	Engine    string
	EngineErr error
	LastErr   error
	Ticks     int
}

// Snapshot copies the current state.
func (m *Model) Snapshot() Snapshot {
	bar, beat := m.Transport.Bar(beatsPerBar)
	s := Snapshot{
		Tempo:       m.Transport.Tempo(),
		Position:    m.Transport.Position(),
		Bar:         bar,
		Beat:        beat,
		Running:     m.Transport.Running(),
		ActiveNotes: m.Registry.ActiveNotes(),
		Octave:      m.Octave,
		Steps:       m.Sequencer.Steps(),
		CurrentStep: m.Sequencer.Current(),
		LastArp:     m.Arpeggiator.Last(),
		Clicks:      m.Metronome.Count(),

		Recording:      m.Recorder.Recording(),
		RecordedEvents: m.Recorder.Pending(),
		TakeEvents:     m.Recorder.Performance().Len(),
		Replaying:      m.Player.Active(),

		Params:     m.Chain.Snapshot(),
		Selected:   m.SelectedParam().Path(),
		Oscillator: m.Chain.Oscillator(),
		Waveform:   m.WaveformView(),
		Level:      effects.Level(m.lastAnalysis),

		Engine:    engineName(m.engine),
		EngineErr: m.lost,
		LastErr:   m.lastErr,
		Ticks:     m.ticks,
	}
	for _, slot := range types.Slots {
		s.Slots[slot] = m.Scheduler.Enabled(slot)
	}
	if m.lastSpectrum != nil {
		s.Spectrum = append([]float64(nil), m.lastSpectrum...)
	}
	return s
}

func engineName(e engine.Engine) string {
	switch e.(type) {
	case engine.Silent:
		return string(engine.KindSilent)
	case *engine.OSCEngine:
		return string(engine.KindOSC)
	case *engine.MIDIEngine:
		return string(engine.KindMIDI)
	case *engine.SoftEngine:
		return string(engine.KindSoft)
	default:
		return fmt.Sprintf("%T", e)
	}
}

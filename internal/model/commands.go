package model

import (
	"fmt"
	"log"

	"github.com/schollz/polysurface/internal/effects"
	perrors "github.com/schollz/polysurface/internal/errors"
	"github.com/schollz/polysurface/internal/preset"
	"github.com/schollz/polysurface/internal/recorder"
	"github.com/schollz/polysurface/internal/scheduler"
	"github.com/schollz/polysurface/internal/types"
)

// Play starts the transport from its current position.
func (m *Model) Play() {
	if m.Transport.Running() {
		return
	}
	m.Transport.Start(m.clock.Now())
	log.Printf("play at beat %.3f", m.Transport.Position())
}

// Stop freezes the transport and releases every held note. Pending pluck
// releases run immediately so nothing keeps sounding.
func (m *Model) Stop() {
	if m.Transport.Running() {
		m.Transport.Advance(m.clock.Now())
	}
	m.Transport.Stop()
	m.Scheduler.Flush()
	m.Registry.ReleaseAll()
	for note := range m.keyHeld {
		delete(m.keyHeld, note)
	}
	log.Printf("stop at beat %.3f", m.Transport.Position())
}

// TogglePlay starts or stops the transport.
func (m *Model) TogglePlay() {
	if m.Transport.Running() {
		m.Stop()
		return
	}
	m.Play()
}

// SetTempo changes the tempo and returns the value in effect.
func (m *Model) SetTempo(bpm float64) float64 {
	if m.Transport.Running() {
		m.Transport.Advance(m.clock.Now())
	}
	return m.Transport.SetTempo(bpm)
}

// NudgeTempo changes the tempo by delta.
func (m *Model) NudgeTempo(delta float64) float64 {
	return m.SetTempo(m.Transport.Tempo() + delta)
}

// Seek moves the transport; scheduled tasks restart on the grid.
func (m *Model) Seek(beats float64) {
	m.Transport.Seek(beats)
	m.Scheduler.Realign(m.Transport.Position())
}

type client interface {
	Tick(beat float64)
	Interval() float64
}

func (m *Model) toggleSlot(slot types.Slot, c client) bool {
	if m.Scheduler.Enabled(slot) {
		m.Scheduler.Disable(slot)
		return false
	}
	m.Scheduler.Enable(slot, c.Tick, c.Interval())
	return true
}

// ToggleArpeggiator enables or disables the arpeggiator and reports the
// new state.
func (m *Model) ToggleArpeggiator() bool {
	return m.toggleSlot(types.SlotArpeggiator, m.Arpeggiator)
}

// ToggleSequencer enables or disables the step sequencer.
func (m *Model) ToggleSequencer() bool {
	if !m.Scheduler.Enabled(types.SlotSequencer) {
		m.Sequencer.Reset()
	}
	return m.toggleSlot(types.SlotSequencer, m.Sequencer)
}

// ToggleMetronome enables or disables the metronome.
func (m *Model) ToggleMetronome() bool {
	return m.toggleSlot(types.SlotMetronome, m.Metronome)
}

// ToggleSlot dispatches to the toggle for slot.
func (m *Model) ToggleSlot(slot types.Slot) bool {
	switch slot {
	case types.SlotArpeggiator:
		return m.ToggleArpeggiator()
	case types.SlotSequencer:
		return m.ToggleSequencer()
	default:
		return m.ToggleMetronome()
	}
}

// ToggleStep flips step i of the sequencer pattern. The change is heard
// from the next loop pass.
func (m *Model) ToggleStep(i int) error {
	if err := m.Sequencer.Toggle(i); err != nil {
		m.setError(err)
		return err
	}
	return nil
}

// SetStepNote changes the pitch of step i.
func (m *Model) SetStepNote(i int, note types.Note) error {
	if err := m.Sequencer.SetNote(i, note); err != nil {
		m.setError(err)
		return err
	}
	return nil
}

// SetParameter writes stage.name and returns the clamped value stored.
func (m *Model) SetParameter(stage, name string, value float64) (float64, error) {
	v, err := m.Chain.SetParameter(stage, name, value)
	if err != nil {
		if perrors.Is(err, perrors.ErrEngineLost) {
			m.fault(err)
			return v, nil
		}
		m.setError(err)
		return v, err
	}
	m.touch()
	return v, nil
}

// NudgeParameter moves stage.name by a fraction of its range.
func (m *Model) NudgeParameter(stage, name string, fraction float64) (float64, error) {
	p, ok := effects.Lookup(stage + "." + name)
	if !ok {
		return m.SetParameter(stage, name, 0)
	}
	cur, _ := m.Chain.Parameter(stage, name)
	step := (p.Max - p.Min) * fraction
	if p.Enum && step != 0 && -1 < step && step < 1 {
		if step > 0 {
			step = 1
		} else {
			step = -1
		}
	}
	return m.SetParameter(stage, name, cur+step)
}

// SetOscillator selects the source waveform.
func (m *Model) SetOscillator(osc types.OscillatorType) error {
	if !osc.Valid() {
		err := fmt.Errorf("oscillator %d: %w", int(osc), perrors.ErrOutOfRange)
		m.setError(err)
		return err
	}
	_, err := m.SetParameter(effects.StageSource, "oscillator", float64(osc))
	return err
}

// CycleOscillator selects the next source waveform.
func (m *Model) CycleOscillator() types.OscillatorType {
	next := m.Chain.Oscillator() + 1
	if !next.Valid() {
		next = types.OscSine
	}
	m.SetOscillator(next)
	return m.Chain.Oscillator()
}

// SelectParam moves the parameter cursor by delta, wrapping around the
// pipeline, and returns the parameter now selected.
func (m *Model) SelectParam(delta int) effects.Param {
	params := effects.Params()
	m.selected = ((m.selected+delta)%len(params) + len(params)) % len(params)
	return params[m.selected]
}

// SelectedParam returns the parameter under the cursor.
func (m *Model) SelectedParam() effects.Param {
	return effects.Params()[m.selected]
}

// NudgeSelected moves the selected parameter by a fraction of its range.
func (m *Model) NudgeSelected(fraction float64) (float64, error) {
	p := m.SelectedParam()
	return m.NudgeParameter(p.Stage, p.Name, fraction)
}

// ShiftOctave moves the keyboard by delta octaves within ±maxOctaveShift.
func (m *Model) ShiftOctave(delta int) int {
	m.Octave = max(-maxOctaveShift, min(maxOctaveShift, m.Octave+delta))
	return m.Octave
}

func (m *Model) touch() {
	if m.AutoSave != nil {
		m.AutoSave.Touch()
	}
}

// StartRecording begins capturing note-on events.
func (m *Model) StartRecording() error {
	if err := m.Recorder.StartRecording(m.clock.Now()); err != nil {
		m.setError(err)
		return err
	}
	return nil
}

// StopRecording finalizes the take.
func (m *Model) StopRecording() (recorder.Performance, error) {
	perf, err := m.Recorder.StopRecording()
	if err != nil {
		m.setError(err)
	}
	return perf, err
}

// ToggleRecording starts or stops a take.
func (m *Model) ToggleRecording() {
	if m.Recorder.Recording() {
		m.StopRecording()
		return
	}
	m.StartRecording()
}

// Replay schedules the last take from now and returns the number of
// notes queued. It does not wait for playback.
func (m *Model) Replay() int {
	perf := m.Recorder.Performance()
	n := m.Player.Replay(perf, m.clock.Now())
	log.Printf("replaying %d events", n)
	return n
}

// SavePreset stores the current parameters under key.
func (m *Model) SavePreset(key string) error {
	if m.Store == nil {
		err := fmt.Errorf("no preset store: %w", perrors.ErrInvalidState)
		m.setError(err)
		return err
	}
	if err := preset.Save(m.Store, key, m.Chain); err != nil {
		m.setError(err)
		return err
	}
	return nil
}

// LoadPreset applies the preset stored under key. A missing or corrupt
// preset leaves every parameter untouched.
func (m *Model) LoadPreset(key string) error {
	if m.Store == nil {
		err := fmt.Errorf("no preset store: %w", perrors.ErrInvalidState)
		m.setError(err)
		return err
	}
	snap, err := preset.Load(m.Store, key)
	if err != nil {
		m.setError(err)
		return err
	}
	if err := m.Chain.Apply(snap); err != nil {
		m.fault(err)
	}
	log.Printf("loaded preset %q", key)
	return nil
}

// Shutdown cancels every scheduled task, cancels replay, then releases
// all notes. The model ignores ticks afterwards.
func (m *Model) Shutdown() {
	if m.shutdown {
		return
	}
	m.Scheduler.CancelAll()
	m.Player.Cancel(m.Registry)
	m.Scheduler.Flush()
	m.Registry.ReleaseAll()
	m.Transport.Stop()
	if m.Recorder.Recording() {
		m.StopRecording()
	}
	if m.AutoSave != nil {
		m.AutoSave.Flush()
	}
	m.shutdown = true
	log.Printf("shutdown complete")
}

// Steps returns the staged sequencer pattern.
func (m *Model) Steps() []scheduler.SequenceStep { return m.Sequencer.Steps() }

package scheduler

import (
	"fmt"
	"math"
	"math/rand/v2"

	perrors "github.com/schollz/polysurface/internal/errors"
	"github.com/schollz/polysurface/internal/types"
)

// Plucker sends transient notes. voice.Registry implements it.
type Plucker interface {
	Strike(note types.Note)
	Damp(note types.Note)
}

// Voices is a Plucker that also reports the held notes.
type Voices interface {
	Plucker
	ActiveNotes() []types.Note
}

// Deferrer runs fn once after a number of beats. *Scheduler implements it.
type Deferrer interface {
	After(beats float64, fn func())
}

func pluck(p Plucker, d Deferrer, note types.Note, gate float64) {
	p.Strike(note)
	d.After(gate, func() { p.Damp(note) })
}

// Arpeggiator plucks a random held note on every tick. It does nothing
// while no note is held.
type Arpeggiator struct {
	Registry Voices
	Defer    Deferrer
	Rand     *rand.Rand
	Rate     types.Subdivision
	Gate     types.Subdivision

	last types.Note
}

// NewArpeggiator creates an arpeggiator ticking on sixteenth notes. rng
// must be non-nil; seed it for reproducible runs.
func NewArpeggiator(voices Voices, d Deferrer, rng *rand.Rand) *Arpeggiator {
	return &Arpeggiator{
		Registry: voices,
		Defer:    d,
		Rand:     rng,
		Rate:     types.Sixteenth,
		Gate:     types.Sixteenth,
	}
}

// Interval is the tick period in beats.
func (a *Arpeggiator) Interval() float64 { return a.Rate.Beats() }

// Last returns the most recently plucked note.
func (a *Arpeggiator) Last() types.Note { return a.last }

func (a *Arpeggiator) Tick(beat float64) {
	notes := a.Registry.ActiveNotes()
	if len(notes) == 0 {
		return
	}
	a.last = notes[a.Rand.IntN(len(notes))]
	pluck(a.Registry, a.Defer, a.last, a.Gate.Beats())
}

// SequenceStep is one cell of the step sequencer.
type SequenceStep struct {
	Note     types.Note `json:"note"`
	Position int        `json:"position"`
	Active   bool       `json:"active"`
}

// StepSequencer loops a fixed pattern. Edits go to a staged copy that
// becomes the playing pattern at the start of the next loop pass.
type StepSequencer struct {
	Registry Plucker
	Defer    Deferrer
	Rate     types.Subdivision
	Gate     types.Subdivision

	staged  []SequenceStep
	playing []SequenceStep
	current int
}

// NewStepSequencer creates a sequencer with one step per note, all
// active, ticking on eighth notes.
func NewStepSequencer(p Plucker, d Deferrer, notes []types.Note) *StepSequencer {
	steps := make([]SequenceStep, len(notes))
	for i, n := range notes {
		steps[i] = SequenceStep{Note: n, Position: i, Active: true}
	}
	return &StepSequencer{
		Registry: p,
		Defer:    d,
		Rate:     types.Eighth,
		Gate:     types.Sixteenth,
		staged:   steps,
		current:  -1,
	}
}

// Interval is the tick period in beats, one step.
func (s *StepSequencer) Interval() float64 { return s.Rate.Beats() }

// Len returns the pattern length.
func (s *StepSequencer) Len() int { return len(s.staged) }

// Current returns the index of the last step played, or -1.
func (s *StepSequencer) Current() int { return s.current }

// Steps returns a copy of the staged pattern.
func (s *StepSequencer) Steps() []SequenceStep {
	out := make([]SequenceStep, len(s.staged))
	copy(out, s.staged)
	return out
}

// SetSteps replaces the staged pattern. Positions are renumbered.
func (s *StepSequencer) SetSteps(steps []SequenceStep) {
	s.staged = make([]SequenceStep, len(steps))
	copy(s.staged, steps)
	for i := range s.staged {
		s.staged[i].Position = i
	}
}

func (s *StepSequencer) index(i int) error {
	if i < 0 || i >= len(s.staged) {
		return fmt.Errorf("step %d of %d: %w", i, len(s.staged), perrors.ErrOutOfRange)
	}
	return nil
}

// Toggle flips whether step i plays.
func (s *StepSequencer) Toggle(i int) error {
	if err := s.index(i); err != nil {
		return err
	}
	s.staged[i].Active = !s.staged[i].Active
	return nil
}

// SetNote changes the pitch of step i.
func (s *StepSequencer) SetNote(i int, note types.Note) error {
	if err := s.index(i); err != nil {
		return err
	}
	s.staged[i].Note = note
	return nil
}

// Reset makes the staged pattern the playing one. Called when the slot
// is enabled.
func (s *StepSequencer) Reset() {
	s.playing = s.Steps()
	s.current = -1
}

func (s *StepSequencer) Tick(beat float64) {
	n := len(s.staged)
	if n == 0 {
		return
	}
	idx := int(math.Round(beat/s.Interval())) % n
	if idx == 0 || len(s.playing) != n {
		s.playing = s.Steps()
	}
	s.current = idx
	step := s.playing[idx]
	if !step.Active {
		return
	}
	pluck(s.Registry, s.Defer, step.Note, s.Gate.Beats())
}

// Metronome strikes a fixed percussive note on every quarter note,
// independent of held notes.
type Metronome struct {
	Registry Plucker
	Defer    Deferrer
	Sample   types.Note
	Gate     types.Subdivision

	count int
}

// NewMetronome creates a metronome striking C0.
func NewMetronome(p Plucker, d Deferrer) *Metronome {
	return &Metronome{
		Registry: p,
		Defer:    d,
		Sample:   types.Note("C0"),
		Gate:     types.ThirtySecond,
	}
}

// Interval is one quarter note.
func (m *Metronome) Interval() float64 { return types.Quarter.Beats() }

// Count returns the number of clicks since creation.
func (m *Metronome) Count() int { return m.count }

func (m *Metronome) Tick(beat float64) {
	m.count++
	pluck(m.Registry, m.Defer, m.Sample, m.Gate.Beats())
}

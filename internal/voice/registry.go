// Package voice tracks which notes are sounding and is the only path by
// which trigger commands reach the synthesis engine.
package voice

import (
	"log"
	"sort"

	"github.com/schollz/polysurface/internal/types"
)

// Engine is the part of the synthesis engine the registry drives.
type Engine interface {
	Attack(note types.Note) error
	Release(note types.Note) error
}

// Registry is the source of truth for held notes. A note is active iff it
// was triggered with no release since. Registry is not safe for concurrent
// use; the owning controller serialises every call onto its tick.
type Registry struct {
	engine Engine
	active map[types.Note]struct{}
	fault  func(error)

	attacks  int
	releases int
}

// NewRegistry creates an empty registry driving engine.
func NewRegistry(engine Engine) *Registry {
	return &Registry{
		engine: engine,
		active: make(map[types.Note]struct{}),
	}
}

// SetEngine swaps the engine, e.g. to a silent one after a connection loss.
func (r *Registry) SetEngine(engine Engine) {
	r.engine = engine
}

// OnFault sets the callback that receives engine errors. Registry state is
// updated regardless of engine failures.
func (r *Registry) OnFault(fn func(error)) {
	r.fault = fn
}

func (r *Registry) report(err error) {
	if err == nil {
		return
	}
	if r.fault != nil {
		r.fault(err)
		return
	}
	log.Printf("engine error: %v", err)
}

// Trigger starts note. Triggering an active note is a no-op: the attack is
// sent once per logical press.
func (r *Registry) Trigger(note types.Note) {
	if _, ok := r.active[note]; ok {
		return
	}
	r.active[note] = struct{}{}
	r.attacks++
	r.report(r.engine.Attack(note))
}

// Release stops note if it is active and is a no-op otherwise.
func (r *Registry) Release(note types.Note) {
	if _, ok := r.active[note]; !ok {
		return
	}
	delete(r.active, note)
	r.releases++
	r.report(r.engine.Release(note))
}

// ReleaseAll releases every active note and leaves the set empty.
func (r *Registry) ReleaseAll() {
	for _, note := range r.ActiveNotes() {
		r.Release(note)
	}
}

// Strike sends a transient attack that does not enter the held set. It is
// used for programmatic plucks (arpeggiator, sequencer, metronome, replay
// gates) and must be paired with Damp.
func (r *Registry) Strike(note types.Note) {
	r.attacks++
	r.report(r.engine.Attack(note))
}

// Damp ends a Strike. It is suppressed while note is held so a pluck never
// cuts a held press.
func (r *Registry) Damp(note types.Note) {
	if _, ok := r.active[note]; ok {
		return
	}
	r.releases++
	r.report(r.engine.Release(note))
}

// ActiveNotes returns a sorted snapshot of the held notes. The slice is a
// copy; re-query after any suspension point.
func (r *Registry) ActiveNotes() []types.Note {
	notes := make([]types.Note, 0, len(r.active))
	for n := range r.active {
		notes = append(notes, n)
	}
	sort.Slice(notes, func(i, j int) bool {
		if notes[i].MIDI() != notes[j].MIDI() {
			return notes[i].MIDI() < notes[j].MIDI()
		}
		return notes[i] < notes[j]
	})
	return notes
}

// IsActive reports whether note is held.
func (r *Registry) IsActive(note types.Note) bool {
	_, ok := r.active[note]
	return ok
}

// Len returns the number of held notes.
func (r *Registry) Len() int { return len(r.active) }

// Counts returns how many attack and release commands were sent.
func (r *Registry) Counts() (attacks, releases int) {
	return r.attacks, r.releases
}

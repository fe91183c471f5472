// Package engine holds the synthesis engine collaborators the control core
// drives: remote engines reached over OSC or MIDI, an in-process software
// engine and a silent engine used after the connection is lost.
package engine

import (
	"sync"

	"github.com/schollz/polysurface/internal/types"
)

// Engine receives trigger and parameter commands. An engine keeps at most
// one voice per note: attacking a sounding note retriggers it and a
// release silences it. Implementations must be safe to call from the
// controller's tick goroutine.
type Engine interface {
	Attack(note types.Note) error
	Release(note types.Note) error
	SetParameter(path string, value float64) error
	AnalysisSamples() []float64
}

// Kind names an engine implementation in configuration.
type Kind string

const (
	KindOSC    Kind = "osc"
	KindMIDI   Kind = "midi"
	KindSoft   Kind = "soft"
	KindSilent Kind = "silent"
)

// Silent accepts every command and produces no sound.
type Silent struct{}

func (Silent) Attack(types.Note) error            { return nil }
func (Silent) Release(types.Note) error           { return nil }
func (Silent) SetParameter(string, float64) error { return nil }
func (Silent) AnalysisSamples() []float64         { return nil }

// AnalysisBuffer is a bounded ring of analysis samples pushed by an engine
// listener and read by the presentation layer.
type AnalysisBuffer struct {
	mu  sync.Mutex
	buf []float64
	max int
}

// NewAnalysisBuffer creates a buffer keeping at most max samples.
func NewAnalysisBuffer(max int) *AnalysisBuffer {
	if max < 1 {
		max = 1
	}
	return &AnalysisBuffer{max: max}
}

// Push appends a sample, dropping the oldest when full.
func (b *AnalysisBuffer) Push(sample float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf = append(b.buf, sample)
	if len(b.buf) > b.max {
		b.buf = b.buf[len(b.buf)-b.max:]
	}
}

// Samples returns a copy of the buffered samples, oldest first.
func (b *AnalysisBuffer) Samples() []float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]float64, len(b.buf))
	copy(out, b.buf)
	return out
}

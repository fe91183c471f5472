// Package recorder captures timestamped note-on events and replays them.
package recorder

import (
	"fmt"
	"log"

	perrors "github.com/schollz/polysurface/internal/errors"
	"github.com/schollz/polysurface/internal/types"
)

// Event is one captured note-on. Offset is seconds since recording began.
type Event struct {
	Note   types.Note `json:"note"`
	Offset float64    `json:"offset"`
}

// Performance is a finalized take, events in capture order.
type Performance struct {
	Events []Event `json:"events"`
	Tempo  float64 `json:"tempo,omitempty"`
}

// Len returns the number of events.
func (p Performance) Len() int { return len(p.Events) }

// Duration is the offset of the last event.
func (p Performance) Duration() float64 {
	var d float64
	for _, e := range p.Events {
		if e.Offset > d {
			d = e.Offset
		}
	}
	return d
}

func (p Performance) clone() Performance {
	out := Performance{Tempo: p.Tempo}
	if p.Events != nil {
		out.Events = make([]Event, len(p.Events))
		copy(out.Events, p.Events)
	}
	return out
}

// Sink receives every finalized performance.
type Sink interface {
	Export(perf Performance) error
}

// Recorder is Idle or Recording. It is not safe for concurrent use.
type Recorder struct {
	recording bool
	start     float64
	events    []Event
	last      Performance
	sink      Sink
}

// New creates an idle recorder. sink may be nil.
func New(sink Sink) *Recorder {
	return &Recorder{sink: sink}
}

// SetSink replaces the export sink.
func (r *Recorder) SetSink(sink Sink) { r.sink = sink }

// StartRecording begins a new take at clock reading now.
func (r *Recorder) StartRecording(now float64) error {
	if r.recording {
		return perrors.ErrAlreadyRecording
	}
	r.recording = true
	r.start = now
	r.events = nil
	log.Printf("recording started at %.3f", now)
	return nil
}

// RecordNoteOn appends note at clock reading at. An offset before the
// start of the take is clamped to zero; the event is kept and
// ErrClockSkew is returned as a warning.
func (r *Recorder) RecordNoteOn(note types.Note, at float64) error {
	if !r.recording {
		return perrors.ErrNotRecording
	}
	offset := at - r.start
	var warn error
	if offset < 0 {
		log.Printf("warning: clock skew recording %s: offset %.6f clamped to 0", note, offset)
		warn = fmt.Errorf("%s at offset %.6f: %w", note, offset, perrors.ErrClockSkew)
		offset = 0
	}
	r.events = append(r.events, Event{Note: note, Offset: offset})
	return warn
}

// StopRecording finalizes the take and hands it to the sink. Sink errors
// are logged and do not fail the stop.
func (r *Recorder) StopRecording() (Performance, error) {
	if !r.recording {
		return Performance{}, perrors.ErrNotRecording
	}
	r.recording = false
	r.last = Performance{Events: r.events}
	r.events = nil
	log.Printf("recording stopped with %d events", r.last.Len())

	if r.sink != nil {
		if err := r.sink.Export(r.last.clone()); err != nil {
			log.Printf("export performance: %v", err)
		}
	}
	return r.last.clone(), nil
}

// Performance returns a copy of the last finalized take.
func (r *Recorder) Performance() Performance { return r.last.clone() }

// SetPerformance replaces the last take, e.g. with one loaded from disk.
func (r *Recorder) SetPerformance(p Performance) { r.last = p.clone() }

// Recording reports whether a take is in progress.
func (r *Recorder) Recording() bool { return r.recording }

// Pending returns the number of events in the take in progress.
func (r *Recorder) Pending() int { return len(r.events) }

package recorder

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"path/filepath"
	"sort"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

const ticksPerQuarter = 960

// SMFSink writes each finalized performance as a Standard MIDI File. Files
// are named take-001.mid, take-002.mid and so on inside Dir.
type SMFSink struct {
	Dir        string
	Tempo      func() float64
	NoteLength float64
	Channel    uint8

	takes int
}

// NewSMFSink creates a sink writing into dir. tempo is read at export time.
func NewSMFSink(dir string, tempo func() float64) *SMFSink {
	return &SMFSink{Dir: dir, Tempo: tempo, NoteLength: DefaultNoteLength}
}

func (s *SMFSink) Export(perf Performance) error {
	if perf.Len() == 0 {
		return nil
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("create take directory: %w", err)
	}
	s.takes++
	path := filepath.Join(s.Dir, fmt.Sprintf("take-%03d.mid", s.takes))

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	bpm := 120.0
	if s.Tempo != nil {
		bpm = s.Tempo()
	}
	if err := WriteSMF(f, perf, bpm, s.NoteLength, s.Channel); err != nil {
		return err
	}
	log.Printf("exported %d events to %s", perf.Len(), path)
	return nil
}

type smfEvent struct {
	tick uint32
	msg  midi.Message
	off  bool
}

func secondsToTicks(seconds, bpm float64) uint32 {
	if seconds <= 0 {
		return 0
	}
	return uint32(math.Round(seconds * bpm / 60 * ticksPerQuarter))
}

// WriteSMF encodes perf as a single-track SMF at bpm.
func WriteSMF(w io.Writer, perf Performance, bpm, noteLength float64, channel uint8) error {
	if bpm <= 0 {
		bpm = 120
	}
	events := make([]smfEvent, 0, 2*perf.Len())
	for _, e := range perf.Events {
		key := e.Note.MIDI()
		start := secondsToTicks(e.Offset, bpm)
		events = append(events,
			smfEvent{tick: start, msg: midi.NoteOn(channel, key, 100)},
			smfEvent{tick: start + secondsToTicks(noteLength, bpm), msg: midi.NoteOff(channel, key), off: true},
		)
	}
	// note-offs first on a shared tick so a repeated key is not cut
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].tick != events[j].tick {
			return events[i].tick < events[j].tick
		}
		return events[i].off && !events[j].off
	})

	s := smf.New()
	s.TimeFormat = smf.MetricTicks(ticksPerQuarter)

	var track smf.Track
	track.Add(0, smf.MetaMeter(4, 4))
	track.Add(0, smf.MetaTempo(bpm))
	var current uint32
	for _, ev := range events {
		track.Add(ev.tick-current, ev.msg)
		current = ev.tick
	}
	track.Close(0)
	if err := s.Add(track); err != nil {
		return fmt.Errorf("add track: %w", err)
	}

	var buf bytes.Buffer
	if _, err := s.WriteTo(&buf); err != nil {
		return fmt.Errorf("write midi: %w", err)
	}
	_, err := w.Write(buf.Bytes())
	return err
}

package recorder

import (
	"container/heap"
	"sort"

	"github.com/schollz/polysurface/internal/types"
)

// DefaultNoteLength is how long each replayed note sounds, in seconds.
const DefaultNoteLength = 0.25

// Voices is where replayed notes go. voice.Registry implements it; replay
// uses transient plucks so it never cuts a held key.
type Voices interface {
	Strike(note types.Note)
	Damp(note types.Note)
}

type replayEvent struct {
	at   float64
	seq  uint64
	id   uint64
	note types.Note
	on   bool
}

type replayQueue []*replayEvent

func (q replayQueue) Len() int { return len(q) }
func (q replayQueue) Less(i, j int) bool {
	if q[i].at != q[j].at {
		return q[i].at < q[j].at
	}
	return q[i].seq < q[j].seq
}
func (q replayQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }
func (q *replayQueue) Push(x any)   { *q = append(*q, x.(*replayEvent)) }
func (q *replayQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return item
}

// Player schedules a performance against the wall clock. Replay only
// queues events; Tick fires the ones that are due.
type Player struct {
	NoteLength float64

	queue    replayQueue
	sounding map[uint64]types.Note
	perNote  map[types.Note]int // sounding pairs per note
	seq      uint64
	pairs    uint64
	fired    int
}

// NewPlayer creates a player with DefaultNoteLength.
func NewPlayer() *Player {
	return &Player{
		NoteLength: DefaultNoteLength,
		sounding:   make(map[uint64]types.Note),
		perNote:    make(map[types.Note]int),
	}
}

func (p *Player) push(at float64, id uint64, note types.Note, on bool) {
	p.seq++
	heap.Push(&p.queue, &replayEvent{at: at, seq: p.seq, id: id, note: note, on: on})
}

// Replay queues every event of perf relative to clock reading now and
// returns how many notes were scheduled. The performance is not modified.
func (p *Player) Replay(perf Performance, now float64) int {
	for _, e := range perf.Events {
		p.pairs++
		p.push(now+e.Offset, p.pairs, e.Note, true)
		p.push(now+e.Offset+p.NoteLength, p.pairs, e.Note, false)
	}
	return len(perf.Events)
}

// Tick fires every queued event due at or before now, in time order. The
// engine keeps one voice per note, so overlapping replays of a note share
// it and only the release of the last one damps it.
func (p *Player) Tick(now float64, voices Voices) int {
	n := 0
	for len(p.queue) > 0 && p.queue[0].at <= now {
		ev := heap.Pop(&p.queue).(*replayEvent)
		if ev.on {
			p.sounding[ev.id] = ev.note
			p.perNote[ev.note]++
			voices.Strike(ev.note)
			p.fired++
		} else if _, ok := p.sounding[ev.id]; ok {
			delete(p.sounding, ev.id)
			p.perNote[ev.note]--
			if p.perNote[ev.note] <= 0 {
				delete(p.perNote, ev.note)
				voices.Damp(ev.note)
			}
		}
		n++
	}
	return n
}

// Pending returns the number of queued attack and release events.
func (p *Player) Pending() int { return len(p.queue) }

// Fired returns how many replayed notes have been attacked.
func (p *Player) Fired() int { return p.fired }

// Active reports whether anything is queued or still sounding.
func (p *Player) Active() bool { return len(p.queue) > 0 || len(p.sounding) > 0 }

// Cancel drops queued attacks and damps each note whose attack already
// fired, once per note.
func (p *Player) Cancel(voices Voices) {
	notes := make([]types.Note, 0, len(p.perNote))
	for note := range p.perNote {
		notes = append(notes, note)
	}
	sort.Slice(notes, func(i, j int) bool { return notes[i] < notes[j] })
	for _, note := range notes {
		voices.Damp(note)
	}
	p.sounding = make(map[uint64]types.Note)
	p.perNote = make(map[types.Note]int)
	p.queue = nil
}

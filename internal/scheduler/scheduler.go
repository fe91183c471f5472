// Package scheduler runs repeating and one-shot callbacks against the
// transport's beat position.
package scheduler

import (
	"container/heap"
	"log"
	"math"

	"github.com/schollz/polysurface/internal/types"
)

// Callback receives the beat position it was scheduled for.
type Callback func(beat float64)

// maxCatchUp bounds how many missed grid points a slot replays after a
// stalled tick before skipping ahead.
const maxCatchUp = 64

const epsilon = 1e-9

type task struct {
	interval float64
	next     float64
	cb       Callback
}

type oneShot struct {
	at  float64
	seq uint64
	fn  func()
}

type shotQueue []*oneShot

func (q shotQueue) Len() int { return len(q) }
func (q shotQueue) Less(i, j int) bool {
	if q[i].at != q[j].at {
		return q[i].at < q[j].at
	}
	return q[i].seq < q[j].seq
}
func (q shotQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }
func (q *shotQueue) Push(x any)   { *q = append(*q, x.(*oneShot)) }
func (q *shotQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return item
}

// Scheduler holds at most one live task per slot plus a queue of one-shot
// callbacks. It is driven by Tick from the controller's single writer and
// is not safe for concurrent use.
type Scheduler struct {
	tasks     [types.NumSlots]*task
	lastFired [types.NumSlots]float64
	shots     shotQueue
	seq       uint64

	position float64 // position of the last Tick
	now      float64 // beat being fired, or position outside Tick
	fired    [types.NumSlots]int
}

// New creates an empty scheduler at beat zero.
func New() *Scheduler {
	s := &Scheduler{}
	for i := range s.lastFired {
		s.lastFired[i] = math.Inf(-1)
	}
	return s
}

func gridCeil(pos, interval float64) float64 {
	return math.Max(0, math.Ceil(pos/interval-epsilon)*interval)
}

// Enable registers cb to run every interval beats on slot. An enabled slot
// is cancelled first, so a slot never has two live tasks. The first call
// lands on the next multiple of interval at or after the current position,
// skipping a grid point this slot already fired.
func (s *Scheduler) Enable(slot types.Slot, cb Callback, interval float64) {
	if interval <= 0 || cb == nil {
		log.Printf("scheduler: ignoring enable of %s with interval %g", slot, interval)
		return
	}
	s.Disable(slot)

	next := gridCeil(s.now, interval)
	if math.Abs(next-s.lastFired[slot]) < epsilon {
		next += interval
	}
	s.tasks[slot] = &task{interval: interval, next: next, cb: cb}
	log.Printf("scheduler: %s enabled every %g beats from %g", slot, interval, next)
}

// Disable cancels the slot's task. It takes effect before the next
// callback, including one later in the same Tick. Idempotent.
func (s *Scheduler) Disable(slot types.Slot) {
	if s.tasks[slot] == nil {
		return
	}
	s.tasks[slot] = nil
	log.Printf("scheduler: %s disabled", slot)
}

// Enabled reports whether slot has a live task.
func (s *Scheduler) Enabled(slot types.Slot) bool {
	return s.tasks[slot] != nil
}

// Interval returns the slot's period, or 0 when disabled.
func (s *Scheduler) Interval(slot types.Slot) float64 {
	if t := s.tasks[slot]; t != nil {
		return t.interval
	}
	return 0
}

// Fired returns how many callbacks slot has run since creation.
func (s *Scheduler) Fired(slot types.Slot) int {
	return s.fired[slot]
}

// After schedules fn once, beats after the current beat.
func (s *Scheduler) After(beats float64, fn func()) {
	if beats < 0 {
		beats = 0
	}
	s.seq++
	heap.Push(&s.shots, &oneShot{at: s.now + beats, seq: s.seq, fn: fn})
}

// Pending returns the number of queued one-shots.
func (s *Scheduler) Pending() int { return len(s.shots) }

// Flush runs every queued one-shot immediately in due order. Used on stop
// and shutdown so no pluck is left sounding.
func (s *Scheduler) Flush() {
	for len(s.shots) > 0 {
		shot := heap.Pop(&s.shots).(*oneShot)
		shot.fn()
	}
}

// CancelAll disables every slot. Queued one-shots are kept; call Flush to
// run them.
func (s *Scheduler) CancelAll() {
	for _, slot := range types.Slots {
		s.Disable(slot)
	}
}

// Realign moves the scheduler to position after a seek: tasks restart on
// the grid at or after position and queued one-shots are due immediately.
func (s *Scheduler) Realign(position float64) {
	s.position = position
	s.now = position
	for i, t := range s.tasks {
		if t != nil {
			t.next = gridCeil(position, t.interval)
		}
		s.lastFired[i] = math.Inf(-1)
	}
	for _, shot := range s.shots {
		shot.at = position
	}
	heap.Init(&s.shots)
}

// Position returns the position of the last Tick.
func (s *Scheduler) Position() float64 { return s.position }

// Tick fires, in chronological order, every slot grid point and one-shot
// due at or before position. One-shots go first on ties so a release due
// on a beat precedes a new attack on the same beat.
func (s *Scheduler) Tick(position float64) {
	for slot, t := range s.tasks {
		if t == nil {
			continue
		}
		if missed := (position - t.next) / t.interval; missed > maxCatchUp {
			skipTo := gridCeil(position-float64(maxCatchUp-1)*t.interval, t.interval)
			log.Printf("scheduler: %s fell %d ticks behind, skipping to %g", types.Slot(slot), int(missed), skipTo)
			t.next = skipTo
		}
	}

	for {
		at, slot, isShot, ok := s.nextDue(position)
		if !ok {
			break
		}
		s.now = at
		if isShot {
			shot := heap.Pop(&s.shots).(*oneShot)
			shot.fn()
			continue
		}
		t := s.tasks[slot]
		t.next += t.interval
		s.lastFired[slot] = at
		s.fired[slot]++
		t.cb(at)
	}

	if position > s.position {
		s.position = position
	}
	s.now = s.position
}

func (s *Scheduler) nextDue(position float64) (at float64, slot types.Slot, isShot, ok bool) {
	at = math.Inf(1)
	if len(s.shots) > 0 && s.shots[0].at <= position+epsilon {
		at, isShot, ok = s.shots[0].at, true, true
	}
	for i, t := range s.tasks {
		if t == nil || t.next > position+epsilon {
			continue
		}
		if t.next < at-epsilon {
			at, slot, isShot, ok = t.next, types.Slot(i), false, true
		}
	}
	return at, slot, isShot, ok
}

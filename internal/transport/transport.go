// Package transport keeps the musical clock every scheduled task depends on.
package transport

import (
	"sync"
	"time"
)

// Tempo limits in beats per minute.
const (
	MinBPM     = 20.0
	MaxBPM     = 300.0
	DefaultBPM = 120.0
)

// ClockSource yields monotonic time in seconds.
type ClockSource interface {
	Now() float64
}

// SystemClock measures seconds since it was created using the monotonic
// reading of time.Time.
type SystemClock struct {
	start time.Time
}

// NewSystemClock creates a clock starting at zero.
func NewSystemClock() *SystemClock {
	return &SystemClock{start: time.Now()}
}

func (c *SystemClock) Now() float64 {
	return time.Since(c.start).Seconds()
}

// ManualClock is advanced explicitly. Useful for deterministic tests and
// offline rendering.
type ManualClock struct {
	mu  sync.Mutex
	now float64
}

func (c *ManualClock) Now() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by seconds.
func (c *ManualClock) Advance(seconds float64) {
	c.mu.Lock()
	c.now += seconds
	c.mu.Unlock()
}

// Set jumps the clock to an absolute reading.
func (c *ManualClock) Set(seconds float64) {
	c.mu.Lock()
	c.now = seconds
	c.mu.Unlock()
}

// Transport integrates wall-clock time into a beat position at the current
// tempo. The position only advances while running; Stop freezes it and
// Start resumes from the frozen value.
type Transport struct {
	tempo    float64
	running  bool
	position float64
	last     float64 // clock reading of the previous Advance
}

// New creates a stopped transport at position zero.
func New(bpm float64) *Transport {
	t := &Transport{tempo: DefaultBPM}
	t.SetTempo(bpm)
	return t
}

// Start resumes advancing from the current position. now is the current
// clock reading; it is a no-op when already running.
func (t *Transport) Start(now float64) {
	if t.running {
		return
	}
	t.running = true
	t.last = now
}

// Stop freezes the position. The caller decides what happens to held notes.
func (t *Transport) Stop() {
	t.running = false
}

// Seek moves the position to beats (clamped at zero).
func (t *Transport) Seek(beats float64) {
	if beats < 0 {
		beats = 0
	}
	t.position = beats
}

// Reset seeks to the start.
func (t *Transport) Reset() {
	t.Seek(0)
}

// SetTempo changes the rate of future advancement. Values outside
// [MinBPM, MaxBPM] are clamped; non-positive values are ignored.
func (t *Transport) SetTempo(bpm float64) float64 {
	if bpm <= 0 || bpm != bpm {
		return t.tempo
	}
	if bpm < MinBPM {
		bpm = MinBPM
	}
	if bpm > MaxBPM {
		bpm = MaxBPM
	}
	t.tempo = bpm
	return bpm
}

// Advance integrates the time since the previous call and returns the new
// position. A clock that runs backwards advances nothing.
func (t *Transport) Advance(now float64) float64 {
	if !t.running {
		return t.position
	}
	elapsed := now - t.last
	t.last = now
	if elapsed > 0 {
		t.position += elapsed * t.tempo / 60
	}
	return t.position
}

func (t *Transport) Position() float64 { return t.position }
func (t *Transport) Tempo() float64    { return t.tempo }
func (t *Transport) Running() bool     { return t.running }

// BeatsToSeconds converts a musical duration at the current tempo.
func (t *Transport) BeatsToSeconds(beats float64) float64 {
	return beats * 60 / t.tempo
}

// SecondsToBeats converts a wall-clock duration at the current tempo.
func (t *Transport) SecondsToBeats(seconds float64) float64 {
	return seconds * t.tempo / 60
}

// Bar returns the zero-based bar and the beat within it for beatsPerBar.
func (t *Transport) Bar(beatsPerBar int) (bar int, beat float64) {
	if beatsPerBar < 1 {
		beatsPerBar = 4
	}
	bar = int(t.position) / beatsPerBar
	beat = t.position - float64(bar*beatsPerBar)
	return bar, beat
}

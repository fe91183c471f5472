// Package model owns every piece of control state and serialises all
// mutations onto one timeline driven by Tick.
package model

import (
	"log"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/schollz/polysurface/internal/config"
	"github.com/schollz/polysurface/internal/effects"
	"github.com/schollz/polysurface/internal/engine"
	perrors "github.com/schollz/polysurface/internal/errors"
	"github.com/schollz/polysurface/internal/preset"
	"github.com/schollz/polysurface/internal/recorder"
	"github.com/schollz/polysurface/internal/scheduler"
	"github.com/schollz/polysurface/internal/storage"
	"github.com/schollz/polysurface/internal/transport"
	"github.com/schollz/polysurface/internal/types"
	"github.com/schollz/polysurface/internal/voice"
)

const (
	beatsPerBar    = 4
	maxOctaveShift = 3
)

// Model is the owning controller. Every exported method except Post,
// NoteOn and NoteOff must be called from the goroutine that calls Tick;
// other goroutines hand work over with Post.
type Model struct {
	Registry    *voice.Registry
	Chain       *effects.Chain
	Transport   *transport.Transport
	Scheduler   *scheduler.Scheduler
	Recorder    *recorder.Recorder
	Player      *recorder.Player
	Sequencer   *scheduler.StepSequencer
	Arpeggiator *scheduler.Arpeggiator
	Metronome   *scheduler.Metronome
	Store       storage.Store
	AutoSave    *storage.AutoSaver

	Octave    int
	PresetKey string

	cfg      *config.Config
	clock    transport.ClockSource
	engine   engine.Engine
	keyGate  float64
	keyHeld  map[types.Note]float64 // release deadline per key press
	lost     error
	lastErr  error
	selected int // parameter cursor into effects.Params
	ticks    int
	shutdown bool

	mu    sync.Mutex
	queue []func(*Model)

	// analysis tap history
	waveform      []float64
	waveformSize  int
	waveformZoom  int
	zoomLevel     int
	lastAnalysis  []float64
	lastSpectrum  []float64
	analysisEvery int
}

// NewModel wires a controller around eng. store receives presets; it may
// be nil to disable saving.
func NewModel(cfg *config.Config, eng engine.Engine, clock transport.ClockSource, store storage.Store) *Model {
	if cfg == nil {
		cfg = config.Default()
	}
	if eng == nil {
		eng = engine.Silent{}
	}
	if clock == nil {
		clock = transport.NewSystemClock()
	}

	m := &Model{
		cfg:           cfg,
		clock:         clock,
		engine:        eng,
		Store:         store,
		PresetKey:     cfg.PresetKey,
		keyGate:       cfg.KeyGate().Seconds(),
		keyHeld:       make(map[types.Note]float64),
		waveformSize:  DefaultWaveformSize,
		waveformZoom:  DefaultWaveformSize,
		analysisEvery: 1,
	}

	m.Registry = voice.NewRegistry(eng)
	m.Registry.OnFault(m.fault)
	m.Chain = effects.NewChain(eng)
	m.Transport = transport.New(cfg.Tempo)
	m.Scheduler = scheduler.New()
	m.Recorder = recorder.New(nil)
	m.Player = recorder.NewPlayer()
	m.Player.NoteLength = cfg.ReplayNoteLength

	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15))
	m.Arpeggiator = scheduler.NewArpeggiator(m.Registry, m.Scheduler, rng)
	if d, err := types.ParseSubdivision(cfg.ArpRate); err == nil {
		m.Arpeggiator.Rate = d
	}

	notes, err := cfg.SequencerNotes()
	if err != nil {
		log.Printf("sequencer steps: %v, using C4", err)
		notes = []types.Note{"C4"}
	}
	m.Sequencer = scheduler.NewStepSequencer(m.Registry, m.Scheduler, notes)
	if d, err := types.ParseSubdivision(cfg.Sequencer.Rate); err == nil {
		m.Sequencer.Rate = d
	}
	m.Metronome = scheduler.NewMetronome(m.Registry, m.Scheduler)

	if store != nil && cfg.AutoSaveMs > 0 {
		m.AutoSave = storage.NewAutoSaver(cfg.AutoSaveDelay(), func() error {
			return preset.Save(store, m.PresetKey, m.Chain)
		})
	}

	if err := m.Chain.Sync(); err != nil {
		m.fault(err)
	}
	return m
}

// Config returns the configuration the model was built with.
func (m *Model) Config() *config.Config { return m.cfg }

// Engine returns the engine currently driven.
func (m *Model) Engine() engine.Engine { return m.engine }

// Now reads the controller clock.
func (m *Model) Now() float64 { return m.clock.Now() }

// SetEngine swaps the engine behind the registry and the chain and pushes
// the current parameters to it.
func (m *Model) SetEngine(eng engine.Engine) {
	m.engine = eng
	m.Registry.SetEngine(eng)
	m.Chain.SetTarget(eng)
	if err := m.Chain.Sync(); err != nil {
		m.fault(err)
	}
}

// fault handles engine errors. A lost engine is replaced by a silent one
// so control state keeps working; the error stays visible through Err.
func (m *Model) fault(err error) {
	if err == nil {
		return
	}
	if !perrors.Is(err, perrors.ErrEngineLost) {
		m.setError(err)
		return
	}
	if _, silent := m.engine.(engine.Silent); silent {
		return
	}
	log.Printf("warning: engine lost, continuing silently: %v", err)
	m.lost = err
	m.lastErr = err
	m.engine = engine.Silent{}
	m.Registry.SetEngine(m.engine)
	m.Chain.SetTarget(m.engine)
}

func (m *Model) setError(err error) {
	if err == nil {
		return
	}
	log.Printf("error: %v", err)
	m.lastErr = err
}

// Err returns the engine failure that silenced output, if any.
func (m *Model) Err() error { return m.lost }

// LastError returns the most recent command error.
func (m *Model) LastError() error { return m.lastErr }

// ClearError forgets the last command error.
func (m *Model) ClearError() { m.lastErr = nil }

// Post queues fn to run on the next Tick. Safe from any goroutine.
func (m *Model) Post(fn func(*Model)) {
	m.mu.Lock()
	m.queue = append(m.queue, fn)
	m.mu.Unlock()
}

// NoteOn queues a press of note. Safe from any goroutine. The press is
// timestamped now, not when the next tick applies it.
func (m *Model) NoteOn(note types.Note) {
	at := m.clock.Now()
	m.Post(func(m *Model) { m.noteOn(note, at) })
}

// NoteOff queues a release of note. Safe from any goroutine.
func (m *Model) NoteOff(note types.Note) {
	m.Post(func(m *Model) { m.Registry.Release(note) })
}

func (m *Model) drain() int {
	m.mu.Lock()
	queue := m.queue
	m.queue = nil
	m.mu.Unlock()

	for _, fn := range queue {
		fn(m)
	}
	return len(queue)
}

// Queued returns the number of mutations waiting for the next Tick.
func (m *Model) Queued() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue)
}

// Tick runs one step of the timeline: queued mutations, expired key
// gates, the transport and its scheduled tasks, due replay events and the
// analysis tap.
func (m *Model) Tick() {
	if m.shutdown {
		return
	}
	m.drain()
	now := m.clock.Now()
	m.releaseExpiredKeys(now)

	if m.Transport.Running() {
		m.Scheduler.Tick(m.Transport.Advance(now))
	}
	m.Player.Tick(now, m.Registry)

	if m.ticks%m.analysisEvery == 0 {
		m.sampleAnalysis()
	}
	m.ticks++
}

// Ticks returns the number of ticks run.
func (m *Model) Ticks() int { return m.ticks }

// TickDuration is the configured tick period.
func (m *Model) TickDuration() time.Duration { return m.cfg.TickDuration() }

func (m *Model) noteOn(note types.Note, at float64) {
	m.Registry.Trigger(note)
	if m.Recorder.Recording() {
		if err := m.Recorder.RecordNoteOn(note, at); err != nil && !perrors.Is(err, perrors.ErrClockSkew) {
			m.setError(err)
		}
	}
}

// PressKey sounds note for the key gate. Terminals report no key-up, so a
// repeated press of a sounding key only extends its deadline.
func (m *Model) PressKey(note types.Note) {
	m.PressKeyAt(note, m.clock.Now())
}

// PressKeyAt is PressKey for a key read at clock reading at.
func (m *Model) PressKeyAt(note types.Note, at float64) {
	deadline := at + m.keyGate
	if _, ok := m.keyHeld[note]; ok {
		m.keyHeld[note] = deadline
		return
	}
	m.keyHeld[note] = deadline
	m.noteOn(note, at)
}

func (m *Model) releaseExpiredKeys(now float64) {
	for _, note := range m.Registry.ActiveNotes() {
		deadline, ok := m.keyHeld[note]
		if ok && deadline <= now {
			delete(m.keyHeld, note)
			m.Registry.Release(note)
		}
	}
	// drop gates of notes released some other way
	for note := range m.keyHeld {
		if !m.Registry.IsActive(note) {
			delete(m.keyHeld, note)
		}
	}
}

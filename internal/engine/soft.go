package engine

import (
	"math"
	"sync"

	"github.com/gopxl/beep"

	"github.com/schollz/polysurface/internal/types"
)

const (
	softSampleRate = beep.SampleRate(44100)
	softBlock      = 256
	silenceFloor   = 1e-4
)

// SoftEngine renders voices in process with beep streamers. It never opens
// an audio device; AnalysisSamples pulls a block from the mixer so the
// analysis tap has something to show in headless mode.
type SoftEngine struct {
	mu     sync.Mutex
	mixer  *beep.Mixer
	voices map[types.Note]*softVoice

	osc     types.OscillatorType
	gain    float64
	detune  float64 // cents
	release float64 // seconds
	block   int
}

// NewSoftEngine creates an idle software engine.
func NewSoftEngine() *SoftEngine {
	return &SoftEngine{
		mixer:   &beep.Mixer{},
		voices:  make(map[types.Note]*softVoice),
		osc:     types.OscSawtooth,
		gain:    dbToGain(-12),
		release: 0.8,
		block:   softBlock,
	}
}

func (e *SoftEngine) Attack(note types.Note) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if v, ok := e.voices[note]; ok {
		v.stop(0)
	}
	freq := note.Frequency() * math.Pow(2, e.detune/1200)
	v := &softVoice{
		osc:  e.osc,
		step: freq / float64(softSampleRate),
		amp:  e.gain,
	}
	e.voices[note] = v
	e.mixer.Add(v)
	return nil
}

func (e *SoftEngine) Release(note types.Note) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	v, ok := e.voices[note]
	if !ok {
		return nil
	}
	v.stop(e.release)
	delete(e.voices, note)
	return nil
}

func (e *SoftEngine) SetParameter(path string, value float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch path {
	case "source.oscillator":
		if o := types.OscillatorType(math.Round(value)); o.Valid() {
			e.osc = o
		}
	case "source.volume":
		e.gain = dbToGain(value)
	case "source.detune":
		e.detune = value
	case "source.release":
		e.release = value
	case "analysis.size":
		e.block = int(value)
	}
	return nil
}

// AnalysisSamples renders the next block of the mix (left channel).
func (e *SoftEngine) AnalysisSamples() []float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.block < 1 {
		return nil
	}
	buf := make([][2]float64, e.block)
	e.mixer.Stream(buf)
	out := make([]float64, len(buf))
	for i := range buf {
		out[i] = buf[i][0]
	}
	return out
}

// Voices returns how many voices are still sounding, releases included.
func (e *SoftEngine) Voices() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.mixer.Len()
}

type softVoice struct {
	osc   types.OscillatorType
	phase float64
	step  float64
	amp   float64
	decay float64 // per-sample multiplier once released, 0 while held
	done  bool
}

func (v *softVoice) stop(releaseSeconds float64) {
	if releaseSeconds <= 0 {
		v.done = true
		return
	}
	// reach silenceFloor after releaseSeconds
	n := releaseSeconds * float64(softSampleRate)
	v.decay = math.Pow(silenceFloor, 1/n)
}

func (v *softVoice) Stream(samples [][2]float64) (int, bool) {
	if v.done {
		return 0, false
	}
	for i := range samples {
		s := v.amp * waveform(v.osc, v.phase)
		samples[i][0] = s
		samples[i][1] = s
		v.phase += v.step
		v.phase -= math.Floor(v.phase)
		if v.decay > 0 {
			v.amp *= v.decay
			if v.amp < silenceFloor {
				v.done = true
				for j := i + 1; j < len(samples); j++ {
					samples[j] = [2]float64{}
				}
				return len(samples), true
			}
		}
	}
	return len(samples), true
}

func (v *softVoice) Err() error { return nil }

// waveform evaluates one cycle of osc at phase in [0,1).
func waveform(osc types.OscillatorType, phase float64) float64 {
	switch osc {
	case types.OscSquare:
		if phase < 0.5 {
			return 1
		}
		return -1
	case types.OscSawtooth:
		return 2*phase - 1
	case types.OscTriangle:
		return 1 - 4*math.Abs(phase-0.5)
	default:
		return math.Sin(2 * math.Pi * phase)
	}
}

func dbToGain(db float64) float64 {
	return math.Pow(10, db/20)
}

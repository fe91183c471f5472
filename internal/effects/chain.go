package effects

import (
	"log"
	"math"
	"math/cmplx"
	"sync"

	"github.com/mjibson/go-dsp/fft"

	perrors "github.com/schollz/polysurface/internal/errors"
	"github.com/schollz/polysurface/internal/types"
)

// Target is the engine side of the chain: parameter writes go out, analysis
// samples come back.
type Target interface {
	SetParameter(path string, value float64) error
	AnalysisSamples() []float64
}

// Snapshot maps stage → parameter → value.
type Snapshot map[string]map[string]float64

// Get returns the value stored for stage.name.
func (s Snapshot) Get(stage, name string) (float64, bool) {
	v, ok := s[stage][name]
	return v, ok
}

func (s Snapshot) set(stage, name string, v float64) {
	if s[stage] == nil {
		s[stage] = make(map[string]float64)
	}
	s[stage][name] = v
}

// Clone returns a deep copy.
func (s Snapshot) Clone() Snapshot {
	out := make(Snapshot, len(s))
	for stage, params := range s {
		for name, v := range params {
			out.set(stage, name, v)
		}
	}
	return out
}

// Merge returns a copy of s with every value of o laid over it.
func (s Snapshot) Merge(o Snapshot) Snapshot {
	out := s.Clone()
	for stage, params := range o {
		for name, v := range params {
			out.set(stage, name, v)
		}
	}
	return out
}

// Defaults returns a snapshot holding every declared default.
func Defaults() Snapshot {
	s := make(Snapshot)
	for _, p := range Params() {
		s.set(p.Stage, p.Name, p.Default)
	}
	return s
}

// Chain holds the control state of the fixed effect pipeline. It owns no
// audio; every write is clamped, stored and forwarded to the target.
type Chain struct {
	mu       sync.RWMutex
	target   Target
	values   Snapshot
	spectrum []float64
}

// NewChain creates a chain at default values. Defaults are not pushed to
// the target until Sync is called.
func NewChain(target Target) *Chain {
	return &Chain{
		target: target,
		values: Defaults(),
	}
}

// SetTarget swaps the engine the chain forwards to.
func (c *Chain) SetTarget(target Target) {
	c.mu.Lock()
	c.target = target
	c.mu.Unlock()
}

// SetParameter clamps value to the parameter's range, stores it and
// forwards it. It returns the stored value. Out-of-range input is never an
// error; an unknown parameter or an engine failure is.
func (c *Chain) SetParameter(stage, name string, value float64) (float64, error) {
	p, ok := Lookup(stage + "." + name)
	if !ok {
		return 0, &perrors.ParamError{Stage: stage, Name: name, Value: value, Err: perrors.ErrUnknownParameter}
	}
	v := p.Clamp(value)
	if v != value {
		log.Printf("clamped %s from %g to %g", p.Path(), value, v)
	}

	c.mu.Lock()
	c.values.set(stage, name, v)
	target := c.target
	c.mu.Unlock()

	if target == nil {
		return v, nil
	}
	return v, target.SetParameter(p.Path(), v)
}

// SetWet sets the mix amount of a stage.
func (c *Chain) SetWet(stage string, value float64) (float64, error) {
	return c.SetParameter(stage, "wet", value)
}

// SetOscillator selects the source waveform.
func (c *Chain) SetOscillator(osc types.OscillatorType) error {
	_, err := c.SetParameter(StageSource, "oscillator", float64(osc))
	return err
}

// Oscillator returns the selected source waveform.
func (c *Chain) Oscillator() types.OscillatorType {
	v, _ := c.Parameter(StageSource, "oscillator")
	return types.OscillatorType(v)
}

// Parameter returns the stored value of stage.name.
func (c *Chain) Parameter(stage, name string) (float64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.values.Get(stage, name)
}

// Snapshot returns a copy of every stored value.
func (c *Chain) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.values.Clone()
}

// EngineSnapshot returns the source and output stages.
func (c *Chain) EngineSnapshot() Snapshot {
	return c.filter(func(stage string) bool { return engineStages[stage] })
}

// EffectSnapshot returns the processing stages between source and output.
func (c *Chain) EffectSnapshot() Snapshot {
	return c.filter(func(stage string) bool { return !engineStages[stage] })
}

func (c *Chain) filter(keep func(string) bool) Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(Snapshot)
	for stage, params := range c.values {
		if !keep(stage) {
			continue
		}
		for name, v := range params {
			out.set(stage, name, v)
		}
	}
	return out
}

// Apply writes every known value of s through SetParameter in pipeline
// order. The first engine error is returned after all values are stored.
func (c *Chain) Apply(s Snapshot) error {
	var first error
	for _, p := range Params() {
		v, ok := s.Get(p.Stage, p.Name)
		if !ok {
			continue
		}
		if _, err := c.SetParameter(p.Stage, p.Name, v); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Sync pushes every stored value to the target, e.g. after reconnecting.
func (c *Chain) Sync() error {
	return c.Apply(c.Snapshot())
}

// Analysis returns the latest samples from the analysis tap.
func (c *Chain) Analysis() []float64 {
	c.mu.RLock()
	target := c.target
	c.mu.RUnlock()
	if target == nil {
		return nil
	}
	return target.AnalysisSamples()
}

// Level returns the RMS level of samples.
func Level(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += s * s
	}
	return math.Sqrt(sum / float64(len(samples)))
}

// Spectrum returns the smoothed magnitude spectrum of samples, using the
// analysis stage's smoothing against the previous call.
func (c *Chain) Spectrum(samples []float64) []float64 {
	mags := Magnitudes(samples)

	c.mu.Lock()
	defer c.mu.Unlock()
	smoothing, _ := c.values.Get(StageAnalysis, "smoothing")
	if len(c.spectrum) == len(mags) {
		for i := range mags {
			mags[i] = smoothing*c.spectrum[i] + (1-smoothing)*mags[i]
		}
	}
	c.spectrum = mags
	out := make([]float64, len(mags))
	copy(out, mags)
	return out
}

// Magnitudes returns the normalised magnitudes of the first half of the
// FFT of samples.
func Magnitudes(samples []float64) []float64 {
	if len(samples) < 2 {
		return nil
	}
	bins := fft.FFTReal(samples)
	n := len(samples)
	out := make([]float64, n/2)
	for i := range out {
		out[i] = cmplx.Abs(bins[i]) / float64(n)
	}
	return out
}

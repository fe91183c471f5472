package effects

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	perrors "github.com/schollz/polysurface/internal/errors"
	"github.com/schollz/polysurface/internal/types"
)

type fakeTarget struct {
	params  map[string]float64
	calls   []string
	samples []float64
	err     error
}

func newFakeTarget() *fakeTarget {
	return &fakeTarget{params: make(map[string]float64)}
}

func (f *fakeTarget) SetParameter(path string, value float64) error {
	f.calls = append(f.calls, path)
	f.params[path] = value
	return f.err
}

func (f *fakeTarget) AnalysisSamples() []float64 { return f.samples }

func TestStageOrder(t *testing.T) {
	var names []string
	for _, st := range Stages {
		names = append(names, st.Name)
	}
	assert.Equal(t, []string{"source", "reverb", "delay", "distortion", "analysis", "output"}, names)

	for _, p := range Params() {
		assert.True(t, p.Contains(p.Default), "default of %s must be in range", p.Path())
	}
}

func TestSetParameterClamps(t *testing.T) {
	target := newFakeTarget()
	c := NewChain(target)

	t.Run("wet above range stores max", func(t *testing.T) {
		v, err := c.SetWet(StageReverb, 1.5)
		require.NoError(t, err)
		assert.Equal(t, 1.0, v)
		stored, ok := c.Parameter(StageReverb, "wet")
		assert.True(t, ok)
		assert.Equal(t, 1.0, stored)
		assert.Equal(t, 1.0, target.params["reverb.wet"])
	})

	t.Run("below range stores min", func(t *testing.T) {
		v, err := c.SetParameter(StageDelay, "feedback", -3)
		require.NoError(t, err)
		assert.Equal(t, 0.0, v)
	})

	t.Run("feedback capped below unity", func(t *testing.T) {
		v, err := c.SetParameter(StageDelay, "feedback", 1)
		require.NoError(t, err)
		assert.Equal(t, 0.95, v)
	})

	t.Run("NaN falls back to default", func(t *testing.T) {
		v, err := c.SetParameter(StageDistortion, "amount", math.NaN())
		require.NoError(t, err)
		assert.Equal(t, 0.4, v)
	})

	t.Run("enum is rounded", func(t *testing.T) {
		v, err := c.SetParameter(StageSource, "oscillator", 1.4)
		require.NoError(t, err)
		assert.Equal(t, 1.0, v)
		assert.Equal(t, types.OscSquare, c.Oscillator())
	})

	t.Run("every stored value stays in range", func(t *testing.T) {
		for _, p := range Params() {
			for _, in := range []float64{-1e9, -1, 0, 0.5, 1, 1e9} {
				v, err := c.SetParameter(p.Stage, p.Name, in)
				require.NoError(t, err)
				assert.True(t, p.Contains(v), "%s=%g", p.Path(), v)
			}
		}
	})
}

func TestSetParameterErrors(t *testing.T) {
	target := newFakeTarget()
	c := NewChain(target)

	_, err := c.SetParameter("chorus", "wet", 0.5)
	assert.ErrorIs(t, err, perrors.ErrUnknownParameter)
	var pe *perrors.ParamError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "chorus", pe.Stage)
	assert.Empty(t, target.calls)

	target.err = perrors.NewEngineError("param", "reverb.wet", errors.New("broken pipe"))
	v, err := c.SetWet(StageReverb, 0.7)
	assert.ErrorIs(t, err, perrors.ErrEngineLost)
	assert.Equal(t, 0.7, v)
	stored, _ := c.Parameter(StageReverb, "wet")
	assert.Equal(t, 0.7, stored, "value is stored even when the engine fails")
}

func TestSnapshots(t *testing.T) {
	c := NewChain(newFakeTarget())
	_, _ = c.SetWet(StageDelay, 0.9)

	snap := c.Snapshot()
	snap["delay"]["wet"] = 0
	v, _ := c.Parameter(StageDelay, "wet")
	assert.Equal(t, 0.9, v, "snapshot must be a copy")

	eng := c.EngineSnapshot()
	fx := c.EffectSnapshot()
	assert.Contains(t, eng, StageSource)
	assert.Contains(t, eng, StageOutput)
	assert.NotContains(t, eng, StageReverb)
	assert.Contains(t, fx, StageReverb)
	assert.Contains(t, fx, StageAnalysis)
	assert.NotContains(t, fx, StageSource)
	assert.Equal(t, c.Snapshot(), eng.Merge(fx))
}

func TestApplyAndSync(t *testing.T) {
	target := newFakeTarget()
	c := NewChain(target)

	err := c.Apply(Snapshot{
		StageReverb: {"wet": 2},
		StageOutput: {"volume": -6},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"reverb.wet", "output.volume"}, target.calls, "applied in pipeline order")
	v, _ := c.Parameter(StageReverb, "wet")
	assert.Equal(t, 1.0, v)

	target.calls = nil
	require.NoError(t, c.Sync())
	assert.Len(t, target.calls, len(Params()))
	assert.Equal(t, "source.volume", target.calls[0])
	assert.Equal(t, "output.volume", target.calls[len(target.calls)-1])
}

func TestAnalysisTap(t *testing.T) {
	target := newFakeTarget()
	c := NewChain(target)

	n := 64
	target.samples = make([]float64, n)
	for i := range target.samples {
		target.samples[i] = math.Sin(2 * math.Pi * 8 * float64(i) / float64(n))
	}

	samples := c.Analysis()
	assert.Len(t, samples, n)
	assert.InDelta(t, 1/math.Sqrt2, Level(samples), 1e-9)

	mags := Magnitudes(samples)
	require.Len(t, mags, n/2)
	peak := 0
	for i := range mags {
		if mags[i] > mags[peak] {
			peak = i
		}
	}
	assert.Equal(t, 8, peak)

	_, _ = c.SetParameter(StageAnalysis, "smoothing", 0.5)
	first := c.Spectrum(samples)
	second := c.Spectrum(make([]float64, n))
	assert.InDelta(t, first[8]/2, second[8], 1e-9)

	assert.Nil(t, Magnitudes(nil))
	assert.Equal(t, 0.0, Level(nil))
}

func TestLookup(t *testing.T) {
	p, ok := Lookup("delay.time")
	require.True(t, ok)
	assert.Equal(t, 1.0, p.Max)
	_, ok = Lookup("delay")
	assert.False(t, ok)

	stage, name, ok := SplitPath("reverb.wet")
	assert.True(t, ok)
	assert.Equal(t, "reverb", stage)
	assert.Equal(t, "wet", name)
	_, _, ok = SplitPath("reverb")
	assert.False(t, ok)
}

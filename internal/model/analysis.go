package model

import (
	"math"

	"github.com/schollz/polysurface/internal/effects"
)

// Waveform ring bounds, in samples.
const (
	DefaultWaveformSize = 512
	minWaveformZoom     = 16
)

// PushAnalysisSample appends one level to the waveform ring, dropping the
// oldest when full.
func (m *Model) PushAnalysisSample(v float64) {
	m.waveform = append(m.waveform, v)
	if len(m.waveform) > m.waveformSize {
		m.waveform = m.waveform[len(m.waveform)-m.waveformSize:]
	}
}

// WaveformBuf returns a copy of the whole ring, oldest first.
func (m *Model) WaveformBuf() []float64 {
	out := make([]float64, len(m.waveform))
	copy(out, m.waveform)
	return out
}

// WaveformView returns the newest samples inside the zoom window, left
// padded with zeros so the result always has the window length.
func (m *Model) WaveformView() []float64 {
	out := make([]float64, m.waveformZoom)
	src := m.waveform
	if len(src) > m.waveformZoom {
		src = src[len(src)-m.waveformZoom:]
	}
	copy(out[len(out)-len(src):], src)
	return out
}

// ZoomWaveform narrows (zoomIn) or widens the visible window. Each step in
// shows 4/5 of the previous window; the window is derived from the step
// count so zooming back out lands exactly where it started.
func (m *Model) ZoomWaveform(zoomIn bool) int {
	if zoomIn {
		if m.waveformZoom > minWaveformZoom {
			m.zoomLevel++
		}
	} else if m.zoomLevel > 0 {
		m.zoomLevel--
	}
	next := int(float64(m.waveformSize) * math.Pow(0.8, float64(m.zoomLevel)))
	if next < minWaveformZoom {
		next = minWaveformZoom
	}
	m.waveformZoom = next
	return next
}

// WaveformZoom returns the visible window length.
func (m *Model) WaveformZoom() int { return m.waveformZoom }

// sampleAnalysis reads the engine tap once: the RMS level goes into the
// waveform ring and the spectrum is smoothed for display.
func (m *Model) sampleAnalysis() {
	samples := m.Chain.Analysis()
	if len(samples) == 0 {
		m.PushAnalysisSample(0)
		m.lastAnalysis = nil
		return
	}
	m.lastAnalysis = samples
	m.PushAnalysisSample(effects.Level(samples))
	m.lastSpectrum = m.Chain.Spectrum(samples)
}

// Analysis returns the last samples read from the tap.
func (m *Model) Analysis() []float64 {
	out := make([]float64, len(m.lastAnalysis))
	copy(out, m.lastAnalysis)
	return out
}

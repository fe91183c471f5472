package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWaveformRing(t *testing.T) {
	m, _, _ := newTestModel(t, nil)

	t.Run("Bounded", func(t *testing.T) {
		for i := 0; i < DefaultWaveformSize+100; i++ {
			m.PushAnalysisSample(float64(i))
		}
		buf := m.WaveformBuf()
		assert.Len(t, buf, DefaultWaveformSize)
		assert.Equal(t, 100.0, buf[0], "oldest samples dropped first")
		assert.Equal(t, float64(DefaultWaveformSize+99), buf[len(buf)-1])
	})

	t.Run("BufIsCopy", func(t *testing.T) {
		buf := m.WaveformBuf()
		buf[0] = -1
		assert.NotEqual(t, -1.0, m.WaveformBuf()[0])
	})
}

func TestWaveformViewPadding(t *testing.T) {
	m, _, _ := newTestModel(t, nil)
	m.PushAnalysisSample(0.25)
	m.PushAnalysisSample(0.5)

	view := m.WaveformView()
	assert.Len(t, view, m.WaveformZoom())
	assert.Equal(t, 0.0, view[0])
	assert.Equal(t, []float64{0.25, 0.5}, view[len(view)-2:])
}

func TestZoomWaveform(t *testing.T) {
	m, _, _ := newTestModel(t, nil)
	assert.Equal(t, DefaultWaveformSize, m.WaveformZoom())

	t.Run("In", func(t *testing.T) {
		assert.Equal(t, DefaultWaveformSize*4/5, m.ZoomWaveform(true))
		for i := 0; i < 50; i++ {
			m.ZoomWaveform(true)
		}
		assert.Equal(t, minWaveformZoom, m.WaveformZoom(), "clamped at the minimum")
		assert.Len(t, m.WaveformView(), minWaveformZoom)
	})

	t.Run("Out", func(t *testing.T) {
		for i := 0; i < 50; i++ {
			m.ZoomWaveform(false)
		}
		assert.Equal(t, DefaultWaveformSize, m.WaveformZoom(), "clamped at the ring size")
	})

	t.Run("RoundTrip", func(t *testing.T) {
		var widths []int
		for i := 0; i < 5; i++ {
			widths = append(widths, m.WaveformZoom())
			m.ZoomWaveform(true)
		}
		for i := 4; i >= 0; i-- {
			assert.Equal(t, widths[i], m.ZoomWaveform(false), "step %d", i)
		}
		assert.Equal(t, DefaultWaveformSize, m.WaveformZoom())
	})
}

func TestSampleAnalysis(t *testing.T) {
	m, _, _ := newTestModel(t, nil)
	m.Tick()

	assert.Equal(t, []float64{0.5, -0.5, 0.5, -0.5}, m.Analysis())
	buf := m.WaveformBuf()
	assert.InDelta(t, 0.5, buf[len(buf)-1], 1e-9)
	assert.NotEmpty(t, m.Snapshot().Spectrum)
}

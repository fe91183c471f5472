package audio

import (
	"os"
	"path/filepath"
	"testing"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteAnalysisWAV(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "taps", "tap.wav")

	samples := []float64{0, 0.5, -0.5, 1, -1, 2, -2}
	require.NoError(t, WriteAnalysisWAV(path, samples, 48000))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	dec := wav.NewDecoder(f)
	require.True(t, dec.IsValidFile())
	require.NoError(t, dec.FwdToPCM())
	assert.Equal(t, uint32(48000), dec.SampleRate)
	assert.Equal(t, uint16(1), dec.NumChans)
	assert.Equal(t, uint16(16), dec.BitDepth)

	buf := &goaudio.IntBuffer{
		Format:         dec.Format(),
		Data:           make([]int, len(samples)),
		SourceBitDepth: 16,
	}
	n, err := dec.PCMBuffer(buf)
	require.NoError(t, err)
	assert.Equal(t, len(samples), n)
	assert.Equal(t, []int{0, 16384, -16384, 32767, -32767, 32767, -32767}, buf.Data, "clipped to full scale")
}

func TestWriteAnalysisWAVErrors(t *testing.T) {
	tmpDir := t.TempDir()
	assert.Error(t, WriteAnalysisWAV(filepath.Join(tmpDir, "a.wav"), nil, 0))

	// a file where the parent directory should be
	blocker := filepath.Join(tmpDir, "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0644))
	assert.Error(t, WriteAnalysisWAV(filepath.Join(blocker, "a.wav"), []float64{0}, 44100))
}

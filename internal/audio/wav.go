// Package audio writes diagnostic dumps of the engine's analysis tap.
package audio

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const bitDepth = 16

// WriteAnalysisWAV writes samples as a 16-bit mono WAV file at path,
// clipping to [-1, 1]. Missing parent directories are created.
func WriteAnalysisWAV(path string, samples []float64, sampleRate int) error {
	if sampleRate <= 0 {
		return fmt.Errorf("sample rate %d must be positive", sampleRate)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := wav.NewEncoder(f, sampleRate, bitDepth, 1, 1)
	buf := &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: 1,
			SampleRate:  sampleRate,
		},
		Data:           make([]int, len(samples)),
		SourceBitDepth: bitDepth,
	}
	for i, v := range samples {
		if math.IsNaN(v) {
			v = 0
		}
		v = math.Max(-1, math.Min(1, v))
		buf.Data[i] = int(math.Round(v * 32767))
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", path, err)
	}
	return nil
}

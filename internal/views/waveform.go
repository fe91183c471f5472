package views

import (
	"math"
	"strings"
)

var blocks = []rune(" ▁▂▃▄▅▆▇█")

// resample picks width points from data by nearest index.
func resample(data []float64, width int) []float64 {
	out := make([]float64, width)
	if len(data) == 0 || width <= 0 {
		return out
	}
	for i := range out {
		out[i] = data[i*len(data)/width]
	}
	return out
}

// RenderWaveform draws data as columns of block characters, height rows
// tall, scaled so that 1.0 fills a column.
func RenderWaveform(width, height int, data []float64) string {
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}
	cols := resample(data, width)
	eighths := make([]int, width)
	for i, v := range cols {
		v = math.Min(1, math.Abs(v))
		eighths[i] = int(math.Round(v * float64(height*8)))
	}

	var b strings.Builder
	for row := height - 1; row >= 0; row-- {
		for _, e := range eighths {
			fill := e - row*8
			switch {
			case fill <= 0:
				b.WriteRune(blocks[0])
			case fill >= 8:
				b.WriteRune(blocks[8])
			default:
				b.WriteRune(blocks[fill])
			}
		}
		if row > 0 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// RenderSparkline draws data normalised to its own peak on one row.
func RenderSparkline(width int, data []float64) string {
	cols := resample(data, width)
	peak := 0.0
	for _, v := range cols {
		peak = math.Max(peak, math.Abs(v))
	}
	if peak > 0 {
		for i := range cols {
			cols[i] /= peak
		}
	}
	return RenderWaveform(width, 1, cols)
}

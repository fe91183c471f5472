// Package views renders a model snapshot for the terminal.
package views

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/lipgloss"

	"github.com/schollz/polysurface/internal/effects"
	"github.com/schollz/polysurface/internal/model"
	"github.com/schollz/polysurface/internal/types"
)

const (
	waveformHeight = 3
	meterWidth     = 20
	minWidth       = 40
	keyboardBase   = types.Note("C4")
	keyboardSpan   = 25 // two octaves and the top C
)

// Options carries the terminal geometry and the help footer.
type Options struct {
	Width  int
	Height int
	Help   help.Model
	Keys   help.KeyMap
}

// Render draws the whole screen.
func Render(s model.Snapshot, opts Options) string {
	styles := getCommonStyles()
	width := max(minWidth, opts.Width-4) // account for container padding

	var content strings.Builder
	content.WriteString(RenderHeader(s, width, styles))
	content.WriteString("\n")
	content.WriteString(renderTransport(s, styles))
	content.WriteString("\n\n")
	content.WriteString(renderKeyboard(s, styles))
	content.WriteString("\n\n")
	content.WriteString(renderSteps(s, styles))
	content.WriteString("\n")
	content.WriteString(renderSlots(s, styles))
	content.WriteString("\n\n")
	content.WriteString(renderParams(s, styles))
	content.WriteString("\n")
	content.WriteString(renderStatus(s, styles))
	if opts.Keys != nil {
		content.WriteString("\n")
		content.WriteString(opts.Help.View(opts.Keys))
	}
	return styles.Container.Render(content.String())
}

func getRecordingIndicator(s model.Snapshot, styles *ViewStyles) string {
	if s.Recording {
		return styles.Recording.Render("●")
	}
	if s.Replaying {
		return styles.Playback.Render("▶")
	}
	return ""
}

// RenderHeader renders the analysis waveform with the title line below it.
func RenderHeader(s model.Snapshot, width int, styles *ViewStyles) string {
	var content strings.Builder
	content.WriteString(RenderWaveform(width, waveformHeight, s.Waveform))
	content.WriteString("\n")

	left := fmt.Sprintf("polysurface  %s", s.Engine)
	right := styles.Label.Render(RenderSparkline(min(32, width/3), s.Spectrum))
	if ind := getRecordingIndicator(s, styles); ind != "" {
		right += " " + ind
	}
	padding := max(1, width-lipgloss.Width(left)-lipgloss.Width(right))
	content.WriteString(left + strings.Repeat(" ", padding) + right)
	return content.String()
}

func renderTransport(s model.Snapshot, styles *ViewStyles) string {
	state := styles.Label.Render("stopped")
	if s.Running {
		state = styles.Playback.Render("playing")
	}
	return fmt.Sprintf("%s  %6.1f bpm  bar %3d beat %4.2f", state, s.Tempo, s.Bar+1, s.Beat+1)
}

func renderKeyboard(s model.Snapshot, styles *ViewStyles) string {
	active := make(map[types.Note]bool, len(s.ActiveNotes))
	for _, n := range s.ActiveNotes {
		active[n] = true
	}
	base := keyboardBase.Transpose(12 * s.Octave)

	var top, bottom strings.Builder
	for i := 0; i < keyboardSpan; i++ {
		note := base.Transpose(i)
		name := note.String()
		var cell string
		if strings.Contains(name, "#") {
			cell = "▆▆"
		} else {
			cell = fmt.Sprintf("%-2s", name[:1])
		}
		if active[note] {
			cell = styles.Active.Render(cell)
		} else {
			cell = styles.Normal.Render(cell)
		}
		top.WriteString(cell)
	}
	bottom.WriteString(styles.Label.Render(fmt.Sprintf("%-*s%s", keyboardSpan*2-3, base, base.Transpose(keyboardSpan-1))))
	return top.String() + "\n" + bottom.String()
}

func renderSteps(s model.Snapshot, styles *ViewStyles) string {
	var b strings.Builder
	b.WriteString(styles.Label.Render("steps "))
	for i, step := range s.Steps {
		cell := fmt.Sprintf(" %-3s", step.Note)
		if !step.Active {
			cell = " ·  "
		}
		switch {
		case s.Slots[types.SlotSequencer] && i == s.CurrentStep:
			cell = styles.Selected.Render(cell)
		case step.Active:
			cell = styles.Normal.Render(cell)
		default:
			cell = styles.Label.Render(cell)
		}
		b.WriteString(cell)
	}
	return b.String()
}

func renderSlots(s model.Snapshot, styles *ViewStyles) string {
	var parts []string
	for i, slot := range types.Slots {
		label := fmt.Sprintf("%d %s", i+1, slot)
		switch slot {
		case types.SlotArpeggiator:
			if s.LastArp != "" {
				label += " " + s.LastArp.String()
			}
		case types.SlotMetronome:
			label += fmt.Sprintf(" %d", s.Clicks)
		}
		if s.Slots[slot] {
			parts = append(parts, styles.Playback.Render("■ "+label))
		} else {
			parts = append(parts, styles.Label.Render("□ "+label))
		}
	}
	return strings.Join(parts, "   ")
}

// RenderMeter draws v as a bar filled in proportion to its place in
// [lo, hi], coloured along the meter gradient.
func RenderMeter(v, lo, hi float64, width int) string {
	t := 0.0
	if hi > lo {
		t = (v - lo) / (hi - lo)
	}
	t = max(0, min(1, t))
	filled := int(t*float64(width) + 0.5)

	var b strings.Builder
	for i := 0; i < width; i++ {
		if i >= filled {
			b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render("─"))
			continue
		}
		c := gradient(float64(i) / float64(max(1, width-1)))
		b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(c.Hex())).Render("█"))
	}
	return b.String()
}

func renderParams(s model.Snapshot, styles *ViewStyles) string {
	var lines []string
	for _, p := range effects.Params() {
		v, _ := s.Params.Get(p.Stage, p.Name)
		label := fmt.Sprintf("%-20s", p.Path())
		if p.Path() == s.Selected {
			label = styles.Selected.Render(label)
		} else {
			label = styles.Label.Render(label)
		}
		value := fmt.Sprintf("%8.2f", v)
		if p.Stage == effects.StageSource && p.Name == "oscillator" {
			value = fmt.Sprintf("%8s", s.Oscillator)
		}
		lines = append(lines, fmt.Sprintf("%s %s %s", label, RenderMeter(v, p.Min, p.Max, meterWidth), value))
	}
	lines = append(lines, fmt.Sprintf("%-20s %s %8.2f", styles.Label.Render("level"), RenderMeter(s.Level, 0, 1, meterWidth), s.Level))
	return strings.Join(lines, "\n")
}

func renderStatus(s model.Snapshot, styles *ViewStyles) string {
	var parts []string
	if s.Recording {
		parts = append(parts, styles.Recording.Render(fmt.Sprintf("rec %d", s.RecordedEvents)))
	} else if s.TakeEvents > 0 {
		parts = append(parts, styles.Label.Render(fmt.Sprintf("take %d notes", s.TakeEvents)))
	}
	parts = append(parts, styles.Label.Render(fmt.Sprintf("octave %+d", s.Octave)))
	if s.EngineErr != nil {
		parts = append(parts, styles.Error.Render("engine: "+s.EngineErr.Error()))
	} else if s.LastErr != nil {
		parts = append(parts, styles.Error.Render(s.LastErr.Error()))
	}
	return strings.Join(parts, "  ")
}

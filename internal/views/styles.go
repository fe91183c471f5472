package views

import (
	"github.com/charmbracelet/lipgloss"
	colorful "github.com/lucasb-eyer/go-colorful"
)

// Common styles used across all sections
type ViewStyles struct {
	Selected  lipgloss.Style
	Normal    lipgloss.Style
	Label     lipgloss.Style
	Container lipgloss.Style
	Playback  lipgloss.Style
	Active    lipgloss.Style
	Recording lipgloss.Style
	Error     lipgloss.Style
}

// getCommonStyles returns the standard style definitions used across views
func getCommonStyles() *ViewStyles {
	return &ViewStyles{
		Selected:  lipgloss.NewStyle().Background(lipgloss.Color("7")).Foreground(lipgloss.Color("0")),
		Normal:    lipgloss.NewStyle().Foreground(lipgloss.Color("15")),
		Label:     lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
		Container: lipgloss.NewStyle().Padding(1, 2),
		Playback:  lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		Active:    lipgloss.NewStyle().Background(lipgloss.Color("10")).Foreground(lipgloss.Color("0")),
		Recording: lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
		Error:     lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
	}
}

// meter gradient endpoints, low to high
var (
	meterLow  = mustHex("#2e8b57")
	meterMid  = mustHex("#e1c542")
	meterHigh = mustHex("#d1495b")
)

func mustHex(s string) colorful.Color {
	c, err := colorful.Hex(s)
	if err != nil {
		panic(err)
	}
	return c
}

// gradient returns the meter colour at t in [0, 1], blended in Lab space.
func gradient(t float64) colorful.Color {
	t = max(0, min(1, t))
	if t < 0.5 {
		return meterLow.BlendLab(meterMid, t*2).Clamped()
	}
	return meterMid.BlendLab(meterHigh, (t-0.5)*2).Clamped()
}

package input

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/schollz/polysurface/internal/model"
)

const defaultTick = 10 * time.Millisecond

type TickMsg time.Time

func tickDuration(m *model.Model) time.Duration {
	if d := m.TickDuration(); d > 0 {
		return d
	}
	return defaultTick
}

// Tick schedules the next controller tick. The transport reads the clock
// on every tick, so a late tick delays events but never shifts the grid.
func Tick(m *model.Model) tea.Cmd {
	return tea.Tick(tickDuration(m), func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

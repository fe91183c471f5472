// Package input maps terminal key presses onto model commands and paces
// the controller ticks.
package input

import (
	"log"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/schollz/polysurface/internal/model"
	"github.com/schollz/polysurface/internal/types"
)

// pianoBase is the note of the leftmost piano key at octave shift zero.
const pianoBase types.Note = "C4"

// pianoKeys maps the two home rows onto semitones above pianoBase.
var pianoKeys = map[string]int{
	"a": 0, "w": 1, "s": 2, "e": 3, "d": 4, "f": 5, "t": 6,
	"g": 7, "y": 8, "h": 9, "u": 10, "j": 11, "k": 12,
}

func Key(help string, keyboardKey ...string) key.Binding {
	return key.NewBinding(key.WithKeys(keyboardKey...), key.WithHelp(keyboardKey[0], help))
}

// KeyMap holds every binding except the piano keys.
type KeyMap struct {
	Piano       key.Binding
	Play        key.Binding
	Arpeggiator key.Binding
	Sequencer   key.Binding
	Metronome   key.Binding
	Record      key.Binding
	Replay      key.Binding
	TempoUp     key.Binding
	TempoDown   key.Binding
	OctaveDown  key.Binding
	OctaveUp    key.Binding
	Oscillator  key.Binding
	ParamPrev   key.Binding
	ParamNext   key.Binding
	ParamUp     key.Binding
	ParamDown   key.Binding
	ZoomIn      key.Binding
	ZoomOut     key.Binding
	Save        key.Binding
	Load        key.Binding
	Help        key.Binding
	Quit        key.Binding
}

var Keys = KeyMap{
	Piano:       key.NewBinding(key.WithKeys("a", "w", "s", "e", "d", "f", "t", "g", "y", "h", "u", "j", "k"), key.WithHelp("a..k", "play")),
	Play:        Key("play/stop", " "),
	Arpeggiator: Key("arp", "1"),
	Sequencer:   Key("seq", "2"),
	Metronome:   Key("click", "3"),
	Record:      Key("record", "r"),
	Replay:      Key("replay", "p"),
	TempoUp:     Key("tempo+", "+", "="),
	TempoDown:   Key("tempo-", "-", "_"),
	OctaveDown:  Key("octave-", "z"),
	OctaveUp:    Key("octave+", "x"),
	Oscillator:  Key("osc", "o"),
	ParamPrev:   Key("prev param", "["),
	ParamNext:   Key("next param", "]"),
	ParamUp:     Key("param+", "up"),
	ParamDown:   Key("param-", "down"),
	ZoomIn:      Key("zoom in", "."),
	ZoomOut:     Key("zoom out", ","),
	Save:        Key("save preset", "ctrl+s"),
	Load:        Key("load preset", "ctrl+o"),
	Help:        Key("help", "?"),
	Quit:        Key("quit", "ctrl+c", "q"),
}

func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Piano, k.Play, k.Arpeggiator, k.Sequencer, k.Metronome, k.Record, k.Help, k.Quit}
}

func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Piano, k.OctaveDown, k.OctaveUp, k.Oscillator},
		{k.Play, k.TempoUp, k.TempoDown, k.Record, k.Replay},
		{k.Arpeggiator, k.Sequencer, k.Metronome},
		{k.ParamPrev, k.ParamNext, k.ParamUp, k.ParamDown},
		{k.ZoomIn, k.ZoomOut, k.Save, k.Load, k.Help, k.Quit},
	}
}

// paramStep is the fraction of a parameter's range moved per key press.
const paramStep = 0.05

// PianoNote returns the note a piano key sounds at the model's octave
// shift.
func PianoNote(m *model.Model, k string) (types.Note, bool) {
	semis, ok := pianoKeys[k]
	if !ok {
		return "", false
	}
	return pianoBase.Transpose(semis + 12*m.Octave), true
}

// HandleKey runs the command bound to msg. It must be called from the
// goroutine that ticks m. Notes are posted so they sound on the next tick.
func HandleKey(m *model.Model, msg tea.KeyMsg) tea.Cmd {
	if note, ok := PianoNote(m, msg.String()); ok {
		at := m.Now()
		m.Post(func(m *model.Model) { m.PressKeyAt(note, at) })
		return nil
	}

	switch {
	case key.Matches(msg, Keys.Quit):
		m.Shutdown()
		return tea.Quit
	case key.Matches(msg, Keys.Play):
		m.TogglePlay()
	case key.Matches(msg, Keys.Arpeggiator):
		m.ToggleSlot(types.SlotArpeggiator)
	case key.Matches(msg, Keys.Sequencer):
		m.ToggleSlot(types.SlotSequencer)
	case key.Matches(msg, Keys.Metronome):
		m.ToggleSlot(types.SlotMetronome)
	case key.Matches(msg, Keys.Record):
		m.ToggleRecording()
	case key.Matches(msg, Keys.Replay):
		m.Replay()
	case key.Matches(msg, Keys.TempoUp):
		m.NudgeTempo(1)
	case key.Matches(msg, Keys.TempoDown):
		m.NudgeTempo(-1)
	case key.Matches(msg, Keys.OctaveDown):
		m.ShiftOctave(-1)
	case key.Matches(msg, Keys.OctaveUp):
		m.ShiftOctave(1)
	case key.Matches(msg, Keys.Oscillator):
		m.CycleOscillator()
	case key.Matches(msg, Keys.ParamPrev):
		m.SelectParam(-1)
	case key.Matches(msg, Keys.ParamNext):
		m.SelectParam(1)
	case key.Matches(msg, Keys.ParamUp):
		m.NudgeSelected(paramStep)
	case key.Matches(msg, Keys.ParamDown):
		m.NudgeSelected(-paramStep)
	case key.Matches(msg, Keys.ZoomIn):
		m.ZoomWaveform(true)
	case key.Matches(msg, Keys.ZoomOut):
		m.ZoomWaveform(false)
	case key.Matches(msg, Keys.Save):
		if err := m.SavePreset(m.PresetKey); err == nil {
			log.Printf("saved preset %q", m.PresetKey)
		}
	case key.Matches(msg, Keys.Load):
		m.LoadPreset(m.PresetKey)
	}
	return nil
}

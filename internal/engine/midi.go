package engine

import (
	"fmt"
	"log"
	"math"

	"gitlab.com/gomidi/midi/v2"

	"github.com/schollz/polysurface/internal/effects"
	perrors "github.com/schollz/polysurface/internal/errors"
	"github.com/schollz/polysurface/internal/types"
)

// DefaultCCMap assigns effect parameters to General MIDI style controllers.
// Paths not listed are not forwarded to MIDI synths.
var DefaultCCMap = map[string]uint8{
	"source.volume":     7,
	"source.attack":     73,
	"source.release":    72,
	"source.decay":      75,
	"reverb.wet":        91,
	"delay.wet":         94,
	"delay.feedback":    95,
	"distortion.wet":    92,
	"distortion.amount": 93,
	"output.volume":     11,
}

const noteVelocity = 100

// MIDIEngine drives an external synth through a MIDI output port.
type MIDIEngine struct {
	send    func(msg midi.Message) error
	channel uint8
	ccMap   map[string]uint8
}

// OpenMIDIEngine opens the named output port. channel is 1-based as shown
// on hardware.
func OpenMIDIEngine(portName string, channel int) (*MIDIEngine, error) {
	out, err := midi.FindOutPort(portName)
	if err != nil {
		return nil, fmt.Errorf("find midi port %q: %w", portName, err)
	}
	send, err := midi.SendTo(out)
	if err != nil {
		return nil, fmt.Errorf("open midi port %q: %w", portName, err)
	}
	log.Printf("MIDI engine on %s channel %d", out.String(), channel)
	return NewMIDIEngine(send, channel), nil
}

// NewMIDIEngine wraps a send function, e.g. one returned by midi.SendTo.
func NewMIDIEngine(send func(msg midi.Message) error, channel int) *MIDIEngine {
	if channel < 1 {
		channel = 1
	}
	if channel > 16 {
		channel = 16
	}
	return &MIDIEngine{
		send:    send,
		channel: uint8(channel - 1),
		ccMap:   DefaultCCMap,
	}
}

func (e *MIDIEngine) Attack(note types.Note) error {
	if err := e.send(midi.NoteOn(e.channel, note.MIDI(), noteVelocity)); err != nil {
		return perrors.NewEngineError("attack", note.String(), err)
	}
	return nil
}

func (e *MIDIEngine) Release(note types.Note) error {
	if err := e.send(midi.NoteOff(e.channel, note.MIDI())); err != nil {
		return perrors.NewEngineError("release", note.String(), err)
	}
	return nil
}

// SetParameter scales value from the parameter's declared range to 0..127
// and sends it as a control change.
func (e *MIDIEngine) SetParameter(path string, value float64) error {
	cc, ok := e.ccMap[path]
	if !ok {
		return nil
	}
	p, ok := effects.Lookup(path)
	if !ok {
		return nil
	}
	if err := e.send(midi.ControlChange(e.channel, cc, scaleToCC(value, p.Min, p.Max))); err != nil {
		return perrors.NewEngineError("param", path, err)
	}
	return nil
}

// AnalysisSamples is empty: MIDI carries no audio back.
func (e *MIDIEngine) AnalysisSamples() []float64 { return nil }

func scaleToCC(value, min, max float64) uint8 {
	if max <= min {
		return 0
	}
	v := math.Round((value - min) / (max - min) * 127)
	if v < 0 {
		v = 0
	}
	if v > 127 {
		v = 127
	}
	return uint8(v)
}

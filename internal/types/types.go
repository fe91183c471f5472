package types

import (
	"fmt"
	"strings"
)

// Slot identifies a scheduler client. Each slot holds at most one live task.
type Slot int

const (
	SlotArpeggiator Slot = iota
	SlotSequencer
	SlotMetronome
)

// NumSlots is the size of the scheduler's task arena.
const NumSlots = 3

var Slots = []Slot{SlotArpeggiator, SlotSequencer, SlotMetronome}

func (s Slot) String() string {
	switch s {
	case SlotArpeggiator:
		return "arpeggiator"
	case SlotSequencer:
		return "sequencer"
	case SlotMetronome:
		return "metronome"
	default:
		return fmt.Sprintf("slot(%d)", int(s))
	}
}

// Subdivision is a musical interval expressed in beats (quarter notes).
type Subdivision float64

const (
	Whole        Subdivision = 4
	Half         Subdivision = 2
	Quarter      Subdivision = 1
	Eighth       Subdivision = 0.5
	Sixteenth    Subdivision = 0.25
	ThirtySecond Subdivision = 0.125
)

// Beats returns the interval length in beats.
func (d Subdivision) Beats() float64 { return float64(d) }

func (d Subdivision) String() string {
	switch d {
	case Whole:
		return "1n"
	case Half:
		return "2n"
	case Quarter:
		return "4n"
	case Eighth:
		return "8n"
	case Sixteenth:
		return "16n"
	case ThirtySecond:
		return "32n"
	default:
		return fmt.Sprintf("%gb", float64(d))
	}
}

// ParseSubdivision accepts "4n", "8n", "16n" style names.
func ParseSubdivision(s string) (Subdivision, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1n":
		return Whole, nil
	case "2n":
		return Half, nil
	case "4n":
		return Quarter, nil
	case "8n":
		return Eighth, nil
	case "16n":
		return Sixteenth, nil
	case "32n":
		return ThirtySecond, nil
	}
	return 0, fmt.Errorf("unknown subdivision %q", s)
}

// OscillatorType selects the source waveform.
type OscillatorType int

const (
	OscSine OscillatorType = iota
	OscSquare
	OscSawtooth
	OscTriangle
)

var oscillatorNames = []string{"sine", "square", "sawtooth", "triangle"}

func (o OscillatorType) String() string {
	if o < 0 || int(o) >= len(oscillatorNames) {
		return fmt.Sprintf("oscillator(%d)", int(o))
	}
	return oscillatorNames[o]
}

// Valid reports whether o is one of the declared oscillator types.
func (o OscillatorType) Valid() bool {
	return o >= 0 && int(o) < len(oscillatorNames)
}

// ParseOscillator maps a name to an OscillatorType.
func ParseOscillator(s string) (OscillatorType, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range oscillatorNames {
		if name == s {
			return OscillatorType(i), nil
		}
	}
	return 0, fmt.Errorf("unknown oscillator %q", s)
}

package types

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	perrors "github.com/schollz/polysurface/internal/errors"
)

// Note is a canonical pitch name such as "C4" or "F#3". Flats are
// normalised to sharps by ParseNote so equal pitches compare equal.
type Note string

var pitchClasses = []string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

var flatToSharp = map[string]string{
	"Db": "C#", "Eb": "D#", "Gb": "F#", "Ab": "G#", "Bb": "A#",
	"Cb": "B", "Fb": "E",
}

const (
	MinOctave = 0
	MaxOctave = 8
)

// ParseNote validates s against the note alphabet and returns its canonical form.
func ParseNote(s string) (Note, error) {
	s = strings.TrimSpace(s)
	if len(s) < 2 {
		return "", fmt.Errorf("%w: %q", perrors.ErrInvalidNote, s)
	}

	letter := strings.ToUpper(s[:1])
	if letter < "A" || letter > "G" {
		return "", fmt.Errorf("%w: %q", perrors.ErrInvalidNote, s)
	}
	rest := s[1:]
	class := letter
	if rest[0] == '#' || rest[0] == 'b' {
		class += rest[:1]
		rest = rest[1:]
	}

	octave, err := strconv.Atoi(rest)
	if err != nil || octave < MinOctave || octave > MaxOctave {
		return "", fmt.Errorf("%w: %q", perrors.ErrInvalidNote, s)
	}

	if sharp, ok := flatToSharp[class]; ok {
		// Cb4 is B3, Fb4 stays in octave
		if class == "Cb" {
			octave--
			if octave < MinOctave {
				return "", fmt.Errorf("%w: %q", perrors.ErrInvalidNote, s)
			}
		}
		class = sharp
	}
	if class == "E#" {
		class = "F"
	}
	if class == "B#" {
		class = "C"
		octave++
		if octave > MaxOctave {
			return "", fmt.Errorf("%w: %q", perrors.ErrInvalidNote, s)
		}
	}

	return Note(fmt.Sprintf("%s%d", class, octave)), nil
}

// MustNote is ParseNote for literals; it panics on invalid input.
func MustNote(s string) Note {
	n, err := ParseNote(s)
	if err != nil {
		panic(err)
	}
	return n
}

// ParseNotes parses a comma or space separated list of notes.
func ParseNotes(s string) ([]Note, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' })
	notes := make([]Note, 0, len(fields))
	for _, f := range fields {
		n, err := ParseNote(f)
		if err != nil {
			return nil, err
		}
		notes = append(notes, n)
	}
	return notes, nil
}

func (n Note) split() (int, int) {
	s := string(n)
	i := 1
	if len(s) > 1 && s[1] == '#' {
		i = 2
	}
	class := -1
	for idx, pc := range pitchClasses {
		if pc == s[:i] {
			class = idx
			break
		}
	}
	octave, _ := strconv.Atoi(s[i:])
	return class, octave
}

// MIDI returns the MIDI key number, with C4 = 60.
func (n Note) MIDI() uint8 {
	class, octave := n.split()
	if class < 0 {
		return 0
	}
	return uint8((octave+1)*12 + class)
}

// Frequency returns the equal-tempered frequency with A4 = 440 Hz.
func (n Note) Frequency() float64 {
	return 440 * math.Pow(2, (float64(n.MIDI())-69)/12)
}

// Transpose moves the note by semitones, clamped to the alphabet's range.
func (n Note) Transpose(semitones int) Note {
	k := int(n.MIDI()) + semitones
	lo, hi := (MinOctave+1)*12, (MaxOctave+1)*12+11
	if k < lo {
		k = lo
	}
	if k > hi {
		k = hi
	}
	return NoteFromMIDI(uint8(k))
}

// NoteFromMIDI converts a MIDI key number to a Note.
func NoteFromMIDI(key uint8) Note {
	octave := int(key)/12 - 1
	if octave < MinOctave {
		octave = MinOctave
	}
	return Note(fmt.Sprintf("%s%d", pitchClasses[int(key)%12], octave))
}

func (n Note) String() string { return string(n) }

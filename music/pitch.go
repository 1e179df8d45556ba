package music

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var (
	ErrBadPitch       = errors.New("music: bad pitch")
	ErrEmptyTable     = errors.New("music: empty table")
	ErrBadSubdivision = errors.New("music: bad subdivision")
)

// Note is a MIDI key number (60 = C4).
type Note int

var noteNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

var letterOffsets = map[byte]int{'C': 0, 'D': 2, 'E': 4, 'F': 5, 'G': 7, 'A': 9, 'B': 11}

// ParsePitch parses scientific pitch notation such as "C4", "F#3" or "Bb2".
func ParsePitch(s string) (Note, error) {
	p := strings.TrimSpace(s)
	if len(p) < 2 {
		return 0, fmt.Errorf("%w: %q", ErrBadPitch, s)
	}

	offset, ok := letterOffsets[byte(strings.ToUpper(p[:1])[0])]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrBadPitch, s)
	}
	rest := p[1:]
	switch rest[0] {
	case '#':
		offset++
		rest = rest[1:]
	case 'b':
		offset--
		rest = rest[1:]
	}

	octave, err := strconv.Atoi(rest)
	if err != nil || octave < -1 || octave > 9 {
		return 0, fmt.Errorf("%w: %q", ErrBadPitch, s)
	}

	n := Note((octave+1)*12 + offset)
	if n < 0 || n > 127 {
		return 0, fmt.Errorf("%w: %q out of MIDI range", ErrBadPitch, s)
	}
	return n, nil
}

// MustPitch is ParsePitch for literals; it panics on bad input.
func MustPitch(s string) Note {
	n, err := ParsePitch(s)
	if err != nil {
		panic(err)
	}
	return n
}

// Frequency returns the equal-tempered frequency with A4 = 440 Hz.
func (n Note) Frequency() float64 {
	return 440 * math.Pow(2, float64(n-69)/12)
}

// Name formats the note using sharps, e.g. "C#4".
func (n Note) Name() string {
	octave := int(n)/12 - 1
	return noteNames[int(n)%12] + strconv.Itoa(octave)
}

// Transpose shifts the note by semitones.
func (n Note) Transpose(semitones int) Note {
	return n + Note(semitones)
}

func (n Note) String() string {
	return n.Name()
}

package music

import (
	"fmt"
	"strconv"
	"time"
)

// Subdivision is a musical time unit in transport notation: "8n" is an
// eighth note, "8t" an eighth-note triplet and "2m" two 4/4 bars.
type Subdivision string

const (
	Whole        Subdivision = "1n"
	Half         Subdivision = "2n"
	Quarter      Subdivision = "4n"
	Eighth       Subdivision = "8n"
	Sixteenth    Subdivision = "16n"
	EighthTriple Subdivision = "8t"
	Bar          Subdivision = "1m"
	TwoBars      Subdivision = "2m"
)

// ParseSubdivision validates notation and returns it as a Subdivision.
func ParseSubdivision(s string) (Subdivision, error) {
	sub := Subdivision(s)
	if _, err := sub.beats(); err != nil {
		return "", err
	}
	return sub, nil
}

// Beats returns the length in quarter-note beats, or 0 for invalid notation.
func (s Subdivision) Beats() float64 {
	b, err := s.beats()
	if err != nil {
		return 0
	}
	return b
}

func (s Subdivision) beats() (float64, error) {
	if len(s) < 2 {
		return 0, fmt.Errorf("%w: %q", ErrBadSubdivision, string(s))
	}
	n, err := strconv.Atoi(string(s[:len(s)-1]))
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrBadSubdivision, string(s))
	}
	switch s[len(s)-1] {
	case 'n':
		return 4 / float64(n), nil
	case 't':
		return 4 / float64(n) * 2 / 3, nil
	case 'm':
		return 4 * float64(n), nil
	}
	return 0, fmt.Errorf("%w: %q", ErrBadSubdivision, string(s))
}

// Seconds returns the length at the given tempo.
func (s Subdivision) Seconds(bpm float64) float64 {
	if bpm <= 0 {
		return 0
	}
	return s.Beats() * 60 / bpm
}

// Duration returns the length at the given tempo as a time.Duration.
func (s Subdivision) Duration(bpm float64) time.Duration {
	return time.Duration(s.Seconds(bpm) * float64(time.Second))
}

func (s Subdivision) String() string {
	return string(s)
}

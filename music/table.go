package music

import "fmt"

// Table is an immutable ordered sequence of pitches. Indexing always wraps,
// so a computed index can never fall outside the table.
type Table struct {
	name    string
	pitches []string
	notes   []Note
}

// NewTable validates every pitch up front. An empty table is a programming
// error and is rejected here rather than at tick time.
func NewTable(name string, pitches ...string) (*Table, error) {
	if len(pitches) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyTable, name)
	}
	t := &Table{
		name:    name,
		pitches: make([]string, len(pitches)),
		notes:   make([]Note, len(pitches)),
	}
	for i, p := range pitches {
		n, err := ParsePitch(p)
		if err != nil {
			return nil, fmt.Errorf("table %s[%d]: %w", name, i, err)
		}
		t.pitches[i] = p
		t.notes[i] = n
	}
	return t, nil
}

// MustTable is NewTable for package-level definitions.
func MustTable(name string, pitches ...string) *Table {
	t, err := NewTable(name, pitches...)
	if err != nil {
		panic(err)
	}
	return t
}

// Name returns the table's name.
func (t *Table) Name() string { return t.name }

// Len returns the number of pitches; a nil table has none.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.pitches)
}

// At returns the pitch at index i modulo the table length.
func (t *Table) At(i int) string {
	return t.pitches[Wrap(i, len(t.pitches))]
}

// NoteAt returns the note at index i modulo the table length.
func (t *Table) NoteAt(i int) Note {
	return t.notes[Wrap(i, len(t.notes))]
}

// Pitches returns a copy of the table contents.
func (t *Table) Pitches() []string {
	out := make([]string, len(t.pitches))
	copy(out, t.pitches)
	return out
}

// ChordTable is an immutable ordered sequence of chord voicings.
type ChordTable struct {
	name   string
	chords [][]string
}

// NewChordTable rejects an empty table and any empty or unparsable chord.
func NewChordTable(name string, chords ...[]string) (*ChordTable, error) {
	if len(chords) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyTable, name)
	}
	ct := &ChordTable{name: name, chords: make([][]string, len(chords))}
	for i, chord := range chords {
		if len(chord) == 0 {
			return nil, fmt.Errorf("%w: %s chord %d", ErrEmptyTable, name, i)
		}
		for _, p := range chord {
			if _, err := ParsePitch(p); err != nil {
				return nil, fmt.Errorf("chord table %s[%d]: %w", name, i, err)
			}
		}
		ct.chords[i] = append([]string(nil), chord...)
	}
	return ct, nil
}

// MustChordTable is NewChordTable for package-level definitions.
func MustChordTable(name string, chords ...[]string) *ChordTable {
	ct, err := NewChordTable(name, chords...)
	if err != nil {
		panic(err)
	}
	return ct
}

// Name returns the table's name.
func (c *ChordTable) Name() string { return c.name }

// Len returns the number of chords; a nil table has none.
func (c *ChordTable) Len() int {
	if c == nil {
		return 0
	}
	return len(c.chords)
}

// At returns a copy of the chord at index i modulo the table length.
func (c *ChordTable) At(i int) []string {
	chord := c.chords[Wrap(i, len(c.chords))]
	return append([]string(nil), chord...)
}

// Wrap resolves any integer index into [0, n). n must be positive.
func Wrap(i, n int) int {
	if n <= 0 {
		panic(fmt.Sprintf("music: wrap index %d into empty range", i))
	}
	return ((i % n) + n) % n
}

package engine

import (
	"sync"

	"github.com/simukka/ucm-chill/common"
	"github.com/simukka/ucm-chill/music"
)

// PitchTable is the view a generator has of its active table: each entry
// is one pitch or one chord voicing.
type PitchTable interface {
	Len() int
	Pitches(i int) []string
}

// Source selects a generator's table from the active preset. It returns nil
// when the preset has no such table.
type Source func(p *music.Preset) PitchTable

type scaleTable struct{ t *music.Table }

func (s scaleTable) Len() int               { return s.t.Len() }
func (s scaleTable) Pitches(i int) []string { return []string{s.t.At(i)} }

type chordTable struct{ t *music.ChordTable }

func (c chordTable) Len() int               { return c.t.Len() }
func (c chordTable) Pitches(i int) []string { return c.t.At(i) }

// ScaleSource plays single notes from the preset's melody scale.
func ScaleSource(p *music.Preset) PitchTable {
	if p == nil || p.Scale == nil {
		return nil
	}
	return scaleTable{p.Scale}
}

// BassSource plays single notes from the preset's bassline table.
func BassSource(p *music.Preset) PitchTable {
	if p == nil || p.Bass == nil {
		return nil
	}
	return scaleTable{p.Bass}
}

// ChordSource plays voicings from the preset's chord table.
func ChordSource(p *music.Preset) PitchTable {
	if p == nil || p.Chords == nil {
		return nil
	}
	return chordTable{p.Chords}
}

// Generator is one generative part: on every tick it decides whether to
// sound, picks pitches from the active table and triggers its voice.
type Generator struct {
	mu       sync.Mutex
	name     string
	cfg      PartConfig
	params   *Params
	rng      common.Rand
	selector Selector
	source   Source
	preset   func() *music.Preset
	bpm      func() float64
	voice    Voice
	sinks    []NoteSink
	emitted  int
	skipped  int
}

// GeneratorOptions wires a generator to its collaborators.
type GeneratorOptions struct {
	Name     string
	Config   PartConfig
	Params   *Params
	Rand     common.Rand
	Selector Selector
	Source   Source
	Preset   func() *music.Preset
	BPM      func() float64
	Voice    Voice
	Sinks    []NoteSink
}

// NewGenerator builds a generator. Every collaborator except BPM and Sinks
// is required.
func NewGenerator(o GeneratorOptions) *Generator {
	if o.Params == nil || o.Rand == nil || o.Selector == nil || o.Source == nil || o.Preset == nil || o.Voice == nil {
		panic("engine: generator " + o.Name + " is missing a collaborator")
	}
	if o.BPM == nil {
		o.BPM = func() float64 { return 0 }
	}
	return &Generator{
		name:     o.Name,
		cfg:      o.Config,
		params:   o.Params,
		rng:      o.Rand,
		selector: o.Selector,
		source:   o.Source,
		preset:   o.Preset,
		bpm:      o.BPM,
		voice:    o.Voice,
		sinks:    o.Sinks,
	}
}

// Name returns the part name.
func (g *Generator) Name() string { return g.name }

// Every returns the tick period.
func (g *Generator) Every() music.Subdivision { return g.cfg.Every }

// Density returns the current probability of sounding on a tick.
func (g *Generator) Density() float64 {
	d := g.cfg.Density.Eval(g.params)
	if g.cfg.Space != nil {
		d *= g.cfg.Space.Eval(g.params)
	}
	return common.Clamp(d, 0, 1)
}

// Tick runs one step at transport time at. It reports the event and whether
// anything sounded.
func (g *Generator) Tick(at float64) (Event, bool) {
	g.mu.Lock()
	if g.rng.Random() > g.Density() {
		g.skipped++
		g.mu.Unlock()
		return Event{}, false
	}

	tbl := g.source(g.preset())
	if tbl == nil || tbl.Len() == 0 {
		g.skipped++
		g.mu.Unlock()
		return Event{}, false
	}
	idx := Resolve(g.selector.Next(tbl.Len()), tbl.Len())

	ev := Event{
		Part:     g.name,
		Pitches:  tbl.Pitches(idx),
		Length:   g.cfg.Length,
		Velocity: common.Clamp(g.cfg.Velocity.Eval(g.params), 0, 1),
		At:       at,
		BPM:      g.bpm(),
	}
	g.emitted++
	g.mu.Unlock()

	g.voice.TriggerAttackRelease(ev.Pitches, ev.Length, ev.At, ev.Velocity)
	for _, s := range g.sinks {
		s.Note(ev)
	}
	return ev, true
}

// Stats returns how many ticks sounded and how many were skipped.
func (g *Generator) Stats() (emitted, skipped int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.emitted, g.skipped
}

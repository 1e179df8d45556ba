// Package midiout captures emitted notes and writes them as a Standard MIDI
// File, so a generated session can be replayed or edited in a DAW.
package midiout

import (
	"fmt"
	"io"
	"math"
	"sort"
	"sync"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/simukka/ucm-chill/common"
	"github.com/simukka/ucm-chill/engine"
	"github.com/simukka/ucm-chill/music"
)

// Resolution is the file's ticks per quarter note.
const Resolution = 960

// DefaultChannels maps each part to a MIDI channel.
var DefaultChannels = map[string]uint8{
	engine.PartMelody: 0,
	engine.PartChords: 1,
	engine.PartAcid:   2,
}

type note struct {
	key      uint8
	velocity uint8
	on, off  uint32 // Absolute ticks
}

// Recorder is an engine.NoteSink that keeps every note in memory.
type Recorder struct {
	mu       sync.Mutex
	bpm      float64
	channels map[string]uint8
	order    []string
	notes    map[string][]note
	dropped  int
}

// NewRecorder creates a recorder. Seconds are converted to ticks at bpm;
// a non-positive bpm takes the tempo of the first recorded event.
func NewRecorder(bpm float64) *Recorder {
	ch := make(map[string]uint8, len(DefaultChannels))
	for k, v := range DefaultChannels {
		ch[k] = v
	}
	return &Recorder{
		bpm:      bpm,
		channels: ch,
		notes:    make(map[string][]note),
	}
}

var _ engine.NoteSink = (*Recorder)(nil)

// Note records one event.
func (r *Recorder) Note(ev engine.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.bpm <= 0 {
		r.bpm = ev.BPM
		if r.bpm <= 0 {
			r.bpm = 120
		}
	}
	if _, ok := r.notes[ev.Part]; !ok {
		r.order = append(r.order, ev.Part)
		if _, ok := r.channels[ev.Part]; !ok {
			r.channels[ev.Part] = uint8(len(r.channels) % 16)
		}
	}

	bpm := ev.BPM
	if bpm <= 0 {
		bpm = r.bpm
	}
	on := r.ticks(ev.At)
	length := r.ticks(ev.Length.Seconds(bpm))
	if length == 0 {
		length = 1
	}
	vel := uint8(math.Round(common.Clamp(ev.Velocity, 0, 1) * 127))
	if vel == 0 {
		vel = 1
	}

	for _, p := range ev.Pitches {
		n, err := music.ParsePitch(p)
		if err != nil {
			r.dropped++
			common.DebugWarn("midiout:", err)
			continue
		}
		r.notes[ev.Part] = append(r.notes[ev.Part], note{
			key:      uint8(n),
			velocity: vel,
			on:       on,
			off:      on + length,
		})
	}
}

func (r *Recorder) ticks(seconds float64) uint32 {
	if seconds <= 0 || math.IsNaN(seconds) {
		return 0
	}
	return uint32(math.Round(seconds * r.bpm / 60 * Resolution))
}

// Count returns the number of recorded notes.
func (r *Recorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, ns := range r.notes {
		n += len(ns)
	}
	return n
}

// Dropped returns how many pitches could not be parsed.
func (r *Recorder) Dropped() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dropped
}

// Reset discards everything recorded.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.order = nil
	r.notes = make(map[string][]note)
	r.dropped = 0
}

type timed struct {
	tick uint32
	off  bool
	msg  midi.Message
}

// Build assembles the recording: a tempo track followed by one track per
// part in order of first appearance.
func (r *Recorder) Build() (*smf.SMF, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	bpm := r.bpm
	if bpm <= 0 {
		bpm = 120
	}

	sm := smf.New()
	sm.TimeFormat = smf.MetricTicks(Resolution)

	var track0 smf.Track
	track0.Add(0, smf.MetaMeter(4, 4))
	track0.Add(0, smf.MetaTempo(bpm))
	track0.Close(0)
	if err := sm.Add(track0); err != nil {
		return nil, fmt.Errorf("midiout: adding tempo track: %w", err)
	}

	for _, part := range r.order {
		ch := r.channels[part]
		events := make([]timed, 0, 2*len(r.notes[part]))
		for _, n := range r.notes[part] {
			events = append(events,
				timed{tick: n.on, msg: midi.NoteOn(ch, n.key, n.velocity)},
				timed{tick: n.off, off: true, msg: midi.NoteOff(ch, n.key)},
			)
		}
		// Releases sort before attacks on the same tick so repeated notes
		// retrigger instead of being cut.
		sort.SliceStable(events, func(i, j int) bool {
			if events[i].tick != events[j].tick {
				return events[i].tick < events[j].tick
			}
			return events[i].off && !events[j].off
		})

		var track smf.Track
		track.Add(0, smf.MetaTrackSequenceName(part))
		var last uint32
		for _, ev := range events {
			track.Add(ev.tick-last, ev.msg)
			last = ev.tick
		}
		track.Close(0)
		if err := sm.Add(track); err != nil {
			return nil, fmt.Errorf("midiout: adding %s track: %w", part, err)
		}
	}
	return sm, nil
}

// WriteTo writes the recording as a Standard MIDI File.
func (r *Recorder) WriteTo(w io.Writer) (int64, error) {
	sm, err := r.Build()
	if err != nil {
		return 0, err
	}
	n, err := sm.WriteTo(w)
	if err != nil {
		return n, fmt.Errorf("midiout: writing: %w", err)
	}
	return n, nil
}

// WriteFile writes the recording to path.
func (r *Recorder) WriteFile(path string) error {
	sm, err := r.Build()
	if err != nil {
		return err
	}
	if err := sm.WriteFile(path); err != nil {
		return fmt.Errorf("midiout: writing %s: %w", path, err)
	}
	common.Debugf("midiout: wrote %d notes to %s", r.Count(), path)
	return nil
}

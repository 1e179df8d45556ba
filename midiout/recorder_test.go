package midiout

import (
	"bytes"
	"path/filepath"
	"testing"

	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/simukka/ucm-chill/engine"
	"github.com/simukka/ucm-chill/music"
)

func noteOns(tr smf.Track) (keys []uint8, chans []uint8, ticks []uint32) {
	var abs uint32
	for _, ev := range tr {
		abs += ev.Delta
		var ch, key, vel uint8
		if ev.Message.GetNoteOn(&ch, &key, &vel) {
			keys = append(keys, key)
			chans = append(chans, ch)
			ticks = append(ticks, abs)
		}
	}
	return
}

func TestRecorder_Build(t *testing.T) {
	r := NewRecorder(60)
	r.Note(engine.Event{Part: engine.PartMelody, Pitches: []string{"C4"}, Length: music.Quarter, Velocity: 1, At: 0, BPM: 60})
	r.Note(engine.Event{Part: engine.PartMelody, Pitches: []string{"E4"}, Length: music.Quarter, Velocity: 0.5, At: 1, BPM: 60})
	r.Note(engine.Event{Part: engine.PartChords, Pitches: []string{"C3", "G3", "E4"}, Length: music.Half, Velocity: 0.4, At: 0, BPM: 60})

	if r.Count() != 5 {
		t.Fatalf("Expected 5 notes, got %d", r.Count())
	}

	sm, err := r.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if len(sm.Tracks) != 3 {
		t.Fatalf("Expected 3 tracks, got %d", len(sm.Tracks))
	}

	keys, chans, ticks := noteOns(sm.Tracks[1])
	if len(keys) != 2 || keys[0] != 60 || keys[1] != 64 {
		t.Errorf("Expected melody keys [60 64], got %v", keys)
	}
	if chans[0] != 0 {
		t.Errorf("Expected melody on channel 0, got %d", chans[0])
	}
	// One second at 60 BPM is one quarter note
	if ticks[1] != Resolution {
		t.Errorf("Expected second note at tick %d, got %d", Resolution, ticks[1])
	}

	keys, chans, _ = noteOns(sm.Tracks[2])
	if len(keys) != 3 || chans[0] != 1 {
		t.Errorf("Expected a 3-note chord on channel 1, got %v on %v", keys, chans)
	}
}

func TestRecorder_RepeatedNoteRetriggers(t *testing.T) {
	r := NewRecorder(120)
	// Two sixteenths back to back: the first release lands on the second attack
	r.Note(engine.Event{Part: engine.PartAcid, Pitches: []string{"A1"}, Length: music.Sixteenth, Velocity: 1, At: 0, BPM: 120})
	r.Note(engine.Event{Part: engine.PartAcid, Pitches: []string{"A1"}, Length: music.Sixteenth, Velocity: 1, At: 0.125, BPM: 120})

	sm, err := r.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	var order []string
	for _, ev := range sm.Tracks[1] {
		var ch, key, vel uint8
		switch {
		case ev.Message.GetNoteOn(&ch, &key, &vel):
			order = append(order, "on")
		case ev.Message.GetNoteOff(&ch, &key, &vel):
			order = append(order, "off")
		}
	}
	want := []string{"on", "off", "on", "off"}
	if len(order) != len(want) {
		t.Fatalf("Expected %v, got %v", want, order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("Expected %v, got %v", want, order)
			break
		}
	}
}

func TestRecorder_DropsBadPitches(t *testing.T) {
	r := NewRecorder(90)
	r.Note(engine.Event{Part: engine.PartMelody, Pitches: []string{"H9", "C4"}, Length: music.Eighth, Velocity: 0.5})
	if r.Count() != 1 || r.Dropped() != 1 {
		t.Errorf("Expected 1 note and 1 dropped, got %d/%d", r.Count(), r.Dropped())
	}
}

func TestRecorder_TempoFromFirstEvent(t *testing.T) {
	r := NewRecorder(0)
	r.Note(engine.Event{Part: "drums", Pitches: []string{"C2"}, Length: music.Quarter, Velocity: 0, At: 0, BPM: 75})

	sm, err := r.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	var bpm float64
	for _, ev := range sm.Tracks[0] {
		if ev.Message.GetMetaTempo(&bpm) {
			break
		}
	}
	if bpm < 74.99 || bpm > 75.01 {
		t.Errorf("Expected tempo 75, got %v", bpm)
	}
	_, chans, _ := noteOns(sm.Tracks[1])
	if len(chans) != 1 || chans[0] != 3 {
		t.Errorf("Expected an unknown part on channel 3, got %v", chans)
	}
}

func TestRecorder_WriteRoundTrip(t *testing.T) {
	r := NewRecorder(72)
	for i := 0; i < 8; i++ {
		r.Note(engine.Event{Part: engine.PartMelody, Pitches: []string{"D4"}, Length: music.Eighth, Velocity: 0.7, At: float64(i) * 0.5, BPM: 72})
	}

	var buf bytes.Buffer
	if _, err := r.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo failed: %v", err)
	}
	sm, err := smf.ReadFrom(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("ReadFrom failed: %v", err)
	}
	if keys, _, _ := noteOns(sm.Tracks[1]); len(keys) != 8 {
		t.Errorf("Expected 8 notes after round trip, got %d", len(keys))
	}

	path := filepath.Join(t.TempDir(), "session.mid")
	if err := r.WriteFile(path); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	r.Reset()
	if r.Count() != 0 {
		t.Errorf("Expected empty recorder after Reset, got %d", r.Count())
	}
}

//go:build !js
// +build !js

package main

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/simukka/ucm-chill/engine"
)

func TestParseFlags_OnlyGivenParams(t *testing.T) {
	o, err := parseFlags([]string{"-energy", "80", "-auto-len", "3", "-seed", "7"})
	if err != nil {
		t.Fatalf("parseFlags failed: %v", err)
	}
	if len(o.params) != 2 {
		t.Errorf("Expected 2 explicit params, got %v", o.params)
	}
	if o.params[engine.Energy] != 80 || o.params[engine.AutoLength] != 3 {
		t.Errorf("Unexpected params %v", o.params)
	}
	if o.seed != 7 {
		t.Errorf("Expected seed 7, got %d", o.seed)
	}
}

func TestParseFlags_OfflineNeedsDuration(t *testing.T) {
	if _, err := parseFlags([]string{"-offline"}); err == nil {
		t.Error("Expected an error for -offline without -duration")
	}
}

func TestApplyParams_RejectsNaN(t *testing.T) {
	p := engine.NewParams()
	err := applyParams(p, map[engine.Param]float64{engine.Style: 60})
	if err != nil || p.Get(engine.Style) != 60 {
		t.Errorf("Expected style 60, got %v (%v)", p.Get(engine.Style), err)
	}
	err = applyParams(p, map[engine.Param]float64{engine.Energy: math.NaN()})
	if !errors.Is(err, engine.ErrInvalidValue) {
		t.Errorf("Expected ErrInvalidValue, got %v", err)
	}
}

func TestRun_OfflineWritesMIDI(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.mid")
	o, err := parseFlags([]string{"-offline", "-duration", "8s", "-energy", "100", "-acid", "-seed", "3", "-midi", path})
	if err != nil {
		t.Fatalf("parseFlags failed: %v", err)
	}
	if err := run(context.Background(), o); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("Expected a MIDI file: %v", err)
	}
	defer f.Close()
	s, err := smf.ReadFrom(f)
	if err != nil {
		t.Fatalf("ReadFrom failed: %v", err)
	}
	// Tempo track plus melody, chords and acid
	if len(s.Tracks) < 2 {
		t.Errorf("Expected note tracks, got %d tracks", len(s.Tracks))
	}
}

package engine

import (
	"errors"
	"math"
	"testing"
)

func TestNewParams_Defaults(t *testing.T) {
	p := NewParams()
	for _, name := range Names() {
		if got, want := p.Get(name), ParamRanges[name].Default; got != want {
			t.Errorf("%s: expected default %v, got %v", name, want, got)
		}
	}
}

func TestParamsSet_Clamps(t *testing.T) {
	tests := []struct {
		name  Param
		value float64
		want  float64
	}{
		{Energy, 150, 100},
		{Energy, -5, 0},
		{Volume, 6, 0},
		{Volume, -90, -60},
		{AutoLength, 0, 1},
		{AutoLength, 9, 5},
		{Nature, 42.5, 42.5},
	}
	for _, tt := range tests {
		p := NewParams()
		got, err := p.Set(tt.name, tt.value)
		if err != nil {
			t.Errorf("Set(%s, %v) failed: %v", tt.name, tt.value, err)
			continue
		}
		if got != tt.want || p.Get(tt.name) != tt.want {
			t.Errorf("Set(%s, %v): expected %v, got %v", tt.name, tt.value, tt.want, got)
		}
	}
}

func TestParamsSet_Errors(t *testing.T) {
	p := NewParams()
	if _, err := p.Set("tempo", 10); !errors.Is(err, ErrUnknownParam) {
		t.Errorf("Expected ErrUnknownParam, got %v", err)
	}
	for _, v := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		if _, err := p.Set(Energy, v); !errors.Is(err, ErrInvalidValue) {
			t.Errorf("Set(%v): expected ErrInvalidValue, got %v", v, err)
		}
	}
	if p.Get(Energy) != ParamRanges[Energy].Default {
		t.Error("Rejected values must not change the store")
	}
}

func TestParams_OnChangeOnlyWhenChanged(t *testing.T) {
	p := NewParams()
	var calls []float64
	p.OnChange(func(name Param, v float64) {
		if name == Energy {
			calls = append(calls, v)
		}
	})

	p.Set(Energy, 70)
	p.Set(Energy, 70)
	p.Set(Energy, 200)
	p.Set(Energy, 100)

	if len(calls) != 2 || calls[0] != 70 || calls[1] != 100 {
		t.Errorf("Expected notifications [70 100], got %v", calls)
	}
}

// Listeners may write back into the store without deadlocking.
func TestParams_ListenerReentry(t *testing.T) {
	p := NewParams()
	p.OnChange(func(name Param, v float64) {
		if name == Energy {
			p.Set(Creation, v)
		}
	})
	p.Set(Energy, 80)
	if p.Get(Creation) != 80 {
		t.Errorf("Expected creation 80, got %v", p.Get(Creation))
	}
}

func TestParams_NudgeAndNormalized(t *testing.T) {
	p := NewParams()
	p.Set(Volume, -30)
	if got := p.Normalized(Volume); !floatNear(got, 0.5, 1e-9) {
		t.Errorf("Expected 0.5, got %v", got)
	}
	if got, _ := p.Nudge(Volume, 100); got != 0 {
		t.Errorf("Nudge should clamp to 0, got %v", got)
	}
	if p.Normalized("missing") != 0 {
		t.Error("Unknown parameter should normalise to 0")
	}
}

func TestParams_SnapshotIsCopy(t *testing.T) {
	p := NewParams()
	snap := p.Snapshot()
	snap[Energy] = 99
	if p.Get(Energy) == 99 {
		t.Error("Snapshot must not alias the store")
	}
	if len(snap) != len(ParamRanges) {
		t.Errorf("Expected %d entries, got %d", len(ParamRanges), len(snap))
	}
}

func TestCurve(t *testing.T) {
	lin := Curve{Param: Energy, InMin: 0, InMax: 100, OutMin: 0.15, OutMax: 0.85}
	if got := lin.At(50); !floatNear(got, 0.5, 1e-9) {
		t.Errorf("Expected 0.5, got %v", got)
	}
	if got := lin.At(500); got != 0.85 {
		t.Errorf("Curve must clamp, got %v", got)
	}

	inv := Curve{Param: Nature, InMin: 0, InMax: 100, OutMin: 1, OutMax: 0.35}
	if got := inv.At(-10); got != 1 {
		t.Errorf("Inverted curve must clamp to 1, got %v", got)
	}

	exp := Curve{Param: Creation, InMin: 0, InMax: 100, OutMin: 400, OutMax: 8000, Exp: true}
	mid := exp.At(50)
	if !floatNear(mid, math.Sqrt(400*8000), 1e-6) {
		t.Errorf("Expected geometric midpoint, got %v", mid)
	}
}

func TestDefaultConfig_Valid(t *testing.T) {
	if err := DefaultConfig.Validate(); err != nil {
		t.Fatalf("DefaultConfig invalid: %v", err)
	}
}

func TestConfig_ValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"negative ramp", func(c *Config) { c.MasterRamp = -1 }},
		{"reverb above 1", func(c *Config) { c.ReverbMax = 1.5 }},
		{"bad subdivision", func(c *Config) { c.Melody.Every = "3x" }},
		{"bad oscillator", func(c *Config) { c.Chords.Voice.Oscillator = "noise" }},
		{"bad sustain", func(c *Config) { c.Acid.Voice.Envelope.Sustain = 2 }},
		{"unknown curve param", func(c *Config) { c.Melody.Density.Param = "tempo" }},
		{"empty digits", func(c *Config) { c.Digits = nil }},
		{"drift step order", func(c *Config) { c.Drift.MaxStep = 0.01 }},
		{"drift jitter", func(c *Config) { c.Drift.Jitter = 1 }},
		{"drone ratio", func(c *Config) { c.Drones = []DroneConfig{{Oscillator: Sine, Ratio: 0}} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig
			cfg.Drones = append([]DroneConfig(nil), DefaultConfig.Drones...)
			tt.mutate(&cfg)
			if err := cfg.Validate(); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

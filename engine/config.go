package engine

import (
	"fmt"

	"github.com/simukka/ucm-chill/music"
)

// OscType is an oscillator waveform.
type OscType string

const (
	Sine     OscType = "sine"
	Triangle OscType = "triangle"
	Sawtooth OscType = "sawtooth"
	Square   OscType = "square"
)

func (o OscType) valid() bool {
	switch o {
	case Sine, Triangle, Sawtooth, Square:
		return true
	}
	return false
}

// Envelope is an ADSR amplitude envelope. Times are seconds, Sustain is a
// level in [0, 1].
type Envelope struct {
	Attack  float64
	Decay   float64
	Sustain float64
	Release float64
}

// VoiceConfig describes a triggered voice.
type VoiceConfig struct {
	Oscillator OscType
	Envelope   Envelope
	VolumeDb   float64 // Voice level relative to the master bus
	FilterQ    float64 // Resonance of the voice filter; 0 disables it (acid voice only)
}

// Validate checks every option against its valid range.
func (v VoiceConfig) Validate() error {
	if !v.Oscillator.valid() {
		return fmt.Errorf("%w: oscillator %q", ErrInvalidConfig, v.Oscillator)
	}
	if err := v.Envelope.validate(); err != nil {
		return err
	}
	if v.VolumeDb > 12 || v.VolumeDb < -96 {
		return fmt.Errorf("%w: voice volume %f dB", ErrInvalidConfig, v.VolumeDb)
	}
	if v.FilterQ < 0 || v.FilterQ > 30 {
		return fmt.Errorf("%w: filter Q %f", ErrInvalidConfig, v.FilterQ)
	}
	return nil
}

func (e Envelope) validate() error {
	if e.Attack < 0 || e.Decay < 0 || e.Release < 0 {
		return fmt.Errorf("%w: negative envelope time %+v", ErrInvalidConfig, e)
	}
	if e.Sustain < 0 || e.Sustain > 1 {
		return fmt.Errorf("%w: sustain %f outside [0,1]", ErrInvalidConfig, e.Sustain)
	}
	return nil
}

// DroneConfig describes one continuously sounding pad oscillator.
type DroneConfig struct {
	Oscillator OscType
	Ratio      float64 // Multiple of the pad base frequency
	Attack     float64 // Seconds
	Release    float64 // Seconds
}

// Validate checks every option against its valid range.
func (d DroneConfig) Validate() error {
	if !d.Oscillator.valid() {
		return fmt.Errorf("%w: drone oscillator %q", ErrInvalidConfig, d.Oscillator)
	}
	if d.Ratio <= 0 {
		return fmt.Errorf("%w: drone ratio %f", ErrInvalidConfig, d.Ratio)
	}
	if d.Attack < 0 || d.Release < 0 {
		return fmt.Errorf("%w: drone envelope %f/%f", ErrInvalidConfig, d.Attack, d.Release)
	}
	return nil
}

// PartConfig describes one generative loop.
type PartConfig struct {
	Every    music.Subdivision // Tick period
	Length   music.Subdivision // Note length
	Density  Curve             // Probability of sounding on a tick
	Space    *Curve            // Optional density multiplier (the void control)
	Velocity Curve
	Voice    VoiceConfig
}

func (p PartConfig) validate(name string) error {
	if _, err := music.ParseSubdivision(string(p.Every)); err != nil {
		return fmt.Errorf("%w: part %s: %v", ErrInvalidConfig, name, err)
	}
	if _, err := music.ParseSubdivision(string(p.Length)); err != nil {
		return fmt.Errorf("%w: part %s: %v", ErrInvalidConfig, name, err)
	}
	for _, c := range []*Curve{&p.Density, p.Space, &p.Velocity} {
		if c == nil {
			continue
		}
		if _, ok := ParamRanges[c.Param]; !ok {
			return fmt.Errorf("%w: part %s curve on %q", ErrInvalidConfig, name, c.Param)
		}
	}
	if err := p.Voice.Validate(); err != nil {
		return fmt.Errorf("part %s: %w", name, err)
	}
	return nil
}

// DriftConfig bounds the automatic parameter random walk.
type DriftConfig struct {
	Params         []Param // Tracked parameters
	MinStep        float64 // Smallest nudge as a fraction of the range
	MaxStep        float64 // Largest nudge as a fraction of the range
	AutoMinMinutes float64 // Shortest interval between shifts
	AutoMaxMinutes float64 // Longest interval between shifts
	Jitter         float64 // Interval randomisation, fraction of autoLength
}

// Validate checks every option against its valid range.
func (d DriftConfig) Validate() error {
	if len(d.Params) == 0 {
		return fmt.Errorf("%w: drift tracks no parameters", ErrInvalidConfig)
	}
	for _, p := range d.Params {
		if _, ok := ParamRanges[p]; !ok {
			return fmt.Errorf("%w: drift parameter %q", ErrInvalidConfig, p)
		}
	}
	if d.MinStep < 0 || d.MaxStep < d.MinStep || d.MaxStep > 1 {
		return fmt.Errorf("%w: drift step %f..%f", ErrInvalidConfig, d.MinStep, d.MaxStep)
	}
	if d.AutoMinMinutes <= 0 || d.AutoMaxMinutes < d.AutoMinMinutes {
		return fmt.Errorf("%w: drift interval %f..%f min", ErrInvalidConfig, d.AutoMinMinutes, d.AutoMaxMinutes)
	}
	if d.Jitter < 0 || d.Jitter >= 1 {
		return fmt.Errorf("%w: drift jitter %f", ErrInvalidConfig, d.Jitter)
	}
	return nil
}

// Config holds every tunable of the engine.
type Config struct {
	// Master settings
	MasterRamp  float64 // Seconds for volume/filter/reverb ramps
	BPMRamp     float64 // Seconds for tempo ramps
	FilterMinHz float64 // Cutoff at creation = 0
	FilterMaxHz float64 // Cutoff at creation = 100
	ReverbMin   float64 // Wet at nature = 0
	ReverbMax   float64 // Wet at nature = 100

	// Drone pads
	Drones         []DroneConfig
	PadBaseMinHz   float64 // Base frequency at energy = 0 (for a 110 Hz preset root)
	PadBaseMaxHz   float64 // Base frequency at energy = 100
	PadLevelMinDb  float64 // Pad level at brightness = 0
	PadLevelMaxDb  float64 // Pad level at brightness = 100
	PadFreqRamp    float64 // Seconds
	PadLevelRamp   float64 // Seconds
	NaturalEvery   music.Subdivision
	DroneVoiceBase float64 // Pad root the base range is written for (Hz)

	// Generative parts
	Melody PartConfig
	Chords PartConfig
	Acid   PartConfig

	// Melody index sequence
	PhaseStep float64 // Accumulator increment per tick
	Digits    []int   // Chord index sequence

	// Auto mode
	Drift DriftConfig

	// Seed for every random stream; 0 picks one from the clock
	Seed uint32
}

// Validate checks every option against its valid range.
func (c Config) Validate() error {
	if c.MasterRamp < 0 || c.BPMRamp < 0 || c.PadFreqRamp < 0 || c.PadLevelRamp < 0 {
		return fmt.Errorf("%w: negative ramp time", ErrInvalidConfig)
	}
	if c.FilterMinHz <= 0 || c.FilterMaxHz < c.FilterMinHz {
		return fmt.Errorf("%w: filter range %f..%f Hz", ErrInvalidConfig, c.FilterMinHz, c.FilterMaxHz)
	}
	if c.ReverbMin < 0 || c.ReverbMax > 1 || c.ReverbMax < c.ReverbMin {
		return fmt.Errorf("%w: reverb range %f..%f", ErrInvalidConfig, c.ReverbMin, c.ReverbMax)
	}
	if c.PadBaseMinHz <= 0 || c.PadBaseMaxHz <= 0 || c.DroneVoiceBase <= 0 {
		return fmt.Errorf("%w: pad frequencies must be positive", ErrInvalidConfig)
	}
	for i, d := range c.Drones {
		if err := d.Validate(); err != nil {
			return fmt.Errorf("drone %d: %w", i, err)
		}
	}
	if _, err := music.ParseSubdivision(string(c.NaturalEvery)); err != nil {
		return fmt.Errorf("%w: natural drift: %v", ErrInvalidConfig, err)
	}
	if err := c.Melody.validate("melody"); err != nil {
		return err
	}
	if err := c.Chords.validate("chords"); err != nil {
		return err
	}
	if err := c.Acid.validate("acid"); err != nil {
		return err
	}
	if c.PhaseStep <= 0 {
		return fmt.Errorf("%w: phase step %f", ErrInvalidConfig, c.PhaseStep)
	}
	if len(c.Digits) == 0 {
		return fmt.Errorf("%w: empty digit sequence", ErrInvalidConfig)
	}
	return c.Drift.Validate()
}

// DefaultConfig is the quiet ambient tuning.
var DefaultConfig = Config{
	// Master settings
	MasterRamp:  0.5,
	BPMRamp:     2,
	FilterMinHz: 400,
	FilterMaxHz: 8000,
	ReverbMin:   0.1,
	ReverbMax:   0.85,

	// Drone pads: root, fifth and octave
	Drones: []DroneConfig{
		{Oscillator: Sine, Ratio: 1, Attack: 3, Release: 5},
		{Oscillator: Sine, Ratio: 1.5, Attack: 3, Release: 6},
		{Oscillator: Sine, Ratio: 2, Attack: 4, Release: 8},
	},
	PadBaseMinHz:   90,
	PadBaseMaxHz:   140,
	PadLevelMinDb:  -36,
	PadLevelMaxDb:  -10,
	PadFreqRamp:    4,
	PadLevelRamp:   3,
	NaturalEvery:   music.TwoBars,
	DroneVoiceBase: 110,

	Melody: PartConfig{
		Every:    music.Eighth,
		Length:   music.Quarter,
		Density:  Curve{Param: Energy, InMin: 0, InMax: 100, OutMin: 0.15, OutMax: 0.85},
		Space:    &Curve{Param: Nature, InMin: 0, InMax: 100, OutMin: 1, OutMax: 0.35},
		Velocity: Curve{Param: Brightness, InMin: 0, InMax: 100, OutMin: 0.25, OutMax: 0.95},
		Voice: VoiceConfig{
			Oscillator: Triangle,
			Envelope:   Envelope{Attack: 0.02, Decay: 0.4, Sustain: 0.3, Release: 1.6},
			VolumeDb:   -10,
		},
	},
	Chords: PartConfig{
		Every:    music.Bar,
		Length:   music.Half,
		Density:  Curve{Param: Creation, InMin: 0, InMax: 100, OutMin: 0.3, OutMax: 0.9},
		Space:    &Curve{Param: Nature, InMin: 0, InMax: 100, OutMin: 1, OutMax: 0.5},
		Velocity: Curve{Param: Brightness, InMin: 0, InMax: 100, OutMin: 0.2, OutMax: 0.6},
		Voice: VoiceConfig{
			Oscillator: Sine,
			Envelope:   Envelope{Attack: 1.2, Decay: 1, Sustain: 0.6, Release: 4},
			VolumeDb:   -14,
		},
	},
	Acid: PartConfig{
		Every:    music.Sixteenth,
		Length:   music.Sixteenth,
		Density:  Curve{Param: Energy, InMin: 0, InMax: 100, OutMin: 0.45, OutMax: 0.95},
		Velocity: Curve{Param: Creation, InMin: 0, InMax: 100, OutMin: 0.4, OutMax: 1},
		Voice: VoiceConfig{
			Oscillator: Sawtooth,
			Envelope:   Envelope{Attack: 0.005, Decay: 0.12, Sustain: 0.2, Release: 0.08},
			VolumeDb:   -12,
			FilterQ:    12,
		},
	},

	PhaseStep: 0.6180339887 * 3,
	Digits:    []int{3, 1, 4, 1, 5, 9, 2, 6, 5, 3, 5, 8, 9, 7, 9, 3},

	Drift: DriftConfig{
		Params:         []Param{Energy, Creation, Brightness, Nature},
		MinStep:        0.10,
		MaxStep:        0.20,
		AutoMinMinutes: 1,
		AutoMaxMinutes: 5,
		Jitter:         0.25,
	},
}

//go:build js

// Package web binds the engine to the browser: Tone.js for synthesis, DOM
// sliders and buttons for control, and a 2D canvas for the mandala.
package web

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gopherjs/gopherjs/js"

	"github.com/simukka/ucm-chill/common"
	"github.com/simukka/ucm-chill/engine"
	"github.com/simukka/ucm-chill/music"
)

// ErrToneMissing is returned when the Tone.js script is not on the page.
var ErrToneMissing = errors.New("web: Tone.js is not loaded")

// ToneConfig holds the fixed parts of the browser audio graph.
type ToneConfig struct {
	ReverbDecay    float64 // Seconds
	ReverbPreDelay float64 // Seconds
	InitialVolume  float64 // dB
	InitialCutoff  float64 // Hz
	FilterRolloff  int     // dB/octave: -12, -24, -48 or -96
}

// DefaultToneConfig matches the quiet ambient patch.
var DefaultToneConfig = ToneConfig{
	ReverbDecay:    8,
	ReverbPreDelay: 0.05,
	InitialVolume:  -18,
	InitialCutoff:  2000,
	FilterRolloff:  -24,
}

// ToneSynth implements engine.Synth on Tone.js. Every node is owned here;
// nothing lives in JS globals besides the Tone module itself.
type ToneSynth struct {
	cfg       ToneConfig
	tone      *js.Object
	filter    *js.Object
	reverb    *js.Object
	volume    *js.Object
	transport *ToneTransport
}

// NewToneSynth builds the master chain: voices -> lowpass -> reverb ->
// volume -> destination.
func NewToneSynth(cfg ToneConfig) (*ToneSynth, error) {
	tone := js.Global.Get("Tone")
	if tone == nil || tone == js.Undefined {
		return nil, ErrToneMissing
	}

	volume := tone.Get("Volume").New(cfg.InitialVolume)
	volume.Call("toDestination")

	reverb := tone.Get("Reverb").New(js.M{
		"decay":    cfg.ReverbDecay,
		"preDelay": cfg.ReverbPreDelay,
		"wet":      engine.DefaultConfig.ReverbMin,
	})
	reverb.Call("connect", volume)

	filter := tone.Get("Filter").New(js.M{
		"frequency": cfg.InitialCutoff,
		"type":      "lowpass",
		"rolloff":   cfg.FilterRolloff,
	})
	filter.Call("connect", reverb)

	s := &ToneSynth{
		cfg:    cfg,
		tone:   tone,
		filter: filter,
		reverb: reverb,
		volume: volume,
	}
	s.transport = &ToneTransport{tone: tone, obj: tone.Get("Transport")}
	common.Debug("web: Tone graph ready")
	return s, nil
}

var _ engine.Synth = (*ToneSynth)(nil)

// Resume unlocks the AudioContext. Browsers reject it outside a user
// gesture; the engine then reports the locked state and the next click
// retries.
func (s *ToneSynth) Resume(ctx context.Context) error {
	if s.tone.Get("context").Get("state").String() == "running" {
		return nil
	}

	done := make(chan error, 1)
	promise := s.tone.Call("start")
	promise.Call("then", func() {
		done <- nil
	}, func(err *js.Object) {
		done <- fmt.Errorf("web: Tone.start: %s", err.String())
	})

	select {
	case err := <-done:
		if err != nil {
			return err
		}
	case <-ctx.Done():
		return ctx.Err()
	}

	if state := s.tone.Get("context").Get("state").String(); state != "running" {
		return fmt.Errorf("web: audio context is %s", state)
	}
	return nil
}

// NewVoice creates a PolySynth. Resonant voices use MonoSynth cores so
// each note gets its own filter sweep.
func (s *ToneSynth) NewVoice(name string, cfg engine.VoiceConfig) (engine.Voice, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	opts := js.M{
		"oscillator": js.M{"type": string(cfg.Oscillator)},
		"envelope": js.M{
			"attack":  cfg.Envelope.Attack,
			"decay":   cfg.Envelope.Decay,
			"sustain": cfg.Envelope.Sustain,
			"release": cfg.Envelope.Release,
		},
	}
	core := s.tone.Get("Synth")
	if cfg.FilterQ > 0 {
		core = s.tone.Get("MonoSynth")
		opts["filter"] = js.M{"Q": cfg.FilterQ, "type": "lowpass", "rolloff": -24}
		opts["filterEnvelope"] = js.M{
			"attack":        0.001,
			"decay":         cfg.Envelope.Decay,
			"sustain":       0.1,
			"release":       cfg.Envelope.Release,
			"baseFrequency": 200,
			"octaves":       3.5,
		}
	}
	poly := s.tone.Get("PolySynth").New(core, opts)
	poly.Get("volume").Set("value", cfg.VolumeDb)
	poly.Call("connect", s.filter)
	common.Debug("web: voice", name, "ready")
	return &toneVoice{obj: poly}, nil
}

// NewDrone creates a stopped oscillator behind an amplitude envelope and a
// level gain.
func (s *ToneSynth) NewDrone(cfg engine.DroneConfig) (engine.Drone, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	level := s.tone.Get("Gain").New(0)
	level.Call("connect", s.filter)
	env := s.tone.Get("AmplitudeEnvelope").New(js.M{
		"attack":  cfg.Attack,
		"decay":   0.1,
		"sustain": 1,
		"release": cfg.Release,
	})
	env.Call("connect", level)
	osc := s.tone.Get("Oscillator").New(engine.DefaultConfig.DroneVoiceBase*cfg.Ratio, string(cfg.Oscillator))
	osc.Call("connect", env)
	return &toneDrone{osc: osc, env: env, level: level}, nil
}

// Transport returns the Tone transport wrapper.
func (s *ToneSynth) Transport() engine.Transport { return s.transport }

// SetMaster ramps volume, cutoff and reverb mix.
func (s *ToneSynth) SetMaster(m engine.MasterSettings, ramp time.Duration) {
	sec := ramp.Seconds()
	if sec <= 0 {
		s.volume.Get("volume").Set("value", m.VolumeDb)
		s.filter.Get("frequency").Set("value", m.CutoffHz)
		s.reverb.Get("wet").Set("value", m.ReverbWet)
		return
	}
	s.volume.Get("volume").Call("rampTo", m.VolumeDb, sec)
	s.filter.Get("frequency").Call("rampTo", m.CutoffHz, sec)
	s.reverb.Get("wet").Call("rampTo", m.ReverbWet, sec)
}

type toneVoice struct {
	obj *js.Object
}

func (v *toneVoice) TriggerAttackRelease(pitches []string, length music.Subdivision, at, velocity float64) {
	v.obj.Call("triggerAttackRelease", pitches, string(length), at, velocity)
}

type toneDrone struct {
	osc     *js.Object
	env     *js.Object
	level   *js.Object
	started bool
}

func (d *toneDrone) Start() {
	if !d.started {
		d.osc.Call("start")
		d.started = true
	}
	d.env.Call("triggerAttack")
}

func (d *toneDrone) Stop() {
	d.env.Call("triggerRelease")
}

func (d *toneDrone) Ramp(freqHz, levelDb float64, ramp time.Duration) {
	sec := ramp.Seconds()
	d.osc.Get("frequency").Call("rampTo", freqHz, sec)
	d.level.Get("gain").Call("rampTo", common.DbToGain(levelDb), sec)
}

// ToneTransport wraps Tone.Transport.
type ToneTransport struct {
	tone *js.Object
	obj  *js.Object
}

func (t *ToneTransport) Start() { t.obj.Call("start") }
func (t *ToneTransport) Stop()  { t.obj.Call("stop") }

func (t *ToneTransport) SetBPM(bpm float64, ramp time.Duration) {
	if sec := ramp.Seconds(); sec > 0 {
		t.obj.Get("bpm").Call("rampTo", bpm, sec)
		return
	}
	t.obj.Get("bpm").Set("value", bpm)
}

func (t *ToneTransport) BPM() float64 {
	return t.obj.Get("bpm").Get("value").Float()
}

// Every creates a stopped Tone.Loop.
func (t *ToneTransport) Every(sub music.Subdivision, fn func(at float64)) engine.Loop {
	loop := t.tone.Get("Loop").New(func(at float64) {
		fn(at)
	}, string(sub))
	return &toneLoop{obj: loop}
}

type toneLoop struct {
	obj *js.Object
}

func (l *toneLoop) Start(offset float64) { l.obj.Call("start", offset) }
func (l *toneLoop) Stop()                { l.obj.Call("stop") }

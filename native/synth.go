// Package native renders the engine headless: voices, drones, the master
// bus and the transport clock all run off the audio sample clock, and the
// mixed stream goes to the sound card through oto.
package native

import (
	"context"
	"fmt"
	"io"
	"math"
	"sync"
	"time"

	"github.com/simukka/ucm-chill/common"
	"github.com/simukka/ucm-chill/engine"
	"github.com/simukka/ucm-chill/music"
)

const (
	SampleRate   = 44100
	ChannelCount = 2
	frameBytes   = 8 // Two float32 LE samples
)

// Config tunes the native renderer.
type Config struct {
	SampleRate  int
	BlockFrames int     // Frames rendered between transport ticks
	MaxNotes    int     // Polyphony cap across all voices
	ReverbRoom  float64 // Comb feedback
	ReverbDamp  float64
	Headroom    float64 // Gain applied before saturation
}

// DefaultConfig is tuned for 44.1 kHz stereo.
var DefaultConfig = Config{
	SampleRate:  SampleRate,
	BlockFrames: 256,
	MaxNotes:    48,
	ReverbRoom:  0.84,
	ReverbDamp:  0.2,
	Headroom:    0.8,
}

// Validate checks every option against its valid range.
func (c Config) Validate() error {
	if c.SampleRate < 8000 {
		return fmt.Errorf("native: sample rate %d too low", c.SampleRate)
	}
	if c.BlockFrames < 1 || c.MaxNotes < 1 {
		return fmt.Errorf("native: block %d / notes %d must be positive", c.BlockFrames, c.MaxNotes)
	}
	if c.ReverbRoom < 0 || c.ReverbRoom >= 1 || c.ReverbDamp < 0 || c.ReverbDamp > 1 {
		return fmt.Errorf("native: reverb room %f damp %f", c.ReverbRoom, c.ReverbDamp)
	}
	return nil
}

// Output plays a sample stream. Start may block until the device is ready.
type Output interface {
	Start(ctx context.Context, r io.Reader) error
	Close() error
}

// Synth is an engine.Synth rendering float32 stereo frames. Without an
// Output it can be driven offline through Read.
type Synth struct {
	mu     sync.Mutex
	cfg    Config
	sr     float64
	out    Output
	frame  int64 // Sample clock
	played bool

	voices []*Voice
	drones []*Drone
	tr     *Transport
	timers []*sampleTimer

	volume ramp // Master gain
	cutoff ramp // Master lowpass Hz
	wet    ramp // Reverb mix
	lp     onePole
	reverb *reverb
	peak   float64
}

// NewSynth creates a synth. out may be nil for offline rendering.
func NewSynth(cfg Config, out Output) (*Synth, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &Synth{
		cfg:    cfg,
		sr:     float64(cfg.SampleRate),
		out:    out,
		volume: newRamp(common.DbToGain(engine.ParamRanges[engine.Volume].Default)),
		cutoff: newRamp(engine.DefaultConfig.FilterMaxHz),
		wet:    newRamp(engine.DefaultConfig.ReverbMin),
		reverb: newReverb(float64(cfg.SampleRate), cfg.ReverbRoom, cfg.ReverbDamp),
	}
	s.tr = &Transport{s: s, bpm: newRamp(120)}
	return s, nil
}

var _ engine.Synth = (*Synth)(nil)

// Resume starts the output device once. Offline synths resume immediately.
func (s *Synth) Resume(ctx context.Context) error {
	s.mu.Lock()
	if s.played || s.out == nil {
		s.played = true
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	if err := s.out.Start(ctx, s); err != nil {
		return fmt.Errorf("native: starting output: %w", err)
	}
	s.mu.Lock()
	s.played = true
	s.mu.Unlock()
	common.Debug("native: output started")
	return nil
}

// Close releases the output device.
func (s *Synth) Close() error {
	if s.out == nil {
		return nil
	}
	return s.out.Close()
}

// NewVoice creates a triggered voice.
func (s *Synth) NewVoice(name string, cfg engine.VoiceConfig) (engine.Voice, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	v := &Voice{s: s, name: name, cfg: cfg, gain: common.DbToGain(cfg.VolumeDb)}
	s.mu.Lock()
	s.voices = append(s.voices, v)
	s.mu.Unlock()
	return v, nil
}

// NewDrone creates a stopped drone.
func (s *Synth) NewDrone(cfg engine.DroneConfig) (engine.Drone, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	d := &Drone{s: s, cfg: cfg, freq: newRamp(110), level: newRamp(0)}
	s.mu.Lock()
	s.drones = append(s.drones, d)
	s.mu.Unlock()
	return d, nil
}

// Transport returns the shared clock.
func (s *Synth) Transport() engine.Transport { return s.tr }

// SetMaster ramps the output bus.
func (s *Synth) SetMaster(m engine.MasterSettings, r time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.samples(r)
	s.volume.set(common.DbToGain(m.VolumeDb), n)
	s.cutoff.set(m.CutoffHz, n)
	s.wet.set(common.Clamp(m.ReverbWet, 0, 1), n)
}

func (s *Synth) samples(d time.Duration) int {
	return int(d.Seconds() * s.sr)
}

// Now returns the sample clock in seconds.
func (s *Synth) Now() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return float64(s.frame) / s.sr
}

// Peak returns the largest absolute sample rendered so far.
func (s *Synth) Peak() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.peak
}

// ActiveNotes returns how many notes are sounding or scheduled.
func (s *Synth) ActiveNotes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, v := range s.voices {
		n += len(v.notes)
	}
	return n
}

// Read renders whole frames into p. Transport callbacks run between blocks
// with the synth unlocked, so they may trigger voices.
func (s *Synth) Read(p []byte) (int, error) {
	frames := len(p) / frameBytes
	done := 0
	for done < frames {
		n := s.cfg.BlockFrames
		if n > frames-done {
			n = frames - done
		}

		s.mu.Lock()
		timers := s.dueTimersLocked(n)
		ticks := s.tr.due(n)
		s.mu.Unlock()
		for _, fn := range timers {
			fn()
		}
		for _, fn := range ticks {
			fn()
		}

		s.mu.Lock()
		s.renderLocked(p[done*frameBytes:], n)
		s.mu.Unlock()
		done += n
	}
	return frames * frameBytes, nil
}

// Render advances an offline synth by the given seconds, discarding the
// audio. Loops still fire, so note sinks observe the whole span.
func (s *Synth) Render(seconds float64) {
	frames := int(seconds * s.sr)
	buf := make([]byte, s.cfg.BlockFrames*16*frameBytes)
	for frames > 0 {
		n := len(buf) / frameBytes
		if n > frames {
			n = frames
		}
		s.Read(buf[:n*frameBytes])
		frames -= n
	}
}

func (s *Synth) renderLocked(buf []byte, n int) {
	for i := 0; i < n; i++ {
		now := float64(s.frame) / s.sr
		var dry float64
		for _, d := range s.drones {
			dry += d.sample()
		}
		for _, v := range s.voices {
			dry += v.sample(now)
		}

		x := s.lp.process(dry, s.cutoff.next(), s.sr)
		wet := s.wet.next()
		x = x*(1-wet) + s.reverb.process(x)*wet
		x = softSat(x * s.volume.next() * s.cfg.Headroom)
		if a := math.Abs(x); a > s.peak {
			s.peak = a
		}
		putStereoF32(buf, i, x)

		s.tr.advanceLocked()
		s.frame++
	}
	for _, v := range s.voices {
		v.prune(float64(s.frame) / s.sr)
	}
}

// Voice is a polyphonic triggered voice.
type Voice struct {
	s     *Synth
	name  string
	cfg   engine.VoiceConfig
	gain  float64
	notes []*voiceNote
}

type voiceNote struct {
	freq     float64
	start    float64 // Seconds on the synth clock
	gate     float64 // Seconds held
	velocity float64
	phase    float64
	filter   svf
}

// TriggerAttackRelease schedules pitches. Times in the past start now.
func (v *Voice) TriggerAttackRelease(pitches []string, length music.Subdivision, at, velocity float64) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()

	gate := length.Seconds(v.s.tr.bpm.value)
	if now := float64(v.s.frame) / v.s.sr; at < now {
		at = now
	}
	for _, p := range pitches {
		n, err := music.ParsePitch(p)
		if err != nil {
			common.DebugWarn("native: voice", v.name, err)
			continue
		}
		if v.s.noteCountLocked() >= v.s.cfg.MaxNotes {
			common.DebugWarn("native: polyphony cap reached, dropping", p)
			return
		}
		v.notes = append(v.notes, &voiceNote{
			freq:     n.Frequency(),
			start:    at,
			gate:     gate,
			velocity: common.Clamp(velocity, 0, 1),
		})
	}
}

func (s *Synth) noteCountLocked() int {
	n := 0
	for _, v := range s.voices {
		n += len(v.notes)
	}
	return n
}

func (v *Voice) sample(now float64) float64 {
	var out float64
	for _, n := range v.notes {
		t := now - n.start
		if t < 0 {
			continue
		}
		env := envelopeAt(v.cfg.Envelope, t, n.gate)
		x := oscillator(v.cfg.Oscillator, n.phase)
		n.phase = advancePhase(n.phase, n.freq, v.s.sr)
		if v.cfg.FilterQ > 0 {
			x = n.filter.process(x, v.s.cutoff.value*(0.5+2*env), v.cfg.FilterQ, v.s.sr)
		}
		out += x * env * n.velocity
	}
	return out * v.gain
}

// prune drops notes whose release has finished.
func (v *Voice) prune(now float64) {
	kept := v.notes[:0]
	for _, n := range v.notes {
		if now < n.start+n.gate+v.cfg.Envelope.Release {
			kept = append(kept, n)
		}
	}
	for i := len(kept); i < len(v.notes); i++ {
		v.notes[i] = nil
	}
	v.notes = kept
}

// Drone is a continuously sounding oscillator with a slow gate.
type Drone struct {
	s     *Synth
	cfg   engine.DroneConfig
	freq  ramp
	level ramp // Linear gain
	gate  ramp
	phase float64
}

// Start fades the drone in over its attack.
func (d *Drone) Start() {
	d.s.mu.Lock()
	defer d.s.mu.Unlock()
	d.gate.set(1, int(d.cfg.Attack*d.s.sr))
}

// Stop fades the drone out over its release.
func (d *Drone) Stop() {
	d.s.mu.Lock()
	defer d.s.mu.Unlock()
	d.gate.set(0, int(d.cfg.Release*d.s.sr))
}

// Ramp glides frequency and level.
func (d *Drone) Ramp(freqHz, levelDb float64, r time.Duration) {
	d.s.mu.Lock()
	defer d.s.mu.Unlock()
	n := d.s.samples(r)
	d.freq.set(freqHz, n)
	d.level.set(common.DbToGain(levelDb), n)
}

func (d *Drone) sample() float64 {
	g := d.gate.next()
	f := d.freq.next()
	l := d.level.next()
	if g == 0 {
		return 0
	}
	x := oscillator(d.cfg.Oscillator, d.phase)
	d.phase = advancePhase(d.phase, f, d.s.sr)
	return x * g * l
}

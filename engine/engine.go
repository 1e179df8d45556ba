package engine

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/simukka/ucm-chill/common"
	"github.com/simukka/ucm-chill/music"
)

// RunState is the coarse playback state. The acid layer and auto mode are
// overlay flags on top of it.
type RunState int

const (
	Stopped RunState = iota
	Playing
)

func (s RunState) String() string {
	switch s {
	case Stopped:
		return "Stopped"
	case Playing:
		return "Playing"
	default:
		return "Unknown"
	}
}

// Status messages shown while not playing.
const (
	StatusStopped  = "Stopped"
	StatusStarting = "Starting"
	StatusLocked   = "Tap Start again to enable audio"
)

// Loop names.
const (
	PartMelody  = "melody"
	PartChords  = "chords"
	PartAcid    = "acid"
	PartNatural = "natural"
)

// baseLoops run whenever the engine plays; the acid loop follows its overlay.
var baseLoops = []string{PartMelody, PartChords, PartNatural}

// Option configures an Engine.
type Option func(*Engine)

// WithRand makes every random stream draw from rng.
func WithRand(rng common.Rand) Option {
	return func(e *Engine) { e.rng = rng }
}

// WithScheduler replaces the wall-clock timer source used by auto-drift.
func WithScheduler(s Scheduler) Option {
	return func(e *Engine) { e.sched = s }
}

// WithStatus registers a callback receiving every status change.
func WithStatus(fn func(status string)) Option {
	return func(e *Engine) { e.onStatus = fn }
}

// WithSink adds an observer of every emitted note event.
func WithSink(s NoteSink) Option {
	return func(e *Engine) { e.sinks = append(e.sinks, s) }
}

// Engine owns the audio graph and runs the generative loops. All control
// surfaces (sliders, buttons, drift) go through its methods and the shared
// Params store.
type Engine struct {
	mu       sync.Mutex
	cfg      Config
	synth    Synth
	params   *Params
	rng      common.Rand
	sched    Scheduler
	onStatus func(string)
	sinks    []NoteSink
	seed     uint32

	state       RunState
	starting    bool
	cancelStart context.CancelFunc
	acid        bool
	auto        bool
	status      string

	// Audio graph, built once on the first successful start
	built     bool
	transport Transport
	drones    []Drone
	gens      map[string]*Generator
	loops     map[string]Loop
	active    map[string]bool

	drift *Drift
}

// New creates a stopped engine. A nil params gets a fresh default store.
func New(synth Synth, params *Params, cfg Config, opts ...Option) (*Engine, error) {
	if synth == nil {
		return nil, fmt.Errorf("%w: nil synth", ErrInvalidConfig)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if params == nil {
		params = NewParams()
	}
	e := &Engine{
		cfg:    cfg,
		synth:  synth,
		params: params,
		sched:  SystemScheduler{},
		status: StatusStopped,
		active: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(e)
	}

	e.seed = cfg.Seed
	if e.seed == 0 {
		e.seed = common.NewTimeSeededRNG().Seed()
	}
	e.drift = NewDrift(cfg.Drift, params, e.stream(3), e.sched)
	params.OnChange(e.onParam)

	common.Debugf("engine: created (seed %d)", e.seed)
	return e, nil
}

// stream returns the injected rng, or an independent seeded stream.
func (e *Engine) stream(n int) common.Rand {
	if e.rng != nil {
		return e.rng
	}
	return common.NewSeededRNG(common.StreamSeed(e.seed, n))
}

// Params returns the parameter store the engine reads.
func (e *Engine) Params() *Params { return e.params }

// Drift returns the auto-drift task.
func (e *Engine) Drift() *Drift { return e.drift }

// State returns the current run state.
func (e *Engine) State() RunState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Acid reports whether the acid overlay is on.
func (e *Engine) Acid() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.acid
}

// Auto reports whether auto mode is on.
func (e *Engine) Auto() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.auto
}

// Preset returns the preset the style parameter currently selects.
func (e *Engine) Preset() *music.Preset {
	return music.PresetForStyle(e.params.Get(Style))
}

// TargetBPM maps energy onto the active preset's tempo range.
func (e *Engine) TargetBPM() float64 {
	p := e.Preset()
	return common.MapClamped(e.params.Get(Energy), 0, 100, p.MinBPM, p.MaxBPM)
}

// Master returns the output bus settings for the current parameters.
func (e *Engine) Master() MasterSettings {
	return MasterSettings{
		VolumeDb:  e.params.Get(Volume),
		CutoffHz:  common.Clamp(common.MapExp(e.params.Get(Creation), 0, 100, e.cfg.FilterMinHz, e.cfg.FilterMaxHz), e.cfg.FilterMinHz, e.cfg.FilterMaxHz),
		ReverbWet: common.MapClamped(e.params.Get(Nature), 0, 100, e.cfg.ReverbMin, e.cfg.ReverbMax),
	}
}

// PadBase returns the drone root frequency for the current energy and preset.
func (e *Engine) PadBase() float64 {
	base := common.MapClamped(e.params.Get(Energy), 0, 100, e.cfg.PadBaseMinHz, e.cfg.PadBaseMaxHz)
	return base * e.Preset().PadRootHz / e.cfg.DroneVoiceBase
}

// PadLevel returns the drone level in dB for the current brightness.
func (e *Engine) PadLevel() float64 {
	return common.MapClamped(e.params.Get(Brightness), 0, 100, e.cfg.PadLevelMinDb, e.cfg.PadLevelMaxDb)
}

// Start resumes audio output and begins playback. It is a no-op while
// playing or while another Start is waiting on the audio output. If the
// output stays locked the engine remains stopped and the returned error
// wraps ErrAudioLocked. Stop called during the wait cancels the start.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.state == Playing || e.starting {
		e.mu.Unlock()
		return nil
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	e.starting = true
	e.cancelStart = cancel
	e.status = StatusStarting
	e.mu.Unlock()
	e.publish()

	err := e.synth.Resume(ctx)

	e.mu.Lock()
	e.starting = false
	e.cancelStart = nil
	if ctx.Err() != nil {
		e.status = StatusStopped
		e.mu.Unlock()
		e.publish()
		common.Debug("engine: start cancelled")
		return fmt.Errorf("engine: start cancelled: %w", ctx.Err())
	}
	if err != nil {
		e.status = StatusLocked
		e.mu.Unlock()
		e.publish()
		common.DebugWarn("engine: audio resume failed:", err)
		return fmt.Errorf("%w: %v", ErrAudioLocked, err)
	}
	if err := e.buildLocked(); err != nil {
		e.status = StatusStopped
		e.mu.Unlock()
		e.publish()
		common.DebugError("engine: building audio graph:", err)
		return err
	}

	for _, d := range e.drones {
		d.Start()
	}
	for _, name := range baseLoops {
		e.startLoopLocked(name)
	}
	if e.acid {
		e.startLoopLocked(PartAcid)
	}
	e.applyAllLocked()
	e.transport.Start()
	e.state = Playing
	auto := e.auto
	e.status = e.statusLocked()
	e.mu.Unlock()

	if auto {
		e.drift.Start()
	}
	e.publish()
	common.Debug("engine: started")
	return nil
}

// Stop halts playback and cancels auto-drift. The audio graph is kept for
// the next Start. Stopping a stopped engine is a no-op.
func (e *Engine) Stop() {
	e.mu.Lock()
	if e.starting {
		if e.cancelStart != nil {
			e.cancelStart()
		}
		e.mu.Unlock()
		return
	}
	if e.state != Playing {
		e.mu.Unlock()
		return
	}
	e.transport.Stop()
	for name := range e.loops {
		e.stopLoopLocked(name)
	}
	for _, d := range e.drones {
		d.Stop()
	}
	e.state = Stopped
	e.status = StatusStopped
	e.mu.Unlock()

	e.drift.Stop()
	e.publish()
	common.Debug("engine: stopped")
}

// SetAcid turns the acid overlay on or off. While stopped the flag is
// remembered for the next Start.
func (e *Engine) SetAcid(on bool) {
	e.mu.Lock()
	if e.acid == on {
		e.mu.Unlock()
		return
	}
	e.acid = on
	if e.state == Playing {
		if on {
			e.startLoopLocked(PartAcid)
		} else {
			e.stopLoopLocked(PartAcid)
		}
		e.status = e.statusLocked()
	}
	e.mu.Unlock()
	e.publish()
	common.Debug("engine: acid", on)
}

// ToggleAcid flips the acid overlay and returns the new value.
func (e *Engine) ToggleAcid() bool {
	on := !e.Acid()
	e.SetAcid(on)
	return on
}

// SetAuto turns auto mode on or off. While stopped the flag is remembered
// and drift starts with playback.
func (e *Engine) SetAuto(on bool) {
	e.mu.Lock()
	if e.auto == on {
		e.mu.Unlock()
		return
	}
	e.auto = on
	playing := e.state == Playing
	if playing {
		e.status = e.statusLocked()
	}
	e.mu.Unlock()

	if playing {
		if on {
			e.drift.Start()
		} else {
			e.drift.Stop()
		}
	}
	e.publish()
	common.Debug("engine: auto", on)
}

// ToggleAuto flips auto mode and returns the new value.
func (e *Engine) ToggleAuto() bool {
	on := !e.Auto()
	e.SetAuto(on)
	return on
}

// ActiveLoops returns how many loop handles are started.
func (e *Engine) ActiveLoops() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for _, on := range e.active {
		if on {
			n++
		}
	}
	return n
}

// LoopActive reports whether the named loop is started.
func (e *Engine) LoopActive(name string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.active[name]
}

// Generator returns the named part, or nil before the first start.
func (e *Engine) Generator(name string) *Generator {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.gens[name]
}

// Status returns the current status line.
func (e *Engine) Status() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

func (e *Engine) statusLocked() string {
	if e.state != Playing {
		return e.status
	}
	parts := []string{
		e.state.String(),
		music.StyleFor(e.params.Get(Style)).String(),
		fmt.Sprintf("%d BPM", int(math.Round(e.TargetBPM()))),
	}
	if e.acid {
		parts = append(parts, "acid")
	}
	if e.auto {
		parts = append(parts, "auto")
	}
	return strings.Join(parts, " · ")
}

func (e *Engine) publish() {
	if e.onStatus == nil {
		return
	}
	e.onStatus(e.Status())
}

func (e *Engine) buildLocked() error {
	if e.built {
		return nil
	}
	e.transport = e.synth.Transport()

	parts := []struct {
		name     string
		cfg      PartConfig
		source   Source
		selector Selector
	}{
		{PartMelody, e.cfg.Melody, ScaleSource, NewPhaseSelector(e.cfg.PhaseStep)},
		{PartChords, e.cfg.Chords, ChordSource, NewDigitSelector(e.cfg.Digits)},
		{PartAcid, e.cfg.Acid, BassSource, NewRandomSelector(e.stream(4))},
	}

	gens := make(map[string]*Generator, len(parts))
	loops := make(map[string]Loop, len(parts)+1)
	for i, p := range parts {
		voice, err := e.synth.NewVoice(p.name, p.cfg.Voice)
		if err != nil {
			return fmt.Errorf("engine: voice %s: %w", p.name, err)
		}
		g := NewGenerator(GeneratorOptions{
			Name:     p.name,
			Config:   p.cfg,
			Params:   e.params,
			Rand:     e.stream(i),
			Selector: p.selector,
			Source:   p.source,
			Preset:   e.Preset,
			BPM:      e.transport.BPM,
			Voice:    voice,
			Sinks:    e.sinks,
		})
		gens[p.name] = g
		loops[p.name] = e.transport.Every(p.cfg.Every, func(at float64) { g.Tick(at) })
	}

	drones := make([]Drone, 0, len(e.cfg.Drones))
	for i, dc := range e.cfg.Drones {
		d, err := e.synth.NewDrone(dc)
		if err != nil {
			return fmt.Errorf("engine: drone %d: %w", i, err)
		}
		drones = append(drones, d)
	}
	loops[PartNatural] = e.transport.Every(e.cfg.NaturalEvery, func(float64) {
		e.rampPads(seconds(e.cfg.PadFreqRamp))
	})

	e.gens = gens
	e.loops = loops
	e.drones = drones
	e.built = true
	common.Debugf("engine: audio graph built (%d loops, %d drones)", len(loops), len(drones))
	return nil
}

func (e *Engine) startLoopLocked(name string) {
	l, ok := e.loops[name]
	if !ok || e.active[name] {
		return
	}
	l.Start(0)
	e.active[name] = true
}

func (e *Engine) stopLoopLocked(name string) {
	l, ok := e.loops[name]
	if !ok || !e.active[name] {
		return
	}
	l.Stop()
	e.active[name] = false
}

func (e *Engine) applyAllLocked() {
	e.synth.SetMaster(e.Master(), 0)
	e.transport.SetBPM(e.TargetBPM(), 0)
	e.rampPads(seconds(e.cfg.PadFreqRamp))
}

// rampPads glides every drone to the current pad base and level. It reads
// only immutable graph state so loop callbacks may call it unlocked.
func (e *Engine) rampPads(ramp time.Duration) {
	base := e.PadBase()
	level := e.PadLevel()
	for i, d := range e.drones {
		d.Ramp(base*e.cfg.Drones[i].Ratio, level, ramp)
	}
}

// onParam applies a committed parameter change to the running graph.
// Values changed while stopped are applied by the next Start.
func (e *Engine) onParam(name Param, value float64) {
	e.mu.Lock()
	if e.state != Playing {
		e.mu.Unlock()
		return
	}
	switch name {
	case Volume, Creation, Nature:
		e.synth.SetMaster(e.Master(), seconds(e.cfg.MasterRamp))
	case Energy:
		e.transport.SetBPM(e.TargetBPM(), seconds(e.cfg.BPMRamp))
	case Style:
		e.transport.SetBPM(e.TargetBPM(), seconds(e.cfg.BPMRamp))
		e.rampPads(seconds(e.cfg.PadFreqRamp))
	case Brightness:
		e.rampPads(seconds(e.cfg.PadLevelRamp))
	}
	e.status = e.statusLocked()
	e.mu.Unlock()

	common.Debugf("engine: %s = %.1f", name, value)
	if name == Energy || name == Style {
		e.publish()
	}
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

package engine

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/simukka/ucm-chill/common"
)

var (
	ErrAudioLocked   = errors.New("engine: audio output is locked until a user gesture")
	ErrUnknownParam  = errors.New("engine: unknown parameter")
	ErrInvalidValue  = errors.New("engine: invalid parameter value")
	ErrInvalidConfig = errors.New("engine: invalid config")
)

// Param names one slider-controlled value.
type Param string

const (
	Energy     Param = "energy"
	Creation   Param = "creation"
	Brightness Param = "brightness"
	Nature     Param = "nature"
	Style      Param = "style"
	Volume     Param = "volume"
	AutoLength Param = "autoLength"
)

// Range is the declared domain of a parameter.
type Range struct {
	Min, Max, Default float64
}

// Span returns Max - Min.
func (r Range) Span() float64 { return r.Max - r.Min }

// ParamRanges lists every recognised parameter with its declared range.
var ParamRanges = map[Param]Range{
	Energy:     {Min: 0, Max: 100, Default: 30},
	Creation:   {Min: 0, Max: 100, Default: 50},
	Brightness: {Min: 0, Max: 100, Default: 40},
	Nature:     {Min: 0, Max: 100, Default: 40},
	Style:      {Min: 0, Max: 100, Default: 0},
	Volume:     {Min: -60, Max: 0, Default: -18},
	AutoLength: {Min: 1, Max: 5, Default: 2},
}

// paramOrder fixes iteration order for snapshots and UI binding.
var paramOrder = []Param{Energy, Creation, Brightness, Nature, Style, Volume, AutoLength}

// Names returns every parameter in display order.
func Names() []Param {
	return append([]Param(nil), paramOrder...)
}

// ChangeFunc observes a committed parameter change.
type ChangeFunc func(name Param, value float64)

// Params is the parameter store. Every value stays clamped to its declared
// range; Set is the only mutation path, for slider input and drift alike.
type Params struct {
	mu        sync.RWMutex
	values    map[Param]float64
	listeners []ChangeFunc
}

// NewParams creates a store holding the default value of every parameter.
func NewParams() *Params {
	p := &Params{values: make(map[Param]float64, len(ParamRanges))}
	for name, r := range ParamRanges {
		p.values[name] = r.Default
	}
	return p
}

// Get returns the current value, or 0 for an unknown name.
func (p *Params) Get(name Param) float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.values[name]
}

// Normalized returns the current value scaled into [0, 1].
func (p *Params) Normalized(name Param) float64 {
	r, ok := ParamRanges[name]
	if !ok {
		return 0
	}
	return common.Map(p.Get(name), r.Min, r.Max, 0, 1)
}

// Set clamps v into the parameter's range, stores it and notifies
// listeners when the stored value changed. It returns the stored value.
func (p *Params) Set(name Param, v float64) (float64, error) {
	r, ok := ParamRanges[name]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownParam, string(name))
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %s=%v", ErrInvalidValue, name, v)
	}
	v = common.Clamp(v, r.Min, r.Max)

	p.mu.Lock()
	changed := p.values[name] != v
	p.values[name] = v
	listeners := p.listeners
	p.mu.Unlock()

	if changed {
		for _, fn := range listeners {
			fn(name, v)
		}
	}
	return v, nil
}

// Nudge adds delta to the current value through Set.
func (p *Params) Nudge(name Param, delta float64) (float64, error) {
	return p.Set(name, p.Get(name)+delta)
}

// Snapshot copies every value.
func (p *Params) Snapshot() map[Param]float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make(map[Param]float64, len(p.values))
	for k, v := range p.values {
		out[k] = v
	}
	return out
}

// OnChange registers a listener. Listeners run on the caller of Set, after
// the store is unlocked.
func (p *Params) OnChange(fn ChangeFunc) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listeners = append(p.listeners[:len(p.listeners):len(p.listeners)], fn)
}

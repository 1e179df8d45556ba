package native

import (
	"math"
	"time"

	"github.com/simukka/ucm-chill/common"
	"github.com/simukka/ucm-chill/engine"
	"github.com/simukka/ucm-chill/music"
)

// Transport counts beats on the synth's sample clock.
type Transport struct {
	s       *Synth
	running bool
	bpm     ramp
	beat    float64
	loops   []*Loop
}

var _ engine.Transport = (*Transport)(nil)

// Start runs the clock from its current position.
func (t *Transport) Start() {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if t.running {
		return
	}
	t.running = true
	for _, l := range t.loops {
		if l.active {
			l.next = l.align(t.beat, 0)
		}
	}
}

// Stop halts the clock and rewinds it.
func (t *Transport) Stop() {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	t.running = false
	t.beat = 0
}

// SetBPM ramps the tempo.
func (t *Transport) SetBPM(bpm float64, r time.Duration) {
	if bpm <= 0 {
		return
	}
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	t.bpm.set(bpm, t.s.samples(r))
}

// BPM returns the current, possibly ramping, tempo.
func (t *Transport) BPM() float64 {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	return t.bpm.value
}

// Position returns the clock position in beats.
func (t *Transport) Position() float64 {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	return t.beat
}

// Every registers fn on each sub boundary. The loop starts stopped.
func (t *Transport) Every(sub music.Subdivision, fn func(at float64)) engine.Loop {
	beats := sub.Beats()
	if beats <= 0 {
		common.DebugError("native: invalid loop subdivision", sub)
		beats = 1
	}
	l := &Loop{t: t, beats: beats, fn: fn}
	t.s.mu.Lock()
	t.loops = append(t.loops, l)
	t.s.mu.Unlock()
	return l
}

// due collects the callbacks falling in the next n frames. Caller holds
// the synth lock.
func (t *Transport) due(n int) []func() {
	if !t.running {
		return nil
	}
	bpm := t.bpm.value
	perFrame := bpm / 60 / t.s.sr
	end := t.beat + float64(n)*perFrame
	now := float64(t.s.frame) / t.s.sr

	var out []func()
	for _, l := range t.loops {
		for l.active && l.next < end {
			at := now + (l.next-t.beat)/perFrame/t.s.sr
			fn := l.fn
			out = append(out, func() { fn(at) })
			l.next += l.beats
		}
	}
	return out
}

func (t *Transport) advanceLocked() {
	bpm := t.bpm.next()
	if t.running {
		t.beat += bpm / 60 / t.s.sr
	}
}

// Loop is a recurring transport callback.
type Loop struct {
	t      *Transport
	beats  float64
	fn     func(at float64)
	active bool
	next   float64
}

// Start activates the loop from the next boundary at or after offset beats.
func (l *Loop) Start(offset float64) {
	l.t.s.mu.Lock()
	defer l.t.s.mu.Unlock()
	if l.active {
		return
	}
	l.active = true
	l.next = l.align(l.t.beat, offset)
}

// Stop deactivates the loop.
func (l *Loop) Stop() {
	l.t.s.mu.Lock()
	defer l.t.s.mu.Unlock()
	l.active = false
}

func (l *Loop) align(beat, offset float64) float64 {
	if beat <= offset {
		return offset
	}
	return offset + math.Ceil((beat-offset)/l.beats)*l.beats
}

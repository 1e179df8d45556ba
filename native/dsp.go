package native

import (
	"math"

	"github.com/simukka/ucm-chill/engine"
)

// oscillator returns one sample of waveform kind at phase in [0, 1).
func oscillator(kind engine.OscType, phase float64) float64 {
	switch kind {
	case engine.Triangle:
		return 1 - 4*math.Abs(phase-0.5)
	case engine.Sawtooth:
		return 2*phase - 1
	case engine.Square:
		if phase < 0.5 {
			return 1
		}
		return -1
	default:
		return math.Sin(2 * math.Pi * phase)
	}
}

// advancePhase moves a normalised phase by freq Hz over one sample.
func advancePhase(phase, freq, sampleRate float64) float64 {
	phase += freq / sampleRate
	return phase - math.Floor(phase)
}

// envelopeAt returns the ADSR level t seconds after the attack of a note
// whose gate is held for gate seconds.
func envelopeAt(env engine.Envelope, t, gate float64) float64 {
	if t < 0 {
		return 0
	}
	held := func(t float64) float64 {
		switch {
		case t < env.Attack:
			return t / env.Attack
		case t < env.Attack+env.Decay:
			return 1 - (t-env.Attack)/env.Decay*(1-env.Sustain)
		default:
			return env.Sustain
		}
	}
	if t < gate {
		return held(t)
	}
	if env.Release <= 0 {
		return 0
	}
	rel := (t - gate) / env.Release
	if rel >= 1 {
		return 0
	}
	return held(gate) * (1 - rel)
}

// softSat applies gentle tanh-like saturation; no harsh clipping.
func softSat(x float64) float64 {
	if x > 1.0 {
		return 1.0 - 0.5/x
	}
	if x < -1.0 {
		return -1.0 + 0.5/(-x)
	}
	return x - x*x*x/3.0
}

// ramp glides linearly to a target over a number of samples.
type ramp struct {
	value  float64
	target float64
	step   float64
	left   int
}

func newRamp(v float64) ramp {
	return ramp{value: v, target: v}
}

// set starts a glide to target lasting n samples; n <= 0 jumps.
func (r *ramp) set(target float64, n int) {
	r.target = target
	if n <= 0 {
		r.value = target
		r.left = 0
		return
	}
	r.step = (target - r.value) / float64(n)
	r.left = n
}

func (r *ramp) next() float64 {
	if r.left > 0 {
		r.value += r.step
		r.left--
		if r.left == 0 {
			r.value = r.target
		}
	}
	return r.value
}

// onePole is a one-pole lowpass.
type onePole struct {
	y float64
}

func (f *onePole) process(x, cutoff, sampleRate float64) float64 {
	a := 1 - math.Exp(-2*math.Pi*cutoff/sampleRate)
	f.y += a * (x - f.y)
	return f.y
}

// svf is a Chamberlin state-variable lowpass with resonance, the acid
// voice's filter.
type svf struct {
	low, band float64
}

func (f *svf) process(x, cutoff, q, sampleRate float64) float64 {
	if cutoff > sampleRate/6 {
		cutoff = sampleRate / 6
	}
	fc := 2 * math.Sin(math.Pi*cutoff/sampleRate)
	damp := 1 / math.Max(q, 0.5)
	f.low += fc * f.band
	high := x - f.low - damp*f.band
	f.band += fc * high
	return f.low
}

// comb and allpass make up a small Schroeder reverb.
type comb struct {
	buf      []float64
	pos      int
	feedback float64
	damp     float64
	store    float64
}

func (c *comb) process(x float64) float64 {
	out := c.buf[c.pos]
	c.store = out*(1-c.damp) + c.store*c.damp
	c.buf[c.pos] = x + c.store*c.feedback
	c.pos = (c.pos + 1) % len(c.buf)
	return out
}

type allpass struct {
	buf []float64
	pos int
}

func (a *allpass) process(x float64) float64 {
	b := a.buf[a.pos]
	out := b - x
	a.buf[a.pos] = x + b*0.5
	a.pos = (a.pos + 1) % len(a.buf)
	return out
}

type reverb struct {
	combs     []comb
	allpasses []allpass
}

// Tunings at 44.1 kHz; scaled for other rates.
var (
	combTunings    = []int{1116, 1188, 1277, 1356}
	allpassTunings = []int{556, 441}
)

func newReverb(sampleRate, room, damp float64) *reverb {
	scale := sampleRate / 44100
	r := &reverb{}
	for _, n := range combTunings {
		r.combs = append(r.combs, comb{
			buf:      make([]float64, int(float64(n)*scale)+1),
			feedback: room,
			damp:     damp,
		})
	}
	for _, n := range allpassTunings {
		r.allpasses = append(r.allpasses, allpass{buf: make([]float64, int(float64(n)*scale)+1)})
	}
	return r
}

func (r *reverb) process(x float64) float64 {
	var out float64
	for i := range r.combs {
		out += r.combs[i].process(x)
	}
	out /= float64(len(r.combs))
	for i := range r.allpasses {
		out = r.allpasses[i].process(out)
	}
	return out
}

// putStereoF32 writes a [-1,1] sample as float32 LE to both stereo
// channels at frame i.
func putStereoF32(buf []byte, i int, sample float64) {
	v := math.Float32bits(float32(sample))
	for c := 0; c < 2; c++ {
		o := i*8 + c*4
		buf[o] = byte(v)
		buf[o+1] = byte(v >> 8)
		buf[o+2] = byte(v >> 16)
		buf[o+3] = byte(v >> 24)
	}
}

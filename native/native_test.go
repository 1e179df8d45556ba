package native

import (
	"context"
	"encoding/binary"
	"math"
	"testing"
	"time"

	"github.com/simukka/ucm-chill/common"
	"github.com/simukka/ucm-chill/engine"
	"github.com/simukka/ucm-chill/music"
)

func floatNear(a, b, eps float64) bool {
	return math.Abs(a-b) <= eps
}

func newOffline(t *testing.T) *Synth {
	t.Helper()
	s, err := NewSynth(DefaultConfig, nil)
	if err != nil {
		t.Fatalf("NewSynth failed: %v", err)
	}
	return s
}

// render reads seconds of audio and returns the left channel.
func render(t *testing.T, s *Synth, seconds float64) []float32 {
	t.Helper()
	frames := int(seconds * float64(s.cfg.SampleRate))
	buf := make([]byte, frames*frameBytes)
	n, err := s.Read(buf)
	if err != nil || n != len(buf) {
		t.Fatalf("Read returned %d, %v", n, err)
	}
	out := make([]float32, frames)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*frameBytes:]))
	}
	return out
}

func TestOscillator(t *testing.T) {
	tests := []struct {
		kind  engine.OscType
		phase float64
		want  float64
	}{
		{engine.Sine, 0.25, 1},
		{engine.Sine, 0.75, -1},
		{engine.Triangle, 0, -1},
		{engine.Triangle, 0.5, 1},
		{engine.Sawtooth, 0, -1},
		{engine.Sawtooth, 0.75, 0.5},
		{engine.Square, 0.1, 1},
		{engine.Square, 0.6, -1},
	}
	for _, tt := range tests {
		if got := oscillator(tt.kind, tt.phase); !floatNear(got, tt.want, 1e-9) {
			t.Errorf("%s at %v: expected %v, got %v", tt.kind, tt.phase, tt.want, got)
		}
	}
}

func TestEnvelopeAt(t *testing.T) {
	env := engine.Envelope{Attack: 0.1, Decay: 0.1, Sustain: 0.5, Release: 0.2}
	tests := []struct {
		t, gate, want float64
	}{
		{-1, 1, 0},
		{0.05, 1, 0.5},
		{0.1, 1, 1},
		{0.15, 1, 0.75},
		{0.5, 1, 0.5},
		{1.1, 1, 0.25},
		{1.2, 1, 0},
		{5, 1, 0},
	}
	for _, tt := range tests {
		if got := envelopeAt(env, tt.t, tt.gate); !floatNear(got, tt.want, 1e-9) {
			t.Errorf("t=%v: expected %v, got %v", tt.t, tt.want, got)
		}
	}

	// Zero-length stages must not divide by zero
	flat := engine.Envelope{Sustain: 1}
	if got := envelopeAt(flat, 0, 1); got != 1 {
		t.Errorf("Expected 1 with zero attack, got %v", got)
	}
}

func TestRamp(t *testing.T) {
	r := newRamp(0)
	r.set(1, 4)
	var got []float64
	for i := 0; i < 6; i++ {
		got = append(got, r.next())
	}
	want := []float64{0.25, 0.5, 0.75, 1, 1, 1}
	for i := range want {
		if !floatNear(got[i], want[i], 1e-9) {
			t.Errorf("Step %d: expected %v, got %v", i, want[i], got[i])
		}
	}

	r.set(-1, 0)
	if r.next() != -1 {
		t.Error("Zero-length ramp should jump")
	}
}

func TestSoftSat_Bounded(t *testing.T) {
	for _, x := range []float64{-100, -2, -1, -0.5, 0, 0.5, 1, 2, 100} {
		if y := softSat(x); y < -1 || y > 1 {
			t.Errorf("softSat(%v) = %v outside [-1,1]", x, y)
		}
	}
}

func TestOnePole_PassesDC(t *testing.T) {
	var f onePole
	var y float64
	for i := 0; i < 44100; i++ {
		y = f.process(1, 400, 44100)
	}
	if !floatNear(y, 1, 1e-6) {
		t.Errorf("Expected DC to pass, got %v", y)
	}
}

func TestReverb_Decays(t *testing.T) {
	r := newReverb(44100, 0.84, 0.2)
	r.process(1)
	var tail float64
	for i := 0; i < 44100*8; i++ {
		tail = r.process(0)
	}
	if math.Abs(tail) > 1e-3 {
		t.Errorf("Reverb tail should decay, got %v", tail)
	}
}

func TestConfig_Validate(t *testing.T) {
	if err := DefaultConfig.Validate(); err != nil {
		t.Fatalf("DefaultConfig invalid: %v", err)
	}
	bad := DefaultConfig
	bad.ReverbRoom = 1
	if err := bad.Validate(); err == nil {
		t.Error("Expected an error for reverb room 1")
	}
}

func TestTransport_TicksOnBeat(t *testing.T) {
	s := newOffline(t)
	tr := s.Transport()
	tr.SetBPM(120, 0)

	var ticks []float64
	l := tr.Every(music.Quarter, func(at float64) { ticks = append(ticks, at) })
	l.Start(0)
	tr.Start()

	render(t, s, 2.01)

	// Four quarters at 120 BPM in two seconds, plus the downbeat at 2.0
	if len(ticks) != 5 {
		t.Fatalf("Expected 5 ticks, got %d: %v", len(ticks), ticks)
	}
	for i, at := range ticks {
		if want := float64(i) * 0.5; !floatNear(at, want, 1.0/44100*2) {
			t.Errorf("Tick %d at %v, expected %v", i, at, want)
		}
	}

	l.Stop()
	n := len(ticks)
	render(t, s, 1)
	if len(ticks) != n {
		t.Error("Stopped loop should not tick")
	}
}

func TestTransport_StoppedDoesNotTick(t *testing.T) {
	s := newOffline(t)
	tr := s.Transport()
	count := 0
	tr.Every(music.Eighth, func(float64) { count++ }).Start(0)

	render(t, s, 1)
	if count != 0 {
		t.Errorf("Expected no ticks before transport start, got %d", count)
	}
}

func TestVoice_SoundsAndReleases(t *testing.T) {
	s := newOffline(t)
	s.SetMaster(engine.MasterSettings{VolumeDb: 0, CutoffHz: 8000, ReverbWet: 0}, 0)
	v, err := s.NewVoice("lead", engine.DefaultConfig.Melody.Voice)
	if err != nil {
		t.Fatalf("NewVoice failed: %v", err)
	}

	v.TriggerAttackRelease([]string{"A4", "bogus"}, music.Quarter, 0, 1)
	if s.ActiveNotes() != 1 {
		t.Fatalf("Expected 1 scheduled note, got %d", s.ActiveNotes())
	}

	out := render(t, s, 0.3)
	var peak float64
	for _, x := range out {
		peak = math.Max(peak, math.Abs(float64(x)))
	}
	if peak < 0.01 {
		t.Errorf("Expected an audible note, peak %v", peak)
	}
	if s.Peak() > 1 {
		t.Errorf("Output exceeded full scale: %v", s.Peak())
	}

	render(t, s, 3)
	if s.ActiveNotes() != 0 {
		t.Errorf("Expected released notes to be pruned, got %d", s.ActiveNotes())
	}
}

func TestVoice_PolyphonyCap(t *testing.T) {
	cfg := DefaultConfig
	cfg.MaxNotes = 2
	s, err := NewSynth(cfg, nil)
	if err != nil {
		t.Fatalf("NewSynth failed: %v", err)
	}
	v, _ := s.NewVoice("pad", engine.DefaultConfig.Chords.Voice)
	v.TriggerAttackRelease([]string{"C3", "E3", "G3", "C4"}, music.Whole, 0, 0.5)
	if s.ActiveNotes() != 2 {
		t.Errorf("Expected polyphony capped at 2, got %d", s.ActiveNotes())
	}
}

func TestDrone_FadesInAndOut(t *testing.T) {
	s := newOffline(t)
	s.SetMaster(engine.MasterSettings{VolumeDb: 0, CutoffHz: 8000}, 0)
	d, err := s.NewDrone(engine.DroneConfig{Oscillator: engine.Sine, Ratio: 1, Attack: 0.1, Release: 0.1})
	if err != nil {
		t.Fatalf("NewDrone failed: %v", err)
	}
	d.Ramp(220, -6, 0)

	silent := render(t, s, 0.1)
	for _, x := range silent {
		if x != 0 {
			t.Fatal("A stopped drone should be silent")
		}
	}

	d.Start()
	out := render(t, s, 0.5)
	if peak(out[len(out)/2:]) < 0.05 {
		t.Error("Started drone should be audible")
	}

	d.Stop()
	render(t, s, 0.2)
	tail := render(t, s, 2)
	if p := peak(tail[len(tail)-4410:]); p > 1e-3 {
		t.Errorf("Drone should fade out, peak %v", p)
	}
}

func peak(xs []float32) float64 {
	var p float64
	for _, x := range xs {
		p = math.Max(p, math.Abs(float64(x)))
	}
	return p
}

func TestEngine_PlaysOffline(t *testing.T) {
	s := newOffline(t)
	clock := &manualScheduler{}
	cfg := engine.DefaultConfig
	cfg.Seed = 1
	e, err := engine.New(s, nil, cfg, engine.WithRand(common.NewSeededRNG(4)), engine.WithScheduler(clock))
	if err != nil {
		t.Fatalf("engine.New failed: %v", err)
	}
	e.Params().Set(engine.Energy, 100)

	if err := e.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	render(t, s, 4)

	g := e.Generator(engine.PartMelody)
	emitted, skipped := g.Stats()
	// 4 s at 90 BPM is 6 beats, so 12 eighths
	if emitted+skipped < 11 || emitted+skipped > 13 {
		t.Errorf("Expected about 12 melody ticks, got %d", emitted+skipped)
	}
	if emitted == 0 {
		t.Error("Expected melody notes at full energy")
	}
	if s.Peak() == 0 || s.Peak() > 1 {
		t.Errorf("Expected bounded non-silent output, peak %v", s.Peak())
	}

	e.Stop()
	before := emitted + skipped
	render(t, s, 2)
	emitted, skipped = g.Stats()
	if emitted+skipped != before {
		t.Error("Loops should not tick after Stop")
	}
}

type manualScheduler struct{}

func (manualScheduler) AfterFunc(time.Duration, func()) engine.Timer { return stoppedTimer{} }

type stoppedTimer struct{}

func (stoppedTimer) Stop() bool { return false }

func TestSampleTimer_FiresOnRenderedTime(t *testing.T) {
	s := newOffline(t)
	fired := 0
	s.AfterFunc(500*time.Millisecond, func() { fired++ })
	cancelled := s.AfterFunc(200*time.Millisecond, func() { t.Error("Stopped timer fired") })
	if !cancelled.Stop() {
		t.Error("Expected Stop to report a pending timer")
	}
	if cancelled.Stop() {
		t.Error("Second Stop should report nothing pending")
	}

	s.Render(0.4)
	if fired != 0 {
		t.Fatalf("Timer fired early at %v", s.Now())
	}
	s.Render(0.2)
	if fired != 1 {
		t.Errorf("Expected 1 firing, got %d", fired)
	}
	s.Render(1)
	if fired != 1 {
		t.Errorf("Timer should fire once, got %d", fired)
	}
}

func TestRender_AdvancesClock(t *testing.T) {
	s := newOffline(t)
	s.Render(1.5)
	if !floatNear(s.Now(), 1.5, 1.0/44100) {
		t.Errorf("Expected clock at 1.5 s, got %v", s.Now())
	}
}

func TestEngine_DriftOnSampleClock(t *testing.T) {
	s := newOffline(t)
	cfg := engine.DefaultConfig
	cfg.Seed = 9
	e, err := engine.New(s, nil, cfg, engine.WithScheduler(s))
	if err != nil {
		t.Fatalf("engine.New failed: %v", err)
	}
	e.Params().Set(engine.AutoLength, 1)
	if err := e.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	e.SetAuto(true)

	// autoLength 1 waits at most 75 s
	s.Render(80)
	if e.Drift().Cycles() < 1 {
		t.Error("Expected a drift cycle within 80 s of rendered audio")
	}
	e.Stop()
	if e.Drift().Pending() {
		t.Error("Stop should cancel the drift timer")
	}
}

package engine

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/simukka/ucm-chill/music"
)

func floatNear(a, b, eps float64) bool {
	return math.Abs(a-b) <= eps
}

// seqRand replays a fixed sequence of values, cycling at the end.
type seqRand struct {
	vals []float64
	i    int
}

func (r *seqRand) Random() float64 {
	v := r.vals[r.i%len(r.vals)]
	r.i++
	return v
}

// fixedRand always returns the same value.
type fixedRand float64

func (r fixedRand) Random() float64 { return float64(r) }

type scriptSelector struct {
	candidates []int
	i          int
}

func (s *scriptSelector) Next(int) int {
	c := s.candidates[s.i%len(s.candidates)]
	s.i++
	return c
}

type fakeVoice struct {
	mu     sync.Mutex
	name   string
	played [][]string
}

func (v *fakeVoice) TriggerAttackRelease(pitches []string, length music.Subdivision, at, velocity float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.played = append(v.played, pitches)
}

func (v *fakeVoice) count() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.played)
}

type fakeDrone struct {
	cfg     DroneConfig
	running bool
	starts  int
	freq    float64
	level   float64
}

func (d *fakeDrone) Start() { d.running = true; d.starts++ }
func (d *fakeDrone) Stop()  { d.running = false }
func (d *fakeDrone) Ramp(freqHz, levelDb float64, ramp time.Duration) {
	d.freq = freqHz
	d.level = levelDb
}

type fakeLoop struct {
	sub    music.Subdivision
	fn     func(at float64)
	active bool
	starts int
	stops  int
}

func (l *fakeLoop) Start(float64) { l.active = true; l.starts++ }
func (l *fakeLoop) Stop()         { l.active = false; l.stops++ }

type fakeTransport struct {
	running bool
	bpm     float64
	loops   []*fakeLoop
}

func (t *fakeTransport) Start()                                 { t.running = true }
func (t *fakeTransport) Stop()                                  { t.running = false }
func (t *fakeTransport) SetBPM(bpm float64, ramp time.Duration) { t.bpm = bpm }
func (t *fakeTransport) BPM() float64                           { return t.bpm }

func (t *fakeTransport) Every(sub music.Subdivision, fn func(at float64)) Loop {
	l := &fakeLoop{sub: sub, fn: fn}
	t.loops = append(t.loops, l)
	return l
}

// tick runs every started loop registered on sub.
func (t *fakeTransport) tick(sub music.Subdivision, at float64) {
	if !t.running {
		return
	}
	for _, l := range t.loops {
		if l.sub == sub && l.active {
			l.fn(at)
		}
	}
}

func (t *fakeTransport) loop(sub music.Subdivision) *fakeLoop {
	for _, l := range t.loops {
		if l.sub == sub {
			return l
		}
	}
	return nil
}

type fakeSynth struct {
	mu        sync.Mutex
	resumeErr error
	block     bool          // Resume waits for ctx cancellation
	entered   chan struct{} // Closed when a blocking Resume is waiting
	resumes   int
	voices    map[string]*fakeVoice
	drones    []*fakeDrone
	transport *fakeTransport
	master    []MasterSettings
}

func newFakeSynth() *fakeSynth {
	return &fakeSynth{
		voices:    make(map[string]*fakeVoice),
		transport: &fakeTransport{},
		entered:   make(chan struct{}),
	}
}

func (s *fakeSynth) Resume(ctx context.Context) error {
	s.mu.Lock()
	s.resumes++
	block := s.block
	err := s.resumeErr
	s.mu.Unlock()
	if block {
		close(s.entered)
		<-ctx.Done()
		return ctx.Err()
	}
	return err
}

func (s *fakeSynth) NewVoice(name string, cfg VoiceConfig) (Voice, error) {
	v := &fakeVoice{name: name}
	s.voices[name] = v
	return v, nil
}

func (s *fakeSynth) NewDrone(cfg DroneConfig) (Drone, error) {
	d := &fakeDrone{cfg: cfg}
	s.drones = append(s.drones, d)
	return d, nil
}

func (s *fakeSynth) Transport() Transport { return s.transport }

func (s *fakeSynth) SetMaster(m MasterSettings, ramp time.Duration) {
	s.master = append(s.master, m)
}

func (s *fakeSynth) lastMaster() MasterSettings {
	return s.master[len(s.master)-1]
}

// fakeClock is a manual Scheduler.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Duration
	timers []*fakeTimer
}

type fakeTimer struct {
	clock   *fakeClock
	at      time.Duration
	fn      func()
	pending bool
}

func (c *fakeClock) AfterFunc(d time.Duration, fn func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, at: c.now + d, fn: fn, pending: true}
	c.timers = append(c.timers, t)
	return t
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	was := t.pending
	t.pending = false
	return was
}

// Advance moves the clock forward, firing due timers in order.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now + d
	for {
		var due []*fakeTimer
		for _, t := range c.timers {
			if t.pending && t.at <= target {
				due = append(due, t)
			}
		}
		if len(due) == 0 {
			break
		}
		sort.Slice(due, func(i, j int) bool { return due[i].at < due[j].at })
		next := due[0]
		next.pending = false
		c.now = next.at
		c.mu.Unlock()
		next.fn()
		c.mu.Lock()
	}
	c.now = target
	c.mu.Unlock()
}

// Pending counts timers that have not fired or been stopped.
func (c *fakeClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if t.pending {
			n++
		}
	}
	return n
}

// Next returns the delay until the earliest pending timer.
func (c *fakeClock) Next() (time.Duration, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var best *fakeTimer
	for _, t := range c.timers {
		if t.pending && (best == nil || t.at < best.at) {
			best = t
		}
	}
	if best == nil {
		return 0, false
	}
	return best.at - c.now, true
}

type recordSink struct {
	events []Event
}

func (r *recordSink) Note(ev Event) { r.events = append(r.events, ev) }

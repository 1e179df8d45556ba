package engine

import (
	"sync"
	"time"

	"github.com/simukka/ucm-chill/common"
)

// Drift slowly random-walks the tracked parameters on a timer. At most one
// timer is outstanding; Stop cancels it and invalidates any callback that
// already fired.
type Drift struct {
	mu      sync.Mutex
	cfg     DriftConfig
	params  *Params
	rng     common.Rand
	sched   Scheduler
	timer   Timer
	gen     uint64
	running bool
	cycles  int

	// OnShift runs after every completed shift, outside the lock.
	OnShift func(cycle int)
}

// NewDrift creates a stopped drift task.
func NewDrift(cfg DriftConfig, params *Params, rng common.Rand, sched Scheduler) *Drift {
	return &Drift{cfg: cfg, params: params, rng: rng, sched: sched}
}

// Interval returns the delay before the next shift: autoLength minutes with
// jitter, clamped to the configured bounds.
func (d *Drift) Interval() time.Duration {
	minutes := d.params.Get(AutoLength)
	jitter := 1 + (d.rng.Random()*2-1)*d.cfg.Jitter
	minutes = common.Clamp(minutes*jitter, d.cfg.AutoMinMinutes, d.cfg.AutoMaxMinutes)
	return time.Duration(minutes * float64(time.Minute))
}

// Start schedules the first shift. Calling it while running is a no-op.
func (d *Drift) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running {
		return
	}
	d.running = true
	d.scheduleLocked()
	common.Debug("drift: started")
}

// Stop cancels the pending shift. Calling it while stopped is a no-op.
func (d *Drift) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.running {
		return
	}
	d.running = false
	d.gen++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	common.Debug("drift: stopped")
}

// Running reports whether drift is active.
func (d *Drift) Running() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.running
}

// Pending reports whether a shift is scheduled.
func (d *Drift) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil
}

// Cycles returns the number of completed shifts.
func (d *Drift) Cycles() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cycles
}

func (d *Drift) scheduleLocked() {
	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	gen := d.gen
	d.timer = d.sched.AfterFunc(d.Interval(), func() { d.fire(gen) })
}

func (d *Drift) fire(gen uint64) {
	d.mu.Lock()
	if !d.running || gen != d.gen {
		d.mu.Unlock()
		return
	}
	d.timer = nil
	steps := make([]float64, len(d.cfg.Params))
	for i, p := range d.cfg.Params {
		frac := d.cfg.MinStep + d.rng.Random()*(d.cfg.MaxStep-d.cfg.MinStep)
		sign := 1.0
		if d.rng.Random() < 0.5 {
			sign = -1
		}
		steps[i] = sign * frac * ParamRanges[p].Span()
	}
	d.cycles++
	cycle := d.cycles
	d.mu.Unlock()

	// Listeners run unlocked; they may touch the synth or the DOM.
	for i, p := range d.cfg.Params {
		if _, err := d.params.Nudge(p, steps[i]); err != nil {
			common.DebugWarn("drift:", err)
		}
	}
	if d.OnShift != nil {
		d.OnShift(cycle)
	}

	d.mu.Lock()
	if d.running && gen == d.gen {
		d.scheduleLocked()
	}
	d.mu.Unlock()
}

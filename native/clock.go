package native

import (
	"time"

	"github.com/simukka/ucm-chill/engine"
)

// sampleTimer fires once the sample clock reaches at.
type sampleTimer struct {
	s       *Synth
	at      int64
	fn      func()
	pending bool
}

var _ engine.Scheduler = (*Synth)(nil)

// AfterFunc schedules fn on the sample clock, so drift follows rendered
// time both on a device and offline.
func (s *Synth) AfterFunc(d time.Duration, fn func()) engine.Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &sampleTimer{s: s, at: s.frame + int64(s.samples(d)), fn: fn, pending: true}
	s.timers = append(s.timers, t)
	return t
}

func (t *sampleTimer) Stop() bool {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	was := t.pending
	t.pending = false
	return was
}

// dueTimersLocked pops timers that expire within the next n frames.
func (s *Synth) dueTimersLocked(n int) []func() {
	if len(s.timers) == 0 {
		return nil
	}
	end := s.frame + int64(n)
	var fns []func()
	kept := s.timers[:0]
	for _, t := range s.timers {
		switch {
		case !t.pending:
		case t.at < end:
			t.pending = false
			fns = append(fns, t.fn)
		default:
			kept = append(kept, t)
		}
	}
	for i := len(kept); i < len(s.timers); i++ {
		s.timers[i] = nil
	}
	s.timers = kept
	return fns
}

//go:build js

package web

import (
	"time"

	"github.com/gopherjs/gopherjs/js"

	"github.com/simukka/ucm-chill/engine"
)

// Scheduler runs engine timers on window.setTimeout.
type Scheduler struct{}

var _ engine.Scheduler = Scheduler{}

// AfterFunc schedules fn once after d.
func (Scheduler) AfterFunc(d time.Duration, fn func()) engine.Timer {
	t := &jsTimer{}
	t.id = js.Global.Call("setTimeout", func() {
		if !t.pending {
			return
		}
		t.pending = false
		fn()
	}, float64(d)/float64(time.Millisecond))
	t.pending = true
	return t
}

type jsTimer struct {
	id      *js.Object
	pending bool
}

// Stop clears the timeout.
func (t *jsTimer) Stop() bool {
	if !t.pending {
		return false
	}
	t.pending = false
	js.Global.Call("clearTimeout", t.id)
	return true
}

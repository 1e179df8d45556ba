package engine

import (
	"context"
	"time"

	"github.com/simukka/ucm-chill/music"
)

// Synth is the external synthesis engine: oscillators, envelopes, filter,
// reverb and the transport clock all live behind it.
type Synth interface {
	// Resume acquires the audio output. Browsers block it until a user
	// gesture, so it may wait or fail; it is safe to call repeatedly.
	Resume(ctx context.Context) error
	NewVoice(name string, cfg VoiceConfig) (Voice, error)
	NewDrone(cfg DroneConfig) (Drone, error)
	Transport() Transport
	SetMaster(m MasterSettings, ramp time.Duration)
}

// MasterSettings is the state of the shared output bus.
type MasterSettings struct {
	VolumeDb  float64
	CutoffHz  float64
	ReverbWet float64
}

// Voice renders triggered notes.
type Voice interface {
	// TriggerAttackRelease plays pitches for length starting at transport
	// time at (seconds) with velocity in [0, 1].
	TriggerAttackRelease(pitches []string, length music.Subdivision, at float64, velocity float64)
}

// Drone is a continuously sounding oscillator whose frequency and level are
// ramped rather than triggered.
type Drone interface {
	Start()
	Stop()
	Ramp(freqHz, levelDb float64, ramp time.Duration)
}

// Transport is the shared musical clock.
type Transport interface {
	Start()
	Stop()
	SetBPM(bpm float64, ramp time.Duration)
	BPM() float64
	// Every registers fn to run on each subdivision boundary while both the
	// returned loop and the transport are started. fn receives the
	// transport time of the tick in seconds.
	Every(sub music.Subdivision, fn func(at float64)) Loop
}

// Loop is a registered recurring callback.
type Loop interface {
	Start(offset float64)
	Stop()
}

// Scheduler provides plain wall-clock timers.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) Timer
}

// Timer is a pending AfterFunc invocation.
type Timer interface {
	// Stop cancels the invocation and reports whether it was still pending.
	Stop() bool
}

// Event is one emitted note or chord.
type Event struct {
	Part     string
	Pitches  []string
	Length   music.Subdivision
	Velocity float64
	At       float64 // Transport time in seconds
	BPM      float64 // Tempo when the event was emitted
}

// NoteSink observes every emitted event, e.g. to record it.
type NoteSink interface {
	Note(ev Event)
}

// SystemScheduler runs timers on the Go runtime clock.
type SystemScheduler struct{}

// AfterFunc wraps time.AfterFunc.
func (SystemScheduler) AfterFunc(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, fn)
}

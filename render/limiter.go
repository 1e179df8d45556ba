package render

// Limiter drops animation frames above a target rate and keeps a running
// FPS estimate. Timestamps are milliseconds, as requestAnimationFrame
// passes them.
type Limiter struct {
	FrameDuration float64 // Minimum milliseconds between accepted frames

	lastFrame  float64
	started    bool
	delta      float64
	frameCount int
	lastFPS    float64
	currentFPS float64
}

// NewLimiter creates a limiter for fps frames per second. A non-positive
// rate disables limiting.
func NewLimiter(fps float64) *Limiter {
	l := &Limiter{}
	if fps > 0 {
		l.FrameDuration = 1000 / fps
	}
	return l
}

// Ready reports whether a frame at now should be drawn.
func (l *Limiter) Ready(now float64) bool {
	if !l.started || now < l.lastFrame {
		// First frame, or the clock went backwards (tab restored)
		l.started = true
		l.lastFrame = now
		l.lastFPS = now
		l.frameCount = 0
		l.delta = 0
		return true
	}
	if now-l.lastFrame < l.FrameDuration {
		return false
	}
	l.delta = now - l.lastFrame
	l.lastFrame = now

	l.frameCount++
	if elapsed := now - l.lastFPS; elapsed >= 1000 {
		l.currentFPS = float64(l.frameCount) / (elapsed / 1000)
		l.frameCount = 0
		l.lastFPS = now
	}
	return true
}

// Delta returns the seconds between the last two accepted frames.
func (l *Limiter) Delta() float64 {
	return l.delta / 1000
}

// FPS returns the accepted frame rate over the last full second.
func (l *Limiter) FPS() float64 {
	return l.currentFPS
}

//go:build !js

package native

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/hajimehoshi/oto/v2"

	"github.com/simukka/ucm-chill/common"
)

// OtoOutput plays the synth through the default sound device.
type OtoOutput struct {
	mu     sync.Mutex
	ctx    *oto.Context
	ready  chan struct{}
	player oto.Player
	volume float64
}

// NewOtoOutput opens a float32 stereo context at sampleRate.
func NewOtoOutput(sampleRate int) (*OtoOutput, error) {
	ctx, ready, err := oto.NewContext(sampleRate, ChannelCount, oto.FormatFloat32LE)
	if err != nil {
		return nil, fmt.Errorf("native: opening audio device: %w", err)
	}
	return &OtoOutput{ctx: ctx, ready: ready, volume: 1}, nil
}

// Start waits for the device and plays r. Calling it again is a no-op.
func (o *OtoOutput) Start(ctx context.Context, r io.Reader) error {
	select {
	case <-o.ready:
	case <-ctx.Done():
		return ctx.Err()
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.player != nil {
		return nil
	}
	o.player = o.ctx.NewPlayer(r)
	o.player.SetVolume(o.volume)
	o.player.Play()
	common.Debug("native: oto player started")
	return nil
}

// SetVolume sets the device-side gain in [0, 1].
func (o *OtoOutput) SetVolume(v float64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.volume = common.Clamp(v, 0, 1)
	if o.player != nil {
		o.player.SetVolume(o.volume)
	}
}

// Close stops playback.
func (o *OtoOutput) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.player == nil {
		return nil
	}
	err := o.player.Close()
	o.player = nil
	return err
}

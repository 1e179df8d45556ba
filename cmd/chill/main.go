//go:build !js
// +build !js

// Command chill plays the generative engine on the local sound card, or
// renders it offline, and can capture the emitted notes as a MIDI file.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/simukka/ucm-chill/common"
	"github.com/simukka/ucm-chill/engine"
	"github.com/simukka/ucm-chill/midiout"
	"github.com/simukka/ucm-chill/native"
)

type options struct {
	seed       uint
	duration   time.Duration
	offline    bool
	midiPath   string
	auto       bool
	acid       bool
	debug      bool
	report     time.Duration
	params     map[engine.Param]float64
	paramFlags map[engine.Param]*float64
}

// flagNames maps parameters to their command-line spelling.
var flagNames = map[engine.Param]string{
	engine.Energy:     "energy",
	engine.Creation:   "creation",
	engine.Brightness: "brightness",
	engine.Nature:     "nature",
	engine.Style:      "style",
	engine.Volume:     "volume",
	engine.AutoLength: "auto-len",
}

func parseFlags(args []string) (options, error) {
	fs := flag.NewFlagSet("chill", flag.ContinueOnError)
	o := options{
		params:     make(map[engine.Param]float64),
		paramFlags: make(map[engine.Param]*float64),
	}
	fs.UintVar(&o.seed, "seed", 0, "Random seed (0 picks one from the clock)")
	fs.DurationVar(&o.duration, "duration", 0, "Stop after this long (0 plays until interrupted)")
	fs.BoolVar(&o.offline, "offline", false, "Render without a sound card (needs -duration)")
	fs.StringVar(&o.midiPath, "midi", "", "Write emitted notes to this .mid file")
	fs.BoolVar(&o.auto, "auto", false, "Enable auto drift")
	fs.BoolVar(&o.acid, "acid", false, "Enable the acid bassline")
	fs.BoolVar(&o.debug, "debug", false, "Verbose logging")
	fs.DurationVar(&o.report, "report", 10*time.Second, "Status log interval")
	for _, name := range engine.Names() {
		r := engine.ParamRanges[name]
		o.paramFlags[name] = fs.Float64(flagNames[name], r.Default,
			fmt.Sprintf("%s (%g..%g)", name, r.Min, r.Max))
	}
	if err := fs.Parse(args); err != nil {
		return o, err
	}
	fs.Visit(func(f *flag.Flag) {
		for name, flagName := range flagNames {
			if f.Name == flagName {
				o.params[name] = *o.paramFlags[name]
			}
		}
	})
	if o.offline && o.duration <= 0 {
		return o, errors.New("chill: -offline needs a positive -duration")
	}
	return o, nil
}

// applyParams copies the flags that were given into the store.
func applyParams(p *engine.Params, values map[engine.Param]float64) error {
	for _, name := range engine.Names() {
		v, ok := values[name]
		if !ok {
			continue
		}
		if _, err := p.Set(name, v); err != nil {
			return fmt.Errorf("-%s: %w", flagNames[name], err)
		}
	}
	return nil
}

func main() {
	o, err := parseFlags(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		log.Fatal(err)
	}
	common.EnableDebug = o.debug

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, o); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context, o options) error {
	var out native.Output
	if !o.offline {
		dev, err := native.NewOtoOutput(native.SampleRate)
		if err != nil {
			return err
		}
		out = dev
	}
	synth, err := native.NewSynth(native.DefaultConfig, out)
	if err != nil {
		return err
	}
	defer synth.Close()

	params := engine.NewParams()
	if err := applyParams(params, o.params); err != nil {
		return err
	}

	cfg := engine.DefaultConfig
	cfg.Seed = uint32(o.seed)
	rec := midiout.NewRecorder(0)
	eng, err := engine.New(synth, params, cfg,
		engine.WithScheduler(synth),
		engine.WithSink(rec),
		engine.WithStatus(func(s string) { log.Println(s) }),
	)
	if err != nil {
		return err
	}
	eng.SetAcid(o.acid)
	eng.SetAuto(o.auto)
	eng.Drift().OnShift = func(cycle int) {
		common.Debugf("drift %d: %v", cycle, params.Snapshot())
	}

	if o.offline {
		if err := eng.Start(ctx); err != nil {
			return err
		}
		synth.Render(o.duration.Seconds())
		eng.Stop()
	} else if err := play(ctx, o, eng, synth); err != nil {
		return err
	}

	log.Printf("%d notes emitted, peak %.2f", rec.Count(), synth.Peak())
	if o.midiPath == "" {
		return nil
	}
	if err := rec.WriteFile(o.midiPath); err != nil {
		return err
	}
	log.Printf("wrote %s", o.midiPath)
	return nil
}

// play runs until the context ends or the duration elapses.
func play(ctx context.Context, o options, eng *engine.Engine, synth *native.Synth) error {
	if o.duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.duration)
		defer cancel()
	}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := eng.Start(gctx); err != nil {
			return err
		}
		<-gctx.Done()
		eng.Stop()
		return nil
	})

	if o.report > 0 {
		g.Go(func() error {
			ticker := time.NewTicker(o.report)
			defer ticker.Stop()
			for {
				select {
				case <-gctx.Done():
					return nil
				case <-ticker.C:
					log.Printf("%.0fs %s", synth.Now(), eng.Status())
				}
			}
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

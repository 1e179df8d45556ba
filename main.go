//go:build js
// +build js

package main

import (
	"github.com/gopherjs/gopherjs/js"

	"github.com/simukka/ucm-chill/common"
	"github.com/simukka/ucm-chill/engine"
	"github.com/simukka/ucm-chill/render"
	"github.com/simukka/ucm-chill/web"
)

func main() {
	web.InstallConsoleSink()

	status := web.NewStatusLine()
	synth, err := web.NewToneSynth(web.DefaultToneConfig)
	if err != nil {
		common.DebugError(err.Error())
		status.Set(err.Error())
		return
	}

	params := engine.NewParams()
	eng, err := engine.New(synth, params, engine.DefaultConfig,
		engine.WithScheduler(web.Scheduler{}),
		engine.WithStatus(status.Set),
	)
	if err != nil {
		common.DebugError(err.Error())
		status.Set(err.Error())
		return
	}
	web.BindControls(eng)
	status.Set(eng.Status())

	if surface := web.NewCanvasSurface("mandala"); surface != nil {
		anim := &web.Animator{
			Mandala: render.NewMandala(params, render.DefaultConfig),
			Surface: surface,
			Limiter: render.NewLimiter(render.DefaultConfig.FPS),
		}
		anim.Start()
	}

	js.Global.Set("UCMChill", map[string]interface{}{
		"status": eng.Status,
		"stop":   eng.Stop,
	})

	js.Global.Call("addEventListener", "beforeunload", func() {
		eng.Stop()
	})

	select {}
}

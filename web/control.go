//go:build js

package web

import (
	"context"
	"strconv"

	"github.com/gopherjs/gopherjs/js"

	"github.com/simukka/ucm-chill/common"
	"github.com/simukka/ucm-chill/engine"
)

// SliderIDs maps each parameter to its range input.
var SliderIDs = map[engine.Param]string{
	engine.Energy:     "fader_energy",
	engine.Creation:   "fader_creation",
	engine.Brightness: "fader_bright",
	engine.Nature:     "fader_void",
	engine.Style:      "fader_style",
	engine.Volume:     "fader_volume",
	engine.AutoLength: "auto_len",
}

const (
	startButtonID = "btn_start"
	stopButtonID  = "btn_stop"
	autoButtonID  = "btn_auto"
	acidButtonID  = "btn_acid"
	statusID      = "status"
)

// StatusLine writes engine status into the #status element.
type StatusLine struct {
	el *js.Object
}

// NewStatusLine finds the status element. A missing element makes Set a no-op.
func NewStatusLine() *StatusLine {
	el := js.Global.Get("document").Call("getElementById", statusID)
	if el == nil || el == js.Undefined {
		common.DebugWarn("web: no #" + statusID + " element")
		el = nil
	}
	return &StatusLine{el: el}
}

// Set replaces the status text.
func (s *StatusLine) Set(text string) {
	if s.el == nil {
		return
	}
	s.el.Set("textContent", text)
}

// Controls binds DOM inputs to an engine.
type Controls struct {
	eng     *engine.Engine
	doc     *js.Object
	sliders map[engine.Param]*js.Object
	labels  map[engine.Param]*js.Object
}

// BindControls attaches every slider and button that exists on the page.
// Slider positions in the markup become the initial parameter values.
func BindControls(eng *engine.Engine) *Controls {
	c := &Controls{
		eng:     eng,
		doc:     js.Global.Get("document"),
		sliders: make(map[engine.Param]*js.Object),
		labels:  make(map[engine.Param]*js.Object),
	}
	for _, name := range engine.Names() {
		c.attachSlider(name, SliderIDs[name])
	}
	eng.Params().OnChange(c.reflect)

	c.attachButton(startButtonID, func() {
		// Start blocks on the audio context promise
		go func() {
			if err := eng.Start(context.Background()); err != nil {
				common.DebugWarn("web: start:", err.Error())
			}
		}()
	})
	c.attachButton(stopButtonID, eng.Stop)
	c.attachButton(autoButtonID, func() {
		c.setPressed(autoButtonID, eng.ToggleAuto())
	})
	c.attachButton(acidButtonID, func() {
		c.setPressed(acidButtonID, eng.ToggleAcid())
	})
	c.setPressed(autoButtonID, eng.Auto())
	c.setPressed(acidButtonID, eng.Acid())
	return c
}

func (c *Controls) element(id string) *js.Object {
	el := c.doc.Call("getElementById", id)
	if el == nil || el == js.Undefined {
		return nil
	}
	return el
}

func (c *Controls) attachSlider(name engine.Param, id string) {
	slider := c.element(id)
	if slider == nil {
		common.DebugWarn("web: no slider", id)
		return
	}
	c.sliders[name] = slider
	if label := c.element(id + "-val"); label != nil {
		c.labels[name] = label
	}

	params := c.eng.Params()
	if v, err := strconv.ParseFloat(slider.Get("value").String(), 64); err == nil {
		if _, err := params.Set(name, v); err != nil {
			common.DebugWarn("web:", id, err.Error())
		}
	}
	c.reflect(name, params.Get(name))

	slider.Call("addEventListener", "input", func(e *js.Object) {
		val := e.Get("target").Get("value").Float()
		if _, err := params.Set(name, val); err != nil {
			common.DebugWarn("web:", id, err.Error())
		}
	})
}

// reflect moves a slider when the value changes from elsewhere, e.g. drift.
func (c *Controls) reflect(name engine.Param, value float64) {
	if slider, ok := c.sliders[name]; ok {
		if slider.Get("value").Float() != value {
			slider.Set("value", value)
		}
	}
	if label, ok := c.labels[name]; ok {
		label.Set("textContent", strconv.FormatFloat(value, 'f', 0, 64))
	}
}

func (c *Controls) attachButton(id string, fn func()) {
	btn := c.element(id)
	if btn == nil {
		common.DebugWarn("web: no button", id)
		return
	}
	btn.Call("addEventListener", "click", func() {
		fn()
	})
}

func (c *Controls) setPressed(id string, on bool) {
	btn := c.element(id)
	if btn == nil {
		return
	}
	btn.Get("classList").Call("toggle", "active", on)
	btn.Call("setAttribute", "aria-pressed", strconv.FormatBool(on))
}

//go:build js

package web

import (
	"math"

	"github.com/gopherjs/gopherjs/js"

	"github.com/simukka/ucm-chill/common"
	"github.com/simukka/ucm-chill/render"
)

// CanvasSurface draws mandala rings on a 2D canvas context.
type CanvasSurface struct {
	canvas *js.Object
	ctx    *js.Object
}

// NewCanvasSurface wraps the canvas with the given id, or returns nil when
// the page has none.
func NewCanvasSurface(id string) *CanvasSurface {
	canvas := js.Global.Get("document").Call("getElementById", id)
	if canvas == nil || canvas == js.Undefined {
		common.DebugWarn("web: no canvas", id)
		return nil
	}
	s := &CanvasSurface{canvas: canvas, ctx: canvas.Call("getContext", "2d")}
	s.Resize()
	return s
}

var _ render.Surface = (*CanvasSurface)(nil)

// Resize matches the backing store to the element's layout size.
func (s *CanvasSurface) Resize() {
	w := s.canvas.Get("clientWidth").Int()
	h := s.canvas.Get("clientHeight").Int()
	if w > 0 && h > 0 {
		s.canvas.Set("width", w)
		s.canvas.Set("height", h)
	}
}

func (s *CanvasSurface) Size() (w, h float64) {
	return s.canvas.Get("width").Float(), s.canvas.Get("height").Float()
}

// FillBackground paints a radial gradient from the center outwards.
func (s *CanvasSurface) FillBackground(inner, outer string) {
	w, h := s.Size()
	cx, cy := w/2, h/2
	g := s.ctx.Call("createRadialGradient", cx, cy, 0, cx, cy, math.Max(w, h)*0.6)
	g.Call("addColorStop", 0, inner)
	g.Call("addColorStop", 1, outer)
	s.ctx.Set("fillStyle", g)
	s.ctx.Call("fillRect", 0, 0, w, h)
}

// StrokePath strokes a polyline.
func (s *CanvasSurface) StrokePath(pts []render.Point, color string, width, alpha float64) {
	if len(pts) < 2 {
		return
	}
	ctx := s.ctx
	ctx.Call("beginPath")
	ctx.Call("moveTo", pts[0].X, pts[0].Y)
	for _, p := range pts[1:] {
		ctx.Call("lineTo", p.X, p.Y)
	}
	ctx.Set("strokeStyle", color)
	ctx.Set("lineWidth", width)
	ctx.Set("globalAlpha", alpha)
	ctx.Call("stroke")
	ctx.Set("globalAlpha", 1)
}

// Animator drives the mandala from requestAnimationFrame.
type Animator struct {
	Mandala *render.Mandala
	Surface *CanvasSurface
	Limiter *render.Limiter
	frameID int
}

// Start schedules the first frame and redraws on window resize.
func (a *Animator) Start() {
	js.Global.Call("addEventListener", "resize", func() {
		a.Surface.Resize()
		a.Mandala.Draw(a.Surface)
	})
	a.frameID = js.Global.Call("requestAnimationFrame", a.loop).Int()
}

// Stop cancels the pending frame.
func (a *Animator) Stop() {
	js.Global.Call("cancelAnimationFrame", a.frameID)
}

func (a *Animator) loop(now float64) {
	a.frameID = js.Global.Call("requestAnimationFrame", a.loop).Int()
	if !a.Limiter.Ready(now) {
		return
	}
	a.Mandala.Advance(a.Limiter.Delta())
	a.Mandala.Draw(a.Surface)
}

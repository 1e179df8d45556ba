package render

import (
	"fmt"
	"math"
	"sync"

	"github.com/ojrac/opensimplex-go"

	"github.com/simukka/ucm-chill/common"
	"github.com/simukka/ucm-chill/engine"
	"github.com/simukka/ucm-chill/music"
)

// Surface is a 2D drawing target.
type Surface interface {
	Size() (w, h float64)
	FillBackground(inner, outer string)
	StrokePath(pts []Point, color string, width, alpha float64)
}

// ParamSource is the read-only view of the parameter store.
type ParamSource interface {
	Get(name engine.Param) float64
}

// Point is a canvas coordinate in pixels.
type Point struct {
	X, Y float64
}

// Ring is one closed wobbling path.
type Ring struct {
	Radius float64
	Lobes  int
	Points []Point
	Color  string
	Width  float64
	Alpha  float64
}

// Config tunes the mandala geometry.
type Config struct {
	MinRings, MaxRings   float64 // Ring count at creation 0 and 100
	RadiusFraction       float64 // Outer radius as a share of the smaller side
	MinWobble, MaxWobble float64 // Wobble amplitude in px at energy 0 and 100
	MinLobes, MaxLobes   float64 // Lobes of the innermost ring at style 0 and 100
	MinSpeed, MaxSpeed   float64 // Rotation in rad/s at nature 0 and 100
	NoiseShare           float64 // Fractal term amplitude as a share of the wobble
	NoiseScale           float64
	NoiseOctaves         int
	NoisePersistence     float64
	Segments             int // Points per ring
	FPS                  float64
	Seed                 int64
}

// DefaultConfig mirrors the browser toy.
var DefaultConfig = Config{
	MinRings:         3,
	MaxRings:         12,
	RadiusFraction:   0.45,
	MinWobble:        2,
	MaxWobble:        24,
	MinLobes:         3,
	MaxLobes:         9,
	MinSpeed:         0.6,
	MaxSpeed:         0.08,
	NoiseShare:       0.35,
	NoiseScale:       1.3,
	NoiseOctaves:     3,
	NoisePersistence: 0.5,
	Segments:         160,
	FPS:              30,
	Seed:             13,
}

// Mandala animates concentric rings from the current parameters. It never
// writes back to the store.
type Mandala struct {
	mu     sync.Mutex
	cfg    Config
	params ParamSource
	noise  opensimplex.Noise
	time   float64
}

// NewMandala creates a renderer reading params.
func NewMandala(params ParamSource, cfg Config) *Mandala {
	if cfg.Segments < 8 {
		cfg.Segments = 8
	}
	if cfg.NoiseOctaves < 1 {
		cfg.NoiseOctaves = 1
	}
	return &Mandala{
		cfg:    cfg,
		params: params,
		noise:  opensimplex.New(cfg.Seed),
	}
}

// Advance moves the animation clock by dt seconds.
func (m *Mandala) Advance(dt float64) {
	if dt <= 0 || math.IsNaN(dt) {
		return
	}
	m.mu.Lock()
	m.time += dt
	m.mu.Unlock()
}

// Time returns the animation clock in seconds.
func (m *Mandala) Time() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.time
}

// RingCount returns the number of rings for the current creation value.
func (m *Mandala) RingCount() int {
	n := math.Round(common.MapClamped(m.params.Get(engine.Creation), 0, 100, m.cfg.MinRings, m.cfg.MaxRings))
	return int(n)
}

// Wobble returns the wobble amplitude in pixels for the current energy.
func (m *Mandala) Wobble() float64 {
	return common.MapClamped(m.params.Get(engine.Energy), 0, 100, m.cfg.MinWobble, m.cfg.MaxWobble)
}

// Geometry computes every ring for a w x h surface at the current time.
func (m *Mandala) Geometry(w, h float64) []Ring {
	return m.GeometryAt(w, h, m.Time())
}

// GeometryAt computes the rings at animation time t.
func (m *Mandala) GeometryAt(w, h, t float64) []Ring {
	if w <= 0 || h <= 0 {
		return nil
	}
	n := m.RingCount()
	if n < 1 {
		return nil
	}

	style := m.params.Get(engine.Style)
	brightness := m.params.Get(engine.Brightness)
	wobble := m.Wobble()
	noiseAmp := wobble * m.cfg.NoiseShare
	baseLobes := int(math.Round(common.MapClamped(style, 0, 100, m.cfg.MinLobes, m.cfg.MaxLobes)))
	speed := common.MapClamped(m.params.Get(engine.Nature), 0, 100, m.cfg.MinSpeed, m.cfg.MaxSpeed)
	preset := music.StyleFor(style)

	cx, cy := w/2, h/2
	maxR := math.Min(w, h) * m.cfg.RadiusFraction

	rings := make([]Ring, n)
	for i := 0; i < n; i++ {
		r := maxR * float64(i+1) / float64(n)
		lobes := baseLobes + i
		dir := 1.0
		if i%2 == 1 {
			dir = -1
		}
		phase := t*speed*dir + float64(i)

		pts := make([]Point, m.cfg.Segments+1)
		for s := 0; s <= m.cfg.Segments; s++ {
			theta := 2 * math.Pi * float64(s) / float64(m.cfg.Segments)
			cos, sin := math.Cos(theta), math.Sin(theta)
			rr := r + wobble*math.Sin(float64(lobes)*theta+phase)
			rr += noiseAmp * m.fbm(cos*m.cfg.NoiseScale+float64(i)*3.7, sin*m.cfg.NoiseScale+t*0.2)
			if rr < 0 {
				rr = 0
			}
			pts[s] = Point{X: cx + rr*cos, Y: cy + rr*sin}
		}

		width := Theme.RingLineWidth
		if i == 0 {
			width = Theme.InnerRingLineWidth
		}
		alpha := Theme.RingAlphaMax
		if n > 1 {
			alpha = common.Map(float64(i), 0, float64(n-1), Theme.RingAlphaMax, Theme.RingAlphaMin)
		}
		rings[i] = Ring{
			Radius: r,
			Lobes:  lobes,
			Points: pts,
			Color:  RingColor(preset, i, brightness),
			Width:  width,
			Alpha:  alpha,
		}
	}
	return rings
}

// fbm is fractal Brownian motion over OpenSimplex noise, normalised to
// [-1, 1].
func (m *Mandala) fbm(x, y float64) float64 {
	var total, maxValue float64
	frequency, amplitude := 1.0, 1.0
	for o := 0; o < m.cfg.NoiseOctaves; o++ {
		total += m.noise.Eval2(x*frequency, y*frequency) * amplitude
		maxValue += amplitude
		amplitude *= m.cfg.NoisePersistence
		frequency *= 2
	}
	return total / maxValue
}

// Draw renders one frame.
func (m *Mandala) Draw(s Surface) {
	w, h := s.Size()
	s.FillBackground(Theme.BackgroundInner, Theme.BackgroundOuter)
	for _, r := range m.Geometry(w, h) {
		s.StrokePath(r.Points, r.Color, r.Width, r.Alpha)
	}
}

func (r Ring) String() string {
	return fmt.Sprintf("ring r=%.1f lobes=%d pts=%d", r.Radius, r.Lobes, len(r.Points))
}

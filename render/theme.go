package render

import (
	"fmt"

	"github.com/simukka/ucm-chill/common"
	"github.com/simukka/ucm-chill/music"
)

// Theme holds all visual styling constants for easy customization.
var Theme = struct {
	// Background radial gradient
	BackgroundInner string
	BackgroundOuter string

	// Ring colours: one base hue per style, shifted per ring
	StyleHues    map[music.Style]float64
	HueStep      float64 // Degrees between adjacent rings
	Saturation   float64 // Percent
	LightnessMin float64 // Percent at brightness = 0
	LightnessMax float64 // Percent at brightness = 100
	RingAlphaMin float64 // Outermost ring
	RingAlphaMax float64 // Innermost ring

	// Line widths
	RingLineWidth      float64
	InnerRingLineWidth float64
}{
	// Background - deep night blue
	BackgroundInner: "#141a2e",
	BackgroundOuter: "#000",

	// Rings - teal for ambient, violet for classical, acid green
	StyleHues: map[music.Style]float64{
		music.StyleAmbient:   190,
		music.StyleClassical: 265,
		music.StyleAcid:      95,
	},
	HueStep:      12,
	Saturation:   70,
	LightnessMin: 35,
	LightnessMax: 70,
	RingAlphaMin: 0.25,
	RingAlphaMax: 0.9,

	// Line widths
	RingLineWidth:      1.5,
	InnerRingLineWidth: 2.5,
}

// RingColor returns the stroke colour of ring i for a style and a 0..100
// brightness value.
func RingColor(style music.Style, i int, brightness float64) string {
	hue := Theme.StyleHues[style] + float64(i)*Theme.HueStep
	for hue >= 360 {
		hue -= 360
	}
	light := common.MapClamped(brightness, 0, 100, Theme.LightnessMin, Theme.LightnessMax)
	return fmt.Sprintf("hsl(%.0f, %.0f%%, %.0f%%)", hue, Theme.Saturation, light)
}

package music

import (
	"math"
	"sort"
	"strings"
)

// Style identifies one of the named presets the style slider selects.
type Style int

const (
	StyleAmbient Style = iota
	StyleClassical
	StyleAcid
	styleCount
)

func (s Style) String() string {
	switch s {
	case StyleAmbient:
		return "Ambient"
	case StyleClassical:
		return "Classical"
	case StyleAcid:
		return "Acid"
	default:
		return "Unknown"
	}
}

// PresetInfo holds preset data for the style display
type PresetInfo struct {
	Style Style
	Key   string
	Name  string
}

// Preset bundles the tables and tempo range of one musical style. Only one
// preset is active at a time; tables are never merged across presets.
type Preset struct {
	Name string // "Key - Description", e.g. "C Major - Quiet Ambient"

	Scale  *Table      // Melody pitches
	Bass   *Table      // Acid overlay bassline
	Chords *ChordTable // Chord pad voicings

	// Tempo range the energy slider sweeps
	MinBPM float64
	MaxBPM float64

	// Drone pad root (Hz); pads sit at root, fifth and octave
	PadRootHz float64
}

// Presets is the table of named styles.
var Presets = map[Style]*Preset{
	StyleAmbient: {
		Name:  "C Major - Quiet Ambient",
		Scale: MustTable("ambient-scale", "C4", "D4", "E4", "G4", "A4", "C5", "D5", "E5"),
		Bass:  MustTable("ambient-bass", "C2", "C2", "G2", "C3", "A1", "C2", "E2", "G2"),
		Chords: MustChordTable("ambient-chords",
			[]string{"C3", "G3", "E4"},
			[]string{"A2", "E3", "C4"},
			[]string{"F2", "C3", "A3"},
			[]string{"G2", "D3", "B3"},
		),
		MinBPM:    60,
		MaxBPM:    90,
		PadRootHz: 110,
	},
	StyleClassical: {
		Name:  "A Minor - Nocturne",
		Scale: MustTable("classical-scale", "A3", "B3", "C4", "D4", "E4", "F4", "G#4", "A4"),
		Bass:  MustTable("classical-bass", "A1", "A2", "E2", "A2", "D2", "F2", "E2", "G#1"),
		Chords: MustChordTable("classical-chords",
			[]string{"A2", "E3", "C4", "E4"},
			[]string{"D3", "A3", "F4"},
			[]string{"E2", "B3", "G#4"},
			[]string{"F2", "C4", "A4"},
		),
		MinBPM:    56,
		MaxBPM:    84,
		PadRootHz: 110,
	},
	StyleAcid: {
		Name:  "A Phrygian - Acid Tide",
		Scale: MustTable("acid-scale", "A3", "Bb3", "C4", "D4", "E4", "F4", "G4", "A4"),
		Bass:  MustTable("acid-bass", "A1", "A1", "A2", "Bb1", "A1", "C2", "A1", "G1", "A1", "E2", "A1", "F1", "A2", "A1", "D2", "A1"),
		Chords: MustChordTable("acid-chords",
			[]string{"A2", "E3", "A3"},
			[]string{"Bb2", "F3", "Bb3"},
			[]string{"G2", "D3", "G3"},
		),
		MinBPM:    110,
		MaxBPM:    130,
		PadRootHz: 55,
	},
}

// PresetForStyle buckets a 0..100 style value into a preset.
func PresetForStyle(value float64) *Preset {
	return Presets[StyleFor(value)]
}

// StyleFor buckets a 0..100 style value into one of the named styles.
func StyleFor(value float64) Style {
	if math.IsNaN(value) || value < 0 {
		value = 0
	}
	if value > 100 {
		value = 100
	}
	s := Style(value / 100 * float64(styleCount))
	if s >= styleCount {
		s = styleCount - 1
	}
	return s
}

// GetPreset returns the preset for a style (defaults to ambient)
func GetPreset(style Style) *Preset {
	if preset, ok := Presets[style]; ok {
		return preset
	}
	return Presets[StyleAmbient]
}

// AllPresetInfo returns info for all presets, sorted by style order
func AllPresetInfo() []PresetInfo {
	presets := make([]PresetInfo, 0, len(Presets))
	for style, preset := range Presets {
		// Split "C Major - Quiet Ambient" into key and description
		key := preset.Name
		description := ""
		if idx := strings.Index(preset.Name, " - "); idx > 0 {
			key = preset.Name[:idx]
			description = preset.Name[idx+3:]
		}
		presets = append(presets, PresetInfo{
			Style: style,
			Key:   key,
			Name:  description,
		})
	}
	sort.Slice(presets, func(i, j int) bool {
		return presets[i].Style < presets[j].Style
	})
	return presets
}

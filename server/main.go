//go:build !js
// +build !js

// Command server hosts the browser build and renders MIDI sketches of the
// engine on request.
package main

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/simukka/ucm-chill/engine"
	"github.com/simukka/ucm-chill/midiout"
	"github.com/simukka/ucm-chill/music"
	"github.com/simukka/ucm-chill/native"
)

//go:embed index.html
var indexHTML []byte

// maxRenderSeconds bounds /api/render.mid so one request cannot pin a CPU.
const maxRenderSeconds = 300

var errBadQuery = errors.New("bad query")

// renderRequest is the parsed query of /api/render.mid.
type renderRequest struct {
	Seed    uint32
	Seconds float64
	Acid    bool
	Auto    bool
	Params  map[engine.Param]float64
}

func parseRenderRequest(r *http.Request) (renderRequest, error) {
	q := r.URL.Query()
	req := renderRequest{Seconds: 60, Params: make(map[engine.Param]float64)}

	if s := q.Get("seed"); s != "" {
		v, err := strconv.ParseUint(s, 10, 32)
		if err != nil {
			return req, fmt.Errorf("%w: seed %q", errBadQuery, s)
		}
		req.Seed = uint32(v)
	}
	if s := q.Get("seconds"); s != "" {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil || v <= 0 || v > maxRenderSeconds {
			return req, fmt.Errorf("%w: seconds must be in (0, %d]", errBadQuery, maxRenderSeconds)
		}
		req.Seconds = v
	}
	req.Acid = q.Get("acid") == "1" || q.Get("acid") == "true"
	req.Auto = q.Get("auto") == "1" || q.Get("auto") == "true"

	for _, name := range engine.Names() {
		s := q.Get(string(name))
		if s == "" {
			continue
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return req, fmt.Errorf("%w: %s %q", errBadQuery, name, s)
		}
		req.Params[name] = v
	}
	return req, nil
}

// renderMIDI runs the engine offline and returns the captured notes.
func renderMIDI(ctx context.Context, req renderRequest) (*midiout.Recorder, error) {
	synth, err := native.NewSynth(native.DefaultConfig, nil)
	if err != nil {
		return nil, err
	}
	params := engine.NewParams()
	for name, v := range req.Params {
		if _, err := params.Set(name, v); err != nil {
			return nil, fmt.Errorf("%w: %v", errBadQuery, err)
		}
	}

	cfg := engine.DefaultConfig
	cfg.Seed = req.Seed
	rec := midiout.NewRecorder(0)
	eng, err := engine.New(synth, params, cfg, engine.WithScheduler(synth), engine.WithSink(rec))
	if err != nil {
		return nil, err
	}
	eng.SetAcid(req.Acid)
	eng.SetAuto(req.Auto)
	if err := eng.Start(ctx); err != nil {
		return nil, err
	}
	synth.Render(req.Seconds)
	eng.Stop()
	return rec, nil
}

func handleRender(w http.ResponseWriter, r *http.Request) {
	req, err := parseRenderRequest(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	start := time.Now()
	rec, err := renderMIDI(r.Context(), req)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, errBadQuery) {
			status = http.StatusBadRequest
		}
		http.Error(w, err.Error(), status)
		return
	}

	var buf bytes.Buffer
	if _, err := rec.WriteTo(&buf); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	log.Printf("rendered %.0fs seed %d: %d notes in %v", req.Seconds, req.Seed, rec.Count(), time.Since(start))

	w.Header().Set("Content-Type", "audio/midi")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="chill-%d.mid"`, req.Seed))
	w.Write(buf.Bytes())
}

func handlePresets(w http.ResponseWriter, r *http.Request) {
	type preset struct {
		Style  string  `json:"style"`
		Key    string  `json:"key"`
		Name   string  `json:"name"`
		MinBPM float64 `json:"minBpm"`
		MaxBPM float64 `json:"maxBpm"`
	}
	var out []preset
	for _, info := range music.AllPresetInfo() {
		p := music.GetPreset(info.Style)
		out = append(out, preset{
			Style:  info.Style.String(),
			Key:    info.Key,
			Name:   info.Name,
			MinBPM: p.MinBPM,
			MaxBPM: p.MaxBPM,
		})
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(out)
}

func newMux(staticDir string) *http.ServeMux {
	mux := http.NewServeMux()
	static := http.FileServer(http.Dir(staticDir))

	// Serve embedded index.html at root path
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" || r.URL.Path == "/index.html" {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.Write(indexHTML)
			return
		}
		// main.js and friends come from the gopherjs build output
		static.ServeHTTP(w, r)
	})

	mux.HandleFunc("/api/presets", handlePresets)
	mux.HandleFunc("/api/render.mid", handleRender)

	// Health check
	mux.HandleFunc("/api/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"healthy"}`))
	})
	return mux
}

func main() {
	port := flag.Int("port", 8080, "HTTP server port")
	staticDir := flag.String("static", ".", "Directory to serve static files from")
	flag.Parse()

	addr := fmt.Sprintf(":%d", *port)
	log.Printf("UCM Chill server starting on http://localhost%s", addr)
	log.Printf("Serving static files from: %s", *staticDir)
	log.Printf("MIDI render endpoint: /api/render.mid?seed=1&seconds=60&energy=50")

	if err := http.ListenAndServe(addr, newMux(*staticDir)); err != nil {
		log.Fatal(err)
	}
}

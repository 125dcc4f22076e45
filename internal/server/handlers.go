package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/medcoast/ges-cli/internal/chart"
	"github.com/medcoast/ges-cli/internal/engine"
	"github.com/medcoast/ges-cli/internal/export"
	"github.com/medcoast/ges-cli/internal/ges"
	"github.com/medcoast/ges-cli/internal/region"
)

// RunResult is the JSON session state of the latest completed run.
type RunResult struct {
	ID        string            `json:"id"`
	Params    ges.Params        `json:"params"`
	Counts    []ClassCount      `json:"counts"`
	Total     int64             `json:"total"`
	Tiles     map[string]string `json:"tiles"`
	Exports   []ExportFile      `json:"exports"`
	VisMin    float64           `json:"vis_min"`
	VisMax    float64           `json:"vis_max"`
	CreatedAt time.Time         `json:"created_at"`

	boundary json.RawMessage
	strip    json.RawMessage
}

// ClassCount is one legend row of a run result.
type ClassCount struct {
	Label string `json:"label"`
	Color string `json:"color"`
	Count int64  `json:"count"`
}

// ExportFile is one export outcome of a run.
type ExportFile struct {
	Name  string `json:"name"`
	URL   string `json:"url,omitempty"`
	Error string `json:"error,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	data := struct {
		Countries []string
		Classes   [5]ges.Class
		MinYear   int
		MaxYear   int
		MinBuffer int
		MaxBuffer int
	}{
		Countries: region.Countries,
		Classes:   ges.Classes,
		MinYear:   ges.MinYear,
		MaxYear:   ges.MaxYear,
		MinBuffer: region.MinBufferKM,
		MaxBuffer: region.MaxBufferKM,
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.index.Execute(w, data); err != nil {
		zap.L().Error("render index", zap.Error(err))
	}
}

func (s *Server) handleCountries(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"countries": region.Countries})
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	var params ges.Params
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", "")
		return
	}
	if err := params.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "")
		return
	}

	result, counts, err := s.run(r, params)
	if err != nil {
		zap.L().Error("run failed",
			zap.String("country", params.Country),
			zap.Error(err),
		)
		writeEngineError(w, err)
		return
	}

	s.mu.Lock()
	s.last = result
	s.counts = counts
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, result)
}

func (s *Server) run(r *http.Request, params ges.Params) (*RunResult, ges.Classification, error) {
	ctx := r.Context()

	strip, err := s.resolver.CoastalStrip(params.Country, params.BufferKM)
	if err != nil {
		return nil, nil, err
	}

	change, err := s.pipeline.Run(ctx, strip.Analysis, params.StartYear, params.EndYear)
	if err != nil {
		return nil, nil, err
	}

	counts, err := s.pipeline.ClassCounts(ctx, change.Diff)
	if err != nil {
		return nil, nil, err
	}

	// The three map layers are independent round trips.
	vis := engine.VisParams{
		Band:    ges.BandName,
		Min:     ges.VisMin,
		Max:     ges.VisMax,
		Palette: ges.Palette(),
	}
	tiles := make(map[string]string, 3)
	var tileMu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for name, img := range map[string]engine.Image{
		"first":  change.First,
		"last":   change.Last,
		"change": change.Diff,
	} {
		name, img := name, img
		g.Go(func() error {
			url, err := s.eng.TileLayer(gctx, img, vis)
			if err != nil {
				return err
			}
			tileMu.Lock()
			tiles[name] = url
			tileMu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	boundaryJSON, err := s.eng.GeometryGeoJSON(ctx, strip.Country)
	if err != nil {
		return nil, nil, err
	}
	stripJSON, err := s.eng.GeometryGeoJSON(ctx, strip.Analysis)
	if err != nil {
		return nil, nil, err
	}

	exports := make([]ExportFile, 0, 3)
	for _, res := range s.exporter.Run(ctx, change, strip.Analysis) {
		f := ExportFile{Name: res.Name}
		if res.Err != nil {
			f.Error = res.Err.Error()
		} else {
			f.URL = "/downloads/" + res.Name
		}
		exports = append(exports, f)
	}

	result := &RunResult{
		ID:        uuid.New().String(),
		Params:    params,
		Total:     counts.Total(),
		Tiles:     tiles,
		Exports:   exports,
		VisMin:    ges.VisMin,
		VisMax:    ges.VisMax,
		CreatedAt: time.Now().UTC(),
		boundary:  boundaryJSON,
		strip:     stripJSON,
	}
	for _, cc := range counts {
		result.Counts = append(result.Counts, ClassCount{
			Label: cc.Class.Label,
			Color: cc.Class.Color,
			Count: cc.Count,
		})
	}

	if s.store != nil {
		if saved, err := s.store.Save(ctx, params, counts); err != nil {
			zap.L().Warn("record run history", zap.Error(err))
		} else {
			result.ID = saved.ID
		}
	}

	return result, counts, nil
}

func (s *Server) handleResult(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	last := s.last
	s.mu.Unlock()

	if last == nil {
		writeError(w, http.StatusNotFound, "no completed run", "")
		return
	}
	writeJSON(w, http.StatusOK, last)
}

func (s *Server) handleChart(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	last, counts := s.last, s.counts
	s.mu.Unlock()

	if last == nil {
		writeError(w, http.StatusNotFound, "no completed run", "")
		return
	}

	png, err := chart.Render(counts, last.Params.Country, last.Params.StartYear, last.Params.EndYear)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error(), "")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Write(png) //nolint:errcheck
}

func (s *Server) handleBoundary(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	last := s.last
	s.mu.Unlock()

	if last == nil {
		writeError(w, http.StatusNotFound, "no completed run", "")
		return
	}
	writeJSON(w, http.StatusOK, map[string]json.RawMessage{
		"country": last.boundary,
		"strip":   last.strip,
	})
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	switch name {
	case export.ChangeFile, export.FirstFile, export.LastFile:
	default:
		writeError(w, http.StatusNotFound, "unknown download", "")
		return
	}
	http.ServeFile(w, r, filepath.Join(s.exporter.Dir(), name))
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body) //nolint:errcheck
}

func writeError(w http.ResponseWriter, status int, msg, hint string) {
	body := map[string]string{"error": msg}
	if hint != "" {
		body["hint"] = hint
	}
	writeJSON(w, status, body)
}

// writeEngineError maps the backend error taxonomy to HTTP statuses and
// surfaces the actionable hint when one is attached.
func writeEngineError(w http.ResponseWriter, err error) {
	var ee *engine.Error
	hint := ""
	if errors.As(err, &ee) {
		hint = ee.Hint
	}
	switch engine.KindOf(err) {
	case engine.KindNotFound:
		writeError(w, http.StatusNotFound, err.Error(), hint)
	case engine.KindResourceExceeded:
		writeError(w, http.StatusBadGateway, err.Error(), hint)
	case engine.KindTimeout:
		writeError(w, http.StatusGatewayTimeout, err.Error(), hint)
	default:
		writeError(w, http.StatusInternalServerError, err.Error(), hint)
	}
}

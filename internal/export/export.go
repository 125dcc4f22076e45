// Package export writes the index rasters of an analysis run to local
// GeoTIFF files.
package export

import (
	"context"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/medcoast/ges-cli/internal/engine"
	"github.com/medcoast/ges-cli/internal/ges"
)

// Fixed output file names, one per raster of a run.
const (
	ChangeFile = "ges-change.tif"
	FirstFile  = "ges-first.tif"
	LastFile   = "ges-last.tif"
)

// Exporter downloads rasters through the backend and writes them under
// a local directory.
type Exporter struct {
	eng    engine.Engine
	dir    string
	scaleM float64
}

// New creates an exporter writing into dir at the given raster scale.
func New(eng engine.Engine, dir string, scaleM float64) *Exporter {
	return &Exporter{eng: eng, dir: dir, scaleM: scaleM}
}

// Dir returns the output directory.
func (e *Exporter) Dir() string { return e.dir }

// Result is the outcome of one file export.
type Result struct {
	Name string
	Path string
	Err  error
}

// Run exports the diff, first and last rasters in that order. Exports
// are independent: a failed file is reported in its Result and the
// remaining files are still attempted.
func (e *Exporter) Run(ctx context.Context, change *ges.Change, region engine.Geometry) []Result {
	files := []struct {
		name string
		img  engine.Image
	}{
		{ChangeFile, change.Diff},
		{FirstFile, change.First},
		{LastFile, change.Last},
	}

	results := make([]Result, 0, len(files))
	for _, f := range files {
		path, err := e.one(ctx, f.name, f.img, region)
		if err != nil {
			zap.L().Warn("export failed",
				zap.String("file", f.name),
				zap.Error(err),
			)
		} else {
			zap.L().Info("exported raster", zap.String("path", path))
		}
		results = append(results, Result{Name: f.name, Path: path, Err: err})
	}
	return results
}

func (e *Exporter) one(ctx context.Context, name string, img engine.Image, region engine.Geometry) (string, error) {
	path := filepath.Join(e.dir, name)
	data, err := e.eng.ExportGeoTIFF(ctx, img, region, e.scaleM)
	if err != nil {
		// A failed export must not leave an earlier run's file behind
		// as a stale download.
		os.Remove(path) //nolint:errcheck
		return "", eris.Wrapf(err, "export: download %s", name)
	}

	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", eris.Wrap(err, "export: create output directory")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		os.Remove(path) //nolint:errcheck
		return "", eris.Wrapf(err, "export: write %s", name)
	}
	return path, nil
}

// Failed reports whether any result carries an error.
func Failed(results []Result) bool {
	for _, r := range results {
		if r.Err != nil {
			return true
		}
	}
	return false
}

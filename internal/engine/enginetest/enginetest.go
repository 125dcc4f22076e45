// Package enginetest is an in-memory engine.Engine used by tests: plain
// float grids with validity masks stand in for remote rasters, and
// axis-aligned rectangles (optionally with one rectangular hole) stand
// in for vector geometry. One planar unit equals one kilometer and one
// pixel, which keeps buffer math and zonal reductions trivially
// checkable.
package enginetest

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rotisserie/eris"

	"github.com/medcoast/ges-cli/internal/engine"
)

// UnitMeters is the size of one planar unit in backend buffer units.
const UnitMeters = 1000.0

// Engine is the in-memory backend.
type Engine struct {
	collections map[string][]*Scene
	tables      map[string][]Feature

	// StatsErr, when set, fails the next ComputeStats call and clears.
	StatsErr error
	// ExportErr, when set, decides per-call whether ExportGeoTIFF fails.
	// The argument is the zero-based export call index.
	ExportErr func(call int) error
	// TileErr, when set, fails every TileLayer call.
	TileErr error

	// StatsCalls counts ComputeStats round trips, for batching assertions.
	StatsCalls  int
	exportCalls int
	tileCalls   int
}

// New creates an empty in-memory engine.
func New() *Engine {
	return &Engine{
		collections: make(map[string][]*Scene),
		tables:      make(map[string][]Feature),
	}
}

// Feature is one vector feature of a test table.
type Feature struct {
	Props map[string]string
	Geom  *Rect
}

// AddTable registers a vector asset.
func (e *Engine) AddTable(id string, features ...Feature) {
	e.tables[id] = append(e.tables[id], features...)
}

// AddScenes registers raster scenes under a product identifier.
func (e *Engine) AddScenes(product string, scenes ...*Scene) {
	e.collections[product] = append(e.collections[product], scenes...)
}

// FeatureCollection implements engine.Engine.
func (e *Engine) FeatureCollection(id string) engine.Table {
	return &table{eng: e, id: id, features: e.tables[id]}
}

// ImageCollection implements engine.Engine.
func (e *Engine) ImageCollection(id string) engine.Collection {
	return &collection{eng: e, scenes: e.collections[id]}
}

// ComputeStats implements engine.Engine. All requests are evaluated in
// this single call; StatsCalls records the round trip.
func (e *Engine) ComputeStats(_ context.Context, reqs []engine.StatRequest) (map[string]engine.Stats, error) {
	e.StatsCalls++
	if e.StatsErr != nil {
		err := e.StatsErr
		e.StatsErr = nil
		return nil, err
	}

	out := make(map[string]engine.Stats, len(reqs))
	for _, req := range reqs {
		img, ok := req.Image.(*Image)
		if !ok {
			return nil, eris.Errorf("enginetest: foreign image in request %q", req.Name)
		}
		var clip *Rect
		if req.Region != nil {
			r, ok := req.Region.(*Rect)
			if !ok {
				return nil, eris.Errorf("enginetest: foreign geometry in request %q", req.Name)
			}
			clip = r
		}
		stats, err := reduce(img, req.Reducer, clip)
		if err != nil {
			return nil, err
		}
		out[req.Name] = stats
	}
	return out, nil
}

func reduce(img *Image, reducer engine.Reducer, clip *Rect) (engine.Stats, error) {
	g := img.grid()
	var (
		count    int64
		min, max float64
		seen     bool
	)
	for i := 0; i < g.H; i++ {
		for j := 0; j < g.W; j++ {
			if !g.Valid[i*g.W+j] {
				continue
			}
			if clip != nil && !clip.ContainsPoint(g.centerX(j), g.centerY(i)) {
				continue
			}
			v := g.Vals[i*g.W+j]
			count++
			if !seen || v < min {
				min = v
			}
			if !seen || v > max {
				max = v
			}
			seen = true
		}
	}

	switch reducer {
	case engine.ReducerMinMax:
		if !seen {
			return engine.Stats{}, nil
		}
		return engine.Stats{
			img.band + "_min": min,
			img.band + "_max": max,
		}, nil
	case engine.ReducerCount:
		return engine.Stats{img.band: float64(count)}, nil
	default:
		return nil, eris.Errorf("enginetest: unsupported reducer %q", reducer)
	}
}

// GeometryGeoJSON implements engine.Engine.
func (e *Engine) GeometryGeoJSON(_ context.Context, g engine.Geometry) ([]byte, error) {
	r, ok := g.(*Rect)
	if !ok {
		return nil, eris.New("enginetest: foreign geometry")
	}
	return r.GeoJSON()
}

// TileLayer implements engine.Engine.
func (e *Engine) TileLayer(_ context.Context, _ engine.Image, vis engine.VisParams) (string, error) {
	if e.TileErr != nil {
		return "", e.TileErr
	}
	e.tileCalls++
	return fmt.Sprintf("mem://layers/%s-%d/{z}/{x}/{y}", vis.Band, e.tileCalls), nil
}

// Scene construction helpers.

// Scene is one timestamped multi-band raster.
type Scene struct {
	Date  time.Time
	Bands map[string]*Grid
	// Primary is the band an unselected image reads from.
	Primary string
}

// NewScene builds a scene whose bands share the given shape and origin.
// Band values are row-major; a nil validity slice means all valid.
func NewScene(date time.Time, primary string, w, h int, originX, originY float64, bands map[string][]float64) *Scene {
	s := &Scene{Date: date, Primary: primary, Bands: make(map[string]*Grid, len(bands))}
	for name, vals := range bands {
		g := NewGrid(name, w, h, originX, originY)
		copy(g.Vals, vals)
		s.Bands[name] = g
	}
	return s
}

type collection struct {
	eng    *Engine
	scenes []*Scene
	bounds *Rect
	mapFn  func(engine.Image) engine.Image
	start  time.Time
	end    time.Time
	dated  bool
}

func (c *collection) clone() *collection {
	cp := *c
	return &cp
}

func (c *collection) FilterBounds(g engine.Geometry) engine.Collection {
	cp := c.clone()
	if r, ok := g.(*Rect); ok {
		cp.bounds = r
	}
	return cp
}

func (c *collection) FilterDate(start, end time.Time) engine.Collection {
	cp := c.clone()
	cp.start, cp.end, cp.dated = start, end, true
	return cp
}

func (c *collection) Map(fn func(engine.Image) engine.Image) engine.Collection {
	cp := c.clone()
	cp.mapFn = fn
	return cp
}

func (c *collection) Median() engine.Image {
	var imgs []*Image
	for _, s := range c.scenes {
		if c.dated && (s.Date.Before(c.start) || s.Date.After(c.end)) {
			continue
		}
		img := &Image{eng: c.eng, bands: s.Bands, band: s.Primary}
		if c.mapFn != nil {
			mapped := c.mapFn(img)
			m, ok := mapped.(*Image)
			if !ok {
				panic("enginetest: map function returned foreign image")
			}
			img = m
		}
		imgs = append(imgs, img)
	}

	if len(imgs) == 0 {
		return &Image{eng: c.eng, bands: map[string]*Grid{}, band: ""}
	}

	first := imgs[0].grid()
	out := NewGrid(imgs[0].band, first.W, first.H, first.OriginX, first.OriginY)
	vals := make([]float64, 0, len(imgs))
	for idx := range out.Vals {
		vals = vals[:0]
		for _, img := range imgs {
			g := img.grid()
			if g.Valid[idx] {
				vals = append(vals, g.Vals[idx])
			}
		}
		if len(vals) == 0 {
			out.Valid[idx] = false
			continue
		}
		sort.Float64s(vals)
		mid := len(vals) / 2
		if len(vals)%2 == 1 {
			out.Vals[idx] = vals[mid]
		} else {
			out.Vals[idx] = (vals[mid-1] + vals[mid]) / 2
		}
	}
	return &Image{
		eng:   c.eng,
		bands: map[string]*Grid{out.Band: out},
		band:  out.Band,
	}
}

type table struct {
	eng      *Engine
	id       string
	features []Feature
}

func (t *table) FilterEquals(property, value string) engine.Table {
	var kept []Feature
	for _, f := range t.features {
		if f.Props[property] == value {
			kept = append(kept, f)
		}
	}
	return &table{eng: t.eng, id: t.id, features: kept}
}

func (t *table) FilterBounds(g engine.Geometry) engine.Table {
	r, ok := g.(*Rect)
	if !ok {
		return t
	}
	var kept []Feature
	for _, f := range t.features {
		if f.Geom != nil && f.Geom.overlaps(r) {
			kept = append(kept, f)
		}
	}
	return &table{eng: t.eng, id: t.id, features: kept}
}

// Geometry dissolves the table to the bounding rectangle of its
// features. An empty table dissolves to an empty rectangle, mirroring
// the remote backend's silent empty geometry.
func (t *table) Geometry() engine.Geometry {
	var out *Rect
	for _, f := range t.features {
		if f.Geom == nil {
			continue
		}
		if out == nil {
			r := *f.Geom
			out = &r
			continue
		}
		out = out.union(f.Geom)
	}
	if out == nil {
		return &Rect{}
	}
	return out
}

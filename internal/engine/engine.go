// Package engine defines the capability surface of a remote geospatial
// processing backend: lazy raster/vector expressions plus the handful of
// blocking operations that materialize them (zonal statistics, GeoTIFF
// export, tile layers, geometry fetch).
//
// Handles are lazy: building an expression never touches the network.
// A handle is only valid with the Engine that created it; mixing handles
// from different engines is a programming error.
package engine

import (
	"context"
	"time"
)

// Reducer names a zonal aggregation.
type Reducer string

const (
	// ReducerMinMax produces "<band>_min" and "<band>_max" outputs.
	ReducerMinMax Reducer = "minMax"
	// ReducerCount produces a "<band>" output holding the valid pixel count.
	ReducerCount Reducer = "count"
)

// StatRequest describes one zonal reduction. Region may be nil, in which
// case the image's own footprint is reduced.
type StatRequest struct {
	Name      string
	Image     Image
	Reducer   Reducer
	Region    Geometry
	ScaleM    float64
	MaxPixels int64
}

// Stats holds the named outputs of a single reduction.
type Stats map[string]float64

// VisParams control how a tile layer is styled.
type VisParams struct {
	Band    string
	Min     float64
	Max     float64
	Palette []string
}

// Engine is the client-side view of the remote backend.
//
// ComputeStats evaluates all requests in a single backend round trip;
// callers batch related reductions instead of looping over the network.
type Engine interface {
	// FeatureCollection opens a vector asset by identifier.
	FeatureCollection(id string) Table
	// ImageCollection opens a raster product time series by identifier.
	ImageCollection(id string) Collection

	// ComputeStats runs the given zonal reductions in one request and
	// returns results keyed by StatRequest.Name.
	ComputeStats(ctx context.Context, reqs []StatRequest) (map[string]Stats, error)

	// GeometryGeoJSON materializes a geometry expression as GeoJSON bytes.
	GeometryGeoJSON(ctx context.Context, g Geometry) ([]byte, error)

	// ExportGeoTIFF renders the image clipped to region at scaleM
	// meters/pixel and returns the GeoTIFF bytes.
	ExportGeoTIFF(ctx context.Context, img Image, region Geometry, scaleM float64) ([]byte, error)

	// TileLayer registers a styled map layer and returns an XYZ tile URL
	// template with {z}/{x}/{y} placeholders.
	TileLayer(ctx context.Context, img Image, vis VisParams) (string, error)
}

// Table is a lazy vector feature collection.
type Table interface {
	// FilterEquals keeps features whose property equals value (exact match).
	FilterEquals(property, value string) Table
	// FilterBounds keeps features intersecting the geometry.
	FilterBounds(g Geometry) Table
	// Geometry dissolves the table into a single geometry expression.
	Geometry() Geometry
}

// Geometry is a lazy vector geometry supporting the algebra the coastal
// resolver needs. Buffer accepts negative distances (inward shrink).
type Geometry interface {
	Buffer(meters float64) Geometry
	Difference(other Geometry) Geometry
	Intersection(other Geometry) Geometry
}

// Collection is a lazy raster scene time series.
type Collection interface {
	FilterBounds(g Geometry) Collection
	// FilterDate keeps scenes in the closed interval [start, end].
	FilterDate(start, end time.Time) Collection
	// Map applies fn to every scene. fn must be a pure expression
	// builder; an implementation may invoke it once at build time with
	// a placeholder handle, or once per scene.
	Map(fn func(Image) Image) Collection
	// Median composites the collection per-pixel.
	Median() Image
}

// Image is a lazy raster expression. Binary ops pair images from the
// same engine; const ops take scalars.
type Image interface {
	Select(band string) Image
	Rename(name string) Image
	Clip(region Geometry) Image

	// UpdateMask drops pixels where mask is zero or invalid.
	UpdateMask(mask Image) Image
	// Unmask turns invalid pixels into zero-valued valid ones.
	Unmask() Image
	// FocalMean replaces each pixel with the mean of its neighborhood.
	FocalMean(radiusPixels float64) Image

	Add(other Image) Image
	Subtract(other Image) Image
	And(other Image) Image

	AddConst(v float64) Image
	SubtractConst(v float64) Image
	MultiplyConst(v float64) Image
	DivideConst(v float64) Image
	BitwiseAndConst(v int64) Image

	Gte(v float64) Image
	Lte(v float64) Image
	Lt(v float64) Image
}

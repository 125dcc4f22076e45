package region

import (
	"github.com/rotisserie/eris"

	"github.com/medcoast/ges-cli/internal/engine"
)

// Resolver derives coastal analysis strips from the fixed reference
// datasets.
type Resolver struct {
	eng        engine.Engine
	boundaries string
	nameField  string
	coastline  string
}

// NewResolver creates a resolver over the given backend and asset ids.
func NewResolver(eng engine.Engine, boundaries, nameField, coastline string) *Resolver {
	return &Resolver{
		eng:        eng,
		boundaries: boundaries,
		nameField:  nameField,
		coastline:  coastline,
	}
}

// Strip is a resolved coastal analysis region.
type Strip struct {
	// Analysis is the buffered band straddling the country's coastline.
	Analysis engine.Geometry
	// Country is the full country boundary, kept for map framing and the
	// boundary outline layer.
	Country engine.Geometry
}

// CoastalStrip resolves the analysis strip for a country and buffer
// distance: the outer band of the country boundary (boundary minus its
// inward buffer) intersected with the coastline buffered outward by the
// same distance. The strip therefore lies within bufferKM of the
// shoreline on both sides.
//
// The country name is validated against the enumeration before any
// expression is built, so an unknown name fails loudly instead of
// propagating an empty geometry through the pipeline.
func (r *Resolver) CoastalStrip(country string, bufferKM int) (*Strip, error) {
	if !Supported(country) {
		return nil, engine.NotFoundError("resolve region",
			eris.Errorf("region: unknown country %q", country))
	}
	if bufferKM < MinBufferKM || bufferKM > MaxBufferKM {
		return nil, eris.Errorf("region: buffer must be %d-%d km, got %d",
			MinBufferKM, MaxBufferKM, bufferKM)
	}

	meters := float64(bufferKM) * metersPerKM

	boundary := r.eng.FeatureCollection(r.boundaries).
		FilterEquals(r.nameField, country).
		Geometry()

	inner := boundary.Buffer(-meters)
	outerBand := boundary.Difference(inner)

	coastBuffer := r.eng.FeatureCollection(r.coastline).
		FilterBounds(boundary).
		Geometry().
		Buffer(meters)

	return &Strip{
		Analysis: outerBand.Intersection(coastBuffer),
		Country:  boundary,
	}, nil
}

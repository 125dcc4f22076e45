package enginetest

import (
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/medcoast/ges-cli/internal/engine"
)

// Rect is an axis-aligned rectangle with at most one rectangular hole.
// It implements engine.Geometry for the small algebra the resolver
// needs: inward/outward buffers, difference of a contained rectangle,
// and rectangle intersection.
type Rect struct {
	MinX, MinY, MaxX, MaxY float64
	Hole                   *Rect
}

// NewRect builds a solid rectangle.
func NewRect(minX, minY, maxX, maxY float64) *Rect {
	return &Rect{MinX: minX, MinY: minY, MaxX: maxX, MaxY: maxY}
}

// IsEmpty reports whether the rectangle has no area.
func (r *Rect) IsEmpty() bool {
	return r.MaxX <= r.MinX || r.MaxY <= r.MinY
}

// Buffer implements engine.Geometry. Distances are meters; negative
// values shrink. Buffering a holed rectangle is not needed by any
// caller and panics to catch misuse.
func (r *Rect) Buffer(meters float64) engine.Geometry {
	if r.Hole != nil {
		panic("enginetest: buffer of holed rectangle")
	}
	d := meters / UnitMeters
	out := NewRect(r.MinX-d, r.MinY-d, r.MaxX+d, r.MaxY+d)
	if out.IsEmpty() {
		return &Rect{}
	}
	return out
}

// Difference implements engine.Geometry. The other rectangle is clipped
// to this one and becomes a hole.
func (r *Rect) Difference(other engine.Geometry) engine.Geometry {
	o := mustRect(other)
	hole := clip(r, o)
	out := *r
	if hole != nil && !hole.IsEmpty() {
		out.Hole = hole
	}
	return &out
}

// Intersection implements engine.Geometry. A hole on the receiver is
// carried through, clipped to the result.
func (r *Rect) Intersection(other engine.Geometry) engine.Geometry {
	o := mustRect(other)
	outer := clip(r, o)
	if outer == nil {
		return &Rect{}
	}
	out := *outer
	if r.Hole != nil {
		out.Hole = clip(outer, r.Hole)
	}
	return &out
}

// ContainsPoint reports whether the point is inside the rectangle and
// outside its hole.
func (r *Rect) ContainsPoint(x, y float64) bool {
	if x < r.MinX || x > r.MaxX || y < r.MinY || y > r.MaxY {
		return false
	}
	if r.Hole != nil && x > r.Hole.MinX && x < r.Hole.MaxX && y > r.Hole.MinY && y < r.Hole.MaxY {
		return false
	}
	return true
}

// GeoJSON encodes the rectangle (and hole, if any) as a GeoJSON Polygon.
func (r *Rect) GeoJSON() ([]byte, error) {
	rings := [][]geom.Coord{ringCoords(r.MinX, r.MinY, r.MaxX, r.MaxY)}
	if r.Hole != nil {
		rings = append(rings, ringCoords(r.Hole.MinX, r.Hole.MinY, r.Hole.MaxX, r.Hole.MaxY))
	}
	poly, err := geom.NewPolygon(geom.XY).SetCoords(rings)
	if err != nil {
		return nil, eris.Wrap(err, "enginetest: build polygon")
	}
	data, err := geojson.Marshal(poly)
	if err != nil {
		return nil, eris.Wrap(err, "enginetest: encode geojson")
	}
	return data, nil
}

func (r *Rect) overlaps(o *Rect) bool {
	return r.MinX < o.MaxX && o.MinX < r.MaxX && r.MinY < o.MaxY && o.MinY < r.MaxY
}

func (r *Rect) union(o *Rect) *Rect {
	out := *r
	if o.MinX < out.MinX {
		out.MinX = o.MinX
	}
	if o.MinY < out.MinY {
		out.MinY = o.MinY
	}
	if o.MaxX > out.MaxX {
		out.MaxX = o.MaxX
	}
	if o.MaxY > out.MaxY {
		out.MaxY = o.MaxY
	}
	out.Hole = nil
	return &out
}

func clip(a, b *Rect) *Rect {
	out := NewRect(
		maxf(a.MinX, b.MinX), maxf(a.MinY, b.MinY),
		minf(a.MaxX, b.MaxX), minf(a.MaxY, b.MaxY),
	)
	if out.IsEmpty() {
		return nil
	}
	return out
}

func mustRect(g engine.Geometry) *Rect {
	r, ok := g.(*Rect)
	if !ok {
		panic("enginetest: foreign geometry")
	}
	return r
}

func ringCoords(minX, minY, maxX, maxY float64) []geom.Coord {
	return []geom.Coord{
		{minX, minY}, {maxX, minY}, {maxX, maxY}, {minX, maxY}, {minX, minY},
	}
}

func minf(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

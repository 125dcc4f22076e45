package enginetest

import (
	"math"

	"github.com/medcoast/ges-cli/internal/engine"
)

// Grid is a dense row-major raster band with a validity mask. Pixels
// are one unit square; OriginX/OriginY is the world position of the
// grid's min corner.
type Grid struct {
	Band             string
	W, H             int
	OriginX, OriginY float64
	Vals             []float64
	Valid            []bool
}

// NewGrid allocates an all-valid zero grid.
func NewGrid(band string, w, h int, originX, originY float64) *Grid {
	g := &Grid{
		Band: band, W: w, H: h,
		OriginX: originX, OriginY: originY,
		Vals:  make([]float64, w*h),
		Valid: make([]bool, w*h),
	}
	for i := range g.Valid {
		g.Valid[i] = true
	}
	return g
}

func (g *Grid) clone() *Grid {
	out := *g
	out.Vals = append([]float64(nil), g.Vals...)
	out.Valid = append([]bool(nil), g.Valid...)
	return &out
}

func (g *Grid) centerX(col int) float64 { return g.OriginX + float64(col) + 0.5 }
func (g *Grid) centerY(row int) float64 { return g.OriginY + float64(row) + 0.5 }

// Image implements engine.Image over in-memory grids.
type Image struct {
	eng   *Engine
	bands map[string]*Grid
	band  string
}

// NewImage wraps a single grid as an image.
func NewImage(eng *Engine, g *Grid) *Image {
	return &Image{eng: eng, bands: map[string]*Grid{g.Band: g}, band: g.Band}
}

// grid returns the primary band, or an empty grid when the image has
// none (empty collection composite).
func (im *Image) grid() *Grid {
	if g, ok := im.bands[im.band]; ok {
		return g
	}
	return &Grid{Band: im.band}
}

// Grid exposes the primary band for test assertions.
func (im *Image) Grid() *Grid { return im.grid() }

func (im *Image) withGrid(g *Grid) *Image {
	return &Image{eng: im.eng, bands: map[string]*Grid{g.Band: g}, band: g.Band}
}

// derive applies a pixel-wise function to the primary band.
func (im *Image) derive(fn func(v float64, valid bool) (float64, bool)) *Image {
	g := im.grid().clone()
	for i := range g.Vals {
		g.Vals[i], g.Valid[i] = fn(g.Vals[i], g.Valid[i])
	}
	return im.withGrid(g)
}

// combine applies a pixel-wise binary function; a pixel is valid only
// when both inputs are.
func (im *Image) combine(other engine.Image, fn func(a, b float64) float64) *Image {
	o, ok := other.(*Image)
	if !ok {
		panic("enginetest: foreign image")
	}
	a, b := im.grid(), o.grid()
	if a.W != b.W || a.H != b.H {
		panic("enginetest: shape mismatch")
	}
	out := a.clone()
	for i := range out.Vals {
		out.Valid[i] = a.Valid[i] && b.Valid[i]
		if out.Valid[i] {
			out.Vals[i] = fn(a.Vals[i], b.Vals[i])
		}
	}
	return im.withGrid(out)
}

// Select implements engine.Image.
func (im *Image) Select(band string) engine.Image {
	return &Image{eng: im.eng, bands: im.bands, band: band}
}

// Rename implements engine.Image.
func (im *Image) Rename(name string) engine.Image {
	g := im.grid().clone()
	g.Band = name
	return im.withGrid(g)
}

// Clip implements engine.Image.
func (im *Image) Clip(region engine.Geometry) engine.Image {
	r := mustRect(region)
	g := im.grid().clone()
	for i := 0; i < g.H; i++ {
		for j := 0; j < g.W; j++ {
			if !r.ContainsPoint(g.centerX(j), g.centerY(i)) {
				g.Valid[i*g.W+j] = false
			}
		}
	}
	return im.withGrid(g)
}

// UpdateMask implements engine.Image: pixels where mask is invalid or
// zero become invalid.
func (im *Image) UpdateMask(mask engine.Image) engine.Image {
	m, ok := mask.(*Image)
	if !ok {
		panic("enginetest: foreign image")
	}
	g := im.grid().clone()
	mg := m.grid()
	if mg.W != g.W || mg.H != g.H {
		panic("enginetest: shape mismatch")
	}
	for i := range g.Valid {
		if !mg.Valid[i] || mg.Vals[i] == 0 {
			g.Valid[i] = false
		}
	}
	return im.withGrid(g)
}

// Unmask implements engine.Image.
func (im *Image) Unmask() engine.Image {
	return im.derive(func(v float64, valid bool) (float64, bool) {
		if !valid {
			return 0, true
		}
		return v, true
	})
}

// FocalMean implements engine.Image with a square window.
func (im *Image) FocalMean(radiusPixels float64) engine.Image {
	r := int(radiusPixels)
	g := im.grid()
	out := g.clone()
	for i := 0; i < g.H; i++ {
		for j := 0; j < g.W; j++ {
			var sum float64
			var n int
			for di := -r; di <= r; di++ {
				for dj := -r; dj <= r; dj++ {
					ni, nj := i+di, j+dj
					if ni < 0 || ni >= g.H || nj < 0 || nj >= g.W {
						continue
					}
					if g.Valid[ni*g.W+nj] {
						sum += g.Vals[ni*g.W+nj]
						n++
					}
				}
			}
			if n > 0 {
				out.Vals[i*g.W+j] = sum / float64(n)
				out.Valid[i*g.W+j] = true
			}
		}
	}
	return im.withGrid(out)
}

// Add implements engine.Image.
func (im *Image) Add(other engine.Image) engine.Image {
	return im.combine(other, func(a, b float64) float64 { return a + b })
}

// Subtract implements engine.Image.
func (im *Image) Subtract(other engine.Image) engine.Image {
	return im.combine(other, func(a, b float64) float64 { return a - b })
}

// And implements engine.Image: 1 where both are nonzero.
func (im *Image) And(other engine.Image) engine.Image {
	return im.combine(other, func(a, b float64) float64 {
		if a != 0 && b != 0 {
			return 1
		}
		return 0
	})
}

// AddConst implements engine.Image.
func (im *Image) AddConst(v float64) engine.Image {
	return im.derive(func(x float64, valid bool) (float64, bool) { return x + v, valid })
}

// SubtractConst implements engine.Image.
func (im *Image) SubtractConst(v float64) engine.Image {
	return im.derive(func(x float64, valid bool) (float64, bool) { return x - v, valid })
}

// MultiplyConst implements engine.Image.
func (im *Image) MultiplyConst(v float64) engine.Image {
	return im.derive(func(x float64, valid bool) (float64, bool) { return x * v, valid })
}

// DivideConst implements engine.Image.
func (im *Image) DivideConst(v float64) engine.Image {
	return im.derive(func(x float64, valid bool) (float64, bool) {
		if v == 0 {
			return math.NaN(), false
		}
		return x / v, valid
	})
}

// BitwiseAndConst implements engine.Image.
func (im *Image) BitwiseAndConst(v int64) engine.Image {
	return im.derive(func(x float64, valid bool) (float64, bool) {
		return float64(int64(x) & v), valid
	})
}

// Gte implements engine.Image.
func (im *Image) Gte(v float64) engine.Image {
	return im.derive(func(x float64, valid bool) (float64, bool) {
		if x >= v {
			return 1, valid
		}
		return 0, valid
	})
}

// Lte implements engine.Image.
func (im *Image) Lte(v float64) engine.Image {
	return im.derive(func(x float64, valid bool) (float64, bool) {
		if x <= v {
			return 1, valid
		}
		return 0, valid
	})
}

// Lt implements engine.Image.
func (im *Image) Lt(v float64) engine.Image {
	return im.derive(func(x float64, valid bool) (float64, bool) {
		if x < v {
			return 1, valid
		}
		return 0, valid
	})
}

package earthengine

import (
	"strings"
	"time"

	"github.com/medcoast/ges-cli/internal/engine"
)

// Lazy handles over expression nodes. Ops only grow the graph; nothing
// touches the network until the Client materializes a handle.

type eeTable struct{ n *node }
type eeGeometry struct{ n *node }
type eeCollection struct{ n *node }
type eeImage struct{ n *node }

const dateFormat = "2006-01-02"

func (t *eeTable) FilterEquals(property, value string) engine.Table {
	return &eeTable{n: invoke("Collection.filter", map[string]*node{
		"collection": t.n,
		"filter": invoke("Filter.equals", map[string]*node{
			"leftField":  constNode(property),
			"rightValue": constNode(value),
		}),
	})}
}

func (t *eeTable) FilterBounds(g engine.Geometry) engine.Table {
	return &eeTable{n: invoke("Collection.filter", map[string]*node{
		"collection": t.n,
		"filter": invoke("Filter.intersects", map[string]*node{
			"leftField":  constNode(".all"),
			"rightValue": geomNode(g),
		}),
	})}
}

func (t *eeTable) Geometry() engine.Geometry {
	return &eeGeometry{n: invoke("Collection.geometry", map[string]*node{
		"collection": t.n,
	})}
}

func (g *eeGeometry) Buffer(meters float64) engine.Geometry {
	return &eeGeometry{n: invoke("Geometry.buffer", map[string]*node{
		"geometry": g.n,
		"distance": constNode(meters),
	})}
}

func (g *eeGeometry) Difference(other engine.Geometry) engine.Geometry {
	return &eeGeometry{n: invoke("Geometry.difference", map[string]*node{
		"left":  g.n,
		"right": geomNode(other),
	})}
}

func (g *eeGeometry) Intersection(other engine.Geometry) engine.Geometry {
	return &eeGeometry{n: invoke("Geometry.intersection", map[string]*node{
		"left":  g.n,
		"right": geomNode(other),
	})}
}

func (c *eeCollection) FilterBounds(g engine.Geometry) engine.Collection {
	return &eeCollection{n: invoke("Collection.filter", map[string]*node{
		"collection": c.n,
		"filter": invoke("Filter.intersects", map[string]*node{
			"leftField":  constNode(".all"),
			"rightValue": geomNode(g),
		}),
	})}
}

// FilterDate keeps scenes in [start, end]. Filter.date treats its end
// bound as exclusive, so the serialized end is one day past the given
// one; a scene dated exactly on end stays in range.
func (c *eeCollection) FilterDate(start, end time.Time) engine.Collection {
	return &eeCollection{n: invoke("Collection.filter", map[string]*node{
		"collection": c.n,
		"filter": invoke("Filter.date", map[string]*node{
			"start": constNode(start.Format(dateFormat)),
			"end":   constNode(end.AddDate(0, 0, 1).Format(dateFormat)),
		}),
	})}
}

// Map builds the per-scene function by applying fn to a placeholder
// image bound to the lambda argument.
func (c *eeCollection) Map(fn func(engine.Image) engine.Image) engine.Collection {
	body := imageNode(fn(&eeImage{n: argRef("image")}))
	return &eeCollection{n: invoke("Collection.map", map[string]*node{
		"collection":    c.n,
		"baseAlgorithm": lambda([]string{"image"}, body),
	})}
}

func (c *eeCollection) Median() engine.Image {
	return &eeImage{n: invoke("reduce.median", map[string]*node{
		"collection": c.n,
	})}
}

func (im *eeImage) Select(band string) engine.Image {
	return &eeImage{n: invoke("Image.select", map[string]*node{
		"input":         im.n,
		"bandSelectors": constNode([]string{band}),
	})}
}

func (im *eeImage) Rename(name string) engine.Image {
	return &eeImage{n: invoke("Image.rename", map[string]*node{
		"input": im.n,
		"names": constNode([]string{name}),
	})}
}

func (im *eeImage) Clip(region engine.Geometry) engine.Image {
	return &eeImage{n: invoke("Image.clip", map[string]*node{
		"input":    im.n,
		"geometry": geomNode(region),
	})}
}

func (im *eeImage) UpdateMask(mask engine.Image) engine.Image {
	return &eeImage{n: invoke("Image.updateMask", map[string]*node{
		"image": im.n,
		"mask":  imageNode(mask),
	})}
}

func (im *eeImage) Unmask() engine.Image {
	return &eeImage{n: invoke("Image.unmask", map[string]*node{
		"input": im.n,
	})}
}

func (im *eeImage) FocalMean(radiusPixels float64) engine.Image {
	return &eeImage{n: invoke("Image.focal_mean", map[string]*node{
		"image":      im.n,
		"radius":     constNode(radiusPixels),
		"units":      constNode("pixels"),
		"iterations": constNode(1),
	})}
}

func (im *eeImage) Add(other engine.Image) engine.Image { return im.binary("Image.add", other) }
func (im *eeImage) Subtract(other engine.Image) engine.Image {
	return im.binary("Image.subtract", other)
}
func (im *eeImage) And(other engine.Image) engine.Image { return im.binary("Image.and", other) }

func (im *eeImage) AddConst(v float64) engine.Image      { return im.constOp("Image.add", v) }
func (im *eeImage) SubtractConst(v float64) engine.Image { return im.constOp("Image.subtract", v) }
func (im *eeImage) MultiplyConst(v float64) engine.Image { return im.constOp("Image.multiply", v) }
func (im *eeImage) DivideConst(v float64) engine.Image   { return im.constOp("Image.divide", v) }

func (im *eeImage) BitwiseAndConst(v int64) engine.Image {
	return &eeImage{n: invoke("Image.bitwiseAnd", map[string]*node{
		"image1": im.n,
		"image2": constImage(float64(v)),
	})}
}

func (im *eeImage) Gte(v float64) engine.Image { return im.constOp("Image.gte", v) }
func (im *eeImage) Lte(v float64) engine.Image { return im.constOp("Image.lte", v) }
func (im *eeImage) Lt(v float64) engine.Image  { return im.constOp("Image.lt", v) }

func (im *eeImage) binary(fn string, other engine.Image) engine.Image {
	return &eeImage{n: invoke(fn, map[string]*node{
		"image1": im.n,
		"image2": imageNode(other),
	})}
}

func (im *eeImage) constOp(fn string, v float64) engine.Image {
	return &eeImage{n: invoke(fn, map[string]*node{
		"image1": im.n,
		"image2": constImage(v),
	})}
}

func constImage(v float64) *node {
	return invoke("Image.constant", map[string]*node{"value": constNode(v)})
}

// visualize styles an image for tile rendering. Palette entries are
// hex colors without the leading '#'.
func visualize(img engine.Image, vis engine.VisParams) *node {
	palette := make([]string, len(vis.Palette))
	for i, c := range vis.Palette {
		palette[i] = strings.TrimPrefix(c, "#")
	}
	return invoke("Image.visualize", map[string]*node{
		"image":   imageNode(img),
		"bands":   constNode([]string{vis.Band}),
		"min":     constNode(vis.Min),
		"max":     constNode(vis.Max),
		"palette": constNode(palette),
	})
}

func geomNode(g engine.Geometry) *node {
	eg, ok := g.(*eeGeometry)
	if !ok {
		panic("earthengine: foreign geometry handle")
	}
	return eg.n
}

func imageNode(img engine.Image) *node {
	ei, ok := img.(*eeImage)
	if !ok {
		panic("earthengine: foreign image handle")
	}
	return ei.n
}

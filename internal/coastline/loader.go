// Package coastline converts coastline shapefiles into the GeoJSON
// FeatureCollection uploaded as the backend's coastline asset.
package coastline

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"
)

// Convert reads a shapefile of coastline geometries and returns its
// features as GeoJSON. Attributes are carried over with lowercased
// field names; records with unsupported or malformed shapes are
// skipped.
func Convert(shpPath string) (*geojson.FeatureCollection, error) {
	reader, err := shp.Open(shpPath)
	if err != nil {
		return nil, eris.Wrapf(err, "coastline: open shapefile %s", shpPath)
	}
	defer func() { _ = reader.Close() }()

	fields := reader.Fields()
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = strings.ToLower(strings.TrimRight(f.String(), "\x00"))
	}

	fc := &geojson.FeatureCollection{}
	var skipped int

	for reader.Next() {
		_, shape := reader.Shape()
		g := toGeom(shape)
		if g == nil {
			skipped++
			continue
		}

		props := make(map[string]any, len(names))
		for i, name := range names {
			val := strings.TrimSpace(strings.TrimRight(reader.Attribute(i), "\x00"))
			if val != "" {
				props[name] = val
			}
		}

		fc.Features = append(fc.Features, &geojson.Feature{
			Geometry:   g,
			Properties: props,
		})
	}

	if skipped > 0 {
		zap.L().Debug("coastline: skipped shapefile records",
			zap.String("path", shpPath),
			zap.Int("skipped", skipped),
		)
	}
	if len(fc.Features) == 0 {
		return nil, eris.Errorf("coastline: no usable geometries in %s", shpPath)
	}
	return fc, nil
}

// ConvertFile converts a shapefile and writes the GeoJSON to outPath.
func ConvertFile(shpPath, outPath string) (int, error) {
	fc, err := Convert(shpPath)
	if err != nil {
		return 0, err
	}
	data, err := json.Marshal(fc)
	if err != nil {
		return 0, eris.Wrap(err, "coastline: encode geojson")
	}
	if err := os.WriteFile(outPath, data, 0o644); err != nil {
		return 0, eris.Wrapf(err, "coastline: write %s", outPath)
	}
	return len(fc.Features), nil
}

// toGeom converts a go-shp shape. Coastlines are polylines in practice
// but polygon sources are accepted as their outlines.
func toGeom(shape shp.Shape) geom.T {
	switch s := shape.(type) {
	case nil:
		return nil
	case *shp.PolyLine:
		return polyLineToMultiLineString(s)
	case *shp.Polygon:
		return polyLineToMultiLineString((*shp.PolyLine)(s))
	default:
		return nil
	}
}

// polyLineToMultiLineString converts a shapefile PolyLine to a geom.MultiLineString.
func polyLineToMultiLineString(pl *shp.PolyLine) geom.T {
	if pl == nil || pl.NumParts == 0 || len(pl.Points) == 0 {
		return nil
	}

	mls := geom.NewMultiLineString(geom.XY).SetSRID(4326)

	for i := int32(0); i < pl.NumParts; i++ {
		start := pl.Parts[i]
		var end int32
		if i+1 < pl.NumParts {
			end = pl.Parts[i+1]
		} else {
			end = int32(len(pl.Points))
		}

		flat := make([]float64, 0, (end-start)*2)
		for j := start; j < end; j++ {
			flat = append(flat, pl.Points[j].X, pl.Points[j].Y)
		}

		ls := geom.NewLineStringFlat(geom.XY, flat)
		if err := mls.Push(ls); err != nil {
			zap.L().Debug("coastline: skipping malformed part", zap.Int32("part", i), zap.Error(err))
			continue
		}
	}

	if mls.NumLineStrings() == 0 {
		return nil
	}
	return mls
}

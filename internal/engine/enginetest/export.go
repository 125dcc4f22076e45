package enginetest

import (
	"bytes"
	"context"

	"github.com/rotisserie/eris"

	"github.com/medcoast/ges-cli/internal/engine"
	"github.com/medcoast/ges-cli/internal/geotiff"
)

// ExportGeoTIFF implements engine.Engine by encoding the image's
// primary band through the local GeoTIFF writer. Scale is nominal: the
// grid keeps its one-unit pixels.
func (e *Engine) ExportGeoTIFF(_ context.Context, img engine.Image, region engine.Geometry, _ float64) ([]byte, error) {
	call := e.exportCalls
	e.exportCalls++
	if e.ExportErr != nil {
		if err := e.ExportErr(call); err != nil {
			return nil, err
		}
	}

	im, ok := img.(*Image)
	if !ok {
		return nil, eris.New("enginetest: foreign image")
	}
	if region != nil {
		im = im.Clip(region).(*Image)
	}
	g := im.grid()
	if g.W == 0 || g.H == 0 {
		return nil, eris.New("enginetest: empty image")
	}

	var buf bytes.Buffer
	err := geotiff.Encode(&buf, geotiff.Raster{
		Band:      g.Band,
		W:         g.W,
		H:         g.H,
		Vals:      g.Vals,
		Valid:     g.Valid,
		OriginX:   g.OriginX,
		OriginY:   g.OriginY + float64(g.H),
		PixelSize: 1,
	})
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Package ges computes the Good Environmental Status index: a blended
// score of vegetation greenness (NDVI) and inverted land surface
// temperature (LST) over a coastal strip, normalized per run to the
// strip's own value range.
package ges

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/medcoast/ges-cli/internal/engine"
)

// Band names of the MODIS products.
const (
	ndviBand   = "NDVI"
	ndviQABand = "SummaryQA"
	lstBand    = "LST_Day_1km"
	lstQCBand  = "QC_Day"

	// BandName is the band carried by every computed index raster.
	BandName = "GES"
)

// MODIS NDVI digital values scale by 1e-4; LST by 0.02 Kelvin per count.
const (
	ndviScale = 0.0001
	lstScale  = 0.02
	kelvin0C  = 273.15
)

// Options tune the pipeline's products and reductions.
type Options struct {
	NDVIProduct string
	LSTProduct  string
	ScaleM      float64
	MaxPixels   int64
	MinLSTC     float64
	MaxLSTC     float64
}

// Pipeline builds and evaluates GES index expressions against a backend.
type Pipeline struct {
	eng  engine.Engine
	opts Options
}

// NewPipeline creates a pipeline over the given backend.
func NewPipeline(eng engine.Engine, opts Options) *Pipeline {
	return &Pipeline{eng: eng, opts: opts}
}

// Change holds the index rasters of one analysis run.
type Change struct {
	First engine.Image
	Last  engine.Image
	Diff  engine.Image
}

// Index computes the GES raster for one region and calendar year:
// masked median NDVI and LST composites, each min-max normalized to
// 0-100 over the region (LST shifted by -100 so cooler land contributes
// positively), blended half and half.
func (p *Pipeline) Index(ctx context.Context, region engine.Geometry, year int) (engine.Image, error) {
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC)

	ndvi := p.eng.ImageCollection(p.opts.NDVIProduct).
		FilterBounds(region).
		FilterDate(start, end).
		Map(maskNDVI).
		Median().
		Select(ndviBand).
		MultiplyConst(ndviScale).
		Clip(region)

	lst := p.eng.ImageCollection(p.opts.LSTProduct).
		FilterBounds(region).
		FilterDate(start, end).
		Map(p.maskLST).
		Median().
		Unmask().
		FocalMean(1).
		Clip(region)

	stats, err := p.eng.ComputeStats(ctx, []engine.StatRequest{
		{Name: "ndvi", Image: ndvi, Reducer: engine.ReducerMinMax,
			Region: region, ScaleM: p.opts.ScaleM, MaxPixels: p.opts.MaxPixels},
		{Name: "lst", Image: lst, Reducer: engine.ReducerMinMax,
			Region: region, ScaleM: p.opts.ScaleM, MaxPixels: p.opts.MaxPixels},
	})
	if err != nil {
		return nil, eris.Wrapf(err, "ges: composite statistics for %d", year)
	}

	ndviNorm, err := normalize(ndvi, stats["ndvi"], ndviBand)
	if err != nil {
		return nil, err
	}
	lstNorm, err := normalize(lst, stats["lst"], lstBand)
	if err != nil {
		return nil, err
	}
	// Invert the temperature scale: hottest pixel maps to -100, coolest to 0.
	lstNorm = lstNorm.SubtractConst(100)

	zap.L().Debug("computed composite statistics",
		zap.Int("year", year),
		zap.Float64("ndvi_min", stats["ndvi"][ndviBand+"_min"]),
		zap.Float64("ndvi_max", stats["ndvi"][ndviBand+"_max"]),
		zap.Float64("lst_min", stats["lst"][lstBand+"_min"]),
		zap.Float64("lst_max", stats["lst"][lstBand+"_max"]),
	)

	return ndviNorm.MultiplyConst(0.5).
		Add(lstNorm.MultiplyConst(0.5)).
		Rename(BandName), nil
}

// Run computes the start and end indices and their difference, in
// strict order. The diff is last minus first.
func (p *Pipeline) Run(ctx context.Context, region engine.Geometry, startYear, endYear int) (*Change, error) {
	first, err := p.Index(ctx, region, startYear)
	if err != nil {
		return nil, err
	}
	last, err := p.Index(ctx, region, endYear)
	if err != nil {
		return nil, err
	}
	return &Change{
		First: first,
		Last:  last,
		Diff:  last.Subtract(first),
	}, nil
}

// ClassCounts counts the diff raster's valid pixels per class. All five
// masked count reductions go out as a single backend request.
func (p *Pipeline) ClassCounts(ctx context.Context, diff engine.Image) (Classification, error) {
	reqs := make([]engine.StatRequest, 0, len(Classes))
	for i, class := range Classes {
		mask := diff.Gte(class.Low)
		if !math.IsInf(class.High, 1) {
			mask = mask.And(diff.Lt(class.High))
		}
		reqs = append(reqs, engine.StatRequest{
			Name:      fmt.Sprintf("class%d", i),
			Image:     diff.UpdateMask(mask),
			Reducer:   engine.ReducerCount,
			ScaleM:    p.opts.ScaleM,
			MaxPixels: p.opts.MaxPixels,
		})
	}

	stats, err := p.eng.ComputeStats(ctx, reqs)
	if err != nil {
		return nil, eris.Wrap(err, "ges: class counts")
	}

	result := make(Classification, 0, len(Classes))
	for i, class := range Classes {
		result = append(result, ClassCount{
			Class: class,
			Count: int64(stats[fmt.Sprintf("class%d", i)][BandName]),
		})
	}
	return result, nil
}

func maskNDVI(img engine.Image) engine.Image {
	return img.UpdateMask(img.Select(ndviQABand).Lte(1))
}

// maskLST keeps good-quality pixels (low two QC bits <= 1), converts raw
// counts to Celsius, and drops physically implausible values.
func (p *Pipeline) maskLST(img engine.Image) engine.Image {
	quality := img.Select(lstQCBand).BitwiseAndConst(3).Lte(1)
	lst := img.Select(lstBand).MultiplyConst(lstScale).SubtractConst(kelvin0C)
	plausible := lst.Gte(p.opts.MinLSTC).And(lst.Lte(p.opts.MaxLSTC))
	return lst.UpdateMask(quality).UpdateMask(plausible)
}

// normalize stretches the composite to 0-100 using its own regional
// min/max. A flat composite has no meaningful stretch and is an error
// rather than a divide-by-zero.
func normalize(img engine.Image, stats engine.Stats, band string) (engine.Image, error) {
	min, okMin := stats[band+"_min"]
	max, okMax := stats[band+"_max"]
	if !okMin || !okMax {
		return nil, eris.Errorf("ges: missing %s min/max in reduction result", band)
	}
	if max == min {
		return nil, eris.Errorf("ges: degenerate %s composite (min == max == %g)", band, min)
	}
	return img.SubtractConst(min).DivideConst(max - min).MultiplyConst(100), nil
}

package ges

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medcoast/ges-cli/internal/engine"
	"github.com/medcoast/ges-cli/internal/engine/enginetest"
)

const (
	testNDVIProduct = "MODIS/061/MOD13A1"
	testLSTProduct  = "MODIS/061/MOD11A1"
)

func testOptions() Options {
	return Options{
		NDVIProduct: testNDVIProduct,
		LSTProduct:  testLSTProduct,
		ScaleM:      1000,
		MaxPixels:   1e13,
		MinLSTC:     -20,
		MaxLSTC:     50,
	}
}

// lstRaw converts Celsius to the product's raw digital value.
func lstRaw(celsius float64) float64 {
	return (celsius + 273.15) / 0.02
}

func mid(year int) time.Time {
	return time.Date(year, time.July, 1, 0, 0, 0, 0, time.UTC)
}

// scenarioEngine builds a 3x1 grid world with one NDVI and one LST
// scene per year:
//
//	2002: NDVI raw [1000 4000 7000], LST [10 20 30] C
//	2022: NDVI raw [7000 4000 1000], LST [30 20 10] C
//
// After masking, median, the LST focal mean ([15 20 25] / [25 20 15])
// and min-max normalization, the GES rasters are [-50 0 50] for 2002
// and [50 0 -50] for 2022, so the diff is [100 0 -100].
func scenarioEngine() *enginetest.Engine {
	e := enginetest.New()
	e.AddScenes(testNDVIProduct,
		enginetest.NewScene(mid(2002), "NDVI", 3, 1, 0, 0, map[string][]float64{
			"NDVI":      {1000, 4000, 7000},
			"SummaryQA": {0, 0, 0},
		}),
		enginetest.NewScene(mid(2022), "NDVI", 3, 1, 0, 0, map[string][]float64{
			"NDVI":      {7000, 4000, 1000},
			"SummaryQA": {0, 0, 0},
		}),
	)
	e.AddScenes(testLSTProduct,
		enginetest.NewScene(mid(2002), "LST_Day_1km", 3, 1, 0, 0, map[string][]float64{
			"LST_Day_1km": {lstRaw(10), lstRaw(20), lstRaw(30)},
			"QC_Day":      {0, 0, 0},
		}),
		enginetest.NewScene(mid(2022), "LST_Day_1km", 3, 1, 0, 0, map[string][]float64{
			"LST_Day_1km": {lstRaw(30), lstRaw(20), lstRaw(10)},
			"QC_Day":      {0, 0, 0},
		}),
	)
	return e
}

func gridOf(t *testing.T, img engine.Image) *enginetest.Grid {
	t.Helper()
	im, ok := img.(*enginetest.Image)
	require.True(t, ok)
	return im.Grid()
}

func TestIndexValuesAndBounds(t *testing.T) {
	e := scenarioEngine()
	p := NewPipeline(e, testOptions())
	region := enginetest.NewRect(0, 0, 3, 1)

	idx, err := p.Index(context.Background(), region, 2002)
	require.NoError(t, err)

	g := gridOf(t, idx)
	assert.Equal(t, BandName, g.Band)
	require.Len(t, g.Vals, 3)

	// NDVI normalizes to [0 50 100], inverted LST to [-100 -50 0];
	// the blend is the midpoint.
	assert.InDelta(t, -50, g.Vals[0], 1e-9)
	assert.InDelta(t, 0, g.Vals[1], 1e-9)
	assert.InDelta(t, 50, g.Vals[2], 1e-9)

	for i, v := range g.Vals {
		require.True(t, g.Valid[i])
		assert.GreaterOrEqual(t, v, -100.0)
		assert.LessOrEqual(t, v, 100.0)
	}
}

func TestIndexIncludesYearEndScene(t *testing.T) {
	// The year window is closed on both ends: scenes dated exactly
	// Dec 31 contribute to the composite.
	yearEnd := time.Date(2002, time.December, 31, 0, 0, 0, 0, time.UTC)
	e := enginetest.New()
	e.AddScenes(testNDVIProduct,
		enginetest.NewScene(yearEnd, "NDVI", 3, 1, 0, 0, map[string][]float64{
			"NDVI":      {1000, 4000, 7000},
			"SummaryQA": {0, 0, 0},
		}),
	)
	e.AddScenes(testLSTProduct,
		enginetest.NewScene(yearEnd, "LST_Day_1km", 3, 1, 0, 0, map[string][]float64{
			"LST_Day_1km": {lstRaw(10), lstRaw(20), lstRaw(30)},
			"QC_Day":      {0, 0, 0},
		}),
	)
	p := NewPipeline(e, testOptions())

	idx, err := p.Index(context.Background(), enginetest.NewRect(0, 0, 3, 1), 2002)
	require.NoError(t, err)

	g := gridOf(t, idx)
	assert.InDelta(t, -50, g.Vals[0], 1e-9)
	assert.InDelta(t, 0, g.Vals[1], 1e-9)
	assert.InDelta(t, 50, g.Vals[2], 1e-9)
}

func TestIndexBatchesCompositeStats(t *testing.T) {
	e := scenarioEngine()
	p := NewPipeline(e, testOptions())

	_, err := p.Index(context.Background(), enginetest.NewRect(0, 0, 3, 1), 2002)
	require.NoError(t, err)

	// NDVI and LST min/max share one round trip.
	assert.Equal(t, 1, e.StatsCalls)
}

func TestIndexIdempotent(t *testing.T) {
	e := scenarioEngine()
	p := NewPipeline(e, testOptions())
	region := enginetest.NewRect(0, 0, 3, 1)

	a, err := p.Index(context.Background(), region, 2002)
	require.NoError(t, err)
	b, err := p.Index(context.Background(), region, 2002)
	require.NoError(t, err)

	assert.Equal(t, gridOf(t, a).Vals, gridOf(t, b).Vals)
	assert.Equal(t, gridOf(t, a).Valid, gridOf(t, b).Valid)
}

func TestRunDiffIsLastMinusFirst(t *testing.T) {
	e := scenarioEngine()
	p := NewPipeline(e, testOptions())
	region := enginetest.NewRect(0, 0, 3, 1)

	change, err := p.Run(context.Background(), region, 2002, 2022)
	require.NoError(t, err)

	diff := gridOf(t, change.Diff)
	assert.InDelta(t, 100, diff.Vals[0], 1e-9)
	assert.InDelta(t, 0, diff.Vals[1], 1e-9)
	assert.InDelta(t, -100, diff.Vals[2], 1e-9)
}

func TestRunDiffSyntheticPair(t *testing.T) {
	// Pixel-wise last-minus-first on a synthetic pair.
	e := enginetest.New()
	first := enginetest.NewImage(e, enginetest.NewGrid(BandName, 2, 1, 0, 0))
	last := enginetest.NewImage(e, enginetest.NewGrid(BandName, 2, 1, 0, 0))
	copy(first.Grid().Vals, []float64{10, -10})
	copy(last.Grid().Vals, []float64{30, 5})

	diff := gridOf(t, last.Subtract(first))
	assert.InDelta(t, 20, diff.Vals[0], 1e-9)
	assert.InDelta(t, 15, diff.Vals[1], 1e-9)
}

func TestClassCountsPartition(t *testing.T) {
	e := scenarioEngine()
	p := NewPipeline(e, testOptions())
	region := enginetest.NewRect(0, 0, 3, 1)

	change, err := p.Run(context.Background(), region, 2002, 2022)
	require.NoError(t, err)

	counts, err := p.ClassCounts(context.Background(), change.Diff)
	require.NoError(t, err)
	require.Len(t, counts, 5)

	byLabel := counts.Counts()
	// Diff is [100 0 -100]: one excellent improvement, one no-change,
	// one very severe.
	assert.Equal(t, int64(1), byLabel["Very Severe"])
	assert.Equal(t, int64(0), byLabel["Severe"])
	assert.Equal(t, int64(1), byLabel["No Change"])
	assert.Equal(t, int64(0), byLabel["Good Environmental"])
	assert.Equal(t, int64(1), byLabel["Excellent Improvement"])

	// Exhaustive and disjoint: counts sum to the diff's valid pixels.
	diff := gridOf(t, change.Diff)
	var valid int64
	for _, ok := range diff.Valid {
		if ok {
			valid++
		}
	}
	assert.Equal(t, valid, counts.Total())
}

func TestClassCountsBatchedOneRoundTrip(t *testing.T) {
	e := scenarioEngine()
	p := NewPipeline(e, testOptions())
	region := enginetest.NewRect(0, 0, 3, 1)

	change, err := p.Run(context.Background(), region, 2002, 2022)
	require.NoError(t, err)

	before := e.StatsCalls
	_, err = p.ClassCounts(context.Background(), change.Diff)
	require.NoError(t, err)
	assert.Equal(t, 1, e.StatsCalls-before)
}

func TestIndexDegenerateCompositeFails(t *testing.T) {
	e := enginetest.New()
	e.AddScenes(testNDVIProduct, enginetest.NewScene(mid(2002), "NDVI", 3, 1, 0, 0, map[string][]float64{
		"NDVI":      {4000, 4000, 4000},
		"SummaryQA": {0, 0, 0},
	}))
	e.AddScenes(testLSTProduct, enginetest.NewScene(mid(2002), "LST_Day_1km", 3, 1, 0, 0, map[string][]float64{
		"LST_Day_1km": {lstRaw(10), lstRaw(20), lstRaw(30)},
		"QC_Day":      {0, 0, 0},
	}))

	p := NewPipeline(e, testOptions())
	_, err := p.Index(context.Background(), enginetest.NewRect(0, 0, 3, 1), 2002)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "degenerate")
}

func TestIndexNDVIQualityMaskDropsPixels(t *testing.T) {
	// The third NDVI pixel fails QA; LST is clean everywhere.
	e := enginetest.New()
	e.AddScenes(testNDVIProduct, enginetest.NewScene(mid(2002), "NDVI", 3, 1, 0, 0, map[string][]float64{
		"NDVI":      {1000, 4000, 7000},
		"SummaryQA": {0, 1, 2},
	}))
	e.AddScenes(testLSTProduct, enginetest.NewScene(mid(2002), "LST_Day_1km", 3, 1, 0, 0, map[string][]float64{
		"LST_Day_1km": {lstRaw(10), lstRaw(20), lstRaw(30)},
		"QC_Day":      {0, 0, 0},
	}))

	p := NewPipeline(e, testOptions())
	idx, err := p.Index(context.Background(), enginetest.NewRect(0, 0, 3, 1), 2002)
	require.NoError(t, err)

	g := gridOf(t, idx)
	assert.True(t, g.Valid[0])
	assert.True(t, g.Valid[1])
	// QA 2 is masked out of the composite and stays a gap in the index.
	assert.False(t, g.Valid[2])
}

func TestIndexPropagatesBackendErrors(t *testing.T) {
	e := scenarioEngine()
	e.StatsErr = engine.ResourceExceededError("compute stats", assert.AnError)

	p := NewPipeline(e, testOptions())
	_, err := p.Index(context.Background(), enginetest.NewRect(0, 0, 3, 1), 2002)
	require.Error(t, err)
	assert.True(t, engine.IsResourceExceeded(err))
}

func TestIndexEmptyYearFails(t *testing.T) {
	e := scenarioEngine()
	p := NewPipeline(e, testOptions())

	// No scenes in 2010: composites are empty, reduction yields no
	// min/max, and the pipeline reports it instead of dividing by zero.
	_, err := p.Index(context.Background(), enginetest.NewRect(0, 0, 3, 1), 2010)
	require.Error(t, err)
}

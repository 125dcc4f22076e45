package region

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medcoast/ges-cli/internal/engine"
	"github.com/medcoast/ges-cli/internal/engine/enginetest"
)

const (
	testBoundaries = "USDOS/LSIB_SIMPLE/2017"
	testNameField  = "country_na"
	testCoastline  = "projects/test/assets/coastlines"
)

// fixtureEngine has Yemen as a 40x20 rectangle with its shoreline along
// the top edge (y=20), modeled as a thin coastline feature straddling it.
func fixtureEngine() *enginetest.Engine {
	e := enginetest.New()
	e.AddTable(testBoundaries, enginetest.Feature{
		Props: map[string]string{testNameField: "Yemen"},
		Geom:  enginetest.NewRect(0, 0, 40, 20),
	})
	e.AddTable(testCoastline, enginetest.Feature{
		Geom: enginetest.NewRect(0, 18, 40, 22),
	})
	return e
}

func newTestResolver(e *enginetest.Engine) *Resolver {
	return NewResolver(e, testBoundaries, testNameField, testCoastline)
}

func TestCoastalStripUnknownCountry(t *testing.T) {
	r := newTestResolver(fixtureEngine())

	_, err := r.CoastalStrip("Atlantis", 5)
	require.Error(t, err)
	assert.True(t, engine.IsNotFound(err))
	assert.ErrorContains(t, err, "Atlantis")
}

func TestCoastalStripBufferDomain(t *testing.T) {
	r := newTestResolver(fixtureEngine())

	for _, km := range []int{0, -3, 11} {
		_, err := r.CoastalStrip("Yemen", km)
		assert.ErrorContains(t, err, "buffer", "buffer %d km", km)
	}
}

func TestCoastalStripShape(t *testing.T) {
	r := newTestResolver(fixtureEngine())

	strip, err := r.CoastalStrip("Yemen", 5)
	require.NoError(t, err)

	country, ok := strip.Country.(*enginetest.Rect)
	require.True(t, ok)
	assert.Equal(t, enginetest.NewRect(0, 0, 40, 20), country)

	analysis, ok := strip.Analysis.(*enginetest.Rect)
	require.True(t, ok)
	// The coastline buffered 5 km reaches down to y=13; the inland
	// interior deeper than 5 km from the border is carved out.
	assert.Equal(t, 13.0, analysis.MinY)
	assert.Equal(t, 20.0, analysis.MaxY)
	require.NotNil(t, analysis.Hole)

	// Near the shoreline, inside the strip.
	assert.True(t, analysis.ContainsPoint(2, 19))
	assert.True(t, analysis.ContainsPoint(38, 19))
	// Deep inland, outside.
	assert.False(t, analysis.ContainsPoint(20, 10))
	// Within the coastline buffer by latitude but in the carved interior.
	assert.False(t, analysis.ContainsPoint(20, 14))
}

func TestCoastalStripWithinBufferOfCoast(t *testing.T) {
	eng := fixtureEngine()
	r := newTestResolver(eng)

	for km := MinBufferKM; km <= MaxBufferKM; km++ {
		strip, err := r.CoastalStrip("Yemen", km)
		require.NoError(t, err)

		analysis, ok := strip.Analysis.(*enginetest.Rect)
		require.True(t, ok)
		require.False(t, analysis.IsEmpty(), "buffer %d km", km)

		coast := enginetest.NewRect(0, 18, 40, 22)
		buffered, ok := coast.Buffer(float64(km) * 1000).(*enginetest.Rect)
		require.True(t, ok)

		// Every part of the strip lies within km of the shoreline band.
		assert.GreaterOrEqual(t, analysis.MinX, buffered.MinX, "buffer %d km", km)
		assert.GreaterOrEqual(t, analysis.MinY, buffered.MinY, "buffer %d km", km)
		assert.LessOrEqual(t, analysis.MaxX, buffered.MaxX, "buffer %d km", km)
		assert.LessOrEqual(t, analysis.MaxY, buffered.MaxY, "buffer %d km", km)
	}
}

func TestSupported(t *testing.T) {
	assert.True(t, Supported("Morocco"))
	assert.True(t, Supported("Mauritania"))
	assert.False(t, Supported("morocco"))
	assert.False(t, Supported(""))
	assert.Len(t, Countries, 9)
}

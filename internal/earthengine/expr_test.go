package earthengine

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medcoast/ges-cli/internal/engine"
)

func TestSerializeConstant(t *testing.T) {
	expr := serialize(constNode(42))
	require.Len(t, expr.Values, 1)
	assert.Equal(t, map[string]any{"constantValue": 42}, expr.Values[expr.Result])
}

func TestSerializeInvocationNesting(t *testing.T) {
	c := &Client{}
	g := c.FeatureCollection("USDOS/LSIB_SIMPLE/2017").
		FilterEquals("country_na", "Yemen").
		Geometry().
		Buffer(-5000)

	raw, err := json.Marshal(serialize(geomNode(g)))
	require.NoError(t, err)
	s := string(raw)
	assert.Contains(t, s, "Collection.loadTable")
	assert.Contains(t, s, "Filter.equals")
	assert.Contains(t, s, "Collection.geometry")
	assert.Contains(t, s, "Geometry.buffer")
	assert.Contains(t, s, "Yemen")
	assert.Contains(t, s, "-5000")
}

func TestSerializeMappedLambdaGetsOwnBody(t *testing.T) {
	c := &Client{}
	col := c.ImageCollection("MODIS/061/MOD13A1").
		FilterDate(time.Date(2002, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2002, 12, 31, 0, 0, 0, 0, time.UTC)).
		Map(func(img engine.Image) engine.Image {
			return img.UpdateMask(img.Select("SummaryQA").Lte(1))
		})

	expr := serialize(col.Median().(*eeImage).n)

	// The lambda body is stored in the shared value table and referenced
	// by id from the function definition.
	raw, err := json.Marshal(expr)
	require.NoError(t, err)
	s := string(raw)
	assert.Contains(t, s, "functionDefinitionValue")
	assert.Contains(t, s, "argumentReference")
	assert.Contains(t, s, "SummaryQA")
	assert.Contains(t, s, "reduce.median")
	assert.GreaterOrEqual(t, len(expr.Values), 2)
}

func TestSerializeDateFilter(t *testing.T) {
	c := &Client{}
	col := c.ImageCollection("MODIS/061/MOD11A1").
		FilterDate(time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2022, 12, 31, 0, 0, 0, 0, time.UTC))

	raw, err := json.Marshal(serialize(col.Median().(*eeImage).n))
	require.NoError(t, err)
	// Filter.date's end bound is exclusive, so a closed Jan 1 to Dec 31
	// range serializes with the next New Year as its end. A scene dated
	// exactly Dec 31 would otherwise be dropped.
	assert.Contains(t, string(raw), "2022-01-01")
	assert.Contains(t, string(raw), "2023-01-01")
	assert.NotContains(t, string(raw), "2022-12-31")
}

package chart

import (
	"bytes"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medcoast/ges-cli/internal/ges"
)

func sampleCounts() ges.Classification {
	counts := make(ges.Classification, len(ges.Classes))
	values := []int64{120, 340, 5600, 890, 45}
	for i, c := range ges.Classes {
		counts[i] = ges.ClassCount{Class: c, Count: values[i]}
	}
	return counts
}

func TestRenderProducesPNG(t *testing.T) {
	data, err := Render(sampleCounts(), "Yemen", 2002, 2022)
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, width, img.Bounds().Dx())
	assert.Equal(t, height, img.Bounds().Dy())
}

func TestRenderAllZeroCounts(t *testing.T) {
	counts := make(ges.Classification, len(ges.Classes))
	for i, c := range ges.Classes {
		counts[i] = ges.ClassCount{Class: c}
	}

	data, err := Render(counts, "Egypt", 2010, 2011)
	require.NoError(t, err)
	_, err = png.Decode(bytes.NewReader(data))
	assert.NoError(t, err)
}

func TestRenderEmptyClassification(t *testing.T) {
	_, err := Render(nil, "Yemen", 2002, 2022)
	assert.ErrorContains(t, err, "empty classification")
}

func TestSplitLabel(t *testing.T) {
	assert.Equal(t, []string{"Very", "Severe"}, splitLabel("Very Severe"))
	assert.Equal(t, []string{"Excellent", "Improvement"}, splitLabel("Excellent Improvement"))
	assert.Equal(t, []string{"Severe"}, splitLabel("Severe"))
}

package ges

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassesPartitionChangeRange(t *testing.T) {
	// Contiguous half-open intervals covering [-100, +inf).
	assert.Equal(t, -100.0, Classes[0].Low)
	for i := 1; i < len(Classes); i++ {
		assert.Equal(t, Classes[i-1].High, Classes[i].Low,
			"classes %q and %q must meet", Classes[i-1].Label, Classes[i].Label)
	}
	assert.True(t, math.IsInf(Classes[len(Classes)-1].High, 1))
}

func TestClassifyBoundaryValues(t *testing.T) {
	classify := func(v float64) string {
		for _, c := range Classes {
			if v >= c.Low && (math.IsInf(c.High, 1) || v < c.High) {
				return c.Label
			}
		}
		return ""
	}

	tests := []struct {
		value float64
		want  string
	}{
		{-100, "Very Severe"},
		{-25, "Severe"},
		{-5, "No Change"},
		{0, "No Change"},
		{5, "Good Environmental"},
		{25, "Excellent Improvement"},
		{1000, "Excellent Improvement"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, classify(tt.value), "value %v", tt.value)
	}
}

func TestPalette(t *testing.T) {
	p := Palette()
	require.Len(t, p, 5)
	assert.Equal(t, "#a50026", p[0])
	assert.Equal(t, "#006837", p[4])
}

func TestClassificationTotalAndCounts(t *testing.T) {
	c := Classification{
		{Class: Classes[0], Count: 3},
		{Class: Classes[2], Count: 7},
	}
	assert.Equal(t, int64(10), c.Total())
	assert.Equal(t, int64(7), c.Counts()["No Change"])
}

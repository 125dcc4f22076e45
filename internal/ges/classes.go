package ges

import "math"

// Class is one bucket of the GES change classification. Intervals are
// half-open [Low, High); the last class is open-ended upward.
type Class struct {
	Label string
	Low   float64
	High  float64
	Color string
}

// Classes is the fixed five-class partition of the GES change range, in
// chart order with its diverging palette.
var Classes = [5]Class{
	{Label: "Very Severe", Low: -100, High: -25, Color: "#a50026"},
	{Label: "Severe", Low: -25, High: -5, Color: "#f88d52"},
	{Label: "No Change", Low: -5, High: 5, Color: "#ffffbf"},
	{Label: "Good Environmental", Low: 5, High: 25, Color: "#86cb66"},
	{Label: "Excellent Improvement", Low: 25, High: math.Inf(1), Color: "#006837"},
}

// Visualization stretch for map layers.
const (
	VisMin = -50
	VisMax = 50
)

// Palette returns the class colors in chart order.
func Palette() []string {
	colors := make([]string, len(Classes))
	for i, c := range Classes {
		colors[i] = c.Color
	}
	return colors
}

// ClassCount pairs a class with its valid pixel count.
type ClassCount struct {
	Class Class
	Count int64
}

// Classification is the ordered per-class pixel counts of a diff raster.
type Classification []ClassCount

// Total sums the class counts.
func (c Classification) Total() int64 {
	var total int64
	for _, cc := range c {
		total += cc.Count
	}
	return total
}

// Counts returns the label → count mapping.
func (c Classification) Counts() map[string]int64 {
	m := make(map[string]int64, len(c))
	for _, cc := range c {
		m[cc.Class.Label] = cc.Count
	}
	return m
}

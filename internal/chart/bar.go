// Package chart renders the per-class pixel count bar chart of one
// analysis run as a PNG.
package chart

import (
	"bytes"
	"fmt"
	"image/png"

	"github.com/fogleman/gg"
	"github.com/rotisserie/eris"

	"github.com/medcoast/ges-cli/internal/ges"
)

const (
	width  = 900
	height = 540

	marginLeft   = 80.0
	marginRight  = 30.0
	marginTop    = 70.0
	marginBottom = 110.0
)

// Render draws the classification as a bar chart, one bar per class in
// class order, colored with the class palette. The title carries the
// country and year pair of the run.
func Render(counts ges.Classification, country string, startYear, endYear int) ([]byte, error) {
	if len(counts) == 0 {
		return nil, eris.New("chart: empty classification")
	}

	dc := gg.NewContext(width, height)
	dc.SetRGB(1, 1, 1)
	dc.Clear()

	title := fmt.Sprintf("GES Change Classification: %s %d-%d", country, startYear, endYear)
	dc.SetRGB(0, 0, 0)
	dc.DrawStringAnchored(title, width/2, marginTop/2, 0.5, 0.5)

	maxCount := int64(1)
	for _, cc := range counts {
		if cc.Count > maxCount {
			maxCount = cc.Count
		}
	}

	plotW := float64(width) - marginLeft - marginRight
	plotH := float64(height) - marginTop - marginBottom
	slot := plotW / float64(len(counts))
	barW := slot * 0.7

	// Axes.
	dc.SetRGB(0.2, 0.2, 0.2)
	dc.SetLineWidth(1)
	dc.DrawLine(marginLeft, marginTop, marginLeft, marginTop+plotH)
	dc.DrawLine(marginLeft, marginTop+plotH, marginLeft+plotW, marginTop+plotH)
	dc.Stroke()

	// Horizontal gridlines with count labels.
	const ticks = 5
	for i := 0; i <= ticks; i++ {
		frac := float64(i) / ticks
		y := marginTop + plotH*(1-frac)
		dc.SetRGBA(0, 0, 0, 0.15)
		dc.DrawLine(marginLeft, y, marginLeft+plotW, y)
		dc.Stroke()
		dc.SetRGB(0.2, 0.2, 0.2)
		label := fmt.Sprintf("%.0f", frac*float64(maxCount))
		dc.DrawStringAnchored(label, marginLeft-8, y, 1, 0.5)
	}

	for i, cc := range counts {
		x := marginLeft + float64(i)*slot + (slot-barW)/2
		barH := plotH * float64(cc.Count) / float64(maxCount)
		y := marginTop + plotH - barH

		dc.SetHexColor(cc.Class.Color)
		dc.DrawRectangle(x, y, barW, barH)
		dc.Fill()

		dc.SetRGB(0.2, 0.2, 0.2)
		dc.DrawRectangle(x, y, barW, barH)
		dc.Stroke()

		dc.SetRGB(0, 0, 0)
		dc.DrawStringAnchored(fmt.Sprintf("%d", cc.Count), x+barW/2, y-12, 0.5, 0.5)

		// Class labels wrap onto two lines below the axis.
		cx := x + barW/2
		ly := marginTop + plotH + 20
		for j, line := range splitLabel(cc.Class.Label) {
			dc.DrawStringAnchored(line, cx, ly+float64(j)*16, 0.5, 0.5)
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, dc.Image()); err != nil {
		return nil, eris.Wrap(err, "chart: encode png")
	}
	return buf.Bytes(), nil
}

// splitLabel breaks a class label at its first space so long labels fit
// under the bars.
func splitLabel(label string) []string {
	for i, r := range label {
		if r == ' ' {
			return []string{label[:i], label[i+1:]}
		}
	}
	return []string{label}
}

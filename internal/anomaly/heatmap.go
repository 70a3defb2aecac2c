package anomaly

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/fogleman/gg"

	"go-roof-inspector/pkg/models"
)

// Color is an opaque display color for an anomaly category.
type Color struct {
	R, G, B uint8
}

// Hex formats the color as #rrggbb.
func (c Color) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// RGBA converts to an opaque color.RGBA.
func (c Color) RGBA() color.RGBA {
	return color.RGBA{R: c.R, G: c.G, B: c.B, A: 255}
}

// Palette assigns each anomaly type its display color.
var Palette = map[models.AnomalyType]Color{
	models.AnomalyDarkStreaks:              {R: 0xd7, G: 0x26, B: 0x3d},
	models.AnomalyMossGrowth:               {R: 0x2e, G: 0x93, B: 0x3c},
	models.AnomalyGranuleLoss:              {R: 0xf4, G: 0x9d, B: 0x37},
	models.AnomalyDiscoloration:            {R: 0x3f, G: 0x88, B: 0xc5},
	models.AnomalyStreetViewDarkStreaks:    {R: 0x8e, G: 0x1b, B: 0x2b},
	models.AnomalyStreetViewMissingShingle: {R: 0x9b, G: 0x5d, B: 0xe5},
}

const (
	legendSwatch  = 12.0
	legendPadding = 6.0
	legendLine    = 18.0
)

// renderHeatmap composites each anomaly mask over a copy of the roof image
// with alpha proportional to severity, then draws a legend.
func (d *Detector) renderHeatmap(base image.Image, anomalies []models.Anomaly) *image.RGBA {
	bounds := base.Bounds()
	canvas := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(canvas, canvas.Bounds(), base, bounds.Min, draw.Src)

	for _, a := range anomalies {
		if a.Mask == nil {
			continue
		}
		alpha := uint8(math.Round(255 * a.Severity * d.cfg.HeatmapMaxAlpha))
		overlay := image.NewAlpha(canvas.Bounds())
		for i, p := range a.Mask.Pix {
			if p != 0 {
				overlay.Pix[i] = alpha
			}
		}
		fill := image.NewUniform(Palette[a.Type].RGBA())
		draw.DrawMask(canvas, canvas.Bounds(), fill, image.Point{}, overlay, image.Point{}, draw.Over)
	}

	drawLegend(canvas, anomalies)
	return canvas
}

// drawLegend lists the fired categories in the top-left corner.
func drawLegend(canvas *image.RGBA, anomalies []models.Anomaly) {
	dc := gg.NewContextForRGBA(canvas)

	width := 0.0
	for _, a := range anomalies {
		if w, _ := dc.MeasureString(string(a.Type)); w > width {
			width = w
		}
	}
	boxW := legendPadding*3 + legendSwatch + width
	boxH := legendPadding*2 + legendLine*float64(len(anomalies))

	dc.SetRGBA(0, 0, 0, 0.55)
	dc.DrawRectangle(legendPadding, legendPadding, boxW, boxH)
	dc.Fill()

	for i, a := range anomalies {
		y := legendPadding*2 + legendLine*float64(i)
		c := Palette[a.Type]
		dc.SetRGB255(int(c.R), int(c.G), int(c.B))
		dc.DrawRectangle(legendPadding*2, y+(legendLine-legendSwatch)/2, legendSwatch, legendSwatch)
		dc.Fill()

		dc.SetRGB(1, 1, 1)
		dc.DrawStringAnchored(string(a.Type), legendPadding*3+legendSwatch, y+legendLine/2, 0, 0.5)
	}
}

package acquisition

import (
	"fmt"

	"github.com/fogleman/gg"

	"go-roof-inspector/internal/imaging"
)

// renderPlaceholder draws a neutral grid with a caption so downstream stages
// always have an image to work with.
func renderPlaceholder(size int, lat, lon float64) ([]byte, error) {
	if size <= 0 {
		size = 640
	}
	s := float64(size)

	dc := gg.NewContext(size, size)
	dc.SetRGB(0.42, 0.42, 0.42)
	dc.Clear()

	dc.SetRGBA(1, 1, 1, 0.15)
	dc.SetLineWidth(1)
	step := s / 8
	for i := 1; i < 8; i++ {
		v := float64(i) * step
		dc.DrawLine(v, 0, v, s)
		dc.DrawLine(0, v, s, v)
	}
	dc.Stroke()

	dc.SetRGB(0.95, 0.95, 0.95)
	dc.DrawStringAnchored("imagery unavailable", s/2, s/2-10, 0.5, 0.5)
	dc.DrawStringAnchored(fmt.Sprintf("%.6f, %.6f", lat, lon), s/2, s/2+10, 0.5, 0.5)

	data, err := imaging.EncodePNG(dc.Image())
	if err != nil {
		return nil, fmt.Errorf("placeholder: %w", err)
	}
	return data, nil
}

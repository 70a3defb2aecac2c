package analyzer

import (
	"image"

	"go-roof-inspector/pkg/models"
)

// QualityAssessor scores how usable an image is for roof analysis.
// Evaluate is pure and never fails; callers reject malformed input first.
type QualityAssessor interface {
	Evaluate(img image.Image) models.QualityReport
}

// MetricsCalculator handles image metrics computation
type MetricsCalculator interface {
	CalculateMetrics(img image.Image) Metrics
}

// Metrics holds the raw measurements behind a QualityReport.
type Metrics struct {
	Width, Height  int
	Brightness     float64
	Contrast       float64
	Sharpness      float64
	ShadowRatio    float64
	HighlightRatio float64
	Cloudiness     float64
	RoofVisibility float64
	AvgSaturation  float64
}

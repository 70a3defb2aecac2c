package analyzer

import (
	"image"
	"math"

	"go-roof-inspector/internal/imaging"
	"go-roof-inspector/pkg/heuristics"
	"go-roof-inspector/pkg/models"
	"go-roof-inspector/pkg/validation"
)

// qualityAssessor implements QualityAssessor as a weighted blend of normalized metrics
type qualityAssessor struct {
	cfg        heuristics.QualityHeuristics
	calculator MetricsCalculator
	validator  *validation.QualityValidator
}

// NewQualityAssessor creates an assessor bound to the given heuristics
func NewQualityAssessor(cfg heuristics.QualityHeuristics) QualityAssessor {
	return &qualityAssessor{
		cfg:        cfg,
		calculator: NewMetricsCalculator(cfg),
		validator:  validation.NewQualityValidatorWithThresholds(cfg),
	}
}

// Evaluate measures the image and returns a report with a score in [MinScore, MaxScore]
func (qa *qualityAssessor) Evaluate(img image.Image) models.QualityReport {
	m := qa.calculator.CalculateMetrics(img)

	issues := qa.validator.Validate(validation.ImageQualityMetrics{
		Width:          m.Width,
		Height:         m.Height,
		Brightness:     m.Brightness,
		Contrast:       m.Contrast,
		Sharpness:      m.Sharpness,
		ShadowRatio:    m.ShadowRatio,
		Cloudiness:     m.Cloudiness,
		RoofVisibility: m.RoofVisibility,
	})

	return models.QualityReport{
		Score: qa.Score(m),
		Metrics: map[string]float64{
			models.MetricBrightness:     m.Brightness,
			models.MetricContrast:       m.Contrast,
			models.MetricSharpness:      m.Sharpness,
			models.MetricShadowRatio:    m.ShadowRatio,
			models.MetricHighlightRatio: m.HighlightRatio,
			models.MetricCloudiness:     m.Cloudiness,
			models.MetricRoofVisibility: m.RoofVisibility,
			models.MetricWidth:          float64(m.Width),
			models.MetricHeight:         float64(m.Height),
		},
		Issues: qa.validator.ConvertIssuesToTags(issues),
	}
}

// Score blends the normalized sub-metrics with the configured weights
func (qa *qualityAssessor) Score(m Metrics) float64 {
	c := qa.cfg
	w := c.Weights

	var resolution float64
	if target := float64(c.TargetWidth * c.TargetHeight); target > 0 {
		resolution = imaging.Clamp01(float64(m.Width*m.Height) / target)
	}
	brightness := imaging.Clamp01(1 - math.Abs(m.Brightness-0.5)/0.5)

	blend := w.Resolution*resolution +
		w.Brightness*brightness +
		w.Contrast*ratio(m.Contrast, c.ContrastNorm) +
		w.Sharpness*ratio(m.Sharpness, c.SharpnessNorm) +
		w.Shadow*imaging.Clamp01(1-m.ShadowRatio) +
		w.Cloud*imaging.Clamp01(1-m.Cloudiness) +
		w.Visibility*ratio(m.RoofVisibility, c.VisibilityNorm)

	var score float64
	if sum := w.Sum(); sum > 0 {
		score = 100 * blend / sum
	}
	return imaging.Clamp(score, c.MinScore, c.MaxScore)
}

func ratio(v, norm float64) float64 {
	if norm <= 0 {
		return 0
	}
	return imaging.Clamp01(v / norm)
}

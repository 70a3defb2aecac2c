// Package anomaly flags color and texture anomalies on a normalized roof view
// and on street-level facade photographs.
package anomaly

import (
	"fmt"
	"image"

	"go-roof-inspector/internal/imaging"
	"go-roof-inspector/internal/logger"
	"go-roof-inspector/pkg/heuristics"
	"go-roof-inspector/pkg/models"
)

// Detector runs the roof anomaly heuristics. It is stateless and safe for
// concurrent use.
type Detector struct {
	cfg heuristics.AnomalyHeuristics
}

// NewDetector creates a detector bound to the given heuristics.
func NewDetector(cfg heuristics.AnomalyHeuristics) *Detector {
	return &Detector{cfg: cfg}
}

// category is one flagged pixel class, in report order.
type category struct {
	kind       models.AnomalyType
	multiplier float64
	label      string
	mask       *imaging.Mask
	count      int
}

// Baseline is the mean value and saturation over mask-positive pixels.
type Baseline struct {
	Value      float64
	Saturation float64
	Pixels     int
}

// Detect flags the four roof categories restricted to the view's mask and
// renders a heatmap when at least one fired.
func (d *Detector) Detect(view models.NormalizedRoofView, profile models.PropertyProfile) models.AnomalyBundle {
	bundle := models.AnomalyBundle{
		Anomalies: []models.Anomaly{},
		Legend:    map[models.AnomalyType]string{},
	}
	if view.Image == nil || view.Image.Bounds().Empty() {
		return bundle
	}

	planes := imaging.ToHSV(view.Image)
	roof := roofMask(view.Mask, planes.Width, planes.Height)
	base := d.baseline(planes, roof)

	denominator := float64(base.Pixels)
	if base.Pixels == 0 {
		logger.WithField("stage", "anomaly").Warn("Roof mask is empty, anomaly ratios use a unit denominator")
		denominator = 1
	}

	cats := d.classify(planes, roof, base)
	area := d.roofArea(profile)

	for _, c := range cats {
		if c.count == 0 {
			continue
		}
		coverage := imaging.Clamp01(float64(c.count) / denominator)
		color := Palette[c.kind]
		bundle.Anomalies = append(bundle.Anomalies, models.Anomaly{
			Type:         c.kind,
			Severity:     imaging.Clamp(d.cfg.SeverityBase+coverage*c.multiplier, 0, 1),
			Probability:  imaging.Clamp(d.cfg.ProbabilityBase+coverage*d.cfg.ProbabilitySlope, 0, d.cfg.ProbabilityCap),
			Description:  fmt.Sprintf("%s across %.1f%% of the roof surface", c.label, coverage*100),
			CoverageSqft: area * coverage * d.cfg.AreaFactor,
			Color:        color.Hex(),
			Mask:         c.mask.ToGray(),
		})
		bundle.Legend[c.kind] = color.Hex()
	}

	if len(bundle.Anomalies) > 0 {
		bundle.Heatmap = d.renderHeatmap(view.Image, bundle.Anomalies)
	}
	return bundle
}

// Baseline computes the roof baseline of an image under a mask.
func (d *Detector) Baseline(view models.NormalizedRoofView) Baseline {
	if view.Image == nil {
		return Baseline{}
	}
	planes := imaging.ToHSV(view.Image)
	return d.baseline(planes, roofMask(view.Mask, planes.Width, planes.Height))
}

func (d *Detector) baseline(planes *imaging.HSV, roof *imaging.Mask) Baseline {
	var sumV, sumS float64
	var n int
	for i, on := range roof.Bits {
		if !on {
			continue
		}
		sumV += planes.V.Pix[i]
		sumS += planes.S.Pix[i]
		n++
	}
	div := float64(n)
	if n == 0 {
		div = 1
	}
	return Baseline{Value: sumV / div, Saturation: sumS / div, Pixels: n}
}

func (d *Detector) classify(planes *imaging.HSV, roof *imaging.Mask, base Baseline) []*category {
	w, h := planes.Width, planes.Height
	m := d.cfg.Multipliers
	dark := &category{kind: models.AnomalyDarkStreaks, multiplier: m.DarkStreaks, label: "Dark streaking", mask: imaging.NewMask(w, h)}
	moss := &category{kind: models.AnomalyMossGrowth, multiplier: m.MossGrowth, label: "Possible moss or algae growth", mask: imaging.NewMask(w, h)}
	granule := &category{kind: models.AnomalyGranuleLoss, multiplier: m.GranuleLoss, label: "Smooth low-texture patches suggesting granule loss", mask: imaging.NewMask(w, h)}
	discolor := &category{kind: models.AnomalyDiscoloration, multiplier: m.Discoloration, label: "Bleached or discolored areas", mask: imaging.NewMask(w, h)}

	gradient := imaging.SobelMagnitude(planes.V)

	darkV := base.Value * d.cfg.DarkValueFactor
	mossS := base.Saturation * d.cfg.MossSaturationFactor
	mossV := base.Value * d.cfg.MossValueFactor
	brightV := base.Value * d.cfg.DiscolorationValueFactor

	for i, on := range roof.Bits {
		if !on {
			continue
		}
		v, s := planes.V.Pix[i], planes.S.Pix[i]

		if v < darkV {
			dark.mask.Bits[i] = true
			dark.count++
		}
		isMoss := s > mossS && v < mossV
		if isMoss {
			moss.mask.Bits[i] = true
			moss.count++
		}
		if v > brightV {
			discolor.mask.Bits[i] = true
			discolor.count++
		}
		if !isMoss && gradient.Pix[i] < d.cfg.LowTextureGradient {
			granule.mask.Bits[i] = true
			granule.count++
		}
	}

	return []*category{dark, moss, granule, discolor}
}

func (d *Detector) roofArea(p models.PropertyProfile) float64 {
	switch {
	case p.SquareFeet > 0:
		return p.SquareFeet
	case p.LotSizeSqft > 0:
		return p.LotSizeSqft
	default:
		return d.cfg.DefaultRoofAreaSqft
	}
}

// roofMask adapts the view mask to the image size; a missing or mismatched
// mask yields an empty one.
func roofMask(g *image.Gray, w, h int) *imaging.Mask {
	if g == nil || g.Bounds().Dx() != w || g.Bounds().Dy() != h {
		return imaging.NewMask(w, h)
	}
	return imaging.MaskFromGray(g)
}

package anomaly

import (
	"fmt"

	"go-roof-inspector/internal/imaging"
	"go-roof-inspector/pkg/heuristics"
	"go-roof-inspector/pkg/models"
)

// FacadeScanner looks for facade-level roof damage in the vertical middle
// third of a street-level photograph.
type FacadeScanner struct {
	sv heuristics.StreetViewHeuristics
	an heuristics.AnomalyHeuristics
}

// NewFacadeScanner creates a scanner bound to the given heuristics.
func NewFacadeScanner(sv heuristics.StreetViewHeuristics, an heuristics.AnomalyHeuristics) *FacadeScanner {
	return &FacadeScanner{sv: sv, an: an}
}

// FacadeStats are the middle-band measurements behind a scan.
type FacadeStats struct {
	DarkRatio   float64
	EdgeDensity float64
	Deficiency  float64
}

// Measure computes the middle-band dark ratio and edge-density deficiency.
func (f *FacadeScanner) Measure(planes *imaging.HSV) FacadeStats {
	w, h := planes.Width, planes.Height
	top, bottom := h/3, 2*h/3
	if bottom <= top {
		top, bottom = 0, h
	}
	if w == 0 || bottom <= top {
		return FacadeStats{}
	}

	edges := imaging.SobelMagnitude(planes.Lum)
	var dark, edge int
	for y := top; y < bottom; y++ {
		for x := 0; x < w; x++ {
			i := y*w + x
			if planes.Lum.Pix[i] < f.sv.DarkPixelLuminance {
				dark++
			}
			if edges.Pix[i] > f.sv.EdgeMagnitude {
				edge++
			}
		}
	}

	total := float64(w * (bottom - top))
	stats := FacadeStats{
		DarkRatio:   float64(dark) / total,
		EdgeDensity: float64(edge) / total,
	}
	if f.sv.ExpectedEdgeDensity > 0 {
		stats.Deficiency = imaging.Clamp01(1 - stats.EdgeDensity/f.sv.ExpectedEdgeDensity)
	}
	return stats
}

// Scan returns the facade anomalies of a photograph, dark streaks first.
func (f *FacadeScanner) Scan(planes *imaging.HSV) []models.Anomaly {
	stats := f.Measure(planes)
	anomalies := []models.Anomaly{}

	if stats.DarkRatio > f.sv.DarkRatioThreshold {
		anomalies = append(anomalies, f.anomaly(
			models.AnomalyStreetViewDarkStreaks,
			stats.DarkRatio,
			f.an.Multipliers.DarkStreaks,
			fmt.Sprintf("Dark streaking visible on %.1f%% of the facade band", stats.DarkRatio*100),
		))
	}
	if stats.Deficiency > f.sv.DeficiencyThreshold {
		anomalies = append(anomalies, f.anomaly(
			models.AnomalyStreetViewMissingShingle,
			stats.Deficiency,
			f.an.Multipliers.GranuleLoss,
			fmt.Sprintf("Shingle edge density %.0f%% below expected, possible missing shingles", stats.Deficiency*100),
		))
	}
	return anomalies
}

// anomaly shares the roof severity and probability curves; ratio is the
// fraction of the band that triggered the flag.
func (f *FacadeScanner) anomaly(kind models.AnomalyType, ratio, multiplier float64, desc string) models.Anomaly {
	return models.Anomaly{
		Type:        kind,
		Severity:    imaging.Clamp(f.an.SeverityBase+ratio*multiplier, 0, 1),
		Probability: imaging.Clamp(f.an.ProbabilityBase+ratio*f.an.ProbabilitySlope, 0, f.an.ProbabilityCap),
		Description: desc,
		Color:       Palette[kind].Hex(),
	}
}

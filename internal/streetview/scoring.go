package streetview

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"go-roof-inspector/internal/imaging"
	"go-roof-inspector/pkg/heuristics"
)

// Scores are the view-level measurements of one photograph.
type Scores struct {
	Foliage   float64
	Sky       float64
	Occlusion float64
	Quality   float64
}

// isFoliage matches saturated green hues.
func isFoliage(h, s, v float64) bool {
	return h >= 60 && h <= 170 && s > 0.2 && v > 0.15
}

// isSky matches blue sky and bright overcast.
func isSky(h, s, v float64) bool {
	if h >= 185 && h <= 250 && s > 0.15 && v > 0.45 {
		return true
	}
	return v > 0.85 && s < 0.12
}

// Score computes occlusion and a composite quality in [0,1].
func Score(planes *imaging.HSV, cfg heuristics.StreetViewHeuristics) Scores {
	n := len(planes.V.Pix)
	if n == 0 {
		return Scores{Occlusion: 1}
	}

	var foliage, sky int
	for i := 0; i < n; i++ {
		h, s, v := planes.H.Pix[i], planes.S.Pix[i], planes.V.Pix[i]
		switch {
		case isFoliage(h, s, v):
			foliage++
		case isSky(h, s, v):
			sky++
		}
	}

	sc := Scores{
		Foliage: float64(foliage) / float64(n),
		Sky:     float64(sky) / float64(n),
	}
	sc.Occlusion = imaging.Clamp01(cfg.FoliageWeight*sc.Foliage + cfg.SkyWeight*sc.Sky)

	mean, std := stat.PopMeanStdDev(planes.Lum.Pix, nil)
	brightness := imaging.Clamp01(1 - math.Abs(mean-0.5)/0.5)
	var contrast float64
	if cfg.ContrastNorm > 0 {
		contrast = imaging.Clamp01(std / cfg.ContrastNorm)
	}

	total := cfg.BrightnessWeight + cfg.ContrastWeight + cfg.ClearViewWeight
	if total > 0 {
		blend := cfg.BrightnessWeight*brightness + cfg.ContrastWeight*contrast + cfg.ClearViewWeight*(1-sc.Occlusion)
		sc.Quality = imaging.Clamp01(blend / total)
	}
	return sc
}

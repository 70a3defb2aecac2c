// Package heuristics holds every tunable constant of the imagery pipeline in one
// structure so thresholds and weights can be changed from configuration.
package heuristics

import (
	"fmt"
	"time"
)

// Heuristics groups the per-stage heuristic settings.
type Heuristics struct {
	Quality      QualityHeuristics      `mapstructure:"quality"`
	Acquisition  AcquisitionHeuristics  `mapstructure:"acquisition"`
	Segmentation SegmentationHeuristics `mapstructure:"segmentation"`
	Anomaly      AnomalyHeuristics      `mapstructure:"anomaly"`
	StreetView   StreetViewHeuristics   `mapstructure:"streetview"`
}

// QualityWeights are the linear weights of the quality score sub-metrics.
type QualityWeights struct {
	Resolution float64 `mapstructure:"resolution"`
	Brightness float64 `mapstructure:"brightness"`
	Contrast   float64 `mapstructure:"contrast"`
	Sharpness  float64 `mapstructure:"sharpness"`
	Shadow     float64 `mapstructure:"shadow"`
	Cloud      float64 `mapstructure:"cloud"`
	Visibility float64 `mapstructure:"visibility"`
}

// Sum returns the total weight.
func (w QualityWeights) Sum() float64 {
	return w.Resolution + w.Brightness + w.Contrast + w.Sharpness + w.Shadow + w.Cloud + w.Visibility
}

// QualityHeuristics configures the quality assessor.
type QualityHeuristics struct {
	ShadowLuminance    float64 `mapstructure:"shadow_luminance"`
	HighlightLuminance float64 `mapstructure:"highlight_luminance"`
	CloudLuminance     float64 `mapstructure:"cloud_luminance"`
	CloudSaturation    float64 `mapstructure:"cloud_saturation"`
	EdgeMagnitude      float64 `mapstructure:"edge_magnitude"`

	TargetWidth  int `mapstructure:"target_width"`
	TargetHeight int `mapstructure:"target_height"`

	MinBrightness     float64 `mapstructure:"min_brightness"`
	MaxBrightness     float64 `mapstructure:"max_brightness"`
	MinContrast       float64 `mapstructure:"min_contrast"`
	MinSharpness      float64 `mapstructure:"min_sharpness"`
	MaxShadowRatio    float64 `mapstructure:"max_shadow_ratio"`
	MaxCloudiness     float64 `mapstructure:"max_cloudiness"`
	MinRoofVisibility float64 `mapstructure:"min_roof_visibility"`

	// Normalization ceilings: the sub-metric reaches 1.0 at these values.
	ContrastNorm   float64 `mapstructure:"contrast_norm"`
	SharpnessNorm  float64 `mapstructure:"sharpness_norm"`
	VisibilityNorm float64 `mapstructure:"visibility_norm"`

	Weights  QualityWeights `mapstructure:"weights"`
	MinScore float64        `mapstructure:"min_score"`
	MaxScore float64        `mapstructure:"max_score"`
}

// AcquisitionHeuristics configures the acquisition coordinator.
type AcquisitionHeuristics struct {
	ZoomLevels      []int         `mapstructure:"zoom_levels"`
	PlaceholderSize int           `mapstructure:"placeholder_size"`
	FetchTimeout    time.Duration `mapstructure:"fetch_timeout"`
}

// SegmentationHeuristics configures the roof normalizer.
type SegmentationHeuristics struct {
	MinValue        float64 `mapstructure:"min_value"`
	MaxValue        float64 `mapstructure:"max_value"`
	MaxSaturation   float64 `mapstructure:"max_saturation"`
	ClosingRadius   int     `mapstructure:"closing_radius"`
	FallbackMin     float64 `mapstructure:"fallback_min"`
	FallbackMax     float64 `mapstructure:"fallback_max"`
	CanonicalWidth  int     `mapstructure:"canonical_width"`
	CanonicalHeight int     `mapstructure:"canonical_height"`
}

// AnomalyMultipliers scale coverage into severity per category.
type AnomalyMultipliers struct {
	DarkStreaks   float64 `mapstructure:"dark_streaks"`
	MossGrowth    float64 `mapstructure:"moss_growth"`
	GranuleLoss   float64 `mapstructure:"granule_loss"`
	Discoloration float64 `mapstructure:"discoloration"`
}

// AnomalyHeuristics configures the anomaly detector.
type AnomalyHeuristics struct {
	DarkValueFactor          float64            `mapstructure:"dark_value_factor"`
	MossSaturationFactor     float64            `mapstructure:"moss_saturation_factor"`
	MossValueFactor          float64            `mapstructure:"moss_value_factor"`
	DiscolorationValueFactor float64            `mapstructure:"discoloration_value_factor"`
	LowTextureGradient       float64            `mapstructure:"low_texture_gradient"`
	SeverityBase             float64            `mapstructure:"severity_base"`
	ProbabilityBase          float64            `mapstructure:"probability_base"`
	ProbabilitySlope         float64            `mapstructure:"probability_slope"`
	ProbabilityCap           float64            `mapstructure:"probability_cap"`
	DefaultRoofAreaSqft      float64            `mapstructure:"default_roof_area_sqft"`
	AreaFactor               float64            `mapstructure:"area_factor"`
	HeatmapMaxAlpha          float64            `mapstructure:"heatmap_max_alpha"`
	Multipliers              AnomalyMultipliers `mapstructure:"multipliers"`
}

// StreetViewHeuristics configures the street-level collector.
type StreetViewHeuristics struct {
	HeadingCount         int           `mapstructure:"heading_count"`
	Pitch                float64       `mapstructure:"pitch"`
	FOV                  float64       `mapstructure:"fov"`
	ImageSize            int           `mapstructure:"image_size"`
	MaxDistanceMeters    float64       `mapstructure:"max_distance_meters"`
	MinSeparationDegrees float64       `mapstructure:"min_separation_degrees"`
	MaxAngles            int           `mapstructure:"max_angles"`
	DarkPixelLuminance   float64       `mapstructure:"dark_pixel_luminance"`
	DarkRatioThreshold   float64       `mapstructure:"dark_ratio_threshold"`
	EdgeMagnitude        float64       `mapstructure:"edge_magnitude"`
	ExpectedEdgeDensity  float64       `mapstructure:"expected_edge_density"`
	DeficiencyThreshold  float64       `mapstructure:"deficiency_threshold"`
	FoliageWeight        float64       `mapstructure:"foliage_weight"`
	SkyWeight            float64       `mapstructure:"sky_weight"`
	BrightnessWeight     float64       `mapstructure:"brightness_weight"`
	ContrastWeight       float64       `mapstructure:"contrast_weight"`
	ClearViewWeight      float64       `mapstructure:"clear_view_weight"`
	ContrastNorm         float64       `mapstructure:"contrast_norm"`
	FetchTimeout         time.Duration `mapstructure:"fetch_timeout"`
}

// Default returns the reference heuristic set.
func Default() Heuristics {
	return Heuristics{
		Quality: QualityHeuristics{
			ShadowLuminance:    0.17,
			HighlightLuminance: 0.93,
			CloudLuminance:     0.85,
			CloudSaturation:    0.12,
			EdgeMagnitude:      0.25,
			TargetWidth:        640,
			TargetHeight:       640,
			MinBrightness:      0.25,
			MaxBrightness:      0.8,
			MinContrast:        0.08,
			MinSharpness:       60,
			MaxShadowRatio:     0.35,
			MaxCloudiness:      0.3,
			MinRoofVisibility:  0.04,
			ContrastNorm:       0.25,
			SharpnessNorm:      500,
			VisibilityNorm:     0.2,
			Weights: QualityWeights{
				Resolution: 0.15,
				Brightness: 0.15,
				Contrast:   0.15,
				Sharpness:  0.2,
				Shadow:     0.1,
				Cloud:      0.1,
				Visibility: 0.15,
			},
			MinScore: 5,
			MaxScore: 100,
		},
		Acquisition: AcquisitionHeuristics{
			ZoomLevels:      []int{20, 19, 18},
			PlaceholderSize: 640,
			FetchTimeout:    12 * time.Second,
		},
		Segmentation: SegmentationHeuristics{
			MinValue:        0.2,
			MaxValue:        0.85,
			MaxSaturation:   0.35,
			ClosingRadius:   2,
			FallbackMin:     0.22,
			FallbackMax:     0.78,
			CanonicalWidth:  768,
			CanonicalHeight: 768,
		},
		Anomaly: AnomalyHeuristics{
			DarkValueFactor:          0.86,
			MossSaturationFactor:     1.18,
			MossValueFactor:          0.94,
			DiscolorationValueFactor: 1.12,
			LowTextureGradient:       0.02,
			SeverityBase:             0.25,
			ProbabilityBase:          0.58,
			ProbabilitySlope:         1.9,
			ProbabilityCap:           0.98,
			DefaultRoofAreaSqft:      2000,
			AreaFactor:               0.55,
			HeatmapMaxAlpha:          0.65,
			Multipliers: AnomalyMultipliers{
				DarkStreaks:   3.3,
				MossGrowth:    2.9,
				GranuleLoss:   2.2,
				Discoloration: 2.6,
			},
		},
		StreetView: StreetViewHeuristics{
			HeadingCount:         8,
			Pitch:                -5,
			FOV:                  80,
			ImageSize:            640,
			MaxDistanceMeters:    45,
			MinSeparationDegrees: 30,
			MaxAngles:            3,
			DarkPixelLuminance:   0.2,
			DarkRatioThreshold:   0.18,
			EdgeMagnitude:        0.15,
			ExpectedEdgeDensity:  0.12,
			DeficiencyThreshold:  0.55,
			FoliageWeight:        0.6,
			SkyWeight:            0.4,
			BrightnessWeight:     0.4,
			ContrastWeight:       0.3,
			ClearViewWeight:      0.3,
			ContrastNorm:         0.25,
			FetchTimeout:         10 * time.Second,
		},
	}
}

// Validate rejects settings that would break an invariant downstream.
func (h Heuristics) Validate() error {
	q := h.Quality
	if q.MinScore < 0 || q.MaxScore <= q.MinScore {
		return fmt.Errorf("quality score bounds invalid: [%g, %g]", q.MinScore, q.MaxScore)
	}
	if q.Weights.Sum() <= 0 {
		return fmt.Errorf("quality weights must sum to a positive value")
	}
	if len(h.Acquisition.ZoomLevels) == 0 {
		return fmt.Errorf("at least one zoom level is required")
	}
	s := h.Segmentation
	if s.FallbackMin < 0 || s.FallbackMax > 1 || s.FallbackMax <= s.FallbackMin {
		return fmt.Errorf("fallback rectangle invalid: [%g, %g]", s.FallbackMin, s.FallbackMax)
	}
	if s.CanonicalWidth <= 0 || s.CanonicalHeight <= 0 {
		return fmt.Errorf("canonical size must be positive (got %dx%d)", s.CanonicalWidth, s.CanonicalHeight)
	}
	sv := h.StreetView
	if sv.HeadingCount <= 0 || sv.MaxDistanceMeters <= 0 {
		return fmt.Errorf("street view heading count and max distance must be positive")
	}
	return nil
}

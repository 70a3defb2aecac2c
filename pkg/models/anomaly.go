package models

import "image"

// AnomalyType tags the kind of visual anomaly detected.
type AnomalyType string

const (
	AnomalyDarkStreaks              AnomalyType = "dark_streaks"
	AnomalyMossGrowth               AnomalyType = "moss_growth"
	AnomalyGranuleLoss              AnomalyType = "granule_loss"
	AnomalyDiscoloration            AnomalyType = "discoloration"
	AnomalyStreetViewDarkStreaks    AnomalyType = "streetview_dark_streaks"
	AnomalyStreetViewMissingShingle AnomalyType = "streetview_missing_shingles"
)

// Anomaly is a single detected anomaly with clamped severity and probability.
type Anomaly struct {
	Type         AnomalyType `json:"type"`
	Severity     float64     `json:"severity"`
	Probability  float64     `json:"probability"`
	Description  string      `json:"description"`
	CoverageSqft float64     `json:"coverage_sqft"`
	Color        string      `json:"color,omitempty"`
	MaskURL      string      `json:"mask_url,omitempty"`

	Mask *image.Gray `json:"-"`
}

// AnomalyBundle is the ordered anomaly list of a normalized roof view.
// Heatmap is non-nil iff Anomalies is non-empty.
type AnomalyBundle struct {
	Anomalies  []Anomaly              `json:"anomalies"`
	HeatmapURL string                 `json:"heatmap_url,omitempty"`
	Legend     map[AnomalyType]string `json:"legend"`

	Heatmap *image.RGBA `json:"-"`
}

// HasHeatmap reports whether a heatmap was rendered.
func (b AnomalyBundle) HasHeatmap() bool {
	return b.Heatmap != nil
}

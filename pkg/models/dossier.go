package models

import "time"

// PropertyProfile carries the property facts the anomaly area estimate needs.
type PropertyProfile struct {
	SquareFeet  float64 `json:"square_feet,omitempty"`
	LotSizeSqft float64 `json:"lot_size_sqft,omitempty"`
}

// RoofCondition is the result of the external roof-condition classifier.
type RoofCondition struct {
	Summary            string   `json:"summary"`
	ConditionScore     float64  `json:"condition_score"`
	DamageIndicators   []string `json:"damage_indicators"`
	Confidence         float64  `json:"confidence"`
	ReplacementUrgency string   `json:"replacement_urgency"`
}

// Replacement urgency values reported by the classifier.
const (
	UrgencyUnknown = "unknown"
)

// DefaultRoofCondition is the section used when no classification is available.
func DefaultRoofCondition() RoofCondition {
	return RoofCondition{
		Summary:            "Roof condition classification unavailable.",
		DamageIndicators:   []string{},
		ReplacementUrgency: UrgencyUnknown,
	}
}

// AnalysisDossier is the immutable aggregate produced by one analysis run.
type AnalysisDossier struct {
	ID             string             `json:"id"`
	PropertyID     string             `json:"property_id"`
	Location       LatLon             `json:"location"`
	GeneratedAt    time.Time          `json:"generated_at"`
	Image          ImageAsset         `json:"image"`
	NormalizedView NormalizedRoofView `json:"normalized_view"`
	Anomalies      AnomalyBundle      `json:"anomalies"`
	StreetView     []StreetViewAsset  `json:"street_view"`
	RoofCondition  RoofCondition      `json:"roof_condition"`
	DegradedStages []string           `json:"degraded_stages"`
}

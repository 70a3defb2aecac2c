package validation

import (
	"fmt"

	"go-roof-inspector/pkg/heuristics"
	"go-roof-inspector/pkg/models"
)

// QualityValidator maps measured image metrics onto quality issue tags
type QualityValidator struct {
	thresholds heuristics.QualityHeuristics
}

// NewQualityValidator creates a new quality validator with default thresholds
func NewQualityValidator() *QualityValidator {
	return &QualityValidator{
		thresholds: heuristics.Default().Quality,
	}
}

// NewQualityValidatorWithThresholds creates a quality validator with custom thresholds
func NewQualityValidatorWithThresholds(thresholds heuristics.QualityHeuristics) *QualityValidator {
	return &QualityValidator{
		thresholds: thresholds,
	}
}

// QualityIssue represents a quality validation issue
type QualityIssue struct {
	Type        string  `json:"type"`
	Message     string  `json:"message"`
	Severity    string  `json:"severity"` // "error", "warning"
	ActualValue float64 `json:"actual_value,omitempty"`
	Threshold   float64 `json:"threshold,omitempty"`
}

// ImageQualityMetrics represents the metrics needed for quality validation
type ImageQualityMetrics struct {
	Width          int
	Height         int
	Brightness     float64
	Contrast       float64
	Sharpness      float64
	ShadowRatio    float64
	Cloudiness     float64
	RoofVisibility float64
}

// Validate checks each metric against its configured bound, in a fixed order
func (qv *QualityValidator) Validate(metrics ImageQualityMetrics) []QualityIssue {
	t := qv.thresholds
	var issues []QualityIssue

	// 1. Resolution
	if metrics.Width < t.TargetWidth || metrics.Height < t.TargetHeight {
		issues = append(issues, QualityIssue{
			Type:        models.IssueLowResolution,
			Message:     fmt.Sprintf("Image is %dx%d, below the %dx%d target.", metrics.Width, metrics.Height, t.TargetWidth, t.TargetHeight),
			Severity:    "warning",
			ActualValue: float64(metrics.Width * metrics.Height),
			Threshold:   float64(t.TargetWidth * t.TargetHeight),
		})
	}

	// 2. Exposure
	if metrics.Brightness < t.MinBrightness {
		issues = append(issues, QualityIssue{
			Type:        models.IssueTooDark,
			Message:     "Image is too dark to read roof surfaces.",
			Severity:    "error",
			ActualValue: metrics.Brightness,
			Threshold:   t.MinBrightness,
		})
	} else if metrics.Brightness > t.MaxBrightness {
		issues = append(issues, QualityIssue{
			Type:        models.IssueTooBright,
			Message:     "Image is overexposed.",
			Severity:    "error",
			ActualValue: metrics.Brightness,
			Threshold:   t.MaxBrightness,
		})
	}

	// 3. Contrast and focus
	if metrics.Contrast < t.MinContrast {
		issues = append(issues, QualityIssue{
			Type:        models.IssueLowContrast,
			Message:     "Image has very little tonal range.",
			Severity:    "warning",
			ActualValue: metrics.Contrast,
			Threshold:   t.MinContrast,
		})
	}
	if metrics.Sharpness < t.MinSharpness {
		issues = append(issues, QualityIssue{
			Type:        models.IssueSoftFocus,
			Message:     "Image is soft or blurred.",
			Severity:    "warning",
			ActualValue: metrics.Sharpness,
			Threshold:   t.MinSharpness,
		})
	}

	// 4. Occluders
	if metrics.ShadowRatio > t.MaxShadowRatio {
		issues = append(issues, QualityIssue{
			Type:        models.IssueHeavyShadows,
			Message:     "Large parts of the scene are in shadow.",
			Severity:    "warning",
			ActualValue: metrics.ShadowRatio,
			Threshold:   t.MaxShadowRatio,
		})
	}
	if metrics.Cloudiness > t.MaxCloudiness {
		issues = append(issues, QualityIssue{
			Type:        models.IssueCloudCover,
			Message:     "Bright desaturated areas suggest cloud or haze.",
			Severity:    "error",
			ActualValue: metrics.Cloudiness,
			Threshold:   t.MaxCloudiness,
		})
	}
	if metrics.RoofVisibility < t.MinRoofVisibility {
		issues = append(issues, QualityIssue{
			Type:        models.IssuePoorRoofVisibility,
			Message:     "Roof edges are barely visible.",
			Severity:    "error",
			ActualValue: metrics.RoofVisibility,
			Threshold:   t.MinRoofVisibility,
		})
	}

	return issues
}

// ConvertIssuesToTags flattens issues into their tag names
func (qv *QualityValidator) ConvertIssuesToTags(issues []QualityIssue) []string {
	tags := make([]string, 0, len(issues))
	for _, issue := range issues {
		tags = append(tags, issue.Type)
	}
	return tags
}

// HasCriticalIssues checks if there are any critical (error severity) issues
func (qv *QualityValidator) HasCriticalIssues(issues []QualityIssue) bool {
	for _, issue := range issues {
		if issue.Severity == "error" {
			return true
		}
	}
	return false
}

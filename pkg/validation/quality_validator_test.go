package validation

import (
	"testing"

	"go-roof-inspector/pkg/heuristics"
	"go-roof-inspector/pkg/models"
)

func goodMetrics() ImageQualityMetrics {
	return ImageQualityMetrics{
		Width:          1280,
		Height:         1280,
		Brightness:     0.5,
		Contrast:       0.2,
		Sharpness:      300,
		ShadowRatio:    0.1,
		Cloudiness:     0.05,
		RoofVisibility: 0.15,
	}
}

func TestNewQualityValidator(t *testing.T) {
	validator := NewQualityValidator()
	if validator == nil {
		t.Fatal("Expected non-nil quality validator")
	}

	expected := heuristics.Default().Quality.MinSharpness
	if validator.thresholds.MinSharpness != expected {
		t.Errorf("Expected MinSharpness to be %f, got %f", expected, validator.thresholds.MinSharpness)
	}
}

func TestNewQualityValidatorWithThresholds(t *testing.T) {
	custom := heuristics.Default().Quality
	custom.MinSharpness = 500

	validator := NewQualityValidatorWithThresholds(custom)
	if validator.thresholds.MinSharpness != 500.0 {
		t.Errorf("Expected custom MinSharpness to be 500.0, got %f", validator.thresholds.MinSharpness)
	}

	issues := validator.Validate(goodMetrics())
	if tags := validator.ConvertIssuesToTags(issues); len(tags) != 1 || tags[0] != models.IssueSoftFocus {
		t.Errorf("Expected only soft focus under stricter threshold, got %v", tags)
	}
}

func TestValidate_HighQuality(t *testing.T) {
	validator := NewQualityValidator()

	issues := validator.Validate(goodMetrics())
	if len(issues) > 0 {
		t.Errorf("Expected no quality issues for high-quality image, got: %v", issues)
	}
	if validator.HasCriticalIssues(issues) {
		t.Error("Expected no critical issues")
	}
}

func TestValidate_SingleIssue(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(m *ImageQualityMetrics)
		tag      string
		critical bool
	}{
		{"low resolution", func(m *ImageQualityMetrics) { m.Width = 320 }, models.IssueLowResolution, false},
		{"too dark", func(m *ImageQualityMetrics) { m.Brightness = 0.1 }, models.IssueTooDark, true},
		{"too bright", func(m *ImageQualityMetrics) { m.Brightness = 0.9 }, models.IssueTooBright, true},
		{"low contrast", func(m *ImageQualityMetrics) { m.Contrast = 0.01 }, models.IssueLowContrast, false},
		{"soft focus", func(m *ImageQualityMetrics) { m.Sharpness = 10 }, models.IssueSoftFocus, false},
		{"heavy shadows", func(m *ImageQualityMetrics) { m.ShadowRatio = 0.6 }, models.IssueHeavyShadows, false},
		{"cloud cover", func(m *ImageQualityMetrics) { m.Cloudiness = 0.5 }, models.IssueCloudCover, true},
		{"poor visibility", func(m *ImageQualityMetrics) { m.RoofVisibility = 0.01 }, models.IssuePoorRoofVisibility, true},
	}

	validator := NewQualityValidator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := goodMetrics()
			tt.mutate(&m)

			issues := validator.Validate(m)
			if len(issues) != 1 {
				t.Fatalf("Expected exactly one issue, got %v", issues)
			}
			if issues[0].Type != tt.tag {
				t.Errorf("Expected %q, got %q", tt.tag, issues[0].Type)
			}
			if validator.HasCriticalIssues(issues) != tt.critical {
				t.Errorf("Expected critical=%v", tt.critical)
			}
		})
	}
}

func TestValidate_StableOrder(t *testing.T) {
	validator := NewQualityValidator()
	m := ImageQualityMetrics{Width: 10, Height: 10, Brightness: 0.05, ShadowRatio: 0.9}

	tags := validator.ConvertIssuesToTags(validator.Validate(m))
	want := []string{
		models.IssueLowResolution,
		models.IssueTooDark,
		models.IssueLowContrast,
		models.IssueSoftFocus,
		models.IssueHeavyShadows,
		models.IssuePoorRoofVisibility,
	}
	if len(tags) != len(want) {
		t.Fatalf("Expected %v, got %v", want, tags)
	}
	for i := range want {
		if tags[i] != want[i] {
			t.Errorf("position %d: expected %q, got %q", i, want[i], tags[i])
		}
	}
}

package anomaly

import (
	"bytes"
	"image"
	"image/color"
	"math"
	"testing"

	"go-roof-inspector/internal/imaging"
	"go-roof-inspector/pkg/heuristics"
	"go-roof-inspector/pkg/models"
)

// stripedRoof builds a textured gray roof: 2px vertical stripes alternating
// between two gray levels, so every interior pixel has a strong gradient.
func stripedRoof(w, h int, a, b uint8) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := a
			if (x/2)%2 == 1 {
				v = b
			}
			img.SetRGBA(x, y, color.RGBA{v, v, v, 255})
		}
	}
	return img
}

func fill(img *image.RGBA, r image.Rectangle, c color.RGBA) {
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			img.SetRGBA(x, y, c)
		}
	}
}

// interiorMask marks everything except a margin, keeping border pixels with
// clamped gradients out of the statistics.
func interiorMask(w, h, margin int) *image.Gray {
	g := image.NewGray(image.Rect(0, 0, w, h))
	for y := margin; y < h-margin; y++ {
		for x := margin; x < w-margin; x++ {
			g.SetGray(x, y, color.Gray{Y: 255})
		}
	}
	return g
}

func view(img *image.RGBA, mask *image.Gray) models.NormalizedRoofView {
	return models.NormalizedRoofView{Image: img, Mask: mask, CoverageRatio: 1}
}

func types(b models.AnomalyBundle) []models.AnomalyType {
	out := make([]models.AnomalyType, 0, len(b.Anomalies))
	for _, a := range b.Anomalies {
		out = append(out, a.Type)
	}
	return out
}

func find(b models.AnomalyBundle, t models.AnomalyType) (models.Anomaly, bool) {
	for _, a := range b.Anomalies {
		if a.Type == t {
			return a, true
		}
	}
	return models.Anomaly{}, false
}

func TestDetect_CleanRoofHasNoHeatmap(t *testing.T) {
	d := NewDetector(heuristics.Default().Anomaly)
	bundle := d.Detect(view(stripedRoof(64, 64, 115, 140), interiorMask(64, 64, 4)), models.PropertyProfile{})

	if len(bundle.Anomalies) != 0 {
		t.Fatalf("expected no anomalies on a clean roof, got %v", types(bundle))
	}
	if bundle.Heatmap != nil || bundle.HasHeatmap() {
		t.Error("heatmap must be absent when nothing fired")
	}
	if bundle.Anomalies == nil || bundle.Legend == nil {
		t.Error("empty bundle should still carry non-nil list and legend")
	}
}

func TestDetect_DarkPatchCoverage(t *testing.T) {
	cfg := heuristics.Default().Anomaly
	img := stripedRoof(120, 120, 115, 140)
	fill(img, image.Rect(50, 50, 60, 60), color.RGBA{50, 50, 50, 255})
	mask := interiorMask(120, 120, 10)

	bundle := NewDetector(cfg).Detect(view(img, mask), models.PropertyProfile{})

	dark, ok := find(bundle, models.AnomalyDarkStreaks)
	if !ok {
		t.Fatalf("expected dark_streaks, got %v", types(bundle))
	}
	coverage := 100.0 / (100 * 100)
	if want := cfg.SeverityBase + coverage*cfg.Multipliers.DarkStreaks; math.Abs(dark.Severity-want) > 1e-9 {
		t.Errorf("severity = %v, want %v", dark.Severity, want)
	}
	if want := cfg.ProbabilityBase + coverage*cfg.ProbabilitySlope; math.Abs(dark.Probability-want) > 1e-9 {
		t.Errorf("probability = %v, want %v", dark.Probability, want)
	}
	if want := cfg.DefaultRoofAreaSqft * coverage * cfg.AreaFactor; math.Abs(dark.CoverageSqft-want) > 1e-9 {
		t.Errorf("coverage sqft = %v, want %v", dark.CoverageSqft, want)
	}
	if dark.Mask == nil || dark.Mask.GrayAt(55, 55).Y != 255 || dark.Mask.GrayAt(20, 20).Y != 0 {
		t.Error("per-anomaly mask should mark exactly the dark patch")
	}
	if bundle.Legend[models.AnomalyDarkStreaks] != dark.Color || dark.Color != "#d7263d" {
		t.Errorf("legend and anomaly color disagree: %q vs %q", bundle.Legend[models.AnomalyDarkStreaks], dark.Color)
	}
	if bundle.Heatmap == nil {
		t.Fatal("heatmap expected when an anomaly fired")
	}
	if bundle.Heatmap.RGBAAt(55, 55) == img.RGBAAt(55, 55) {
		t.Error("heatmap should tint flagged pixels")
	}
	if bundle.Heatmap.RGBAAt(100, 100) != img.RGBAAt(100, 100) {
		t.Error("heatmap should leave unflagged pixels outside the legend untouched")
	}
}

func TestDetect_FlatRoofIsGranuleLoss(t *testing.T) {
	cfg := heuristics.Default().Anomaly
	img := image.NewRGBA(image.Rect(0, 0, 40, 40))
	fill(img, img.Bounds(), color.RGBA{128, 128, 128, 255})
	v := view(img, interiorMask(40, 40, 0))

	tests := []struct {
		name    string
		profile models.PropertyProfile
		area    float64
	}{
		{"default area", models.PropertyProfile{}, cfg.DefaultRoofAreaSqft},
		{"square feet wins", models.PropertyProfile{SquareFeet: 1500, LotSizeSqft: 9000}, 1500},
		{"lot size fallback", models.PropertyProfile{LotSizeSqft: 3000}, 3000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bundle := NewDetector(cfg).Detect(v, tt.profile)
			if got := types(bundle); len(got) != 1 || got[0] != models.AnomalyGranuleLoss {
				t.Fatalf("expected only granule_loss, got %v", got)
			}
			a := bundle.Anomalies[0]
			if a.Severity != 1 {
				t.Errorf("severity should clamp to 1, got %v", a.Severity)
			}
			if a.Probability != cfg.ProbabilityCap {
				t.Errorf("probability should clamp to %v, got %v", cfg.ProbabilityCap, a.Probability)
			}
			if want := tt.area * cfg.AreaFactor; math.Abs(a.CoverageSqft-want) > 1e-9 {
				t.Errorf("coverage sqft = %v, want %v", a.CoverageSqft, want)
			}
		})
	}
}

func TestDetect_MossExcludedFromGranuleLoss(t *testing.T) {
	img := stripedRoof(100, 100, 115, 140)
	fill(img, image.Rect(30, 30, 50, 50), color.RGBA{60, 100, 50, 255})

	bundle := NewDetector(heuristics.Default().Anomaly).Detect(view(img, interiorMask(100, 100, 5)), models.PropertyProfile{})

	moss, ok := find(bundle, models.AnomalyMossGrowth)
	if !ok {
		t.Fatalf("expected moss_growth, got %v", types(bundle))
	}
	if moss.Mask.GrayAt(40, 40).Y != 255 {
		t.Error("moss mask should cover the green patch")
	}
	if granule, ok := find(bundle, models.AnomalyGranuleLoss); ok && granule.Mask.GrayAt(40, 40).Y != 0 {
		t.Error("moss pixels must not be counted as granule loss")
	}
}

func TestDetect_OrderAndBounds(t *testing.T) {
	img := stripedRoof(96, 96, 115, 140)
	fill(img, image.Rect(10, 10, 30, 30), color.RGBA{40, 40, 40, 255})
	fill(img, image.Rect(40, 40, 60, 60), color.RGBA{60, 100, 50, 255})
	fill(img, image.Rect(65, 65, 85, 85), color.RGBA{230, 230, 230, 255})

	bundle := NewDetector(heuristics.Default().Anomaly).Detect(view(img, interiorMask(96, 96, 4)), models.PropertyProfile{})

	rank := map[models.AnomalyType]int{
		models.AnomalyDarkStreaks:   0,
		models.AnomalyMossGrowth:    1,
		models.AnomalyGranuleLoss:   2,
		models.AnomalyDiscoloration: 3,
	}
	last := -1
	for _, a := range bundle.Anomalies {
		if rank[a.Type] <= last {
			t.Errorf("anomalies out of order: %v", types(bundle))
		}
		last = rank[a.Type]
		if a.Severity < 0 || a.Severity > 1 || a.Probability < 0 || a.Probability > 1 {
			t.Errorf("%s out of range: severity %v probability %v", a.Type, a.Severity, a.Probability)
		}
	}
	if len(bundle.Anomalies) < 3 {
		t.Errorf("expected dark, moss and discoloration to fire, got %v", types(bundle))
	}
	if len(bundle.Legend) != len(bundle.Anomalies) {
		t.Errorf("legend should list every fired category: %v", bundle.Legend)
	}
}

func TestDetect_EmptyMask(t *testing.T) {
	d := NewDetector(heuristics.Default().Anomaly)
	img := stripedRoof(32, 32, 20, 240)

	bundle := d.Detect(view(img, image.NewGray(img.Bounds())), models.PropertyProfile{})
	if len(bundle.Anomalies) != 0 || bundle.Heatmap != nil {
		t.Errorf("an empty mask flags nothing, got %v", types(bundle))
	}
	if b := d.Baseline(view(img, nil)); b.Pixels != 0 || b.Value != 0 {
		t.Errorf("empty mask baseline should be zero, got %+v", b)
	}
	if got := d.Detect(models.NormalizedRoofView{}, models.PropertyProfile{}); got.Heatmap != nil || len(got.Anomalies) != 0 {
		t.Error("a view without an image yields an empty bundle")
	}
}

func TestDetect_Deterministic(t *testing.T) {
	img := stripedRoof(80, 80, 115, 140)
	fill(img, image.Rect(20, 20, 40, 30), color.RGBA{45, 45, 45, 255})
	v := view(img, interiorMask(80, 80, 4))
	d := NewDetector(heuristics.Default().Anomaly)

	a := d.Detect(v, models.PropertyProfile{SquareFeet: 1800})
	b := d.Detect(v, models.PropertyProfile{SquareFeet: 1800})
	if a.Heatmap == nil || b.Heatmap == nil || !bytes.Equal(a.Heatmap.Pix, b.Heatmap.Pix) {
		t.Error("heatmaps differ between runs")
	}
	if len(a.Anomalies) != len(b.Anomalies) {
		t.Fatal("anomaly lists differ between runs")
	}
	for i := range a.Anomalies {
		if a.Anomalies[i].Severity != b.Anomalies[i].Severity || a.Anomalies[i].Description != b.Anomalies[i].Description {
			t.Errorf("anomaly %d differs: %+v vs %+v", i, a.Anomalies[i], b.Anomalies[i])
		}
	}
}

func TestFacadeScanner(t *testing.T) {
	h := heuristics.Default()
	scanner := NewFacadeScanner(h.StreetView, h.Anomaly)

	dark := image.NewRGBA(image.Rect(0, 0, 60, 60))
	fill(dark, dark.Bounds(), color.RGBA{20, 20, 20, 255})

	tests := []struct {
		name string
		img  *image.RGBA
		want []models.AnomalyType
	}{
		{"busy bright facade", stripedRoof(60, 60, 150, 255), nil},
		{"flat dark facade", dark, []models.AnomalyType{models.AnomalyStreetViewDarkStreaks, models.AnomalyStreetViewMissingShingle}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := scanner.Scan(imaging.ToHSV(tt.img))
			if len(got) != len(tt.want) {
				t.Fatalf("got %d anomalies, want %d", len(got), len(tt.want))
			}
			for i, a := range got {
				if a.Type != tt.want[i] {
					t.Errorf("anomaly %d = %s, want %s", i, a.Type, tt.want[i])
				}
				if a.Severity < 0 || a.Severity > 1 || a.Probability < 0 || a.Probability > 1 {
					t.Errorf("%s out of range", a.Type)
				}
			}
		})
	}
}

func TestFacadeScanner_MiddleBandOnly(t *testing.T) {
	h := heuristics.Default()
	img := stripedRoof(60, 90, 150, 255)
	fill(img, image.Rect(0, 0, 60, 30), color.RGBA{10, 10, 10, 255})

	stats := NewFacadeScanner(h.StreetView, h.Anomaly).Measure(imaging.ToHSV(img))
	if stats.DarkRatio != 0 {
		t.Errorf("dark rows above the middle band must be ignored, got ratio %v", stats.DarkRatio)
	}
}

func TestColorHex(t *testing.T) {
	if got := (Color{R: 0x0a, G: 0xff, B: 0}).Hex(); got != "#0aff00" {
		t.Errorf("Hex() = %q", got)
	}
	for kind, c := range Palette {
		if c.RGBA().A != 255 {
			t.Errorf("%s color must be opaque", kind)
		}
	}
}

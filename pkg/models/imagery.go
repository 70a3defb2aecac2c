package models

import (
	"image"
	"time"
)

// Source tags for imagery that did not come from a configured provider.
const (
	SourceGenerated = "generated"
)

// Quality metric names reported in QualityReport.Metrics.
const (
	MetricBrightness     = "brightness"
	MetricContrast       = "contrast"
	MetricSharpness      = "sharpness"
	MetricShadowRatio    = "shadow_ratio"
	MetricHighlightRatio = "highlight_ratio"
	MetricCloudiness     = "cloudiness"
	MetricRoofVisibility = "roof_visibility"
	MetricWidth          = "width"
	MetricHeight         = "height"
)

// Quality issue tags.
const (
	IssueLowResolution      = "resolution_below_target"
	IssueTooDark            = "too_dark"
	IssueTooBright          = "too_bright"
	IssueLowContrast        = "low_contrast"
	IssueSoftFocus          = "soft_focus"
	IssueHeavyShadows       = "heavy_shadows"
	IssueCloudCover         = "cloud_cover"
	IssuePoorRoofVisibility = "poor_roof_visibility"
	IssueImageryUnavailable = "imagery_unavailable"
)

// QualityReport is the usability assessment of a single image.
type QualityReport struct {
	Score   float64            `json:"score"`
	Metrics map[string]float64 `json:"metrics"`
	Issues  []string           `json:"issues"`
}

// HasIssue reports whether the report carries the given issue tag.
func (q QualityReport) HasIssue(tag string) bool {
	for _, issue := range q.Issues {
		if issue == tag {
			return true
		}
	}
	return false
}

// Resolution is an image size in pixels.
type Resolution struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// ImageAsset is one overhead image fetched from a provider (or synthesized).
type ImageAsset struct {
	Source      string        `json:"source"`
	Zoom        int           `json:"zoom,omitempty"`
	CapturedAt  time.Time     `json:"captured_at"`
	Resolution  Resolution    `json:"resolution"`
	Quality     QualityReport `json:"quality"`
	ContentType string        `json:"content_type"`
	StoragePath string        `json:"storage_path,omitempty"`
	PublicURL   string        `json:"public_url,omitempty"`
	Placeholder bool          `json:"placeholder"`

	Data  []byte      `json:"-"`
	Image image.Image `json:"-"`
}

// BoundingBox is an axis-aligned pixel rectangle.
type BoundingBox struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// BoundingBoxFromRect converts an image rectangle.
func BoundingBoxFromRect(r image.Rectangle) BoundingBox {
	return BoundingBox{X: r.Min.X, Y: r.Min.Y, Width: r.Dx(), Height: r.Dy()}
}

// NormalizedRoofView is the rotation-corrected, cropped, canonical-size roof image and its mask.
type NormalizedRoofView struct {
	RotationDegrees float64     `json:"rotation_degrees"`
	CoverageRatio   float64     `json:"coverage_ratio"`
	SourceBBox      BoundingBox `json:"source_bbox"`
	Resolution      Resolution  `json:"resolution"`
	FallbackMask    bool        `json:"fallback_mask"`
	ImageURL        string      `json:"image_url,omitempty"`
	MaskURL         string      `json:"mask_url,omitempty"`

	Image *image.RGBA `json:"-"`
	Mask  *image.Gray `json:"-"`
}

// LatLon is a WGS84 coordinate.
type LatLon struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// StreetViewAsset is one validated ground-level photograph.
type StreetViewAsset struct {
	Heading        float64   `json:"heading"`
	Pitch          float64   `json:"pitch"`
	FOV            float64   `json:"fov"`
	Source         string    `json:"source"`
	PanoID         string    `json:"pano_id,omitempty"`
	CapturedAt     time.Time `json:"captured_at"`
	Location       LatLon    `json:"location"`
	DistanceM      float64   `json:"distance_m"`
	OcclusionScore float64   `json:"occlusion_score"`
	QualityScore   float64   `json:"quality_score"`
	Anomalies      []Anomaly `json:"anomalies"`
	ContentType    string    `json:"content_type"`
	StoragePath    string    `json:"storage_path,omitempty"`
	PublicURL      string    `json:"public_url,omitempty"`

	Data []byte `json:"-"`
}

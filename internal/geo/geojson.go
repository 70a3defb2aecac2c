package geo

import (
	geojson "github.com/paulmach/go.geojson"

	"go-roof-inspector/pkg/models"
)

// DossierFeatureCollection renders the property point and each street-level
// vantage point, with sight lines from camera to property.
func DossierFeatureCollection(d *models.AnalysisDossier) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()

	property := geojson.NewPointFeature([]float64{d.Location.Lon, d.Location.Lat})
	property.ID = d.ID
	property.SetProperty("kind", "property")
	property.SetProperty("property_id", d.PropertyID)
	property.SetProperty("dossier_id", d.ID)
	property.SetProperty("image_source", d.Image.Source)
	property.SetProperty("image_quality", d.Image.Quality.Score)
	property.SetProperty("placeholder", d.Image.Placeholder)
	property.SetProperty("coverage_ratio", d.NormalizedView.CoverageRatio)
	property.SetProperty("rotation_degrees", d.NormalizedView.RotationDegrees)
	property.SetProperty("anomaly_count", len(d.Anomalies.Anomalies))
	if d.Anomalies.HeatmapURL != "" {
		property.SetProperty("heatmap_url", d.Anomalies.HeatmapURL)
	}
	if d.Image.Zoom > 0 {
		property.SetProperty("zoom", d.Image.Zoom)
		property.SetProperty("meters_per_pixel", MetersPerPixel(d.Location.Lat, d.Image.Zoom))
	}
	if len(d.DegradedStages) > 0 {
		property.SetProperty("degraded_stages", d.DegradedStages)
	}
	fc.AddFeature(property)

	for _, sv := range d.StreetView {
		camera := geojson.NewPointFeature([]float64{sv.Location.Lon, sv.Location.Lat})
		camera.SetProperty("kind", "street_view")
		camera.SetProperty("heading", sv.Heading)
		camera.SetProperty("distance_m", sv.DistanceM)
		camera.SetProperty("quality_score", sv.QualityScore)
		camera.SetProperty("occlusion_score", sv.OcclusionScore)
		if sv.PublicURL != "" {
			camera.SetProperty("image_url", sv.PublicURL)
		}
		fc.AddFeature(camera)

		sight := geojson.NewLineStringFeature([][]float64{
			{sv.Location.Lon, sv.Location.Lat},
			{d.Location.Lon, d.Location.Lat},
		})
		sight.SetProperty("kind", "sight_line")
		sight.SetProperty("heading", sv.Heading)
		sight.SetProperty("bearing_to_property", BearingDegrees(sv.Location.Lat, sv.Location.Lon, d.Location.Lat, d.Location.Lon))
		sight.SetProperty("length_m", sv.DistanceM)
		fc.AddFeature(sight)
	}

	return fc
}

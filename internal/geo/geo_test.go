package geo

import (
	"encoding/json"
	"math"
	"testing"

	"go-roof-inspector/pkg/models"
)

func TestDistanceMeters(t *testing.T) {
	tests := []struct {
		name                   string
		lat1, lon1, lat2, lon2 float64
		want, tolerance        float64
	}{
		{"same point", 39.7392, -104.9903, 39.7392, -104.9903, 0, 1e-6},
		{"one degree of latitude", 0, 0, 1, 0, 111195, 5},
		{"about 30 m north", 39.7392, -104.9903, 39.73947, -104.9903, 30.0, 0.5},
		{"paris to london", 48.8566, 2.3522, 51.5074, -0.1278, 343500, 1500},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DistanceMeters(tt.lat1, tt.lon1, tt.lat2, tt.lon2)
			if math.Abs(got-tt.want) > tt.tolerance {
				t.Errorf("DistanceMeters = %f, want %f ± %f", got, tt.want, tt.tolerance)
			}
		})
	}
}

func TestBearingDegrees(t *testing.T) {
	if b := BearingDegrees(0, 0, 1, 0); math.Abs(b) > 1e-9 {
		t.Errorf("north bearing = %f", b)
	}
	if b := BearingDegrees(0, 0, 0, 1); math.Abs(b-90) > 1e-9 {
		t.Errorf("east bearing = %f", b)
	}
	if b := BearingDegrees(0, 0, -1, 0); math.Abs(b-180) > 1e-9 {
		t.Errorf("south bearing = %f", b)
	}
	if b := BearingDegrees(0, 0, 0, -1); math.Abs(b-270) > 1e-9 {
		t.Errorf("west bearing = %f", b)
	}
}

func TestAngularSeparation(t *testing.T) {
	tests := []struct{ a, b, want float64 }{
		{0, 45, 45},
		{350, 10, 20},
		{0, 180, 180},
		{-90, 270, 0},
		{720, 30, 30},
	}
	for _, tt := range tests {
		if got := AngularSeparation(tt.a, tt.b); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("AngularSeparation(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestLatLonToTile(t *testing.T) {
	p := LatLonToTile(0, 0, 1)
	if x, y := p.Tile(); x != 1 || y != 1 {
		t.Errorf("expected tile (1,1) at origin zoom 1, got (%d,%d)", x, y)
	}
	if ox, oy := p.PixelOffset(256); ox != 0 || oy != 0 {
		t.Errorf("expected zero offset, got (%d,%d)", ox, oy)
	}

	// Known tile for central Berlin at zoom 10.
	if x, y := LatLonToTile(52.52, 13.405, 10).Tile(); x != 550 || y != 335 {
		t.Errorf("expected tile (550,335), got (%d,%d)", x, y)
	}

	if WrapTileX(-1, 3) != 7 || WrapTileX(8, 3) != 0 {
		t.Error("tile columns should wrap around the antimeridian")
	}

	if _, y := LatLonToTile(89.9, 0, 2).Tile(); y != 0 {
		t.Errorf("polar latitudes should clamp into the top row, got %d", y)
	}
	for _, zoom := range []int{0, 1, 18, 20} {
		n := TileCount(zoom)
		if _, y := LatLonToTile(maxMercatorLat, 10, zoom).Tile(); y != 0 {
			t.Errorf("zoom %d: northern limit should be row 0, got %d", zoom, y)
		}
		if _, y := LatLonToTile(-89.9, 10, zoom).Tile(); y != n-1 {
			t.Errorf("zoom %d: southern limit should be row %d, got %d", zoom, n-1, y)
		}
	}
}

func TestDossierFeatureCollection(t *testing.T) {
	d := &models.AnalysisDossier{
		ID:         "dossier-1",
		PropertyID: "prop-1",
		Location:   models.LatLon{Lat: 39.7392, Lon: -104.9903},
		StreetView: []models.StreetViewAsset{
			{Heading: 90, Location: models.LatLon{Lat: 39.7392, Lon: -104.9906}, DistanceM: 25},
		},
	}

	fc := DossierFeatureCollection(d)
	if len(fc.Features) != 3 {
		t.Fatalf("expected property, camera and sight line, got %d features", len(fc.Features))
	}
	if fc.Features[0].Geometry.Point[0] != -104.9903 {
		t.Errorf("geojson coordinates must be lon,lat; got %v", fc.Features[0].Geometry.Point)
	}

	sight := fc.Features[2]
	bearing, ok := sight.Properties["bearing_to_property"].(float64)
	if !ok || math.Abs(bearing-90) > 0.01 {
		t.Errorf("camera west of the property should look east, got bearing %v", sight.Properties["bearing_to_property"])
	}
	if _, ok := fc.Features[0].Properties["meters_per_pixel"]; ok {
		t.Error("meters_per_pixel should be omitted without a zoom")
	}

	d.Image.Zoom = 20
	withZoom := DossierFeatureCollection(d)
	mpp, ok := withZoom.Features[0].Properties["meters_per_pixel"].(float64)
	if !ok || math.Abs(mpp-MetersPerPixel(d.Location.Lat, 20)) > 1e-12 {
		t.Errorf("meters_per_pixel = %v", withZoom.Features[0].Properties["meters_per_pixel"])
	}

	data, err := fc.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON failed: %v", err)
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if decoded["type"] != "FeatureCollection" {
		t.Errorf("unexpected type %v", decoded["type"])
	}
}

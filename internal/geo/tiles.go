package geo

import "math"

// maxMercatorLat is the latitude limit of the Web Mercator projection.
const maxMercatorLat = 85.05112878

// TilePoint is a fractional position in slippy-map tile space.
type TilePoint struct {
	X, Y float64
	Zoom int
}

// LatLonToTile projects a coordinate into fractional tile coordinates at zoom.
func LatLonToTile(lat, lon float64, zoom int) TilePoint {
	lat = math.Max(-maxMercatorLat, math.Min(maxMercatorLat, lat))
	n := math.Exp2(float64(zoom))
	x := (lon + 180) / 360 * n
	latRad := lat * math.Pi / 180
	y := (1 - math.Log(math.Tan(latRad)+1/math.Cos(latRad))/math.Pi) / 2 * n
	// rounding at the clamped latitude can land just outside the grid
	y = math.Max(0, math.Min(math.Nextafter(n, 0), y))
	return TilePoint{X: x, Y: y, Zoom: zoom}
}

// Tile returns the integer tile indices containing the point.
func (p TilePoint) Tile() (int, int) {
	return int(math.Floor(p.X)), int(math.Floor(p.Y))
}

// PixelOffset returns the point's pixel position inside its tile.
func (p TilePoint) PixelOffset(tileSize int) (int, int) {
	tx, ty := p.Tile()
	return int((p.X - float64(tx)) * float64(tileSize)), int((p.Y - float64(ty)) * float64(tileSize))
}

// WrapTileX wraps a column index around the antimeridian.
func WrapTileX(x, zoom int) int {
	n := 1 << uint(zoom)
	x %= n
	if x < 0 {
		x += n
	}
	return x
}

// TileCount returns the number of tiles per axis at zoom.
func TileCount(zoom int) int {
	return 1 << uint(zoom)
}

// MetersPerPixel returns the ground resolution at lat for 256-pixel tiles.
func MetersPerPixel(lat float64, zoom int) float64 {
	return 2 * math.Pi * EarthRadiusMeters * math.Cos(lat*math.Pi/180) / (256 * math.Exp2(float64(zoom)))
}

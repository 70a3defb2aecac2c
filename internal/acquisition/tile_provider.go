package acquisition

import (
	"context"
	"fmt"
	"image"
	"image/draw"
	"net/url"
	"strconv"

	"go-roof-inspector/internal/geo"
	"go-roof-inspector/internal/imaging"
	"go-roof-inspector/internal/storage"
)

// mosaicSpan is the number of tiles per side fetched around the target.
const mosaicSpan = 3

// TileProvider stitches XYZ tiles around the target and crops a square
// window centred on it. The template may use {z}, {x}, {y} and {key}.
type TileProvider struct {
	cfg     ProviderConfig
	fetcher storage.Fetcher
}

// NewTileProvider creates a tile mosaic provider.
func NewTileProvider(cfg ProviderConfig, fetcher storage.Fetcher) *TileProvider {
	if cfg.TileSize <= 0 {
		cfg.TileSize = 256
	}
	if cfg.OutputSize <= 0 {
		cfg.OutputSize = 640
	}
	return &TileProvider{cfg: cfg, fetcher: fetcher}
}

func (p *TileProvider) Name() string { return p.cfg.Name }

func (p *TileProvider) tileURL(x, y, zoom int) string {
	return expand(p.cfg.URLTemplate, map[string]string{
		"z":   strconv.Itoa(zoom),
		"x":   strconv.Itoa(x),
		"y":   strconv.Itoa(y),
		"key": url.QueryEscape(p.cfg.APIKey),
	})
}

// Fetch returns a PNG of the cropped mosaic. Any missing tile fails the
// whole candidate.
func (p *TileProvider) Fetch(ctx context.Context, lat, lon float64, zoom int) ([]byte, error) {
	ts := p.cfg.TileSize
	point := geo.LatLonToTile(lat, lon, zoom)
	cx, cy := point.Tile()
	ox, oy := point.PixelOffset(ts)
	n := geo.TileCount(zoom)

	mosaic := image.NewRGBA(image.Rect(0, 0, ts*mosaicSpan, ts*mosaicSpan))
	half := mosaicSpan / 2
	for j := 0; j < mosaicSpan; j++ {
		ty := cy + j - half
		if ty < 0 || ty >= n {
			continue
		}
		for i := 0; i < mosaicSpan; i++ {
			tx := geo.WrapTileX(cx+i-half, zoom)
			data, err := p.fetcher.Fetch(ctx, p.tileURL(tx, ty, zoom), p.cfg.Timeout)
			if err != nil {
				return nil, fmt.Errorf("tile %d/%d/%d: %w", zoom, tx, ty, err)
			}
			tile, _, err := imaging.Decode(data)
			if err != nil {
				return nil, fmt.Errorf("tile %d/%d/%d: %w", zoom, tx, ty, err)
			}
			dst := image.Rect(i*ts, j*ts, (i+1)*ts, (j+1)*ts)
			draw.Draw(mosaic, dst, tile, tile.Bounds().Min, draw.Src)
		}
	}

	size := min(p.cfg.OutputSize, ts*mosaicSpan)
	centreX, centreY := half*ts+ox, half*ts+oy
	x0 := clampInt(centreX-size/2, 0, ts*mosaicSpan-size)
	y0 := clampInt(centreY-size/2, 0, ts*mosaicSpan-size)
	window := mosaic.SubImage(image.Rect(x0, y0, x0+size, y0+size))

	return imaging.EncodePNG(window)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Package acquisition fetches overhead imagery from an ordered list of
// providers and selects the best candidate.
package acquisition

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go-roof-inspector/internal/cache"
	"go-roof-inspector/internal/logger"
	"go-roof-inspector/internal/storage"
)

// ImageryProvider fetches an encoded overhead image centred on a coordinate.
type ImageryProvider interface {
	Name() string
	Fetch(ctx context.Context, lat, lon float64, zoom int) ([]byte, error)
}

// ProviderConfig describes one HTTP imagery source.
type ProviderConfig struct {
	Name        string
	URLTemplate string
	APIKey      string
	TileSize    int
	OutputSize  int
	Timeout     time.Duration
}

func expand(template string, values map[string]string) string {
	pairs := make([]string, 0, len(values)*2)
	for k, v := range values {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(template)
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}

// StaticMapProvider requests a single pre-rendered image from a static-map API.
// The template may use {lat}, {lon}, {zoom}, {size}, {width}, {height} and {key}.
type StaticMapProvider struct {
	cfg     ProviderConfig
	fetcher storage.Fetcher
}

// NewStaticMapProvider creates a static-map provider.
func NewStaticMapProvider(cfg ProviderConfig, fetcher storage.Fetcher) *StaticMapProvider {
	if cfg.OutputSize <= 0 {
		cfg.OutputSize = 640
	}
	return &StaticMapProvider{cfg: cfg, fetcher: fetcher}
}

func (p *StaticMapProvider) Name() string { return p.cfg.Name }

func (p *StaticMapProvider) Fetch(ctx context.Context, lat, lon float64, zoom int) ([]byte, error) {
	size := strconv.Itoa(p.cfg.OutputSize)
	u := expand(p.cfg.URLTemplate, map[string]string{
		"lat":    formatCoord(lat),
		"lon":    formatCoord(lon),
		"zoom":   strconv.Itoa(zoom),
		"size":   size + "x" + size,
		"width":  size,
		"height": size,
		"key":    url.QueryEscape(p.cfg.APIKey),
	})
	return p.fetcher.Fetch(ctx, u, p.cfg.Timeout)
}

// CachedProvider serves repeated requests from an explicit cache collaborator.
type CachedProvider struct {
	next  ImageryProvider
	cache cache.Cache
	ttl   time.Duration
}

// NewCachedProvider wraps next with c. Cache failures fall through to next.
func NewCachedProvider(next ImageryProvider, c cache.Cache, ttl time.Duration) *CachedProvider {
	return &CachedProvider{next: next, cache: c, ttl: ttl}
}

func (p *CachedProvider) Name() string { return p.next.Name() }

func (p *CachedProvider) Fetch(ctx context.Context, lat, lon float64, zoom int) ([]byte, error) {
	key := cache.ImageryKey(p.next.Name(), lat, lon, zoom)
	if data, ok, err := p.cache.Get(ctx, key); err != nil {
		logger.WithFields(map[string]interface{}{"provider": p.next.Name(), "zoom": zoom}).
			WithError(err).Debug("Imagery cache read failed")
	} else if ok {
		return data, nil
	}

	data, err := p.next.Fetch(ctx, lat, lon, zoom)
	if err != nil {
		return nil, err
	}
	if err := p.cache.Set(ctx, key, data, p.ttl); err != nil {
		logger.WithFields(map[string]interface{}{"provider": p.next.Name(), "zoom": zoom}).
			WithError(err).Debug("Imagery cache write failed")
	}
	return data, nil
}

// String describes the provider for logs.
func (p ProviderConfig) String() string {
	return fmt.Sprintf("%s(%s)", p.Name, p.URLTemplate)
}

// Package streetview collects validated ground-level photographs of a property
// from a street-level imagery provider.
package streetview

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go-roof-inspector/internal/cache"
	apperrors "go-roof-inspector/internal/errors"
	"go-roof-inspector/internal/logger"
	"go-roof-inspector/internal/storage"
	"go-roof-inspector/pkg/models"
)

// StatusOK is the metadata status of a resolvable vantage point.
const StatusOK = "OK"

// Metadata describes the provider's nearest vantage point for a request.
type Metadata struct {
	Status   string        `json:"status"`
	Location models.LatLon `json:"location"`
	PanoID   string        `json:"pano_id,omitempty"`
	Date     string        `json:"date,omitempty"`
}

// CapturedAt parses the provider's "YYYY-MM" or "YYYY-MM-DD" date.
func (m Metadata) CapturedAt() (time.Time, bool) {
	for _, layout := range []string{"2006-01-02", "2006-01"} {
		if t, err := time.Parse(layout, m.Date); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// Provider is the street-level imagery capability.
type Provider interface {
	Name() string
	Metadata(ctx context.Context, lat, lon, heading, pitch, fov float64) (*Metadata, error)
	Image(ctx context.Context, lat, lon, heading, pitch, fov float64, size int) ([]byte, error)
}

// HTTPConfig configures a Google-style street-level HTTP API. Templates may use
// {lat}, {lon}, {heading}, {pitch}, {fov}, {size} and {key}.
type HTTPConfig struct {
	Name        string
	MetadataURL string
	ImageURL    string
	APIKey      string
	Timeout     time.Duration
}

// HTTPProvider talks to a street-level API over a shared fetcher.
type HTTPProvider struct {
	cfg     HTTPConfig
	fetcher storage.Fetcher
}

// NewHTTPProvider creates an HTTP street-level provider.
func NewHTTPProvider(cfg HTTPConfig, fetcher storage.Fetcher) *HTTPProvider {
	if cfg.Name == "" {
		cfg.Name = "streetview"
	}
	return &HTTPProvider{cfg: cfg, fetcher: fetcher}
}

func (p *HTTPProvider) Name() string { return p.cfg.Name }

// wireMetadata is the provider's JSON layout.
type wireMetadata struct {
	Status   string `json:"status"`
	PanoID   string `json:"pano_id"`
	Date     string `json:"date"`
	Location struct {
		Lat float64 `json:"lat"`
		Lng float64 `json:"lng"`
	} `json:"location"`
}

func (p *HTTPProvider) Metadata(ctx context.Context, lat, lon, heading, pitch, fov float64) (*Metadata, error) {
	body, err := p.fetcher.Fetch(ctx, p.url(p.cfg.MetadataURL, lat, lon, heading, pitch, fov, 0), p.cfg.Timeout)
	if err != nil {
		return nil, err
	}
	var wire wireMetadata
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, apperrors.NewProviderUnavailableError("malformed street view metadata", err)
	}
	return &Metadata{
		Status:   wire.Status,
		Location: models.LatLon{Lat: wire.Location.Lat, Lon: wire.Location.Lng},
		PanoID:   wire.PanoID,
		Date:     wire.Date,
	}, nil
}

func (p *HTTPProvider) Image(ctx context.Context, lat, lon, heading, pitch, fov float64, size int) ([]byte, error) {
	return p.fetcher.Fetch(ctx, p.url(p.cfg.ImageURL, lat, lon, heading, pitch, fov, size), p.cfg.Timeout)
}

func (p *HTTPProvider) url(template string, lat, lon, heading, pitch, fov float64, size int) string {
	f := func(v float64, prec int) string { return strconv.FormatFloat(v, 'f', prec, 64) }
	return strings.NewReplacer(
		"{lat}", f(lat, 6),
		"{lon}", f(lon, 6),
		"{heading}", f(heading, 1),
		"{pitch}", f(pitch, 1),
		"{fov}", f(fov, 1),
		"{size}", strconv.Itoa(size)+"x"+strconv.Itoa(size),
		"{key}", url.QueryEscape(p.cfg.APIKey),
	).Replace(template)
}

// CachedProvider memoizes metadata and images in an explicit cache.
type CachedProvider struct {
	next  Provider
	cache cache.Cache
	ttl   time.Duration
}

// NewCachedProvider wraps next with c. Cache failures fall through to next.
func NewCachedProvider(next Provider, c cache.Cache, ttl time.Duration) *CachedProvider {
	return &CachedProvider{next: next, cache: c, ttl: ttl}
}

func (p *CachedProvider) Name() string { return p.next.Name() }

func (p *CachedProvider) Metadata(ctx context.Context, lat, lon, heading, pitch, fov float64) (*Metadata, error) {
	key := cache.StreetViewKey("metadata", lat, lon, heading)
	if raw, ok := p.get(ctx, key); ok {
		var m Metadata
		if err := json.Unmarshal(raw, &m); err == nil {
			return &m, nil
		}
	}

	m, err := p.next.Metadata(ctx, lat, lon, heading, pitch, fov)
	if err != nil {
		return nil, err
	}
	if raw, err := json.Marshal(m); err == nil {
		p.set(ctx, key, raw)
	}
	return m, nil
}

func (p *CachedProvider) Image(ctx context.Context, lat, lon, heading, pitch, fov float64, size int) ([]byte, error) {
	key := cache.StreetViewKey("image", lat, lon, heading)
	if data, ok := p.get(ctx, key); ok {
		return data, nil
	}
	data, err := p.next.Image(ctx, lat, lon, heading, pitch, fov, size)
	if err != nil {
		return nil, err
	}
	p.set(ctx, key, data)
	return data, nil
}

func (p *CachedProvider) get(ctx context.Context, key string) ([]byte, bool) {
	data, ok, err := p.cache.Get(ctx, key)
	if err != nil {
		logger.WithField("cache_key", key).WithError(err).Debug("Street view cache read failed")
		return nil, false
	}
	return data, ok
}

func (p *CachedProvider) set(ctx context.Context, key string, data []byte) {
	if err := p.cache.Set(ctx, key, data, p.ttl); err != nil {
		logger.WithField("cache_key", key).WithError(err).Debug("Street view cache write failed")
	}
}

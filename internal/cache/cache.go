// Package cache stores provider payloads keyed by request so repeated
// analyses of the same property do not re-fetch imagery.
package cache

import (
	"context"
	"fmt"
	"math"
	"time"
)

// Cache is a byte store with per-entry expiry.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Close() error
}

// gridDegrees snaps coordinates to roughly one metre so float noise in
// requests does not defeat the cache.
const gridDegrees = 1e-5

func roundToGrid(coord float64) float64 {
	return math.Round(coord/gridDegrees) * gridDegrees
}

// ImageryKey names an overhead fetch.
func ImageryKey(provider string, lat, lon float64, zoom int) string {
	return fmt.Sprintf("roof:imagery:%s:%.5f:%.5f:%d", provider, roundToGrid(lat), roundToGrid(lon), zoom)
}

// StreetViewKey names a street-level fetch.
func StreetViewKey(kind string, lat, lon float64, heading float64) string {
	return fmt.Sprintf("roof:streetview:%s:%.5f:%.5f:%.1f", kind, roundToGrid(lat), roundToGrid(lon), heading)
}

// Noop never stores anything.
type Noop struct{}

func (Noop) Get(context.Context, string) ([]byte, bool, error)        { return nil, false, nil }
func (Noop) Set(context.Context, string, []byte, time.Duration) error { return nil }
func (Noop) Close() error                                             { return nil }

package factory

import (
	"context"
	"fmt"
	"time"

	"go-roof-inspector/internal/acquisition"
	"go-roof-inspector/internal/cache"
	"go-roof-inspector/internal/classifier"
	"go-roof-inspector/internal/config"
	"go-roof-inspector/internal/storage"
	"go-roof-inspector/internal/streetview"
)

// StorageType represents different types of artifact storage backends
type StorageType string

const (
	// MemoryStorage keeps artifacts in process memory
	MemoryStorage StorageType = "memory"
	// AzureStorage for Azure blob storage
	AzureStorage StorageType = "azure"
	// LocalStorage for local file system
	LocalStorage StorageType = "local"
)

// CacheType represents different provider response cache backends
type CacheType string

const (
	// NoCache disables response caching
	NoCache CacheType = "none"
	// MemoryCache keeps responses in process memory
	MemoryCache CacheType = "memory"
	// RedisCache shares responses through Redis
	RedisCache CacheType = "redis"
)

// ProviderFactory creates imagery providers
type ProviderFactory interface {
	CreateImageryProviders(cfgs []config.ProviderConfig) ([]acquisition.ImageryProvider, error)
	CreateStreetViewProvider(cfg config.StreetViewConfig) (streetview.Provider, error)
}

// StorageFactory creates storage implementations
type StorageFactory interface {
	CreateStorage(storageType StorageType, cfg config.StorageConfig) (storage.BlobStorage, error)
}

// CacheFactory creates cache implementations
type CacheFactory interface {
	CreateCache(ctx context.Context, cacheType CacheType, cfg config.CacheConfig) (cache.Cache, error)
}

// providerFactory implements ProviderFactory
type providerFactory struct {
	fetcher      storage.Fetcher
	cache        cache.Cache
	ttl          time.Duration
	fetchTimeout time.Duration
	outputSize   int
}

// NewProviderFactory creates a provider factory. A nil cache disables response caching.
func NewProviderFactory(fetcher storage.Fetcher, c cache.Cache, ttl, fetchTimeout time.Duration, outputSize int) ProviderFactory {
	return &providerFactory{
		fetcher:      fetcher,
		cache:        c,
		ttl:          ttl,
		fetchTimeout: fetchTimeout,
		outputSize:   outputSize,
	}
}

// CreateImageryProviders builds the ordered provider list
func (f *providerFactory) CreateImageryProviders(cfgs []config.ProviderConfig) ([]acquisition.ImageryProvider, error) {
	providers := make([]acquisition.ImageryProvider, 0, len(cfgs))
	for _, pc := range cfgs {
		cfg := acquisition.ProviderConfig{
			Name:        pc.Name,
			URLTemplate: pc.URLTemplate,
			APIKey:      pc.APIKey,
			TileSize:    pc.TileSize,
			OutputSize:  f.outputSize,
			Timeout:     f.fetchTimeout,
		}

		var p acquisition.ImageryProvider
		switch pc.Kind {
		case config.KindTile:
			p = acquisition.NewTileProvider(cfg, f.fetcher)
		case config.KindStatic:
			p = acquisition.NewStaticMapProvider(cfg, f.fetcher)
		default:
			return nil, fmt.Errorf("unsupported provider kind %q for %s", pc.Kind, pc.Name)
		}

		if f.cache != nil {
			p = acquisition.NewCachedProvider(p, f.cache, f.ttl)
		}
		providers = append(providers, p)
	}
	return providers, nil
}

// CreateStreetViewProvider returns nil when street view is disabled
func (f *providerFactory) CreateStreetViewProvider(cfg config.StreetViewConfig) (streetview.Provider, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	if cfg.MetadataURL == "" || cfg.ImageURL == "" {
		return nil, fmt.Errorf("street view requires metadata and image URLs")
	}

	var p streetview.Provider = streetview.NewHTTPProvider(streetview.HTTPConfig{
		MetadataURL: cfg.MetadataURL,
		ImageURL:    cfg.ImageURL,
		APIKey:      cfg.APIKey,
		Timeout:     cfg.FetchTimeout,
	}, f.fetcher)

	if f.cache != nil {
		p = streetview.NewCachedProvider(p, f.cache, f.ttl)
	}
	return p, nil
}

// storageFactory implements StorageFactory
type storageFactory struct{}

// NewStorageFactory creates a new storage factory
func NewStorageFactory() StorageFactory {
	return &storageFactory{}
}

// CreateStorage creates a storage implementation based on the specified type
func (f *storageFactory) CreateStorage(storageType StorageType, cfg config.StorageConfig) (storage.BlobStorage, error) {
	switch storageType {
	case MemoryStorage:
		return storage.NewMemoryStorage(cfg.PublicBaseURL), nil
	case LocalStorage:
		return storage.NewLocalStorage(cfg.LocalRoot, cfg.PublicBaseURL)
	case AzureStorage:
		if cfg.AzureAccount == "" || cfg.AzureKey == "" || cfg.AzureContainer == "" {
			return nil, fmt.Errorf("azure storage requires account, key and container")
		}
		return storage.NewAzureStorage(cfg.AzureAccount, cfg.AzureKey, cfg.AzureContainer)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", storageType)
	}
}

// cacheFactory implements CacheFactory
type cacheFactory struct {
	now func() time.Time
}

// NewCacheFactory creates a cache factory; now drives memory cache expiry.
func NewCacheFactory(now func() time.Time) CacheFactory {
	if now == nil {
		now = time.Now
	}
	return &cacheFactory{now: now}
}

// CreateCache returns nil for NoCache
func (f *cacheFactory) CreateCache(ctx context.Context, cacheType CacheType, cfg config.CacheConfig) (cache.Cache, error) {
	switch cacheType {
	case NoCache, "":
		return nil, nil
	case MemoryCache:
		return cache.NewMemoryCache(f.now), nil
	case RedisCache:
		rc, err := cache.NewRedisCache(ctx, cache.RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return nil, err
		}
		return rc, nil
	default:
		return nil, fmt.Errorf("unsupported cache type: %s", cacheType)
	}
}

// NewClassifier returns the HTTP classifier, or the no-op one when no endpoint is set.
func NewClassifier(cfg config.ClassifierConfig) classifier.Classifier {
	if cfg.Endpoint == "" {
		return classifier.Noop{}
	}
	return classifier.NewHTTPClassifier(cfg.Endpoint, cfg.APIKey, cfg.Timeout)
}

// ComponentFactory combines all factories
type ComponentFactory struct {
	StorageFactory StorageFactory
	CacheFactory   CacheFactory
}

// NewComponentFactory creates a new component factory
func NewComponentFactory(now func() time.Time) *ComponentFactory {
	return &ComponentFactory{
		StorageFactory: NewStorageFactory(),
		CacheFactory:   NewCacheFactory(now),
	}
}

// Providers builds a provider factory bound to a fetcher and optional cache.
func (f *ComponentFactory) Providers(cfg *config.Config, fetcher storage.Fetcher, c cache.Cache) ProviderFactory {
	return NewProviderFactory(fetcher, c, cfg.Cache.TTL, cfg.Imagery.FetchTimeout, cfg.Heuristics.Acquisition.PlaceholderSize)
}

package factory

import (
	"context"
	"testing"
	"time"

	"go-roof-inspector/internal/acquisition"
	"go-roof-inspector/internal/cache"
	"go-roof-inspector/internal/classifier"
	"go-roof-inspector/internal/config"
	"go-roof-inspector/internal/storage"
	"go-roof-inspector/internal/streetview"
)

var providerConfigs = []config.ProviderConfig{
	{Name: "tiles", Kind: config.KindTile, URLTemplate: "https://t.example.com/{z}/{x}/{y}", TileSize: 256},
	{Name: "static", Kind: config.KindStatic, URLTemplate: "https://s.example.com/?c={lat},{lon}&z={zoom}"},
}

func TestCreateImageryProviders(t *testing.T) {
	fetcher := storage.NewHTTPFetcher("")

	t.Run("uncached", func(t *testing.T) {
		f := NewProviderFactory(fetcher, nil, time.Hour, 5*time.Second, 640)
		providers, err := f.CreateImageryProviders(providerConfigs)
		if err != nil {
			t.Fatalf("CreateImageryProviders() error = %v", err)
		}
		if len(providers) != 2 {
			t.Fatalf("got %d providers, want 2", len(providers))
		}
		if _, ok := providers[0].(*acquisition.TileProvider); !ok {
			t.Errorf("providers[0] is %T, want *acquisition.TileProvider", providers[0])
		}
		if _, ok := providers[1].(*acquisition.StaticMapProvider); !ok {
			t.Errorf("providers[1] is %T, want *acquisition.StaticMapProvider", providers[1])
		}
		if providers[0].Name() != "tiles" || providers[1].Name() != "static" {
			t.Errorf("names = %s, %s", providers[0].Name(), providers[1].Name())
		}
	})

	t.Run("cached", func(t *testing.T) {
		f := NewProviderFactory(fetcher, cache.NewMemoryCache(time.Now), time.Hour, 5*time.Second, 640)
		providers, err := f.CreateImageryProviders(providerConfigs)
		if err != nil {
			t.Fatalf("CreateImageryProviders() error = %v", err)
		}
		for i, p := range providers {
			if _, ok := p.(*acquisition.CachedProvider); !ok {
				t.Errorf("providers[%d] is %T, want *acquisition.CachedProvider", i, p)
			}
		}
		if providers[1].Name() != "static" {
			t.Errorf("cached provider name = %s, want static", providers[1].Name())
		}
	})

	t.Run("unknown kind", func(t *testing.T) {
		f := NewProviderFactory(fetcher, nil, time.Hour, 5*time.Second, 640)
		_, err := f.CreateImageryProviders([]config.ProviderConfig{{Name: "wms", Kind: "wms"}})
		if err == nil {
			t.Fatal("expected error for unknown provider kind")
		}
	})
}

func TestCreateStreetViewProvider(t *testing.T) {
	fetcher := storage.NewHTTPFetcher("")
	enabled := config.StreetViewConfig{
		Enabled:      true,
		MetadataURL:  "https://sv.example.com/metadata",
		ImageURL:     "https://sv.example.com/image",
		FetchTimeout: time.Second,
	}

	tests := []struct {
		name    string
		cache   cache.Cache
		cfg     config.StreetViewConfig
		wantNil bool
		wantErr bool
		check   func(p streetview.Provider) bool
	}{
		{name: "disabled", cfg: config.StreetViewConfig{}, wantNil: true},
		{name: "missing urls", cfg: config.StreetViewConfig{Enabled: true}, wantErr: true},
		{name: "http", cfg: enabled, check: func(p streetview.Provider) bool {
			_, ok := p.(*streetview.HTTPProvider)
			return ok
		}},
		{name: "cached", cache: cache.NewMemoryCache(time.Now), cfg: enabled, check: func(p streetview.Provider) bool {
			_, ok := p.(*streetview.CachedProvider)
			return ok
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewProviderFactory(fetcher, tt.cache, time.Hour, time.Second, 640)
			p, err := f.CreateStreetViewProvider(tt.cfg)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("CreateStreetViewProvider() error = %v", err)
			}
			if tt.wantNil {
				if p != nil {
					t.Fatalf("provider = %T, want nil", p)
				}
				return
			}
			if !tt.check(p) {
				t.Errorf("unexpected provider type %T", p)
			}
		})
	}
}

func TestCreateStorage(t *testing.T) {
	f := NewStorageFactory()

	tests := []struct {
		name        string
		storageType StorageType
		cfg         config.StorageConfig
		wantErr     bool
	}{
		{"memory", MemoryStorage, config.StorageConfig{}, false},
		{"local", LocalStorage, config.StorageConfig{LocalRoot: t.TempDir()}, false},
		{"local without root", LocalStorage, config.StorageConfig{}, true},
		{"azure without credentials", AzureStorage, config.StorageConfig{AzureAccount: "acct"}, true},
		{"unsupported", StorageType("s3"), config.StorageConfig{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := f.CreateStorage(tt.storageType, tt.cfg)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("CreateStorage() error = %v", err)
			}
			defer s.Close()

			ctx := context.Background()
			if _, err := s.Save(ctx, []byte("x"), "dossiers/a/b.txt", "text/plain"); err != nil {
				t.Fatalf("Save() error = %v", err)
			}
			data, err := s.Load(ctx, "dossiers/a/b.txt")
			if err != nil || string(data) != "x" {
				t.Fatalf("Load() = %q, %v", data, err)
			}
		})
	}
}

func TestCreateCache(t *testing.T) {
	f := NewCacheFactory(nil)
	ctx := context.Background()

	c, err := f.CreateCache(ctx, NoCache, config.CacheConfig{})
	if err != nil || c != nil {
		t.Fatalf("NoCache = %v, %v; want nil, nil", c, err)
	}

	c, err = f.CreateCache(ctx, MemoryCache, config.CacheConfig{})
	if err != nil {
		t.Fatalf("MemoryCache error = %v", err)
	}
	if _, ok := c.(*cache.MemoryCache); !ok {
		t.Errorf("MemoryCache is %T", c)
	}

	if _, err := f.CreateCache(ctx, CacheType("memcached"), config.CacheConfig{}); err == nil {
		t.Error("expected error for unsupported cache type")
	}
}

func TestNewClassifier(t *testing.T) {
	if _, ok := NewClassifier(config.ClassifierConfig{}).(classifier.Noop); !ok {
		t.Error("empty endpoint should yield the no-op classifier")
	}
	c := NewClassifier(config.ClassifierConfig{Endpoint: "https://cls.example.com/v1", Timeout: time.Second})
	if _, ok := c.(*classifier.HTTPClassifier); !ok {
		t.Errorf("classifier is %T, want *classifier.HTTPClassifier", c)
	}
}

// Package config loads service and CLI settings from an optional YAML file
// with ROOF_* environment overrides.
package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"go-roof-inspector/pkg/heuristics"
	"go-roof-inspector/pkg/validation"
)

// EnvPrefix is prepended to every environment override, e.g. ROOF_SERVER_PORT.
const EnvPrefix = "ROOF"

// ConfigFileEnv names the variable that points at a YAML config file.
const ConfigFileEnv = "ROOF_CONFIG"

// Provider kinds.
const (
	KindTile   = "tile"
	KindStatic = "static"
)

// Config is the complete runtime configuration.
type Config struct {
	LogLevel   string                `mapstructure:"log_level"`
	Server     ServerConfig          `mapstructure:"server"`
	Imagery    ImageryConfig         `mapstructure:"imagery"`
	StreetView StreetViewConfig      `mapstructure:"streetview"`
	RateLimit  RateLimitConfig       `mapstructure:"rate_limit"`
	Storage    StorageConfig         `mapstructure:"storage"`
	Cache      CacheConfig           `mapstructure:"cache"`
	Classifier ClassifierConfig      `mapstructure:"classifier"`
	Heuristics heuristics.Heuristics `mapstructure:"heuristics"`
}

type ServerConfig struct {
	Host               string        `mapstructure:"host"`
	Port               string        `mapstructure:"port"`
	RequestTimeout     time.Duration `mapstructure:"request_timeout"`
	AnalysisTimeout    time.Duration `mapstructure:"analysis_timeout"`
	MaxRequestBodySize int64         `mapstructure:"max_request_body_size"`
	// ClientRequestsPerMinute caps POST /v1/dossiers per client IP; 0 disables it.
	ClientRequestsPerMinute int `mapstructure:"client_requests_per_minute"`
}

// ProviderConfig describes one overhead imagery source.
type ProviderConfig struct {
	Name        string `mapstructure:"name"`
	Kind        string `mapstructure:"kind"`
	URLTemplate string `mapstructure:"url_template"`
	APIKey      string `mapstructure:"api_key"`
	TileSize    int    `mapstructure:"tile_size"`
}

type ImageryConfig struct {
	Providers    []ProviderConfig `mapstructure:"providers"`
	ZoomLevels   []int            `mapstructure:"zoom_levels"`
	FetchTimeout time.Duration    `mapstructure:"fetch_timeout"`
	UserAgent    string           `mapstructure:"user_agent"`
}

type StreetViewConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	MetadataURL  string        `mapstructure:"metadata_url"`
	ImageURL     string        `mapstructure:"image_url"`
	APIKey       string        `mapstructure:"api_key"`
	ImageSize    int           `mapstructure:"image_size"`
	FetchTimeout time.Duration `mapstructure:"fetch_timeout"`
}

// RateLimitConfig bounds outbound provider requests across all callers.
type RateLimitConfig struct {
	Permits int           `mapstructure:"permits"`
	Window  time.Duration `mapstructure:"window"`
	Workers int           `mapstructure:"workers"`
}

type StorageConfig struct {
	Backend        string `mapstructure:"backend"`
	LocalRoot      string `mapstructure:"local_root"`
	PublicBaseURL  string `mapstructure:"public_base_url"`
	AzureAccount   string `mapstructure:"azure_account"`
	AzureKey       string `mapstructure:"azure_key"`
	AzureContainer string `mapstructure:"azure_container"`
}

type CacheConfig struct {
	Backend       string        `mapstructure:"backend"`
	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db"`
	TTL           time.Duration `mapstructure:"ttl"`
}

// ClassifierConfig points at the roof condition classifier; an empty endpoint
// disables classification.
type ClassifierConfig struct {
	Endpoint string        `mapstructure:"endpoint"`
	APIKey   string        `mapstructure:"api_key"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// ServerAddress joins host and port for http.Server.
func (c *Config) ServerAddress() string {
	host := strings.TrimSpace(c.Server.Host)
	port := strings.TrimSpace(c.Server.Port)
	return net.JoinHostPort(host, port)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.request_timeout", 60*time.Second)
	v.SetDefault("server.analysis_timeout", 45*time.Second)
	v.SetDefault("server.max_request_body_size", 1<<20)
	v.SetDefault("server.client_requests_per_minute", 30)

	v.SetDefault("imagery.fetch_timeout", 15*time.Second)
	v.SetDefault("imagery.user_agent", "go-roof-inspector/1.0")

	v.SetDefault("streetview.enabled", false)
	v.SetDefault("streetview.metadata_url", "")
	v.SetDefault("streetview.image_url", "")
	v.SetDefault("streetview.api_key", "")
	v.SetDefault("streetview.image_size", 640)
	v.SetDefault("streetview.fetch_timeout", 10*time.Second)

	v.SetDefault("rate_limit.permits", 10)
	v.SetDefault("rate_limit.window", time.Second)
	v.SetDefault("rate_limit.workers", 4)

	v.SetDefault("storage.backend", "memory")
	v.SetDefault("storage.local_root", "./artifacts")
	v.SetDefault("storage.public_base_url", "")
	v.SetDefault("storage.azure_account", "")
	v.SetDefault("storage.azure_key", "")
	v.SetDefault("storage.azure_container", "")

	v.SetDefault("cache.backend", "none")
	v.SetDefault("cache.redis_addr", "localhost:6379")
	v.SetDefault("cache.redis_password", "")
	v.SetDefault("cache.redis_db", 0)
	v.SetDefault("cache.ttl", 24*time.Hour)

	v.SetDefault("classifier.endpoint", "")
	v.SetDefault("classifier.api_key", "")
	v.SetDefault("classifier.timeout", 30*time.Second)
}

// Load reads path (or $ROOF_CONFIG when path is empty) if set, applies
// environment overrides and validates the result. The file is optional.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// LOG_LEVEL is honoured for parity with the logger's own bootstrap.
	_ = v.BindEnv("log_level", EnvPrefix+"_LOG_LEVEL", "LOG_LEVEL")

	if path == "" {
		path = os.Getenv(ConfigFileEnv)
	}
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s failed: %w", path, err)
		}
	}

	cfg := &Config{Heuristics: heuristics.Default()}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config failed: %w", err)
	}
	if len(cfg.Imagery.ZoomLevels) > 0 {
		cfg.Heuristics.Acquisition.ZoomLevels = cfg.Imagery.ZoomLevels
	}
	if cfg.Imagery.FetchTimeout > 0 {
		cfg.Heuristics.Acquisition.FetchTimeout = cfg.Imagery.FetchTimeout
	}
	if cfg.StreetView.ImageSize > 0 {
		cfg.Heuristics.StreetView.ImageSize = cfg.StreetView.ImageSize
	}
	if cfg.StreetView.FetchTimeout > 0 {
		cfg.Heuristics.StreetView.FetchTimeout = cfg.StreetView.FetchTimeout
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks ranges and cross-field requirements.
func (c *Config) Validate() error {
	p, err := strconv.Atoi(strings.TrimSpace(c.Server.Port))
	if err != nil || p < 1 || p > 65535 {
		return fmt.Errorf("invalid server.port: %q", c.Server.Port)
	}
	if c.Server.MaxRequestBodySize <= 0 {
		return fmt.Errorf("server.max_request_body_size must be > 0 (got %d)", c.Server.MaxRequestBodySize)
	}
	if c.Server.RequestTimeout <= 0 || c.Server.AnalysisTimeout <= 0 {
		return fmt.Errorf("server timeouts must be > 0 (got request=%s, analysis=%s)",
			c.Server.RequestTimeout, c.Server.AnalysisTimeout)
	}
	if c.Imagery.FetchTimeout <= 0 || c.StreetView.FetchTimeout <= 0 || c.Classifier.Timeout <= 0 {
		return fmt.Errorf("fetch timeouts must be > 0 (got imagery=%s, streetview=%s, classifier=%s)",
			c.Imagery.FetchTimeout, c.StreetView.FetchTimeout, c.Classifier.Timeout)
	}
	if c.RateLimit.Permits <= 0 || c.RateLimit.Window <= 0 {
		return fmt.Errorf("rate_limit permits and window must be > 0")
	}

	urls := validation.NewURLValidator()

	if n := len(c.Imagery.Providers); n == 1 {
		return fmt.Errorf("imagery.providers needs at least two entries when configured (got 1)")
	}
	seen := make(map[string]bool, len(c.Imagery.Providers))
	for i, p := range c.Imagery.Providers {
		if strings.TrimSpace(p.Name) == "" {
			return fmt.Errorf("imagery.providers[%d]: name is required", i)
		}
		if seen[p.Name] {
			return fmt.Errorf("imagery.providers[%d]: duplicate name %q", i, p.Name)
		}
		seen[p.Name] = true
		if p.Kind != KindTile && p.Kind != KindStatic {
			return fmt.Errorf("imagery.providers[%d]: kind must be %q or %q (got %q)", i, KindTile, KindStatic, p.Kind)
		}
		if err := urls.ValidateEndpoint(p.URLTemplate); err != nil {
			return fmt.Errorf("imagery.providers[%d]: %w", i, err)
		}
	}

	if c.StreetView.Enabled {
		if err := urls.ValidateEndpoint(c.StreetView.MetadataURL); err != nil {
			return fmt.Errorf("streetview.metadata_url: %w", err)
		}
		if err := urls.ValidateEndpoint(c.StreetView.ImageURL); err != nil {
			return fmt.Errorf("streetview.image_url: %w", err)
		}
	}

	if c.Classifier.Endpoint != "" {
		if err := urls.ValidateEndpoint(c.Classifier.Endpoint); err != nil {
			return fmt.Errorf("classifier.endpoint: %w", err)
		}
	}

	switch c.Storage.Backend {
	case "memory", "local", "azure":
	default:
		return fmt.Errorf("unsupported storage.backend: %q", c.Storage.Backend)
	}
	switch c.Cache.Backend {
	case "none", "memory", "redis":
	default:
		return fmt.Errorf("unsupported cache.backend: %q", c.Cache.Backend)
	}

	if err := c.Heuristics.Validate(); err != nil {
		return fmt.Errorf("heuristics: %w", err)
	}
	return nil
}

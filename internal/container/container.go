package container

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go-roof-inspector/internal/acquisition"
	"go-roof-inspector/internal/analyzer"
	"go-roof-inspector/internal/anomaly"
	"go-roof-inspector/internal/config"
	"go-roof-inspector/internal/factory"
	"go-roof-inspector/internal/logger"
	"go-roof-inspector/internal/observer"
	"go-roof-inspector/internal/pipeline"
	"go-roof-inspector/internal/ratelimit"
	"go-roof-inspector/internal/segmentation"
	"go-roof-inspector/internal/storage"
	"go-roof-inspector/internal/streetview"
	"go-roof-inspector/internal/transport"
	"go-roof-inspector/internal/workerpool"
)

// Container holds all application dependencies
type Container struct {
	config    *config.Config
	publisher *observer.EventPublisher
	storage   storage.BlobStorage
	pipeline  *pipeline.Coordinator
	handler   http.Handler
}

// Option customises container construction.
type Option func(*options)

type options struct {
	observers []observer.Observer
	clock     func() time.Time
}

// WithObserver subscribes an extra observer to pipeline events.
func WithObserver(o observer.Observer) Option {
	return func(opts *options) { opts.observers = append(opts.observers, o) }
}

// WithClock overrides the clock stamped on dossiers and assets.
func WithClock(now func() time.Time) Option {
	return func(opts *options) { opts.clock = now }
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// NewContainer creates a new dependency injection container
func NewContainer(ctx context.Context, cfg *config.Config, opts ...Option) (*Container, error) {
	o := &options{clock: time.Now}
	for _, opt := range opts {
		opt(o)
	}

	logger.SetLevel(cfg.LogLevel)

	publisher := observer.NewEventPublisher()
	publisher.Subscribe(observer.NewLoggingObserver(logger.Logger))
	publisher.Subscribe(observer.NewMetricsObserver())
	for _, obs := range o.observers {
		publisher.Subscribe(obs)
	}

	components := factory.NewComponentFactory(o.clock)

	// Build dependency graph
	blobs, err := components.StorageFactory.CreateStorage(factory.StorageType(cfg.Storage.Backend), cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage: %w", err)
	}

	responseCache, err := components.CacheFactory.CreateCache(ctx, factory.CacheType(cfg.Cache.Backend), cfg.Cache)
	if err != nil {
		_ = blobs.Close()
		return nil, fmt.Errorf("failed to create cache: %w", err)
	}

	closers := []func() error{blobs.Close}
	if responseCache != nil {
		closers = append(closers, responseCache.Close)
	}
	fail := func(err error) (*Container, error) {
		for _, c := range closers {
			_ = c()
		}
		return nil, err
	}

	fetcher := storage.NewHTTPFetcher(cfg.Imagery.UserAgent)
	providerFactory := components.Providers(cfg, fetcher, responseCache)

	providers, err := providerFactory.CreateImageryProviders(cfg.Imagery.Providers)
	if err != nil {
		return fail(fmt.Errorf("failed to create imagery providers: %w", err))
	}
	if len(providers) == 0 {
		logger.Logger.Warn("No imagery providers configured, every dossier will use a placeholder image")
	}

	limiter, err := ratelimit.New(cfg.RateLimit.Permits, cfg.RateLimit.Window)
	if err != nil {
		return fail(fmt.Errorf("failed to create rate limiter: %w", err))
	}

	pool := workerpool.NewWorkerPool(cfg.RateLimit.Workers)
	pool.Start()
	closers = append(closers, func() error { pool.Close(); return nil })

	h := cfg.Heuristics
	acquirer := acquisition.NewCoordinator(providers, h,
		acquisition.WithStorage(blobs),
		acquisition.WithLimiter(limiter),
		acquisition.WithPool(pool),
		acquisition.WithNotifier(publisher),
		acquisition.WithAssessor(analyzer.NewQualityAssessor(h.Quality)),
		acquisition.WithClock(o.clock),
	)

	deps := pipeline.Dependencies{
		Acquisition: acquirer,
		Normalizer:  segmentation.NewNormalizer(h.Segmentation),
		Detector:    anomaly.NewDetector(h.Anomaly),
		Classifier:  factory.NewClassifier(cfg.Classifier),
		Storage:     blobs,
		Events:      publisher,
		Clock:       o.clock,
	}

	svProvider, err := providerFactory.CreateStreetViewProvider(cfg.StreetView)
	if err != nil {
		return fail(fmt.Errorf("failed to create street view provider: %w", err))
	}
	if svProvider != nil {
		deps.StreetView = streetview.NewCollector(svProvider, h,
			streetview.WithStorage(blobs),
			streetview.WithLimiter(limiter),
			streetview.WithPool(pool),
			streetview.WithNotifier(publisher),
			streetview.WithClock(o.clock),
		)
	}

	// Pool first so no job outlives the storage it writes to.
	for i := len(closers) - 1; i >= 0; i-- {
		deps.Closers = append(deps.Closers, closerFunc(closers[i]))
	}

	coordinator := pipeline.NewCoordinator(deps)
	handler := transport.NewHandler(coordinator, cfg)

	logger.WithField("providers", len(providers)).
		WithField("street_view", svProvider != nil).
		WithField("storage", cfg.Storage.Backend).
		WithField("cache", cfg.Cache.Backend).
		Info("Container initialized")

	return &Container{
		config:    cfg,
		publisher: publisher,
		storage:   blobs,
		pipeline:  coordinator,
		handler:   handler,
	}, nil
}

// Handler returns the HTTP handler
func (c *Container) Handler() http.Handler {
	return c.handler
}

// Config returns the configuration
func (c *Container) Config() *config.Config {
	return c.config
}

// Pipeline returns the dossier coordinator
func (c *Container) Pipeline() *pipeline.Coordinator {
	return c.pipeline
}

// Storage returns the artifact store
func (c *Container) Storage() storage.BlobStorage {
	return c.storage
}

// Events returns the publisher the pipeline reports to
func (c *Container) Events() *observer.EventPublisher {
	return c.publisher
}

// Close releases the pool, cache and storage. Safe to call more than once.
func (c *Container) Close() error {
	return c.pipeline.Close()
}

package acquisition

import (
	"context"
	"fmt"
	"time"

	"go-roof-inspector/internal/analyzer"
	apperrors "go-roof-inspector/internal/errors"
	"go-roof-inspector/internal/imaging"
	"go-roof-inspector/internal/logger"
	"go-roof-inspector/internal/observer"
	"go-roof-inspector/internal/ratelimit"
	"go-roof-inspector/internal/storage"
	"go-roof-inspector/internal/workerpool"
	"go-roof-inspector/pkg/heuristics"
	"go-roof-inspector/pkg/models"
)

// Notifier receives pipeline events.
type Notifier interface {
	NotifyObservers(ctx context.Context, event observer.PipelineEvent)
}

// Coordinator tries every zoom×provider combination and keeps the best image.
type Coordinator struct {
	providers []ImageryProvider
	assessor  analyzer.QualityAssessor
	quality   heuristics.QualityHeuristics
	cfg       heuristics.AcquisitionHeuristics
	storage   storage.BlobStorage
	limiter   *ratelimit.Limiter
	pool      *workerpool.WorkerPool
	events    Notifier
	now       func() time.Time
}

// Option customizes a Coordinator.
type Option func(*Coordinator)

// WithStorage persists the selected image.
func WithStorage(s storage.BlobStorage) Option { return func(c *Coordinator) { c.storage = s } }

// WithLimiter gates every provider request on a shared token bucket.
func WithLimiter(l *ratelimit.Limiter) Option { return func(c *Coordinator) { c.limiter = l } }

// WithPool runs attempts on a shared worker pool instead of sequentially.
func WithPool(p *workerpool.WorkerPool) Option { return func(c *Coordinator) { c.pool = p } }

// WithNotifier publishes fetch events.
func WithNotifier(n Notifier) Option { return func(c *Coordinator) { c.events = n } }

// WithAssessor replaces the default quality assessor.
func WithAssessor(a analyzer.QualityAssessor) Option { return func(c *Coordinator) { c.assessor = a } }

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option { return func(c *Coordinator) { c.now = now } }

// NewCoordinator creates a coordinator over providers in declaration order.
func NewCoordinator(providers []ImageryProvider, h heuristics.Heuristics, opts ...Option) *Coordinator {
	c := &Coordinator{
		providers: providers,
		assessor:  analyzer.NewQualityAssessor(h.Quality),
		quality:   h.Quality,
		cfg:       h.Acquisition,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Providers returns the provider chain in declaration order.
func (c *Coordinator) Providers() []ImageryProvider {
	return c.providers
}

type candidate struct {
	asset    *models.ImageAsset
	provider int
	zoom     int
}

// better orders by score, then provider declaration order, then zoom order.
func (a candidate) better(b candidate) bool {
	if a.asset.Quality.Score != b.asset.Quality.Score {
		return a.asset.Quality.Score > b.asset.Quality.Score
	}
	if a.provider != b.provider {
		return a.provider < b.provider
	}
	return a.zoom < b.zoom
}

// Capture returns the best-scoring image, or a placeholder when every attempt
// failed. The only error is a failure to build the placeholder itself.
func (c *Coordinator) Capture(ctx context.Context, lat, lon float64, dossierID string) (*models.ImageAsset, error) {
	zooms := c.cfg.ZoomLevels
	slots := make([]*candidate, len(zooms)*len(c.providers))

	jobs := make([]workerpool.Job, 0, len(slots))
	for zi, zoom := range zooms {
		for pi, provider := range c.providers {
			idx, zi, pi, zoom, provider := zi*len(c.providers)+pi, zi, pi, zoom, provider
			jobs = append(jobs, func(ctx context.Context) {
				asset := c.safeAttempt(ctx, provider, lat, lon, zoom, dossierID)
				if asset != nil {
					slots[idx] = &candidate{asset: asset, provider: pi, zoom: zi}
				}
			})
		}
	}
	c.run(ctx, jobs)

	var best *candidate
	for _, cand := range slots {
		if cand == nil {
			continue
		}
		if best == nil || cand.better(*best) {
			best = cand
		}
	}

	if best == nil {
		return c.placeholder(ctx, lat, lon, dossierID)
	}

	asset := best.asset
	logger.WithFields(map[string]interface{}{
		"dossier_id": dossierID,
		"provider":   asset.Source,
		"zoom":       asset.Zoom,
		"score":      asset.Quality.Score,
	}).Info("Selected overhead imagery")

	c.persist(ctx, asset, dossierID)
	return asset, nil
}

func (c *Coordinator) run(ctx context.Context, jobs []workerpool.Job) {
	if c.pool != nil {
		n, err := c.pool.Do(ctx, jobs)
		if err == nil || ctx.Err() != nil {
			return
		}
		// Pool closed underneath us; run what it never accepted inline.
		jobs = jobs[n:]
	}
	for _, job := range jobs {
		if ctx.Err() != nil {
			return
		}
		job(ctx)
	}
}

// safeAttempt reports a panicking provider as a failed fetch. Attempts may run
// on pool goroutines, out of reach of the pipeline's own recover.
func (c *Coordinator) safeAttempt(ctx context.Context, p ImageryProvider, lat, lon float64, zoom int, dossierID string) (asset *models.ImageAsset) {
	defer func() {
		if r := recover(); r != nil {
			logger.WithFields(map[string]interface{}{
				"dossier_id": dossierID,
				"provider":   p.Name(),
				"zoom":       zoom,
				"panic":      fmt.Sprint(r),
			}).Error("Provider fetch panicked")
			c.notify(ctx, observer.PipelineEvent{
				EventType: observer.ImageFetchFailed, DossierID: dossierID, Provider: p.Name(),
				ErrorMessage: fmt.Sprintf("panic: %v", r),
				Metadata:     map[string]interface{}{"zoom": zoom},
			})
			asset = nil
		}
	}()
	return c.attempt(ctx, p, lat, lon, zoom, dossierID)
}

// attempt performs one provider fetch. Failures are logged and reported as nil.
func (c *Coordinator) attempt(ctx context.Context, p ImageryProvider, lat, lon float64, zoom int, dossierID string) *models.ImageAsset {
	log := logger.WithFields(map[string]interface{}{
		"dossier_id": dossierID,
		"provider":   p.Name(),
		"zoom":       zoom,
	})

	if err := c.limiter.Acquire(ctx); err != nil {
		log.WithError(err).Debug("Rate limiter wait aborted")
		return nil
	}

	start := time.Now()
	data, err := p.Fetch(ctx, lat, lon, zoom)
	if err != nil {
		log.WithError(err).Debug("Provider fetch failed")
		c.notify(ctx, observer.PipelineEvent{
			EventType: observer.ImageFetchFailed, DossierID: dossierID, Provider: p.Name(),
			Duration: time.Since(start), ErrorMessage: err.Error(),
			Metadata: map[string]interface{}{"zoom": zoom},
		})
		return nil
	}

	img, contentType, err := imaging.Decode(data)
	if err != nil {
		log.WithError(err).Debug("Provider returned undecodable payload")
		c.notify(ctx, observer.PipelineEvent{
			EventType: observer.ImageFetchFailed, DossierID: dossierID, Provider: p.Name(),
			Duration: time.Since(start), ErrorMessage: err.Error(),
			Metadata: map[string]interface{}{"zoom": zoom},
		})
		return nil
	}
	c.notify(ctx, observer.PipelineEvent{
		EventType: observer.ImageFetched, DossierID: dossierID, Provider: p.Name(),
		Duration: time.Since(start), Success: true,
		Metadata: map[string]interface{}{"zoom": zoom},
	})

	capturedAt, ok := imaging.CaptureTime(data)
	if !ok {
		capturedAt = c.now().UTC()
	}

	b := img.Bounds()
	return &models.ImageAsset{
		Source:      p.Name(),
		Zoom:        zoom,
		CapturedAt:  capturedAt,
		Resolution:  models.Resolution{Width: b.Dx(), Height: b.Dy()},
		Quality:     c.assessor.Evaluate(img),
		ContentType: contentType,
		Data:        data,
		Image:       img,
	}
}

// placeholder synthesizes the flagged fallback image.
func (c *Coordinator) placeholder(ctx context.Context, lat, lon float64, dossierID string) (*models.ImageAsset, error) {
	log := logger.WithFields(map[string]interface{}{"dossier_id": dossierID, "stage": "acquisition"})

	data, err := renderPlaceholder(c.cfg.PlaceholderSize, lat, lon)
	if err != nil {
		log.WithError(err).Error("Failed to render placeholder imagery")
		return nil, apperrors.NewAcquisitionError("no imagery and placeholder rendering failed", err)
	}
	img, contentType, err := imaging.Decode(data)
	if err != nil {
		log.WithError(err).Error("Failed to decode placeholder imagery")
		return nil, apperrors.NewAcquisitionError("placeholder imagery is not decodable", err)
	}

	report := c.assessor.Evaluate(img)
	report.Score = c.quality.MinScore
	if !report.HasIssue(models.IssueImageryUnavailable) {
		report.Issues = append(report.Issues, models.IssueImageryUnavailable)
	}

	log.Warn("All imagery providers failed, using generated placeholder")
	c.notify(ctx, observer.PipelineEvent{EventType: observer.PlaceholderGenerated, DossierID: dossierID, Stage: "acquisition"})

	b := img.Bounds()
	asset := &models.ImageAsset{
		Source:      models.SourceGenerated,
		CapturedAt:  c.now().UTC(),
		Resolution:  models.Resolution{Width: b.Dx(), Height: b.Dy()},
		Quality:     report,
		ContentType: contentType,
		Placeholder: true,
		Data:        data,
		Image:       img,
	}
	c.persist(ctx, asset, dossierID)
	return asset, nil
}

// persist saves the asset; failures leave the storage fields empty.
func (c *Coordinator) persist(ctx context.Context, asset *models.ImageAsset, dossierID string) {
	if c.storage == nil {
		return
	}
	path := storage.ArtifactPath(dossierID, fmt.Sprintf("aerial.%s", imaging.Extension(asset.ContentType)))
	publicURL, err := c.storage.Save(ctx, asset.Data, path, asset.ContentType)
	if err != nil {
		logger.WithFields(map[string]interface{}{"dossier_id": dossierID, "stage": "acquisition"}).
			WithError(err).Warn("Failed to persist overhead imagery")
		return
	}
	asset.StoragePath = path
	asset.PublicURL = publicURL
}

func (c *Coordinator) notify(ctx context.Context, event observer.PipelineEvent) {
	if c.events != nil {
		c.events.NotifyObservers(ctx, event)
	}
}

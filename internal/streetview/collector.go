package streetview

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go-roof-inspector/internal/anomaly"
	apperrors "go-roof-inspector/internal/errors"
	"go-roof-inspector/internal/geo"
	"go-roof-inspector/internal/imaging"
	"go-roof-inspector/internal/logger"
	"go-roof-inspector/internal/observer"
	"go-roof-inspector/internal/ratelimit"
	"go-roof-inspector/internal/storage"
	"go-roof-inspector/internal/workerpool"
	"go-roof-inspector/pkg/heuristics"
	"go-roof-inspector/pkg/models"
)

// Rejection reasons reported on StreetViewRejected events.
const (
	ReasonMetadataError = "metadata_error"
	ReasonNoImagery     = "no_imagery"
	ReasonTooFar        = "too_far"
	ReasonFetchFailed   = "fetch_failed"
	ReasonUndecodable   = "undecodable"
	ReasonSuppressed    = "suppressed"
	ReasonPanic         = "provider_panic"
)

// Notifier receives pipeline events.
type Notifier interface {
	NotifyObservers(ctx context.Context, event observer.PipelineEvent)
}

// Collector gathers, scores and deduplicates street-level views.
type Collector struct {
	provider Provider
	cfg      heuristics.StreetViewHeuristics
	scanner  *anomaly.FacadeScanner
	storage  storage.BlobStorage
	limiter  *ratelimit.Limiter
	pool     *workerpool.WorkerPool
	events   Notifier
	now      func() time.Time
}

// Option customizes a Collector.
type Option func(*Collector)

// WithStorage persists the selected photographs.
func WithStorage(s storage.BlobStorage) Option { return func(c *Collector) { c.storage = s } }

// WithLimiter gates metadata and image requests on a shared token bucket.
func WithLimiter(l *ratelimit.Limiter) Option { return func(c *Collector) { c.limiter = l } }

// WithPool fans headings out over a shared worker pool.
func WithPool(p *workerpool.WorkerPool) Option { return func(c *Collector) { c.pool = p } }

// WithNotifier publishes rejection events.
func WithNotifier(n Notifier) Option { return func(c *Collector) { c.events = n } }

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option { return func(c *Collector) { c.now = now } }

// NewCollector creates a collector over one street-level provider.
func NewCollector(provider Provider, h heuristics.Heuristics, opts ...Option) *Collector {
	c := &Collector{
		provider: provider,
		cfg:      h.StreetView,
		scanner:  anomaly.NewFacadeScanner(h.StreetView, h.Anomaly),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Headings returns the evenly spaced candidate headings, starting north.
func (c *Collector) Headings() []float64 {
	n := c.cfg.HeadingCount
	if n <= 0 {
		return nil
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(i) * 360 / float64(n)
	}
	return out
}

// Collect returns up to maxAngles accepted views, best first, no two closer
// than the minimum angular separation. A non-positive maxAngles uses the
// configured default. It only fails when ctx is done.
func (c *Collector) Collect(ctx context.Context, lat, lon float64, dossierID string, maxAngles int) ([]models.StreetViewAsset, error) {
	if maxAngles <= 0 {
		maxAngles = c.cfg.MaxAngles
	}
	headings := c.Headings()
	slots := make([]*models.StreetViewAsset, len(headings))

	jobs := make([]workerpool.Job, 0, len(headings))
	for i, heading := range headings {
		i, heading := i, heading
		jobs = append(jobs, func(ctx context.Context) {
			slots[i] = c.safeCandidate(ctx, lat, lon, heading, dossierID)
		})
	}
	c.run(ctx, jobs)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	accepted := make([]*models.StreetViewAsset, 0, len(slots))
	for _, s := range slots {
		if s != nil {
			accepted = append(accepted, s)
		}
	}
	rank(accepted)

	selected := make([]models.StreetViewAsset, 0, maxAngles)
	for _, cand := range accepted {
		if len(selected) >= maxAngles {
			c.reject(ctx, dossierID, cand.Heading, ReasonSuppressed, "selection limit reached")
			continue
		}
		if !c.separated(cand.Heading, selected) {
			c.reject(ctx, dossierID, cand.Heading, ReasonSuppressed, "too close to a selected heading")
			continue
		}
		selected = append(selected, *cand)
	}

	for i := range selected {
		c.persist(ctx, &selected[i], dossierID)
	}

	logger.WithFields(map[string]interface{}{
		"dossier_id": dossierID,
		"accepted":   len(accepted),
		"selected":   len(selected),
	}).Info("Street view collection complete")
	return selected, nil
}

// rank orders by quality descending, then occlusion ascending, then heading.
func rank(cands []*models.StreetViewAsset) {
	sort.SliceStable(cands, func(i, j int) bool {
		a, b := cands[i], cands[j]
		if a.QualityScore != b.QualityScore {
			return a.QualityScore > b.QualityScore
		}
		if a.OcclusionScore != b.OcclusionScore {
			return a.OcclusionScore < b.OcclusionScore
		}
		return a.Heading < b.Heading
	})
}

func (c *Collector) separated(heading float64, selected []models.StreetViewAsset) bool {
	for _, s := range selected {
		if geo.AngularSeparation(heading, s.Heading) < c.cfg.MinSeparationDegrees {
			return false
		}
	}
	return true
}

func (c *Collector) run(ctx context.Context, jobs []workerpool.Job) {
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

// safeCandidate turns a panic in provider or scoring code into a rejection,
// since jobs may run on pool goroutines the caller cannot recover from.
func (c *Collector) safeCandidate(ctx context.Context, lat, lon, heading float64, dossierID string) (asset *models.StreetViewAsset) {
	defer func() {
		if r := recover(); r != nil {
			logger.WithFields(map[string]interface{}{"dossier_id": dossierID, "heading": heading, "panic": fmt.Sprint(r)}).
				Error("Street view candidate panicked")
			c.reject(ctx, dossierID, heading, ReasonPanic, fmt.Sprint(r))
			asset = nil
		}
	}()
	return c.candidate(ctx, lat, lon, heading, dossierID)
}

// candidate resolves, gates, fetches and scores one heading. Rejected
// headings return nil.
func (c *Collector) candidate(ctx context.Context, lat, lon, heading float64, dossierID string) *models.StreetViewAsset {
	if err := c.limiter.Acquire(ctx); err != nil {
		return nil
	}
	meta, err := c.provider.Metadata(ctx, lat, lon, heading, c.cfg.Pitch, c.cfg.FOV)
	if err != nil {
		c.reject(ctx, dossierID, heading, ReasonMetadataError, err.Error())
		return nil
	}
	if meta.Status != StatusOK {
		c.reject(ctx, dossierID, heading, ReasonNoImagery, "metadata status "+meta.Status)
		return nil
	}

	distance := geo.DistanceMeters(lat, lon, meta.Location.Lat, meta.Location.Lon)
	if distance > c.cfg.MaxDistanceMeters {
		c.reject(ctx, dossierID, heading, ReasonTooFar, fmt.Sprintf("vantage point %.1fm away", distance))
		return nil
	}

	if err := c.limiter.Acquire(ctx); err != nil {
		return nil
	}
	data, err := c.provider.Image(ctx, lat, lon, heading, c.cfg.Pitch, c.cfg.FOV, c.cfg.ImageSize)
	if err != nil {
		c.reject(ctx, dossierID, heading, ReasonFetchFailed, err.Error())
		return nil
	}
	img, contentType, err := imaging.Decode(data)
	if err != nil {
		c.reject(ctx, dossierID, heading, ReasonUndecodable, err.Error())
		return nil
	}

	planes := imaging.ToHSV(img)
	scores := Score(planes, c.cfg)

	capturedAt, ok := meta.CapturedAt()
	if !ok {
		if capturedAt, ok = imaging.CaptureTime(data); !ok {
			capturedAt = c.now().UTC()
		}
	}

	return &models.StreetViewAsset{
		Heading:        heading,
		Pitch:          c.cfg.Pitch,
		FOV:            c.cfg.FOV,
		Source:         c.provider.Name(),
		PanoID:         meta.PanoID,
		CapturedAt:     capturedAt,
		Location:       meta.Location,
		DistanceM:      distance,
		OcclusionScore: scores.Occlusion,
		QualityScore:   scores.Quality,
		Anomalies:      c.scanner.Scan(planes),
		ContentType:    contentType,
		Data:           data,
	}
}

func (c *Collector) persist(ctx context.Context, asset *models.StreetViewAsset, dossierID string) {
	if c.storage == nil {
		return
	}
	name := fmt.Sprintf("streetview_%03.0f.%s", asset.Heading, imaging.Extension(asset.ContentType))
	path := storage.ArtifactPath(dossierID, name)
	publicURL, err := c.storage.Save(ctx, asset.Data, path, asset.ContentType)
	if err != nil {
		logger.WithFields(map[string]interface{}{"dossier_id": dossierID, "heading": asset.Heading}).
			WithError(err).Warn("Failed to persist street view image")
		return
	}
	asset.StoragePath = path
	asset.PublicURL = publicURL
}

func (c *Collector) reject(ctx context.Context, dossierID string, heading float64, reason, detail string) {
	logger.WithFields(map[string]interface{}{
		"dossier_id": dossierID,
		"heading":    heading,
		"reason":     reason,
	}).Debug("Street view candidate rejected: " + detail)
	if c.events != nil {
		err := apperrors.NewStreetViewRejectedError(detail, nil)
		c.events.NotifyObservers(ctx, observer.PipelineEvent{
			EventType:    observer.StreetViewRejected,
			DossierID:    dossierID,
			Stage:        "streetview",
			Provider:     c.provider.Name(),
			ErrorMessage: err.Error(),
			Metadata:     map[string]interface{}{"reason": reason, "heading": heading},
		})
	}
}

// Package pipeline orchestrates one analysis run from coordinates to an
// immutable dossier.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"go-roof-inspector/internal/classifier"
	apperrors "go-roof-inspector/internal/errors"
	"go-roof-inspector/internal/imaging"
	"go-roof-inspector/internal/logger"
	"go-roof-inspector/internal/observer"
	"go-roof-inspector/internal/storage"
	"go-roof-inspector/pkg/models"
	"go-roof-inspector/pkg/validation"
)

// Stage names reported in degraded_stages and events.
const (
	StageAcquisition    = "acquisition"
	StageSegmentation   = "segmentation"
	StageClassification = "classification"
	StageAnomalies      = "anomaly_detection"
	StageStreetView     = "streetview"
)

// Acquirer captures the best overhead image for a coordinate.
type Acquirer interface {
	Capture(ctx context.Context, lat, lon float64, dossierID string) (*models.ImageAsset, error)
}

// RoofNormalizer produces the canonical roof view.
type RoofNormalizer interface {
	Generate(asset *models.ImageAsset) models.NormalizedRoofView
}

// AnomalyDetector flags roof anomalies.
type AnomalyDetector interface {
	Detect(view models.NormalizedRoofView, profile models.PropertyProfile) models.AnomalyBundle
}

// StreetViewCollector gathers ground-level views.
type StreetViewCollector interface {
	Collect(ctx context.Context, lat, lon float64, dossierID string, maxAngles int) ([]models.StreetViewAsset, error)
}

// Notifier receives pipeline events.
type Notifier interface {
	NotifyObservers(ctx context.Context, event observer.PipelineEvent)
}

// Dependencies are the collaborators of a Coordinator. Acquisition,
// Normalizer and Detector are required; the rest are optional.
type Dependencies struct {
	Acquisition Acquirer
	Normalizer  RoofNormalizer
	Detector    AnomalyDetector
	StreetView  StreetViewCollector
	Classifier  classifier.Classifier
	Storage     storage.BlobStorage
	Events      Notifier
	Clock       func() time.Time
	// Closers are released by Close in order.
	Closers []io.Closer
}

// AnalyzeInput is one analysis request.
type AnalyzeInput struct {
	PropertyID       string
	Lat              float64
	Lon              float64
	Profile          models.PropertyProfile
	EnableStreetView bool
}

// Coordinator runs the stages in order and isolates every stage after
// acquisition, so only acquisition and input validation errors escape.
type Coordinator struct {
	deps Dependencies

	closeOnce sync.Once
	closeErr  error
}

// NewCoordinator creates a coordinator. A nil classifier means no classification.
func NewCoordinator(deps Dependencies) *Coordinator {
	if deps.Classifier == nil {
		deps.Classifier = classifier.Noop{}
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	return &Coordinator{deps: deps}
}

// run carries per-call state.
type run struct {
	in        AnalyzeInput
	dossierID string
	log       *logrus.Entry
	degraded  []string
}

// Analyze runs every stage with default options.
func (c *Coordinator) Analyze(ctx context.Context, in AnalyzeInput) (*models.AnalysisDossier, error) {
	return c.AnalyzeWithOptions(ctx, in, DefaultOptions())
}

// AnalyzeWithOptions runs the pipeline. It fails only on invalid input or when
// acquisition cannot even produce a placeholder.
func (c *Coordinator) AnalyzeWithOptions(ctx context.Context, in AnalyzeInput, opts AnalysisOptions) (*models.AnalysisDossier, error) {
	if err := validation.ValidatePropertyID(in.PropertyID); err != nil {
		return nil, err
	}
	if err := validation.ValidateCoordinates(in.Lat, in.Lon); err != nil {
		return nil, err
	}

	r := &run{in: in, dossierID: storage.DossierID(in.PropertyID, in.Lat, in.Lon)}
	r.log = logger.ForDossier(r.dossierID, in.PropertyID)
	start := time.Now()
	c.notify(ctx, observer.PipelineEvent{EventType: observer.AnalysisStarted, DossierID: r.dossierID, PropertyID: in.PropertyID})

	asset, err := c.acquire(ctx, r)
	if err != nil {
		r.log.WithError(err).Error("Acquisition failed, no dossier produced")
		c.notify(ctx, observer.PipelineEvent{
			EventType: observer.AnalysisFailed, DossierID: r.dossierID, PropertyID: in.PropertyID,
			Stage: StageAcquisition, Duration: time.Since(start), ErrorMessage: err.Error(),
		})
		return nil, err
	}

	var view models.NormalizedRoofView
	c.stage(ctx, r, StageSegmentation, func() error {
		view = c.deps.Normalizer.Generate(asset)
		return nil
	})
	if !opts.SkipArtifacts {
		c.persistView(ctx, r, &view)
	}

	condition := models.DefaultRoofCondition()
	if !opts.SkipClassification {
		c.stage(ctx, r, StageClassification, func() error {
			got, err := c.classify(ctx, r, asset, view)
			if err != nil {
				return err
			}
			condition = got
			return nil
		})
	}

	bundle := emptyBundle()
	if !opts.SkipAnomalies {
		c.stage(ctx, r, StageAnomalies, func() error {
			bundle = c.deps.Detector.Detect(view, in.Profile)
			return nil
		})
		if !opts.SkipArtifacts {
			c.persistAnomalies(ctx, r, &bundle)
		}
	}

	streetView := []models.StreetViewAsset{}
	if in.EnableStreetView && !opts.SkipStreetView {
		c.stage(ctx, r, StageStreetView, func() error {
			if c.deps.StreetView == nil {
				return apperrors.NewInternalError("street view collector not configured", nil)
			}
			assets, err := c.deps.StreetView.Collect(ctx, in.Lat, in.Lon, r.dossierID, opts.MaxStreetViewAngles)
			if err != nil {
				return err
			}
			if assets != nil {
				streetView = assets
			}
			return nil
		})
	}

	dossier := &models.AnalysisDossier{
		ID:             r.dossierID,
		PropertyID:     in.PropertyID,
		Location:       models.LatLon{Lat: in.Lat, Lon: in.Lon},
		GeneratedAt:    c.deps.Clock().UTC(),
		Image:          *asset,
		NormalizedView: view,
		Anomalies:      bundle,
		StreetView:     streetView,
		RoofCondition:  condition,
		DegradedStages: append([]string{}, r.degraded...),
	}

	r.log.WithFields(logrus.Fields{
		"source":          asset.Source,
		"quality_score":   asset.Quality.Score,
		"anomalies":       len(bundle.Anomalies),
		"street_views":    len(streetView),
		"degraded_stages": len(r.degraded),
	}).Info("Analysis complete")
	c.notify(ctx, observer.PipelineEvent{
		EventType: observer.AnalysisCompleted, DossierID: r.dossierID, PropertyID: in.PropertyID,
		Duration: time.Since(start), Success: true,
		Metadata: map[string]interface{}{"degraded_stages": len(r.degraded)},
	})
	return dossier, nil
}

// acquire converts a panic into an acquisition failure.
func (c *Coordinator) acquire(ctx context.Context, r *run) (asset *models.ImageAsset, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			asset, err = nil, apperrors.NewAcquisitionError(fmt.Sprintf("acquisition panicked: %v", rec), nil)
		}
	}()
	asset, err = c.deps.Acquisition.Capture(ctx, r.in.Lat, r.in.Lon, r.dossierID)
	if err == nil && asset == nil {
		err = apperrors.NewAcquisitionError("acquisition returned no image", nil)
	}
	return asset, err
}

// stage runs fn, converting errors and panics into a degraded section.
func (c *Coordinator) stage(ctx context.Context, r *run, name string, fn func() error) {
	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			c.degrade(ctx, r, name, apperrors.NewInternalError(fmt.Sprintf("%s panicked: %v", name, rec), nil), time.Since(start))
		}
	}()

	if err := fn(); err != nil {
		c.degrade(ctx, r, name, err, time.Since(start))
	}
}

func (c *Coordinator) degrade(ctx context.Context, r *run, name string, err error, elapsed time.Duration) {
	r.degraded = append(r.degraded, name)
	r.log.WithField("stage", name).WithError(err).Warn("Stage degraded")
	c.notify(ctx, observer.PipelineEvent{
		EventType: observer.StageDegraded, DossierID: r.dossierID, PropertyID: r.in.PropertyID,
		Stage: name, Duration: elapsed, ErrorMessage: err.Error(),
	})
}

func (c *Coordinator) classify(ctx context.Context, r *run, asset *models.ImageAsset, view models.NormalizedRoofView) (models.RoofCondition, error) {
	data := asset.Data
	if view.Image != nil {
		encoded, err := imaging.EncodePNG(view.Image)
		if err != nil {
			return models.RoofCondition{}, apperrors.NewClassificationError("failed to encode normalized view", err)
		}
		data = encoded
	}
	return c.deps.Classifier.Classify(ctx, data, classifier.Metadata{
		DossierID:       r.dossierID,
		PropertyID:      r.in.PropertyID,
		Lat:             r.in.Lat,
		Lon:             r.in.Lon,
		Source:          asset.Source,
		Placeholder:     asset.Placeholder,
		RotationDegrees: view.RotationDegrees,
		CoverageRatio:   view.CoverageRatio,
	})
}

func (c *Coordinator) persistView(ctx context.Context, r *run, view *models.NormalizedRoofView) {
	if view.Image != nil {
		view.ImageURL = c.save(ctx, r, "normalized.png", view.Image)
	}
	if view.Mask != nil {
		view.MaskURL = c.save(ctx, r, "roof_mask.png", view.Mask)
	}
}

func (c *Coordinator) persistAnomalies(ctx context.Context, r *run, bundle *models.AnomalyBundle) {
	if bundle.Heatmap != nil {
		bundle.HeatmapURL = c.save(ctx, r, "heatmap.png", bundle.Heatmap)
	}
	for i := range bundle.Anomalies {
		a := &bundle.Anomalies[i]
		if a.Mask != nil {
			a.MaskURL = c.save(ctx, r, fmt.Sprintf("anomaly_%s.png", a.Type), a.Mask)
		}
	}
}

// save stores img as PNG and returns its public URL, or "" on failure.
// A panicking encoder or backend counts as a failure.
func (c *Coordinator) save(ctx context.Context, r *run, name string, img image.Image) (url string) {
	if c.deps.Storage == nil {
		return ""
	}
	defer func() {
		if rec := recover(); rec != nil {
			r.log.WithField("artifact", name).WithField("panic", fmt.Sprint(rec)).Warn("Artifact persistence panicked")
			url = ""
		}
	}()
	data, err := imaging.EncodePNG(img)
	if err != nil {
		r.log.WithField("artifact", name).WithError(err).Warn("Failed to encode artifact")
		return ""
	}
	url, err = c.deps.Storage.Save(ctx, data, storage.ArtifactPath(r.dossierID, name), imaging.ContentTypePNG)
	if err != nil {
		r.log.WithField("artifact", name).WithError(err).Warn("Failed to persist artifact")
		return ""
	}
	return url
}

func (c *Coordinator) notify(ctx context.Context, event observer.PipelineEvent) {
	if c.deps.Events != nil {
		c.deps.Events.NotifyObservers(ctx, event)
	}
}

// Close releases the configured closers once. Later calls return the first result.
func (c *Coordinator) Close() error {
	c.closeOnce.Do(func() {
		var errs []error
		for _, closer := range c.deps.Closers {
			if closer == nil {
				continue
			}
			if err := closer.Close(); err != nil {
				errs = append(errs, err)
			}
		}
		c.closeErr = errors.Join(errs...)
	})
	return c.closeErr
}

func emptyBundle() models.AnomalyBundle {
	return models.AnomalyBundle{
		Anomalies: []models.Anomaly{},
		Legend:    map[models.AnomalyType]string{},
	}
}

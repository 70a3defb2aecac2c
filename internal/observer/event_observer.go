package observer

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"go-roof-inspector/internal/metrics"
)

// PipelineEvent represents one step of an analysis run
type PipelineEvent struct {
	EventType    EventType              `json:"event_type"`
	DossierID    string                 `json:"dossier_id,omitempty"`
	PropertyID   string                 `json:"property_id,omitempty"`
	Stage        string                 `json:"stage,omitempty"`
	Provider     string                 `json:"provider,omitempty"`
	Duration     time.Duration          `json:"duration"`
	Success      bool                   `json:"success"`
	ErrorMessage string                 `json:"error_message,omitempty"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
}

// EventType represents the type of pipeline event
type EventType string

const (
	// AnalysisStarted when analyze begins
	AnalysisStarted EventType = "analysis_started"
	// AnalysisCompleted when a dossier is returned
	AnalysisCompleted EventType = "analysis_completed"
	// AnalysisFailed when analyze returns an error
	AnalysisFailed EventType = "analysis_failed"
	// ImageFetched when a provider returns a decodable payload
	ImageFetched EventType = "image_fetched"
	// ImageFetchFailed when a provider attempt is skipped
	ImageFetchFailed EventType = "image_fetch_failed"
	// PlaceholderGenerated when every provider attempt failed
	PlaceholderGenerated EventType = "placeholder_generated"
	// StageDegraded when a stage falls back to its default section
	StageDegraded EventType = "stage_degraded"
	// StreetViewRejected when a street-level candidate is dropped
	StreetViewRejected EventType = "streetview_rejected"
)

// Observer defines the interface for event observers
type Observer interface {
	OnEvent(ctx context.Context, event PipelineEvent)
	GetObserverName() string
}

// Subject defines the interface for event publishers
type Subject interface {
	Subscribe(observer Observer)
	Unsubscribe(observer Observer)
	NotifyObservers(ctx context.Context, event PipelineEvent)
}

// LoggingObserver logs pipeline events
type LoggingObserver struct {
	logger *logrus.Logger
}

// NewLoggingObserver creates a new logging observer
func NewLoggingObserver(logger *logrus.Logger) Observer {
	return &LoggingObserver{
		logger: logger,
	}
}

// OnEvent handles pipeline events by logging them
func (o *LoggingObserver) OnEvent(ctx context.Context, event PipelineEvent) {
	fields := logrus.Fields{
		"event_type": event.EventType,
		"duration":   event.Duration,
		"success":    event.Success,
	}
	if event.DossierID != "" {
		fields["dossier_id"] = event.DossierID
	}
	if event.PropertyID != "" {
		fields["property_id"] = event.PropertyID
	}
	if event.Stage != "" {
		fields["stage"] = event.Stage
	}
	if event.Provider != "" {
		fields["provider"] = event.Provider
	}
	if event.ErrorMessage != "" {
		fields["error"] = event.ErrorMessage
	}
	for k, v := range event.Metadata {
		fields[k] = v
	}

	entry := o.logger.WithFields(fields)
	switch event.EventType {
	case AnalysisStarted:
		entry.Info("Roof analysis started")
	case AnalysisCompleted:
		entry.Info("Roof analysis completed")
	case AnalysisFailed:
		entry.Error("Roof analysis failed")
	case ImageFetched:
		entry.Debug("Imagery fetched")
	case ImageFetchFailed, StreetViewRejected:
		entry.Debug("Candidate skipped")
	case PlaceholderGenerated:
		entry.Warn("All imagery attempts failed, using placeholder")
	case StageDegraded:
		entry.Warn("Pipeline stage degraded")
	default:
		entry.Info("Pipeline event occurred")
	}
}

// GetObserverName returns the observer name
func (o *LoggingObserver) GetObserverName() string {
	return "logging_observer"
}

// MetricsObserver feeds pipeline events into the Prometheus collectors
type MetricsObserver struct{}

// NewMetricsObserver creates a new metrics observer and registers the collectors
func NewMetricsObserver() Observer {
	metrics.Register()
	return &MetricsObserver{}
}

// OnEvent handles pipeline events by updating collectors
func (o *MetricsObserver) OnEvent(ctx context.Context, event PipelineEvent) {
	switch event.EventType {
	case AnalysisCompleted:
		metrics.AnalysesTotal.WithLabelValues("success").Inc()
		metrics.AnalysisDurationSeconds.WithLabelValues("success").Observe(event.Duration.Seconds())
	case AnalysisFailed:
		metrics.AnalysesTotal.WithLabelValues("failure").Inc()
		metrics.AnalysisDurationSeconds.WithLabelValues("failure").Observe(event.Duration.Seconds())
	case ImageFetched:
		metrics.ProviderFetchTotal.WithLabelValues(event.Provider, "success").Inc()
		metrics.ProviderFetchDurationSeconds.WithLabelValues(event.Provider).Observe(event.Duration.Seconds())
	case ImageFetchFailed:
		metrics.ProviderFetchTotal.WithLabelValues(event.Provider, "failure").Inc()
		metrics.ProviderFetchDurationSeconds.WithLabelValues(event.Provider).Observe(event.Duration.Seconds())
	case PlaceholderGenerated:
		metrics.PlaceholderTotal.Inc()
	case StageDegraded:
		metrics.StageDegradedTotal.WithLabelValues(event.Stage).Inc()
	case StreetViewRejected:
		reason, _ := event.Metadata["reason"].(string)
		if reason == "" {
			reason = "unknown"
		}
		metrics.StreetViewRejectedTotal.WithLabelValues(reason).Inc()
	}
}

// GetObserverName returns the observer name
func (o *MetricsObserver) GetObserverName() string {
	return "metrics_observer"
}

// RecordingObserver keeps every event in memory; the CLI uses it to print a run summary.
type RecordingObserver struct {
	mu     sync.Mutex
	events []PipelineEvent
}

// NewRecordingObserver creates an empty recorder
func NewRecordingObserver() *RecordingObserver {
	return &RecordingObserver{}
}

// OnEvent appends the event
func (o *RecordingObserver) OnEvent(ctx context.Context, event PipelineEvent) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, event)
}

// GetObserverName returns the observer name
func (o *RecordingObserver) GetObserverName() string {
	return "recording_observer"
}

// Events returns a copy of the recorded events
func (o *RecordingObserver) Events() []PipelineEvent {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]PipelineEvent, len(o.events))
	copy(out, o.events)
	return out
}

// Count returns how many events of the given type were recorded
func (o *RecordingObserver) Count(t EventType) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	n := 0
	for _, e := range o.events {
		if e.EventType == t {
			n++
		}
	}
	return n
}

// EventPublisher implements the Subject interface
type EventPublisher struct {
	mu        sync.RWMutex
	observers []Observer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher() *EventPublisher {
	return &EventPublisher{
		observers: make([]Observer, 0),
	}
}

// Subscribe adds an observer
func (p *EventPublisher) Subscribe(observer Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.observers = append(p.observers, observer)
}

// Unsubscribe removes an observer
func (p *EventPublisher) Unsubscribe(observer Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, obs := range p.observers {
		if obs.GetObserverName() == observer.GetObserverName() {
			p.observers = append(p.observers[:i], p.observers[i+1:]...)
			break
		}
	}
}

// NotifyObservers delivers the event to each observer in subscription order.
// Observers run on the caller's goroutine and must not block.
func (p *EventPublisher) NotifyObservers(ctx context.Context, event PipelineEvent) {
	if p == nil {
		return
	}
	p.mu.RLock()
	observers := make([]Observer, len(p.observers))
	copy(observers, p.observers)
	p.mu.RUnlock()

	for _, obs := range observers {
		notify(ctx, obs, event)
	}
}

func notify(ctx context.Context, obs Observer, event PipelineEvent) {
	defer func() {
		if r := recover(); r != nil {
			logrus.WithField("observer", obs.GetObserverName()).
				WithField("panic", r).
				Error("Observer panicked while handling event")
		}
	}()
	obs.OnEvent(ctx, event)
}

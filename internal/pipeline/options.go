package pipeline

// AnalysisOptions toggles the optional stages of a run
type AnalysisOptions struct {
	// Stage toggles
	SkipClassification bool
	SkipAnomalies      bool
	SkipStreetView     bool

	// Street-level selection; zero uses the configured default
	MaxStreetViewAngles int

	// Persistence of derived artifacts (normalized view, mask, heatmap, anomaly masks)
	SkipArtifacts bool
}

// DefaultOptions runs every stage
func DefaultOptions() AnalysisOptions {
	return AnalysisOptions{}
}

// FastOptions returns options for a quick overhead-only pass
func FastOptions() AnalysisOptions {
	opts := DefaultOptions()
	opts.SkipClassification = true
	opts.SkipStreetView = true
	opts.SkipArtifacts = true
	return opts
}

// WithMaxStreetViewAngles caps the number of selected street-level views
func (opts AnalysisOptions) WithMaxStreetViewAngles(n int) AnalysisOptions {
	opts.MaxStreetViewAngles = n
	return opts
}

// WithoutClassification skips the external classifier
func (opts AnalysisOptions) WithoutClassification() AnalysisOptions {
	opts.SkipClassification = true
	return opts
}

// WithoutArtifacts keeps derived images out of blob storage
func (opts AnalysisOptions) WithoutArtifacts() AnalysisOptions {
	opts.SkipArtifacts = true
	return opts
}

package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"go-roof-inspector/internal/container"
	"go-roof-inspector/internal/geo"
	"go-roof-inspector/internal/observer"
	"go-roof-inspector/internal/pipeline"
	"go-roof-inspector/pkg/models"
)

type analyzeOptions struct {
	propertyID string
	lat        float64
	lon        float64
	streetView bool
	maxAngles  int
	sqft       float64
	lotSqft    float64
	geoJSON    bool
	fast       bool
	summary    bool
}

func newAnalyzeCmd(root *rootOptions) *cobra.Command {
	opts := &analyzeOptions{}

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyze one property and print its dossier",
		Long:  "Analyze runs the full pipeline for a coordinate and prints the dossier as JSON, or as a GeoJSON FeatureCollection with --geojson.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd, root, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.propertyID, "property-id", "", "caller-supplied property identifier")
	f.Float64Var(&opts.lat, "lat", 0, "latitude in decimal degrees")
	f.Float64Var(&opts.lon, "lon", 0, "longitude in decimal degrees")
	f.BoolVar(&opts.streetView, "street-view", false, "collect street-level views")
	f.IntVar(&opts.maxAngles, "max-angles", 0, "maximum street-level views to keep (0 uses the configured default)")
	f.Float64Var(&opts.sqft, "sqft", 0, "building square footage")
	f.Float64Var(&opts.lotSqft, "lot-sqft", 0, "lot size in square feet")
	f.BoolVar(&opts.geoJSON, "geojson", false, "print a GeoJSON FeatureCollection instead of the dossier")
	f.BoolVar(&opts.fast, "fast", false, "overhead-only pass without classification or derived artifacts")
	f.BoolVar(&opts.summary, "summary", false, "print a pipeline event summary to stderr")
	_ = cmd.MarkFlagRequired("property-id")
	_ = cmd.MarkFlagRequired("lat")
	_ = cmd.MarkFlagRequired("lon")

	return cmd
}

func runAnalyze(cmd *cobra.Command, root *rootOptions, opts *analyzeOptions) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	rec := observer.NewRecordingObserver()
	c, err := container.NewContainer(ctx, root.cfg, container.WithObserver(rec))
	if err != nil {
		return err
	}
	defer c.Close()

	runOpts := pipeline.DefaultOptions()
	if opts.fast {
		runOpts = pipeline.FastOptions()
	}
	if opts.maxAngles > 0 {
		runOpts = runOpts.WithMaxStreetViewAngles(opts.maxAngles)
	}

	ctx, cancel := context.WithTimeout(ctx, root.cfg.Server.AnalysisTimeout)
	defer cancel()

	dossier, err := c.Pipeline().AnalyzeWithOptions(ctx, pipeline.AnalyzeInput{
		PropertyID:       opts.propertyID,
		Lat:              opts.lat,
		Lon:              opts.lon,
		Profile:          models.PropertyProfile{SquareFeet: opts.sqft, LotSizeSqft: opts.lotSqft},
		EnableStreetView: opts.streetView,
	}, runOpts)
	if opts.summary {
		printSummary(cmd.ErrOrStderr(), rec.Events())
	}
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	return writeDossier(cmd.OutOrStdout(), dossier, opts.geoJSON)
}

func writeDossier(w io.Writer, d *models.AnalysisDossier, asGeoJSON bool) error {
	var (
		body []byte
		err  error
	)
	if asGeoJSON {
		body, err = geo.DossierFeatureCollection(d).MarshalJSON()
	} else {
		body, err = json.MarshalIndent(d, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("encode dossier: %w", err)
	}
	_, err = fmt.Fprintf(w, "%s\n", body)
	return err
}

// printSummary writes event counts by type, then any degraded stages.
func printSummary(w io.Writer, events []observer.PipelineEvent) {
	counts := make(map[observer.EventType]int)
	var degraded []string
	for _, e := range events {
		counts[e.EventType]++
		if e.EventType == observer.StageDegraded {
			degraded = append(degraded, e.Stage)
		}
	}
	types := make([]string, 0, len(counts))
	for t := range counts {
		types = append(types, string(t))
	}
	sort.Strings(types)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "EVENT\tCOUNT")
	for _, t := range types {
		fmt.Fprintf(tw, "%s\t%d\n", t, counts[observer.EventType(t)])
	}
	tw.Flush()
	for _, stage := range degraded {
		fmt.Fprintf(w, "degraded: %s\n", stage)
	}
}

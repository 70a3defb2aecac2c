package analyzer

import (
	"image"
	"runtime"
	"sync"

	"gonum.org/v1/gonum/stat"

	"go-roof-inspector/internal/imaging"
	"go-roof-inspector/pkg/heuristics"
)

// metricsCalculator implements MetricsCalculator with Gonum statistics
type metricsCalculator struct {
	cfg heuristics.QualityHeuristics
}

// NewMetricsCalculator creates a new metrics calculator using Gonum
func NewMetricsCalculator(cfg heuristics.QualityHeuristics) MetricsCalculator {
	return &metricsCalculator{cfg: cfg}
}

// CalculateMetrics computes luminance statistics, threshold ratios and edge visibility
func (mc *metricsCalculator) CalculateMetrics(img image.Image) Metrics {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	// Handle empty images
	if width == 0 || height == 0 {
		return Metrics{}
	}

	planes := imaging.ToHSV(img)
	brightness, contrast := stat.PopMeanStdDev(planes.Lum.Pix, nil)

	laplacian := imaging.Laplacian(planes.Lum)
	var sharpness float64
	if len(laplacian) > 1 {
		sharpness = stat.Variance(laplacian, nil)
	}

	edges := imaging.SobelMagnitude(planes.Lum)
	counts := mc.countRegions(planes, edges)
	total := float64(width * height)

	return Metrics{
		Width:          width,
		Height:         height,
		Brightness:     brightness,
		Contrast:       contrast,
		Sharpness:      sharpness,
		ShadowRatio:    float64(counts.shadow) / total,
		HighlightRatio: float64(counts.highlight) / total,
		Cloudiness:     float64(counts.cloud) / total,
		RoofVisibility: float64(counts.edge) / total,
		AvgSaturation:  counts.saturation / total,
	}
}

type regionCounts struct {
	shadow, highlight, cloud, edge int
	saturation                     float64
}

// countRegions processes the planes in horizontal strips for better cache locality
func (mc *metricsCalculator) countRegions(planes *imaging.HSV, edges *imaging.Plane) regionCounts {
	width, height := planes.Width, planes.Height

	numWorkers := runtime.NumCPU()
	if height < numWorkers {
		numWorkers = height
	}
	if numWorkers <= 0 {
		numWorkers = 1
	}
	rowsPerWorker := (height + numWorkers - 1) / numWorkers // ceil division

	// Indexed per strip so the float sum order is stable across runs.
	results := make([]regionCounts, numWorkers)
	var wg sync.WaitGroup

	for i := 0; i < numWorkers; i++ {
		startY := i * rowsPerWorker
		endY := min(startY+rowsPerWorker, height)
		if startY >= endY {
			continue
		}
		wg.Add(1)
		go func(i, startY, endY int) {
			defer wg.Done()

			var rc regionCounts
			for y := startY; y < endY; y++ {
				for x := 0; x < width; x++ {
					idx := y*width + x
					lum := planes.Lum.Pix[idx]
					sat := planes.S.Pix[idx]
					rc.saturation += sat
					if lum < mc.cfg.ShadowLuminance {
						rc.shadow++
					}
					if lum > mc.cfg.HighlightLuminance {
						rc.highlight++
					}
					if lum > mc.cfg.CloudLuminance && sat < mc.cfg.CloudSaturation {
						rc.cloud++
					}
					if edges.Pix[idx] > mc.cfg.EdgeMagnitude {
						rc.edge++
					}
				}
			}
			results[i] = rc
		}(i, startY, endY)
	}
	wg.Wait()

	var total regionCounts
	for _, rc := range results {
		total.shadow += rc.shadow
		total.highlight += rc.highlight
		total.cloud += rc.cloud
		total.edge += rc.edge
		total.saturation += rc.saturation
	}
	return total
}

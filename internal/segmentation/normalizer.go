// Package segmentation isolates the roof in an overhead image and produces a
// rotation-corrected, canonical-size view with its mask.
package segmentation

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"go-roof-inspector/internal/imaging"
	"go-roof-inspector/internal/logger"
	"go-roof-inspector/pkg/heuristics"
	"go-roof-inspector/pkg/models"
)

// Normalizer turns an ImageAsset into a NormalizedRoofView. It never fails.
type Normalizer struct {
	cfg heuristics.SegmentationHeuristics
}

// NewNormalizer creates a normalizer bound to the given heuristics.
func NewNormalizer(cfg heuristics.SegmentationHeuristics) *Normalizer {
	return &Normalizer{cfg: cfg}
}

// Generate segments, rotates, crops and resizes the asset image.
// When no roof-like pixels survive refinement the fixed central fallback
// mask is used and the full frame is kept, so coverage stays positive.
func (n *Normalizer) Generate(asset *models.ImageAsset) models.NormalizedRoofView {
	img := n.sourceImage(asset)
	mask := n.RoofMask(img)

	if mask.Count() == 0 {
		logger.WithField("stage", "segmentation").Warn("Roof mask empty after refinement, using fallback geometry")
		return n.fallbackView(img)
	}

	rotation := DominantAngleCorrection(mask)

	rotatedImg := imaging.ToRGBA(img)
	rotatedMask := mask.ToGray()
	if rotation != 0 {
		rotatedImg = imaging.RotateRGBA(img, rotation)
		rotatedMask = imaging.RotateGray(rotatedMask, rotation)
	}

	bbox := imaging.MaskFromGray(rotatedMask).Bounds()
	if bbox.Empty() {
		logger.WithField("stage", "segmentation").Warn("Roof mask lost during rotation, using fallback geometry")
		return n.fallbackView(img)
	}

	w, h := n.cfg.CanonicalWidth, n.cfg.CanonicalHeight
	outImg := imaging.ResizeRGBA(rotatedImg, bbox, w, h)
	outMask := imaging.ResizeGray(rotatedMask, bbox, w, h)
	coverage := imaging.MaskFromGray(outMask).Ratio()
	if coverage <= 0 {
		return n.fallbackView(img)
	}

	return models.NormalizedRoofView{
		RotationDegrees: rotation,
		CoverageRatio:   imaging.Clamp01(coverage),
		SourceBBox:      models.BoundingBoxFromRect(bbox),
		Resolution:      models.Resolution{Width: w, Height: h},
		Image:           outImg,
		Mask:            outMask,
	}
}

// RoofMask builds the refined roof-like mask: mid-range value, low saturation,
// despeckled then closed.
func (n *Normalizer) RoofMask(img image.Image) *imaging.Mask {
	planes := imaging.ToHSV(img)
	mask := imaging.NewMask(planes.Width, planes.Height)
	for i := range mask.Bits {
		v := planes.V.Pix[i]
		mask.Bits[i] = v >= n.cfg.MinValue && v <= n.cfg.MaxValue && planes.S.Pix[i] <= n.cfg.MaxSaturation
	}
	return imaging.Close(imaging.Despeckle(mask), n.cfg.ClosingRadius)
}

// FallbackMask covers the central rectangle between FallbackMin and FallbackMax
// of each dimension.
func (n *Normalizer) FallbackMask(width, height int) *imaging.Mask {
	m := imaging.NewMask(width, height)
	x0 := int(math.Round(n.cfg.FallbackMin * float64(width)))
	x1 := int(math.Round(n.cfg.FallbackMax * float64(width)))
	y0 := int(math.Round(n.cfg.FallbackMin * float64(height)))
	y1 := int(math.Round(n.cfg.FallbackMax * float64(height)))
	if x1 <= x0 {
		x1 = min(x0+1, width)
	}
	if y1 <= y0 {
		y1 = min(y0+1, height)
	}
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			m.Set(x, y, true)
		}
	}
	return m
}

func (n *Normalizer) fallbackView(img image.Image) models.NormalizedRoofView {
	b := img.Bounds()
	w, h := n.cfg.CanonicalWidth, n.cfg.CanonicalHeight

	full := image.Rect(0, 0, b.Dx(), b.Dy())
	outImg := imaging.ResizeRGBA(imaging.ToRGBA(img), full, w, h)
	outMask := n.FallbackMask(w, h).ToGray()

	return models.NormalizedRoofView{
		RotationDegrees: 0,
		CoverageRatio:   imaging.Clamp01(imaging.MaskFromGray(outMask).Ratio()),
		SourceBBox:      models.BoundingBoxFromRect(full),
		Resolution:      models.Resolution{Width: w, Height: h},
		FallbackMask:    true,
		Image:           outImg,
		Mask:            outMask,
	}
}

// sourceImage returns the decoded asset image, or a blank frame when the
// asset carries nothing decodable.
func (n *Normalizer) sourceImage(asset *models.ImageAsset) image.Image {
	if asset != nil && asset.Image != nil && !asset.Image.Bounds().Empty() {
		return asset.Image
	}
	if asset != nil && len(asset.Data) > 0 {
		if img, _, err := imaging.Decode(asset.Data); err == nil {
			return img
		}
	}
	blank := image.NewRGBA(image.Rect(0, 0, n.cfg.CanonicalWidth, n.cfg.CanonicalHeight))
	draw.Draw(blank, blank.Bounds(), image.NewUniform(color.Black), image.Point{}, draw.Src)
	return blank
}

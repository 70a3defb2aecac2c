// Package imaging holds the pixel-level primitives shared by the quality,
// segmentation, anomaly and street-level stages.
package imaging

import (
	"image"
	"math"
)

// Plane is a single float channel in row-major order.
type Plane struct {
	Width, Height int
	Pix           []float64
}

// NewPlane allocates a zeroed plane.
func NewPlane(width, height int) *Plane {
	return &Plane{Width: width, Height: height, Pix: make([]float64, width*height)}
}

// At returns the value at (x, y), clamping coordinates to the plane edge.
func (p *Plane) At(x, y int) float64 {
	if x < 0 {
		x = 0
	} else if x >= p.Width {
		x = p.Width - 1
	}
	if y < 0 {
		y = 0
	} else if y >= p.Height {
		y = p.Height - 1
	}
	return p.Pix[y*p.Width+x]
}

// HSV holds hue (degrees), saturation and value planes plus luminance and raw channels.
type HSV struct {
	Width, Height int
	H, S, V       *Plane
	Lum           *Plane
	R, G, B       *Plane
}

// ToHSV converts an image into normalized [0,1] planes.
func ToHSV(img image.Image) *HSV {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	out := &HSV{
		Width: w, Height: h,
		H: NewPlane(w, h), S: NewPlane(w, h), V: NewPlane(w, h),
		Lum: NewPlane(w, h),
		R:   NewPlane(w, h), G: NewPlane(w, h), B: NewPlane(w, h),
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, b := pixelRGB(img, bounds.Min.X+x, bounds.Min.Y+y)
			i := y*w + x
			hh, s, v := RGBToHSV(r, g, b)
			out.H.Pix[i] = hh
			out.S.Pix[i] = s
			out.V.Pix[i] = v
			out.Lum.Pix[i] = Luminance(r, g, b)
			out.R.Pix[i] = r
			out.G.Pix[i] = g
			out.B.Pix[i] = b
		}
	}
	return out
}

// LuminancePlane computes Rec.601 luminance in [0,1].
func LuminancePlane(img image.Image) *Plane {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	out := NewPlane(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, b := pixelRGB(img, bounds.Min.X+x, bounds.Min.Y+y)
			out.Pix[y*w+x] = Luminance(r, g, b)
		}
	}
	return out
}

func pixelRGB(img image.Image, x, y int) (r, g, b float64) {
	if rgba, ok := img.(*image.RGBA); ok {
		i := rgba.PixOffset(x, y)
		return float64(rgba.Pix[i]) / 255.0, float64(rgba.Pix[i+1]) / 255.0, float64(rgba.Pix[i+2]) / 255.0
	}
	rVal, gVal, bVal, _ := img.At(x, y).RGBA()
	return float64(rVal) / 65535.0, float64(gVal) / 65535.0, float64(bVal) / 65535.0
}

// Luminance returns Rec.601 luma for normalized channels.
func Luminance(r, g, b float64) float64 {
	return 0.299*r + 0.587*g + 0.114*b
}

// RGBToHSV converts normalized RGB to hue in degrees, saturation and value in [0,1].
func RGBToHSV(r, g, b float64) (h, s, v float64) {
	max := math.Max(r, math.Max(g, b))
	min := math.Min(r, math.Min(g, b))
	delta := max - min

	v = max

	if max == 0 {
		s = 0
	} else {
		s = delta / max
	}

	if delta == 0 {
		h = 0
	} else if max == r {
		h = 60 * (((g - b) / delta) + 0)
	} else if max == g {
		h = 60 * (((b - r) / delta) + 2)
	} else {
		h = 60 * (((r - g) / delta) + 4)
	}

	if h < 0 {
		h += 360
	}

	return h, s, v
}

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Clamp01 bounds v to [0, 1].
func Clamp01(v float64) float64 {
	return Clamp(v, 0, 1)
}

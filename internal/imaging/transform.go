package imaging

import (
	"image"
	"math"

	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
)

// RotatedBounds returns the canvas size that holds a w×h image rotated by deg.
func RotatedBounds(w, h int, deg float64) (int, int) {
	rad := deg * math.Pi / 180
	c, s := math.Abs(math.Cos(rad)), math.Abs(math.Sin(rad))
	nw := int(math.Ceil(float64(w)*c + float64(h)*s - 1e-9))
	nh := int(math.Ceil(float64(w)*s + float64(h)*c - 1e-9))
	return max(nw, 1), max(nh, 1)
}

// rotationMatrix maps source pixels onto a canvas centred on the same point,
// rotating clockwise on screen (y grows downward) for positive degrees.
func rotationMatrix(src image.Rectangle, dstW, dstH int, deg float64) f64.Aff3 {
	rad := deg * math.Pi / 180
	c, s := math.Cos(rad), math.Sin(rad)
	cx := float64(src.Min.X) + float64(src.Dx())/2
	cy := float64(src.Min.Y) + float64(src.Dy())/2
	dx, dy := float64(dstW)/2, float64(dstH)/2
	return f64.Aff3{
		c, -s, dx - (c*cx - s*cy),
		s, c, dy - (s*cx + c*cy),
	}
}

// RotateRGBA rotates an image with smooth interpolation, expanding the canvas.
func RotateRGBA(src image.Image, deg float64) *image.RGBA {
	b := src.Bounds()
	w, h := RotatedBounds(b.Dx(), b.Dy(), deg)
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.BiLinear.Transform(dst, rotationMatrix(b, w, h, deg), src, b, draw.Src, nil)
	return dst
}

// RotateGray rotates a mask image with nearest-neighbour sampling, expanding the canvas.
func RotateGray(src *image.Gray, deg float64) *image.Gray {
	b := src.Bounds()
	w, h := RotatedBounds(b.Dx(), b.Dy(), deg)
	dst := image.NewGray(image.Rect(0, 0, w, h))
	draw.NearestNeighbor.Transform(dst, rotationMatrix(b, w, h, deg), src, b, draw.Src, nil)
	return dst
}

// ResizeRGBA crops r out of src and scales it to w×h with Catmull-Rom interpolation.
func ResizeRGBA(src image.Image, r image.Rectangle, w, h int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, r, draw.Src, nil)
	return dst
}

// ResizeGray crops r out of a mask and scales it to w×h with nearest-neighbour sampling.
func ResizeGray(src *image.Gray, r image.Rectangle, w, h int) *image.Gray {
	dst := image.NewGray(image.Rect(0, 0, w, h))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), src, r, draw.Src, nil)
	return dst
}

// ToRGBA copies any image into a zero-origin RGBA buffer.
func ToRGBA(src image.Image) *image.RGBA {
	if rgba, ok := src.(*image.RGBA); ok && rgba.Bounds().Min == (image.Point{}) {
		return rgba
	}
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	return dst
}

package imaging

import "math"

// SobelMagnitude returns the normalized Sobel gradient magnitude of a plane.
// Border pixels replicate the edge so the output has the input's size.
func SobelMagnitude(p *Plane) *Plane {
	out := NewPlane(p.Width, p.Height)
	for y := 0; y < p.Height; y++ {
		for x := 0; x < p.Width; x++ {
			// Paired differences keep flat regions at exactly zero.
			gx := (p.At(x+1, y-1) - p.At(x-1, y-1)) +
				2*(p.At(x+1, y)-p.At(x-1, y)) +
				(p.At(x+1, y+1) - p.At(x-1, y+1))
			gy := (p.At(x-1, y+1) - p.At(x-1, y-1)) +
				2*(p.At(x, y+1)-p.At(x, y-1)) +
				(p.At(x+1, y+1) - p.At(x+1, y-1))
			// Max raw magnitude for inputs in [0,1] is 4*sqrt(2).
			out.Pix[y*p.Width+x] = math.Sqrt(gx*gx+gy*gy) / (4 * math.Sqrt2)
		}
	}
	return out
}

// Laplacian returns the 4-neighbour Laplacian response for interior pixels,
// scaled to 8-bit intensity units.
func Laplacian(p *Plane) []float64 {
	if p.Width < 3 || p.Height < 3 {
		return nil
	}
	data := make([]float64, 0, (p.Width-2)*(p.Height-2))

	// Laplacian kernel: [0, 1, 0; 1, -4, 1; 0, 1, 0]
	for y := 1; y < p.Height-1; y++ {
		for x := 1; x < p.Width-1; x++ {
			center := p.Pix[y*p.Width+x]
			top := p.Pix[(y-1)*p.Width+x]
			bottom := p.Pix[(y+1)*p.Width+x]
			left := p.Pix[y*p.Width+x-1]
			right := p.Pix[y*p.Width+x+1]
			data = append(data, 255*(-4*center+top+bottom+left+right))
		}
	}
	return data
}

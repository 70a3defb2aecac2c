package imaging

import "image"

// Mask is a binary pixel mask in row-major order.
type Mask struct {
	Width, Height int
	Bits          []bool
}

// NewMask allocates an empty mask.
func NewMask(width, height int) *Mask {
	return &Mask{Width: width, Height: height, Bits: make([]bool, width*height)}
}

// Get reports the bit at (x, y); out-of-range coordinates are false.
func (m *Mask) Get(x, y int) bool {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return false
	}
	return m.Bits[y*m.Width+x]
}

// Set assigns the bit at (x, y).
func (m *Mask) Set(x, y int, v bool) {
	m.Bits[y*m.Width+x] = v
}

// Count returns the number of set bits.
func (m *Mask) Count() int {
	n := 0
	for _, b := range m.Bits {
		if b {
			n++
		}
	}
	return n
}

// Ratio returns the fraction of set bits.
func (m *Mask) Ratio() float64 {
	if len(m.Bits) == 0 {
		return 0
	}
	return float64(m.Count()) / float64(len(m.Bits))
}

// Bounds returns the tight bounding rectangle of set bits, or an empty
// rectangle when none are set.
func (m *Mask) Bounds() image.Rectangle {
	minX, minY, maxX, maxY := m.Width, m.Height, -1, -1
	for y := 0; y < m.Height; y++ {
		row := m.Bits[y*m.Width : (y+1)*m.Width]
		for x, b := range row {
			if !b {
				continue
			}
			if x < minX {
				minX = x
			}
			if x > maxX {
				maxX = x
			}
			if y < minY {
				minY = y
			}
			if y > maxY {
				maxY = y
			}
		}
	}
	if maxX < 0 {
		return image.Rectangle{}
	}
	return image.Rect(minX, minY, maxX+1, maxY+1)
}

// And returns a new mask of bits set in both m and other.
func (m *Mask) And(other *Mask) *Mask {
	out := NewMask(m.Width, m.Height)
	for i := range m.Bits {
		out.Bits[i] = m.Bits[i] && other.Bits[i]
	}
	return out
}

// ToGray renders the mask as 0/255 pixels.
func (m *Mask) ToGray() *image.Gray {
	g := image.NewGray(image.Rect(0, 0, m.Width, m.Height))
	for i, b := range m.Bits {
		if b {
			g.Pix[(i/m.Width)*g.Stride+i%m.Width] = 255
		}
	}
	return g
}

// MaskFromGray thresholds a gray image at mid intensity.
func MaskFromGray(g *image.Gray) *Mask {
	bounds := g.Bounds()
	m := NewMask(bounds.Dx(), bounds.Dy())
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			m.Bits[y*m.Width+x] = g.GrayAt(bounds.Min.X+x, bounds.Min.Y+y).Y >= 128
		}
	}
	return m
}

// Despeckle applies a 3x3 majority filter, removing isolated pixels and
// filling isolated holes.
func Despeckle(m *Mask) *Mask {
	out := NewMask(m.Width, m.Height)
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			set, total := 0, 0
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					nx, ny := x+dx, y+dy
					if nx < 0 || ny < 0 || nx >= m.Width || ny >= m.Height {
						continue
					}
					total++
					if m.Bits[ny*m.Width+nx] {
						set++
					}
				}
			}
			out.Bits[y*m.Width+x] = set*2 > total
		}
	}
	return out
}

// Dilate grows the mask with a (2r+1) square structuring element.
func Dilate(m *Mask, r int) *Mask {
	return morph(m, r, func(set, total int) bool { return set > 0 })
}

// Erode shrinks the mask with a (2r+1) square structuring element.
// Out-of-range neighbours are ignored so edges do not erode.
func Erode(m *Mask, r int) *Mask {
	return morph(m, r, func(set, total int) bool { return set == total })
}

// Close fills gaps smaller than the structuring element (dilate then erode).
func Close(m *Mask, r int) *Mask {
	if r <= 0 {
		return m
	}
	return Erode(Dilate(m, r), r)
}

// morph runs a separable window pass, rows then columns.
func morph(m *Mask, r int, keep func(set, total int) bool) *Mask {
	if r <= 0 {
		out := NewMask(m.Width, m.Height)
		copy(out.Bits, m.Bits)
		return out
	}
	w, h := m.Width, m.Height
	tmp := NewMask(w, h)
	prefix := make([]int, max(w, h)+1)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			prefix[x+1] = prefix[x]
			if m.Bits[y*w+x] {
				prefix[x+1]++
			}
		}
		for x := 0; x < w; x++ {
			lo, hi := max(0, x-r), min(w-1, x+r)
			tmp.Bits[y*w+x] = keep(prefix[hi+1]-prefix[lo], hi-lo+1)
		}
	}

	out := NewMask(w, h)
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			prefix[y+1] = prefix[y]
			if tmp.Bits[y*w+x] {
				prefix[y+1]++
			}
		}
		for y := 0; y < h; y++ {
			lo, hi := max(0, y-r), min(h-1, y+r)
			out.Bits[y*w+x] = keep(prefix[hi+1]-prefix[lo], hi-lo+1)
		}
	}
	return out
}

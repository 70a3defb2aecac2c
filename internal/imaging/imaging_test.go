package imaging

import (
	"image"
	"image/color"
	"math"
	"testing"
)

func fill(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func TestRGBToHSV(t *testing.T) {
	tests := []struct {
		name    string
		r, g, b float64
		h, s, v float64
	}{
		{"red", 1, 0, 0, 0, 1, 1},
		{"green", 0, 1, 0, 120, 1, 1},
		{"blue", 0, 0, 1, 240, 1, 1},
		{"gray", 0.5, 0.5, 0.5, 0, 0, 0.5},
		{"black", 0, 0, 0, 0, 0, 0},
		{"magenta", 1, 0, 1, 300, 1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, s, v := RGBToHSV(tt.r, tt.g, tt.b)
			if math.Abs(h-tt.h) > 1e-9 || math.Abs(s-tt.s) > 1e-9 || math.Abs(v-tt.v) > 1e-9 {
				t.Errorf("RGBToHSV(%v,%v,%v) = (%v,%v,%v), want (%v,%v,%v)", tt.r, tt.g, tt.b, h, s, v, tt.h, tt.s, tt.v)
			}
		})
	}
}

func TestToHSV_OffsetBounds(t *testing.T) {
	img := fill(10, 10, color.RGBA{200, 50, 50, 255})
	sub := img.SubImage(image.Rect(2, 3, 7, 9))

	planes := ToHSV(sub)
	if planes.Width != 5 || planes.Height != 6 {
		t.Fatalf("expected 5x6 planes, got %dx%d", planes.Width, planes.Height)
	}
	if math.Abs(planes.R.Pix[0]-200.0/255.0) > 1e-9 {
		t.Errorf("unexpected red channel %f", planes.R.Pix[0])
	}
}

func TestSobelMagnitude(t *testing.T) {
	for _, level := range []float64{0.4, 0.1, 1.0 / 3.0, 0.7} {
		flat := NewPlane(8, 8)
		for i := range flat.Pix {
			flat.Pix[i] = level
		}
		for _, v := range SobelMagnitude(flat).Pix {
			if v != 0 {
				t.Fatalf("expected zero gradient on flat plane %v, got %g", level, v)
			}
		}
	}

	step := NewPlane(8, 8)
	for y := 0; y < 8; y++ {
		for x := 4; x < 8; x++ {
			step.Pix[y*8+x] = 1
		}
	}
	mag := SobelMagnitude(step)
	if mag.Pix[4*8+4] < 0.5 || mag.Pix[4*8+1] != 0 {
		t.Errorf("expected strong response at the step only, got %f and %f", mag.Pix[4*8+4], mag.Pix[4*8+1])
	}
	for _, v := range mag.Pix {
		if v < 0 || v > 1 {
			t.Fatalf("gradient %f outside [0,1]", v)
		}
	}
}

func TestLaplacian(t *testing.T) {
	if got := Laplacian(NewPlane(2, 2)); got != nil {
		t.Errorf("expected nil for tiny plane, got %v", got)
	}
	p := NewPlane(5, 5)
	p.Pix[2*5+2] = 1
	data := Laplacian(p)
	if len(data) != 9 {
		t.Fatalf("expected 9 interior samples, got %d", len(data))
	}
	if data[4] != -4*255 {
		t.Errorf("expected centre response %d, got %f", -4*255, data[4])
	}
}

func TestMaskMorphology(t *testing.T) {
	m := NewMask(20, 20)
	for y := 5; y < 15; y++ {
		for x := 5; x < 15; x++ {
			m.Set(x, y, true)
		}
	}
	// one-pixel gap across the square
	for y := 5; y < 15; y++ {
		m.Set(10, y, false)
	}
	// isolated speck
	m.Set(1, 1, true)

	cleaned := Despeckle(m)
	if cleaned.Get(1, 1) {
		t.Error("despeckle should remove isolated pixel")
	}

	closed := Close(cleaned, 2)
	if !closed.Get(10, 10) {
		t.Error("close should bridge the one-pixel gap")
	}
	if closed.Get(2, 2) {
		t.Error("close should not grow into empty corners")
	}

	if b := closed.Bounds(); b != image.Rect(5, 5, 15, 15) {
		t.Errorf("unexpected bounds %v", b)
	}
}

func TestMaskBoundsEmpty(t *testing.T) {
	m := NewMask(4, 4)
	if !m.Bounds().Empty() {
		t.Error("expected empty bounds for empty mask")
	}
	if m.Ratio() != 0 {
		t.Errorf("expected zero ratio, got %f", m.Ratio())
	}
}

func TestMaskGrayRoundTrip(t *testing.T) {
	m := NewMask(6, 4)
	m.Set(0, 0, true)
	m.Set(5, 3, true)
	back := MaskFromGray(m.ToGray())
	if back.Count() != 2 || !back.Get(5, 3) {
		t.Errorf("round trip lost bits: count=%d", back.Count())
	}
}

func TestRotatedBounds(t *testing.T) {
	tests := []struct {
		w, h   int
		deg    float64
		ww, wh int
	}{
		{10, 20, 0, 10, 20},
		{10, 20, 90, 20, 10},
		{10, 10, 45, 15, 15},
	}
	for _, tt := range tests {
		w, h := RotatedBounds(tt.w, tt.h, tt.deg)
		if w != tt.ww || h != tt.wh {
			t.Errorf("RotatedBounds(%d,%d,%v) = %dx%d, want %dx%d", tt.w, tt.h, tt.deg, w, h, tt.ww, tt.wh)
		}
	}
}

func TestRotateRGBA_Clockwise(t *testing.T) {
	img := fill(21, 21, color.RGBA{0, 0, 0, 255})
	for y := 1; y <= 3; y++ {
		for x := 9; x <= 11; x++ {
			img.SetRGBA(x, y, color.RGBA{255, 255, 255, 255})
		}
	}

	rotated := RotateRGBA(img, 90)
	if rotated.Bounds().Dx() != 21 || rotated.Bounds().Dy() != 21 {
		t.Fatalf("unexpected rotated size %v", rotated.Bounds())
	}
	if c := rotated.RGBAAt(18, 10); c.R < 200 {
		t.Errorf("expected top marker on the right after clockwise turn, got %v", c)
	}
	if c := rotated.RGBAAt(2, 10); c.R > 50 {
		t.Errorf("expected left side dark, got %v", c)
	}
}

func TestResize(t *testing.T) {
	img := fill(40, 40, color.RGBA{10, 200, 30, 255})
	out := ResizeRGBA(img, image.Rect(10, 10, 30, 30), 64, 32)
	if out.Bounds().Dx() != 64 || out.Bounds().Dy() != 32 {
		t.Fatalf("unexpected size %v", out.Bounds())
	}
	if c := out.RGBAAt(32, 16); c.G < 190 {
		t.Errorf("unexpected colour %v", c)
	}

	g := NewMask(10, 10)
	g.Set(0, 0, true)
	small := ResizeGray(g.ToGray(), image.Rect(0, 0, 10, 10), 20, 20)
	if small.GrayAt(0, 0).Y != 255 || small.GrayAt(19, 19).Y != 0 {
		t.Error("nearest-neighbour resize should keep hard mask values")
	}
}

func TestCodecRoundTrip(t *testing.T) {
	img := fill(8, 8, color.RGBA{1, 2, 3, 255})
	data, err := EncodePNG(img)
	if err != nil {
		t.Fatalf("EncodePNG failed: %v", err)
	}
	decoded, ct, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if ct != ContentTypePNG || Extension(ct) != "png" {
		t.Errorf("unexpected content type %q", ct)
	}
	if decoded.Bounds().Dx() != 8 {
		t.Errorf("unexpected bounds %v", decoded.Bounds())
	}

	if _, _, err := Decode(nil); err == nil {
		t.Error("expected error for empty payload")
	}
	if _, _, err := Decode([]byte("not an image")); err == nil {
		t.Error("expected error for garbage payload")
	}
	if _, ok := CaptureTime(data); ok {
		t.Error("png without exif should have no capture time")
	}
}

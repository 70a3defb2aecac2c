package segmentation

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"go-roof-inspector/internal/imaging"
)

// isotropyTolerance is the relative eigenvalue gap below which the mask has
// no dominant axis.
const isotropyTolerance = 1e-6

// PrincipalAxisAngle returns the angle in degrees of the mask's major axis,
// measured from the +x axis towards +y (clockwise on screen), in (-90, 90].
// It returns 0 when fewer than two pixels are set or the spread is isotropic.
func PrincipalAxisAngle(m *imaging.Mask) float64 {
	n := m.Count()
	if n < 2 {
		return 0
	}
	rows := make([]float64, 0, n)
	cols := make([]float64, 0, n)
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			if m.Bits[y*m.Width+x] {
				rows = append(rows, float64(y))
				cols = append(cols, float64(x))
			}
		}
	}

	varR := stat.Variance(rows, nil)
	varC := stat.Variance(cols, nil)
	cov := stat.Covariance(rows, cols, nil)

	sym := mat.NewSymDense(2, []float64{
		varR, cov,
		cov, varC,
	})
	var eig mat.EigenSym
	if ok := eig.Factorize(sym, true); !ok {
		return 0
	}
	values := eig.Values(nil)
	major, minor := 0, 1
	if values[1] > values[0] {
		major, minor = 1, 0
	}
	if values[major]-values[minor] <= isotropyTolerance*math.Max(math.Abs(values[major]), 1) {
		return 0
	}

	var vecs mat.Dense
	eig.VectorsTo(&vecs)
	vRow, vCol := vecs.At(0, major), vecs.At(1, major)

	return normalizeAxis(math.Atan2(vRow, vCol) * 180 / math.Pi)
}

// DominantAngleCorrection is the rotation that brings the major axis to horizontal.
func DominantAngleCorrection(m *imaging.Mask) float64 {
	return normalizeAxis(-PrincipalAxisAngle(m))
}

// normalizeAxis maps an undirected axis angle into (-90, 90].
func normalizeAxis(deg float64) float64 {
	a := math.Mod(deg, 180)
	if a <= -90 {
		a += 180
	} else if a > 90 {
		a -= 180
	}
	if a == 0 {
		return 0 // drop negative zero
	}
	return a
}

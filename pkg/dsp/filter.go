package dsp

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// normalized returns b and a padded to equal length with a[0] == 1.
func (f Filter) normalized() (b, a []float64) {
	n := max(len(f.B), len(f.A))
	b = make([]float64, n)
	a = make([]float64, n)
	copy(b, f.B)
	copy(a, f.A)
	if a[0] != 1 {
		a0 := a[0]
		for i := range a {
			a[i] /= a0
			b[i] /= a0
		}
	}
	return b, a
}

// LFilter filters x with the direct form II transposed structure starting from
// the state zi (nil means zero state). It returns the output and final state.
func LFilter(f Filter, x, zi []float64) (y, zf []float64) {
	b, a := f.normalized()
	n := len(a)
	z := make([]float64, n-1)
	copy(z, zi)
	y = make([]float64, len(x))

	for i, xi := range x {
		if n == 1 {
			y[i] = b[0] * xi
			continue
		}
		yi := b[0]*xi + z[0]
		for j := 0; j < n-2; j++ {
			z[j] = b[j+1]*xi + z[j+1] - a[j+1]*yi
		}
		z[n-2] = b[n-1]*xi - a[n-1]*yi
		y[i] = yi
	}
	return y, z
}

// LFilterZi computes the initial state for LFilter that corresponds to the
// steady state of the step response.
func LFilterZi(f Filter) ([]float64, error) {
	b, a := f.normalized()
	n := len(a) - 1
	if n == 0 {
		return nil, nil
	}

	// (I - companion(a)^T) zi = b[1:] - a[1:]*b[0]
	m := mat.NewDense(n, n, nil)
	rhs := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		m.Set(i, i, 1)
		m.Set(i, 0, m.At(i, 0)+a[i+1])
		if i+1 < n {
			m.Set(i, i+1, m.At(i, i+1)-1)
		}
		rhs.SetVec(i, b[i+1]-a[i+1]*b[0])
	}

	var zi mat.VecDense
	if err := zi.SolveVec(m, rhs); err != nil {
		return nil, fmt.Errorf("solve initial state: %w", err)
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = zi.AtVec(i)
	}
	return out, nil
}

// PadLen returns the odd-extension length used by FiltFilt.
func (f Filter) PadLen() int {
	return 3 * max(len(f.A), len(f.B))
}

// FiltFilt applies the filter forward and backward for zero phase distortion.
// The signal is extended at both ends by odd reflection of PadLen samples.
func FiltFilt(f Filter, x []float64) ([]float64, error) {
	edge := f.PadLen()
	if len(x) <= edge {
		return nil, fmt.Errorf("%w: %d samples, need more than %d", ErrSignalTooShort, len(x), edge)
	}

	zi, err := LFilterZi(f)
	if err != nil {
		return nil, err
	}

	ext := oddExtend(x, edge)
	y, _ := LFilter(f, ext, scaled(zi, ext[0]))
	reverse(y)
	y, _ = LFilter(f, y, scaled(zi, y[0]))
	reverse(y)

	out := make([]float64, len(x))
	copy(out, y[edge:edge+len(x)])
	return out, nil
}

// oddExtend reflects n samples about each endpoint of x.
func oddExtend(x []float64, n int) []float64 {
	last := len(x) - 1
	ext := make([]float64, 0, len(x)+2*n)
	for i := n; i >= 1; i-- {
		ext = append(ext, 2*x[0]-x[i])
	}
	ext = append(ext, x...)
	for i := 1; i <= n; i++ {
		ext = append(ext, 2*x[last]-x[last-i])
	}
	return ext
}

func scaled(v []float64, s float64) []float64 {
	out := make([]float64, len(v))
	for i := range v {
		out[i] = v[i] * s
	}
	return out
}

func reverse(v []float64) {
	for i, j := 0, len(v)-1; i < j; i, j = i+1, j-1 {
		v[i], v[j] = v[j], v[i]
	}
}

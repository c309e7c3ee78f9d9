// Package csp implements Common Spatial Pattern filters and the
// one-vs-rest feature extractor built on them.
package csp

import (
	"errors"
	"fmt"
	"math"

	"mi-bci/pkg/linalg"

	"gonum.org/v1/gonum/mat"
)

var (
	// ErrSingleClass is returned when a binary fit sees only one class.
	ErrSingleClass = errors.New("both classes must be present")

	// ErrDegenerateCovariance is returned when a class covariance is not
	// positive definite after regularization.
	ErrDegenerateCovariance = errors.New("degenerate class covariance")

	// ErrProjection is returned when projected features are not finite.
	ErrProjection = errors.New("non-finite projected features")

	// ErrShape is returned for inconsistent epoch dimensions.
	ErrShape = errors.New("inconsistent epoch shape")
)

// negligibleVariance is the share of total variance below which a class is
// treated as carrying no signal.
const negligibleVariance = 1e-12

// Filter is a two-class CSP spatial filter. Fitted filters project a
// time × channel epoch onto Components spatial components and summarize
// each by its log average power.
type Filter struct {
	Components int
	Reg        float64

	weights     *mat.Dense // channels × Components
	eigenvalues []float64  // of the selected components
}

// NewFilter creates an unfitted filter.
func NewFilter(components int, reg float64) *Filter {
	return &Filter{Components: components, Reg: reg}
}

// Weights returns the channels × components projection matrix, or nil before Fit.
func (f *Filter) Weights() *mat.Dense {
	return f.weights
}

// Eigenvalues returns the generalized eigenvalues of the selected components.
func (f *Filter) Eigenvalues() []float64 {
	return f.eigenvalues
}

// Fit estimates the filter from epochs labelled 1 (target) or 0 (rest).
func (f *Filter) Fit(epochs []*mat.Dense, binary []int) error {
	if len(epochs) == 0 || len(epochs) != len(binary) {
		return fmt.Errorf("%d epochs for %d labels", len(epochs), len(binary))
	}
	_, channels := epochs[0].Dims()
	if f.Components < 1 || f.Components > channels {
		return fmt.Errorf("components %d out of range for %d channels", f.Components, channels)
	}

	var target, rest scatter
	for i, ep := range epochs {
		if _, c := ep.Dims(); c != channels {
			return fmt.Errorf("%w: epoch %d has %d channels, want %d", ErrShape, i, c, channels)
		}
		if binary[i] == 1 {
			target.add(ep)
		} else {
			rest.add(ep)
		}
	}
	if target.epochs == 0 || rest.epochs == 0 {
		return ErrSingleClass
	}

	covTarget := linalg.Shrink(target.covariance(), f.Reg)
	covRest := linalg.Shrink(rest.covariance(), f.Reg)
	total := mat.Trace(covTarget) + mat.Trace(covRest)
	for _, c := range []struct {
		name string
		cov  *mat.SymDense
	}{{"target", covTarget}, {"rest", covRest}} {
		if mat.Trace(c.cov) <= negligibleVariance*total {
			return fmt.Errorf("%w (%s): no variance", ErrDegenerateCovariance, c.name)
		}
		if err := linalg.CheckPositiveDefinite(c.cov, linalg.DefaultTolerance); err != nil {
			return fmt.Errorf("%w (%s): %v", ErrDegenerateCovariance, c.name, err)
		}
	}

	var composite mat.SymDense
	composite.AddSym(covTarget, covRest)
	values, vectors, err := linalg.GeneralizedSymEigen(covTarget, &composite)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDegenerateCovariance, err)
	}

	// Components with eigenvalues furthest from 0.5 discriminate best.
	order := linalg.OrderByDistance(values, 0.5)
	f.weights = mat.NewDense(channels, f.Components, nil)
	f.eigenvalues = make([]float64, f.Components)
	for k := 0; k < f.Components; k++ {
		f.weights.SetCol(k, mat.Col(nil, order[k], vectors))
		f.eigenvalues[k] = values[order[k]]
	}
	return nil
}

// Transform projects each epoch and returns an N × Components matrix of
// log average power.
func (f *Filter) Transform(epochs []*mat.Dense) (*mat.Dense, error) {
	if f.weights == nil {
		return nil, errors.New("filter not fitted")
	}
	channels, _ := f.weights.Dims()

	out := mat.NewDense(len(epochs), f.Components, nil)
	var projected mat.Dense
	for i, ep := range epochs {
		samples, c := ep.Dims()
		if c != channels {
			return nil, fmt.Errorf("%w: epoch %d has %d channels, want %d", ErrShape, i, c, channels)
		}
		projected.Reset()
		projected.Mul(ep, f.weights)
		for k := 0; k < f.Components; k++ {
			power := 0.0
			for t := 0; t < samples; t++ {
				v := projected.At(t, k)
				power += v * v
			}
			feature := math.Log(power / float64(samples))
			if math.IsNaN(feature) || math.IsInf(feature, 0) {
				return nil, fmt.Errorf("%w: epoch %d component %d", ErrProjection, i, k)
			}
			out.Set(i, k, feature)
		}
	}
	return out, nil
}

// scatter accumulates the sums needed for a covariance over concatenated epochs.
type scatter struct {
	epochs int
	n      int
	sum    []float64
	gram   *mat.SymDense
}

func (s *scatter) add(ep *mat.Dense) {
	rows, cols := ep.Dims()
	if s.gram == nil {
		s.sum = make([]float64, cols)
		s.gram = mat.NewSymDense(cols, nil)
	}
	var g mat.SymDense
	g.SymOuterK(1, ep.T())
	s.gram.AddSym(s.gram, &g)
	for t := 0; t < rows; t++ {
		for c, v := range ep.RawRowView(t) {
			s.sum[c] += v
		}
	}
	s.n += rows
	s.epochs++
}

// covariance returns the unbiased sample covariance of all added rows.
func (s *scatter) covariance() *mat.SymDense {
	p := len(s.sum)
	cov := mat.NewSymDense(p, nil)
	if s.n < 2 {
		return cov
	}
	n := float64(s.n)
	for i := 0; i < p; i++ {
		for j := i; j < p; j++ {
			v := (s.gram.At(i, j) - s.sum[i]*s.sum[j]/n) / (n - 1)
			cov.SetSym(i, j, v)
		}
	}
	return cov
}

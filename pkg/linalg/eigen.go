// Package linalg provides the small set of dense linear algebra routines used
// by spatial filtering and discriminant analysis.
package linalg

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
)

var (
	// ErrNotPositiveDefinite is returned when a matrix that must be
	// positive definite has a non-positive or negligible eigenvalue.
	ErrNotPositiveDefinite = errors.New("matrix is not positive definite")

	// ErrFactorization is returned when an eigen or singular value
	// decomposition does not converge.
	ErrFactorization = errors.New("factorization failed")
)

// DefaultTolerance is the relative eigenvalue floor used by CheckPositiveDefinite.
const DefaultTolerance = 1e-10

// SymEigen returns the eigenvalues of a in ascending order and the
// corresponding eigenvectors as the columns of the returned matrix.
func SymEigen(a mat.Symmetric) ([]float64, *mat.Dense, error) {
	var es mat.EigenSym
	if ok := es.Factorize(a, true); !ok {
		return nil, nil, ErrFactorization
	}
	values := es.Values(nil)
	var vectors mat.Dense
	es.VectorsTo(&vectors)
	return values, &vectors, nil
}

// CheckPositiveDefinite verifies that every eigenvalue of a exceeds tol
// times the largest eigenvalue, and that the largest is positive and finite.
func CheckPositiveDefinite(a mat.Symmetric, tol float64) error {
	values, _, err := SymEigen(a)
	if err != nil {
		return err
	}
	return checkValues(values, tol)
}

func checkValues(values []float64, tol float64) error {
	if len(values) == 0 {
		return fmt.Errorf("%w: empty matrix", ErrNotPositiveDefinite)
	}
	largest := values[len(values)-1]
	if !(largest > 0) || math.IsInf(largest, 0) {
		return fmt.Errorf("%w: largest eigenvalue %g", ErrNotPositiveDefinite, largest)
	}
	if values[0] <= tol*largest {
		return fmt.Errorf("%w: eigenvalue ratio %g", ErrNotPositiveDefinite, values[0]/largest)
	}
	return nil
}

// GeneralizedSymEigen solves a w = λ b w for symmetric a and symmetric
// positive definite b. Eigenvalues are returned in ascending order with the
// eigenvectors as columns, normalized so that Wᵀ b W = I.
func GeneralizedSymEigen(a, b mat.Symmetric) ([]float64, *mat.Dense, error) {
	n := a.SymmetricDim()
	if b.SymmetricDim() != n {
		return nil, nil, fmt.Errorf("dimension mismatch: %d vs %d", n, b.SymmetricDim())
	}

	bValues, bVectors, err := SymEigen(b)
	if err != nil {
		return nil, nil, err
	}
	if err := checkValues(bValues, DefaultTolerance); err != nil {
		return nil, nil, err
	}

	// Whitening transform P = D^-1/2 Uᵀ so that P b Pᵀ = I.
	whiten := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		s := 1 / math.Sqrt(bValues[i])
		for j := 0; j < n; j++ {
			whiten.Set(i, j, bVectors.At(j, i)*s)
		}
	}

	var tmp, whitened mat.Dense
	tmp.Mul(whiten, a)
	whitened.Mul(&tmp, whiten.T())

	values, vectors, err := SymEigen(Symmetrize(&whitened))
	if err != nil {
		return nil, nil, err
	}

	var w mat.Dense
	w.Mul(whiten.T(), vectors)
	return values, &w, nil
}

// Symmetrize returns (m + mᵀ)/2 as a SymDense. m must be square.
func Symmetrize(m mat.Matrix) *mat.SymDense {
	n, _ := m.Dims()
	s := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			s.SetSym(i, j, (m.At(i, j)+m.At(j, i))/2)
		}
	}
	return s
}

// OrderByDistance returns indices of values sorted by decreasing |v - center|.
// Ties keep ascending index order.
func OrderByDistance(values []float64, center float64) []int {
	idx := make([]int, len(values))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return math.Abs(values[idx[a]]-center) > math.Abs(values[idx[b]]-center)
	})
	return idx
}

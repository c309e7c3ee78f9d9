package linalg

import (
	"gonum.org/v1/gonum/mat"
)

// ThinSVD factorizes a = U diag(s) Vᵀ and returns s in descending order with
// U and V holding the min(r, c) leading singular vectors.
func ThinSVD(a mat.Matrix) ([]float64, *mat.Dense, *mat.Dense, error) {
	var svd mat.SVD
	if ok := svd.Factorize(a, mat.SVDThin); !ok {
		return nil, nil, nil, ErrFactorization
	}
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)
	return svd.Values(nil), &u, &v, nil
}

// Rank counts singular values above tol.
func Rank(values []float64, tol float64) int {
	r := 0
	for _, s := range values {
		if s > tol {
			r++
		}
	}
	return r
}

// PseudoInverse returns the Moore-Penrose inverse of a, discarding singular
// values at or below rcond times the largest.
func PseudoInverse(a mat.Matrix, rcond float64) (*mat.Dense, error) {
	rows, cols := a.Dims()
	values, u, v, err := ThinSVD(a)
	if err != nil {
		return nil, err
	}
	pinv := mat.NewDense(cols, rows, nil)
	if len(values) == 0 || values[0] == 0 {
		return pinv, nil
	}
	cutoff := rcond * values[0]
	for k, s := range values {
		if s <= cutoff {
			break
		}
		for i := 0; i < cols; i++ {
			vik := v.At(i, k) / s
			if vik == 0 {
				continue
			}
			for j := 0; j < rows; j++ {
				pinv.Set(i, j, pinv.At(i, j)+vik*u.At(j, k))
			}
		}
	}
	return pinv, nil
}

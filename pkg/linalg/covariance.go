package linalg

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// EmpiricalCovariance returns the maximum likelihood (divide by n) covariance
// of the rows of x.
func EmpiricalCovariance(x mat.Matrix) *mat.SymDense {
	n, p := x.Dims()
	cov := mat.NewSymDense(p, nil)
	if n < 2 {
		return cov
	}
	stat.CovarianceMatrix(cov, x, nil)
	cov.ScaleSym(float64(n-1)/float64(n), cov)
	return cov
}

// Shrink blends cov with a scaled identity: (1-s)·cov + s·μ·I where μ is the
// mean of the diagonal. cov is modified in place and returned.
func Shrink(cov *mat.SymDense, s float64) *mat.SymDense {
	p := cov.SymmetricDim()
	mu := mat.Trace(cov) / float64(p)
	for i := 0; i < p; i++ {
		for j := i; j < p; j++ {
			v := (1 - s) * cov.At(i, j)
			if i == j {
				v += s * mu
			}
			cov.SetSym(i, j, v)
		}
	}
	return cov
}

// LedoitWolfShrinkage estimates the optimal shrinkage intensity for the rows
// of x toward a scaled identity target.
func LedoitWolfShrinkage(x mat.Matrix) float64 {
	n, p := x.Dims()
	if n == 0 || p == 0 {
		return 0
	}
	if p == 1 {
		return 0
	}

	// Center columns.
	c := mat.DenseCopyOf(x)
	for j := 0; j < p; j++ {
		col := mat.Col(nil, j, c)
		m := stat.Mean(col, nil)
		for i := 0; i < n; i++ {
			c.Set(i, j, c.At(i, j)-m)
		}
	}

	var sq mat.Dense
	sq.MulElem(c, c)

	nf, pf := float64(n), float64(p)
	traceSum := 0.0
	for j := 0; j < p; j++ {
		for i := 0; i < n; i++ {
			traceSum += sq.At(i, j)
		}
	}
	traceSum /= nf
	mu := traceSum / pf

	var sqGram, gram mat.Dense
	sqGram.Mul(sq.T(), &sq)
	gram.Mul(c.T(), c)

	beta := mat.Sum(&sqGram)
	delta := 0.0
	for i := 0; i < p; i++ {
		for j := 0; j < p; j++ {
			v := gram.At(i, j)
			delta += v * v
		}
	}
	delta /= nf * nf

	beta = (beta/nf - delta) / (pf * nf)
	delta = (delta - 2*mu*traceSum + pf*mu*mu) / pf
	beta = math.Min(beta, delta)
	if beta == 0 || delta == 0 {
		return 0
	}
	return beta / delta
}

// LedoitWolfCovariance standardizes the columns of x, shrinks their
// covariance with the Ledoit-Wolf intensity and rescales the result back.
// Columns with zero spread are left unscaled.
func LedoitWolfCovariance(x mat.Matrix) *mat.SymDense {
	n, p := x.Dims()
	scale := make([]float64, p)
	z := mat.NewDense(n, p, nil)
	for j := 0; j < p; j++ {
		col := mat.Col(nil, j, x)
		m, v := stat.PopMeanVariance(col, nil)
		s := math.Sqrt(v)
		if s == 0 || math.IsNaN(s) {
			s = 1
		}
		scale[j] = s
		for i := 0; i < n; i++ {
			z.Set(i, j, (col[i]-m)/s)
		}
	}

	cov := Shrink(EmpiricalCovariance(z), LedoitWolfShrinkage(z))
	for i := 0; i < p; i++ {
		for j := i; j < p; j++ {
			cov.SetSym(i, j, cov.At(i, j)*scale[i]*scale[j])
		}
	}
	return cov
}

package classify

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Kernel families.
const (
	KernelLinear = "linear"
	KernelRBF    = "rbf"
)

// Automatic kernel scales.
const (
	// GammaScale uses 1 / (features · variance of X).
	GammaScale = "scale"
	// GammaAuto uses 1 / features.
	GammaAuto = "auto"
)

const (
	svmTolerance = 1e-3
	svmTau       = 1e-12
	svmMaxIter   = 100000
)

// SVM is a C-support vector classifier trained with sequential minimal
// optimization. Multi-class problems are decomposed one-vs-one and predicted
// by majority vote, ties going to the lower class index.
type SVM struct {
	C      float64
	Kernel string
	// Gamma is GammaScale, GammaAuto, or a positive float64.
	Gamma any

	gamma    float64
	classes  int
	features int
	pairs    []binarySVM
}

// binarySVM is the model for classes (pos, neg), pos < neg.
type binarySVM struct {
	pos, neg int
	support  *mat.Dense
	coef     []float64 // yᵢ·αᵢ per support vector
	rho      float64
}

// NewSVM validates parameters and returns an unfitted SVM.
func NewSVM(c float64, kernel string, gamma any) (*SVM, error) {
	if !(c > 0) {
		return nil, fmt.Errorf("%w: C must be positive, got %g", ErrInvalidCombination, c)
	}
	if kernel != KernelLinear && kernel != KernelRBF {
		return nil, fmt.Errorf("%w: unknown kernel %q", ErrInvalidCombination, kernel)
	}
	switch g := gamma.(type) {
	case string:
		if g != GammaScale && g != GammaAuto {
			return nil, fmt.Errorf("%w: unknown gamma %q", ErrInvalidCombination, g)
		}
	case float64:
		if !(g > 0) {
			return nil, fmt.Errorf("%w: gamma must be positive, got %g", ErrInvalidCombination, g)
		}
	default:
		return nil, fmt.Errorf("%w: gamma %v", ErrInvalidCombination, gamma)
	}
	return &SVM{C: c, Kernel: kernel, Gamma: gamma}, nil
}

// SVMFactory builds SVMs from grid parameters C, gamma and kernel.
func SVMFactory(p Params) (Classifier, error) {
	c, err := floatParam(p, "C")
	if err != nil {
		return nil, err
	}
	kernel, err := stringParam(p, "kernel")
	if err != nil {
		return nil, err
	}
	gamma, ok := p.Get("gamma")
	if !ok {
		return nil, fmt.Errorf("missing parameter %q", "gamma")
	}
	return NewSVM(c, kernel, gamma)
}

// Params implements Classifier.
func (s *SVM) Params() Params {
	return Params{{"C", s.C}, {"gamma", s.Gamma}, {"kernel", s.Kernel}}
}

// EffectiveGamma returns the kernel scale resolved during Fit.
func (s *SVM) EffectiveGamma() float64 {
	return s.gamma
}

// Fit implements Classifier.
func (s *SVM) Fit(x mat.Matrix, y []int) error {
	k, err := checkFitInput(x, y)
	if err != nil {
		return err
	}
	if k < 2 {
		return fmt.Errorf("%w: need at least two classes", ErrTooFewSamples)
	}
	s.gamma = s.resolveGamma(x)

	byClass := make([][]int, k)
	for i, v := range y {
		byClass[v] = append(byClass[v], i)
	}

	gram := s.gram(x)
	_, s.features = x.Dims()
	s.classes = k
	s.pairs = s.pairs[:0]
	for a := 0; a < k; a++ {
		for b := a + 1; b < k; b++ {
			if len(byClass[a]) == 0 || len(byClass[b]) == 0 {
				continue
			}
			s.pairs = append(s.pairs, s.fitPair(x, gram, a, b, byClass[a], byClass[b]))
		}
	}
	if len(s.pairs) == 0 {
		return fmt.Errorf("%w: need samples from at least two classes", ErrTooFewSamples)
	}
	return nil
}

func (s *SVM) resolveGamma(x mat.Matrix) float64 {
	_, cols := x.Dims()
	switch g := s.Gamma.(type) {
	case float64:
		return g
	case string:
		if g == GammaAuto {
			return 1 / float64(cols)
		}
	}
	rows, _ := x.Dims()
	flat := make([]float64, 0, rows*cols)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			flat = append(flat, x.At(i, j))
		}
	}
	_, variance := stat.PopMeanVariance(flat, nil)
	if variance == 0 {
		return 1
	}
	return 1 / (float64(cols) * variance)
}

func (s *SVM) kernel(a, b []float64) float64 {
	if s.Kernel == KernelLinear {
		return dot(a, b)
	}
	d := 0.0
	for i := range a {
		t := a[i] - b[i]
		d += t * t
	}
	return math.Exp(-s.gamma * d)
}

func (s *SVM) gram(x mat.Matrix) *mat.SymDense {
	rows, _ := x.Dims()
	data := rowsOf(x)
	g := mat.NewSymDense(rows, nil)
	for i := 0; i < rows; i++ {
		for j := i; j < rows; j++ {
			g.SetSym(i, j, s.kernel(data[i], data[j]))
		}
	}
	return g
}

// fitPair solves the dual problem for class pos (+1) against neg (-1).
func (s *SVM) fitPair(x mat.Matrix, gram *mat.SymDense, pos, neg int, posIdx, negIdx []int) binarySVM {
	idx := append(append([]int{}, posIdx...), negIdx...)
	n := len(idx)
	ys := make([]float64, n)
	for i := range ys {
		ys[i] = -1
		if i < len(posIdx) {
			ys[i] = 1
		}
	}
	q := func(i, j int) float64 { return ys[i] * ys[j] * gram.At(idx[i], idx[j]) }

	alpha, grad := smo(n, ys, q, s.C)
	rho := computeRho(ys, alpha, grad, s.C)

	_, cols := x.Dims()
	m := binarySVM{pos: pos, neg: neg, rho: rho}
	var sv []int
	for i := 0; i < n; i++ {
		if alpha[i] > 0 {
			sv = append(sv, i)
		}
	}
	if len(sv) == 0 {
		return m
	}
	m.support = mat.NewDense(len(sv), cols, nil)
	m.coef = make([]float64, len(sv))
	for r, i := range sv {
		m.support.SetRow(r, mat.Row(nil, idx[i], x))
		m.coef[r] = ys[i] * alpha[i]
	}
	return m
}

// smo minimizes ½αᵀQα − eᵀα subject to yᵀα = 0, 0 ≤ α ≤ C using
// maximal-violating-pair selection with second order gains.
func smo(n int, ys []float64, q func(i, j int) float64, c float64) ([]float64, []float64) {
	alpha := make([]float64, n)
	grad := make([]float64, n)
	diag := make([]float64, n)
	for i := range grad {
		grad[i] = -1
		diag[i] = q(i, i)
	}
	upper := func(t int) bool { return alpha[t] >= c }
	lower := func(t int) bool { return alpha[t] <= 0 }

	for iter := 0; iter < svmMaxIter; iter++ {
		gmax, gmax2 := math.Inf(-1), math.Inf(-1)
		i, j := -1, -1
		for t := 0; t < n; t++ {
			if ys[t] == 1 {
				if !upper(t) && -grad[t] >= gmax {
					gmax, i = -grad[t], t
				}
			} else if !lower(t) && grad[t] >= gmax {
				gmax, i = grad[t], t
			}
		}

		minDiff := math.Inf(1)
		for t := 0; t < n; t++ {
			var gradDiff float64
			if ys[t] == 1 {
				if lower(t) {
					continue
				}
				gradDiff = gmax + grad[t]
				if grad[t] >= gmax2 {
					gmax2 = grad[t]
				}
			} else {
				if upper(t) {
					continue
				}
				gradDiff = gmax - grad[t]
				if -grad[t] >= gmax2 {
					gmax2 = -grad[t]
				}
			}
			if i < 0 || gradDiff <= 0 {
				continue
			}
			quad := diag[i] + diag[t] - 2*ys[i]*ys[t]*q(i, t)
			if quad <= 0 {
				quad = svmTau
			}
			if diff := -gradDiff * gradDiff / quad; diff <= minDiff {
				j, minDiff = t, diff
			}
		}
		if gmax+gmax2 < svmTolerance || j < 0 {
			break
		}

		oldI, oldJ := alpha[i], alpha[j]
		qij := q(i, j)
		if ys[i] != ys[j] {
			quad := diag[i] + diag[j] + 2*qij
			if quad <= 0 {
				quad = svmTau
			}
			delta := (-grad[i] - grad[j]) / quad
			diff := alpha[i] - alpha[j]
			alpha[i] += delta
			alpha[j] += delta
			if diff > 0 {
				if alpha[j] < 0 {
					alpha[j], alpha[i] = 0, diff
				}
			} else if alpha[i] < 0 {
				alpha[i], alpha[j] = 0, -diff
			}
			if diff > 0 {
				if alpha[i] > c {
					alpha[i], alpha[j] = c, c-diff
				}
			} else if alpha[j] > c {
				alpha[j], alpha[i] = c, c+diff
			}
		} else {
			quad := diag[i] + diag[j] - 2*qij
			if quad <= 0 {
				quad = svmTau
			}
			delta := (grad[i] - grad[j]) / quad
			sum := alpha[i] + alpha[j]
			alpha[i] -= delta
			alpha[j] += delta
			if sum > c {
				if alpha[i] > c {
					alpha[i], alpha[j] = c, sum-c
				}
			} else if alpha[j] < 0 {
				alpha[j], alpha[i] = 0, sum
			}
			if sum > c {
				if alpha[j] > c {
					alpha[j], alpha[i] = c, sum-c
				}
			} else if alpha[i] < 0 {
				alpha[i], alpha[j] = 0, sum
			}
		}

		dI, dJ := alpha[i]-oldI, alpha[j]-oldJ
		for t := 0; t < n; t++ {
			grad[t] += q(i, t)*dI + q(j, t)*dJ
		}
	}
	return alpha, grad
}

// computeRho returns the bias from free support vectors, or the midpoint of
// the feasible interval when none are free.
func computeRho(ys, alpha, grad []float64, c float64) float64 {
	ub, lb := math.Inf(1), math.Inf(-1)
	sum, free := 0.0, 0
	for i := range ys {
		yg := ys[i] * grad[i]
		switch {
		case alpha[i] >= c:
			if ys[i] == -1 {
				ub = math.Min(ub, yg)
			} else {
				lb = math.Max(lb, yg)
			}
		case alpha[i] <= 0:
			if ys[i] == 1 {
				ub = math.Min(ub, yg)
			} else {
				lb = math.Max(lb, yg)
			}
		default:
			free++
			sum += yg
		}
	}
	if free > 0 {
		return sum / float64(free)
	}
	return (ub + lb) / 2
}

// decision returns the pairwise decision value for row v; positive favours pos.
func (m *binarySVM) decision(s *SVM, v []float64) float64 {
	f := -m.rho
	if m.support == nil {
		return f
	}
	for r, c := range m.coef {
		f += c * s.kernel(m.support.RawRowView(r), v)
	}
	return f
}

// Predict implements Classifier.
func (s *SVM) Predict(x mat.Matrix) ([]int, error) {
	if len(s.pairs) == 0 {
		return nil, ErrNotFitted
	}
	_, cols := x.Dims()
	if cols != s.features {
		return nil, fmt.Errorf("%d features, model has %d", cols, s.features)
	}

	rows := rowsOf(x)
	out := make([]int, len(rows))
	votes := make([]float64, s.classes)
	for i, v := range rows {
		for c := range votes {
			votes[c] = 0
		}
		for p := range s.pairs {
			m := &s.pairs[p]
			if m.decision(s, v) > 0 {
				votes[m.pos]++
			} else {
				votes[m.neg]++
			}
		}
		out[i] = argmax(votes)
	}
	return out, nil
}

func dot(a, b []float64) float64 {
	s := 0.0
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}

// rowsOf copies the rows of x into slices.
func rowsOf(x mat.Matrix) [][]float64 {
	rows, _ := x.Dims()
	out := make([][]float64, rows)
	for i := range out {
		out[i] = mat.Row(nil, i, x)
	}
	return out
}

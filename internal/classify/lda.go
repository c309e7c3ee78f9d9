package classify

import (
	"fmt"
	"math"

	"mi-bci/pkg/linalg"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// LDA solvers.
const (
	SolverSVD   = "svd"
	SolverLSQR  = "lsqr"
	SolverEigen = "eigen"
)

// ShrinkageAuto selects the Ledoit-Wolf shrinkage intensity.
const ShrinkageAuto = "auto"

// svdTolerance is the singular value threshold of the svd solver.
const svdTolerance = 1e-4

// LDA is linear discriminant analysis with class priors estimated from the
// training labels. Shrinkage is nil, ShrinkageAuto, or a float64 in [0, 1]
// and is not supported by the svd solver.
type LDA struct {
	Solver    string
	Shrinkage any

	coef      *mat.Dense // classes × features
	intercept []float64
}

// NewLDA validates parameters and returns an unfitted LDA.
func NewLDA(solver string, shrinkage any) (*LDA, error) {
	switch solver {
	case SolverSVD, SolverLSQR, SolverEigen:
	default:
		return nil, fmt.Errorf("%w: unknown solver %q", ErrInvalidCombination, solver)
	}
	switch s := shrinkage.(type) {
	case nil:
	case string:
		if s != ShrinkageAuto {
			return nil, fmt.Errorf("%w: unknown shrinkage %q", ErrInvalidCombination, s)
		}
	case float64:
		if s < 0 || s > 1 {
			return nil, fmt.Errorf("%w: shrinkage %g outside [0, 1]", ErrInvalidCombination, s)
		}
	default:
		return nil, fmt.Errorf("%w: shrinkage %v", ErrInvalidCombination, shrinkage)
	}
	if solver == SolverSVD && shrinkage != nil {
		return nil, fmt.Errorf("%w: shrinkage is not supported with the svd solver", ErrInvalidCombination)
	}
	return &LDA{Solver: solver, Shrinkage: shrinkage}, nil
}

// LDAFactory builds LDA models from grid parameters shrinkage and solver.
func LDAFactory(p Params) (Classifier, error) {
	solver, err := stringParam(p, "solver")
	if err != nil {
		return nil, err
	}
	shrinkage, ok := p.Get("shrinkage")
	if !ok {
		return nil, fmt.Errorf("missing parameter %q", "shrinkage")
	}
	return NewLDA(solver, shrinkage)
}

// Params implements Classifier.
func (l *LDA) Params() Params {
	return Params{{"shrinkage", l.Shrinkage}, {"solver", l.Solver}}
}

// Coef returns the classes × features discriminant weights.
func (l *LDA) Coef() *mat.Dense {
	return l.coef
}

// Intercept returns the per-class bias.
func (l *LDA) Intercept() []float64 {
	return l.intercept
}

// classStats holds the per-class groupings of a training set.
type classStats struct {
	groups []*mat.Dense
	means  *mat.Dense // classes × features
	priors []float64
}

func newClassStats(x mat.Matrix, y []int, k int) (*classStats, error) {
	_, cols := x.Dims()
	byClass := make([][]int, k)
	for i, v := range y {
		byClass[v] = append(byClass[v], i)
	}

	st := &classStats{
		groups: make([]*mat.Dense, k),
		means:  mat.NewDense(k, cols, nil),
		priors: make([]float64, k),
	}
	for c, idx := range byClass {
		if len(idx) == 0 {
			return nil, fmt.Errorf("%w: class %d has no samples", ErrTooFewSamples, c)
		}
		g := selectRows(x, idx)
		st.groups[c] = g
		for j := 0; j < cols; j++ {
			st.means.Set(c, j, stat.Mean(mat.Col(nil, j, g), nil))
		}
		st.priors[c] = float64(len(idx)) / float64(len(y))
	}
	return st, nil
}

// covariance estimates a covariance under the configured shrinkage.
func (l *LDA) covariance(x mat.Matrix) *mat.SymDense {
	switch s := l.Shrinkage.(type) {
	case string:
		return linalg.LedoitWolfCovariance(x)
	case float64:
		return linalg.Shrink(linalg.EmpiricalCovariance(x), s)
	default:
		return linalg.EmpiricalCovariance(x)
	}
}

// withinClass returns the prior-weighted sum of class covariances.
func (l *LDA) withinClass(st *classStats) *mat.SymDense {
	_, cols := st.means.Dims()
	sw := mat.NewSymDense(cols, nil)
	for c, g := range st.groups {
		var scaled mat.SymDense
		scaled.ScaleSym(st.priors[c], l.covariance(g))
		sw.AddSym(sw, &scaled)
	}
	return sw
}

// Fit implements Classifier.
func (l *LDA) Fit(x mat.Matrix, y []int) error {
	k, err := checkFitInput(x, y)
	if err != nil {
		return err
	}
	if l.Solver == SolverSVD && l.Shrinkage != nil {
		return ErrInvalidCombination
	}
	st, err := newClassStats(x, y, k)
	if err != nil {
		return err
	}

	switch l.Solver {
	case SolverLSQR:
		err = l.solveLSQR(st)
	case SolverEigen:
		err = l.solveEigen(x, st)
	case SolverSVD:
		err = l.solveSVD(x, y, st)
	default:
		err = fmt.Errorf("%w: unknown solver %q", ErrInvalidCombination, l.Solver)
	}
	if err != nil {
		l.coef, l.intercept = nil, nil
		return err
	}
	return nil
}

// solveLSQR finds coef with Σw coefᵀ = meansᵀ in the least squares sense.
func (l *LDA) solveLSQR(st *classStats) error {
	pinv, err := linalg.PseudoInverse(l.withinClass(st), 1e-15)
	if err != nil {
		return err
	}
	var coef mat.Dense
	coef.Mul(st.means, pinv)
	l.setModel(&coef, st)
	return nil
}

// solveEigen projects onto the generalized eigenvectors of the between and
// within class scatter. The eigenvectors are Σw-orthonormal, so the
// resulting weights match the closed form Σw⁻¹ means.
func (l *LDA) solveEigen(x mat.Matrix, st *classStats) error {
	sw := l.withinClass(st)
	total := l.covariance(x)
	p := sw.SymmetricDim()
	sb := mat.NewSymDense(p, nil)
	for i := 0; i < p; i++ {
		for j := i; j < p; j++ {
			sb.SetSym(i, j, total.At(i, j)-sw.At(i, j))
		}
	}

	_, vectors, err := linalg.GeneralizedSymEigen(sb, sw)
	if err != nil {
		return fmt.Errorf("eigen solver: %w", err)
	}
	var proj, coef mat.Dense
	proj.Mul(st.means, vectors)
	coef.Mul(&proj, vectors.T())
	l.setModel(&coef, st)
	return nil
}

// setModel stores coef and derives intercept = -½ diag(means coefᵀ) + log priors.
func (l *LDA) setModel(coef *mat.Dense, st *classStats) {
	k, _ := coef.Dims()
	l.coef = mat.DenseCopyOf(coef)
	l.intercept = make([]float64, k)
	for c := 0; c < k; c++ {
		l.intercept[c] = -0.5*mat.Dot(st.means.RowView(c), coef.RowView(c)) + math.Log(st.priors[c])
	}
}

// solveSVD whitens the centered data by its singular vectors and then finds
// the discriminant directions among the scaled class means. No covariance
// matrix is formed, so rank deficient data is handled by truncation.
func (l *LDA) solveSVD(x mat.Matrix, y []int, st *classStats) error {
	n, p := x.Dims()
	k := len(st.priors)

	xbar := make([]float64, p)
	for c := 0; c < k; c++ {
		for j := 0; j < p; j++ {
			xbar[j] += st.priors[c] * st.means.At(c, j)
		}
	}

	centered := mat.NewDense(n, p, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < p; j++ {
			centered.Set(i, j, x.At(i, j)-st.means.At(y[i], j))
		}
	}
	std := make([]float64, p)
	for j := 0; j < p; j++ {
		_, v := stat.PopMeanVariance(mat.Col(nil, j, centered), nil)
		std[j] = math.Sqrt(v)
		if std[j] == 0 {
			std[j] = 1
		}
	}

	scale := 1.0
	if n > k {
		scale = math.Sqrt(1 / float64(n-k))
	}
	for i := 0; i < n; i++ {
		for j := 0; j < p; j++ {
			centered.Set(i, j, scale*centered.At(i, j)/std[j])
		}
	}

	values, _, v, err := linalg.ThinSVD(centered)
	if err != nil {
		return fmt.Errorf("svd solver: %w", err)
	}
	rank := linalg.Rank(values, svdTolerance)
	if rank == 0 {
		l.setFlat(p, st)
		return nil
	}

	// scalings = (Vt[:rank] / std)ᵀ / S[:rank], a p × rank matrix.
	scalings := mat.NewDense(p, rank, nil)
	for j := 0; j < p; j++ {
		for r := 0; r < rank; r++ {
			scalings.Set(j, r, v.At(j, r)/std[j]/values[r])
		}
	}

	fac := 1.0
	if k > 1 {
		fac = 1 / float64(k-1)
	}
	between := mat.NewDense(k, p, nil)
	for c := 0; c < k; c++ {
		w := math.Sqrt(float64(n) * st.priors[c] * fac)
		for j := 0; j < p; j++ {
			between.Set(c, j, w*(st.means.At(c, j)-xbar[j]))
		}
	}
	var projected mat.Dense
	projected.Mul(between, scalings)

	values2, _, v2, err := linalg.ThinSVD(&projected)
	if err != nil {
		return fmt.Errorf("svd solver: %w", err)
	}
	rank2 := 0
	if len(values2) > 0 {
		rank2 = linalg.Rank(values2, svdTolerance*values2[0])
	}
	if rank2 == 0 {
		l.setFlat(p, st)
		return nil
	}

	var final mat.Dense
	final.Mul(scalings, v2.Slice(0, rank, 0, rank2))

	shifted := mat.NewDense(k, p, nil)
	for c := 0; c < k; c++ {
		for j := 0; j < p; j++ {
			shifted.Set(c, j, st.means.At(c, j)-xbar[j])
		}
	}
	var reduced mat.Dense
	reduced.Mul(shifted, &final)

	l.intercept = make([]float64, k)
	for c := 0; c < k; c++ {
		row := reduced.RawRowView(c)
		l.intercept[c] = -0.5*dot(row, row) + math.Log(st.priors[c])
	}
	coef := mat.NewDense(k, p, nil)
	coef.Mul(&reduced, final.T())
	for c := 0; c < k; c++ {
		l.intercept[c] -= dot(xbar, coef.RawRowView(c))
	}
	l.coef = coef
	return nil
}

// setFlat stores a model that predicts from priors alone.
func (l *LDA) setFlat(p int, st *classStats) {
	k := len(st.priors)
	l.coef = mat.NewDense(k, p, nil)
	l.intercept = make([]float64, k)
	for c := range l.intercept {
		l.intercept[c] = math.Log(st.priors[c])
	}
}

// DecisionFunction returns the rows × classes discriminant scores.
func (l *LDA) DecisionFunction(x mat.Matrix) (*mat.Dense, error) {
	if l.coef == nil {
		return nil, ErrNotFitted
	}
	_, cols := x.Dims()
	if _, p := l.coef.Dims(); cols != p {
		return nil, fmt.Errorf("%d features, model has %d", cols, p)
	}
	var scores mat.Dense
	scores.Mul(x, l.coef.T())
	rows, k := scores.Dims()
	for i := 0; i < rows; i++ {
		for c := 0; c < k; c++ {
			scores.Set(i, c, scores.At(i, c)+l.intercept[c])
		}
	}
	return &scores, nil
}

// Predict implements Classifier.
func (l *LDA) Predict(x mat.Matrix) ([]int, error) {
	scores, err := l.DecisionFunction(x)
	if err != nil {
		return nil, err
	}
	rows, _ := scores.Dims()
	out := make([]int, rows)
	for i := range out {
		out[i] = argmax(scores.RawRowView(i))
	}
	return out, nil
}

// selectRows copies the given rows of x.
func selectRows(x mat.Matrix, idx []int) *mat.Dense {
	_, cols := x.Dims()
	out := mat.NewDense(len(idx), cols, nil)
	for r, i := range idx {
		for j := 0; j < cols; j++ {
			out.Set(r, j, x.At(i, j))
		}
	}
	return out
}

// Package classify trains and evaluates the SVM and LDA classifiers used on
// CSP features: parameter grids, stratified splitting, cross-validated grid
// search and scoring.
package classify

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

var (
	// ErrInvalidCombination is returned by a factory or Fit when a parameter
	// combination is structurally unsupported.
	ErrInvalidCombination = errors.New("invalid parameter combination")

	// ErrNotFitted is returned by Predict before a successful Fit.
	ErrNotFitted = errors.New("classifier not fitted")

	// ErrTooFewSamples is returned when data cannot be split or fit.
	ErrTooFewSamples = errors.New("too few samples")
)

// Classifier is a multi-class model over dense labels 0..K-1.
type Classifier interface {
	// Fit trains on the rows of x with labels y.
	Fit(x mat.Matrix, y []int) error
	// Predict returns one label per row of x.
	Predict(x mat.Matrix) ([]int, error)
	// Params reports the hyperparameters the model was built with.
	Params() Params
}

// Factory builds an unfitted classifier for a candidate's parameters. Every
// call returns an independent instance.
type Factory func(p Params) (Classifier, error)

// checkFitInput validates the shape of training data and returns the class
// count (max label + 1).
func checkFitInput(x mat.Matrix, y []int) (int, error) {
	rows, cols := x.Dims()
	if rows != len(y) {
		return 0, fmt.Errorf("%d rows for %d labels", rows, len(y))
	}
	if rows == 0 || cols == 0 {
		return 0, ErrTooFewSamples
	}
	k := 0
	for i, v := range y {
		if v < 0 {
			return 0, fmt.Errorf("negative label %d at row %d", v, i)
		}
		if v+1 > k {
			k = v + 1
		}
	}
	return k, nil
}

// argmax returns the index of the first maximum.
func argmax(v []float64) int {
	best := 0
	for i := 1; i < len(v); i++ {
		if v[i] > v[best] {
			best = i
		}
	}
	return best
}

package csp

import (
	"errors"
	"fmt"
	"log"

	"mi-bci/internal/labels"

	"gonum.org/v1/gonum/mat"
)

// Defaults for one-vs-rest extraction.
const (
	DefaultComponents  = 4
	DefaultReg         = 0.1
	DefaultFallbackReg = 1.0
)

var (
	// ErrNoEpochs is returned when extraction receives no epochs.
	ErrNoEpochs = errors.New("no epochs")

	// ErrTooFewClasses is returned when fewer than two distinct labels are observed.
	ErrTooFewClasses = errors.New("at least two classes are required")
)

// Outcome records how a class's spatial filter was obtained.
type Outcome int

const (
	// Fitted means the filter fit at the default regularization.
	Fitted Outcome = iota
	// FittedWithFallbackRegularization means the first fit failed and the
	// retry at the higher regularization succeeded.
	FittedWithFallbackRegularization
	// ZeroFilled means both fits failed and the class contributes zeros.
	ZeroFilled
)

func (o Outcome) String() string {
	switch o {
	case Fitted:
		return "fitted"
	case FittedWithFallbackRegularization:
		return "fitted-fallback-reg"
	case ZeroFilled:
		return "zero-filled"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// ClassResult is the per-class extraction record.
type ClassResult struct {
	Class   int
	Outcome Outcome
	Reg     float64 // regularization of the filter in use; 0 when zero-filled
	Filter  *Filter // nil when zero-filled
	Err     error   // failures encountered, nil when Outcome is Fitted
}

// Features is the extractor output: one row per epoch, Components columns per
// class in dense class order.
type Features struct {
	X          *mat.Dense
	Y          []int
	Mapping    *labels.Mapping
	Components int
	Classes    []ClassResult
}

// Block returns the column block of class c.
func (f *Features) Block(c int) mat.Matrix {
	rows, _ := f.X.Dims()
	return f.X.Slice(0, rows, c*f.Components, (c+1)*f.Components)
}

// FitFunc fits a two-class spatial filter at the given regularization and
// returns the projected N × components features.
type FitFunc func(epochs []*mat.Dense, binary []int, components int, reg float64) (*Filter, *mat.Dense, error)

// FitTransform is the default FitFunc.
func FitTransform(epochs []*mat.Dense, binary []int, components int, reg float64) (*Filter, *mat.Dense, error) {
	f := NewFilter(components, reg)
	if err := f.Fit(epochs, binary); err != nil {
		return nil, nil, err
	}
	x, err := f.Transform(epochs)
	if err != nil {
		return nil, nil, err
	}
	return f, x, nil
}

// Extractor computes one-vs-rest CSP features.
type Extractor struct {
	Components  int
	Reg         float64
	FallbackReg float64

	// Fit performs a single class-vs-rest fit. Defaults to FitTransform.
	Fit FitFunc

	// Logf receives warnings about failed fits. Defaults to log.Printf.
	Logf func(format string, args ...any)
}

// NewExtractor returns an extractor with the default component count and
// regularization strengths.
func NewExtractor() *Extractor {
	return &Extractor{
		Components:  DefaultComponents,
		Reg:         DefaultReg,
		FallbackReg: DefaultFallbackReg,
	}
}

// Extract maps labels to dense indices and builds the feature matrix. A class
// whose filter cannot be fit even at the fallback regularization gets an
// all-zero block; only structural problems with the input are returned as errors.
func (e *Extractor) Extract(epochs []*mat.Dense, observed []string) (*Features, error) {
	if err := e.validate(epochs, observed); err != nil {
		return nil, err
	}

	mapping, err := labels.NewMapping(observed)
	if err != nil {
		return nil, err
	}
	if mapping.Len() < 2 {
		return nil, fmt.Errorf("%w: only %q observed", ErrTooFewClasses, mapping.Value(0))
	}
	dense, err := mapping.Apply(observed)
	if err != nil {
		return nil, err
	}

	k, n, c := mapping.Len(), len(epochs), e.Components
	feats := &Features{
		X:          mat.NewDense(n, k*c, nil),
		Y:          dense,
		Mapping:    mapping,
		Components: c,
		Classes:    make([]ClassResult, k),
	}

	binary := make([]int, n)
	for class := 0; class < k; class++ {
		for i, y := range dense {
			binary[i] = 0
			if y == class {
				binary[i] = 1
			}
		}

		res, block := e.fitClass(epochs, binary, class)
		feats.Classes[class] = res
		if block != nil {
			feats.X.Slice(0, n, class*c, (class+1)*c).(*mat.Dense).Copy(block)
		}
	}
	return feats, nil
}

// fitClass runs the fit, retry, zero-fill sequence for one class.
func (e *Extractor) fitClass(epochs []*mat.Dense, binary []int, class int) (ClassResult, *mat.Dense) {
	fit := e.Fit
	if fit == nil {
		fit = FitTransform
	}
	logf := e.Logf
	if logf == nil {
		logf = log.Printf
	}

	filter, block, err := fit(epochs, binary, e.Components, e.Reg)
	if err == nil {
		return ClassResult{Class: class, Outcome: Fitted, Reg: e.Reg, Filter: filter}, block
	}
	logf("CSP class %d: fit with reg=%g failed: %v; retrying with reg=%g", class, e.Reg, err, e.FallbackReg)

	filter, block, retryErr := fit(epochs, binary, e.Components, e.FallbackReg)
	if retryErr == nil {
		return ClassResult{
			Class:   class,
			Outcome: FittedWithFallbackRegularization,
			Reg:     e.FallbackReg,
			Filter:  filter,
			Err:     err,
		}, block
	}
	logf("CSP class %d: fit with reg=%g failed: %v; using zero features", class, e.FallbackReg, retryErr)

	return ClassResult{
		Class:   class,
		Outcome: ZeroFilled,
		Err:     errors.Join(err, retryErr),
	}, nil
}

// validate rejects input the extractor cannot process at all.
func (e *Extractor) validate(epochs []*mat.Dense, observed []string) error {
	if len(epochs) == 0 {
		return ErrNoEpochs
	}
	if len(epochs) != len(observed) {
		return fmt.Errorf("%d epochs but %d labels", len(epochs), len(observed))
	}
	if !(e.FallbackReg > e.Reg) {
		return fmt.Errorf("fallback regularization %g must exceed %g", e.FallbackReg, e.Reg)
	}
	if e.Reg < 0 || e.FallbackReg > 1 {
		return fmt.Errorf("regularization must lie in [0, 1], got %g and %g", e.Reg, e.FallbackReg)
	}

	samples, channels := epochs[0].Dims()
	for i, ep := range epochs[1:] {
		if r, c := ep.Dims(); r != samples || c != channels {
			return fmt.Errorf("%w: epoch %d is %dx%d, want %dx%d", ErrShape, i+1, r, c, samples, channels)
		}
	}
	if e.Components < 1 || e.Components > channels {
		return fmt.Errorf("components %d out of range for %d channels", e.Components, channels)
	}
	return nil
}

// Package pipeline runs CSP feature extraction followed by SVM and LDA
// training and collects everything the presenter needs.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"time"

	"mi-bci/internal/classify"
	"mi-bci/internal/config"
	"mi-bci/internal/csp"
	"mi-bci/internal/labels"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/mat"
)

// Stage names the part of the pipeline that failed.
type Stage string

const (
	StageExtraction   Stage = "extraction"
	StageTraining     Stage = "training"
	StagePresentation Stage = "presentation"
)

// StageError tags a fatal error with the stage it came from.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Options configures a run.
type Options struct {
	Components   int
	Reg          float64
	FallbackReg  float64
	TestFraction float64
	Seed         int64
	Folds        int
	Workers      int

	// LabelNames gives one display name per class in dense index order.
	// When nil the names come from the label class table.
	LabelNames []string

	// Logf receives warnings. Defaults to log.Printf.
	Logf func(format string, args ...any)
}

// DefaultOptions mirrors config.Default.
func DefaultOptions() Options {
	return NewOptions(config.Default())
}

// NewOptions takes the extraction and training settings from cfg.
func NewOptions(cfg *config.Config) Options {
	return Options{
		Components:   cfg.CSP.Components,
		Reg:          cfg.CSP.Reg,
		FallbackReg:  cfg.CSP.FallbackReg,
		TestFraction: cfg.Training.TestFraction,
		Seed:         cfg.Training.Seed,
		Folds:        cfg.Training.Folds,
		Workers:      cfg.Training.Workers,
		LabelNames:   cfg.LabelNames,
	}
}

// ModelResult is one tuned classifier and its held-out evaluation.
type ModelResult struct {
	Name        string
	Best        classify.Params
	CVScore     float64
	Model       classify.Classifier
	Predictions []int
	Accuracy    float64
	Confusion   classify.Confusion
	Report      *classify.Report
	Search      *classify.SearchResult
}

// Result is the bundle handed to the presenter.
type Result struct {
	RunID      string
	StartedAt  time.Time
	Duration   time.Duration
	Mapping    *labels.Mapping
	LabelNames []string
	Components int
	Extraction []csp.ClassResult

	TrainIndices []int
	TestIndices  []int // epoch indices of the held-out rows, ascending
	TestFeatures *mat.Dense
	TestLabels   []int

	SVM ModelResult
	LDA ModelResult
}

// Models returns the SVM and LDA results in display order.
func (r *Result) Models() []*ModelResult {
	return []*ModelResult{&r.SVM, &r.LDA}
}

// Run extracts features from epochs labelled observed, validates the label
// names and trains both classifiers. Any returned error is a *StageError and
// no partial result is returned with it.
func Run(ctx context.Context, epochs []*mat.Dense, observed []string, opts Options) (*Result, error) {
	logf := opts.Logf
	if logf == nil {
		logf = log.Printf
	}
	start := time.Now()

	extractor := &csp.Extractor{
		Components:  opts.Components,
		Reg:         opts.Reg,
		FallbackReg: opts.FallbackReg,
		Logf:        logf,
	}
	feats, err := extractor.Extract(epochs, observed)
	if err != nil {
		return nil, &StageError{Stage: StageExtraction, Err: err}
	}

	names := opts.LabelNames
	if names == nil {
		names = labels.DefaultNames(feats.Mapping)
	}
	if err := labels.ValidateNames(names, feats.Mapping.Len()); err != nil {
		return nil, &StageError{Stage: StagePresentation, Err: err}
	}

	res, err := train(ctx, feats, names, opts, logf)
	if err != nil {
		return nil, &StageError{Stage: StageTraining, Err: err}
	}
	res.RunID = uuid.NewString()
	res.StartedAt = start
	res.Duration = time.Since(start)
	return res, nil
}

func train(ctx context.Context, feats *csp.Features, names []string, opts Options, logf func(string, ...any)) (*Result, error) {
	split, err := classify.TrainTestSplit(feats.Y, opts.TestFraction, opts.Seed)
	if err != nil {
		return nil, fmt.Errorf("split: %w", err)
	}
	xTrain, yTrain := subset(feats.X, feats.Y, split.Train)
	xTest, yTest := subset(feats.X, feats.Y, split.Test)

	res := &Result{
		Mapping:      feats.Mapping,
		LabelNames:   names,
		Components:   feats.Components,
		Extraction:   feats.Classes,
		TrainIndices: split.Train,
		TestIndices:  split.Test,
		TestFeatures: xTest,
		TestLabels:   yTest,
	}

	families := []struct {
		dst     *ModelResult
		name    string
		grid    classify.Grid
		factory classify.Factory
	}{
		{&res.SVM, "SVM", classify.SVMGrid(), classify.SVMFactory},
		{&res.LDA, "LDA", classify.LDAGrid(), classify.LDAFactory},
	}
	k := feats.Mapping.Len()
	for _, f := range families {
		search := &classify.GridSearch{
			Grid:    f.grid,
			Factory: f.factory,
			Folds:   opts.Folds,
			Workers: opts.Workers,
			Logf:    logf,
		}
		found, err := search.Run(ctx, xTrain, yTrain)
		if err != nil {
			return nil, fmt.Errorf("%s grid search: %w", f.name, err)
		}
		eval, err := classify.Evaluate(found.Model, xTest, yTest, k)
		if err != nil {
			return nil, fmt.Errorf("%s evaluation: %w", f.name, err)
		}
		report, err := classify.NewReport(eval.Confusion, names)
		if err != nil {
			return nil, fmt.Errorf("%s report: %w", f.name, err)
		}
		*f.dst = ModelResult{
			Name:        f.name,
			Best:        found.Best.Params,
			CVScore:     found.BestScore,
			Model:       found.Model,
			Predictions: eval.Predictions,
			Accuracy:    eval.Accuracy,
			Confusion:   eval.Confusion,
			Report:      report,
			Search:      found,
		}
		logf("%s: best %v (cv %.4f), held-out accuracy %.4f", f.name, found.Best.Params, found.BestScore, eval.Accuracy)
	}
	return res, nil
}

func subset(x *mat.Dense, y []int, idx []int) (*mat.Dense, []int) {
	_, cols := x.Dims()
	xs := mat.NewDense(len(idx), cols, nil)
	ys := make([]int, len(idx))
	for r, i := range idx {
		xs.SetRow(r, x.RawRowView(i))
		ys[r] = y[i]
	}
	return xs, ys
}

package classify

import (
	"context"
	"errors"
	"fmt"
	"log"
	"runtime"
	"sort"

	"gonum.org/v1/gonum/mat"
	"golang.org/x/sync/errgroup"
)

// ErrNoViableCandidate is returned when no grid candidate can be fit.
var ErrNoViableCandidate = errors.New("no grid candidate could be fit")

// CandidateScore is the cross-validation outcome of one candidate.
type CandidateScore struct {
	Candidate  Candidate
	FoldScores []float64 // 0 for folds that failed to fit
	Mean       float64
	Failures   int
	Err        error // first fold failure
}

// Viable reports whether at least one fold fitted.
func (s CandidateScore) Viable() bool {
	return s.Failures < len(s.FoldScores)
}

// SearchResult is the outcome of a grid search.
type SearchResult struct {
	Best      Candidate
	BestScore float64
	Model     Classifier // refit on all training rows
	Scores    []CandidateScore
}

// GridSearch selects hyperparameters by stratified k-fold cross-validation.
type GridSearch struct {
	Grid    Grid
	Factory Factory
	Folds   int
	Workers int // <= 0 means runtime.NumCPU()

	// Logf receives notices about failed candidates. Defaults to log.Printf.
	Logf func(format string, args ...any)
}

// Run scores every candidate, ranks viable ones by mean fold accuracy (ties
// to the earlier candidate) and refits the winner on all of x. If the winner
// cannot be refit the next ranked candidate is tried.
func (g *GridSearch) Run(ctx context.Context, x mat.Matrix, y []int) (*SearchResult, error) {
	rows, _ := x.Dims()
	if rows != len(y) {
		return nil, fmt.Errorf("%d rows for %d labels", rows, len(y))
	}
	logf := g.Logf
	if logf == nil {
		logf = log.Printf
	}
	folds, err := StratifiedKFold(y, g.Folds)
	if err != nil {
		return nil, err
	}
	candidates := g.Grid.Candidates()
	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: empty grid", ErrNoViableCandidate)
	}

	workers := g.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	scores := make([]CandidateScore, len(candidates))
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)
	for i, c := range candidates {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			scores[i] = g.score(c, x, y, folds)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	ranked := make([]int, 0, len(scores))
	for i, s := range scores {
		if !s.Viable() {
			logf("grid search: skipping %v: %v", s.Candidate.Params, s.Err)
			continue
		}
		ranked = append(ranked, i)
	}
	sort.SliceStable(ranked, func(a, b int) bool {
		return scores[ranked[a]].Mean > scores[ranked[b]].Mean
	})

	for _, i := range ranked {
		s := scores[i]
		model, err := fitCandidate(g.Factory, s.Candidate, x, y)
		if err != nil {
			logf("grid search: refit of %v failed: %v", s.Candidate.Params, err)
			continue
		}
		return &SearchResult{Best: s.Candidate, BestScore: s.Mean, Model: model, Scores: scores}, nil
	}
	return nil, ErrNoViableCandidate
}

// score cross-validates one candidate on a fresh model per fold.
func (g *GridSearch) score(c Candidate, x mat.Matrix, y []int, folds [][]int) CandidateScore {
	rows, _ := x.Dims()
	s := CandidateScore{Candidate: c, FoldScores: make([]float64, len(folds))}
	for f, test := range folds {
		train := complement(rows, test)
		acc, err := evalFold(g.Factory, c, x, y, train, test)
		if err != nil {
			s.Failures++
			if s.Err == nil {
				s.Err = err
			}
			continue
		}
		s.FoldScores[f] = acc
	}
	sum := 0.0
	for _, v := range s.FoldScores {
		sum += v
	}
	s.Mean = sum / float64(len(folds))
	return s
}

func evalFold(factory Factory, c Candidate, x mat.Matrix, y []int, train, test []int) (float64, error) {
	model, err := fitCandidate(factory, c, selectRows(x, train), pick(y, train))
	if err != nil {
		return 0, err
	}
	pred, err := model.Predict(selectRows(x, test))
	if err != nil {
		return 0, err
	}
	return Accuracy(pick(y, test), pred), nil
}

func fitCandidate(factory Factory, c Candidate, x mat.Matrix, y []int) (Classifier, error) {
	model, err := factory(c.Params)
	if err != nil {
		return nil, err
	}
	if err := model.Fit(x, y); err != nil {
		return nil, err
	}
	return model, nil
}

func pick(y []int, idx []int) []int {
	out := make([]int, len(idx))
	for i, j := range idx {
		out[i] = y[j]
	}
	return out
}

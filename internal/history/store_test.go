package history

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"mi-bci/internal/classify"
	"mi-bci/internal/csp"
	"mi-bci/internal/eeg"
	"mi-bci/internal/labels"
	"mi-bci/internal/pipeline"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func run(id string, subject int, at time.Time, svmAcc float64) *Run {
	return &Run{
		ID:        id,
		CreatedAt: at,
		Subject:   subject,
		Recording: fmt.Sprintf("digest-%d", subject),
		Epochs:    40,
		Classes:   []string{"foot", "left"},
		Outcomes:  []string{"fitted", "fitted"},
		Models: []ModelSummary{
			{Name: "SVM", Params: "{C: 1}", Accuracy: svmAcc, Confusion: [][]int{{1, 0}, {0, 1}}, Predictions: []int{0, 1}},
			{Name: "LDA", Params: "{solver: lsqr}", Accuracy: 0.5, Predictions: []int{0, 0}},
		},
	}
}

func TestSaveAndGet(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	want := run("a", 1, at, 0.75)
	require.NoError(t, s.Save(ctx, want))

	got, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.True(t, want.CreatedAt.Equal(got.CreatedAt))
	got.CreatedAt = want.CreatedAt
	assert.Equal(t, want, got)

	_, err = s.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListAndLatest(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, s.Save(ctx, run("old", 1, base, 0.5)))
	require.NoError(t, s.Save(ctx, run("new", 1, base.Add(500*time.Millisecond), 0.6)))
	require.NoError(t, s.Save(ctx, run("other", 2, base.Add(time.Hour), 0.7)))

	all, err := s.List(ctx, 0, 0)
	require.NoError(t, err)
	ids := func(runs []*Run) []string {
		var out []string
		for _, r := range runs {
			out = append(out, r.ID)
		}
		return out
	}
	assert.Equal(t, []string{"other", "new", "old"}, ids(all))

	subj, err := s.List(ctx, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"new"}, ids(subj))

	latest, err := s.Latest(ctx, "digest-1", "new")
	require.NoError(t, err)
	assert.Equal(t, "old", latest.ID)

	_, err = s.Latest(ctx, "digest-3", "")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Delete(ctx, "old"))
	assert.ErrorIs(t, s.Delete(ctx, "old"), ErrNotFound)
	_, err = s.Latest(ctx, "digest-1", "new")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLatestKeysOnRecording(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	first := run("first", 1, base, 0.5)
	first.Recording = "aaaa"
	other := run("other", 1, base.Add(time.Minute), 0.9)
	other.Recording = "bbbb"
	again := run("again", 1, base.Add(time.Hour), 0.5)
	again.Recording = "aaaa"
	for _, r := range []*Run{first, other, again} {
		require.NoError(t, s.Save(ctx, r))
	}

	prev, err := s.Latest(ctx, "aaaa", "again")
	require.NoError(t, err)
	assert.Equal(t, "first", prev.ID, "a newer run of the same subject on another recording is not a baseline")
	assert.Empty(t, Diff(prev, again))

	_, err = s.Latest(ctx, "bbbb", "other")
	assert.ErrorIs(t, err, ErrNotFound)

	unknown := run("unknown", 1, base.Add(2*time.Hour), 0.5)
	unknown.Recording = ""
	require.NoError(t, s.Save(ctx, unknown))
	_, err = s.Latest(ctx, "", "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDiff(t *testing.T) {
	at := time.Now()
	a := run("a", 1, at, 0.75)
	b := run("b", 1, at, 0.75)
	assert.Empty(t, Diff(a, b))

	b.Models[0].Accuracy = 0.5
	b.Models[0].Predictions = []int{1, 1}
	b.Models[1].Params = "{solver: svd}"
	d := Diff(a, b)
	assert.Len(t, d, 3)
	assert.Contains(t, d[0], "SVM accuracy")

	b.Models = b.Models[:1]
	assert.Contains(t, Diff(a, b), "LDA missing")
}

func TestFromResult(t *testing.T) {
	m, err := labels.NewMapping([]string{"left", "right"})
	require.NoError(t, err)
	res := &pipeline.Result{
		RunID:        "id-1",
		StartedAt:    time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Mapping:      m,
		Components:   4,
		Extraction:   []csp.ClassResult{{Outcome: csp.Fitted}, {Class: 1, Outcome: csp.FittedWithFallbackRegularization}},
		TrainIndices: []int{0, 2},
		TestIndices:  []int{1, 3},
		SVM: pipeline.ModelResult{
			Name:        "SVM",
			Best:        classify.Params{{Name: "C", Value: 10.0}},
			Accuracy:    1,
			Confusion:   classify.Confusion{{1, 0}, {0, 1}},
			Predictions: []int{0, 1},
		},
		LDA: pipeline.ModelResult{Name: "LDA", Best: classify.Params{{Name: "solver", Value: "lsqr"}}},
	}

	r := FromResult(res, &eeg.Dataset{Subject: 5, Source: "/data/BCICIV_2a_5.csv", Digest: "cafe"})
	assert.Equal(t, "id-1", r.ID)
	assert.Equal(t, 5, r.Subject)
	assert.Equal(t, "BCICIV_2a_5.csv", r.Source)
	assert.Equal(t, "cafe", r.Recording)
	assert.Equal(t, 4, r.Epochs)
	assert.Equal(t, []string{"left", "right"}, r.Classes)
	assert.Equal(t, []string{"fitted", "fitted-fallback-reg"}, r.Outcomes)
	require.Len(t, r.Models, 2)
	assert.Equal(t, "{C: 10}", r.Models[0].Params)
	assert.Equal(t, [][]int{{1, 0}, {0, 1}}, r.Models[0].Confusion)
	assert.Equal(t, "{solver: lsqr}", r.Models[1].Params)
}

func TestFromResultWithoutSource(t *testing.T) {
	m, err := labels.NewMapping([]string{"left", "right"})
	require.NoError(t, err)
	r := FromResult(&pipeline.Result{RunID: "x", Mapping: m}, &eeg.Dataset{})
	assert.Empty(t, r.Source)
	assert.Empty(t, r.Recording)
}

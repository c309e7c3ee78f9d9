package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"mi-bci/internal/history"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seed(t *testing.T) *history.Store {
	t.Helper()
	store, err := history.Open(filepath.Join(t.TempDir(), "h.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, acc := range []float64{0.75, 0.5} {
		run := &history.Run{
			ID:        []string{"run-a", "run-b"}[i],
			CreatedAt: at.Add(time.Duration(i) * time.Hour),
			Subject:   1,
			Source:    "BCICIV_2a_1.csv",
			Recording: "0123456789abcdef0123",
			Epochs:    40,
			Classes:   []string{"foot", "left"},
			Outcomes:  []string{"fitted", "zero-filled"},
			Models: []history.ModelSummary{
				{Name: "SVM", Params: "{C: 1}", Accuracy: acc, Confusion: [][]int{{2, 0}, {1, 1}}},
			},
		}
		require.NoError(t, store.Save(context.Background(), run))
	}
	return store
}

func TestList(t *testing.T) {
	store := seed(t)
	var out bytes.Buffer
	require.NoError(t, list(context.Background(), store, &out, []string{"-subject", "1"}))
	lines := bytes.Split(bytes.TrimSpace(out.Bytes()), []byte("\n"))
	require.Len(t, lines, 3)
	assert.Contains(t, string(lines[0]), "SVM")
	assert.Contains(t, string(lines[1]), "run-b")
	assert.Contains(t, string(lines[1]), "0.5000")
	assert.Contains(t, string(lines[2]), "run-a")

	out.Reset()
	require.NoError(t, list(context.Background(), store, &out, []string{"-subject", "9"}))
	assert.Equal(t, "No runs recorded.\n", out.String())
}

func TestShowAndDiff(t *testing.T) {
	store := seed(t)
	var out bytes.Buffer
	require.NoError(t, show(context.Background(), store, &out, "run-a"))
	assert.Contains(t, out.String(), "CSP:        fitted, zero-filled")
	assert.Contains(t, out.String(), "Recording:  BCICIV_2a_1.csv (sha256 0123456789ab)")
	assert.Contains(t, out.String(), "Accuracy: 0.7500")

	out.Reset()
	require.NoError(t, diff(context.Background(), store, &out, "run-a", "run-b"))
	assert.Contains(t, out.String(), "SVM accuracy 0.7500 vs 0.5000")

	out.Reset()
	require.NoError(t, diff(context.Background(), store, &out, "run-a", "run-a"))
	assert.Equal(t, "Runs are identical.\n", out.String())

	assert.ErrorIs(t, show(context.Background(), store, &out, "missing"), history.ErrNotFound)
}

package mainwindow

import (
	"context"
	"fmt"
	"math/rand"
	"path/filepath"
	"testing"

	"mi-bci/internal/app"
	"mi-bci/internal/config"
	"mi-bci/internal/eeg"
	"mi-bci/ui/prefs"

	"fyne.io/fyne/v2/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func dataset() *eeg.Dataset {
	rng := rand.New(rand.NewSource(5))
	ds := &eeg.Dataset{SampleRate: 250, Channels: make([]string, 8), Skipped: map[string]int{eeg.SkipLabel: 2}}
	for rep := 0; rep < 10; rep++ {
		for ci, name := range []string{"left", "right", "foot", "tongue"} {
			ep := mat.NewDense(200, 8, nil)
			for s := 0; s < 200; s++ {
				for c := 0; c < 8; c++ {
					v := rng.NormFloat64()
					if c == 2*ci {
						v *= 4
					}
					ep.Set(s, c, v)
				}
			}
			ds.Epochs = append(ds.Epochs, eeg.Epoch{ID: fmt.Sprint(len(ds.Epochs)), Label: name, Data: ep})
		}
	}
	return ds
}

func newWindow(t *testing.T) (*MainWindow, *prefs.Prefs) {
	t.Helper()
	a := test.NewApp()
	t.Cleanup(a.Quit)

	cfg := config.Default()
	cfg.Training.Workers = 2
	state := app.NewState(cfg)
	state.Logf = func(string, ...any) {}
	p := prefs.LoadFrom(filepath.Join(t.TempDir(), "preferences.json"))
	return New(a, state, p), p
}

func TestWindowFollowsRun(t *testing.T) {
	mw, p := newWindow(t)
	assert.True(t, mw.runItem.Disabled)
	assert.True(t, mw.saveItem.Disabled)

	mw.state.SetDataset("/data/BCICIV_2a_1.csv", dataset())
	assert.Equal(t, appTitle+" - BCICIV_2a_1.csv", mw.Title())
	assert.Equal(t, "Loaded 40 epochs, 8 channels (2 discarded)", mw.statusBar.Text)
	assert.False(t, mw.runItem.Disabled)

	require.NoError(t, mw.state.Train(context.Background()))
	assert.False(t, mw.runItem.Disabled, "a finished run must allow another")
	assert.False(t, mw.saveItem.Disabled)
	assert.NotNil(t, mw.matrix.Image())
	assert.Contains(t, mw.controls.Info(), "Trial: 1 of 12")
	assert.NotEmpty(t, mw.arrows.Highlighted())
	assert.Contains(t, mw.statusBar.Text, "held-out trials")

	require.True(t, mw.state.NextTrial())
	assert.Contains(t, mw.controls.Info(), "Trial: 2 of 12")

	mw.selectClassifier("LDA")
	assert.Equal(t, "LDA", p.String(prefs.KeyClassifier))
	assert.Contains(t, mw.controls.Info(), "Classifier: LDA")
}

func TestWindowRestoresClassifier(t *testing.T) {
	mw, p := newWindow(t)
	p.SetString(prefs.KeyClassifier, "LDA")

	mw.state.SetDataset("rec.csv", dataset())
	require.NoError(t, mw.state.Train(context.Background()))
	assert.Equal(t, "LDA", mw.state.CurrentPresenter().Classifier())
	assert.Contains(t, mw.controls.Info(), "Classifier: LDA")
}

func TestWindowRunFailure(t *testing.T) {
	mw, _ := newWindow(t)
	mw.state.SetDataset("rec.csv", &eeg.Dataset{Epochs: dataset().Epochs[:4]})
	assert.Error(t, mw.state.Train(context.Background()))
	assert.Equal(t, "Run failed", mw.statusBar.Text)
	assert.Nil(t, mw.matrix.Image())
	assert.False(t, mw.runItem.Disabled, "a failed run must allow a retry")
	assert.True(t, mw.saveItem.Disabled)
}

func TestWindowCancelledRunReenablesRun(t *testing.T) {
	mw, _ := newWindow(t)
	mw.state.SetDataset("rec.csv", dataset())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, mw.state.Train(ctx))
	assert.Equal(t, "Run failed", mw.statusBar.Text)
	assert.False(t, mw.runItem.Disabled)
	assert.False(t, mw.state.IsRunning())
}

func TestSavePreferencesStoresGeometry(t *testing.T) {
	mw, p := newWindow(t)
	p.SetString(prefs.KeyLastDataset, "rec.csv")
	mw.SavePreferences()
	assert.False(t, p.Changed())
	assert.Equal(t, "rec.csv", prefs.LoadFrom(p.Path()).String(prefs.KeyLastDataset))
}

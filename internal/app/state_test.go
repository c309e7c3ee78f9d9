package app

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"mi-bci/internal/config"
	"mi-bci/internal/eeg"
	"mi-bci/internal/history"
	"mi-bci/internal/presenter"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/test"
	"fyne.io/fyne/v2/theme"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func quiet(string, ...any) {}

// dataset builds perClass epochs per class where class i is louder on channel 2i.
func dataset(perClass int) *eeg.Dataset {
	rng := rand.New(rand.NewSource(3))
	names := []string{"left", "right", "foot", "tongue"}
	ds := &eeg.Dataset{SampleRate: 250, Channels: make([]string, 8)}
	for rep := 0; rep < perClass; rep++ {
		for ci, name := range names {
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
			ds.Epochs = append(ds.Epochs, eeg.Epoch{
				ID:    fmt.Sprint(len(ds.Epochs)),
				Label: name,
				Data:  ep,
			})
		}
	}
	return ds
}

func newTestState() *State {
	cfg := config.Default()
	cfg.Training.Workers = 2
	s := NewState(cfg)
	s.Logf = quiet
	return s
}

func TestEmitCallsListenersInOrder(t *testing.T) {
	s := NewState(nil)
	var got []string
	s.On(EventTrialChanged, func(data interface{}) { got = append(got, "a") })
	s.On(EventTrialChanged, func(data interface{}) { got = append(got, fmt.Sprint(data)) })
	s.On(EventRunStarted, func(interface{}) { got = append(got, "never") })

	s.Emit(EventTrialChanged, 7)
	assert.Equal(t, []string{"a", "7"}, got)
	assert.NotNil(t, s.Config)
}

func TestTrainWithoutDataset(t *testing.T) {
	s := newTestState()
	assert.ErrorIs(t, s.Train(context.Background()), ErrNoDataset)
	assert.ErrorIs(t, s.SelectClassifier("LDA"), ErrNoResult)
	assert.False(t, s.NextTrial())
	assert.False(t, s.PrevTrial())
}

func TestTrainAndBrowse(t *testing.T) {
	s := newTestState()
	var events []EventType
	for _, ev := range []EventType{EventDatasetLoaded, EventRunStarted, EventRunComplete, EventRunFailed, EventClassifierChanged, EventTrialChanged} {
		ev := ev
		s.On(ev, func(interface{}) { events = append(events, ev) })
	}
	var last presenter.TrialView
	s.On(EventTrialChanged, func(data interface{}) { last = data.(presenter.TrialView) })

	s.SetDataset("memory", dataset(10))
	require.NoError(t, s.Train(context.Background()))
	require.NotNil(t, s.Presenter)
	require.NotNil(t, s.Result)
	assert.False(t, s.Running)
	assert.Equal(t, []EventType{EventDatasetLoaded, EventRunStarted, EventRunComplete}, events)

	assert.False(t, s.PrevTrial())
	assert.True(t, s.NextTrial())
	assert.Equal(t, 2, last.Trial)
	assert.Equal(t, "SVM", last.Classifier)

	require.NoError(t, s.SelectClassifier("LDA"))
	assert.Equal(t, "LDA", last.Classifier)
	assert.Equal(t, 2, last.Trial)
	assert.Error(t, s.SelectClassifier("kNN"))

	// Loading a new dataset drops the old result.
	s.SetDataset("memory", dataset(10))
	assert.Nil(t, s.Presenter)
	assert.Nil(t, s.Result)
}

func TestTrainFailureEmits(t *testing.T) {
	s := newTestState()
	var failed error
	var runningAtFailure bool
	s.On(EventRunFailed, func(data interface{}) {
		failed = data.(error)
		runningAtFailure = s.IsRunning()
	})

	s.SetDataset("memory", dataset(1))
	err := s.Train(context.Background())
	require.Error(t, err)
	assert.Equal(t, err, failed)
	assert.False(t, runningAtFailure, "listeners must see the run as finished")
	assert.Nil(t, s.Presenter)
	assert.False(t, s.Running)
}

func TestRunCompleteSeesFinishedRun(t *testing.T) {
	s := newTestState()
	var running, hasResult bool
	s.On(EventRunComplete, func(interface{}) {
		running = s.IsRunning()
		hasResult = s.LastResult() != nil && s.CurrentPresenter() != nil
	})

	s.SetDataset("memory", dataset(10))
	assert.True(t, s.HasDataset())
	assert.Equal(t, "memory", s.CurrentDatasetPath())
	require.NoError(t, s.Train(context.Background()))
	assert.False(t, running)
	assert.True(t, hasResult)

	// A second run is accepted straight away.
	require.NoError(t, s.Train(context.Background()))
}

func TestTrainRecordsHistory(t *testing.T) {
	store, err := history.Open(filepath.Join(t.TempDir(), "h.db"))
	require.NoError(t, err)
	defer store.Close()

	s := newTestState()
	s.History = store
	var recorded [][]string
	s.On(EventRunRecorded, func(data interface{}) { recorded = append(recorded, data.([]string)) })

	ds := dataset(10)
	ds.Subject = 1
	ds.Source = "/data/BCICIV_2a_1.csv"
	ds.Digest = "digest-a"
	s.SetDataset(ds.Source, ds)
	require.NoError(t, s.Train(context.Background()))
	require.NoError(t, s.Train(context.Background()))

	runs, err := store.List(context.Background(), 1, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "digest-a", runs[0].Recording)
	assert.Equal(t, "BCICIV_2a_1.csv", runs[0].Source)
	require.Len(t, recorded, 2)
	assert.Empty(t, recorded[0])
	assert.Empty(t, recorded[1], "identical data and seed must reproduce")

	// A different recording of the same subject starts its own baseline
	// even though its runs differ from the ones above.
	other := dataset(12)
	other.Subject = 1
	other.Source = "/data/session-b.csv"
	other.Digest = "digest-b"
	s.SetDataset(other.Source, other)
	require.NoError(t, s.Train(context.Background()))
	require.Len(t, recorded, 3)
	assert.Empty(t, recorded[2])
}

func TestLoadDatasetMissingFile(t *testing.T) {
	s := newTestState()
	assert.Error(t, s.LoadDataset(filepath.Join(t.TempDir(), "none.csv")))
	assert.Nil(t, s.Dataset)
}

func TestFileWatcherDetectsChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rec.csv")
	require.NoError(t, os.WriteFile(path, []byte("a"), 0o644))

	s := newTestState()
	s.SetDataset(path, &eeg.Dataset{})
	changed := make(chan interface{}, 1)
	s.On(EventDatasetChanged, func(data interface{}) {
		select {
		case changed <- data:
		default:
		}
	})

	w := s.WatchDataset(5 * time.Millisecond)
	require.NotNil(t, w)
	defer w.Stop()
	assert.False(t, w.Changed())

	later := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(path, later, later))

	select {
	case data := <-changed:
		assert.Equal(t, path, data)
	case <-time.After(5 * time.Second):
		t.Fatal("change not detected")
	}
	assert.False(t, w.Changed())
	w.Stop()
}

func TestFileWatcherStartTwiceKeepsOnePoller(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rec.csv")
	require.NoError(t, os.WriteFile(path, []byte("a"), 0o644))

	w := NewFileWatcher(path, time.Millisecond)
	require.NotNil(t, w)
	var mu sync.Mutex
	ticks := 0
	w.OnTick(func() {
		mu.Lock()
		ticks++
		mu.Unlock()
	})

	w.Start()
	w.mu.Lock()
	first := w.stopCh
	w.mu.Unlock()
	w.Start()
	w.mu.Lock()
	assert.Equal(t, first, w.stopCh, "second Start must not replace the running poller")
	w.mu.Unlock()

	w.Stop()
	time.Sleep(20 * time.Millisecond)
	mu.Lock()
	stopped := ticks
	mu.Unlock()
	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	assert.Equal(t, stopped, ticks, "no poller may survive Stop")
	mu.Unlock()

	w.Start()
	w.mu.Lock()
	assert.NotNil(t, w.stopCh)
	w.mu.Unlock()
	w.Stop()
}

func TestFileWatcherMissingFile(t *testing.T) {
	assert.Nil(t, NewFileWatcher(filepath.Join(t.TempDir(), "x"), time.Second))
	assert.Nil(t, NewState(nil).WatchDataset(time.Second))
}

func TestThemeOverridesPrimary(t *testing.T) {
	a := test.NewApp()
	t.Cleanup(a.Quit)

	var th fyne.Theme = &BCITheme{}
	assert.NotEqual(t, theme.DefaultTheme().Color(theme.ColorNamePrimary, theme.VariantDark),
		th.Color(theme.ColorNamePrimary, theme.VariantDark))
	assert.Equal(t, float32(28), th.Size(theme.SizeNameHeadingText))
}

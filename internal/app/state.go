// Package app provides application lifecycle management, configuration, and events.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"mi-bci/internal/config"
	"mi-bci/internal/eeg"
	"mi-bci/internal/history"
	"mi-bci/internal/pipeline"
	"mi-bci/internal/presenter"
)

var (
	// ErrNoDataset is returned when a run is requested before a recording is loaded.
	ErrNoDataset = errors.New("no dataset loaded")

	// ErrBusy is returned when a run is requested while another is in progress.
	ErrBusy = errors.New("a run is already in progress")

	// ErrNoResult is returned by navigation before any run has completed.
	ErrNoResult = errors.New("no result to browse")
)

// State holds the application state: the loaded recording, the last run
// and the presenter browsing it.
type State struct {
	mu sync.RWMutex

	Config *config.Config

	// Dataset
	DatasetPath string
	Dataset     *eeg.Dataset

	// Last run
	Running   bool
	Result    *pipeline.Result
	Presenter *presenter.Presenter

	// Optional run ledger; runs are recorded when set.
	History *history.Store

	// Logf defaults to log.Printf.
	Logf func(format string, args ...any)

	// Event listeners
	listeners map[EventType][]EventListener
}

// EventType identifies different application events.
type EventType int

const (
	EventDatasetLoaded EventType = iota
	EventDatasetChanged
	EventRunStarted
	EventRunComplete
	EventRunFailed
	EventRunRecorded
	EventClassifierChanged
	EventTrialChanged
)

// EventListener is called when an event occurs.
type EventListener func(data interface{})

// NewState creates a new application state. A nil cfg uses config.Default.
func NewState(cfg *config.Config) *State {
	if cfg == nil {
		cfg = config.Default()
	}
	return &State{
		Config:    cfg,
		listeners: make(map[EventType][]EventListener),
	}
}

// On registers an event listener for the specified event type.
func (s *State) On(event EventType, listener EventListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners[event] = append(s.listeners[event], listener)
}

// Emit triggers all listeners for the specified event type.
func (s *State) Emit(event EventType, data interface{}) {
	s.mu.RLock()
	listeners := s.listeners[event]
	s.mu.RUnlock()

	for _, listener := range listeners {
		listener(data)
	}
}

func (s *State) logf(format string, args ...any) {
	if s.Logf != nil {
		s.Logf(format, args...)
		return
	}
	log.Printf(format, args...)
}

// LoadDataset reads and band-pass filters a CSV recording. The previous
// result is discarded.
func (s *State) LoadDataset(path string) error {
	rec, err := eeg.LoadFile(path)
	if err != nil {
		return err
	}
	opts := eeg.NewOptions(s.Config)
	opts.Logf = s.Logf
	ds, err := eeg.Preprocess(rec, opts)
	if err != nil {
		return fmt.Errorf("preprocess %s: %w", path, err)
	}
	if ds.Subject == 0 {
		ds.Subject = s.Config.Subject
	}
	s.SetDataset(path, ds)
	return nil
}

// SetDataset installs an already preprocessed dataset.
func (s *State) SetDataset(path string, ds *eeg.Dataset) {
	s.mu.Lock()
	s.DatasetPath = path
	s.Dataset = ds
	s.Result = nil
	s.Presenter = nil
	s.mu.Unlock()

	s.logf("Loaded %d epochs, %d channels from %s", len(ds.Epochs), len(ds.Channels), path)
	s.Emit(EventDatasetLoaded, ds)
}

// Train runs the pipeline on the loaded dataset and opens a presenter on
// the result. It blocks; the GUI calls it from a goroutine. Running is
// cleared before RunComplete or RunFailed is emitted.
func (s *State) Train(ctx context.Context) error {
	s.mu.Lock()
	if s.Dataset == nil {
		s.mu.Unlock()
		return ErrNoDataset
	}
	if s.Running {
		s.mu.Unlock()
		return ErrBusy
	}
	s.Running = true
	ds := s.Dataset
	s.mu.Unlock()

	s.Emit(EventRunStarted, len(ds.Epochs))

	opts := pipeline.NewOptions(s.Config)
	opts.Logf = s.Logf
	res, err := pipeline.Run(ctx, ds.Signals(), ds.Labels(), opts)
	var p *presenter.Presenter
	if err == nil {
		p, err = presenter.New(res)
	}

	s.mu.Lock()
	s.Running = false
	if err == nil {
		s.Result = res
		s.Presenter = p
	}
	s.mu.Unlock()

	if err != nil {
		s.logf("Run failed: %v", err)
		s.Emit(EventRunFailed, err)
		return err
	}

	s.logf("Run %s complete in %s", res.RunID, res.Duration)
	s.Emit(EventRunComplete, res)
	s.record(ctx, ds, res)
	return nil
}

// record stores res in the ledger and reports changes against the
// previous run on the same recording. Ledger failures only log.
func (s *State) record(ctx context.Context, ds *eeg.Dataset, res *pipeline.Result) {
	if s.History == nil {
		return
	}
	run := history.FromResult(res, ds)
	if err := s.History.Save(ctx, run); err != nil {
		s.logf("Warning: record run: %v", err)
		return
	}
	var changes []string
	prev, err := s.History.Latest(ctx, run.Recording, run.ID)
	switch {
	case err == nil:
		changes = history.Diff(prev, run)
	case !errors.Is(err, history.ErrNotFound):
		s.logf("Warning: previous run: %v", err)
	}
	for _, c := range changes {
		s.logf("Changed since previous run: %s", c)
	}
	s.Emit(EventRunRecorded, changes)
}

// IsRunning reports whether a run is in progress.
func (s *State) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Running
}

// HasDataset reports whether a recording is loaded.
func (s *State) HasDataset() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Dataset != nil
}

// CurrentDatasetPath returns the path of the loaded recording.
func (s *State) CurrentDatasetPath() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.DatasetPath
}

// LastResult returns the result of the last successful run, or nil.
func (s *State) LastResult() *pipeline.Result {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Result
}

// CurrentPresenter returns the presenter over the last result, or nil.
func (s *State) CurrentPresenter() *presenter.Presenter {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Presenter
}

// SelectClassifier switches the browsed classifier.
func (s *State) SelectClassifier(name string) error {
	p := s.CurrentPresenter()
	if p == nil {
		return ErrNoResult
	}
	if err := p.Select(name); err != nil {
		return err
	}
	s.Emit(EventClassifierChanged, name)
	s.Emit(EventTrialChanged, p.View())
	return nil
}

// NextTrial advances to the next held-out trial. It reports false at the end.
func (s *State) NextTrial() bool {
	return s.step((*presenter.Presenter).Next)
}

// PrevTrial moves to the previous held-out trial. It reports false at the start.
func (s *State) PrevTrial() bool {
	return s.step((*presenter.Presenter).Prev)
}

func (s *State) step(move func(*presenter.Presenter) bool) bool {
	p := s.CurrentPresenter()
	if p == nil || !move(p) {
		return false
	}
	s.Emit(EventTrialChanged, p.View())
	return true
}


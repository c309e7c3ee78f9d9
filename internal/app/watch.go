package app

import (
	"os"
	"path/filepath"
	"sync"
	"syscall"
	"time"
)

// FileWatcher polls a file's modification time and invokes a callback when
// it moves past the baseline. It is used for the loaded recording and, in
// development builds, for the running binary.
type FileWatcher struct {
	path     string
	interval time.Duration

	mu       sync.Mutex
	baseline time.Time
	stopCh   chan struct{}
	onChange func()
	onTick   func()
}

// NewFileWatcher watches path. Returns nil if the file cannot be stat'ed.
func NewFileWatcher(path string, interval time.Duration) *FileWatcher {
	if real, err := filepath.EvalSymlinks(path); err == nil {
		path = real
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil
	}
	return &FileWatcher{
		path:     path,
		interval: interval,
		baseline: info.ModTime(),
	}
}

// NewBinaryWatcher watches the current executable.
func NewBinaryWatcher(interval time.Duration) *FileWatcher {
	exe, err := os.Executable()
	if err != nil {
		return nil
	}
	return NewFileWatcher(exe, interval)
}

// OnChange sets the callback for a detected modification. It runs on the
// watcher goroutine.
func (w *FileWatcher) OnChange(fn func()) {
	w.mu.Lock()
	w.onChange = fn
	w.mu.Unlock()
}

// OnTick sets a callback invoked on every poll.
func (w *FileWatcher) OnTick(fn func()) {
	w.mu.Lock()
	w.onTick = fn
	w.mu.Unlock()
}

// Start begins polling in a background goroutine. It does nothing while
// the watcher is already polling.
func (w *FileWatcher) Start() {
	w.mu.Lock()
	if w.stopCh != nil {
		w.mu.Unlock()
		return
	}
	w.stopCh = make(chan struct{})
	stop := w.stopCh
	w.mu.Unlock()
	go w.loop(stop)
}

// Stop ends polling. It is safe to call more than once, and Start may be
// called again afterwards.
func (w *FileWatcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopCh != nil {
		close(w.stopCh)
		w.stopCh = nil
	}
}

func (w *FileWatcher) loop(stop chan struct{}) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			w.mu.Lock()
			tick, change := w.onTick, w.onChange
			w.mu.Unlock()
			if tick != nil {
				tick()
			}
			if w.Changed() {
				// Fire once per modification.
				w.ResetBaseline()
				if change != nil {
					change()
				}
			}
		}
	}
}

// Changed reports whether the file was modified after the baseline.
func (w *FileWatcher) Changed() bool {
	info, err := os.Stat(w.path)
	if err != nil {
		return false
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return info.ModTime().After(w.baseline)
}

// ResetBaseline moves the baseline to the file's current modification time.
func (w *FileWatcher) ResetBaseline() {
	if info, err := os.Stat(w.path); err == nil {
		w.mu.Lock()
		w.baseline = info.ModTime()
		w.mu.Unlock()
	}
}

// Path returns the watched file.
func (w *FileWatcher) Path() string {
	return w.path
}

// Baseline returns the modification time changes are compared against.
func (w *FileWatcher) Baseline() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.baseline
}

// WatchDataset emits EventDatasetChanged whenever the loaded recording is
// rewritten on disk. The returned watcher is already running.
func (s *State) WatchDataset(interval time.Duration) *FileWatcher {
	path := s.CurrentDatasetPath()
	if path == "" {
		return nil
	}
	w := NewFileWatcher(path, interval)
	if w == nil {
		return nil
	}
	w.OnChange(func() { s.Emit(EventDatasetChanged, path) })
	w.Start()
	return w
}

// RestartProcess replaces the current process with a new instance of the
// specified executable, preserving command line arguments and environment.
// This function does not return on success.
func RestartProcess(execPath string) error {
	return syscall.Exec(execPath, os.Args, os.Environ())
}

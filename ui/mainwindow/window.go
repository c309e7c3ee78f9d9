// Package mainwindow provides the main application window.
package mainwindow

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"time"

	"mi-bci/internal/app"
	"mi-bci/internal/eeg"
	"mi-bci/internal/pipeline"
	"mi-bci/internal/report"
	"mi-bci/internal/version"
	"mi-bci/ui/panels"
	"mi-bci/ui/prefs"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/widget"
)

const appTitle = "Motor Imagery BCI"

// MainWindow is the primary application window.
type MainWindow struct {
	fyne.Window
	app   fyne.App
	state *app.State
	prefs *prefs.Prefs

	matrix    *panels.MatrixPanel
	arrows    *panels.ArrowPanel
	controls  *panels.ControlPanel
	statusBar *widget.Label
	progress  *widget.ProgressBarInfinite

	runItem    *fyne.MenuItem
	saveItem   *fyne.MenuItem
	reportItem *fyne.MenuItem
	watcher    *app.FileWatcher
	cancelRun  context.CancelFunc
}

// New creates a new main window.
func New(fyneApp fyne.App, state *app.State, p *prefs.Prefs) *MainWindow {
	win := fyneApp.NewWindow(appTitle)

	mw := &MainWindow{
		Window: win,
		app:    fyneApp,
		state:  state,
		prefs:  p,
	}

	mw.setupUI()
	mw.setupMenus()
	mw.setupEventHandlers()
	mw.updateMenus()

	w := p.FloatWithFallback(prefs.KeyWindowWidth, 1200)
	h := p.FloatWithFallback(prefs.KeyWindowHeight, 720)
	mw.Resize(fyne.NewSize(float32(w), float32(h)))

	return mw
}

// setupUI creates the main UI layout.
func (mw *MainWindow) setupUI() {
	mw.matrix = panels.NewMatrixPanel(mw.prefs.Int(prefs.KeyHeatmapScale, 2))
	mw.arrows = panels.NewArrowPanel()
	mw.controls = panels.NewControlPanel(mw.state)

	mw.statusBar = widget.NewLabel("Ready")
	mw.progress = widget.NewProgressBarInfinite()
	mw.progress.Stop()
	mw.progress.Hide()

	side := container.NewBorder(
		mw.controls.Container(), // top
		nil,                     // bottom
		nil,                     // left
		nil,                     // right
		mw.arrows.Container(),   // center
	)

	// Create main layout: controls and arrows | confusion matrices
	split := container.NewHSplit(side, container.NewScroll(mw.matrix.Container()))
	split.SetOffset(0.3)

	// Status bar at bottom with the run spinner on its right
	status := container.NewBorder(nil, nil, nil, mw.progress, mw.statusBar)
	content := container.NewBorder(
		nil,                         // top
		container.NewPadded(status), // bottom
		nil,                         // left
		nil,                         // right
		split,                       // center
	)

	mw.SetContent(content)
}

// setupMenus creates the application menus.
func (mw *MainWindow) setupMenus() {
	mw.runItem = fyne.NewMenuItem("Run Training", mw.onRun)
	mw.saveItem = fyne.NewMenuItem("Save Confusion Matrices...", mw.onSaveHeatmaps)
	mw.reportItem = fyne.NewMenuItem("Save Report...", mw.onSaveReport)

	fileMenu := fyne.NewMenu("File",
		fyne.NewMenuItem("Open Recording...", mw.onOpenRecording),
		fyne.NewMenuItemSeparator(),
		mw.saveItem,
		mw.reportItem,
	)

	runMenu := fyne.NewMenu("Run",
		mw.runItem,
		fyne.NewMenuItem("Cancel", mw.onCancel),
	)

	viewMenu := fyne.NewMenu("View",
		fyne.NewMenuItem("SVM", func() { mw.selectClassifier("SVM") }),
		fyne.NewMenuItem("LDA", func() { mw.selectClassifier("LDA") }),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Previous Trial", func() { mw.state.PrevTrial() }),
		fyne.NewMenuItem("Next Trial", func() { mw.state.NextTrial() }),
	)

	helpMenu := fyne.NewMenu("Help",
		fyne.NewMenuItem("About", mw.onAbout),
	)

	mw.SetMainMenu(fyne.NewMainMenu(fileMenu, runMenu, viewMenu, helpMenu))
}

// setupEventHandlers registers for application events.
func (mw *MainWindow) setupEventHandlers() {
	mw.state.On(app.EventDatasetLoaded, func(data interface{}) {
		ds, ok := data.(*eeg.Dataset)
		if !ok {
			return
		}
		mw.SetTitle(appTitle + " - " + filepath.Base(mw.state.CurrentDatasetPath()))
		mw.matrix.SetResult(nil)
		mw.arrows.SetArrows(nil)
		mw.controls.SetPresenter(nil)
		status := fmt.Sprintf("Loaded %d epochs, %d channels", len(ds.Epochs), len(ds.Channels))
		if n := skipped(ds); n > 0 {
			status += fmt.Sprintf(" (%d discarded)", n)
		}
		mw.updateStatus(status)
		mw.updateMenus()
		mw.watchDataset()
	})

	mw.state.On(app.EventDatasetChanged, func(data interface{}) {
		path, _ := data.(string)
		dialog.ShowConfirm("Recording Changed",
			fmt.Sprintf("%s was modified on disk.\nReload it?", filepath.Base(path)),
			func(ok bool) {
				if ok {
					mw.loadRecording(path)
				}
			}, mw.Window)
	})

	mw.state.On(app.EventRunStarted, func(data interface{}) {
		mw.updateStatus(fmt.Sprintf("Training on %v epochs...", data))
		mw.progress.Show()
		mw.progress.Start()
		mw.updateMenus()
	})

	mw.state.On(app.EventRunComplete, func(data interface{}) {
		res, ok := data.(*pipeline.Result)
		if !ok {
			return
		}
		mw.progress.Stop()
		mw.progress.Hide()
		mw.matrix.SetResult(res)

		p := mw.state.CurrentPresenter()
		if name := mw.prefs.String(prefs.KeyClassifier); name != "" {
			_ = p.Select(name)
		}
		mw.controls.SetPresenter(p)
		mw.arrows.SetArrows(p.Arrows())
		mw.updateStatus(fmt.Sprintf("SVM %.2f%%, LDA %.2f%% on %d held-out trials (%s)",
			res.SVM.Accuracy*100, res.LDA.Accuracy*100, len(res.TestIndices), res.Duration.Round(time.Millisecond)))
		mw.updateMenus()
	})

	mw.state.On(app.EventRunFailed, func(data interface{}) {
		mw.progress.Stop()
		mw.progress.Hide()
		err, _ := data.(error)
		mw.updateStatus("Run failed")
		mw.updateMenus()
		if err != nil {
			dialog.ShowError(err, mw.Window)
		}
	})

	mw.state.On(app.EventRunRecorded, func(data interface{}) {
		if changes, ok := data.([]string); ok && len(changes) > 0 {
			mw.updateStatus(fmt.Sprintf("%s; %d changes since previous run", mw.statusBar.Text, len(changes)))
		}
	})

	mw.state.On(app.EventClassifierChanged, func(data interface{}) {
		if name, ok := data.(string); ok {
			mw.prefs.SetString(prefs.KeyClassifier, name)
		}
	})

	mw.state.On(app.EventTrialChanged, func(data interface{}) {
		p := mw.state.CurrentPresenter()
		if p == nil {
			return
		}
		mw.controls.Update(p)
		mw.arrows.SetArrows(p.Arrows())
	})

	mw.SetCloseIntercept(func() {
		mw.onCancel()
		if mw.watcher != nil {
			mw.watcher.Stop()
		}
		mw.SavePreferences()
		mw.Close()
	})
}

func skipped(ds *eeg.Dataset) int {
	n := 0
	for _, c := range ds.Skipped {
		n += c
	}
	return n
}

func (mw *MainWindow) updateMenus() {
	hasResult := mw.state.LastResult() != nil
	mw.runItem.Disabled = !mw.state.HasDataset() || mw.state.IsRunning()
	mw.saveItem.Disabled = !hasResult
	mw.reportItem.Disabled = !hasResult
	if menu := mw.MainMenu(); menu != nil {
		menu.Refresh()
	}
}

// updateStatus updates the status bar text.
func (mw *MainWindow) updateStatus(text string) {
	mw.statusBar.SetText(text)
}

// getLastDir returns the last used directory as a ListableURI, or nil.
func (mw *MainWindow) getLastDir() fyne.ListableURI {
	path := mw.prefs.String(prefs.KeyLastDataDir)
	if path == "" {
		return nil
	}
	listable, err := storage.ListerForURI(storage.NewFileURI(path))
	if err != nil {
		return nil
	}
	return listable
}

// saveLastDir saves the directory of the given file path.
func (mw *MainWindow) saveLastDir(filePath string) {
	mw.prefs.SetString(prefs.KeyLastDataDir, filepath.Dir(filePath))
}

// RestoreLastRecording reloads the recording open in the previous session.
func (mw *MainWindow) RestoreLastRecording() {
	if path := mw.prefs.String(prefs.KeyLastDataset); path != "" {
		mw.loadRecording(path)
	}
}

// OpenRecording loads path and immediately runs training on it.
func (mw *MainWindow) OpenRecording(path string) {
	if mw.loadRecording(path) {
		mw.onRun()
	}
}

// SavePreferences stores window geometry and writes preferences if anything changed.
func (mw *MainWindow) SavePreferences() {
	size := mw.Canvas().Size()
	if size.Width > 0 && size.Height > 0 {
		mw.prefs.SetFloat(prefs.KeyWindowWidth, float64(size.Width))
		mw.prefs.SetFloat(prefs.KeyWindowHeight, float64(size.Height))
	}
	mw.SavePreferencesIfChanged()
}

// SavePreferencesIfChanged writes preferences when a setter ran since the last save.
func (mw *MainWindow) SavePreferencesIfChanged() {
	if err := mw.prefs.SaveIfChanged(); err != nil {
		log.Printf("Save preferences: %v", err)
	}
}

func (mw *MainWindow) watchDataset() {
	if mw.watcher != nil {
		mw.watcher.Stop()
	}
	mw.watcher = mw.state.WatchDataset(2 * time.Second)
}

// Menu action handlers

func (mw *MainWindow) onOpenRecording() {
	fd := dialog.NewFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil || reader == nil {
			return
		}
		reader.Close()
		path := reader.URI().Path()
		mw.saveLastDir(path)
		mw.OpenRecording(path)
	}, mw.Window)
	fd.SetFilter(storage.NewExtensionFileFilter([]string{".csv"}))
	if loc := mw.getLastDir(); loc != nil {
		fd.SetLocation(loc)
	}
	fd.Show()
}

func (mw *MainWindow) loadRecording(path string) bool {
	mw.updateStatus("Loading " + filepath.Base(path) + "...")
	if err := mw.state.LoadDataset(path); err != nil {
		mw.updateStatus("Load failed")
		dialog.ShowError(err, mw.Window)
		return false
	}
	mw.prefs.SetString(prefs.KeyLastDataset, path)
	return true
}

func (mw *MainWindow) onRun() {
	ctx, cancel := context.WithCancel(context.Background())
	mw.cancelRun = cancel
	go func() {
		defer cancel()
		// Failures are reported through EventRunFailed.
		if err := mw.state.Train(ctx); err != nil {
			log.Printf("Training: %v", err)
		}
	}()
}

func (mw *MainWindow) onCancel() {
	if mw.cancelRun != nil {
		mw.cancelRun()
	}
}

func (mw *MainWindow) selectClassifier(name string) {
	if err := mw.state.SelectClassifier(name); err != nil {
		mw.updateStatus(err.Error())
	}
}

func (mw *MainWindow) onSaveHeatmaps() {
	res := mw.state.LastResult()
	if res == nil {
		return
	}
	fd := dialog.NewFileSave(func(writer fyne.URIWriteCloser, err error) {
		if err != nil || writer == nil {
			return
		}
		writer.Close()
		path := writer.URI().Path()
		if !report.IsSupportedFormat(path) {
			path += ".png"
		}
		img := mw.matrix.Image()
		if img == nil {
			return
		}
		if err := report.Save(path, img); err != nil {
			dialog.ShowError(err, mw.Window)
			return
		}
		mw.updateStatus("Saved " + path)
	}, mw.Window)
	fd.SetFileName("confusion-matrices.png")
	fd.SetFilter(storage.NewExtensionFileFilter(report.SupportedFormats()))
	if loc := mw.getLastDir(); loc != nil {
		fd.SetLocation(loc)
	}
	fd.Show()
}

func (mw *MainWindow) onSaveReport() {
	res := mw.state.LastResult()
	if res == nil {
		return
	}
	fd := dialog.NewFileSave(func(writer fyne.URIWriteCloser, err error) {
		if err != nil || writer == nil {
			return
		}
		defer writer.Close()
		if err := report.WriteText(writer, res); err != nil {
			dialog.ShowError(err, mw.Window)
			return
		}
		mw.updateStatus("Saved " + writer.URI().Path())
	}, mw.Window)
	fd.SetFileName("report.txt")
	fd.Show()
}

func (mw *MainWindow) onAbout() {
	dialog.ShowInformation("About "+appTitle,
		fmt.Sprintf("%s v%s\n\n"+
			"Offline four-class motor-imagery decoding:\n"+
			"CSP features with SVM and LDA classifiers.\n\n"+
			"Heatmap formats: %s\n\n"+
			"Built: %s\n"+
			"Commit: %s",
			appTitle, version.Version, strings.Join(report.SupportedFormats(), " "),
			version.BuildTime, version.GitCommit),
		mw.Window)
}

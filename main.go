// Package main provides the entry point for the motor-imagery BCI browser.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"mi-bci/internal/app"
	"mi-bci/internal/config"
	"mi-bci/internal/history"
	"mi-bci/internal/version"
	"mi-bci/ui/mainwindow"
	"mi-bci/ui/prefs"

	fyneapp "fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/dialog"
)

func main() {
	configPath := flag.String("config", "", "YAML configuration file")
	noHistory := flag.Bool("no-history", false, "do not record runs in the history database")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options] [recording.csv]\n\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String("mi-bci"))
		return
	}

	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Printf("Starting mi-bci v%s", version.Version)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Config: %v", err)
	}

	a := fyneapp.NewWithID("io.github.mi-bci")
	a.Settings().SetTheme(&app.BCITheme{})

	appState := app.NewState(cfg)
	appPrefs := prefs.Load()

	if !*noHistory {
		store, err := history.Open(cfg.HistoryDB)
		if err != nil {
			log.Printf("History disabled: %v", err)
		} else {
			defer store.Close()
			appState.History = store
		}
	}

	win := mainwindow.New(a, appState, appPrefs)

	// Handle command line arguments
	if flag.NArg() > 0 {
		win.OpenRecording(flag.Arg(0))
	} else {
		win.RestoreLastRecording()
	}

	setupHotReload(win)

	win.ShowAndRun()
}

// setupHotReload saves preferences periodically and offers a restart when
// the binary is recompiled.
func setupHotReload(win *mainwindow.MainWindow) {
	reloader := app.NewBinaryWatcher(2 * time.Second)
	if reloader == nil {
		log.Println("Hot reload: unable to determine executable path")
		return
	}

	log.Printf("Hot reload: watching %s (modified %s)",
		reloader.Path(), reloader.Baseline().Format("15:04:05"))

	reloader.OnTick(func() {
		win.SavePreferencesIfChanged()
	})

	reloader.OnChange(func() {
		log.Println("Hot reload: newer binary detected")
		dialog.ShowConfirm("New Version Available",
			"The application binary has been updated.\nRestart now?",
			func(ok bool) {
				if !ok {
					return
				}
				log.Println("Hot reload: saving preferences before restart...")
				win.SavePreferences()
				log.Println("Hot reload: restarting...")
				if err := app.RestartProcess(reloader.Path()); err != nil {
					log.Printf("Hot reload: restart failed: %v", err)
				}
			}, win.Window)
	})

	reloader.Start()
}

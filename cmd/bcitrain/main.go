// Command bcitrain runs the motor-imagery pipeline on one recording without
// the GUI. It prints the classification report, writes the confusion-matrix
// heatmaps and records the run in the history database.
//
// Usage: bcitrain [-config file.yaml] [-subject N | -file recording.csv] [options]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"time"

	"mi-bci/internal/config"
	"mi-bci/internal/eeg"
	"mi-bci/internal/history"
	"mi-bci/internal/pipeline"
	"mi-bci/internal/report"
	"mi-bci/internal/version"
)

func main() {
	configPath := flag.String("config", "", "YAML configuration file")
	subject := flag.Int("subject", 0, "subject number (overrides config)")
	dataDir := flag.String("data", "", "directory holding BCICIV_2a_<subject>.csv (overrides config)")
	file := flag.String("file", "", "recording CSV (overrides -data and -subject)")
	outDir := flag.String("out", "", "heatmap output directory (overrides config)")
	format := flag.String("format", ".png", "heatmap format: "+strings.Join(report.SupportedFormats(), ", "))
	scale := flag.Int("scale", 2, "heatmap upscaling factor")
	workers := flag.Int("workers", 0, "parallel grid search workers (overrides config)")
	historyDB := flag.String("history", "", "history database (overrides config)")
	noHistory := flag.Bool("no-history", false, "do not record the run")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String("bcitrain"))
		return
	}

	log.SetFlags(log.LstdFlags | log.Lshortfile)

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if *subject > 0 {
		cfg.Subject = *subject
	}
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}
	if *outDir != "" {
		cfg.ReportDir = *outDir
	}
	if *workers > 0 {
		cfg.Training.Workers = *workers
	}
	if *historyDB != "" {
		cfg.HistoryDB = *historyDB
	}
	ext := strings.ToLower(*format)
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	if !report.IsSupportedFormat("x" + ext) {
		fmt.Fprintf(os.Stderr, "Error: unsupported heatmap format %q\n", *format)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, cfg, *file, ext, *scale, !*noHistory); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		var stageErr *pipeline.StageError
		if errors.As(err, &stageErr) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, file, ext string, scale int, record bool) error {
	path := file
	if path == "" {
		path = eeg.SubjectPath(cfg.DataDir, cfg.Subject)
	}

	fmt.Printf("Loading recording: %s\n", path)
	rec, err := eeg.LoadFile(path)
	if err != nil {
		return err
	}
	ds, err := eeg.Preprocess(rec, eeg.NewOptions(cfg))
	if err != nil {
		return fmt.Errorf("preprocess: %w", err)
	}
	if ds.Subject == 0 {
		ds.Subject = cfg.Subject
	}
	fmt.Println(keptSummary(ds))

	start := time.Now()
	res, err := pipeline.Run(ctx, ds.Signals(), ds.Labels(), pipeline.NewOptions(cfg))
	if err != nil {
		return err
	}
	fmt.Printf("Finished in %s\n\n", time.Since(start).Round(time.Millisecond))

	if err := report.WriteText(os.Stdout, res); err != nil {
		return err
	}

	paths, err := report.WriteHeatmaps(cfg.ReportDir, res, ext, scale)
	if err != nil {
		return fmt.Errorf("write heatmaps: %w", err)
	}
	fmt.Println()
	for _, p := range paths {
		fmt.Printf("Wrote %s\n", p)
	}

	if !record {
		return nil
	}
	return recordRun(ctx, cfg, ds, res)
}

// keptSummary describes the preprocessed dataset with skip reasons in a
// fixed order.
func keptSummary(ds *eeg.Dataset) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Kept %d epochs x %d channels", len(ds.Epochs), len(ds.Channels))
	for _, reason := range []string{eeg.SkipLabel, eeg.SkipShape, eeg.SkipShort} {
		if n := ds.Skipped[reason]; n > 0 {
			fmt.Fprintf(&b, ", %d %s", n, reason)
		}
	}
	return b.String()
}

// recordRun saves res and prints how it differs from the previous run on
// the same recording.
func recordRun(ctx context.Context, cfg *config.Config, ds *eeg.Dataset, res *pipeline.Result) error {
	store, err := history.Open(cfg.HistoryDB)
	if err != nil {
		return err
	}
	defer store.Close()

	run := history.FromResult(res, ds)
	if err := store.Save(ctx, run); err != nil {
		return err
	}
	fmt.Printf("Recorded run %s in %s\n", run.ID, cfg.HistoryDB)

	prev, err := store.Latest(ctx, run.Recording, run.ID)
	if errors.Is(err, history.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	changes := history.Diff(prev, run)
	if len(changes) == 0 {
		fmt.Printf("Reproduces run %s\n", prev.ID)
		return nil
	}
	fmt.Printf("Changes since run %s:\n", prev.ID)
	for _, c := range changes {
		fmt.Printf("  %s\n", c)
	}
	return nil
}

package eeg

import (
	"errors"
	"fmt"
	"log"

	"mi-bci/internal/config"
	"mi-bci/pkg/dsp"

	"gonum.org/v1/gonum/mat"
)

// Reasons an epoch can be discarded.
const (
	SkipLabel = "inconsistent label"
	SkipShape = "shape mismatch"
	SkipShort = "too short to filter"
)

// ErrNoEpochs is returned when preprocessing keeps no epoch at all.
var ErrNoEpochs = errors.New("no usable epochs")

// Options configures epoch filtering.
type Options struct {
	SampleRate float64
	LowHz      float64
	HighHz     float64
	Order      int

	// Logf receives warnings about discarded epochs. Defaults to log.Printf.
	Logf func(format string, args ...any)
}

// DefaultOptions returns the 8-30 Hz, 4th order Butterworth setup for 250 Hz recordings.
func DefaultOptions() Options {
	return Options{
		SampleRate: 250,
		LowHz:      8,
		HighHz:     30,
		Order:      4,
	}
}

// NewOptions takes the filter settings from cfg.
func NewOptions(cfg *config.Config) Options {
	return Options{
		SampleRate: cfg.Preprocess.SampleRate,
		LowHz:      cfg.Preprocess.LowHz,
		HighHz:     cfg.Preprocess.HighHz,
		Order:      cfg.Preprocess.Order,
	}
}

// Preprocess filters every channel of every epoch and drops epochs whose rows
// do not share exactly one label or whose length differs from the first kept epoch.
func Preprocess(rec *Recording, opts Options) (*Dataset, error) {
	logf := opts.Logf
	if logf == nil {
		logf = log.Printf
	}

	filter, err := dsp.ButterBandpass(opts.Order, opts.LowHz, opts.HighHz, opts.SampleRate)
	if err != nil {
		return nil, fmt.Errorf("design filter: %w", err)
	}

	ds := &Dataset{
		Source:     rec.Source,
		Digest:     rec.Digest,
		SampleRate: opts.SampleRate,
		Channels:   append([]string(nil), rec.Channels...),
		Skipped:    make(map[string]int),
	}

	samples := -1
	for _, raw := range rec.Epochs {
		label, ok := singleLabel(raw.Labels)
		if !ok {
			ds.Skipped[SkipLabel]++
			continue
		}
		if samples >= 0 && len(raw.Rows) != samples {
			logf("epoch %s: %d samples, expected %d; skipping", raw.ID, len(raw.Rows), samples)
			ds.Skipped[SkipShape]++
			continue
		}

		data, err := filterEpoch(filter, raw.Rows, len(rec.Channels))
		if errors.Is(err, dsp.ErrSignalTooShort) {
			logf("epoch %s: %v; skipping", raw.ID, err)
			ds.Skipped[SkipShort]++
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("epoch %s: %w", raw.ID, err)
		}

		samples = len(raw.Rows)
		ds.Epochs = append(ds.Epochs, Epoch{ID: raw.ID, Label: label, Data: data})
	}

	if len(ds.Epochs) == 0 {
		return nil, ErrNoEpochs
	}
	ds.Subject, _ = SubjectFromPath(rec.Source)
	return ds, nil
}

// singleLabel returns the label when all non-empty row labels agree.
func singleLabel(rowLabels []string) (string, bool) {
	label := ""
	for _, l := range rowLabels {
		if l == "" {
			continue
		}
		if label == "" {
			label = l
		} else if l != label {
			return "", false
		}
	}
	return label, label != ""
}

// filterEpoch band-passes each channel column independently.
func filterEpoch(filter dsp.Filter, rows [][]float64, channels int) (*mat.Dense, error) {
	data := mat.NewDense(len(rows), channels, nil)
	column := make([]float64, len(rows))
	for ch := 0; ch < channels; ch++ {
		for t, row := range rows {
			column[t] = row[ch]
		}
		filtered, err := dsp.FiltFilt(filter, column)
		if err != nil {
			return nil, err
		}
		data.SetCol(ch, filtered)
	}
	return data, nil
}

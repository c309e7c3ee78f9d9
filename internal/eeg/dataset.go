// Package eeg loads recorded motor-imagery sessions and turns them into
// band-pass filtered, fixed-shape epochs.
package eeg

import (
	"gonum.org/v1/gonum/mat"
)

// Epoch is one trial: a time × channel matrix of filtered amplitudes.
type Epoch struct {
	ID    string
	Label string
	Data  *mat.Dense
}

// Samples returns the number of time samples in the epoch.
func (e Epoch) Samples() int {
	r, _ := e.Data.Dims()
	return r
}

// Dataset is the preprocessed output for one recording.
type Dataset struct {
	Subject    int // 0 when the file name does not carry one
	Source     string
	Digest     string
	SampleRate float64
	Channels   []string
	Epochs     []Epoch

	// Skipped counts epochs discarded during preprocessing, keyed by reason.
	Skipped map[string]int
}

// Signals returns the epoch matrices in order.
func (d *Dataset) Signals() []*mat.Dense {
	out := make([]*mat.Dense, len(d.Epochs))
	for i, e := range d.Epochs {
		out[i] = e.Data
	}
	return out
}

// Labels returns the recorded label of every epoch in order.
func (d *Dataset) Labels() []string {
	out := make([]string, len(d.Epochs))
	for i, e := range d.Epochs {
		out[i] = e.Label
	}
	return out
}

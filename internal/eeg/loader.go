package eeg

import (
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Column names in the BCI Competition IV 2a CSV export.
const (
	ColumnLabel = "label"
	ColumnEpoch = "epoch"
)

var (
	// ErrMissingColumn is returned when a required column is absent.
	ErrMissingColumn = errors.New("missing column")

	// ErrNoChannels is returned when no column matches the channel filter.
	ErrNoChannels = errors.New("no EEG channels")
)

// RawEpoch holds the unfiltered rows recorded under one epoch identifier.
type RawEpoch struct {
	ID     string
	Labels []string    // label of every row, in file order
	Rows   [][]float64 // one row per sample, one value per channel
}

// Recording is a parsed CSV with rows grouped by epoch in first-appearance order.
type Recording struct {
	Channels []string
	Epochs   []*RawEpoch

	// Source and Digest are set by LoadFile. Digest is the hex SHA-256 of
	// the file contents and identifies the recording across runs.
	Source string
	Digest string
}

// SubjectPath returns the CSV path for a subject inside dir.
func SubjectPath(dir string, subject int) string {
	return filepath.Join(dir, fmt.Sprintf("BCICIV_2a_%d.csv", subject))
}

// SubjectFromPath extracts the subject number from a BCICIV_2a_<subject>.csv
// file name.
func SubjectFromPath(path string) (int, bool) {
	name := filepath.Base(path)
	if !strings.HasPrefix(name, "BCICIV_2a_") || !strings.EqualFold(filepath.Ext(name), ".csv") {
		return 0, false
	}
	subject, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(name, "BCICIV_2a_"), filepath.Ext(name)))
	if err != nil || subject <= 0 {
		return 0, false
	}
	return subject, true
}

// LoadSubject reads the recording for one subject.
func LoadSubject(dir string, subject int) (*Recording, error) {
	return LoadFile(SubjectPath(dir, subject))
}

// LoadFile reads a recording from a CSV export.
func LoadFile(path string) (*Recording, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open recording: %w", err)
	}
	defer f.Close()

	h := sha256.New()
	rec, err := ReadCSV(io.TeeReader(f, h), "EEG")
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	// drain anything the CSV reader left unread so the digest covers the file
	if _, err := io.Copy(h, f); err != nil {
		return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	rec.Source = path
	rec.Digest = hex.EncodeToString(h.Sum(nil))
	return rec, nil
}

// ReadCSV parses a recording. Channel columns are those whose header
// contains channelMarker.
func ReadCSV(r io.Reader, channelMarker string) (*Recording, error) {
	cr := csv.NewReader(r)
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	labelCol, epochCol := -1, -1
	var channelCols []int
	rec := &Recording{}
	for i, name := range header {
		name = strings.TrimSpace(name)
		switch {
		case name == ColumnLabel:
			labelCol = i
		case name == ColumnEpoch:
			epochCol = i
		case strings.Contains(name, channelMarker):
			channelCols = append(channelCols, i)
			rec.Channels = append(rec.Channels, name)
		}
	}
	if labelCol < 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, ColumnLabel)
	}
	if epochCol < 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, ColumnEpoch)
	}
	if len(channelCols) == 0 {
		return nil, fmt.Errorf("%w: no header contains %q", ErrNoChannels, channelMarker)
	}

	byID := make(map[string]*RawEpoch)
	line := 1
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		id := strings.TrimSpace(record[epochCol])
		ep, ok := byID[id]
		if !ok {
			ep = &RawEpoch{ID: id}
			byID[id] = ep
			rec.Epochs = append(rec.Epochs, ep)
		}

		row := make([]float64, len(channelCols))
		for j, col := range channelCols {
			v, err := strconv.ParseFloat(strings.TrimSpace(record[col]), 64)
			if err != nil {
				return nil, fmt.Errorf("line %d column %s: %w", line, header[col], err)
			}
			row[j] = v
		}
		ep.Rows = append(ep.Rows, row)
		ep.Labels = append(ep.Labels, strings.TrimSpace(record[labelCol]))
	}

	return rec, nil
}

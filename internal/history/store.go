// Package history keeps a SQLite ledger of pipeline runs so that results
// can be compared across code and configuration changes.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"reflect"
	"time"

	"mi-bci/internal/eeg"
	"mi-bci/internal/pipeline"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a run id is not in the ledger.
var ErrNotFound = errors.New("run not found")

// timeLayout sorts lexically in time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// ModelSummary is the recorded outcome of one classifier.
type ModelSummary struct {
	Name        string  `json:"name"`
	Params      string  `json:"params"`
	CVScore     float64 `json:"cv_score"`
	Accuracy    float64 `json:"accuracy"`
	Confusion   [][]int `json:"confusion"`
	Predictions []int   `json:"predictions"`
}

// Run is one ledger entry.
type Run struct {
	ID          string         `json:"id"`
	CreatedAt   time.Time      `json:"created_at"`
	Subject     int            `json:"subject"`
	Source      string         `json:"source,omitempty"`
	Recording   string         `json:"recording,omitempty"` // digest of the recording file
	Epochs      int            `json:"epochs"`
	Classes     []string       `json:"classes"`
	Components  int            `json:"components"`
	Outcomes    []string       `json:"outcomes"`
	TestIndices []int          `json:"test_indices"`
	Models      []ModelSummary `json:"models"`
}

// FromResult summarizes a pipeline result computed on ds.
func FromResult(res *pipeline.Result, ds *eeg.Dataset) *Run {
	run := &Run{
		ID:          res.RunID,
		CreatedAt:   res.StartedAt.UTC(),
		Subject:     ds.Subject,
		Recording:   ds.Digest,
		Epochs:      len(res.TrainIndices) + len(res.TestIndices),
		Classes:     res.Mapping.Values(),
		Components:  res.Components,
		TestIndices: res.TestIndices,
	}
	if ds.Source != "" {
		run.Source = filepath.Base(ds.Source)
	}
	for _, c := range res.Extraction {
		run.Outcomes = append(run.Outcomes, c.Outcome.String())
	}
	for _, m := range res.Models() {
		run.Models = append(run.Models, ModelSummary{
			Name:        m.Name,
			Params:      m.Best.String(),
			CVScore:     m.CVScore,
			Accuracy:    m.Accuracy,
			Confusion:   m.Confusion,
			Predictions: m.Predictions,
		})
	}
	return run
}

// Diff lists what differs between two runs on the same data. An empty
// result means the runs reproduced each other.
func Diff(a, b *Run) []string {
	var out []string
	if !reflect.DeepEqual(a.Classes, b.Classes) {
		out = append(out, fmt.Sprintf("classes %v vs %v", a.Classes, b.Classes))
	}
	if !reflect.DeepEqual(a.Outcomes, b.Outcomes) {
		out = append(out, fmt.Sprintf("csp outcomes %v vs %v", a.Outcomes, b.Outcomes))
	}
	if !reflect.DeepEqual(a.TestIndices, b.TestIndices) {
		out = append(out, "held-out trials differ")
	}
	byName := make(map[string]ModelSummary, len(b.Models))
	for _, m := range b.Models {
		byName[m.Name] = m
	}
	for _, m := range a.Models {
		o, ok := byName[m.Name]
		switch {
		case !ok:
			out = append(out, fmt.Sprintf("%s missing", m.Name))
			continue
		case m.Params != o.Params:
			out = append(out, fmt.Sprintf("%s parameters %s vs %s", m.Name, m.Params, o.Params))
		}
		if m.Accuracy != o.Accuracy {
			out = append(out, fmt.Sprintf("%s accuracy %.4f vs %.4f", m.Name, m.Accuracy, o.Accuracy))
		}
		if !reflect.DeepEqual(m.Predictions, o.Predictions) {
			out = append(out, fmt.Sprintf("%s predictions differ", m.Name))
		}
	}
	return out
}

// Store is the SQLite-backed ledger.
type Store struct {
	db *sql.DB
}

// Open opens or creates the ledger at path.
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(10000)&_pragma=journal_mode(WAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		created_at DATETIME NOT NULL,
		subject INTEGER NOT NULL,
		svm_accuracy REAL,
		lda_accuracy REAL,
		data TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_subject ON runs(subject, created_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Save inserts or replaces run.
func (s *Store) Save(ctx context.Context, run *Run) error {
	data, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("failed to marshal run: %w", err)
	}
	var svm, lda sql.NullFloat64
	for _, m := range run.Models {
		switch m.Name {
		case "SVM":
			svm = sql.NullFloat64{Float64: m.Accuracy, Valid: true}
		case "LDA":
			lda = sql.NullFloat64{Float64: m.Accuracy, Valid: true}
		}
	}

	query := `
		INSERT OR REPLACE INTO runs (id, created_at, subject, svm_accuracy, lda_accuracy, data)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err = s.db.ExecContext(ctx, query,
		run.ID,
		run.CreatedAt.UTC().Format(timeLayout),
		run.Subject,
		svm,
		lda,
		string(data),
	)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	return nil
}

// Get retrieves a run by ID
func (s *Store) Get(ctx context.Context, id string) (*Run, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM runs WHERE id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return decode(data)
}

// List returns the newest runs first. subject <= 0 lists all subjects and
// limit <= 0 lists everything.
func (s *Store) List(ctx context.Context, subject, limit int) ([]*Run, error) {
	query := `SELECT data FROM runs WHERE (? <= 0 OR subject = ?) ORDER BY created_at DESC, id`
	args := []any{subject, subject}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	runs := make([]*Run, 0)
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		run, err := decode(data)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Latest returns the most recent run on the recording with the given
// digest other than excludeID, or ErrNotFound. Runs without a digest are
// never matched.
func (s *Store) Latest(ctx context.Context, recording, excludeID string) (*Run, error) {
	if recording == "" {
		return nil, ErrNotFound
	}
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM runs WHERE json_extract(data, '$.recording') = ? AND id != ? ORDER BY created_at DESC LIMIT 1`,
		recording, excludeID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest run: %w", err)
	}
	return decode(data)
}

// Delete removes a run.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

func decode(data string) (*Run, error) {
	var run Run
	if err := json.Unmarshal([]byte(data), &run); err != nil {
		return nil, fmt.Errorf("failed to unmarshal run: %w", err)
	}
	return &run, nil
}

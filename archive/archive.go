// Package archive stores finished validation runs in a sqlite database so
// that their reports can be listed and retrieved later.
package archive

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	_ "modernc.org/sqlite" // sqlite driver

	"github.com/georgepadayatti/goades/report"
)

const schemaVersion = 1

const schema = `
CREATE TABLE runs (
	id TEXT PRIMARY KEY,
	validation_time TEXT NOT NULL,
	policy TEXT NOT NULL,
	policy_version TEXT NOT NULL,
	level TEXT NOT NULL,
	signatures INTEGER NOT NULL,
	valid_signatures INTEGER NOT NULL,
	fingerprint TEXT NOT NULL,
	created_at TEXT NOT NULL,
	data BLOB NOT NULL
);
CREATE INDEX runs_created_at ON runs(created_at);
CREATE INDEX runs_fingerprint ON runs(fingerprint);
`

var (
	// ErrNotFound is returned when no run has the requested id.
	ErrNotFound = errors.New("archive: run not found")
	// ErrInvalidInputData indicates a run that cannot be stored.
	ErrInvalidInputData = errors.New("archive: input data invalid")
	// ErrReadFailed indicates that reading from the database failed.
	ErrReadFailed = errors.New("archive: read failed")
	// ErrWriteFailed indicates that writing to the database failed.
	ErrWriteFailed = errors.New("archive: write failed")
)

// Summary describes an archived run.
type Summary struct {
	ID                   string    `json:"id"`
	ValidationTime       time.Time `json:"validationTime"`
	Policy               string    `json:"policy"`
	PolicyVersion        string    `json:"policyVersion,omitempty"`
	Level                string    `json:"level"`
	SignaturesCount      int       `json:"signaturesCount"`
	ValidSignaturesCount int       `json:"validSignaturesCount"`
	Fingerprint          string    `json:"fingerprint"`
	CreatedAt            time.Time `json:"createdAt"`
}

// Record is an archived run with its reports as JSON.
type Record struct {
	Summary
	Data []byte `json:"-"`
}

// Option configures a Store.
type Option func(*Store)

// WithClock sets the clock used for creation times.
func WithClock(c clockwork.Clock) Option {
	return func(s *Store) {
		if c != nil {
			s.clock = c
		}
	}
}

// Store is a sqlite backed run archive. It is safe for concurrent use.
type Store struct {
	db    *sql.DB
	clock clockwork.Clock
}

// Open opens or creates the archive at path.
func Open(path string, opts ...Option) (*Store, error) {
	if path == "" || strings.Contains(path, ":memory:") {
		return nil, fmt.Errorf("%w: archive needs a database file", ErrInvalidInputData)
	}
	noFile, _ := strings.CutPrefix(path, "file:")

	params := make(url.Values)
	params.Add("_txlock", "immediate")
	params.Add("_pragma", "journal_mode(WAL)")
	params.Add("_pragma", "busy_timeout(1000)")
	params.Add("_pragma", "synchronous(NORMAL)")

	db, err := sql.Open("sqlite", "file:"+noFile+"?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("opening archive: %w", err)
	}
	// sqlite allows a single writer.
	db.SetMaxOpenConns(1)

	s := &Store{db: db, clock: clockwork.NewRealClock()}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.setup(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) setup() error {
	var existing int
	if err := s.db.QueryRow("PRAGMA user_version;").Scan(&existing); err != nil {
		return fmt.Errorf("checking archive schema version: %w", err)
	}
	switch {
	case existing == 0:
		if _, err := s.db.Exec(schema); err != nil {
			return fmt.Errorf("applying archive schema: %w", err)
		}
		if _, err := s.db.Exec(fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
			return fmt.Errorf("writing archive schema version: %w", err)
		}
		return nil
	case existing != schemaVersion:
		return fmt.Errorf("archive schema version mismatch: expected %d, have %d", schemaVersion, existing)
	default:
		return nil
	}
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save stores the reports of a run. A run id can only be stored once.
func (s *Store) Save(ctx context.Context, r *report.Reports) (Summary, error) {
	if r == nil || r.RunID == "" || r.Simple == nil || r.Detailed == nil {
		return Summary{}, fmt.Errorf("%w: reports need a run id and both reports", ErrInvalidInputData)
	}
	data, err := r.ToJSON()
	if err != nil {
		return Summary{}, fmt.Errorf("%w: %w", ErrInvalidInputData, err)
	}
	fp, err := r.Fingerprint()
	if err != nil {
		return Summary{}, fmt.Errorf("%w: %w", ErrInvalidInputData, err)
	}

	sum := Summary{
		ID:                   r.RunID,
		ValidationTime:       r.ValidationTime.UTC(),
		Policy:               r.Policy,
		PolicyVersion:        r.PolicyVersion,
		Level:                r.Level.String(),
		SignaturesCount:      r.Simple.SignaturesCount,
		ValidSignaturesCount: r.Simple.ValidSignaturesCount,
		Fingerprint:          fp,
		CreatedAt:            s.clock.Now().UTC(),
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO runs (id, validation_time, policy, policy_version, level,
			signatures, valid_signatures, fingerprint, created_at, data)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sum.ID, formatTime(sum.ValidationTime), sum.Policy, sum.PolicyVersion, sum.Level,
		sum.SignaturesCount, sum.ValidSignaturesCount, sum.Fingerprint, formatTime(sum.CreatedAt), data,
	)
	if err != nil {
		return Summary{}, fmt.Errorf("%w: run %s: %w", ErrWriteFailed, sum.ID, err)
	}
	return sum, nil
}

const columns = `id, validation_time, policy, policy_version, level,
	signatures, valid_signatures, fingerprint, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanSummary(row scanner, extra ...any) (Summary, error) {
	var sum Summary
	var validationTime, createdAt string
	dest := append([]any{
		&sum.ID, &validationTime, &sum.Policy, &sum.PolicyVersion, &sum.Level,
		&sum.SignaturesCount, &sum.ValidSignaturesCount, &sum.Fingerprint, &createdAt,
	}, extra...)
	if err := row.Scan(dest...); err != nil {
		return Summary{}, err
	}
	var err error
	if sum.ValidationTime, err = parseTime(validationTime); err != nil {
		return Summary{}, err
	}
	if sum.CreatedAt, err = parseTime(createdAt); err != nil {
		return Summary{}, err
	}
	return sum, nil
}

// Get returns the run stored under id.
func (s *Store) Get(ctx context.Context, id string) (*Record, error) {
	var data []byte
	row := s.db.QueryRowContext(ctx, `SELECT `+columns+`, data FROM runs WHERE id = ?`, id)
	sum, err := scanSummary(row, &data)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	case err != nil:
		return nil, fmt.Errorf("%w: run %s: %w", ErrReadFailed, id, err)
	}
	return &Record{Summary: sum, Data: data}, nil
}

// List returns the most recently stored runs first. A limit below one
// lists every run.
func (s *Store) List(ctx context.Context, limit int) ([]Summary, error) {
	if limit < 1 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+columns+` FROM runs ORDER BY created_at DESC, id ASC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReadFailed, err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		sum, err := scanSummary(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrReadFailed, err)
		}
		out = append(out, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReadFailed, err)
	}
	return out, nil
}

// ByFingerprint returns the runs whose detailed report has fingerprint fp,
// oldest first.
func (s *Store) ByFingerprint(ctx context.Context, fp string) ([]Summary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+columns+` FROM runs WHERE fingerprint = ? ORDER BY created_at ASC, id ASC`, fp)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReadFailed, err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		sum, err := scanSummary(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrReadFailed, err)
		}
		out = append(out, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReadFailed, err)
	}
	return out, nil
}

// Stored timestamps sort lexically in chronological order.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}

// Package history persists crack results in a local SQLite database so they
// can be listed and retrieved later.
package history

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite" // SQLite driver
)

// ErrNotFound is returned by Get for unknown ids.
var ErrNotFound = errors.New("history record not found")

// Modes recorded by the CLI and API.
const (
	ModeSingle    = "single"
	ModeDetect    = "detect"
	ModeRepeating = "repeating"
)

const defaultListLimit = 50

// Record is one stored crack result.
type Record struct {
	ID          string    `json:"id" yaml:"id"`
	Mode        string    `json:"mode" yaml:"mode"`
	InputSHA256 string    `json:"input_sha256" yaml:"input_sha256"`
	KeyHex      string    `json:"key_hex" yaml:"key_hex"`
	KeySize     int       `json:"key_size" yaml:"key_size"`
	Score       int       `json:"score" yaml:"score"`
	Plaintext   string    `json:"plaintext" yaml:"plaintext"`
	CreatedAt   time.Time `json:"created_at" yaml:"created_at"`
}

// ListOptions narrows List. Zero values match everything.
type ListOptions struct {
	Mode        string
	InputSHA256 string
	Limit       int
}

// Store is a SQLite-backed result store. It is safe for concurrent use.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the database at path.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("history path is required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("create history directory: %w", err)
		}
	}

	// Pragmas in the DSN are applied to every pooled connection.
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("open database: %w", err)
	}

	store := &Store{db: db, now: time.Now}
	if err := store.createTables(); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func (s *Store) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS results (
		id TEXT PRIMARY KEY,
		mode TEXT NOT NULL,
		input_sha256 TEXT NOT NULL,
		key_hex TEXT NOT NULL,
		key_size INTEGER NOT NULL,
		score INTEGER NOT NULL,
		plaintext TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_results_mode ON results(mode);
	CREATE INDEX IF NOT EXISTS idx_results_input ON results(input_sha256);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("create tables: %w", err)
	}
	return nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// HashInput returns the hex SHA-256 used to correlate results with inputs.
func HashInput(input []byte) string {
	sum := sha256.Sum256(input)
	return hex.EncodeToString(sum[:])
}

// Save stores rec, assigning an id and creation time when they are unset.
func (s *Store) Save(ctx context.Context, rec Record) (Record, error) {
	if rec.Mode == "" {
		return Record{}, errors.New("record mode is required")
	}
	if rec.ID == "" {
		rec.ID = ulid.Make().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.now()
	}
	rec.CreatedAt = rec.CreatedAt.UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO results (id, mode, input_sha256, key_hex, key_size, score, plaintext, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Mode, rec.InputSHA256, rec.KeyHex, rec.KeySize, rec.Score, rec.Plaintext,
		rec.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return Record{}, fmt.Errorf("insert result: %w", err)
	}
	return rec, nil
}

// Get returns the record with the given id.
func (s *Store) Get(ctx context.Context, id string) (Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, mode, input_sha256, key_hex, key_size, score, plaintext, created_at
		FROM results WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return rec, err
}

// List returns matching records, newest first.
func (s *Store) List(ctx context.Context, opts ListOptions) ([]Record, error) {
	query := `SELECT id, mode, input_sha256, key_hex, key_size, score, plaintext, created_at FROM results`
	var (
		where []string
		args  []any
	)
	if opts.Mode != "" {
		where = append(where, "mode = ?")
		args = append(args, opts.Mode)
	}
	if opts.InputSHA256 != "" {
		where = append(where, "input_sha256 = ?")
		args = append(args, strings.ToLower(opts.InputSHA256))
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	query += " ORDER BY id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate results: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (Record, error) {
	var (
		rec     Record
		created string
	)
	if err := row.Scan(&rec.ID, &rec.Mode, &rec.InputSHA256, &rec.KeyHex, &rec.KeySize, &rec.Score, &rec.Plaintext, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, err
		}
		return Record{}, fmt.Errorf("scan result: %w", err)
	}
	ts, err := time.Parse(time.RFC3339Nano, created)
	if err != nil {
		return Record{}, fmt.Errorf("parse created_at %q: %w", created, err)
	}
	rec.CreatedAt = ts
	return rec, nil
}

// Package history keeps a SQLite record of past analysis runs so results
// can be compared over time.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// ErrRunNotFound is returned by Get for an unknown run id.
var ErrRunNotFound = errors.New("run not found")

const schemaVersion = "1"

const createRunsTable = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	command    TEXT NOT NULL,
	root       TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	summary    TEXT NOT NULL
)`

const createMetadataTable = `
CREATE TABLE IF NOT EXISTS history_metadata (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
)`

const createRunsIndex = `CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at)`

var runColumns = []string{"id", "command", "root", "created_at", "summary"}

// newestFirst orders runs recorded within the same nanosecond by insertion.
var newestFirst = []string{"created_at DESC", "rowid DESC"}

// Run is one recorded analysis run.
type Run struct {
	ID        string    `json:"id" yaml:"id"`
	Command   string    `json:"command" yaml:"command"`
	Root      string    `json:"root" yaml:"root"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	Summary   Summary   `json:"summary" yaml:"summary"`
}

// Store is the run history database.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the history database at path.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create history directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	// a single connection keeps :memory: databases shared
	db.SetMaxOpenConns(1)

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db, now: time.Now}, nil
}

// createSchema creates the tables in one transaction.
func createSchema(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin schema transaction: %w", err)
	}
	defer tx.Rollback()

	statements := []struct {
		name string
		ddl  string
	}{
		{"runs", createRunsTable},
		{"history_metadata", createMetadataTable},
		{"runs index", createRunsIndex},
	}
	for _, s := range statements {
		if _, err := tx.Exec(s.ddl); err != nil {
			return fmt.Errorf("failed to create %s: %w", s.name, err)
		}
	}

	if _, err := sq.Insert("history_metadata").
		Options("OR IGNORE").
		Columns("key", "value").
		Values("schema_version", schemaVersion).
		RunWith(tx).
		Exec(); err != nil {
		return fmt.Errorf("failed to write schema version: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit schema transaction: %w", err)
	}
	return nil
}

// SchemaVersion returns the stored schema version.
func (s *Store) SchemaVersion(ctx context.Context) (string, error) {
	var v string
	err := sq.Select("value").
		From("history_metadata").
		Where(sq.Eq{"key": "schema_version"}).
		RunWith(s.db).
		QueryRowContext(ctx).
		Scan(&v)
	if err != nil {
		return "", fmt.Errorf("failed to read schema version: %w", err)
	}
	return v, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record stores a run and returns it with its new id.
func (s *Store) Record(ctx context.Context, command, root string, summary Summary) (*Run, error) {
	data, err := json.Marshal(summary)
	if err != nil {
		return nil, fmt.Errorf("failed to encode summary: %w", err)
	}

	run := &Run{
		ID:        uuid.NewString(),
		Command:   command,
		Root:      root,
		CreatedAt: s.now().UTC(),
		Summary:   summary,
	}
	_, err = sq.Insert("runs").
		Columns(runColumns...).
		Values(run.ID, run.Command, run.Root, run.CreatedAt.UnixNano(), string(data)).
		RunWith(s.db).
		ExecContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to record run: %w", err)
	}
	return run, nil
}

// List returns up to limit runs, newest first. A limit of 0 returns all.
func (s *Store) List(ctx context.Context, limit int) ([]Run, error) {
	builder := sq.Select(runColumns...).From("runs").OrderBy(newestFirst...)
	if limit > 0 {
		builder = builder.Limit(uint64(limit))
	}

	rows, err := builder.RunWith(s.db).QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return runs, nil
}

// Get returns the run with the given id.
func (s *Store) Get(ctx context.Context, id string) (*Run, error) {
	row := sq.Select(runColumns...).
		From("runs").
		Where(sq.Eq{"id": id}).
		RunWith(s.db).
		QueryRowContext(ctx)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return run, err
}

// Prune keeps the newest keep runs and deletes the rest. It returns the
// number of deleted runs.
func (s *Store) Prune(ctx context.Context, keep int) (int, error) {
	if keep < 0 {
		return 0, fmt.Errorf("keep must not be negative, got %d", keep)
	}
	newest, args, err := sq.Select("id").
		From("runs").
		OrderBy(newestFirst...).
		Limit(uint64(keep)).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build prune query: %w", err)
	}

	res, err := sq.Delete("runs").
		Where("id NOT IN ("+newest+")", args...).
		RunWith(s.db).
		ExecContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to prune runs: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to prune runs: %w", err)
	}
	return int(n), nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*Run, error) {
	var (
		run     Run
		created int64
		summary string
	)
	if err := row.Scan(&run.ID, &run.Command, &run.Root, &created, &summary); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to read run: %w", err)
	}
	run.CreatedAt = time.Unix(0, created).UTC()
	if err := json.Unmarshal([]byte(summary), &run.Summary); err != nil {
		return nil, fmt.Errorf("failed to decode summary of run %s: %w", run.ID, err)
	}
	return &run, nil
}

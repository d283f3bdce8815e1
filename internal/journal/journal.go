// Package journal records subtype judgments in a SQLite database so that
// runs can be audited and a repeated question can be answered from history
// (typelattice decide --cached).
package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS judgments (
	id         TEXT PRIMARY KEY,
	sub        TEXT NOT NULL,
	sup        TEXT NOT NULL,
	result     INTEGER NOT NULL,
	passes     INTEGER NOT NULL,
	source     TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS judgments_pair ON judgments (sub, sup);
`

// ErrNotFound is returned by Lookup when the pair was never judged.
var ErrNotFound = errors.New("judgment not found")

// Entry is one recorded judgment. Sub and Sup are the printed types.
type Entry struct {
	ID        uuid.UUID
	Sub       string
	Sup       string
	Result    bool
	Passes    int
	Source    string
	CreatedAt time.Time
}

type Journal struct {
	db *sql.DB
}

// Open opens or creates the journal at path. ":memory:" gives a private
// in-memory journal.
func Open(ctx context.Context, path string) (*Journal, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening journal %s: %w", path, err)
	}
	// one connection: writes are serialised and :memory: stays a single database
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating journal schema in %s: %w", path, err)
	}
	return &Journal{db: db}, nil
}

func (j *Journal) Close() error {
	return j.db.Close()
}

// Record stores e, filling in ID and CreatedAt when they are zero.
func (j *Journal) Record(ctx context.Context, e Entry) (Entry, error) {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO judgments (id, sub, sup, result, passes, source, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID.String(), e.Sub, e.Sup, e.Result, e.Passes, e.Source, e.CreatedAt.UnixNano())
	if err != nil {
		return e, fmt.Errorf("recording %s <: %s: %w", e.Sub, e.Sup, err)
	}
	return e, nil
}

// Lookup returns the most recent judgment of sub <: sup.
func (j *Journal) Lookup(ctx context.Context, sub, sup string) (Entry, error) {
	row := j.db.QueryRowContext(ctx,
		`SELECT id, sub, sup, result, passes, source, created_at FROM judgments
		 WHERE sub = ? AND sup = ? ORDER BY created_at DESC LIMIT 1`, sub, sup)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, ErrNotFound
	}
	return e, err
}

// Recent returns up to n judgments, newest first.
func (j *Journal) Recent(ctx context.Context, n int) ([]Entry, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT id, sub, sup, result, passes, source, created_at FROM judgments
		 ORDER BY created_at DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("listing judgments: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (Entry, error) {
	var (
		e       Entry
		id      string
		created int64
	)
	if err := s.Scan(&id, &e.Sub, &e.Sup, &e.Result, &e.Passes, &e.Source, &created); err != nil {
		return Entry{}, err
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return Entry{}, fmt.Errorf("judgment id %q: %w", id, err)
	}
	e.ID = parsed
	e.CreatedAt = time.Unix(0, created)
	return e, nil
}

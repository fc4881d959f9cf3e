// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package history

import (
	"context"
	"database/sql"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "modernc.org/sqlite"
)

// SQLite is a Store backed by a SQLite database.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens or creates the SQLite database at path.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// One process writes at a time.
	db.SetMaxOpenConns(1)

	for _, stmt := range []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA busy_timeout=5000;",
		`CREATE TABLE IF NOT EXISTS history (
			link TEXT PRIMARY KEY,
			source TEXT NOT NULL DEFAULT '',
			title TEXT NOT NULL DEFAULT '',
			company TEXT NOT NULL DEFAULT '',
			role TEXT NOT NULL DEFAULT '',
			batch TEXT NOT NULL DEFAULT '',
			posted_at INTEGER NOT NULL
		);`,
	} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, err
		}
	}
	return &SQLite{db: db}, nil
}

// Load returns every recorded link.
func (s *SQLite) Load(ctx context.Context) (Set, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT link FROM history;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	set := make(Set)
	for rows.Next() {
		var link string
		if err := rows.Scan(&link); err != nil {
			return nil, err
		}
		set.Add(link)
	}
	return set, rows.Err()
}

func postedAt(r Record) time.Time {
	if r.Date.IsZero() {
		return time.Now()
	}
	return r.Date
}

// Append records r.
func (s *SQLite) Append(ctx context.Context, r Record) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO history (link, source, title, company, role, batch, posted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (link) DO NOTHING;
	`, r.Link, r.Source, r.Title, r.Company, r.Role, r.Batch, postedAt(r).Unix())
	return err
}

// Prune keeps only the newest keep entries.
func (s *SQLite) Prune(ctx context.Context, keep int) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM history WHERE rowid NOT IN (
			SELECT rowid FROM history ORDER BY posted_at DESC, rowid DESC LIMIT ?
		);
	`, keep)
	return err
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// Postgres is a Store backed by a PostgreSQL database.
type Postgres struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects to the database at databaseURL.
func OpenPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}
	if _, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS postbot_history (
			id BIGSERIAL PRIMARY KEY,
			link TEXT NOT NULL UNIQUE,
			source TEXT NOT NULL DEFAULT '',
			title TEXT NOT NULL DEFAULT '',
			company TEXT NOT NULL DEFAULT '',
			role TEXT NOT NULL DEFAULT '',
			batch TEXT NOT NULL DEFAULT '',
			posted_at TIMESTAMPTZ NOT NULL
		);
	`); err != nil {
		pool.Close()
		return nil, err
	}
	return &Postgres{pool: pool}, nil
}

// Load returns every recorded link.
func (s *Postgres) Load(ctx context.Context) (Set, error) {
	rows, err := s.pool.Query(ctx, `SELECT link FROM postbot_history;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	set := make(Set)
	for rows.Next() {
		var link string
		if err := rows.Scan(&link); err != nil {
			return nil, err
		}
		set.Add(link)
	}
	return set, rows.Err()
}

// Append records r.
func (s *Postgres) Append(ctx context.Context, r Record) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO postbot_history (link, source, title, company, role, batch, posted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (link) DO NOTHING;
	`, r.Link, r.Source, r.Title, r.Company, r.Role, r.Batch, postedAt(r))
	return err
}

// Prune keeps only the newest keep entries.
func (s *Postgres) Prune(ctx context.Context, keep int) error {
	_, err := s.pool.Exec(ctx, `
		DELETE FROM postbot_history WHERE id NOT IN (
			SELECT id FROM postbot_history ORDER BY posted_at DESC, id DESC LIMIT $1
		);
	`, keep)
	return err
}

// Close closes the connection pool.
func (s *Postgres) Close() error {
	s.pool.Close()
	return nil
}

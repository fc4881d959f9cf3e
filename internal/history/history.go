// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package history records which links were already posted.
//
// The history is append-only: a link, once recorded, is never selected again.
// Entries are removed only when an operator prunes the store explicitly.
package history

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"go.astrophena.name/postbot/internal/util/set"
)

// DefaultDSN is the history used when none is configured.
const DefaultDSN = "history.txt"

// Record is a single posted item. Only Link is required.
type Record struct {
	Link    string    `json:"link"`
	Source  string    `json:"source,omitempty"`
	Title   string    `json:"title,omitempty"`
	Date    time.Time `json:"date,omitzero"`
	Company string    `json:"company,omitempty"`
	Role    string    `json:"role,omitempty"`
	Batch   string    `json:"batch,omitempty"`
}

// Set is a set of posted links.
type Set = set.Set[string]

// Store is a history backend.
type Store interface {
	// Load returns every recorded link.
	Load(ctx context.Context) (Set, error)
	// Append records r. Appending a link that is already recorded is not an
	// error.
	Append(ctx context.Context, r Record) error
	// Close releases resources held by the store.
	Close() error
}

// Pruner is implemented by stores that can drop old entries.
type Pruner interface {
	// Prune keeps only the newest keep entries.
	Prune(ctx context.Context, keep int) error
}

// ErrUnknownScheme is returned by Open for an unsupported DSN.
var ErrUnknownScheme = errors.New("history: unknown DSN scheme")

// Open opens the store described by dsn:
//
//   - "mem:" keeps history in memory;
//   - "sqlite://path" uses a SQLite database;
//   - "postgres://..." or "postgresql://..." uses a PostgreSQL database;
//   - "redis://..." or "rediss://..." uses a Redis set;
//   - a path ending in ".csv" uses a CSV file;
//   - a path ending in ".json" uses a JSON file;
//   - any other path uses a text file with one link per line.
func Open(ctx context.Context, dsn string) (Store, error) {
	if dsn == "" {
		dsn = DefaultDSN
	}
	scheme, rest, hasScheme := strings.Cut(dsn, "://")
	switch {
	case dsn == "mem:":
		return NewMem(), nil
	case hasScheme && scheme == "sqlite":
		return OpenSQLite(ctx, rest)
	case hasScheme && (scheme == "postgres" || scheme == "postgresql"):
		return OpenPostgres(ctx, dsn)
	case hasScheme && (scheme == "redis" || scheme == "rediss"):
		return OpenRedis(ctx, dsn)
	case hasScheme:
		return nil, fmt.Errorf("%w: %q", ErrUnknownScheme, scheme)
	}

	switch strings.ToLower(filepath.Ext(dsn)) {
	case ".csv":
		return &csvStore{path: dsn}, nil
	case ".json":
		return &jsonStore{path: dsn}, nil
	default:
		return &textStore{path: dsn}, nil
	}
}

// LockPath returns the path of the lock file guarding dsn, or an empty string
// if dsn is not a local file.
func LockPath(dsn string) string {
	if dsn == "" {
		dsn = DefaultDSN
	}
	if dsn == "mem:" || strings.Contains(dsn, "://") {
		if path, ok := strings.CutPrefix(dsn, "sqlite://"); ok {
			return path + ".lock"
		}
		return ""
	}
	return dsn + ".lock"
}

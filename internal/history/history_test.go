// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package history

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.astrophena.name/postbot/internal/testutil"
)

func testStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Error(err)
		}
	})

	set, err := s.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, set.Len(), 0)

	date := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for _, r := range []Record{
		{Link: "https://example.com/a", Source: "feed", Date: date},
		{Link: "https://example.com/b", Company: "Acme", Role: "SRE", Batch: "2025", Date: date.Add(time.Hour)},
		// Duplicates are ignored.
		{Link: "https://example.com/a", Date: date.Add(2 * time.Hour)},
	} {
		if err := s.Append(ctx, r); err != nil {
			t.Fatal(err)
		}
	}

	set, err = s.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, set.ToSortedSlice(), []string{"https://example.com/a", "https://example.com/b"})

	p, ok := s.(Pruner)
	if !ok {
		return
	}
	if err := p.Prune(ctx, 1); err != nil {
		t.Fatal(err)
	}
	set, err = s.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, set.ToSortedSlice(), []string{"https://example.com/b"})
}

func TestStores(t *testing.T) {
	t.Parallel()

	for _, dsn := range []string{"history.txt", "history", "history.csv", "history.json"} {
		t.Run(dsn, func(t *testing.T) {
			t.Parallel()
			s, err := Open(context.Background(), filepath.Join(t.TempDir(), dsn))
			if err != nil {
				t.Fatal(err)
			}
			if dsn != "history.txt" && dsn != "history" {
				testStore(t, s)
				return
			}
			// Text history can't tell duplicates apart from new lines, so
			// it's exercised without them.
			ctx := context.Background()
			for _, link := range []string{"https://example.com/a", "https://example.com/b"} {
				if err := s.Append(ctx, Record{Link: link}); err != nil {
					t.Fatal(err)
				}
			}
			set, err := s.Load(ctx)
			if err != nil {
				t.Fatal(err)
			}
			testutil.AssertEqual(t, set.ToSortedSlice(), []string{"https://example.com/a", "https://example.com/b"})
			if err := s.(Pruner).Prune(ctx, 1); err != nil {
				t.Fatal(err)
			}
			set, err = s.Load(ctx)
			if err != nil {
				t.Fatal(err)
			}
			testutil.AssertEqual(t, set.ToSortedSlice(), []string{"https://example.com/b"})
		})
	}
}

func TestMem(t *testing.T) {
	t.Parallel()
	testStore(t, NewMem())
}

func TestSQLite(t *testing.T) {
	t.Parallel()
	s, err := Open(context.Background(), "sqlite://"+filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatal(err)
	}
	testStore(t, s)
}

func TestPostgres(t *testing.T) {
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		t.Skip("DATABASE_URL is not set")
	}

	ctx := context.Background()
	s, err := OpenPostgres(ctx, databaseURL)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.pool.Exec(ctx, "DELETE FROM postbot_history"); err != nil {
		t.Fatal(err)
	}
	testStore(t, s)
}

func TestRedis(t *testing.T) {
	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		t.Skip("REDIS_URL is not set")
	}

	ctx := context.Background()
	s, err := OpenRedis(ctx, redisURL)
	if err != nil {
		t.Fatal(err)
	}
	s.key = RedisKey + ":test"
	if err := s.rdb.Del(ctx, s.key).Err(); err != nil {
		t.Fatal(err)
	}
	testStore(t, s)
}

func TestOpenUnknownScheme(t *testing.T) {
	t.Parallel()
	_, err := Open(context.Background(), "ftp://example.com/history")
	if !errors.Is(err, ErrUnknownScheme) {
		t.Fatalf("want ErrUnknownScheme, got %v", err)
	}
}

func TestTextAppendMissingNewline(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "history.txt")
	if err := os.WriteFile(path, []byte("https://example.com/old"), 0o644); err != nil {
		t.Fatal(err)
	}
	s := &textStore{path: path}
	if err := s.Append(context.Background(), Record{Link: "https://example.com/new"}); err != nil {
		t.Fatal(err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, string(b), "https://example.com/old\nhttps://example.com/new\n")
}

func TestCSVFormat(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "jobs.csv")
	s := &csvStore{path: path}
	ctx := context.Background()
	for _, r := range []Record{
		{Link: "https://t.me/jobs/1", Source: "jobs", Company: "Acme, Inc.", Role: "SRE", Batch: "2025", Date: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)},
		{Link: "https://t.me/jobs/2", Source: "jobs"},
	} {
		if err := s.Append(ctx, r); err != nil {
			t.Fatal(err)
		}
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	const want = "Date,Company,Role,Batch,Link,Source\n" +
		"2026-03-01,\"Acme, Inc.\",SRE,2025,https://t.me/jobs/1,jobs\n" +
		",,,,https://t.me/jobs/2,jobs\n"
	testutil.AssertEqual(t, string(b), want)
}

func TestLockPath(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"":                           "history.txt.lock",
		"data/history.csv":           "data/history.csv.lock",
		"sqlite://data/history.db":   "data/history.db.lock",
		"mem:":                       "",
		"redis://localhost:6379/0":   "",
		"postgres://localhost/posts": "",
	}
	for dsn, want := range cases {
		testutil.AssertEqual(t, LockPath(dsn), want)
	}
}

// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package main

import (
	"context"
	"errors"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.astrophena.name/postbot/cmd/postbot/internal/candidate"
	"go.astrophena.name/postbot/cmd/postbot/internal/generate"
	"go.astrophena.name/postbot/internal/testutil"
)

func TestParseConfig(t *testing.T) {
	t.Parallel()

	src, err := os.ReadFile("testdata/config.star")
	if err != nil {
		t.Fatal(err)
	}
	cfg, err := parseConfig(context.Background(), "config.star", src)
	if err != nil {
		t.Fatal(err)
	}

	testutil.AssertEqual(t, cfg.Lookback, 48*time.Hour)
	testutil.AssertEqual(t, len(cfg.Categories), 4)

	tech := cfg.Categories[0]
	testutil.AssertEqual(t, tech.Name, "tech")
	testutil.AssertEqual(t, tech.Weight, 40)
	testutil.AssertEqual(t, tech.Media, generate.MediaGenerate)
	testutil.AssertEqual(t, tech.Selection, selectionRanked)
	testutil.AssertEqual(t, tech.Topics, []string{"Boring technology"})
	testutil.AssertEqual(t, len(tech.Sources), 2)

	crisis := cfg.Categories[1]
	testutil.AssertEqual(t, crisis.Selection, selectionHeuristic)
	testutil.AssertEqual(t, crisis.Media, generate.MediaNone)
}

func TestParseConfigDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := parseConfig(context.Background(), "config.star", []byte(`
categories = [
    category(name = "jobs", persona = "jobs", sources = [channel("@somejobs"), search(query = "hiring freshers")]),
]
`))
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, cfg.Lookback, defaultLookback)
	c := cfg.Categories[0]
	testutil.AssertEqual(t, c.Weight, 1)
	testutil.AssertEqual(t, c.TopK, 0)
	testutil.AssertEqual(t, c.has("channel"), true)
	testutil.AssertEqual(t, c.has("search"), true)
	testutil.AssertEqual(t, c.has("feed"), false)
	testutil.AssertEqual(t, c.Sources[0].(*channelValue).Username, "somejobs")
}

func TestParseConfigErrors(t *testing.T) {
	t.Parallel()

	cases := map[string]struct {
		src     string
		wantErr string
	}{
		"no categories": {
			src:     `feeds = []`,
			wantErr: "categories must be defined and be a list",
		},
		"empty categories": {
			src:     `categories = []`,
			wantErr: "no categories defined",
		},
		"not a category": {
			src:     `categories = [feed(url = "https://example.com/feed.xml")]`,
			wantErr: "categories must contain only category values",
		},
		"duplicate category": {
			src: `categories = [
    category(name = "tech", persona = "tech", sources = []),
    category(name = "tech", persona = "tech", sources = []),
]`,
			wantErr: `duplicate category "tech"`,
		},
		"unknown media": {
			src:     `categories = [category(name = "tech", persona = "tech", sources = [], media = "video")]`,
			wantErr: `unknown media "video"`,
		},
		"unknown selection": {
			src:     `categories = [category(name = "tech", persona = "tech", sources = [], selection = "vibes")]`,
			wantErr: `unknown selection "vibes"`,
		},
		"negative weight": {
			src:     `categories = [category(name = "tech", persona = "tech", sources = [], weight = -1)]`,
			wantErr: "weight must not be negative",
		},
		"bad source": {
			src:     `categories = [category(name = "tech", persona = "tech", sources = ["https://example.com"])]`,
			wantErr: "sources must be feed, channel or search values",
		},
		"bad topics": {
			src:     `categories = [category(name = "tech", persona = "tech", sources = [], topics = [1])]`,
			wantErr: "topics must be a list of strings",
		},
		"bad lookback": {
			src: `categories = [category(name = "tech", persona = "tech", sources = [])]
lookback = "yesterday"`,
			wantErr: "lookback must be a positive number of hours",
		},
		"empty search": {
			src:     `categories = [category(name = "tech", persona = "tech", sources = [search(" ")])]`,
			wantErr: "search: query must not be empty",
		},
		"syntax error": {
			src:     `categories = [`,
			wantErr: "config.star:1",
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			_, err := parseConfig(context.Background(), "config.star", []byte(tc.src))
			if err == nil {
				t.Fatal("want error, got nil")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("want error containing %q, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestKeepRule(t *testing.T) {
	t.Parallel()

	cfg, err := parseConfig(context.Background(), "config.star", []byte(`
categories = [
    category(
        name = "tech",
        persona = "tech",
        sources = [
            feed(url = "https://example.com/feed.xml", title = "Example", keep_rule = lambda item: "Rust" not in item.title),
            feed(url = "https://example.com/other.xml", title = "Other"),
        ],
    ),
]
`))
	if err != nil {
		t.Fatal(err)
	}

	items := []candidate.Item{
		{Kind: candidate.KindFeed, Title: "Go 1.30 is released", Link: "https://example.com/go", Source: "Example"},
		{Kind: candidate.KindFeed, Title: "Rust 2.0 roadmap", Link: "https://example.com/rust", Source: "Example"},
		// The rule belongs to the first feed only.
		{Kind: candidate.KindFeed, Title: "Rust in the kernel", Link: "https://example.com/kernel", Source: "Other"},
	}
	ex := candidate.Extractor{Filters: cfg.Categories[0].filters(context.Background())}
	var links []string
	for _, c := range ex.Extract(items) {
		links = append(links, c.Link)
	}
	testutil.AssertEqual(t, links, []string{"https://example.com/go", "https://example.com/kernel"})
}

func TestCrisisDefaultKeywords(t *testing.T) {
	t.Parallel()

	crisis := &Category{Name: "crisis"}
	ex := candidate.Extractor{Filters: crisis.filters(context.Background())}
	got := ex.Extract([]candidate.Item{
		{Kind: candidate.KindFeed, Title: "Investigating elevated error rates", Link: "https://example.com/1"},
		{Kind: candidate.KindFeed, Title: "Scheduled maintenance", Link: "https://example.com/2"},
		{Kind: candidate.KindFeed, Title: "Partial outage in eu-west", Link: "https://example.com/3"},
	})
	testutil.AssertEqual(t, len(got), 2)

	// Explicit keywords replace the default ones.
	custom := &Category{Name: "crisis", Keywords: []string{"maintenance"}}
	ex = candidate.Extractor{Filters: custom.filters(context.Background())}
	got = ex.Extract([]candidate.Item{
		{Kind: candidate.KindFeed, Title: "Investigating elevated error rates", Link: "https://example.com/1"},
		{Kind: candidate.KindFeed, Title: "Scheduled maintenance", Link: "https://example.com/2"},
	})
	testutil.AssertEqual(t, len(got), 1)
	testutil.AssertEqual(t, got[0].Link, "https://example.com/2")
}

func TestValidate(t *testing.T) {
	t.Parallel()

	cfg := &Config{
		Categories: []*Category{
			{Name: "tech", Media: generate.MediaGenerate, Sources: nil},
			{Name: "jobs", Sources: nil},
		},
	}
	cfg.Categories[1].Sources = append(cfg.Categories[1].Sources, &channelValue{Username: "jobs"}, &searchValue{Query: "jobs"})

	err := cfg.validate(targetTelegram, false)
	if !errors.Is(err, errMissingEnv) {
		t.Fatalf("want errMissingEnv, got %v", err)
	}
	testutil.AssertEqual(t, err.Error(), "missing environment variables: "+strings.Join([]string{
		"GEMINI_API_KEY or GOOGLE_API_KEY",
		"TELEGRAM_TOKEN",
		"TELEGRAM_CHAT_ID",
		"HUGGINGFACE_TOKEN",
		"TG_API_ID",
		"TG_API_HASH",
		"TG_SESSION_STRING",
		"GOOGLE_SEARCH_KEY",
		"GOOGLE_SEARCH_CX",
	}, ", "))

	// Dry runs don't publish, so they need no publishing credentials.
	cfg.Env = Env{
		GeminiKey:        "key",
		HuggingFaceToken: "hf",
		TGAppID:          1,
		TGAppHash:        "hash",
		TGSession:        "session",
		SearchKey:        "search",
		SearchCX:         "cx",
	}
	if err := cfg.validate(targetTelegram, true); err != nil {
		t.Fatal(err)
	}
}

func TestReadEnv(t *testing.T) {
	t.Parallel()

	env := map[string]string{
		"GOOGLE_API_KEY": "google",
		"TG_API_ID":      "12345",
	}
	e, err := readEnv(func(k string) string { return env[k] })
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, e.GeminiKey, "google")
	testutil.AssertEqual(t, e.GeminiModel, "gemini-2.5-flash")
	testutil.AssertEqual(t, e.TGAppID, 12345)

	env["TG_API_ID"] = "twelve"
	if _, err := readEnv(func(k string) string { return env[k] }); err == nil {
		t.Fatal("want error for non-numeric TG_API_ID")
	}
}

func TestDotenv(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "test.env")
	if err := os.WriteFile(path, []byte("GEMINI_API_KEY=from-file\nGEMINI_MODEL=gemini-pro\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	env := map[string]string{
		"ENV_FILE":       path,
		"GEMINI_API_KEY": "from-env",
	}
	getenv, err := dotenv(func(k string) string { return env[k] })
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, getenv("GEMINI_API_KEY"), "from-env")
	testutil.AssertEqual(t, getenv("GEMINI_MODEL"), "gemini-pro")
	testutil.AssertEqual(t, getenv("UNSET"), "")
}

func TestPickCategory(t *testing.T) {
	t.Parallel()

	cfg := &Config{Categories: []*Category{
		{Name: "finance", Weight: 40},
		{Name: "tech", Weight: 40},
		{Name: "mindset", Weight: 20},
		{Name: "off", Weight: 0},
	}}
	a := &app{rand: rand.New(rand.NewPCG(1, 2))}

	counts := make(map[string]int)
	for range 1000 {
		c, err := a.pickCategory(cfg, "")
		if err != nil {
			t.Fatal(err)
		}
		counts[c.Name]++
	}
	testutil.AssertEqual(t, counts["off"], 0)
	// Loose bounds, the generator is seeded.
	if counts["mindset"] < 100 || counts["mindset"] > 300 {
		t.Errorf("mindset picked %d times out of 1000, want about 200", counts["mindset"])
	}

	c, err := a.pickCategory(cfg, "off")
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, c.Name, "off")

	if _, err := a.pickCategory(cfg, "sports"); !errors.Is(err, errNoCategory) {
		t.Fatalf("want errNoCategory, got %v", err)
	}
}

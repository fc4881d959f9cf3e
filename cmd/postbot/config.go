// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package main

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"
	"go.starlark.net/syntax"

	"go.astrophena.name/postbot/cmd/postbot/internal/candidate"
	"go.astrophena.name/postbot/cmd/postbot/internal/generate"
	"go.astrophena.name/postbot/cmd/postbot/internal/oracle"
	"go.astrophena.name/postbot/internal/cli"
	"go.astrophena.name/postbot/internal/logger"
)

// Config is everything a run needs to know, built once at startup.
type Config struct {
	Categories []*Category
	Lookback   time.Duration
	Env        Env
}

// Env holds settings and secrets read from the environment.
type Env struct {
	GeminiKey        string
	GeminiModel      string
	LinkedInToken    string
	TelegramToken    string
	TelegramChatID   string
	HuggingFaceToken string
	TGAppID          int
	TGAppHash        string
	TGSession        string
	SearchKey        string
	SearchCX         string
	PushgatewayURL   string
}

// Scrubber returns a replacer hiding the secrets from error messages.
func (e Env) Scrubber() *strings.Replacer {
	var oldnew []string
	for _, s := range []string{
		e.GeminiKey, e.LinkedInToken, e.TelegramToken, e.HuggingFaceToken,
		e.TGAppHash, e.TGSession, e.SearchKey,
	} {
		if s != "" {
			oldnew = append(oldnew, s, "[EXPUNGED]")
		}
	}
	return strings.NewReplacer(oldnew...)
}

// Category is a group of sources written about in one voice.
type Category struct {
	Name      string           `json:"name"`
	Persona   string           `json:"persona"`
	Weight    int              `json:"weight"`
	Sources   []starlark.Value `json:"-"`
	Topics    []string         `json:"topics,omitempty"`
	Media     generate.Media   `json:"media"`
	Keywords  []string         `json:"keywords,omitempty"`
	Selection string           `json:"selection"`
	TopK      int              `json:"top_k,omitempty"`
}

const (
	selectionHeuristic = "heuristic"
	selectionRanked    = "ranked"
)

const defaultLookback = 24 * time.Hour

func (c *Category) has(kind string) bool {
	for _, s := range c.Sources {
		if s.Type() == kind {
			return true
		}
	}
	return false
}

// filters returns the extraction filters of the category.
func (c *Category) filters(ctx context.Context) []candidate.Filter {
	keywords := c.Keywords
	if len(keywords) == 0 && c.Name == "crisis" {
		keywords = candidate.CrisisKeywords
	}
	var fs []candidate.Filter
	if len(keywords) > 0 {
		fs = append(fs, candidate.KeywordFilter(keywords...))
	}
	fs = append(fs, candidate.CallToActionFilter)
	for _, s := range c.Sources {
		f, ok := s.(*feedValue)
		if !ok || f.KeepRule == nil {
			continue
		}
		name := f.name()
		fs = append(fs, candidate.FilterFunc(func(it candidate.Item, cand candidate.Candidate) bool {
			if it.Source != name {
				return true
			}
			return applyRule(ctx, f.KeepRule, cand)
		}))
	}
	return fs
}

func applyRule(ctx context.Context, rule *starlark.Function, c candidate.Candidate) bool {
	log := logger.Get(ctx)
	val, err := starlark.Call(
		&starlark.Thread{
			Print: func(_ *starlark.Thread, msg string) { log.Info(msg) },
		},
		rule,
		starlark.Tuple{starlarkstruct.FromStringDict(
			starlarkstruct.Default,
			starlark.StringDict{
				"title":   starlark.String(c.Title),
				"url":     starlark.String(c.Link),
				"snippet": starlark.String(c.Snippet),
				"source":  starlark.String(c.Source),
			},
		)},
		[]starlark.Tuple{},
	)
	if err != nil {
		log.Warn("applying rule for item", "item", c.Link, "error", err)
		return false
	}
	ret, ok := val.(starlark.Bool)
	if !ok {
		log.Warn("rule returned non-boolean value", "item", c.Link)
		return false
	}
	return bool(ret)
}

// Starlark values.

type feedValue struct {
	URL      string
	Title    string
	KeepRule *starlark.Function
}

func (f *feedValue) name() string          { return cmp.Or(f.Title, f.URL) }
func (f *feedValue) String() string        { return fmt.Sprintf("feed %s", f.URL) }
func (f *feedValue) Type() string          { return "feed" }
func (f *feedValue) Freeze()               {} // immutable
func (f *feedValue) Truth() starlark.Bool  { return starlark.Bool(f.URL != "") }
func (f *feedValue) Hash() (uint32, error) { return 0, fmt.Errorf("unhashable: %s", f.Type()) }

type channelValue struct{ Username string }

func (c *channelValue) String() string        { return "channel @" + c.Username }
func (c *channelValue) Type() string          { return "channel" }
func (c *channelValue) Freeze()               {} // immutable
func (c *channelValue) Truth() starlark.Bool  { return starlark.Bool(c.Username != "") }
func (c *channelValue) Hash() (uint32, error) { return 0, fmt.Errorf("unhashable: %s", c.Type()) }

type searchValue struct{ Query string }

func (s *searchValue) String() string        { return fmt.Sprintf("search %q", s.Query) }
func (s *searchValue) Type() string          { return "search" }
func (s *searchValue) Freeze()               {} // immutable
func (s *searchValue) Truth() starlark.Bool  { return starlark.Bool(s.Query != "") }
func (s *searchValue) Hash() (uint32, error) { return 0, fmt.Errorf("unhashable: %s", s.Type()) }

type categoryValue struct{ *Category }

func (c categoryValue) String() string        { return fmt.Sprintf("<category %q>", c.Name) }
func (c categoryValue) Type() string          { return "category" }
func (c categoryValue) Freeze()               {} // immutable
func (c categoryValue) Truth() starlark.Bool  { return true }
func (c categoryValue) Hash() (uint32, error) { return 0, fmt.Errorf("unhashable: %s", c.Type()) }

func noPositional(fn string, args starlark.Tuple) error {
	if len(args) > 0 {
		return fmt.Errorf("%s: unexpected positional arguments", fn)
	}
	return nil
}

func feedBuiltin(_ *starlark.Thread, _ *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	f := new(feedValue)
	if err := starlark.UnpackArgs("feed", args, kwargs,
		"url", &f.URL,
		"title?", &f.Title,
		"keep_rule?", &f.KeepRule,
	); err != nil {
		return nil, err
	}
	if f.URL == "" {
		return nil, errors.New("feed: url must not be empty")
	}
	return f, nil
}

func channelBuiltin(_ *starlark.Thread, _ *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	c := new(channelValue)
	if err := starlark.UnpackArgs("channel", args, kwargs, "name", &c.Username); err != nil {
		return nil, err
	}
	c.Username = strings.TrimPrefix(c.Username, "@")
	if c.Username == "" {
		return nil, errors.New("channel: name must not be empty")
	}
	return c, nil
}

func searchBuiltin(_ *starlark.Thread, _ *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	s := new(searchValue)
	if err := starlark.UnpackArgs("search", args, kwargs, "query", &s.Query); err != nil {
		return nil, err
	}
	if strings.TrimSpace(s.Query) == "" {
		return nil, errors.New("search: query must not be empty")
	}
	return s, nil
}

func stringList(fn, arg string, l *starlark.List) ([]string, error) {
	if l == nil {
		return nil, nil
	}
	var out []string
	for i := range l.Len() {
		elem := l.Index(i)
		s, ok := starlark.AsString(elem)
		if !ok {
			return nil, fmt.Errorf("%s: %s must be a list of strings, got %s", fn, arg, elem.Type())
		}
		out = append(out, s)
	}
	return out, nil
}

func categoryBuiltin(_ *starlark.Thread, _ *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if err := noPositional("category", args); err != nil {
		return nil, err
	}
	c := &Category{Weight: 1, Selection: selectionHeuristic}
	var sources, topics, keywords *starlark.List
	media := string(generate.MediaNone)
	if err := starlark.UnpackArgs("category", args, kwargs,
		"name", &c.Name,
		"persona", &c.Persona,
		"sources", &sources,
		"weight?", &c.Weight,
		"topics?", &topics,
		"media?", &media,
		"keywords?", &keywords,
		"selection?", &c.Selection,
		"top_k?", &c.TopK,
	); err != nil {
		return nil, err
	}

	if c.Name == "" {
		return nil, errors.New("category: name must not be empty")
	}
	if c.Weight < 0 {
		return nil, fmt.Errorf("category %q: weight must not be negative", c.Name)
	}
	if c.TopK < 0 {
		return nil, fmt.Errorf("category %q: top_k must not be negative", c.Name)
	}
	switch c.Selection {
	case selectionHeuristic, selectionRanked:
	default:
		return nil, fmt.Errorf("category %q: unknown selection %q, want heuristic or ranked", c.Name, c.Selection)
	}
	m, err := generate.ParseMedia(media)
	if err != nil {
		return nil, fmt.Errorf("category %q: %w", c.Name, err)
	}
	c.Media = m

	for i := range sources.Len() {
		elem := sources.Index(i)
		switch elem.(type) {
		case *feedValue, *channelValue, *searchValue:
			c.Sources = append(c.Sources, elem)
		default:
			return nil, fmt.Errorf("category %q: sources must be feed, channel or search values, got %s", c.Name, elem.Type())
		}
	}
	if c.Topics, err = stringList("category", "topics", topics); err != nil {
		return nil, err
	}
	if c.Keywords, err = stringList("category", "keywords", keywords); err != nil {
		return nil, err
	}
	return categoryValue{c}, nil
}

// parseConfig evaluates a Starlark configuration.
func parseConfig(ctx context.Context, filename string, src []byte) (*Config, error) {
	log := logger.Get(ctx)
	globals, err := starlark.ExecFileOptions(
		&syntax.FileOptions{
			TopLevelControl: true,
		},
		&starlark.Thread{
			Print: func(_ *starlark.Thread, msg string) { log.Info(msg) },
		},
		filename,
		src,
		starlark.StringDict{
			"feed":     starlark.NewBuiltin("feed", feedBuiltin),
			"channel":  starlark.NewBuiltin("channel", channelBuiltin),
			"search":   starlark.NewBuiltin("search", searchBuiltin),
			"category": starlark.NewBuiltin("category", categoryBuiltin),
		},
	)
	if err != nil {
		return nil, err
	}

	list, ok := globals["categories"].(*starlark.List)
	if !ok {
		return nil, errors.New("categories must be defined and be a list")
	}
	cfg := &Config{Lookback: defaultLookback}
	seen := make(map[string]bool)
	for i := range list.Len() {
		elem := list.Index(i)
		c, ok := elem.(categoryValue)
		if !ok {
			return nil, fmt.Errorf("categories must contain only category values, got %s", elem.Type())
		}
		if seen[c.Name] {
			return nil, fmt.Errorf("duplicate category %q", c.Name)
		}
		seen[c.Name] = true
		cfg.Categories = append(cfg.Categories, c.Category)
	}
	if len(cfg.Categories) == 0 {
		return nil, errors.New("no categories defined")
	}

	if v, ok := globals["lookback"]; ok {
		hours, ok := starlark.AsFloat(v)
		if !ok || hours <= 0 {
			return nil, fmt.Errorf("lookback must be a positive number of hours, got %s", v)
		}
		cfg.Lookback = time.Duration(hours * float64(time.Hour))
	}
	return cfg, nil
}

// dotenv returns getenv backed by .env files. Variables from getenv win
// over the files and .env.local wins over .env. When ENV_FILE is set, only
// that file is read.
func dotenv(getenv func(string) string) (func(string) string, error) {
	files := []string{".env.local", ".env"}
	if f := getenv("ENV_FILE"); f != "" {
		files = []string{f}
	}
	vals := make(map[string]string)
	for _, f := range files {
		m, err := godotenv.Read(f)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", f, err)
		}
		for k, v := range m {
			if _, ok := vals[k]; !ok {
				vals[k] = v
			}
		}
	}
	return func(key string) string {
		return cmp.Or(getenv(key), vals[key])
	}, nil
}

func readEnv(getenv func(string) string) (Env, error) {
	e := Env{
		GeminiKey:        cmp.Or(getenv("GEMINI_API_KEY"), getenv("GOOGLE_API_KEY")),
		GeminiModel:      cmp.Or(getenv("GEMINI_MODEL"), oracle.DefaultModel),
		LinkedInToken:    getenv("LINKEDIN_ACCESS_TOKEN"),
		TelegramToken:    getenv("TELEGRAM_TOKEN"),
		TelegramChatID:   getenv("TELEGRAM_CHAT_ID"),
		HuggingFaceToken: getenv("HUGGINGFACE_TOKEN"),
		TGAppHash:        getenv("TG_API_HASH"),
		TGSession:        getenv("TG_SESSION_STRING"),
		SearchKey:        getenv("GOOGLE_SEARCH_KEY"),
		SearchCX:         getenv("GOOGLE_SEARCH_CX"),
		PushgatewayURL:   getenv("PUSHGATEWAY_URL"),
	}
	if s := getenv("TG_API_ID"); s != "" {
		id, err := strconv.Atoi(s)
		if err != nil {
			return Env{}, fmt.Errorf("TG_API_ID must be a number, got %q", s)
		}
		e.TGAppID = id
	}
	return e, nil
}

// validate checks that every variable needed for a run is set and reports
// all missing ones at once.
func (cfg *Config) validate(target string, dry bool) error {
	var missing []string
	need := func(val any, names ...string) {
		switch v := val.(type) {
		case string:
			if v != "" {
				return
			}
		case int:
			if v != 0 {
				return
			}
		}
		missing = append(missing, strings.Join(names, " or "))
	}

	e := cfg.Env
	need(e.GeminiKey, "GEMINI_API_KEY", "GOOGLE_API_KEY")
	if !dry {
		switch target {
		case targetLinkedIn:
			need(e.LinkedInToken, "LINKEDIN_ACCESS_TOKEN")
		case targetTelegram:
			need(e.TelegramToken, "TELEGRAM_TOKEN")
			need(e.TelegramChatID, "TELEGRAM_CHAT_ID")
		default:
			return fmt.Errorf("%w: unknown target %q, want linkedin or telegram", cli.ErrInvalidArgs, target)
		}
	}

	var channels, searches, images bool
	for _, c := range cfg.Categories {
		channels = channels || c.has("channel")
		searches = searches || c.has("search")
		images = images || c.Media == generate.MediaGenerate
	}
	if images {
		need(e.HuggingFaceToken, "HUGGINGFACE_TOKEN")
	}
	if channels {
		need(e.TGAppID, "TG_API_ID")
		need(e.TGAppHash, "TG_API_HASH")
		need(e.TGSession, "TG_SESSION_STRING")
	}
	if searches {
		need(e.SearchKey, "GOOGLE_SEARCH_KEY")
		need(e.SearchCX, "GOOGLE_SEARCH_CX")
	}

	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", errMissingEnv, strings.Join(missing, ", "))
	}
	return nil
}

func (a *app) loadConfig(ctx context.Context, forRun bool) (*Config, error) {
	env := cli.GetEnv(ctx)

	getenv, err := dotenv(env.Getenv)
	if err != nil {
		return nil, err
	}
	src, err := os.ReadFile(*a.configPath)
	if err != nil {
		return nil, err
	}
	cfg, err := parseConfig(ctx, *a.configPath, src)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", *a.configPath, err)
	}
	if cfg.Env, err = readEnv(getenv); err != nil {
		return nil, err
	}
	if forRun {
		if err := cfg.validate(*a.target, a.dry); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func (cfg *Config) category(name string) (*Category, error) {
	for _, c := range cfg.Categories {
		if c.Name == name {
			return c, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", errNoCategory, name)
}

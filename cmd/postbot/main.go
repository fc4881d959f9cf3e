// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"strconv"
	"time"

	"google.golang.org/api/option"

	"go.astrophena.name/postbot/cmd/postbot/internal/source"
	"go.astrophena.name/postbot/internal/cli"
	"go.astrophena.name/postbot/internal/cli/envflag"
	"go.astrophena.name/postbot/internal/history"
	"go.astrophena.name/postbot/internal/logger"
)

var (
	errAlreadyRunning = errors.New("already running")
	errMissingEnv     = errors.New("missing environment variables")
	errNoCategory     = errors.New("no such category")
)

func main() { cli.Main(new(app)) }

type app struct {
	// configuration
	configPath *string
	historyDSN *string
	target     *string
	backend    *string
	dry        bool
	json       bool

	// set in tests
	httpc     *http.Client // defaults to request.DefaultClient
	imagec    *http.Client // defaults to a client with a longer timeout
	lister    source.MessageLister
	searchOpt []option.ClientOption
	rand      *rand.Rand
	imageDir  string
	now       func() time.Time
}

const (
	targetLinkedIn = "linkedin"
	targetTelegram = "telegram"

	backendREST = "rest"
	backendSDK  = "sdk"
)

func (a *app) Flags(fs *flag.FlagSet, getenv func(string) string) {
	a.configPath = envflag.Value("config", "POSTBOT_CONFIG", "config.star", "Path to the Starlark configuration file.", fs, getenv)
	a.historyDSN = envflag.Value("history", "POSTBOT_HISTORY", history.DefaultDSN, "History location: a file path, sqlite://, postgres://, redis:// URL or mem:.", fs, getenv)
	a.target = envflag.Value("target", "POSTBOT_TARGET", targetLinkedIn, "Where to publish: linkedin or telegram.", fs, getenv)
	a.backend = envflag.Value("oracle", "GEMINI_BACKEND", backendREST, "Gemini client: rest or sdk.", fs, getenv)
	fs.BoolVar(&a.dry, "dry", false, "Enable dry-run mode: print the post instead of publishing it and don't record history.")
	fs.BoolVar(&a.json, "json", false, "Output in JSON format (honored in supported commands).")
}

func (a *app) Run(ctx context.Context) error {
	env := cli.GetEnv(ctx)

	if a.now == nil {
		a.now = time.Now
	}
	if a.configPath == nil {
		// Run called without Flags, as in some tests.
		a.Flags(flag.NewFlagSet("", flag.ContinueOnError), func(string) string { return "" })
	}

	// Enable debug logging in dry-run mode.
	if a.dry {
		logger.Get(ctx).Level.Set(slog.LevelDebug)
	}

	if len(env.Args) == 0 {
		return fmt.Errorf("%w: command is required, see -help for usage", cli.ErrInvalidArgs)
	}
	command, args := env.Args[0], env.Args[1:]

	switch command {
	case "run":
		if len(args) > 1 {
			return fmt.Errorf("%w: run expects at most one category", cli.ErrInvalidArgs)
		}
		cfg, err := a.loadConfig(ctx, true)
		if err != nil {
			return err
		}
		var category string
		if len(args) == 1 {
			category = args[0]
		}
		return a.run(ctx, cfg, category)
	case "sources":
		cfg, err := a.loadConfig(ctx, false)
		if err != nil {
			return err
		}
		return a.listSources(cfg, env.Stdout)
	case "history":
		return a.printHistory(ctx, env.Stdout)
	case "prune":
		if len(args) != 1 {
			return fmt.Errorf("%w: prune expects the number of entries to keep", cli.ErrInvalidArgs)
		}
		keep, err := strconv.Atoi(args[0])
		if err != nil || keep < 0 {
			return fmt.Errorf("%w: prune expects a non-negative number, got %q", cli.ErrInvalidArgs, args[0])
		}
		return a.prune(ctx, keep)
	default:
		return fmt.Errorf("%w: no such command %q", cli.ErrInvalidArgs, command)
	}
}

func (a *app) listSources(cfg *Config, w io.Writer) error {
	if a.json {
		type categoryJSON struct {
			Name    string   `json:"name"`
			Persona string   `json:"persona"`
			Weight  int      `json:"weight"`
			Sources []string `json:"sources"`
		}
		out := make([]categoryJSON, 0, len(cfg.Categories))
		for _, c := range cfg.Categories {
			cj := categoryJSON{Name: c.Name, Persona: c.Persona, Weight: c.Weight}
			for _, s := range c.Sources {
				cj.Sources = append(cj.Sources, s.String())
			}
			out = append(out, cj)
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	for _, c := range cfg.Categories {
		fmt.Fprintf(w, "%s (persona %s, weight %d):\n", c.Name, c.Persona, c.Weight)
		for _, s := range c.Sources {
			fmt.Fprintf(w, "  %s\n", s)
		}
	}
	return nil
}

func (a *app) printHistory(ctx context.Context, w io.Writer) error {
	store, err := history.Open(ctx, *a.historyDSN)
	if err != nil {
		return err
	}
	defer store.Close()

	links, err := store.Load(ctx)
	if err != nil {
		return err
	}
	for _, link := range links.ToSortedSlice() {
		fmt.Fprintln(w, link)
	}
	return nil
}

func (a *app) prune(ctx context.Context, keep int) error {
	store, err := history.Open(ctx, *a.historyDSN)
	if err != nil {
		return err
	}
	defer store.Close()

	p, ok := store.(history.Pruner)
	if !ok {
		return fmt.Errorf("%w: history %q can't be pruned", cli.ErrInvalidArgs, *a.historyDSN)
	}
	unlock, err := a.lock()
	if err != nil {
		return err
	}
	defer unlock()
	return p.Prune(ctx, keep)
}

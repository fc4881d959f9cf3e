// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package main

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"google.golang.org/api/option"

	"go.astrophena.name/postbot/cmd/postbot/internal/candidate"
	"go.astrophena.name/postbot/cmd/postbot/internal/generate"
	"go.astrophena.name/postbot/cmd/postbot/internal/oracle"
	"go.astrophena.name/postbot/cmd/postbot/internal/publish"
	"go.astrophena.name/postbot/cmd/postbot/internal/selector"
	"go.astrophena.name/postbot/cmd/postbot/internal/source"
	"go.astrophena.name/postbot/internal/api/gemini"
	"go.astrophena.name/postbot/internal/api/huggingface"
	"go.astrophena.name/postbot/internal/api/linkedin"
	"go.astrophena.name/postbot/internal/cli"
	"go.astrophena.name/postbot/internal/filelock"
	"go.astrophena.name/postbot/internal/history"
	"go.astrophena.name/postbot/internal/logger"
)

// imageClient is used for image generation, which takes a while.
var imageClient = &http.Client{Timeout: 2 * time.Minute}

// run does one pass of the pipeline: pick a category, select a candidate,
// write a post, publish it and record it in history.
func (a *app) run(ctx context.Context, cfg *Config, categoryName string) (err error) {
	st := &stats{RunID: uuid.NewString(), StartTime: a.now()}
	log := logger.Get(ctx).With("run_id", st.RunID)
	ctx = logger.Put(ctx, log)
	defer func() {
		st.Duration = a.now().Sub(st.StartTime)
		a.reportStats(ctx, cfg, st, err)
	}()

	// Check local settings before touching the network.
	switch *a.backend {
	case backendREST, backendSDK:
	default:
		return fmt.Errorf("%w: unknown oracle backend %q, want rest or sdk", cli.ErrInvalidArgs, *a.backend)
	}
	cat, err := a.pickCategory(cfg, categoryName)
	if err != nil {
		return err
	}
	st.Category = cat.Name
	log.Info("starting run", "category", cat.Name, "dry", a.dry)

	unlock, err := a.lock()
	if err != nil {
		return err
	}
	defer unlock()

	scrubber := cfg.Env.Scrubber()

	pub := a.publisher(ctx, cfg, cat, scrubber)
	if err := pub.Identify(ctx); err != nil {
		return err
	}

	store, err := history.Open(ctx, *a.historyDSN)
	if err != nil {
		return err
	}
	defer store.Close()
	posted, err := store.Load(ctx)
	if err != nil {
		return fmt.Errorf("loading history: %w", err)
	}
	log.Debug("loaded history", "links", posted.Len())

	searcher, err := a.searcher(ctx, cfg)
	if err != nil {
		return err
	}
	readers := a.readers(cfg, cat, searcher)

	o, closeOracle, err := a.oracle(ctx, cfg, scrubber)
	if err != nil {
		return err
	}
	defer closeOracle()

	// Message texts of kept items, for the job details recorded in history.
	texts := make(map[string]string)
	ex := candidate.Extractor{
		History: posted,
		Filters: append(cat.filters(ctx), candidate.FilterFunc(func(it candidate.Item, c candidate.Candidate) bool {
			if it.Kind == candidate.KindMessage {
				texts[c.Link] = it.Content
			}
			return true
		})),
	}

	persona := generate.LookupPersona(cat.Persona)
	var sel selector.Selector = selector.Heuristic{K: cat.TopK, Rand: a.rand}
	st.Strategy = selectionHeuristic
	if cat.Selection == selectionRanked {
		sel = selector.Ranked{Oracle: o, Audience: persona.Role}
		st.Strategy = selectionRanked
	}

	req := generate.Request{Persona: persona, Media: cat.Media}
	dec, sst, err := sel.Select(ctx, readers, cfg.Lookback, ex)
	st.addSelection(sst)
	switch {
	case err == nil:
		req.Candidate = &dec.Chosen
		st.Fallback = dec.Fallback
		log.Info("selected candidate",
			"link", dec.Chosen.Link,
			"source", dec.Chosen.Source,
			"rationale", dec.Rationale,
			"fallback", dec.Fallback,
		)
	case errors.Is(err, selector.ErrNoCandidates):
		if len(cat.Topics) == 0 {
			log.Info("nothing to post")
			return nil
		}
		req.Topic = cat.Topics[a.intn(len(cat.Topics))]
		st.Strategy = "evergreen"
		log.Info("no fresh candidates, writing about an evergreen topic", "topic", req.Topic)
	default:
		return err
	}

	gen := &generate.Generator{
		Oracle:   o,
		Platform: platformName(*a.target),
		Images:   a.images(cfg, scrubber, searcher),
	}
	post, err := gen.Generate(ctx, req)
	if post.ImagePath != "" {
		defer func() {
			if err := os.Remove(post.ImagePath); err != nil && !errors.Is(err, os.ErrNotExist) {
				log.Warn("removing temporary image", "path", post.ImagePath, "error", err)
			}
		}()
	}
	if err != nil {
		return fmt.Errorf("generating post: %w", err)
	}

	id, err := pub.Publish(ctx, post)
	if err != nil {
		return fmt.Errorf("publishing: %w", err)
	}
	st.PostID = id
	log.Info("published", "id", id, "image", post.ImagePath != "")

	if a.dry || req.Candidate == nil {
		return nil
	}
	job := candidate.ParseJob(texts[req.Candidate.Link])
	if err := store.Append(ctx, history.Record{
		Link:    req.Candidate.Link,
		Source:  req.Candidate.Source,
		Title:   req.Candidate.Title,
		Date:    a.now(),
		Company: job.Company,
		Role:    job.Role,
		Batch:   job.Batch,
	}); err != nil {
		return fmt.Errorf("recording %s in history: %w", req.Candidate.Link, err)
	}
	return nil
}

func (a *app) intn(n int) int {
	if a.rand != nil {
		return a.rand.IntN(n)
	}
	return rand.IntN(n)
}

// pickCategory returns the named category or, when name is empty, a random
// one chosen in proportion to category weights.
func (a *app) pickCategory(cfg *Config, name string) (*Category, error) {
	if name != "" {
		return cfg.category(name)
	}
	var total int
	for _, c := range cfg.Categories {
		total += c.Weight
	}
	if total == 0 {
		return cfg.Categories[a.intn(len(cfg.Categories))], nil
	}
	n := a.intn(total)
	for _, c := range cfg.Categories {
		if n < c.Weight {
			return c, nil
		}
		n -= c.Weight
	}
	return cfg.Categories[len(cfg.Categories)-1], nil
}

// lock serializes runs against one history. Dry runs and histories without
// a lock file aren't locked.
func (a *app) lock() (unlock func(), err error) {
	path := history.LockPath(*a.historyDSN)
	if path == "" || a.dry {
		return func() {}, nil
	}
	l, err := filelock.Acquire(path)
	if errors.Is(err, filelock.ErrAlreadyLocked) {
		return nil, fmt.Errorf("%w: %w", errAlreadyRunning, err)
	}
	if err != nil {
		return nil, err
	}
	return func() { l.Release() }, nil
}

func platformName(target string) string {
	if target == targetTelegram {
		return "Telegram"
	}
	return "LinkedIn"
}

func (a *app) publisher(ctx context.Context, cfg *Config, cat *Category, scrubber *strings.Replacer) publish.Publisher {
	if a.dry {
		return &publish.DryRun{W: cli.GetEnv(ctx).Stdout}
	}
	if *a.target == targetTelegram {
		return &publish.Telegram{
			Token:      cfg.Env.TelegramToken,
			ChatID:     cfg.Env.TelegramChatID,
			HTTPClient: a.httpc,
			Scrubber:   scrubber,
		}
	}
	return &publish.LinkedIn{
		Client: &linkedin.Client{
			AccessToken: cfg.Env.LinkedInToken,
			HTTPClient:  a.httpc,
			Scrubber:    scrubber,
		},
		ImageTitle: cat.Name,
	}
}

func (a *app) oracle(ctx context.Context, cfg *Config, scrubber *strings.Replacer) (oracle.Text, func(), error) {
	if *a.backend == backendSDK {
		sdk, err := oracle.NewSDK(ctx, cfg.Env.GeminiModel, option.WithAPIKey(cfg.Env.GeminiKey))
		if err != nil {
			return nil, nil, err
		}
		return sdk, func() { sdk.Close() }, nil
	}
	return &oracle.REST{
		Client: &gemini.Client{
			APIKey:     cfg.Env.GeminiKey,
			HTTPClient: a.httpc,
			Scrubber:   scrubber,
		},
		Model: cfg.Env.GeminiModel,
	}, func() {}, nil
}

// searcher returns nil when search isn't configured.
func (a *app) searcher(ctx context.Context, cfg *Config) (*source.Searcher, error) {
	if cfg.Env.SearchKey == "" || cfg.Env.SearchCX == "" {
		return nil, nil
	}
	opts := append([]option.ClientOption{option.WithAPIKey(cfg.Env.SearchKey)}, a.searchOpt...)
	return source.NewSearcher(ctx, cfg.Env.SearchCX, opts...)
}

func (a *app) readers(cfg *Config, cat *Category, searcher *source.Searcher) []source.Reader {
	lister := a.lister
	var readers []source.Reader
	for _, s := range cat.Sources {
		switch v := s.(type) {
		case *feedValue:
			readers = append(readers, &source.Feed{URL: v.URL, Title: v.Title, HTTPClient: a.httpc})
		case *channelValue:
			if lister == nil {
				lister = &source.MTProto{
					AppID:   cfg.Env.TGAppID,
					AppHash: cfg.Env.TGAppHash,
					Session: cfg.Env.TGSession,
				}
			}
			readers = append(readers, &source.Channel{Username: v.Username, Lister: lister})
		case *searchValue:
			// validate guarantees a searcher here.
			readers = append(readers, &source.Search{Query: v.Query, Searcher: searcher})
		}
	}
	return readers
}

func (a *app) images(cfg *Config, scrubber *strings.Replacer, searcher *source.Searcher) *generate.Images {
	im := &generate.Images{HTTPClient: a.httpc, Dir: a.imageDir}
	if cfg.Env.HuggingFaceToken != "" {
		im.Generator = &huggingface.Client{
			Token:      cfg.Env.HuggingFaceToken,
			HTTPClient: cmp.Or(a.imagec, imageClient),
			Scrubber:   scrubber,
		}
	}
	if searcher != nil {
		im.Searcher = searcher
	}
	return im
}

// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

/*
Postbot picks one fresh item from configured news feeds, Telegram channels or
web searches, writes a short post about it with Gemini and publishes it to
LinkedIn or a Telegram chat. It is meant to be run by a scheduler: every run
publishes at most one post.

# Usage

	$ postbot [flags...] <command> [args...]

Commands:

  - run [category]: do one run. Without an argument, the category is picked
    at random, in proportion to category weights.
  - sources: list configured sources by category. Honors -json.
  - history: print links from the history, one per line.
  - prune N: keep only the newest N history entries.

# Environment Variables

  - GEMINI_API_KEY (or GOOGLE_API_KEY): Gemini API key. Required for run.
  - GEMINI_MODEL: Gemini model, "gemini-2.5-flash" by default.
  - LINKEDIN_ACCESS_TOKEN: member access token, required when the target is
    linkedin.
  - TELEGRAM_TOKEN, TELEGRAM_CHAT_ID: bot token and chat, required when the
    target is telegram.
  - HUGGINGFACE_TOKEN: required when a category generates images.
  - TG_API_ID, TG_API_HASH, TG_SESSION_STRING: Telegram client credentials
    and a Telethon string session, required when a category reads channels.
  - GOOGLE_SEARCH_KEY, GOOGLE_SEARCH_CX: Programmable Search credentials,
    required when a category has search sources. When set, they also enable
    the image search fallback of scraped media.
  - PUSHGATEWAY_URL: Prometheus Pushgateway to push run stats to. Optional.

Variables are also read from .env.local and .env files in the working
directory (or only from the file named by ENV_FILE). The process environment
wins over the files.

Missing required variables are reported all at once before anything else
happens.

# Configuration

Sources and categories are described in a Starlark file, config.star by
default:

	crisis_feeds = [
	    feed(url = "https://www.githubstatus.com/history.rss", title = "GitHub Status"),
	]

	categories = [
	    category(
	        name = "tech",
	        persona = "tech",
	        weight = 40,
	        sources = [
	            feed(
	                url = "https://hnrss.org/frontpage",
	                keep_rule = lambda item: "Show HN" not in item.title,
	            ),
	            search("golang release"),
	        ],
	        topics = ["Why boring technology wins"],
	        media = "generate",
	        selection = "ranked",
	    ),
	    category(name = "crisis", persona = "crisis", weight = 20, sources = crisis_feeds),
	    category(name = "jobs", persona = "jobs", sources = [channel("somejobs")]),
	]

	lookback = 24  # hours

The builtins are:

  - feed(url, title?, keep_rule?): an RSS or Atom feed. keep_rule is called
    with a struct of title, url, snippet and source and returns whether the
    item may be posted about.
  - channel(name): a public Telegram channel.
  - search(query): web search results for query.
  - category(name, persona, sources, weight?, topics?, media?, keywords?,
    selection?, top_k?): a group of sources written about in one voice.
    persona is one of finance, tech, mindset, crisis and jobs, or a free-form
    description of the author. media is none, generate or scrape. keywords
    keep only items with any of the words in the title; the crisis category
    requires "investigating" or "outage" unless keywords are given.
    selection is heuristic (the default) or ranked. topics are used when no
    source has anything new.

# History

Every published link is recorded in the history so it's never posted twice.
The -history flag selects where:

  - path/to/history.txt (or any other path): one link per line.
  - path/to/history.csv: CSV with job details of channel posts.
  - path/to/history.json: JSON array of records.
  - sqlite://path/to/history.db: SQLite database.
  - postgres://...: PostgreSQL database.
  - redis://...: Redis set.
  - mem: in-memory, forgotten on exit.

Runs against a file history take a lock next to it, so overlapping runs fail
instead of posting twice.

# Dry Run

With -dry, postbot does everything except publishing: the post is printed to
stdout and the history is left untouched.
*/
package main

import (
	_ "embed"

	"go.astrophena.name/postbot/internal/cli"
)

//go:embed doc.go
var doc []byte

func init() { cli.SetDocComment(doc) }

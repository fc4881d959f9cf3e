// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package candidate turns raw source items into deduplicated post
// candidates.
package candidate

import (
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/mattn/go-runewidth"

	"go.astrophena.name/postbot/internal/history"
)

// Kind is the kind of source an item came from.
type Kind int

// Item kinds.
const (
	KindFeed Kind = iota
	KindMessage
	KindSearch
)

// Item is a raw record produced by a source, before any validation.
type Item struct {
	Kind        Kind
	Title       string
	Link        string
	Description string
	Content     string
	Published   *time.Time
	// Source is the name of the source that produced the item.
	Source string
}

// Candidate is a validated item that may become a post. Candidates are
// identified by Link.
type Candidate struct {
	Title     string    `json:"title"`
	Link      string    `json:"link"`
	Snippet   string    `json:"snippet,omitempty"`
	Source    string    `json:"source"`
	Published time.Time `json:"published,omitzero"`
}

const (
	// SnippetWidth is the maximum display width of a snippet.
	SnippetWidth = 300
	// MessageTitleLen is the maximum length of a title derived from a
	// message, in runes.
	MessageTitleLen = 100
)

// Extractor turns items into candidates.
type Extractor struct {
	// History holds links that were already posted.
	History history.Set
	// Filters are applied in order; an item is kept only if every filter
	// keeps it.
	Filters []Filter
}

// Report counts what Extract dropped.
type Report struct {
	Items     int // items seen
	Invalid   int // dropped for missing title or link
	Posted    int // dropped because the link is in history
	Duplicate int // dropped as a repeat within the input
	Filtered  int // dropped by a filter
}

// Extract returns the candidates among items. It is a pure function of items,
// e.History and e.Filters.
func (e Extractor) Extract(items []Item) []Candidate {
	cs, _ := e.ExtractReport(items)
	return cs
}

// ExtractReport is like Extract, but also reports why items were dropped.
func (e Extractor) ExtractReport(items []Item) ([]Candidate, Report) {
	var (
		cs   []Candidate
		rep  = Report{Items: len(items)}
		seen = make(map[string]bool)
	)
	for _, it := range items {
		c, ok := normalize(it)
		if !ok {
			rep.Invalid++
			continue
		}
		if e.History.Has(c.Link) {
			rep.Posted++
			continue
		}
		if seen[c.Link] {
			rep.Duplicate++
			continue
		}
		if !e.keep(it, c) {
			rep.Filtered++
			continue
		}
		seen[c.Link] = true
		cs = append(cs, c)
	}
	return cs, rep
}

func (e Extractor) keep(it Item, c Candidate) bool {
	for _, f := range e.Filters {
		if !f.Keep(it, c) {
			return false
		}
	}
	return true
}

func normalize(it Item) (Candidate, bool) {
	c := Candidate{
		Title:  collapseSpace(it.Title),
		Link:   strings.TrimSpace(it.Link),
		Source: it.Source,
	}
	if c.Title == "" || c.Link == "" {
		return Candidate{}, false
	}
	if it.Published != nil {
		c.Published = *it.Published
	}
	desc := it.Description
	if strings.TrimSpace(desc) == "" {
		desc = it.Content
	}
	c.Snippet = Snippet(desc)
	return c, true
}

// Snippet strips HTML markup from s, collapses whitespace and truncates the
// result to SnippetWidth display cells.
func Snippet(s string) string {
	if strings.ContainsAny(s, "<&") {
		if doc, err := goquery.NewDocumentFromReader(strings.NewReader(s)); err == nil {
			s = doc.Text()
		}
	}
	return runewidth.Truncate(collapseSpace(s), SnippetWidth, "…")
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

var urlRe = sync.OnceValue(func() *regexp.Regexp {
	return regexp.MustCompile(`https?://[^\s<>"'()\[\]]+`)
})

// FirstURL returns the first http or https URL in text, without trailing
// punctuation.
func FirstURL(text string) string {
	return strings.TrimRight(urlRe().FindString(text), ".,;:!?")
}

// FromMessage converts a channel message into an item. The title is the first
// non-empty line of text and the link is the first URL in it, or the public
// permalink of the message.
func FromMessage(channel string, id int, text string, date time.Time) Item {
	it := Item{
		Kind:    KindMessage,
		Content: text,
		Source:  channel,
	}
	if !date.IsZero() {
		it.Published = &date
	}
	for line := range strings.Lines(text) {
		if line = strings.TrimSpace(line); line != "" {
			it.Title = truncateRunes(line, MessageTitleLen)
			break
		}
	}
	it.Link = FirstURL(text)
	if it.Link == "" && channel != "" {
		it.Link = "https://t.me/" + channel + "/" + strconv.Itoa(id)
	}
	return it
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

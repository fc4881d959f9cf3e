// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package source

import (
	"context"
	"fmt"
	"math"
	"time"

	"google.golang.org/api/customsearch/v1"
	"google.golang.org/api/option"

	"go.astrophena.name/postbot/cmd/postbot/internal/candidate"
)

// Searcher queries the Google Custom Search JSON API.
type Searcher struct {
	svc *customsearch.Service
	cx  string
}

// NewSearcher returns a Searcher for the search engine cx. Options are passed
// to the API client, usually option.WithAPIKey.
func NewSearcher(ctx context.Context, cx string, opts ...option.ClientOption) (*Searcher, error) {
	svc, err := customsearch.NewService(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return &Searcher{svc: svc, cx: cx}, nil
}

const searchResults = 10

// Web returns web results for q. A positive lookback restricts results to
// that many days, rounded up.
func (s *Searcher) Web(ctx context.Context, q string, lookback time.Duration) ([]*customsearch.Result, error) {
	call := s.svc.Cse.List().Cx(s.cx).Q(q).Num(searchResults).Context(ctx)
	if lookback > 0 {
		days := int(math.Ceil(lookback.Hours() / 24))
		call = call.DateRestrict(fmt.Sprintf("d%d", days))
	}
	res, err := call.Do()
	if err != nil {
		return nil, err
	}
	return res.Items, nil
}

// Images returns URLs of images matching q, best first.
func (s *Searcher) Images(ctx context.Context, q string) ([]string, error) {
	res, err := s.svc.Cse.List().Cx(s.cx).Q(q).SearchType("image").Num(searchResults).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	var urls []string
	for _, r := range res.Items {
		if r.Link != "" {
			urls = append(urls, r.Link)
		}
	}
	return urls, nil
}

// Search is a Reader over web search results for a query.
type Search struct {
	Query    string
	Searcher *Searcher
}

// Name returns the query.
func (s *Search) Name() string { return "search: " + s.Query }

// Read returns the search results.
func (s *Search) Read(ctx context.Context, lookback time.Duration) ([]Item, error) {
	res, err := s.Searcher.Web(ctx, s.Query, lookback)
	if err != nil {
		return nil, err
	}
	items := make([]Item, 0, len(res))
	for _, r := range res {
		items = append(items, Item{
			Kind:        candidate.KindSearch,
			Title:       r.Title,
			Link:        r.Link,
			Description: r.Snippet,
			Source:      s.Name(),
		})
	}
	return items, nil
}

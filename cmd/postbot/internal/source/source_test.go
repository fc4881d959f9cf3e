// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package source

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"google.golang.org/api/option"

	"go.astrophena.name/postbot/cmd/postbot/internal/candidate"
	"go.astrophena.name/postbot/internal/testutil"
)

var testNow = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

func fakeNow() time.Time { return testNow }

type roundTripFunc func(r *http.Request) (*http.Response, error)

func (s roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return s(r)
}

func testClient(mux *http.ServeMux) *http.Client {
	return &http.Client{
		Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, r)
			return w.Result(), nil
		}),
	}
}

func feedMux(t *testing.T) *http.ServeMux {
	t.Helper()
	files := testutil.ReadTxtar(t, "testdata/feeds.txtar")
	mux := http.NewServeMux()
	mux.HandleFunc("GET example.com/broken", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal error", http.StatusInternalServerError)
	})
	for _, name := range []string{"rss.xml", "atom.xml", "broken.xml"} {
		mux.HandleFunc("GET example.com/"+name, func(w http.ResponseWriter, r *http.Request) {
			w.Write(files[name])
		})
	}
	return mux
}

func titles(items []Item) []string {
	var s []string
	for _, it := range items {
		s = append(s, it.Title)
	}
	return s
}

func TestFeedRead(t *testing.T) {
	t.Parallel()

	httpc := testClient(feedMux(t))

	cases := map[string]struct {
		url        string
		lookback   time.Duration
		wantTitles []string
		wantErr    bool
	}{
		"rss within a day": {
			url:      "https://example.com/rss.xml",
			lookback: 24 * time.Hour,
			wantTitles: []string{
				"Investigating elevated error rates",
				"Resolved: outage in eu-west",
				"Maintenance window",
			},
		},
		"rss within two hours": {
			url:        "https://example.com/rss.xml",
			lookback:   2 * time.Hour,
			wantTitles: []string{"Investigating elevated error rates"},
		},
		"atom": {
			url:        "https://example.com/atom.xml",
			lookback:   24 * time.Hour,
			wantTitles: []string{"Scaling the shovel"},
		},
		"server error": {
			url:      "https://example.com/broken",
			lookback: 24 * time.Hour,
			wantErr:  true,
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			f := &Feed{URL: tc.url, HTTPClient: httpc, now: fakeNow}
			items, err := f.Read(context.Background(), tc.lookback)
			if tc.wantErr {
				if err == nil {
					t.Fatal("want error")
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			testutil.AssertEqual(t, titles(items), tc.wantTitles)
			for _, it := range items {
				testutil.AssertEqual(t, it.Source, tc.url)
			}
		})
	}
}

func TestParseLenient(t *testing.T) {
	t.Parallel()

	files := testutil.ReadTxtar(t, "testdata/feeds.txtar")
	items, err := parseLenient(files["broken.xml"])
	if err != nil {
		t.Fatal(err)
	}
	var got [][2]string
	for _, it := range items {
		got = append(got, [2]string{it.Title, it.Link})
	}
	testutil.AssertEqual(t, got, [][2]string{
		{"Unclosed & broken feed", "https://example.com/broken"},
		{"Namespaced entry", "https://example.com/entry"},
		{"No link here", ""},
	})
	if items[0].Published == nil || !items[0].Published.Equal(time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected date: %v", items[0].Published)
	}

	if _, err := ParseFeed([]byte("this is not xml at all")); err == nil {
		t.Fatal("want error for garbage input")
	}
}

func TestParseLenientLinks(t *testing.T) {
	t.Parallel()

	cases := map[string]struct {
		doc  string
		want [][2]string
	}{
		"text links in every item": {
			doc: `<rss><channel>
<item><title>First</title><link>https://example.com/1</link></item>
<item><title>Second</title><link>https://example.com/2</link><br></item>
</channel></rss>`,
			want: [][2]string{
				{"First", "https://example.com/1"},
				{"Second", "https://example.com/2"},
			},
		},
		"text link after an atom entry": {
			doc: `<feed>
<entry><title>Entry</title><link href="https://example.com/entry"/></entry>
<item><title>Item</title><link> https://example.com/item </link></item>
</feed>`,
			want: [][2]string{
				{"Entry", "https://example.com/entry"},
				{"Item", "https://example.com/item"},
			},
		},
		"text link wins over href": {
			doc: `<rss><item><title>Both</title><link href="https://example.com/href">https://example.com/text</link></item></rss>`,
			want: [][2]string{
				{"Both", "https://example.com/text"},
			},
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			items, err := parseLenient([]byte(tc.doc))
			if err != nil {
				t.Fatal(err)
			}
			var got [][2]string
			for _, it := range items {
				got = append(got, [2]string{it.Title, it.Link})
			}
			testutil.AssertEqual(t, got, tc.want)
		})
	}
}

func TestScanSkipsFailingSource(t *testing.T) {
	t.Parallel()

	httpc := testClient(feedMux(t))
	readers := []Reader{
		&Feed{URL: "https://example.com/broken", HTTPClient: httpc, now: fakeNow},
		&Feed{URL: "https://example.com/rss.xml", HTTPClient: httpc, now: fakeNow},
	}

	var visited []string
	var got []Item
	st := Scan(context.Background(), readers, 24*time.Hour, func(r Reader, items []Item) bool {
		visited = append(visited, r.Name())
		got = append(got, items...)
		return true
	})
	testutil.AssertEqual(t, visited, []string{"https://example.com/rss.xml"})
	testutil.AssertEqual(t, len(got), 3)
	testutil.AssertEqual(t, st, ScanStats{Scanned: 2, Failed: 1, Items: 3})
}

func TestScanStopsEarly(t *testing.T) {
	t.Parallel()

	httpc := testClient(feedMux(t))
	readers := []Reader{
		&Feed{URL: "https://example.com/atom.xml", HTTPClient: httpc, now: fakeNow},
		&Feed{URL: "https://example.com/rss.xml", HTTPClient: httpc, now: fakeNow},
	}
	st := Scan(context.Background(), readers, 24*time.Hour, func(Reader, []Item) bool { return false })
	testutil.AssertEqual(t, st.Scanned, 1)
}

type fakeLister struct {
	msgs       []Message
	err        error
	gotSince   time.Time
	gotChannel string
}

func (l *fakeLister) Messages(_ context.Context, channel string, since time.Time) ([]Message, error) {
	l.gotChannel, l.gotSince = channel, since
	return l.msgs, l.err
}

func TestChannelRead(t *testing.T) {
	t.Parallel()

	lister := &fakeLister{msgs: []Message{
		{ID: 3, Text: "Newest: Apply at https://jobs.example.com/3", Date: testNow.Add(-time.Hour)},
		{ID: 1, Text: "Oldest posting\nApply now", Date: testNow.Add(-3 * time.Hour)},
		{ID: 2, Text: "   ", Date: testNow.Add(-2 * time.Hour)},
		// Listers may return more than asked for.
		{ID: 0, Text: "Stale posting, Apply at https://jobs.example.com/0", Date: testNow.Add(-30 * time.Hour)},
	}}
	c := &Channel{Username: "devjobs", Lister: lister, now: fakeNow}
	items, err := c.Read(context.Background(), 24*time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, lister.gotChannel, "devjobs")
	testutil.AssertEqual(t, lister.gotSince, testNow.Add(-24*time.Hour))

	var links []string
	for _, it := range items {
		testutil.AssertEqual(t, it.Kind, candidate.KindMessage)
		testutil.AssertEqual(t, it.Source, "@devjobs")
		links = append(links, it.Link)
	}
	testutil.AssertEqual(t, links, []string{"https://t.me/devjobs/1", "https://jobs.example.com/3"})

	lister.err = errors.New("FLOOD_WAIT")
	if _, err := c.Read(context.Background(), time.Hour); err == nil {
		t.Fatal("want error")
	}
}

func TestSearch(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /customsearch/v1", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		testutil.AssertEqual(t, q.Get("cx"), "engine")
		w.Header().Set("Content-Type", "application/json")
		if q.Get("searchType") == "image" {
			w.Write([]byte(`{"items":[{"link":"https://img.example.com/1.png"},{"link":""}]}`))
			return
		}
		testutil.AssertEqual(t, q.Get("dateRestrict"), "d2")
		w.Write([]byte(`{"items":[{"title":"Go 2 released","link":"https://go.dev/blog/go2","snippet":"It happened."}]}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	ctx := context.Background()
	searcher, err := NewSearcher(ctx, "engine", option.WithEndpoint(srv.URL+"/"), option.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatal(err)
	}

	s := &Search{Query: "golang news", Searcher: searcher}
	items, err := s.Read(ctx, 36*time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, items, []Item{{
		Kind:        candidate.KindSearch,
		Title:       "Go 2 released",
		Link:        "https://go.dev/blog/go2",
		Description: "It happened.",
		Source:      "search: golang news",
	}})

	imgs, err := searcher.Images(ctx, "datacenter")
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, imgs, []string{"https://img.example.com/1.png"})
}

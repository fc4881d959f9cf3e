// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package source

import (
	"bytes"
	"cmp"
	"context"
	"encoding/xml"
	"errors"
	"io"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"go.astrophena.name/postbot/cmd/postbot/internal/candidate"
	"go.astrophena.name/postbot/internal/request"
)

// Feed reads an RSS or Atom feed over HTTP.
type Feed struct {
	URL   string
	Title string
	// HTTPClient defaults to request.DefaultClient.
	HTTPClient *http.Client

	now func() time.Time
}

// Name returns the feed title, or its URL.
func (f *Feed) Name() string { return cmp.Or(f.Title, f.URL) }

// Read fetches and parses the feed. Any non-2xx response is an error.
func (f *Feed) Read(ctx context.Context, lookback time.Duration) ([]Item, error) {
	b, err := request.Make[request.Bytes](ctx, request.Params{
		Method:     http.MethodGet,
		URL:        f.URL,
		HTTPClient: f.HTTPClient,
	})
	if err != nil {
		return nil, err
	}
	items, err := ParseFeed(b)
	if err != nil {
		return nil, err
	}

	now := time.Now
	if f.now != nil {
		now = f.now
	}
	t := now()
	kept := items[:0]
	for _, it := range items {
		if !within(it.Published, t, lookback) {
			continue
		}
		it.Source = f.Name()
		kept = append(kept, it)
	}
	return kept, nil
}

// ErrNotFeed is returned by ParseFeed when data has neither RSS items nor
// Atom entries.
var ErrNotFeed = errors.New("not a feed")

// ParseFeed parses an RSS or Atom document. When the strict parser rejects
// the document, a lenient reader that tolerates malformed XML and mixed
// schemas is tried.
func ParseFeed(data []byte) ([]Item, error) {
	feed, err := gofeed.NewParser().Parse(bytes.NewReader(data))
	if err == nil {
		items := make([]Item, 0, len(feed.Items))
		for _, fi := range feed.Items {
			items = append(items, fromGofeed(fi))
		}
		return items, nil
	}
	items, lerr := parseLenient(data)
	if lerr != nil {
		return nil, errors.Join(err, lerr)
	}
	return items, nil
}

func fromGofeed(fi *gofeed.Item) Item {
	it := Item{
		Kind:        candidate.KindFeed,
		Title:       fi.Title,
		Link:        fi.Link,
		Description: fi.Description,
		Content:     fi.Content,
		Published:   fi.PublishedParsed,
	}
	if it.Link == "" && len(fi.Links) > 0 {
		it.Link = fi.Links[0]
	}
	if it.Published == nil {
		it.Published = fi.UpdatedParsed
	}
	return it
}

// autoClose lists HTML void elements closed without an end tag. It is
// xml.HTMLAutoClose without "link", which in feeds holds the item URL as text.
var autoClose = slices.DeleteFunc(slices.Clone(xml.HTMLAutoClose), func(name string) bool {
	return name == "link"
})

// parseLenient walks the XML tokens and collects rss/channel/item and
// feed/entry records by local element name, ignoring namespaces.
func parseLenient(data []byte) ([]Item, error) {
	d := xml.NewDecoder(bytes.NewReader(data))
	d.Strict = false
	d.AutoClose = autoClose
	d.Entity = xml.HTMLEntity
	d.CharsetReader = func(_ string, r io.Reader) (io.Reader, error) { return r, nil }

	var (
		items   []Item
		cur     *lenientItem
		field   string
		text    strings.Builder
		sawRoot bool
	)
	for {
		tok, err := d.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			// Keep whatever was parsed before the document broke.
			if len(items) > 0 {
				break
			}
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			name := strings.ToLower(t.Name.Local)
			switch {
			case name == "rss" || name == "feed" || name == "rdf":
				sawRoot = true
			case name == "item" || name == "entry":
				cur = new(lenientItem)
			case cur != nil && field == "":
				field = name
				text.Reset()
				if name == "link" {
					cur.addLinkAttr(t.Attr)
				}
			}
		case xml.CharData:
			if field != "" {
				text.Write(t)
			}
		case xml.EndElement:
			name := strings.ToLower(t.Name.Local)
			switch {
			case cur != nil && (name == "item" || name == "entry"):
				items = append(items, cur.item())
				cur = nil
				field = ""
			case cur != nil && name == field:
				cur.set(field, strings.TrimSpace(text.String()))
				field = ""
			}
		}
	}
	if len(items) == 0 && !sawRoot {
		return nil, ErrNotFeed
	}
	return items, nil
}

type lenientItem struct {
	title, description, content, date string
	textLink, altLink, anyLink        string
}

func (li *lenientItem) addLinkAttr(attrs []xml.Attr) {
	var href, rel string
	for _, a := range attrs {
		switch strings.ToLower(a.Name.Local) {
		case "href":
			href = strings.TrimSpace(a.Value)
		case "rel":
			rel = a.Value
		}
	}
	if href == "" {
		return
	}
	if (rel == "" || rel == "alternate") && li.altLink == "" {
		li.altLink = href
	}
	if li.anyLink == "" {
		li.anyLink = href
	}
}

func (li *lenientItem) set(field, val string) {
	if val == "" {
		return
	}
	switch field {
	case "title":
		li.title = cmp.Or(li.title, val)
	case "link":
		li.textLink = cmp.Or(li.textLink, val)
	case "guid", "id":
		if strings.HasPrefix(val, "http") {
			li.anyLink = cmp.Or(li.anyLink, val)
		}
	case "description", "summary":
		li.description = cmp.Or(li.description, val)
	case "content", "encoded":
		li.content = cmp.Or(li.content, val)
	case "pubdate", "published", "updated", "date":
		li.date = cmp.Or(li.date, val)
	}
}

func (li *lenientItem) item() Item {
	it := Item{
		Kind:        candidate.KindFeed,
		Title:       li.title,
		Link:        cmp.Or(li.textLink, li.altLink, li.anyLink),
		Description: li.description,
		Content:     li.content,
	}
	if t, ok := parseDate(li.date); ok {
		it.Published = &t
	}
	return it
}

var dateLayouts = []string{
	time.RFC3339,
	time.RFC1123Z,
	time.RFC1123,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 MST",
	"2 Jan 2006 15:04:05 -0700",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package generate

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"go.astrophena.name/postbot/internal/logger"
	"go.astrophena.name/postbot/internal/request"
)

// Media is how a category gets its post image.
type Media string

// Media strategies.
const (
	MediaNone     Media = "none"
	MediaGenerate Media = "generate"
	MediaScrape   Media = "scrape"
)

// ParseMedia validates s. The empty string means MediaNone.
func ParseMedia(s string) (Media, error) {
	switch m := Media(s); m {
	case "", MediaNone:
		return MediaNone, nil
	case MediaGenerate, MediaScrape:
		return m, nil
	}
	return "", fmt.Errorf("unknown media %q, want none, generate or scrape", s)
}

// ImageGenerator renders an image from a text prompt.
type ImageGenerator interface {
	TextToImage(ctx context.Context, prompt string) (data []byte, contentType string, err error)
}

// ImageSearcher finds images for a query.
type ImageSearcher interface {
	Images(ctx context.Context, q string) ([]string, error)
}

// Images produces post images and stores them in temporary files.
type Images struct {
	// Generator backs MediaGenerate.
	Generator ImageGenerator
	// Searcher is the MediaScrape fallback when the page has no preview
	// image. Optional.
	Searcher ImageSearcher
	// HTTPClient fetches pages and images. Defaults to request.DefaultClient.
	HTTPClient *http.Client
	// Dir is where images are written. Defaults to os.TempDir.
	Dir string
}

// maxSearchResults is how many image search results are tried.
const maxSearchResults = 3

// VisualPrompt derives a schematic-style image prompt from subject.
func VisualPrompt(subject string) string {
	return "technical blueprint schematic of " + subject + ", isometric view, " +
		"engineering diagram style, highly detailed, neon cyan lines on dark blue background, " +
		"unreal engine 5 render, 8k, data visualization aesthetics"
}

// Make produces an image for req and returns the path of the temporary file.
func (im *Images) Make(ctx context.Context, req Request) (string, error) {
	var (
		data        []byte
		contentType string
		err         error
	)
	switch req.Media {
	case MediaGenerate:
		if im.Generator == nil {
			return "", errors.New("no image generator configured")
		}
		data, contentType, err = im.Generator.TextToImage(ctx, VisualPrompt(req.Subject()))
	case MediaScrape:
		data, contentType, err = im.scrape(ctx, req)
	default:
		return "", fmt.Errorf("media %q doesn't produce images", req.Media)
	}
	if err != nil {
		return "", err
	}
	return im.save(data, contentType)
}

func (im *Images) scrape(ctx context.Context, req Request) ([]byte, string, error) {
	var errs []error
	if req.Candidate != nil {
		imgURL, err := im.previewImage(ctx, req.Candidate.Link)
		if err == nil {
			data, ct, err := im.download(ctx, imgURL)
			if err == nil {
				return data, ct, nil
			}
			errs = append(errs, err)
		} else {
			errs = append(errs, err)
		}
	}
	if im.Searcher == nil {
		return nil, "", errors.Join(append(errs, errors.New("no image searcher configured"))...)
	}

	logger.Get(ctx).Debug("falling back to image search", "query", req.Subject())
	urls, err := im.Searcher.Images(ctx, req.Subject())
	if err != nil {
		return nil, "", errors.Join(append(errs, err)...)
	}
	for _, u := range urls[:min(len(urls), maxSearchResults)] {
		data, ct, err := im.download(ctx, u)
		if err == nil {
			return data, ct, nil
		}
		errs = append(errs, err)
	}
	return nil, "", errors.Join(append(errs, errors.New("no usable image search result"))...)
}

var previewSelectors = []string{
	`meta[property="og:image"]`,
	`meta[name="og:image"]`,
	`meta[name="twitter:image"]`,
	`meta[property="twitter:image"]`,
}

// previewImage returns the absolute URL of the page preview image of link.
func (im *Images) previewImage(ctx context.Context, link string) (string, error) {
	page, err := request.Make[request.Bytes](ctx, request.Params{
		Method:     http.MethodGet,
		URL:        link,
		HTTPClient: im.HTTPClient,
	})
	if err != nil {
		return "", err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(page)))
	if err != nil {
		return "", err
	}
	for _, sel := range previewSelectors {
		content := strings.TrimSpace(doc.Find(sel).First().AttrOr("content", ""))
		if content == "" {
			continue
		}
		base, err := url.Parse(link)
		if err != nil {
			return "", err
		}
		ref, err := url.Parse(content)
		if err != nil {
			continue
		}
		return base.ResolveReference(ref).String(), nil
	}
	return "", fmt.Errorf("%s has no preview image", link)
}

func (im *Images) download(ctx context.Context, u string) ([]byte, string, error) {
	data, err := request.Make[request.Bytes](ctx, request.Params{
		Method:     http.MethodGet,
		URL:        u,
		HTTPClient: im.HTTPClient,
	})
	if err != nil {
		return nil, "", err
	}
	ct := http.DetectContentType(data)
	if !strings.HasPrefix(ct, "image/") {
		return nil, "", fmt.Errorf("%s is %s, not an image", u, ct)
	}
	return data, ct, nil
}

func extension(contentType string) string {
	switch contentType {
	case "image/jpeg":
		return ".jpg"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	default:
		return ".png"
	}
}

func (im *Images) save(data []byte, contentType string) (string, error) {
	f, err := os.CreateTemp(im.Dir, "postbot-*"+extension(contentType))
	if err != nil {
		return "", err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}

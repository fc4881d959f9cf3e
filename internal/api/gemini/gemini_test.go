// © 2024 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.astrophena.name/postbot/internal/request"
	"go.astrophena.name/postbot/internal/testutil"
)

func TestGenerateContent(t *testing.T) {
	t.Parallel()

	var gotParams GenerateContentParams
	mux := http.NewServeMux()
	mux.HandleFunc("POST /models/gemini-test:generateContent", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-goog-api-key") != "secret" {
			http.Error(w, "bad key secret", http.StatusUnauthorized)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&gotParams); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"Hello, "},{"text":"world"}],"role":"model"}}]}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	temp := float32(0.2)
	c := &Client{APIKey: "secret", BaseURL: srv.URL, HTTPClient: srv.Client()}
	resp, err := c.GenerateContent(context.Background(), "gemini-test", GenerateContentParams{
		Contents: []*Content{{Parts: []*Part{{Text: "Say hello."}}}},
		GenerationConfig: &GenerationConfig{
			ResponseMIMEType: "application/json",
			Temperature:      &temp,
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	text, err := resp.Text()
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, text, "Hello, world")
	testutil.AssertEqual(t, gotParams.GenerationConfig.ResponseMIMEType, "application/json")
	testutil.AssertEqual(t, *gotParams.GenerationConfig.Temperature, temp)
	testutil.AssertEqual(t, gotParams.Contents[0].Parts[0].Text, "Say hello.")
}

func TestGenerateContentError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "key secret is invalid", http.StatusForbidden)
	}))
	t.Cleanup(srv.Close)

	c := &Client{
		APIKey:     "secret",
		BaseURL:    srv.URL,
		HTTPClient: srv.Client(),
		Scrubber:   strings.NewReplacer("secret", "[EXPUNGED]"),
	}
	_, err := c.GenerateContent(context.Background(), "gemini-test", GenerateContentParams{})
	var se *request.StatusError
	if !errors.As(err, &se) {
		t.Fatalf("want *request.StatusError, got %v", err)
	}
	testutil.AssertEqual(t, se.StatusCode, http.StatusForbidden)
	if strings.Contains(err.Error(), "secret") {
		t.Fatalf("error leaks the key: %v", err)
	}
}

func TestTextEmpty(t *testing.T) {
	t.Parallel()

	for _, resp := range []*GenerateContentResponse{
		nil,
		{},
		{Candidates: []*Candidate{{Content: &Content{}}}},
	} {
		if _, err := resp.Text(); !errors.Is(err, ErrEmptyResponse) {
			t.Fatalf("want ErrEmptyResponse, got %v", err)
		}
	}
}

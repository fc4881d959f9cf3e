// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.astrophena.name/postbot/internal/api/gemini"
	"go.astrophena.name/postbot/internal/testutil"
)

func TestREST(t *testing.T) {
	t.Parallel()

	var got gemini.GenerateContentParams
	mux := http.NewServeMux()
	mux.HandleFunc("POST /models/{model}", func(w http.ResponseWriter, r *http.Request) {
		testutil.AssertEqual(t, r.PathValue("model"), DefaultModel+":generateContent")
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"{\"id\": 1}"}]}}]}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	o := &REST{Client: &gemini.Client{APIKey: "key", BaseURL: srv.URL, HTTPClient: srv.Client()}}

	cases := map[string]struct {
		opts     Options
		wantMIME string
		wantTemp bool
	}{
		"json":        {opts: Options{JSON: true}, wantMIME: "application/json"},
		"temperature": {opts: Options{Temperature: 0.7}, wantTemp: true},
	}
	// Cases share the server state, so they run sequentially.
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			text, err := o.Generate(context.Background(), "pick one", tc.opts)
			if err != nil {
				t.Fatal(err)
			}
			testutil.AssertEqual(t, text, `{"id": 1}`)
			testutil.AssertEqual(t, got.GenerationConfig.ResponseMIMEType, tc.wantMIME)
			testutil.AssertEqual(t, got.GenerationConfig.Temperature != nil, tc.wantTemp)
		})
	}
}

func TestRESTEmpty(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"candidates":[]}`))
	}))
	t.Cleanup(srv.Close)

	o := &REST{Client: &gemini.Client{BaseURL: srv.URL, HTTPClient: srv.Client()}, Model: "m"}
	if _, err := o.Generate(context.Background(), "x", Options{}); !errors.Is(err, gemini.ErrEmptyResponse) {
		t.Fatalf("want ErrEmptyResponse, got %v", err)
	}
}

// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package linkedin

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.astrophena.name/postbot/internal/request"
	"go.astrophena.name/postbot/internal/testutil"
)

func newTestClient(t *testing.T, mux *http.ServeMux) *Client {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return &Client{AccessToken: "token", BaseURL: srv.URL, HTTPClient: srv.Client()}
}

func authorized(r *http.Request) bool {
	return r.Header.Get("Authorization") == "Bearer token"
}

func TestUserInfo(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /v2/userinfo", func(w http.ResponseWriter, r *http.Request) {
		if !authorized(r) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`{"sub":"abc123","name":"Jane"}`))
	})
	c := newTestClient(t, mux)

	info, err := c.UserInfo(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, info.URN(), "urn:li:person:abc123")

	c.AccessToken = "wrong"
	_, err = c.UserInfo(context.Background())
	var se *request.StatusError
	if !errors.As(err, &se) || se.StatusCode != http.StatusUnauthorized {
		t.Fatalf("want 401 StatusError, got %v", err)
	}
}

func TestImagePost(t *testing.T) {
	t.Parallel()

	var (
		uploaded []byte
		post     map[string]any
	)
	mux := http.NewServeMux()
	var srvURL string
	mux.HandleFunc("POST /v2/assets", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("action") != "registerUpload" {
			http.Error(w, "bad action", http.StatusBadRequest)
			return
		}
		var req registerUploadRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if req.RegisterUploadRequest.Owner != "urn:li:person:abc" {
			http.Error(w, "bad owner", http.StatusBadRequest)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"value": map[string]any{
				"asset": "urn:li:digitalmediaAsset:1",
				"uploadMechanism": map[string]any{
					uploadMechanismHTTP: map[string]any{"uploadUrl": srvURL + "/upload/1"},
				},
			},
		})
	})
	mux.HandleFunc("PUT /upload/1", func(w http.ResponseWriter, r *http.Request) {
		if !authorized(r) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		uploaded, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusCreated)
	})
	mux.HandleFunc("POST /v2/ugcPosts", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Restli-Protocol-Version") != "2.0.0" {
			http.Error(w, "missing protocol version", http.StatusBadRequest)
			return
		}
		json.NewDecoder(r.Body).Decode(&post)
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":"urn:li:share:42"}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	srvURL = srv.URL
	c := &Client{AccessToken: "token", BaseURL: srv.URL, HTTPClient: srv.Client()}

	ctx := context.Background()
	up, err := c.RegisterUpload(ctx, "urn:li:person:abc")
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, up.Asset, "urn:li:digitalmediaAsset:1")
	if err := c.PutImage(ctx, up, "image/png", []byte("png")); err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, string(uploaded), "png")

	id, err := c.CreatePost(ctx, Post{
		Author: "urn:li:person:abc",
		Text:   "Hello",
		Asset:  up.Asset,
		Title:  "Insight",
	})
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, id, "urn:li:share:42")

	content := post["specificContent"].(map[string]any)[shareContentKey].(map[string]any)
	testutil.AssertEqual(t, content["shareMediaCategory"], "IMAGE")
	testutil.AssertEqual(t, post["lifecycleState"], "PUBLISHED")
	testutil.AssertEqual(t, post["visibility"], map[string]any{memberVisibilityKey: "PUBLIC"})
}

func TestTextPostBody(t *testing.T) {
	t.Parallel()

	body := Post{Author: "urn:li:person:abc", Text: "Hi"}.body()
	content := body.SpecificContent[shareContentKey]
	testutil.AssertEqual(t, content.ShareMediaCategory, "NONE")
	testutil.AssertEqual(t, len(content.Media), 0)
}

func TestCreatePostID(t *testing.T) {
	t.Parallel()

	cases := map[string]struct {
		header string
		body   string
		want   string
	}{
		"header only": {
			header: "urn:li:share:7",
			want:   "urn:li:share:7",
		},
		"body only": {
			body: `{"id":"urn:li:share:8"}`,
			want: "urn:li:share:8",
		},
		"header wins": {
			header: "urn:li:ugcPost:9",
			body:   `{"id":"urn:li:share:9"}`,
			want:   "urn:li:ugcPost:9",
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			mux := http.NewServeMux()
			mux.HandleFunc("POST /v2/ugcPosts", func(w http.ResponseWriter, r *http.Request) {
				if tc.header != "" {
					w.Header().Set("X-RestLi-Id", tc.header)
				}
				w.WriteHeader(http.StatusCreated)
				w.Write([]byte(tc.body))
			})
			c := newTestClient(t, mux)
			id, err := c.CreatePost(context.Background(), Post{Author: "urn:li:person:abc", Text: "Hi"})
			if err != nil {
				t.Fatal(err)
			}
			testutil.AssertEqual(t, id, tc.want)
		})
	}
}

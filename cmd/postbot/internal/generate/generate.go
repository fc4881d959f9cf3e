// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package generate writes posts with a generative text model.
package generate

import (
	"bytes"
	"context"
	"errors"
	"text/template"

	"go.astrophena.name/postbot/cmd/postbot/internal/candidate"
	"go.astrophena.name/postbot/cmd/postbot/internal/oracle"
	"go.astrophena.name/postbot/cmd/postbot/internal/slop"
	"go.astrophena.name/postbot/internal/logger"
)

// ErrEmpty is returned when the model produced no usable text.
var ErrEmpty = errors.New("generated post is empty")

// Post is a generated post.
type Post struct {
	Text string
	// ImagePath is an optional temporary image file. The caller removes it
	// once the post is published or abandoned.
	ImagePath string
}

// Request describes what to write about.
type Request struct {
	Persona Persona
	// Candidate is the item to write about. When nil, Topic is used.
	Candidate *candidate.Candidate
	// Topic is an evergreen topic for runs without a candidate.
	Topic string
	Media Media
}

// Subject returns the candidate title, or the topic.
func (r Request) Subject() string {
	if r.Candidate != nil {
		return r.Candidate.Title
	}
	return r.Topic
}

// DefaultTemperature is the sampling temperature of post generation.
const DefaultTemperature = 0.7

// Generator writes posts.
type Generator struct {
	Oracle oracle.Text
	// Platform is where the post goes, e.g. "LinkedIn".
	Platform string
	// Clean post-processes generated text. Defaults to slop.Clean.
	Clean slop.Cleaner
	// Images produces post images. Nil disables media.
	Images *Images
}

var postPrompt = template.Must(template.New("post").Parse(`You are {{.Persona.Role}}.
{{if .Candidate -}}
Source material:
Title: {{.Candidate.Title}}
{{- with .Candidate.Snippet}}
Summary: {{.}}{{end}}
Link: {{.Candidate.Link}}

Task: Write a {{.Platform}} post about this for your audience. Include the link.
{{- else -}}
Topic: {{.Topic}}

Task: Write a {{.Platform}} post about this topic for your audience.
{{- end}}
{{with .Persona.Style}}Style: {{.}}
{{end}}{{with .Persona.Value}}Value: {{.}}
{{end}}{{with .Persona.Format}}Format: {{.}}
{{end}}
Output only the post text.`))

// Prompt returns the prompt for req.
func (g *Generator) Prompt(req Request) (string, error) {
	var buf bytes.Buffer
	err := postPrompt.Execute(&buf, struct {
		Request
		Platform string
	}{req, g.Platform})
	return buf.String(), err
}

// Generate writes a post for req. Generation failures are returned as is;
// failing to produce an image only drops the image.
func (g *Generator) Generate(ctx context.Context, req Request) (Post, error) {
	if req.Candidate == nil && req.Topic == "" {
		return Post{}, errors.New("nothing to write about")
	}
	prompt, err := g.Prompt(req)
	if err != nil {
		return Post{}, err
	}
	raw, err := g.Oracle.Generate(ctx, prompt, oracle.Options{Temperature: DefaultTemperature})
	if err != nil {
		return Post{}, err
	}
	clean := g.Clean
	if clean == nil {
		clean = slop.Clean
	}
	post := Post{Text: clean(raw)}
	if post.Text == "" {
		return Post{}, ErrEmpty
	}

	if req.Media == MediaNone || req.Media == "" || g.Images == nil {
		return post, nil
	}
	path, err := g.Images.Make(ctx, req)
	if err != nil {
		logger.Get(ctx).Warn("no image, posting text only", "media", req.Media, "error", err)
		return post, nil
	}
	post.ImagePath = path
	return post, nil
}

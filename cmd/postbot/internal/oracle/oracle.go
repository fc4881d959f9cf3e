// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package oracle wraps generative text models behind a single interface.
package oracle

import (
	"context"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"go.astrophena.name/postbot/internal/api/gemini"
)

// DefaultModel is the Gemini model used when none is configured.
const DefaultModel = "gemini-2.5-flash"

// Options tune a single generation.
type Options struct {
	// JSON requests a strict JSON response.
	JSON bool
	// Temperature is the sampling temperature. Zero leaves the model default.
	Temperature float32
}

// Text generates text from a prompt.
type Text interface {
	Generate(ctx context.Context, prompt string, opts Options) (string, error)
}

// Func adapts a function to the Text interface.
type Func func(ctx context.Context, prompt string, opts Options) (string, error)

// Generate calls f.
func (f Func) Generate(ctx context.Context, prompt string, opts Options) (string, error) {
	return f(ctx, prompt, opts)
}

const jsonMIMEType = "application/json"

// REST generates text with the Gemini REST API.
type REST struct {
	Client *gemini.Client
	Model  string
}

// Generate implements Text.
func (r *REST) Generate(ctx context.Context, prompt string, opts Options) (string, error) {
	params := gemini.GenerateContentParams{
		Contents: []*gemini.Content{{
			Role:  "user",
			Parts: []*gemini.Part{{Text: prompt}},
		}},
	}
	if opts.JSON || opts.Temperature != 0 {
		params.GenerationConfig = new(gemini.GenerationConfig)
		if opts.JSON {
			params.GenerationConfig.ResponseMIMEType = jsonMIMEType
		}
		if opts.Temperature != 0 {
			params.GenerationConfig.Temperature = &opts.Temperature
		}
	}
	model := r.Model
	if model == "" {
		model = DefaultModel
	}
	resp, err := r.Client.GenerateContent(ctx, model, params)
	if err != nil {
		return "", err
	}
	return resp.Text()
}

// SDK generates text with the Google generative AI SDK.
type SDK struct {
	client *genai.Client
	model  string
}

// NewSDK returns an SDK backend for model. Options are passed to the SDK
// client, usually option.WithAPIKey.
func NewSDK(ctx context.Context, model string, opts ...option.ClientOption) (*SDK, error) {
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, err
	}
	if model == "" {
		model = DefaultModel
	}
	return &SDK{client: client, model: model}, nil
}

// Generate implements Text.
func (s *SDK) Generate(ctx context.Context, prompt string, opts Options) (string, error) {
	m := s.client.GenerativeModel(s.model)
	if opts.JSON {
		m.ResponseMIMEType = jsonMIMEType
	}
	if opts.Temperature != 0 {
		m.SetTemperature(opts.Temperature)
	}
	resp, err := m.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	if len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
		for _, p := range resp.Candidates[0].Content.Parts {
			if t, ok := p.(genai.Text); ok {
				sb.WriteString(string(t))
			}
		}
	}
	if sb.Len() == 0 {
		return "", gemini.ErrEmptyResponse
	}
	return sb.String(), nil
}

// Close releases the SDK client.
func (s *SDK) Close() error { return s.client.Close() }

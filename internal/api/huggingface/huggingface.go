// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package huggingface is a minimal client for Hugging Face Inference
// text-to-image models.
package huggingface

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"go.astrophena.name/postbot/internal/request"
)

// DefaultBaseURL is the Inference Providers router endpoint.
const DefaultBaseURL = "https://router.huggingface.co/hf-inference/models"

// DefaultModel is the text-to-image model used when none is set.
const DefaultModel = "black-forest-labs/FLUX.1-schnell"

// Client holds configuration for interacting with the Inference API.
type Client struct {
	// Token is the Hugging Face access token.
	Token string
	// Model is the model repository ID. Defaults to DefaultModel.
	Model string
	// BaseURL overrides DefaultBaseURL.
	BaseURL string
	// HTTPClient is an optional HTTP client to use for requests. Image
	// generation is slow, so callers usually want a longer timeout than
	// request.DefaultClient has.
	HTTPClient *http.Client
	// Scrubber is an optional strings.Replacer that scrubs unwanted data from
	// error messages.
	Scrubber *strings.Replacer
}

type textToImageRequest struct {
	Inputs string `json:"inputs"`
}

// TextToImage generates an image for prompt and returns its encoded bytes
// together with the detected content type.
func (c *Client) TextToImage(ctx context.Context, prompt string) (data []byte, contentType string, err error) {
	base, model := c.BaseURL, c.Model
	if base == "" {
		base = DefaultBaseURL
	}
	if model == "" {
		model = DefaultModel
	}
	b, err := request.Make[request.Bytes](ctx, request.Params{
		Method: http.MethodPost,
		URL:    base + "/" + model,
		Headers: map[string]string{
			"Authorization": "Bearer " + c.Token,
			"Accept":        "image/png",
		},
		Body:       textToImageRequest{Inputs: prompt},
		HTTPClient: c.HTTPClient,
		Scrubber:   c.Scrubber,
	})
	if err != nil {
		return nil, "", err
	}
	contentType = http.DetectContentType(b)
	if !strings.HasPrefix(contentType, "image/") {
		return nil, "", fmt.Errorf("huggingface: response is %s, not an image", contentType)
	}
	return b, contentType, nil
}

// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package publish

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"go.astrophena.name/postbot/cmd/postbot/internal/generate"
	"go.astrophena.name/postbot/internal/api/linkedin"
)

// LinkedIn publishes member shares.
type LinkedIn struct {
	Client *linkedin.Client
	// ImageTitle and ImageDescription label attached images.
	ImageTitle       string
	ImageDescription string

	urn string
}

// Identify resolves the member URN.
func (l *LinkedIn) Identify(ctx context.Context) error {
	info, err := l.Client.UserInfo(ctx)
	if err != nil {
		return authError(err)
	}
	l.urn = info.URN()
	return nil
}

// URN returns the member URN resolved by Identify.
func (l *LinkedIn) URN() string { return l.urn }

// Publish shares post publicly. An image is uploaded first; if any upload
// step fails, nothing is shared and the registered upload is left behind.
func (l *LinkedIn) Publish(ctx context.Context, post generate.Post) (string, error) {
	if l.urn == "" {
		return "", errNotIdentified
	}
	share := linkedin.Post{
		Author:      l.urn,
		Text:        post.Text,
		Title:       l.ImageTitle,
		Description: l.ImageDescription,
	}
	if post.ImagePath != "" {
		data, err := os.ReadFile(post.ImagePath)
		if err != nil {
			return "", err
		}
		up, err := l.Client.RegisterUpload(ctx, l.urn)
		if err != nil {
			return "", fmt.Errorf("registering upload: %w", err)
		}
		if err := l.Client.PutImage(ctx, up, http.DetectContentType(data), data); err != nil {
			return "", fmt.Errorf("uploading image: %w", err)
		}
		share.Asset = up.Asset
	}
	id, err := l.Client.CreatePost(ctx, share)
	if err != nil {
		return "", fmt.Errorf("creating post: %w", err)
	}
	return id, nil
}

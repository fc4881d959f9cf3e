// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package publish delivers generated posts to social networks.
package publish

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/muesli/reflow/wordwrap"
	"golang.org/x/term"

	"go.astrophena.name/postbot/cmd/postbot/internal/generate"
)

// ErrAuth is returned when the account identity can't be resolved.
var ErrAuth = errors.New("authentication failed")

// errNotIdentified is returned by Publish called before Identify.
var errNotIdentified = errors.New("publisher is not identified, call Identify first")

// Publisher delivers posts to one account.
type Publisher interface {
	// Identify resolves the account identity. It must succeed before
	// Publish is called.
	Identify(ctx context.Context) error
	// Publish delivers post and returns the ID assigned by the platform.
	Publish(ctx context.Context, post generate.Post) (id string, err error)
}

func authError(err error) error {
	return fmt.Errorf("%w: %w", ErrAuth, err)
}

// DryRun prints posts instead of publishing them.
type DryRun struct {
	W io.Writer
	// Width is the wrap width. Zero means the terminal width, or 80 when W
	// is not a terminal.
	Width int
}

// Identify does nothing.
func (d *DryRun) Identify(context.Context) error { return nil }

const defaultWidth = 80

func (d *DryRun) width() int {
	if d.Width > 0 {
		return d.Width
	}
	if f, ok := d.W.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		if w, _, err := term.GetSize(int(f.Fd())); err == nil && w > 0 {
			return w
		}
	}
	return defaultWidth
}

// Publish writes the post, wrapped to the configured width.
func (d *DryRun) Publish(_ context.Context, post generate.Post) (string, error) {
	var sb strings.Builder
	w := d.width()
	rule := strings.Repeat("─", min(w, defaultWidth))
	sb.WriteString(rule + "\n")
	sb.WriteString(wordwrap.String(post.Text, w))
	sb.WriteString("\n")
	if post.ImagePath != "" {
		sb.WriteString("\n[image: " + post.ImagePath + "]\n")
	}
	sb.WriteString(rule + "\n")
	_, err := io.WriteString(d.W, sb.String())
	return "dry-run", err
}

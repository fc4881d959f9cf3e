// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf16"

	"go.astrophena.name/postbot/cmd/postbot/internal/generate"
	"go.astrophena.name/postbot/internal/logger"
	"go.astrophena.name/postbot/internal/request"
	"go.astrophena.name/postbot/internal/tgmarkup"
)

const tgAPI = "https://api.telegram.org"

// maxCaptionLen is the Bot API limit of photo captions, in UTF-16 code units.
const maxCaptionLen = 1024

// Telegram publishes to a chat with the Telegram Bot API.
type Telegram struct {
	Token  string
	ChatID string
	// HTTPClient defaults to request.DefaultClient.
	HTTPClient *http.Client
	Scrubber   *strings.Replacer

	username string
}

type response[T any] struct {
	OK          bool   `json:"ok"`
	Description string `json:"description,omitempty"`
	Result      T      `json:"result"`
}

type user struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

type sentMessage struct {
	MessageID int64 `json:"message_id"`
}

type message struct {
	ChatID string `json:"chat_id"`
	tgmarkup.Message
}

func call[T any](ctx context.Context, t *Telegram, method string, body any) (T, error) {
	resp, err := request.Make[response[T]](ctx, request.Params{
		Method:     http.MethodPost,
		URL:        tgAPI + "/bot" + t.Token + "/" + method,
		Body:       body,
		HTTPClient: t.HTTPClient,
		Scrubber:   t.Scrubber,
	})
	if err != nil {
		return resp.Result, err
	}
	if !resp.OK {
		return resp.Result, errors.New("telegram: " + method + ": " + resp.Description)
	}
	return resp.Result, nil
}

// Identify checks the bot token with getMe.
func (t *Telegram) Identify(ctx context.Context) error {
	me, err := call[user](ctx, t, "getMe", struct{}{})
	if err != nil {
		return authError(err)
	}
	t.username = me.Username
	return nil
}

// Username returns the bot username resolved by Identify.
func (t *Telegram) Username() string { return t.username }

// Publish sends post as a message, or as a photo with a caption. Text that
// doesn't fit into a caption is sent first as a message and the photo
// follows without a caption. Failing to send that photo only drops it.
func (t *Telegram) Publish(ctx context.Context, post generate.Post) (string, error) {
	if t.username == "" {
		return "", errNotIdentified
	}
	msg := tgmarkup.FromMarkdown(post.Text)
	if post.ImagePath == "" {
		return t.sendMessage(ctx, msg)
	}
	if len(utf16.Encode([]rune(msg.Text))) <= maxCaptionLen {
		return t.sendPhoto(ctx, post.ImagePath, msg)
	}

	id, err := t.sendMessage(ctx, msg)
	if err != nil {
		return "", err
	}
	if _, err := t.sendPhoto(ctx, post.ImagePath, tgmarkup.Message{}); err != nil {
		logger.Get(ctx).Warn("sending photo failed, text was posted without it", "error", err)
	}
	return id, nil
}

func (t *Telegram) sendMessage(ctx context.Context, msg tgmarkup.Message) (string, error) {
	sent, err := call[sentMessage](ctx, t, "sendMessage", message{ChatID: t.ChatID, Message: msg})
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(sent.MessageID, 10), nil
}

func (t *Telegram) sendPhoto(ctx context.Context, path string, caption tgmarkup.Message) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fields := map[string]string{"chat_id": t.ChatID}
	if caption.Text != "" {
		fields["caption"] = caption.Text
		if len(caption.Entities) > 0 {
			entities, err := json.Marshal(caption.Entities)
			if err != nil {
				return "", err
			}
			fields["caption_entities"] = string(entities)
		}
	}
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return "", err
		}
	}
	fw, err := w.CreateFormFile("photo", filepath.Base(path))
	if err != nil {
		return "", err
	}
	if _, err := fw.Write(data); err != nil {
		return "", err
	}
	if err := w.Close(); err != nil {
		return "", err
	}

	sent, err := call[sentMessage](ctx, t, "sendPhoto", request.Raw{
		ContentType: w.FormDataContentType(),
		Data:        buf.Bytes(),
	})
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(sent.MessageID, 10), nil
}

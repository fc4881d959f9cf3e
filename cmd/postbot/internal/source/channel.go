// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package source

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/gotd/td/session"
	"github.com/gotd/td/telegram"
	"github.com/gotd/td/telegram/message/peer"
	"github.com/gotd/td/tg"

	"go.astrophena.name/postbot/cmd/postbot/internal/candidate"
)

// Message is a Telegram channel message.
type Message struct {
	ID   int
	Text string
	Date time.Time
}

// MessageLister lists channel messages.
type MessageLister interface {
	// Messages returns the messages of channel posted at or after since, in
	// any order.
	Messages(ctx context.Context, channel string, since time.Time) ([]Message, error)
}

// Channel reads a public Telegram channel.
type Channel struct {
	// Username is the channel username without the leading "@".
	Username string
	Lister   MessageLister

	now func() time.Time
}

// Name returns the channel username.
func (c *Channel) Name() string { return "@" + c.Username }

// Read returns the messages posted within lookback, oldest first. Messages
// without text are skipped.
func (c *Channel) Read(ctx context.Context, lookback time.Duration) ([]Item, error) {
	if c.Lister == nil {
		return nil, errors.New("channel reader has no message lister")
	}
	now := time.Now
	if c.now != nil {
		now = c.now
	}
	t := now()
	msgs, err := c.Lister.Messages(ctx, c.Username, t.Add(-lookback))
	if err != nil {
		return nil, fmt.Errorf("reading @%s: %w", c.Username, err)
	}
	slices.SortFunc(msgs, func(a, b Message) int {
		return cmp.Or(a.Date.Compare(b.Date), cmp.Compare(a.ID, b.ID))
	})

	var items []Item
	for _, m := range msgs {
		if strings.TrimSpace(m.Text) == "" || !within(&m.Date, t, lookback) {
			continue
		}
		it := candidate.FromMessage(c.Username, m.ID, m.Text, m.Date)
		it.Source = c.Name()
		items = append(items, it)
	}
	return items, nil
}

// MTProto lists messages through the Telegram client API, authenticating
// with a Telethon string session.
type MTProto struct {
	AppID   int
	AppHash string
	// Session is a Telethon StringSession.
	Session string
}

const (
	historyPageSize = 100
	historyMaxPages = 10
)

// Messages implements MessageLister. Each call opens its own connection.
func (m *MTProto) Messages(ctx context.Context, channel string, since time.Time) ([]Message, error) {
	data, err := session.TelethonSession(m.Session)
	if err != nil {
		return nil, fmt.Errorf("decoding session: %w", err)
	}
	storage := new(session.StorageMemory)
	if err := (&session.Loader{Storage: storage}).Save(ctx, data); err != nil {
		return nil, err
	}

	client := telegram.NewClient(m.AppID, m.AppHash, telegram.Options{
		SessionStorage: storage,
		NoUpdates:      true,
	})

	var out []Message
	err = client.Run(ctx, func(ctx context.Context) error {
		api := client.API()
		inputPeer, err := peer.DefaultResolver(api).ResolveDomain(ctx, channel)
		if err != nil {
			return fmt.Errorf("resolving @%s: %w", channel, err)
		}
		out, err = history(ctx, api, inputPeer, since)
		return err
	})
	return out, err
}

func history(ctx context.Context, api *tg.Client, p tg.InputPeerClass, since time.Time) ([]Message, error) {
	var (
		out      []Message
		offsetID int
	)
	for range historyMaxPages {
		res, err := api.MessagesGetHistory(ctx, &tg.MessagesGetHistoryRequest{
			Peer:     p,
			OffsetID: offsetID,
			Limit:    historyPageSize,
		})
		if err != nil {
			return nil, err
		}
		var page []tg.MessageClass
		switch r := res.(type) {
		case *tg.MessagesMessages:
			page = r.Messages
		case *tg.MessagesMessagesSlice:
			page = r.Messages
		case *tg.MessagesChannelMessages:
			page = r.Messages
		}
		if len(page) == 0 {
			return out, nil
		}
		for _, mc := range page {
			msg, ok := mc.(*tg.Message)
			if !ok {
				continue
			}
			offsetID = msg.ID
			date := time.Unix(int64(msg.Date), 0)
			// History is returned newest first.
			if date.Before(since) {
				return out, nil
			}
			out = append(out, Message{ID: msg.ID, Text: msg.Message, Date: date})
		}
		if len(page) < historyPageSize {
			return out, nil
		}
	}
	return out, nil
}

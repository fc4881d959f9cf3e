// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package source reads raw items from feeds, Telegram channels and web
// search.
package source

import (
	"context"
	"time"

	"go.astrophena.name/postbot/cmd/postbot/internal/candidate"
	"go.astrophena.name/postbot/internal/logger"
)

// Item is a raw item read from a source.
type Item = candidate.Item

// Reader reads items from one source.
type Reader interface {
	// Name identifies the source in logs and candidates.
	Name() string
	// Read returns the items published within lookback. Items without a
	// known date are always returned.
	Read(ctx context.Context, lookback time.Duration) ([]Item, error)
}

// ScanStats summarizes a Scan.
type ScanStats struct {
	Scanned int
	Failed  int
	Items   int
}

// Scan reads readers one by one and passes the items of each successful read
// to visit. A failing reader is logged and skipped. Scan stops early when
// visit returns false or ctx is canceled.
func Scan(ctx context.Context, readers []Reader, lookback time.Duration, visit func(r Reader, items []Item) bool) ScanStats {
	var st ScanStats
	log := logger.Get(ctx)
	for _, r := range readers {
		if ctx.Err() != nil {
			break
		}
		st.Scanned++
		items, err := r.Read(ctx, lookback)
		if err != nil {
			st.Failed++
			log.Warn("reading source failed, skipping", "source", r.Name(), "error", err)
			continue
		}
		st.Items += len(items)
		log.Debug("read source", "source", r.Name(), "items", len(items))
		if !visit(r, items) {
			break
		}
	}
	return st
}

func within(published *time.Time, now time.Time, lookback time.Duration) bool {
	if published == nil || published.IsZero() || lookback <= 0 {
		return true
	}
	return !published.Before(now.Add(-lookback))
}

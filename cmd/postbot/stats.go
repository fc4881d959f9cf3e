// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package main

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"go.astrophena.name/postbot/cmd/postbot/internal/selector"
	"go.astrophena.name/postbot/internal/logger"
)

// pushJob is the Pushgateway job name.
const pushJob = "postbot"

type stats struct {
	RunID    string `json:"run_id"`
	Category string `json:"category"`
	Strategy string `json:"strategy"`
	Fallback bool   `json:"fallback"`

	SourcesScanned int `json:"sources_scanned"`
	SourcesFailed  int `json:"sources_failed"`
	ItemsParsed    int `json:"items_parsed"`
	Candidates     int `json:"candidates"`
	Duplicates     int `json:"duplicates"` // already posted or repeated
	Filtered       int `json:"filtered"`

	PostID string `json:"post_id,omitempty"`

	StartTime time.Time     `json:"start_time"`
	Duration  time.Duration `json:"duration"`
}

func (s *stats) addSelection(sst selector.Stats) {
	s.SourcesScanned += sst.Scan.Scanned
	s.SourcesFailed += sst.Scan.Failed
	s.ItemsParsed += sst.Scan.Items
	s.Candidates += sst.Candidates
	s.Duplicates += sst.Extract.Posted + sst.Extract.Duplicate
	s.Filtered += sst.Extract.Filtered
}

func (s *stats) published() bool { return s.PostID != "" }

func (a *app) reportStats(ctx context.Context, cfg *Config, s *stats, runErr error) {
	log := logger.Get(ctx)
	attrs := []any{
		"category", s.Category,
		"strategy", s.Strategy,
		"fallback", s.Fallback,
		"sources_scanned", s.SourcesScanned,
		"sources_failed", s.SourcesFailed,
		"items_parsed", s.ItemsParsed,
		"candidates", s.Candidates,
		"duplicates", s.Duplicates,
		"filtered", s.Filtered,
		"published", s.published(),
		"duration", s.Duration,
	}
	if runErr != nil {
		attrs = append(attrs, "error", runErr)
	}
	log.Info("run finished", attrs...)

	if cfg == nil || cfg.Env.PushgatewayURL == "" || a.dry {
		return
	}
	if err := pushStats(ctx, cfg.Env.PushgatewayURL, a.httpc, s, runErr == nil); err != nil {
		log.Warn("pushing stats failed", "error", err)
	}
}

func boolFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func pushStats(ctx context.Context, url string, httpc *http.Client, s *stats, ok bool) error {
	reg := prometheus.NewRegistry()
	gauge := func(name, help string, v float64) {
		g := prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "postbot",
			Name:      name,
			Help:      help,
		})
		g.Set(v)
		reg.MustRegister(g)
	}
	gauge("sources_scanned", "Sources read in the last run.", float64(s.SourcesScanned))
	gauge("sources_failed", "Sources that failed in the last run.", float64(s.SourcesFailed))
	gauge("items_parsed", "Items parsed in the last run.", float64(s.ItemsParsed))
	gauge("candidates", "Candidates left after extraction in the last run.", float64(s.Candidates))
	gauge("duplicates", "Items dropped as already posted or repeated in the last run.", float64(s.Duplicates))
	gauge("ranking_fallback", "Whether the last ranking fell back to the first candidate.", boolFloat(s.Fallback))
	gauge("published", "Whether the last run published a post.", boolFloat(s.published()))
	gauge("success", "Whether the last run finished without an error.", boolFloat(ok))
	gauge("duration_seconds", "Duration of the last run.", s.Duration.Seconds())
	gauge("last_run_timestamp_seconds", "Start time of the last run.", float64(s.StartTime.Unix()))

	p := push.New(url, pushJob).Gatherer(reg)
	if s.Category != "" {
		p = p.Grouping("category", s.Category)
	}
	if httpc != nil {
		p = p.Client(httpc)
	}
	return p.PushContext(ctx)
}

// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package selector

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"text/template"
	"time"

	"go.astrophena.name/postbot/cmd/postbot/internal/candidate"
	"go.astrophena.name/postbot/cmd/postbot/internal/oracle"
	"go.astrophena.name/postbot/cmd/postbot/internal/source"
	"go.astrophena.name/postbot/internal/logger"
)

// Ranked collects candidates from every source and asks an oracle to pick
// the best one. Any ranking failure falls back to the first candidate.
type Ranked struct {
	Oracle oracle.Text
	// Audience describes who the post is for and goes into the prompt.
	Audience string
}

// Select implements Selector.
func (r Ranked) Select(ctx context.Context, readers []source.Reader, lookback time.Duration, ex candidate.Extractor) (Decision, Stats, error) {
	var (
		st  Stats
		all []candidate.Candidate
	)
	// Links seen in earlier sources count as history for later ones.
	seen := make(map[string]struct{})
	for link := range ex.History {
		seen[link] = struct{}{}
	}
	st.Scan = source.Scan(ctx, readers, lookback, func(_ source.Reader, items []source.Item) bool {
		cs, rep := candidate.Extractor{History: seen, Filters: ex.Filters}.ExtractReport(items)
		st.Extract = add(st.Extract, rep)
		for _, c := range cs {
			seen[c.Link] = struct{}{}
		}
		all = append(all, cs...)
		return true
	})
	st.Candidates = len(all)
	d, err := r.Rank(ctx, all)
	return d, st, err
}

var rankPrompt = template.Must(template.New("rank").Parse(`You are the editor of a social media account{{with .Audience}} for {{.}}{{end}}.
Pick the single candidate below that makes the most valuable post today.

{{range $i, $c := .Candidates -}}
[{{$i}}] {{$c.Title}}
{{- with $c.Snippet}}
    {{.}}{{end}}
    {{$c.Link}}
{{end}}
Respond with JSON only, in the form {"id": <index>, "reason": "<one sentence>"}.`))

// Prompt returns the ranking prompt for cs.
func (r Ranked) Prompt(cs []candidate.Candidate) (string, error) {
	var buf bytes.Buffer
	err := rankPrompt.Execute(&buf, struct {
		Audience   string
		Candidates []candidate.Candidate
	}{r.Audience, cs})
	return buf.String(), err
}

// Rank asks the oracle to choose among cs.
func (r Ranked) Rank(ctx context.Context, cs []candidate.Candidate) (Decision, error) {
	if len(cs) == 0 {
		return Decision{}, ErrNoCandidates
	}
	fallback := func(reason error) (Decision, error) {
		logger.Get(ctx).Warn("ranking failed, taking the first candidate", "error", reason)
		return Decision{Chosen: cs[0], Rationale: "fallback: " + reason.Error(), Fallback: true}, nil
	}

	prompt, err := r.Prompt(cs)
	if err != nil {
		return fallback(err)
	}
	resp, err := r.Oracle.Generate(ctx, prompt, oracle.Options{JSON: true, Temperature: 0.2})
	if err != nil {
		return fallback(err)
	}
	id, reason, err := parseChoice(resp)
	if err != nil {
		return fallback(err)
	}
	if id < 0 || id >= len(cs) {
		return fallback(fmt.Errorf("id %d is out of range [0, %d)", id, len(cs)))
	}
	return Decision{Chosen: cs[id], Rationale: reason}, nil
}

type choice struct {
	ID     *int   `json:"id"`
	Reason string `json:"reason"`
}

var errNoID = errors.New("response has no id")

// parseChoice reads {"id": n, "reason": "..."} from resp, tolerating Markdown
// code fences and text around the object.
func parseChoice(resp string) (id int, reason string, err error) {
	s := strings.TrimSpace(resp)
	start, end := strings.Index(s, "{"), strings.LastIndex(s, "}")
	if start < 0 || end < start {
		return 0, "", fmt.Errorf("no JSON object in response %q", resp)
	}
	var c choice
	if err := json.Unmarshal([]byte(s[start:end+1]), &c); err != nil {
		return 0, "", err
	}
	if c.ID == nil {
		return 0, "", errNoID
	}
	return *c.ID, c.Reason, nil
}

// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package selector chooses the one candidate a run posts about.
package selector

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"go.astrophena.name/postbot/cmd/postbot/internal/candidate"
	"go.astrophena.name/postbot/cmd/postbot/internal/source"
)

// ErrNoCandidates is returned when no source yields a candidate.
var ErrNoCandidates = errors.New("no candidates")

// Decision is the outcome of a selection.
type Decision struct {
	Chosen    candidate.Candidate
	Rationale string
	// Fallback is true when the ranking failed and the first candidate was
	// taken instead.
	Fallback bool
}

// Stats describe how a decision was reached.
type Stats struct {
	Scan       source.ScanStats
	Extract    candidate.Report
	Candidates int
}

// Selector chooses one candidate from readers.
type Selector interface {
	Select(ctx context.Context, readers []source.Reader, lookback time.Duration, ex candidate.Extractor) (Decision, Stats, error)
}

func add(a, b candidate.Report) candidate.Report {
	return candidate.Report{
		Items:     a.Items + b.Items,
		Invalid:   a.Invalid + b.Invalid,
		Posted:    a.Posted + b.Posted,
		Duplicate: a.Duplicate + b.Duplicate,
		Filtered:  a.Filtered + b.Filtered,
	}
}

// DefaultK is the number of freshest candidates Heuristic picks from.
const DefaultK = 3

// Heuristic visits sources in random order and picks uniformly among the
// first K candidates of the first source that has any.
type Heuristic struct {
	K    int
	Rand *rand.Rand
}

func (h Heuristic) intn(n int) int {
	if h.Rand != nil {
		return h.Rand.IntN(n)
	}
	return rand.IntN(n)
}

// Select implements Selector.
func (h Heuristic) Select(ctx context.Context, readers []source.Reader, lookback time.Duration, ex candidate.Extractor) (Decision, Stats, error) {
	shuffled := append([]source.Reader(nil), readers...)
	for i := len(shuffled) - 1; i > 0; i-- {
		j := h.intn(i + 1)
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	}

	var (
		st    Stats
		found []candidate.Candidate
	)
	st.Scan = source.Scan(ctx, shuffled, lookback, func(_ source.Reader, items []source.Item) bool {
		cs, rep := ex.ExtractReport(items)
		st.Extract = add(st.Extract, rep)
		found = cs
		return len(cs) == 0
	})
	st.Candidates = len(found)
	if len(found) == 0 {
		return Decision{}, st, ErrNoCandidates
	}

	k := h.K
	if k <= 0 {
		k = DefaultK
	}
	top := found[:min(k, len(found))]
	return Decision{
		Chosen:    top[h.intn(len(top))],
		Rationale: "random pick among the first candidates of the first productive source",
	}, st, nil
}

// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package history

import (
	"context"
	"maps"
	"sync"
)

// Mem is an in-memory Store.
type Mem struct {
	mu      sync.Mutex
	links   Set
	records []Record
}

// NewMem returns an empty in-memory Store.
func NewMem(links ...string) *Mem {
	m := &Mem{links: make(Set)}
	for _, l := range links {
		m.links.Add(l)
	}
	return m
}

// Load returns a copy of the recorded links.
func (m *Mem) Load(context.Context) (Set, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return maps.Clone(m.links), nil
}

// Append records r.
func (m *Mem) Append(_ context.Context, r Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.links.Add(r.Link) {
		m.records = append(m.records, r)
	}
	return nil
}

// Records returns the records appended since the store was created.
func (m *Mem) Records() []Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Record(nil), m.records...)
}

// Close is a no-op.
func (m *Mem) Close() error { return nil }

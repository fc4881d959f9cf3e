// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package candidate

import "strings"

// Filter decides whether a structurally valid item is kept.
type Filter interface {
	Keep(it Item, c Candidate) bool
}

// FilterFunc adapts a function to the Filter interface.
type FilterFunc func(it Item, c Candidate) bool

// Keep calls f(it, c).
func (f FilterFunc) Keep(it Item, c Candidate) bool { return f(it, c) }

// KeywordFilter keeps candidates whose title contains any of words, ignoring
// case. With no words it keeps everything.
func KeywordFilter(words ...string) Filter {
	lower := make([]string, 0, len(words))
	for _, w := range words {
		lower = append(lower, strings.ToLower(w))
	}
	return FilterFunc(func(_ Item, c Candidate) bool {
		if len(lower) == 0 {
			return true
		}
		title := strings.ToLower(c.Title)
		for _, w := range lower {
			if strings.Contains(title, w) {
				return true
			}
		}
		return false
	})
}

// CrisisKeywords are the incident keywords required of crisis candidates.
var CrisisKeywords = []string{"investigating", "outage"}

// CallToActionFilter keeps channel messages only if they contain a link or
// the word "Apply". Other items pass through.
var CallToActionFilter Filter = FilterFunc(func(it Item, _ Candidate) bool {
	if it.Kind != KindMessage {
		return true
	}
	return strings.Contains(it.Content, "http") || strings.Contains(it.Content, "Apply")
})

// RuleFilter keeps candidates for which rule returns true.
func RuleFilter(rule func(Candidate) bool) Filter {
	return FilterFunc(func(_ Item, c Candidate) bool { return rule(c) })
}

// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package slop strips words and markup typical of machine-written prose.
//
// Cleaning is plain substitution: each word is removed as written and with
// its first letter capitalized. It is case-sensitive otherwise and leaves
// whatever the removal produces, such as doubled spaces.
package slop

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Cleaner transforms generated text.
type Cleaner func(string) string

// Denylist is removed by Clean.
var Denylist = []string{
	"delve",
	"tapestry",
	"landscape",
	"realm",
	"underscore",
	"testament",
	"leverage",
	"In conclusion",
	"**Title**",
	"##",
}

// Clean removes Denylist and Markdown bold markers from s and trims the
// result.
var Clean = New(Denylist...)

// New returns a Cleaner removing words, their capitalized forms and "**".
// The result contains none of them, even where a removal brings two
// fragments together.
func New(words ...string) Cleaner {
	var pairs []string
	seen := make(map[string]bool)
	for _, w := range words {
		for _, v := range []string{w, capitalize(w)} {
			if v == "" || seen[v] {
				continue
			}
			seen[v] = true
			pairs = append(pairs, v, "")
		}
	}
	r := strings.NewReplacer(pairs...)
	return func(s string) string {
		// A removal can join the halves of a word into a new match, so
		// repeat until nothing changes. Every pass shortens s.
		for {
			next := strings.ReplaceAll(r.Replace(s), "**", "")
			if next == s {
				break
			}
			s = next
		}
		return strings.TrimSpace(s)
	}
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

// © 2024 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package tgmarkup

import (
	"testing"

	"go.astrophena.name/postbot/internal/testutil"
)

func TestFromMarkdown(t *testing.T) {
	t.Parallel()

	cases := map[string]struct {
		in   string
		want Message
	}{
		"plain": {
			in:   "Just text.",
			want: Message{Text: "Just text."},
		},
		"bold": {
			in: "Hello **world**",
			want: Message{
				Text:     "Hello world",
				Entities: []Entity{{Type: Bold, Offset: 6, Length: 5}},
			},
		},
		"paragraphs": {
			in:   "First paragraph.\n\nSecond one.",
			want: Message{Text: "First paragraph.\n\nSecond one."},
		},
		"list": {
			in:   "- one\n- two",
			want: Message{Text: "• one\n• two"},
		},
		"link": {
			in: "Read [this](https://example.com).",
			want: Message{
				Text:     "Read this.",
				Entities: []Entity{{Type: TextLink, Offset: 5, Length: 4, URL: "https://example.com"}},
			},
		},
		"heading": {
			in: "## Title\nBody",
			want: Message{
				Text:     "Title\n\nBody",
				Entities: []Entity{{Type: Bold, Offset: 0, Length: 5}},
			},
		},
		"utf16 offsets": {
			in: "🚀 **go**",
			want: Message{
				Text:     "🚀 go",
				Entities: []Entity{{Type: Bold, Offset: 3, Length: 2}},
			},
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			testutil.AssertEqual(t, FromMarkdown(tc.in), tc.want)
		})
	}
}

// © 2024 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package tgmarkup converts Markdown produced by the language model into
// Telegram message text with formatting entities.
package tgmarkup

import (
	"strings"
	"unicode/utf16"

	"rsc.io/markdown"
)

// Message is a Telegram message text and its formatting entities, ready to be
// marshaled into a Bot API request.
type Message struct {
	Text     string   `json:"text"`
	Entities []Entity `json:"entities,omitempty"`
}

// Type is a Telegram message entity type.
// See https://core.telegram.org/bots/api#messageentity.
type Type string

// Entity types produced by FromMarkdown.
const (
	URL           Type = "url"
	Bold          Type = "bold"
	Italic        Type = "italic"
	Strikethrough Type = "strikethrough"
	Blockquote    Type = "blockquote"
	Code          Type = "code"
	Pre           Type = "pre"
	TextLink      Type = "text_link"
)

// Entity marks a formatted span of the message text. Offsets and lengths are
// in UTF-16 code units.
type Entity struct {
	Type     Type   `json:"type"`
	Offset   int    `json:"offset"`
	Length   int    `json:"length"`
	URL      string `json:"url,omitempty"`
	Language string `json:"language,omitempty"`
}

// FromMarkdown converts text to a [Message]. Paragraphs are separated by a
// blank line and list items are rendered as bullets.
func FromMarkdown(text string) Message {
	p := markdown.Parser{
		Strikethrough: true,
		AutoLinkText:  true,
	}
	doc := p.Parse(text)

	c := new(converter)
	for i, b := range doc.Blocks {
		if i > 0 {
			c.write("\n")
		}
		c.block(b)
	}
	return Message{
		Text:     strings.TrimRight(c.sb.String(), "\n"),
		Entities: c.entities,
	}
}

type converter struct {
	sb       strings.Builder
	pos      int // UTF-16 length of sb
	entities []Entity
}

func (c *converter) write(s string) {
	c.sb.WriteString(s)
	c.pos += len(utf16.Encode([]rune(s)))
}

// span records an entity covering everything written by f.
func (c *converter) span(typ Type, f func()) *Entity {
	start := c.pos
	f()
	// Newlines written by a block are not part of the entity.
	end := c.pos
	if s := c.sb.String(); strings.HasSuffix(s, "\n") && end > start {
		end--
	}
	if end == start {
		return nil
	}
	c.entities = append(c.entities, Entity{Type: typ, Offset: start, Length: end - start})
	return &c.entities[len(c.entities)-1]
}

func (c *converter) block(b markdown.Block) {
	switch b := b.(type) {
	case *markdown.Paragraph:
		c.inlines(b.Text.Inline)
		c.write("\n")
	case *markdown.Heading:
		c.span(Bold, func() { c.inlines(b.Text.Inline) })
		c.write("\n")
	case *markdown.Quote:
		c.span(Blockquote, func() {
			for _, inner := range b.Blocks {
				c.block(inner)
			}
		})
	case *markdown.CodeBlock:
		if e := c.span(Pre, func() {
			for _, line := range b.Text {
				c.write(line + "\n")
			}
		}); e != nil {
			e.Language = b.Info
		}
	case *markdown.List:
		for _, it := range b.Items {
			item, ok := it.(*markdown.Item)
			if !ok {
				continue
			}
			c.write("• ")
			for _, inner := range item.Blocks {
				c.block(inner)
			}
		}
	case *markdown.ThematicBreak:
		c.write("⸻\n")
	}
}

func (c *converter) inlines(ins markdown.Inlines) {
	for _, in := range ins {
		c.inline(in)
	}
}

func (c *converter) inline(in markdown.Inline) {
	switch in := in.(type) {
	case *markdown.Plain:
		c.write(in.Text)
	case *markdown.Strong:
		c.span(Bold, func() { c.inlines(in.Inner) })
	case *markdown.Emph:
		c.span(Italic, func() { c.inlines(in.Inner) })
	case *markdown.Del:
		c.span(Strikethrough, func() { c.inlines(in.Inner) })
	case *markdown.Code:
		c.span(Code, func() { c.write(in.Text) })
	case *markdown.Link:
		if e := c.span(TextLink, func() { c.inlines(in.Inner) }); e != nil {
			e.URL = in.URL
		}
	case *markdown.AutoLink:
		c.span(URL, func() { c.write(in.Text) })
	case *markdown.SoftBreak, *markdown.HardBreak:
		c.write("\n")
	}
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package format

import (
	"regexp"
	"unicode"

	"github.com/mattn/go-runewidth"
)

// =============================================================================
// TOKEN TYPE
// =============================================================================

// TokenKind classifies a renderable unit of answer text.
type TokenKind int

const (
	KindWord TokenKind = iota
	KindLink
	KindBreak
)

// Token is one renderable unit. End is the byte offset just past the token
// in the source text, so a visible prefix can be cut without re-joining.
type Token struct {
	Kind  TokenKind
	Text  string // raw source text of the token
	Label string // link label, for KindLink
	URL   string // link target, for KindLink
	Width int    // display width of the rendered text
	End   int
}

// linkPattern matches inline markdown links. The URL part stops at the
// first closing paren or whitespace, matching how the backend emits them.
var linkPattern = regexp.MustCompile(`\[([^\]]*)\]\(([^)\s]+)\)`)

// =============================================================================
// TOKENIZER
// =============================================================================

// Tokenize splits answer text into word, link, and line-break tokens.
// Markdown links are kept whole so a reveal never shows half a link.
func Tokenize(text string) []Token {
	var tokens []Token
	pos := 0
	for _, loc := range linkPattern.FindAllStringSubmatchIndex(text, -1) {
		tokens = scanPlain(tokens, text, pos, loc[0])
		label := text[loc[2]:loc[3]]
		tokens = append(tokens, Token{
			Kind:  KindLink,
			Text:  text[loc[0]:loc[1]],
			Label: label,
			URL:   text[loc[4]:loc[5]],
			Width: runewidth.StringWidth(label),
			End:   loc[1],
		})
		pos = loc[1]
	}
	return scanPlain(tokens, text, pos, len(text))
}

// scanPlain tokenizes a link-free segment of text into words and breaks.
func scanPlain(tokens []Token, text string, start, end int) []Token {
	wordStart := -1
	flush := func(upto int) {
		if wordStart < 0 {
			return
		}
		word := text[wordStart:upto]
		tokens = append(tokens, Token{
			Kind:  KindWord,
			Text:  word,
			Width: runewidth.StringWidth(word),
			End:   upto,
		})
		wordStart = -1
	}
	for i, r := range text[start:end] {
		at := start + i
		switch {
		case r == '\n':
			flush(at)
			tokens = append(tokens, Token{Kind: KindBreak, Text: "\n", End: at + 1})
		case unicode.IsSpace(r):
			flush(at)
		default:
			if wordStart < 0 {
				wordStart = at
			}
		}
	}
	flush(end)
	return tokens
}

// TokenCount returns the number of reveal units (words and links) in text.
// Line breaks are carried along with the preceding unit, not counted.
func TokenCount(text string) int {
	n := 0
	for _, tok := range Tokenize(text) {
		if tok.Kind != KindBreak {
			n++
		}
	}
	return n
}

// VisiblePrefix returns the prefix of text covering the first n reveal
// units. n <= 0 yields the empty string; n past the end yields all of text.
func VisiblePrefix(text string, n int) string {
	if n <= 0 {
		return ""
	}
	seen := 0
	for _, tok := range Tokenize(text) {
		if tok.Kind == KindBreak {
			continue
		}
		seen++
		if seen == n {
			return text[:tok.End]
		}
	}
	return text
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package format

import (
	"strings"
)

// =============================================================================
// SANITIZER
// =============================================================================

// Sanitize normalizes answer text for terminal rendering:
//   - CRLF and bare CR collapse to LF
//   - control characters (except \n and \t) and zero-width characters are
//     stripped
//   - markdown links whose target is not http(s) or a relative path are
//     rewritten to their bare label
//   - trailing whitespace is trimmed from every line
//
// Sanitize(Sanitize(x)) == Sanitize(x) for all x.
func Sanitize(text string) string {
	text = stripUnsafe(text)
	text = rewriteUnsafeLinks(text)
	return trimLines(text)
}

// stripUnsafe normalizes newlines and removes control and zero-width runes.
func stripUnsafe(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		switch {
		case r == '\n' || r == '\t':
			b.WriteRune(r)
		case r == '\r':
			b.WriteByte('\n')
		case r < 0x20 || r == 0x7f:
			// dropped
		case r == 0x200b, r == 0x200c, r == 0x200d, r == 0xfeff:
			// zero-width characters, dropped
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// rewriteUnsafeLinks replaces markdown links with unexpected schemes by
// their label. http(s) and scheme-less relative targets pass through.
func rewriteUnsafeLinks(text string) string {
	return linkPattern.ReplaceAllStringFunc(text, func(m string) string {
		sub := linkPattern.FindStringSubmatch(m)
		if safeLinkTarget(sub[2]) {
			return m
		}
		return sub[1]
	})
}

func safeLinkTarget(url string) bool {
	lower := strings.ToLower(url)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return true
	}
	// A colon before any slash means some other scheme (javascript:, data:).
	colon := strings.IndexByte(url, ':')
	if colon == -1 {
		return true
	}
	slash := strings.IndexByte(url, '/')
	return slash != -1 && slash < colon
}

func trimLines(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	return strings.Join(lines, "\n")
}

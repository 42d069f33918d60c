// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

// TruncateString truncates a string to maxLen characters, adding "..." if
// truncated. Uses rune-based truncation for proper Unicode handling.
func TruncateString(s string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}

// CollapseNewlines replaces newline characters with spaces, for use in
// single-line previews.
func CollapseNewlines(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		switch r {
		case '\n':
			out = append(out, ' ')
		case '\r':
			// dropped
		default:
			out = append(out, r)
		}
	}
	return string(out)
}

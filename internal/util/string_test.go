// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "krótki", TruncateString("krótki", 10))
	assert.Equal(t, "", TruncateString("cokolwiek", 0))
	assert.Equal(t, "ab", TruncateString("abcdef", 2))

	long := strings.Repeat("ż", 20)
	got := TruncateString(long, 10)
	assert.Len(t, []rune(got), 10)
	assert.True(t, strings.HasSuffix(got, "..."))
}

func TestCollapseNewlines(t *testing.T) {
	assert.Equal(t, "a b c", CollapseNewlines("a\nb\r\nc"))
	assert.Equal(t, "bez zmian", CollapseNewlines("bez zmian"))
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package companion

import (
	"golang.org/x/text/language"
)

// DefaultLanguage is used when a configured tag matches none of the
// supported languages.
const DefaultLanguage = "pl"

// supported are the languages the backend answers in, most preferred
// first. The matcher handles region and script variants (en-US, de-AT).
var supported = []language.Tag{
	language.Polish,
	language.English,
	language.German,
}

var matcher = language.NewMatcher(supported)

// NormalizeLanguage maps an arbitrary language tag onto one of the
// supported base tags, falling back to Polish.
func NormalizeLanguage(tag string) string {
	parsed, err := language.Parse(tag)
	if err != nil {
		return DefaultLanguage
	}
	_, idx, conf := matcher.Match(parsed)
	if conf == language.No {
		return DefaultLanguage
	}
	base, _ := supported[idx].Base()
	return base.String()
}

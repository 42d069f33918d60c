// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package format converts raw answer text into renderable units and safe
// plain text. All functions are pure: tokenization and sanitization never
// hold state, and Sanitize is idempotent.
package format

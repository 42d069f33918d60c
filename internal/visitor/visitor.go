// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package visitor manages the anonymous visitor identity. The id is an
// opaque client-generated token the backend uses purely for rate limiting.
// It is created once, persisted under a fixed key, and reused forever.
package visitor

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/jeranaias/companion-tui/internal/util"
)

// FileName is the fixed key the visitor id is stored under in the data dir.
const FileName = "visitor_id"

// Load returns the persisted visitor id, creating and persisting a fresh
// one on first run.
func Load(dir string) (string, error) {
	path := filepath.Join(dir, FileName)

	data, err := os.ReadFile(path)
	if err == nil {
		id := strings.TrimSpace(string(data))
		if id != "" {
			return id, nil
		}
		// Empty file, regenerate below.
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("failed to read visitor id: %w", err)
	}

	id := newID()
	if err := util.AtomicWriteFile(path, []byte(id+"\n"), 0600); err != nil {
		return "", fmt.Errorf("failed to persist visitor id: %w", err)
	}
	return id, nil
}

// newID creates an opaque visitor token. The value carries no meaning
// beyond uniqueness.
func newID() string {
	return "v_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

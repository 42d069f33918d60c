// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage persists the conversation message list in SQLite so a
// conversation survives restarts. Only messages are stored; transient
// flags, errors, and animation state never touch disk.
package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/jeranaias/companion-tui/internal/model"
)

// Schema for the conversation database. Messages are stored in display
// order via an explicit position column.
const schema = `
CREATE TABLE IF NOT EXISTS messages (
    id TEXT PRIMARY KEY,
    position INTEGER NOT NULL,
    role TEXT NOT NULL,
    content TEXT NOT NULL,
    sources TEXT,               -- JSON array, NULL when absent
    generation_ms INTEGER NOT NULL DEFAULT 0,
    timestamp INTEGER NOT NULL  -- Unix milliseconds
);

CREATE INDEX IF NOT EXISTS idx_messages_position ON messages(position);
`

// Store is the durable conversation store backed by a single SQLite file.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the conversation database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// PERFORMANCE: WAL keeps saves cheap while the TUI reads concurrently
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// SaveMessages replaces the stored conversation with the given message
// list in one transaction.
func (s *Store) SaveMessages(messages []model.Message) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM messages`); err != nil {
		return fmt.Errorf("failed to clear messages: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO messages (id, position, role, content, sources, generation_ms, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, m := range messages {
		var sources any
		if len(m.Sources) > 0 {
			data, err := json.Marshal(m.Sources)
			if err != nil {
				return fmt.Errorf("failed to encode sources: %w", err)
			}
			sources = string(data)
		}
		_, err := stmt.Exec(m.ID, i, string(m.Role), m.Content, sources,
			m.GenerationMs, m.Timestamp.UnixMilli())
		if err != nil {
			return fmt.Errorf("failed to insert message: %w", err)
		}
	}

	return tx.Commit()
}

// LoadMessages returns the stored conversation in display order.
func (s *Store) LoadMessages() ([]model.Message, error) {
	rows, err := s.db.Query(`
		SELECT id, role, content, sources, generation_ms, timestamp
		FROM messages ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	var messages []model.Message
	for rows.Next() {
		var m model.Message
		var role string
		var sources sql.NullString
		var ts int64
		if err := rows.Scan(&m.ID, &role, &m.Content, &sources, &m.GenerationMs, &ts); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		m.Role = model.Role(role)
		m.Timestamp = time.UnixMilli(ts)
		if sources.Valid && sources.String != "" {
			if err := json.Unmarshal([]byte(sources.String), &m.Sources); err != nil {
				// A corrupt sources blob loses citations, not the message.
				m.Sources = nil
			}
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// Clear removes all stored messages.
func (s *Store) Clear() error {
	if _, err := s.db.Exec(`DELETE FROM messages`); err != nil {
		return fmt.Errorf("failed to clear messages: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

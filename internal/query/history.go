// Copyright (c) 2026 the sqlit authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

package query

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/the-vampiire/sqlit-sub003/internal/xdg"
)

// HistoryStore appends executed queries to a per-connection history file
// under the XDG state dir. The shell reuses the same file as its readline
// history, so one-shot queries and interactive ones share history.
type HistoryStore struct {
	dir string
}

// NewHistoryStore returns a store rooted at the default state dir.
func NewHistoryStore() (*HistoryStore, error) {
	dir, err := xdg.StateDir()
	if err != nil {
		return nil, err
	}
	return &HistoryStore{dir: dir}, nil
}

// NewHistoryStoreAt returns a store rooted at an explicit dir. Used by tests.
func NewHistoryStoreAt(dir string) *HistoryStore { return &HistoryStore{dir: dir} }

// Path returns the history file path for a connection.
func (h *HistoryStore) Path(connection string) string {
	// Connection names come from user input; keep the filename tame.
	safe := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '-', r == '_', r == '.':
			return r
		}
		return '_'
	}, connection)
	return filepath.Join(h.dir, safe+".history")
}

// SaveQuery appends a query to the connection's history. Newlines are
// flattened so each history entry stays on one line.
func (h *HistoryStore) SaveQuery(connection, queryText string) error {
	queryText = strings.TrimSpace(strings.ReplaceAll(queryText, "\n", " "))
	if queryText == "" {
		return nil
	}
	f, err := os.OpenFile(h.Path(connection), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.WriteString(queryText + "\n")
	return err
}

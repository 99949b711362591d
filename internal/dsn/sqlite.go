// Copyright (c) 2026 the sqlit authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

package dsn

import (
	"strings"
)

// SQLiteResolver handles SQLite DSN parsing. Accepted forms:
//
//	sqlite:///absolute/path/to.db
//	sqlite://relative/path/to.db
//	sqlite://:memory:
//	file:path/to.db
type SQLiteResolver struct{}

// NewSQLiteResolver creates a new SQLite resolver
func NewSQLiteResolver() *SQLiteResolver {
	return &SQLiteResolver{}
}

// Parse parses a SQLite DSN string and returns normalized DSN info
func (r *SQLiteResolver) Parse(dsn string) (*DSNInfo, error) {
	if dsn == "" {
		return nil, NewParseError(dsn, "empty DSN", "provide a valid SQLite path")
	}

	path := dsn
	switch {
	case strings.HasPrefix(strings.ToLower(dsn), "sqlite://"):
		path = dsn[len("sqlite://"):]
		// sqlite:///abs/path keeps the leading slash of the absolute path
		if strings.HasPrefix(path, "/") && strings.Count(path, "/") > 1 {
			path = strings.TrimPrefix(path, "/")
			path = "/" + strings.TrimPrefix(path, "/")
		}
	case strings.HasPrefix(strings.ToLower(dsn), "file:"):
		path = dsn[len("file:"):]
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, NewParseError(dsn, "missing database file path", "use sqlite:///path/to.db or sqlite://:memory:")
	}

	return &DSNInfo{
		Type:     DBTypeSQLite,
		FilePath: path,
		Database: path,
		Params:   make(map[string]string),
		Original: dsn,
	}, nil
}

// Validate checks if the DSN is valid for SQLite
func (r *SQLiteResolver) Validate(dsn string) error {
	_, err := r.Parse(dsn)
	return err
}

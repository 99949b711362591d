// Copyright (c) 2026 the sqlit authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package provider bundles everything sqlit needs to talk to one database
// engine: capability flags, a connection factory, a schema inspector and an
// optional dialect hook for query classification.
//
// Optional schema features (indexes, triggers, sequences, procedures) are
// negotiated through capability flags rather than runtime type checks; a
// provider that does not support a feature reports an empty result, never an
// error.
package provider

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/the-vampiire/sqlit-sub003/internal/config"
	"github.com/the-vampiire/sqlit-sub003/internal/sqltext"
)

// Capabilities advertises the optional features of an engine.
type Capabilities struct {
	SupportsCrossDatabaseQueries bool
	SupportsIndexes              bool
	SupportsTriggers             bool
	SupportsSequences            bool
	SupportsStoredProcedures     bool
}

// Column describes one column of a table or view.
type Column struct {
	Name     string `json:"name"`
	DataType string `json:"data_type"`
	Nullable bool   `json:"nullable"`
	Default  string `json:"default,omitempty"`
}

// Object is a named schema object (table, view, index, ...).
type Object struct {
	Type   string `json:"type"`
	Schema string `json:"schema,omitempty"`
	Name   string `json:"name"`
	Table  string `json:"table,omitempty"` // owning table for indexes and triggers
}

// Object types used by inspectors.
const (
	ObjectTable     = "table"
	ObjectView      = "view"
	ObjectDatabase  = "database"
	ObjectIndex     = "index"
	ObjectTrigger   = "trigger"
	ObjectSequence  = "sequence"
	ObjectProcedure = "procedure"
)

// Folder types accepted by schema folder-item requests.
const (
	FolderTables     = "tables"
	FolderViews      = "views"
	FolderDatabases  = "databases"
	FolderIndexes    = "indexes"
	FolderTriggers   = "triggers"
	FolderSequences  = "sequences"
	FolderProcedures = "procedures"
)

// Connector opens database connections for one engine.
type Connector interface {
	Connect(ctx context.Context, cfg config.ConnectionConfig) (*sql.DB, error)
}

// Inspector introspects schema metadata. Every method takes an open
// connection; the database argument is empty for the connection's default
// database. Methods for features the engine lacks return empty results.
type Inspector interface {
	Tables(ctx context.Context, db *sql.DB, database string) ([]Object, error)
	Views(ctx context.Context, db *sql.DB, database string) ([]Object, error)
	Databases(ctx context.Context, db *sql.DB) ([]string, error)
	Columns(ctx context.Context, db *sql.DB, table, database, schema string) ([]Column, error)
	Indexes(ctx context.Context, db *sql.DB, database string) ([]Object, error)
	Triggers(ctx context.Context, db *sql.DB, database string) ([]Object, error)
	Sequences(ctx context.Context, db *sql.DB, database string) ([]Object, error)
	Procedures(ctx context.Context, db *sql.DB, database string) ([]Object, error)
}

// Provider is the per-engine bundle.
type Provider struct {
	Name         string
	Capabilities Capabilities
	Connector    Connector
	Inspector    Inspector

	// ClassifyHook lets a dialect override query classification.
	// Nil means the keyword heuristic decides.
	ClassifyHook sqltext.ClassifyFunc

	// PostConnect runs after each connection is opened. Failures are
	// best-effort and never abort the operation.
	PostConnect func(ctx context.Context, db *sql.DB, cfg config.ConnectionConfig) error

	// DatabaseOverride rewrites the config to target another database for
	// engines without cross-database queries. Nil uses WithDatabase.
	DatabaseOverride func(cfg config.ConnectionConfig, database string) config.ConnectionConfig
}

// Analyzer returns the query analyzer for this provider's dialect.
func (p *Provider) Analyzer() sqltext.Analyzer {
	return sqltext.DialectAnalyzer{Hook: p.ClassifyHook, Fallback: sqltext.KeywordAnalyzer{}}
}

// ApplyDatabaseOverride retargets the config at another database.
func (p *Provider) ApplyDatabaseOverride(cfg config.ConnectionConfig, database string) config.ConnectionConfig {
	if p.DatabaseOverride != nil {
		return p.DatabaseOverride(cfg, database)
	}
	return cfg.WithDatabase(database)
}

// RunPostConnect invokes the post-connect hook, swallowing failures.
func (p *Provider) RunPostConnect(ctx context.Context, db *sql.DB, cfg config.ConnectionConfig) {
	if p.PostConnect == nil {
		return
	}
	_ = p.PostConnect(ctx, db, cfg)
}

// Registry resolves providers by database type.
type Registry interface {
	Get(dbType string) (*Provider, error)
}

type registry struct {
	providers map[string]*Provider
}

// NewRegistry builds a registry from explicit providers. Used by tests and
// by callers that restrict the engine set.
func NewRegistry(providers ...*Provider) Registry {
	m := make(map[string]*Provider, len(providers))
	for _, p := range providers {
		m[p.Name] = p
	}
	return &registry{providers: m}
}

// DefaultRegistry returns the registry of built-in engines.
func DefaultRegistry() Registry {
	return NewRegistry(SQLite(), Postgres())
}

func (r *registry) Get(dbType string) (*Provider, error) {
	p, ok := r.providers[strings.ToLower(strings.TrimSpace(dbType))]
	if !ok {
		known := make([]string, 0, len(r.providers))
		for name := range r.providers {
			known = append(known, name)
		}
		sort.Strings(known)
		return nil, fmt.Errorf("unknown database type %q (supported: %s)", dbType, strings.Join(known, ", "))
	}
	return p, nil
}

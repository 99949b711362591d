// Copyright (c) 2026 the sqlit authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

package provider

import (
	"context"
	"database/sql"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/the-vampiire/sqlit-sub003/internal/config"
)

// SQLite returns the provider for file-backed and in-memory SQLite databases.
func SQLite() *Provider {
	return &Provider{
		Name: config.DBTypeSQLite,
		Capabilities: Capabilities{
			SupportsIndexes:  true,
			SupportsTriggers: true,
		},
		Connector: sqliteConnector{},
		Inspector: sqliteInspector{},
		PostConnect: func(ctx context.Context, db *sql.DB, _ config.ConnectionConfig) error {
			_, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON")
			return err
		},
		DatabaseOverride: func(cfg config.ConnectionConfig, database string) config.ConnectionConfig {
			// A "database" for sqlite is a file path.
			out := cfg
			out.FilePath = database
			return out
		},
	}
}

type sqliteConnector struct{}

func (sqliteConnector) Connect(ctx context.Context, cfg config.ConnectionConfig) (*sql.DB, error) {
	path := cfg.FilePath
	if path == "" {
		path = ":memory:"
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

type sqliteInspector struct{}

// quoteIdent quotes an identifier for interpolation into PRAGMA statements,
// which cannot take bind parameters.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (sqliteInspector) masterObjects(ctx context.Context, db *sql.DB, sqliteType, objectType string) ([]Object, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT name, tbl_name FROM sqlite_master
		 WHERE type = ? AND name NOT LIKE 'sqlite_%' ORDER BY name`, sqliteType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Object
	for rows.Next() {
		var name, tblName string
		if err := rows.Scan(&name, &tblName); err != nil {
			return nil, err
		}
		obj := Object{Type: objectType, Name: name}
		if objectType == ObjectIndex || objectType == ObjectTrigger {
			obj.Table = tblName
		}
		out = append(out, obj)
	}
	return out, rows.Err()
}

func (i sqliteInspector) Tables(ctx context.Context, db *sql.DB, _ string) ([]Object, error) {
	return i.masterObjects(ctx, db, "table", ObjectTable)
}

func (i sqliteInspector) Views(ctx context.Context, db *sql.DB, _ string) ([]Object, error) {
	return i.masterObjects(ctx, db, "view", ObjectView)
}

func (sqliteInspector) Databases(ctx context.Context, db *sql.DB) ([]string, error) {
	rows, err := db.QueryContext(ctx, "PRAGMA database_list")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var seq int
		var name, file sql.NullString
		if err := rows.Scan(&seq, &name, &file); err != nil {
			return nil, err
		}
		if name.Valid {
			out = append(out, name.String)
		}
	}
	return out, rows.Err()
}

func (sqliteInspector) Columns(ctx context.Context, db *sql.DB, table, _, _ string) ([]Column, error) {
	rows, err := db.QueryContext(ctx, "PRAGMA table_info("+quoteIdent(table)+")")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Column
	for rows.Next() {
		var cid, notNull, pk int
		var name, dataType string
		var dflt sql.NullString
		if err := rows.Scan(&cid, &name, &dataType, &notNull, &dflt, &pk); err != nil {
			return nil, err
		}
		out = append(out, Column{
			Name:     name,
			DataType: dataType,
			Nullable: notNull == 0,
			Default:  dflt.String,
		})
	}
	return out, rows.Err()
}

func (i sqliteInspector) Indexes(ctx context.Context, db *sql.DB, _ string) ([]Object, error) {
	return i.masterObjects(ctx, db, "index", ObjectIndex)
}

func (i sqliteInspector) Triggers(ctx context.Context, db *sql.DB, _ string) ([]Object, error) {
	return i.masterObjects(ctx, db, "trigger", ObjectTrigger)
}

func (sqliteInspector) Sequences(context.Context, *sql.DB, string) ([]Object, error) {
	return nil, nil
}

func (sqliteInspector) Procedures(context.Context, *sql.DB, string) ([]Object, error) {
	return nil, nil
}

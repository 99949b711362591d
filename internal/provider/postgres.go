// Copyright (c) 2026 the sqlit authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

package provider

import (
	"context"
	"database/sql"
	"net/url"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/the-vampiire/sqlit-sub003/internal/config"
)

// Postgres returns the provider for PostgreSQL via the pgx stdlib driver.
func Postgres() *Provider {
	return &Provider{
		Name: config.DBTypePostgres,
		Capabilities: Capabilities{
			SupportsIndexes:          true,
			SupportsTriggers:         true,
			SupportsSequences:        true,
			SupportsStoredProcedures: true,
		},
		Connector: postgresConnector{},
		Inspector: postgresInspector{},
		PostConnect: func(ctx context.Context, db *sql.DB, _ config.ConnectionConfig) error {
			_, err := db.ExecContext(ctx, "SET application_name = 'sqlit'")
			return err
		},
	}
}

type postgresConnector struct{}

func (postgresConnector) Connect(ctx context.Context, cfg config.ConnectionConfig) (*sql.DB, error) {
	u := url.URL{
		Scheme: "postgres",
		Host:   cfg.Host + ":" + cfg.Port,
		Path:   "/" + cfg.Database,
	}
	if cfg.Username != "" {
		if cfg.Password != "" {
			u.User = url.UserPassword(cfg.Username, cfg.Password)
		} else {
			u.User = url.User(cfg.Username)
		}
	}
	q := u.Query()
	for k, v := range cfg.Params {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()

	db, err := sql.Open("pgx", u.String())
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

type postgresInspector struct{}

func (postgresInspector) Tables(ctx context.Context, db *sql.DB, _ string) ([]Object, error) {
	return pgObjects(ctx, db, ObjectTable, `
		SELECT table_schema, table_name FROM information_schema.tables
		WHERE table_type = 'BASE TABLE'
		  AND table_schema NOT IN ('pg_catalog', 'information_schema')
		ORDER BY table_schema, table_name`)
}

func (postgresInspector) Views(ctx context.Context, db *sql.DB, _ string) ([]Object, error) {
	return pgObjects(ctx, db, ObjectView, `
		SELECT table_schema, table_name FROM information_schema.views
		WHERE table_schema NOT IN ('pg_catalog', 'information_schema')
		ORDER BY table_schema, table_name`)
}

func pgObjects(ctx context.Context, db *sql.DB, objectType, query string) ([]Object, error) {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Object
	for rows.Next() {
		var schema, name string
		if err := rows.Scan(&schema, &name); err != nil {
			return nil, err
		}
		out = append(out, Object{Type: objectType, Schema: schema, Name: name})
	}
	return out, rows.Err()
}

func (postgresInspector) Databases(ctx context.Context, db *sql.DB) ([]string, error) {
	rows, err := db.QueryContext(ctx,
		"SELECT datname FROM pg_database WHERE NOT datistemplate ORDER BY datname")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

func (postgresInspector) Columns(ctx context.Context, db *sql.DB, table, _, schema string) ([]Column, error) {
	if schema == "" {
		schema = "public"
	}
	rows, err := db.QueryContext(ctx, `
		SELECT column_name, data_type, is_nullable, COALESCE(column_default, '')
		FROM information_schema.columns
		WHERE table_schema = $1 AND table_name = $2
		ORDER BY ordinal_position`, schema, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Column
	for rows.Next() {
		var name, dataType, nullable, dflt string
		if err := rows.Scan(&name, &dataType, &nullable, &dflt); err != nil {
			return nil, err
		}
		out = append(out, Column{
			Name:     name,
			DataType: dataType,
			Nullable: nullable == "YES",
			Default:  dflt,
		})
	}
	return out, rows.Err()
}

func (postgresInspector) Indexes(ctx context.Context, db *sql.DB, _ string) ([]Object, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT schemaname, indexname, tablename FROM pg_indexes
		WHERE schemaname NOT IN ('pg_catalog', 'information_schema')
		ORDER BY schemaname, indexname`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Object
	for rows.Next() {
		var schema, name, table string
		if err := rows.Scan(&schema, &name, &table); err != nil {
			return nil, err
		}
		out = append(out, Object{Type: ObjectIndex, Schema: schema, Name: name, Table: table})
	}
	return out, rows.Err()
}

func (postgresInspector) Triggers(ctx context.Context, db *sql.DB, _ string) ([]Object, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT DISTINCT trigger_schema, trigger_name, event_object_table
		FROM information_schema.triggers
		ORDER BY trigger_schema, trigger_name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Object
	for rows.Next() {
		var schema, name, table string
		if err := rows.Scan(&schema, &name, &table); err != nil {
			return nil, err
		}
		out = append(out, Object{Type: ObjectTrigger, Schema: schema, Name: name, Table: table})
	}
	return out, rows.Err()
}

func (postgresInspector) Sequences(ctx context.Context, db *sql.DB, _ string) ([]Object, error) {
	return pgObjects(ctx, db, ObjectSequence, `
		SELECT sequence_schema, sequence_name FROM information_schema.sequences
		ORDER BY sequence_schema, sequence_name`)
}

func (postgresInspector) Procedures(ctx context.Context, db *sql.DB, _ string) ([]Object, error) {
	return pgObjects(ctx, db, ObjectProcedure, `
		SELECT routine_schema, routine_name FROM information_schema.routines
		WHERE routine_schema NOT IN ('pg_catalog', 'information_schema')
		ORDER BY routine_schema, routine_name`)
}

// Copyright (c) 2026 the sqlit authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package dsn parses database connection URLs into sqlit connection configs.
// It supports postgres:// and sqlite:// URLs; mysql:// is recognized but not
// yet backed by a provider.
package dsn

import (
	"strings"

	"github.com/the-vampiire/sqlit-sub003/internal/config"
)

// DetectDBType detects the database type from a DSN string
func DetectDBType(dsn string) DBType {
	lower := strings.ToLower(dsn)

	if strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://") {
		return DBTypePostgreSQL
	}
	if strings.HasPrefix(lower, "sqlite://") || strings.HasPrefix(lower, "file:") {
		return DBTypeSQLite
	}
	if strings.HasPrefix(lower, "mysql://") {
		return DBTypeMySQL
	}

	return DBTypeUnknown
}

func resolverFor(dsn string) (Resolver, error) {
	switch DetectDBType(dsn) {
	case DBTypePostgreSQL:
		return NewPostgreSQLResolver(), nil
	case DBTypeSQLite:
		return NewSQLiteResolver(), nil
	case DBTypeMySQL:
		return nil, NewParseError(dsn, "MySQL support not yet implemented", "use postgres:// or sqlite:// for now")
	default:
		return nil, NewParseError(dsn, "unknown database type", "use postgres:// or sqlite://")
	}
}

// ParseInfo parses a DSN string and returns detailed DSN info
// Useful for inspecting connection details
func ParseInfo(dsn string) (*DSNInfo, error) {
	if dsn == "" {
		return nil, NewParseError(dsn, "empty DSN", "provide a valid database connection string")
	}
	r, err := resolverFor(dsn)
	if err != nil {
		return nil, err
	}
	return r.Parse(dsn)
}

// Validate validates a DSN string without converting it
func Validate(dsn string) error {
	if dsn == "" {
		return NewParseError(dsn, "empty DSN", "provide a valid database connection string")
	}
	r, err := resolverFor(dsn)
	if err != nil {
		return err
	}
	return r.Validate(dsn)
}

// ToConnectionConfig parses a DSN and converts it into a connection config
// with the given name. The password travels in the returned config; callers
// decide whether it goes to the keychain.
func ToConnectionConfig(name, dsn string) (config.ConnectionConfig, error) {
	info, err := ParseInfo(dsn)
	if err != nil {
		return config.ConnectionConfig{}, err
	}
	cfg := config.ConnectionConfig{
		Name:     name,
		DBType:   string(info.Type),
		Host:     info.Host,
		Port:     info.Port,
		Database: info.Database,
		Username: info.User,
		Password: info.Password,
		FilePath: info.FilePath,
		Params:   info.Params,
	}
	return config.Normalize(cfg), nil
}

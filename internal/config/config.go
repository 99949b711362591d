// Copyright (c) 2026 the sqlit authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package config defines connection configuration for sqlit and persists it
// in the XDG config dir. Only non-secret settings are written to disk;
// passwords go to the OS keychain and are attached at runtime.
package config

import (
	"strings"
)

// Database engine identifiers understood by the provider registry.
const (
	DBTypeSQLite   = "sqlite"
	DBTypePostgres = "postgres"
)

// SSH auth types.
const (
	SSHAuthPassword = "password"
	SSHAuthKey      = "key"
)

// SSHConfig holds the SSH tunnel settings for a connection.
type SSHConfig struct {
	Enabled  bool   `json:"enabled,omitempty"`
	Host     string `json:"host,omitempty"`
	Port     string `json:"port,omitempty"`
	Username string `json:"username,omitempty"`
	AuthType string `json:"auth_type,omitempty"`
	Password string `json:"password,omitempty"`
	KeyPath  string `json:"key_path,omitempty"`
}

// ConnectionConfig describes one saved database connection.
//
// Password fields are populated when the config travels over the worker
// channel (a private pipe to our own child process) but are stripped before
// the config is written to the connection store.
type ConnectionConfig struct {
	Name     string            `json:"name"`
	DBType   string            `json:"db_type"`
	Host     string            `json:"host,omitempty"`
	Port     string            `json:"port,omitempty"`
	Database string            `json:"database,omitempty"`
	Username string            `json:"username,omitempty"`
	Password string            `json:"password,omitempty"`
	FilePath string            `json:"file_path,omitempty"` // file-backed engines (sqlite)
	Params   map[string]string `json:"params,omitempty"`
	SSH      SSHConfig         `json:"ssh,omitempty"`
}

// WithEndpoint returns a copy of the config pointing at a different host and
// port. Used to redirect a connection through a tunnel's local listener.
func (c ConnectionConfig) WithEndpoint(host, port string) ConnectionConfig {
	out := c
	out.Host = host
	out.Port = port
	return out
}

// WithDatabase returns a copy of the config targeting another database.
// Providers without cross-database queries use this to reconnect instead of
// qualifying object names.
func (c ConnectionConfig) WithDatabase(database string) ConnectionConfig {
	out := c
	out.Database = database
	return out
}

// Redacted returns a copy safe for persistence and display.
func (c ConnectionConfig) Redacted() ConnectionConfig {
	out := c
	out.Password = ""
	out.SSH.Password = ""
	return out
}

// Normalize trims fields and fills in per-engine defaults. It is idempotent
// and applied on both sides of the worker channel before use.
func Normalize(c ConnectionConfig) ConnectionConfig {
	out := c
	out.Name = strings.TrimSpace(c.Name)
	out.DBType = strings.ToLower(strings.TrimSpace(c.DBType))
	out.Host = strings.TrimSpace(c.Host)
	out.Port = strings.TrimSpace(c.Port)
	out.Database = strings.TrimSpace(c.Database)
	out.Username = strings.TrimSpace(c.Username)
	out.FilePath = strings.TrimSpace(c.FilePath)

	if out.Port == "" {
		switch out.DBType {
		case DBTypePostgres:
			out.Port = "5432"
		}
	}

	out.SSH.Host = strings.TrimSpace(c.SSH.Host)
	out.SSH.Port = strings.TrimSpace(c.SSH.Port)
	out.SSH.Username = strings.TrimSpace(c.SSH.Username)
	out.SSH.AuthType = strings.ToLower(strings.TrimSpace(c.SSH.AuthType))
	out.SSH.KeyPath = strings.TrimSpace(c.SSH.KeyPath)
	if out.SSH.Enabled {
		if out.SSH.Port == "" {
			out.SSH.Port = "22"
		}
		if out.SSH.AuthType == "" {
			out.SSH.AuthType = SSHAuthPassword
		}
	}
	return out
}

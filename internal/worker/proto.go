// Copyright (c) 2026 the sqlit authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package worker runs query execution in a separate child process so the
// interactive surface stays responsive and a wedged driver can be killed
// without taking the whole program down. The host and the worker speak
// newline-delimited JSON over the child's stdin and stdout.
package worker

import (
	"time"

	"github.com/the-vampiire/sqlit-sub003/internal/config"
	"github.com/the-vampiire/sqlit-sub003/internal/provider"
	"github.com/the-vampiire/sqlit-sub003/internal/query"
)

// Request types.
const (
	ReqExec     = "exec"
	ReqSchema   = "schema"
	ReqCancel   = "cancel"
	ReqShutdown = "shutdown"
)

// Response types. Every exec and schema request gets exactly one response
// carrying the request's id; cancel and shutdown get none.
const (
	RespResult    = "result"
	RespError     = "error"
	RespCancelled = "cancelled"
	RespSchema    = "schema"
)

// Schema request ops.
const (
	OpColumns     = "columns"
	OpFolderItems = "folder_items"
)

// Result payload kinds.
const (
	KindQuery    = "query"
	KindNonQuery = "non_query"
)

// Request is one message from the host to the worker.
type Request struct {
	Type    string                   `json:"type"`
	ID      int64                    `json:"id,omitempty"`
	Query   string                   `json:"query,omitempty"`
	MaxRows int                      `json:"max_rows,omitempty"`
	Config  *config.ConnectionConfig `json:"config,omitempty"`

	// DBType selects the provider. Empty falls back to the config's type.
	DBType string `json:"db_type,omitempty"`

	// Database retargets the request at another database than the config's
	// default. Engines without cross-database queries reconnect.
	Database string `json:"database,omitempty"`

	// Schema request fields. Name addresses the table a columns request
	// inspects.
	Op         string `json:"op,omitempty"`
	Name       string `json:"name,omitempty"`
	Schema     string `json:"schema,omitempty"`
	FolderType string `json:"folder_type,omitempty"`
}

// Response is one message from the worker to the host.
type Response struct {
	Type      string         `json:"type"`
	ID        int64          `json:"id,omitempty"`
	Result    *ResultPayload `json:"result,omitempty"`
	ElapsedMS int64          `json:"elapsed_ms,omitempty"`
	Message   string         `json:"message,omitempty"`

	// Schema response fields.
	Op      string            `json:"op,omitempty"`
	Columns []provider.Column `json:"columns,omitempty"`
	Items   []provider.Object `json:"items,omitempty"`
}

// ResultPayload is a query result flattened for transport. Kind discriminates
// between the row-returning and side-effecting shapes.
type ResultPayload struct {
	Kind         string   `json:"kind"`
	Columns      []string `json:"columns,omitempty"`
	Rows         [][]any  `json:"rows,omitempty"`
	RowCount     int      `json:"row_count,omitempty"`
	Truncated    bool     `json:"truncated,omitempty"`
	RowsAffected int64    `json:"rows_affected,omitempty"`
}

// PayloadFor flattens a result for the wire.
func PayloadFor(res query.Result) *ResultPayload {
	switch r := res.(type) {
	case *query.QueryResult:
		return &ResultPayload{
			Kind:      KindQuery,
			Columns:   r.Columns,
			Rows:      r.Rows,
			RowCount:  r.RowCount,
			Truncated: r.Truncated,
		}
	case *query.NonQueryResult:
		return &ResultPayload{
			Kind:         KindNonQuery,
			RowsAffected: r.RowsAffected,
		}
	}
	return nil
}

// ToResult rebuilds the query result on the host side.
func (p *ResultPayload) ToResult() query.Result {
	if p == nil {
		return nil
	}
	if p.Kind == KindQuery {
		rows := p.Rows
		if rows == nil {
			rows = [][]any{}
		}
		return &query.QueryResult{
			Columns:   p.Columns,
			Rows:      rows,
			RowCount:  p.RowCount,
			Truncated: p.Truncated,
		}
	}
	return &query.NonQueryResult{RowsAffected: p.RowsAffected}
}

// Elapsed converts a response's elapsed milliseconds to a duration.
func (r Response) Elapsed() time.Duration {
	return time.Duration(r.ElapsedMS) * time.Millisecond
}

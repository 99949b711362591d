// Copyright (c) 2026 the sqlit authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

package query

import (
	"context"
	"database/sql"
	"time"

	"github.com/the-vampiire/sqlit-sub003/internal/sqltext"
)

// StatementExecutor executes one statement. Implementations return a
// QueryResult or NonQueryResult, or an error on failure. maxRows limits
// row-returning statements; 0 means unlimited.
type StatementExecutor interface {
	Execute(ctx context.Context, statement string, maxRows int) (Result, error)
}

// DBExecutor executes single statements on an open connection, choosing the
// row-fetching or affected-rows path via the analyzer.
type DBExecutor struct {
	DB       *sql.DB
	Analyzer sqltext.Analyzer
}

func (e *DBExecutor) Execute(ctx context.Context, statement string, maxRows int) (Result, error) {
	analyzer := e.Analyzer
	if analyzer == nil {
		analyzer = sqltext.KeywordAnalyzer{}
	}

	if analyzer.Classify(statement) == sqltext.ReturnsRows {
		rows, err := e.DB.QueryContext(ctx, statement)
		if err != nil {
			return nil, err
		}
		defer rows.Close()
		return CaptureRows(rows, maxRows)
	}

	res, err := e.DB.ExecContext(ctx, statement)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		affected = -1 // driver cannot report it
	}
	return &NonQueryResult{RowsAffected: affected}, nil
}

// CaptureRows drains a result set into a QueryResult, stopping after maxRows
// rows (0 = unlimited) and flagging truncation when more rows remain.
// Byte slices are converted to strings so results survive JSON transport.
func CaptureRows(rows *sql.Rows, maxRows int) (*QueryResult, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	result := &QueryResult{Columns: columns, Rows: [][]any{}}
	for rows.Next() {
		if maxRows > 0 && len(result.Rows) >= maxRows {
			result.Truncated = true
			break
		}
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		for i, v := range values {
			switch tv := v.(type) {
			case []byte:
				values[i] = string(tv)
			case time.Time:
				values[i] = tv.Format(time.RFC3339Nano)
			}
		}
		result.Rows = append(result.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	result.RowCount = len(result.Rows)
	return result, nil
}

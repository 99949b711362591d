// Copyright (c) 2026 the sqlit authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package query executes SQL scripts: single statements on an open
// connection, multi-statement scripts with stop-on-error semantics, and
// cancellable single statements bound to a provider and tunnel.
package query

// Result is either a QueryResult or a NonQueryResult.
type Result interface {
	isResult()
}

// QueryResult is the outcome of a row-returning statement.
type QueryResult struct {
	Columns   []string `json:"columns"`
	Rows      [][]any  `json:"rows"`
	RowCount  int      `json:"row_count"`
	Truncated bool     `json:"truncated"`
}

func (*QueryResult) isResult() {}

// NonQueryResult is the outcome of a side-effecting statement.
// RowsAffected is -1 when the driver cannot report it.
type NonQueryResult struct {
	RowsAffected int64 `json:"rows_affected"`
}

func (*NonQueryResult) isResult() {}

// StatementResult is the outcome of one statement within a script.
// Error is set iff Success is false.
type StatementResult struct {
	Statement string
	Result    Result
	Success   bool
	Error     string
}

// MultiStatementResult is the outcome of a script execution.
// ErrorIndex is -1 when every statement succeeded; otherwise it is the index
// of the sole failed statement, which is the last element of Results.
type MultiStatementResult struct {
	Results    []StatementResult
	Completed  bool
	ErrorIndex int
}

// HasError reports whether any statement failed.
func (r MultiStatementResult) HasError() bool { return r.ErrorIndex >= 0 }

// SuccessfulCount returns the number of statements that executed successfully.
func (r MultiStatementResult) SuccessfulCount() int {
	n := 0
	for _, sr := range r.Results {
		if sr.Success {
			n++
		}
	}
	return n
}

// QueryResults returns the row-returning results of successful statements.
func (r MultiStatementResult) QueryResults() []*QueryResult {
	var out []*QueryResult
	for _, sr := range r.Results {
		if !sr.Success {
			continue
		}
		if qr, ok := sr.Result.(*QueryResult); ok {
			out = append(out, qr)
		}
	}
	return out
}

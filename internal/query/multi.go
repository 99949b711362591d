// Copyright (c) 2026 the sqlit authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

package query

import (
	"context"

	"github.com/the-vampiire/sqlit-sub003/internal/sqltext"
)

// MultiStatementExecutor executes scripts statement by statement with
// stop-on-error behavior. No rollback is performed: statements that
// succeeded before a failure stay applied, which keeps behavior predictable
// when later statements depend on earlier ones.
type MultiStatementExecutor struct {
	executor StatementExecutor
}

// NewMultiStatementExecutor wraps a single-statement executor.
func NewMultiStatementExecutor(executor StatementExecutor) *MultiStatementExecutor {
	return &MultiStatementExecutor{executor: executor}
}

// Execute splits the script and runs each statement in order. Execution
// stops at the first failure; the failed statement is recorded with its
// error and ErrorIndex points at it. An empty script completes immediately
// without touching the executor.
func (m *MultiStatementExecutor) Execute(ctx context.Context, script string, maxRows int) MultiStatementResult {
	statements := sqltext.SplitStatements(script)

	out := MultiStatementResult{Completed: true, ErrorIndex: -1}
	if len(statements) == 0 {
		return out
	}

	for i, statement := range statements {
		result, err := m.executor.Execute(ctx, statement, maxRows)
		if err != nil {
			out.Results = append(out.Results, StatementResult{
				Statement: statement,
				Success:   false,
				Error:     err.Error(),
			})
			out.Completed = false
			out.ErrorIndex = i
			return out
		}
		out.Results = append(out.Results, StatementResult{
			Statement: statement,
			Result:    result,
			Success:   true,
		})
	}

	return out
}

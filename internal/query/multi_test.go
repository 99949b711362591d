// Copyright (c) 2026 the sqlit authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

package query

import (
	"context"
	"errors"
	"strings"
	"testing"
)

// scriptedExecutor fails on statements containing "boom" and counts calls.
type scriptedExecutor struct {
	calls []string
}

func (s *scriptedExecutor) Execute(_ context.Context, statement string, _ int) (Result, error) {
	s.calls = append(s.calls, statement)
	if strings.Contains(statement, "boom") {
		return nil, errors.New("syntax error near boom")
	}
	if strings.HasPrefix(strings.ToUpper(statement), "SELECT") {
		return &QueryResult{Columns: []string{"x"}, Rows: [][]any{{int64(1)}}, RowCount: 1}, nil
	}
	return &NonQueryResult{RowsAffected: 1}, nil
}

func TestMultiStatementExecutorStopsOnFirstError(t *testing.T) {
	exec := &scriptedExecutor{}
	m := NewMultiStatementExecutor(exec)

	res := m.Execute(context.Background(), "INSERT INTO t VALUES (1); SELECT boom; SELECT 1", 0)

	if len(res.Results) != 2 {
		t.Fatalf("len(Results) = %d, want 2", len(res.Results))
	}
	if res.Completed {
		t.Error("Completed = true, want false")
	}
	if res.ErrorIndex != 1 {
		t.Errorf("ErrorIndex = %d, want 1", res.ErrorIndex)
	}
	if len(exec.calls) != 2 {
		t.Errorf("executor invoked %d times, want 2", len(exec.calls))
	}
	if res.Results[0].Success != true || res.Results[1].Success != false {
		t.Errorf("success flags = %v/%v, want true/false", res.Results[0].Success, res.Results[1].Success)
	}
	if res.Results[1].Error == "" {
		t.Error("failed statement has no error text")
	}
	if !res.HasError() {
		t.Error("HasError() = false, want true")
	}
	if res.SuccessfulCount() != 1 {
		t.Errorf("SuccessfulCount() = %d, want 1", res.SuccessfulCount())
	}
}

func TestMultiStatementExecutorAllSucceed(t *testing.T) {
	exec := &scriptedExecutor{}
	m := NewMultiStatementExecutor(exec)

	res := m.Execute(context.Background(), "INSERT INTO t VALUES (1); SELECT * FROM t", 0)

	if !res.Completed {
		t.Error("Completed = false, want true")
	}
	if res.ErrorIndex != -1 {
		t.Errorf("ErrorIndex = %d, want -1", res.ErrorIndex)
	}
	if len(res.Results) != 2 {
		t.Fatalf("len(Results) = %d, want 2", len(res.Results))
	}
	if got := len(res.QueryResults()); got != 1 {
		t.Errorf("len(QueryResults()) = %d, want 1", got)
	}
}

func TestMultiStatementExecutorEmptyScript(t *testing.T) {
	exec := &scriptedExecutor{}
	m := NewMultiStatementExecutor(exec)

	res := m.Execute(context.Background(), "   \n  ", 0)

	if !res.Completed {
		t.Error("Completed = false, want true")
	}
	if res.ErrorIndex != -1 {
		t.Errorf("ErrorIndex = %d, want -1", res.ErrorIndex)
	}
	if len(res.Results) != 0 {
		t.Errorf("len(Results) = %d, want 0", len(res.Results))
	}
	if len(exec.calls) != 0 {
		t.Errorf("executor invoked %d times, want 0", len(exec.calls))
	}
}

// Copyright (c) 2026 the sqlit authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

package sqltext

import (
	"reflect"
	"testing"
)

func TestSplitStatements(t *testing.T) {
	tests := []struct {
		name string
		sql  string
		want []string
	}{
		{
			name: "empty input",
			sql:  "",
			want: nil,
		},
		{
			name: "whitespace only",
			sql:  "   \n\t  ",
			want: nil,
		},
		{
			name: "single statement without semicolon",
			sql:  "SELECT * FROM users",
			want: []string{"SELECT * FROM users"},
		},
		{
			name: "two statements with trailing semicolon",
			sql:  "SELECT 1; SELECT 2;",
			want: []string{"SELECT 1", "SELECT 2"},
		},
		{
			name: "semicolon inside single-quoted string",
			sql:  "INSERT INTO t (x) VALUES ('a;b'); SELECT 1",
			want: []string{"INSERT INTO t (x) VALUES ('a;b')", "SELECT 1"},
		},
		{
			name: "semicolon inside double-quoted identifier",
			sql:  `SELECT ";" FROM "a;b"; SELECT 2`,
			want: []string{`SELECT ";" FROM "a;b"`, "SELECT 2"},
		},
		{
			name: "doubled single quote does not close string",
			sql:  "INSERT INTO t VALUES ('it''s;fine'); SELECT 1",
			want: []string{"INSERT INTO t VALUES ('it''s;fine')", "SELECT 1"},
		},
		{
			name: "backslash escape consumes the next character",
			sql:  `INSERT INTO t VALUES ('a\';b'); SELECT 1`,
			want: []string{`INSERT INTO t VALUES ('a\';b')`, "SELECT 1"},
		},
		{
			name: "blank line separation when no semicolons",
			sql:  "SELECT 1\n\nSELECT 2",
			want: []string{"SELECT 1", "SELECT 2"},
		},
		{
			name: "multiple blank lines collapse to one separator",
			sql:  "SELECT 1\n\nSELECT 2\n\n\nSELECT 3",
			want: []string{"SELECT 1", "SELECT 2", "SELECT 3"},
		},
		{
			name: "blank lines with only whitespace still separate",
			sql:  "SELECT 1\n   \t\nSELECT 2",
			want: []string{"SELECT 1", "SELECT 2"},
		},
		{
			name: "semicolons win over blank lines",
			sql:  "SELECT 1;\n\nSELECT 2",
			want: []string{"SELECT 1", "SELECT 2"},
		},
		{
			name: "multi-line statement without blank lines stays whole",
			sql:  "SELECT a,\n       b\nFROM t",
			want: []string{"SELECT a,\n       b\nFROM t"},
		},
		{
			name: "empty fragments are discarded",
			sql:  ";;SELECT 1;;",
			want: []string{"SELECT 1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SplitStatements(tt.sql)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SplitStatements() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestSplitStatementsNoTopLevelSemicolons(t *testing.T) {
	inputs := []string{
		"SELECT 1; SELECT 2;",
		"INSERT INTO t (x) VALUES ('a;b'); SELECT 1",
		"UPDATE t SET x = 'a''b;c'; DELETE FROM t;",
		`SELECT "x;y"; SELECT 2`,
	}
	for _, sql := range inputs {
		for i, stmt := range SplitStatements(sql) {
			if hasTopLevelSemicolon(stmt) {
				t.Errorf("statement %d of %q contains a top-level semicolon: %q", i, sql, stmt)
			}
		}
	}
}

func TestNormalizeForExecution(t *testing.T) {
	tests := []struct {
		name string
		sql  string
		want string
	}{
		{
			name: "blank-line script becomes semicolon joined",
			sql:  "SELECT 1\n\nSELECT 2",
			want: "SELECT 1; SELECT 2",
		},
		{
			name: "semicolon script unchanged",
			sql:  "SELECT 1; SELECT 2",
			want: "SELECT 1; SELECT 2",
		},
		{
			name: "single statement unchanged",
			sql:  "SELECT 1",
			want: "SELECT 1",
		},
		{
			name: "empty unchanged",
			sql:  "",
			want: "",
		},
		{
			name: "blank line inside string preserved",
			sql:  "SELECT 'a\n\nb'",
			want: "SELECT 'a\n\nb'",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeForExecution(tt.sql)
			if got != tt.want {
				t.Errorf("NormalizeForExecution() = %q, want %q", got, tt.want)
			}
			// Idempotence: applying twice equals applying once.
			if again := NormalizeForExecution(got); again != got {
				t.Errorf("NormalizeForExecution not idempotent: %q -> %q", got, again)
			}
		})
	}
}

// Copyright (c) 2026 the sqlit authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package sqltext splits SQL scripts into statements and classifies them.
// It is deliberately not a SQL parser: splitting tracks quoting with a small
// automaton and classification is keyword-based, so arbitrary dialect text
// passes through unharmed.
package sqltext

import (
	"regexp"
	"strings"
)

var blankLineRe = regexp.MustCompile(`\n[ \t\r]*\n`)

// hasTopLevelSemicolon reports whether sql contains a semicolon outside
// string literals. A backslash escape inside a string consumes two bytes;
// a doubled quote of the open kind does not close the string.
func hasTopLevelSemicolon(sql string) bool {
	inSingle := false
	inDouble := false

	for i := 0; i < len(sql); i++ {
		c := sql[i]

		if c == '\\' && i+1 < len(sql) && (inSingle || inDouble) {
			i++
			continue
		}

		if c == '\'' && i+1 < len(sql) && sql[i+1] == '\'' && inSingle {
			i++
			continue
		}
		if c == '"' && i+1 < len(sql) && sql[i+1] == '"' && inDouble {
			i++
			continue
		}

		switch {
		case c == '\'' && !inDouble:
			inSingle = !inSingle
		case c == '"' && !inSingle:
			inDouble = !inDouble
		case c == ';' && !inSingle && !inDouble:
			return true
		}
	}

	return false
}

// splitBySemicolons splits sql on semicolons outside string literals.
// Empty fragments are dropped; the last statement need not end in a semicolon.
func splitBySemicolons(sql string) []string {
	var statements []string
	var current strings.Builder
	inSingle := false
	inDouble := false

	flush := func() {
		if stmt := strings.TrimSpace(current.String()); stmt != "" {
			statements = append(statements, stmt)
		}
		current.Reset()
	}

	for i := 0; i < len(sql); i++ {
		c := sql[i]

		if c == '\\' && i+1 < len(sql) && (inSingle || inDouble) {
			current.WriteByte(c)
			current.WriteByte(sql[i+1])
			i++
			continue
		}

		if c == '\'' && i+1 < len(sql) && sql[i+1] == '\'' && inSingle {
			current.WriteString("''")
			i++
			continue
		}
		if c == '"' && i+1 < len(sql) && sql[i+1] == '"' && inDouble {
			current.WriteString(`""`)
			i++
			continue
		}

		switch {
		case c == '\'' && !inDouble:
			inSingle = !inSingle
			current.WriteByte(c)
		case c == '"' && !inSingle:
			inDouble = !inDouble
			current.WriteByte(c)
		case c == ';' && !inSingle && !inDouble:
			flush()
		default:
			current.WriteByte(c)
		}
	}

	flush()
	return statements
}

// splitByBlankLines splits sql on whitespace-only lines outside string
// literals. Consecutive blank lines collapse to one separator. Used only
// when the script has no top-level semicolons.
func splitByBlankLines(sql string) []string {
	var statements []string
	var current strings.Builder
	inSingle := false
	inDouble := false
	lineStart := 0
	prevLineEmpty := false

	flush := func() {
		if stmt := strings.TrimSpace(current.String()); stmt != "" {
			statements = append(statements, stmt)
		}
		current.Reset()
	}

	for i := 0; i < len(sql); i++ {
		c := sql[i]

		if c == '\\' && i+1 < len(sql) && (inSingle || inDouble) {
			current.WriteByte(c)
			current.WriteByte(sql[i+1])
			i++
			continue
		}

		if c == '\'' && i+1 < len(sql) && sql[i+1] == '\'' && inSingle {
			current.WriteString("''")
			i++
			continue
		}
		if c == '"' && i+1 < len(sql) && sql[i+1] == '"' && inDouble {
			current.WriteString(`""`)
			i++
			continue
		}

		switch {
		case c == '\'' && !inDouble:
			inSingle = !inSingle
			current.WriteByte(c)
		case c == '"' && !inSingle:
			inDouble = !inDouble
			current.WriteByte(c)
		case c == '\n' && !inSingle && !inDouble:
			currentLineEmpty := strings.TrimSpace(sql[lineStart:i]) == ""
			switch {
			case currentLineEmpty && prevLineEmpty:
				// already inside a blank-line separator
			case currentLineEmpty && current.Len() > 0:
				flush()
			default:
				current.WriteByte(c)
			}
			prevLineEmpty = currentLineEmpty
			lineStart = i + 1
		default:
			current.WriteByte(c)
			if c != ' ' && c != '\t' {
				prevLineEmpty = false
			}
		}
	}

	flush()
	return statements
}

// SplitStatements splits a SQL script into individual statements.
//
// Splitting strategy, in priority order:
//  1. If the script contains semicolons outside strings, split on them.
//  2. Else, if it contains blank lines, split on blank-line boundaries.
//  3. Otherwise the whole trimmed script is one statement.
//
// Statements are trimmed and never empty. Semicolons and blank lines inside
// string literals are preserved.
func SplitStatements(sql string) []string {
	if strings.TrimSpace(sql) == "" {
		return nil
	}

	if hasTopLevelSemicolon(sql) {
		return splitBySemicolons(sql)
	}

	if blankLineRe.MatchString(sql) {
		return splitByBlankLines(sql)
	}

	return []string{strings.TrimSpace(sql)}
}

// NormalizeForExecution rewrites a blank-line-separated script into
// semicolon-joined form, since execution boundaries only understand
// semicolons. Scripts that already use semicolons pass through unchanged.
// The function is idempotent.
func NormalizeForExecution(sql string) string {
	if strings.TrimSpace(sql) == "" {
		return sql
	}

	if hasTopLevelSemicolon(sql) {
		return sql
	}

	if blankLineRe.MatchString(sql) {
		statements := splitByBlankLines(sql)
		if len(statements) > 1 {
			return strings.Join(statements, "; ")
		}
	}

	return sql
}

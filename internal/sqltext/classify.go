// Copyright (c) 2026 the sqlit authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

package sqltext

import (
	"strings"
)

// Kind distinguishes row-returning statements from everything else.
type Kind int

const (
	// NonQuery is a statement executed for its side effects (INSERT, DDL, ...).
	NonQuery Kind = iota
	// ReturnsRows is a statement that produces a result set.
	ReturnsRows
)

func (k Kind) String() string {
	if k == ReturnsRows {
		return "returns_rows"
	}
	return "non_query"
}

// Keywords that start row-returning statements.
var selectKeywords = map[string]bool{
	"SELECT":   true,
	"WITH":     true,
	"SHOW":     true,
	"DESCRIBE": true,
	"EXPLAIN":  true,
	"PRAGMA":   true,
}

// Analyzer classifies a SQL script.
type Analyzer interface {
	Classify(sql string) Kind
}

// Classify reports the kind of a script based on the keyword of its last
// statement. For scripts like "BEGIN; INSERT ...; SELECT * FROM t;" the last
// statement decides whether results should be fetched. Comment-only lines
// ("--" prefixed) are skipped when locating the deciding keyword.
func Classify(script string) Kind {
	statements := SplitStatements(script)

	for i := len(statements) - 1; i >= 0; i-- {
		firstLine := firstNonCommentLine(statements[i])
		if firstLine == "" {
			continue
		}
		fields := strings.Fields(strings.ToUpper(firstLine))
		if len(fields) == 0 {
			continue
		}
		if selectKeywords[fields[0]] {
			return ReturnsRows
		}
		return NonQuery
	}

	return NonQuery
}

func firstNonCommentLine(stmt string) string {
	for _, line := range strings.Split(stmt, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "--") {
			continue
		}
		return line
	}
	return ""
}

// KeywordAnalyzer is the fallback keyword heuristic as an Analyzer.
type KeywordAnalyzer struct{}

func (KeywordAnalyzer) Classify(sql string) Kind { return Classify(sql) }

// ClassifyFunc is a dialect hook. The second return value reports whether the
// dialect produced a verdict; false falls through to the default heuristic.
type ClassifyFunc func(sql string) (Kind, bool)

// DialectAnalyzer consults a dialect hook first and falls back to the keyword
// heuristic when the hook declines or is absent.
type DialectAnalyzer struct {
	Hook     ClassifyFunc
	Fallback Analyzer
}

func (d DialectAnalyzer) Classify(sql string) Kind {
	if d.Hook != nil {
		if kind, ok := d.Hook(sql); ok {
			return kind
		}
	}
	if d.Fallback != nil {
		return d.Fallback.Classify(sql)
	}
	return Classify(sql)
}

// Copyright (c) 2026 the sqlit authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

package sqltext

import "regexp"

// Matches: USE dbname, USE [dbname], USE `dbname`, USE "dbname"
var usePattern = regexp.MustCompile(
	`(?i)^\s*USE\s+` +
		`(?:` +
		`\[([^\]]+)\]` + // [bracketed] - SQL Server style
		"|`([^`]+)`" + // `backtick` - MySQL style
		`|"([^"]+)"` + // "quoted" - standard SQL style
		`|(\w+)` + // unquoted identifier
		`)` +
		`\s*;?\s*$`,
)

// ParseUseStatement returns the database named by a USE statement, or ""
// if the query is not a USE statement. Bracketed, backtick, double-quoted
// and bare identifiers are supported.
func ParseUseStatement(query string) string {
	match := usePattern.FindStringSubmatch(query)
	if match == nil {
		return ""
	}
	for _, g := range match[1:] {
		if g != "" {
			return g
		}
	}
	return ""
}

// Copyright (c) 2026 the sqlit authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/pterm/pterm"

	"github.com/the-vampiire/sqlit-sub003/internal/logging"
	"github.com/the-vampiire/sqlit-sub003/internal/query"
)

func renderResult(res query.Result) {
	switch r := res.(type) {
	case *query.QueryResult:
		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader(r.Columns)
		for _, row := range r.Rows {
			cells := make([]string, len(row))
			for i, v := range row {
				cells[i] = formatCell(v)
			}
			table.Append(cells)
		}
		table.Render()
		if r.Truncated {
			pterm.Warning.Printfln("output truncated at %d rows", r.RowCount)
		} else {
			pterm.Info.Printfln("%d row(s)", r.RowCount)
		}
	case *query.NonQueryResult:
		if r.RowsAffected < 0 {
			pterm.Success.Println("ok")
		} else {
			pterm.Success.Printfln("%d row(s) affected", r.RowsAffected)
		}
	}
}

func renderMulti(res query.MultiStatementResult) {
	for i, sr := range res.Results {
		if !sr.Success {
			pterm.Error.Printfln("statement %d failed: %s", i+1, logging.Mask(sr.Error))
			continue
		}
		renderResult(sr.Result)
	}
	if !res.Completed {
		remaining := res.ErrorIndex + 1
		pterm.Warning.Printfln("stopped after statement %d; later statements were not run", remaining)
	}
}

func formatCell(v any) string {
	switch tv := v.(type) {
	case nil:
		return "NULL"
	case string:
		return tv
	case float64:
		return strconv.FormatFloat(tv, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(tv)
	default:
		return fmt.Sprint(tv)
	}
}

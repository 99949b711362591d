// Copyright (c) 2026 the sqlit authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/the-vampiire/sqlit-sub003/internal/query"
	"github.com/the-vampiire/sqlit-sub003/internal/worker"
)

var (
	queryDatabase string
	queryMaxRows  int
)

// queryCmd runs a one-shot script through a freshly spawned worker. Ctrl+C
// cancels the in-flight statement instead of killing the process outright.
var queryCmd = &cobra.Command{
	Use:   "query <connection> [sql]",
	Short: "Run SQL against a saved connection",
	Long: `Run a SQL script against a saved connection. The script may contain
multiple statements; execution stops at the first failure. When no SQL
argument is given the script is read from stdin.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConnection(args[0])
		if err != nil {
			return err
		}

		var script string
		if len(args) == 2 {
			script = args[1]
		} else {
			data, err := io.ReadAll(os.Stdin)
			if err != nil {
				return err
			}
			script = string(data)
		}
		if strings.TrimSpace(script) == "" {
			return errors.New("no SQL to execute")
		}

		maxRows := queryMaxRows
		if maxRows == 0 {
			maxRows = loadSettings().MaxRows
		}

		client, err := worker.Spawn()
		if err != nil {
			return err
		}
		defer client.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		exec := query.NewMultiStatementExecutor(&workerExecutor{client: client, cfg: cfg, database: queryDatabase})
		res := exec.Execute(ctx, script, maxRows)
		renderMulti(res)

		if hist, err := query.NewHistoryStore(); err == nil {
			_ = hist.SaveQuery(cfg.Name, script)
		}

		if res.HasError() {
			return fmt.Errorf("script failed at statement %d", res.ErrorIndex+1)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(queryCmd)
	queryCmd.Flags().StringVarP(&queryDatabase, "database", "d", "", "Target database (overrides the connection default)")
	queryCmd.Flags().IntVar(&queryMaxRows, "max-rows", 0, "Row limit for result sets (0 = use stored setting)")
}

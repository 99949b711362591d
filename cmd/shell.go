// Copyright (c) 2026 the sqlit authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/chzyer/readline"
	"github.com/olekukonko/tablewriter"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/the-vampiire/sqlit-sub003/internal/config"
	"github.com/the-vampiire/sqlit-sub003/internal/logging"
	"github.com/the-vampiire/sqlit-sub003/internal/provider"
	"github.com/the-vampiire/sqlit-sub003/internal/query"
	"github.com/the-vampiire/sqlit-sub003/internal/sqltext"
	"github.com/the-vampiire/sqlit-sub003/internal/worker"
)

// shellCmd opens an interactive SQL shell bound to a saved connection. The
// worker process starts lazily on the first statement and shuts down after
// the configured idle period.
var shellCmd = &cobra.Command{
	Use:   "shell <connection>",
	Short: "Open an interactive SQL shell",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConnection(args[0])
		if err != nil {
			return err
		}
		settings := loadSettings()

		historyFile := ""
		if hist, err := query.NewHistoryStore(); err == nil {
			historyFile = hist.Path(cfg.Name)
		}

		manager := worker.NewManager(
			func() (*worker.Client, error) { return worker.Spawn() },
			time.Duration(settings.WorkerIdleTimeoutSecs)*time.Second,
			settings.WorkerWarmOnIdle,
		)
		defer manager.Close()

		rl, err := readline.NewEx(&readline.Config{
			Prompt:          cfg.Name + "> ",
			HistoryFile:     historyFile,
			InterruptPrompt: "^C",
			EOFPrompt:       `\q`,
		})
		if err != nil {
			return err
		}
		defer rl.Close()

		pterm.Info.Printfln("connected to %s; \\q to quit, \\? for help", cfg.Name)

		database := "" // empty targets the connection's default database
		for {
			line, err := rl.Readline()
			if err == readline.ErrInterrupt {
				continue
			}
			if err != nil {
				return nil // EOF
			}
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}

			switch {
			case line == `\q`:
				return nil
			case line == `\?`:
				printShellHelp()
				continue
			case strings.HasPrefix(line, `\`):
				runMeta(manager, cfg, database, line)
				continue
			}

			if db := sqltext.ParseUseStatement(line); db != "" {
				database = db
				pterm.Info.Printfln("using database %s", db)
				continue
			}

			runShellScript(manager, cfg, database, line, settings.MaxRows)
		}
	},
}

func runShellScript(m *worker.Manager, cfg config.ConnectionConfig, database, script string, maxRows int) {
	client, err := m.Acquire()
	if err != nil {
		pterm.Error.Println(logging.PresentError("start worker", err))
		return
	}
	defer m.Release()

	// Ctrl+C cancels the running statement, not the shell.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	exec := query.NewMultiStatementExecutor(&workerExecutor{client: client, cfg: cfg, database: database})
	renderMulti(exec.Execute(ctx, script, maxRows))
}

func runMeta(m *worker.Manager, cfg config.ConnectionConfig, database, line string) {
	client, err := m.Acquire()
	if err != nil {
		pterm.Error.Println(logging.PresentError("start worker", err))
		return
	}
	defer m.Release()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	fields := strings.Fields(line)
	switch fields[0] {
	case `\d`:
		if len(fields) > 1 {
			cols, err := client.Columns(ctx, cfg, fields[1], database, "")
			if err != nil {
				pterm.Error.Println(logging.PresentError("describe "+fields[1], err))
				return
			}
			renderColumns(fields[1], cols)
			return
		}
		listFolder(ctx, client, cfg, provider.FolderTables, database)
	case `\dt`:
		listFolder(ctx, client, cfg, provider.FolderTables, database)
	case `\dv`:
		listFolder(ctx, client, cfg, provider.FolderViews, database)
	case `\db`:
		listFolder(ctx, client, cfg, provider.FolderDatabases, database)
	case `\di`:
		listFolder(ctx, client, cfg, provider.FolderIndexes, database)
	case `\ds`:
		listFolder(ctx, client, cfg, provider.FolderSequences, database)
	case `\df`:
		listFolder(ctx, client, cfg, provider.FolderProcedures, database)
	default:
		pterm.Warning.Printfln("unknown command %s", fields[0])
	}
}

func listFolder(ctx context.Context, client *worker.Client, cfg config.ConnectionConfig, folderType, database string) {
	items, err := client.FolderItems(ctx, cfg, folderType, database)
	if err != nil {
		pterm.Error.Println(logging.PresentError("list "+folderType, err))
		return
	}
	if len(items) == 0 {
		pterm.Info.Printfln("no %s", folderType)
		return
	}
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Name", "Schema", "Table"})
	for _, it := range items {
		table.Append([]string{it.Name, it.Schema, it.Table})
	}
	table.Render()
}

func renderColumns(tableName string, cols []provider.Column) {
	if len(cols) == 0 {
		pterm.Info.Printfln("no columns for %s", tableName)
		return
	}
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Column", "Type", "Nullable", "Default"})
	for _, c := range cols {
		table.Append([]string{c.Name, c.DataType, strconv.FormatBool(c.Nullable), c.Default})
	}
	table.Render()
}

func printShellHelp() {
	pterm.Info.Println("commands:\n" +
		"  \\d [table]   list tables, or describe one\n" +
		"  \\dt \\dv \\db  tables, views, databases\n" +
		"  \\di \\ds \\df  indexes, sequences, procedures\n" +
		"  USE <db>     switch database\n" +
		"  \\q           quit")
}

func init() {
	rootCmd.AddCommand(shellCmd)
}

// Copyright (c) 2026 the sqlit authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package cmd provides the command-line interface for sqlit. It implements
// subcommands for managing saved connections, running one-shot queries, an
// interactive SQL shell and the hidden worker process, using the Cobra CLI
// framework.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/the-vampiire/sqlit-sub003/internal/logging"
)

var (
	showVersion bool
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:           "sqlit",
	Short:         "Terminal client for SQLite and PostgreSQL",
	Long:          `sqlit is a terminal SQL client. It keeps named connections with secrets in the OS keychain, runs queries in a separate worker process so they can be cancelled cleanly, and tunnels through SSH bastions when a connection needs one.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if showVersion {
			fmt.Printf("sqlit %s\n", Version)
			return nil
		}
		return cmd.Help()
	},
}

// Execute runs the CLI application.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, logging.PresentError("sqlit", err))
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().BoolVar(&showVersion, "version", false, "Show version information")
}

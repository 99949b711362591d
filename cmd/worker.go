// Copyright (c) 2026 the sqlit authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"bufio"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/the-vampiire/sqlit-sub003/internal/logging"
	"github.com/the-vampiire/sqlit-sub003/internal/worker"
)

// workerCmd runs the query worker loop over stdio. The CLI spawns itself
// with this command; it is not meant to be invoked by hand.
var workerCmd = &cobra.Command{
	Use:    "worker",
	Short:  "Run the query worker process",
	Hidden: true,
	Args:   cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := bufio.NewWriter(os.Stdout)
		defer out.Flush()

		loop := worker.NewLoop(worker.NewChannel(os.Stdin, out), worker.LoopOptions{
			OnCleanupError: func(err error) {
				fmt.Fprintln(os.Stderr, logging.PresentError("tunnel cleanup", err))
			},
		})
		loop.Run()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(workerCmd)
}

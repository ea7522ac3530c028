// Copyright (c) 2025 Sqlchat
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package cmd provides the command-line interface for sqlchat.
// Running the binary without a subcommand starts the chat.
package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	sqlerrors "sqlchat/cli/internal/errors"
	"sqlchat/cli/internal/logging"
)

var verbose bool

// rootCmd is the base command; on its own it runs the chat.
var rootCmd = &cobra.Command{
	Use:   "sqlchat",
	Short: "Chat with your database in plain English",
	Long: `sqlchat answers questions about a SQL database. Pick the local SQLite file
or a remote MySQL/PostgreSQL server, then ask away: an LLM agent writes and runs
the queries, and tabular answers are shown as tables you can export to CSV.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runChat,
}

// Execute runs the CLI and exits non-zero on failure.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, context.Canceled) {
			printError(err)
		}
		stop()
		os.Exit(1)
	}
}

// printError shows configuration errors as their message only; anything
// else gets the masked chain.
func printError(err error) {
	var e *sqlerrors.E
	if errors.As(err, &e) && e.Kind != sqlerrors.AgentFailed {
		pterm.Error.Println(e.Message)
		return
	}
	pterm.Error.Println(logging.PresentError("", err))
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Show agent steps and mirror the debug log to stderr")
	addChatFlags(rootCmd)
}

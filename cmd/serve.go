// Copyright (c) 2025 Sqlchat
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"net"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"sqlchat/cli/internal/bridge"
	"sqlchat/cli/internal/metrics"
)

var serveOpts struct {
	listen string
}

// serveCmd hosts the local agent as a gRPC service for "sqlchat --agent-addr".
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the SQL agent over gRPC",
	Long: `The serve command connects to a database like chat does, then answers
questions from other sqlchat clients started with --agent-addr. The service
speaks plaintext gRPC; clients need --agent-insecure unless a TLS proxy sits
in front of it.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		defer a.Close()
		applyChatFlags(cmd, a)
		a.cfg.Agent.RemoteAddr = ""

		ctx := cmd.Context()
		if chatOpts.metricsAddr != "" {
			go func() {
				if err := metrics.Serve(ctx, chatOpts.metricsAddr, a.log); err != nil {
					a.log.WithError(err).Warn("metrics server stopped")
				}
			}()
		}

		gw, cleanup, err := buildGateway(ctx, a)
		if err != nil {
			return err
		}
		defer cleanup()

		lis, err := net.Listen("tcp", serveOpts.listen)
		if err != nil {
			return err
		}
		pterm.Success.Printfln("Agent service listening on %s (Ctrl-C to stop)", lis.Addr())
		return bridge.Serve(ctx, lis, gw, a.log)
	},
}

func init() {
	addChatFlags(serveCmd)
	serveCmd.Flags().StringVar(&serveOpts.listen, "listen", "127.0.0.1:7070", "Address to listen on")
	rootCmd.AddCommand(serveCmd)
}

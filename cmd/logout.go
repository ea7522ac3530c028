// Copyright (c) 2025 Sqlchat
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"sqlchat/cli/internal/keychain"
)

// logoutCmd removes the saved API key.
var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove the saved LLM API key",
	RunE: func(cmd *cobra.Command, args []string) error {
		km, err := keychain.GetManager()
		if err != nil {
			return err
		}
		if err := km.ClearAPIKey(); err != nil {
			return err
		}
		pterm.Success.Println("The saved API key has been removed")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(logoutCmd)
}

// Copyright (c) 2025 Sqlchat
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"context"
	"errors"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"sqlchat/cli/internal/httperrors"
	"sqlchat/cli/internal/keychain"
	"sqlchat/cli/internal/llm"
)

var loginVerify bool

// loginCmd stores the LLM API key in the OS keychain.
var loginCmd = &cobra.Command{
	Use:     "login",
	Aliases: []string{"auth"},
	Short:   "Save your LLM API key in the OS keychain",
	Long: `The login command asks for the API key of the hosted model (Groq by default)
and stores it in the OS keychain, so chats no longer prompt for it.
GROQ_API_KEY or SQLCHAT_API_KEY in the environment always take precedence.

With --verify a one-word completion is requested first to check the key.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		defer a.Close()

		km, err := keychain.GetManager()
		if err != nil {
			pterm.Error.Println("Secure storage is not available on this system.")
			pterm.Println("   Export GROQ_API_KEY instead.")
			return err
		}
		if _, err := km.LoadAPIKey(); err == nil {
			ok, _ := pterm.DefaultInteractiveConfirm.Show("A key is already saved. Replace it?")
			if !ok {
				return nil
			}
		}

		key, err := promptSecret("LLM API key")
		if err != nil {
			return err
		}
		if key == "" {
			return errors.New("no key entered")
		}

		if loginVerify {
			client, err := llm.New(llm.Config{APIKey: key, Model: a.cfg.LLM.Model, BaseURL: a.cfg.LLM.BaseURL, Timeout: 20 * time.Second})
			if err != nil {
				return err
			}
			stop := startInlineSpinner(cmd.OutOrStdout(), "checking key", stickFrames, 120*time.Millisecond)
			ctx, cancel := context.WithTimeout(cmd.Context(), 20*time.Second)
			_, err = client.Complete(ctx, llm.Request{Messages: []llm.Message{{Role: "user", Content: "Reply with the word ok."}}}, nil)
			cancel()
			stop()
			if err != nil {
				return httperrors.FormatNetworkError(err, "checking the key", httperrors.ExtractHostFromURL(a.cfg.LLM.BaseURL))
			}
		}

		if err := km.SaveAPIKey(key); err != nil {
			pterm.Error.Println("Failed to save the key.")
			return err
		}
		pterm.Success.Println("API key saved. You're ready to run 'sqlchat'.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(loginCmd)
	loginCmd.Flags().BoolVar(&loginVerify, "verify", false, "Check the key against the model endpoint before saving")
}

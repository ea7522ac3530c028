// Copyright (c) 2025 Sqlchat
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pterm/pterm"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"sqlchat/cli/internal/agent"
	"sqlchat/cli/internal/bridge"
	"sqlchat/cli/internal/bridge/grpcclient"
	"sqlchat/cli/internal/chat"
	"sqlchat/cli/internal/dsn"
	sqlerrors "sqlchat/cli/internal/errors"
	"sqlchat/cli/internal/keychain"
	"sqlchat/cli/internal/llm"
	"sqlchat/cli/internal/metrics"
	"sqlchat/cli/internal/sqlexec"
)

// chatFlags are shared by the root command and "chat".
type chatFlags struct {
	localDB       string
	remote        bool
	driver        string
	model         string
	agentAddr     string
	agentInsecure bool
	metricsAddr   string
	allowWrites   bool
}

var chatOpts chatFlags

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive chat with your database",
	Long: `The chat command asks where your data lives, connects to it and then answers
questions in a loop. Type /help for the slash commands.

Without --local-db or --remote you are asked to pick a source. With --agent-addr
questions are sent to a remote agent service instead of a local agent.`,
	RunE: runChat,
}

func addChatFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&chatOpts.localDB, "local-db", "", "Use this SQLite file (relative to the working directory)")
	f.BoolVar(&chatOpts.remote, "remote", false, "Connect to a remote MySQL or PostgreSQL server")
	f.StringVar(&chatOpts.driver, "driver", "", "Remote driver: mysql or postgres")
	f.StringVar(&chatOpts.model, "model", "", "LLM model name")
	f.StringVar(&chatOpts.agentAddr, "agent-addr", "", "Address of a remote agent service (host:port)")
	f.BoolVar(&chatOpts.agentInsecure, "agent-insecure", false, "Talk to the agent service without TLS")
	f.StringVar(&chatOpts.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")
	f.BoolVar(&chatOpts.allowWrites, "allow-writes", false, "Let the agent run INSERT/UPDATE/DELETE statements")
}

func init() {
	addChatFlags(chatCmd)
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.Close()
	applyChatFlags(cmd, a)

	ctx := cmd.Context()
	if chatOpts.metricsAddr != "" {
		go func() {
			if err := metrics.Serve(ctx, chatOpts.metricsAddr, a.log); err != nil {
				pterm.Warning.Printfln("Metrics server stopped: %v", err)
			}
		}()
	}

	pterm.DefaultHeader.WithFullWidth().Println("sqlchat")

	gw, cleanup, err := buildGateway(ctx, a)
	if err != nil {
		return err
	}
	defer cleanup()

	sess := chat.New(gw,
		chat.WithLogger(a.log),
		chat.WithStepView(func() chat.StepView { return chat.NewAreaView(verbose) }),
	)
	pterm.Println(pterm.Gray("Type /help for commands, /exit to quit."))
	sess.Greet()
	return sess.Loop(ctx, lineReader(os.Stdin))
}

func applyChatFlags(cmd *cobra.Command, a *app) {
	if chatOpts.localDB != "" {
		a.cfg.DB.LocalPath = chatOpts.localDB
	}
	if chatOpts.driver != "" {
		a.cfg.DB.Driver = chatOpts.driver
	}
	if chatOpts.model != "" {
		a.cfg.LLM.Model = chatOpts.model
	}
	if chatOpts.agentAddr != "" {
		a.cfg.Agent.RemoteAddr = chatOpts.agentAddr
	}
	if cmd.Flags().Changed("allow-writes") {
		a.cfg.Agent.AllowWrites = chatOpts.allowWrites
	}
}

// buildGateway returns the remote agent when an address is configured, or a
// local agent over the chosen database.
func buildGateway(ctx context.Context, a *app) (agent.Gateway, func(), error) {
	if addr := a.cfg.Agent.RemoteAddr; addr != "" {
		opts := []grpcclient.Option{
			grpcclient.WithLogger(a.log),
			grpcclient.WithTimeout(a.cfg.LLM.Timeout.Duration * time.Duration(a.cfg.Agent.MaxIterations)),
		}
		if chatOpts.agentInsecure {
			opts = append(opts, grpcclient.WithInsecure())
		}
		c, err := bridge.Connect(addr, opts...)
		if err != nil {
			return nil, nil, err
		}
		pterm.Info.Printfln("Questions go to the agent service at %s", addr)
		return c, func() { _ = c.Close() }, nil
	}

	spec, err := chooseSource(a)
	if err != nil {
		return nil, nil, err
	}
	h, err := configure(ctx, a, spec)
	if err != nil {
		return nil, nil, err
	}
	sqlAgent, err := localAgent(a, h)
	if err != nil {
		return nil, nil, err
	}
	return sqlAgent, func() { _ = h.DB.Close() }, nil
}

// chooseSource builds a ConnectionSpec from flags or interactive prompts.
func chooseSource(a *app) (dsn.ConnectionSpec, error) {
	remote := chatOpts.remote
	if !remote && chatOpts.localDB == "" {
		local := fmt.Sprintf("Local SQLite (%s)", a.cfg.DB.LocalPath)
		choice, err := pterm.DefaultInteractiveSelect.
			WithDefaultText("Where is your data?").
			WithOptions([]string{local, "Remote MySQL / PostgreSQL"}).
			Show()
		if err != nil {
			return dsn.ConnectionSpec{}, err
		}
		remote = choice != local
	}
	if !remote {
		return dsn.LocalSpec(a.cfg.DB.LocalPath), nil
	}
	return promptRemote(a.cfg.DB.Driver)
}

// promptRemote asks for the remote connection fields. Blank answers are
// passed through so the configurator reports them.
func promptRemote(defaultDriver string) (dsn.ConnectionSpec, error) {
	driver := defaultDriver
	if driver == "" {
		driver = string(dsn.DriverMySQL)
	}
	if chatOpts.driver == "" {
		choice, err := pterm.DefaultInteractiveSelect.
			WithDefaultText("Database server").
			WithOptions([]string{"mysql", "postgres"}).
			WithDefaultOption(driver).
			Show()
		if err != nil {
			return dsn.ConnectionSpec{}, err
		}
		driver = choice
	}
	d, err := dsn.ParseDriver(driver)
	if err != nil {
		return dsn.ConnectionSpec{}, err
	}

	host, err := promptText("Host (e.g. localhost or 10.0.0.5:3306)", "localhost")
	if err != nil {
		return dsn.ConnectionSpec{}, err
	}
	user, err := promptText("User", "")
	if err != nil {
		return dsn.ConnectionSpec{}, err
	}
	password, err := promptSecret("Password")
	if err != nil {
		return dsn.ConnectionSpec{}, err
	}
	database, err := promptText("Database", "")
	if err != nil {
		return dsn.ConnectionSpec{}, err
	}
	return dsn.RemoteSpec(d, host, user, password, database), nil
}

// configure resolves spec and, for remote servers, verifies the connection.
func configure(ctx context.Context, a *app, spec dsn.ConnectionSpec) (*dsn.Handle, error) {
	h, err := a.conf.Configure(ctx, spec)
	if err != nil {
		return nil, err
	}
	if spec.Kind == dsn.Remote {
		stop := startInlineSpinner(os.Stdout, "verifying connection", stickFrames, 100*time.Millisecond)
		err := dsn.Ping(ctx, h, 10*time.Second)
		stop()
		if err != nil {
			a.conf.Evict(spec)
			_ = h.DB.Close()
			pterm.Error.Printfln("Could not reach %s. Check the host and credentials.", h.Driver.DisplayName())
			return nil, fmt.Errorf("connection check failed: %w", err)
		}
	}
	return h, nil
}

// localAgent wires the LLM client and SQL tools over h.
func localAgent(a *app, h *dsn.Handle) (*agent.SQLAgent, error) {
	key, err := resolveAPIKey()
	if err != nil {
		return nil, err
	}
	client, err := llm.New(llm.Config{
		APIKey:      key,
		Model:       a.cfg.LLM.Model,
		Streaming:   a.cfg.LLM.Streaming,
		BaseURL:     a.cfg.LLM.BaseURL,
		Temperature: a.cfg.LLM.Temperature,
		Timeout:     a.cfg.LLM.Timeout.Duration,
	})
	if err != nil {
		return nil, err
	}

	exec := sqlexec.New(h.DB, sqlexec.Dialect(h.Driver), a.log)
	exec.AllowWrites = a.cfg.Agent.AllowWrites
	if exec.AllowWrites {
		pterm.Warning.Println("Writes are enabled: the agent may modify your data.")
	}
	a.log.WithFields(logrus.Fields{"model": client.Model(), "source": h.Source}).Info("local agent ready")
	return agent.NewSQLAgent(client, exec,
		agent.WithMaxIterations(a.cfg.Agent.MaxIterations),
		agent.WithLogger(a.log),
	), nil
}

// resolveAPIKey looks in the environment, then the keychain, then asks.
func resolveAPIKey() (string, error) {
	for _, name := range []string{"SQLCHAT_API_KEY", "GROQ_API_KEY"} {
		if v := strings.TrimSpace(os.Getenv(name)); v != "" {
			return v, nil
		}
	}
	km, kerr := keychain.GetManager()
	if kerr == nil {
		if v, err := km.LoadAPIKey(); err == nil {
			return v, nil
		}
	}

	key, err := promptSecret("LLM API key")
	if err != nil {
		return "", err
	}
	if key == "" {
		return "", sqlerrors.New(sqlerrors.LLMInit, "An API key is required. Set GROQ_API_KEY or run 'sqlchat login'.")
	}
	if kerr == nil {
		if ok, _ := pterm.DefaultInteractiveConfirm.Show("Save the key in your keychain?"); ok {
			if err := km.SaveAPIKey(key); err != nil {
				pterm.Warning.Println("Could not save the key; it will be asked again next time.")
			}
		}
	}
	return key, nil
}

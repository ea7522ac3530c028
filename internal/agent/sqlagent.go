// Copyright (c) 2025 Sqlchat
// Licensed under the MIT License. See LICENSE file in the project root for details.

package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	sqlerrors "sqlchat/cli/internal/errors"
	"sqlchat/cli/internal/llm"
	"sqlchat/cli/internal/logging"
	"sqlchat/cli/internal/metrics"
	"sqlchat/cli/internal/sqlexec"
)

const (
	// DefaultMaxIterations bounds the reason-act loop.
	DefaultMaxIterations = 15
	// DefaultTopK is the row limit suggested to the model.
	DefaultTopK = 10

	// StoppedMessage is returned when the loop runs out of iterations.
	StoppedMessage = "Agent stopped due to iteration limit or time limit."
)

var dialectNames = map[sqlexec.Dialect]string{
	sqlexec.SQLite:   "SQLite",
	sqlexec.MySQL:    "MySQL",
	sqlexec.Postgres: "PostgreSQL",
}

// SQLAgent is a zero-shot reason-act agent over a SQL toolkit.
type SQLAgent struct {
	llm           llm.Completer
	tools         []Tool
	dialect       string
	allowWrites   bool
	maxIterations int
	topK          int
	log           *logrus.Entry
}

// Option customizes an SQLAgent.
type Option func(*SQLAgent)

// WithMaxIterations overrides the iteration limit.
func WithMaxIterations(n int) Option {
	return func(a *SQLAgent) {
		if n > 0 {
			a.maxIterations = n
		}
	}
}

// WithLogger sets the diagnostic logger.
func WithLogger(l *logrus.Entry) Option { return func(a *SQLAgent) { a.log = l } }

// WithTools replaces the toolset; used to add tools or stub them in tests.
func WithTools(tools ...Tool) Option { return func(a *SQLAgent) { a.tools = tools } }

// NewSQLAgent builds an agent whose tools run on exec. Writes follow
// exec.AllowWrites.
func NewSQLAgent(model llm.Completer, exec *sqlexec.Executor, opts ...Option) *SQLAgent {
	a := &SQLAgent{
		llm:           model,
		maxIterations: DefaultMaxIterations,
		topK:          DefaultTopK,
		log:           logging.Discard(),
	}
	if exec != nil {
		a.tools = SQLTools(exec)
		a.dialect = dialectNames[exec.Dialect]
		a.allowWrites = exec.AllowWrites
	}
	if a.dialect == "" {
		a.dialect = "SQL"
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Run asks the model until it gives a final answer or the iteration limit
// is reached. Model errors abort the run; malformed model output and tool
// errors are fed back as observations.
func (a *SQLAgent) Run(ctx context.Context, query string, observers ...StepObserver) (string, error) {
	obs := fanout(observers)
	var scratch strings.Builder

	for i := 0; i < a.maxIterations; i++ {
		if err := ctx.Err(); err != nil {
			return "", sqlerrors.Wrap(sqlerrors.AgentFailed, "agent cancelled", err)
		}

		prompt := buildPrompt(a.dialect, a.topK, a.allowWrites, a.tools, query, scratch.String())
		started := time.Now()
		resp, err := a.llm.Complete(ctx, llm.Request{
			Messages: []llm.Message{{Role: "user", Content: prompt}},
			Stop:     []string{observationStop},
		}, obs.delta)
		metrics.ObserveLLMRequest(time.Since(started), err)
		if err != nil {
			return "", sqlerrors.Wrap(sqlerrors.AgentFailed, "language model request failed", err)
		}
		metrics.ObserveAgentStep()

		text := truncateAtStop(resp.Text)
		st, perr := parseOutput(text)
		if perr == nil && st.IsFinal {
			obs.step(text)
			a.log.WithField("iterations", i+1).Debug("agent finished")
			return st.Final, nil
		}

		var observation string
		if perr != nil {
			observation = perr.Error()
			a.log.WithField("output", text).Debug("unparseable model output")
		} else {
			observation = a.callTool(ctx, st)
		}
		obs.step(text)
		obs.step("Observation: " + observation)

		scratch.WriteString(text)
		scratch.WriteString("\nObservation: ")
		scratch.WriteString(observation)
		scratch.WriteString("\nThought:")
	}

	a.log.WithField("limit", a.maxIterations).Info("agent hit iteration limit")
	return StoppedMessage, nil
}

func (a *SQLAgent) callTool(ctx context.Context, st step) string {
	for _, t := range a.tools {
		if t.Name != st.Action {
			continue
		}
		out, err := t.Run(ctx, st.ActionInput)
		metrics.ObserveToolCall(t.Name, err)
		if err != nil {
			a.log.WithError(err).WithField("tool", t.Name).Debug("tool returned error")
			return "Error: " + err.Error()
		}
		return out
	}
	names := make([]string, len(a.tools))
	for i, t := range a.tools {
		names[i] = t.Name
	}
	return fmt.Sprintf("%s is not a valid tool, try one of [%s].", st.Action, strings.Join(names, ", "))
}

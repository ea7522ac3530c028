// Copyright (c) 2025 Sqlchat
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package chat runs the interactive question/answer loop: it forwards each
// question to an agent.Gateway, classifies the answer, renders it and keeps
// the transcript.
package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/pterm/pterm"
	"github.com/sirupsen/logrus"

	"sqlchat/cli/internal/agent"
	"sqlchat/cli/internal/httperrors"
	"sqlchat/cli/internal/logging"
	"sqlchat/cli/internal/metrics"
	"sqlchat/cli/internal/response"
	"sqlchat/cli/internal/terminal"
	"sqlchat/cli/internal/transcript"
)

// ErrExit is returned by Handle when the user asks to leave.
var ErrExit = errors.New("exit requested")

// StepView shows the agent's intermediate steps during one turn.
type StepView interface {
	agent.StepObserver
	Close()
}

type nopView struct{}

func (nopView) OnStep(string) {}
func (nopView) Close()        {}

// Session is one chat conversation.
type Session struct {
	ID string

	gateway   agent.Gateway
	interp    *response.Interpreter
	store     *transcript.Store
	out       io.Writer
	newView   func() StepView
	clear     func(io.Writer)
	exportDir string
	log       *logrus.Entry

	last *response.Table
}

// Option customizes a Session.
type Option func(*Session)

// WithOutput redirects everything the session prints.
func WithOutput(w io.Writer) Option { return func(s *Session) { s.out = w } }

// WithLogger sets the diagnostic logger; the session ID is attached to it.
func WithLogger(l *logrus.Entry) Option { return func(s *Session) { s.log = l } }

// WithStepView sets the factory for per-turn step views.
func WithStepView(f func() StepView) Option { return func(s *Session) { s.newView = f } }

// WithScreenClearer replaces the /clear screen wipe.
func WithScreenClearer(f func(io.Writer)) Option { return func(s *Session) { s.clear = f } }

// WithExportDir anchors relative /export paths.
func WithExportDir(dir string) Option { return func(s *Session) { s.exportDir = dir } }

// New starts a session with a fresh transcript.
func New(gw agent.Gateway, opts ...Option) *Session {
	s := &Session{
		ID:      uuid.NewString(),
		gateway: gw,
		store:   transcript.New(),
		out:     os.Stdout,
		newView: func() StepView { return nopView{} },
		clear:   terminal.ClearScreen,
		log:     logging.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.WithField("session", s.ID)
	s.interp = response.NewInterpreter(s.log)
	return s
}

// Transcript exposes the session history.
func (s *Session) Transcript() *transcript.Store { return s.store }

// LastTable returns the most recent tabular answer, or nil.
func (s *Session) LastTable() *response.Table { return s.last }

// Greet prints the current transcript, which for a new session is the greeting.
func (s *Session) Greet() {
	for _, e := range s.store.All() {
		s.printEntry(e)
	}
}

// Handle processes one line of input: a slash command or a question.
// It returns ErrExit when the session should end. Agent failures are shown
// to the user and do not end the session.
func (s *Session) Handle(ctx context.Context, line string) error {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}
	if strings.HasPrefix(line, "/") {
		return s.command(line)
	}
	_, _ = s.Turn(ctx, line)
	return nil
}

// Turn asks the gateway one question. On success the answer is interpreted,
// rendered and appended to the transcript. On failure an error is shown and
// nothing is appended for the assistant.
func (s *Session) Turn(ctx context.Context, query string) (response.Result, error) {
	s.store.Append(transcript.Entry{Role: transcript.User, Content: query})
	s.log.WithField("chars", len(query)).Debug("turn started")

	view := s.newView()
	answer, err := s.gateway.Run(ctx, query, view)
	view.Close()
	if err != nil {
		metrics.ObserveTurn("error")
		s.log.WithError(err).Warn("agent failed")
		s.showAgentError(err)
		return response.Result{}, err
	}

	res := s.interp.Interpret(answer)
	if err := response.Render(s.out, res); err != nil {
		s.log.WithError(err).Debug("render failed; printing raw answer")
		fmt.Fprintln(s.out, res.Raw)
	}
	s.store.Append(transcript.Entry{Role: transcript.Assistant, Content: answer})
	if res.Kind == response.Tabular {
		s.last = res.Table
	}
	metrics.ObserveTurn(res.Kind.String())
	s.log.WithField("kind", res.Kind.String()).Debug("turn finished")
	return res, nil
}

func (s *Session) showAgentError(err error) {
	if httperrors.Classify(err) != httperrors.Generic {
		title, lines := httperrors.Describe(err, "answering your question", "")
		fmt.Fprintln(s.out, pterm.Red(title))
		for _, l := range lines {
			fmt.Fprintln(s.out, l)
		}
		return
	}
	fmt.Fprintln(s.out, logging.FormatAgentError(err.Error()))
}

func (s *Session) command(line string) error {
	fields := strings.Fields(line)
	switch strings.ToLower(fields[0]) {
	case "/exit", "/quit":
		return ErrExit
	case "/clear":
		s.store.Reset()
		s.last = nil
		s.clear(s.out)
		s.Greet()
	case "/history":
		for _, e := range s.store.All() {
			s.printEntry(e)
		}
	case "/export":
		path := response.DefaultExportFile
		if len(fields) > 1 {
			path = strings.Join(fields[1:], " ")
		}
		s.export(path)
	case "/help":
		s.help()
	default:
		pterm.Warning.WithWriter(s.out).Printfln("Unknown command %s", fields[0])
		s.help()
	}
	return nil
}

func (s *Session) export(path string) {
	if s.last == nil {
		pterm.Warning.WithWriter(s.out).Println("No table to export yet. Ask a question that returns rows first.")
		return
	}
	if !filepath.IsAbs(path) && s.exportDir != "" {
		path = filepath.Join(s.exportDir, path)
	}
	if err := response.ExportFile(path, s.last); err != nil {
		pterm.Error.WithWriter(s.out).Println(logging.PresentError("export failed", err))
		return
	}
	pterm.Success.WithWriter(s.out).Printfln("Saved %d rows to %s", len(s.last.Rows), path)
}

func (s *Session) printEntry(e transcript.Entry) {
	label := pterm.Cyan("you")
	if e.Role == transcript.Assistant {
		label = pterm.Green("assistant")
	}
	fmt.Fprintf(s.out, "%s: %s\n", label, e.Content)
}

func (s *Session) help() {
	fmt.Fprintln(s.out, pterm.Gray("/clear  start over    /history  show the conversation"))
	fmt.Fprintln(s.out, pterm.Gray("/export [file]  save the last table as CSV    /exit  quit"))
}

// Loop reads lines from next until it returns an error or the user exits.
// io.EOF from next ends the loop cleanly.
func (s *Session) Loop(ctx context.Context, next func() (string, error)) error {
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		line, err := next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := s.Handle(ctx, line); errors.Is(err, ErrExit) {
			return nil
		}
	}
}

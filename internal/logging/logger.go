// Copyright (c) 2025 Sqlchat
// Licensed under the MIT License. See LICENSE file in the project root for details.

package logging

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"sqlchat/cli/internal/xdg"
)

// LogFileName is the diagnostic log written under the XDG state directory.
const LogFileName = "sqlchat.log"

// Options configures the diagnostic logger.
type Options struct {
	Level     string
	Verbose   bool
	SessionID string
}

// maskHook scrubs secrets from the message and every string field before a
// line is formatted.
type maskHook struct{}

func (maskHook) Levels() []logrus.Level { return logrus.AllLevels }

func (maskHook) Fire(e *logrus.Entry) error {
	e.Message = Mask(e.Message)
	for k, v := range e.Data {
		if s, ok := v.(string); ok {
			e.Data[k] = Mask(s)
		}
	}
	return nil
}

// NewLogger builds a logger writing to w. Unknown levels fall back to info.
func NewLogger(w io.Writer, opts Options) *logrus.Logger {
	if w == nil {
		w = io.Discard
	}
	log := logrus.New()
	log.SetOutput(w)
	log.SetFormatter(&logrus.TextFormatter{
		DisableColors:   true,
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	level, err := logrus.ParseLevel(strings.TrimSpace(opts.Level))
	if err != nil {
		level = logrus.InfoLevel
	}
	if opts.Verbose && level < logrus.DebugLevel {
		level = logrus.DebugLevel
	}
	log.SetLevel(level)
	log.AddHook(maskHook{})
	return log
}

// Open creates the file-backed logger used by the commands. With Verbose the
// output is mirrored to stderr. The returned closer must be called on exit.
func Open(opts Options) (*logrus.Entry, func() error, error) {
	dir, err := xdg.StateDir()
	if err != nil {
		return nil, nil, err
	}
	f, err := os.OpenFile(filepath.Join(dir, LogFileName), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, nil, err
	}
	var w io.Writer = f
	if opts.Verbose {
		w = io.MultiWriter(f, os.Stderr)
	}
	entry := NewLogger(w, opts).WithField("session", opts.SessionID)
	return entry, f.Close, nil
}

// Discard returns a logger that drops everything; handy as a default.
func Discard() *logrus.Entry {
	return logrus.NewEntry(NewLogger(io.Discard, Options{}))
}

// Package errors defines typed errors with categories for user-friendly reporting.
// Every failure that can halt a chat session or a seeding run carries a Kind so
// the command layer can decide what to print without matching on message text.
//
// The package supports wrapping underlying errors while maintaining error kind information.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Kind is a machine-readable error category.
type Kind string

const (
	// MissingResource indicates the local database file does not exist.
	MissingResource Kind = "missing_resource"
	// IncompleteCredentials indicates one or more remote connection fields are empty.
	IncompleteCredentials Kind = "incomplete_credentials"
	// MalformedHost indicates the remote host contains a forbidden character.
	MalformedHost Kind = "malformed_host"
	// UnsupportedDriver indicates a remote driver we cannot open.
	UnsupportedDriver Kind = "unsupported_driver"
	// LLMInit indicates the language-model client could not be constructed.
	LLMInit Kind = "llm_init"
	// ResponseParse is raised inside the response interpreter and always recovered.
	ResponseParse Kind = "response_parse"
	// AgentFailed indicates the agent gateway could not produce an answer.
	AgentFailed Kind = "agent_failed"
)

// E wraps an error with kind and human-friendly message.
type E struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *E) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *E) Unwrap() error { return e.Err }

func Wrap(kind Kind, msg string, err error) *E { return &E{Kind: kind, Message: msg, Err: err} }
func New(kind Kind, msg string) *E             { return &E{Kind: kind, Message: msg} }

// KindOf returns the Kind of the first *E in err's chain, or "" if there is none.
func KindOf(err error) Kind {
	var e *E
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Copyright (c) 2025 Sqlchat
// Licensed under the MIT License. See LICENSE file in the project root for details.

package dsn

import "fmt"

// ParseError represents an error that occurred while parsing a connection URI.
type ParseError struct {
	URI    string
	Reason string
	Hint   string
}

func (e *ParseError) Error() string {
	if e.Hint != "" {
		return fmt.Sprintf("invalid connection URI: %s\nHint: %s", e.Reason, e.Hint)
	}
	return fmt.Sprintf("invalid connection URI: %s", e.Reason)
}

// NewParseError creates a new ParseError
func NewParseError(uri, reason, hint string) *ParseError {
	return &ParseError{
		URI:    uri,
		Reason: reason,
		Hint:   hint,
	}
}

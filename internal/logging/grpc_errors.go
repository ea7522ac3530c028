// Copyright (c) 2025 Sqlchat
// Licensed under the MIT License. See LICENSE file in the project root for details.

package logging

import (
	"strings"

	"github.com/pterm/pterm"
)

// GRPCErrorType represents the category of gRPC error
type GRPCErrorType int

const (
	GRPCErrorUnknown GRPCErrorType = iota
	GRPCErrorNetwork
	GRPCErrorAuth
	GRPCErrorTimeout
	GRPCErrorInternal
	GRPCErrorUnavailable
)

// ParseGRPCError categorizes a gRPC error message
func ParseGRPCError(errMsg string) GRPCErrorType {
	lower := strings.ToLower(errMsg)

	if strings.Contains(lower, "rst_stream") || strings.Contains(lower, "connection reset") {
		return GRPCErrorNetwork
	}
	if strings.Contains(lower, "internal") {
		return GRPCErrorInternal
	}
	if strings.Contains(lower, "unavailable") {
		return GRPCErrorUnavailable
	}
	if strings.Contains(lower, "deadline") || strings.Contains(lower, "timeout") {
		return GRPCErrorTimeout
	}
	if strings.Contains(lower, "unauthenticated") || strings.Contains(lower, "unauthorized") || strings.Contains(lower, "permissiondenied") {
		return GRPCErrorAuth
	}

	return GRPCErrorUnknown
}

// FormatAgentError formats a remote agent failure in a user-friendly way
func FormatAgentError(errMsg string) string {
	var builder strings.Builder

	builder.WriteString(pterm.NewStyle(pterm.FgRed, pterm.Bold).Sprint("Agent request failed"))
	builder.WriteString("\n\n")

	switch ParseGRPCError(errMsg) {
	case GRPCErrorNetwork:
		builder.WriteString("The connection to the agent service was interrupted.\n")
	case GRPCErrorInternal:
		builder.WriteString("The agent service hit an internal error while answering.\n")
	case GRPCErrorUnavailable:
		builder.WriteString("The agent service is currently unavailable.\n")
	case GRPCErrorTimeout:
		builder.WriteString("The agent service did not answer in time.\n")
	case GRPCErrorAuth:
		builder.WriteString("The agent service rejected our credentials.\n")
	default:
		builder.WriteString("The question could not be answered.\n")
	}

	builder.WriteString(pterm.NewStyle(pterm.FgYellow).Sprint("→ Ask again, or type /exit to leave"))
	builder.WriteString("\n")

	if strings.TrimSpace(errMsg) != "" {
		builder.WriteString("\n")
		builder.WriteString(pterm.NewStyle(pterm.FgGray).Sprint("Technical details: " + Mask(errMsg)))
	}

	return builder.String()
}

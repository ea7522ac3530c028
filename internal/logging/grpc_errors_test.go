// Copyright (c) 2025 Sqlchat
// Licensed under the MIT License. See LICENSE file in the project root for details.

package logging

import (
	"strings"
	"testing"
)

func TestParseGRPCError(t *testing.T) {
	tests := []struct {
		msg  string
		want GRPCErrorType
	}{
		{"rpc error: code = Unavailable desc = connection error", GRPCErrorUnavailable},
		{"rpc error: code = DeadlineExceeded desc = context deadline exceeded", GRPCErrorTimeout},
		{"rpc error: code = Unauthenticated desc = bad token", GRPCErrorAuth},
		{"rpc error: code = Internal desc = stream terminated by RST_STREAM", GRPCErrorNetwork},
		{"rpc error: code = Internal desc = boom", GRPCErrorInternal},
		{"something else", GRPCErrorUnknown},
	}
	for _, tt := range tests {
		if got := ParseGRPCError(tt.msg); got != tt.want {
			t.Errorf("ParseGRPCError(%q) = %v, want %v", tt.msg, got, tt.want)
		}
	}
}

func TestFormatAgentErrorMasksDetails(t *testing.T) {
	out := FormatAgentError("dial mysql://root:hunter2@db/school: timeout")
	if strings.Contains(out, "hunter2") {
		t.Errorf("secret leaked into %q", out)
	}
	if !strings.Contains(out, "did not answer in time") {
		t.Errorf("expected timeout wording, got %q", out)
	}
}

package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	base := stderrors.New("boom")
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, ""},
		{"plain", base, ""},
		{"direct", New(MalformedHost, "bad host"), MalformedHost},
		{"wrapped by fmt", fmt.Errorf("configure: %w", Wrap(LLMInit, "client", base)), LLMInit},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestErrorMessageAndUnwrap(t *testing.T) {
	base := stderrors.New("no such file")
	err := Wrap(MissingResource, "student.db not found", base)

	if got, want := err.Error(), "missing_resource: student.db not found: no such file"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !stderrors.Is(err, base) {
		t.Error("expected wrapped error to unwrap to base")
	}
	if !Is(err, MissingResource) || Is(err, MalformedHost) {
		t.Error("Is() reported the wrong kind")
	}
	if got, want := New(IncompleteCredentials, "missing host").Error(), "incomplete_credentials: missing host"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

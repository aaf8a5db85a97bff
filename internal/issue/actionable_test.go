// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"errors"
	"strings"
	"testing"
)

func TestActionableError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *ActionableError
		expected string
	}{
		{
			name: "operation only",
			err: &ActionableError{
				Operation: "read version file",
			},
			expected: "failed to read version file",
		},
		{
			name: "operation with resource",
			err: &ActionableError{
				Operation: "read version file",
				Resource:  "./VERSION",
			},
			expected: "failed to read version file: ./VERSION",
		},
		{
			name: "operation with cause",
			err: &ActionableError{
				Operation: "build image",
				Cause:     errors.New("daemon not reachable"),
			},
			expected: "failed to build image: daemon not reachable",
		},
		{
			name: "full context",
			err: &ActionableError{
				Operation: "read version file",
				Resource:  "./VERSION",
				Cause:     errors.New("file not found"),
			},
			expected: "failed to read version file: ./VERSION: file not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestActionableError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := &ActionableError{
		Operation: "encrypt database",
		Cause:     cause,
	}

	if !errors.Is(err, cause) {
		t.Error("errors.Is should find the wrapped cause")
	}
}

func TestActionableError_Format(t *testing.T) {
	err := &ActionableError{
		Operation:   "pin to IPFS",
		Resource:    "db.libsql.pgp",
		Suggestions: []string{"Set PINATA_API_KEY", "Set PINATA_API_SECRET"},
		Cause:       errors.New("401 unauthorized"),
	}

	got := err.Format(false)
	if !strings.Contains(got, "failed to pin to IPFS: db.libsql.pgp: 401 unauthorized") {
		t.Errorf("Format(false) missing main message: %q", got)
	}
	if !strings.Contains(got, "• Set PINATA_API_KEY") {
		t.Errorf("Format(false) missing suggestion: %q", got)
	}
	if strings.Contains(got, "Error chain") {
		t.Errorf("Format(false) should not include the error chain: %q", got)
	}

	verbose := err.Format(true)
	if !strings.Contains(verbose, "Error chain:") {
		t.Errorf("Format(true) missing error chain: %q", verbose)
	}
	if !strings.Contains(verbose, "1. 401 unauthorized") {
		t.Errorf("Format(true) missing chain entry: %q", verbose)
	}
}

func TestErrorContext_Build(t *testing.T) {
	cause := errors.New("boom")
	ae := NewErrorContext().
		WithOperation("export image").
		WithResource("refiner:1.2.3").
		WithSuggestion("Check the build stage succeeded").
		Wrap(cause).
		Build()

	if ae == nil {
		t.Fatal("Build() returned nil for a context with an operation")
	}
	if ae.Operation != "export image" {
		t.Errorf("Operation = %q", ae.Operation)
	}
	if ae.Resource != "refiner:1.2.3" {
		t.Errorf("Resource = %q", ae.Resource)
	}
	if !ae.HasSuggestions() {
		t.Error("expected suggestions")
	}
	if !errors.Is(ae, cause) {
		t.Error("cause not wrapped")
	}
}

func TestErrorContext_Build_RequiresOperation(t *testing.T) {
	if got := NewErrorContext().WithResource("x").Build(); got != nil {
		t.Errorf("Build() without operation = %v, want nil", got)
	}
	if got := NewErrorContext().BuildError(); got != nil {
		t.Errorf("BuildError() without operation = %v, want nil", got)
	}
}

func TestWrapWithOperation(t *testing.T) {
	if got := WrapWithOperation(nil, "anything"); got != nil {
		t.Errorf("WrapWithOperation(nil) = %v, want nil", got)
	}

	cause := errors.New("boom")
	ae := WrapWithOperation(cause, "create release")
	if ae == nil {
		t.Fatal("WrapWithOperation returned nil")
	}
	if ae.Error() != "failed to create release: boom" {
		t.Errorf("Error() = %q", ae.Error())
	}
}

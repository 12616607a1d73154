package client

import (
	"errors"
	"testing"
)

func TestExitCodes(t *testing.T) {
	tests := []struct {
		name     string
		expected int
		actual   int
	}{
		{"ExitSuccess", 0, ExitSuccess},
		{"ExitGeneralError", 1, ExitGeneralError},
		{"ExitConfigError", 2, ExitConfigError},
		{"ExitConnError", 3, ExitConnError},
		{"ExitNotFound", 5, ExitNotFound},
		{"ExitUnavailable", 6, ExitUnavailable},
		{"ExitUsageError", 64, ExitUsageError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.actual != tt.expected {
				t.Errorf("Expected %s to be %d, got %d", tt.name, tt.expected, tt.actual)
			}
		})
	}
}

func TestErrorConstructors(t *testing.T) {
	tests := []struct {
		name string
		err  *ExitError
		code int
	}{
		{"config", NewConfigError("config not found"), ExitConfigError},
		{"connection", NewConnectionError("connection refused"), ExitConnError},
		{"not found", NewNotFoundError("no such place"), ExitNotFound},
		{"unavailable", NewUnavailableError("upstream down"), ExitUnavailable},
		{"usage", NewUsageError("bad flag"), ExitUsageError},
		{"api", NewAPIError("server error"), ExitGeneralError},
		{"custom", NewExitError("custom error", 99), 99},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.code {
				t.Errorf("Code = %d, want %d", tt.err.Code, tt.code)
			}
			if tt.err.Error() != tt.err.Message {
				t.Errorf("Error() = %q, want %q", tt.err.Error(), tt.err.Message)
			}

			var exitErr *ExitError
			if !errors.As(error(tt.err), &exitErr) {
				t.Error("errors.As failed")
			}
		})
	}
}

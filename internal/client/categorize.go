package client

import (
	"context"
	"errors"
	"net"
	"strings"
)

// ErrorCategory is a stable label for error classification in metrics.
type ErrorCategory string

// Error category constants used as the uploadErrorsTotal category label.
const (
	ErrorCategoryTimeout        ErrorCategory = "timeout"
	ErrorCategoryNetwork        ErrorCategory = "network"
	ErrorCategoryUpstreamStatus ErrorCategory = "upstream_status"
	ErrorCategoryRejected       ErrorCategory = "rejected"
	ErrorCategoryCredentials    ErrorCategory = "credentials"
	ErrorCategoryUnknown        ErrorCategory = "unknown"
)

// CategorizeError maps an upload error to a stable ErrorCategory for metrics.
func CategorizeError(err error) ErrorCategory {
	if err == nil {
		return ""
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return ErrorCategoryTimeout
	}
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return ErrorCategoryTimeout
	}

	switch {
	case errors.Is(err, ErrRejected):
		return ErrorCategoryRejected
	case errors.Is(err, ErrUpstreamStatus):
		return ErrorCategoryUpstreamStatus
	case errors.Is(err, ErrInvalidCredentials):
		return ErrorCategoryCredentials
	}

	// Transport errors are flattened to text to keep the password out of
	// messages, so timeouts are recognized by wording.
	errStr := err.Error()
	if strings.Contains(errStr, "Client.Timeout") || strings.Contains(errStr, "deadline exceeded") ||
		strings.Contains(errStr, "timeout") {
		return ErrorCategoryTimeout
	}
	if errors.Is(err, ErrTransport) {
		return ErrorCategoryNetwork
	}
	if strings.Contains(errStr, "connection") || strings.Contains(errStr, "network") {
		return ErrorCategoryNetwork
	}

	return ErrorCategoryUnknown
}

package observability

import (
	"context"
	"errors"
	"fmt"
	"syscall"

	"go.uber.org/zap"
)

// FlushTelemetry flushes log buffers before process exit. Prometheus is
// pull-based, so there is nothing to push.
func FlushTelemetry(ctx context.Context, logger *zap.Logger) error {
	if logger == nil {
		return nil
	}
	if err := logger.Sync(); err != nil && !isUnsyncableStream(err) {
		return fmt.Errorf("flush logs: %w", err)
	}
	return nil
}

// isUnsyncableStream reports the errors fsync returns for terminals and pipes,
// which zap surfaces when logging to stderr.
func isUnsyncableStream(err error) bool {
	return errors.Is(err, syscall.EINVAL) || errors.Is(err, syscall.ENOTTY)
}

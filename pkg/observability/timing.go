package observability

import (
	"context"
	"log/slog"
	"time"
)

// Timer measures one operation and reports it on Stop.
type Timer struct {
	operation string
	start     time.Time
	logger    *slog.Logger
	metrics   Metrics
	tags      []Tag
}

// StartTimer starts timing operation. A nil logger or metrics disables that output.
func StartTimer(operation string, logger *slog.Logger, metrics Metrics, tags ...Tag) *Timer {
	return &Timer{
		operation: operation,
		start:     time.Now(),
		logger:    logger,
		metrics:   metrics,
		tags:      append(tags, T("operation", operation)),
	}
}

// Stop records the duration and outcome of the operation.
func (t *Timer) Stop(ctx context.Context, err error) time.Duration {
	d := time.Since(t.start)

	if t.logger != nil {
		if err != nil {
			t.logger.ErrorContext(ctx, "operation failed",
				"operation", t.operation,
				"duration_ms", d.Milliseconds(),
				"error", err,
			)
		} else {
			t.logger.DebugContext(ctx, "operation completed",
				"operation", t.operation,
				"duration_ms", d.Milliseconds(),
			)
		}
	}

	if t.metrics != nil {
		t.metrics.Timing(MetricOperationDuration, d, t.tags...)
		t.metrics.Counter(MetricOperationTotal, 1, t.tags...)
		if err != nil {
			t.metrics.Counter(MetricOperationErrors, 1, t.tags...)
		}
	}
	return d
}

// TimeOperation times fn.
func TimeOperation(ctx context.Context, logger *slog.Logger, metrics Metrics, operation string, fn func() error) error {
	timer := StartTimer(operation, logger, metrics)
	err := fn()
	timer.Stop(ctx, err)
	return err
}

// TimeOperationResult times fn and passes its result through.
func TimeOperationResult[T any](ctx context.Context, logger *slog.Logger, metrics Metrics, operation string, fn func() (T, error)) (T, error) {
	timer := StartTimer(operation, logger, metrics)
	result, err := fn()
	timer.Stop(ctx, err)
	return result, err
}

package observability

import (
	"context"

	"github.com/google/uuid"
)

// Attribute keys added to log records from the context.
const (
	CorrelationIDKey = "correlation_id"
	UnitOfWorkIDKey  = "unit_of_work_id"
)

type (
	correlationIDKey struct{}
	unitOfWorkIDKey  struct{}
)

// WithCorrelationID adds a correlation ID to the context.
// If id is empty, a new UUID is generated.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	if id == "" {
		id = uuid.NewString()
	}
	return context.WithValue(ctx, correlationIDKey{}, id)
}

// CorrelationIDFromContext extracts the correlation ID from context.
func CorrelationIDFromContext(ctx context.Context) string {
	return stringValue(ctx, correlationIDKey{})
}

// WithUnitOfWorkID records the unit of work a context runs in.
func WithUnitOfWorkID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, unitOfWorkIDKey{}, id)
}

// UnitOfWorkIDFromContext returns the id stored by WithUnitOfWorkID.
func UnitOfWorkIDFromContext(ctx context.Context) string {
	return stringValue(ctx, unitOfWorkIDKey{})
}

func stringValue(ctx context.Context, key any) string {
	if ctx == nil {
		return ""
	}
	s, _ := ctx.Value(key).(string)
	return s
}

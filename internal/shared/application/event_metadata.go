package application

import (
	"context"

	"github.com/felixgeelhaar/keystone/internal/shared/domain"
	"github.com/felixgeelhaar/keystone/pkg/observability"
	"github.com/google/uuid"
)

// NewEventMetadata creates operation-scoped metadata for domain events.
// The correlation ID is taken from ctx when it holds a valid UUID.
func NewEventMetadata(ctx context.Context) domain.EventMetadata {
	correlationID, err := uuid.Parse(observability.CorrelationIDFromContext(ctx))
	if err != nil {
		correlationID = uuid.New()
	}
	return domain.EventMetadata{
		CorrelationID: correlationID,
		CausationID:   uuid.New(),
	}
}

// ApplyEventMetadata sets metadata on envelopes that do not carry any yet.
func ApplyEventMetadata(envelopes []*domain.Envelope, metadata domain.EventMetadata) {
	for _, env := range envelopes {
		if env.Metadata == (domain.EventMetadata{}) {
			env.Metadata = metadata
		}
	}
}

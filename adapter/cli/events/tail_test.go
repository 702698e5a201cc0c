package events

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/felixgeelhaar/keystone/internal/shared/infrastructure/eventbus"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func message() *eventbus.Message {
	return &eventbus.Message{
		EventID:       uuid.New(),
		AggregateType: "number",
		AggregateID:   "n-1",
		Version:       2,
		RoutingKey:    "number.value_added",
		OccurredAt:    time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC),
		Payload:       json.RawMessage(`{"value":4}`),
	}
}

func TestPrinter_Text(t *testing.T) {
	var out bytes.Buffer
	p := newPrinter(&out, nil, false)

	assert.Equal(t, []string{eventbus.AllEvents}, p.EventTypes())
	require.NoError(t, p.Handle(context.Background(), message()))
	assert.Equal(t, "15:04:05.000 number/n-1 v2 number.value_added {\"value\":4}\n", out.String())
}

func TestPrinter_JSON(t *testing.T) {
	var out bytes.Buffer
	p := newPrinter(&out, []string{"number.value_added"}, true)

	assert.Equal(t, []string{"number.value_added"}, p.EventTypes())
	msg := message()
	require.NoError(t, p.Handle(context.Background(), msg))

	var decoded eventbus.Message
	require.NoError(t, json.Unmarshal(out.Bytes(), &decoded))
	assert.Equal(t, msg.EventID, decoded.EventID)
	assert.Equal(t, msg.RoutingKey, decoded.RoutingKey)
}

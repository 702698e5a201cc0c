package eventbus_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/felixgeelhaar/keystone/internal/shared/domain"
	"github.com/felixgeelhaar/keystone/internal/shared/infrastructure/eventbus"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type valueAdded struct {
	Value int `json:"value"`
}

func (valueAdded) SchemaName() string { return "number.value_added" }

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, msg *eventbus.Message) error {
	return m.Called(ctx, msg).Error(0)
}

func (m *mockPublisher) Close() error {
	return m.Called().Error(0)
}

func envelope(version domain.Version, value int) domain.Envelope {
	return domain.Envelope{
		EventID:       uuid.New(),
		AggregateType: "number",
		AggregateID:   "n-1",
		Version:       version,
		OccurredAt:    time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC),
		Event:         valueAdded{Value: value},
		Metadata:      domain.EventMetadata{CorrelationID: uuid.New()},
	}
}

func TestNewMessage(t *testing.T) {
	env := envelope(2, 5)

	msg, err := eventbus.NewMessage(env)
	require.NoError(t, err)

	assert.Equal(t, env.EventID, msg.EventID)
	assert.Equal(t, "number", msg.AggregateType)
	assert.Equal(t, "n-1", msg.AggregateID)
	assert.Equal(t, uint64(2), msg.Version)
	assert.Equal(t, "number.value_added", msg.RoutingKey)
	assert.JSONEq(t, `{"value":5}`, string(msg.Payload))
	assert.Equal(t, env.Metadata.CorrelationID.String(), msg.Metadata.CorrelationID)
	assert.Empty(t, msg.Metadata.CausationID)

	_, err = eventbus.NewMessage(domain.Envelope{})
	require.ErrorIs(t, err, domain.ErrContractViolation)
}

func TestInProcessSink_Deliver(t *testing.T) {
	sink := eventbus.NewInProcessSink(testLogger())
	consumer := &mockConsumer{eventTypes: []string{"number.value_added"}}
	failing := &mockConsumer{eventTypes: []string{"number.value_added"}, err: errors.New("projection down")}
	sink.RegisterConsumer(consumer)
	sink.RegisterConsumer(failing)

	err := sink.Deliver(context.Background(), []domain.Envelope{envelope(2, 5), envelope(3, 7)})
	require.NoError(t, err)

	require.Len(t, consumer.messages, 2)
	assert.Equal(t, uint64(2), consumer.messages[0].Version)
	assert.Equal(t, uint64(3), consumer.messages[1].Version)
	assert.Len(t, failing.messages, 2)
}

func TestBrokerSink_Deliver(t *testing.T) {
	publisher := new(mockPublisher)
	var published []*eventbus.Message
	publisher.On("Publish", mock.Anything, mock.MatchedBy(func(msg *eventbus.Message) bool {
		return msg.RoutingKey == "number.value_added"
	})).
		Run(func(args mock.Arguments) { published = append(published, args.Get(1).(*eventbus.Message)) }).
		Return(nil)

	sink := eventbus.NewBrokerSink(publisher, testLogger())
	require.NoError(t, sink.Deliver(context.Background(), []domain.Envelope{envelope(2, 5), envelope(3, 7)}))

	require.Len(t, published, 2)
	assert.Equal(t, uint64(3), published[1].Version)
	assert.JSONEq(t, `{"value":7}`, string(published[1].Payload))
	publisher.AssertNumberOfCalls(t, "Publish", 2)
}

func TestBrokerSink_StopsAtFirstFailure(t *testing.T) {
	publisher := new(mockPublisher)
	publisher.On("Publish", mock.Anything, mock.Anything).Return(errors.New("channel closed")).Once()

	sink := eventbus.NewBrokerSink(publisher, testLogger())
	err := sink.Deliver(context.Background(), []domain.Envelope{envelope(2, 5), envelope(3, 7)})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "channel closed")
	publisher.AssertNumberOfCalls(t, "Publish", 1)
}

func TestNoopPublisher(t *testing.T) {
	p := eventbus.NewNoopPublisher(testLogger())
	assert.NoError(t, p.Publish(context.Background(), &eventbus.Message{RoutingKey: "number.created"}))
	assert.NoError(t, p.Close())
}

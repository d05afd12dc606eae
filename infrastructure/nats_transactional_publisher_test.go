package infrastructure

import (
	"context"
	"errors"
	"testing"

	"lottoengine/domain/events"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockEventPublisher records published events and fails on selected event types
type MockEventPublisher struct {
	PublishedEvents []events.Event
	FailOn          events.EventType
}

func (m *MockEventPublisher) Publish(event events.Event) error {
	if m.FailOn != "" && event.Type() == m.FailOn {
		return errors.New("nats unavailable")
	}
	m.PublishedEvents = append(m.PublishedEvents, event)
	return nil
}

func TestNATSTransactionalPublisher_FlushPublishesInOrder(t *testing.T) {
	t.Parallel()

	mockPublisher := &MockEventPublisher{}
	transPublisher := NewNATSTransactionalPublisher(mockPublisher)

	drawID := uuid.New()
	queued := []events.Event{
		events.DrawExecutedEvent{TenantID: 1, DrawID: drawID},
		events.DrawSettledEvent{TenantID: 1, DrawID: drawID, AwardsCreated: 2},
	}
	for _, e := range queued {
		require.NoError(t, transPublisher.Publish(e))
	}

	// nothing leaves before commit
	assert.Empty(t, mockPublisher.PublishedEvents)
	assert.Equal(t, 2, transPublisher.Pending())

	require.NoError(t, transPublisher.Flush(context.Background()))
	assert.Equal(t, queued, mockPublisher.PublishedEvents)
	assert.Zero(t, transPublisher.Pending())

	// a second flush publishes nothing again
	require.NoError(t, transPublisher.Flush(context.Background()))
	assert.Len(t, mockPublisher.PublishedEvents, 2)
}

func TestNATSTransactionalPublisher_FailedEventIsSkipped(t *testing.T) {
	t.Parallel()

	mockPublisher := &MockEventPublisher{FailOn: events.EventTypeTicketClaimed}
	transPublisher := NewNATSTransactionalPublisher(mockPublisher)

	eventID := uuid.New()
	require.NoError(t, transPublisher.Publish(events.TicketClaimedEvent{EventID: eventID}))
	require.NoError(t, transPublisher.Publish(events.ClaimEventSoldOutEvent{EventID: eventID}))

	require.NoError(t, transPublisher.Flush(context.Background()))
	assert.Equal(t, []events.Event{events.ClaimEventSoldOutEvent{EventID: eventID}}, mockPublisher.PublishedEvents)
}

func TestNATSTransactionalPublisher_Discard(t *testing.T) {
	t.Parallel()

	mockPublisher := &MockEventPublisher{}
	transPublisher := NewNATSTransactionalPublisher(mockPublisher)

	require.NoError(t, transPublisher.Publish(events.DrawCreatedEvent{DrawID: uuid.New()}))
	transPublisher.Discard()

	require.NoError(t, transPublisher.Flush(context.Background()))
	assert.Empty(t, mockPublisher.PublishedEvents)
}

func TestNATSTransactionalPublisher_FlushAfterContextDone(t *testing.T) {
	t.Parallel()

	mockPublisher := &MockEventPublisher{}
	transPublisher := NewNATSTransactionalPublisher(mockPublisher)
	require.NoError(t, transPublisher.Publish(events.DrawCreatedEvent{DrawID: uuid.New()}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, transPublisher.Flush(ctx))
	assert.Empty(t, mockPublisher.PublishedEvents)
	assert.Zero(t, transPublisher.Pending())
}

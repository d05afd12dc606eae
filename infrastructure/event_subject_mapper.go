package infrastructure

import (
	"fmt"

	"lottoengine/domain/events"
)

var subjectsByEventType = map[events.EventType]string{
	events.EventTypeDrawCreated:       "lottery.draws.created",
	events.EventTypeDrawSalesOpened:   "lottery.draws.sales_opened",
	events.EventTypeDrawExecuted:      "lottery.draws.executed",
	events.EventTypeDrawSettled:       "lottery.draws.settled",
	events.EventTypeDrawCancelled:     "lottery.draws.cancelled",
	events.EventTypeTicketsIssued:     "lottery.tickets.issued",
	events.EventTypeTicketSubmitted:   "lottery.tickets.submitted",
	events.EventTypeTicketClaimed:     "lottery.claims.claimed",
	events.EventTypeClaimEventSoldOut: "lottery.claims.sold_out",
	events.EventTypeClaimEventEnded:   "lottery.claims.ended",
}

// EventSubjectMapper handles mapping between domain events and NATS subjects
type EventSubjectMapper struct{}

// NewEventSubjectMapper creates a new event subject mapper
func NewEventSubjectMapper() *EventSubjectMapper {
	return &EventSubjectMapper{}
}

// MapEventToSubject converts a domain event to its NATS subject
func (m *EventSubjectMapper) MapEventToSubject(event events.Event) string {
	if subject, ok := subjectsByEventType[event.Type()]; ok {
		return subject
	}
	return fmt.Sprintf("lottery.unknown.%s", event.Type())
}

// MapSubjectToEventType converts a NATS subject back to an event type
func (m *EventSubjectMapper) MapSubjectToEventType(subject string) events.EventType {
	for eventType, s := range subjectsByEventType {
		if s == subject {
			return eventType
		}
	}
	return events.EventType(subject)
}

// GetAllSubjects returns the stream subjects this service publishes to
func (m *EventSubjectMapper) GetAllSubjects() []string {
	return []string{"lottery.>"}
}

package infrastructure

import (
	"lottoengine/domain/events"

	log "github.com/sirupsen/logrus"
)

// NoopEventPublisher drops events; used when NATS is disabled and by the migrate and verify commands
type NoopEventPublisher struct{}

// NewNoopEventPublisher creates a new no-op event publisher
func NewNoopEventPublisher() *NoopEventPublisher {
	return &NoopEventPublisher{}
}

// Publish logs and drops the event
func (n *NoopEventPublisher) Publish(event events.Event) error {
	log.WithField("eventType", event.Type()).Debug("Event dropped, publishing disabled")
	return nil
}

package infrastructure

import (
	"fmt"

	"oraclequest/events"
)

// DomainEventStream is the JetStream stream holding ledger events
const DomainEventStream = "ledger_events"

// EventSubjectMapper handles mapping between domain events and NATS subjects
type EventSubjectMapper struct{}

// NewEventSubjectMapper creates a new event subject mapper
func NewEventSubjectMapper() *EventSubjectMapper {
	return &EventSubjectMapper{}
}

// MapEventToSubject converts a domain event to its corresponding NATS subject
func (m *EventSubjectMapper) MapEventToSubject(event events.Event) string {
	switch event.Type() {
	case events.EventTypePlayerInitialized:
		return "ledger.players.initialized"
	case events.EventTypeEventCreated:
		return "ledger.events.created"
	case events.EventTypeEventResolved:
		return "ledger.events.resolved"
	case events.EventTypeBetPlaced:
		return "ledger.bets.placed"
	case events.EventTypeWinningsClaimed:
		return "ledger.bets.claimed"
	case events.EventTypeBetClosed:
		return "ledger.bets.closed"
	default:
		return fmt.Sprintf("ledger.unknown.%s", event.Type())
	}
}

// GetAllSubjects returns all subjects that this service publishes to
func (m *EventSubjectMapper) GetAllSubjects() []string {
	return []string{"ledger.>"}
}

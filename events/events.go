package events

import (
	"context"
	"sync"

	"oraclequest/domain/entities"

	log "github.com/sirupsen/logrus"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventTypePlayerInitialized EventType = "player_initialized"
	EventTypeEventCreated      EventType = "event_created"
	EventTypeBetPlaced         EventType = "bet_placed"
	EventTypeEventResolved     EventType = "event_resolved"
	EventTypeWinningsClaimed   EventType = "winnings_claimed"
	EventTypeBetClosed         EventType = "bet_closed"
)

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// PlayerInitializedEvent is emitted when a profile is created
type PlayerInitializedEvent struct {
	Regime  entities.Regime    `json:"regime"`
	Owner   entities.AccountID `json:"owner"`
	Address entities.AccountID `json:"address"`
}

func (e PlayerInitializedEvent) Type() EventType {
	return EventTypePlayerInitialized
}

// EventCreatedEvent is emitted when an oracle event is created
type EventCreatedEvent struct {
	Regime      entities.Regime    `json:"regime"`
	EventID     uint64             `json:"event_id"`
	Description string             `json:"description"`
	Authority   entities.AccountID `json:"authority"`
}

func (e EventCreatedEvent) Type() EventType {
	return EventTypeEventCreated
}

// BetPlacedEvent represents a bet that was placed
type BetPlacedEvent struct {
	Regime        entities.Regime    `json:"regime"`
	Player        entities.AccountID `json:"player"`
	EventID       uint64             `json:"event_id"`
	ChosenOutcome bool               `json:"chosen_outcome"`
	Amount        uint64             `json:"amount"`
}

func (e BetPlacedEvent) Type() EventType {
	return EventTypeBetPlaced
}

// EventResolvedEvent is emitted once an authority fixes an outcome
type EventResolvedEvent struct {
	Regime    entities.Regime    `json:"regime"`
	EventID   uint64             `json:"event_id"`
	Outcome   bool               `json:"outcome"`
	Authority entities.AccountID `json:"authority"`
}

func (e EventResolvedEvent) Type() EventType {
	return EventTypeEventResolved
}

// WinningsClaimedEvent represents a settled winning bet
type WinningsClaimedEvent struct {
	Regime     entities.Regime    `json:"regime"`
	Player     entities.AccountID `json:"player"`
	EventID    uint64             `json:"event_id"`
	Winnings   uint64             `json:"winnings"`
	NewBalance uint64             `json:"new_balance"`
}

func (e WinningsClaimedEvent) Type() EventType {
	return EventTypeWinningsClaimed
}

// BetClosedEvent is emitted when a bet record is retired
type BetClosedEvent struct {
	Regime      entities.Regime    `json:"regime"`
	Player      entities.AccountID `json:"player"`
	EventID     uint64             `json:"event_id"`
	Beneficiary entities.AccountID `json:"beneficiary"`
	Refund      uint64             `json:"refund"`
}

func (e BetClosedEvent) Type() EventType {
	return EventTypeBetClosed
}

// Handler is a function that handles events
type Handler func(ctx context.Context, event Event)

// Bus manages event subscriptions and dispatching
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
}

// NewBus creates a new event bus
func NewBus() *Bus {
	return &Bus{
		handlers: make(map[EventType][]Handler),
	}
}

// Subscribe adds a handler for a specific event type
func (b *Bus) Subscribe(eventType EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], handler)

	log.WithFields(log.Fields{
		"eventType":    eventType,
		"handlerCount": len(b.handlers[eventType]),
	}).Debug("Subscribed handler to event type on main event bus")
}

// Emit publishes an event to all registered handlers
func (b *Bus) Emit(ctx context.Context, event Event) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers[event.Type()]))
	copy(handlers, b.handlers[event.Type()])
	b.mu.RUnlock()

	log.WithFields(log.Fields{
		"eventType":    event.Type(),
		"handlerCount": len(handlers),
	}).Debug("Emitting event to handlers on main event bus")

	// Call handlers asynchronously to avoid blocking
	for i, handler := range handlers {
		go func(h Handler, handlerIndex int) {
			defer func() {
				if r := recover(); r != nil {
					log.WithFields(log.Fields{
						"eventType":    event.Type(),
						"handlerIndex": handlerIndex,
						"panic":        r,
					}).Error("Event handler panicked")
				}
			}()
			h(ctx, event)
		}(handler, i)
	}
}

// Publish emits event detached from any caller context
func (b *Bus) Publish(event Event) error {
	b.Emit(context.Background(), event)
	return nil
}

// Publisher accepts events for delivery
type Publisher interface {
	Publish(event Event) error
}

// A transactional event bus for holding pending events coupled to a store transition.
// Flushes to the underlying publisher.
type TransactionalBus struct {
	real    Publisher
	pending []Event // stashed until Flush
}

func NewTransactionalBus(real Publisher) *TransactionalBus {
	return &TransactionalBus{real: real}
}

func (b *TransactionalBus) Publish(e Event) error {
	log.WithFields(log.Fields{
		"eventType":    e.Type(),
		"pendingCount": len(b.pending),
	}).Debug("Adding event to transactional bus pending queue")
	b.pending = append(b.pending, e)
	return nil
}

// Pending returns the number of events waiting for Flush
func (b *TransactionalBus) Pending() int {
	return len(b.pending)
}

// called after a successful commit
func (b *TransactionalBus) Flush(ctx context.Context) error {
	log.WithFields(log.Fields{
		"pendingEventCount": len(b.pending),
	}).Debug("Flushing pending events from transactional bus")

	pending := b.pending
	b.pending = nil
	var firstErr error
	for _, ev := range pending {
		if err := b.real.Publish(ev); err != nil {
			log.WithFields(log.Fields{
				"eventType": ev.Type(),
				"error":     err,
			}).Error("Failed to publish committed event")
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// called after rollback or to clear state.
func (b *TransactionalBus) Discard() {
	b.pending = nil
}

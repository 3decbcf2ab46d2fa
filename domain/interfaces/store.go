package interfaces

import (
	"context"
	"time"

	"oraclequest/domain/address"
	"oraclequest/domain/entities"
	"oraclequest/events"
)

// EventPublisher defines the interface for publishing events
type EventPublisher interface {
	Publish(event events.Event) error
}

// EntityStore is a unit of work over one storage regime. A store instance
// carries exactly one transition: Begin, any number of entity operations,
// then Commit or Rollback. Nothing is visible to other stores before Commit.
type EntityStore interface {
	// Begin starts the transition
	Begin(ctx context.Context) error

	// Commit applies every staged operation atomically
	Commit() error

	// Rollback discards every staged operation. Safe to call after Commit.
	Rollback() error

	// Regime reports which storage regime backs this store
	Regime() entities.Regime

	// Addresses is the address space entities of this store live in
	Addresses() address.Space

	// Allocate stores a new entity at a derived address. It fails with
	// entities.ErrAddressInUse if the address is already occupied.
	Allocate(ctx context.Context, addr address.Derived, entity entities.Entity, payer entities.AccountID) error

	// Read returns the live entity at addr or entities.ErrNotFound
	Read(ctx context.Context, addr entities.AccountID) (entities.Entity, error)

	// Write replaces the live entity at addr as a whole
	Write(ctx context.Context, addr entities.AccountID, entity entities.Entity) error

	// Close retires the entity at addr and returns its storage allotment to
	// beneficiary where the regime supports it. The refunded amount is returned.
	Close(ctx context.Context, addr entities.AccountID, beneficiary entities.AccountID) (uint64, error)

	// EventBus returns the transactional event bus flushed on Commit
	EventBus() EventPublisher
}

// StoreFactory creates direct-regime stores
type StoreFactory interface {
	Create() EntityStore
}

// TransitionObserver is notified after every engine transition
type TransitionObserver interface {
	ObserveTransition(ctx context.Context, instruction string, regime entities.Regime, elapsed time.Duration, err error)
}

// LedgerReader reads committed direct-regime state without starting a transition
type LedgerReader interface {
	Get(ctx context.Context, addr entities.AccountID) (entities.Entity, error)
	RefundedTo(ctx context.Context, beneficiary entities.AccountID) (uint64, error)
}

package repository

import (
	"context"
	"errors"
	"fmt"

	"oraclequest/database"
	"oraclequest/domain/address"
	"oraclequest/domain/codec"
	"oraclequest/domain/entities"
	"oraclequest/domain/interfaces"
	"oraclequest/events"

	"github.com/jackc/pgx/v5"
	log "github.com/sirupsen/logrus"
)

// StoreOptions configures direct-regime stores
type StoreOptions struct {
	ProgramID entities.AccountID
	Rent      RentSchedule
}

// NewStoreFactory creates a factory of PostgreSQL-backed direct stores
func NewStoreFactory(db *database.DB, publisher events.Publisher, opts StoreOptions) interfaces.StoreFactory {
	return &storeFactory{
		db:        db,
		publisher: publisher,
		opts:      opts,
	}
}

type storeFactory struct {
	db        *database.DB
	publisher events.Publisher
	opts      StoreOptions
}

func (f *storeFactory) Create() interfaces.EntityStore {
	return &directStore{
		db:               f.db,
		space:            address.NewDirectSpace(f.opts.ProgramID),
		rent:             f.opts.Rent,
		transactionalBus: events.NewTransactionalBus(f.publisher),
	}
}

// directStore implements EntityStore over the records table
type directStore struct {
	db               *database.DB
	tx               pgx.Tx
	ctx              context.Context
	space            address.DirectSpace
	rent             RentSchedule
	transactionalBus *events.TransactionalBus
}

// Begin starts a new transaction
func (s *directStore) Begin(ctx context.Context) error {
	if s.tx != nil {
		return fmt.Errorf("transaction already started")
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	s.tx = tx
	s.ctx = ctx
	return nil
}

// Commit commits the transaction
func (s *directStore) Commit() error {
	if s.tx == nil {
		return fmt.Errorf("no transaction to commit")
	}

	if err := s.tx.Commit(s.ctx); err != nil {
		s.tx = nil
		s.transactionalBus.Discard()
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.tx = nil

	// Flush pending events after successful commit
	if err := s.transactionalBus.Flush(s.ctx); err != nil {
		log.WithError(err).Warn("Committed transition but failed to publish its events")
	}
	return nil
}

// Rollback rolls back the transaction
func (s *directStore) Rollback() error {
	if s.tx == nil {
		return nil // Nothing to rollback
	}

	err := s.tx.Rollback(s.ctx)
	s.tx = nil
	s.transactionalBus.Discard()
	if err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}
	return nil
}

func (s *directStore) Regime() entities.Regime { return entities.RegimeDirect }

func (s *directStore) Addresses() address.Space { return s.space }

func (s *directStore) EventBus() interfaces.EventPublisher {
	return s.transactionalBus
}

func (s *directStore) Allocate(ctx context.Context, addr address.Derived, entity entities.Entity, payer entities.AccountID) error {
	tx := s.requireTx()
	data, err := codec.Direct.Encode(entity)
	if err != nil {
		return err
	}
	lamports := s.rent.Allotment(entity.Kind())

	query := `
		INSERT INTO records (address, kind, data, payer, lamports)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (address) DO NOTHING
	`
	tag, err := tx.Exec(ctx, query, addr.Address[:], int16(entity.Kind()), data, payer[:], int64(lamports))
	if err != nil {
		return fmt.Errorf("failed to allocate %s at %s: %w", entity.Kind(), addr.Address, err)
	}
	if tag.RowsAffected() == 0 {
		return entities.ErrAddressInUse
	}

	log.WithFields(log.Fields{
		"kind":     entity.Kind(),
		"address":  addr.Address,
		"payer":    payer,
		"lamports": lamports,
	}).Debug("Allocated direct record")
	return nil
}

func (s *directStore) Read(ctx context.Context, addr entities.AccountID) (entities.Entity, error) {
	tx := s.requireTx()
	var data []byte
	err := tx.QueryRow(ctx, `SELECT data FROM records WHERE address = $1 FOR UPDATE`, addr[:]).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, entities.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read record %s: %w", addr, err)
	}
	return codec.Direct.Decode(data)
}

func (s *directStore) Write(ctx context.Context, addr entities.AccountID, entity entities.Entity) error {
	tx := s.requireTx()
	data, err := codec.Direct.Encode(entity)
	if err != nil {
		return err
	}

	query := `
		UPDATE records
		SET data = $2, updated_at = NOW()
		WHERE address = $1 AND kind = $3
	`
	tag, err := tx.Exec(ctx, query, addr[:], data, int16(entity.Kind()))
	if err != nil {
		return fmt.Errorf("failed to write record %s: %w", addr, err)
	}
	if tag.RowsAffected() == 0 {
		return entities.ErrNotFound
	}
	return nil
}

func (s *directStore) Close(ctx context.Context, addr entities.AccountID, beneficiary entities.AccountID) (uint64, error) {
	tx := s.requireTx()
	var kind int16
	var lamports int64
	err := tx.QueryRow(ctx, `DELETE FROM records WHERE address = $1 RETURNING kind, lamports`, addr[:]).Scan(&kind, &lamports)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, entities.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to close record %s: %w", addr, err)
	}

	query := `
		INSERT INTO storage_refunds (address, kind, beneficiary, lamports)
		VALUES ($1, $2, $3, $4)
	`
	if _, err := tx.Exec(ctx, query, addr[:], kind, beneficiary[:], lamports); err != nil {
		return 0, fmt.Errorf("failed to credit storage refund for %s: %w", addr, err)
	}

	log.WithFields(log.Fields{
		"address":     addr,
		"beneficiary": beneficiary,
		"lamports":    lamports,
	}).Debug("Closed direct record")
	return uint64(lamports), nil
}

func (s *directStore) requireTx() pgx.Tx {
	if s.tx == nil {
		panic("store not started - call Begin() first")
	}
	return s.tx
}

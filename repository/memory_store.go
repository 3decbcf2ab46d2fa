package repository

import (
	"context"
	"fmt"
	"sync"

	"oraclequest/domain/address"
	"oraclequest/domain/codec"
	"oraclequest/domain/entities"
	"oraclequest/domain/interfaces"
	"oraclequest/events"

	log "github.com/sirupsen/logrus"
)

type memoryRecord struct {
	kind     entities.Kind
	data     []byte
	payer    entities.AccountID
	lamports uint64
}

// MemoryLedger holds direct records in process memory. Transitions against
// it are serialized: a store holds the ledger from Begin until Commit or Rollback.
type MemoryLedger struct {
	mu      sync.Mutex
	records map[entities.AccountID]memoryRecord
	refunds map[entities.AccountID]uint64
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		records: make(map[entities.AccountID]memoryRecord),
		refunds: make(map[entities.AccountID]uint64),
	}
}

// NewMemoryStoreFactory creates a factory of stores over ledger
func NewMemoryStoreFactory(ledger *MemoryLedger, publisher events.Publisher, opts StoreOptions) interfaces.StoreFactory {
	return &memoryStoreFactory{ledger: ledger, publisher: publisher, opts: opts}
}

type memoryStoreFactory struct {
	ledger    *MemoryLedger
	publisher events.Publisher
	opts      StoreOptions
}

func (f *memoryStoreFactory) Create() interfaces.EntityStore {
	return &memoryStore{
		ledger:           f.ledger,
		space:            address.NewDirectSpace(f.opts.ProgramID),
		rent:             f.opts.Rent,
		transactionalBus: events.NewTransactionalBus(f.publisher),
	}
}

// Get returns the committed entity at addr
func (l *MemoryLedger) Get(_ context.Context, addr entities.AccountID) (entities.Entity, error) {
	l.mu.Lock()
	rec, ok := l.records[addr]
	l.mu.Unlock()
	if !ok {
		return nil, entities.ErrNotFound
	}
	return codec.Direct.Decode(rec.data)
}

// RefundedTo sums the storage allotments returned to beneficiary
func (l *MemoryLedger) RefundedTo(_ context.Context, beneficiary entities.AccountID) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.refunds[beneficiary], nil
}

// RawData returns a copy of the committed encoding at addr
func (l *MemoryLedger) RawData(addr entities.AccountID) ([]byte, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	rec, ok := l.records[addr]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), rec.data...), true
}

// Len is the number of live records
func (l *MemoryLedger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}

var _ interfaces.LedgerReader = (*MemoryLedger)(nil)

// memoryStore stages changes and applies them to the ledger on Commit
type memoryStore struct {
	ledger           *MemoryLedger
	space            address.DirectSpace
	rent             RentSchedule
	transactionalBus *events.TransactionalBus

	active  bool
	ctx     context.Context
	staged  map[entities.AccountID]*memoryRecord // nil marks a closed record
	refunds map[entities.AccountID]uint64
}

func (s *memoryStore) Begin(ctx context.Context) error {
	if s.active {
		return fmt.Errorf("transaction already started")
	}
	s.ledger.mu.Lock()
	s.active = true
	s.ctx = ctx
	s.staged = make(map[entities.AccountID]*memoryRecord)
	s.refunds = make(map[entities.AccountID]uint64)
	return nil
}

func (s *memoryStore) Commit() error {
	if !s.active {
		return fmt.Errorf("no transaction to commit")
	}
	for addr, rec := range s.staged {
		if rec == nil {
			delete(s.ledger.records, addr)
			continue
		}
		s.ledger.records[addr] = *rec
	}
	for beneficiary, lamports := range s.refunds {
		s.ledger.refunds[beneficiary] += lamports
	}
	s.release()

	if err := s.transactionalBus.Flush(s.ctx); err != nil {
		log.WithError(err).Warn("Committed transition but failed to publish its events")
	}
	return nil
}

func (s *memoryStore) Rollback() error {
	if !s.active {
		return nil
	}
	s.release()
	s.transactionalBus.Discard()
	return nil
}

func (s *memoryStore) release() {
	s.active = false
	s.staged = nil
	s.refunds = nil
	s.ledger.mu.Unlock()
}

func (s *memoryStore) Regime() entities.Regime { return entities.RegimeDirect }

func (s *memoryStore) Addresses() address.Space { return s.space }

func (s *memoryStore) EventBus() interfaces.EventPublisher { return s.transactionalBus }

// lookup returns the record at addr as seen by this transition
func (s *memoryStore) lookup(addr entities.AccountID) (*memoryRecord, bool) {
	if rec, ok := s.staged[addr]; ok {
		return rec, rec != nil
	}
	rec, ok := s.ledger.records[addr]
	if !ok {
		return nil, false
	}
	return &rec, true
}

func (s *memoryStore) Allocate(_ context.Context, addr address.Derived, entity entities.Entity, payer entities.AccountID) error {
	s.requireActive()
	if _, ok := s.lookup(addr.Address); ok {
		return entities.ErrAddressInUse
	}
	data, err := codec.Direct.Encode(entity)
	if err != nil {
		return err
	}
	s.staged[addr.Address] = &memoryRecord{
		kind:     entity.Kind(),
		data:     data,
		payer:    payer,
		lamports: s.rent.Allotment(entity.Kind()),
	}
	return nil
}

func (s *memoryStore) Read(_ context.Context, addr entities.AccountID) (entities.Entity, error) {
	s.requireActive()
	rec, ok := s.lookup(addr)
	if !ok {
		return nil, entities.ErrNotFound
	}
	return codec.Direct.Decode(rec.data)
}

func (s *memoryStore) Write(_ context.Context, addr entities.AccountID, entity entities.Entity) error {
	s.requireActive()
	rec, ok := s.lookup(addr)
	if !ok || rec.kind != entity.Kind() {
		return entities.ErrNotFound
	}
	data, err := codec.Direct.Encode(entity)
	if err != nil {
		return err
	}
	updated := *rec
	updated.data = data
	s.staged[addr] = &updated
	return nil
}

func (s *memoryStore) Close(_ context.Context, addr entities.AccountID, beneficiary entities.AccountID) (uint64, error) {
	s.requireActive()
	rec, ok := s.lookup(addr)
	if !ok {
		return 0, entities.ErrNotFound
	}
	s.staged[addr] = nil
	s.refunds[beneficiary] += rec.lamports
	return rec.lamports, nil
}

func (s *memoryStore) requireActive() {
	if !s.active {
		panic("store not started - call Begin() first")
	}
}

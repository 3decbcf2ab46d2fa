// Package compressed implements the entity store over a shared commitment tree.
//
// A store never holds state between transitions. Every account a transition
// reads or mutates must arrive in the Witness as existing state, and every
// change is delegated to the tree service as one batch guarded by the
// witness proof. The tree service compares each claimed prior value with the
// live leaf, so a stale witness rejects the whole batch.
package compressed

import (
	"context"
	"fmt"

	"oraclequest/domain/address"
	"oraclequest/domain/codec"
	"oraclequest/domain/entities"
	"oraclequest/domain/interfaces"
	"oraclequest/events"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// BatchObserver is told the size of every batch sent to the tree service
type BatchObserver interface {
	ObserveBatch(ctx context.Context, newAddresses, inputs, readOnly, outputs int)
}

// Options configures a compressed store
type Options struct {
	ProgramID entities.AccountID
	Publisher events.Publisher
	Observer  BatchObserver
}

type opKind int

const (
	opRead opKind = iota
	opWrite
	opClose
	opCreate
)

// slot is one account touched by the transition
type slot struct {
	op       opKind
	addr     entities.AccountID
	seed     [32]byte
	kind     entities.Kind
	meta     interfaces.AccountMeta
	prior    []byte // existing encoding, nil for created accounts
	data     []byte // current encoding within the transition
	existing bool
}

// Store is a single-transition compressed EntityStore
type Store struct {
	tree             interfaces.TreeService
	witness          Witness
	opts             Options
	space            address.TreeSpace
	transactionalBus *events.TransactionalBus

	active bool
	ctx    context.Context
	slots  map[entities.AccountID]*slot
	order  []entities.AccountID
	result *interfaces.BatchResult
}

// NewStore creates a store for one transition described by witness
func NewStore(tree interfaces.TreeService, witness Witness, opts Options) *Store {
	publisher := opts.Publisher
	if publisher == nil {
		publisher = events.NewBus()
	}
	return &Store{
		tree:             tree,
		witness:          witness,
		opts:             opts,
		space:            address.NewTreeSpace(opts.ProgramID, witness.AddressTree),
		transactionalBus: events.NewTransactionalBus(publisher),
	}
}

var _ interfaces.EntityStore = (*Store)(nil)

func (s *Store) Begin(ctx context.Context) error {
	if s.active {
		return fmt.Errorf("transaction already started")
	}
	if s.result != nil {
		return fmt.Errorf("store already committed a transition")
	}

	slots := make(map[entities.AccountID]*slot, len(s.witness.Existing))
	order := make([]entities.AccountID, 0, len(s.witness.Existing))
	for _, ex := range s.witness.Existing {
		addr := ex.Meta.Address
		if _, dup := slots[addr]; dup {
			return fmt.Errorf("existing state for %s supplied twice", addr)
		}
		kind, err := codec.KindOf(ex.Data)
		if err != nil {
			return fmt.Errorf("existing state for %s: %w", addr, err)
		}
		slots[addr] = &slot{
			op:       opRead,
			addr:     addr,
			kind:     kind,
			meta:     ex.Meta,
			prior:    ex.Data,
			data:     ex.Data,
			existing: true,
		}
		order = append(order, addr)
	}

	s.active = true
	s.ctx = ctx
	s.slots = slots
	s.order = order
	return nil
}

func (s *Store) Regime() entities.Regime { return entities.RegimeCompressed }

func (s *Store) Addresses() address.Space { return s.space }

func (s *Store) EventBus() interfaces.EventPublisher { return s.transactionalBus }

// Result reports where the committed outputs landed
func (s *Store) Result() *interfaces.BatchResult { return s.result }

func (s *Store) Allocate(_ context.Context, addr address.Derived, entity entities.Entity, _ entities.AccountID) error {
	s.requireActive()
	if addr.Address != address.FromSeed(addr.Seed, s.witness.AddressTree) {
		return entities.ErrInvalidAddressTree
	}
	if _, ok := s.slots[addr.Address]; ok {
		return entities.ErrAddressInUse
	}
	data, err := codec.Compressed.Encode(entity)
	if err != nil {
		return err
	}
	s.slots[addr.Address] = &slot{
		op:   opCreate,
		addr: addr.Address,
		seed: addr.Seed,
		kind: entity.Kind(),
		data: data,
	}
	s.order = append(s.order, addr.Address)
	return nil
}

func (s *Store) Read(_ context.Context, addr entities.AccountID) (entities.Entity, error) {
	s.requireActive()
	sl, ok := s.slots[addr]
	if !ok || sl.op == opClose {
		return nil, entities.ErrNotFound
	}
	return codec.Compressed.Decode(sl.data)
}

func (s *Store) Write(_ context.Context, addr entities.AccountID, entity entities.Entity) error {
	s.requireActive()
	sl, ok := s.slots[addr]
	if !ok || sl.op == opClose {
		return fmt.Errorf("write %s: %w", addr, entities.ErrMissingExistingState)
	}
	if sl.kind != entity.Kind() {
		return entities.ErrDiscriminatorMismatch
	}
	data, err := codec.Compressed.Encode(entity)
	if err != nil {
		return err
	}
	sl.data = data
	if sl.op == opRead {
		sl.op = opWrite
	}
	return nil
}

// Close removes the leaf. Storage reclamation belongs to the tree service,
// so nothing is refunded to beneficiary.
func (s *Store) Close(_ context.Context, addr entities.AccountID, _ entities.AccountID) (uint64, error) {
	s.requireActive()
	sl, ok := s.slots[addr]
	if !ok || !sl.existing || sl.op == opClose {
		return 0, fmt.Errorf("close %s: %w", addr, entities.ErrMissingExistingState)
	}
	sl.op = opClose
	return 0, nil
}

// Commit sends the staged delta to the tree service as one batch
func (s *Store) Commit() error {
	if !s.active {
		return fmt.Errorf("no transaction to commit")
	}
	batch := s.buildBatch()
	s.active = false

	if len(batch.NewAddresses)+len(batch.Inputs)+len(batch.Outputs) == 0 {
		s.result = &interfaces.BatchResult{}
		return s.flush()
	}

	if s.opts.Observer != nil {
		s.opts.Observer.ObserveBatch(s.ctx, len(batch.NewAddresses), len(batch.Inputs), len(batch.ReadOnly), len(batch.Outputs))
	}

	result, err := s.tree.ApplyBatch(s.ctx, batch)
	if err != nil {
		s.transactionalBus.Discard()
		log.WithFields(log.Fields{
			"batch": batch.ID,
			"error": err,
		}).Warn("Tree service rejected batch")
		return err
	}
	s.result = result

	log.WithFields(log.Fields{
		"batch":        batch.ID,
		"newAddresses": len(batch.NewAddresses),
		"inputs":       len(batch.Inputs),
		"readOnly":     len(batch.ReadOnly),
		"outputs":      len(batch.Outputs),
	}).Debug("Applied compressed batch")
	return s.flush()
}

func (s *Store) flush() error {
	if err := s.transactionalBus.Flush(s.ctx); err != nil {
		log.WithError(err).Warn("Committed transition but failed to publish its events")
	}
	return nil
}

func (s *Store) Rollback() error {
	if !s.active {
		return nil
	}
	s.active = false
	s.slots = nil
	s.order = nil
	s.transactionalBus.Discard()
	return nil
}

func (s *Store) buildBatch() *interfaces.TreeBatch {
	batch := &interfaces.TreeBatch{
		ID:        uuid.New().String(),
		ProgramID: s.opts.ProgramID,
		Proof:     s.witness.Proof,
	}

	for _, addr := range s.order {
		sl := s.slots[addr]
		switch sl.op {
		case opRead:
			batch.ReadOnly = append(batch.ReadOnly, s.input(sl))
		case opWrite:
			batch.Inputs = append(batch.Inputs, s.input(sl))
			batch.Outputs = append(batch.Outputs, s.output(sl))
		case opClose:
			batch.Inputs = append(batch.Inputs, s.input(sl))
		case opCreate:
			batch.NewAddresses = append(batch.NewAddresses, interfaces.NewAddress{
				Seed:        sl.seed,
				AddressTree: s.witness.AddressTree,
				Address:     sl.addr,
			})
			batch.Outputs = append(batch.Outputs, s.output(sl))
		}
	}
	return batch
}

// input asserts the prior value exactly as the caller supplied it
func (s *Store) input(sl *slot) interfaces.InputLeaf {
	return interfaces.InputLeaf{
		Meta: sl.meta,
		Hash: codec.LeafHash(s.opts.ProgramID, sl.addr, codec.Discriminator(sl.kind), codec.HashData(sl.prior)),
	}
}

func (s *Store) output(sl *slot) interfaces.OutputLeaf {
	return interfaces.OutputLeaf{
		Address:       sl.addr,
		OutputTree:    s.witness.OutputTree,
		Discriminator: codec.Discriminator(sl.kind),
		Data:          sl.data,
		DataHash:      codec.HashData(sl.data),
	}
}

func (s *Store) requireActive() {
	if !s.active {
		panic("store not started - call Begin() first")
	}
}

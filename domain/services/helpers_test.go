package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"oraclequest/domain/address"
	"oraclequest/domain/entities"
	"oraclequest/domain/interfaces"
	"oraclequest/events"
	"oraclequest/repository"
	"oraclequest/repository/testutil"

	"github.com/stretchr/testify/require"
)

var (
	alice     = testutil.Account("alice")
	bob       = testutil.Account("bob")
	authority = testutil.Account("authority")
)

// recordingPublisher collects flushed events
type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) types() []events.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]events.EventType, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type())
	}
	return out
}

type observation struct {
	instruction string
	regime      entities.Regime
	err         error
}

// recordingObserver collects transition outcomes
type recordingObserver struct {
	mu           sync.Mutex
	observations []observation
}

func (o *recordingObserver) ObserveTransition(_ context.Context, instruction string, regime entities.Regime, _ time.Duration, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.observations = append(o.observations, observation{instruction, regime, err})
}

// directHarness runs the engine against an in-memory direct ledger
type directHarness struct {
	t         *testing.T
	ctx       context.Context
	engine    *Engine
	ledger    *repository.MemoryLedger
	factory   interfaces.StoreFactory
	publisher *recordingPublisher
	observer  *recordingObserver
	space     address.Space
	rent      repository.RentSchedule
}

func newDirectHarness(t *testing.T) *directHarness {
	t.Helper()
	ledger := repository.NewMemoryLedger()
	publisher := &recordingPublisher{}
	observer := &recordingObserver{}
	rent := repository.DefaultRentSchedule()
	return &directHarness{
		t:         t,
		ctx:       context.Background(),
		engine:    NewEngine(observer),
		ledger:    ledger,
		factory:   repository.NewMemoryStoreFactory(ledger, publisher, repository.StoreOptions{ProgramID: testutil.ProgramID, Rent: rent}),
		publisher: publisher,
		observer:  observer,
		space:     address.NewDirectSpace(testutil.ProgramID),
		rent:      rent,
	}
}

func (h *directHarness) store() interfaces.EntityStore {
	return h.factory.Create()
}

func (h *directHarness) initPlayer(owner entities.AccountID) {
	h.t.Helper()
	_, err := h.engine.InitializePlayer(h.ctx, h.store(), owner)
	require.NoError(h.t, err)
}

func (h *directHarness) createEvent(id uint64) {
	h.t.Helper()
	_, err := h.engine.CreateOracleEvent(h.ctx, h.store(), authority, id, "Will X happen?")
	require.NoError(h.t, err)
}

func (h *directHarness) placeBet(owner entities.AccountID, id uint64, outcome bool, amount uint64) entities.AccountID {
	h.t.Helper()
	_, err := h.engine.PlaceBet(h.ctx, h.store(), owner, id, outcome, amount)
	require.NoError(h.t, err)
	return address.Bet(h.space, owner, id).Address
}

func (h *directHarness) resolve(id uint64, outcome bool) {
	h.t.Helper()
	_, err := h.engine.ResolveEvent(h.ctx, h.store(), authority, id, outcome)
	require.NoError(h.t, err)
}

func (h *directHarness) profile(owner entities.AccountID) *entities.PlayerProfile {
	h.t.Helper()
	e, err := h.ledger.Get(h.ctx, address.Player(h.space, owner).Address)
	require.NoError(h.t, err)
	return e.(*entities.PlayerProfile)
}

func (h *directHarness) event(id uint64) *entities.OracleEvent {
	h.t.Helper()
	e, err := h.ledger.Get(h.ctx, address.Event(h.space, id).Address)
	require.NoError(h.t, err)
	return e.(*entities.OracleEvent)
}

func (h *directHarness) bet(addr entities.AccountID) *entities.Bet {
	h.t.Helper()
	e, err := h.ledger.Get(h.ctx, addr)
	require.NoError(h.t, err)
	return e.(*entities.Bet)
}

// scenario sets up alice's bet of amount on event 7 choosing true
func (h *directHarness) scenario(amount uint64) entities.AccountID {
	h.t.Helper()
	h.initPlayer(alice)
	h.createEvent(7)
	return h.placeBet(alice, 7, true, amount)
}

package repository

import (
	"context"
	"strings"
	"sync"
	"testing"

	"oraclequest/domain/address"
	"oraclequest/domain/entities"
	"oraclequest/domain/interfaces"
	"oraclequest/events"
	"oraclequest/repository/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

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

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

// runDirectStoreSuite exercises the direct store contract against any backend
func runDirectStoreSuite(t *testing.T, factory interfaces.StoreFactory, reader interfaces.LedgerReader, pub *recordingPublisher) {
	ctx := context.Background()
	owner := testutil.Account("owner")
	rent := DefaultRentSchedule()

	t.Run("allocate then read back", func(t *testing.T) {
		store := factory.Create()
		require.NoError(t, store.Begin(ctx))
		addr := address.Player(store.Addresses(), owner)
		require.NoError(t, store.Allocate(ctx, addr, entities.NewPlayerProfile(owner), owner))

		got, err := store.Read(ctx, addr.Address)
		require.NoError(t, err)
		assert.Equal(t, entities.NewPlayerProfile(owner), got)
		require.NoError(t, store.EventBus().Publish(events.PlayerInitializedEvent{Owner: owner}))
		require.NoError(t, store.Commit())

		committed, err := reader.Get(ctx, addr.Address)
		require.NoError(t, err)
		assert.Equal(t, entities.NewPlayerProfile(owner), committed)
		assert.Equal(t, 1, pub.count())
	})

	t.Run("allocate rejects occupied address", func(t *testing.T) {
		store := factory.Create()
		require.NoError(t, store.Begin(ctx))
		defer store.Rollback()
		addr := address.Player(store.Addresses(), owner)
		err := store.Allocate(ctx, addr, entities.NewPlayerProfile(owner), owner)
		assert.ErrorIs(t, err, entities.ErrAddressInUse)
	})

	t.Run("write requires live record", func(t *testing.T) {
		store := factory.Create()
		require.NoError(t, store.Begin(ctx))
		defer store.Rollback()
		addr := address.Player(store.Addresses(), testutil.Account("nobody"))
		err := store.Write(ctx, addr.Address, entities.NewPlayerProfile(testutil.Account("nobody")))
		assert.ErrorIs(t, err, entities.ErrNotFound)

		_, err = store.Read(ctx, addr.Address)
		assert.ErrorIs(t, err, entities.ErrNotFound)
	})

	t.Run("rollback discards writes and events", func(t *testing.T) {
		before := pub.count()
		store := factory.Create()
		require.NoError(t, store.Begin(ctx))
		addr := address.Player(store.Addresses(), owner)
		require.NoError(t, store.Write(ctx, addr.Address, &entities.PlayerProfile{Owner: owner, Balance: 999, TotalBets: 1, BetsWon: 1}))
		require.NoError(t, store.EventBus().Publish(events.PlayerInitializedEvent{Owner: owner}))
		require.NoError(t, store.Rollback())

		committed, err := reader.Get(ctx, addr.Address)
		require.NoError(t, err)
		assert.Equal(t, uint64(0), committed.(*entities.PlayerProfile).Balance)
		assert.Equal(t, before, pub.count())
	})

	t.Run("failed encode leaves record untouched", func(t *testing.T) {
		store := factory.Create()
		require.NoError(t, store.Begin(ctx))
		defer store.Rollback()
		addr := address.Event(store.Addresses(), 42)
		err := store.Allocate(ctx, addr, entities.NewOracleEvent(42, strings.Repeat("x", 201), owner, true), owner)
		assert.ErrorIs(t, err, entities.ErrDescriptionTooLong)
		_, err = store.Read(ctx, addr.Address)
		assert.ErrorIs(t, err, entities.ErrNotFound)
	})

	t.Run("close refunds allotment to beneficiary", func(t *testing.T) {
		player := testutil.Account("closer")
		store := factory.Create()
		require.NoError(t, store.Begin(ctx))
		addr := address.Bet(store.Addresses(), player, 9)
		require.NoError(t, store.Allocate(ctx, addr, entities.NewBet(player, 9, true, 5), player))
		require.NoError(t, store.Commit())

		store = factory.Create()
		require.NoError(t, store.Begin(ctx))
		refund, err := store.Close(ctx, addr.Address, player)
		require.NoError(t, err)
		require.NoError(t, store.Commit())

		assert.Equal(t, rent.Allotment(entities.KindBet), refund)
		total, err := reader.RefundedTo(ctx, player)
		require.NoError(t, err)
		assert.Equal(t, refund, total)

		_, err = reader.Get(ctx, addr.Address)
		assert.ErrorIs(t, err, entities.ErrNotFound)

		store = factory.Create()
		require.NoError(t, store.Begin(ctx))
		defer store.Rollback()
		_, err = store.Close(ctx, addr.Address, player)
		assert.ErrorIs(t, err, entities.ErrNotFound)
	})
}

package repository

import (
	"context"
	"testing"

	"oraclequest/domain/address"
	"oraclequest/domain/entities"
	"oraclequest/repository/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	ledger := NewMemoryLedger()
	pub := &recordingPublisher{}
	factory := NewMemoryStoreFactory(ledger, pub, StoreOptions{ProgramID: testutil.ProgramID, Rent: DefaultRentSchedule()})

	runDirectStoreSuite(t, factory, ledger, pub)
}

func TestMemoryStore_StagedCloseHidesRecord(t *testing.T) {
	ctx := context.Background()
	ledger := NewMemoryLedger()
	factory := NewMemoryStoreFactory(ledger, &recordingPublisher{}, StoreOptions{ProgramID: testutil.ProgramID, Rent: DefaultRentSchedule()})
	player := testutil.Account("p")

	store := factory.Create()
	require.NoError(t, store.Begin(ctx))
	addr := address.Bet(store.Addresses(), player, 1)
	require.NoError(t, store.Allocate(ctx, addr, entities.NewBet(player, 1, true, 1), player))
	_, err := store.Close(ctx, addr.Address, player)
	require.NoError(t, err)

	_, err = store.Read(ctx, addr.Address)
	assert.ErrorIs(t, err, entities.ErrNotFound)
	require.NoError(t, store.Commit())
	assert.Equal(t, 0, ledger.Len())
}

func TestMemoryStore_RequiresBegin(t *testing.T) {
	factory := NewMemoryStoreFactory(NewMemoryLedger(), &recordingPublisher{}, StoreOptions{})
	store := factory.Create()

	assert.Panics(t, func() {
		_, _ = store.Read(context.Background(), entities.AccountID{})
	})
	assert.Error(t, store.Commit())
	assert.NoError(t, store.Rollback())
}

func TestRentSchedule_Allotment(t *testing.T) {
	t.Parallel()

	rent := DefaultRentSchedule()
	// 8 discriminator + 32 + 8 + 8 + 8
	assert.Equal(t, uint64((128+64)*6960), rent.Allotment(entities.KindPlayerProfile))
	// 8 + 32 + 8 + 1 + 8 + 1
	assert.Equal(t, uint64((128+58)*6960), rent.Allotment(entities.KindBet))
	assert.Greater(t, rent.Allotment(entities.KindOracleEvent), rent.Allotment(entities.KindBet))
}

package compressed

import (
	"context"
	"testing"

	"oraclequest/domain/address"
	"oraclequest/domain/codec"
	"oraclequest/domain/entities"
	"oraclequest/domain/interfaces"
	"oraclequest/events"
	"oraclequest/repository/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockTreeService is a mock implementation of interfaces.TreeService
type MockTreeService struct {
	mock.Mock
}

func (m *MockTreeService) GetCompressedAccount(ctx context.Context, addr entities.AccountID) (*interfaces.CompressedAccount, error) {
	args := m.Called(ctx, addr)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*interfaces.CompressedAccount), args.Error(1)
}

func (m *MockTreeService) GetValidityProof(ctx context.Context, hashes []interfaces.Hash, newAddresses []interfaces.NewAddress) (*interfaces.ValidityProof, error) {
	args := m.Called(ctx, hashes, newAddresses)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*interfaces.ValidityProof), args.Error(1)
}

func (m *MockTreeService) PickTrees(ctx context.Context) (*interfaces.TreeInfo, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*interfaces.TreeInfo), args.Error(1)
}

func (m *MockTreeService) ApplyBatch(ctx context.Context, batch *interfaces.TreeBatch) (*interfaces.BatchResult, error) {
	args := m.Called(ctx, batch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*interfaces.BatchResult), args.Error(1)
}

type recordingPublisher struct {
	published []events.Event
}

func (p *recordingPublisher) Publish(e events.Event) error {
	p.published = append(p.published, e)
	return nil
}

var (
	addressTree = testutil.Account("address-tree")
	stateTree   = testutil.Account("state-tree")
	owner       = testutil.Account("owner")
	space       = address.NewTreeSpace(testutil.ProgramID, addressTree)
)

func existing(t *testing.T, addr entities.AccountID, index uint64, e entities.Entity) interfaces.ExistingAccount {
	t.Helper()
	data, err := codec.Compressed.Encode(e)
	require.NoError(t, err)
	return interfaces.ExistingAccount{
		Meta: interfaces.AccountMeta{Address: addr, Tree: stateTree, LeafIndex: index},
		Data: data,
	}
}

func newTestStore(tree interfaces.TreeService, publisher events.Publisher, accounts ...interfaces.ExistingAccount) *Store {
	return NewStore(tree, Witness{
		AddressTree: addressTree,
		OutputTree:  stateTree,
		Existing:    accounts,
	}, Options{ProgramID: testutil.ProgramID, Publisher: publisher})
}

type claimFixture struct {
	profileAddr, eventAddr, betAddr entities.AccountID
	accounts                        []interfaces.ExistingAccount
}

func newClaimFixture(t *testing.T) claimFixture {
	profile := entities.NewPlayerProfile(owner)
	event := entities.NewOracleEvent(7, "Will X happen?", testutil.Account("authority"), false)
	require.NoError(t, event.Resolve(true))
	bet := entities.NewBet(owner, 7, true, 100)

	f := claimFixture{
		profileAddr: address.Player(space, owner).Address,
		eventAddr:   address.Event(space, 7).Address,
		betAddr:     address.Bet(space, owner, 7).Address,
	}
	f.accounts = []interfaces.ExistingAccount{
		existing(t, f.betAddr, 2, bet),
		existing(t, f.eventAddr, 1, event),
		existing(t, f.profileAddr, 0, profile),
	}
	return f
}

func TestStore_BatchComposition(t *testing.T) {
	ctx := context.Background()
	f := newClaimFixture(t)
	tree := &MockTreeService{}
	store := newTestStore(tree, nil, f.accounts...)

	var sent *interfaces.TreeBatch
	tree.On("ApplyBatch", ctx, mock.AnythingOfType("*interfaces.TreeBatch")).
		Run(func(args mock.Arguments) { sent = args.Get(1).(*interfaces.TreeBatch) }).
		Return(&interfaces.BatchResult{}, nil)

	require.NoError(t, store.Begin(ctx))

	bet, err := store.Read(ctx, f.betAddr)
	require.NoError(t, err)
	bet.(*entities.Bet).Claimed = true
	require.NoError(t, store.Write(ctx, f.betAddr, bet))

	_, err = store.Read(ctx, f.eventAddr)
	require.NoError(t, err)

	profile, err := store.Read(ctx, f.profileAddr)
	require.NoError(t, err)
	profile.(*entities.PlayerProfile).Balance = 200
	require.NoError(t, store.Write(ctx, f.profileAddr, profile))

	require.NoError(t, store.Commit())
	tree.AssertExpectations(t)
	require.NotNil(t, sent)

	assert.Equal(t, testutil.ProgramID, sent.ProgramID)
	assert.NotEmpty(t, sent.ID)
	assert.Empty(t, sent.NewAddresses)

	require.Len(t, sent.ReadOnly, 1)
	assert.Equal(t, f.eventAddr, sent.ReadOnly[0].Meta.Address)

	require.Len(t, sent.Inputs, 2)
	assert.Equal(t, f.betAddr, sent.Inputs[0].Meta.Address)
	assert.Equal(t, f.profileAddr, sent.Inputs[1].Meta.Address)

	// Inputs assert the prior encoding, not the staged one
	prior := f.accounts[2]
	want := codec.LeafHash(testutil.ProgramID, f.profileAddr, codec.Discriminator(entities.KindPlayerProfile), codec.HashData(prior.Data))
	assert.Equal(t, interfaces.Hash(want), sent.Inputs[1].Hash)

	require.Len(t, sent.Outputs, 2)
	for _, out := range sent.Outputs {
		assert.Equal(t, stateTree, out.OutputTree)
		assert.Equal(t, interfaces.Hash(codec.HashData(out.Data)), out.DataHash)
	}
	decoded, err := codec.DecodeAs[*entities.PlayerProfile](codec.Compressed, sent.Outputs[1].Data)
	require.NoError(t, err)
	assert.Equal(t, uint64(200), decoded.Balance)
}

func TestStore_CreateAndClose(t *testing.T) {
	ctx := context.Background()
	f := newClaimFixture(t)
	tree := &MockTreeService{}
	store := newTestStore(tree, nil, f.accounts[0])

	var sent *interfaces.TreeBatch
	tree.On("ApplyBatch", ctx, mock.Anything).
		Run(func(args mock.Arguments) { sent = args.Get(1).(*interfaces.TreeBatch) }).
		Return(&interfaces.BatchResult{}, nil)

	require.NoError(t, store.Begin(ctx))

	refund, err := store.Close(ctx, f.betAddr, owner)
	require.NoError(t, err)
	assert.Zero(t, refund)

	_, err = store.Read(ctx, f.betAddr)
	assert.ErrorIs(t, err, entities.ErrNotFound)

	derived := address.Player(space, owner)
	require.NoError(t, store.Allocate(ctx, derived, entities.NewPlayerProfile(owner), owner))
	assert.ErrorIs(t, store.Allocate(ctx, derived, entities.NewPlayerProfile(owner), owner), entities.ErrAddressInUse)

	require.NoError(t, store.Commit())

	require.Len(t, sent.Inputs, 1)
	assert.Equal(t, f.betAddr, sent.Inputs[0].Meta.Address)
	require.Len(t, sent.NewAddresses, 1)
	assert.Equal(t, derived.Address, sent.NewAddresses[0].Address)
	assert.Equal(t, addressTree, sent.NewAddresses[0].AddressTree)
	require.Len(t, sent.Outputs, 1)
	assert.Equal(t, derived.Address, sent.Outputs[0].Address)
}

func TestStore_RejectedBatchDiscardsEvents(t *testing.T) {
	ctx := context.Background()
	tree := &MockTreeService{}
	publisher := &recordingPublisher{}
	store := newTestStore(tree, publisher)

	tree.On("ApplyBatch", ctx, mock.Anything).Return(nil, entities.ErrProofRejected)

	require.NoError(t, store.Begin(ctx))
	require.NoError(t, store.Allocate(ctx, address.Player(space, owner), entities.NewPlayerProfile(owner), owner))
	require.NoError(t, store.EventBus().Publish(events.PlayerInitializedEvent{Owner: owner}))

	err := store.Commit()
	assert.ErrorIs(t, err, entities.ErrProofRejected)
	assert.Empty(t, publisher.published)
	assert.Nil(t, store.Result())
}

func TestStore_CommittedBatchPublishesEvents(t *testing.T) {
	ctx := context.Background()
	tree := &MockTreeService{}
	publisher := &recordingPublisher{}
	store := newTestStore(tree, publisher)

	result := &interfaces.BatchResult{Outputs: []interfaces.AccountMeta{{Tree: stateTree}}}
	tree.On("ApplyBatch", ctx, mock.Anything).Return(result, nil)

	require.NoError(t, store.Begin(ctx))
	require.NoError(t, store.Allocate(ctx, address.Player(space, owner), entities.NewPlayerProfile(owner), owner))
	require.NoError(t, store.EventBus().Publish(events.PlayerInitializedEvent{Owner: owner}))
	require.NoError(t, store.Commit())

	assert.Len(t, publisher.published, 1)
	assert.Same(t, result, store.Result())
}

func TestStore_EmptyTransitionSkipsTreeService(t *testing.T) {
	ctx := context.Background()
	tree := &MockTreeService{}
	f := newClaimFixture(t)
	store := newTestStore(tree, nil, f.accounts...)

	require.NoError(t, store.Begin(ctx))
	_, err := store.Read(ctx, f.eventAddr)
	require.NoError(t, err)
	require.NoError(t, store.Commit())

	tree.AssertNotCalled(t, "ApplyBatch", mock.Anything, mock.Anything)
}

func TestStore_Guards(t *testing.T) {
	ctx := context.Background()
	f := newClaimFixture(t)

	t.Run("foreign address tree", func(t *testing.T) {
		store := newTestStore(&MockTreeService{}, nil)
		require.NoError(t, store.Begin(ctx))
		foreign := address.Player(address.NewTreeSpace(testutil.ProgramID, testutil.Account("other-tree")), owner)
		err := store.Allocate(ctx, foreign, entities.NewPlayerProfile(owner), owner)
		assert.ErrorIs(t, err, entities.ErrInvalidAddressTree)
	})

	t.Run("write without existing state", func(t *testing.T) {
		store := newTestStore(&MockTreeService{}, nil)
		require.NoError(t, store.Begin(ctx))
		err := store.Write(ctx, f.profileAddr, entities.NewPlayerProfile(owner))
		assert.ErrorIs(t, err, entities.ErrMissingExistingState)
	})

	t.Run("close without existing state", func(t *testing.T) {
		store := newTestStore(&MockTreeService{}, nil)
		require.NoError(t, store.Begin(ctx))
		_, err := store.Close(ctx, f.betAddr, owner)
		assert.ErrorIs(t, err, entities.ErrMissingExistingState)
	})

	t.Run("write of another kind", func(t *testing.T) {
		store := newTestStore(&MockTreeService{}, nil, f.accounts...)
		require.NoError(t, store.Begin(ctx))
		err := store.Write(ctx, f.betAddr, entities.NewPlayerProfile(owner))
		assert.ErrorIs(t, err, entities.ErrDiscriminatorMismatch)
	})

	t.Run("duplicate existing state", func(t *testing.T) {
		store := newTestStore(&MockTreeService{}, nil, f.accounts[0], f.accounts[0])
		assert.Error(t, store.Begin(ctx))
	})

	t.Run("begin twice", func(t *testing.T) {
		store := newTestStore(&MockTreeService{}, nil)
		require.NoError(t, store.Begin(ctx))
		assert.Error(t, store.Begin(ctx))
	})

	t.Run("single use", func(t *testing.T) {
		store := newTestStore(&MockTreeService{}, nil)
		require.NoError(t, store.Begin(ctx))
		require.NoError(t, store.Commit())
		assert.Error(t, store.Begin(ctx))
	})

	t.Run("use before begin panics", func(t *testing.T) {
		store := newTestStore(&MockTreeService{}, nil)
		assert.Panics(t, func() { _, _ = store.Read(ctx, f.betAddr) })
	})
}

func TestPrepare_SkipsUnknownAccounts(t *testing.T) {
	ctx := context.Background()
	tree := &MockTreeService{}
	trees := &interfaces.TreeInfo{AddressTree: addressTree, OutputTree: stateTree}

	known := existing(t, address.Player(space, owner).Address, 0, entities.NewPlayerProfile(owner))
	leafHash := interfaces.Hash{1}
	tree.On("GetCompressedAccount", ctx, known.Meta.Address).
		Return(&interfaces.CompressedAccount{Meta: known.Meta, Data: known.Data, Hash: leafHash}, nil)
	tree.On("GetCompressedAccount", ctx, address.Event(space, 7).Address).
		Return(nil, entities.ErrNotFound)

	proof := &interfaces.ValidityProof{Attestation: interfaces.Hash{9}}
	bet := address.Bet(space, owner, 7)
	tree.On("GetValidityProof", ctx, []interfaces.Hash{leafHash}, []interfaces.NewAddress{{
		Seed: bet.Seed, AddressTree: addressTree, Address: bet.Address,
	}}).Return(proof, nil)

	w, err := Prepare(ctx, tree, trees, PlanPlaceBet(space, owner, 7))
	require.NoError(t, err)
	tree.AssertExpectations(t)

	assert.Equal(t, *proof, w.Proof)
	assert.Equal(t, stateTree, w.OutputTree)
	require.Len(t, w.Existing, 1)
	assert.Equal(t, known.Meta, w.Existing[0].Meta)
}

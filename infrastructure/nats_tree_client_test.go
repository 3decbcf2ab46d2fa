package infrastructure

import (
	"context"
	"errors"
	"testing"

	"oraclequest/compressed"
	"oraclequest/domain/address"
	"oraclequest/domain/entities"
	"oraclequest/domain/services"
	"oraclequest/repository/testutil"
	"oraclequest/treeservice"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockRequester is a testify mock of Requester
type MockRequester struct {
	mock.Mock
}

func (m *MockRequester) Request(ctx context.Context, subject string, data []byte) ([]byte, error) {
	args := m.Called(ctx, subject, data)
	switch reply := args.Get(0).(type) {
	case func(context.Context, string, []byte) []byte:
		return reply(ctx, subject, data), args.Error(1)
	case []byte:
		return reply, args.Error(1)
	}
	return nil, args.Error(1)
}

// loopback routes every request to an in-process tree service
func loopback(t *testing.T) *MockRequester {
	t.Helper()
	tree, err := treeservice.Open(context.Background(), ":memory:", treeservice.Options{ProofKey: []byte("loopback")})
	require.NoError(t, err)
	t.Cleanup(func() { tree.Close() })
	server := treeservice.NewServer(tree)

	requester := &MockRequester{}
	requester.On("Request", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(func(ctx context.Context, subject string, data []byte) []byte {
			return server.Handle(ctx, subject, data)
		}, nil)
	return requester
}

func TestNATSTreeClient_CompressedTransitions(t *testing.T) {
	ctx := context.Background()
	requester := loopback(t)
	client := NewNATSTreeClient(requester)
	engine := services.NewEngine(nil)
	alice := testutil.Account("alice")

	trees, err := client.PickTrees(ctx)
	require.NoError(t, err)
	space := address.NewTreeSpace(testutil.ProgramID, trees.AddressTree)

	run := func(plan compressed.Plan, fn func(*compressed.Store) error) error {
		witness, err := compressed.Prepare(ctx, client, trees, plan)
		require.NoError(t, err)
		return fn(compressed.NewStore(client, witness, compressed.Options{ProgramID: testutil.ProgramID}))
	}

	err = run(compressed.PlanInitializePlayer(space, alice), func(s *compressed.Store) error {
		_, err := engine.InitializePlayer(ctx, s, alice)
		return err
	})
	require.NoError(t, err)

	err = run(compressed.PlanInitializePlayer(space, alice), func(s *compressed.Store) error {
		_, err := engine.InitializePlayer(ctx, s, alice)
		return err
	})
	assert.ErrorIs(t, err, entities.ErrAlreadyInitialized)

	acc, err := client.GetCompressedAccount(ctx, address.Player(space, alice).Address)
	require.NoError(t, err)
	assert.Equal(t, testutil.ProgramID, acc.Owner)

	_, err = client.GetCompressedAccount(ctx, address.Player(space, testutil.Account("bob")).Address)
	assert.True(t, errors.Is(err, entities.ErrNotFound))

	requester.AssertCalled(t, "Request", mock.Anything, treeservice.SubjectApply, mock.Anything)
}

func TestNATSTreeClient_TransportError(t *testing.T) {
	requester := &MockRequester{}
	requester.On("Request", mock.Anything, treeservice.SubjectTrees, mock.Anything).
		Return(nil, errors.New("nats: timeout"))

	_, err := NewNATSTreeClient(requester).PickTrees(context.Background())
	assert.ErrorContains(t, err, "nats: timeout")
	assert.False(t, entities.IsRetryable(err))
	requester.AssertExpectations(t)
}

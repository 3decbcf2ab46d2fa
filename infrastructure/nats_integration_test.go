package infrastructure

import (
	"context"
	"testing"
	"time"

	"oraclequest/compressed"
	"oraclequest/domain/address"
	"oraclequest/domain/entities"
	"oraclequest/domain/services"
	"oraclequest/events"
	"oraclequest/repository/testutil"
	"oraclequest/treeservice"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// startNATS runs a JetStream enabled NATS server for the test
func startNATS(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping NATS integration test in short mode")
	}

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "nats:2.10-alpine",
			Cmd:          []string{"-js"},
			ExposedPorts: []string{"4222/tcp"},
			WaitingFor:   wait.ForLog("Server is ready").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("failed to terminate NATS container: %v", err)
		}
	})

	endpoint, err := container.PortEndpoint(ctx, "4222/tcp", "nats")
	require.NoError(t, err)
	return endpoint
}

func TestNATS_TreeServiceRoundTrip(t *testing.T) {
	servers := startNATS(t)
	ctx := context.Background()

	serverConn := NewNATSClient(servers, "treeservice-test")
	require.NoError(t, serverConn.Connect(ctx))
	defer serverConn.Close()

	tree, err := treeservice.Open(ctx, ":memory:", treeservice.Options{})
	require.NoError(t, err)
	defer tree.Close()
	server := treeservice.NewServer(tree)
	require.NoError(t, server.Start(serverConn.Conn()))
	defer server.Stop()

	clientConn := NewNATSClient(servers, "engine-test")
	require.NoError(t, clientConn.Connect(ctx))
	defer clientConn.Close()
	client := NewNATSTreeClient(clientConn)

	trees, err := client.PickTrees(ctx)
	require.NoError(t, err)
	space := address.NewTreeSpace(testutil.ProgramID, trees.AddressTree)
	alice := testutil.Account("alice")

	witness, err := compressed.Prepare(ctx, client, trees, compressed.PlanInitializePlayer(space, alice))
	require.NoError(t, err)
	store := compressed.NewStore(client, witness, compressed.Options{ProgramID: testutil.ProgramID})

	profile, err := services.NewEngine(nil).InitializePlayer(ctx, store, alice)
	require.NoError(t, err)
	assert.Equal(t, alice, profile.Owner)

	acc, err := client.GetCompressedAccount(ctx, address.Player(space, alice).Address)
	require.NoError(t, err)
	assert.Equal(t, store.Result().Outputs[0], acc.Meta)
}

func TestNATS_EventPublisherJetStream(t *testing.T) {
	servers := startNATS(t)
	ctx := context.Background()

	client := NewNATSClient(servers, "publisher-test")
	require.NoError(t, client.Connect(ctx))
	defer client.Close()

	mapper := NewEventSubjectMapper()
	require.NoError(t, client.EnsureStream(DomainEventStream, mapper.GetAllSubjects()))
	require.NoError(t, client.EnsureStream(DomainEventStream, mapper.GetAllSubjects()))

	received := make(chan *nats.Msg, 1)
	sub, err := client.Conn().ChanSubscribe("ledger.events.created", received)
	require.NoError(t, err)
	defer sub.Unsubscribe()

	publisher := NewNATSEventPublisher(client, mapper, nil)
	require.NoError(t, publisher.Publish(events.EventCreatedEvent{
		Regime:  entities.RegimeDirect,
		EventID: 42,
	}))

	select {
	case msg := <-received:
		assert.Contains(t, string(msg.Data), `"event_type":"event_created"`)
	case <-time.After(5 * time.Second):
		t.Fatal("event was not delivered")
	}
}

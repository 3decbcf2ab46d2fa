package treeservice

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"oraclequest/domain/entities"
	"oraclequest/domain/interfaces"
	"oraclequest/repository/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServer_HandleApplyAndAccount(t *testing.T) {
	ctx := context.Background()
	tree := openTestTree(t, 1)
	server := NewServer(tree)

	batch := createProfileBatch(t, tree, testutil.Account("alice"))
	payload, err := json.Marshal(batch)
	require.NoError(t, err)

	var result interfaces.BatchResult
	require.NoError(t, DecodeResponse(server.Handle(ctx, SubjectApply, payload), &result))
	require.Len(t, result.Outputs, 1)

	req, err := json.Marshal(AccountRequest{Address: batch.Outputs[0].Address})
	require.NoError(t, err)

	var acc interfaces.CompressedAccount
	require.NoError(t, DecodeResponse(server.Handle(ctx, SubjectAccount, req), &acc))
	assert.Equal(t, batch.Outputs[0].Data, acc.Data)
	assert.Equal(t, batch.Outputs[0].Discriminator, acc.Discriminator)
}

func TestServer_LedgerErrorsSurviveTheWire(t *testing.T) {
	ctx := context.Background()
	tree := openTestTree(t, 1)
	server := NewServer(tree)

	req, err := json.Marshal(AccountRequest{Address: testutil.Account("missing")})
	require.NoError(t, err)
	err = DecodeResponse(server.Handle(ctx, SubjectAccount, req), &interfaces.CompressedAccount{})
	assert.True(t, errors.Is(err, entities.ErrNotFound))

	batch := createProfileBatch(t, tree, testutil.Account("alice"))
	batch.Proof.Attestation[0] ^= 0xFF
	payload, err := json.Marshal(batch)
	require.NoError(t, err)

	err = DecodeResponse(server.Handle(ctx, SubjectApply, payload), &interfaces.BatchResult{})
	assert.ErrorIs(t, err, entities.ErrProofRejected)
	assert.True(t, entities.IsRetryable(err))
}

func TestServer_ProofAndTrees(t *testing.T) {
	ctx := context.Background()
	tree := openTestTree(t, 1)
	server := NewServer(tree)

	var trees interfaces.TreeInfo
	require.NoError(t, DecodeResponse(server.Handle(ctx, SubjectTrees, nil), &trees))
	assert.Equal(t, AddressTreeID(0), trees.AddressTree)

	batch := createProfileBatch(t, tree, testutil.Account("alice"))
	req, err := json.Marshal(ProofRequest{NewAddresses: batch.NewAddresses})
	require.NoError(t, err)

	var proof interfaces.ValidityProof
	require.NoError(t, DecodeResponse(server.Handle(ctx, SubjectProof, req), &proof))
	assert.Equal(t, batch.Proof.Roots, proof.Roots)
	assert.Equal(t, batch.Proof.Attestation, proof.Attestation)
}

func TestServer_BadRequests(t *testing.T) {
	ctx := context.Background()
	server := NewServer(openTestTree(t, 1))

	err := DecodeResponse(server.Handle(ctx, SubjectApply, []byte("{")), nil)
	assert.Error(t, err)
	_, isLedger := entities.CategoryOf(err)
	assert.False(t, isLedger)

	err = DecodeResponse(server.Handle(ctx, SubjectPrefix+".nope", nil), nil)
	assert.ErrorContains(t, err, "unknown subject")
}

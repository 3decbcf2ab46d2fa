package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"

	"oraclequest/domain/entities"
	"oraclequest/domain/interfaces"
	"oraclequest/treeservice"
)

// Requester sends a request and returns the raw reply
type Requester interface {
	Request(ctx context.Context, subject string, data []byte) ([]byte, error)
}

// NATSTreeClient reaches a remote tree service over NATS request/reply
type NATSTreeClient struct {
	requester Requester
}

// NewNATSTreeClient creates a tree service client over requester
func NewNATSTreeClient(requester Requester) *NATSTreeClient {
	return &NATSTreeClient{requester: requester}
}

var _ interfaces.TreeService = (*NATSTreeClient)(nil)

func (c *NATSTreeClient) GetCompressedAccount(ctx context.Context, addr entities.AccountID) (*interfaces.CompressedAccount, error) {
	var acc interfaces.CompressedAccount
	if err := c.call(ctx, treeservice.SubjectAccount, treeservice.AccountRequest{Address: addr}, &acc); err != nil {
		return nil, err
	}
	return &acc, nil
}

func (c *NATSTreeClient) GetValidityProof(ctx context.Context, hashes []interfaces.Hash, newAddresses []interfaces.NewAddress) (*interfaces.ValidityProof, error) {
	var proof interfaces.ValidityProof
	req := treeservice.ProofRequest{Hashes: hashes, NewAddresses: newAddresses}
	if err := c.call(ctx, treeservice.SubjectProof, req, &proof); err != nil {
		return nil, err
	}
	return &proof, nil
}

func (c *NATSTreeClient) PickTrees(ctx context.Context) (*interfaces.TreeInfo, error) {
	var info interfaces.TreeInfo
	if err := c.call(ctx, treeservice.SubjectTrees, struct{}{}, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

func (c *NATSTreeClient) ApplyBatch(ctx context.Context, batch *interfaces.TreeBatch) (*interfaces.BatchResult, error) {
	var result interfaces.BatchResult
	if err := c.call(ctx, treeservice.SubjectApply, batch, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *NATSTreeClient) call(ctx context.Context, subject string, req, result any) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal %s request: %w", subject, err)
	}
	reply, err := c.requester.Request(ctx, subject, payload)
	if err != nil {
		return err
	}
	return treeservice.DecodeResponse(reply, result)
}

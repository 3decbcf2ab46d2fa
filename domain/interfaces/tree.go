package interfaces

import (
	"context"
	"encoding/hex"
	"fmt"

	"oraclequest/domain/codec"
	"oraclequest/domain/entities"
)

// Hash is a 32-byte tree digest
type Hash [32]byte

// TreeRoot is the root of one tree at the time a proof was issued
type TreeRoot struct {
	Tree entities.AccountID `json:"tree"`
	Root Hash               `json:"root"`
}

// ValidityProof is an opaque attestation issued by the tree service over a
// set of leaf hashes (membership) and addresses (non-membership), bound to
// the tree roots current at issue time. It is only ever verified by the service.
type ValidityProof struct {
	Roots       []TreeRoot           `json:"roots"`
	LeafHashes  []Hash               `json:"leaf_hashes,omitempty"`
	Addresses   []entities.AccountID `json:"addresses,omitempty"`
	Attestation Hash                 `json:"attestation"`
}

// AccountMeta locates a compressed account within a state tree
type AccountMeta struct {
	Address   entities.AccountID `json:"address"`
	Tree      entities.AccountID `json:"tree"`
	LeafIndex uint64             `json:"leaf_index"`
}

// ExistingAccount is the caller-supplied prior state of a compressed account
// that a transition reads or mutates
type ExistingAccount struct {
	Meta AccountMeta `json:"meta"`
	Data []byte      `json:"data"`
}

// CompressedAccount is a live leaf as reported by the tree service
type CompressedAccount struct {
	Meta          AccountMeta                  `json:"meta"`
	Owner         entities.AccountID           `json:"owner"`
	Discriminator [codec.DiscriminatorLen]byte `json:"discriminator"`
	Data          []byte                       `json:"data"`
	DataHash      Hash                         `json:"data_hash"`
	Hash          Hash                         `json:"hash"`
}

// NewAddress requests that an address be created in an address tree
type NewAddress struct {
	Seed        Hash               `json:"seed"`
	AddressTree entities.AccountID `json:"address_tree"`
	Address     entities.AccountID `json:"address"`
}

// InputLeaf asserts that the leaf at Meta currently holds Hash
type InputLeaf struct {
	Meta AccountMeta `json:"meta"`
	Hash Hash        `json:"hash"`
}

// OutputLeaf is a new or replacement leaf value
type OutputLeaf struct {
	Address       entities.AccountID           `json:"address"`
	OutputTree    entities.AccountID           `json:"output_tree"`
	Discriminator [codec.DiscriminatorLen]byte `json:"discriminator"`
	Data          []byte                       `json:"data"`
	DataHash      Hash                         `json:"data_hash"`
}

// TreeBatch is the state delta of one compressed transition. Inputs are
// consumed, ReadOnly inputs are only proven, Outputs are appended.
type TreeBatch struct {
	ID           string             `json:"id"`
	ProgramID    entities.AccountID `json:"program_id"`
	Proof        ValidityProof      `json:"proof"`
	NewAddresses []NewAddress       `json:"new_addresses,omitempty"`
	Inputs       []InputLeaf        `json:"inputs,omitempty"`
	ReadOnly     []InputLeaf        `json:"read_only,omitempty"`
	Outputs      []OutputLeaf       `json:"outputs,omitempty"`
}

// BatchResult reports where outputs landed and the roots after application
type BatchResult struct {
	Outputs []AccountMeta `json:"outputs"`
	Roots   []TreeRoot    `json:"roots"`
}

// TreeInfo describes the trees a client should address new state into
type TreeInfo struct {
	AddressTree entities.AccountID `json:"address_tree"`
	OutputTree  entities.AccountID `json:"output_tree"`
}

// TreeService is the commitment-tree service. ApplyBatch advances the
// tree atomically or rejects the whole batch.
type TreeService interface {
	GetCompressedAccount(ctx context.Context, addr entities.AccountID) (*CompressedAccount, error)
	GetValidityProof(ctx context.Context, hashes []Hash, newAddresses []NewAddress) (*ValidityProof, error)
	PickTrees(ctx context.Context) (*TreeInfo, error)
	ApplyBatch(ctx context.Context, batch *TreeBatch) (*BatchResult, error)
}

func (h Hash) MarshalText() ([]byte, error) {
	return []byte(hex.EncodeToString(h[:])), nil
}

func (h *Hash) UnmarshalText(text []byte) error {
	raw, err := hex.DecodeString(string(text))
	if err != nil {
		return fmt.Errorf("invalid hash: %w", err)
	}
	if len(raw) != len(h) {
		return fmt.Errorf("invalid hash: want %d bytes, got %d", len(h), len(raw))
	}
	copy(h[:], raw)
	return nil
}

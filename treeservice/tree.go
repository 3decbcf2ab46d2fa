// Package treeservice is a reference commitment-tree service. It keeps
// compressed leaves and the address set in SQLite, issues validity proofs
// bound to the current tree roots and applies batches atomically.
package treeservice

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"oraclequest/domain/address"
	"oraclequest/domain/codec"
	"oraclequest/domain/entities"
	"oraclequest/domain/interfaces"

	log "github.com/sirupsen/logrus"
)

const (
	treeKindState   = "state"
	treeKindAddress = "address"
)

// Options configures the tree service
type Options struct {
	// ProofKey authenticates issued proofs. A random key is used when empty,
	// which invalidates outstanding proofs on restart.
	ProofKey []byte
	// StateTrees is the number of state trees to maintain, at least one
	StateTrees int
}

// Tree implements interfaces.TreeService on SQLite
type Tree struct {
	db          *sql.DB
	key         []byte
	mu          sync.Mutex
	addressTree entities.AccountID
	stateTrees  []entities.AccountID
}

var _ interfaces.TreeService = (*Tree)(nil)

// AddressTreeID returns the identity of the i-th address tree
func AddressTreeID(i int) entities.AccountID {
	return entities.AccountID(sha256.Sum256([]byte(fmt.Sprintf("oraclequest/v1/address-tree/%d", i))))
}

// StateTreeID returns the identity of the i-th state tree
func StateTreeID(i int) entities.AccountID {
	return entities.AccountID(sha256.Sum256([]byte(fmt.Sprintf("oraclequest/v1/state-tree/%d", i))))
}

// Open opens or creates the tree database at path
func Open(ctx context.Context, path string, opts Options) (*Tree, error) {
	db, err := openDB(ctx, path)
	if err != nil {
		return nil, err
	}

	key := opts.ProofKey
	if len(key) == 0 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to generate proof key: %w", err)
		}
	}
	n := opts.StateTrees
	if n < 1 {
		n = 1
	}

	t := &Tree{db: db, key: key, addressTree: AddressTreeID(0)}
	for i := 0; i < n; i++ {
		t.stateTrees = append(t.stateTrees, StateTreeID(i))
	}

	if err := t.ensureTrees(ctx); err != nil {
		db.Close()
		return nil, err
	}

	log.WithFields(log.Fields{
		"path":        path,
		"addressTree": t.addressTree,
		"stateTrees":  len(t.stateTrees),
	}).Info("Tree service storage ready")
	return t, nil
}

// Close closes the underlying database
func (t *Tree) Close() error {
	return t.db.Close()
}

func (t *Tree) ensureTrees(ctx context.Context) error {
	insert := `INSERT OR IGNORE INTO trees (pubkey, kind, root) VALUES (?, ?, ?)`
	if _, err := t.db.ExecContext(ctx, insert, t.addressTree[:], treeKindAddress, emptyRoot[:]); err != nil {
		return fmt.Errorf("failed to register address tree: %w", err)
	}
	for _, st := range t.stateTrees {
		if _, err := t.db.ExecContext(ctx, insert, st[:], treeKindState, emptyRoot[:]); err != nil {
			return fmt.Errorf("failed to register state tree: %w", err)
		}
	}
	return nil
}

// GetCompressedAccount returns the live leaf at addr
func (t *Tree) GetCompressedAccount(ctx context.Context, addr entities.AccountID) (*interfaces.CompressedAccount, error) {
	query := `
		SELECT tree, leaf_index, hash, owner, discriminator, data, data_hash
		FROM leaves
		WHERE address = ? AND spent = 0
	`
	var tree, hash, owner, disc, dataHash []byte
	var leafIndex int64
	acc := &interfaces.CompressedAccount{}
	err := t.db.QueryRowContext(ctx, query, addr[:]).Scan(&tree, &leafIndex, &hash, &owner, &disc, &acc.Data, &dataHash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entities.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get compressed account %s: %w", addr, err)
	}

	acc.Meta = interfaces.AccountMeta{Address: addr, LeafIndex: uint64(leafIndex)}
	copy(acc.Meta.Tree[:], tree)
	copy(acc.Hash[:], hash)
	copy(acc.Owner[:], owner)
	copy(acc.Discriminator[:], disc)
	copy(acc.DataHash[:], dataHash)
	return acc, nil
}

// PickTrees returns the address tree and the least populated state tree
func (t *Tree) PickTrees(ctx context.Context) (*interfaces.TreeInfo, error) {
	info := &interfaces.TreeInfo{AddressTree: t.addressTree, OutputTree: t.stateTrees[0]}
	best := int64(-1)
	for _, st := range t.stateTrees {
		var next int64
		if err := t.db.QueryRowContext(ctx, `SELECT next_index FROM trees WHERE pubkey = ?`, st[:]).Scan(&next); err != nil {
			return nil, fmt.Errorf("failed to read state tree %s: %w", st, err)
		}
		if best < 0 || next < best {
			best = next
			info.OutputTree = st
		}
	}
	return info, nil
}

// GetValidityProof issues a proof over live leaf hashes and candidate new
// addresses, bound to the roots of every tree involved. Whether the
// addresses are actually free is checked when the batch is applied.
func (t *Tree) GetValidityProof(ctx context.Context, hashes []interfaces.Hash, newAddresses []interfaces.NewAddress) (*interfaces.ValidityProof, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	trees := make(map[entities.AccountID]struct{})
	for _, h := range hashes {
		var tree []byte
		err := t.db.QueryRowContext(ctx, `SELECT tree FROM leaves WHERE hash = ? AND spent = 0`, h[:]).Scan(&tree)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("leaf %x is not live: %w", h[:8], entities.ErrProofRejected)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to locate leaf: %w", err)
		}
		var id entities.AccountID
		copy(id[:], tree)
		trees[id] = struct{}{}
	}

	addrs := make([]entities.AccountID, 0, len(newAddresses))
	for _, na := range newAddresses {
		if na.AddressTree != t.addressTree {
			return nil, entities.ErrInvalidAddressTree
		}
		trees[na.AddressTree] = struct{}{}
		addrs = append(addrs, na.Address)
	}

	roots := make([]interfaces.TreeRoot, 0, len(trees))
	for id := range trees {
		root, err := t.currentRoot(ctx, t.db, id)
		if err != nil {
			return nil, err
		}
		roots = append(roots, interfaces.TreeRoot{Tree: id, Root: root})
	}
	sortRoots(roots)

	proof := &interfaces.ValidityProof{
		Roots:      roots,
		LeafHashes: append([]interfaces.Hash(nil), hashes...),
		Addresses:  addrs,
	}
	proof.Attestation = attest(t.key, proof.Roots, proof.LeafHashes, proof.Addresses)
	return proof, nil
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (t *Tree) currentRoot(ctx context.Context, q queryer, tree entities.AccountID) (interfaces.Hash, error) {
	var root []byte
	err := q.QueryRowContext(ctx, `SELECT root FROM trees WHERE pubkey = ?`, tree[:]).Scan(&root)
	if errors.Is(err, sql.ErrNoRows) {
		return interfaces.Hash{}, fmt.Errorf("unknown tree %s: %w", tree, entities.ErrInvalidAddressTree)
	}
	if err != nil {
		return interfaces.Hash{}, fmt.Errorf("failed to read root of %s: %w", tree, err)
	}
	var h interfaces.Hash
	copy(h[:], root)
	return h, nil
}

// ApplyBatch verifies batch against its proof and the live tree state and
// applies it atomically. Any failed check rejects the whole batch.
func (t *Tree) ApplyBatch(ctx context.Context, batch *interfaces.TreeBatch) (*interfaces.BatchResult, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin batch: %w", err)
	}
	defer tx.Rollback()

	plan, err := t.verify(ctx, tx, batch)
	if err != nil {
		log.WithFields(log.Fields{
			"batch": batch.ID,
			"error": err,
		}).Warn("Rejected tree batch")
		return nil, err
	}

	result, err := t.apply(ctx, tx, batch, plan)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit batch: %w", err)
	}

	log.WithFields(log.Fields{
		"batch":        batch.ID,
		"newAddresses": len(batch.NewAddresses),
		"inputs":       len(batch.Inputs),
		"outputs":      len(batch.Outputs),
	}).Info("Applied tree batch")
	return result, nil
}

// batchPlan is what verification learned about a batch
type batchPlan struct {
	consumed map[entities.AccountID]interfaces.AccountMeta
	created  map[entities.AccountID]bool
	touched  map[entities.AccountID]bool
}

func (t *Tree) verify(ctx context.Context, tx *sql.Tx, batch *interfaces.TreeBatch) (*batchPlan, error) {
	proof := &batch.Proof
	if !verifyAttestation(t.key, proof) {
		return nil, fmt.Errorf("attestation mismatch: %w", entities.ErrProofRejected)
	}

	proven := make(map[entities.AccountID]bool, len(proof.Roots))
	for _, r := range proof.Roots {
		current, err := t.currentRoot(ctx, tx, r.Tree)
		if err != nil {
			return nil, err
		}
		if current != r.Root {
			return nil, fmt.Errorf("stale root for tree %s: %w", r.Tree, entities.ErrProofRejected)
		}
		proven[r.Tree] = true
	}

	provenHashes := make(map[interfaces.Hash]bool, len(proof.LeafHashes))
	for _, h := range proof.LeafHashes {
		provenHashes[h] = true
	}
	provenAddrs := make(map[entities.AccountID]bool, len(proof.Addresses))
	for _, a := range proof.Addresses {
		provenAddrs[a] = true
	}

	plan := &batchPlan{
		consumed: make(map[entities.AccountID]interfaces.AccountMeta),
		created:  make(map[entities.AccountID]bool),
		touched:  make(map[entities.AccountID]bool),
	}
	seenLeaves := make(map[interfaces.AccountMeta]bool)

	checkInput := func(in interfaces.InputLeaf) error {
		if seenLeaves[in.Meta] {
			return fmt.Errorf("leaf %s referenced twice: %w", in.Meta.Address, entities.ErrProofRejected)
		}
		seenLeaves[in.Meta] = true
		if !provenHashes[in.Hash] || !proven[in.Meta.Tree] {
			return fmt.Errorf("leaf %s not covered by proof: %w", in.Meta.Address, entities.ErrProofRejected)
		}
		var hash, addr, owner []byte
		var spent bool
		err := tx.QueryRowContext(ctx,
			`SELECT hash, address, owner, spent FROM leaves WHERE tree = ? AND leaf_index = ?`,
			in.Meta.Tree[:], int64(in.Meta.LeafIndex),
		).Scan(&hash, &addr, &owner, &spent)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("no leaf at %s/%d: %w", in.Meta.Tree, in.Meta.LeafIndex, entities.ErrProofRejected)
		}
		if err != nil {
			return fmt.Errorf("failed to read leaf: %w", err)
		}
		if spent || string(hash) != string(in.Hash[:]) || string(addr) != string(in.Meta.Address[:]) || string(owner) != string(batch.ProgramID[:]) {
			return fmt.Errorf("prior state of %s does not match: %w", in.Meta.Address, entities.ErrProofRejected)
		}
		return nil
	}

	for _, in := range batch.ReadOnly {
		if err := checkInput(in); err != nil {
			return nil, err
		}
	}
	for _, in := range batch.Inputs {
		if err := checkInput(in); err != nil {
			return nil, err
		}
		plan.consumed[in.Meta.Address] = in.Meta
		plan.touched[in.Meta.Tree] = true
	}

	for _, na := range batch.NewAddresses {
		if na.AddressTree != t.addressTree || !proven[na.AddressTree] {
			return nil, entities.ErrInvalidAddressTree
		}
		if address.FromSeed(na.Seed, na.AddressTree) != na.Address {
			return nil, fmt.Errorf("address does not derive from seed: %w", entities.ErrInvalidAddressTree)
		}
		if !provenAddrs[na.Address] {
			return nil, fmt.Errorf("address %s not covered by proof: %w", na.Address, entities.ErrProofRejected)
		}
		if plan.created[na.Address] {
			return nil, entities.ErrAddressInUse
		}
		var exists int
		err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM addresses WHERE tree = ? AND address = ?`,
			na.AddressTree[:], na.Address[:],
		).Scan(&exists)
		if err != nil {
			return nil, fmt.Errorf("failed to check address: %w", err)
		}
		if exists > 0 {
			return nil, entities.ErrAddressInUse
		}
		plan.created[na.Address] = true
		plan.touched[na.AddressTree] = true
	}

	written := make(map[entities.AccountID]bool, len(batch.Outputs))
	for _, out := range batch.Outputs {
		_, mutated := plan.consumed[out.Address]
		if !mutated && !plan.created[out.Address] {
			return nil, fmt.Errorf("output %s has no input or new address: %w", out.Address, entities.ErrProofRejected)
		}
		if written[out.Address] {
			return nil, fmt.Errorf("output %s written twice: %w", out.Address, entities.ErrProofRejected)
		}
		written[out.Address] = true
		if !t.isStateTree(out.OutputTree) {
			return nil, fmt.Errorf("unknown output tree %s: %w", out.OutputTree, entities.ErrInvalidAddressTree)
		}
		if len(out.Data) < codec.DiscriminatorLen || string(out.Data[:codec.DiscriminatorLen]) != string(out.Discriminator[:]) {
			return nil, entities.ErrDiscriminatorMismatch
		}
		if codec.HashData(out.Data) != out.DataHash {
			return nil, fmt.Errorf("data hash mismatch for %s: %w", out.Address, entities.ErrInvalidAccountData)
		}
		plan.touched[out.OutputTree] = true
	}
	for addr := range plan.created {
		if !written[addr] {
			return nil, fmt.Errorf("new address %s has no output: %w", addr, entities.ErrInvalidAccountData)
		}
	}
	return plan, nil
}

func (t *Tree) apply(ctx context.Context, tx *sql.Tx, batch *interfaces.TreeBatch, plan *batchPlan) (*interfaces.BatchResult, error) {
	if _, err := tx.ExecContext(ctx, `INSERT INTO batches (id, program_id) VALUES (?, ?)`, batch.ID, batch.ProgramID[:]); err != nil {
		return nil, fmt.Errorf("failed to record batch %s: %w", batch.ID, err)
	}

	for _, in := range batch.Inputs {
		if _, err := tx.ExecContext(ctx,
			`UPDATE leaves SET spent = 1 WHERE tree = ? AND leaf_index = ?`,
			in.Meta.Tree[:], int64(in.Meta.LeafIndex),
		); err != nil {
			return nil, fmt.Errorf("failed to nullify leaf: %w", err)
		}
	}

	for _, na := range batch.NewAddresses {
		var position int64
		if err := tx.QueryRowContext(ctx, `SELECT next_index FROM trees WHERE pubkey = ?`, na.AddressTree[:]).Scan(&position); err != nil {
			return nil, fmt.Errorf("failed to read address tree: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO addresses (tree, address, seed, position, batch_id) VALUES (?, ?, ?, ?, ?)`,
			na.AddressTree[:], na.Address[:], na.Seed[:], position, batch.ID,
		); err != nil {
			return nil, fmt.Errorf("failed to insert address: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `UPDATE trees SET next_index = next_index + 1 WHERE pubkey = ?`, na.AddressTree[:]); err != nil {
			return nil, fmt.Errorf("failed to advance address tree: %w", err)
		}
	}

	result := &interfaces.BatchResult{}
	for _, out := range batch.Outputs {
		var index int64
		if err := tx.QueryRowContext(ctx, `SELECT next_index FROM trees WHERE pubkey = ?`, out.OutputTree[:]).Scan(&index); err != nil {
			return nil, fmt.Errorf("failed to read state tree: %w", err)
		}
		leafHash := codec.LeafHash(batch.ProgramID, out.Address, out.Discriminator, out.DataHash)
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO leaves (tree, leaf_index, hash, address, owner, discriminator, data, data_hash, batch_id)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			out.OutputTree[:], index, leafHash[:], out.Address[:], batch.ProgramID[:],
			out.Discriminator[:], out.Data, out.DataHash[:], batch.ID,
		); err != nil {
			return nil, fmt.Errorf("failed to append leaf: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `UPDATE trees SET next_index = next_index + 1 WHERE pubkey = ?`, out.OutputTree[:]); err != nil {
			return nil, fmt.Errorf("failed to advance state tree: %w", err)
		}
		result.Outputs = append(result.Outputs, interfaces.AccountMeta{
			Address:   out.Address,
			Tree:      out.OutputTree,
			LeafIndex: uint64(index),
		})
	}

	for tree := range plan.touched {
		root, err := t.recomputeRoot(ctx, tx, tree)
		if err != nil {
			return nil, err
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE trees SET root = ?, sequence = sequence + 1 WHERE pubkey = ?`,
			root[:], tree[:],
		); err != nil {
			return nil, fmt.Errorf("failed to store root: %w", err)
		}
		result.Roots = append(result.Roots, interfaces.TreeRoot{Tree: tree, Root: root})
	}
	sortRoots(result.Roots)
	return result, nil
}

// recomputeRoot rebuilds a tree root. Spent state leaves count as zero hashes.
func (t *Tree) recomputeRoot(ctx context.Context, tx *sql.Tx, tree entities.AccountID) (interfaces.Hash, error) {
	var query string
	if tree == t.addressTree {
		query = `SELECT address, 0 FROM addresses WHERE tree = ? ORDER BY position`
	} else {
		query = `SELECT hash, spent FROM leaves WHERE tree = ? ORDER BY leaf_index`
	}

	rows, err := tx.QueryContext(ctx, query, tree[:])
	if err != nil {
		return interfaces.Hash{}, fmt.Errorf("failed to load tree %s: %w", tree, err)
	}
	defer rows.Close()

	var leaves []interfaces.Hash
	for rows.Next() {
		var value []byte
		var spent bool
		if err := rows.Scan(&value, &spent); err != nil {
			return interfaces.Hash{}, fmt.Errorf("failed to scan leaf: %w", err)
		}
		var h interfaces.Hash
		if !spent {
			copy(h[:], value)
		}
		leaves = append(leaves, h)
	}
	if err := rows.Err(); err != nil {
		return interfaces.Hash{}, fmt.Errorf("failed to iterate tree %s: %w", tree, err)
	}
	return merkleRoot(leaves), nil
}

func (t *Tree) isStateTree(id entities.AccountID) bool {
	for _, st := range t.stateTrees {
		if st == id {
			return true
		}
	}
	return false
}

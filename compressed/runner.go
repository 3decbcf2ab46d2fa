package compressed

import (
	"context"
	"fmt"

	"oraclequest/domain/address"
	"oraclequest/domain/entities"
	"oraclequest/domain/interfaces"

	log "github.com/sirupsen/logrus"
)

// DefaultAttempts bounds how often a transition is retried on a stale proof
const DefaultAttempts = 3

// Runner executes transitions against a tree service, preparing a fresh
// witness for every attempt
type Runner struct {
	tree     interfaces.TreeService
	opts     Options
	attempts int
}

// NewRunner creates a runner. attempts below one means DefaultAttempts.
func NewRunner(tree interfaces.TreeService, opts Options, attempts int) *Runner {
	if attempts < 1 {
		attempts = DefaultAttempts
	}
	return &Runner{tree: tree, opts: opts, attempts: attempts}
}

// Run plans the accounts of one instruction, prepares its witness and hands
// a single-use store to fn. When the tree moved while preparing or before
// commit the whole attempt is repeated; any other error is returned as is.
func (r *Runner) Run(ctx context.Context, plan func(space address.Space) Plan, fn func(store interfaces.EntityStore) error) error {
	var err error
	for attempt := 1; attempt <= r.attempts; attempt++ {
		var store *Store
		store, err = r.prepare(ctx, plan)
		if err == nil {
			err = fn(store)
		}
		if err == nil || !entities.IsRetryable(err) {
			return err
		}

		log.WithFields(log.Fields{
			"attempt": attempt,
			"error":   err,
		}).Warn("Stale witness, retrying transition")
	}
	return fmt.Errorf("gave up after %d attempts: %w", r.attempts, err)
}

func (r *Runner) prepare(ctx context.Context, plan func(space address.Space) Plan) (*Store, error) {
	trees, err := r.tree.PickTrees(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to pick trees: %w", err)
	}

	space := address.NewTreeSpace(r.opts.ProgramID, trees.AddressTree)
	witness, err := Prepare(ctx, r.tree, trees, plan(space))
	if err != nil {
		return nil, err
	}
	return NewStore(r.tree, witness, r.opts), nil
}

package repository

import (
	"context"
	"errors"
	"fmt"

	"oraclequest/database"
	"oraclequest/domain/codec"
	"oraclequest/domain/entities"
	"oraclequest/domain/interfaces"

	"github.com/jackc/pgx/v5"
)

// LedgerReader serves committed direct records outside of any transition
type LedgerReader struct {
	db *database.DB
}

// NewLedgerReader creates a reader over the records table
func NewLedgerReader(db *database.DB) *LedgerReader {
	return &LedgerReader{db: db}
}

var _ interfaces.LedgerReader = (*LedgerReader)(nil)

// Get returns the committed entity at addr
func (r *LedgerReader) Get(ctx context.Context, addr entities.AccountID) (entities.Entity, error) {
	var data []byte
	err := r.db.QueryRow(ctx, `SELECT data FROM records WHERE address = $1`, addr[:]).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, entities.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get record %s: %w", addr, err)
	}
	return codec.Direct.Decode(data)
}

// RefundedTo sums the storage allotments returned to beneficiary
func (r *LedgerReader) RefundedTo(ctx context.Context, beneficiary entities.AccountID) (uint64, error) {
	var total int64
	err := r.db.QueryRow(ctx,
		`SELECT COALESCE(SUM(lamports), 0)::BIGINT FROM storage_refunds WHERE beneficiary = $1`,
		beneficiary[:],
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to sum refunds for %s: %w", beneficiary, err)
	}
	return uint64(total), nil
}

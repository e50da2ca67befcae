package sequences

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/Emran025/supermarket-system-sub001/internal/accounting/shared"
	"github.com/Emran025/supermarket-system-sub001/internal/platform/db"
)

// ErrSequenceNotFound indicates the counter row is missing.
var ErrSequenceNotFound = errors.New("sequences: sequence not found")

// TxRepository exposes the counter operations available inside a transaction.
type TxRepository interface {
	EnsureSequence(ctx context.Context, seq Sequence) error
	LockSequence(ctx context.Context, documentType string) (Sequence, error)
	UpdateSequenceNumber(ctx context.Context, documentType string, number int64) error
}

// Repository opens transactions for standalone number minting.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

type repository struct {
	runner *db.TxRunner
}

func NewRepository(runner *db.TxRunner) Repository {
	return &repository{runner: runner}
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	err := r.runner.WithTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		return fn(ctx, NewTxRepository(tx))
	})
	return shared.WrapConcurrency("sequences.next", err)
}

type txRepository struct {
	tx pgx.Tx
}

// NewTxRepository binds the sequence queries to an open transaction.
func NewTxRepository(tx pgx.Tx) TxRepository {
	return &txRepository{tx: tx}
}

func (r *txRepository) EnsureSequence(ctx context.Context, seq Sequence) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO document_sequences (document_type, prefix, current_number, format)
VALUES ($1,$2,0,$3) ON CONFLICT (document_type) DO NOTHING`, seq.DocumentType, seq.Prefix, seq.Format)
	return err
}

func (r *txRepository) LockSequence(ctx context.Context, documentType string) (Sequence, error) {
	var seq Sequence
	err := r.tx.QueryRow(ctx, `SELECT document_type, prefix, current_number, format
FROM document_sequences WHERE document_type=$1 FOR UPDATE`, documentType).
		Scan(&seq.DocumentType, &seq.Prefix, &seq.CurrentNumber, &seq.Format)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Sequence{}, ErrSequenceNotFound
		}
		return Sequence{}, err
	}
	return seq, nil
}

func (r *txRepository) UpdateSequenceNumber(ctx context.Context, documentType string, number int64) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE document_sequences SET current_number=$2, updated_at=NOW() WHERE document_type=$1`, documentType, number)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrSequenceNotFound
	}
	return nil
}

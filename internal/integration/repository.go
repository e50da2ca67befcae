package integration

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/Emran025/supermarket-system-sub001/internal/accounting/journals"
	"github.com/Emran025/supermarket-system-sub001/internal/accounting/shared"
	"github.com/Emran025/supermarket-system-sub001/internal/inventory"
	"github.com/Emran025/supermarket-system-sub001/internal/platform/db"
)

// TxRepository lets a hook cost stock and post the voucher in one transaction.
type TxRepository interface {
	journals.TxRepository
	inventory.TxRepository
}

// Repository opens hook transactions.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

type (
	ledgerTx    = journals.TxRepository
	inventoryTx = inventory.TxRepository
)

type txRepository struct {
	ledgerTx
	inventoryTx
}

type repository struct {
	runner *db.TxRunner
}

// NewRepository returns the pgx-backed hook repository.
func NewRepository(runner *db.TxRunner) Repository {
	return &repository{runner: runner}
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	err := r.runner.WithTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		return fn(ctx, &txRepository{
			ledgerTx:    journals.NewTxRepository(tx),
			inventoryTx: inventory.NewTxRepository(tx),
		})
	})
	return shared.WrapConcurrency("integration", err)
}

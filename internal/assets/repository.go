package assets

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/Emran025/supermarket-system-sub001/internal/accounting/journals"
	"github.com/Emran025/supermarket-system-sub001/internal/accounting/shared"
	"github.com/Emran025/supermarket-system-sub001/internal/platform/db"
)

// ErrAssetNotFound indicates the asset row is missing.
var ErrAssetNotFound = errors.New("assets: asset not found")

// TxRepository combines the ledger posting queries with depreciation storage
// so the record and its voucher commit together.
type TxRepository interface {
	journals.TxRepository
	LockAsset(ctx context.Context, id int64) (Asset, error)
	LatestAccumulated(ctx context.Context, assetID int64) (decimal.Decimal, error)
	RecordExistsForMonth(ctx context.Context, assetID int64, month time.Time) (bool, error)
	InsertDepreciationRecord(ctx context.Context, rec DepreciationRecord) (int64, error)
}

// Repository lists assets and opens per-asset transactions.
type Repository interface {
	ListDepreciableAssets(ctx context.Context) ([]Asset, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

type repository struct {
	pool   *pgxpool.Pool
	runner *db.TxRunner
}

func NewRepository(runner *db.TxRunner) Repository {
	return &repository{pool: runner.Pool(), runner: runner}
}

const assetColumns = `id, code, name, purchase_value, depreciation_rate, purchase_date, is_active`

func (r *repository) ListDepreciableAssets(ctx context.Context) ([]Asset, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+assetColumns+` FROM assets WHERE is_active = TRUE AND depreciation_rate > 0 ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Asset
	for rows.Next() {
		var a Asset
		if err := rows.Scan(&a.ID, &a.Code, &a.Name, &a.PurchaseValue, &a.DepreciationRate, &a.PurchaseDate, &a.IsActive); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	err := r.runner.WithTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		return fn(ctx, &txRepository{TxRepository: journals.NewTxRepository(tx), tx: tx})
	})
	return shared.WrapConcurrency("assets.depreciate", err)
}

type txRepository struct {
	journals.TxRepository
	tx pgx.Tx
}

func (r *txRepository) LockAsset(ctx context.Context, id int64) (Asset, error) {
	var a Asset
	err := r.tx.QueryRow(ctx, `SELECT `+assetColumns+` FROM assets WHERE id=$1 FOR UPDATE`, id).
		Scan(&a.ID, &a.Code, &a.Name, &a.PurchaseValue, &a.DepreciationRate, &a.PurchaseDate, &a.IsActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Asset{}, ErrAssetNotFound
		}
		return Asset{}, err
	}
	return a, nil
}

func (r *txRepository) LatestAccumulated(ctx context.Context, assetID int64) (decimal.Decimal, error) {
	var accumulated decimal.Decimal
	err := r.tx.QueryRow(ctx, `SELECT COALESCE((SELECT accumulated_depreciation FROM asset_depreciation
WHERE asset_id=$1 ORDER BY depreciation_date DESC, id DESC LIMIT 1), 0)`, assetID).Scan(&accumulated)
	return accumulated, err
}

func (r *txRepository) RecordExistsForMonth(ctx context.Context, assetID int64, month time.Time) (bool, error) {
	var exists bool
	err := r.tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM asset_depreciation
WHERE asset_id=$1 AND date_trunc('month', depreciation_date) = date_trunc('month', $2::date))`, assetID, month).Scan(&exists)
	return exists, err
}

func (r *txRepository) InsertDepreciationRecord(ctx context.Context, rec DepreciationRecord) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO asset_depreciation (asset_id, depreciation_date, depreciation_amount,
accumulated_depreciation, book_value, fiscal_period_id, voucher_number, created_by)
VALUES ($1,$2,$3,$4,$5,$6,$7,NULLIF($8,0)) RETURNING id`,
		rec.AssetID, rec.DepreciationDate, rec.Amount, rec.AccumulatedDepreciation, rec.BookValue,
		rec.FiscalPeriodID, rec.VoucherNumber, rec.CreatedBy).Scan(&id)
	return id, err
}

package inventory

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/Emran025/supermarket-system-sub001/internal/accounting/shared"
	"github.com/Emran025/supermarket-system-sub001/internal/platform/db"
)

// TxRepository exposes lot operations within a transaction. LockProductCost
// must run before the lot queries so writers of one product serialise on
// its cost row.
type TxRepository interface {
	LockProductCost(ctx context.Context, productID int64) (ProductCost, error)
	UpsertProductCost(ctx context.Context, cost ProductCost) error
	ListUnsoldLotsForUpdate(ctx context.Context, productID int64) ([]Lot, error)
	ListSoldLotsForUpdate(ctx context.Context, referenceType, referenceID string) ([]Lot, error)
	InsertLot(ctx context.Context, lot Lot) (int64, error)
	UpdateLot(ctx context.Context, lot Lot) error
}

// Repository encapsulates lot storage.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	InventoryValue(ctx context.Context, productID *int64) (decimal.Decimal, error)
	ListProductsWithStock(ctx context.Context) ([]int64, error)
}

type repository struct {
	pool   *pgxpool.Pool
	runner *db.TxRunner
}

// NewRepository creates a pgx-backed repository.
func NewRepository(runner *db.TxRunner) Repository {
	return &repository{pool: runner.Pool(), runner: runner}
}

// WithTx executes fn inside a transaction.
func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	err := r.runner.WithTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		return fn(ctx, NewTxRepository(tx))
	})
	return shared.WrapConcurrency("inventory", err)
}

func (r *repository) InventoryValue(ctx context.Context, productID *int64) (decimal.Decimal, error) {
	var value decimal.Decimal
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(SUM(total_cost), 0) FROM inventory_costing
WHERE is_sold = FALSE AND ($1::bigint IS NULL OR product_id = $1)`, productID).Scan(&value)
	return value, err
}

func (r *repository) ListProductsWithStock(ctx context.Context) ([]int64, error) {
	rows, err := r.pool.Query(ctx, `SELECT DISTINCT product_id FROM inventory_costing WHERE is_sold = FALSE ORDER BY product_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

type txRepository struct {
	tx pgx.Tx
}

// NewTxRepository binds lot queries to tx.
func NewTxRepository(tx pgx.Tx) TxRepository {
	return &txRepository{tx: tx}
}

func (r *txRepository) LockProductCost(ctx context.Context, productID int64) (ProductCost, error) {
	if _, err := r.tx.Exec(ctx, `INSERT INTO product_costs (product_id, weighted_average_cost) VALUES ($1, 0)
ON CONFLICT (product_id) DO NOTHING`, productID); err != nil {
		return ProductCost{}, err
	}
	cost := ProductCost{ProductID: productID}
	err := r.tx.QueryRow(ctx, `SELECT weighted_average_cost, updated_at FROM product_costs WHERE product_id=$1 FOR UPDATE`, productID).
		Scan(&cost.WeightedAverageCost, &cost.UpdatedAt)
	return cost, err
}

func (r *txRepository) UpsertProductCost(ctx context.Context, cost ProductCost) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO product_costs (product_id, weighted_average_cost, updated_at) VALUES ($1,$2,$3)
ON CONFLICT (product_id) DO UPDATE SET weighted_average_cost = EXCLUDED.weighted_average_cost, updated_at = EXCLUDED.updated_at`,
		cost.ProductID, cost.WeightedAverageCost, cost.UpdatedAt)
	return err
}

const lotColumns = `id, product_id, quantity, unit_cost, total_cost, is_sold, COALESCE(cost_method, ''),
transaction_date, COALESCE(reference_type, ''), COALESCE(reference_id, ''), created_at`

func (r *txRepository) ListUnsoldLotsForUpdate(ctx context.Context, productID int64) ([]Lot, error) {
	rows, err := r.tx.Query(ctx, `SELECT `+lotColumns+`
FROM inventory_costing WHERE product_id=$1 AND is_sold = FALSE ORDER BY transaction_date, id FOR UPDATE`, productID)
	if err != nil {
		return nil, err
	}
	return scanLots(rows)
}

func (r *txRepository) ListSoldLotsForUpdate(ctx context.Context, referenceType, referenceID string) ([]Lot, error) {
	rows, err := r.tx.Query(ctx, `SELECT `+lotColumns+`
FROM inventory_costing WHERE reference_type=$1 AND reference_id=$2 AND is_sold = TRUE
ORDER BY product_id, id FOR UPDATE`, referenceType, referenceID)
	if err != nil {
		return nil, err
	}
	return scanLots(rows)
}

func scanLots(rows pgx.Rows) ([]Lot, error) {
	defer rows.Close()
	var lots []Lot
	for rows.Next() {
		var lot Lot
		if err := rows.Scan(&lot.ID, &lot.ProductID, &lot.Quantity, &lot.UnitCost, &lot.TotalCost, &lot.IsSold, &lot.CostMethod,
			&lot.TransactionDate, &lot.ReferenceType, &lot.ReferenceID, &lot.CreatedAt); err != nil {
			return nil, err
		}
		lots = append(lots, lot)
	}
	return lots, rows.Err()
}

func (r *txRepository) InsertLot(ctx context.Context, lot Lot) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO inventory_costing (product_id, quantity, unit_cost, total_cost, is_sold, cost_method,
transaction_date, reference_type, reference_id)
VALUES ($1,$2,$3,$4,$5,NULLIF($6,''),$7,NULLIF($8,''),NULLIF($9,'')) RETURNING id`,
		lot.ProductID, lot.Quantity, lot.UnitCost, lot.TotalCost, lot.IsSold, string(lot.CostMethod),
		lot.TransactionDate, lot.ReferenceType, lot.ReferenceID).Scan(&id)
	return id, err
}

func (r *txRepository) UpdateLot(ctx context.Context, lot Lot) error {
	_, err := r.tx.Exec(ctx, `UPDATE inventory_costing SET quantity=$2, unit_cost=$3, total_cost=$4, is_sold=$5, cost_method=NULLIF($6,''),
reference_type=NULLIF($7,''), reference_id=NULLIF($8,'')
WHERE id=$1`, lot.ID, lot.Quantity, lot.UnitCost, lot.TotalCost, lot.IsSold, string(lot.CostMethod), lot.ReferenceType, lot.ReferenceID)
	return err
}

package periods

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Emran025/supermarket-system-sub001/internal/accounting/shared"
	"github.com/Emran025/supermarket-system-sub001/internal/platform/db"
)

// PostingReader resolves the period for a posting inside the posting
// transaction. Implementations hold a share lock on the returned row until
// commit so the period cannot be locked or closed underneath the write.
type PostingReader interface {
	FindPeriodForPosting(ctx context.Context, date time.Time) (FiscalPeriod, error)
}

// TxRepository exposes period lifecycle operations within a transaction.
type TxRepository interface {
	PostingReader
	GetPeriodForUpdate(ctx context.Context, id int64) (FiscalPeriod, error)
	PeriodOverlaps(ctx context.Context, start, end time.Time) (bool, error)
	InsertPeriod(ctx context.Context, in CreateInput) (FiscalPeriod, error)
	UpdatePeriodFlags(ctx context.Context, id int64, locked, closed bool, actorID int64, at time.Time) error
	CloseLedgerEntries(ctx context.Context, id int64) (int64, error)
}

// Repository lists periods and opens lifecycle transactions.
type Repository interface {
	List(ctx context.Context) ([]FiscalPeriod, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

type repository struct {
	pool   *pgxpool.Pool
	runner *db.TxRunner
}

func NewRepository(runner *db.TxRunner) Repository {
	return &repository{pool: runner.Pool(), runner: runner}
}

const periodColumns = `id, name, start_date, end_date, is_locked, is_closed, closed_at, closed_by, created_at, updated_at`

func scanPeriod(row pgx.Row) (FiscalPeriod, error) {
	var p FiscalPeriod
	err := row.Scan(&p.ID, &p.Name, &p.StartDate, &p.EndDate, &p.IsLocked, &p.IsClosed, &p.ClosedAt, &p.ClosedBy, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return FiscalPeriod{}, shared.ErrPeriodNotFound
		}
		return FiscalPeriod{}, err
	}
	return p, nil
}

func (r *repository) List(ctx context.Context) ([]FiscalPeriod, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+periodColumns+` FROM fiscal_periods ORDER BY start_date`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []FiscalPeriod
	for rows.Next() {
		p, err := scanPeriod(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	err := r.runner.WithTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		return fn(ctx, NewTxRepository(tx))
	})
	return shared.WrapConcurrency("periods", err)
}

type txRepository struct {
	tx pgx.Tx
}

// NewTxRepository binds the period queries to an open transaction.
func NewTxRepository(tx pgx.Tx) TxRepository {
	return &txRepository{tx: tx}
}

func (r *txRepository) FindPeriodForPosting(ctx context.Context, date time.Time) (FiscalPeriod, error) {
	return scanPeriod(r.tx.QueryRow(ctx, `SELECT `+periodColumns+` FROM fiscal_periods
WHERE $1::date BETWEEN start_date AND end_date ORDER BY start_date DESC LIMIT 1 FOR SHARE`, DateOnly(date)))
}

func (r *txRepository) GetPeriodForUpdate(ctx context.Context, id int64) (FiscalPeriod, error) {
	return scanPeriod(r.tx.QueryRow(ctx, `SELECT `+periodColumns+` FROM fiscal_periods WHERE id=$1 FOR UPDATE`, id))
}

func (r *txRepository) PeriodOverlaps(ctx context.Context, start, end time.Time) (bool, error) {
	var exists bool
	err := r.tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM fiscal_periods WHERE start_date <= $2::date AND end_date >= $1::date)`,
		DateOnly(start), DateOnly(end)).Scan(&exists)
	return exists, err
}

func (r *txRepository) InsertPeriod(ctx context.Context, in CreateInput) (FiscalPeriod, error) {
	return scanPeriod(r.tx.QueryRow(ctx, `INSERT INTO fiscal_periods (name, start_date, end_date, is_locked, is_closed)
VALUES ($1,$2,$3,FALSE,FALSE) RETURNING `+periodColumns, in.Name, DateOnly(in.StartDate), DateOnly(in.EndDate)))
}

func (r *txRepository) UpdatePeriodFlags(ctx context.Context, id int64, locked, closed bool, actorID int64, at time.Time) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE fiscal_periods SET is_locked=$2, is_closed=$3,
closed_at=CASE WHEN $3 THEN COALESCE(closed_at, $5) ELSE closed_at END,
closed_by=CASE WHEN $3 THEN COALESCE(closed_by, NULLIF($4, 0)) ELSE closed_by END,
updated_at=$5 WHERE id=$1`, id, locked, closed, actorID, at)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrPeriodNotFound
	}
	return nil
}

func (r *txRepository) CloseLedgerEntries(ctx context.Context, id int64) (int64, error) {
	cmd, err := r.tx.Exec(ctx, `UPDATE general_ledger SET is_closed=TRUE WHERE fiscal_period_id=$1 AND is_closed=FALSE`, id)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

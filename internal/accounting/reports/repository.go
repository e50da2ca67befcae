package reports

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository returns the pgx-backed report reader.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) AccountTotals(ctx context.Context, code string, asOf *time.Time) (AccountBalance, bool, error) {
	row := AccountBalance{Code: code}
	err := r.pool.QueryRow(ctx, `SELECT coa.name, coa.type,
COALESCE(SUM(gl.amount) FILTER (WHERE gl.entry_type='DEBIT'), 0),
COALESCE(SUM(gl.amount) FILTER (WHERE gl.entry_type='CREDIT'), 0)
FROM chart_of_accounts coa
LEFT JOIN general_ledger gl ON gl.account_id = coa.id AND gl.is_closed = FALSE
	AND ($2::date IS NULL OR gl.voucher_date <= $2::date)
WHERE coa.code = $1
GROUP BY coa.id, coa.name, coa.type`, code, asOf).Scan(&row.Name, &row.Type, &row.Debit, &row.Credit)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return AccountBalance{}, false, nil
		}
		return AccountBalance{}, false, err
	}
	return row, true, nil
}

func (r *repository) AccountActivity(ctx context.Context, asOf *time.Time) ([]AccountBalance, error) {
	rows, err := r.pool.Query(ctx, `SELECT coa.code, coa.name, coa.type,
COALESCE(SUM(gl.amount) FILTER (WHERE gl.entry_type='DEBIT'), 0),
COALESCE(SUM(gl.amount) FILTER (WHERE gl.entry_type='CREDIT'), 0)
FROM general_ledger gl
JOIN chart_of_accounts coa ON coa.id = gl.account_id
WHERE gl.is_closed = FALSE AND ($1::date IS NULL OR gl.voucher_date <= $1::date)
GROUP BY coa.code, coa.name, coa.type
ORDER BY coa.code`, asOf)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []AccountBalance
	for rows.Next() {
		var row AccountBalance
		if err := rows.Scan(&row.Code, &row.Name, &row.Type, &row.Debit, &row.Credit); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (r *repository) UnbalancedVouchers(ctx context.Context, tolerance decimal.Decimal) ([]VoucherImbalance, error) {
	rows, err := r.pool.Query(ctx, `SELECT voucher_number,
COALESCE(SUM(amount) FILTER (WHERE entry_type='DEBIT'), 0) AS debit,
COALESCE(SUM(amount) FILTER (WHERE entry_type='CREDIT'), 0) AS credit
FROM general_ledger
GROUP BY voucher_number
HAVING ABS(COALESCE(SUM(amount) FILTER (WHERE entry_type='DEBIT'), 0) - COALESCE(SUM(amount) FILTER (WHERE entry_type='CREDIT'), 0)) > $1
ORDER BY voucher_number`, tolerance)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []VoucherImbalance
	for rows.Next() {
		var v VoucherImbalance
		if err := rows.Scan(&v.VoucherNumber, &v.Debit, &v.Credit); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

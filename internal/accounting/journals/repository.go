package journals

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Emran025/supermarket-system-sub001/internal/accounting/periods"
	"github.com/Emran025/supermarket-system-sub001/internal/accounting/sequences"
	"github.com/Emran025/supermarket-system-sub001/internal/accounting/shared"
	"github.com/Emran025/supermarket-system-sub001/internal/platform/db"
)

// TxRepository exposes what a posting needs inside one transaction: the
// period row, the voucher sequence and the ledger rows.
type TxRepository interface {
	periods.PostingReader
	sequences.TxRepository
	// LockVoucherNumber holds voucherNumber for the rest of the transaction
	// and reports whether it is already posted.
	LockVoucherNumber(ctx context.Context, voucherNumber string) (bool, error)
	InsertEntries(ctx context.Context, entries []LedgerEntry) ([]LedgerEntry, error)
	// ListVoucherEntries returns the voucher rows locked against concurrent reversal.
	ListVoucherEntries(ctx context.Context, voucherNumber string) ([]LedgerEntry, error)
	ReversalExists(ctx context.Context, voucherNumber string) (bool, error)
}

// Repository encapsulates DB operations for the general ledger.
type Repository interface {
	ListVoucher(ctx context.Context, voucherNumber string) ([]LedgerEntry, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

type repository struct {
	pool   *pgxpool.Pool
	runner *db.TxRunner
}

func NewRepository(runner *db.TxRunner) Repository {
	return &repository{pool: runner.Pool(), runner: runner}
}

const entryColumns = `gl.id, gl.voucher_number, gl.voucher_date, gl.account_id, coa.code, gl.entry_type, gl.amount,
gl.description, COALESCE(gl.reference_type, ''), COALESCE(gl.reference_id, ''), gl.fiscal_period_id, gl.is_closed,
COALESCE(gl.reversal_of_voucher, ''), COALESCE(gl.created_by, 0), gl.created_at`

func scanEntries(rows pgx.Rows) ([]LedgerEntry, error) {
	defer rows.Close()
	var out []LedgerEntry
	for rows.Next() {
		var e LedgerEntry
		if err := rows.Scan(&e.ID, &e.VoucherNumber, &e.VoucherDate, &e.AccountID, &e.AccountCode, &e.EntryType, &e.Amount,
			&e.Description, &e.ReferenceType, &e.ReferenceID, &e.FiscalPeriodID, &e.IsClosed,
			&e.ReversalOfVoucher, &e.CreatedBy, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *repository) ListVoucher(ctx context.Context, voucherNumber string) ([]LedgerEntry, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+entryColumns+` FROM general_ledger gl
JOIN chart_of_accounts coa ON coa.id = gl.account_id WHERE gl.voucher_number=$1 ORDER BY gl.id`, voucherNumber)
	if err != nil {
		return nil, err
	}
	return scanEntries(rows)
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	err := r.runner.WithTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		return fn(ctx, NewTxRepository(tx))
	})
	return shared.WrapConcurrency("journals", err)
}

type txRepository struct {
	periods.PostingReader
	sequences.TxRepository
	tx pgx.Tx
}

// NewTxRepository binds the ledger, period and sequence queries to tx.
func NewTxRepository(tx pgx.Tx) TxRepository {
	return &txRepository{
		PostingReader: periods.NewTxRepository(tx),
		TxRepository:  sequences.NewTxRepository(tx),
		tx:            tx,
	}
}

func (r *txRepository) LockVoucherNumber(ctx context.Context, voucherNumber string) (bool, error) {
	if _, err := r.tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, voucherNumber); err != nil {
		return false, err
	}
	var exists bool
	err := r.tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM general_ledger WHERE voucher_number=$1)`, voucherNumber).Scan(&exists)
	return exists, err
}

func (r *txRepository) InsertEntries(ctx context.Context, entries []LedgerEntry) ([]LedgerEntry, error) {
	out := make([]LedgerEntry, 0, len(entries))
	for _, e := range entries {
		var id int64
		var createdAt time.Time
		if err := r.tx.QueryRow(ctx, `INSERT INTO general_ledger (voucher_number, voucher_date, account_id, entry_type, amount,
description, reference_type, reference_id, fiscal_period_id, is_closed, reversal_of_voucher, created_by)
VALUES ($1,$2,$3,$4,$5,$6,NULLIF($7,''),NULLIF($8,''),$9,FALSE,NULLIF($10,''),NULLIF($11,0)) RETURNING id, created_at`,
			e.VoucherNumber, e.VoucherDate, e.AccountID, string(e.EntryType), e.Amount, e.Description,
			e.ReferenceType, e.ReferenceID, e.FiscalPeriodID, e.ReversalOfVoucher, e.CreatedBy).Scan(&id, &createdAt); err != nil {
			return nil, err
		}
		e.ID = id
		e.CreatedAt = createdAt
		out = append(out, e)
	}
	return out, nil
}

func (r *txRepository) ListVoucherEntries(ctx context.Context, voucherNumber string) ([]LedgerEntry, error) {
	rows, err := r.tx.Query(ctx, `SELECT `+entryColumns+` FROM general_ledger gl
JOIN chart_of_accounts coa ON coa.id = gl.account_id WHERE gl.voucher_number=$1 ORDER BY gl.id FOR UPDATE OF gl`, voucherNumber)
	if err != nil {
		return nil, err
	}
	return scanEntries(rows)
}

func (r *txRepository) ReversalExists(ctx context.Context, voucherNumber string) (bool, error) {
	var exists bool
	err := r.tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM general_ledger WHERE reversal_of_voucher=$1)`, voucherNumber).Scan(&exists)
	return exists, err
}

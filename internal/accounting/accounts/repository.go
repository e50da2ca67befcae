package accounts

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Emran025/supermarket-system-sub001/internal/platform/db"
)

// ErrAccountNotFound indicates the code is not in the chart of accounts.
var ErrAccountNotFound = errors.New("accounts: account not found")

// ErrDuplicateCode indicates an account with the same code exists.
var ErrDuplicateCode = errors.New("accounts: duplicate account code")

type Repository interface {
	FindByCode(ctx context.Context, code string) (Account, error)
	List(ctx context.Context) ([]Account, error)
	Create(ctx context.Context, account Account) (Account, error)
	SetActive(ctx context.Context, code string, active bool) error
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const accountColumns = `id, code, name, type, is_active, created_at, updated_at`

func (r *repository) FindByCode(ctx context.Context, code string) (Account, error) {
	var a Account
	err := r.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM chart_of_accounts WHERE code=$1`, code).
		Scan(&a.ID, &a.Code, &a.Name, &a.Type, &a.IsActive, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, ErrAccountNotFound
		}
		return Account{}, err
	}
	return a, nil
}

func (r *repository) List(ctx context.Context) ([]Account, error) {
	rows, err := r.db.Query(ctx, `SELECT `+accountColumns+` FROM chart_of_accounts ORDER BY code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var accounts []Account
	for rows.Next() {
		var a Account
		if err := rows.Scan(&a.ID, &a.Code, &a.Name, &a.Type, &a.IsActive, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func (r *repository) Create(ctx context.Context, account Account) (Account, error) {
	err := r.db.QueryRow(ctx, `INSERT INTO chart_of_accounts (code, name, type, is_active)
VALUES ($1,$2,$3,$4) RETURNING id, created_at, updated_at`, account.Code, account.Name, account.Type, account.IsActive).
		Scan(&account.ID, &account.CreatedAt, &account.UpdatedAt)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return Account{}, ErrDuplicateCode
		}
		return Account{}, err
	}
	return account, nil
}

func (r *repository) SetActive(ctx context.Context, code string, active bool) error {
	cmd, err := r.db.Exec(ctx, `UPDATE chart_of_accounts SET is_active=$2, updated_at=NOW() WHERE code=$1`, code, active)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

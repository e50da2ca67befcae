package mappings

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Emran025/supermarket-system-sub001/internal/accounting/shared"
)

// Repository persists per-installation overrides of DefaultRetailMappings.
type Repository interface {
	Get(ctx context.Context, module, key string) (AccountMapping, error)
	// Set upserts module/key onto the account with AccountCode. An unknown
	// code yields an UnknownAccountError.
	Set(ctx context.Context, mapping AccountMapping) (AccountMapping, error)
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

func (r *repository) Get(ctx context.Context, module, key string) (AccountMapping, error) {
	mapping := AccountMapping{Module: module, Key: key}
	err := r.db.QueryRow(ctx, `SELECT a.code, m.created_at, m.updated_at
FROM account_mappings m JOIN chart_of_accounts a ON a.id = m.account_id
WHERE m.module=$1 AND m.key=$2`, module, key).
		Scan(&mapping.AccountCode, &mapping.CreatedAt, &mapping.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return AccountMapping{}, shared.ErrMappingNotFound
	}
	if err != nil {
		return AccountMapping{}, err
	}
	return mapping, nil
}

func (r *repository) Set(ctx context.Context, mapping AccountMapping) (AccountMapping, error) {
	err := r.db.QueryRow(ctx, `INSERT INTO account_mappings (module, key, account_id, created_at, updated_at)
SELECT $1, $2, a.id, NOW(), NOW() FROM chart_of_accounts a WHERE a.code=$3
ON CONFLICT (module, key) DO UPDATE SET account_id=EXCLUDED.account_id, updated_at=NOW()
RETURNING created_at, updated_at`, mapping.Module, mapping.Key, mapping.AccountCode).
		Scan(&mapping.CreatedAt, &mapping.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return AccountMapping{}, &shared.UnknownAccountError{Code: mapping.AccountCode}
	}
	if err != nil {
		return AccountMapping{}, err
	}
	return mapping, nil
}

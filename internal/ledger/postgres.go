package ledger

import (
	"github.com/Emran025/supermarket-system-sub001/internal/accounting/accounts"
	"github.com/Emran025/supermarket-system-sub001/internal/accounting/journals"
	"github.com/Emran025/supermarket-system-sub001/internal/accounting/mappings"
	"github.com/Emran025/supermarket-system-sub001/internal/accounting/periods"
	"github.com/Emran025/supermarket-system-sub001/internal/accounting/reports"
	"github.com/Emran025/supermarket-system-sub001/internal/accounting/sequences"
	"github.com/Emran025/supermarket-system-sub001/internal/assets"
	"github.com/Emran025/supermarket-system-sub001/internal/integration"
	"github.com/Emran025/supermarket-system-sub001/internal/inventory"
	"github.com/Emran025/supermarket-system-sub001/internal/platform/db"
	"github.com/Emran025/supermarket-system-sub001/internal/shared"
)

// PostgresStores returns the pgx-backed repositories sharing runner.
func PostgresStores(runner *db.TxRunner) Stores {
	pool := runner.Pool()
	return Stores{
		Accounts:    accounts.NewRepository(pool),
		Mappings:    mappings.NewRepository(pool),
		Sequences:   sequences.NewRepository(runner),
		Periods:     periods.NewRepository(runner),
		Journals:    journals.NewRepository(runner),
		Reports:     reports.NewRepository(pool),
		Inventory:   inventory.NewRepository(runner),
		Assets:      assets.NewRepository(runner),
		Integration: integration.NewRepository(runner),
		Idempotency: shared.NewIdempotencyStore(pool),
		Audit:       shared.NewAuditLogger(pool),
	}
}

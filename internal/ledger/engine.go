// Package ledger composes the accounting services into the Engine used by
// sales, purchasing and asset workflows.
package ledger

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Emran025/supermarket-system-sub001/internal/accounting/accounts"
	"github.com/Emran025/supermarket-system-sub001/internal/accounting/journals"
	"github.com/Emran025/supermarket-system-sub001/internal/accounting/mappings"
	"github.com/Emran025/supermarket-system-sub001/internal/accounting/periods"
	"github.com/Emran025/supermarket-system-sub001/internal/accounting/reports"
	"github.com/Emran025/supermarket-system-sub001/internal/accounting/sequences"
	"github.com/Emran025/supermarket-system-sub001/internal/accounting/shared"
	"github.com/Emran025/supermarket-system-sub001/internal/assets"
	"github.com/Emran025/supermarket-system-sub001/internal/integration"
	"github.com/Emran025/supermarket-system-sub001/internal/inventory"
	"github.com/Emran025/supermarket-system-sub001/internal/observability"
	sharedaudit "github.com/Emran025/supermarket-system-sub001/internal/shared"
)

// AuditPort records ledger events.
type AuditPort interface {
	Record(ctx context.Context, log sharedaudit.AuditLog) error
}

// Stores groups the repositories behind every service.
type Stores struct {
	Accounts    accounts.Repository
	Mappings    mappings.Repository
	Sequences   sequences.Repository
	Periods     periods.Repository
	Journals    journals.Repository
	Reports     reports.Repository
	Inventory   inventory.Repository
	Assets      assets.Repository
	Integration integration.Repository
	Idempotency integration.IdempotencyPort
	Audit       AuditPort
}

// Options tunes the engine. Zero values select defaults.
type Options struct {
	Logger              *slog.Logger
	Metrics             *observability.LedgerMetrics
	AccountCache        accounts.Cache
	NotifyCaches        []accounts.Cache
	DefaultMappings     map[string]string
	VoucherDocumentType string
	Retry               shared.RetryPolicy
	Now                 func() time.Time
}

// Engine exposes the accounting core.
type Engine struct {
	Accounts  *accounts.Service
	Resolver  *accounts.Resolver
	Mappings  *mappings.Service
	Sequences *sequences.Service
	Periods   *periods.Service
	Journals  *journals.Service
	Reports   *reports.Service
	Inventory *inventory.Service
	Assets    *assets.Scheduler
	Hooks     *integration.Hooks
}

// Assemble wires every service over stores.
func Assemble(stores Stores, opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.DefaultMappings == nil {
		opts.DefaultMappings = mappings.DefaultRetailMappings
	}
	audit := stores.Audit

	resolver := accounts.NewResolver(stores.Accounts, opts.AccountCache)
	mappingSvc := mappings.NewService(stores.Mappings, opts.DefaultMappings)
	sequenceSvc := sequences.NewService(stores.Sequences, sequences.Config{Retry: opts.Retry}, opts.Metrics, logger.With(slog.String("component", "sequences")))

	journalSvc := journals.NewService(stores.Journals, resolver, sequenceSvc, journals.Config{
		VoucherDocumentType: opts.VoucherDocumentType,
		Retry:               opts.Retry,
	}, logger.With(slog.String("component", "journals")))
	journalSvc.WithMetrics(opts.Metrics)
	journalSvc.WithAudit(audit)

	periodSvc := periods.NewService(stores.Periods, audit, logger.With(slog.String("component", "periods")))
	inventorySvc := inventory.NewService(stores.Inventory, audit, opts.Metrics, logger.With(slog.String("component", "inventory")))
	scheduler := assets.NewScheduler(stores.Assets, journalSvc, mappingSvc, audit, opts.Metrics, logger.With(slog.String("component", "assets")))
	if opts.Now != nil {
		journalSvc.WithNow(opts.Now)
		periodSvc.WithNow(opts.Now)
		inventorySvc.WithNow(opts.Now)
		scheduler.WithNow(opts.Now)
	}

	return &Engine{
		Accounts:  accounts.NewService(stores.Accounts, resolver, opts.NotifyCaches...),
		Resolver:  resolver,
		Mappings:  mappingSvc,
		Sequences: sequenceSvc,
		Periods:   periodSvc,
		Journals:  journalSvc,
		Reports:   reports.NewService(stores.Reports, logger.With(slog.String("component", "reports"))),
		Inventory: inventorySvc,
		Assets:    scheduler,
		Hooks: integration.NewHooks(stores.Integration, journalSvc, inventorySvc, mappingSvc, stores.Idempotency,
			logger.With(slog.String("component", "integration"))),
	}
}

// NextVoucherNumber mints the next number for documentType.
func (e *Engine) NextVoucherNumber(ctx context.Context, documentType string) (string, error) {
	return e.Sequences.NextNumber(ctx, documentType)
}

// Post writes a balanced voucher and returns its number.
func (e *Engine) Post(ctx context.Context, in journals.PostInput) (string, error) {
	voucher, err := e.Journals.Post(ctx, in)
	if err != nil {
		return "", err
	}
	return voucher.Number, nil
}

// Balance returns the signed balance of an account; unknown codes yield zero.
func (e *Engine) Balance(ctx context.Context, code string, asOf *time.Time) (decimal.Decimal, error) {
	return e.Reports.Balance(ctx, code, asOf)
}

// Reverse posts the mirror of voucherNumber and returns the new voucher number.
func (e *Engine) Reverse(ctx context.Context, in journals.ReverseInput) (string, error) {
	voucher, err := e.Journals.Reverse(ctx, in)
	if err != nil {
		return "", err
	}
	return voucher.Number, nil
}

// ConsumeFIFO returns the FIFO cost of a sale.
func (e *Engine) ConsumeFIFO(ctx context.Context, in inventory.ConsumeInput) (decimal.Decimal, error) {
	consumed, err := e.Inventory.ConsumeFIFO(ctx, in)
	if err != nil {
		return decimal.Zero, err
	}
	return consumed.TotalCost, nil
}

// ConsumeWAC returns the weighted average cost of a sale.
func (e *Engine) ConsumeWAC(ctx context.Context, in inventory.ConsumeInput) (decimal.Decimal, error) {
	consumed, err := e.Inventory.ConsumeWAC(ctx, in)
	if err != nil {
		return decimal.Zero, err
	}
	return consumed.TotalCost, nil
}

// RecordPurchase stores a purchase lot and returns its id.
func (e *Engine) RecordPurchase(ctx context.Context, in inventory.PurchaseInput) (int64, error) {
	return e.Inventory.RecordPurchase(ctx, in)
}

// RunMonthlyDepreciation depreciates every eligible asset.
func (e *Engine) RunMonthlyDepreciation(ctx context.Context, in assets.RunInput) ([]assets.Result, error) {
	return e.Assets.RunMonthly(ctx, in)
}

// InventoryValue returns the cost of unsold lots, optionally for one product.
func (e *Engine) InventoryValue(ctx context.Context, productID *int64) (decimal.Decimal, error) {
	return e.Inventory.InventoryValue(ctx, productID)
}

// TrialBalance groups every account's activity up to asOf.
func (e *Engine) TrialBalance(ctx context.Context, asOf *time.Time) (reports.TrialBalance, error) {
	return e.Reports.TrialBalance(ctx, asOf)
}

// LockPeriod temporarily blocks postings into a fiscal period.
func (e *Engine) LockPeriod(ctx context.Context, id, actorID int64) (periods.FiscalPeriod, error) {
	return e.Periods.Lock(ctx, id, actorID)
}

// UnlockPeriod reopens a locked period.
func (e *Engine) UnlockPeriod(ctx context.Context, id, actorID int64) (periods.FiscalPeriod, error) {
	return e.Periods.Unlock(ctx, id, actorID)
}

// SetMapping points a posting key such as SALES/sales.revenue at another account.
func (e *Engine) SetMapping(ctx context.Context, module, key, accountCode string) (mappings.AccountMapping, error) {
	return e.Mappings.Set(ctx, module, key, accountCode)
}

// ClosePeriod permanently closes a period and its entries.
func (e *Engine) ClosePeriod(ctx context.Context, id, actorID int64) (periods.FiscalPeriod, error) {
	return e.Periods.Close(ctx, id, actorID)
}

package assets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Emran025/supermarket-system-sub001/internal/accounting/journals"
	"github.com/Emran025/supermarket-system-sub001/internal/accounting/mappings"
	"github.com/Emran025/supermarket-system-sub001/internal/shared"
)

// Poster writes the depreciation voucher inside the asset transaction.
type Poster interface {
	PostInTx(ctx context.Context, tx journals.TxRepository, in journals.PostInput) (journals.Voucher, error)
}

// AccountMapper resolves the depreciation accounts.
type AccountMapper interface {
	AccountCode(ctx context.Context, module, key string) (string, error)
}

// AuditPort records depreciation runs.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Metrics receives per-asset outcomes.
type Metrics interface {
	DepreciationPosted()
	DepreciationFailed()
}

// errNothingToPost skips an asset that is fully depreciated, inactive, or
// already depreciated this month.
var errNothingToPost = errors.New("assets: nothing to post")

// Scheduler runs monthly straight-line depreciation.
type Scheduler struct {
	repo    Repository
	poster  Poster
	mapper  AccountMapper
	audit   AuditPort
	metrics Metrics
	logger  *slog.Logger
	now     func() time.Time
}

// NewScheduler constructs the depreciation scheduler.
func NewScheduler(repo Repository, poster Poster, mapper AccountMapper, audit AuditPort, metrics Metrics, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{repo: repo, poster: poster, mapper: mapper, audit: audit, metrics: metrics, logger: logger, now: time.Now}
}

// WithNow overrides the clock for testing.
func (s *Scheduler) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// RunMonthly depreciates every active asset with a positive rate. Each asset
// commits in its own transaction; a failing asset is logged and skipped.
// The returned error covers only failures that stop the whole run.
func (s *Scheduler) RunMonthly(ctx context.Context, in RunInput) ([]Result, error) {
	expense, err := s.mapper.AccountCode(ctx, mappings.ModuleAssets, mappings.KeyDepreciationExpense)
	if err != nil {
		return nil, fmt.Errorf("assets: resolve expense account: %w", err)
	}
	accumulated, err := s.mapper.AccountCode(ctx, mappings.ModuleAssets, mappings.KeyAccumulatedDepreciation)
	if err != nil {
		return nil, fmt.Errorf("assets: resolve accumulated depreciation account: %w", err)
	}
	list, err := s.repo.ListDepreciableAssets(ctx)
	if err != nil {
		return nil, err
	}
	runDate := in.RunDate
	if runDate.IsZero() {
		runDate = s.now()
	}

	results := make([]Result, 0, len(list))
	failures := 0
	for _, asset := range list {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		res, err := s.depreciate(ctx, asset.ID, runDate, expense, accumulated, in)
		if errors.Is(err, errNothingToPost) {
			continue
		}
		if err != nil {
			failures++
			if s.metrics != nil {
				s.metrics.DepreciationFailed()
			}
			s.logger.Error("depreciation failed, asset skipped",
				slog.Int64("asset_id", asset.ID), slog.String("asset_code", asset.Code), slog.Any("error", err))
			continue
		}
		if s.metrics != nil {
			s.metrics.DepreciationPosted()
		}
		results = append(results, res)
	}

	total := decimal.Zero
	for _, r := range results {
		total = total.Add(r.Amount)
	}
	s.logger.Info("depreciation run complete",
		slog.String("run_date", runDate.Format("2006-01-02")),
		slog.Int("posted", len(results)),
		slog.Int("failed", failures),
		slog.String("amount", total.StringFixed(2)))
	if s.audit != nil && len(results) > 0 {
		if err := s.audit.Record(ctx, shared.AuditLog{
			ActorID:  in.ActorID,
			Action:   "assets.depreciate",
			Entity:   "depreciation_run",
			EntityID: MonthStart(runDate).Format("2006-01"),
			Meta:     map[string]any{"posted": len(results), "failed": failures, "amount": total.StringFixed(2)},
			At:       s.now(),
		}); err != nil {
			s.logger.Warn("audit depreciation run", slog.Any("error", err))
		}
	}
	return results, nil
}

func (s *Scheduler) depreciate(ctx context.Context, assetID int64, runDate time.Time, expense, accumulated string, in RunInput) (Result, error) {
	var result Result
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		asset, err := tx.LockAsset(ctx, assetID)
		if err != nil {
			return err
		}
		if !asset.IsActive {
			return errNothingToPost
		}
		done, err := tx.RecordExistsForMonth(ctx, asset.ID, MonthStart(runDate))
		if err != nil {
			return err
		}
		if done {
			return errNothingToPost
		}
		prior, err := tx.LatestAccumulated(ctx, asset.ID)
		if err != nil {
			return err
		}
		amount := MonthlyAmount(asset, prior)
		if amount.IsZero() {
			return errNothingToPost
		}
		newAccumulated := prior.Add(amount)
		bookValue := asset.PurchaseValue.Sub(newAccumulated)
		description := fmt.Sprintf("Depreciation %s %s", asset.Code, runDate.Format("2006-01"))
		voucher, err := s.poster.PostInTx(ctx, tx, journals.PostInput{
			Entries: []journals.EntryInput{
				{AccountCode: expense, EntryType: journals.EntryDebit, Amount: amount, Description: description},
				{AccountCode: accumulated, EntryType: journals.EntryCredit, Amount: amount, Description: description},
			},
			ReferenceType: ReferenceDepreciation,
			ReferenceID:   strconv.FormatInt(asset.ID, 10),
			VoucherDate:   runDate,
			ActorID:       in.ActorID,
		})
		if err != nil {
			return err
		}
		periodID := in.FiscalPeriodID
		if periodID == nil {
			periodID = voucher.FiscalPeriodID
		}
		if _, err := tx.InsertDepreciationRecord(ctx, DepreciationRecord{
			AssetID:                 asset.ID,
			DepreciationDate:        voucher.Date,
			Amount:                  amount,
			AccumulatedDepreciation: newAccumulated,
			BookValue:               bookValue,
			FiscalPeriodID:          periodID,
			VoucherNumber:           voucher.Number,
			CreatedBy:               in.ActorID,
		}); err != nil {
			return err
		}
		result = Result{
			AssetID:       asset.ID,
			AssetCode:     asset.Code,
			Amount:        amount,
			Accumulated:   newAccumulated,
			BookValue:     bookValue,
			VoucherNumber: voucher.Number,
		}
		return nil
	})
	return result, err
}

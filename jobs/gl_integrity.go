package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/shopspring/decimal"

	"github.com/Emran025/supermarket-system-sub001/internal/accounting/journals"
	"github.com/Emran025/supermarket-system-sub001/internal/accounting/reports"
	jobmetrics "github.com/Emran025/supermarket-system-sub001/internal/jobs"
)

// VoucherScanner lists vouchers whose sides differ beyond a tolerance.
type VoucherScanner interface {
	UnbalancedVouchers(ctx context.Context, tolerance decimal.Decimal) ([]reports.VoucherImbalance, error)
}

// IntegrityJob checks that every voucher in the ledger balances.
type IntegrityJob struct {
	Scanner VoucherScanner
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewIntegrityJob initialises the integrity handler.
func NewIntegrityJob(scanner VoucherScanner, logger *slog.Logger, metrics *jobmetrics.Metrics) *IntegrityJob {
	return &IntegrityJob{Scanner: scanner, Logger: logger, Metrics: metrics}
}

// Handle executes the scan. Imbalances are reported, not repaired.
func (j *IntegrityJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Scanner == nil {
		return errors.New("ledger integrity: handler not configured")
	}
	var payload IntegrityPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}
	tolerance := journals.BalanceTolerance
	if payload.Tolerance != "" {
		parsed, perr := decimal.NewFromString(payload.Tolerance)
		if perr != nil || parsed.IsNegative() {
			return asynq.SkipRetry
		}
		tolerance = parsed
	}

	tracker := j.Metrics.Track(TaskLedgerIntegrity)
	defer func() { err = tracker.End(err) }()

	logger := loggerOr(j.Logger).With(slog.String("job", TaskLedgerIntegrity))
	imbalances, err := j.Scanner.UnbalancedVouchers(ctx, tolerance)
	if err != nil {
		logger.Error("integrity scan failed", slog.Any("error", err))
		return err
	}
	j.Metrics.SetUnbalancedVouchers(len(imbalances))
	for _, v := range imbalances {
		logger.Warn("unbalanced voucher",
			slog.String("voucher_number", v.VoucherNumber),
			slog.String("debit", v.Debit.StringFixed(2)),
			slog.String("credit", v.Credit.StringFixed(2)),
		)
	}
	logger.Info("integrity scan completed", slog.Int("unbalanced", len(imbalances)))
	return nil
}

func loggerOr(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}

package reports

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Emran025/supermarket-system-sub001/internal/accounting/accounts"
)

// SignedBalance returns debits minus credits for asset and expense accounts
// and credits minus debits for every other type.
func SignedBalance(t accounts.AccountType, debit, credit decimal.Decimal) decimal.Decimal {
	if t.DebitNormal() {
		return debit.Sub(credit)
	}
	return credit.Sub(debit)
}

// VoucherImbalance is a voucher whose stored debits and credits disagree.
type VoucherImbalance struct {
	VoucherNumber string
	Debit         decimal.Decimal
	Credit        decimal.Decimal
}

// Repository reads aggregated ledger activity. Only entries not yet closed
// with their period are included.
type Repository interface {
	// AccountTotals sums one account. found is false for unknown codes.
	AccountTotals(ctx context.Context, code string, asOf *time.Time) (row AccountBalance, found bool, err error)
	AccountActivity(ctx context.Context, asOf *time.Time) ([]AccountBalance, error)
	UnbalancedVouchers(ctx context.Context, tolerance decimal.Decimal) ([]VoucherImbalance, error)
}

// Service computes balances from the ledger.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

// NewService constructs the balance calculator.
func NewService(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger}
}

// Balance returns the signed balance of code as of asOf (inclusive), or over
// all open entries when asOf is nil. An unknown code yields zero, and so does
// a failed read, which is logged. The only error returned is the context's.
func (s *Service) Balance(ctx context.Context, code string, asOf *time.Time) (decimal.Decimal, error) {
	code = accounts.NormalizeCode(code)
	if code == "" {
		return decimal.Zero, nil
	}
	row, found, err := s.repo.AccountTotals(ctx, code, asOf)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return decimal.Zero, ctxErr
		}
		s.logger.Error("balance read failed, reporting zero", slog.String("code", code), slog.Any("error", err))
		return decimal.Zero, nil
	}
	if !found {
		s.logger.Debug("balance probe for unknown account", slog.String("code", code))
		return decimal.Zero, nil
	}
	return row.Balance(), nil
}

// TrialBalance groups open activity by account prefix.
func (s *Service) TrialBalance(ctx context.Context, asOf *time.Time) (TrialBalance, error) {
	rows, err := s.repo.AccountActivity(ctx, asOf)
	if err != nil {
		return TrialBalance{}, err
	}
	return BuildTrialBalance(rows), nil
}

// UnbalancedVouchers lists vouchers whose debits and credits differ by more than tolerance.
func (s *Service) UnbalancedVouchers(ctx context.Context, tolerance decimal.Decimal) ([]VoucherImbalance, error) {
	return s.repo.UnbalancedVouchers(ctx, tolerance)
}

package journals

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/Emran025/supermarket-system-sub001/internal/accounting/accounts"
	"github.com/Emran025/supermarket-system-sub001/internal/accounting/periods"
	"github.com/Emran025/supermarket-system-sub001/internal/accounting/sequences"
	"github.com/Emran025/supermarket-system-sub001/internal/accounting/shared"
	sharedaudit "github.com/Emran025/supermarket-system-sub001/internal/shared"
)

// AccountResolver maps codes to active accounts.
type AccountResolver interface {
	Resolve(ctx context.Context, code string) (accounts.Account, error)
}

// PeriodGuard rejects postings into locked or closed periods.
type PeriodGuard interface {
	AssertPostable(ctx context.Context, r periods.PostingReader, date time.Time) (*int64, error)
}

// VoucherMinter mints voucher numbers inside the posting transaction.
type VoucherMinter interface {
	NextInTx(ctx context.Context, tx sequences.TxRepository, documentType string) (string, error)
}

// AuditPort records ledger events for compliance.
type AuditPort interface {
	Record(ctx context.Context, log sharedaudit.AuditLog) error
}

// Metrics receives posting outcomes.
type Metrics interface {
	VoucherPosted(referenceType string, lines int)
	PostingRejected(reason string)
	VoucherReversed()
}

// Config groups optional settings.
type Config struct {
	VoucherDocumentType string
	Retry               shared.RetryPolicy
}

// Service posts and reverses balanced vouchers.
type Service struct {
	repo        Repository
	accounts    AccountResolver
	guard       PeriodGuard
	minter      VoucherMinter
	audit       AuditPort
	metrics     Metrics
	validate    *validator.Validate
	logger      *slog.Logger
	now         func() time.Time
	voucherType string
	retry       shared.RetryPolicy
}

// NewService constructs the ledger poster.
func NewService(repo Repository, resolver AccountResolver, minter VoucherMinter, cfg Config, logger *slog.Logger) *Service {
	if cfg.VoucherDocumentType == "" {
		cfg.VoucherDocumentType = sequences.DocumentVoucher
	}
	if cfg.Retry.Attempts == 0 {
		cfg.Retry = shared.DefaultRetryPolicy
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:        repo,
		accounts:    resolver,
		guard:       periods.Guard{},
		minter:      minter,
		validate:    validator.New(),
		logger:      logger,
		now:         time.Now,
		voucherType: cfg.VoucherDocumentType,
		retry:       cfg.Retry,
	}
}

// WithNow overrides the clock for testing.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// WithAudit attaches the audit logger.
func (s *Service) WithAudit(audit AuditPort) { s.audit = audit }

// WithMetrics attaches posting metrics.
func (s *Service) WithMetrics(metrics Metrics) { s.metrics = metrics }

// Voucher returns the stored entries of a voucher.
func (s *Service) Voucher(ctx context.Context, voucherNumber string) ([]LedgerEntry, error) {
	entries, err := s.repo.ListVoucher(ctx, voucherNumber)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, &shared.VoucherNotFoundError{VoucherNumber: voucherNumber}
	}
	return entries, nil
}

// Post validates and atomically writes a balanced voucher.
func (s *Service) Post(ctx context.Context, in PostInput) (Voucher, error) {
	var voucher Voucher
	err := shared.Retry(ctx, s.retry, func(ctx context.Context) error {
		return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			var err error
			voucher, err = s.PostInTx(ctx, tx, in)
			return err
		})
	})
	if err != nil {
		s.rejected(err)
		return Voucher{}, err
	}
	s.posted(ctx, in.ActorID, "ledger.post", voucher, map[string]any{
		"reference_type": in.ReferenceType,
		"reference_id":   in.ReferenceID,
	})
	return voucher, nil
}

// PostInTx writes a voucher inside a transaction owned by the caller. The
// whole voucher is rejected if any entry fails; nothing is written until
// every check has passed.
func (s *Service) PostInTx(ctx context.Context, tx TxRepository, in PostInput) (Voucher, error) {
	if err := s.validateInput(in); err != nil {
		return Voucher{}, err
	}
	resolved := make([]accounts.Account, len(in.Entries))
	for i, line := range in.Entries {
		account, err := s.accounts.Resolve(ctx, line.AccountCode)
		if err != nil {
			return Voucher{}, err
		}
		resolved[i] = account
	}
	date := in.VoucherDate
	if date.IsZero() {
		date = s.now()
	}
	date = periods.DateOnly(date)
	periodID, err := s.guard.AssertPostable(ctx, tx, date)
	if err != nil {
		return Voucher{}, err
	}
	number := in.VoucherNumber
	if number == "" {
		number, err = s.minter.NextInTx(ctx, tx, s.voucherType)
		if err != nil {
			return Voucher{}, err
		}
	} else {
		exists, err := tx.LockVoucherNumber(ctx, number)
		if err != nil {
			return Voucher{}, err
		}
		if exists {
			return Voucher{}, shared.Invalid("voucher_number", fmt.Sprintf("voucher %s already posted", number))
		}
	}
	rows := make([]LedgerEntry, 0, len(in.Entries))
	for i, line := range in.Entries {
		rows = append(rows, LedgerEntry{
			VoucherNumber:     number,
			VoucherDate:       date,
			AccountID:         resolved[i].ID,
			AccountCode:       resolved[i].Code,
			EntryType:         line.EntryType,
			Amount:            line.Amount,
			Description:       line.Description,
			ReferenceType:     in.ReferenceType,
			ReferenceID:       in.ReferenceID,
			FiscalPeriodID:    periodID,
			ReversalOfVoucher: in.ReversalOf,
			CreatedBy:         in.ActorID,
		})
	}
	inserted, err := tx.InsertEntries(ctx, rows)
	if err != nil {
		return Voucher{}, err
	}
	return Voucher{Number: number, Date: date, FiscalPeriodID: periodID, Entries: inserted}, nil
}

// Reverse posts the mirror image of a voucher as a new voucher dated today.
// A voucher can be reversed once.
func (s *Service) Reverse(ctx context.Context, in ReverseInput) (Voucher, error) {
	var voucher Voucher
	err := shared.Retry(ctx, s.retry, func(ctx context.Context) error {
		return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			var err error
			voucher, err = s.ReverseInTx(ctx, tx, in)
			return err
		})
	})
	if err != nil {
		s.rejected(err)
		return Voucher{}, err
	}
	if s.metrics != nil {
		s.metrics.VoucherReversed()
	}
	s.posted(ctx, in.ActorID, "ledger.reverse", voucher, map[string]any{
		"reversal_of": in.VoucherNumber,
	})
	return voucher, nil
}

// ReverseInTx reverses a voucher inside a transaction owned by the caller.
func (s *Service) ReverseInTx(ctx context.Context, tx TxRepository, in ReverseInput) (Voucher, error) {
	if in.VoucherNumber == "" {
		return Voucher{}, shared.Invalid("voucher_number", "voucher number is required")
	}
	original, err := tx.ListVoucherEntries(ctx, in.VoucherNumber)
	if err != nil {
		return Voucher{}, err
	}
	if len(original) == 0 {
		return Voucher{}, &shared.VoucherNotFoundError{VoucherNumber: in.VoucherNumber}
	}
	reversed, err := tx.ReversalExists(ctx, in.VoucherNumber)
	if err != nil {
		return Voucher{}, err
	}
	if reversed {
		return Voucher{}, fmt.Errorf("%w: %s", shared.ErrAlreadyReversed, in.VoucherNumber)
	}
	return s.PostInTx(ctx, tx, PostInput{
		Entries:       mirror(original, in.Description),
		ReferenceType: ReferenceGeneralLedger,
		ReferenceID:   in.VoucherNumber,
		VoucherDate:   s.now(),
		ActorID:       in.ActorID,
		ReversalOf:    in.VoucherNumber,
	})
}

func mirror(entries []LedgerEntry, description string) []EntryInput {
	out := make([]EntryInput, 0, len(entries))
	for _, e := range entries {
		desc := description
		if desc == "" {
			desc = "Reversal of " + e.Description
		}
		out = append(out, EntryInput{
			AccountCode: e.AccountCode,
			EntryType:   e.EntryType.Opposite(),
			Amount:      e.Amount,
			Description: desc,
		})
	}
	return out
}

func (s *Service) validateInput(in PostInput) error {
	if err := s.validate.Struct(in); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return shared.Invalid(fe.Namespace(), fmt.Sprintf("failed %s validation", fe.Tag()))
		}
		return shared.Invalid("", err.Error())
	}
	debit, credit := decimal.Zero, decimal.Zero
	for i, line := range in.Entries {
		if !line.Amount.IsPositive() {
			return shared.Invalid(fmt.Sprintf("entries[%d].amount", i), "amount must be positive")
		}
		if line.EntryType == EntryDebit {
			debit = debit.Add(line.Amount)
		} else {
			credit = credit.Add(line.Amount)
		}
	}
	if debit.Sub(credit).Abs().GreaterThan(BalanceTolerance) {
		return &shared.ImbalancedPostingError{Debit: debit, Credit: credit}
	}
	return nil
}

func (s *Service) posted(ctx context.Context, actorID int64, action string, voucher Voucher, meta map[string]any) {
	if s.metrics != nil {
		refType := ""
		if len(voucher.Entries) > 0 {
			refType = voucher.Entries[0].ReferenceType
		}
		s.metrics.VoucherPosted(refType, len(voucher.Entries))
	}
	debit, _ := voucher.Totals()
	s.logger.Info("voucher posted", slog.String("voucher", voucher.Number), slog.String("action", action),
		slog.Int("lines", len(voucher.Entries)), slog.String("amount", debit.StringFixed(2)))
	if s.audit == nil {
		return
	}
	meta["lines"] = len(voucher.Entries)
	meta["amount"] = debit.StringFixed(2)
	if err := s.audit.Record(ctx, sharedaudit.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "voucher",
		EntityID: voucher.Number,
		Meta:     meta,
		At:       s.now(),
	}); err != nil {
		s.logger.Warn("audit voucher", slog.String("voucher", voucher.Number), slog.Any("error", err))
	}
}

func (s *Service) rejected(err error) {
	reason := RejectionReason(err)
	if s.metrics != nil {
		s.metrics.PostingRejected(reason)
	}
	s.logger.Warn("posting rejected", slog.String("reason", reason), slog.Any("error", err))
}

// RejectionReason classifies a posting failure for metrics and logs.
func RejectionReason(err error) string {
	switch {
	case errors.Is(err, shared.ErrUnbalanced):
		return "unbalanced"
	case errors.Is(err, shared.ErrUnknownAccount):
		return "unknown_account"
	case errors.Is(err, shared.ErrPeriodClosed):
		return "period_closed"
	case errors.Is(err, shared.ErrPeriodLocked):
		return "period_locked"
	case errors.Is(err, shared.ErrVoucherNotFound):
		return "voucher_not_found"
	case errors.Is(err, shared.ErrAlreadyReversed):
		return "already_reversed"
	case errors.Is(err, shared.ErrValidation):
		return "validation"
	case errors.Is(err, shared.ErrConcurrency):
		return "concurrency"
	default:
		return "internal"
	}
}

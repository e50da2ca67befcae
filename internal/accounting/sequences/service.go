package sequences

import (
	"context"
	"log/slog"

	"github.com/Emran025/supermarket-system-sub001/internal/accounting/shared"
)

// Metrics receives sequence contention signals.
type Metrics interface {
	SequenceConflict(documentType string)
}

// Service mints document numbers. Each call holds the counter row lock for
// the read-increment-write, so concurrent callers never share a number.
type Service struct {
	repo     Repository
	retry    shared.RetryPolicy
	padWidth int
	metrics  Metrics
	logger   *slog.Logger
}

// Config groups optional settings.
type Config struct {
	Retry    shared.RetryPolicy
	PadWidth int
}

// NewService constructs the sequencer.
func NewService(repo Repository, cfg Config, metrics Metrics, logger *slog.Logger) *Service {
	if cfg.Retry.Attempts == 0 {
		cfg.Retry = shared.DefaultRetryPolicy
	}
	if cfg.PadWidth <= 0 {
		cfg.PadWidth = DefaultPadWidth
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, retry: cfg.Retry, padWidth: cfg.PadWidth, metrics: metrics, logger: logger}
}

// NextNumber mints the next number for documentType in its own transaction.
// A lock wait timeout is retried per the retry policy and then surfaces as a
// ConcurrencyError.
func (s *Service) NextNumber(ctx context.Context, documentType string) (string, error) {
	var number string
	err := shared.Retry(ctx, s.retry, func(ctx context.Context) error {
		err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			var err error
			number, err = s.NextInTx(ctx, tx, documentType)
			return err
		})
		if err != nil && s.metrics != nil && isConcurrency(err) {
			s.metrics.SequenceConflict(NormalizeType(documentType))
		}
		return err
	})
	if err != nil {
		s.logger.Warn("mint document number", slog.String("document_type", documentType), slog.Any("error", err))
		return "", err
	}
	return number, nil
}

// NextInTx mints the next number inside the caller's transaction. The number
// is only consumed if that transaction commits.
func (s *Service) NextInTx(ctx context.Context, tx TxRepository, documentType string) (string, error) {
	docType := NormalizeType(documentType)
	if docType == "" {
		return "", shared.Invalid("document_type", "document type is required")
	}
	if err := tx.EnsureSequence(ctx, Sequence{DocumentType: docType, Prefix: docType, Format: DefaultFormat}); err != nil {
		return "", err
	}
	seq, err := tx.LockSequence(ctx, docType)
	if err != nil {
		return "", err
	}
	seq.CurrentNumber++
	if err := tx.UpdateSequenceNumber(ctx, docType, seq.CurrentNumber); err != nil {
		return "", err
	}
	return seq.Render(s.padWidth), nil
}

package periods

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Emran025/supermarket-system-sub001/internal/accounting/shared"
	sharedaudit "github.com/Emran025/supermarket-system-sub001/internal/shared"
)

// Guard decides whether a date accepts new postings.
type Guard struct{}

// AssertPostable resolves the period covering date through r. A date with no
// configured period is postable and yields a nil id. Closed is reported
// ahead of locked.
func (Guard) AssertPostable(ctx context.Context, r PostingReader, date time.Time) (*int64, error) {
	period, err := r.FindPeriodForPosting(ctx, date)
	if err != nil {
		if errors.Is(err, shared.ErrPeriodNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if period.IsClosed {
		return nil, &shared.PeriodClosedError{PeriodID: period.ID}
	}
	if period.IsLocked {
		return nil, &shared.PeriodLockedError{PeriodID: period.ID}
	}
	id := period.ID
	return &id, nil
}

// AuditPort records period lifecycle events.
type AuditPort interface {
	Record(ctx context.Context, log sharedaudit.AuditLog) error
}

// Service manages the fiscal period lifecycle.
type Service struct {
	repo   Repository
	audit  AuditPort
	logger *slog.Logger
	now    func() time.Time
}

// NewService constructs the period service.
func NewService(repo Repository, audit AuditPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, audit: audit, logger: logger, now: time.Now}
}

// WithNow overrides the clock for testing.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// List returns every period ordered by start date.
func (s *Service) List(ctx context.Context) ([]FiscalPeriod, error) {
	return s.repo.List(ctx)
}

// Create inserts a period after checking it overlaps no existing range.
func (s *Service) Create(ctx context.Context, in CreateInput) (FiscalPeriod, error) {
	if in.Name == "" {
		return FiscalPeriod{}, shared.Invalid("name", "period name is required")
	}
	if in.StartDate.IsZero() || in.EndDate.IsZero() {
		return FiscalPeriod{}, shared.Invalid("date", "start and end dates are required")
	}
	if DateOnly(in.EndDate).Before(DateOnly(in.StartDate)) {
		return FiscalPeriod{}, shared.Invalid("end_date", "end date precedes start date")
	}
	var created FiscalPeriod
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		overlaps, err := tx.PeriodOverlaps(ctx, in.StartDate, in.EndDate)
		if err != nil {
			return err
		}
		if overlaps {
			return shared.ErrPeriodOverlap
		}
		created, err = tx.InsertPeriod(ctx, in)
		return err
	})
	if err != nil {
		return FiscalPeriod{}, err
	}
	s.record(ctx, in.ActorID, "period.create", created.ID, map[string]any{"name": created.Name})
	return created, nil
}

// Lock temporarily blocks postings into the period.
func (s *Service) Lock(ctx context.Context, id, actorID int64) (FiscalPeriod, error) {
	return s.transition(ctx, id, actorID, "period.lock", func(p FiscalPeriod) (FiscalPeriod, error) {
		if p.IsClosed {
			return p, &shared.PeriodClosedError{PeriodID: p.ID}
		}
		p.IsLocked = true
		return p, nil
	})
}

// Unlock reopens a locked period. Closed periods stay closed.
func (s *Service) Unlock(ctx context.Context, id, actorID int64) (FiscalPeriod, error) {
	return s.transition(ctx, id, actorID, "period.unlock", func(p FiscalPeriod) (FiscalPeriod, error) {
		if p.IsClosed {
			return p, &shared.PeriodClosedError{PeriodID: p.ID}
		}
		p.IsLocked = false
		return p, nil
	})
}

// Close permanently blocks postings and marks the period's entries closed.
func (s *Service) Close(ctx context.Context, id, actorID int64) (FiscalPeriod, error) {
	var closedEntries int64
	period, err := s.transitionTx(ctx, id, actorID, func(ctx context.Context, tx TxRepository, p FiscalPeriod) (FiscalPeriod, error) {
		if p.IsClosed {
			return p, &shared.PeriodClosedError{PeriodID: p.ID}
		}
		n, err := tx.CloseLedgerEntries(ctx, p.ID)
		if err != nil {
			return p, err
		}
		closedEntries = n
		p.IsClosed = true
		return p, nil
	})
	if err != nil {
		return FiscalPeriod{}, err
	}
	s.logger.Info("fiscal period closed", slog.Int64("period_id", id), slog.Int64("entries", closedEntries))
	s.record(ctx, actorID, "period.close", id, map[string]any{"entries_closed": closedEntries})
	return period, nil
}

func (s *Service) transition(ctx context.Context, id, actorID int64, action string, apply func(FiscalPeriod) (FiscalPeriod, error)) (FiscalPeriod, error) {
	period, err := s.transitionTx(ctx, id, actorID, func(_ context.Context, _ TxRepository, p FiscalPeriod) (FiscalPeriod, error) {
		return apply(p)
	})
	if err != nil {
		return FiscalPeriod{}, err
	}
	s.record(ctx, actorID, action, id, map[string]any{"status": string(period.Status())})
	return period, nil
}

func (s *Service) transitionTx(ctx context.Context, id, actorID int64, apply func(context.Context, TxRepository, FiscalPeriod) (FiscalPeriod, error)) (FiscalPeriod, error) {
	if id == 0 {
		return FiscalPeriod{}, shared.Invalid("period_id", "period id is required")
	}
	var updated FiscalPeriod
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetPeriodForUpdate(ctx, id)
		if err != nil {
			return err
		}
		next, err := apply(ctx, tx, current)
		if err != nil {
			return err
		}
		now := s.now()
		if err := tx.UpdatePeriodFlags(ctx, id, next.IsLocked, next.IsClosed, actorID, now); err != nil {
			return err
		}
		if next.IsClosed && next.ClosedAt == nil {
			next.ClosedAt = &now
			if actorID != 0 {
				next.ClosedBy = &actorID
			}
		}
		next.UpdatedAt = now
		updated = next
		return nil
	})
	return updated, err
}

func (s *Service) record(ctx context.Context, actorID int64, action string, id int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, sharedaudit.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "fiscal_period",
		EntityID: fmt.Sprintf("%d", id),
		Meta:     meta,
		At:       s.now(),
	}); err != nil {
		s.logger.Warn("audit period event", slog.String("action", action), slog.Any("error", err))
	}
}

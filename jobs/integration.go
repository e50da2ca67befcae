package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/Emran025/supermarket-system-sub001/internal/accounting/journals"
	"github.com/Emran025/supermarket-system-sub001/internal/integration"
	"github.com/Emran025/supermarket-system-sub001/internal/inventory"
	jobmetrics "github.com/Emran025/supermarket-system-sub001/internal/jobs"
)

// EventHandler posts business events to the ledger.
type EventHandler interface {
	HandleSaleCompleted(ctx context.Context, evt integration.SaleCompletedEvent) (string, error)
	HandlePurchaseReceived(ctx context.Context, evt integration.PurchaseReceivedEvent) (string, error)
	HandleDocumentVoided(ctx context.Context, evt integration.DocumentVoidedEvent) (string, error)
}

// EventJobs routes integration tasks to the hooks.
type EventJobs struct {
	Hooks   EventHandler
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewEventJobs initialises the integration handlers.
func NewEventJobs(hooks EventHandler, logger *slog.Logger, metrics *jobmetrics.Metrics) *EventJobs {
	return &EventJobs{Hooks: hooks, Logger: logger, Metrics: metrics}
}

// Handlers returns the task registrations for the worker.
func (j *EventJobs) Handlers() []TaskHandler {
	return []TaskHandler{
		{Type: TaskSaleCompleted, Handler: j.HandleSaleCompleted},
		{Type: TaskPurchaseReceived, Handler: j.HandlePurchaseReceived},
		{Type: TaskDocumentVoided, Handler: j.HandleDocumentVoided},
	}
}

// HandleSaleCompleted posts a sale.
func (j *EventJobs) HandleSaleCompleted(ctx context.Context, t *asynq.Task) error {
	var evt integration.SaleCompletedEvent
	if err := json.Unmarshal(t.Payload(), &evt); err != nil {
		return asynq.SkipRetry
	}
	return j.run(ctx, TaskSaleCompleted, func(ctx context.Context) (string, error) {
		return j.Hooks.HandleSaleCompleted(ctx, evt)
	})
}

// HandlePurchaseReceived posts a purchase.
func (j *EventJobs) HandlePurchaseReceived(ctx context.Context, t *asynq.Task) error {
	var evt integration.PurchaseReceivedEvent
	if err := json.Unmarshal(t.Payload(), &evt); err != nil {
		return asynq.SkipRetry
	}
	return j.run(ctx, TaskPurchaseReceived, func(ctx context.Context) (string, error) {
		return j.Hooks.HandlePurchaseReceived(ctx, evt)
	})
}

// HandleDocumentVoided reverses a voided document's voucher.
func (j *EventJobs) HandleDocumentVoided(ctx context.Context, t *asynq.Task) error {
	var evt integration.DocumentVoidedEvent
	if err := json.Unmarshal(t.Payload(), &evt); err != nil {
		return asynq.SkipRetry
	}
	return j.run(ctx, TaskDocumentVoided, func(ctx context.Context) (string, error) {
		return j.Hooks.HandleDocumentVoided(ctx, evt)
	})
}

func (j *EventJobs) run(ctx context.Context, task string, fn func(context.Context) (string, error)) (err error) {
	if j == nil || j.Hooks == nil {
		return errors.New("integration: handler not configured")
	}
	tracker := j.Metrics.Track(task)
	defer func() { err = tracker.End(err) }()

	logger := loggerOr(j.Logger).With(slog.String("job", task))
	voucher, err := fn(ctx)
	if err != nil {
		// A locked period may reopen; other business rejections are permanent.
		switch reason := rejectionReason(err); reason {
		case "internal", "concurrency", "period_locked":
		default:
			logger.Warn("event rejected", slog.String("reason", reason), slog.Any("error", err))
			return errors.Join(err, asynq.SkipRetry)
		}
		logger.Error("event failed", slog.Any("error", err))
		return err
	}
	if voucher == "" {
		logger.Info("event already processed")
		return nil
	}
	logger.Info("event posted", slog.String("voucher_number", voucher))
	return nil
}

// rejectionReason extends the posting classification with malformed stock lines.
func rejectionReason(err error) string {
	switch {
	case errors.Is(err, inventory.ErrInvalidQuantity),
		errors.Is(err, inventory.ErrInvalidUnitCost),
		errors.Is(err, inventory.ErrProductRequired):
		return "invalid_stock_line"
	default:
		return journals.RejectionReason(err)
	}
}

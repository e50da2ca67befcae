package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/Emran025/supermarket-system-sub001/internal/inventory"
	jobmetrics "github.com/Emran025/supermarket-system-sub001/internal/jobs"
)

// Revaluer recomputes weighted average costs from unsold lots.
type Revaluer interface {
	RevalueAll(ctx context.Context) ([]inventory.Revaluation, error)
}

// RevaluationJob refreshes product_costs nightly.
type RevaluationJob struct {
	Revaluer Revaluer
	Logger   *slog.Logger
	Metrics  *jobmetrics.Metrics
}

// NewRevaluationJob initialises the revaluation handler.
func NewRevaluationJob(revaluer Revaluer, logger *slog.Logger, metrics *jobmetrics.Metrics) *RevaluationJob {
	return &RevaluationJob{Revaluer: revaluer, Logger: logger, Metrics: metrics}
}

// Handle runs the revaluation.
func (j *RevaluationJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Revaluer == nil {
		return errors.New("inventory revaluation: handler not configured")
	}
	var payload RevaluationPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}
	tracker := j.Metrics.Track(TaskInventoryRevaluation)
	defer func() { err = tracker.End(err) }()

	logger := loggerOr(j.Logger).With(slog.String("job", TaskInventoryRevaluation))
	if !payload.ScheduledFor.IsZero() {
		logger = logger.With(slog.String("scheduled_for", payload.ScheduledFor.Format(time.RFC3339)))
	}
	changed, err := j.Revaluer.RevalueAll(ctx)
	if err != nil {
		logger.Error("revaluation failed", slog.Any("error", err))
		return err
	}
	j.Metrics.AddRevalued(len(changed))
	for _, r := range changed {
		logger.Info("weighted average cost updated",
			slog.Int64("product_id", r.ProductID),
			slog.String("previous", r.Previous.String()),
			slog.String("current", r.Current.String()),
		)
	}
	logger.Info("revaluation completed", slog.Int("changed", len(changed)))
	return nil
}

package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/Emran025/supermarket-system-sub001/internal/assets"
	jobmetrics "github.com/Emran025/supermarket-system-sub001/internal/jobs"
)

// DepreciationRunner executes a monthly depreciation batch.
type DepreciationRunner interface {
	RunMonthly(ctx context.Context, in assets.RunInput) ([]assets.Result, error)
}

// DepreciationJob posts monthly depreciation from the scheduler.
type DepreciationJob struct {
	Runner  DepreciationRunner
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewDepreciationJob initialises the depreciation handler.
func NewDepreciationJob(runner DepreciationRunner, logger *slog.Logger, metrics *jobmetrics.Metrics) *DepreciationJob {
	return &DepreciationJob{
		Runner:  runner,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle runs the batch. Cron-triggered tasks carry no run date and use the
// current clock.
func (j *DepreciationJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Runner == nil {
		return errors.New("assets depreciation: handler not configured")
	}
	var payload DepreciationPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}
	if payload.RunDate.IsZero() {
		payload.RunDate = j.now()
	}
	tracker := j.Metrics.Track(TaskAssetsDepreciation)
	defer func() { err = tracker.End(err) }()

	logger := loggerOr(j.Logger).With(
		slog.String("job", TaskAssetsDepreciation),
		slog.String("run_date", payload.RunDate.Format("2006-01-02")),
	)
	results, err := j.Runner.RunMonthly(ctx, assets.RunInput{
		FiscalPeriodID: payload.FiscalPeriodID,
		RunDate:        payload.RunDate,
		ActorID:        payload.ActorID,
	})
	if err != nil {
		logger.Error("depreciation run failed", slog.Any("error", err))
		return err
	}
	logger.Info("depreciation run completed", slog.Int("posted", len(results)))
	return nil
}

func (j *DepreciationJob) now() time.Time {
	if j.clock == nil {
		return time.Now().UTC()
	}
	return j.clock()
}

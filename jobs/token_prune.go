package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/odyssey-erp/odyssey-pos/internal/jobs"
)

// DefaultTokenRetention keeps expired tokens for a day before pruning.
const DefaultTokenRetention = 24 * time.Hour

// TokenPruner deletes tokens that expired before cutoff.
type TokenPruner interface {
	Prune(ctx context.Context, cutoff time.Time) (int64, error)
}

// TokenPruneJob trims the payment token table.
type TokenPruneJob struct {
	Pruner  TokenPruner
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewTokenPruneJob initialises the prune handler.
func NewTokenPruneJob(pruner TokenPruner, logger *slog.Logger, metrics *jobmetrics.Metrics) *TokenPruneJob {
	return &TokenPruneJob{
		Pruner:  pruner,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle deletes tokens older than the payload retention.
func (j *TokenPruneJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Pruner == nil {
		return errors.New("token prune: handler not configured")
	}
	var payload TokenPrunePayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}
	if payload.Retention <= 0 {
		payload.Retention = DefaultTokenRetention
	}
	tracker := j.Metrics.Track(TaskPaymentTokenPrune)
	defer func() { err = tracker.End(err) }()

	cutoff := j.clock().Add(-payload.Retention)
	deleted, err := j.Pruner.Prune(ctx, cutoff)
	if err != nil {
		loggerOrDefault(j.Logger).Error("token prune failed", slog.Any("error", err))
		return err
	}
	j.Metrics.AddItems(TaskPaymentTokenPrune, int(deleted))
	loggerOrDefault(j.Logger).Info("pruned payment tokens",
		slog.Int64("deleted", deleted),
		slog.Time("cutoff", cutoff),
	)
	return nil
}

package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/odyssey-pos/internal/catalog"
	jobmetrics "github.com/odyssey-erp/odyssey-pos/internal/jobs"
)

// ReorderSource lists products that need reordering.
type ReorderSource interface {
	ReorderAlerts(ctx context.Context) ([]catalog.Product, error)
}

// ReorderScanJob logs every product at or below its reorder level.
type ReorderScanJob struct {
	Source  ReorderSource
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewReorderScanJob initialises the reorder scan handler.
func NewReorderScanJob(source ReorderSource, logger *slog.Logger, metrics *jobmetrics.Metrics) *ReorderScanJob {
	return &ReorderScanJob{Source: source, Logger: logger, Metrics: metrics}
}

// Handle executes the scan.
func (j *ReorderScanJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Source == nil {
		return errors.New("reorder scan: handler not configured")
	}
	var payload ReorderScanPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}
	tracker := j.Metrics.Track(TaskReorderScan)
	defer func() { err = tracker.End(err) }()

	logger := loggerOrDefault(j.Logger).With(slog.String("task", TaskReorderScan))
	start := time.Now()
	products, err := j.Source.ReorderAlerts(ctx)
	if err != nil {
		logger.Error("reorder scan failed", slog.Any("error", err))
		return err
	}
	for _, p := range products {
		logger.Warn("product below reorder level",
			slog.Int64("product_id", p.ID),
			slog.String("sku", p.SKU),
			slog.Int("stock_quantity", p.StockQuantity),
			slog.Int("min_stock_level", p.MinStockLevel),
		)
	}
	j.Metrics.AddItems(TaskReorderScan, len(products))
	logger.Info("completed reorder scan",
		slog.Int("products", len(products)),
		slog.Duration("duration", time.Since(start)),
	)
	return nil
}

func loggerOrDefault(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}

package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/odyssey-pos/internal/inventory"
	jobmetrics "github.com/odyssey-erp/odyssey-pos/internal/jobs"
)

// Enqueuer submits tasks to the queue.
type Enqueuer interface {
	Enqueue(ctx context.Context, task *asynq.Task) error
}

// LowStockListener turns reorder-level crossings into queued notifications.
// It is registered as an inventory.StockListener in the API process.
type LowStockListener struct {
	queue Enqueuer
}

// NewLowStockListener constructs the listener.
func NewLowStockListener(queue Enqueuer) *LowStockListener {
	return &LowStockListener{queue: queue}
}

// HandleStockChanged enqueues a notification when stock is at or below the reorder level.
func (l *LowStockListener) HandleStockChanged(ctx context.Context, evt inventory.StockChangedEvent) error {
	if l == nil || l.queue == nil || !evt.BelowReorderLevel() {
		return nil
	}
	task, err := NewLowStockTask(LowStockPayload{
		ProductID:     evt.ProductID,
		Name:          evt.Name,
		StockQuantity: evt.StockQuantity,
		MinStockLevel: evt.MinStockLevel,
		Reason:        evt.Reason,
		At:            evt.At,
	})
	if err != nil {
		return err
	}
	return l.queue.Enqueue(ctx, task)
}

// LowStockObserver counts reorder-level crossings.
type LowStockObserver interface {
	ObserveLowStock(reason string)
}

// LowStockJob processes low-stock notifications in the worker.
type LowStockJob struct {
	Logger   *slog.Logger
	Metrics  *jobmetrics.Metrics
	Observer LowStockObserver
}

// NewLowStockJob initialises the notification handler.
func NewLowStockJob(logger *slog.Logger, metrics *jobmetrics.Metrics, observer LowStockObserver) *LowStockJob {
	return &LowStockJob{Logger: logger, Metrics: metrics, Observer: observer}
}

// Handle logs the crossing. Malformed payloads are not retried.
func (j *LowStockJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	var payload LowStockPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	tracker := j.Metrics.Track(TaskLowStockNotify)
	defer func() { err = tracker.End(err) }()

	loggerOrDefault(j.Logger).Warn("low stock",
		slog.Int64("product_id", payload.ProductID),
		slog.String("name", payload.Name),
		slog.Int("stock_quantity", payload.StockQuantity),
		slog.Int("min_stock_level", payload.MinStockLevel),
		slog.String("reason", payload.Reason),
	)
	if j.Observer != nil {
		j.Observer.ObserveLowStock(payload.Reason)
	}
	return nil
}

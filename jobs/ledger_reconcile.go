package jobs

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/odyssey-pos/internal/inventory"
	jobmetrics "github.com/odyssey-erp/odyssey-pos/internal/jobs"
)

// Reconciler compares product stock with the movement ledger.
type Reconciler interface {
	Reconcile(ctx context.Context) ([]inventory.Discrepancy, error)
}

// LedgerReconcileJob reports products whose stock differs from their ledger sum.
type LedgerReconcileJob struct {
	Reconciler Reconciler
	Logger     *slog.Logger
	Metrics    *jobmetrics.Metrics
}

// NewLedgerReconcileJob initialises the reconcile handler.
func NewLedgerReconcileJob(reconciler Reconciler, logger *slog.Logger, metrics *jobmetrics.Metrics) *LedgerReconcileJob {
	return &LedgerReconcileJob{Reconciler: reconciler, Logger: logger, Metrics: metrics}
}

// Handle runs the reconciliation. Discrepancies are logged, not repaired.
func (j *LedgerReconcileJob) Handle(ctx context.Context, _ *asynq.Task) (err error) {
	if j == nil || j.Reconciler == nil {
		return errors.New("ledger reconcile: handler not configured")
	}
	tracker := j.Metrics.Track(TaskLedgerReconcile)
	defer func() { err = tracker.End(err) }()

	logger := loggerOrDefault(j.Logger).With(slog.String("task", TaskLedgerReconcile))
	found, err := j.Reconciler.Reconcile(ctx)
	if err != nil {
		logger.Error("ledger reconcile failed", slog.Any("error", err))
		return err
	}
	for _, d := range found {
		logger.Error("stock ledger mismatch",
			slog.Int64("product_id", d.ProductID),
			slog.Int("stock_quantity", d.StockQuantity),
			slog.Int("ledger_total", d.LedgerTotal),
		)
	}
	j.Metrics.AddItems(TaskLedgerReconcile, len(found))
	logger.Info("completed ledger reconcile", slog.Int("discrepancies", len(found)))
	return nil
}

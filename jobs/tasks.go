package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// QueueCritical receives work triggered by checkouts.
	QueueCritical = "critical"

	// TaskReorderScan lists products at or below their reorder level.
	TaskReorderScan = "inventory:reorder_scan"
	// TaskLedgerReconcile compares stock quantities with the movement ledger.
	TaskLedgerReconcile = "inventory:reconcile"
	// TaskLowStockNotify reports a single product crossing its reorder level.
	TaskLowStockNotify = "inventory:low_stock"
	// TaskPaymentTokenPrune deletes expired provider access tokens.
	TaskPaymentTokenPrune = "payments:token_prune"
)

// ReorderScanPayload carries scheduling metadata.
type ReorderScanPayload struct {
	ScheduledFor time.Time `json:"scheduled_for"`
}

// TokenPrunePayload controls how long expired tokens are kept.
type TokenPrunePayload struct {
	Retention time.Duration `json:"retention"`
}

// LowStockPayload describes the product that crossed its reorder level.
type LowStockPayload struct {
	ProductID     int64     `json:"product_id"`
	Name          string    `json:"name"`
	StockQuantity int       `json:"stock_quantity"`
	MinStockLevel int       `json:"min_stock_level"`
	Reason        string    `json:"reason"`
	At            time.Time `json:"at"`
}

// NewReorderScanTask constructs the periodic reorder scan task.
func NewReorderScanTask(at time.Time) (*asynq.Task, error) {
	return newTask(TaskReorderScan, ReorderScanPayload{ScheduledFor: at}, asynq.Queue(QueueDefault))
}

// NewLedgerReconcileTask constructs the nightly ledger reconciliation task.
func NewLedgerReconcileTask() *asynq.Task {
	return asynq.NewTask(TaskLedgerReconcile, nil, asynq.Queue(QueueDefault))
}

// NewTokenPruneTask constructs the token prune task.
func NewTokenPruneTask(retention time.Duration) (*asynq.Task, error) {
	return newTask(TaskPaymentTokenPrune, TokenPrunePayload{Retention: retention}, asynq.Queue(QueueDefault))
}

// NewLowStockTask constructs a low-stock notification task.
func NewLowStockTask(payload LowStockPayload) (*asynq.Task, error) {
	return newTask(TaskLowStockNotify, payload, asynq.Queue(QueueCritical), asynq.MaxRetry(5))
}

func newTask(typ string, payload any, opts ...asynq.Option) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(typ, body, opts...), nil
}

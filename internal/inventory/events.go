package inventory

import (
	"context"
	"time"
)

// StockChangedEvent is emitted after a committed movement.
type StockChangedEvent struct {
	ProductID     int64
	Name          string
	StockQuantity int
	MinStockLevel int
	Reason        string
	At            time.Time
}

// BelowReorderLevel reports whether the product needs reordering.
func (e StockChangedEvent) BelowReorderLevel() bool {
	return e.StockQuantity <= e.MinStockLevel
}

// StockListener receives stock changes after commit. Errors are logged, never rolled back.
type StockListener interface {
	HandleStockChanged(ctx context.Context, evt StockChangedEvent) error
}

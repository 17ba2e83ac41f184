// Package reports aggregates completed sales.
package reports

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-pos/internal/shared"
)

// Granularity is the width of a report bucket.
type Granularity string

const (
	Hourly  Granularity = "hourly"
	Daily   Granularity = "daily"
	Weekly  Granularity = "weekly"
	Monthly Granularity = "monthly"
)

// ParseGranularity defaults empty input to daily and rejects unknown values.
func ParseGranularity(raw string) (Granularity, error) {
	switch g := Granularity(strings.ToLower(strings.TrimSpace(raw))); g {
	case "":
		return Daily, nil
	case Hourly, Daily, Weekly, Monthly:
		return g, nil
	}
	return "", fmt.Errorf("%w: unknown granularity %q", shared.ErrValidation, raw)
}

// TruncUnit is the date_trunc field for the granularity.
func (g Granularity) TruncUnit() string {
	switch g {
	case Hourly:
		return "hour"
	case Weekly:
		return "week"
	case Monthly:
		return "month"
	default:
		return "day"
	}
}

// SalesQuery selects transactions with start <= transaction_date < end.
type SalesQuery struct {
	Start       time.Time
	End         time.Time
	Granularity Granularity
}

// Validate checks the range.
func (q SalesQuery) Validate() error {
	if q.Start.IsZero() || q.End.IsZero() {
		return shared.Invalid("range", "start and end are required")
	}
	if !q.End.After(q.Start) {
		return shared.Invalid("end", "must be after start")
	}
	return nil
}

// Bucket aggregates the transactions that fall in one period.
type Bucket struct {
	BucketStart      time.Time       `json:"bucket_start"`
	TotalSales       decimal.Decimal `json:"total_sales"`
	TransactionCount int             `json:"transaction_count"`
}

// SalesReport is the response for a sales query.
type SalesReport struct {
	Start       time.Time   `json:"start"`
	End         time.Time   `json:"end"`
	Granularity Granularity `json:"granularity"`
	Buckets     []Bucket    `json:"buckets"`
}

// Dashboard is the admin overview.
type Dashboard struct {
	TodaySales        decimal.Decimal `json:"today_sales"`
	TodayTransactions int             `json:"today_transactions"`
	ReorderAlerts     int             `json:"reorder_alerts"`
	Products          int             `json:"products"`
	GeneratedAt       time.Time       `json:"generated_at"`
}

package reports

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Repository runs the reporting queries.
type Repository interface {
	SalesBuckets(ctx context.Context, q SalesQuery) ([]Bucket, error)
	SalesTotals(ctx context.Context, start, end time.Time) (decimal.Decimal, int, error)
	ReorderAlertCount(ctx context.Context) (int, error)
	ProductCount(ctx context.Context) (int, error)
}

// PGRepository implements Repository with pgx.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs PGRepository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// SalesBuckets groups transactions by date_trunc. Empty buckets are not returned.
func (r *PGRepository) SalesBuckets(ctx context.Context, q SalesQuery) ([]Bucket, error) {
	rows, err := r.pool.Query(ctx, `SELECT date_trunc($1, transaction_date) AS bucket, SUM(total_amount), COUNT(*)
FROM transactions
WHERE transaction_date >= $2 AND transaction_date < $3
GROUP BY bucket
ORDER BY bucket`, q.Granularity.TruncUnit(), q.Start, q.End)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Bucket
	for rows.Next() {
		var b Bucket
		if err := rows.Scan(&b.BucketStart, &b.TotalSales, &b.TransactionCount); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *PGRepository) SalesTotals(ctx context.Context, start, end time.Time) (decimal.Decimal, int, error) {
	var (
		total decimal.Decimal
		count int
	)
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(SUM(total_amount), 0), COUNT(*) FROM transactions
WHERE transaction_date >= $1 AND transaction_date < $2`, start, end).Scan(&total, &count)
	return total, count, err
}

func (r *PGRepository) ReorderAlertCount(ctx context.Context) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM products WHERE stock_quantity <= min_stock_level`).Scan(&n)
	return n, err
}

func (r *PGRepository) ProductCount(ctx context.Context) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM products`).Scan(&n)
	return n, err
}

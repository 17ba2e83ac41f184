package inventory

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-pos/internal/platform/db"
)

// Repository persists inventory data in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes transactional operations used by service.
type TxRepository interface {
	LockStock(ctx context.Context, productID int64) (StockLevel, error)
	AdjustStock(ctx context.Context, productID int64, delta int) (int, error)
	InsertMovement(ctx context.Context, m Movement) (Movement, error)
}

type txRepo struct {
	q db.Querier
}

// NewTxRepository binds the ledger statements to an open transaction so
// other modules can write stock inside their own unit of work.
func NewTxRepository(tx pgx.Tx) TxRepository {
	return &txRepo{q: tx}
}

// WithTx executes the callback inside a read-committed transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{q: tx})
	})
}

func (r *txRepo) LockStock(ctx context.Context, productID int64) (StockLevel, error) {
	var lvl StockLevel
	err := r.q.QueryRow(ctx, `SELECT id, name, stock_quantity, min_stock_level FROM products WHERE id = $1 FOR UPDATE`, productID).
		Scan(&lvl.ProductID, &lvl.Name, &lvl.StockQuantity, &lvl.MinStockLevel)
	if errors.Is(err, pgx.ErrNoRows) {
		return StockLevel{}, ErrProductNotFound
	}
	return lvl, err
}

// AdjustStock applies delta and returns the new quantity. The guard keeps stock non-negative.
func (r *txRepo) AdjustStock(ctx context.Context, productID int64, delta int) (int, error) {
	var qty int
	err := r.q.QueryRow(ctx, `UPDATE products SET stock_quantity = stock_quantity + $2, updated_at = NOW()
WHERE id = $1 AND stock_quantity + $2 >= 0 RETURNING stock_quantity`, productID, delta).Scan(&qty)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrNegativeStock
	}
	return qty, err
}

func (r *txRepo) InsertMovement(ctx context.Context, m Movement) (Movement, error) {
	var actor *int64
	if m.ActorID != 0 {
		actor = &m.ActorID
	}
	err := r.q.QueryRow(ctx, `INSERT INTO inventory_transactions (product_id, change_quantity, transaction_type, reason, actor_id)
VALUES ($1, $2, $3, $4, $5) RETURNING id, timestamp`, m.ProductID, m.ChangeQuantity, m.Type, m.Reason, actor).
		Scan(&m.ID, &m.Timestamp)
	return m, err
}

// ListMovements returns ledger rows newest first together with the total count.
func (r *Repository) ListMovements(ctx context.Context, filter MovementFilter, limit, offset int) ([]Movement, int, error) {
	where := ` WHERE 1=1`
	args := []any{}
	if filter.ProductID != nil {
		args = append(args, *filter.ProductID)
		where += ` AND product_id = $` + strconv.Itoa(len(args))
	}
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM inventory_transactions`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	args = append(args, limit, offset)
	query := `SELECT id, product_id, change_quantity, transaction_type, reason, COALESCE(actor_id, 0), timestamp
FROM inventory_transactions` + where + ` ORDER BY timestamp DESC, id DESC LIMIT $` + strconv.Itoa(len(args)-1) + ` OFFSET $` + strconv.Itoa(len(args))
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []Movement
	for rows.Next() {
		var m Movement
		if err := rows.Scan(&m.ID, &m.ProductID, &m.ChangeQuantity, &m.Type, &m.Reason, &m.ActorID, &m.Timestamp); err != nil {
			return nil, 0, err
		}
		out = append(out, m)
	}
	return out, total, rows.Err()
}

// Discrepancies lists products whose stock differs from the sum of their ledger.
func (r *Repository) Discrepancies(ctx context.Context) ([]Discrepancy, error) {
	rows, err := r.pool.Query(ctx, `SELECT p.id, p.stock_quantity, COALESCE(SUM(it.change_quantity), 0)::int
FROM products p LEFT JOIN inventory_transactions it ON it.product_id = p.id
GROUP BY p.id, p.stock_quantity
HAVING p.stock_quantity <> COALESCE(SUM(it.change_quantity), 0)
ORDER BY p.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Discrepancy
	for rows.Next() {
		var d Discrepancy
		if err := rows.Scan(&d.ProductID, &d.StockQuantity, &d.LedgerTotal); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

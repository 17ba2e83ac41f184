package sales

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-pos/internal/inventory"
	"github.com/odyssey-erp/odyssey-pos/internal/platform/db"
	"github.com/odyssey-erp/odyssey-pos/internal/shared"
)

// TxRepository exposes the statements a checkout runs inside one unit of work.
type TxRepository interface {
	LockProduct(ctx context.Context, productID int64) (ProductSnapshot, error)
	DecrementStock(ctx context.Context, productID int64, quantity int) (int, error)
	InsertMovement(ctx context.Context, m inventory.Movement) (inventory.Movement, error)
	InsertTransaction(ctx context.Context, tx Transaction) (Transaction, error)
	InsertSaleItem(ctx context.Context, item SaleItem) (SaleItem, error)
}

// Repository persists sales in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type txRepo struct {
	tx     pgx.Tx
	ledger inventory.TxRepository
}

// WithTx executes fn inside a read-committed transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx, ledger: inventory.NewTxRepository(tx)})
	})
}

func (r *txRepo) LockProduct(ctx context.Context, productID int64) (ProductSnapshot, error) {
	var p ProductSnapshot
	err := r.tx.QueryRow(ctx, `SELECT id, name, price, stock_quantity, min_stock_level FROM products WHERE id = $1 FOR UPDATE`, productID).
		Scan(&p.ID, &p.Name, &p.Price, &p.StockQuantity, &p.MinStockLevel)
	if errors.Is(err, pgx.ErrNoRows) {
		return ProductSnapshot{}, ErrProductNotFound
	}
	return p, err
}

func (r *txRepo) DecrementStock(ctx context.Context, productID int64, quantity int) (int, error) {
	return r.ledger.AdjustStock(ctx, productID, -quantity)
}

func (r *txRepo) InsertMovement(ctx context.Context, m inventory.Movement) (inventory.Movement, error) {
	return r.ledger.InsertMovement(ctx, m)
}

func (r *txRepo) InsertTransaction(ctx context.Context, t Transaction) (Transaction, error) {
	err := r.tx.QueryRow(ctx, `INSERT INTO transactions (employee_id, customer_id, total_amount, discount, payment_method)
VALUES ($1, $2, $3, $4, $5) RETURNING id, transaction_date`,
		t.EmployeeID, t.CustomerID, t.TotalAmount, t.Discount, t.PaymentMethod).
		Scan(&t.ID, &t.TransactionDate)
	if db.IsForeignKeyViolation(err) {
		return Transaction{}, shared.Invalid("customer_id", "unknown customer")
	}
	return t, err
}

func (r *txRepo) InsertSaleItem(ctx context.Context, item SaleItem) (SaleItem, error) {
	err := r.tx.QueryRow(ctx, `INSERT INTO sale_items (transaction_id, product_id, quantity, price)
VALUES ($1, $2, $3, $4) RETURNING id`, item.TransactionID, item.ProductID, item.Quantity, item.Price).
		Scan(&item.ID)
	return item, err
}

// GetTransaction loads a transaction with its items.
func (r *Repository) GetTransaction(ctx context.Context, id int64) (Transaction, error) {
	var t Transaction
	err := r.pool.QueryRow(ctx, `SELECT id, employee_id, customer_id, total_amount, discount, transaction_date, payment_method, payment_reference
FROM transactions WHERE id = $1`, id).
		Scan(&t.ID, &t.EmployeeID, &t.CustomerID, &t.TotalAmount, &t.Discount, &t.TransactionDate, &t.PaymentMethod, &t.PaymentReference)
	if errors.Is(err, pgx.ErrNoRows) {
		return Transaction{}, ErrTransactionNotFound
	}
	if err != nil {
		return Transaction{}, err
	}
	rows, err := r.pool.Query(ctx, `SELECT si.id, si.transaction_id, si.product_id, p.name, si.quantity, si.price
FROM sale_items si JOIN products p ON p.id = si.product_id
WHERE si.transaction_id = $1 ORDER BY si.id`, id)
	if err != nil {
		return Transaction{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var item SaleItem
		if err := rows.Scan(&item.ID, &item.TransactionID, &item.ProductID, &item.ProductName, &item.Quantity, &item.Price); err != nil {
			return Transaction{}, err
		}
		t.Items = append(t.Items, item)
	}
	return t, rows.Err()
}

// ListTransactions returns transactions newest first with the total count.
func (r *Repository) ListTransactions(ctx context.Context, limit, offset int) ([]Transaction, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM transactions`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx, `SELECT id, employee_id, customer_id, total_amount, discount, transaction_date, payment_method, payment_reference
FROM transactions ORDER BY transaction_date DESC, id DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []Transaction
	for rows.Next() {
		var t Transaction
		if err := rows.Scan(&t.ID, &t.EmployeeID, &t.CustomerID, &t.TotalAmount, &t.Discount, &t.TransactionDate, &t.PaymentMethod, &t.PaymentReference); err != nil {
			return nil, 0, err
		}
		out = append(out, t)
	}
	return out, total, rows.Err()
}

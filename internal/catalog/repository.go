package catalog

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-pos/internal/inventory"
	"github.com/odyssey-erp/odyssey-pos/internal/platform/db"
	"github.com/odyssey-erp/odyssey-pos/internal/shared"
)

// Repository defines catalog persistence.
type Repository interface {
	CreateProduct(ctx context.Context, p Product, actorID int64) (Product, error)
	GetProduct(ctx context.Context, id int64) (Product, error)
	UpdateProduct(ctx context.Context, p Product) (Product, error)
	DeleteProduct(ctx context.Context, id int64) error
	Search(ctx context.Context, filters SearchFilters, limit, offset int) ([]Product, int, error)
	ReorderAlerts(ctx context.Context) ([]Product, error)
	BelowThreshold(ctx context.Context, threshold int) ([]Product, error)
	CountProducts(ctx context.Context) (int, error)
	CategoryExists(ctx context.Context, id int64) (bool, error)
	CreateCategory(ctx context.Context, name string) (Category, error)
	ListCategories(ctx context.Context) ([]Category, error)
	DeleteCategory(ctx context.Context, id int64) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const productColumns = `id, sku, name, price, stock_quantity, min_stock_level, category_id, created_at, updated_at`

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.SKU, &p.Name, &p.Price, &p.StockQuantity, &p.MinStockLevel, &p.CategoryID, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, inventory.ErrProductNotFound
	}
	return p, err
}

func collectProducts(rows pgx.Rows) ([]Product, error) {
	defer rows.Close()
	var out []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// CreateProduct inserts the product and, for non-zero stock, its opening ledger row.
func (r *repository) CreateProduct(ctx context.Context, p Product, actorID int64) (Product, error) {
	var created Product
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var err error
		created, err = scanProduct(tx.QueryRow(ctx, `INSERT INTO products (sku, name, price, stock_quantity, min_stock_level, category_id)
VALUES ($1, $2, $3, $4, $5, $6) RETURNING `+productColumns,
			p.SKU, p.Name, p.Price, p.StockQuantity, p.MinStockLevel, p.CategoryID))
		if err != nil {
			return err
		}
		if p.StockQuantity == 0 {
			return nil
		}
		mv, err := inventory.NewMovement(created.ID, p.StockQuantity, inventory.ReasonInitialStock, actorID)
		if err != nil {
			return err
		}
		_, err = inventory.NewTxRepository(tx).InsertMovement(ctx, mv)
		return err
	})
	switch {
	case db.IsUniqueViolation(err, "products_sku_key"):
		return Product{}, ErrSKUTaken
	case db.IsForeignKeyViolation(err):
		return Product{}, shared.Invalid("category_id", "does not exist")
	}
	return created, err
}

func (r *repository) GetProduct(ctx context.Context, id int64) (Product, error) {
	return scanProduct(r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id))
}

func (r *repository) UpdateProduct(ctx context.Context, p Product) (Product, error) {
	updated, err := scanProduct(r.pool.QueryRow(ctx, `UPDATE products SET name = $2, price = $3, min_stock_level = $4, category_id = $5, updated_at = NOW()
WHERE id = $1 RETURNING `+productColumns, p.ID, p.Name, p.Price, p.MinStockLevel, p.CategoryID))
	if db.IsForeignKeyViolation(err) {
		return Product{}, shared.Invalid("category_id", "does not exist")
	}
	return updated, err
}

func (r *repository) DeleteProduct(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if db.IsForeignKeyViolation(err) {
		return ErrProductInUse
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return inventory.ErrProductNotFound
	}
	return nil
}

// Search applies text, price range and category filters with LIMIT/OFFSET paging.
func (r *repository) Search(ctx context.Context, filters SearchFilters, limit, offset int) ([]Product, int, error) {
	where := ` WHERE 1=1`
	args := []any{}
	if filters.Text != "" {
		args = append(args, db.ContainsPattern(filters.Text))
		where += ` AND name ILIKE $` + strconv.Itoa(len(args))
	}
	if filters.MinPrice != nil {
		args = append(args, *filters.MinPrice)
		where += ` AND price >= $` + strconv.Itoa(len(args))
	}
	if filters.MaxPrice != nil {
		args = append(args, *filters.MaxPrice)
		where += ` AND price <= $` + strconv.Itoa(len(args))
	}
	if filters.CategoryID != nil {
		args = append(args, *filters.CategoryID)
		where += ` AND category_id = $` + strconv.Itoa(len(args))
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM products`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	query := `SELECT ` + productColumns + ` FROM products` + where +
		` ORDER BY name ASC, id ASC LIMIT $` + strconv.Itoa(len(args)-1) + ` OFFSET $` + strconv.Itoa(len(args))
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	items, err := collectProducts(rows)
	return items, total, err
}

func (r *repository) ReorderAlerts(ctx context.Context) ([]Product, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+productColumns+` FROM products WHERE stock_quantity <= min_stock_level ORDER BY name ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	return collectProducts(rows)
}

func (r *repository) BelowThreshold(ctx context.Context, threshold int) ([]Product, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+productColumns+` FROM products WHERE stock_quantity < $1 ORDER BY stock_quantity ASC, name ASC`, threshold)
	if err != nil {
		return nil, err
	}
	return collectProducts(rows)
}

func (r *repository) CountProducts(ctx context.Context) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM products`).Scan(&n)
	return n, err
}

func (r *repository) CategoryExists(ctx context.Context, id int64) (bool, error) {
	var ok bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM categories WHERE id = $1)`, id).Scan(&ok)
	return ok, err
}

func (r *repository) CreateCategory(ctx context.Context, name string) (Category, error) {
	var c Category
	err := r.pool.QueryRow(ctx, `INSERT INTO categories (name) VALUES ($1) RETURNING id, name`, name).Scan(&c.ID, &c.Name)
	if db.IsUniqueViolation(err, "categories_name_key") {
		return Category{}, shared.ErrConflict
	}
	return c, err
}

func (r *repository) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name FROM categories ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// DeleteCategory removes the category; the foreign key cascades to its products.
// Products that appear on sale items block the delete with ErrCategoryInUse.
func (r *repository) DeleteCategory(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if db.IsForeignKeyViolation(err) {
		return ErrCategoryInUse
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

package customers

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-pos/internal/platform/db"
)

// Repository persists customers in PostgreSQL.
type Repository interface {
	Create(ctx context.Context, c Customer) (Customer, error)
	Get(ctx context.Context, id int64) (Customer, error)
	List(ctx context.Context, filter ListFilter, limit, offset int) ([]Customer, int, error)
	AdjustLoyalty(ctx context.Context, id int64, delta int) (Customer, error)
}

// PGRepository implements Repository with pgx.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs PGRepository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const customerColumns = `id, name, email, phone, loyalty_points, created_at`

func scanCustomer(row pgx.Row) (Customer, error) {
	var c Customer
	err := row.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.LoyaltyPoints, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Customer{}, ErrCustomerNotFound
	}
	return c, err
}

func (r *PGRepository) Create(ctx context.Context, c Customer) (Customer, error) {
	out, err := scanCustomer(r.pool.QueryRow(ctx, `INSERT INTO customers (name, email, phone) VALUES ($1, $2, $3)
RETURNING `+customerColumns, c.Name, c.Email, c.Phone))
	if db.IsUniqueViolation(err, "customers_email_key") {
		return Customer{}, ErrEmailTaken
	}
	return out, err
}

func (r *PGRepository) Get(ctx context.Context, id int64) (Customer, error) {
	return scanCustomer(r.pool.QueryRow(ctx, `SELECT `+customerColumns+` FROM customers WHERE id = $1`, id))
}

func (r *PGRepository) List(ctx context.Context, filter ListFilter, limit, offset int) ([]Customer, int, error) {
	where := ` WHERE 1=1`
	var args []any
	if filter.Search != "" {
		args = append(args, db.ContainsPattern(filter.Search))
		n := strconv.Itoa(len(args))
		where += ` AND (name ILIKE $` + n + ` OR email ILIKE $` + n + ` OR phone ILIKE $` + n + `)`
	}
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM customers`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	args = append(args, limit, offset)
	rows, err := r.pool.Query(ctx, `SELECT `+customerColumns+` FROM customers`+where+
		` ORDER BY name, id LIMIT $`+strconv.Itoa(len(args)-1)+` OFFSET $`+strconv.Itoa(len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, c)
	}
	return out, total, rows.Err()
}

// AdjustLoyalty applies delta unless the balance would go negative.
func (r *PGRepository) AdjustLoyalty(ctx context.Context, id int64, delta int) (Customer, error) {
	var out Customer
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		current, err := scanCustomer(tx.QueryRow(ctx, `SELECT `+customerColumns+` FROM customers WHERE id = $1 FOR UPDATE`, id))
		if err != nil {
			return err
		}
		if current.LoyaltyPoints+delta < 0 {
			return ErrNegativeLoyalty
		}
		out, err = scanCustomer(tx.QueryRow(ctx, `UPDATE customers SET loyalty_points = loyalty_points + $2 WHERE id = $1
RETURNING `+customerColumns, id, delta))
		return err
	})
	if db.IsCheckViolation(err) {
		return Customer{}, ErrNegativeLoyalty
	}
	return out, err
}

package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-pos/internal/platform/db"
	"github.com/odyssey-erp/odyssey-pos/internal/shared"
)

// Repository defines persistence operations for auth module.
type Repository interface {
	FindByUsername(ctx context.Context, username string) (Employee, error)
	FindByID(ctx context.Context, id int64) (Employee, error)
	IdentityTaken(ctx context.Context, username, email string) (bool, error)
	Create(ctx context.Context, emp Employee) (Employee, error)
	Update(ctx context.Context, emp Employee) (Employee, error)
	List(ctx context.Context) ([]Employee, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const employeeColumns = `id, username, email, role, password_hash, salt, verified, created_at, updated_at`

func scanEmployee(row pgx.Row) (Employee, error) {
	var e Employee
	err := row.Scan(&e.ID, &e.Username, &e.Email, &e.Role, &e.PasswordHash, &e.Salt, &e.Verified, &e.CreatedAt, &e.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Employee{}, shared.ErrNotFound
	}
	return e, err
}

// FindByUsername fetches an employee by username.
func (r *PGRepository) FindByUsername(ctx context.Context, username string) (Employee, error) {
	return scanEmployee(r.pool.QueryRow(ctx, `SELECT `+employeeColumns+` FROM employees WHERE username = $1`, username))
}

// FindByID fetches an employee by id.
func (r *PGRepository) FindByID(ctx context.Context, id int64) (Employee, error) {
	return scanEmployee(r.pool.QueryRow(ctx, `SELECT `+employeeColumns+` FROM employees WHERE id = $1`, id))
}

// IdentityTaken reports whether the username or email is already registered.
func (r *PGRepository) IdentityTaken(ctx context.Context, username, email string) (bool, error) {
	var taken bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM employees WHERE username = $1 OR LOWER(email) = LOWER($2))`, username, email).Scan(&taken)
	return taken, err
}

// Create inserts the employee. Unique violations surface as shared.ErrConflict.
func (r *PGRepository) Create(ctx context.Context, emp Employee) (Employee, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO employees (username, email, role, password_hash, salt, verified)
VALUES ($1, $2, $3, $4, $5, $6) RETURNING `+employeeColumns,
		emp.Username, emp.Email, emp.Role, emp.PasswordHash, emp.Salt, emp.Verified)
	created, err := scanEmployee(row)
	if db.IsUniqueViolation(err, "") {
		return Employee{}, fmt.Errorf("auth: employee %q: %w", emp.Username, shared.ErrConflict)
	}
	return created, err
}

// Update persists email, role and credentials.
func (r *PGRepository) Update(ctx context.Context, emp Employee) (Employee, error) {
	row := r.pool.QueryRow(ctx, `UPDATE employees SET email = $2, role = $3, password_hash = $4, salt = $5, updated_at = NOW()
WHERE id = $1 RETURNING `+employeeColumns,
		emp.ID, emp.Email, emp.Role, emp.PasswordHash, emp.Salt)
	updated, err := scanEmployee(row)
	if db.IsUniqueViolation(err, "") {
		return Employee{}, fmt.Errorf("auth: employee email: %w", shared.ErrConflict)
	}
	return updated, err
}

// List returns employees ordered by username.
func (r *PGRepository) List(ctx context.Context) ([]Employee, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+employeeColumns+` FROM employees ORDER BY username`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Employee
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

var _ Repository = (*PGRepository)(nil)

package audit

import (
	"context"
	"strconv"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository reads audit entries.
type Repository interface {
	Window(ctx context.Context, filters TimelineFilters, limit, offset int) ([]Entry, error)
	All(ctx context.Context, filters TimelineFilters) ([]Entry, error)
}

// PGRepository implements Repository with pgx.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs PGRepository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

func buildWhere(filters TimelineFilters) (string, []any) {
	where := ` WHERE 1=1`
	var args []any
	if !filters.From.IsZero() {
		args = append(args, filters.From)
		where += ` AND a.timestamp >= $` + strconv.Itoa(len(args))
	}
	if !filters.To.IsZero() {
		args = append(args, filters.To)
		where += ` AND a.timestamp < $` + strconv.Itoa(len(args))
	}
	if filters.UserID != nil {
		args = append(args, *filters.UserID)
		where += ` AND a.user_id = $` + strconv.Itoa(len(args))
	}
	if filters.Action != "" {
		args = append(args, filters.Action)
		where += ` AND a.action = $` + strconv.Itoa(len(args))
	}
	return where, args
}

const selectEntries = `SELECT a.id, a.user_id, COALESCE(e.username, ''), a.action, a.details, a.timestamp
FROM audit_logs a LEFT JOIN employees e ON e.id = a.user_id`

// Window returns up to limit entries newest first.
func (r *PGRepository) Window(ctx context.Context, filters TimelineFilters, limit, offset int) ([]Entry, error) {
	where, args := buildWhere(filters)
	args = append(args, limit, offset)
	query := selectEntries + where + ` ORDER BY a.timestamp DESC, a.id DESC LIMIT $` + strconv.Itoa(len(args)-1) + ` OFFSET $` + strconv.Itoa(len(args))
	return r.query(ctx, query, args...)
}

// All returns every matching entry newest first.
func (r *PGRepository) All(ctx context.Context, filters TimelineFilters) ([]Entry, error) {
	where, args := buildWhere(filters)
	return r.query(ctx, selectEntries+where+` ORDER BY a.timestamp DESC, a.id DESC`, args...)
}

func (r *PGRepository) query(ctx context.Context, query string, args ...any) ([]Entry, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Entry
	for rows.Next() {
		var e Entry
		var details []byte
		if err := rows.Scan(&e.ID, &e.UserID, &e.Username, &e.Action, &details, &e.Timestamp); err != nil {
			return nil, err
		}
		e.Details = details
		out = append(out, e)
	}
	return out, rows.Err()
}

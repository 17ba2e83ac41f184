package shared

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// AuditLog represents a record stored in audit_logs.
type AuditLog struct {
	UserID  int64
	Action  string
	Details map[string]any
	At      time.Time
}

// AuditLogger writes records into audit_logs.
type AuditLogger struct {
	pool *pgxpool.Pool
}

// NewAuditLogger returns a new AuditLogger.
func NewAuditLogger(pool *pgxpool.Pool) *AuditLogger {
	return &AuditLogger{pool: pool}
}

// Record persists the log entry. Rows are never updated afterwards.
func (l *AuditLogger) Record(ctx context.Context, log AuditLog) error {
	if l == nil {
		return errors.New("audit logger not initialised")
	}
	if log.Action == "" {
		return errors.New("audit log requires action")
	}
	if log.Details == nil {
		log.Details = map[string]any{}
	}
	details, err := json.Marshal(log.Details)
	if err != nil {
		return err
	}
	var userID *int64
	if log.UserID != 0 {
		userID = &log.UserID
	}
	var at *time.Time
	if !log.At.IsZero() {
		at = &log.At
	}
	_, err = l.pool.Exec(ctx, `INSERT INTO audit_logs (user_id, action, details, timestamp) VALUES ($1, $2, $3, COALESCE($4, NOW()))`, userID, log.Action, details, at)
	return err
}

package mpesa

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository is the persistence the payment flow needs.
type Repository interface {
	TokenStore
	GetTransaction(ctx context.Context, id int64) (TransactionRef, error)
	SetPaymentReference(ctx context.Context, id int64, reference string) error
	RecordCallback(ctx context.Context, cb Callback) (bool, error)
}

// PGRepository implements Repository with pgx.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs PGRepository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// LatestToken returns the newest stored token.
func (r *PGRepository) LatestToken(ctx context.Context) (Token, bool, error) {
	var t Token
	err := r.pool.QueryRow(ctx, `SELECT id, access_token, expiration_time FROM payment_tokens ORDER BY expiration_time DESC, id DESC LIMIT 1`).
		Scan(&t.ID, &t.AccessToken, &t.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Token{}, false, nil
	}
	if err != nil {
		return Token{}, false, err
	}
	return t, true, nil
}

// SaveToken appends a token row.
func (r *PGRepository) SaveToken(ctx context.Context, t Token) (Token, error) {
	err := r.pool.QueryRow(ctx, `INSERT INTO payment_tokens (access_token, expiration_time) VALUES ($1, $2) RETURNING id`,
		t.AccessToken, t.ExpiresAt).Scan(&t.ID)
	return t, err
}

// PruneTokens deletes tokens that expired before cutoff.
func (r *PGRepository) PruneTokens(ctx context.Context, before time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM payment_tokens WHERE expiration_time < $1`, before)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *PGRepository) GetTransaction(ctx context.Context, id int64) (TransactionRef, error) {
	var t TransactionRef
	err := r.pool.QueryRow(ctx, `SELECT id, total_amount, payment_reference FROM transactions WHERE id = $1`, id).
		Scan(&t.ID, &t.TotalAmount, &t.PaymentReference)
	if errors.Is(err, pgx.ErrNoRows) {
		return TransactionRef{}, ErrTransactionNotFound
	}
	return t, err
}

// SetPaymentReference marks the transaction as paid by push payment.
func (r *PGRepository) SetPaymentReference(ctx context.Context, id int64, reference string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE transactions SET payment_reference = $2, payment_method = 'mpesa' WHERE id = $1`, id, reference)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrTransactionNotFound
	}
	return nil
}

// RecordCallback stores the callback once per checkout request id and
// reports whether the row was new.
func (r *PGRepository) RecordCallback(ctx context.Context, cb Callback) (bool, error) {
	tag, err := r.pool.Exec(ctx, `INSERT INTO payment_callbacks (checkout_request_id, merchant_request_id, result_code, result_desc, payload)
VALUES ($1, $2, $3, $4, $5) ON CONFLICT (checkout_request_id) DO NOTHING`,
		cb.CheckoutRequestID, cb.MerchantRequestID, cb.ResultCode, cb.ResultDesc, []byte(cb.Payload))
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

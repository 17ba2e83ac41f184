// Package mpesa integrates the Daraja STK push API: access tokens, push
// payment initiation and provider callbacks.
package mpesa

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-pos/internal/shared"
)

// Config carries provider credentials and client tuning.
type Config struct {
	BaseURL         string
	ConsumerKey     string
	ConsumerSecret  string
	ShortCode       string
	PassKey         string
	CallbackBaseURL string
	HTTPTimeout     time.Duration
	RetryAttempts   int
	RetryDelay      time.Duration
	PhoneRegion     string
}

// Configured reports whether credentials are present.
func (c Config) Configured() bool {
	return c.ConsumerKey != "" && c.ConsumerSecret != "" && c.ShortCode != "" && c.PassKey != ""
}

// Token is a cached OAuth access token.
type Token struct {
	ID          int64
	AccessToken string
	ExpiresAt   time.Time
}

// Valid reports whether the token can still be used at now.
func (t Token) Valid(now time.Time) bool {
	return t.AccessToken != "" && now.Before(t.ExpiresAt)
}

// PushInput requests a push payment for a transaction. A zero Amount charges
// the transaction total.
type PushInput struct {
	TransactionID int64
	Phone         string
	Amount        decimal.Decimal
	ActorID       int64
}

// PushResult is the provider's acceptance of a push request.
type PushResult struct {
	CheckoutRequestID string `json:"checkout_request_id"`
	MerchantRequestID string `json:"merchant_request_id"`
	CustomerMessage   string `json:"customer_message"`
	Phone             string `json:"phone"`
	Amount            int64  `json:"amount"`
}

// TransactionRef is the slice of a sale the payment flow needs.
type TransactionRef struct {
	ID               int64
	TotalAmount      decimal.Decimal
	PaymentReference *string
}

// Callback is one recorded provider notification.
type Callback struct {
	CheckoutRequestID string
	MerchantRequestID string
	ResultCode        int
	ResultDesc        string
	Payload           json.RawMessage
}

// CallbackResult tells the caller whether the notification was new.
type CallbackResult struct {
	CheckoutRequestID string `json:"checkout_request_id"`
	ResultCode        int    `json:"result_code"`
	Duplicate         bool   `json:"duplicate"`
}

// Acknowledgement is the body the provider expects back from a callback.
type Acknowledgement struct {
	ResultCode int    `json:"ResultCode"`
	ResultDesc string `json:"ResultDesc"`
}

// Accepted acknowledges a parsed callback.
var Accepted = Acknowledgement{ResultCode: 0, ResultDesc: "Accepted"}

var (
	// ErrPaymentInitiationFailed indicates the provider rejected or never received a push request.
	ErrPaymentInitiationFailed = fmt.Errorf("payment initiation failed: %w", shared.ErrUpstreamUnavailable)
	// ErrTokenUnavailable indicates no access token could be obtained.
	ErrTokenUnavailable = fmt.Errorf("mpesa access token unavailable: %w", shared.ErrUpstreamUnavailable)
	// ErrNotConfigured indicates missing provider credentials.
	ErrNotConfigured = fmt.Errorf("mpesa credentials not configured: %w", shared.ErrUpstreamUnavailable)
	// ErrTransactionNotFound indicates an unknown sale.
	ErrTransactionNotFound = fmt.Errorf("transaction %w", shared.ErrNotFound)
)

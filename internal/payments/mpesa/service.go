package mpesa

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-pos/internal/shared"
)

// RequestObserver counts provider calls.
type RequestObserver interface {
	ObserveMpesa(op, result string)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Pusher submits push requests to the provider.
type Pusher interface {
	NewSTKPushRequest(phone string, amount int64, reference string, at time.Time) STKPushRequest
	STKPush(ctx context.Context, token string, payload STKPushRequest) (STKPushResponse, error)
}

// AccessTokens hands out provider tokens.
type AccessTokens interface {
	AccessToken(ctx context.Context) (Token, error)
}

// Service runs the payment workflows.
type Service struct {
	repo    Repository
	tokens  AccessTokens
	pusher  Pusher
	cfg     Config
	audit   AuditPort
	metrics RequestObserver
	logger  *slog.Logger
	now     func() time.Time
}

// NewService constructs the payment service.
func NewService(repo Repository, tokens AccessTokens, pusher Pusher, cfg Config, audit AuditPort, metrics RequestObserver, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.PhoneRegion == "" {
		cfg.PhoneRegion = shared.DefaultPhoneRegion
	}
	return &Service{repo: repo, tokens: tokens, pusher: pusher, cfg: cfg, audit: audit, metrics: metrics, logger: logger, now: time.Now}
}

// InitiatePushPayment asks the provider to prompt the payer's phone and
// stores the checkout request id on the transaction.
func (s *Service) InitiatePushPayment(ctx context.Context, input PushInput) (PushResult, error) {
	if !s.cfg.Configured() {
		return PushResult{}, ErrNotConfigured
	}
	if input.Amount.IsNegative() {
		return PushResult{}, shared.Invalid("amount", "must be positive")
	}
	phone, err := shared.NormalizePhone(input.Phone, s.cfg.PhoneRegion)
	if err != nil {
		return PushResult{}, err
	}
	txn, err := s.repo.GetTransaction(ctx, input.TransactionID)
	if err != nil {
		return PushResult{}, err
	}
	amount := input.Amount
	if amount.IsZero() {
		amount = txn.TotalAmount
	}
	whole := amount.Ceil()
	if !whole.IsPositive() {
		return PushResult{}, shared.Invalid("amount", "must be positive")
	}

	token, err := s.tokens.AccessToken(ctx)
	if err != nil {
		return PushResult{}, err
	}
	payload := s.pusher.NewSTKPushRequest(phone, whole.IntPart(), "TX"+strconv.FormatInt(txn.ID, 10), s.now())
	resp, err := s.pusher.STKPush(ctx, token.AccessToken, payload)
	if err != nil {
		s.observe("stkpush", "error")
		s.logger.Warn("mpesa stk push", slog.Int64("transaction_id", txn.ID), slog.Any("error", err))
		return PushResult{}, fmt.Errorf("%w: %v", ErrPaymentInitiationFailed, err)
	}
	s.observe("stkpush", "success")
	if resp.CheckoutRequestID == "" {
		return PushResult{}, fmt.Errorf("%w: missing checkout request id", ErrPaymentInitiationFailed)
	}
	if err := s.repo.SetPaymentReference(ctx, txn.ID, resp.CheckoutRequestID); err != nil {
		return PushResult{}, fmt.Errorf("store payment reference: %w", err)
	}
	s.record(ctx, input.ActorID, "payment.initiate", map[string]any{
		"transaction_id":      txn.ID,
		"checkout_request_id": resp.CheckoutRequestID,
		"amount":              whole.IntPart(),
	})
	return PushResult{
		CheckoutRequestID: resp.CheckoutRequestID,
		MerchantRequestID: resp.MerchantRequestID,
		CustomerMessage:   resp.CustomerMessage,
		Phone:             phone,
		Amount:            whole.IntPart(),
	}, nil
}

type callbackEnvelope struct {
	Body struct {
		STKCallback *struct {
			MerchantRequestID string          `json:"MerchantRequestID"`
			CheckoutRequestID string          `json:"CheckoutRequestID"`
			ResultCode        int             `json:"ResultCode"`
			ResultDesc        string          `json:"ResultDesc"`
			CallbackMetadata  json.RawMessage `json:"CallbackMetadata,omitempty"`
		} `json:"stkCallback"`
	} `json:"Body"`
}

// HandleCallback records a provider notification once per checkout request.
// Repeated notifications are reported as duplicates, not errors. The
// transaction itself is left untouched.
func (s *Service) HandleCallback(ctx context.Context, raw []byte) (CallbackResult, error) {
	var env callbackEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return CallbackResult{}, shared.Invalid("body", "malformed callback payload")
	}
	cb := env.Body.STKCallback
	if cb == nil || strings.TrimSpace(cb.CheckoutRequestID) == "" {
		return CallbackResult{}, shared.Invalid("Body.stkCallback.CheckoutRequestID", "is required")
	}
	inserted, err := s.repo.RecordCallback(ctx, Callback{
		CheckoutRequestID: cb.CheckoutRequestID,
		MerchantRequestID: cb.MerchantRequestID,
		ResultCode:        cb.ResultCode,
		ResultDesc:        cb.ResultDesc,
		Payload:           json.RawMessage(raw),
	})
	if err != nil {
		return CallbackResult{}, fmt.Errorf("record callback: %w", err)
	}
	result := "new"
	if !inserted {
		result = "duplicate"
	}
	s.observe("callback", result)
	s.logger.Info("mpesa callback",
		slog.String("checkout_request_id", cb.CheckoutRequestID),
		slog.Int("result_code", cb.ResultCode),
		slog.Bool("duplicate", !inserted))
	return CallbackResult{CheckoutRequestID: cb.CheckoutRequestID, ResultCode: cb.ResultCode, Duplicate: !inserted}, nil
}

// PaymentAck is returned by the generic payment endpoint.
type PaymentAck struct {
	Method  string          `json:"method"`
	Amount  decimal.Decimal `json:"amount"`
	Status  string          `json:"status"`
	Message string          `json:"message"`
}

// AcknowledgePayment validates a tender. For push payments it also checks
// that the provider can be reached.
func (s *Service) AcknowledgePayment(ctx context.Context, method string, amount decimal.Decimal) (PaymentAck, error) {
	method = strings.ToLower(strings.TrimSpace(method))
	if !amount.IsPositive() {
		return PaymentAck{}, shared.Invalid("amount", "must be positive")
	}
	switch method {
	case "cash", "card":
		return PaymentAck{Method: method, Amount: amount, Status: "accepted", Message: "Payment recorded"}, nil
	case "mpesa":
		if !s.cfg.Configured() {
			return PaymentAck{}, ErrNotConfigured
		}
		if _, err := s.tokens.AccessToken(ctx); err != nil {
			return PaymentAck{}, err
		}
		return PaymentAck{Method: method, Amount: amount, Status: "pending", Message: "M-Pesa payment ready to initiate"}, nil
	}
	return PaymentAck{}, shared.Invalid("payment_method", "must be one of cash, mpesa, card")
}

func (s *Service) observe(op, result string) {
	if s.metrics != nil {
		s.metrics.ObserveMpesa(op, result)
	}
}

func (s *Service) record(ctx context.Context, actorID int64, action string, details map[string]any) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{UserID: actorID, Action: action, Details: details, At: s.now()})
	if err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Warn("audit payment", slog.String("action", action), slog.Any("error", err))
	}
}

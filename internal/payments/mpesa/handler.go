package mpesa

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-pos/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-pos/internal/rbac"
	"github.com/odyssey-erp/odyssey-pos/internal/shared"
)

// Handler exposes payment endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	rbac      rbac.Middleware
	validator *validator.Validate
}

// NewHandler constructs the payment handler.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac, validator: httpx.NewValidator()}
}

// MountPublicRoutes registers the provider callback.
func (h *Handler) MountPublicRoutes(r chi.Router) {
	r.Post("/mpesa-callback", h.handleCallback)
}

// MountRoutes registers authenticated payment routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermSalesCreate))
		r.Post("/payments", h.handlePayment)
		r.Post("/payments/mpesa", h.handlePush)
	})
}

type paymentRequest struct {
	PaymentMethod string          `json:"payment_method" validate:"required"`
	Amount        decimal.Decimal `json:"amount"`
}

func (h *Handler) handlePayment(w http.ResponseWriter, r *http.Request) {
	var req paymentRequest
	if err := h.decode(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	ack, err := h.service.AcknowledgePayment(r.Context(), req.PaymentMethod, req.Amount)
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, ack)
}

type pushRequest struct {
	TransactionID int64           `json:"transaction_id" validate:"required,gt=0"`
	Phone         string          `json:"phone" validate:"required"`
	Amount        decimal.Decimal `json:"amount"`
}

func (h *Handler) handlePush(w http.ResponseWriter, r *http.Request) {
	var req pushRequest
	if err := h.decode(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	p, _ := rbac.PrincipalFromContext(r.Context())
	result, err := h.service.InitiatePushPayment(r.Context(), PushInput{
		TransactionID: req.TransactionID,
		Phone:         req.Phone,
		Amount:        req.Amount,
		ActorID:       p.EmployeeID,
	})
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) handleCallback(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		httpx.RespondError(w, shared.Invalid("body", err.Error()))
		return
	}
	if _, err := h.service.HandleCallback(r.Context(), raw); err != nil {
		h.fail(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, Accepted)
}

func (h *Handler) decode(r *http.Request, target any) error {
	if err := httpx.DecodeJSON(r, target); err != nil {
		return err
	}
	return httpx.Validate(h.validator, target)
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	if status := httpx.StatusFor(err); status >= http.StatusInternalServerError {
		h.logger.Error("payments handler", slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}

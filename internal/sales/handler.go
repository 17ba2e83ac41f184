package sales

import (
	"bytes"
	"context"
	"errors"
	"fmt"
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

const idempotencyModule = "sales.checkout"

// IdempotencyPort claims request keys.
type IdempotencyPort interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key, module string) error
}

// Handler exposes sales HTTP endpoints.
type Handler struct {
	logger      *slog.Logger
	service     *Service
	rbac        rbac.Middleware
	validator   *validator.Validate
	idempotency IdempotencyPort
}

// NewHandler creates a sales handler. idem may be nil to disable Idempotency-Key support.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware, idem IdempotencyPort) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac, validator: httpx.NewValidator(), idempotency: idem}
}

// MountRoutes registers sales routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermSalesCreate))
		r.Get("/cart", h.handleViewCart)
		r.Post("/cart/items", h.handleAddToCart)
		r.Delete("/cart/items/{productID}", h.handleRemoveFromCart)
		r.Delete("/cart", h.handleClearCart)
		r.Post("/checkout", h.handleCheckout)
		r.Post("/sales", h.handleCheckout)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermSalesView))
		r.Get("/transactions", h.handleListTransactions)
		r.Get("/transactions/{id}", h.handleGetTransaction)
		r.Get("/receipt/{id}", h.handleReceipt)
	})
}

type lineRequest struct {
	ProductID int64            `json:"product_id" validate:"required,gt=0"`
	Quantity  int              `json:"quantity" validate:"gt=0"`
	Price     *decimal.Decimal `json:"price"`
}

type checkoutRequest struct {
	Items         []lineRequest   `json:"items" validate:"dive"`
	Discount      decimal.Decimal `json:"discount"`
	PaymentMethod string          `json:"payment_method"`
	CustomerID    *int64          `json:"customer_id" validate:"omitempty,gt=0"`
}

func (h *Handler) handleCheckout(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		httpx.RespondError(w, shared.Invalid("body", err.Error()))
		return
	}
	var req checkoutRequest
	if len(bytes.TrimSpace(raw)) > 0 {
		r.Body = io.NopCloser(bytes.NewReader(raw))
		if err := h.decode(r, &req); err != nil {
			httpx.RespondError(w, err)
			return
		}
	}
	method, err := ParsePaymentMethod(req.PaymentMethod)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	p, _ := rbac.PrincipalFromContext(r.Context())
	input := CheckoutInput{
		EmployeeID:    p.EmployeeID,
		CustomerID:    req.CustomerID,
		Discount:      req.Discount,
		PaymentMethod: method,
	}

	key := r.Header.Get("Idempotency-Key")
	if key != "" && h.idempotency != nil {
		if err := h.idempotency.CheckAndInsert(r.Context(), key, idempotencyModule); err != nil {
			if errors.Is(err, shared.ErrIdempotencyConflict) {
				err = fmt.Errorf("%w: %v", shared.ErrConflict, err)
			}
			h.fail(w, err)
			return
		}
	}

	var txn Transaction
	if len(req.Items) == 0 {
		txn, err = h.service.CheckoutCart(r.Context(), p.SessionID, input)
	} else {
		for _, item := range req.Items {
			input.Lines = append(input.Lines, Line{ProductID: item.ProductID, Quantity: item.Quantity, UnitPrice: item.Price})
		}
		txn, err = h.service.Checkout(r.Context(), input)
	}
	if err != nil {
		if key != "" && h.idempotency != nil {
			if derr := h.idempotency.Delete(r.Context(), key, idempotencyModule); derr != nil {
				h.logger.Warn("release idempotency key", slog.Any("error", derr))
			}
		}
		h.fail(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{
		"message":        "Sale completed successfully",
		"transaction_id": txn.ID,
		"total_amount":   txn.TotalAmount,
		"transaction":    txn,
	})
}

type cartItemRequest struct {
	ProductID int64 `json:"product_id" validate:"required,gt=0"`
	Quantity  int   `json:"quantity" validate:"gt=0"`
}

func (h *Handler) handleViewCart(w http.ResponseWriter, r *http.Request) {
	p, _ := rbac.PrincipalFromContext(r.Context())
	cart, err := h.service.ViewCart(r.Context(), p.SessionID)
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, cart)
}

func (h *Handler) handleAddToCart(w http.ResponseWriter, r *http.Request) {
	var req cartItemRequest
	if err := h.decode(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	p, _ := rbac.PrincipalFromContext(r.Context())
	cart, err := h.service.AddToCart(r.Context(), p.SessionID, req.ProductID, req.Quantity)
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, cart)
}

func (h *Handler) handleRemoveFromCart(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathInt64(chi.URLParam(r, "productID"), "productID")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	p, _ := rbac.PrincipalFromContext(r.Context())
	cart, err := h.service.RemoveFromCart(r.Context(), p.SessionID, id)
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, cart)
}

func (h *Handler) handleClearCart(w http.ResponseWriter, r *http.Request) {
	p, _ := rbac.PrincipalFromContext(r.Context())
	if err := h.service.ClearCart(r.Context(), p.SessionID); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	page, err := httpx.QueryInt(r, "page", 1)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	perPage, err := httpx.QueryInt(r, "per_page", shared.DefaultPerPage)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	result, err := h.service.ListTransactions(r.Context(), page, perPage)
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathInt64(chi.URLParam(r, "id"), "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	txn, err := h.service.GetTransaction(r.Context(), id)
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, txn)
}

func (h *Handler) handleReceipt(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathInt64(chi.URLParam(r, "id"), "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	receipt, err := h.service.Receipt(r.Context(), id)
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, receipt)
}

func (h *Handler) decode(r *http.Request, target any) error {
	if err := httpx.DecodeJSON(r, target); err != nil {
		return err
	}
	return httpx.Validate(h.validator, target)
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	if httpx.StatusFor(err) == http.StatusInternalServerError {
		h.logger.Error("sales handler", slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}

package inventory

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/odyssey-pos/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-pos/internal/rbac"
	"github.com/odyssey-erp/odyssey-pos/internal/shared"
)

// Handler wires HTTP endpoints for inventory module.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	rbac      rbac.Middleware
	validator *validator.Validate
}

// NewHandler constructs inventory handler.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac, validator: httpx.NewValidator()}
}

// MountRoutes registers inventory routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.rbac.RequireAny(shared.PermInventoryView)).Get("/inventory", h.handleMovements)
	r.With(h.rbac.RequireAny(shared.PermInventoryRestock)).Post("/products/{id}/restock", h.handleRestock)
}

type restockRequest struct {
	Quantity int    `json:"quantity" validate:"gt=0"`
	Reason   string `json:"reason" validate:"max=255"`
}

func (h *Handler) handleRestock(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathInt64(chi.URLParam(r, "id"), "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req restockRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := httpx.Validate(h.validator, req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	p, _ := rbac.PrincipalFromContext(r.Context())
	evt, err := h.service.Restock(r.Context(), RestockInput{ProductID: id, Quantity: req.Quantity, Reason: req.Reason, ActorID: p.EmployeeID})
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"product_id":     evt.ProductID,
		"stock_quantity": evt.StockQuantity,
		"reorder":        evt.BelowReorderLevel(),
	})
}

func (h *Handler) handleMovements(w http.ResponseWriter, r *http.Request) {
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
	filter := MovementFilter{Page: page, PerPage: perPage}
	if raw := r.URL.Query().Get("product_id"); raw != "" {
		id, err := httpx.PathInt64(raw, "product_id")
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		filter.ProductID = &id
	}
	result, err := h.service.Movements(r.Context(), filter)
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	if httpx.StatusFor(err) == http.StatusInternalServerError {
		h.logger.Error("inventory handler", slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}

package catalog

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-pos/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-pos/internal/rbac"
	"github.com/odyssey-erp/odyssey-pos/internal/shared"
)

// Handler wires HTTP endpoints for the catalog.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	rbac      rbac.Middleware
	validator *validator.Validate
}

// NewHandler constructs catalog handler.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac, validator: httpx.NewValidator()}
}

// MountRoutes registers catalog routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermCatalogView))
		r.Get("/products", h.handleSearch)
		r.Get("/products_search", h.handleSearch)
		r.Get("/products/{id}", h.handleGet)
		r.Get("/categories", h.handleListCategories)
		r.Get("/reorder-alerts", h.handleReorderAlerts)
		r.Get("/inventory/alerts", h.handleLowStock)
		r.Get("/inventory-monitoring", h.handleMonitoring)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermCatalogEdit))
		r.Post("/products", h.handleCreate)
		r.Put("/products/{id}", h.handleUpdate)
		r.Delete("/products/{id}", h.handleDelete)
		r.Post("/categories", h.handleCreateCategory)
		r.Delete("/categories/{id}", h.handleDeleteCategory)
	})
}

type createProductRequest struct {
	Name          string          `json:"name" validate:"required,max=100"`
	SKU           string          `json:"sku" validate:"max=50"`
	Price         decimal.Decimal `json:"price"`
	StockQuantity int             `json:"stock_quantity" validate:"gte=0"`
	MinStockLevel *int            `json:"min_stock_level" validate:"omitempty,gte=0"`
	CategoryID    *int64          `json:"category_id" validate:"omitempty,gt=0"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createProductRequest
	if err := h.decode(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	p, _ := rbac.PrincipalFromContext(r.Context())
	product, err := h.service.CreateProduct(r.Context(), CreateProductInput{
		Name:         req.Name,
		SKU:          req.SKU,
		Price:        req.Price,
		InitialStock: req.StockQuantity,
		MinStock:     req.MinStockLevel,
		CategoryID:   req.CategoryID,
		ActorID:      p.EmployeeID,
	})
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, product)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathInt64(chi.URLParam(r, "id"), "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	product, err := h.service.GetProduct(r.Context(), id)
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, product)
}

type updateProductRequest struct {
	Name          *string          `json:"name" validate:"omitempty,max=100"`
	Price         *decimal.Decimal `json:"price"`
	MinStockLevel *int             `json:"min_stock_level" validate:"omitempty,gte=0"`
	CategoryID    *int64           `json:"category_id" validate:"omitempty,gt=0"`
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathInt64(chi.URLParam(r, "id"), "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req updateProductRequest
	if err := h.decode(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	p, _ := rbac.PrincipalFromContext(r.Context())
	product, err := h.service.UpdateProduct(r.Context(), id, UpdateProductInput{
		Name:       req.Name,
		Price:      req.Price,
		MinStock:   req.MinStockLevel,
		CategoryID: req.CategoryID,
		ActorID:    p.EmployeeID,
	})
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, product)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathInt64(chi.URLParam(r, "id"), "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	p, _ := rbac.PrincipalFromContext(r.Context())
	if err := h.service.DeleteProduct(r.Context(), id, p.EmployeeID); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filters := SearchFilters{Text: q.Get("name")}
	if filters.Text == "" {
		filters.Text = q.Get("q")
	}
	var err error
	if filters.MinPrice, err = parseMoney(q.Get("min_price"), "min_price"); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if filters.MaxPrice, err = parseMoney(q.Get("max_price"), "max_price"); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if raw := q.Get("category_id"); raw != "" {
		id, err := httpx.PathInt64(raw, "category_id")
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		filters.CategoryID = &id
	}
	if filters.Page, err = httpx.QueryInt(r, "page", 1); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if filters.PerPage, err = httpx.QueryInt(r, "per_page", shared.DefaultPerPage); err != nil {
		httpx.RespondError(w, err)
		return
	}
	result, err := h.service.SearchProducts(r.Context(), filters)
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) handleReorderAlerts(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ReorderAlerts(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"products": items})
}

func (h *Handler) handleLowStock(w http.ResponseWriter, r *http.Request) {
	threshold, err := httpx.QueryInt(r, "threshold", 10)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	items, err := h.service.LowStock(r.Context(), threshold)
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"threshold": threshold, "products": items})
}

func (h *Handler) handleMonitoring(w http.ResponseWriter, r *http.Request) {
	m, err := h.service.MonitorInventory(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, m)
}

type categoryRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

func (h *Handler) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := h.decode(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	p, _ := rbac.PrincipalFromContext(r.Context())
	c, err := h.service.CreateCategory(r.Context(), req.Name, p.EmployeeID)
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, c)
}

func (h *Handler) handleListCategories(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListCategories(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"categories": items})
}

func (h *Handler) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathInt64(chi.URLParam(r, "id"), "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	p, _ := rbac.PrincipalFromContext(r.Context())
	if err := h.service.DeleteCategory(r.Context(), id, p.EmployeeID); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) decode(r *http.Request, target any) error {
	if err := httpx.DecodeJSON(r, target); err != nil {
		return err
	}
	return httpx.Validate(h.validator, target)
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	if httpx.StatusFor(err) == http.StatusInternalServerError {
		h.logger.Error("catalog handler", slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}

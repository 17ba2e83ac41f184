package reports

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/odyssey-pos/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-pos/internal/rbac"
	"github.com/odyssey-erp/odyssey-pos/internal/shared"
)

const defaultWindow = 30 * 24 * time.Hour

// Handler exposes reporting endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
	now     func() time.Time
}

// NewHandler constructs the reports handler.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac, now: time.Now}
}

// MountRoutes registers report routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.rbac.RequireAny(shared.PermReportsView)).Get("/reports/sales", h.handleSales)
	r.With(h.rbac.RequireRole(rbac.RoleAdmin)).Get("/admin", h.handleDashboard)
}

func (h *Handler) handleSales(w http.ResponseWriter, r *http.Request) {
	q, err := h.parseQuery(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	report, err := h.service.SalesReport(r.Context(), q)
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

// parseQuery reads start, end and granularity. Dates may be RFC 3339 or
// YYYY-MM-DD; a date-only end covers that whole day.
func (h *Handler) parseQuery(r *http.Request) (SalesQuery, error) {
	values := r.URL.Query()
	g, err := ParseGranularity(values.Get("granularity"))
	if err != nil {
		return SalesQuery{}, err
	}
	end := h.now().UTC()
	if raw := values.Get("end"); raw != "" {
		t, dateOnly, err := parseTime(raw)
		if err != nil {
			return SalesQuery{}, shared.Invalid("end", "must be a date or RFC 3339 timestamp")
		}
		if dateOnly {
			t = t.AddDate(0, 0, 1)
		}
		end = t
	}
	start := end.Add(-defaultWindow)
	if raw := values.Get("start"); raw != "" {
		t, _, err := parseTime(raw)
		if err != nil {
			return SalesQuery{}, shared.Invalid("start", "must be a date or RFC 3339 timestamp")
		}
		start = t
	}
	return SalesQuery{Start: start, End: end, Granularity: g}, nil
}

func parseTime(raw string) (time.Time, bool, error) {
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t, true, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	return t, false, err
}

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.service.Dashboard(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, d)
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	if httpx.StatusFor(err) == http.StatusInternalServerError {
		h.logger.Error("reports handler", slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}

package auth

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/odyssey-pos/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-pos/internal/rbac"
	"github.com/odyssey-erp/odyssey-pos/internal/shared"
)

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	rbac      rbac.Middleware
	validator *validator.Validate
	limiter   func(http.Handler) http.Handler
}

// HandlerOption customises the Handler.
type HandlerOption func(*Handler)

// WithCredentialLimiter throttles login and signup with a shared counter.
func WithCredentialLimiter(counter httprate.LimitCounter, perMinute int) HandlerOption {
	return func(h *Handler) {
		if perMinute <= 0 {
			perMinute = 10
		}
		opts := []httprate.Option{
			httprate.WithKeyFuncs(httprate.KeyByIP, httprate.KeyByEndpoint),
			httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
				httpx.Problem(w, http.StatusTooManyRequests, "Too Many Requests", "too many attempts, try again later")
			}),
		}
		if counter != nil {
			opts = append(opts, httprate.WithLimitCounter(counter))
		}
		h.limiter = httprate.Limit(perMinute, time.Minute, opts...)
	}
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbacMW rbac.Middleware, opts ...HandlerOption) *Handler {
	h := &Handler{
		logger:    logger,
		service:   service,
		rbac:      rbacMW,
		validator: httpx.NewValidator(),
		limiter:   func(next http.Handler) http.Handler { return next },
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// MountPublicRoutes registers routes reachable without a token.
func (h *Handler) MountPublicRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.limiter)
		r.Post("/login", h.handleLogin)
		r.Post("/auth/signup", h.handleSignup)
	})
	r.Post("/token/refresh", h.handleRefresh)
}

// MountRoutes registers routes that require an authenticated principal.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/logout", h.handleLogout)
	r.Put("/users/{id}", h.handleUpdate)
	r.With(h.rbac.RequireAny(shared.PermEmployeesView)).Get("/employees", h.handleList)
	r.With(h.rbac.RequireRole(rbac.RoleAdmin)).Post("/employees", h.handleCreate)
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := h.decode(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	sess, err := h.service.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.logger.Info("employee logged in", slog.Int64("employee_id", sess.Employee.ID), slog.String("role", sess.Employee.Role.String()))
	httpx.JSON(w, http.StatusOK, sess)
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := h.decode(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	sess, err := h.service.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, sess)
}

type logoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	p, ok := rbac.PrincipalFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrUnauthorized)
		return
	}
	var req logoutRequest
	if r.ContentLength > 0 {
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.RespondError(w, err)
			return
		}
	}
	if err := h.service.Logout(r.Context(), p, req.RefreshToken); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type createEmployeeRequest struct {
	Username string `json:"username" validate:"required,min=3,max=20"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Role     string `json:"role" validate:"required"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createEmployeeRequest
	if err := h.decode(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	p, _ := rbac.PrincipalFromContext(r.Context())
	h.create(w, r, req, p.EmployeeID)
}

func (h *Handler) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req createEmployeeRequest
	if err := h.decode(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	role, err := rbac.ParseRole(req.Role)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if role == rbac.RoleAdmin {
		httpx.RespondError(w, shared.Invalid("role", "must be cashier or manager"))
		return
	}
	h.create(w, r, req, 0)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request, req createEmployeeRequest, actorID int64) {
	emp, err := h.service.CreateEmployee(r.Context(), CreateEmployeeInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
		ActorID:  actorID,
	})
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, emp)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	employees, err := h.service.ListEmployees(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	if employees == nil {
		employees = []Employee{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"employees": employees})
}

type updateEmployeeRequest struct {
	Email    *string `json:"email" validate:"omitempty,email"`
	Password *string `json:"password" validate:"omitempty,min=8"`
	Role     *string `json:"role"`
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathInt64(chi.URLParam(r, "id"), "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	p, ok := rbac.PrincipalFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrUnauthorized)
		return
	}
	var req updateEmployeeRequest
	if err := h.decode(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	emp, err := h.service.UpdateEmployee(r.Context(), p, id, UpdateEmployeeInput{
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, emp)
}

func (h *Handler) decode(r *http.Request, target any) error {
	if err := httpx.DecodeJSON(r, target); err != nil {
		return err
	}
	return httpx.Validate(h.validator, target)
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	if httpx.StatusFor(err) == http.StatusInternalServerError {
		h.logger.Error("auth handler", slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}

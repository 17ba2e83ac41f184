package app

import (
	"fmt"
	"net/http"

	"github.com/bsm/redislock"

	"github.com/odyssey-erp/odyssey-pos/internal/audit"
	audithttp "github.com/odyssey-erp/odyssey-pos/internal/audit/http"
	"github.com/odyssey-erp/odyssey-pos/internal/auth"
	"github.com/odyssey-erp/odyssey-pos/internal/catalog"
	"github.com/odyssey-erp/odyssey-pos/internal/customers"
	"github.com/odyssey-erp/odyssey-pos/internal/inventory"
	"github.com/odyssey-erp/odyssey-pos/internal/payments/mpesa"
	"github.com/odyssey-erp/odyssey-pos/internal/platform/cache"
	"github.com/odyssey-erp/odyssey-pos/internal/platform/ratelimit"
	"github.com/odyssey-erp/odyssey-pos/internal/rbac"
	"github.com/odyssey-erp/odyssey-pos/internal/reports"
	"github.com/odyssey-erp/odyssey-pos/internal/sales"
	"github.com/odyssey-erp/odyssey-pos/internal/shared"
	"github.com/odyssey-erp/odyssey-pos/jobs"
)

// APIDeps are the optional collaborators of the HTTP API.
type APIDeps struct {
	// Queue receives low-stock notifications. Nil disables them.
	Queue jobs.Enqueuer
	// Jobs exposes queue health under /jobs.
	Jobs *jobs.Handler
}

// NewAPI builds every service on top of rt and returns the HTTP handler.
func NewAPI(rt *Runtime, deps APIDeps) (http.Handler, error) {
	cfg, logger, pool, client := rt.Config, rt.Logger, rt.Pool, rt.Redis

	auditLogger := shared.NewAuditLogger(pool)
	rbacService := rbac.NewService()
	rbacMiddleware := rbac.Middleware{Service: rbacService, Logger: logger}

	tokens, err := auth.NewTokenIssuer(auth.TokenConfig{
		Secret:     cfg.JWTSecretKey,
		AccessTTL:  cfg.JWTAccessTTL,
		RefreshTTL: cfg.JWTRefreshTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("app: token issuer: %w", err)
	}
	authService := auth.NewService(auth.NewRepository(pool), tokens, auth.NewDenylist(client), auditLogger, auth.ServiceConfig{Logger: logger})
	authHandler := auth.NewHandler(logger, authService, rbacMiddleware,
		auth.WithCredentialLimiter(ratelimit.NewRedisCounter(client, "pos:ratelimit:credentials"), cfg.SignupLimitPerMinute))

	catalogService := catalog.NewService(catalog.NewRepository(pool), auditLogger, logger)

	var listeners []inventory.StockListener
	if deps.Queue != nil {
		listeners = append(listeners, jobs.NewLowStockListener(deps.Queue))
	}
	inventoryService := inventory.NewService(inventory.NewRepository(pool), auditLogger, logger, listeners...)

	reportCache := cache.NewVersioned(client, "reports", cfg.ReportCacheTTL)
	reportsService := reports.NewService(reports.NewRepository(pool), reportCache, logger)

	salesService := sales.NewService(sales.NewRepository(pool), sales.Options{
		Audit:    auditLogger,
		Stock:    inventoryService,
		Metrics:  rt.Metrics,
		Reports:  reportCache,
		Products: catalogService,
		Carts:    sales.NewCartStore(client, cfg.CartTTL),
		Logger:   logger,
	})
	idempotency := shared.NewIdempotencyStore(client, cfg.IdempotencyTTL)

	customersService := customers.NewService(customers.NewRepository(pool), auditLogger, cfg.DefaultPhoneRegion, logger)

	mpesaCfg := cfg.Mpesa()
	mpesaRepo := mpesa.NewRepository(pool)
	mpesaClient := mpesa.NewClient(mpesaCfg)
	tokenSource := mpesa.NewTokenSource(mpesaRepo, mpesaClient, redislock.New(client), mpesaCfg, rt.Metrics, logger)
	paymentsService := mpesa.NewService(mpesaRepo, tokenSource, mpesaClient, mpesaCfg, auditLogger, rt.Metrics, logger)

	auditService := audit.NewService(audit.NewRepository(pool))

	return NewRouter(RouterParams{
		Logger:             logger,
		Config:             cfg,
		Limiter:            ratelimit.NewRedisCounter(client, "pos:ratelimit:global"),
		Health:             rt.Health,
		Authenticate:       auth.RequireBearer(authService, logger),
		RBAC:               rbacMiddleware,
		AuthHandler:        authHandler,
		CatalogHandler:     catalog.NewHandler(logger, catalogService, rbacMiddleware),
		InventoryHandler:   inventory.NewHandler(logger, inventoryService, rbacMiddleware),
		SalesHandler:       sales.NewHandler(logger, salesService, rbacMiddleware, idempotency),
		CustomersHandler:   customers.NewHandler(logger, customersService, rbacMiddleware),
		PaymentsHandler:    mpesa.NewHandler(logger, paymentsService, rbacMiddleware),
		ReportsHandler:     reports.NewHandler(logger, reportsService, rbacMiddleware),
		AuditHandler:       audithttp.NewHandler(logger, auditService, rbacMiddleware),
		JobHandler:         deps.Jobs,
		PermissionsHandler: rbac.NewPermissionsHandler(rbacService),
		Metrics:            rt.Metrics,
	}), nil
}

package sales

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-pos/internal/rbac"
	"github.com/odyssey-erp/odyssey-pos/internal/shared"
)

func newTestRouter(t *testing.T, principal rbac.Principal) (http.Handler, *memoryRepo) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	repo := newMemoryRepo(fixtureProducts()...)
	svc := NewService(repo, Options{Carts: NewCartStore(client, time.Hour), Logger: logger})
	h := NewHandler(logger, svc, rbac.Middleware{Service: rbac.NewService(), Logger: logger}, shared.NewIdempotencyStore(client, time.Hour))

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(rbac.ContextWithPrincipal(req.Context(), principal)))
		})
	})
	h.MountRoutes(r)
	return r, repo
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

var cashier = rbac.Principal{EmployeeID: 3, Username: "till1", Role: rbac.RoleCashier, SessionID: "sess-1"}

func TestCheckoutEndpointMapsErrors(t *testing.T) {
	router, repo := newTestRouter(t, cashier)

	rr := doJSON(t, router, http.MethodPost, "/checkout", map[string]any{
		"items":    []map[string]any{{"product_id": 1, "quantity": 5, "price": "3.99"}, {"product_id": 2, "quantity": 1, "price": "49.99"}},
		"discount": "5.00",
	}, nil)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var body struct {
		TransactionID int64  `json:"transaction_id"`
		TotalAmount   string `json:"total_amount"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	assert.Equal(t, "64.94", body.TotalAmount)

	rr = doJSON(t, router, http.MethodPost, "/sales", map[string]any{
		"items": []map[string]any{{"product_id": 2, "quantity": 10}},
	}, nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = doJSON(t, router, http.MethodPost, "/sales", map[string]any{
		"items": []map[string]any{{"product_id": 77, "quantity": 1}},
	}, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = doJSON(t, router, http.MethodPost, "/checkout", map[string]any{
		"items":          []map[string]any{{"product_id": 1, "quantity": 1}},
		"payment_method": "barter",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = doJSON(t, router, http.MethodPost, "/checkout", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	assert.Len(t, repo.transactions, 1)
}

func TestCheckoutEndpointHonoursIdempotencyKey(t *testing.T) {
	router, repo := newTestRouter(t, cashier)
	payload := map[string]any{"items": []map[string]any{{"product_id": 1, "quantity": 1}}}
	headers := map[string]string{"Idempotency-Key": "abc"}

	rr := doJSON(t, router, http.MethodPost, "/checkout", payload, headers)
	require.Equal(t, http.StatusCreated, rr.Code)
	rr = doJSON(t, router, http.MethodPost, "/checkout", payload, headers)
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Len(t, repo.transactions, 1)
}

func TestCartEndpointsRequireSalesPermission(t *testing.T) {
	router, _ := newTestRouter(t, rbac.Principal{EmployeeID: 1, Role: rbac.Role("guest")})
	rr := doJSON(t, router, http.MethodGet, "/cart", nil, nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestReceiptEndpoint(t *testing.T) {
	router, _ := newTestRouter(t, cashier)
	rr := doJSON(t, router, http.MethodPost, "/checkout", map[string]any{"items": []map[string]any{{"product_id": 1, "quantity": 2}}}, nil)
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = doJSON(t, router, http.MethodGet, "/receipt/1", nil, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var receipt Receipt
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&receipt))
	assert.Equal(t, "KES 7.98", receipt.FormattedTotal)

	rr = doJSON(t, router, http.MethodGet, "/receipt/9", nil, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

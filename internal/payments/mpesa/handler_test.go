package mpesa

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-pos/internal/rbac"
)

func TestCallbackEndpointAcknowledges(t *testing.T) {
	provider := newFakeProvider(t)
	svc, repo := newTestService(t, provider)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewHandler(logger, svc, rbac.Middleware{Service: rbac.NewService(), Logger: logger})
	r := chi.NewRouter()
	h.MountPublicRoutes(r)

	body := `{"Body":{"stkCallback":{"MerchantRequestID":"m-9","CheckoutRequestID":"ws_CO_9","ResultCode":1032,"ResultDesc":"Request cancelled by user"}}}`
	for i := 0; i < 2; i++ {
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/mpesa-callback", strings.NewReader(body)))
		require.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"ResultCode":0,"ResultDesc":"Accepted"}`, rr.Body.String())
	}
	assert.Len(t, repo.callbacks, 1)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/mpesa-callback", strings.NewReader("{")))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

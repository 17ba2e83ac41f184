package rbac

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-pos/internal/shared"
)

func TestParseRoleRejectsUnknown(t *testing.T) {
	role, err := ParseRole(" Manager ")
	require.NoError(t, err)
	assert.Equal(t, RoleManager, role)

	_, err = ParseRole("superuser")
	require.ErrorIs(t, err, shared.ErrValidation)
	_, err = ParseRole("")
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestRoleAtLeast(t *testing.T) {
	assert.True(t, RoleAdmin.AtLeast(RoleManager))
	assert.True(t, RoleManager.AtLeast(RoleManager))
	assert.False(t, RoleCashier.AtLeast(RoleManager))
	assert.False(t, Role("ghost").AtLeast(Role("ghost")))
}

func serve(t *testing.T, mw func(http.Handler) http.Handler, p *Principal) int {
	t.Helper()
	h := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	req := httptest.NewRequest(http.MethodGet, "/reports/sales", nil)
	if p != nil {
		req = req.WithContext(ContextWithPrincipal(req.Context(), *p))
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr.Code
}

func TestMiddlewareGates(t *testing.T) {
	m := Middleware{Service: NewService()}
	cashier := &Principal{EmployeeID: 1, Role: RoleCashier}
	manager := &Principal{EmployeeID: 2, Role: RoleManager}
	admin := &Principal{EmployeeID: 3, Role: RoleAdmin}

	assert.Equal(t, http.StatusUnauthorized, serve(t, m.RequireAny(shared.PermReportsView), nil))
	assert.Equal(t, http.StatusForbidden, serve(t, m.RequireAny(shared.PermReportsView), cashier))
	assert.Equal(t, http.StatusNoContent, serve(t, m.RequireAny(shared.PermReportsView), manager))

	assert.Equal(t, http.StatusForbidden, serve(t, m.RequireRole(RoleAdmin), manager))
	assert.Equal(t, http.StatusNoContent, serve(t, m.RequireRole(RoleAdmin), admin))

	assert.Equal(t, http.StatusForbidden, serve(t, m.RequireAll(shared.PermAuditView, shared.PermSalesView), manager))
	assert.Equal(t, http.StatusNoContent, serve(t, m.RequireAll(shared.PermAuditView, shared.PermSalesView), admin))
}

func TestEffectivePermissionsLayered(t *testing.T) {
	svc := NewService()
	cashier := svc.EffectivePermissions(RoleCashier)
	manager := svc.EffectivePermissions(RoleManager)
	admin := svc.EffectivePermissions(RoleAdmin)

	assert.Contains(t, cashier, shared.PermSalesCreate)
	assert.NotContains(t, cashier, shared.PermCatalogEdit)
	assert.Subset(t, manager, cashier)
	assert.Subset(t, admin, manager)
	assert.Contains(t, admin, shared.PermAuditView)
	assert.Empty(t, svc.EffectivePermissions(Role("ghost")))
}

func TestPrincipalCanActOn(t *testing.T) {
	assert.True(t, Principal{EmployeeID: 4, Role: RoleCashier}.CanActOn(4))
	assert.False(t, Principal{EmployeeID: 4, Role: RoleCashier}.CanActOn(5))
	assert.True(t, Principal{EmployeeID: 1, Role: RoleAdmin}.CanActOn(5))
}

package rbac

import (
	"sort"

	"github.com/odyssey-erp/odyssey-pos/internal/shared"
)

var cashierPermissions = []string{
	shared.PermSalesCreate,
	shared.PermSalesView,
	shared.PermCatalogView,
	shared.PermInventoryView,
	shared.PermCustomersView,
	shared.PermCustomersEdit,
}

var managerPermissions = append(append([]string{}, cashierPermissions...),
	shared.PermCatalogEdit,
	shared.PermInventoryRestock,
	shared.PermCustomersLoyalty,
	shared.PermReportsView,
	shared.PermEmployeesView,
)

// Service resolves role grants. Grants are static so no storage is involved.
type Service struct {
	grants map[Role][]string
}

// NewService constructs a Service with the built-in grants.
func NewService() *Service {
	return &Service{grants: map[Role][]string{
		RoleCashier: cashierPermissions,
		RoleManager: managerPermissions,
		RoleAdmin:   shared.CoreScopes(),
	}}
}

// EffectivePermissions returns the sorted permissions granted to role.
func (s *Service) EffectivePermissions(role Role) []string {
	perms := append([]string(nil), s.grants[role]...)
	sort.Strings(perms)
	return perms
}

package shared

// Core POS permissions.
const (
	PermSalesCreate = "sales.create"
	PermSalesView   = "sales.view"

	PermCatalogView = "catalog.view"
	PermCatalogEdit = "catalog.edit"

	PermInventoryView    = "inventory.view"
	PermInventoryRestock = "inventory.restock"

	PermCustomersView    = "customers.view"
	PermCustomersEdit    = "customers.edit"
	PermCustomersLoyalty = "customers.loyalty"

	PermReportsView = "reports.view"

	PermEmployeesView = "employees.view"
	PermEmployeesEdit = "employees.edit"

	PermAuditView     = "audit.view"
	PermDashboardView = "dashboard.view"
)

// CoreScopes lists all permissions known to the POS.
func CoreScopes() []string {
	return []string{
		PermSalesCreate,
		PermSalesView,
		PermCatalogView,
		PermCatalogEdit,
		PermInventoryView,
		PermInventoryRestock,
		PermCustomersView,
		PermCustomersEdit,
		PermCustomersLoyalty,
		PermReportsView,
		PermEmployeesView,
		PermEmployeesEdit,
		PermAuditView,
		PermDashboardView,
	}
}

package rbac

import (
	"fmt"
	"strings"
	"time"

	"github.com/odyssey-erp/odyssey-pos/internal/shared"
)

// Role is the closed set of employee roles.
type Role string

const (
	RoleCashier Role = "cashier"
	RoleManager Role = "manager"
	RoleAdmin   Role = "admin"
)

// Roles lists every valid role, lowest privilege first.
func Roles() []Role {
	return []Role{RoleCashier, RoleManager, RoleAdmin}
}

// ParseRole converts raw input into a Role. Unknown values are rejected, never defaulted.
func ParseRole(raw string) (Role, error) {
	switch r := Role(strings.ToLower(strings.TrimSpace(raw))); r {
	case RoleCashier, RoleManager, RoleAdmin:
		return r, nil
	}
	return "", fmt.Errorf("%w: unknown role %q", shared.ErrValidation, raw)
}

func (r Role) String() string {
	return string(r)
}

// AtLeast reports whether r is as privileged as min.
func (r Role) AtLeast(min Role) bool {
	return rank(r) >= rank(min) && rank(min) > 0
}

func rank(r Role) int {
	switch r {
	case RoleCashier:
		return 1
	case RoleManager:
		return 2
	case RoleAdmin:
		return 3
	}
	return 0
}

// Principal describes the authenticated actor attached to a request.
type Principal struct {
	EmployeeID int64
	Username   string
	Role       Role
	SessionID  string
	ExpiresAt  time.Time
}

// CanActOn reports whether the principal may modify the employee with id.
func (p Principal) CanActOn(id int64) bool {
	return p.Role == RoleAdmin || p.EmployeeID == id
}

package auth

import (
	"time"

	"github.com/odyssey-erp/odyssey-pos/internal/rbac"
)

// Employee represents a POS operator account.
type Employee struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	Role         rbac.Role `json:"role"`
	PasswordHash string    `json:"-"`
	Salt         string    `json:"-"`
	Verified     bool      `json:"verified"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Session is the token pair handed out on login or refresh.
type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type"`
	ExpiresAt    time.Time `json:"expires_at"`
	SessionID    string    `json:"-"`
	Employee     Employee  `json:"employee"`
}

// CreateEmployeeInput carries the fields required to register an employee.
type CreateEmployeeInput struct {
	Username string
	Email    string
	Password string
	Role     string
	ActorID  int64
}

// UpdateEmployeeInput carries optional changes. Nil fields are left untouched.
type UpdateEmployeeInput struct {
	Email    *string
	Password *string
	Role     *string
}

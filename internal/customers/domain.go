// Package customers keeps the customer register and loyalty balances.
package customers

import (
	"fmt"
	"time"

	"github.com/odyssey-erp/odyssey-pos/internal/shared"
)

// Customer is a registered buyer.
type Customer struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	Phone         string    `json:"phone"`
	LoyaltyPoints int       `json:"loyalty_points"`
	CreatedAt     time.Time `json:"created_at"`
}

// CreateInput carries a new customer.
type CreateInput struct {
	Name    string
	Email   string
	Phone   string
	ActorID int64
}

// ListFilter narrows customer listings.
type ListFilter struct {
	Search  string
	Page    int
	PerPage int
}

var (
	// ErrCustomerNotFound indicates an unknown customer id.
	ErrCustomerNotFound = fmt.Errorf("customer %w", shared.ErrNotFound)
	// ErrEmailTaken indicates a duplicate email.
	ErrEmailTaken = fmt.Errorf("customer email already exists: %w", shared.ErrConflict)
	// ErrNegativeLoyalty guards the non-negative balance.
	ErrNegativeLoyalty = shared.Invalid("points", "balance cannot become negative")
)

package inventory

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/odyssey-erp/odyssey-pos/internal/shared"
)

// TransactionType enumerates supported inventory movements.
type TransactionType string

const (
	// TransactionTypeAdd represents stock entering the shop.
	TransactionTypeAdd TransactionType = "add"
	// TransactionTypeRemove represents stock leaving the shop.
	TransactionTypeRemove TransactionType = "remove"
)

// ParseTransactionType rejects anything outside add/remove.
func ParseTransactionType(raw string) (TransactionType, error) {
	switch t := TransactionType(strings.ToLower(strings.TrimSpace(raw))); t {
	case TransactionTypeAdd, TransactionTypeRemove:
		return t, nil
	}
	return "", fmt.Errorf("%w: unknown transaction type %q", shared.ErrValidation, raw)
}

// Standard movement reasons.
const (
	ReasonSale         = "sale"
	ReasonRestock      = "restock"
	ReasonInitialStock = "initial stock"
)

// Movement is one append-only ledger row. ChangeQuantity is signed:
// positive for add, negative for remove.
type Movement struct {
	ID             int64           `json:"id"`
	ProductID      int64           `json:"product_id"`
	ChangeQuantity int             `json:"change_quantity"`
	Type           TransactionType `json:"transaction_type"`
	Reason         string          `json:"reason"`
	ActorID        int64           `json:"actor_id,omitempty"`
	Timestamp      time.Time       `json:"timestamp"`
}

// NewMovement builds a ledger row whose type matches the sign of delta.
func NewMovement(productID int64, delta int, reason string, actorID int64) (Movement, error) {
	if delta == 0 {
		return Movement{}, ErrInvalidQuantity
	}
	typ := TransactionTypeAdd
	if delta < 0 {
		typ = TransactionTypeRemove
	}
	return Movement{ProductID: productID, ChangeQuantity: delta, Type: typ, Reason: reason, ActorID: actorID}, nil
}

// StockLevel is the locked view of a product's stock inside a unit of work.
type StockLevel struct {
	ProductID     int64
	Name          string
	StockQuantity int
	MinStockLevel int
}

// RestockInput carries a restock request.
type RestockInput struct {
	ProductID int64
	Quantity  int
	Reason    string
	ActorID   int64
}

// MovementFilter narrows ledger listings.
type MovementFilter struct {
	ProductID *int64
	Page      int
	PerPage   int
}

// Discrepancy reports a product whose stock disagrees with its ledger.
type Discrepancy struct {
	ProductID     int64 `json:"product_id"`
	StockQuantity int   `json:"stock_quantity"`
	LedgerTotal   int   `json:"ledger_total"`
}

var (
	// ErrInvalidQuantity indicates zero or negative restock quantities.
	ErrInvalidQuantity = fmt.Errorf("%w: quantity must be positive", shared.ErrValidation)
	// ErrProductNotFound indicates the product does not exist.
	ErrProductNotFound = fmt.Errorf("product %w", shared.ErrNotFound)
	// ErrNegativeStock guards the stock >= 0 invariant.
	ErrNegativeStock = errors.New("inventory: stock would become negative")
)

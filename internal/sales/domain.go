package sales

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-pos/internal/inventory"
	"github.com/odyssey-erp/odyssey-pos/internal/shared"
)

// PaymentMethod is the closed set of tender types.
type PaymentMethod string

const (
	PaymentCash  PaymentMethod = "cash"
	PaymentMpesa PaymentMethod = "mpesa"
	PaymentCard  PaymentMethod = "card"
)

// ParsePaymentMethod defaults empty input to cash and rejects unknown values.
func ParsePaymentMethod(raw string) (PaymentMethod, error) {
	switch m := PaymentMethod(strings.ToLower(strings.TrimSpace(raw))); m {
	case "":
		return PaymentCash, nil
	case PaymentCash, PaymentMpesa, PaymentCard:
		return m, nil
	}
	return "", fmt.Errorf("%w: unknown payment method %q", shared.ErrValidation, raw)
}

// Line is one requested product in a checkout. A nil UnitPrice uses the
// catalog price read under lock.
type Line struct {
	ProductID int64
	Quantity  int
	UnitPrice *decimal.Decimal
}

// CheckoutInput describes a sale to be recorded.
type CheckoutInput struct {
	EmployeeID    int64
	CustomerID    *int64
	Lines         []Line
	Discount      decimal.Decimal
	PaymentMethod PaymentMethod
}

// Transaction is a completed sale.
type Transaction struct {
	ID               int64           `json:"id"`
	EmployeeID       *int64          `json:"employee_id,omitempty"`
	CustomerID       *int64          `json:"customer_id,omitempty"`
	TotalAmount      decimal.Decimal `json:"total_amount"`
	Discount         decimal.Decimal `json:"discount"`
	TransactionDate  time.Time       `json:"transaction_date"`
	PaymentMethod    PaymentMethod   `json:"payment_method"`
	PaymentReference *string         `json:"payment_reference,omitempty"`
	Items            []SaleItem      `json:"items,omitempty"`
}

// SaleItem is one sold line with the unit price charged.
type SaleItem struct {
	ID            int64           `json:"id"`
	TransactionID int64           `json:"transaction_id"`
	ProductID     int64           `json:"product_id"`
	ProductName   string          `json:"product_name,omitempty"`
	Quantity      int             `json:"quantity"`
	Price         decimal.Decimal `json:"price"`
}

// Subtotal returns price × quantity.
func (i SaleItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// ProductSnapshot is the locked product state read during checkout.
type ProductSnapshot struct {
	ID            int64
	Name          string
	Price         decimal.Decimal
	StockQuantity int
	MinStockLevel int
}

// Receipt is the printable view of a transaction.
type Receipt struct {
	TransactionID   int64           `json:"transaction_id"`
	EmployeeID      *int64          `json:"employee_id,omitempty"`
	TransactionDate time.Time       `json:"transaction_date"`
	PaymentMethod   PaymentMethod   `json:"payment_method"`
	Discount        decimal.Decimal `json:"discount"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	FormattedTotal  string          `json:"formatted_total"`
	Items           []SaleItem      `json:"items"`
}

// InsufficientStockError names the first line whose quantity exceeds stock.
type InsufficientStockError struct {
	ProductID int64
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %d: requested %d, available %d", e.ProductID, e.Requested, e.Available)
}

// Unwrap lets errors.Is(err, shared.ErrInsufficientStock) succeed.
func (e *InsufficientStockError) Unwrap() error {
	return shared.ErrInsufficientStock
}

var (
	// ErrEmptyCart indicates a checkout without lines.
	ErrEmptyCart = fmt.Errorf("%w: cart is empty", shared.ErrValidation)
	// ErrProductNotFound indicates a line referencing a missing product.
	ErrProductNotFound = inventory.ErrProductNotFound
	// ErrTransactionNotFound indicates an unknown transaction id.
	ErrTransactionNotFound = fmt.Errorf("transaction %w", shared.ErrNotFound)
)

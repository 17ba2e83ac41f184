package sales

import (
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-pos/internal/shared"
)

// CalculateTotal returns Σ(price × quantity) − discount rounded to cents.
// The discount may not exceed the subtotal.
func CalculateTotal(items []SaleItem, discount decimal.Decimal) (decimal.Decimal, error) {
	if discount.IsNegative() {
		return decimal.Zero, shared.Invalid("discount", "must be non-negative")
	}
	subtotal := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(item.Subtotal())
	}
	if discount.GreaterThan(subtotal) {
		return decimal.Zero, shared.Invalid("discount", "must not exceed the subtotal")
	}
	return subtotal.Sub(discount).Round(2), nil
}

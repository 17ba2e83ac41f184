package sales

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// CurrencyCode prefixes formatted amounts.
const CurrencyCode = "KES"

var receiptPrinter = message.NewPrinter(language.English)

// FormatAmount renders an amount with thousands grouping and two decimals.
func FormatAmount(amount decimal.Decimal) string {
	return CurrencyCode + " " + receiptPrinter.Sprint(number.Decimal(amount.Round(2).InexactFloat64(), number.Scale(2)))
}

// NewReceipt builds the printable view of a transaction.
func NewReceipt(t Transaction) Receipt {
	items := t.Items
	if items == nil {
		items = []SaleItem{}
	}
	return Receipt{
		TransactionID:   t.ID,
		EmployeeID:      t.EmployeeID,
		TransactionDate: t.TransactionDate,
		PaymentMethod:   t.PaymentMethod,
		Discount:        t.Discount,
		TotalAmount:     t.TotalAmount,
		FormattedTotal:  FormatAmount(t.TotalAmount),
		Items:           items,
	}
}

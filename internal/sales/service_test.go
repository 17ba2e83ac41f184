package sales

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-pos/internal/catalog"
	"github.com/odyssey-erp/odyssey-pos/internal/inventory"
	"github.com/odyssey-erp/odyssey-pos/internal/shared"
)

type memoryRepo struct {
	products     map[int64]ProductSnapshot
	transactions []Transaction
	items        []SaleItem
	movements    []inventory.Movement
	failOn       string
}

type memoryTx struct {
	repo         *memoryRepo
	products     map[int64]ProductSnapshot
	transactions []Transaction
	items        []SaleItem
	movements    []inventory.Movement
}

func newMemoryRepo(products ...ProductSnapshot) *memoryRepo {
	repo := &memoryRepo{products: make(map[int64]ProductSnapshot)}
	for _, p := range products {
		repo.products[p.ID] = p
		// Seed the ledger so stock matches the sum of movements.
		repo.movements = append(repo.movements, inventory.Movement{ProductID: p.ID, ChangeQuantity: p.StockQuantity, Type: inventory.TransactionTypeAdd, Reason: inventory.ReasonInitialStock})
	}
	return repo
}

// WithTx stages writes and applies them only when fn succeeds.
func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	tx := &memoryTx{repo: r, products: make(map[int64]ProductSnapshot, len(r.products))}
	for k, v := range r.products {
		tx.products[k] = v
	}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	r.products = tx.products
	r.transactions = append(r.transactions, tx.transactions...)
	r.items = append(r.items, tx.items...)
	r.movements = append(r.movements, tx.movements...)
	return nil
}

func (r *memoryRepo) GetTransaction(ctx context.Context, id int64) (Transaction, error) {
	for _, t := range r.transactions {
		if t.ID == id {
			for _, item := range r.items {
				if item.TransactionID == id {
					t.Items = append(t.Items, item)
				}
			}
			return t, nil
		}
	}
	return Transaction{}, ErrTransactionNotFound
}

func (r *memoryRepo) ListTransactions(ctx context.Context, limit, offset int) ([]Transaction, int, error) {
	var out []Transaction
	for i := len(r.transactions) - 1; i >= 0; i-- {
		out = append(out, r.transactions[i])
	}
	total := len(out)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return out[offset:end], total, nil
}

func (r *memoryRepo) ledgerSum(productID int64) int {
	sum := 0
	for _, m := range r.movements {
		if m.ProductID == productID {
			sum += m.ChangeQuantity
		}
	}
	return sum
}

func (tx *memoryTx) LockProduct(ctx context.Context, productID int64) (ProductSnapshot, error) {
	p, ok := tx.products[productID]
	if !ok {
		return ProductSnapshot{}, ErrProductNotFound
	}
	return p, nil
}

func (tx *memoryTx) DecrementStock(ctx context.Context, productID int64, quantity int) (int, error) {
	if tx.repo.failOn == "decrement" {
		return 0, errors.New("decrement failed")
	}
	p := tx.products[productID]
	if p.StockQuantity < quantity {
		return 0, inventory.ErrNegativeStock
	}
	p.StockQuantity -= quantity
	tx.products[productID] = p
	return p.StockQuantity, nil
}

func (tx *memoryTx) InsertMovement(ctx context.Context, m inventory.Movement) (inventory.Movement, error) {
	m.ID = int64(len(tx.repo.movements) + len(tx.movements) + 1)
	tx.movements = append(tx.movements, m)
	return m, nil
}

func (tx *memoryTx) InsertTransaction(ctx context.Context, t Transaction) (Transaction, error) {
	t.ID = int64(len(tx.repo.transactions) + len(tx.transactions) + 1)
	t.TransactionDate = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	tx.transactions = append(tx.transactions, t)
	return t, nil
}

func (tx *memoryTx) InsertSaleItem(ctx context.Context, item SaleItem) (SaleItem, error) {
	item.ID = int64(len(tx.repo.items) + len(tx.items) + 1)
	tx.items = append(tx.items, item)
	return item, nil
}

type recordingAudit struct {
	logs []shared.AuditLog
}

func (a *recordingAudit) Record(ctx context.Context, log shared.AuditLog) error {
	a.logs = append(a.logs, log)
	return nil
}

type captureStock struct {
	events []inventory.StockChangedEvent
}

func (c *captureStock) Notify(ctx context.Context, events ...inventory.StockChangedEvent) {
	c.events = append(c.events, events...)
}

type countingInvalidator struct{ bumps int }

func (c *countingInvalidator) Bump(ctx context.Context) error {
	c.bumps++
	return nil
}

type recordingMetrics struct{ results []string }

func (m *recordingMetrics) ObserveCheckout(result string, amount float64) {
	m.results = append(m.results, result)
}

func money(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func fixtureProducts() []ProductSnapshot {
	return []ProductSnapshot{
		{ID: 1, Name: "Milk", Price: decimal.RequireFromString("3.99"), StockQuantity: 10, MinStockLevel: 5},
		{ID: 2, Name: "Kettle", Price: decimal.RequireFromString("49.99"), StockQuantity: 3, MinStockLevel: 1},
	}
}

func TestCheckoutComputesTotalAndWritesLedger(t *testing.T) {
	repo := newMemoryRepo(fixtureProducts()...)
	audit := &recordingAudit{}
	stock := &captureStock{}
	reports := &countingInvalidator{}
	metrics := &recordingMetrics{}
	svc := NewService(repo, Options{Audit: audit, Stock: stock, Reports: reports, Metrics: metrics})

	txn, err := svc.Checkout(context.Background(), CheckoutInput{
		EmployeeID: 7,
		Lines: []Line{
			{ProductID: 1, Quantity: 5, UnitPrice: money("3.99")},
			{ProductID: 2, Quantity: 1, UnitPrice: money("49.99")},
		},
		Discount: decimal.RequireFromString("5.00"),
	})
	require.NoError(t, err)
	assert.Equal(t, "64.94", txn.TotalAmount.StringFixed(2))
	assert.Equal(t, PaymentCash, txn.PaymentMethod)
	require.Len(t, txn.Items, 2)

	assert.Equal(t, 5, repo.products[1].StockQuantity)
	assert.Equal(t, 2, repo.products[2].StockQuantity)
	for id, p := range repo.products {
		assert.Equal(t, p.StockQuantity, repo.ledgerSum(id), "ledger for product %d", id)
	}
	removes := 0
	for _, m := range repo.movements {
		if m.Type == inventory.TransactionTypeRemove {
			removes++
			assert.Equal(t, inventory.ReasonSale, m.Reason)
		}
	}
	assert.Equal(t, 2, removes)

	require.Len(t, audit.logs, 1)
	assert.Equal(t, "sale.checkout", audit.logs[0].Action)
	assert.Equal(t, 1, reports.bumps)
	assert.Equal(t, []string{"success"}, metrics.results)
	require.Len(t, stock.events, 2)
	assert.True(t, stock.events[0].BelowReorderLevel())
}

func TestCheckoutInsufficientStockWritesNothing(t *testing.T) {
	repo := newMemoryRepo(fixtureProducts()...)
	metrics := &recordingMetrics{}
	svc := NewService(repo, Options{Metrics: metrics})

	_, err := svc.Checkout(context.Background(), CheckoutInput{
		Lines: []Line{
			{ProductID: 1, Quantity: 1},
			{ProductID: 2, Quantity: 5},
		},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrInsufficientStock)
	var stockErr *InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, int64(2), stockErr.ProductID)

	assert.Empty(t, repo.transactions)
	assert.Empty(t, repo.items)
	assert.Len(t, repo.movements, 2)
	assert.Equal(t, 10, repo.products[1].StockQuantity)
	assert.Equal(t, []string{"insufficient_stock"}, metrics.results)
}

func TestCheckoutCountsRepeatedProductAgainstStock(t *testing.T) {
	repo := newMemoryRepo(fixtureProducts()...)
	svc := NewService(repo, Options{})

	_, err := svc.Checkout(context.Background(), CheckoutInput{
		Lines: []Line{{ProductID: 2, Quantity: 2}, {ProductID: 2, Quantity: 2}},
	})
	assert.ErrorIs(t, err, shared.ErrInsufficientStock)
	assert.Equal(t, 3, repo.products[2].StockQuantity)
}

func TestCheckoutRejectsInvalidInput(t *testing.T) {
	repo := newMemoryRepo(fixtureProducts()...)
	svc := NewService(repo, Options{})
	ctx := context.Background()

	_, err := svc.Checkout(ctx, CheckoutInput{})
	assert.ErrorIs(t, err, ErrEmptyCart)

	_, err = svc.Checkout(ctx, CheckoutInput{Lines: []Line{{ProductID: 1, Quantity: 0}}})
	assert.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.Checkout(ctx, CheckoutInput{Lines: []Line{{ProductID: 1, Quantity: 1, UnitPrice: money("-1")}}})
	assert.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.Checkout(ctx, CheckoutInput{Lines: []Line{{ProductID: 1, Quantity: 1}}, PaymentMethod: "cheque"})
	assert.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.Checkout(ctx, CheckoutInput{Lines: []Line{{ProductID: 1, Quantity: 1}}, Discount: decimal.RequireFromString("10")})
	assert.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.Checkout(ctx, CheckoutInput{Lines: []Line{{ProductID: 99, Quantity: 1}}})
	assert.ErrorIs(t, err, shared.ErrNotFound)

	assert.Empty(t, repo.transactions)
}

func TestCheckoutRollsBackOnWriteFailure(t *testing.T) {
	repo := newMemoryRepo(fixtureProducts()...)
	repo.failOn = "decrement"
	svc := NewService(repo, Options{})

	_, err := svc.Checkout(context.Background(), CheckoutInput{Lines: []Line{{ProductID: 1, Quantity: 1}}})
	require.Error(t, err)
	assert.Empty(t, repo.transactions)
	assert.Equal(t, 10, repo.products[1].StockQuantity)
}

func TestCheckoutUsesCatalogPriceWhenLineHasNone(t *testing.T) {
	repo := newMemoryRepo(fixtureProducts()...)
	svc := NewService(repo, Options{})

	txn, err := svc.Checkout(context.Background(), CheckoutInput{
		Lines:         []Line{{ProductID: 2, Quantity: 2}},
		PaymentMethod: PaymentCard,
	})
	require.NoError(t, err)
	assert.Equal(t, "99.98", txn.TotalAmount.StringFixed(2))
	assert.Equal(t, PaymentCard, txn.PaymentMethod)
}

func TestReceiptFormatsTotal(t *testing.T) {
	repo := newMemoryRepo(fixtureProducts()...)
	svc := NewService(repo, Options{})
	ctx := context.Background()

	txn, err := svc.Checkout(ctx, CheckoutInput{Lines: []Line{{ProductID: 1, Quantity: 2}}})
	require.NoError(t, err)

	receipt, err := svc.Receipt(ctx, txn.ID)
	require.NoError(t, err)
	assert.Equal(t, "KES 7.98", receipt.FormattedTotal)
	require.Len(t, receipt.Items, 1)

	_, err = svc.Receipt(ctx, 404)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestFormatAmountGroupsThousands(t *testing.T) {
	assert.Equal(t, "KES 1,234,567.50", FormatAmount(decimal.RequireFromString("1234567.5")))
	assert.Equal(t, "KES 0.00", FormatAmount(decimal.Zero))
}

func TestListTransactionsPaginates(t *testing.T) {
	repo := newMemoryRepo(fixtureProducts()...)
	svc := NewService(repo, Options{})
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := svc.Checkout(ctx, CheckoutInput{Lines: []Line{{ProductID: 1, Quantity: 1}}})
		require.NoError(t, err)
	}

	page, err := svc.ListTransactions(ctx, 1, 2)
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)
	assert.Equal(t, 3, page.Pagination.Total)
	assert.Equal(t, int64(3), page.Items[0].ID)
}

func TestParsePaymentMethod(t *testing.T) {
	m, err := ParsePaymentMethod("")
	require.NoError(t, err)
	assert.Equal(t, PaymentCash, m)
	m, err = ParsePaymentMethod("MPESA")
	require.NoError(t, err)
	assert.Equal(t, PaymentMpesa, m)
	_, err = ParsePaymentMethod("bitcoin")
	assert.ErrorIs(t, err, shared.ErrValidation)
}

type staticProducts map[int64]catalog.Product

func (s staticProducts) GetProduct(ctx context.Context, id int64) (catalog.Product, error) {
	p, ok := s[id]
	if !ok {
		return catalog.Product{}, inventory.ErrProductNotFound
	}
	return p, nil
}

// Package sales records checkouts, carts and receipts.
package sales

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-pos/internal/catalog"
	"github.com/odyssey-erp/odyssey-pos/internal/inventory"
	"github.com/odyssey-erp/odyssey-pos/internal/shared"
)

// RepositoryPort abstracts persistence for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetTransaction(ctx context.Context, id int64) (Transaction, error)
	ListTransactions(ctx context.Context, limit, offset int) ([]Transaction, int, error)
}

// CartPort stores per-session carts.
type CartPort interface {
	Get(ctx context.Context, sessionID string) (Cart, error)
	Put(ctx context.Context, sessionID string, item CartItem) error
	Remove(ctx context.Context, sessionID string, productID int64) error
	Clear(ctx context.Context, sessionID string) error
}

// ProductLookup reads catalog products for cart snapshots.
type ProductLookup interface {
	GetProduct(ctx context.Context, id int64) (catalog.Product, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// StockNotifier receives committed stock changes.
type StockNotifier interface {
	Notify(ctx context.Context, events ...inventory.StockChangedEvent)
}

// CheckoutObserver records checkout outcomes.
type CheckoutObserver interface {
	ObserveCheckout(result string, amount float64)
}

// CacheInvalidator drops cached reports after new sales.
type CacheInvalidator interface {
	Bump(ctx context.Context) error
}

// Options carries optional collaborators.
type Options struct {
	Audit    AuditPort
	Stock    StockNotifier
	Metrics  CheckoutObserver
	Reports  CacheInvalidator
	Products ProductLookup
	Carts    CartPort
	Logger   *slog.Logger
}

// Service coordinates sales workflows.
type Service struct {
	repo     RepositoryPort
	audit    AuditPort
	stock    StockNotifier
	metrics  CheckoutObserver
	reports  CacheInvalidator
	products ProductLookup
	carts    CartPort
	logger   *slog.Logger
	now      func() time.Time
}

// NewService constructs sales service.
func NewService(repo RepositoryPort, opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:     repo,
		audit:    opts.Audit,
		stock:    opts.Stock,
		metrics:  opts.Metrics,
		reports:  opts.Reports,
		products: opts.Products,
		carts:    opts.Carts,
		logger:   logger,
		now:      time.Now,
	}
}

// Checkout validates every line against locked stock before writing the
// transaction, its items, the ledger rows and the stock decrements in one
// unit of work.
func (s *Service) Checkout(ctx context.Context, input CheckoutInput) (Transaction, error) {
	txn, events, err := s.checkout(ctx, input)
	if err != nil {
		s.observe(checkoutResult(err), 0)
		return Transaction{}, err
	}
	s.observe("success", txn.TotalAmount.InexactFloat64())
	s.afterCommit(ctx, input, txn, events)
	return txn, nil
}

func (s *Service) checkout(ctx context.Context, input CheckoutInput) (Transaction, []inventory.StockChangedEvent, error) {
	if len(input.Lines) == 0 {
		return Transaction{}, nil, ErrEmptyCart
	}
	method := input.PaymentMethod
	if method == "" {
		method = PaymentCash
	}
	if _, err := ParsePaymentMethod(string(method)); err != nil {
		return Transaction{}, nil, err
	}
	if input.Discount.IsNegative() {
		return Transaction{}, nil, shared.Invalid("discount", "must be non-negative")
	}
	for i, line := range input.Lines {
		if line.ProductID <= 0 {
			return Transaction{}, nil, shared.Invalid(fmt.Sprintf("items[%d].product_id", i), "is required")
		}
		if line.Quantity <= 0 {
			return Transaction{}, nil, shared.Invalid(fmt.Sprintf("items[%d].quantity", i), "must be positive")
		}
		if line.UnitPrice != nil && line.UnitPrice.IsNegative() {
			return Transaction{}, nil, shared.Invalid(fmt.Sprintf("items[%d].price", i), "must be non-negative")
		}
	}

	var (
		result Transaction
		events []inventory.StockChangedEvent
	)
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		locked, err := lockInOrder(ctx, tx, input.Lines)
		if err != nil {
			return err
		}
		requested := make(map[int64]int, len(locked))
		items := make([]SaleItem, 0, len(input.Lines))
		for _, line := range input.Lines {
			product := locked[line.ProductID]
			requested[line.ProductID] += line.Quantity
			if requested[line.ProductID] > product.StockQuantity {
				return &InsufficientStockError{ProductID: line.ProductID, Requested: line.Quantity, Available: product.StockQuantity}
			}
			price := product.Price
			if line.UnitPrice != nil {
				price = *line.UnitPrice
			}
			items = append(items, SaleItem{ProductID: line.ProductID, ProductName: product.Name, Quantity: line.Quantity, Price: price})
		}
		total, err := CalculateTotal(items, input.Discount)
		if err != nil {
			return err
		}

		var employeeID *int64
		if input.EmployeeID > 0 {
			id := input.EmployeeID
			employeeID = &id
		}
		latest := make(map[int64]inventory.StockChangedEvent, len(locked))
		txn, err := tx.InsertTransaction(ctx, Transaction{
			EmployeeID:    employeeID,
			CustomerID:    input.CustomerID,
			TotalAmount:   total,
			Discount:      input.Discount.Round(2),
			PaymentMethod: method,
		})
		if err != nil {
			return fmt.Errorf("insert transaction: %w", err)
		}
		for i := range items {
			items[i].TransactionID = txn.ID
			saved, err := tx.InsertSaleItem(ctx, items[i])
			if err != nil {
				return fmt.Errorf("insert sale item: %w", err)
			}
			saved.ProductName = items[i].ProductName
			items[i] = saved
			mv, err := inventory.NewMovement(saved.ProductID, -saved.Quantity, inventory.ReasonSale, input.EmployeeID)
			if err != nil {
				return err
			}
			if _, err := tx.InsertMovement(ctx, mv); err != nil {
				return fmt.Errorf("insert movement: %w", err)
			}
			left, err := tx.DecrementStock(ctx, saved.ProductID, saved.Quantity)
			if err != nil {
				if errors.Is(err, inventory.ErrNegativeStock) {
					return &InsufficientStockError{ProductID: saved.ProductID, Requested: saved.Quantity}
				}
				return fmt.Errorf("decrement stock: %w", err)
			}
			product := locked[saved.ProductID]
			latest[saved.ProductID] = inventory.StockChangedEvent{
				ProductID:     saved.ProductID,
				Name:          product.Name,
				StockQuantity: left,
				MinStockLevel: product.MinStockLevel,
				Reason:        inventory.ReasonSale,
				At:            txn.TransactionDate,
			}
		}
		txn.Items = items
		result = txn
		events = make([]inventory.StockChangedEvent, 0, len(latest))
		for _, id := range sortedKeys(latest) {
			events = append(events, latest[id])
		}
		return nil
	})
	if err != nil {
		return Transaction{}, nil, err
	}
	return result, events, nil
}

func sortedKeys(m map[int64]inventory.StockChangedEvent) []int64 {
	keys := make([]int64, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// lockInOrder locks each distinct product in ascending id order so concurrent
// checkouts over the same products cannot deadlock.
func lockInOrder(ctx context.Context, tx TxRepository, lines []Line) (map[int64]ProductSnapshot, error) {
	ids := make([]int64, 0, len(lines))
	seen := make(map[int64]struct{}, len(lines))
	for _, line := range lines {
		if _, ok := seen[line.ProductID]; ok {
			continue
		}
		seen[line.ProductID] = struct{}{}
		ids = append(ids, line.ProductID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	locked := make(map[int64]ProductSnapshot, len(ids))
	for _, id := range ids {
		p, err := tx.LockProduct(ctx, id)
		if errors.Is(err, ErrProductNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		locked[id] = p
	}
	// Report the first missing product in caller order.
	for _, line := range lines {
		if _, ok := locked[line.ProductID]; !ok {
			return nil, ErrProductNotFound
		}
	}
	return locked, nil
}

func (s *Service) afterCommit(ctx context.Context, input CheckoutInput, txn Transaction, events []inventory.StockChangedEvent) {
	if s.audit != nil {
		err := s.audit.Record(ctx, shared.AuditLog{
			UserID: input.EmployeeID,
			Action: "sale.checkout",
			Details: map[string]any{
				"transaction_id": txn.ID,
				"total":          txn.TotalAmount.StringFixed(2),
				"items":          len(txn.Items),
				"payment_method": txn.PaymentMethod,
			},
			At: s.now(),
		})
		if err != nil {
			s.logger.Warn("audit checkout", slog.Any("error", err))
		}
	}
	if s.reports != nil {
		if err := s.reports.Bump(ctx); err != nil {
			s.logger.Warn("bump report cache", slog.Any("error", err))
		}
	}
	if s.stock != nil && len(events) > 0 {
		s.stock.Notify(ctx, events...)
	}
}

func (s *Service) observe(result string, amount float64) {
	if s.metrics != nil {
		s.metrics.ObserveCheckout(result, amount)
	}
}

func checkoutResult(err error) string {
	switch {
	case errors.Is(err, shared.ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, shared.ErrValidation):
		return "invalid"
	case errors.Is(err, shared.ErrNotFound):
		return "not_found"
	}
	return "error"
}

// Receipt returns the printable view of a transaction.
func (s *Service) Receipt(ctx context.Context, transactionID int64) (Receipt, error) {
	txn, err := s.repo.GetTransaction(ctx, transactionID)
	if err != nil {
		return Receipt{}, err
	}
	return NewReceipt(txn), nil
}

// GetTransaction returns a transaction with its items.
func (s *Service) GetTransaction(ctx context.Context, id int64) (Transaction, error) {
	return s.repo.GetTransaction(ctx, id)
}

// ListTransactions pages through transactions, newest first.
func (s *Service) ListTransactions(ctx context.Context, page, perPage int) (shared.Page[Transaction], error) {
	page, perPage = shared.NormalizePage(page, perPage, shared.DefaultPerPage)
	p := shared.NewPagination(page, perPage, 0)
	items, total, err := s.repo.ListTransactions(ctx, p.PerPage, p.Offset())
	if err != nil {
		return shared.Page[Transaction]{}, err
	}
	if items == nil {
		items = []Transaction{}
	}
	return shared.Page[Transaction]{Items: items, Pagination: shared.NewPagination(page, perPage, total)}, nil
}

// ViewCart returns the session's cart.
func (s *Service) ViewCart(ctx context.Context, sessionID string) (Cart, error) {
	if s.carts == nil {
		return Cart{Items: []CartItem{}, Total: decimal.Zero}, nil
	}
	return s.carts.Get(ctx, sessionID)
}

// AddToCart stores a line with the current catalog price. Quantity replaces
// any existing line for the product.
func (s *Service) AddToCart(ctx context.Context, sessionID string, productID int64, quantity int) (Cart, error) {
	if s.carts == nil || s.products == nil {
		return Cart{}, errors.New("sales: cart not configured")
	}
	if quantity <= 0 {
		return Cart{}, shared.Invalid("quantity", "must be positive")
	}
	product, err := s.products.GetProduct(ctx, productID)
	if err != nil {
		return Cart{}, err
	}
	if quantity > product.StockQuantity {
		return Cart{}, &InsufficientStockError{ProductID: productID, Requested: quantity, Available: product.StockQuantity}
	}
	item := CartItem{ProductID: product.ID, Name: product.Name, Quantity: quantity, UnitPrice: product.Price}
	if err := s.carts.Put(ctx, sessionID, item); err != nil {
		return Cart{}, err
	}
	return s.carts.Get(ctx, sessionID)
}

// RemoveFromCart drops a product line.
func (s *Service) RemoveFromCart(ctx context.Context, sessionID string, productID int64) (Cart, error) {
	if s.carts == nil {
		return Cart{}, errors.New("sales: cart not configured")
	}
	if err := s.carts.Remove(ctx, sessionID, productID); err != nil {
		return Cart{}, err
	}
	return s.carts.Get(ctx, sessionID)
}

// ClearCart empties the session's cart.
func (s *Service) ClearCart(ctx context.Context, sessionID string) error {
	if s.carts == nil {
		return nil
	}
	return s.carts.Clear(ctx, sessionID)
}

// CheckoutCart checks out the stored cart and clears it after commit.
func (s *Service) CheckoutCart(ctx context.Context, sessionID string, input CheckoutInput) (Transaction, error) {
	cart, err := s.ViewCart(ctx, sessionID)
	if err != nil {
		return Transaction{}, err
	}
	input.Lines = cart.Lines()
	txn, err := s.Checkout(ctx, input)
	if err != nil {
		return Transaction{}, err
	}
	if err := s.ClearCart(ctx, sessionID); err != nil {
		s.logger.Warn("clear cart", slog.String("session", sessionID), slog.Any("error", err))
	}
	return txn, nil
}

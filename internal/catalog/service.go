package catalog

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-pos/internal/shared"
)

const skuAttempts = 10

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates catalog operations.
type Service struct {
	repo   Repository
	audit  AuditPort
	logger *slog.Logger
	random io.Reader
}

// NewService builds Service.
func NewService(repo Repository, audit AuditPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, audit: audit, logger: logger}
}

// CreateProduct validates input and inserts the product. Generated SKUs are
// retried on collision; caller supplied SKUs are not.
func (s *Service) CreateProduct(ctx context.Context, input CreateProductInput) (Product, error) {
	name := strings.TrimSpace(input.Name)
	fields := shared.FieldErrors{}
	if name == "" {
		fields["name"] = "is required"
	}
	if input.Price.IsNegative() {
		fields["price"] = "must be non-negative"
	}
	if input.InitialStock < 0 {
		fields["stock_quantity"] = "must be non-negative"
	}
	minStock := DefaultMinStockLevel
	if input.MinStock != nil {
		minStock = *input.MinStock
		if minStock < 0 {
			fields["min_stock_level"] = "must be non-negative"
		}
	}
	if len(fields) > 0 {
		return Product{}, fields
	}
	if err := s.ensureCategory(ctx, input.CategoryID); err != nil {
		return Product{}, err
	}

	product := Product{
		Name:          name,
		SKU:           strings.ToUpper(strings.TrimSpace(input.SKU)),
		Price:         input.Price.Round(2),
		StockQuantity: input.InitialStock,
		MinStockLevel: minStock,
		CategoryID:    input.CategoryID,
	}
	generated := product.SKU == ""
	attempts := 1
	if generated {
		attempts = skuAttempts
	}
	for i := 0; i < attempts; i++ {
		if generated {
			sku, err := GenerateSKU(name, s.random)
			if err != nil {
				return Product{}, err
			}
			product.SKU = sku
		}
		created, err := s.repo.CreateProduct(ctx, product, input.ActorID)
		if err == nil {
			s.record(ctx, input.ActorID, "product.create", map[string]any{"product_id": created.ID, "sku": created.SKU})
			return created, nil
		}
		if !generated || !errors.Is(err, ErrSKUTaken) {
			return Product{}, err
		}
		s.logger.Debug("sku collision, retrying", slog.String("sku", product.SKU))
	}
	return Product{}, ErrSKUExhausted
}

// GetProduct loads a product by id.
func (s *Service) GetProduct(ctx context.Context, id int64) (Product, error) {
	return s.repo.GetProduct(ctx, id)
}

// UpdateProduct changes descriptive fields.
func (s *Service) UpdateProduct(ctx context.Context, id int64, input UpdateProductInput) (Product, error) {
	p, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return Product{}, err
	}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return Product{}, shared.Invalid("name", "is required")
		}
		p.Name = name
	}
	if input.Price != nil {
		if input.Price.IsNegative() {
			return Product{}, shared.Invalid("price", "must be non-negative")
		}
		p.Price = input.Price.Round(2)
	}
	if input.MinStock != nil {
		if *input.MinStock < 0 {
			return Product{}, shared.Invalid("min_stock_level", "must be non-negative")
		}
		p.MinStockLevel = *input.MinStock
	}
	if input.CategoryID != nil {
		if err := s.ensureCategory(ctx, input.CategoryID); err != nil {
			return Product{}, err
		}
		p.CategoryID = input.CategoryID
	}
	updated, err := s.repo.UpdateProduct(ctx, p)
	if err != nil {
		return Product{}, err
	}
	s.record(ctx, input.ActorID, "product.update", map[string]any{"product_id": id})
	return updated, nil
}

// DeleteProduct removes a product that has never been sold.
func (s *Service) DeleteProduct(ctx context.Context, id, actorID int64) error {
	if err := s.repo.DeleteProduct(ctx, id); err != nil {
		return err
	}
	s.record(ctx, actorID, "product.delete", map[string]any{"product_id": id})
	return nil
}

// SearchProducts filters and paginates products.
func (s *Service) SearchProducts(ctx context.Context, filters SearchFilters) (shared.Page[Product], error) {
	if filters.MinPrice != nil && filters.MaxPrice != nil && filters.MinPrice.GreaterThan(*filters.MaxPrice) {
		return shared.Page[Product]{}, shared.Invalid("min_price", "must not exceed max_price")
	}
	filters.Text = strings.TrimSpace(filters.Text)
	page, perPage := shared.NormalizePage(filters.Page, filters.PerPage, shared.DefaultPerPage)
	p := shared.NewPagination(page, perPage, 0)
	items, total, err := s.repo.Search(ctx, filters, p.PerPage, p.Offset())
	if err != nil {
		return shared.Page[Product]{}, err
	}
	if items == nil {
		items = []Product{}
	}
	return shared.Page[Product]{Items: items, Pagination: shared.NewPagination(page, perPage, total)}, nil
}

// ReorderAlerts lists products whose stock is at or below their reorder level.
func (s *Service) ReorderAlerts(ctx context.Context) ([]Product, error) {
	items, err := s.repo.ReorderAlerts(ctx)
	if items == nil {
		items = []Product{}
	}
	return items, err
}

// LowStock lists products with stock strictly below threshold.
func (s *Service) LowStock(ctx context.Context, threshold int) ([]Product, error) {
	if threshold < 0 {
		return nil, shared.Invalid("threshold", "must be non-negative")
	}
	items, err := s.repo.BelowThreshold(ctx, threshold)
	if items == nil {
		items = []Product{}
	}
	return items, err
}

// MonitorInventory summarises reorder pressure across the catalog.
func (s *Service) MonitorInventory(ctx context.Context) (Monitoring, error) {
	total, err := s.repo.CountProducts(ctx)
	if err != nil {
		return Monitoring{}, err
	}
	critical, err := s.ReorderAlerts(ctx)
	if err != nil {
		return Monitoring{}, err
	}
	return Monitoring{TotalProducts: total, CriticalStock: len(critical), CriticalItems: critical}, nil
}

// CreateCategory adds a uniquely named category.
func (s *Service) CreateCategory(ctx context.Context, name string, actorID int64) (Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Category{}, shared.Invalid("name", "is required")
	}
	c, err := s.repo.CreateCategory(ctx, name)
	if err != nil {
		return Category{}, err
	}
	s.record(ctx, actorID, "category.create", map[string]any{"category_id": c.ID})
	return c, nil
}

// ListCategories returns categories by name.
func (s *Service) ListCategories(ctx context.Context) ([]Category, error) {
	items, err := s.repo.ListCategories(ctx)
	if items == nil {
		items = []Category{}
	}
	return items, err
}

// DeleteCategory removes a category together with its products.
func (s *Service) DeleteCategory(ctx context.Context, id, actorID int64) error {
	if err := s.repo.DeleteCategory(ctx, id); err != nil {
		return err
	}
	s.record(ctx, actorID, "category.delete", map[string]any{"category_id": id})
	return nil
}

func (s *Service) ensureCategory(ctx context.Context, id *int64) error {
	if id == nil {
		return nil
	}
	ok, err := s.repo.CategoryExists(ctx, *id)
	if err != nil {
		return err
	}
	if !ok {
		return shared.Invalid("category_id", "does not exist")
	}
	return nil
}

func (s *Service) record(ctx context.Context, actorID int64, action string, details map[string]any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, shared.AuditLog{UserID: actorID, Action: action, Details: details}); err != nil {
		s.logger.Warn("audit record failed", slog.String("action", action), slog.Any("error", err))
	}
}

// parseMoney reads an optional decimal query value.
func parseMoney(raw, field string) (*decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, shared.Invalid(field, "must be a number")
	}
	return &d, nil
}

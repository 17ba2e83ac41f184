// Package catalog owns products and categories.
package catalog

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-pos/internal/shared"
)

// DefaultMinStockLevel applies when a product is created without a reorder level.
const DefaultMinStockLevel = 5

// Category groups products. Deleting one deletes its products.
type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Product is a sellable item.
type Product struct {
	ID            int64           `json:"id"`
	SKU           string          `json:"sku"`
	Name          string          `json:"name"`
	Price         decimal.Decimal `json:"price"`
	StockQuantity int             `json:"stock_quantity"`
	MinStockLevel int             `json:"min_stock_level"`
	CategoryID    *int64          `json:"category_id,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// NeedsReorder reports stock at or below the reorder level.
func (p Product) NeedsReorder() bool {
	return p.StockQuantity <= p.MinStockLevel
}

// CreateProductInput carries a new product. SKU is synthesised when empty.
type CreateProductInput struct {
	Name         string
	SKU          string
	Price        decimal.Decimal
	InitialStock int
	MinStock     *int
	CategoryID   *int64
	ActorID      int64
}

// UpdateProductInput carries optional changes. Stock is only changed by sales and restocks.
type UpdateProductInput struct {
	Name       *string
	Price      *decimal.Decimal
	MinStock   *int
	CategoryID *int64
	ActorID    int64
}

// SearchFilters are combined conjunctively. Nil fields do not filter.
type SearchFilters struct {
	Text       string
	MinPrice   *decimal.Decimal
	MaxPrice   *decimal.Decimal
	CategoryID *int64
	Page       int
	PerPage    int
}

// Monitoring summarises stock health.
type Monitoring struct {
	TotalProducts int       `json:"total_products"`
	CriticalStock int       `json:"critical_stock"`
	CriticalItems []Product `json:"critical_items"`
}

var (
	// ErrSKUTaken indicates a unique violation on the SKU.
	ErrSKUTaken = fmt.Errorf("sku already exists: %w", shared.ErrConflict)
	// ErrCategoryInUse indicates products of the category are referenced by sales.
	ErrCategoryInUse = fmt.Errorf("category products are referenced by sales: %w", shared.ErrConflict)
	// ErrProductInUse indicates the product is referenced by sales.
	ErrProductInUse = fmt.Errorf("product is referenced by sales: %w", shared.ErrConflict)
	// ErrSKUExhausted indicates every generated SKU collided.
	ErrSKUExhausted = errors.New("catalog: could not generate a unique sku")
)

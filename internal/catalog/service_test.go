package catalog

import (
	"bytes"
	"context"
	"sort"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-pos/internal/inventory"
	"github.com/odyssey-erp/odyssey-pos/internal/shared"
)

type memoryRepo struct {
	products   map[int64]Product
	categories map[int64]Category
	nextID     int64
	createCall int
	sold       map[int64]bool
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{products: map[int64]Product{}, categories: map[int64]Category{}}
}

func (r *memoryRepo) CreateProduct(ctx context.Context, p Product, actorID int64) (Product, error) {
	r.createCall++
	for _, existing := range r.products {
		if existing.SKU == p.SKU {
			return Product{}, ErrSKUTaken
		}
	}
	r.nextID++
	p.ID = r.nextID
	r.products[p.ID] = p
	return p, nil
}

func (r *memoryRepo) GetProduct(ctx context.Context, id int64) (Product, error) {
	p, ok := r.products[id]
	if !ok {
		return Product{}, inventory.ErrProductNotFound
	}
	return p, nil
}

func (r *memoryRepo) UpdateProduct(ctx context.Context, p Product) (Product, error) {
	r.products[p.ID] = p
	return p, nil
}

func (r *memoryRepo) DeleteProduct(ctx context.Context, id int64) error {
	if _, ok := r.products[id]; !ok {
		return inventory.ErrProductNotFound
	}
	if r.sold[id] {
		return ErrProductInUse
	}
	delete(r.products, id)
	return nil
}

func (r *memoryRepo) sorted(keep func(Product) bool) []Product {
	var out []Product
	for _, p := range r.products {
		if keep(p) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (r *memoryRepo) Search(ctx context.Context, f SearchFilters, limit, offset int) ([]Product, int, error) {
	matched := r.sorted(func(p Product) bool {
		if f.Text != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(f.Text)) {
			return false
		}
		if f.MinPrice != nil && p.Price.LessThan(*f.MinPrice) {
			return false
		}
		if f.MaxPrice != nil && p.Price.GreaterThan(*f.MaxPrice) {
			return false
		}
		if f.CategoryID != nil && (p.CategoryID == nil || *p.CategoryID != *f.CategoryID) {
			return false
		}
		return true
	})
	total := len(matched)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return matched[offset:end], total, nil
}

func (r *memoryRepo) ReorderAlerts(ctx context.Context) ([]Product, error) {
	return r.sorted(Product.NeedsReorder), nil
}

func (r *memoryRepo) BelowThreshold(ctx context.Context, threshold int) ([]Product, error) {
	return r.sorted(func(p Product) bool { return p.StockQuantity < threshold }), nil
}

func (r *memoryRepo) CountProducts(ctx context.Context) (int, error) {
	return len(r.products), nil
}

func (r *memoryRepo) CategoryExists(ctx context.Context, id int64) (bool, error) {
	_, ok := r.categories[id]
	return ok, nil
}

func (r *memoryRepo) CreateCategory(ctx context.Context, name string) (Category, error) {
	for _, c := range r.categories {
		if c.Name == name {
			return Category{}, shared.ErrConflict
		}
	}
	r.nextID++
	c := Category{ID: r.nextID, Name: name}
	r.categories[c.ID] = c
	return c, nil
}

func (r *memoryRepo) ListCategories(ctx context.Context) ([]Category, error) {
	var out []Category
	for _, c := range r.categories {
		out = append(out, c)
	}
	return out, nil
}

func (r *memoryRepo) DeleteCategory(ctx context.Context, id int64) error {
	if _, ok := r.categories[id]; !ok {
		return shared.ErrNotFound
	}
	for pid, p := range r.products {
		if p.CategoryID != nil && *p.CategoryID == id && r.sold[pid] {
			return ErrCategoryInUse
		}
	}
	delete(r.categories, id)
	for pid, p := range r.products {
		if p.CategoryID != nil && *p.CategoryID == id {
			delete(r.products, pid)
		}
	}
	return nil
}

func price(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func intPtr(v int) *int { return &v }

func TestReorderAlertsAtOrBelowMinimum(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil)
	ctx := context.Background()

	for _, in := range []CreateProductInput{
		{Name: "Apples", SKU: "APP-0001", Price: price("1"), InitialStock: 2, MinStock: intPtr(5)},
		{Name: "Bread", SKU: "BRE-0001", Price: price("1"), InitialStock: 10, MinStock: intPtr(5)},
		{Name: "Cheese", SKU: "CHE-0001", Price: price("1"), InitialStock: 5, MinStock: intPtr(5)},
	} {
		_, err := svc.CreateProduct(ctx, in)
		require.NoError(t, err)
	}

	alerts, err := svc.ReorderAlerts(ctx)
	require.NoError(t, err)
	require.Len(t, alerts, 2)
	assert.Equal(t, "Apples", alerts[0].Name)
	assert.Equal(t, "Cheese", alerts[1].Name)

	m, err := svc.MonitorInventory(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, m.TotalProducts)
	assert.Equal(t, 2, m.CriticalStock)

	low, err := svc.LowStock(ctx, 5)
	require.NoError(t, err)
	require.Len(t, low, 1)
	assert.Equal(t, "Apples", low[0].Name)
}

func TestCreateProductValidation(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil)
	ctx := context.Background()

	_, err := svc.CreateProduct(ctx, CreateProductInput{Name: "Tea", Price: price("-0.01")})
	require.ErrorIs(t, err, shared.ErrValidation)
	_, err = svc.CreateProduct(ctx, CreateProductInput{Name: "Tea", Price: price("1"), InitialStock: -1})
	require.ErrorIs(t, err, shared.ErrValidation)
	_, err = svc.CreateProduct(ctx, CreateProductInput{Name: " ", Price: price("1")})
	require.ErrorIs(t, err, shared.ErrValidation)
	missing := int64(77)
	_, err = svc.CreateProduct(ctx, CreateProductInput{Name: "Tea", Price: price("1"), CategoryID: &missing})
	require.ErrorIs(t, err, shared.ErrValidation)
	assert.Zero(t, repo.createCall)

	p, err := svc.CreateProduct(ctx, CreateProductInput{Name: "Tea", Price: price("2.499")})
	require.NoError(t, err)
	assert.Equal(t, DefaultMinStockLevel, p.MinStockLevel)
	assert.Equal(t, "2.5", p.Price.String())
}

func TestCreateProductRetriesGeneratedSKU(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil)
	svc.random = bytes.NewReader([]byte{0xaa, 0xaa, 0xaa, 0xaa, 0xbb, 0xbb})
	ctx := context.Background()

	first, err := svc.CreateProduct(ctx, CreateProductInput{Name: "Milk", Price: price("1")})
	require.NoError(t, err)
	assert.Equal(t, "MIL-AAAA", first.SKU)

	second, err := svc.CreateProduct(ctx, CreateProductInput{Name: "Milk 2L", Price: price("2")})
	require.NoError(t, err)
	assert.Equal(t, "MIL-BBBB", second.SKU)
	assert.Equal(t, 3, repo.createCall)

	_, err = svc.CreateProduct(ctx, CreateProductInput{Name: "Other", SKU: "mil-aaaa", Price: price("1")})
	require.ErrorIs(t, err, ErrSKUTaken)
	require.ErrorIs(t, err, shared.ErrConflict)
}

func TestSearchProductsFilters(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil)
	ctx := context.Background()

	drinks, err := svc.CreateCategory(ctx, "Drinks", 1)
	require.NoError(t, err)
	_, err = svc.CreateCategory(ctx, "Drinks", 1)
	require.ErrorIs(t, err, shared.ErrConflict)

	for i, in := range []CreateProductInput{
		{Name: "Orange Juice", Price: price("3.50"), CategoryID: &drinks.ID},
		{Name: "Apple Juice", Price: price("2.00"), CategoryID: &drinks.ID},
		{Name: "Juice Box", Price: price("0.99")},
		{Name: "Bread", Price: price("2.50")},
	} {
		in.SKU = "SKU-" + string(rune('A'+i))
		_, err := svc.CreateProduct(ctx, in)
		require.NoError(t, err)
	}

	min, max := price("1"), price("3")
	page, err := svc.SearchProducts(ctx, SearchFilters{Text: "juice", MinPrice: &min, MaxPrice: &max})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Apple Juice", page.Items[0].Name)

	page, err = svc.SearchProducts(ctx, SearchFilters{CategoryID: &drinks.ID, PerPage: 1, Page: 2})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Orange Juice", page.Items[0].Name)
	assert.Equal(t, 2, page.Pagination.Total)
	assert.Equal(t, 2, page.Pagination.TotalPages)

	_, err = svc.SearchProducts(ctx, SearchFilters{MinPrice: &max, MaxPrice: &min})
	require.ErrorIs(t, err, shared.ErrValidation)

	require.NoError(t, svc.DeleteCategory(ctx, drinks.ID, 1))
	page, err = svc.SearchProducts(ctx, SearchFilters{Text: "juice"})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Juice Box", page.Items[0].Name)
}

func TestDeleteCategoryKeepsSoldProducts(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil)
	ctx := context.Background()

	snacks, err := svc.CreateCategory(ctx, "Snacks", 1)
	require.NoError(t, err)
	chips, err := svc.CreateProduct(ctx, CreateProductInput{Name: "Chips", SKU: "CHI-0001", Price: price("1.20"), CategoryID: &snacks.ID})
	require.NoError(t, err)
	repo.sold = map[int64]bool{chips.ID: true}

	err = svc.DeleteCategory(ctx, snacks.ID, 1)
	require.ErrorIs(t, err, ErrCategoryInUse)
	assert.ErrorIs(t, err, shared.ErrConflict)
	assert.ErrorIs(t, svc.DeleteProduct(ctx, chips.ID, 1), ErrProductInUse)

	_, err = svc.GetProduct(ctx, chips.ID)
	require.NoError(t, err)
	cats, err := svc.ListCategories(ctx)
	require.NoError(t, err)
	assert.Len(t, cats, 1)
}

func TestUpdateProduct(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil)
	ctx := context.Background()

	p, err := svc.CreateProduct(ctx, CreateProductInput{Name: "Tea", SKU: "TEA-0001", Price: price("1"), InitialStock: 4})
	require.NoError(t, err)

	newPrice := price("1.75")
	updated, err := svc.UpdateProduct(ctx, p.ID, UpdateProductInput{Price: &newPrice, MinStock: intPtr(1)})
	require.NoError(t, err)
	assert.True(t, updated.Price.Equal(newPrice))
	assert.Equal(t, 4, updated.StockQuantity)
	assert.Equal(t, 1, updated.MinStockLevel)

	negative := price("-1")
	_, err = svc.UpdateProduct(ctx, p.ID, UpdateProductInput{Price: &negative})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.UpdateProduct(ctx, 999, UpdateProductInput{})
	require.ErrorIs(t, err, shared.ErrNotFound)
}

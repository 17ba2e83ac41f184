package sales

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-pos/internal/catalog"
	"github.com/odyssey-erp/odyssey-pos/internal/shared"
)

func newCartStore(t *testing.T) (*CartStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCartStore(client, time.Hour), mr
}

func TestCartStoreReplacesLinesAndExpires(t *testing.T) {
	store, mr := newCartStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "s1", CartItem{ProductID: 2, Name: "Kettle", Quantity: 1, UnitPrice: decimal.RequireFromString("49.99")}))
	require.NoError(t, store.Put(ctx, "s1", CartItem{ProductID: 1, Name: "Milk", Quantity: 2, UnitPrice: decimal.RequireFromString("3.99")}))
	require.NoError(t, store.Put(ctx, "s1", CartItem{ProductID: 1, Name: "Milk", Quantity: 5, UnitPrice: decimal.RequireFromString("3.99")}))

	cart, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, cart.Items, 2)
	assert.Equal(t, int64(1), cart.Items[0].ProductID)
	assert.Equal(t, 5, cart.Items[0].Quantity)
	assert.Equal(t, "69.94", cart.Total.StringFixed(2))
	assert.Equal(t, time.Hour, mr.TTL("cart:s1"))

	require.NoError(t, store.Remove(ctx, "s1", 2))
	cart, err = store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, cart.Items, 1)

	mr.FastForward(2 * time.Hour)
	cart, err = store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
}

func TestCartIsolatedPerSession(t *testing.T) {
	store, _ := newCartStore(t)
	ctx := context.Background()
	require.NoError(t, store.Put(ctx, "a", CartItem{ProductID: 1, Quantity: 1, UnitPrice: decimal.NewFromInt(1)}))

	cart, err := store.Get(ctx, "b")
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
}

func TestCheckoutCartClearsAfterCommit(t *testing.T) {
	store, _ := newCartStore(t)
	repo := newMemoryRepo(fixtureProducts()...)
	products := staticProducts{
		1: {ID: 1, Name: "Milk", Price: decimal.RequireFromString("3.99"), StockQuantity: 10},
		2: {ID: 2, Name: "Kettle", Price: decimal.RequireFromString("49.99"), StockQuantity: 3},
	}
	svc := NewService(repo, Options{Carts: store, Products: products})
	ctx := context.Background()

	_, err := svc.AddToCart(ctx, "sid", 1, 5)
	require.NoError(t, err)
	cart, err := svc.AddToCart(ctx, "sid", 2, 1)
	require.NoError(t, err)
	assert.Equal(t, "69.94", cart.Total.StringFixed(2))

	_, err = svc.AddToCart(ctx, "sid", 2, 4)
	assert.ErrorIs(t, err, shared.ErrInsufficientStock)
	_, err = svc.AddToCart(ctx, "sid", 9, 1)
	assert.ErrorIs(t, err, shared.ErrNotFound)

	txn, err := svc.CheckoutCart(ctx, "sid", CheckoutInput{Discount: decimal.RequireFromString("5")})
	require.NoError(t, err)
	assert.Equal(t, "64.94", txn.TotalAmount.StringFixed(2))

	cart, err = svc.ViewCart(ctx, "sid")
	require.NoError(t, err)
	assert.Empty(t, cart.Items)

	_, err = svc.CheckoutCart(ctx, "sid", CheckoutInput{})
	assert.ErrorIs(t, err, ErrEmptyCart)
}

var _ ProductLookup = staticProducts{}
var _ ProductLookup = (*catalog.Service)(nil)

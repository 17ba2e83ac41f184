package sales

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

// DefaultCartTTL bounds how long an idle cart survives.
const DefaultCartTTL = 24 * time.Hour

// CartItem is one line of a stored cart with its price snapshot.
type CartItem struct {
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// Cart is the set of lines held for one session.
type Cart struct {
	Items []CartItem      `json:"items"`
	Total decimal.Decimal `json:"total"`
}

// Lines converts the cart into checkout lines using the snapshot prices.
func (c Cart) Lines() []Line {
	lines := make([]Line, 0, len(c.Items))
	for _, item := range c.Items {
		price := item.UnitPrice
		lines = append(lines, Line{ProductID: item.ProductID, Quantity: item.Quantity, UnitPrice: &price})
	}
	return lines
}

// CartStore keeps carts in Redis hashes keyed by session id.
type CartStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCartStore constructs a CartStore.
func NewCartStore(client *redis.Client, ttl time.Duration) *CartStore {
	if ttl <= 0 {
		ttl = DefaultCartTTL
	}
	return &CartStore{client: client, ttl: ttl}
}

func cartKey(sessionID string) string {
	return "cart:" + sessionID
}

// Get returns the cart ordered by product id. A missing cart is empty.
func (s *CartStore) Get(ctx context.Context, sessionID string) (Cart, error) {
	raw, err := s.client.HGetAll(ctx, cartKey(sessionID)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return Cart{}, fmt.Errorf("load cart: %w", err)
	}
	cart := Cart{Items: make([]CartItem, 0, len(raw)), Total: decimal.Zero}
	for _, value := range raw {
		var item CartItem
		if err := json.Unmarshal([]byte(value), &item); err != nil {
			return Cart{}, fmt.Errorf("decode cart item: %w", err)
		}
		cart.Items = append(cart.Items, item)
		cart.Total = cart.Total.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	sort.Slice(cart.Items, func(i, j int) bool { return cart.Items[i].ProductID < cart.Items[j].ProductID })
	cart.Total = cart.Total.Round(2)
	return cart, nil
}

// Put adds or replaces a line and refreshes the cart TTL.
func (s *CartStore) Put(ctx context.Context, sessionID string, item CartItem) error {
	payload, err := json.Marshal(item)
	if err != nil {
		return err
	}
	key := cartKey(sessionID)
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key, strconv.FormatInt(item.ProductID, 10), payload)
	pipe.Expire(ctx, key, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store cart item: %w", err)
	}
	return nil
}

// Remove drops a line. Removing an absent line is a no-op.
func (s *CartStore) Remove(ctx context.Context, sessionID string, productID int64) error {
	return s.client.HDel(ctx, cartKey(sessionID), strconv.FormatInt(productID, 10)).Err()
}

// Clear deletes the whole cart.
func (s *CartStore) Clear(ctx context.Context, sessionID string) error {
	return s.client.Del(ctx, cartKey(sessionID)).Err()
}

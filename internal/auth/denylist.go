package auth

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Denylist records revoked session and token ids until they would have expired anyway.
type Denylist struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

// NewDenylist constructs a redis-backed deny-list.
func NewDenylist(client *redis.Client) *Denylist {
	return &Denylist{client: client, prefix: "auth:revoked:", now: time.Now}
}

// Revoke denies id until the given expiry. Already-expired ids are ignored.
func (d *Denylist) Revoke(ctx context.Context, id string, until time.Time) error {
	ttl := until.Sub(d.now())
	if id == "" || ttl <= 0 {
		return nil
	}
	return d.client.Set(ctx, d.prefix+id, "1", ttl).Err()
}

// IsRevoked reports whether any of ids is on the deny-list.
func (d *Denylist) IsRevoked(ctx context.Context, ids ...string) (bool, error) {
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != "" {
			keys = append(keys, d.prefix+id)
		}
	}
	if len(keys) == 0 {
		return false, nil
	}
	n, err := d.client.Exists(ctx, keys...).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

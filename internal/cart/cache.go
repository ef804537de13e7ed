package cart

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache is a read-through mirror of cart state in redis. Postgres stays the
// source of truth; a cache miss or a redis outage only costs a DB round trip.
type Cache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewCache(rdb *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Cache{rdb: rdb, ttl: ttl}
}

func (c *Cache) key(owner Owner) string { return "cart:" + owner.Key() }

func (c *Cache) Get(ctx context.Context, owner Owner) (*Cart, bool) {
	raw, err := c.rdb.Get(ctx, c.key(owner)).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.Printf("[cart] cache get failed: %v", err)
		}
		return nil, false
	}
	var cached Cart
	if err := json.Unmarshal(raw, &cached); err != nil {
		return nil, false
	}
	return &cached, true
}

func (c *Cache) Set(ctx context.Context, owner Owner, cart *Cart) {
	raw, err := json.Marshal(cart)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, c.key(owner), raw, c.ttl).Err(); err != nil {
		log.Printf("[cart] cache set failed: %v", err)
	}
}

func (c *Cache) Invalidate(ctx context.Context, owner Owner) {
	if err := c.rdb.Del(ctx, c.key(owner)).Err(); err != nil {
		log.Printf("[cart] cache invalidate failed: %v", err)
	}
}

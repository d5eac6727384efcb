package redisx

import (
	"context"
	"errors"
	"fmt"
	"github.com/redis/go-redis/v9"
)

// OrderCache stores rendered order JSON. Orders do not change after
// creation, so entries only expire.
type OrderCache struct{ RDB *redis.Client }

func (c *OrderCache) Get(ctx context.Context, orderID string) ([]byte, bool, error) {
	b, err := c.RDB.Get(ctx, fmt.Sprintf(KeyOrder, orderID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

func (c *OrderCache) Set(ctx context.Context, orderID string, body []byte) error {
	return c.RDB.Set(ctx, fmt.Sprintf(KeyOrder, orderID), body, TTLOrderCache).Err()
}

// Dedup claims event ids for consumers.
type Dedup struct{ RDB *redis.Client }

func (d *Dedup) Claim(ctx context.Context, service, id string) (bool, error) {
	return d.RDB.SetNX(ctx, fmt.Sprintf(KeyDedup, service, id), "1", TTLDedup).Result()
}

func (d *Dedup) Release(ctx context.Context, service, id string) error {
	return d.RDB.Del(ctx, fmt.Sprintf(KeyDedup, service, id)).Err()
}

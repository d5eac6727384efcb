package redisx

import (
	"context"
	"errors"
	"fmt"
	"github.com/redis/go-redis/v9"
)

const pending = "pending"

// ErrInFlight means another request holding the same key has not finished.
var ErrInFlight = errors.New("request with this idempotency key is in progress")

// Idempotency remembers which order a client-supplied key produced.
type Idempotency struct{ RDB *redis.Client }

// Reserve claims key for a new request. When the key already resolved to an
// order, that order id is returned with reserved=false.
func (i *Idempotency) Reserve(ctx context.Context, key string) (orderID string, reserved bool, err error) {
	k := fmt.Sprintf(KeyIdemOrderCreate, key)
	ok, err := i.RDB.SetNX(ctx, k, pending, TTLIdempotency).Result()
	if err != nil {
		return "", false, err
	}
	if ok {
		return "", true, nil
	}
	return resolveExisting(i.RDB.Get(ctx, k).Result())
}

// resolveExisting interprets the GET that follows a lost SETNX.
func resolveExisting(v string, err error) (orderID string, reserved bool, _ error) {
	switch {
	case errors.Is(err, redis.Nil):
		// expired between SETNX and GET
		return "", false, ErrInFlight
	case err != nil:
		return "", false, err
	case v == pending:
		return "", false, ErrInFlight
	}
	return v, false, nil
}

func (i *Idempotency) Complete(ctx context.Context, key, orderID string) error {
	return i.RDB.Set(ctx, fmt.Sprintf(KeyIdemOrderCreate, key), orderID, TTLIdempotency).Err()
}

// Release frees a reserved key after a failed attempt so the client can retry.
func (i *Idempotency) Release(ctx context.Context, key string) error {
	return i.RDB.Del(ctx, fmt.Sprintf(KeyIdemOrderCreate, key)).Err()
}

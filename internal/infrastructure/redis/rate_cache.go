package redisstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fxconvert-service/internal/application"
	"fxconvert-service/internal/domain"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

var _ application.RateCache = (*RateCache)(nil)

// RateCache keeps rates as decimal strings under exchange_rate:FROM:TO:DAY keys.
// Expiry is left to Redis.
type RateCache struct {
	Client *redis.Client
}

func NewRateCache(client *redis.Client) *RateCache { return &RateCache{Client: client} }

func (c *RateCache) Get(ctx context.Context, key domain.RateKey) (decimal.Decimal, bool, error) {
	v, err := c.Client.Get(ctx, key.String()).Result()
	if errors.Is(err, redis.Nil) {
		return decimal.Decimal{}, false, nil
	}
	if err != nil {
		return decimal.Decimal{}, false, err
	}
	rate, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Decimal{}, false, fmt.Errorf("rate cache: corrupt value for %s: %w", key, err)
	}
	return rate, true, nil
}

func (c *RateCache) Put(ctx context.Context, key domain.RateKey, rate decimal.Decimal, ttl time.Duration) error {
	return c.Client.Set(ctx, key.String(), rate.String(), ttl).Err()
}

// Connect opens a client and verifies it with PING.
func Connect(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return client, nil
}

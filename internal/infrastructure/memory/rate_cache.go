package memory

import (
	"context"
	"sync"
	"time"

	"fxconvert-service/internal/application"
	"fxconvert-service/internal/domain"

	"github.com/shopspring/decimal"
)

var _ application.RateCache = (*RateCache)(nil)

type rateEntry struct {
	rate      decimal.Decimal
	expiresAt time.Time
}

// RateCache is a process-local rate cache. Entries expire passively on read.
type RateCache struct {
	mu      sync.RWMutex
	entries map[domain.RateKey]rateEntry
	now     func() time.Time
}

func NewRateCache() *RateCache {
	return &RateCache{entries: map[domain.RateKey]rateEntry{}, now: time.Now}
}

func (c *RateCache) Get(_ context.Context, key domain.RateKey) (decimal.Decimal, bool, error) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || !c.now().Before(e.expiresAt) {
		return decimal.Decimal{}, false, nil
	}
	return e.rate, true, nil
}

func (c *RateCache) Put(_ context.Context, key domain.RateKey, rate decimal.Decimal, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = rateEntry{rate: rate, expiresAt: c.now().Add(ttl)}
	return nil
}

// Len counts entries, expired ones included.
func (c *RateCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

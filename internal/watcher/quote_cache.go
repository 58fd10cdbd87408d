package watcher

import (
	"context"
	"sync"
	"time"

	"github.com/rxtech-lab/argo-autotrade/internal/types"
)

// QuoteFetcher loads a fresh quote for a symbol.
type QuoteFetcher func(ctx context.Context, symbol string) (types.Quote, error)

type cacheEntry struct {
	quote     types.Quote
	fetchedAt time.Time
}

// QuoteCache keeps the last quote per symbol for a short TTL.
type QuoteCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]cacheEntry
	now     func() time.Time
}

func NewQuoteCache(ttl time.Duration) *QuoteCache {
	return &QuoteCache{
		mu:      sync.Mutex{},
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
		now:     time.Now,
	}
}

// Get returns the cached quote if it is younger than the TTL.
func (c *QuoteCache) Get(symbol string) (types.Quote, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[symbol]
	if !ok || c.now().Sub(entry.fetchedAt) >= c.ttl {
		return types.Quote{}, false
	}

	return entry.quote, true
}

func (c *QuoteCache) Put(quote types.Quote) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[quote.Symbol] = cacheEntry{quote: quote, fetchedAt: c.now()}
}

// GetOrRefresh returns the cached quote or fetches, stores and returns a new one.
// A failed fetch leaves the cache untouched.
func (c *QuoteCache) GetOrRefresh(ctx context.Context, symbol string, fetch QuoteFetcher) (types.Quote, error) {
	if quote, ok := c.Get(symbol); ok {
		return quote, nil
	}

	quote, err := fetch(ctx, symbol)
	if err != nil {
		return types.Quote{}, err
	}

	if quote.Symbol == "" {
		quote.Symbol = symbol
	}

	c.Put(quote)

	return quote, nil
}

func (c *QuoteCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	clear(c.entries)
}

// Len counts entries, expired ones included.
func (c *QuoteCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}

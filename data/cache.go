package data

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/simplelru"

	"github.com/tidepool-org/blip/glucose"
)

type cacheEntry struct {
	readings []glucose.Reading
	expiry   time.Time
}

// CachingClient keeps recently fetched readings for a short period of time
type CachingClient struct {
	delegate   Client
	expiration time.Duration
	lru        *simplelru.LRU
	mu         sync.Mutex
	now        func() time.Time
}

var _ Client = &CachingClient{}

func NewCachingClient(delegate Client, size int, expiration time.Duration) (*CachingClient, error) {
	lru, err := simplelru.NewLRU(size, nil)
	if err != nil {
		return nil, err
	}

	return &CachingClient{
		delegate:   delegate,
		expiration: expiration,
		lru:        lru,
		now:        time.Now,
	}, nil
}

func (c *CachingClient) ListReadings(ctx context.Context, userId string, start, end time.Time) ([]glucose.Reading, error) {
	key := fmt.Sprintf("%s/%d/%d", userId, start.UnixNano(), end.UnixNano())
	if readings, ok := c.get(key); ok {
		return readings, nil
	}

	readings, err := c.delegate.ListReadings(ctx, userId, start, end)
	if err != nil {
		return nil, err
	}

	c.set(key, readings)
	return slices.Clone(readings), nil
}

// Invalidate drops every cached entry
func (c *CachingClient) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lru.Purge()
}

func (c *CachingClient) get(key string) ([]glucose.Reading, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.lru.Get(key)
	if !ok {
		return nil, false
	}
	entry := e.(cacheEntry)
	if c.now().After(entry.expiry) {
		c.lru.Remove(key)
		return nil, false
	}
	return slices.Clone(entry.readings), true
}

func (c *CachingClient) set(key string, readings []glucose.Reading) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lru.Add(key, cacheEntry{
		readings: slices.Clone(readings),
		expiry:   c.now().Add(c.expiration),
	})
}

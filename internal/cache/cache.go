// Package cache keeps rendered chart images between requests.
package cache

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Stats reports cache effectiveness for the metrics endpoint.
type Stats struct {
	Hits   int64
	Misses int64
	Size   int
}

// ImageCache is an LRU with TTL for rendered images. Keys embed the ledger
// revision, so a mutation makes older entries unreachable and they age out.
type ImageCache struct {
	lru    *expirable.LRU[string, []byte]
	hits   atomic.Int64
	misses atomic.Int64
}

func NewImageCache(size int, ttl time.Duration) *ImageCache {
	if size <= 0 {
		size = 64
	}
	return &ImageCache{lru: expirable.NewLRU[string, []byte](size, nil, ttl)}
}

// Key builds the cache key of one chart rendering.
func Key(chart string, revision uint64, days int, reference string) string {
	return fmt.Sprintf("%s:%d:%d:%s", chart, revision, days, reference)
}

// GetOrRender returns the cached image or renders and stores it. Render
// errors are not cached.
func (c *ImageCache) GetOrRender(key string, render func() ([]byte, error)) ([]byte, error) {
	if img, ok := c.lru.Get(key); ok {
		c.hits.Add(1)
		return img, nil
	}
	c.misses.Add(1)
	img, err := render()
	if err != nil {
		return nil, err
	}
	c.lru.Add(key, img)
	return img, nil
}

func (c *ImageCache) Purge() {
	c.lru.Purge()
}

func (c *ImageCache) Stats() Stats {
	return Stats{
		Hits:   c.hits.Load(),
		Misses: c.misses.Load(),
		Size:   c.lru.Len(),
	}
}

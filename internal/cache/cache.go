package cache

import (
	"strings"
	"sync"
	"time"

	"github.com/JustJay7/court-registry/internal/report"
	"github.com/patrickmn/go-cache"
)

// Cache holds resolved report rows keyed by the queried case numbers.
type Cache interface {
	Get(key string) ([]report.Row, bool)
	Set(key string, rows []report.Row)
	Delete(key string)
	Clear()
	Stats() CacheStats
}

type CacheStats struct {
	Hits       int64     `json:"hits"`
	Misses     int64     `json:"misses"`
	Size       int       `json:"size"`
	LastAccess time.Time `json:"last_access"`
}

type ReportCache struct {
	cache   *cache.Cache
	mu      sync.RWMutex
	stats   CacheStats
	maxSize int
}

func NewCache(maxSize int, ttl time.Duration) Cache {
	return &ReportCache{
		cache:   cache.New(ttl, ttl*2),
		maxSize: maxSize,
	}
}

func (c *ReportCache) Get(key string) ([]report.Row, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stats.LastAccess = time.Now()

	if data, found := c.cache.Get(key); found {
		if rows, ok := data.([]report.Row); ok {
			c.stats.Hits++
			return rows, true
		}
	}

	c.stats.Misses++
	return nil, false
}

func (c *ReportCache) Set(key string, rows []report.Row) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.maxSize > 0 && c.cache.ItemCount() >= c.maxSize {
		c.removeOldest()
	}

	c.cache.Set(key, rows, cache.DefaultExpiration)
}

func (c *ReportCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cache.Delete(key)
}

// Clear drops every entry. Called after each import, since any stored
// report may be stale.
func (c *ReportCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cache.Flush()
	c.stats = CacheStats{}
}

func (c *ReportCache) Stats() CacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	stats := c.stats
	stats.Size = c.cache.ItemCount()
	return stats
}

// removeOldest evicts the entry closest to expiry, which is the one set first.
func (c *ReportCache) removeOldest() {
	items := c.cache.Items()
	if len(items) == 0 {
		return
	}

	var oldestKey string
	var oldestExp int64

	for key, item := range items {
		if oldestKey == "" || item.Expiration < oldestExp {
			oldestKey = key
			oldestExp = item.Expiration
		}
	}

	c.cache.Delete(oldestKey)
}

// GenerateCacheKey builds the key for an already de-duplicated list of case
// numbers. Order matters, since it fixes the row order of the result.
func GenerateCacheKey(caseNumbers []string) string {
	return "report:" + strings.Join(caseNumbers, "\x1f")
}

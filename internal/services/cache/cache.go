package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/aarav0180/aven-backend/internal/models"
	"github.com/sirupsen/logrus"
)

// ResponseCache is a file-persisted response cache with TTL expiry.
// A single mutex guards both the in-memory map and the persist step so
// the on-disk representation never diverges from memory after a
// successful mutation returns.
type ResponseCache struct {
	path string
	ttl  time.Duration

	mu      sync.Mutex
	entries map[string]models.CacheEntry

	logger *logrus.Logger
	now    func() time.Time
}

// New creates a ResponseCache backed by the given file. Unreadable or
// malformed persisted state is treated as an empty cache; the error is
// logged and never fatal.
func New(path string, ttl time.Duration, logger *logrus.Logger) *ResponseCache {
	c := &ResponseCache{
		path:    path,
		ttl:     ttl,
		entries: make(map[string]models.CacheEntry),
		logger:  logger,
		now:     time.Now,
	}
	c.load()
	return c
}

// generateKey derives the cache key from the normalized query and context
// tag. Same inputs always map to the same key across restarts.
func generateKey(query, context string) string {
	combined := normalize(query) + ":" + normalize(context)
	sum := sha256.Sum256([]byte(combined))
	return hex.EncodeToString(sum[:])
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Get returns the cached response for a query, if present and younger
// than the TTL. An expired entry is removed and the store persisted
// before reporting a miss.
func (c *ResponseCache) Get(query, context string) (string, bool) {
	key := generateKey(query, context)

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return "", false
	}

	if c.age(entry) < c.ttl {
		return entry.Response, true
	}

	delete(c.entries, key)
	c.persist()
	return "", false
}

// Set inserts or overwrites the entry for a query and synchronously
// persists the full store. A failed persist is logged; the in-memory
// entry stays valid for the life of the process.
func (c *ResponseCache) Set(query, response, context string) {
	key := generateKey(query, context)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = models.CacheEntry{
		Query:     query,
		Response:  response,
		Context:   context,
		Timestamp: float64(c.now().UnixNano()) / float64(time.Second),
	}
	c.persist()
}

// ClearExpired removes every entry whose age has reached the TTL and
// returns how many were removed. The store is persisted only when
// something was actually removed.
func (c *ResponseCache) ClearExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, entry := range c.entries {
		if c.age(entry) >= c.ttl {
			delete(c.entries, key)
			removed++
		}
	}
	if removed > 0 {
		c.persist()
	}
	return removed
}

// ClearAll empties the cache and persists the empty store.
func (c *ResponseCache) ClearAll() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]models.CacheEntry)
	c.persist()
}

// Stats recomputes active entries by age at call time; it never trusts a
// stale counter.
func (c *ResponseCache) Stats() models.CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	active := 0
	for _, entry := range c.entries {
		if c.age(entry) < c.ttl {
			active++
		}
	}

	var size int64
	if info, err := os.Stat(c.path); err == nil {
		size = info.Size()
	}

	return models.CacheStats{
		TotalEntries:  len(c.entries),
		ActiveEntries: active,
		SizeBytes:     size,
	}
}

func (c *ResponseCache) age(entry models.CacheEntry) time.Duration {
	created := time.Unix(0, int64(entry.Timestamp*float64(time.Second)))
	return c.now().Sub(created)
}

// load reads the persisted store, dropping entries that expired while the
// process was down.
func (c *ResponseCache) load() {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if !os.IsNotExist(err) {
			c.logger.WithError(err).Warn("Failed to read cache file, starting empty")
		}
		return
	}

	var persisted map[string]models.CacheEntry
	if err := json.Unmarshal(data, &persisted); err != nil {
		c.logger.WithError(err).Warn("Malformed cache file, starting empty")
		return
	}

	for key, entry := range persisted {
		if c.age(entry) < c.ttl {
			c.entries[key] = entry
		}
	}
	c.logger.WithFields(logrus.Fields{
		"loaded":  len(c.entries),
		"dropped": len(persisted) - len(c.entries),
	}).Debug("Response cache loaded")
}

// persist writes the full store. Callers must hold c.mu.
func (c *ResponseCache) persist() {
	data, err := json.MarshalIndent(c.entries, "", "  ")
	if err != nil {
		c.logger.WithError(err).Error("Failed to encode cache")
		return
	}
	if err := os.WriteFile(c.path, data, 0644); err != nil {
		c.logger.WithError(err).Error("Failed to persist cache")
	}
}

package resolver

import (
	"sort"
	"sync"
)

// Cache holds resolved keys for the life of the process, keyed by the exact
// KEYID string. There is no eviction.
type Cache struct {
	mu      sync.RWMutex
	records map[string]KeyRecord
}

func NewCache() *Cache {
	return &Cache{records: make(map[string]KeyRecord)}
}

func (c *Cache) Get(keyID string) (KeyRecord, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	rec, ok := c.records[keyID]
	return rec, ok
}

// Put stores rec under rec.KeyID. An existing record is kept.
func (c *Cache) Put(rec KeyRecord) KeyRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.records == nil {
		c.records = make(map[string]KeyRecord)
	}
	if prev, ok := c.records[rec.KeyID]; ok {
		return prev
	}
	c.records[rec.KeyID] = rec
	return rec
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.records)
}

// Snapshot copies every record, sorted by KeyID.
func (c *Cache) Snapshot() []KeyRecord {
	c.mu.RLock()
	out := make([]KeyRecord, 0, len(c.records))
	for _, rec := range c.records {
		out = append(out, rec)
	}
	c.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].KeyID < out[j].KeyID })
	return out
}

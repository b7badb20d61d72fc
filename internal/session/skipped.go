package session

import (
	"cachet/internal/domain"
	"cachet/internal/util/memzero"
)

type skippedID struct {
	pub domain.X25519Public
	n   uint32
}

// SkippedEntry is the serializable form of one cached message key.
type SkippedEntry struct {
	Pub domain.X25519Public `json:"pub"`
	N   uint32              `json:"n"`
	Key domain.SymmetricKey `json:"key"`
}

// SkippedKeys caches message keys derived for messages that have not
// arrived yet, keyed by (ratchet public key, message index). The cache
// is bounded; when full, the oldest-derived entry is evicted and any
// later arrival of that message becomes permanently undeliverable.
type SkippedKeys struct {
	capacity int
	keys     map[skippedID]domain.SymmetricKey
	order    []skippedID // oldest derived first

	// Highest evicted index per ratchet public key, to distinguish an
	// evicted key (beyond skip limit) from a consumed one (replay).
	evicted map[domain.X25519Public]uint32
}

// NewSkippedKeys returns an empty cache holding at most capacity keys.
func NewSkippedKeys(capacity int) *SkippedKeys {
	return &SkippedKeys{
		capacity: capacity,
		keys:     make(map[skippedID]domain.SymmetricKey),
		evicted:  make(map[domain.X25519Public]uint32),
	}
}

// Put inserts a derived key. Re-inserting an existing entry refreshes
// the value without duplicating its eviction slot.
func (c *SkippedKeys) Put(pub domain.X25519Public, n uint32, mk domain.SymmetricKey) {
	id := skippedID{pub: pub, n: n}
	if _, ok := c.keys[id]; ok {
		c.keys[id] = mk
		return
	}
	if len(c.keys) >= c.capacity {
		c.evictOldest()
	}
	c.keys[id] = mk
	c.order = append(c.order, id)
}

// Get peeks at a cached key without consuming it.
func (c *SkippedKeys) Get(pub domain.X25519Public, n uint32) (domain.SymmetricKey, bool) {
	mk, ok := c.keys[skippedID{pub: pub, n: n}]
	return mk, ok
}

// Delete consumes a cached key.
func (c *SkippedKeys) Delete(pub domain.X25519Public, n uint32) {
	id := skippedID{pub: pub, n: n}
	if mk, ok := c.keys[id]; ok {
		memzero.Zero(mk[:])
		delete(c.keys, id)
		c.dropOrder(id)
	}
}

// WasEvicted reports whether the key for (pub, n) was pushed out of the
// cache before being consumed.
func (c *SkippedKeys) WasEvicted(pub domain.X25519Public, n uint32) bool {
	high, ok := c.evicted[pub]
	return ok && n <= high
}

// Len returns the number of cached keys.
func (c *SkippedKeys) Len() int { return len(c.keys) }

// Zeroize wipes all cached key material.
func (c *SkippedKeys) Zeroize() {
	for id, mk := range c.keys {
		memzero.Zero(mk[:])
		delete(c.keys, id)
	}
	c.order = nil
}

func (c *SkippedKeys) evictOldest() {
	if len(c.order) == 0 {
		return
	}
	id := c.order[0]
	c.order = c.order[1:]
	if mk, ok := c.keys[id]; ok {
		memzero.Zero(mk[:])
		delete(c.keys, id)
	}
	if high, ok := c.evicted[id.pub]; !ok || id.n > high {
		c.evicted[id.pub] = id.n
	}
}

func (c *SkippedKeys) dropOrder(id skippedID) {
	for i := range c.order {
		if c.order[i] == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}

func (c *SkippedKeys) export() []SkippedEntry {
	out := make([]SkippedEntry, 0, len(c.order))
	for _, id := range c.order {
		if mk, ok := c.keys[id]; ok {
			out = append(out, SkippedEntry{Pub: id.pub, N: id.n, Key: mk})
		}
	}
	return out
}

func (c *SkippedKeys) restore(entries []SkippedEntry) {
	for _, e := range entries {
		c.Put(e.Pub, e.N, e.Key)
	}
}

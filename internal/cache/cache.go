// Package cache is the bounded, write-through session cache sitting in
// front of the repository: a map keyed by session id plus a round-robin
// ring of ids used by the scheduler to pick tick candidates (spec §4.5).
package cache

import (
	"container/list"
	"sync"

	"github.com/google/uuid"

	"github.com/0xphen/kaskade/internal/session"
)

// DefaultMaxCached and DefaultEvictionScan mirror the spec defaults.
const (
	DefaultMaxCached    = 5_000
	DefaultEvictionScan = 8
)

// Cache is a bounded write-through cache with an RR ring of ids, guarded by
// a single mutex (spec §5: "short-lived mutual exclusion... no I/O").
type Cache struct {
	mu sync.Mutex

	maxCached    int
	evictionScan int

	byID map[uuid.UUID]session.Session
	ring *list.List // doubly linked list of uuid.UUID, front = next to rotate
	elem map[uuid.UUID]*list.Element
}

// New returns an empty Cache bounded at maxCached entries.
func New(maxCached int) *Cache {
	if maxCached <= 0 {
		maxCached = DefaultMaxCached
	}
	return &Cache{
		maxCached:    maxCached,
		evictionScan: DefaultEvictionScan,
		byID:         make(map[uuid.UUID]session.Session),
		ring:         list.New(),
		elem:         make(map[uuid.UUID]*list.Element),
	}
}

// GetCached returns the cached session for id, if present.
func (c *Cache) GetCached(id uuid.UUID) (session.Session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.byID[id]
	return s, ok
}

// RotateCandidate pops the id at the front of the RR ring and pushes it to
// the back, returning it. Returns ok=false if the ring is empty.
func (c *Cache) RotateCandidate() (uuid.UUID, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	front := c.ring.Front()
	if front == nil {
		return uuid.UUID{}, false
	}
	id := front.Value.(uuid.UUID)
	c.ring.MoveToBack(front)
	return id, true
}

// UpsertCache inserts or updates s, evicting a coldest entry first if the
// cache is at capacity and s.ID is new.
func (c *Cache) UpsertCache(s session.Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.upsertLocked(s)
}

func (c *Cache) upsertLocked(s session.Session) {
	if _, exists := c.byID[s.ID]; exists {
		c.byID[s.ID] = s
		return
	}

	if len(c.byID) >= c.maxCached {
		c.evictColdestLocked()
	}

	c.byID[s.ID] = s
	el := c.ring.PushBack(s.ID)
	c.elem[s.ID] = el
}

// evictColdestLocked scans at most evictionScan entries from the front of
// the ring and removes the one with the lowest deficit, breaking ties by
// oldest LastServedMs.
func (c *Cache) evictColdestLocked() {
	var (
		victim   uuid.UUID
		victimEl *list.Element
		found    bool
		bestDef  int64
		bestSeen uint64
	)

	scanned := 0
	for el := c.ring.Front(); el != nil && scanned < c.evictionScan; el = el.Next() {
		id := el.Value.(uuid.UUID)
		s, ok := c.byID[id]
		if !ok {
			scanned++
			continue
		}
		if !found || s.State.Deficit < bestDef || (s.State.Deficit == bestDef && s.State.LastServedMs < bestSeen) {
			victim = id
			victimEl = el
			bestDef = s.State.Deficit
			bestSeen = s.State.LastServedMs
			found = true
		}
		scanned++
	}

	if !found {
		return
	}
	c.ring.Remove(victimEl)
	delete(c.elem, victim)
	delete(c.byID, victim)
}

// Len reports the number of cached sessions.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.byID)
}

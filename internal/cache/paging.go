package cache

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/0xphen/kaskade/internal/session"
)

// DefaultPageSize mirrors the spec default for repository paging.
const DefaultPageSize = 500

// Repository is the subset of the session repository the cache needs to
// page in candidates and fall back on a miss. The full repository
// (internal/store) satisfies this structurally.
type Repository interface {
	FetchPage(limit, offset int) ([]session.Session, error)
	FetchByID(id uuid.UUID) (session.Session, bool, error)
}

// Pager wraps a Cache with the paging offset and page size needed to keep
// the RR ring topped up from the repository.
type Pager struct {
	cache    *Cache
	repo     Repository
	pageSize int

	mu     sync.Mutex
	offset int
}

// NewPager returns a Pager over cache backed by repo, using pageSize (or
// DefaultPageSize if zero or negative).
func NewPager(cache *Cache, repo Repository, pageSize int) *Pager {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Pager{cache: cache, repo: repo, pageSize: pageSize}
}

// EnsureCandidates tops up the RR ring to at least minNeeded entries by
// paging through the repository. When a page comes back empty, the offset
// wraps to zero for a cyclic scan of the eligible set.
func (p *Pager) EnsureCandidates(minNeeded int) error {
	wrapped := false
	for p.cache.Len() < minNeeded {
		p.mu.Lock()
		offset := p.offset
		p.mu.Unlock()

		page, err := p.repo.FetchPage(p.pageSize, offset)
		if err != nil {
			return fmt.Errorf("ensure candidates: fetch page at offset %d: %w", offset, err)
		}

		lenBefore := p.cache.Len()
		for _, s := range page {
			p.cache.UpsertCache(s)
		}

		p.mu.Lock()
		if len(page) == 0 {
			p.offset = 0
		} else {
			p.offset += len(page)
		}
		p.mu.Unlock()

		if len(page) == 0 {
			if wrapped {
				break // already made one full pass with nothing new; eligible set exhausted
			}
			wrapped = true
			continue
		}
		if p.cache.Len() == lenBefore {
			break // a full page only refreshed entries already cached: nothing left to gain
		}
	}
	return nil
}

// LoadByID is a cache-miss fallback that reads through the repository,
// caching the result on a hit.
func (p *Pager) LoadByID(id uuid.UUID) (session.Session, bool, error) {
	if s, ok := p.cache.GetCached(id); ok {
		return s, true, nil
	}
	s, ok, err := p.repo.FetchByID(id)
	if err != nil {
		return session.Session{}, false, fmt.Errorf("load by id %s: %w", id, err)
	}
	if !ok {
		return session.Session{}, false, nil
	}
	p.cache.UpsertCache(s)
	return s, true, nil
}

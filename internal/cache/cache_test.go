package cache

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xphen/kaskade/internal/session"
)

func newSession(deficit int64, lastServed uint64) session.Session {
	return session.Session{
		ID:    uuid.New(),
		State: session.State{Deficit: deficit, LastServedMs: lastServed},
	}
}

func TestUpsertAndGetCached(t *testing.T) {
	c := New(10)
	s := newSession(0, 0)
	c.UpsertCache(s)
	got, ok := c.GetCached(s.ID)
	require.True(t, ok)
	assert.Equal(t, s.ID, got.ID)
}

func TestRotateCandidateCyclesToBack(t *testing.T) {
	c := New(10)
	a, b := newSession(0, 0), newSession(0, 0)
	c.UpsertCache(a)
	c.UpsertCache(b)

	first, ok := c.RotateCandidate()
	require.True(t, ok)
	assert.Equal(t, a.ID, first)

	second, ok := c.RotateCandidate()
	require.True(t, ok)
	assert.Equal(t, b.ID, second)

	third, ok := c.RotateCandidate()
	require.True(t, ok)
	assert.Equal(t, a.ID, third) // a cycled back to the front after being pushed to the back
}

func TestRotateCandidateEmptyRing(t *testing.T) {
	c := New(10)
	_, ok := c.RotateCandidate()
	assert.False(t, ok)
}

func TestEvictionPicksLowestDeficit(t *testing.T) {
	c := New(2)
	c.evictionScan = 8
	low := newSession(5, 100)
	high := newSession(50, 100)
	c.UpsertCache(low)
	c.UpsertCache(high)

	newcomer := newSession(20, 100)
	c.UpsertCache(newcomer)

	assert.Equal(t, 2, c.Len())
	_, stillThere := c.GetCached(low.ID)
	assert.False(t, stillThere, "lowest-deficit entry should have been evicted")
	_, highStillThere := c.GetCached(high.ID)
	assert.True(t, highStillThere)
}

func TestEvictionBreaksTiesByOldestLastServed(t *testing.T) {
	c := New(2)
	older := newSession(10, 10)
	newer := newSession(10, 200)
	c.UpsertCache(older)
	c.UpsertCache(newer)

	c.UpsertCache(newSession(10, 500))

	_, olderStillThere := c.GetCached(older.ID)
	assert.False(t, olderStillThere)
}

package session

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func newTestSession() Session {
	return Session{
		ID:     uuid.New(),
		PairID: "TON/USDT",
		Active: true,
		Intent: Intent{MaxSpreadBps: 10, MaxTrendDropBps: 10, MaxSlippageBps: 10, PreferredChunkBid: 100, MaxBidPerTick: 500},
		State:  State{RemainingBid: 1000, RemainingChunks: 10},
	}
}

func TestAvailableSaturatesToZero(t *testing.T) {
	s := newTestSession()
	s.State.InFlightBid = 1200
	s.State.InFlightChunks = 20
	assert.Equal(t, int64(0), s.AvailableBid())
	assert.Equal(t, int64(0), s.AvailableChunks())
}

func TestAvailableNormalCase(t *testing.T) {
	s := newTestSession()
	s.State.InFlightBid = 300
	s.State.InFlightChunks = 3
	assert.Equal(t, int64(700), s.AvailableBid())
	assert.Equal(t, int64(7), s.AvailableChunks())
}

func TestEligibleRespectsAllGuards(t *testing.T) {
	s := newTestSession()
	assert.True(t, s.Eligible(0))

	s.State.HasPendingBatch = true
	assert.False(t, s.Eligible(0))
	s.State.HasPendingBatch = false

	s.State.CooldownUntilMs = 5000
	assert.False(t, s.Eligible(1000))
	assert.True(t, s.Eligible(5000))

	s.Active = false
	assert.False(t, s.Eligible(5000))
}

func TestSatisfiesGate(t *testing.T) {
	s := newTestSession()
	assert.True(t, s.SatisfiesGate(5, 5, 5))
	assert.True(t, s.SatisfiesGate(10, 10, 10))
	assert.False(t, s.SatisfiesGate(11, 0, 0))
	assert.False(t, s.SatisfiesGate(0, 11, 0))
	assert.False(t, s.SatisfiesGate(0, 0, 11))
}

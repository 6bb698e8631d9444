// Package reputation keeps an append-only points ledger per agent.
package reputation

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/opspawn/hedera-apex-marketplace/internal/clock"
)

// ErrInvalidAgent is returned when an award names no agent.
var ErrInvalidAgent = errors.New("reputation: agent id required")

// Entry is one award in the ledger. Points may be negative.
type Entry struct {
	ID        string    `json:"id"`
	AgentID   string    `json:"agent_id"`
	Points    int       `json:"points"`
	Reason    string    `json:"reason"`
	From      string    `json:"from,omitempty"`
	AwardedAt time.Time `json:"awarded_at"`
}

// Ledger is an in-memory, append-only reputation ledger.
type Ledger struct {
	mu      sync.RWMutex
	clock   clock.Clock
	entries map[string][]Entry
	totals  map[string]int
}

// NewLedger creates an empty ledger. A nil clock uses wall time.
func NewLedger(c clock.Clock) *Ledger {
	if c == nil {
		c = clock.Real()
	}
	return &Ledger{
		clock:   c,
		entries: make(map[string][]Entry),
		totals:  make(map[string]int),
	}
}

// AwardPoints appends an entry and returns it.
func (l *Ledger) AwardPoints(agentID string, points int, reason, from string) (Entry, error) {
	if agentID == "" {
		return Entry{}, fmt.Errorf("award %d points: %w", points, ErrInvalidAgent)
	}
	e := Entry{
		ID:        uuid.NewString(),
		AgentID:   agentID,
		Points:    points,
		Reason:    reason,
		From:      from,
		AwardedAt: l.clock.Now(),
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries[agentID] = append(l.entries[agentID], e)
	l.totals[agentID] += points
	return e, nil
}

// GetTotalPoints returns the running total for agentID; unknown agents
// have zero.
func (l *Ledger) GetTotalPoints(agentID string) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.totals[agentID]
}

// History returns a copy of the agent's entries in award order.
func (l *Ledger) History(agentID string) []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Entry, len(l.entries[agentID]))
	copy(out, l.entries[agentID])
	return out
}

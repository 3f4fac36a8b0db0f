package tool

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultConfirmationTTL bounds how long an issued confirmation token
// stays redeemable.
const DefaultConfirmationTTL = 5 * time.Minute

// pendingConfirmation is a single-use token bound to one tool.
type pendingConfirmation struct {
	toolID    string
	expiresAt time.Time
}

// Confirmations issues and redeems single-use confirmation tokens for
// tools that require explicit approval before running.
type Confirmations struct {
	mu      sync.Mutex
	ttl     time.Duration
	pending map[string]pendingConfirmation
}

// NewConfirmations creates a token broker. A non-positive ttl falls
// back to DefaultConfirmationTTL.
func NewConfirmations(ttl time.Duration) *Confirmations {
	if ttl <= 0 {
		ttl = DefaultConfirmationTTL
	}
	return &Confirmations{
		ttl:     ttl,
		pending: make(map[string]pendingConfirmation),
	}
}

// Request issues a token the caller can attach to a repeat invocation
// of the same tool.
func (c *Confirmations) Request(toolID string) (string, time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.sweepLocked()

	token := uuid.New().String()
	expiresAt := time.Now().Add(c.ttl)
	c.pending[token] = pendingConfirmation{toolID: toolID, expiresAt: expiresAt}
	return token, expiresAt
}

// Redeem consumes a token. It succeeds at most once, and only for the
// tool the token was issued for. A mismatched tool leaves the token
// pending for its intended use.
func (c *Confirmations) Redeem(token, toolID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.pending[token]
	if !ok {
		return false
	}
	if time.Now().After(p.expiresAt) {
		delete(c.pending, token)
		return false
	}
	if p.toolID != toolID {
		return false
	}
	delete(c.pending, token)
	return true
}

// Pending returns the number of unexpired, unredeemed tokens.
func (c *Confirmations) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.sweepLocked()
	return len(c.pending)
}

func (c *Confirmations) sweepLocked() {
	now := time.Now()
	for token, p := range c.pending {
		if now.After(p.expiresAt) {
			delete(c.pending, token)
		}
	}
}

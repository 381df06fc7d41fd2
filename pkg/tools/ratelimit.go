package tools

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
)

// Rate-limit rejections. All are business-logic outcomes, not failures of
// the gateway itself.
var (
	ErrCooldown       = errors.New("tool called too soon after previous operation")
	ErrTurnCap        = errors.New("operation limit reached for this turn")
	ErrDestructiveCap = errors.New("destructive operation limit reached for this turn")
)

// RateLimitScope selects how counters are keyed.
type RateLimitScope string

const (
	// ScopeConversation keys counters per conversation so concurrent
	// conversations cannot starve each other.
	ScopeConversation RateLimitScope = "conversation"
	// ScopeGlobal uses a single shared counter across all conversations.
	ScopeGlobal RateLimitScope = "global"
)

// RateLimits holds the per-turn budget.
type RateLimits struct {
	Cooldown              time.Duration
	MaxPerTurn            int
	MaxDestructivePerTurn int
	Scope                 RateLimitScope
}

func DefaultRateLimits() RateLimits {
	return RateLimits{
		Cooldown:              time.Second,
		MaxPerTurn:            10,
		MaxDestructivePerTurn: 3,
		Scope:                 ScopeConversation,
	}
}

type turnCounters struct {
	lastOpAt    time.Time
	total       int
	destructive int
}

// Idle conversations drop their rate-limit state after an hour so the
// cache does not grow with every conversation the process ever saw.
const counterTTL = time.Hour

// RateLimiter enforces the cooldown, per-turn cap, and destructive cap, in
// that order. Rejected calls never advance any counter.
type RateLimiter struct {
	mu       sync.Mutex
	limits   RateLimits
	counters *cache.Cache
	now      func() time.Time
}

func NewRateLimiter(limits RateLimits) *RateLimiter {
	if limits.MaxPerTurn == 0 {
		limits = DefaultRateLimits()
	}
	return &RateLimiter{
		limits:   limits,
		counters: cache.New(counterTTL, 10*time.Minute),
		now:      time.Now,
	}
}

func (r *RateLimiter) key(conversationID string) string {
	if r.limits.Scope == ScopeGlobal {
		return "global"
	}
	return conversationID
}

// Check admits or rejects one tool call. On admission the counters advance;
// on rejection nothing changes.
func (r *RateLimiter) Check(conversationID string, kind Kind) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := r.key(conversationID)
	var c *turnCounters
	if x, ok := r.counters.Get(key); ok {
		c = x.(*turnCounters)
	} else {
		c = &turnCounters{}
	}

	now := r.now()
	if !c.lastOpAt.IsZero() && now.Sub(c.lastOpAt) < r.limits.Cooldown {
		return fmt.Errorf("%w (cooldown %v)", ErrCooldown, r.limits.Cooldown)
	}
	if c.total >= r.limits.MaxPerTurn {
		return fmt.Errorf("%w (max %d)", ErrTurnCap, r.limits.MaxPerTurn)
	}
	if kind.IsDestructive() && c.destructive >= r.limits.MaxDestructivePerTurn {
		return fmt.Errorf("%w (max %d)", ErrDestructiveCap, r.limits.MaxDestructivePerTurn)
	}

	c.lastOpAt = now
	c.total++
	if kind.IsDestructive() {
		c.destructive++
	}
	// Set also refreshes the TTL for active conversations.
	r.counters.Set(key, c, cache.DefaultExpiration)
	return nil
}

// ResetTurn drops a conversation's rate-limit state at the start of a new
// user turn: counters and cooldown clock alike.
func (r *RateLimiter) ResetTurn(conversationID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.counters.Delete(r.key(conversationID))
}

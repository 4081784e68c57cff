package providers

import (
	"context"
	"errors"
	"sync"
	"time"

	"mobiguard/pkg/logger"
)

// ErrQuotaExceeded is returned by Acquire when a provider's daily quota is
// exhausted. Callers must treat it as "skip provider for this subject", not
// as a fatal batch error.
var ErrQuotaExceeded = errors.New("provider daily quota exceeded")

// Limit configures the gate for one provider
type Limit struct {
	MinInterval time.Duration
	DailyQuota  int // 0 means unlimited
}

// limiterState tracks per-provider call history. The quota window rolls:
// it opens on the first call and resets 24h later, rather than at UTC
// midnight.
type limiterState struct {
	lastCallAt  time.Time
	windowStart time.Time
	calls       int
}

// RateLimiter enforces minimum inter-call spacing and daily quotas per
// provider. External provider limits are global resources shared across the
// whole process, so concurrent batches serialize through this one gate.
type RateLimiter struct {
	mu     sync.Mutex
	limits map[string]Limit
	state  map[string]*limiterState
	logger *logger.Logger
}

// NewRateLimiter creates a rate limiter with no registered providers
func NewRateLimiter(log *logger.Logger) *RateLimiter {
	return &RateLimiter{
		limits: make(map[string]Limit),
		state:  make(map[string]*limiterState),
		logger: log.WithComponent("ratelimiter"),
	}
}

// SetLimit registers or replaces the limit for a provider
func (rl *RateLimiter) SetLimit(providerID string, limit Limit) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.limits[providerID] = limit
}

// Acquire blocks until the next call for the provider is permitted. It
// returns ErrQuotaExceeded immediately when the daily quota is exhausted,
// and the context error if the caller is cancelled while waiting.
func (rl *RateLimiter) Acquire(ctx context.Context, providerID string) error {
	for {
		rl.mu.Lock()
		limit := rl.limits[providerID]
		st, ok := rl.state[providerID]
		if !ok {
			st = &limiterState{}
			rl.state[providerID] = st
		}

		now := time.Now()

		// Roll the quota window
		if st.windowStart.IsZero() || now.Sub(st.windowStart) >= 24*time.Hour {
			st.windowStart = now
			st.calls = 0
		}

		if limit.DailyQuota > 0 && st.calls >= limit.DailyQuota {
			rl.mu.Unlock()
			rl.logger.Warn().Str("provider", providerID).Int("quota", limit.DailyQuota).Msg("daily quota exhausted")
			return ErrQuotaExceeded
		}

		wait := limit.MinInterval - now.Sub(st.lastCallAt)
		if st.lastCallAt.IsZero() || wait <= 0 {
			st.lastCallAt = now
			st.calls++
			rl.mu.Unlock()
			return nil
		}
		rl.mu.Unlock()

		// Cooperative wait, then re-check: another batch may have taken
		// the slot while we slept
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Remaining returns how many calls are left in the provider's current quota
// window. Returns -1 for unlimited providers.
func (rl *RateLimiter) Remaining(providerID string) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	limit := rl.limits[providerID]
	if limit.DailyQuota <= 0 {
		return -1
	}

	st, ok := rl.state[providerID]
	if !ok || time.Since(st.windowStart) >= 24*time.Hour {
		return limit.DailyQuota
	}

	remaining := limit.DailyQuota - st.calls
	if remaining < 0 {
		remaining = 0
	}
	return remaining
}

package ratelimit

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/FACorreiaa/go-trip-planner/config"
	"github.com/FACorreiaa/go-trip-planner/internal/types"
)

// Limit keys for the external dependencies this service calls.
const (
	KeyTravelPlan   = "TRAVEL_PLAN"
	KeyGooglePlaces = "GOOGLE_PLACES"
)

// Limiter bounds calls per (limitKey, identifier) within a fixed rolling
// window. Counters live in a TTL cache, so expiry is enforced lazily on
// lookup; there is no background sweep of our own beyond go-cache's janitor.
type Limiter struct {
	logger   *slog.Logger
	limits   map[string]config.RateLimitConfig
	counters *cache.Cache
}

func NewLimiter(limits map[string]config.RateLimitConfig, logger *slog.Logger) *Limiter {
	return &Limiter{
		logger:   logger,
		limits:   limits,
		counters: cache.New(cache.NoExpiration, 5*time.Minute),
	}
}

// Check records one call for identifier under limitKey and fails fast with
// types.ErrRateLimitExceeded once the window's budget is spent. It never
// blocks or queues.
func (l *Limiter) Check(limitKey, identifier string) error {
	limit, ok := l.limits[limitKey]
	if !ok {
		return fmt.Errorf("unknown rate limit key %q", limitKey)
	}

	entry := limitKey + ":" + identifier

	// Add only succeeds for a fresh window; the TTL it sets is the window length.
	if err := l.counters.Add(entry, 1, limit.Window); err == nil {
		return nil
	}

	count, err := l.counters.IncrementInt(entry, 1)
	if err != nil {
		// Entry expired between Add and Increment; start a fresh window.
		l.counters.Set(entry, 1, limit.Window)
		return nil
	}

	if count > limit.MaxRequests {
		l.logger.Warn("Rate limit exceeded",
			slog.String("limit_key", limitKey),
			slog.String("identifier", identifier),
			slog.Int("max_requests", limit.MaxRequests),
		)
		return fmt.Errorf("%w: %s allows %d requests per %s",
			types.ErrRateLimitExceeded, limitKey, limit.MaxRequests, limit.Window)
	}
	return nil
}

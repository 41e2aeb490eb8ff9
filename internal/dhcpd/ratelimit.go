package dhcpd

import (
	"sync"
	"time"

	"github.com/netbootd/bootd/pkg/wire"
)

// RateLimiter is a token-bucket flood guard: a global bucket bounds
// total request rate, and a per-client bucket (keyed by hardware
// address) bounds any single client from starving the rest. This is
// an ambient resilience concern independent of allocation policy —
// it runs ahead of the Decider and never consults lease state.
type RateLimiter struct {
	enabled        bool
	globalLimit    int
	perClientLimit int
	globalTokens   int
	perClient      map[string]*clientBucket
	mu             sync.Mutex
	lastRefill     time.Time
	refillInterval time.Duration
}

type clientBucket struct {
	tokens   int
	lastSeen time.Time
}

// NewRateLimiter builds a flood guard. globalLimit/perClientLimit are
// requests-per-second budgets; non-positive values fall back to
// sensible defaults.
func NewRateLimiter(enabled bool, globalLimit, perClientLimit int) *RateLimiter {
	if globalLimit <= 0 {
		globalLimit = 100
	}
	if perClientLimit <= 0 {
		perClientLimit = 10
	}
	return &RateLimiter{
		enabled:        enabled,
		globalLimit:    globalLimit,
		perClientLimit: perClientLimit,
		globalTokens:   globalLimit,
		perClient:      make(map[string]*clientBucket),
		lastRefill:     time.Now(),
		refillInterval: time.Second,
	}
}

// Allow reports whether a request from mac should be processed.
func (r *RateLimiter) Allow(mac wire.HardwareAddr) bool {
	if !r.enabled {
		return true
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	r.refill(now)

	if r.globalTokens <= 0 {
		return false
	}

	key := mac.String()
	bucket, exists := r.perClient[key]
	if !exists {
		bucket = &clientBucket{tokens: r.perClientLimit, lastSeen: now}
		r.perClient[key] = bucket
	}
	if bucket.tokens <= 0 {
		return false
	}

	r.globalTokens--
	bucket.tokens--
	bucket.lastSeen = now
	return true
}

func (r *RateLimiter) refill(now time.Time) {
	elapsed := now.Sub(r.lastRefill)
	if elapsed < r.refillInterval {
		return
	}
	intervals := int(elapsed / r.refillInterval)
	if intervals <= 0 {
		return
	}
	r.lastRefill = now

	r.globalTokens += r.globalLimit * intervals
	if r.globalTokens > r.globalLimit {
		r.globalTokens = r.globalLimit
	}

	const staleThreshold = 30 * time.Second
	for key, bucket := range r.perClient {
		if now.Sub(bucket.lastSeen) > staleThreshold {
			delete(r.perClient, key)
			continue
		}
		bucket.tokens += r.perClientLimit * intervals
		if bucket.tokens > r.perClientLimit {
			bucket.tokens = r.perClientLimit
		}
	}
}

// Stats reports the current global token count and number of tracked
// clients, for metrics export.
func (r *RateLimiter) Stats() (globalTokens int, trackedClients int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.globalTokens, len(r.perClient)
}

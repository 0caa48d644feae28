package nakama

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const limiterIdleTTL = 10 * time.Minute

type userEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// userLimiter throttles game actions per user.
type userLimiter struct {
	mu       sync.Mutex
	limiters map[string]*userEntry
	rate     rate.Limit
	burst    int
	now      func() time.Time
	swept    time.Time
}

func newUserLimiter(r rate.Limit, b int) *userLimiter {
	return &userLimiter{
		limiters: make(map[string]*userEntry),
		rate:     r,
		burst:    b,
		now:      time.Now,
	}
}

// Allow reports whether userID may act now. A nil limiter allows everything.
func (ul *userLimiter) Allow(userID string) bool {
	if ul == nil {
		return true
	}
	ul.mu.Lock()
	defer ul.mu.Unlock()

	now := ul.now()
	ul.sweep(now)
	entry, exists := ul.limiters[userID]
	if !exists {
		entry = &userEntry{limiter: rate.NewLimiter(ul.rate, ul.burst)}
		ul.limiters[userID] = entry
	}
	entry.lastSeen = now
	return entry.limiter.AllowN(now, 1)
}

// sweep drops limiters of users idle for longer than limiterIdleTTL. Nakama
// owns the process, so this runs inline instead of on a ticker goroutine.
func (ul *userLimiter) sweep(now time.Time) {
	if now.Sub(ul.swept) < limiterIdleTTL {
		return
	}
	ul.swept = now
	cutoff := now.Add(-limiterIdleTTL)
	for id, entry := range ul.limiters {
		if entry.lastSeen.Before(cutoff) {
			delete(ul.limiters, id)
		}
	}
}

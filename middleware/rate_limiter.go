package middleware

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/princinho/videotube/apierror"
	"github.com/princinho/videotube/utils"
	"golang.org/x/time/rate"
)

// Limiter decides whether the caller identified by key may go ahead.
type Limiter interface {
	Allow(key string) bool
}

type bucket struct {
	tokens *rate.Limiter
	used   time.Time
}

// KeyedLimiter keeps one token bucket per key. Buckets idle for longer than
// the configured period are dropped on the next sweep.
type KeyedLimiter struct {
	mu        sync.Mutex
	buckets   map[string]*bucket
	every     rate.Limit
	burst     int
	idle      time.Duration
	lastSweep time.Time
	clock     func() time.Time
}

// NewKeyedLimiter refills perMinute tokens a minute into buckets holding at
// most burst tokens.
func NewKeyedLimiter(perMinute, burst int, idle time.Duration) *KeyedLimiter {
	perMinute = max(perMinute, 1)
	burst = max(burst, 1)
	if idle <= 0 {
		idle = 10 * time.Minute
	}
	return &KeyedLimiter{
		buckets: map[string]*bucket{},
		every:   rate.Every(time.Minute / time.Duration(perMinute)),
		burst:   burst,
		idle:    idle,
		clock:   time.Now,
	}
}

func (l *KeyedLimiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock()
	if now.Sub(l.lastSweep) >= l.idle {
		for k, b := range l.buckets {
			if now.Sub(b.used) > l.idle {
				delete(l.buckets, k)
			}
		}
		l.lastSweep = now
	}

	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{tokens: rate.NewLimiter(l.every, l.burst)}
		l.buckets[key] = b
	}
	b.used = now
	return b.tokens.AllowN(now, 1)
}

// size reports how many buckets are live.
func (l *KeyedLimiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

// RateLimit answers 429 once the client IP has spent its tokens for scope.
// Each scope counts separately.
func RateLimit(limiter Limiter, scope string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter != nil && !limiter.Allow(scope+"|"+c.ClientIP()) {
			utils.RespondError(c, apierror.RateLimitedError("too many requests, try again later"))
			return
		}
		c.Next()
	}
}

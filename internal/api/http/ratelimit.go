package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	authmw "github.com/mind-engage/mindengage-quiz/internal/auth/middleware"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// UserLimiter throttles requests per authenticated subject.
type UserLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    rate.Limit
	burst    int
	now      func() time.Time
}

func NewUserLimiter(rps float64, burst int) *UserLimiter {
	return &UserLimiter{
		visitors: map[string]*visitor{},
		limit:    rate.Limit(rps),
		burst:    burst,
		now:      time.Now,
	}
}

func (l *UserLimiter) Allow(sub string) bool {
	l.mu.Lock()
	v, ok := l.visitors[sub]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.visitors[sub] = v
	}
	v.lastSeen = l.now()
	l.mu.Unlock()
	return v.limiter.Allow()
}

// Sweep forgets subjects idle for longer than idle.
func (l *UserLimiter) Sweep(idle time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	cutoff := l.now().Add(-idle)
	for sub, v := range l.visitors {
		if v.lastSeen.Before(cutoff) {
			delete(l.visitors, sub)
		}
	}
}

// Run sweeps once a minute until ctx is done.
func (l *UserLimiter) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Sweep(10 * time.Minute)
		}
	}
}

func (l *UserLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.Allow(authmw.SubjectFromContext(r.Context())) {
			writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": "too many requests"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

package middleware

import (
	"context"
	"sync"
	"time"
)

type clientInfo struct {
	start time.Time
	count int
}

// MemoryLimiter is the in-process fixed window used without Redis. Counts
// are per process, so limits multiply across replicas.
type MemoryLimiter struct {
	mu      sync.Mutex
	clients map[string]*clientInfo
	max     int
	window  time.Duration
	now     func() time.Time
}

func NewMemoryLimiter(max int, window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		clients: make(map[string]*clientInfo),
		max:     max,
		window:  window,
		now:     time.Now,
	}
}

func (l *MemoryLimiter) Window() time.Duration { return l.window }

func (l *MemoryLimiter) Allow(_ context.Context, key string) (bool, int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	ci, ok := l.clients[key]
	if !ok || now.Sub(ci.start) >= l.window {
		if len(l.clients) > 10000 {
			l.evict(now)
		}
		ci = &clientInfo{start: now}
		l.clients[key] = ci
	}
	ci.count++

	remaining := int64(l.max - ci.count)
	if remaining < 0 {
		remaining = 0
	}
	return ci.count <= l.max, remaining, nil
}

// evict drops expired windows.
func (l *MemoryLimiter) evict(now time.Time) {
	for k, ci := range l.clients {
		if now.Sub(ci.start) >= l.window {
			delete(l.clients, k)
		}
	}
}

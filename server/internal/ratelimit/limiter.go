// Package ratelimit ограничивает частоту запросов фиксированным окном.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Decision - результат проверки лимита.
type Decision struct {
	Allowed   bool
	Count     int
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// Limiter считает обращения по ключу в пределах окна.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int) Decision
}

func decide(count, limit int, resetAt time.Time) Decision {
	remaining := limit - count
	if remaining < 0 {
		remaining = 0
	}
	return Decision{
		Allowed:   count <= limit,
		Count:     count,
		Limit:     limit,
		Remaining: remaining,
		ResetAt:   resetAt,
	}
}

// InMemoryLimiter хранит счетчики в памяти процесса.
type InMemoryLimiter struct {
	mu     sync.Mutex
	window time.Duration
	items  map[string]window
	now    func() time.Time
}

type window struct {
	count   int
	resetAt time.Time
}

// NewInMemory создает лимитер в памяти. Окно по умолчанию - минута.
func NewInMemory(w time.Duration) *InMemoryLimiter {
	if w <= 0 {
		w = time.Minute
	}
	return &InMemoryLimiter{
		window: w,
		items:  make(map[string]window),
		now:    time.Now,
	}
}

func (l *InMemoryLimiter) Allow(_ context.Context, key string, limit int) Decision {
	if limit <= 0 {
		limit = 1
	}
	now := l.now().UTC()

	l.mu.Lock()
	defer l.mu.Unlock()

	for k, v := range l.items {
		if now.After(v.resetAt) {
			delete(l.items, k)
		}
	}
	curr, ok := l.items[key]
	if !ok {
		curr = window{resetAt: now.Add(l.window)}
	}
	curr.count++
	l.items[key] = curr
	return decide(curr.count, limit, curr.resetAt)
}

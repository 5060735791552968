package lock

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// MemoryLocker holds one weighted semaphore per device name.
type MemoryLocker struct {
	mu   sync.Mutex
	sems map[string]*semaphore.Weighted
}

// NewMemoryLocker creates an in-process locker.
func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{sems: make(map[string]*semaphore.Weighted)}
}

func (l *MemoryLocker) sem(name string) *semaphore.Weighted {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.sems[name]
	if !ok {
		s = semaphore.NewWeighted(1)
		l.sems[name] = s
	}
	return s
}

func (l *MemoryLocker) Acquire(ctx context.Context, name string) (func(), error) {
	s := l.sem(name)
	if err := s.Acquire(ctx, 1); err != nil {
		return nil, busy(name, err)
	}
	var once sync.Once
	return func() { once.Do(func() { s.Release(1) }) }, nil
}

func (l *MemoryLocker) Close() error { return nil }

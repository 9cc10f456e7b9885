package lock

import (
	"context"
	"fmt"
	"sync"
)

// Local is an in-process Locker. It is sufficient when a single API instance
// serves all traffic; use Redis when running more than one.
type Local struct {
	mu   sync.Mutex
	keys map[string]*localEntry
}

type localEntry struct {
	sem  chan struct{}
	refs int
}

// NewLocal returns an empty in-process Locker.
func NewLocal() *Local {
	return &Local{keys: make(map[string]*localEntry)}
}

// Acquire blocks until every key is held or ctx is done.
func (l *Local) Acquire(ctx context.Context, keys ...string) (func(), error) {
	keys = normalize(keys)
	held := make([]string, 0, len(keys))

	for _, k := range keys {
		if err := l.acquireOne(ctx, k); err != nil {
			l.releaseAll(held)
			return nil, fmt.Errorf("lock.Local.Acquire %q: %w", k, err)
		}
		held = append(held, k)
	}

	var once sync.Once
	return func() { once.Do(func() { l.releaseAll(held) }) }, nil
}

func (l *Local) acquireOne(ctx context.Context, key string) error {
	l.mu.Lock()
	e, ok := l.keys[key]
	if !ok {
		e = &localEntry{sem: make(chan struct{}, 1)}
		l.keys[key] = e
	}
	e.refs++
	l.mu.Unlock()

	select {
	case e.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		l.drop(key, e)
		return fmt.Errorf("%w: %w", ErrNotAcquired, ctx.Err())
	}
}

func (l *Local) releaseAll(keys []string) {
	for i := len(keys) - 1; i >= 0; i-- {
		l.mu.Lock()
		e := l.keys[keys[i]]
		l.mu.Unlock()

		<-e.sem
		l.drop(keys[i], e)
	}
}

// drop forgets the entry once nobody holds or waits for it.
func (l *Local) drop(key string, e *localEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(l.keys, key)
	}
}

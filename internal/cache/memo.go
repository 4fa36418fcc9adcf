package cache

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"
)

// Memoizer computes a value at most once per key while the stored copy is
// fresh. Concurrent callers for the same key share one computation.
type Memoizer struct {
	store  ObjectStore
	group  singleflight.Group
	logger *slog.Logger
}

// NewMemoizer creates a Memoizer over store.
func NewMemoizer(store ObjectStore, logger *slog.Logger) *Memoizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Memoizer{store: store, logger: logger}
}

// Do returns the cached value for key or computes it with fn. Store failures
// are logged and treated as misses; only fn's error is returned. The shared
// computation ignores the caller's cancellation, so one caller giving up
// returns ctx.Err() to that caller alone while the others keep waiting.
func (m *Memoizer) Do(ctx context.Context, key string, maxAge time.Duration, fn func(ctx context.Context) ([]byte, error)) ([]byte, error) {
	if value, ok := m.lookup(ctx, key, maxAge); ok {
		return value, nil
	}

	detached := context.WithoutCancel(ctx)
	ch := m.group.DoChan(key, func() (any, error) {
		if value, ok := m.lookup(detached, key, maxAge); ok {
			return value, nil
		}
		value, err := fn(detached)
		if err != nil {
			return nil, err
		}
		if err := m.store.Put(detached, key, value); err != nil {
			m.logger.WarnContext(detached, "cache write failed", "key", key, "error", err)
		}
		return value, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			m.logger.DebugContext(ctx, "cache computation shared", "key", key)
		}
		return res.Val.([]byte), nil
	}
}

func (m *Memoizer) lookup(ctx context.Context, key string, maxAge time.Duration) ([]byte, bool) {
	value, ok, err := m.store.Get(ctx, key, maxAge)
	if err != nil {
		m.logger.WarnContext(ctx, "cache read failed", "key", key, "error", err)
		return nil, false
	}
	return value, ok
}

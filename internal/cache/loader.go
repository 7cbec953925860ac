package cache

import (
	"strconv"

	"golang.org/x/sync/singleflight"
)

// Loader is a read-through cache. Concurrent misses for the same key share
// one load, and a load that overlaps an Invalidate is returned to its
// callers but never stored.
type Loader[T any] struct {
	cache Cache[T]
	group singleflight.Group
}

func NewLoader[T any](c Cache[T]) *Loader[T] {
	return &Loader[T]{cache: c}
}

// Get returns the cached value for key or calls load to produce it.
func (l *Loader[T]) Get(key string, load func() (T, error)) (T, error) {
	if v, ok := l.cache.Get(key); ok {
		return v, nil
	}

	// Keying flights by generation keeps post-invalidation callers from
	// joining a load that started before the write.
	gen := l.cache.Generation()
	v, err, _ := l.group.Do(key+"@"+strconv.FormatUint(gen, 10), func() (any, error) {
		v, err := load()
		if err != nil {
			return v, err
		}
		l.cache.SetIf(gen, key, v)
		return v, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

// Invalidate drops every cached value and discards loads in flight.
func (l *Loader[T]) Invalidate() {
	l.cache.Purge()
}

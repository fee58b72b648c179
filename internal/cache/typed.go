package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Typed wraps a Cache to store and retrieve typed values via JSON.
type Typed[T any] struct {
	cache Cache
}

// NewTyped creates a typed view over the given cache.
func NewTyped[T any](c Cache) *Typed[T] {
	return &Typed[T]{cache: c}
}

// Get retrieves and unmarshals a value.
// Returns ErrCacheMiss if the key is not present.
func (t *Typed[T]) Get(ctx context.Context, key string) (T, error) {
	var zero T

	data, err := t.cache.Get(ctx, key)
	if err != nil {
		return zero, err
	}

	var value T
	if err := json.Unmarshal(data, &value); err != nil {
		// A corrupt entry is as good as a miss; drop it
		_ = t.cache.Delete(ctx, key)
		return zero, fmt.Errorf("unmarshal cached value: %w", err)
	}
	return value, nil
}

// Set marshals and stores a value with the specified TTL.
func (t *Typed[T]) Set(ctx context.Context, key string, value T, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal value for cache: %w", err)
	}
	return t.cache.Set(ctx, key, data, ttl)
}

// Delete removes a key.
func (t *Typed[T]) Delete(ctx context.Context, key string) error {
	return t.cache.Delete(ctx, key)
}

// DeleteByPrefix removes all keys starting with the given prefix.
func (t *Typed[T]) DeleteByPrefix(ctx context.Context, prefix string) error {
	return t.cache.DeleteByPrefix(ctx, prefix)
}

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testRecord struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func TestTypedRoundTrip(t *testing.T) {
	c := newTestCache(t)
	tc := NewTyped[[]testRecord](c)
	ctx := context.Background()

	want := []testRecord{{ID: "1", Name: "Ann"}, {ID: "2", Name: "Ben"}}
	require.NoError(t, tc.Set(ctx, "records", want, time.Minute))

	got, err := tc.Get(ctx, "records")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestTypedMiss(t *testing.T) {
	tc := NewTyped[testRecord](newTestCache(t))

	_, err := tc.Get(context.Background(), "absent")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestTypedCorruptEntryDropped(t *testing.T) {
	c := newTestCache(t)
	tc := NewTyped[testRecord](c)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "bad", []byte("not json"), 0))

	_, err := tc.Get(ctx, "bad")
	require.Error(t, err)

	// The corrupt entry must be evicted so the next fetch repopulates
	has, err := c.Has(ctx, "bad")
	require.NoError(t, err)
	assert.False(t, has, "corrupt entry still present after failed Get")
}

package redisx

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := New(mr.Addr())
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestJSONRoundTrip(t *testing.T) {
	mr, rdb := newClient(t)
	ctx := context.Background()

	type cached struct {
		Number string `json:"number"`
	}
	var out cached
	found, err := GetJSON(ctx, rdb, OrderKey(1), &out)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, SetJSON(ctx, rdb, OrderKey(1), cached{Number: "2024-06-01 001"}, time.Minute))
	found, err = GetJSON(ctx, rdb, OrderKey(1), &out)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "2024-06-01 001", out.Number)

	mr.FastForward(2 * time.Minute)
	found, err = GetJSON(ctx, rdb, OrderKey(1), &out)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestClaimRelease(t *testing.T) {
	_, rdb := newClient(t)
	ctx := context.Background()
	key := DedupKey("notifier", "evt-1")

	ok, err := Claim(ctx, rdb, key, TTLDedup)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Claim(ctx, rdb, key, TTLDedup)
	require.NoError(t, err)
	assert.False(t, ok)

	exists, err := Exists(ctx, rdb, key)
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, Release(ctx, rdb, key))
	ok, err = Claim(ctx, rdb, key, TTLDedup)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "idem:order:place:7:abc", IdemOrderPlaceKey(7, "abc"))
	assert.Equal(t, "idem:order:place:7:abc:pending", IdemOrderPendingKey(7, "abc"))
	assert.Equal(t, "order:42", OrderKey(42))
	assert.Equal(t, "dedup:notifier:e1", DedupKey("notifier", "e1"))
}

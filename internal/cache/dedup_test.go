package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryDeduper(t *testing.T) {
	ctx := context.Background()
	d := NewMemoryDeduper(10, time.Hour)

	first, err := d.FirstSeen(ctx, "s1:a1")
	require.NoError(t, err)
	assert.True(t, first)

	again, _ := d.FirstSeen(ctx, "s1:a1")
	assert.False(t, again)

	other, _ := d.FirstSeen(ctx, "s2:a1")
	assert.True(t, other, "different session is a different key")

	require.NoError(t, d.Forget(ctx, "s1:a1"))
	afterForget, _ := d.FirstSeen(ctx, "s1:a1")
	assert.True(t, afterForget)
}

func TestMemoryDeduper_Expiry(t *testing.T) {
	ctx := context.Background()
	d := NewMemoryDeduper(10, 20*time.Millisecond)

	first, _ := d.FirstSeen(ctx, "k")
	require.True(t, first)

	assert.Eventually(t, func() bool {
		again, _ := d.FirstSeen(ctx, "k")
		return again
	}, time.Second, 10*time.Millisecond)
}

func TestMemoryDeduper_ConcurrentSingleWinner(t *testing.T) {
	ctx := context.Background()
	d := NewMemoryDeduper(100, time.Hour)

	var winners int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := d.FirstSeen(ctx, "same"); ok {
				atomic.AddInt32(&winners, 1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), winners)
}

func TestRedisDeduper(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	ctx := context.Background()
	d := NewRedisDeduper(client, "views:", 12*time.Hour)

	first, err := d.FirstSeen(ctx, "s1:a1")
	require.NoError(t, err)
	assert.True(t, first)
	assert.True(t, mr.Exists("views:s1:a1"))
	assert.Equal(t, 12*time.Hour, mr.TTL("views:s1:a1"))

	again, err := d.FirstSeen(ctx, "s1:a1")
	require.NoError(t, err)
	assert.False(t, again)

	mr.FastForward(13 * time.Hour)
	expired, err := d.FirstSeen(ctx, "s1:a1")
	require.NoError(t, err)
	assert.True(t, expired)

	require.NoError(t, d.Forget(ctx, "s1:a1"))
	assert.False(t, mr.Exists("views:s1:a1"))
}

func TestRedisDeduper_ServerDown(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer client.Close()
	mr.Close()

	_, err := NewRedisDeduper(client, "views:", time.Hour).FirstSeen(context.Background(), "k")
	assert.Error(t, err)
}

package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestTTLCache_GetMiss(t *testing.T) {
	c := New()

	v, ok := c.Get("missing")
	assert.False(t, ok)
	assert.Nil(t, v)
}

func TestTTLCache_SetAndGet(t *testing.T) {
	c := New()

	c.Set("repo_info:octocat:hello", "payload", time.Minute)

	v, ok := c.Get("repo_info:octocat:hello")
	require.True(t, ok)
	assert.Equal(t, "payload", v)
}

func TestTTLCache_Expiry(t *testing.T) {
	clock := newFakeClock()
	c := New(WithClock(clock.Now))

	c.Set("k", 1, time.Minute)

	clock.Advance(59 * time.Second)
	_, ok := c.Get("k")
	assert.True(t, ok, "entry should be live before its TTL")

	clock.Advance(time.Second)
	_, ok = c.Get("k")
	assert.False(t, ok, "entry should be expired exactly at its TTL")
	assert.Equal(t, 0, c.Len(), "expired entry should be removed on read")
}

func TestTTLCache_ZeroTTLNeverHits(t *testing.T) {
	c := New()

	c.Set("k", "v", 0)
	_, ok := c.Get("k")
	assert.False(t, ok)

	c.Set("k", "v", -time.Second)
	_, ok = c.Get("k")
	assert.False(t, ok)
}

func TestTTLCache_OverwriteRefreshes(t *testing.T) {
	clock := newFakeClock()
	c := New(WithClock(clock.Now))

	c.Set("k", "old", time.Minute)
	clock.Advance(50 * time.Second)
	c.Set("k", "new", time.Minute)
	clock.Advance(30 * time.Second)

	v, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "new", v)
}

func TestTTLCache_KeysExpireIndependently(t *testing.T) {
	clock := newFakeClock()
	c := New(WithClock(clock.Now))

	c.Set("repo_info:a:b", "info", time.Minute)
	c.Set("releases:a:b", "releases", time.Hour)

	clock.Advance(2 * time.Minute)

	_, ok := c.Get("repo_info:a:b")
	assert.False(t, ok)
	v, ok := c.Get("releases:a:b")
	require.True(t, ok)
	assert.Equal(t, "releases", v)
}

func TestTTLCache_SingleShard(t *testing.T) {
	c := New(WithShards(1))
	for i := 0; i < 10; i++ {
		c.Set(fmt.Sprintf("k%d", i), i, time.Minute)
	}
	assert.Equal(t, 10, c.Len())
}

func TestTTLCache_Concurrent(t *testing.T) {
	clock := newFakeClock()
	c := New(WithClock(clock.Now), WithShards(4))

	const workers = 16
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				key := fmt.Sprintf("k%d", i%20)
				c.Set(key, w, time.Minute)
				if v, ok := c.Get(key); ok {
					if _, isInt := v.(int); !isInt {
						t.Errorf("unexpected value type %T", v)
					}
				}
				if i%50 == 0 {
					clock.Advance(time.Second)
				}
			}
		}(w)
	}
	wg.Wait()

	assert.LessOrEqual(t, c.Len(), 20)
}

package cache_test

import (
	"errors"
	"maps"
	"math"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expcache/internal/cache"
)

const oneThousand = 1000

// maxTTL never expires within a test run.
const maxTTL = time.Duration(math.MaxInt64)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func loadOneThousand(t *testing.T, ttl time.Duration, maxSize int) *cache.Cache[int, string] {
	t.Helper()

	c, err := cache.New[int, string](ttl, cache.WithMaxSize(maxSize))
	require.NoError(t, err)

	for i := 0; i < oneThousand; i++ {
		c.Put(i, strconv.FormatInt(int64(i), 16))
	}
	return c
}

func TestNew(t *testing.T) {
	t.Run("rejects non-positive ttl", func(t *testing.T) {
		for _, ttl := range []time.Duration{0, -1, -time.Hour} {
			c, err := cache.New[string, int](ttl)
			assert.Nil(t, c)
			assert.ErrorIs(t, err, cache.ErrInvalidTTL)
			assert.ErrorIs(t, err, cache.ErrInvalidArgument)
		}
	})

	t.Run("rejects negative max size", func(t *testing.T) {
		c, err := cache.New[string, int](time.Millisecond, cache.WithMaxSize(-1))
		assert.Nil(t, c)
		assert.ErrorIs(t, err, cache.ErrInvalidMaxSize)
		assert.ErrorIs(t, err, cache.ErrInvalidArgument)
	})

	t.Run("zero max size is unbounded", func(t *testing.T) {
		c := loadOneThousand(t, maxTTL, 0)
		assert.Equal(t, 0, c.MaxSize())
		assert.Equal(t, oneThousand, c.Len())
	})

	t.Run("defaults", func(t *testing.T) {
		c := cache.NewDefault[string, int]()
		assert.Equal(t, 15*time.Minute, c.TTL())
		assert.Equal(t, 16384, c.MaxSize())
		assert.True(t, c.IsEmpty())
	})
}

func TestGet(t *testing.T) {
	t.Run("returns value within ttl", func(t *testing.T) {
		c := loadOneThousand(t, maxTTL, 5*oneThousand)

		v, ok := c.Get(255)
		require.True(t, ok)
		assert.Equal(t, "ff", v)
	})

	t.Run("misses after ttl", func(t *testing.T) {
		c := loadOneThousand(t, time.Nanosecond, 5*oneThousand)

		time.Sleep(10 * time.Nanosecond)

		v, ok := c.Get(255)
		assert.False(t, ok)
		assert.Empty(t, v)
	})

	t.Run("missing key looks like expired key", func(t *testing.T) {
		clock := newFakeClock()
		c, err := cache.New[string, string](time.Second, cache.WithClock(clock.Now))
		require.NoError(t, err)

		c.Put("expired", "x")
		clock.Advance(2 * time.Second)

		v1, ok1 := c.Get("expired")
		v2, ok2 := c.Get("never-inserted")
		assert.Equal(t, v1, v2)
		assert.Equal(t, ok1, ok2)
	})

	t.Run("expiry is strict", func(t *testing.T) {
		clock := newFakeClock()
		c, err := cache.New[string, int](time.Second, cache.WithClock(clock.Now))
		require.NoError(t, err)

		c.Put("k", 1)
		clock.Advance(time.Second)
		_, ok := c.Get("k")
		assert.True(t, ok, "entry is live at exactly its expiration time")

		clock.Advance(time.Nanosecond)
		_, ok = c.Get("k")
		assert.False(t, ok)
	})
}

func TestLazyExpiration(t *testing.T) {
	clock := newFakeClock()
	c, err := cache.New[string, int](time.Second, cache.WithClock(clock.Now))
	require.NoError(t, err)

	c.Put("a", 1)
	clock.Advance(2 * time.Second)

	// Reads do not sweep.
	_, ok := c.Get("a")
	assert.False(t, ok)
	assert.True(t, c.ContainsKey("a"), "expired entry lingers until the next mutation")
	assert.Equal(t, 1, c.Len())
	assert.False(t, c.IsEmpty())

	c.Put("b", 2)
	assert.False(t, c.ContainsKey("a"))
	assert.Equal(t, 1, c.Len())
}

func TestPut(t *testing.T) {
	t.Run("returns previous value", func(t *testing.T) {
		c, err := cache.New[string, int](time.Minute)
		require.NoError(t, err)

		prev, existed := c.Put("a", 1)
		assert.False(t, existed)
		assert.Zero(t, prev)

		prev, existed = c.Put("a", 2)
		assert.True(t, existed)
		assert.Equal(t, 1, prev)

		v, ok := c.Get("a")
		require.True(t, ok)
		assert.Equal(t, 2, v)
		assert.Equal(t, 1, c.Len())
	})

	t.Run("overwrite refreshes expiration", func(t *testing.T) {
		clock := newFakeClock()
		c, err := cache.New[string, int](time.Second, cache.WithClock(clock.Now))
		require.NoError(t, err)

		c.Put("a", 1)
		clock.Advance(600 * time.Millisecond)
		c.Put("a", 2)
		clock.Advance(600 * time.Millisecond)

		v, ok := c.Get("a")
		require.True(t, ok)
		assert.Equal(t, 2, v)
	})
}

func TestBoundedSize(t *testing.T) {
	t.Run("stays within bound", func(t *testing.T) {
		const fiveHundred = oneThousand / 2
		c := loadOneThousand(t, maxTTL, fiveHundred)

		assert.LessOrEqual(t, c.Len(), fiveHundred)
		// Cleanup evicts while the pending insert would reach the bound.
		assert.Equal(t, fiveHundred-1, c.Len())
	})

	t.Run("evicts in insertion order", func(t *testing.T) {
		c, err := cache.New[string, int](time.Hour, cache.WithMaxSize(4))
		require.NoError(t, err)

		c.Put("a", 1)
		c.Put("b", 2)
		// Overwriting does not move "a" to the back.
		c.Put("a", 10)
		c.Put("c", 3)
		c.Put("d", 4)

		assert.False(t, c.ContainsKey("a"), "a is still the oldest insertion")
		assert.True(t, c.ContainsKey("b"))
		assert.True(t, c.ContainsKey("c"))
		assert.True(t, c.ContainsKey("d"))
		assert.Equal(t, 3, c.Len())
	})

	t.Run("concurrent puts respect bound", func(t *testing.T) {
		const bound = 64
		c, err := cache.New[int, int](time.Hour, cache.WithMaxSize(bound))
		require.NoError(t, err)

		var wg sync.WaitGroup
		for g := 0; g < 8; g++ {
			wg.Add(1)
			go func(g int) {
				defer wg.Done()
				for i := 0; i < 500; i++ {
					c.Put(g*1000+i, i)
					assert.LessOrEqual(t, c.Len(), bound)
				}
			}(g)
		}
		wg.Wait()

		assert.LessOrEqual(t, c.Len(), bound)
	})
}

func TestInsertionOrderHeuristic(t *testing.T) {
	clock := newFakeClock()
	c, err := cache.New[string, int](time.Second, cache.WithClock(clock.Now))
	require.NoError(t, err)

	c.Put("a", 1)
	clock.Advance(100 * time.Millisecond)
	c.Put("b", 2)
	clock.Advance(500 * time.Millisecond)
	// "a" keeps the head slot but now expires after "b".
	c.Put("a", 3)

	clock.Advance(600 * time.Millisecond)
	c.Put("c", 4)

	// The sweep stops at the live head, so the expired "b" behind it lingers.
	assert.True(t, c.ContainsKey("b"))
	_, ok := c.Get("b")
	assert.False(t, ok)

	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 3, v)
}

func TestClear(t *testing.T) {
	c := loadOneThousand(t, maxTTL, 5*oneThousand)
	assert.Equal(t, oneThousand, c.Len())
	assert.False(t, c.IsEmpty())

	c.Clear()
	assert.Equal(t, 0, c.Len())
	assert.True(t, c.IsEmpty())

	c.Clear()
	assert.Equal(t, 0, c.Len())
	assert.True(t, c.IsEmpty())
}

func TestContainsKey(t *testing.T) {
	c := loadOneThousand(t, maxTTL, 5*oneThousand)

	assert.True(t, c.ContainsKey(255))
	assert.False(t, c.ContainsKey(oneThousand))
}

func TestRemove(t *testing.T) {
	t.Run("returns live values", func(t *testing.T) {
		c := loadOneThousand(t, maxTTL, 5*oneThousand)

		for i := oneThousand - 1; i >= 0; i-- {
			v, ok := c.Remove(i)
			require.True(t, ok)
			assert.Equal(t, strconv.FormatInt(int64(i), 16), v)
		}
		assert.True(t, c.IsEmpty())
	})

	t.Run("missing key", func(t *testing.T) {
		c, err := cache.New[string, int](time.Minute)
		require.NoError(t, err)

		v, ok := c.Remove("missing")
		assert.False(t, ok)
		assert.Zero(t, v)
	})

	t.Run("expired entry is dropped but reported absent", func(t *testing.T) {
		clock := newFakeClock()
		c, err := cache.New[string, int](time.Second, cache.WithClock(clock.Now))
		require.NoError(t, err)

		c.Put("a", 1)
		clock.Advance(2 * time.Second)
		require.True(t, c.ContainsKey("a"))

		v, ok := c.Remove("a")
		assert.False(t, ok)
		assert.Zero(t, v)
		assert.False(t, c.ContainsKey("a"))
		assert.True(t, c.IsEmpty())
	})
}

func TestPutIfAbsent(t *testing.T) {
	t.Run("keeps existing values", func(t *testing.T) {
		c := loadOneThousand(t, maxTTL, 5*oneThousand)

		for i := oneThousand / 2; i < oneThousand+oneThousand/2; i++ {
			value := "value-" + strconv.Itoa(i)
			chosen := c.PutIfAbsent(i, value)

			if i < oneThousand {
				assert.Equal(t, strconv.FormatInt(int64(i), 16), chosen)
			} else {
				assert.Equal(t, value, chosen)
			}
		}
	})

	t.Run("expired occupant loses", func(t *testing.T) {
		const smallLatency = 250 * time.Millisecond

		c, err := cache.New[string, *struct{ n int }](smallLatency)
		require.NoError(t, err)

		o1 := &struct{ n int }{1}
		o2 := &struct{ n int }{2}

		assert.Same(t, o1, c.PutIfAbsent("foo", o1))
		assert.Same(t, o1, c.PutIfAbsent("foo", o2))

		time.Sleep(smallLatency + 10*time.Millisecond)

		assert.Same(t, o2, c.PutIfAbsent("foo", o2))
	})

	t.Run("single winner under contention", func(t *testing.T) {
		c, err := cache.New[string, int](time.Hour)
		require.NoError(t, err)

		const workers = 64
		results := make([]int, workers)
		start := make(chan struct{})

		var wg sync.WaitGroup
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				<-start
				results[i] = c.PutIfAbsent("key", i)
			}(i)
		}
		close(start)
		wg.Wait()

		winner, ok := c.Get("key")
		require.True(t, ok)
		for i, r := range results {
			assert.Equal(t, winner, r, "worker %d saw a different winner", i)
		}
		assert.Equal(t, 1, c.Len())
	})
}

func TestPutAll(t *testing.T) {
	src := loadOneThousand(t, maxTTL, 5*oneThousand)
	m := make(map[int]string, oneThousand)
	for _, it := range src.Snapshot() {
		m[it.Key] = it.Value
	}

	dst, err := cache.New[int, string](maxTTL, cache.WithMaxSize(5*oneThousand))
	require.NoError(t, err)

	dst.PutAll(maps.All(m))
	dst.PutAll(nil)

	assert.Equal(t, oneThousand, dst.Len())
	v, ok := dst.Get(255)
	require.True(t, ok)
	assert.Equal(t, "ff", v)
}

func TestPutAll_Bounded(t *testing.T) {
	m := make(map[int]int, 100)
	for i := 0; i < 100; i++ {
		m[i] = i
	}

	c, err := cache.New[int, int](time.Hour, cache.WithMaxSize(10))
	require.NoError(t, err)

	c.PutAll(maps.All(m))
	assert.LessOrEqual(t, c.Len(), 10)
}

func TestUnsupportedViews(t *testing.T) {
	c := loadOneThousand(t, maxTTL, 5*oneThousand)

	entries, err := c.Entries()
	assert.Nil(t, entries)
	assert.ErrorIs(t, err, cache.ErrUnsupported)

	keys, err := c.Keys()
	assert.Nil(t, keys)
	assert.ErrorIs(t, err, cache.ErrUnsupported)

	values, err := c.Values()
	assert.Nil(t, values)
	assert.ErrorIs(t, err, cache.ErrUnsupported)
	assert.True(t, errors.Is(err, errors.ErrUnsupported))

	found, err := c.ContainsValue("ff", func(a, b string) bool { return a == b })
	assert.False(t, found)
	assert.ErrorIs(t, err, cache.ErrUnsupported)
	assert.NotErrorIs(t, err, cache.ErrInvalidArgument)
}

func TestSnapshot(t *testing.T) {
	clock := newFakeClock()
	c, err := cache.New[string, int](time.Second, cache.WithClock(clock.Now))
	require.NoError(t, err)

	c.Put("old", 0)
	clock.Advance(700 * time.Millisecond)
	c.Put("a", 1)
	c.Put("b", 2)
	clock.Advance(500 * time.Millisecond)

	snap := c.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, "a", snap[0].Key)
	assert.Equal(t, 1, snap[0].Value)
	assert.Equal(t, "b", snap[1].Key)
	assert.Equal(t, clock.Now().Add(500*time.Millisecond), snap[1].ExpiresAt)

	// Detached from later writes.
	c.Put("c", 3)
	assert.Len(t, snap, 2)
	assert.Len(t, c.Snapshot(), 3)
}

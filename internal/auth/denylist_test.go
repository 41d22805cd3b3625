package auth

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
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

func TestDenylistContainsUntilExpiry(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)}
	d := NewDenylist(clock.Now, time.Hour)

	d.Add("jti-1", clock.Now().Add(30*time.Minute))

	require.True(t, d.Contains("jti-1"))
	require.False(t, d.Contains("jti-2"))

	clock.Advance(31 * time.Minute)
	require.False(t, d.Contains("jti-1"))
	require.Equal(t, 1, d.Len())
}

func TestDenylistIgnoresExpiredAndEmpty(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)}
	d := NewDenylist(clock.Now, 0)

	d.Add("old", clock.Now().Add(-time.Second))
	d.Add("", clock.Now().Add(time.Hour))

	require.Zero(t, d.Len())
}

func TestDenylistPrune(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)}
	d := NewDenylist(clock.Now, time.Hour)
	d.Add("short", clock.Now().Add(10*time.Minute))
	d.Add("long", clock.Now().Add(48*time.Hour))

	clock.Advance(time.Hour)

	require.Equal(t, 1, d.Prune())
	require.Equal(t, 1, d.Len())
	require.True(t, d.Contains("long"))
}

func TestDenylistReset(t *testing.T) {
	d := NewDenylist(nil, 0)
	d.Add("jti", time.Now().Add(time.Hour))

	d.Reset()

	require.False(t, d.Contains("jti"))
	require.Zero(t, d.Len())
}

func TestDenylistStartPrunesOnTicker(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	d := NewDenylist(clock.Now, 5*time.Millisecond)
	d.Add("jti", clock.Now().Add(time.Minute))
	clock.Advance(2 * time.Minute)

	d.Start(context.Background())
	d.Start(context.Background())
	defer d.Stop()

	require.Eventually(t, func() bool { return d.Len() == 0 }, time.Second, 5*time.Millisecond)
}

func TestDenylistStopIsIdempotent(t *testing.T) {
	d := NewDenylist(nil, time.Hour)
	d.Stop()
	d.Start(context.Background())
	d.Stop()
	d.Stop()
}

func TestDenylistConcurrentUse(t *testing.T) {
	d := NewDenylist(nil, time.Hour)
	exp := time.Now().Add(time.Hour)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("jti-%d", i)
			d.Add(id, exp)
			_ = d.Contains(id)
			d.Prune()
		}(i)
	}
	wg.Wait()

	require.Equal(t, 20, d.Len())
}

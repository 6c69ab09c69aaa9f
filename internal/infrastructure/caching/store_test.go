package caching

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
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
	return &fakeClock{now: time.Date(2025, 9, 1, 12, 0, 0, 0, time.UTC)}
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

func newTestStore() (*Store, *fakeClock) {
	clock := newFakeClock()
	return NewStore(nil).WithClock(clock.Now), clock
}

func TestGetOrComputeCachesWithinTTL(t *testing.T) {
	store, clock := newTestStore()
	key := NewKey("balance", "Private", "")

	var calls int32
	compute := func(ctx context.Context) (any, error) {
		atomic.AddInt32(&calls, 1)
		return "1000", nil
	}

	v, err := store.GetOrCompute(context.Background(), key, 20*time.Second, compute)
	require.NoError(t, err)
	assert.Equal(t, "1000", v)

	clock.Advance(10 * time.Second)
	v, err = store.GetOrCompute(context.Background(), key, 20*time.Second, compute)
	require.NoError(t, err)
	assert.Equal(t, "1000", v)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls), "fresh hit must not recompute")
}

func TestGetOrComputeRecomputesAfterExpiry(t *testing.T) {
	store, clock := newTestStore()
	key := NewKey("balance", "Private", "")

	var calls int32
	compute := func(ctx context.Context) (any, error) {
		atomic.AddInt32(&calls, 1)
		return atomic.LoadInt32(&calls), nil
	}

	_, err := store.GetOrCompute(context.Background(), key, 20*time.Second, compute)
	require.NoError(t, err)

	// 25s after storing a 20s entry the value is expired and must be refetched.
	clock.Advance(25 * time.Second)
	v, err := store.GetOrCompute(context.Background(), key, 20*time.Second, compute)
	require.NoError(t, err)
	assert.EqualValues(t, 2, v)
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls))
}

func TestExpiryBoundaryIsExclusive(t *testing.T) {
	store, clock := newTestStore()
	key := NewKey("metric", "", "")

	var calls int32
	compute := func(ctx context.Context) (any, error) {
		atomic.AddInt32(&calls, 1)
		return "m", nil
	}

	_, err := store.GetOrCompute(context.Background(), key, 20*time.Second, compute)
	require.NoError(t, err)

	// Exactly at TTL the entry counts as expired.
	clock.Advance(20 * time.Second)
	_, err = store.GetOrCompute(context.Background(), key, 20*time.Second, compute)
	require.NoError(t, err)
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls))
}

func TestInvalidateForcesRecompute(t *testing.T) {
	store, _ := newTestStore()
	key := NewKey("students", "Academy", "current")

	var calls int32
	compute := func(ctx context.Context) (any, error) {
		atomic.AddInt32(&calls, 1)
		return "rows", nil
	}

	_, err := store.GetOrCompute(context.Background(), key, time.Minute, compute)
	require.NoError(t, err)

	store.Invalidate(key)

	_, err = store.GetOrCompute(context.Background(), key, time.Minute, compute)
	require.NoError(t, err)
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls))
}

func TestInvalidateOpRemovesAllBranchesAndModes(t *testing.T) {
	store, _ := newTestStore()

	keys := []Key{
		NewKey("students", "Private", "current"),
		NewKey("students", "Highschool", "month"),
		NewKey("staff", "Private", "current"),
	}
	for _, k := range keys {
		k := k
		_, err := store.GetOrCompute(context.Background(), k, time.Minute, func(ctx context.Context) (any, error) {
			return k.String(), nil
		})
		require.NoError(t, err)
	}

	store.InvalidateOp("students", "")

	var calls int32
	compute := func(ctx context.Context) (any, error) {
		atomic.AddInt32(&calls, 1)
		return "fresh", nil
	}
	for _, k := range keys[:2] {
		_, err := store.GetOrCompute(context.Background(), k, time.Minute, compute)
		require.NoError(t, err)
	}
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls), "both students entries must be gone")

	// The staff entry survives a students-wide invalidation.
	v, err := store.GetOrCompute(context.Background(), keys[2], time.Minute, compute)
	require.NoError(t, err)
	assert.Equal(t, keys[2].String(), v)
}

func TestInvalidateOpScopedToBranch(t *testing.T) {
	store, _ := newTestStore()

	private := NewKey("ledger-summary", "Private", "current")
	academy := NewKey("ledger-summary", "Academy", "current")
	for _, k := range []Key{private, academy} {
		k := k
		_, err := store.GetOrCompute(context.Background(), k, time.Minute, func(ctx context.Context) (any, error) {
			return k.Branch, nil
		})
		require.NoError(t, err)
	}

	store.InvalidateOp("ledger-summary", "Private")

	var calls int32
	compute := func(ctx context.Context) (any, error) {
		atomic.AddInt32(&calls, 1)
		return "recomputed", nil
	}
	v, err := store.GetOrCompute(context.Background(), academy, time.Minute, compute)
	require.NoError(t, err)
	assert.Equal(t, "Academy", v)
	assert.Zero(t, atomic.LoadInt32(&calls))

	_, err = store.GetOrCompute(context.Background(), private, time.Minute, compute)
	require.NoError(t, err)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestClearDropsEverything(t *testing.T) {
	store, _ := newTestStore()

	for _, op := range []string{"summary-overview", "calendar", "balance"} {
		op := op
		_, err := store.GetOrCompute(context.Background(), NewKey(op, "Private", ""), time.Minute, func(ctx context.Context) (any, error) {
			return op, nil
		})
		require.NoError(t, err)
	}
	require.Equal(t, 3, store.GetStats().Entries)

	store.Clear()
	assert.Zero(t, store.GetStats().Entries)
}

func TestFailedComputeServesStaleValue(t *testing.T) {
	store, clock := newTestStore()
	key := NewKey("balance", "Highschool", "")

	_, err := store.GetOrCompute(context.Background(), key, 20*time.Second, func(ctx context.Context) (any, error) {
		return "500", nil
	})
	require.NoError(t, err)

	clock.Advance(time.Minute)

	// The refresh fails but a prior value exists: serve it, no error surfaced.
	v, err := store.GetOrCompute(context.Background(), key, 20*time.Second, func(ctx context.Context) (any, error) {
		return nil, errors.New("sheet unreachable")
	})
	require.NoError(t, err)
	assert.Equal(t, "500", v)
	assert.EqualValues(t, 1, store.GetStats().StaleServes)
}

func TestFailedComputeWithNoPriorValuePropagates(t *testing.T) {
	store, _ := newTestStore()
	key := NewKey("balance", "Academy", "")

	wantErr := errors.New("sheet unreachable")
	_, err := store.GetOrCompute(context.Background(), key, time.Minute, func(ctx context.Context) (any, error) {
		return nil, wantErr
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, wantErr)
	assert.Zero(t, store.GetStats().Entries, "failed compute must not store anything")
}

func TestForceRefreshKeepsPreviousValueOnFailure(t *testing.T) {
	store, clock := newTestStore()
	key := NewKey("summary-overview", "", "")

	_, err := store.GetOrCompute(context.Background(), key, time.Minute, func(ctx context.Context) (any, error) {
		return "v1", nil
	})
	require.NoError(t, err)

	err = store.ForceRefresh(context.Background(), key, time.Minute, func(ctx context.Context) (any, error) {
		return nil, errors.New("boom")
	})
	require.Error(t, err)

	// Prior value still serves, even without a compute.
	clock.Advance(10 * time.Second)
	v, err := store.GetOrCompute(context.Background(), key, time.Minute, func(ctx context.Context) (any, error) {
		t.Fatal("must not recompute, prior entry is fresh")
		return nil, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "v1", v)
}

func TestForceRefreshOverwritesOnSuccess(t *testing.T) {
	store, _ := newTestStore()
	key := NewKey("summary-metric", "", "")

	_, err := store.GetOrCompute(context.Background(), key, time.Minute, func(ctx context.Context) (any, error) {
		return "old", nil
	})
	require.NoError(t, err)

	err = store.ForceRefresh(context.Background(), key, time.Minute, func(ctx context.Context) (any, error) {
		return "new", nil
	})
	require.NoError(t, err)

	v, err := store.GetOrCompute(context.Background(), key, time.Minute, func(ctx context.Context) (any, error) {
		t.Fatal("must serve the refreshed entry")
		return nil, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "new", v)
}

func TestConcurrentMissesCollapseToSingleFetch(t *testing.T) {
	store, _ := newTestStore()
	key := NewKey("breakdown", "Private", "today")

	var calls int32
	release := make(chan struct{})
	compute := func(ctx context.Context) (any, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return "records", nil
	}

	const callers = 16
	var wg sync.WaitGroup
	results := make([]any, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = store.GetOrCompute(context.Background(), key, time.Minute, compute)
		}(i)
	}

	// Let every goroutine reach the store before the fetch completes.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.EqualValues(t, 1, atomic.LoadInt32(&calls), "concurrent misses must collapse into one fetch")
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, "records", results[i])
	}
}

func TestKeyEquality(t *testing.T) {
	a := NewKey("breakdown", "Private", "today", "page", "1")
	b := NewKey("breakdown", "Private", "today", "page", "1")
	c := NewKey("breakdown", "Private", "month", "page", "1")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Equal(t, "breakdown|Private|today|page/1", a.String())
}

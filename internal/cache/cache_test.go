package cache

import (
	"context"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type result struct {
	Text string `json:"text"`
	N    int    `json:"n"`
}

func TestGetOrCompute_SingleFlight(t *testing.T) {
	c := New[result](NewMemoryStore[result](16, time.Minute))
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	var calls atomic.Int32
	release := make(chan struct{})
	compute := func(ctx context.Context) (result, error) {
		n := calls.Add(1)
		<-release
		return result{Text: "review", N: int(n)}, nil
	}

	const callers = 20
	var wg sync.WaitGroup
	results := make([]result, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = c.GetOrCompute(context.Background(), "fp", compute)
		}(i)
	}

	// Let every caller join the flight before it completes.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, result{Text: "review", N: 1}, results[i])
	}
	assert.Equal(t, int64(1), c.Stats().Computes)
}

func TestGetOrCompute_DifferentKeysRunInParallel(t *testing.T) {
	c := New[result](NewMemoryStore[result](16, time.Minute))

	var started sync.WaitGroup
	started.Add(2)
	compute := func(ctx context.Context) (result, error) {
		started.Done()
		// Each computation waits for the other to start; serialized keys
		// would deadlock here and hit the timeout below.
		done := make(chan struct{})
		go func() { started.Wait(); close(done) }()
		select {
		case <-done:
			return result{Text: "ok"}, nil
		case <-time.After(2 * time.Second):
			return result{}, errors.New("keys were serialized")
		}
	}

	var wg sync.WaitGroup
	for _, key := range []string{"a", "b"} {
		wg.Add(1)
		go func(key string) {
			defer wg.Done()
			_, err := c.GetOrCompute(context.Background(), key, compute)
			assert.NoError(t, err)
		}(key)
	}
	wg.Wait()
}

func TestGetOrCompute_HitAfterCompute(t *testing.T) {
	c := New[result](NewMemoryStore[result](16, time.Minute))
	calls := 0
	compute := func(ctx context.Context) (result, error) {
		calls++
		return result{Text: "x"}, nil
	}

	_, err := c.GetOrCompute(context.Background(), "k", compute)
	require.NoError(t, err)
	_, err = c.GetOrCompute(context.Background(), "k", compute)
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
	stats := c.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, 1, c.Len(context.Background()))
}

func TestGetOrCompute_ErrorsAreNotStored(t *testing.T) {
	c := New[result](NewMemoryStore[result](16, time.Minute))
	boom := errors.New("upstream down")
	calls := 0
	compute := func(ctx context.Context) (result, error) {
		calls++
		if calls == 1 {
			return result{}, boom
		}
		return result{Text: "second"}, nil
	}

	_, err := c.GetOrCompute(context.Background(), "k", compute)
	assert.ErrorIs(t, err, boom)

	got, err := c.GetOrCompute(context.Background(), "k", compute)
	require.NoError(t, err)
	assert.Equal(t, "second", got.Text)
	assert.Equal(t, 2, calls)
}

func TestGetOrCompute_StorePredicate(t *testing.T) {
	c := New[result](NewMemoryStore[result](16, time.Minute),
		WithStorePredicate(func(r result) bool { return r.N > 0 }))
	calls := 0
	compute := func(ctx context.Context) (result, error) {
		calls++
		return result{Text: "degraded"}, nil
	}

	for i := 0; i < 2; i++ {
		got, err := c.GetOrCompute(context.Background(), "k", compute)
		require.NoError(t, err)
		assert.Equal(t, "degraded", got.Text)
	}
	assert.Equal(t, 2, calls)
	assert.Equal(t, 0, c.Len(context.Background()))
}

func TestGetOrCompute_CanceledCallerDoesNotStopComputation(t *testing.T) {
	c := New[result](NewMemoryStore[result](16, time.Minute))
	release := make(chan struct{})
	var sawCancel atomic.Bool
	compute := func(ctx context.Context) (result, error) {
		<-release
		sawCancel.Store(ctx.Err() != nil)
		return result{Text: "finished"}, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	canceledErr := make(chan error, 1)
	go func() {
		_, err := c.GetOrCompute(ctx, "k", compute)
		canceledErr <- err
	}()

	waiter := make(chan result, 1)
	go func() {
		time.Sleep(20 * time.Millisecond)
		r, err := c.GetOrCompute(context.Background(), "k", compute)
		assert.NoError(t, err)
		waiter <- r
	}()

	time.Sleep(40 * time.Millisecond)
	cancel()
	select {
	case err := <-canceledErr:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("canceled caller kept waiting")
	}

	close(release)
	select {
	case r := <-waiter:
		assert.Equal(t, "finished", r.Text)
	case <-time.After(time.Second):
		t.Fatal("waiter never received the shared result")
	}
	assert.False(t, sawCancel.Load())

	got, ok, err := c.store.Get(context.Background(), "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "finished", got.Text)
}

func TestGetOrCompute_AlreadyCanceled(t *testing.T) {
	c := New[result](NewMemoryStore[result](16, time.Minute))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.GetOrCompute(ctx, "k", func(context.Context) (result, error) {
		t.Fatal("compute must not run")
		return result{}, nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMemoryStore_TTLExpiry(t *testing.T) {
	c := New[result](NewMemoryStore[result](16, 30*time.Millisecond))
	calls := 0
	compute := func(ctx context.Context) (result, error) {
		calls++
		return result{N: calls}, nil
	}

	first, err := c.GetOrCompute(context.Background(), "k", compute)
	require.NoError(t, err)
	time.Sleep(60 * time.Millisecond)
	second, err := c.GetOrCompute(context.Background(), "k", compute)
	require.NoError(t, err)

	assert.Equal(t, 1, first.N)
	assert.Equal(t, 2, second.N)
}

func TestMemoryStore_CapacityEvictsLeastRecent(t *testing.T) {
	store := NewMemoryStore[result](2, time.Minute)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "a", result{N: 1}))
	require.NoError(t, store.Set(ctx, "b", result{N: 2}))
	_, _, _ = store.Get(ctx, "a") // a becomes most recent
	require.NoError(t, store.Set(ctx, "c", result{N: 3}))

	_, okA, _ := store.Get(ctx, "a")
	_, okB, _ := store.Get(ctx, "b")
	_, okC, _ := store.Get(ctx, "c")
	assert.True(t, okA)
	assert.False(t, okB)
	assert.True(t, okC)
	assert.Equal(t, 2, store.Len(ctx))
}

func TestRedisStore_RoundTrip(t *testing.T) {
	url := os.Getenv("SMARTREVIEW_TEST_REDIS_URL")
	if url == "" {
		t.Skip("SMARTREVIEW_TEST_REDIS_URL not set")
	}
	ctx := context.Background()
	rdb, err := ConnectRedis(ctx, url)
	require.NoError(t, err)
	defer rdb.Close()

	prefix := "smartreview:test:" + time.Now().Format("150405.000000") + ":"
	store := NewRedisStore[result](rdb, prefix, time.Minute)

	_, ok, err := store.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Set(ctx, "k", result{Text: "hi", N: 3}))
	got, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, result{Text: "hi", N: 3}, got)
	assert.Equal(t, 1, store.Len(ctx))
}

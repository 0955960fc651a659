package idgen_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/EgorLis/nearby/internal/idgen"
	memkv "github.com/EgorLis/nearby/internal/infra/cache/memory"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

func TestNextIDLayout(t *testing.T) {
	ctx := context.Background()
	kv := memkv.New()

	epoch := time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)
	now := epoch.Add(100 * time.Second)
	w := idgen.NewWithClock(kv, fixedClock{t: now})

	id, err := w.NextID(ctx, "order")
	require.NoError(t, err)
	require.EqualValues(t, 100<<32|1, id)

	id, err = w.NextID(ctx, "order")
	require.NoError(t, err)
	require.EqualValues(t, 100<<32|2, id)
}

func TestNextIDCountersIsolatedByTag(t *testing.T) {
	ctx := context.Background()
	kv := memkv.New()

	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	w := idgen.NewWithClock(kv, fixedClock{t: now})

	a, err := w.NextID(ctx, "order")
	require.NoError(t, err)
	b, err := w.NextID(ctx, "blog")
	require.NoError(t, err)

	// у каждого тега свой счётчик: оба начинают с 1
	require.EqualValues(t, 1, a&0xFFFFFFFF)
	require.EqualValues(t, 1, b&0xFFFFFFFF)
}

func TestNextIDCounterResetsDaily(t *testing.T) {
	ctx := context.Background()
	kv := memkv.New()

	day1 := time.Date(2024, 6, 1, 23, 59, 59, 0, time.UTC)
	day2 := time.Date(2024, 6, 2, 0, 0, 1, 0, time.UTC)

	w1 := idgen.NewWithClock(kv, fixedClock{t: day1})
	w2 := idgen.NewWithClock(kv, fixedClock{t: day2})

	for i := 0; i < 5; i++ {
		_, err := w1.NextID(ctx, "order")
		require.NoError(t, err)
	}
	id, err := w2.NextID(ctx, "order")
	require.NoError(t, err)
	require.EqualValues(t, 1, id&0xFFFFFFFF)
}

func TestNextIDConcurrentUnique(t *testing.T) {
	ctx := context.Background()
	kv := memkv.New()
	w := idgen.New(kv)

	const workers = 20
	const perWorker = 200

	var mu sync.Mutex
	seen := make(map[int64]struct{}, workers*perWorker)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				id, err := w.NextID(ctx, "order")
				require.NoError(t, err)
				mu.Lock()
				seen[id] = struct{}{}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Len(t, seen, workers*perWorker)
}

func TestNextIDMonotonicAcrossSeconds(t *testing.T) {
	ctx := context.Background()
	kv := memkv.New()

	base := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	w1 := idgen.NewWithClock(kv, fixedClock{t: base})
	w2 := idgen.NewWithClock(kv, fixedClock{t: base.Add(time.Second)})

	early, err := w1.NextID(ctx, "order")
	require.NoError(t, err)
	late, err := w2.NextID(ctx, "order")
	require.NoError(t, err)

	require.Greater(t, late, early)
}

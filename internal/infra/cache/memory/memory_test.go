package memkv_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/EgorLis/nearby/internal/domain"
	memkv "github.com/EgorLis/nearby/internal/infra/cache/memory"
)

func TestGetSetTTL(t *testing.T) {
	ctx := context.Background()
	kv := memkv.New()

	_, err := kv.Get(ctx, "missing")
	require.ErrorIs(t, err, domain.ErrCacheMiss)

	require.NoError(t, kv.Set(ctx, "k", []byte("v"), 20*time.Millisecond))
	b, err := kv.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, []byte("v"), b)

	time.Sleep(30 * time.Millisecond)
	_, err = kv.Get(ctx, "k")
	require.ErrorIs(t, err, domain.ErrCacheMiss)
}

func TestEmptyValueIsNotAMiss(t *testing.T) {
	ctx := context.Background()
	kv := memkv.New()

	// пустое значение (null-маркер) отличимо от отсутствия ключа
	require.NoError(t, kv.Set(ctx, "marker", nil, 0))
	b, err := kv.Get(ctx, "marker")
	require.NoError(t, err)
	require.Empty(t, b)
}

func TestSetNXAndCompareDel(t *testing.T) {
	ctx := context.Background()
	kv := memkv.New()

	ok, err := kv.SetNX(ctx, "lock:x", []byte("a"), time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = kv.SetNX(ctx, "lock:x", []byte("b"), time.Minute)
	require.NoError(t, err)
	require.False(t, ok)

	// чужое значение не удаляет
	ok, err = kv.CompareDel(ctx, "lock:x", []byte("b"))
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = kv.CompareDel(ctx, "lock:x", []byte("a"))
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = kv.SetNX(ctx, "lock:x", []byte("b"), time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestIncr(t *testing.T) {
	ctx := context.Background()
	kv := memkv.New()

	for want := int64(1); want <= 3; want++ {
		n, err := kv.Incr(ctx, "counter")
		require.NoError(t, err)
		require.Equal(t, want, n)
	}
}

func TestZRevRangeByScorePaging(t *testing.T) {
	ctx := context.Background()
	kv := memkv.New()

	require.NoError(t, kv.ZAdd(ctx, "z", "a", 1))
	require.NoError(t, kv.ZAdd(ctx, "z", "b", 2))
	require.NoError(t, kv.ZAdd(ctx, "z", "c", 3))
	require.NoError(t, kv.ZAdd(ctx, "z", "d", 3))

	// по убыванию score, на равных — по member
	zs, err := kv.ZRevRangeByScore(ctx, "z", 3, 0, 0, 10)
	require.NoError(t, err)
	require.Len(t, zs, 4)
	require.Equal(t, "d", zs[0].Member)
	require.Equal(t, "c", zs[1].Member)
	require.Equal(t, "b", zs[2].Member)
	require.Equal(t, "a", zs[3].Member)

	// max отрезает сверху, offset пропускает
	zs, err = kv.ZRevRangeByScore(ctx, "z", 2, 0, 1, 10)
	require.NoError(t, err)
	require.Len(t, zs, 1)
	require.Equal(t, "a", zs[0].Member)

	// offset за пределами — пусто
	zs, err = kv.ZRevRangeByScore(ctx, "z", 3, 0, 10, 10)
	require.NoError(t, err)
	require.Empty(t, zs)
}

func TestZScoreZRemZRange(t *testing.T) {
	ctx := context.Background()
	kv := memkv.New()

	require.NoError(t, kv.ZAdd(ctx, "liked", "7", 100))
	require.NoError(t, kv.ZAdd(ctx, "liked", "8", 50))

	score, ok, err := kv.ZScore(ctx, "liked", "7")
	require.NoError(t, err)
	require.True(t, ok)
	require.EqualValues(t, 100, score)

	_, ok, err = kv.ZScore(ctx, "liked", "9")
	require.NoError(t, err)
	require.False(t, ok)

	members, err := kv.ZRange(ctx, "liked", 0, 4)
	require.NoError(t, err)
	require.Equal(t, []string{"8", "7"}, members)

	require.NoError(t, kv.ZRem(ctx, "liked", "7"))
	_, ok, err = kv.ZScore(ctx, "liked", "7")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestGeoSearchRadiusAndOrder(t *testing.T) {
	ctx := context.Background()
	kv := memkv.New()

	require.NoError(t, kv.GeoAdd(ctx, "geo", "near", 120.15, 30.28))
	require.NoError(t, kv.GeoAdd(ctx, "geo", "nearer", 120.1501, 30.2801))
	require.NoError(t, kv.GeoAdd(ctx, "geo", "far", 121.5, 31.2))

	points, err := kv.GeoSearch(ctx, "geo", 120.1501, 30.2801, 5000, 10)
	require.NoError(t, err)
	require.Len(t, points, 2)
	require.Equal(t, "nearer", points[0].Member)
	require.Equal(t, "near", points[1].Member)
}

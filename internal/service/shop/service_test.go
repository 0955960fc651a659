package shop_test

import (
	"context"
	"io"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/EgorLis/nearby/internal/cache"
	"github.com/EgorLis/nearby/internal/domain"
	memkv "github.com/EgorLis/nearby/internal/infra/cache/memory"
	shopsvc "github.com/EgorLis/nearby/internal/service/shop"
)

type fakeShops struct {
	mu        sync.Mutex
	shops     map[domain.ShopID]domain.Shop
	types     []domain.ShopType
	loadCalls int
}

func newFakeShops() *fakeShops {
	return &fakeShops{
		shops: map[domain.ShopID]domain.Shop{
			1: {ID: 1, Name: "coffee corner", TypeID: 1, X: 120.149, Y: 30.28},
			2: {ID: 2, Name: "old bakery", TypeID: 1, X: 120.15, Y: 30.281},
			3: {ID: 3, Name: "far diner", TypeID: 1, X: 121.5, Y: 31.2},
		},
		types: []domain.ShopType{
			{ID: 1, Name: "food", Sort: 1},
			{ID: 2, Name: "ktv", Sort: 2},
		},
	}
}

func (f *fakeShops) ShopByID(_ context.Context, id domain.ShopID) (domain.Shop, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loadCalls++
	sh, ok := f.shops[id]
	if !ok {
		return domain.Shop{}, domain.ErrNotFound
	}
	return sh, nil
}

func (f *fakeShops) ShopsByType(_ context.Context, typeID int64, offset, limit int) ([]domain.Shop, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Shop
	for id := domain.ShopID(1); id <= domain.ShopID(len(f.shops)); id++ {
		if sh, ok := f.shops[id]; ok && sh.TypeID == typeID {
			out = append(out, sh)
		}
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeShops) ShopsByIDs(_ context.Context, ids []domain.ShopID) ([]domain.Shop, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Shop, 0, len(ids))
	for _, id := range ids {
		if sh, ok := f.shops[id]; ok {
			out = append(out, sh)
		}
	}
	return out, nil
}

func (f *fakeShops) UpdateShop(_ context.Context, sh domain.Shop) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.shops[sh.ID]; !ok {
		return domain.ErrNotFound
	}
	f.shops[sh.ID] = sh
	return nil
}

func (f *fakeShops) ShopTypes(_ context.Context) ([]domain.ShopType, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.ShopType(nil), f.types...), nil
}

func (f *fakeShops) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loadCalls
}

func newService(t *testing.T) (*shopsvc.Service, *fakeShops, *memkv.KV) {
	t.Helper()
	kv := memkv.New()
	cc := cache.New(kv, log.New(io.Discard, "", 0))
	t.Cleanup(cc.Close)
	shops := newFakeShops()
	return shopsvc.New(shops, cc, kv, log.New(io.Discard, "", 0)), shops, kv
}

func TestShopColdStartWarmsKey(t *testing.T) {
	ctx := context.Background()
	s, shops, _ := newService(t)

	sh, err := s.Shop(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, "coffee corner", sh.Name)
	require.Equal(t, 1, shops.calls())

	// второе чтение — из кеша
	sh, err = s.Shop(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, "coffee corner", sh.Name)
	require.Equal(t, 1, shops.calls())
}

func TestShopUnknown(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newService(t)

	_, err := s.Shop(ctx, 404)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUpdateInvalidatesCache(t *testing.T) {
	ctx := context.Background()
	s, _, kv := newService(t)

	sh, err := s.Shop(ctx, 1)
	require.NoError(t, err)

	sh.Name = "renamed"
	require.NoError(t, s.Update(ctx, sh))

	_, err = kv.Get(ctx, domain.CacheKeyShop(1))
	require.ErrorIs(t, err, domain.ErrCacheMiss)

	got, err := s.Shop(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, "renamed", got.Name)
}

func TestUpdateRequiresID(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newService(t)

	err := s.Update(ctx, domain.Shop{Name: "no id"})
	require.ErrorIs(t, err, domain.ErrBadParams)
}

func TestTypesCachedAfterFirstRead(t *testing.T) {
	ctx := context.Background()
	s, shops, _ := newService(t)

	types, err := s.Types(ctx)
	require.NoError(t, err)
	require.Len(t, types, 2)

	// правка источника не видна до истечения кеша
	shops.mu.Lock()
	shops.types = append(shops.types, domain.ShopType{ID: 3, Name: "bar"})
	shops.mu.Unlock()

	types, err = s.Types(ctx)
	require.NoError(t, err)
	require.Len(t, types, 2)
}

func TestByTypeWithoutCoordsPagesFromRepo(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newService(t)

	shops, err := s.ByType(ctx, 1, 1, nil, nil)
	require.NoError(t, err)
	require.Len(t, shops, 3)
}

func TestByTypeGeoSortedByDistance(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newService(t)

	// гео-индекс наполняется прогревом
	for _, id := range []domain.ShopID{1, 2, 3} {
		require.NoError(t, s.Warm(ctx, id, 30*time.Minute))
	}

	x, y := 120.149, 30.28 // точка рядом с первым заведением
	got, err := s.ByType(ctx, 1, 1, &x, &y)
	require.NoError(t, err)

	// дальний за радиусом 5км отрезан, ближайший первым
	require.Len(t, got, 2)
	require.EqualValues(t, 1, got[0].ID)
	require.EqualValues(t, 2, got[1].ID)
	require.Zero(t, got[0].Distance)
	require.Greater(t, got[1].Distance, 0.0)
}

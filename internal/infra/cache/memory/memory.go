package memkv

import (
	"context"
	"math"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/EgorLis/nearby/internal/domain"
)

// KV — in-process реализация порта domain.KV с теми же контрактами,
// что и Redis-адаптер (TTL, атомарные SETNX/CompareDel/INCR, sorted set'ы).
// Используется в тестах и для локальной разработки без Redis.
type KV struct {
	mu    sync.Mutex
	items map[string]item
	zsets map[string]map[string]float64
	geo   map[string]map[string][2]float64
}

type item struct {
	val      []byte
	expireAt time.Time // zero — без истечения
}

func New() *KV {
	return &KV{
		items: make(map[string]item),
		zsets: make(map[string]map[string]float64),
		geo:   make(map[string]map[string][2]float64),
	}
}

func (k *KV) expired(it item) bool {
	return !it.expireAt.IsZero() && time.Now().After(it.expireAt)
}

func (k *KV) Get(_ context.Context, key string) ([]byte, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	it, ok := k.items[key]
	if !ok || k.expired(it) {
		delete(k.items, key)
		return nil, domain.ErrCacheMiss
	}
	out := make([]byte, len(it.val))
	copy(out, it.val)
	return out, nil
}

func (k *KV) Set(_ context.Context, key string, val []byte, ttl time.Duration) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.set(key, val, ttl)
	return nil
}

func (k *KV) set(key string, val []byte, ttl time.Duration) {
	it := item{val: append([]byte(nil), val...)}
	if ttl > 0 {
		it.expireAt = time.Now().Add(ttl)
	}
	k.items[key] = it
}

func (k *KV) SetNX(_ context.Context, key string, val []byte, ttl time.Duration) (bool, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if it, ok := k.items[key]; ok && !k.expired(it) {
		return false, nil
	}
	k.set(key, val, ttl)
	return true, nil
}

func (k *KV) CompareDel(_ context.Context, key string, expected []byte) (bool, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	it, ok := k.items[key]
	if !ok || k.expired(it) || string(it.val) != string(expected) {
		return false, nil
	}
	delete(k.items, key)
	return true, nil
}

func (k *KV) Del(_ context.Context, keys ...string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	for _, key := range keys {
		delete(k.items, key)
		delete(k.zsets, key)
		delete(k.geo, key)
	}
	return nil
}

func (k *KV) Incr(_ context.Context, key string) (int64, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	var n int64
	if it, ok := k.items[key]; ok && !k.expired(it) {
		n, _ = strconv.ParseInt(string(it.val), 10, 64)
	}
	n++
	k.items[key] = item{val: []byte(strconv.FormatInt(n, 10))}
	return n, nil
}

func (k *KV) Expire(_ context.Context, key string, ttl time.Duration) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if it, ok := k.items[key]; ok && !k.expired(it) {
		it.expireAt = time.Now().Add(ttl)
		k.items[key] = it
	}
	return nil
}

func (k *KV) ZAdd(_ context.Context, key, member string, score float64) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	zs, ok := k.zsets[key]
	if !ok {
		zs = make(map[string]float64)
		k.zsets[key] = zs
	}
	zs[member] = score
	return nil
}

func (k *KV) ZRem(_ context.Context, key, member string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if zs, ok := k.zsets[key]; ok {
		delete(zs, member)
	}
	return nil
}

func (k *KV) ZScore(_ context.Context, key, member string) (float64, bool, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	zs, ok := k.zsets[key]
	if !ok {
		return 0, false, nil
	}
	score, ok := zs[member]
	return score, ok, nil
}

func (k *KV) sorted(key string, desc bool) []domain.ZMember {
	zs := k.zsets[key]
	out := make([]domain.ZMember, 0, len(zs))
	for m, s := range zs {
		out = append(out, domain.ZMember{Member: m, Score: s})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			if desc {
				return out[i].Score > out[j].Score
			}
			return out[i].Score < out[j].Score
		}
		// на равных score Redis упорядочивает по member
		if desc {
			return out[i].Member > out[j].Member
		}
		return out[i].Member < out[j].Member
	})
	return out
}

func (k *KV) ZRange(_ context.Context, key string, start, stop int64) ([]string, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	all := k.sorted(key, false)
	if stop < 0 {
		stop = int64(len(all)) + stop
	}
	var out []string
	for i, z := range all {
		if int64(i) >= start && int64(i) <= stop {
			out = append(out, z.Member)
		}
	}
	return out, nil
}

func (k *KV) ZRevRangeByScore(_ context.Context, key string, max, min float64, offset, count int64) ([]domain.ZMember, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	var matched []domain.ZMember
	for _, z := range k.sorted(key, true) {
		if z.Score <= max && z.Score >= min {
			matched = append(matched, z)
		}
	}
	if offset >= int64(len(matched)) {
		return nil, nil
	}
	matched = matched[offset:]
	if count > 0 && int64(len(matched)) > count {
		matched = matched[:count]
	}
	return matched, nil
}

func (k *KV) GeoAdd(_ context.Context, key, member string, x, y float64) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	g, ok := k.geo[key]
	if !ok {
		g = make(map[string][2]float64)
		k.geo[key] = g
	}
	g[member] = [2]float64{x, y}
	return nil
}

func (k *KV) GeoSearch(_ context.Context, key string, x, y, radiusM float64, limit int64) ([]domain.GeoPoint, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	var out []domain.GeoPoint
	for m, coord := range k.geo[key] {
		d := haversineM(y, x, coord[1], coord[0])
		if d <= radiusM {
			out = append(out, domain.GeoPoint{Member: m, Distance: d})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Distance < out[j].Distance })
	if limit > 0 && int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (k *KV) Ping(context.Context) error { return nil }
func (k *KV) Close()                     {}

func haversineM(lat1, lon1, lat2, lon2 float64) float64 {
	const r = 6371000.0
	rad := math.Pi / 180
	dLat := (lat2 - lat1) * rad
	dLon := (lon2 - lon1) * rad
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*rad)*math.Cos(lat2*rad)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * r * math.Asin(math.Sqrt(a))
}

package domain

import (
	"context"
	"time"
)

// ZMember — элемент sorted set'а вместе со счётом.
type ZMember struct {
	Member string
	Score  float64
}

// GeoPoint — результат гео-поиска: элемент и дистанция в метрах.
type GeoPoint struct {
	Member   string
	Distance float64
}

// KV — порт key-value store (реализация — Redis, для тестов — in-memory).
// Слой НЕ ретраит: любая ошибка стора оборачивает ErrStoreUnavailable
// и уходит вызывающему как есть.
type KV interface {
	// Get возвращает ErrCacheMiss, если ключа нет. Пустое значение при
	// существующем ключе — валидный ответ (null-маркер кеша).
	Get(ctx context.Context, key string) ([]byte, error)
	// Set с ttl<=0 пишет без истечения.
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
	// SetNX атомарно: false — ключ уже существует.
	SetNX(ctx context.Context, key string, val []byte, ttl time.Duration) (bool, error)
	// CompareDel атомарно удаляет ключ, только если хранимое значение равно
	// expected (один серверный round trip, без check-then-act гонки).
	CompareDel(ctx context.Context, key string, expected []byte) (bool, error)
	Del(ctx context.Context, keys ...string) error
	Incr(ctx context.Context, key string) (int64, error)
	Expire(ctx context.Context, key string, ttl time.Duration) error

	ZAdd(ctx context.Context, key, member string, score float64) error
	ZRem(ctx context.Context, key, member string) error
	// ZScore возвращает (0, false, nil), если member отсутствует.
	ZScore(ctx context.Context, key, member string) (float64, bool, error)
	// ZRange — первые count элементов по возрастанию счёта (для топа лайков).
	ZRange(ctx context.Context, key string, start, stop int64) ([]string, error)
	// ZRevRangeByScore — элементы со score в [min, max] по убыванию,
	// пропустив offset штук с границы (WITHSCORES LIMIT offset count).
	ZRevRangeByScore(ctx context.Context, key string, max, min float64, offset, count int64) ([]ZMember, error)

	GeoAdd(ctx context.Context, key, member string, x, y float64) error
	// GeoSearch — до limit ближайших к (x, y) в радиусе radiusM метров,
	// отсортированных по дистанции.
	GeoSearch(ctx context.Context, key string, x, y, radiusM float64, limit int64) ([]GeoPoint, error)

	Ping(ctx context.Context) error
	Close()
}

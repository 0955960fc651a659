package redisx

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/EgorLis/nearby/internal/domain"
)

// Адаптер Redis под порт domain.KV. Ретраев нет: любая ошибка стора
// оборачивается в domain.ErrStoreUnavailable и уходит наверх.

type KV struct {
	rdb    *redis.Client
	logger *log.Logger
}

type Config struct {
	Addr     string
	DB       int
	Password string
}

// compareDelScript атомарно сравнивает значение и удаляет ключ одним
// серверным вызовом (как unlock.lua у SETNX-блокировок).
var compareDelScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
    return redis.call("del", KEYS[1])
end
return 0
`)

func New(cfg Config, logger *log.Logger) *KV {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		DB:       cfg.DB,
		Password: cfg.Password,
	})
	return &KV{rdb: rdb, logger: logger}
}

func storeErr(err error) error {
	return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
}

func (c *KV) Ping(ctx context.Context) error {
	err := c.rdb.Ping(ctx).Err()
	if err != nil {
		c.logger.Printf("PING failed: %v", err)
		return storeErr(err)
	}
	return nil
}

func (c *KV) Close() {
	if c.rdb == nil {
		c.logger.Println("nothing to close")
		return
	}

	if err := c.rdb.Close(); err != nil {
		c.logger.Printf("error while closing: %v", err)
		return
	}

	c.logger.Println("closed")
}

func (c *KV) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := c.rdb.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, domain.ErrCacheMiss
	}
	if err != nil {
		c.logger.Printf("GET %q: error: %v", key, err)
		return nil, storeErr(err)
	}
	return b, nil
}

func (c *KV) Set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	if err := c.rdb.Set(ctx, key, val, ttl).Err(); err != nil {
		c.logger.Printf("SET %q failed: %v", key, err)
		return storeErr(err)
	}
	return nil
}

func (c *KV) SetNX(ctx context.Context, key string, val []byte, ttl time.Duration) (bool, error) {
	if ttl < 0 {
		ttl = 0
	}
	ok, err := c.rdb.SetNX(ctx, key, val, ttl).Result()
	if err != nil {
		c.logger.Printf("SETNX %q failed: %v", key, err)
		return false, storeErr(err)
	}
	return ok, nil
}

func (c *KV) CompareDel(ctx context.Context, key string, expected []byte) (bool, error) {
	n, err := compareDelScript.Run(ctx, c.rdb, []string{key}, string(expected)).Int64()
	if err != nil {
		c.logger.Printf("CAD %q failed: %v", key, err)
		return false, storeErr(err)
	}
	return n == 1, nil
}

func (c *KV) Del(ctx context.Context, keys ...string) error {
	n, err := c.rdb.Del(ctx, keys...).Result()
	if err != nil {
		c.logger.Printf("DEL %v failed: %v", keys, err)
		return storeErr(err)
	}
	c.logger.Printf("DEL %v: deleted=%d", keys, n)
	return nil
}

func (c *KV) Incr(ctx context.Context, key string) (int64, error) {
	n, err := c.rdb.Incr(ctx, key).Result()
	if err != nil {
		c.logger.Printf("INCR %q failed: %v", key, err)
		return 0, storeErr(err)
	}
	return n, nil
}

func (c *KV) Expire(ctx context.Context, key string, ttl time.Duration) error {
	if err := c.rdb.Expire(ctx, key, ttl).Err(); err != nil {
		c.logger.Printf("EXPIRE %q failed: %v", key, err)
		return storeErr(err)
	}
	return nil
}

func (c *KV) ZAdd(ctx context.Context, key, member string, score float64) error {
	if err := c.rdb.ZAdd(ctx, key, redis.Z{Member: member, Score: score}).Err(); err != nil {
		c.logger.Printf("ZADD %q failed: %v", key, err)
		return storeErr(err)
	}
	return nil
}

func (c *KV) ZRem(ctx context.Context, key, member string) error {
	if err := c.rdb.ZRem(ctx, key, member).Err(); err != nil {
		c.logger.Printf("ZREM %q failed: %v", key, err)
		return storeErr(err)
	}
	return nil
}

func (c *KV) ZScore(ctx context.Context, key, member string) (float64, bool, error) {
	score, err := c.rdb.ZScore(ctx, key, member).Result()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		c.logger.Printf("ZSCORE %q failed: %v", key, err)
		return 0, false, storeErr(err)
	}
	return score, true, nil
}

func (c *KV) ZRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	members, err := c.rdb.ZRange(ctx, key, start, stop).Result()
	if err != nil {
		c.logger.Printf("ZRANGE %q failed: %v", key, err)
		return nil, storeErr(err)
	}
	return members, nil
}

func (c *KV) ZRevRangeByScore(ctx context.Context, key string, max, min float64, offset, count int64) ([]domain.ZMember, error) {
	zs, err := c.rdb.ZRevRangeByScoreWithScores(ctx, key, &redis.ZRangeBy{
		Max:    fmt.Sprintf("%f", max),
		Min:    fmt.Sprintf("%f", min),
		Offset: offset,
		Count:  count,
	}).Result()
	if err != nil {
		c.logger.Printf("ZREVRANGEBYSCORE %q failed: %v", key, err)
		return nil, storeErr(err)
	}
	out := make([]domain.ZMember, 0, len(zs))
	for _, z := range zs {
		out = append(out, domain.ZMember{Member: z.Member.(string), Score: z.Score})
	}
	return out, nil
}

func (c *KV) GeoAdd(ctx context.Context, key, member string, x, y float64) error {
	err := c.rdb.GeoAdd(ctx, key, &redis.GeoLocation{
		Name:      member,
		Longitude: x,
		Latitude:  y,
	}).Err()
	if err != nil {
		c.logger.Printf("GEOADD %q failed: %v", key, err)
		return storeErr(err)
	}
	return nil
}

func (c *KV) GeoSearch(ctx context.Context, key string, x, y, radiusM float64, limit int64) ([]domain.GeoPoint, error) {
	locs, err := c.rdb.GeoSearchLocation(ctx, key, &redis.GeoSearchLocationQuery{
		GeoSearchQuery: redis.GeoSearchQuery{
			Longitude:  x,
			Latitude:   y,
			Radius:     radiusM,
			RadiusUnit: "m",
			Sort:       "ASC",
			Count:      int(limit),
		},
		WithDist: true,
	}).Result()
	if err != nil {
		c.logger.Printf("GEOSEARCH %q failed: %v", key, err)
		return nil, storeErr(err)
	}
	out := make([]domain.GeoPoint, 0, len(locs))
	for _, l := range locs {
		// go-redis отдаёт дистанцию в указанных единицах (метры)
		out = append(out, domain.GeoPoint{Member: l.Name, Distance: l.Dist})
	}
	return out, nil
}

// Пакет cache — cache-aside поверх domain.KV с защитой от пробоя и
// прохода в источник истины:
//
//   - GetWithPassThrough: null-маркеры против «прохода» (penetration);
//   - GetWithMutex: восстановление под распределённой блокировкой,
//     ограниченный retry вместо рекурсии;
//   - GetWithLogicalExpire: логическое истечение, фоновая перестройка
//     на ограниченном пуле воркеров, чтение никогда не ждёт.
//
// Стратегия выбирается на тип ключа на этапе дизайна, не переключателем:
// shop — logical expire (горячие чтения, краткая несвежесть допустима),
// справочник типов — mutex, voucher — pass-through (несвежий остаток хуже
// короткой недоступности).
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"math/rand"
	"time"

	"github.com/EgorLis/nearby/internal/domain"
	"github.com/EgorLis/nearby/internal/lock"
)

const (
	// NullTTL — срок жизни null-маркера. Короче TTL реальных значений:
	// маркер должен лишь сбить шторм повторных запросов несуществующего id.
	NullTTL = 2 * time.Minute

	// TTL блокировки перестройки. Перестройка дольше — потеря эксклюзивности.
	rebuildLockTTL = 10 * time.Second

	// Ограниченный retry стратегии mutex.
	mutexAttempts = 10
	mutexBackoff  = 50 * time.Millisecond

	rebuildWorkers = 10
	rebuildQueue   = 64
	rebuildTimeout = 5 * time.Second
)

// Loader достаёт значение из источника истины.
// domain.ErrNotFound означает «подтверждённо отсутствует».
type Loader[T any] func(ctx context.Context) (T, error)

// redisData — конверт значения с логическим истечением.
type redisData struct {
	Data     json.RawMessage `json:"data"`
	ExpireAt time.Time       `json:"expire_at"`
}

type Client struct {
	kv     domain.KV
	logger *log.Logger
	clock  domain.Clock

	jobs chan func()
	done chan struct{}
}

func New(kv domain.KV, logger *log.Logger) *Client {
	return NewWithClock(kv, logger, domain.RealClock{})
}

func NewWithClock(kv domain.KV, logger *log.Logger, clock domain.Clock) *Client {
	c := &Client{
		kv:     kv,
		logger: logger,
		clock:  clock,
		jobs:   make(chan func(), rebuildQueue),
		done:   make(chan struct{}),
	}
	// Фиксированный пул: фоновые перестройки не плодят горутины под нагрузкой.
	for i := 0; i < rebuildWorkers; i++ {
		go c.worker()
	}
	return c
}

func (c *Client) worker() {
	for {
		select {
		case job := <-c.jobs:
			job()
		case <-c.done:
			return
		}
	}
}

// Close останавливает пул перестроек. Задачи в очереди не дожидаются.
func (c *Client) Close() { close(c.done) }

// Set пишет значение с физическим TTL (плюс джиттер против одновременного
// истечения соседних ключей).
func (c *Client) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.kv.Set(ctx, key, b, withJitter(ttl))
}

// SetWithLogicalExpire пишет значение без TTL стора, срок жизни — внутри.
func (c *Client) SetWithLogicalExpire(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	b, err := json.Marshal(redisData{Data: data, ExpireAt: c.clock.Now().Add(ttl)})
	if err != nil {
		return err
	}
	return c.kv.Set(ctx, key, b, 0)
}

// Invalidate удаляет запись (вызывается write-путями после обновления
// исходной записи: сначала БД, потом удаление кеша).
func (c *Client) Invalidate(ctx context.Context, key string) error {
	return c.kv.Del(ctx, key)
}

// GetWithPassThrough — чтение с защитой от прохода: на промахе зовём
// loader; отсутствие в источнике фиксируем null-маркером (пустое значение)
// с коротким TTL, чтобы повторные запросы несуществующего id не били в БД.
func GetWithPassThrough[T any](ctx context.Context, c *Client, key string, ttl time.Duration, load Loader[T]) (T, error) {
	var zero T

	b, err := c.kv.Get(ctx, key)
	switch {
	case err == nil:
		if len(b) == 0 {
			// null-маркер: подтверждённо отсутствует
			return zero, domain.ErrNotFound
		}
		var v T
		if uerr := json.Unmarshal(b, &v); uerr == nil {
			return v, nil
		}
		// битая запись — перечитываем источник ниже
		c.logger.Printf("corrupt cache entry %q, reloading", key)
	case errors.Is(err, domain.ErrCacheMiss):
		// реальный промах — идём в источник
	default:
		return zero, err
	}

	v, err := load(ctx)
	if errors.Is(err, domain.ErrNotFound) {
		if serr := c.kv.Set(ctx, key, nil, NullTTL); serr != nil {
			c.logger.Printf("set null marker %q failed: %v", key, serr)
		}
		return zero, domain.ErrNotFound
	}
	if err != nil {
		return zero, err
	}

	if serr := c.Set(ctx, key, v, ttl); serr != nil {
		c.logger.Printf("populate %q failed: %v", key, serr)
	}
	return v, nil
}

// GetWithMutex — как pass-through, но перестройку на промахе выполняет
// один победитель блокировки lock:<key>; проигравшие ждут фиксированный
// интервал и перечитывают. Попытки ограничены явным счётчиком.
func GetWithMutex[T any](ctx context.Context, c *Client, key string, ttl time.Duration, load Loader[T]) (T, error) {
	var zero T
	l := lock.New(c.kv, key)

	for attempt := 0; attempt < mutexAttempts; attempt++ {
		b, err := c.kv.Get(ctx, key)
		switch {
		case err == nil:
			if len(b) == 0 {
				return zero, domain.ErrNotFound
			}
			var v T
			if uerr := json.Unmarshal(b, &v); uerr == nil {
				return v, nil
			}
			c.logger.Printf("corrupt cache entry %q, rebuilding", key)
		case errors.Is(err, domain.ErrCacheMiss):
		default:
			return zero, err
		}

		token, err := l.TryLock(ctx, rebuildLockTTL)
		if errors.Is(err, domain.ErrLockUnavailable) {
			// кто-то уже перестраивает: подождать и перечитать
			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-time.After(mutexBackoff):
			}
			continue
		}
		if err != nil {
			return zero, err
		}

		v, err := func() (T, error) {
			defer func() {
				if uerr := l.Unlock(ctx, token); uerr != nil {
					c.logger.Printf("unlock %q failed: %v", key, uerr)
				}
			}()

			// DoubleCheck: пока брали блокировку, кеш могли заполнить
			if b, gerr := c.kv.Get(ctx, key); gerr == nil && len(b) > 0 {
				var v T
				if uerr := json.Unmarshal(b, &v); uerr == nil {
					return v, nil
				}
			}

			v, lerr := load(ctx)
			if errors.Is(lerr, domain.ErrNotFound) {
				if serr := c.kv.Set(ctx, key, nil, NullTTL); serr != nil {
					c.logger.Printf("set null marker %q failed: %v", key, serr)
				}
				return zero, domain.ErrNotFound
			}
			if lerr != nil {
				return zero, lerr
			}
			if serr := c.Set(ctx, key, v, ttl); serr != nil {
				c.logger.Printf("populate %q failed: %v", key, serr)
			}
			return v, nil
		}()
		return v, err
	}

	return zero, domain.ErrLockUnavailable
}

// GetWithLogicalExpire — чтение без задержек на перестройку: значение
// отдаётся сразу, даже логически истёкшее. Истёкший ключ перестраивает
// максимум один победитель блокировки, асинхронно на пуле; остальные
// продолжают отдавать несвежее значение до конца перестройки.
//
// Ключ обязан быть прогрет заранее (SetWithLogicalExpire): отсутствие в
// кеше — domain.ErrCacheMiss.
func GetWithLogicalExpire[T any](ctx context.Context, c *Client, key string, ttl time.Duration, load Loader[T]) (T, error) {
	var zero T

	b, err := c.kv.Get(ctx, key)
	if err != nil {
		return zero, err
	}

	var rd redisData
	if err := json.Unmarshal(b, &rd); err != nil {
		return zero, err
	}
	var v T
	if err := json.Unmarshal(rd.Data, &v); err != nil {
		return zero, err
	}

	if rd.ExpireAt.After(c.clock.Now()) {
		return v, nil
	}

	// Истекло: перестройку запускает только владелец блокировки.
	l := lock.New(c.kv, key)
	token, lerr := l.TryLock(ctx, rebuildLockTTL)
	if errors.Is(lerr, domain.ErrLockUnavailable) {
		return v, nil // перестройка уже идёт — отдаём несвежее
	}
	if lerr != nil {
		c.logger.Printf("rebuild lock %q failed: %v", key, lerr)
		return v, nil
	}

	job := func() {
		jctx, cancel := context.WithTimeout(context.Background(), rebuildTimeout)
		defer cancel()
		// Блокировка снимается всегда — и при успехе, и при ошибке загрузки.
		defer func() {
			if uerr := l.Unlock(jctx, token); uerr != nil {
				c.logger.Printf("rebuild unlock %q failed: %v", key, uerr)
			}
		}()

		// DoubleCheck: другой инстанс мог успеть до нас
		if b, gerr := c.kv.Get(jctx, key); gerr == nil {
			var cur redisData
			if uerr := json.Unmarshal(b, &cur); uerr == nil && cur.ExpireAt.After(c.clock.Now()) {
				return
			}
		}

		fresh, lerr := load(jctx)
		if lerr != nil {
			// ошибка фоновой перестройки не доходит до читателей
			c.logger.Printf("rebuild load %q failed: %v", key, lerr)
			return
		}
		if serr := c.SetWithLogicalExpire(jctx, key, fresh, ttl); serr != nil {
			c.logger.Printf("rebuild populate %q failed: %v", key, serr)
		}
	}

	select {
	case c.jobs <- job:
	default:
		// пул забит — снимаем блокировку и оставляем ключ несвежим
		if uerr := l.Unlock(ctx, token); uerr != nil {
			c.logger.Printf("unlock %q failed: %v", key, uerr)
		}
		c.logger.Printf("rebuild pool full, skip %q", key)
	}

	return v, nil
}

// withJitter добавляет до 10% к TTL, чтобы соседние ключи не истекали
// одним мгновением (лавина).
func withJitter(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return ttl
	}
	return ttl + time.Duration(rand.Int63n(int64(ttl)/10+1))
}

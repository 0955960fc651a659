// Пакет lock — взаимное исключение поверх общего key-value store.
// Ключ lock:<resource> ставится через SETNX с уникальным токеном держателя,
// снимается атомарным compare-and-delete. TTL — единственный таймаут:
// держатель, переживший TTL, теряет эксклюзивность (принятое ограничение,
// продления/heartbeat нет). Блокировка не реентерабельна.
package lock

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/EgorLis/nearby/internal/domain"
)

type Lock struct {
	kv       domain.KV
	resource string
}

func New(kv domain.KV, resource string) *Lock {
	return &Lock{kv: kv, resource: resource}
}

func (l *Lock) key() string { return domain.LockKey(l.resource) }

// TryLock пытается захватить ресурс ровно один раз. На контеншене сразу
// возвращает domain.ErrLockUnavailable, ждать — забота вызывающего.
// Возвращённый токен обязателен для Unlock.
func (l *Lock) TryLock(ctx context.Context, ttl time.Duration) (string, error) {
	token := uuid.NewString()
	ok, err := l.kv.SetNX(ctx, l.key(), []byte(token), ttl)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", domain.ErrLockUnavailable
	}
	return token, nil
}

// Unlock снимает блокировку, только если она всё ещё наша: сравнение
// токена и удаление — одна атомарная операция стора. Чужой или
// протухший токен — no-op (чтобы не снять блокировку нового держателя).
func (l *Lock) Unlock(ctx context.Context, token string) error {
	_, err := l.kv.CompareDel(ctx, l.key(), []byte(token))
	return err
}

// TryWithRetry — ограниченный цикл ожидания для вызывающих, которым нужна
// блокирующая семантика: attempts попыток с паузой backoff, после —
// ErrLockUnavailable. Никакой рекурсии без счётчика.
func TryWithRetry(ctx context.Context, l *Lock, ttl time.Duration, attempts int, backoff time.Duration) (string, error) {
	for i := 0; i < attempts; i++ {
		token, err := l.TryLock(ctx, ttl)
		if err == nil {
			return token, nil
		}
		if !errors.Is(err, domain.ErrLockUnavailable) {
			return "", err
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(backoff):
		}
	}
	return "", domain.ErrLockUnavailable
}

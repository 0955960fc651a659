package domain

import "errors"

// Бизнес-ошибки ядра. Это значения-результаты, не механизм управления
// потоком: каждый вызывающий решает сам, что с ними делать.
var (
	// ErrCacheMiss — ключа нет в кеше (и это не null-маркер). Наружу не выходит.
	ErrCacheMiss = errors.New("cache_miss")
	// ErrLockUnavailable — ресурс уже занят другим держателем.
	ErrLockUnavailable = errors.New("lock_unavailable")
	// ErrWindowNotOpen / ErrWindowClosed — запрос вне окна секкилла.
	ErrWindowNotOpen = errors.New("seckill_not_started")
	ErrWindowClosed  = errors.New("seckill_ended")
	// ErrOutOfStock — остаток исчерпан (в т.ч. проигрыш гонки за последнюю единицу).
	ErrOutOfStock = errors.New("out_of_stock")
	// ErrDuplicateOrder — заказ на пару (user, voucher) уже существует.
	ErrDuplicateOrder = errors.New("duplicate_order")
	// ErrStoreUnavailable — key-value store недоступен; внутри ядра не ретраим.
	ErrStoreUnavailable = errors.New("store_unavailable")
)

// Ошибки внешнего контура (маппятся на HTTP коды в transport/web)
var (
	ErrBadParams        = errors.New("bad_params")         // 400
	ErrUnauth           = errors.New("unauthorized")       // 401
	ErrNotFound         = errors.New("not_found")          // 404
	ErrMethodNotAllowed = errors.New("method_not_allowed") // 405
	ErrUnexpected       = errors.New("unexpected")         // 500
)

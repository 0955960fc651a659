package domain

import (
	"strconv"
	"time"
)

// Ключи кеша — единое место, чтобы не расползались по коду.
// Схема имён зафиксирована: её читают и внешние потребители стора.
func CacheKeyShop(id ShopID) string       { return "cache:shop:" + strconv.FormatInt(id, 10) }
func CacheKeyShopTypes() string           { return "cache:shop-type:all" }
func CacheKeyVoucher(id VoucherID) string { return "cache:voucher:" + strconv.FormatInt(id, 10) }

// LockKey строит ключ для распределённой блокировки по имени ресурса.
// Кеш-стратегии блокируют прямо на кеш-ключе (lock:cache:shop:<id>),
// у секкилла ресурс свой — на пользователя.
func LockKey(resource string) string { return "lock:" + resource }

func LockResourceOrder(userID UserID) string {
	return "seckill:order:" + strconv.FormatInt(userID, 10)
}

// Счётчик генератора id: отдельный ключ на (тег, дата).
func IDCounterKey(tag string, day time.Time) string {
	return "icr:" + tag + ":" + day.UTC().Format("2006:01:02")
}

// Лента подписчика и лайки заметки — sorted set'ы.
func FeedKey(userID UserID) string     { return "feed:" + strconv.FormatInt(userID, 10) }
func BlogLikedKey(id BlogID) string    { return "blog:liked:" + strconv.FormatInt(id, 10) }
func ShopGeoKey(typeID int64) string   { return "shop:geo:" + strconv.FormatInt(typeID, 10) }
func LoginTokenKey(token string) string { return "login:token:" + token }
func LoginCodeKey(phone string) string  { return "login:code:" + phone }

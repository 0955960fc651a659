package domain

import (
	"context"
	"io"
	"time"
)

type UsersRepo interface {
	Close()
	Ping(context.Context) error
	// CreateUserByPhone находит или создаёт пользователя по телефону
	// (логин по коду: регистрация при первом входе).
	CreateUserByPhone(ctx context.Context, phone string) (User, error)
	UserByID(ctx context.Context, id UserID) (User, error)
	// UsersByIDs сохраняет порядок переданных id.
	UsersByIDs(ctx context.Context, ids []UserID) ([]User, error)
}

type ShopsRepo interface {
	ShopByID(ctx context.Context, id ShopID) (Shop, error)
	ShopsByType(ctx context.Context, typeID int64, offset, limit int) ([]Shop, error)
	// ShopsByIDs сохраняет порядок переданных id.
	ShopsByIDs(ctx context.Context, ids []ShopID) ([]Shop, error)
	UpdateShop(ctx context.Context, s Shop) error
	ShopTypes(ctx context.Context) ([]ShopType, error)
}

type VouchersRepo interface {
	VoucherByID(ctx context.Context, id VoucherID) (Voucher, error)
	// DecrementStock — единственная операция, изменяющая остаток:
	// UPDATE ... SET stock = stock - 1 WHERE id = ? AND stock > 0.
	// false — условие не прошло (остаток уже исчерпан).
	DecrementStock(ctx context.Context, id VoucherID) (bool, error)
}

type OrdersRepo interface {
	OrderExists(ctx context.Context, userID UserID, voucherID VoucherID) (bool, error)
	CreateOrder(ctx context.Context, o Order) error
	OrderByID(ctx context.Context, id OrderID) (Order, error)
}

type FollowsRepo interface {
	Follow(ctx context.Context, userID, followUserID UserID) error
	Unfollow(ctx context.Context, userID, followUserID UserID) error
	IsFollowing(ctx context.Context, userID, followUserID UserID) (bool, error)
	// FollowerIDs — кто подписан на пользователя (для fan-out ленты).
	FollowerIDs(ctx context.Context, userID UserID) ([]UserID, error)
}

type BlogsRepo interface {
	CreateBlog(ctx context.Context, b Blog) (Blog, error)
	BlogByID(ctx context.Context, id BlogID) (Blog, error)
	// BlogsByIDs сохраняет порядок переданных id (порядок ленты).
	BlogsByIDs(ctx context.Context, ids []BlogID) ([]Blog, error)
	// AdjustLiked меняет счётчик лайков на delta (+1/-1).
	AdjustLiked(ctx context.Context, id BlogID, delta int64) (bool, error)
	HotBlogs(ctx context.Context, offset, limit int) ([]Blog, error)
}

// PhotoStorage — хранилище изображений заметок (MinIO/S3).
type PhotoStorage interface {
	Put(ctx context.Context, r io.Reader, size int64, mime string) (storageKey string, err error)
	Delete(ctx context.Context, storageKey string) error
	Ping(ctx context.Context) error
}

// Clock отделяет «сейчас» от time.Now для тестов окна секкилла и курсоров.
type Clock interface {
	Now() time.Time
}

type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

// Пакет seckill — конвейер флеш-продажи купонов. Две гонки закрыты
// разными механизмами: дубль заказа одного пользователя — распределённой
// блокировкой на (user), перепродажа между пользователями — условным
// декрементом остатка (оптимистичная проверка в самом UPDATE). Блокировки
// на каждый купон нет: горячая точка уходит в одну атомарную запись БД.
package seckill

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/EgorLis/nearby/internal/cache"
	"github.com/EgorLis/nearby/internal/domain"
	"github.com/EgorLis/nearby/internal/idgen"
	"github.com/EgorLis/nearby/internal/lock"
)

const (
	// TTL блокировки заказа. Создание заказа дольше TTL теряет
	// эксклюзивность — принятое ограничение, продления нет.
	orderLockTTL = 10 * time.Second

	voucherCacheTTL = 30 * time.Minute
)

type Service struct {
	vouchers domain.VouchersRepo
	orders   domain.OrdersRepo
	kv       domain.KV
	ids      *idgen.Worker
	cc       *cache.Client
	clock    domain.Clock
	logger   *log.Logger
}

func New(vouchers domain.VouchersRepo, orders domain.OrdersRepo, kv domain.KV, ids *idgen.Worker, cc *cache.Client, logger *log.Logger) *Service {
	return &Service{
		vouchers: vouchers,
		orders:   orders,
		kv:       kv,
		ids:      ids,
		cc:       cc,
		clock:    domain.RealClock{},
		logger:   logger,
	}
}

// WithClock — для тестов окна продаж.
func (s *Service) WithClock(c domain.Clock) *Service {
	s.clock = c
	return s
}

// Voucher — витринное чтение купона через pass-through кеш: несвежий
// остаток на витрине недопустим надолго, поэтому без logical expire.
func (s *Service) Voucher(ctx context.Context, id domain.VoucherID) (domain.Voucher, error) {
	return cache.GetWithPassThrough(ctx, s.cc, domain.CacheKeyVoucher(id), voucherCacheTTL,
		func(ctx context.Context) (domain.Voucher, error) {
			return s.vouchers.VoucherByID(ctx, id)
		})
}

// Order проводит заказ флеш-купона.
//
// Порядок проверок фиксирован: окно → остаток → блокировка по
// пользователю → дубль → условный декремент → id → заказ.
// Контеншен блокировки НЕ ретраится: пользователю он означает
// «повторная отправка, попробуйте позже» (ErrLockUnavailable).
func (s *Service) Order(ctx context.Context, userID domain.UserID, voucherID domain.VoucherID) (domain.Order, error) {
	v, err := s.vouchers.VoucherByID(ctx, voucherID)
	if err != nil {
		return domain.Order{}, err
	}

	now := s.clock.Now()
	if now.Before(v.BeginTime) {
		return domain.Order{}, domain.ErrWindowNotOpen
	}
	if now.After(v.EndTime) {
		return domain.Order{}, domain.ErrWindowClosed
	}
	if v.Stock < 1 {
		return domain.Order{}, domain.ErrOutOfStock
	}

	// Одна попытка: блокировка по пользователю, не по купону.
	l := lock.New(s.kv, domain.LockResourceOrder(userID))
	token, err := l.TryLock(ctx, orderLockTTL)
	if err != nil {
		if errors.Is(err, domain.ErrLockUnavailable) {
			s.logger.Printf("order contention user=%d voucher=%d", userID, voucherID)
		}
		return domain.Order{}, err
	}
	defer func() {
		if uerr := l.Unlock(ctx, token); uerr != nil {
			s.logger.Printf("order unlock user=%d failed: %v", userID, uerr)
		}
	}()

	return s.createOrder(ctx, userID, voucherID)
}

// createOrder — транзакционная часть под блокировкой. Явный метод,
// вызывается напрямую (никакого самовызова через прокси).
func (s *Service) createOrder(ctx context.Context, userID domain.UserID, voucherID domain.VoucherID) (domain.Order, error) {
	// Один купон в руки: проверка внутри блокировки, иначе два
	// параллельных запроса одного пользователя прошли бы оба.
	exists, err := s.orders.OrderExists(ctx, userID, voucherID)
	if err != nil {
		return domain.Order{}, err
	}
	if exists {
		return domain.Order{}, domain.ErrDuplicateOrder
	}

	// stock = stock - 1 WHERE stock > 0: проигрыш гонки за последнюю
	// единицу проявляется нулём затронутых строк, даже если проверка
	// выше прошла — времени прошло.
	ok, err := s.vouchers.DecrementStock(ctx, voucherID)
	if err != nil {
		return domain.Order{}, err
	}
	if !ok {
		return domain.Order{}, domain.ErrOutOfStock
	}

	id, err := s.ids.NextID(ctx, "order")
	if err != nil {
		return domain.Order{}, err
	}

	o := domain.Order{
		ID:        id,
		UserID:    userID,
		VoucherID: voucherID,
		CreatedAt: s.clock.Now(),
	}
	if err := s.orders.CreateOrder(ctx, o); err != nil {
		return domain.Order{}, err
	}

	s.logger.Printf("order ok id=%d user=%d voucher=%d", o.ID, userID, voucherID)
	return o, nil
}

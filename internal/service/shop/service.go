// Пакет shop — чтение и обновление заведений.
//
// Горячий путь (карточка заведения) идёт через logical expire: чтение
// никогда не ждёт перестройку, краткая несвежесть принята. Справочник
// типов — mutex-стратегия (перестраивает один). Запись — сначала БД,
// потом инвалидация кеша.
package shop

import (
	"context"
	"errors"
	"log"
	"strconv"
	"time"

	"github.com/EgorLis/nearby/internal/cache"
	"github.com/EgorLis/nearby/internal/domain"
)

const (
	// Логический TTL карточки заведения.
	shopCacheTTL = 30 * time.Minute
	// TTL справочника типов.
	typesCacheTTL = 30 * time.Minute

	DefaultPageSize = 10
	geoRadiusM      = 5000
)

type Service struct {
	shops  domain.ShopsRepo
	cc     *cache.Client
	kv     domain.KV
	logger *log.Logger
}

func New(shops domain.ShopsRepo, cc *cache.Client, kv domain.KV, logger *log.Logger) *Service {
	return &Service{shops: shops, cc: cc, kv: kv, logger: logger}
}

// Shop — карточка заведения через logical-expire кеш. Холодный ключ
// (ещё не прогретый) добираем из БД и прогреваем на месте.
func (s *Service) Shop(ctx context.Context, id domain.ShopID) (domain.Shop, error) {
	key := domain.CacheKeyShop(id)
	load := func(ctx context.Context) (domain.Shop, error) {
		return s.shops.ShopByID(ctx, id)
	}

	v, err := cache.GetWithLogicalExpire(ctx, s.cc, key, shopCacheTTL, load)
	if err == nil {
		return v, nil
	}
	if !errors.Is(err, domain.ErrCacheMiss) {
		return domain.Shop{}, err
	}

	// холодный старт: ключ не прогрет
	v, err = load(ctx)
	if err != nil {
		return domain.Shop{}, err
	}
	if serr := s.cc.SetWithLogicalExpire(ctx, key, v, shopCacheTTL); serr != nil {
		s.logger.Printf("warm shop %d failed: %v", id, serr)
	}
	return v, nil
}

// Update пишет в источник истины и удаляет кеш-запись — в этом порядке.
func (s *Service) Update(ctx context.Context, sh domain.Shop) error {
	if sh.ID == 0 {
		return domain.ErrBadParams
	}
	if err := s.shops.UpdateShop(ctx, sh); err != nil {
		return err
	}
	return s.cc.Invalidate(ctx, domain.CacheKeyShop(sh.ID))
}

// Warm прогревает карточку и гео-индекс (запускается при наполнении
// каталога и по админ-ручке).
func (s *Service) Warm(ctx context.Context, id domain.ShopID, ttl time.Duration) error {
	sh, err := s.shops.ShopByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.cc.SetWithLogicalExpire(ctx, domain.CacheKeyShop(id), sh, ttl); err != nil {
		return err
	}
	return s.kv.GeoAdd(ctx, domain.ShopGeoKey(sh.TypeID), strconv.FormatInt(sh.ID, 10), sh.X, sh.Y)
}

// Types — справочник типов через mutex-стратегию: список один на всех,
// перестраивает победитель блокировки, остальные дожидаются и перечитывают.
func (s *Service) Types(ctx context.Context) ([]domain.ShopType, error) {
	return cache.GetWithMutex(ctx, s.cc, domain.CacheKeyShopTypes(), typesCacheTTL,
		func(ctx context.Context) ([]domain.ShopType, error) {
			return s.shops.ShopTypes(ctx)
		})
}

// ByType — заведения типа: с координатами — гео-поиск по стору с
// дистанцией, без — постранично из БД.
func (s *Service) ByType(ctx context.Context, typeID int64, page int, x, y *float64) ([]domain.Shop, error) {
	if page < 1 {
		page = 1
	}
	from := (page - 1) * DefaultPageSize
	end := page * DefaultPageSize

	if x == nil || y == nil {
		return s.shops.ShopsByType(ctx, typeID, from, DefaultPageSize)
	}

	points, err := s.kv.GeoSearch(ctx, domain.ShopGeoKey(typeID), *x, *y, geoRadiusM, int64(end))
	if err != nil {
		return nil, err
	}
	if len(points) <= from {
		return []domain.Shop{}, nil
	}
	points = points[from:]

	ids := make([]domain.ShopID, 0, len(points))
	dist := make(map[string]float64, len(points))
	for _, p := range points {
		id, perr := strconv.ParseInt(p.Member, 10, 64)
		if perr != nil {
			continue
		}
		ids = append(ids, id)
		dist[p.Member] = p.Distance
	}

	shops, err := s.shops.ShopsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range shops {
		shops[i].Distance = dist[strconv.FormatInt(shops[i].ID, 10)]
	}
	return shops, nil
}

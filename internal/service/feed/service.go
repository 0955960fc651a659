// Пакет feed — лента подписок по модели fan-out on write: публикация
// пишет id заметки в sorted set каждого подписчика (score — время
// публикации в миллисекундах), чтение — дешёвый range по своему set'у.
// Выгодно при умеренном числе подписчиков и преобладании чтений.
package feed

import (
	"context"
	"log"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/EgorLis/nearby/internal/domain"
)

const (
	// Ширина fan-out: сколько подписчиков обновляем параллельно.
	fanoutParallelism = 10

	// DefaultPageSize — размер страницы скролла.
	DefaultPageSize = 10

	topLikersCount = 5
)

type Service struct {
	blogs   domain.BlogsRepo
	follows domain.FollowsRepo
	users   domain.UsersRepo
	kv      domain.KV
	clock   domain.Clock
	logger  *log.Logger
}

func New(blogs domain.BlogsRepo, follows domain.FollowsRepo, users domain.UsersRepo, kv domain.KV, logger *log.Logger) *Service {
	return &Service{
		blogs:   blogs,
		follows: follows,
		users:   users,
		kv:      kv,
		clock:   domain.RealClock{},
		logger:  logger,
	}
}

func (s *Service) WithClock(c domain.Clock) *Service {
	s.clock = c
	return s
}

// Publish сохраняет заметку и разносит её id по лентам подписчиков.
// Ошибка доставки одному подписчику не валит публикацию целиком —
// логируется, заметка уже в источнике истины.
func (s *Service) Publish(ctx context.Context, b domain.Blog) (domain.Blog, error) {
	saved, err := s.blogs.CreateBlog(ctx, b)
	if err != nil {
		return domain.Blog{}, err
	}

	followers, err := s.follows.FollowerIDs(ctx, saved.UserID)
	if err != nil {
		s.logger.Printf("publish %d: follower lookup failed: %v", saved.ID, err)
		return saved, nil
	}

	score := float64(s.clock.Now().UnixMilli())
	member := strconv.FormatInt(saved.ID, 10)

	// Без общей отмены: сбой доставки одному подписчику не должен
	// обрывать доставку остальным.
	var g errgroup.Group
	g.SetLimit(fanoutParallelism)
	for _, f := range followers {
		g.Go(func() error {
			if err := s.kv.ZAdd(ctx, domain.FeedKey(f), member, score); err != nil {
				s.logger.Printf("publish %d: feed %d: %v", saved.ID, f, err)
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.logger.Printf("publish %d: fan-out incomplete: %v", saved.ID, err)
	}
	return saved, nil
}

// Scroll — страница ленты по курсору (max, offset).
//
// Первая страница: max = текущее время в мс, offset = 0. Следующий курсор:
// минимальный score страницы и число хвостовых записей с этим score —
// так серия одинаковых таймстемпов не дублируется и не теряется на
// границе страниц.
func (s *Service) Scroll(ctx context.Context, userID domain.UserID, max int64, offset int) (domain.ScrollResult, error) {
	zs, err := s.kv.ZRevRangeByScore(ctx, domain.FeedKey(userID), float64(max), 0, int64(offset), DefaultPageSize)
	if err != nil {
		return domain.ScrollResult{}, err
	}
	if len(zs) == 0 {
		return domain.ScrollResult{}, nil
	}

	ids := make([]domain.BlogID, 0, len(zs))
	var minTime int64
	nextOffset := 1
	for _, z := range zs {
		id, perr := strconv.ParseInt(z.Member, 10, 64)
		if perr != nil {
			s.logger.Printf("feed %d: bad member %q", userID, z.Member)
			continue
		}
		ids = append(ids, id)

		t := int64(z.Score)
		if t == minTime {
			nextOffset++
		} else {
			minTime = t
			nextOffset = 1
		}
	}

	blogs, err := s.blogs.BlogsByIDs(ctx, ids)
	if err != nil {
		return domain.ScrollResult{}, err
	}
	for i := range blogs {
		s.enrich(ctx, &blogs[i])
	}

	return domain.ScrollResult{List: blogs, MinTime: minTime, Offset: nextOffset}, nil
}

// Blog — заметка с автором и флагом лайка текущего пользователя.
func (s *Service) Blog(ctx context.Context, id domain.BlogID) (domain.Blog, error) {
	b, err := s.blogs.BlogByID(ctx, id)
	if err != nil {
		return domain.Blog{}, err
	}
	s.enrich(ctx, &b)
	return b, nil
}

// Hot — заметки по убыванию лайков (главная страница).
func (s *Service) Hot(ctx context.Context, page int) ([]domain.Blog, error) {
	if page < 1 {
		page = 1
	}
	blogs, err := s.blogs.HotBlogs(ctx, (page-1)*DefaultPageSize, DefaultPageSize)
	if err != nil {
		return nil, err
	}
	for i := range blogs {
		s.enrich(ctx, &blogs[i])
	}
	return blogs, nil
}

// Like — идемпотентный тумблер лайка: множество лайкнувших живёт в
// sorted set (score — время лайка), счётчик — в строке заметки.
func (s *Service) Like(ctx context.Context, userID domain.UserID, blogID domain.BlogID) error {
	key := domain.BlogLikedKey(blogID)
	member := strconv.FormatInt(userID, 10)

	_, liked, err := s.kv.ZScore(ctx, key, member)
	if err != nil {
		return err
	}

	if !liked {
		ok, err := s.blogs.AdjustLiked(ctx, blogID, 1)
		if err != nil {
			return err
		}
		if ok {
			return s.kv.ZAdd(ctx, key, member, float64(s.clock.Now().UnixMilli()))
		}
		return nil
	}

	ok, err := s.blogs.AdjustLiked(ctx, blogID, -1)
	if err != nil {
		return err
	}
	if ok {
		return s.kv.ZRem(ctx, key, member)
	}
	return nil
}

// TopLikers — первые пять лайкнувших (по времени лайка).
func (s *Service) TopLikers(ctx context.Context, blogID domain.BlogID) ([]domain.UserDTO, error) {
	members, err := s.kv.ZRange(ctx, domain.BlogLikedKey(blogID), 0, topLikersCount-1)
	if err != nil {
		return nil, err
	}
	if len(members) == 0 {
		return []domain.UserDTO{}, nil
	}

	ids := make([]domain.UserID, 0, len(members))
	for _, m := range members {
		id, perr := strconv.ParseInt(m, 10, 64)
		if perr != nil {
			continue
		}
		ids = append(ids, id)
	}

	users, err := s.users.UsersByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]domain.UserDTO, 0, len(users))
	for _, u := range users {
		out = append(out, u.DTO())
	}
	return out, nil
}

// Follow / Unfollow — подписки, питающие fan-out.
func (s *Service) Follow(ctx context.Context, userID, followUserID domain.UserID) error {
	return s.follows.Follow(ctx, userID, followUserID)
}

func (s *Service) Unfollow(ctx context.Context, userID, followUserID domain.UserID) error {
	return s.follows.Unfollow(ctx, userID, followUserID)
}

func (s *Service) IsFollowing(ctx context.Context, userID, followUserID domain.UserID) (bool, error) {
	return s.follows.IsFollowing(ctx, userID, followUserID)
}

// NowMillis — курсор первой страницы.
func (s *Service) NowMillis() int64 { return s.clock.Now().UnixMilli() }

func (s *Service) enrich(ctx context.Context, b *domain.Blog) {
	if u, err := s.users.UserByID(ctx, b.UserID); err == nil {
		b.AuthorName = u.Nickname
		b.AuthorIcon = u.Icon
	}

	me, ok := domain.UserFromCtx(ctx)
	if !ok {
		return
	}
	member := strconv.FormatInt(me.ID, 10)
	if _, liked, err := s.kv.ZScore(ctx, domain.BlogLikedKey(b.ID), member); err == nil {
		b.IsLiked = liked
	}
}

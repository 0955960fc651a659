package feed_test

import (
	"context"
	"io"
	"log"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/EgorLis/nearby/internal/domain"
	memkv "github.com/EgorLis/nearby/internal/infra/cache/memory"
	"github.com/EgorLis/nearby/internal/service/feed"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

type fakeBlogs struct {
	mu     sync.Mutex
	nextID domain.BlogID
	blogs  map[domain.BlogID]domain.Blog
}

func newFakeBlogs() *fakeBlogs {
	return &fakeBlogs{nextID: 1, blogs: make(map[domain.BlogID]domain.Blog)}
}

func (f *fakeBlogs) CreateBlog(_ context.Context, b domain.Blog) (domain.Blog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b.ID = f.nextID
	f.nextID++
	f.blogs[b.ID] = b
	return b, nil
}

func (f *fakeBlogs) BlogByID(_ context.Context, id domain.BlogID) (domain.Blog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.blogs[id]
	if !ok {
		return domain.Blog{}, domain.ErrNotFound
	}
	return b, nil
}

func (f *fakeBlogs) BlogsByIDs(_ context.Context, ids []domain.BlogID) ([]domain.Blog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Blog, 0, len(ids))
	for _, id := range ids {
		if b, ok := f.blogs[id]; ok {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeBlogs) AdjustLiked(_ context.Context, id domain.BlogID, delta int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.blogs[id]
	if !ok {
		return false, nil
	}
	if delta < 0 && b.Liked == 0 {
		return false, nil
	}
	b.Liked += delta
	f.blogs[id] = b
	return true, nil
}

func (f *fakeBlogs) HotBlogs(_ context.Context, offset, limit int) ([]domain.Blog, error) {
	return nil, nil
}

func (f *fakeBlogs) liked(id domain.BlogID) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.blogs[id].Liked
}

type fakeFollows struct {
	mu        sync.Mutex
	followers map[domain.UserID][]domain.UserID
}

func newFakeFollows() *fakeFollows {
	return &fakeFollows{followers: make(map[domain.UserID][]domain.UserID)}
}

func (f *fakeFollows) Follow(_ context.Context, userID, followUserID domain.UserID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.followers[followUserID] = append(f.followers[followUserID], userID)
	return nil
}

func (f *fakeFollows) Unfollow(_ context.Context, userID, followUserID domain.UserID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	list := f.followers[followUserID]
	out := list[:0]
	for _, id := range list {
		if id != userID {
			out = append(out, id)
		}
	}
	f.followers[followUserID] = out
	return nil
}

func (f *fakeFollows) IsFollowing(_ context.Context, userID, followUserID domain.UserID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range f.followers[followUserID] {
		if id == userID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeFollows) FollowerIDs(_ context.Context, userID domain.UserID) ([]domain.UserID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.UserID(nil), f.followers[userID]...), nil
}

type fakeUsers struct {
	users map[domain.UserID]domain.User
}

func (f *fakeUsers) Close()                     {}
func (f *fakeUsers) Ping(context.Context) error { return nil }

func (f *fakeUsers) CreateUserByPhone(_ context.Context, phone string) (domain.User, error) {
	return domain.User{}, domain.ErrNotFound
}

func (f *fakeUsers) UserByID(_ context.Context, id domain.UserID) (domain.User, error) {
	u, ok := f.users[id]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	return u, nil
}

func (f *fakeUsers) UsersByIDs(_ context.Context, ids []domain.UserID) ([]domain.User, error) {
	out := make([]domain.User, 0, len(ids))
	for _, id := range ids {
		if u, ok := f.users[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func newService(t *testing.T, now time.Time) (*feed.Service, *fakeBlogs, *fakeFollows, *memkv.KV) {
	t.Helper()
	kv := memkv.New()
	blogs := newFakeBlogs()
	follows := newFakeFollows()
	users := &fakeUsers{users: map[domain.UserID]domain.User{
		1: {ID: 1, Nickname: "alice", Icon: "a.png"},
		2: {ID: 2, Nickname: "bob"},
		3: {ID: 3, Nickname: "carol"},
	}}
	s := feed.New(blogs, follows, users, kv, log.New(io.Discard, "", 0))
	s.WithClock(fixedClock{t: now})
	return s, blogs, follows, kv
}

func TestPublishFansOutToFollowers(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	s, _, _, kv := newService(t, now)

	require.NoError(t, s.Follow(ctx, 2, 1))
	require.NoError(t, s.Follow(ctx, 3, 1))

	b, err := s.Publish(ctx, domain.Blog{UserID: 1, Title: "nice place"})
	require.NoError(t, err)
	require.NotZero(t, b.ID)

	member := strconv.FormatInt(b.ID, 10)
	for _, follower := range []domain.UserID{2, 3} {
		score, ok, err := kv.ZScore(ctx, domain.FeedKey(follower), member)
		require.NoError(t, err)
		require.True(t, ok, "follower %d missing blog in feed", follower)
		require.EqualValues(t, now.UnixMilli(), int64(score))
	}

	// автор в свою ленту не попадает
	_, ok, err := kv.ZScore(ctx, domain.FeedKey(1), member)
	require.NoError(t, err)
	require.False(t, ok)
}

// brokenFeedKV отказывает в записи одной ленты и чувствителен к отмене
// контекста, как настоящий стор.
type brokenFeedKV struct {
	*memkv.KV
	failKey string
}

func (b *brokenFeedKV) ZAdd(ctx context.Context, key, member string, score float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if key == b.failKey {
		return domain.ErrStoreUnavailable
	}
	return b.KV.ZAdd(ctx, key, member, score)
}

func TestPublishOneFailedFollowerDoesNotTruncateFanOut(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	kv := &brokenFeedKV{KV: memkv.New(), failKey: domain.FeedKey(2)}
	blogs := newFakeBlogs()
	follows := newFakeFollows()
	users := &fakeUsers{users: map[domain.UserID]domain.User{1: {ID: 1, Nickname: "alice"}}}
	s := feed.New(blogs, follows, users, kv, log.New(io.Discard, "", 0))
	s.WithClock(fixedClock{t: now})

	// подписчиков больше ширины fan-out, сбойный — первым
	const followers = 25
	for i := domain.UserID(2); i < 2+followers; i++ {
		require.NoError(t, s.Follow(ctx, i, 1))
	}

	b, err := s.Publish(ctx, domain.Blog{UserID: 1, Title: "post"})
	require.NoError(t, err)

	member := strconv.FormatInt(b.ID, 10)
	for i := domain.UserID(3); i < 2+followers; i++ {
		_, ok, err := kv.ZScore(ctx, domain.FeedKey(i), member)
		require.NoError(t, err)
		require.True(t, ok, "follower %d lost the entry", i)
	}
}

func TestScrollEmptyFeed(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	s, _, _, _ := newService(t, now)

	res, err := s.Scroll(ctx, 2, now.UnixMilli(), 0)
	require.NoError(t, err)
	require.Empty(t, res.List)
}

// Курсор на границе одинаковых score: серия равных таймстемпов не должна
// ни дублироваться, ни пропадать между страницами.
func TestScrollCursorNoDupNoLoss(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	s, blogs, _, kv := newService(t, now)

	// 14 заметок: 3 со score 100, 10 со score 90, 1 со score 80
	scores := make(map[domain.BlogID]float64)
	for i := 0; i < 14; i++ {
		b, err := blogs.CreateBlog(ctx, domain.Blog{UserID: 1, Title: "post"})
		require.NoError(t, err)
		var score float64
		switch {
		case i < 3:
			score = 100
		case i < 13:
			score = 90
		default:
			score = 80
		}
		scores[b.ID] = score
		require.NoError(t, kv.ZAdd(ctx, domain.FeedKey(2), strconv.FormatInt(b.ID, 10), score))
	}

	seen := make(map[domain.BlogID]int)

	page1, err := s.Scroll(ctx, 2, 1000, 0)
	require.NoError(t, err)
	require.Len(t, page1.List, feed.DefaultPageSize)
	require.EqualValues(t, 90, page1.MinTime)
	require.Equal(t, 7, page1.Offset) // хвост страницы: 7 записей со score 90
	for _, b := range page1.List {
		seen[b.ID]++
	}

	page2, err := s.Scroll(ctx, 2, page1.MinTime, page1.Offset)
	require.NoError(t, err)
	require.Len(t, page2.List, 4) // оставшиеся 3×90 и одна 80
	require.EqualValues(t, 80, page2.MinTime)
	require.Equal(t, 1, page2.Offset)
	for _, b := range page2.List {
		seen[b.ID]++
	}

	page3, err := s.Scroll(ctx, 2, page2.MinTime, page2.Offset)
	require.NoError(t, err)
	require.Empty(t, page3.List)

	require.Len(t, seen, 14)
	for id, n := range seen {
		require.Equal(t, 1, n, "blog %d returned %d times", id, n)
	}
}

func TestScrollEnrichesAuthor(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	s, blogs, _, kv := newService(t, now)

	b, err := blogs.CreateBlog(ctx, domain.Blog{UserID: 1, Title: "post"})
	require.NoError(t, err)
	require.NoError(t, kv.ZAdd(ctx, domain.FeedKey(2), strconv.FormatInt(b.ID, 10), 100))

	res, err := s.Scroll(ctx, 2, 1000, 0)
	require.NoError(t, err)
	require.Len(t, res.List, 1)
	require.Equal(t, "alice", res.List[0].AuthorName)
	require.Equal(t, "a.png", res.List[0].AuthorIcon)
}

func TestLikeToggle(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	s, blogs, _, kv := newService(t, now)

	b, err := blogs.CreateBlog(ctx, domain.Blog{UserID: 1, Title: "post"})
	require.NoError(t, err)

	require.NoError(t, s.Like(ctx, 2, b.ID))
	require.EqualValues(t, 1, blogs.liked(b.ID))
	_, liked, err := kv.ZScore(ctx, domain.BlogLikedKey(b.ID), "2")
	require.NoError(t, err)
	require.True(t, liked)

	// повторный лайк снимает
	require.NoError(t, s.Like(ctx, 2, b.ID))
	require.EqualValues(t, 0, blogs.liked(b.ID))
	_, liked, err = kv.ZScore(ctx, domain.BlogLikedKey(b.ID), "2")
	require.NoError(t, err)
	require.False(t, liked)
}

func TestBlogIsLikedForContextUser(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	s, blogs, _, _ := newService(t, now)

	b, err := blogs.CreateBlog(ctx, domain.Blog{UserID: 1, Title: "post"})
	require.NoError(t, err)
	require.NoError(t, s.Like(ctx, 2, b.ID))

	// без пользователя в контексте флаг не ставится
	got, err := s.Blog(ctx, b.ID)
	require.NoError(t, err)
	require.False(t, got.IsLiked)

	authed := domain.WithUser(ctx, domain.UserDTO{ID: 2, Nickname: "bob"})
	got, err = s.Blog(authed, b.ID)
	require.NoError(t, err)
	require.True(t, got.IsLiked)
}

func TestTopLikersOrderedByLikeTime(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	s, blogs, _, kv := newService(t, now)

	b, err := blogs.CreateBlog(ctx, domain.Blog{UserID: 1, Title: "post"})
	require.NoError(t, err)

	// лайки с нарастающим временем: 3, затем 1, затем 2
	require.NoError(t, kv.ZAdd(ctx, domain.BlogLikedKey(b.ID), "3", 10))
	require.NoError(t, kv.ZAdd(ctx, domain.BlogLikedKey(b.ID), "1", 20))
	require.NoError(t, kv.ZAdd(ctx, domain.BlogLikedKey(b.ID), "2", 30))

	likers, err := s.TopLikers(ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, likers, 3)
	require.Equal(t, "carol", likers[0].Nickname)
	require.Equal(t, "alice", likers[1].Nickname)
	require.Equal(t, "bob", likers[2].Nickname)
}

func TestUnfollowStopsFanOut(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	s, _, _, kv := newService(t, now)

	require.NoError(t, s.Follow(ctx, 2, 1))
	ok, err := s.IsFollowing(ctx, 2, 1)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, s.Unfollow(ctx, 2, 1))
	ok, err = s.IsFollowing(ctx, 2, 1)
	require.NoError(t, err)
	require.False(t, ok)

	b, err := s.Publish(ctx, domain.Blog{UserID: 1, Title: "post"})
	require.NoError(t, err)
	_, found, err := kv.ZScore(ctx, domain.FeedKey(2), strconv.FormatInt(b.ID, 10))
	require.NoError(t, err)
	require.False(t, found)
}

package postgres

import (
	"context"
	"errors"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/EgorLis/nearby/internal/domain"
)

const blogColumns = "id, user_id, shop_id, title, content, images, liked, created_at"

func scanBlog(row pgx.Row) (domain.Blog, error) {
	var b domain.Blog
	err := row.Scan(&b.ID, &b.UserID, &b.ShopID, &b.Title, &b.Content, &b.Images, &b.Liked, &b.CreatedAt)
	return b, err
}

func (r *PGRepo) CreateBlog(ctx context.Context, b domain.Blog) (domain.Blog, error) {
	q := r.qb().Insert(r.table("blogs")).
		Columns("user_id", "shop_id", "title", "content", "images").
		Values(b.UserID, b.ShopID, b.Title, b.Content, b.Images).
		Suffix("RETURNING " + blogColumns)

	sqlStr, args, _ := q.ToSql()
	r.logSQL("CreateBlog", sqlStr, args)

	start := time.Now()
	out, err := scanBlog(r.pool.QueryRow(ctx, sqlStr, args...))
	if err != nil {
		r.logger.Printf("CreateBlog scan error after %s: %v", time.Since(start), err)
		return domain.Blog{}, err
	}
	r.logger.Printf("CreateBlog ok in %s id=%d", time.Since(start), out.ID)
	return out, nil
}

func (r *PGRepo) BlogByID(ctx context.Context, id domain.BlogID) (domain.Blog, error) {
	q := r.qb().Select(blogColumns).
		From(r.table("blogs")).
		Where(sq.Eq{"id": id})

	sqlStr, args, _ := q.ToSql()
	r.logSQL("BlogByID", sqlStr, args)

	b, err := scanBlog(r.pool.QueryRow(ctx, sqlStr, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Blog{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Blog{}, err
	}
	return b, nil
}

// BlogsByIDs сохраняет порядок переданных id (порядок ленты).
func (r *PGRepo) BlogsByIDs(ctx context.Context, ids []domain.BlogID) ([]domain.Blog, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	q := r.qb().Select(blogColumns).
		From(r.table("blogs")).
		Where(sq.Eq{"id": ids})

	sqlStr, args, _ := q.ToSql()
	r.logSQL("BlogsByIDs", sqlStr, args)

	rows, err := r.pool.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byID := make(map[domain.BlogID]domain.Blog, len(ids))
	for rows.Next() {
		b, err := scanBlog(rows)
		if err != nil {
			return nil, err
		}
		byID[b.ID] = b
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]domain.Blog, 0, len(ids))
	for _, id := range ids {
		if b, ok := byID[id]; ok {
			out = append(out, b)
		}
	}
	return out, nil
}

// AdjustLiked меняет счётчик лайков; при delta < 0 не даёт уйти ниже нуля.
func (r *PGRepo) AdjustLiked(ctx context.Context, id domain.BlogID, delta int64) (bool, error) {
	q := r.qb().Update(r.table("blogs")).
		Set("liked", sq.Expr("liked + ?", delta)).
		Where(sq.Eq{"id": id})
	if delta < 0 {
		q = q.Where(sq.Gt{"liked": 0})
	}

	sqlStr, args, _ := q.ToSql()
	r.logSQL("AdjustLiked", sqlStr, args)

	tag, err := r.pool.Exec(ctx, sqlStr, args...)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *PGRepo) HotBlogs(ctx context.Context, offset, limit int) ([]domain.Blog, error) {
	q := r.qb().Select(blogColumns).
		From(r.table("blogs")).
		OrderBy("liked DESC", "id DESC").
		Offset(uint64(offset)).
		Limit(uint64(limit))

	sqlStr, args, _ := q.ToSql()
	r.logSQL("HotBlogs", sqlStr, args)

	rows, err := r.pool.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Blog
	for rows.Next() {
		b, err := scanBlog(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

package postgres

import (
	"context"
	"errors"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/EgorLis/nearby/internal/domain"
)

const shopColumns = "id, name, type_id, address, x, y, avg_price, sold, score, created_at, updated_at"

func scanShop(row pgx.Row) (domain.Shop, error) {
	var s domain.Shop
	err := row.Scan(&s.ID, &s.Name, &s.TypeID, &s.Address, &s.X, &s.Y,
		&s.AvgPrice, &s.Sold, &s.Score, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}

func (r *PGRepo) ShopByID(ctx context.Context, id domain.ShopID) (domain.Shop, error) {
	q := r.qb().Select(shopColumns).
		From(r.table("shops")).
		Where(sq.Eq{"id": id})

	sqlStr, args, _ := q.ToSql()
	r.logSQL("ShopByID", sqlStr, args)

	start := time.Now()
	s, err := scanShop(r.pool.QueryRow(ctx, sqlStr, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Shop{}, domain.ErrNotFound
		}
		r.logger.Printf("ShopByID scan error after %s: %v", time.Since(start), err)
		return domain.Shop{}, err
	}
	return s, nil
}

func (r *PGRepo) ShopsByType(ctx context.Context, typeID int64, offset, limit int) ([]domain.Shop, error) {
	q := r.qb().Select(shopColumns).
		From(r.table("shops")).
		Where(sq.Eq{"type_id": typeID}).
		OrderBy("id").
		Offset(uint64(offset)).
		Limit(uint64(limit))

	sqlStr, args, _ := q.ToSql()
	r.logSQL("ShopsByType", sqlStr, args)

	rows, err := r.pool.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Shop
	for rows.Next() {
		s, err := scanShop(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// ShopsByIDs сохраняет порядок переданных id (порядок гео-выдачи).
func (r *PGRepo) ShopsByIDs(ctx context.Context, ids []domain.ShopID) ([]domain.Shop, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	q := r.qb().Select(shopColumns).
		From(r.table("shops")).
		Where(sq.Eq{"id": ids})

	sqlStr, args, _ := q.ToSql()
	r.logSQL("ShopsByIDs", sqlStr, args)

	rows, err := r.pool.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byID := make(map[domain.ShopID]domain.Shop, len(ids))
	for rows.Next() {
		s, err := scanShop(rows)
		if err != nil {
			return nil, err
		}
		byID[s.ID] = s
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]domain.Shop, 0, len(ids))
	for _, id := range ids {
		if s, ok := byID[id]; ok {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *PGRepo) UpdateShop(ctx context.Context, s domain.Shop) error {
	q := r.qb().Update(r.table("shops")).
		Set("name", s.Name).
		Set("type_id", s.TypeID).
		Set("address", s.Address).
		Set("x", s.X).
		Set("y", s.Y).
		Set("avg_price", s.AvgPrice).
		Set("score", s.Score).
		Set("updated_at", sq.Expr("now()")).
		Where(sq.Eq{"id": s.ID})

	sqlStr, args, _ := q.ToSql()
	r.logSQL("UpdateShop", sqlStr, args)

	start := time.Now()
	tag, err := r.pool.Exec(ctx, sqlStr, args...)
	if err != nil {
		r.logger.Printf("UpdateShop exec error after %s: %v", time.Since(start), err)
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	r.logger.Printf("UpdateShop ok in %s id=%d", time.Since(start), s.ID)
	return nil
}

func (r *PGRepo) ShopTypes(ctx context.Context) ([]domain.ShopType, error) {
	q := r.qb().Select("id, name, icon, sort").
		From(r.table("shop_types")).
		OrderBy("sort")

	sqlStr, args, _ := q.ToSql()
	r.logSQL("ShopTypes", sqlStr, args)

	rows, err := r.pool.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.ShopType
	for rows.Next() {
		var t domain.ShopType
		if err := rows.Scan(&t.ID, &t.Name, &t.Icon, &t.Sort); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

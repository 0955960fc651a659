package postgres

import (
	"context"
	"errors"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/EgorLis/nearby/internal/domain"
)

func (r *PGRepo) Follow(ctx context.Context, userID, followUserID domain.UserID) error {
	q := r.qb().Insert(r.table("follows")).
		Columns("user_id", "follow_user_id").
		Values(userID, followUserID).
		Suffix("ON CONFLICT DO NOTHING")

	sqlStr, args, _ := q.ToSql()
	r.logSQL("Follow", sqlStr, args)

	_, err := r.pool.Exec(ctx, sqlStr, args...)
	return err
}

func (r *PGRepo) Unfollow(ctx context.Context, userID, followUserID domain.UserID) error {
	q := r.qb().Delete(r.table("follows")).
		Where(sq.And{sq.Eq{"user_id": userID}, sq.Eq{"follow_user_id": followUserID}})

	sqlStr, args, _ := q.ToSql()
	r.logSQL("Unfollow", sqlStr, args)

	_, err := r.pool.Exec(ctx, sqlStr, args...)
	return err
}

func (r *PGRepo) IsFollowing(ctx context.Context, userID, followUserID domain.UserID) (bool, error) {
	q := r.qb().Select("1").
		From(r.table("follows")).
		Where(sq.And{sq.Eq{"user_id": userID}, sq.Eq{"follow_user_id": followUserID}}).
		Limit(1)

	sqlStr, args, _ := q.ToSql()
	r.logSQL("IsFollowing", sqlStr, args)

	var one int
	err := r.pool.QueryRow(ctx, sqlStr, args...).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// FollowerIDs — подписчики пользователя (приёмники fan-out).
func (r *PGRepo) FollowerIDs(ctx context.Context, userID domain.UserID) ([]domain.UserID, error) {
	q := r.qb().Select("user_id").
		From(r.table("follows")).
		Where(sq.Eq{"follow_user_id": userID})

	sqlStr, args, _ := q.ToSql()
	r.logSQL("FollowerIDs", sqlStr, args)

	rows, err := r.pool.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.UserID
	for rows.Next() {
		var id domain.UserID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

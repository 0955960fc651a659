package postgres

import (
	"context"
	"errors"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/EgorLis/nearby/internal/domain"
)

const userColumns = "id, phone, nickname, icon, created_at"

// CreateUserByPhone — вход = регистрация: upsert по телефону,
// ник генерируется из хвоста номера.
func (r *PGRepo) CreateUserByPhone(ctx context.Context, phone string) (domain.User, error) {
	nickname := "user_" + phone[len(phone)-4:]
	q := r.qb().Insert(r.table("users")).
		Columns("phone", "nickname").
		Values(phone, nickname).
		Suffix("ON CONFLICT (phone) DO UPDATE SET phone = EXCLUDED.phone RETURNING " + userColumns)

	sqlStr, args, _ := q.ToSql()
	r.logSQL("CreateUserByPhone", sqlStr, args)

	start := time.Now()
	row := r.pool.QueryRow(ctx, sqlStr, args...)
	var u domain.User
	if err := row.Scan(&u.ID, &u.Phone, &u.Nickname, &u.Icon, &u.CreatedAt); err != nil {
		r.logger.Printf("CreateUserByPhone scan error after %s: %v", time.Since(start), err)
		return domain.User{}, err
	}
	r.logger.Printf("CreateUserByPhone ok in %s id=%d", time.Since(start), u.ID)
	return u, nil
}

func (r *PGRepo) UserByID(ctx context.Context, id domain.UserID) (domain.User, error) {
	q := r.qb().Select(userColumns).
		From(r.table("users")).
		Where(sq.Eq{"id": id})

	sqlStr, args, _ := q.ToSql()
	r.logSQL("UserByID", sqlStr, args)

	start := time.Now()
	row := r.pool.QueryRow(ctx, sqlStr, args...)
	var u domain.User
	if err := row.Scan(&u.ID, &u.Phone, &u.Nickname, &u.Icon, &u.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, domain.ErrNotFound
		}
		r.logger.Printf("UserByID scan error after %s: %v", time.Since(start), err)
		return domain.User{}, err
	}
	return u, nil
}

// UsersByIDs сохраняет порядок переданных id (порядок топа лайков).
func (r *PGRepo) UsersByIDs(ctx context.Context, ids []domain.UserID) ([]domain.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	q := r.qb().Select(userColumns).
		From(r.table("users")).
		Where(sq.Eq{"id": ids})

	sqlStr, args, _ := q.ToSql()
	r.logSQL("UsersByIDs", sqlStr, args)

	rows, err := r.pool.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byID := make(map[domain.UserID]domain.User, len(ids))
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(&u.ID, &u.Phone, &u.Nickname, &u.Icon, &u.CreatedAt); err != nil {
			return nil, err
		}
		byID[u.ID] = u
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// порядок — как в ids
	out := make([]domain.User, 0, len(ids))
	for _, id := range ids {
		if u, ok := byID[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

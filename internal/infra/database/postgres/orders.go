package postgres

import (
	"context"
	"errors"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/EgorLis/nearby/internal/domain"
)

func (r *PGRepo) OrderExists(ctx context.Context, userID domain.UserID, voucherID domain.VoucherID) (bool, error) {
	q := r.qb().Select("1").
		From(r.table("orders")).
		Where(sq.And{sq.Eq{"user_id": userID}, sq.Eq{"voucher_id": voucherID}}).
		Limit(1)

	sqlStr, args, _ := q.ToSql()
	r.logSQL("OrderExists", sqlStr, args)

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

func (r *PGRepo) CreateOrder(ctx context.Context, o domain.Order) error {
	q := r.qb().Insert(r.table("orders")).
		Columns("id", "user_id", "voucher_id", "created_at").
		Values(o.ID, o.UserID, o.VoucherID, o.CreatedAt)

	sqlStr, args, _ := q.ToSql()
	r.logSQL("CreateOrder", sqlStr, args)

	start := time.Now()
	if _, err := r.pool.Exec(ctx, sqlStr, args...); err != nil {
		r.logger.Printf("CreateOrder exec error after %s: %v", time.Since(start), err)
		return err
	}
	r.logger.Printf("CreateOrder ok in %s id=%d", time.Since(start), o.ID)
	return nil
}

func (r *PGRepo) OrderByID(ctx context.Context, id domain.OrderID) (domain.Order, error) {
	q := r.qb().Select("id, user_id, voucher_id, created_at").
		From(r.table("orders")).
		Where(sq.Eq{"id": id})

	sqlStr, args, _ := q.ToSql()
	r.logSQL("OrderByID", sqlStr, args)

	var o domain.Order
	err := r.pool.QueryRow(ctx, sqlStr, args...).Scan(&o.ID, &o.UserID, &o.VoucherID, &o.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Order{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Order{}, err
	}
	return o, nil
}

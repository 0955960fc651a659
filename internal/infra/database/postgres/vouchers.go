package postgres

import (
	"context"
	"errors"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/EgorLis/nearby/internal/domain"
)

const voucherColumns = "id, shop_id, title, stock, begin_time, end_time, created_at"

func (r *PGRepo) VoucherByID(ctx context.Context, id domain.VoucherID) (domain.Voucher, error) {
	q := r.qb().Select(voucherColumns).
		From(r.table("vouchers")).
		Where(sq.Eq{"id": id})

	sqlStr, args, _ := q.ToSql()
	r.logSQL("VoucherByID", sqlStr, args)

	start := time.Now()
	row := r.pool.QueryRow(ctx, sqlStr, args...)
	var v domain.Voucher
	if err := row.Scan(&v.ID, &v.ShopID, &v.Title, &v.Stock, &v.BeginTime, &v.EndTime, &v.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Voucher{}, domain.ErrNotFound
		}
		r.logger.Printf("VoucherByID scan error after %s: %v", time.Since(start), err)
		return domain.Voucher{}, err
	}
	return v, nil
}

// DecrementStock — единственная запись в stock во всём ядре: условный
// декремент с проверкой остатка в самом UPDATE. Ноль затронутых строк —
// остаток исчерпали между проверкой и записью.
func (r *PGRepo) DecrementStock(ctx context.Context, id domain.VoucherID) (bool, error) {
	q := r.qb().Update(r.table("vouchers")).
		Set("stock", sq.Expr("stock - 1")).
		Where(sq.And{sq.Eq{"id": id}, sq.Gt{"stock": 0}})

	sqlStr, args, _ := q.ToSql()
	r.logSQL("DecrementStock", sqlStr, args)

	start := time.Now()
	tag, err := r.pool.Exec(ctx, sqlStr, args...)
	if err != nil {
		r.logger.Printf("DecrementStock exec error after %s: %v", time.Since(start), err)
		return false, err
	}
	ok := tag.RowsAffected() == 1
	r.logger.Printf("DecrementStock id=%d ok=%v in %s", id, ok, time.Since(start))
	return ok, nil
}

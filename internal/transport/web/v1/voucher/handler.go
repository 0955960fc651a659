package voucher

import (
	"log"
	"net/http"
	"strconv"

	"github.com/EgorLis/nearby/internal/domain"
	"github.com/EgorLis/nearby/internal/service/seckill"
	"github.com/EgorLis/nearby/internal/transport/web/logx"
	"github.com/EgorLis/nearby/internal/transport/web/mw"
	v1 "github.com/EgorLis/nearby/internal/transport/web/v1"
)

type Handler struct {
	Log     *log.Logger
	Seckill *seckill.Service
}

// Get — витрина купона (pass-through кеш с null-маркерами).
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	const op = "voucher.get"
	reqID := mw.RequestIDFromCtx(r.Context())

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		v1.WriteDomainError(w, r, domain.ErrBadParams)
		return
	}

	v, err := h.Seckill.Voucher(r.Context(), id)
	if err != nil {
		logx.Error(h.Log, reqID, op, "voucher lookup failed", err, "voucher_id", id)
		v1.WriteDomainError(w, r, err)
		return
	}
	v1.WriteOKData(w, r, v)
}

// Order — заказ флеш-купона текущим пользователем.
// Контеншен блокировки наружу — «повторная отправка».
func (h *Handler) Order(w http.ResponseWriter, r *http.Request) {
	const op = "voucher.order"
	reqID := mw.RequestIDFromCtx(r.Context())

	me, ok := mw.UserFromCtx(r.Context())
	if !ok {
		v1.WriteDomainError(w, r, domain.ErrUnauth)
		return
	}

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		v1.WriteDomainError(w, r, domain.ErrBadParams)
		return
	}

	o, err := h.Seckill.Order(r.Context(), me.ID, id)
	if err != nil {
		logx.Error(h.Log, reqID, op, "order failed", err, "user_id", me.ID, "voucher_id", id)
		v1.WriteDomainError(w, r, err)
		return
	}
	logx.Info(h.Log, reqID, op, "ok", "order_id", o.ID, "user_id", me.ID)
	v1.WriteOKData(w, r, o)
}

package shop

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/EgorLis/nearby/internal/domain"
	shopsvc "github.com/EgorLis/nearby/internal/service/shop"
	"github.com/EgorLis/nearby/internal/transport/web/logx"
	"github.com/EgorLis/nearby/internal/transport/web/mw"
	v1 "github.com/EgorLis/nearby/internal/transport/web/v1"
)

type Handler struct {
	Log   *log.Logger
	Shops *shopsvc.Service
}

// Get возвращает карточку заведения (горячий путь, logical-expire кеш).
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	const op = "shop.get"
	reqID := mw.RequestIDFromCtx(r.Context())

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		logx.Error(h.Log, reqID, op, "bad shop id", err, "raw", r.PathValue("id"))
		v1.WriteDomainError(w, r, domain.ErrBadParams)
		return
	}

	s, err := h.Shops.Shop(r.Context(), id)
	if err != nil {
		logx.Error(h.Log, reqID, op, "shop lookup failed", err, "shop_id", id)
		v1.WriteDomainError(w, r, err)
		return
	}
	v1.WriteOKData(w, r, s)
}

// Update: сначала БД, потом инвалидация кеша.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	const op = "shop.update"
	reqID := mw.RequestIDFromCtx(r.Context())

	var s domain.Shop
	if err := json.NewDecoder(r.Body).Decode(&s); err != nil {
		logx.Error(h.Log, reqID, op, "bad body", err)
		v1.WriteDomainError(w, r, domain.ErrBadParams)
		return
	}

	if err := h.Shops.Update(r.Context(), s); err != nil {
		logx.Error(h.Log, reqID, op, "update failed", err, "shop_id", s.ID)
		v1.WriteDomainError(w, r, err)
		return
	}
	logx.Info(h.Log, reqID, op, "ok", "shop_id", s.ID)
	v1.WriteOKData(w, r, "ok")
}

// Types — справочник типов заведений (mutex-кеш).
func (h *Handler) Types(w http.ResponseWriter, r *http.Request) {
	const op = "shop.types"
	reqID := mw.RequestIDFromCtx(r.Context())

	types, err := h.Shops.Types(r.Context())
	if err != nil {
		logx.Error(h.Log, reqID, op, "types lookup failed", err)
		v1.WriteDomainError(w, r, err)
		return
	}
	v1.WriteOKData(w, r, types)
}

// ByType — заведения типа, с координатами — по дистанции.
// Параметры: ?page=1&x=120.1&y=30.2
func (h *Handler) ByType(w http.ResponseWriter, r *http.Request) {
	const op = "shop.by_type"
	reqID := mw.RequestIDFromCtx(r.Context())

	typeID, err := strconv.ParseInt(r.PathValue("typeId"), 10, 64)
	if err != nil {
		v1.WriteDomainError(w, r, domain.ErrBadParams)
		return
	}
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))

	var x, y *float64
	if xs, ys := r.URL.Query().Get("x"), r.URL.Query().Get("y"); xs != "" && ys != "" {
		xv, xerr := strconv.ParseFloat(xs, 64)
		yv, yerr := strconv.ParseFloat(ys, 64)
		if xerr != nil || yerr != nil {
			v1.WriteDomainError(w, r, domain.ErrBadParams)
			return
		}
		x, y = &xv, &yv
	}

	shops, err := h.Shops.ByType(r.Context(), typeID, page, x, y)
	if err != nil {
		logx.Error(h.Log, reqID, op, "listing failed", err, "type_id", typeID)
		v1.WriteDomainError(w, r, err)
		return
	}
	v1.WriteOKData(w, r, shops)
}

// Warm — админ-ручка прогрева кеша и гео-индекса заведения.
func (h *Handler) Warm(w http.ResponseWriter, r *http.Request) {
	const op = "shop.warm"
	reqID := mw.RequestIDFromCtx(r.Context())

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		v1.WriteDomainError(w, r, domain.ErrBadParams)
		return
	}

	if err := h.Shops.Warm(r.Context(), id, 30*time.Minute); err != nil {
		logx.Error(h.Log, reqID, op, "warm failed", err, "shop_id", id)
		v1.WriteDomainError(w, r, err)
		return
	}
	logx.Info(h.Log, reqID, op, "ok", "shop_id", id)
	v1.WriteOKData(w, r, "ok")
}

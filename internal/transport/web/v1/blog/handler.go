package blog

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/EgorLis/nearby/internal/domain"
	"github.com/EgorLis/nearby/internal/service/feed"
	"github.com/EgorLis/nearby/internal/transport/web/logx"
	"github.com/EgorLis/nearby/internal/transport/web/mw"
	v1 "github.com/EgorLis/nearby/internal/transport/web/v1"
)

type Handler struct {
	Log    *log.Logger
	Feed   *feed.Service
	Photos domain.PhotoStorage
}

// Publish сохраняет заметку и разносит её по лентам подписчиков.
func (h *Handler) Publish(w http.ResponseWriter, r *http.Request) {
	const op = "blog.publish"
	reqID := mw.RequestIDFromCtx(r.Context())

	me, ok := mw.UserFromCtx(r.Context())
	if !ok {
		v1.WriteDomainError(w, r, domain.ErrUnauth)
		return
	}

	var b domain.Blog
	if err := json.NewDecoder(r.Body).Decode(&b); err != nil {
		v1.WriteDomainError(w, r, domain.ErrBadParams)
		return
	}
	b.UserID = me.ID

	saved, err := h.Feed.Publish(r.Context(), b)
	if err != nil {
		logx.Error(h.Log, reqID, op, "publish failed", err, "user_id", me.ID)
		v1.WriteDomainError(w, r, err)
		return
	}
	logx.Info(h.Log, reqID, op, "ok", "blog_id", saved.ID)
	v1.WriteOKData(w, r, saved)
}

// Get — заметка с автором и флагом лайка.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	const op = "blog.get"
	reqID := mw.RequestIDFromCtx(r.Context())

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		v1.WriteDomainError(w, r, domain.ErrBadParams)
		return
	}

	b, err := h.Feed.Blog(r.Context(), id)
	if err != nil {
		logx.Error(h.Log, reqID, op, "blog lookup failed", err, "blog_id", id)
		v1.WriteDomainError(w, r, err)
		return
	}
	v1.WriteOKData(w, r, b)
}

// Hot — горячие заметки, ?page=1
func (h *Handler) Hot(w http.ResponseWriter, r *http.Request) {
	const op = "blog.hot"
	reqID := mw.RequestIDFromCtx(r.Context())

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	blogs, err := h.Feed.Hot(r.Context(), page)
	if err != nil {
		logx.Error(h.Log, reqID, op, "hot lookup failed", err)
		v1.WriteDomainError(w, r, err)
		return
	}
	v1.WriteOKData(w, r, blogs)
}

// Like — тумблер лайка.
func (h *Handler) Like(w http.ResponseWriter, r *http.Request) {
	const op = "blog.like"
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

	if err := h.Feed.Like(r.Context(), me.ID, id); err != nil {
		logx.Error(h.Log, reqID, op, "like failed", err, "blog_id", id, "user_id", me.ID)
		v1.WriteDomainError(w, r, err)
		return
	}
	v1.WriteOKData(w, r, "ok")
}

// Likes — первые пять лайкнувших.
func (h *Handler) Likes(w http.ResponseWriter, r *http.Request) {
	const op = "blog.likes"
	reqID := mw.RequestIDFromCtx(r.Context())

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		v1.WriteDomainError(w, r, domain.ErrBadParams)
		return
	}

	users, err := h.Feed.TopLikers(r.Context(), id)
	if err != nil {
		logx.Error(h.Log, reqID, op, "likes lookup failed", err, "blog_id", id)
		v1.WriteDomainError(w, r, err)
		return
	}
	v1.WriteOKData(w, r, users)
}

// Scroll — лента подписок, ?max=<мс>&offset=<n>. Без max — первая страница.
func (h *Handler) Scroll(w http.ResponseWriter, r *http.Request) {
	const op = "blog.scroll"
	reqID := mw.RequestIDFromCtx(r.Context())

	me, ok := mw.UserFromCtx(r.Context())
	if !ok {
		v1.WriteDomainError(w, r, domain.ErrUnauth)
		return
	}

	max := h.Feed.NowMillis()
	if raw := r.URL.Query().Get("max"); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			v1.WriteDomainError(w, r, domain.ErrBadParams)
			return
		}
		max = v
	}
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	res, err := h.Feed.Scroll(r.Context(), me.ID, max, offset)
	if err != nil {
		logx.Error(h.Log, reqID, op, "scroll failed", err, "user_id", me.ID)
		v1.WriteDomainError(w, r, err)
		return
	}
	v1.WriteOKData(w, r, res)
}

// Photo — загрузка фото заметки в хранилище, возвращает storage key.
func (h *Handler) Photo(w http.ResponseWriter, r *http.Request) {
	const op = "blog.photo"
	reqID := mw.RequestIDFromCtx(r.Context())

	if _, ok := mw.UserFromCtx(r.Context()); !ok {
		v1.WriteDomainError(w, r, domain.ErrUnauth)
		return
	}

	mime := r.Header.Get("Content-Type")
	if mime == "" {
		mime = "application/octet-stream"
	}
	key, err := h.Photos.Put(r.Context(), r.Body, r.ContentLength, mime)
	if err != nil {
		logx.Error(h.Log, reqID, op, "upload failed", err)
		v1.WriteDomainError(w, r, domain.ErrUnexpected)
		return
	}
	logx.Info(h.Log, reqID, op, "ok", "key", key)
	v1.WriteOKData(w, r, key)
}

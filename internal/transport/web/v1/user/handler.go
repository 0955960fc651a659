package user

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/EgorLis/nearby/internal/domain"
	"github.com/EgorLis/nearby/internal/service/feed"
	"github.com/EgorLis/nearby/internal/session"
	"github.com/EgorLis/nearby/internal/transport/web/logx"
	"github.com/EgorLis/nearby/internal/transport/web/mw"
	v1 "github.com/EgorLis/nearby/internal/transport/web/v1"
)

type Handler struct {
	Log      *log.Logger
	Sessions *session.Store
	Feed     *feed.Service
}

type codeRequest struct {
	Phone string `json:"phone"`
}

type loginRequest struct {
	Phone string `json:"phone"`
	Code  string `json:"code"`
}

// Code — выдать код входа. В проде код уходит в SMS; здесь возвращаем
// в ответе (как и исходная платформа в dev-режиме).
func (h *Handler) Code(w http.ResponseWriter, r *http.Request) {
	const op = "user.code"
	reqID := mw.RequestIDFromCtx(r.Context())

	var req codeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		v1.WriteDomainError(w, r, domain.ErrBadParams)
		return
	}

	code, err := h.Sessions.SendCode(r.Context(), req.Phone)
	if err != nil {
		logx.Error(h.Log, reqID, op, "send code failed", err)
		v1.WriteDomainError(w, r, err)
		return
	}
	logx.Info(h.Log, reqID, op, "ok")
	v1.WriteOKData(w, r, code)
}

// Login — обмен (phone, code) на токен сессии.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	const op = "user.login"
	reqID := mw.RequestIDFromCtx(r.Context())

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		v1.WriteDomainError(w, r, domain.ErrBadParams)
		return
	}

	token, err := h.Sessions.Login(r.Context(), req.Phone, req.Code)
	if err != nil {
		logx.Error(h.Log, reqID, op, "login failed", err)
		v1.WriteDomainError(w, r, err)
		return
	}
	logx.Info(h.Log, reqID, op, "ok")
	v1.WriteOKData(w, r, token)
}

// Logout — разрыв сессии.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	const op = "user.logout"
	reqID := mw.RequestIDFromCtx(r.Context())

	raw := r.Header.Get("Authorization")
	token := ""
	if len(raw) > 7 && strings.EqualFold(raw[:7], "Bearer ") {
		token = strings.TrimSpace(raw[7:])
	}
	if err := h.Sessions.Logout(r.Context(), token); err != nil {
		logx.Error(h.Log, reqID, op, "logout failed", err)
		v1.WriteDomainError(w, r, err)
		return
	}
	v1.WriteOKData(w, r, "ok")
}

// Me — текущий пользователь из контекста.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	me, ok := mw.UserFromCtx(r.Context())
	if !ok {
		v1.WriteDomainError(w, r, domain.ErrUnauth)
		return
	}
	v1.WriteOKData(w, r, me)
}

// Follow / Unfollow — подписка на пользователя {id}.
func (h *Handler) Follow(w http.ResponseWriter, r *http.Request) {
	h.setFollow(w, r, true)
}

func (h *Handler) Unfollow(w http.ResponseWriter, r *http.Request) {
	h.setFollow(w, r, false)
}

func (h *Handler) setFollow(w http.ResponseWriter, r *http.Request, follow bool) {
	const op = "user.follow"
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

	if follow {
		err = h.Feed.Follow(r.Context(), me.ID, id)
	} else {
		err = h.Feed.Unfollow(r.Context(), me.ID, id)
	}
	if err != nil {
		logx.Error(h.Log, reqID, op, "follow toggle failed", err, "target", id, "follow", follow)
		v1.WriteDomainError(w, r, err)
		return
	}
	v1.WriteOKData(w, r, "ok")
}

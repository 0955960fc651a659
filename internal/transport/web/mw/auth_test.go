package mw_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/EgorLis/nearby/internal/domain"
	"github.com/EgorLis/nearby/internal/transport/web/mw"
)

type fakeSessions struct {
	tokens map[string]domain.UserDTO
}

func (f *fakeSessions) UserByToken(_ context.Context, token string) (domain.UserDTO, error) {
	u, ok := f.tokens[token]
	if !ok {
		return domain.UserDTO{}, domain.ErrUnauth
	}
	return u, nil
}

func captureUser(got *domain.UserDTO, found *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, ok := mw.UserFromCtx(r.Context())
		*got, *found = u, ok
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequireAuthRejectsMissingToken(t *testing.T) {
	sessions := &fakeSessions{tokens: map[string]domain.UserDTO{}}
	var u domain.UserDTO
	var ok bool

	h := mw.RequireAuth(sessions, captureUser(&u, &ok))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/users/me", nil))

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.False(t, ok)
}

func TestRequireAuthRejectsUnknownToken(t *testing.T) {
	sessions := &fakeSessions{tokens: map[string]domain.UserDTO{}}

	h := mw.RequireAuth(sessions, http.NotFoundHandler())
	req := httptest.NewRequest(http.MethodGet, "/v1/users/me", nil)
	req.Header.Set("Authorization", "Bearer nope")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAuthPutsUserInContext(t *testing.T) {
	sessions := &fakeSessions{tokens: map[string]domain.UserDTO{
		"tok-1": {ID: 42, Nickname: "alice"},
	}}
	var u domain.UserDTO
	var ok bool

	h := mw.RequireAuth(sessions, captureUser(&u, &ok))
	req := httptest.NewRequest(http.MethodGet, "/v1/users/me", nil)
	req.Header.Set("Authorization", "Bearer tok-1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, ok)
	require.EqualValues(t, 42, u.ID)
	require.Equal(t, "alice", u.Nickname)
}

func TestOptionalAuthAnonymousPasses(t *testing.T) {
	sessions := &fakeSessions{tokens: map[string]domain.UserDTO{}}
	var u domain.UserDTO
	var ok bool

	h := mw.OptionalAuth(sessions, captureUser(&u, &ok))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/blogs/1", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.False(t, ok)
}

func TestOptionalAuthWithTokenSetsUser(t *testing.T) {
	sessions := &fakeSessions{tokens: map[string]domain.UserDTO{
		"tok-1": {ID: 7},
	}}
	var u domain.UserDTO
	var ok bool

	h := mw.OptionalAuth(sessions, captureUser(&u, &ok))
	req := httptest.NewRequest(http.MethodGet, "/v1/blogs/1", nil)
	req.Header.Set("Authorization", "Bearer tok-1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, ok)
	require.EqualValues(t, 7, u.ID)
}

func TestWithRequestIDGeneratesAndEchoes(t *testing.T) {
	var got string
	h := mw.WithRequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = mw.RequestIDFromCtx(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NotEmpty(t, got)

	// входящий заголовок сохраняется
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "req-123")
	h.ServeHTTP(httptest.NewRecorder(), req)
	require.Equal(t, "req-123", got)
}

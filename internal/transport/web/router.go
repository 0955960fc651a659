package web

import (
	"log"
	"net/http"

	"github.com/EgorLis/nearby/internal/transport/web/mw"
	blogh "github.com/EgorLis/nearby/internal/transport/web/v1/blog"
	"github.com/EgorLis/nearby/internal/transport/web/v1/health"
	shoph "github.com/EgorLis/nearby/internal/transport/web/v1/shop"
	userh "github.com/EgorLis/nearby/internal/transport/web/v1/user"
	voucherh "github.com/EgorLis/nearby/internal/transport/web/v1/voucher"
)

func newRouter(hh *health.Handler, sh *shoph.Handler, vh *voucherh.Handler, bh *blogh.Handler, uh *userh.Handler, sessions mw.Sessions, logger *log.Logger) http.Handler {
	mux := http.NewServeMux()

	// health
	mux.HandleFunc("GET /v1/healthz", hh.Liveness)
	mux.HandleFunc("GET /v1/readyz", hh.Readiness)

	// сессии
	mux.HandleFunc("POST /v1/users/code", uh.Code)
	mux.HandleFunc("POST /v1/users/login", uh.Login)
	mux.HandleFunc("POST /v1/users/logout", uh.Logout)
	mux.Handle("GET /v1/users/me", mw.RequireAuth(sessions, http.HandlerFunc(uh.Me)))
	mux.Handle("PUT /v1/users/{id}/follow", mw.RequireAuth(sessions, http.HandlerFunc(uh.Follow)))
	mux.Handle("DELETE /v1/users/{id}/follow", mw.RequireAuth(sessions, http.HandlerFunc(uh.Unfollow)))

	// заведения
	mux.HandleFunc("GET /v1/shops/{id}", sh.Get)
	mux.HandleFunc("PUT /v1/shops/{id}", sh.Update)
	mux.HandleFunc("POST /v1/shops/{id}/warm", sh.Warm)
	mux.HandleFunc("GET /v1/shop-types", sh.Types)
	mux.HandleFunc("GET /v1/shops/of-type/{typeId}", sh.ByType)

	// купоны
	mux.HandleFunc("GET /v1/vouchers/{id}", vh.Get)
	mux.Handle("POST /v1/vouchers/{id}/order", mw.RequireAuth(sessions, http.HandlerFunc(vh.Order)))

	// заметки и лента
	mux.HandleFunc("GET /v1/blogs/hot", bh.Hot)
	mux.Handle("POST /v1/blogs", mw.RequireAuth(sessions, http.HandlerFunc(bh.Publish)))
	mux.Handle("POST /v1/blogs/photo", mw.RequireAuth(sessions, limitBody(8<<20, bh.Photo))) // 8MB лимит
	mux.Handle("GET /v1/blogs/{id}", mw.OptionalAuth(sessions, http.HandlerFunc(bh.Get)))
	mux.Handle("PUT /v1/blogs/{id}/like", mw.RequireAuth(sessions, http.HandlerFunc(bh.Like)))
	mux.HandleFunc("GET /v1/blogs/{id}/likes", bh.Likes)
	mux.Handle("GET /v1/feed", mw.RequireAuth(sessions, http.HandlerFunc(bh.Scroll)))

	// 🔗 middleware
	return mw.WithRequestID(mw.Logging(logger)(mux))
}

func limitBody(n int64, h http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, n)
		h(w, r)
	})
}

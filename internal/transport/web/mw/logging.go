package mw

import (
	"log"
	"net/http"
	"time"
)

// Logging пишет одну строку на запрос: метод, путь, статус, размер тела
// и длительность. Статус и размер снимает обёртка metaWriter — хендлеры
// про логирование не знают.
func Logging(l *log.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &metaWriter{ResponseWriter: w}

			next.ServeHTTP(rec, r)

			l.Printf("lvl=info req_id=%s method=%s path=%q status=%d size=%d duration_ms=%d",
				RequestIDFromCtx(r.Context()), r.Method, r.URL.Path,
				rec.status, rec.size, time.Since(start).Milliseconds())
		})
	}
}

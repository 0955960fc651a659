package mw_test

import (
	"bytes"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/EgorLis/nearby/internal/transport/web/mw"
)

func TestLoggingRecordsStatusSizeAndRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(&buf, "", 0)

	h := mw.WithRequestID(mw.Logging(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("hello"))
	})))

	req := httptest.NewRequest(http.MethodGet, "/v1/shops/1", nil)
	req.Header.Set("X-Request-ID", "req-42")
	h.ServeHTTP(httptest.NewRecorder(), req)

	line := buf.String()
	require.Contains(t, line, "req_id=req-42")
	require.Contains(t, line, "method=GET")
	require.Contains(t, line, `path="/v1/shops/1"`)
	require.Contains(t, line, "status=418")
	require.Contains(t, line, "size=5")
}

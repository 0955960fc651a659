package v1

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/EgorLis/nearby/internal/domain"
	"github.com/EgorLis/nearby/internal/transport/web/mw"
)

// MapDomainError решает HTTP-статус + error.code/text для конверта
func MapDomainError(err error) (httpStatus int, env domain.APIEnvelope) {
	switch {
	case errors.Is(err, domain.ErrBadParams):
		return http.StatusBadRequest, domain.Fail(domain.ErrCodeBadParams, "bad params")
	case errors.Is(err, domain.ErrUnauth):
		return http.StatusUnauthorized, domain.Fail(domain.ErrCodeUnauth, "unauthorized")
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, domain.Fail(domain.ErrCodeNotFound, "not found")
	case errors.Is(err, domain.ErrMethodNotAllowed):
		return http.StatusMethodNotAllowed, domain.Fail(domain.ErrCodeMethodNotAllowed, "method not allowed")

	// секкилл: все отказы — явные значения, наружу уходят как конфликт
	case errors.Is(err, domain.ErrWindowNotOpen):
		return http.StatusConflict, domain.Fail(domain.ErrCodeConflict, "sale has not started")
	case errors.Is(err, domain.ErrWindowClosed):
		return http.StatusConflict, domain.Fail(domain.ErrCodeConflict, "sale has ended")
	case errors.Is(err, domain.ErrOutOfStock):
		return http.StatusConflict, domain.Fail(domain.ErrCodeConflict, "out of stock")
	case errors.Is(err, domain.ErrDuplicateOrder):
		return http.StatusConflict, domain.Fail(domain.ErrCodeConflict, "already ordered")
	case errors.Is(err, domain.ErrLockUnavailable):
		return http.StatusConflict, domain.Fail(domain.ErrCodeConflict, "duplicate submission, try later")

	case errors.Is(err, domain.ErrStoreUnavailable):
		return http.StatusServiceUnavailable, domain.Fail(domain.ErrCodeUnexpected, "temporarily unavailable")
	default:
		return http.StatusInternalServerError, domain.Fail(domain.ErrCodeUnexpected, "unexpected")
	}
}

// WriteEnvelope пишет конверт; для HEAD — без тела
func WriteEnvelope(w http.ResponseWriter, r *http.Request, status int, env domain.APIEnvelope) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Request-ID", mw.RequestIDFromCtx(r.Context()))
	w.WriteHeader(status)
	if r.Method == http.MethodHead {
		return
	}
	_ = json.NewEncoder(w).Encode(env)
}

// Шорткаты
func WriteOKData(w http.ResponseWriter, r *http.Request, data any) {
	WriteEnvelope(w, r, http.StatusOK, domain.OkData(data))
}

func WriteDomainError(w http.ResponseWriter, r *http.Request, err error) {
	status, env := MapDomainError(err)
	WriteEnvelope(w, r, status, env)
}

package domain

// Общий конверт ответа
type APIError struct {
	Code int    `json:"code,omitempty"`
	Text string `json:"text,omitempty"`
}

type APIEnvelope struct {
	Error *APIError `json:"error,omitempty"`
	Data  any       `json:"data,omitempty"`
}

// Коды ошибок в конверте
const (
	ErrCodeBadParams        = 400
	ErrCodeUnauth           = 401
	ErrCodeNotFound         = 404
	ErrCodeMethodNotAllowed = 405
	ErrCodeConflict         = 409
	ErrCodeUnexpected       = 500
)

// Утилиты для сборки конвертов
func OkData(data any) APIEnvelope { return APIEnvelope{Data: data} }
func Fail(code int, text string) APIEnvelope {
	return APIEnvelope{Error: &APIError{Code: code, Text: text}}
}

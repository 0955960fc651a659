package domain

import "context"

// Ключ для хранения аутентифицированного пользователя в контексте запроса.
// Идентичность всегда едет явным значением контекста, не глобальным состоянием.
type ctxKey int

const userCtxKey ctxKey = 1

func WithUser(ctx context.Context, u UserDTO) context.Context {
	return context.WithValue(ctx, userCtxKey, u)
}

func UserFromCtx(ctx context.Context) (UserDTO, bool) {
	u, ok := ctx.Value(userCtxKey).(UserDTO)
	return u, ok
}

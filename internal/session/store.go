// Пакет session — вход по коду и опак-токены в key-value store.
// Токен — uuid, по ключу login:token:<token> лежит UserDTO (JSON) со
// скользящим TTL: каждый аутентифицированный запрос продлевает сессию.
// Идентичность дальше едет явным значением контекста (domain.WithUser).
package session

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/EgorLis/nearby/internal/domain"
)

const (
	TokenTTL = 30 * time.Minute
	codeTTL  = 2 * time.Minute
)

type Store struct {
	kv    domain.KV
	users domain.UsersRepo
}

func NewStore(kv domain.KV, users domain.UsersRepo) *Store {
	return &Store{kv: kv, users: users}
}

// SendCode генерирует 6-значный код входа и кладёт его в store.
// Возвращает код вызывающему: отправка SMS — забота внешнего контура.
func (s *Store) SendCode(ctx context.Context, phone string) (string, error) {
	if !domain.ValidPhone(phone) {
		return "", domain.ErrBadParams
	}
	code, err := sixDigits()
	if err != nil {
		return "", err
	}
	if err := s.kv.Set(ctx, domain.LoginCodeKey(phone), []byte(code), codeTTL); err != nil {
		return "", err
	}
	return code, nil
}

// Login сверяет код, находит/создаёт пользователя и выдаёт токен сессии.
func (s *Store) Login(ctx context.Context, phone, code string) (string, error) {
	if !domain.ValidPhone(phone) || !domain.ValidCode(code) {
		return "", domain.ErrBadParams
	}

	want, err := s.kv.Get(ctx, domain.LoginCodeKey(phone))
	if errors.Is(err, domain.ErrCacheMiss) {
		return "", domain.ErrUnauth
	}
	if err != nil {
		return "", err
	}
	if string(want) != code {
		return "", domain.ErrUnauth
	}

	u, err := s.users.CreateUserByPhone(ctx, phone)
	if err != nil {
		return "", err
	}

	token := uuid.NewString()
	b, err := json.Marshal(u.DTO())
	if err != nil {
		return "", err
	}
	if err := s.kv.Set(ctx, domain.LoginTokenKey(token), b, TokenTTL); err != nil {
		return "", err
	}
	_ = s.kv.Del(ctx, domain.LoginCodeKey(phone)) // код одноразовый

	return token, nil
}

// UserByToken возвращает пользователя сессии и продлевает её TTL.
func (s *Store) UserByToken(ctx context.Context, token string) (domain.UserDTO, error) {
	if token == "" {
		return domain.UserDTO{}, domain.ErrUnauth
	}
	b, err := s.kv.Get(ctx, domain.LoginTokenKey(token))
	if errors.Is(err, domain.ErrCacheMiss) {
		return domain.UserDTO{}, domain.ErrUnauth
	}
	if err != nil {
		return domain.UserDTO{}, err
	}

	var u domain.UserDTO
	if err := json.Unmarshal(b, &u); err != nil {
		return domain.UserDTO{}, domain.ErrUnauth
	}

	// скользящий TTL
	if err := s.kv.Expire(ctx, domain.LoginTokenKey(token), TokenTTL); err != nil {
		return domain.UserDTO{}, err
	}
	return u, nil
}

func (s *Store) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.kv.Del(ctx, domain.LoginTokenKey(token))
}

func sixDigits() (string, error) {
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	n := uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
	return fmt.Sprintf("%06d", n%1000000), nil
}

package web

import (
	"github.com/EgorLis/nearby/internal/domain"
	"github.com/EgorLis/nearby/internal/service/feed"
	"github.com/EgorLis/nearby/internal/service/seckill"
	shopsvc "github.com/EgorLis/nearby/internal/service/shop"
	"github.com/EgorLis/nearby/internal/session"
	"github.com/EgorLis/nearby/internal/transport/web/v1/health"
)

type Pinger = health.Pinger

type Services struct {
	Shops    *shopsvc.Service
	Seckill  *seckill.Service
	Feed     *feed.Service
	Sessions *session.Store
}

type Infra struct {
	DB     Pinger
	Cache  Pinger
	Photos domain.PhotoStorage
}

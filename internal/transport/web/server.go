package web

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/EgorLis/nearby/internal/config"
	blogh "github.com/EgorLis/nearby/internal/transport/web/v1/blog"
	"github.com/EgorLis/nearby/internal/transport/web/v1/health"
	shoph "github.com/EgorLis/nearby/internal/transport/web/v1/shop"
	userh "github.com/EgorLis/nearby/internal/transport/web/v1/user"
	voucherh "github.com/EgorLis/nearby/internal/transport/web/v1/voucher"
)

type Server struct {
	log    *log.Logger
	server *http.Server
	cfg    *config.Config
}

func New(logger *log.Logger, cfg *config.Config, svc Services, infra Infra) *Server {
	healthLog := log.New(logger.Writer(), logger.Prefix()+"[health] ", logger.Flags())
	shopLog := log.New(logger.Writer(), logger.Prefix()+"[shop] ", logger.Flags())
	voucherLog := log.New(logger.Writer(), logger.Prefix()+"[voucher] ", logger.Flags())
	blogLog := log.New(logger.Writer(), logger.Prefix()+"[blog] ", logger.Flags())
	userLog := log.New(logger.Writer(), logger.Prefix()+"[user] ", logger.Flags())

	healthHandler := &health.Handler{Log: healthLog, DB: infra.DB, Cache: infra.Cache}
	shopHandler := &shoph.Handler{Log: shopLog, Shops: svc.Shops}
	voucherHandler := &voucherh.Handler{Log: voucherLog, Seckill: svc.Seckill}
	blogHandler := &blogh.Handler{Log: blogLog, Feed: svc.Feed, Photos: infra.Photos}
	userHandler := &userh.Handler{Log: userLog, Sessions: svc.Sessions, Feed: svc.Feed}

	srv := &http.Server{
		Addr:              cfg.AppPort,
		Handler:           newRouter(healthHandler, shopHandler, voucherHandler, blogHandler, userHandler, svc.Sessions, logger),
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		MaxHeaderBytes:    1 << 20,
		ReadHeaderTimeout: 2 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return &Server{server: srv, cfg: cfg, log: logger}
}

func (ws *Server) Run() {
	ws.log.Printf("started on %s", ws.server.Addr)
	if err := ws.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		ws.log.Fatalf("error: %v", err)
	}
}

func (ws *Server) Close(ctx context.Context) {
	if err := ws.server.Shutdown(ctx); err != nil {
		ws.log.Printf("forced to shutdown: %v", err)
	}
	ws.log.Println("exited gracefully")
}

package app

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/EgorLis/nearby/internal/cache"
	"github.com/EgorLis/nearby/internal/config"
	"github.com/EgorLis/nearby/internal/idgen"
	redisx "github.com/EgorLis/nearby/internal/infra/cache/redis"
	"github.com/EgorLis/nearby/internal/infra/database/postgres"
	s3storage "github.com/EgorLis/nearby/internal/infra/storage/s3"
	"github.com/EgorLis/nearby/internal/service/feed"
	"github.com/EgorLis/nearby/internal/service/seckill"
	shopsvc "github.com/EgorLis/nearby/internal/service/shop"
	"github.com/EgorLis/nearby/internal/session"
	"github.com/EgorLis/nearby/internal/transport/web"
)

type App struct {
	config *config.Config
	server *web.Server
	log    *log.Logger
	repo   *postgres.PGRepo
	kv     *redisx.KV
	cc     *cache.Client
}

func Build(ctx context.Context) (*App, error) {
	base := log.New(os.Stdout, "[app] ", log.LstdFlags)

	serverLog := log.New(base.Writer(), base.Prefix()+"[server] ", base.Flags())
	pgLog := log.New(base.Writer(), base.Prefix()+"[postgres] ", base.Flags())
	s3Log := log.New(base.Writer(), base.Prefix()+"[s3] ", base.Flags())
	redisLog := log.New(base.Writer(), base.Prefix()+"[redis] ", base.Flags())
	cacheLog := log.New(base.Writer(), base.Prefix()+"[cache] ", base.Flags())
	shopLog := log.New(base.Writer(), base.Prefix()+"[shops] ", base.Flags())
	seckillLog := log.New(base.Writer(), base.Prefix()+"[seckill] ", base.Flags())
	feedLog := log.New(base.Writer(), base.Prefix()+"[feed] ", base.Flags())

	cfg, err := config.LoadFromEnv()
	if err != nil {
		return nil, fmt.Errorf("failed load config: %w", err)
	}
	base.Printf("\n  configuration: %s-------------------", cfg)

	base.Println("init PostgreSQL")
	pgRepo, err := postgres.NewPGRepo(ctx, pgLog, cfg.GetDSN(), cfg.DBScheme)
	if err != nil {
		return nil, fmt.Errorf("failed init postgres: %w", err)
	}
	base.Println("PostgreSQL is initialized")

	base.Println("init S3 storage")
	s3cfg := s3storage.Config{
		Endpoint:  cfg.S3Endpoint,
		Region:    cfg.S3Region,
		Bucket:    cfg.S3Bucket,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
		UseSSL:    cfg.S3UseSSL,
		PathStyle: cfg.S3PathStyle,
	}
	s3, err := s3storage.New(ctx, s3cfg, s3Log)
	if err != nil {
		return nil, fmt.Errorf("failed init s3: %w", err)
	}

	base.Println("init Redis")
	kv := redisx.New(redisx.Config{
		Addr:     cfg.RedisAddr,
		DB:       cfg.RedisDB,
		Password: cfg.RedisPassword,
	}, redisLog)
	if err := kv.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed init redis: %w", err)
	}
	base.Println("Redis is initialized")

	// Кэш-клиент и генератор ID работают поверх того же Redis.
	cc := cache.New(kv, cacheLog)
	ids := idgen.New(kv)

	base.Println("init services")
	shops := shopsvc.New(pgRepo, cc, kv, shopLog)
	sk := seckill.New(pgRepo, pgRepo, kv, ids, cc, seckillLog)
	fd := feed.New(pgRepo, pgRepo, pgRepo, kv, feedLog)
	sessions := session.NewStore(kv, pgRepo)

	base.Println("init Server")
	svc := web.Services{Shops: shops, Seckill: sk, Feed: fd, Sessions: sessions}
	infra := web.Infra{DB: pgRepo, Cache: kv, Photos: s3}
	server := web.New(serverLog, cfg, svc, infra)
	base.Println("Server is initialized")

	base.Println("build ended")
	return &App{
		config: cfg,
		server: server,
		log:    base,
		repo:   pgRepo,
		kv:     kv,
		cc:     cc}, nil
}

func (a *App) Run(ctx context.Context) error {
	a.log.Println("start application...")
	go a.server.Run()
	<-ctx.Done()
	a.log.Println("stop application...")

	stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	a.server.Close(stopCtx)
	a.cc.Close()
	a.repo.Close()
	a.kv.Close()

	return nil
}

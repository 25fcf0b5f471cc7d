package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/linkmap/linkmap/internal/config"
	"github.com/linkmap/linkmap/internal/events"
	"github.com/linkmap/linkmap/internal/geo"
	applog "github.com/linkmap/linkmap/internal/logger"
	"github.com/linkmap/linkmap/internal/registry"
	"github.com/linkmap/linkmap/internal/store"
	"github.com/linkmap/linkmap/internal/store/filestore"
	"github.com/linkmap/linkmap/internal/store/gormstore"
	"github.com/linkmap/linkmap/internal/store/redisstore"
)

func main() {
	applog.InitFromEnv()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "err", err)
		os.Exit(1)
	}

	ctx := context.Background()

	st, err := buildStore(ctx, cfg)
	if err != nil {
		slog.Error("store initialization failed", "backend", cfg.StoreBackend, "err", err)
		os.Exit(1)
	}

	pub, err := buildPublisher(cfg)
	if err != nil {
		slog.Error("click publisher initialization failed", "err", err)
		os.Exit(1)
	}

	reg := registry.New(ctx, st, geo.NewStub(), pub, applog.Default())
	app := newApp(reg, cfg.AppDomain)

	slog.Info("starting server", "port", cfg.Port, "store", cfg.StoreBackend)
	if err := app.Listen(":" + cfg.Port); err != nil {
		slog.Error("server failed", "err", err)
		os.Exit(1)
	}
}

func buildStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	switch cfg.StoreBackend {
	case config.BackendRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if _, err := rdb.Ping(ctx).Result(); err != nil {
			return nil, err
		}
		return redisstore.New(rdb, cfg.SnapshotKey), nil

	case config.BackendPostgres:
		db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{
			Logger: applog.NewGormLogger(cfg.GormLogLevel),
		})
		if err != nil {
			return nil, err
		}
		return gormstore.New(db)

	case config.BackendMemory:
		return store.NewMemory(), nil

	default:
		return filestore.New(cfg.SnapshotPath), nil
	}
}

func buildPublisher(cfg *config.Config) (events.Publisher, error) {
	if !cfg.PublishClicks {
		return events.Nop{}, nil
	}
	conn, err := amqp091.Dial(cfg.RabbitURL)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		return nil, err
	}
	return events.NewAMQPPublisher(ch, cfg.ClickQueue)
}

// Command platform runs every service in one process on in-memory stores.
// State is lost on restart.
package main

import (
	"context"
	"fmt"
	"log"

	"github.com/acharyaPawan/ecommerce-platform-sub001/internal/platform"
	pkgconfig "github.com/acharyaPawan/ecommerce-platform-sub001/pkg/config"
	"github.com/acharyaPawan/ecommerce-platform-sub001/pkg/httpapi"
	"github.com/acharyaPawan/ecommerce-platform-sub001/pkg/lifecycle"
	"github.com/acharyaPawan/ecommerce-platform-sub001/pkg/logger"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	var cfg platform.Config
	pkgconfig.MustLoad(&cfg)

	l, err := logger.New(cfg.Log, "platform")
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer func() { _ = l.Sync() }()

	ctx, stop := lifecycle.SignalContext()
	defer stop()

	if err := run(ctx, cfg, l); err != nil {
		l.Fatal("platform failed", zap.Error(err))
	}
	l.Info("platform stopped")
}

func run(ctx context.Context, cfg platform.Config, l *zap.Logger) error {
	opts := platform.Options{
		Logger:         l,
		SnapshotSecret: []byte(cfg.SnapshotSecret),
		ReservationTTL: cfg.ReservationTTL,
		Stock:          cfg.Stock,
		Prices:         cfg.Prices,
		DeclineReason:  cfg.DeclineReason,
	}
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis ping: %w", err)
		}
		opts.Redis = rdb
	}

	p, err := platform.New(ctx, opts)
	if err != nil {
		return err
	}
	defer p.Close()

	logger.Info(ctx, l, "platform ready", zap.Int("skus", len(cfg.Stock)), zap.Int("prices", len(cfg.Prices)))

	srv := httpapi.Server(cfg.HTTPAddr, "platform", p.Router())
	tasks := append(p.Tasks(), lifecycle.HTTP(srv, l))
	return lifecycle.Run(ctx, tasks...)
}

package main

import (
	"context"
	"fmt"
	"log"

	"github.com/acharyaPawan/ecommerce-platform-sub001/cart-service/app"
	"github.com/acharyaPawan/ecommerce-platform-sub001/cart-service/internal/config"
	"github.com/acharyaPawan/ecommerce-platform-sub001/cart-service/internal/repository"
	"github.com/acharyaPawan/ecommerce-platform-sub001/pkg/broker"
	pkgconfig "github.com/acharyaPawan/ecommerce-platform-sub001/pkg/config"
	"github.com/acharyaPawan/ecommerce-platform-sub001/pkg/httpapi"
	"github.com/acharyaPawan/ecommerce-platform-sub001/pkg/lifecycle"
	"github.com/acharyaPawan/ecommerce-platform-sub001/pkg/logger"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

func main() {
	var cfg config.Config
	pkgconfig.MustLoad(&cfg)

	l, err := logger.New(cfg.Log, app.Name)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer func() { _ = l.Sync() }()

	ctx, stop := lifecycle.SignalContext()
	defer stop()

	if err := run(ctx, cfg, l); err != nil {
		l.Fatal("cart service failed", zap.Error(err))
	}
	l.Info("cart service stopped")
}

func run(ctx context.Context, cfg config.Config, l *zap.Logger) error {
	ordersConn, err := grpc.NewClient(cfg.Orders.Addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithStatsHandler(otelgrpc.NewClientHandler()),
	)
	if err != nil {
		return fmt.Errorf("orders client: %w", err)
	}
	defer ordersConn.Close()

	opts := app.Options{
		Logger:          l,
		Orders:          app.GRPCOrders(ordersConn, l),
		CacheTTL:        cfg.Redis.CacheTTL,
		IdempotencyTTL:  cfg.Redis.IdempotencyTTL,
		SnapshotSecret:  []byte(cfg.SnapshotSecret),
		MaxItemQuantity: cfg.MaxItemQuantity,
		RequestTimeout:  cfg.RequestTimeout,
	}

	if cfg.Pricing.URL != "" {
		opts.Pricing = app.HTTPPricing(cfg.Pricing.URL, cfg.Pricing.Timeout, l)
	} else {
		logger.Warn(ctx, l, "no pricing url, using static prices", zap.Int("skus", len(cfg.Pricing.Prices)))
		if opts.Pricing, err = app.StaticPricing(cfg.Pricing.Prices); err != nil {
			return err
		}
	}

	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis ping: %w", err)
		}
		opts.Redis = rdb
	} else {
		logger.Warn(ctx, l, "no redis configured, cache and idempotency keys disabled")
	}

	var svc *app.App
	switch cfg.Store {
	case "memory":
		logger.Warn(ctx, l, "using in-memory store, state is lost on restart")
		svc = app.NewMemory(opts)
	default:
		db, err := repository.ConnectMongoDB(ctx, cfg.Mongo)
		if err != nil {
			return err
		}
		defer func() { _ = db.Client().Disconnect(context.Background()) }()
		logger.Info(ctx, l, "connected to MongoDB", zap.String("database", cfg.Mongo.Database))

		if svc, err = app.NewMongo(ctx, db, opts); err != nil {
			return err
		}
	}

	source := broker.NewKafkaConsumer(cfg.Kafka.Consumer(app.GroupID, app.Topics...), l)
	defer source.Close()

	srv := httpapi.Server(cfg.HTTPAddr, app.Name, svc.Router())
	tasks := append(svc.Tasks(source), lifecycle.HTTP(srv, l))
	return lifecycle.Run(ctx, tasks...)
}

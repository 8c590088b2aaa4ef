package main

import (
	"context"
	"log"

	"github.com/acharyaPawan/ecommerce-platform-sub001/inventory-service/app"
	"github.com/acharyaPawan/ecommerce-platform-sub001/inventory-service/internal/config"
	"github.com/acharyaPawan/ecommerce-platform-sub001/pkg/broker"
	pkgconfig "github.com/acharyaPawan/ecommerce-platform-sub001/pkg/config"
	"github.com/acharyaPawan/ecommerce-platform-sub001/pkg/httpapi"
	"github.com/acharyaPawan/ecommerce-platform-sub001/pkg/lifecycle"
	"github.com/acharyaPawan/ecommerce-platform-sub001/pkg/logger"
	"github.com/acharyaPawan/ecommerce-platform-sub001/pkg/metrics"
	"github.com/acharyaPawan/ecommerce-platform-sub001/pkg/postgres"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/reflection"
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
		l.Fatal("inventory service failed", zap.Error(err))
	}
	l.Info("inventory service stopped")
}

func run(ctx context.Context, cfg config.Config, l *zap.Logger) error {
	producer := broker.NewKafkaProducer(cfg.Kafka.Brokers...)
	defer producer.Close()

	source := broker.NewKafkaConsumer(cfg.Kafka.Consumer(app.GroupID, app.Topics...), l)
	defer source.Close()

	opts := app.Options{Logger: l, Producer: producer, Outbox: cfg.Outbox, Sweeper: cfg.Sweeper}

	var svc *app.App
	switch cfg.Store {
	case "memory":
		logger.Warn(ctx, l, "using in-memory store, state is lost on restart")
		svc = app.NewMemory(opts)
	default:
		db, err := postgres.Open(ctx, cfg.DB)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := postgres.RunMigrations(db, cfg.DB.MigrationsDirPath, app.MigrationsTable); err != nil {
			return err
		}
		logger.Info(ctx, l, "database migrations completed")
		svc = app.NewPostgres(db, opts)
	}

	if err := svc.SeedStock(ctx, cfg.SeedStock); err != nil {
		return err
	}
	if len(cfg.SeedStock) > 0 {
		logger.Info(ctx, l, "initialized stock", zap.Int("skus", len(cfg.SeedStock)))
	}

	grpcServer := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	svc.RegisterGRPC(grpcServer)
	reflection.Register(grpcServer)

	metricsSrv := httpapi.Server(cfg.MetricsAddr, "metrics", metrics.Handler())
	tasks := append(svc.Tasks(source),
		lifecycle.GRPC(grpcServer, cfg.GRPCAddr, l),
		lifecycle.HTTP(metricsSrv, l),
	)
	return lifecycle.Run(ctx, tasks...)
}

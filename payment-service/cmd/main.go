package main

import (
	"context"
	"log"

	"github.com/acharyaPawan/ecommerce-platform-sub001/payment-service/app"
	"github.com/acharyaPawan/ecommerce-platform-sub001/payment-service/internal/config"
	"github.com/acharyaPawan/ecommerce-platform-sub001/pkg/broker"
	pkgconfig "github.com/acharyaPawan/ecommerce-platform-sub001/pkg/config"
	"github.com/acharyaPawan/ecommerce-platform-sub001/pkg/httpapi"
	"github.com/acharyaPawan/ecommerce-platform-sub001/pkg/lifecycle"
	"github.com/acharyaPawan/ecommerce-platform-sub001/pkg/logger"
	"github.com/acharyaPawan/ecommerce-platform-sub001/pkg/postgres"
	"go.uber.org/zap"
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
		l.Fatal("payment service failed", zap.Error(err))
	}
	l.Info("payment service stopped")
}

func run(ctx context.Context, cfg config.Config, l *zap.Logger) error {
	producer := broker.NewKafkaProducer(cfg.Kafka.Brokers...)
	defer producer.Close()

	source := broker.NewKafkaConsumer(cfg.Kafka.Consumer(app.GroupID, app.Topics...), l)
	defer source.Close()

	opts := app.Options{Logger: l, Producer: producer, Outbox: cfg.Outbox}
	if cfg.Authorizer == "random" {
		opts.Authorizer = app.RandomAuthorizer(cfg.ApprovalPercent)
	}

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

	srv := httpapi.Server(cfg.HTTPAddr, app.Name, svc.Router())
	tasks := append(svc.Tasks(source), lifecycle.HTTP(srv, l))
	return lifecycle.Run(ctx, tasks...)
}

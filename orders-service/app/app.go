// Package app assembles orders-service from its parts.
package app

import (
	"context"
	"database/sql"
	"time"

	"github.com/acharyaPawan/ecommerce-platform-sub001/orders-service/internal/consumer"
	ordersgrpc "github.com/acharyaPawan/ecommerce-platform-sub001/orders-service/internal/grpc"
	"github.com/acharyaPawan/ecommerce-platform-sub001/orders-service/internal/repository"
	"github.com/acharyaPawan/ecommerce-platform-sub001/orders-service/internal/service"
	pb "github.com/acharyaPawan/ecommerce-platform-sub001/orders-service/pkg/ordersapi"
	"github.com/acharyaPawan/ecommerce-platform-sub001/pkg/broker"
	"github.com/acharyaPawan/ecommerce-platform-sub001/pkg/lifecycle"
	"github.com/acharyaPawan/ecommerce-platform-sub001/pkg/outbox"
	"go.uber.org/zap"
	"google.golang.org/grpc"
)

const (
	Name            = "orders-service"
	GroupID         = consumer.GroupID
	MigrationsTable = repository.MigrationsTable
)

var Topics = consumer.Topics

type Options struct {
	Logger         *zap.Logger
	Producer       broker.Producer
	Outbox         outbox.Config
	SnapshotSecret []byte
	ReservationTTL time.Duration
}

type App struct {
	svc       *service.Service
	publisher *outbox.Publisher
	consumer  *consumer.Consumer
}

func NewMemory(opts Options) *App {
	ob := outbox.NewMemoryStore()
	return build(repository.NewMemoryRepository(ob), ob, opts)
}

// NewPostgres builds the service on db, which must already be migrated.
func NewPostgres(db *sql.DB, opts Options) *App {
	return build(repository.NewRepository(db), outbox.NewPostgresStore(db, repository.OutboxTable), opts)
}

func build(repo repository.OrderRepository, ob outbox.Store, opts Options) *App {
	svc := service.New(repo, opts.SnapshotSecret, opts.ReservationTTL, opts.Logger)
	return &App{
		svc:       svc,
		publisher: outbox.NewPublisher(ob, opts.Producer, opts.Logger, opts.Outbox.Options()...),
		consumer:  consumer.New(svc, opts.Logger),
	}
}

// Server is the gRPC implementation, also usable in-process.
func (a *App) Server() pb.OrdersServiceServer {
	return ordersgrpc.NewOrdersHandler(a.svc)
}

func (a *App) RegisterGRPC(s grpc.ServiceRegistrar) {
	pb.RegisterOrdersServiceServer(s, a.Server())
}

func (a *App) Handler() broker.Handler {
	return a.consumer.Handler()
}

// PublishPending runs one outbox pass.
func (a *App) PublishPending(ctx context.Context) (int, error) {
	return a.publisher.PublishPending(ctx)
}

// Tasks returns the outbox publisher and saga consumer loops.
func (a *App) Tasks(source broker.Consumer) []lifecycle.Task {
	return []lifecycle.Task{
		a.publisher.Run,
		func(ctx context.Context) error { return a.consumer.Run(ctx, source) },
	}
}

// Package app assembles inventory-service from its parts. It is shared by the
// service binary and by in-process deployments that run several services together.
package app

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/acharyaPawan/ecommerce-platform-sub001/inventory-service/internal/consumer"
	inventorygrpc "github.com/acharyaPawan/ecommerce-platform-sub001/inventory-service/internal/grpc"
	"github.com/acharyaPawan/ecommerce-platform-sub001/inventory-service/internal/service"
	"github.com/acharyaPawan/ecommerce-platform-sub001/inventory-service/internal/store"
	"github.com/acharyaPawan/ecommerce-platform-sub001/inventory-service/internal/sweeper"
	pb "github.com/acharyaPawan/ecommerce-platform-sub001/inventory-service/pkg/inventoryapi"
	"github.com/acharyaPawan/ecommerce-platform-sub001/pkg/broker"
	"github.com/acharyaPawan/ecommerce-platform-sub001/pkg/lifecycle"
	"github.com/acharyaPawan/ecommerce-platform-sub001/pkg/outbox"
	"go.uber.org/zap"
	"google.golang.org/grpc"
)

const (
	Name            = "inventory-service"
	GroupID         = consumer.GroupID
	MigrationsTable = store.MigrationsTable
)

// Topics the saga consumer subscribes to.
var Topics = consumer.Topics

type Options struct {
	Logger   *zap.Logger
	Producer broker.Producer
	Outbox   outbox.Config
	Sweeper  sweeper.Config
}

type App struct {
	engine    *service.Engine
	publisher *outbox.Publisher
	consumer  *consumer.Consumer
	sweeper   *sweeper.Sweeper
}

// NewMemory builds the service on in-process stores.
func NewMemory(opts Options) *App {
	ob := outbox.NewMemoryStore()
	return build(store.NewMemoryStore(ob), ob, opts)
}

// NewPostgres builds the service on db, which must already be migrated.
func NewPostgres(db *sql.DB, opts Options) *App {
	return build(store.NewPostgresStore(db), outbox.NewPostgresStore(db, store.OutboxTable), opts)
}

func build(s store.Store, ob outbox.Store, opts Options) *App {
	l := opts.Logger
	engine := service.NewEngine(s, l)
	return &App{
		engine:    engine,
		publisher: outbox.NewPublisher(ob, opts.Producer, l, opts.Outbox.Options()...),
		consumer:  consumer.New(engine, l),
		sweeper:   sweeper.New(engine, opts.Sweeper, l),
	}
}

// SeedStock sets on-hand quantities, typically from configuration.
func (a *App) SeedStock(ctx context.Context, levels map[string]int64) error {
	for sku, qty := range levels {
		if _, err := a.engine.SetStock(ctx, sku, qty); err != nil {
			return fmt.Errorf("seed %s: %w", sku, err)
		}
	}
	return nil
}

// Server is the gRPC implementation, also usable in-process.
func (a *App) Server() pb.InventoryServiceServer {
	return inventorygrpc.NewInventoryServiceServer(a.engine)
}

func (a *App) RegisterGRPC(s grpc.ServiceRegistrar) {
	pb.RegisterInventoryServiceServer(s, a.Server())
}

// Handler is the broker handler for push-style buses.
func (a *App) Handler() broker.Handler {
	return a.consumer.Handler()
}

// PublishPending runs one outbox pass.
func (a *App) PublishPending(ctx context.Context) (int, error) {
	return a.publisher.PublishPending(ctx)
}

// ExpireDue runs one expiry pass.
func (a *App) ExpireDue(ctx context.Context, limit int) (int, int, error) {
	return a.engine.ExpireDue(ctx, limit)
}

// Tasks returns the background loops: outbox publisher, saga consumer and expiry sweeper.
func (a *App) Tasks(source broker.Consumer) []lifecycle.Task {
	return []lifecycle.Task{
		a.publisher.Run,
		func(ctx context.Context) error { return a.consumer.Run(ctx, source) },
		a.sweeper.Run,
	}
}

// Package app assembles fulfillment-service from its parts.
package app

import (
	"context"
	"database/sql"
	"net/http"

	"github.com/acharyaPawan/ecommerce-platform-sub001/fulfillment-service/internal/consumer"
	shipmenthttp "github.com/acharyaPawan/ecommerce-platform-sub001/fulfillment-service/internal/http"
	"github.com/acharyaPawan/ecommerce-platform-sub001/fulfillment-service/internal/repository"
	"github.com/acharyaPawan/ecommerce-platform-sub001/fulfillment-service/internal/service"
	"github.com/acharyaPawan/ecommerce-platform-sub001/pkg/broker"
	"github.com/acharyaPawan/ecommerce-platform-sub001/pkg/httpapi"
	"github.com/acharyaPawan/ecommerce-platform-sub001/pkg/lifecycle"
	"github.com/acharyaPawan/ecommerce-platform-sub001/pkg/outbox"
	"go.uber.org/zap"
)

const (
	Name            = "fulfillment-service"
	GroupID         = consumer.GroupID
	MigrationsTable = repository.MigrationsTable
)

var Topics = consumer.Topics

type Options struct {
	Logger   *zap.Logger
	Producer broker.Producer
	Outbox   outbox.Config
}

type App struct {
	handler   *shipmenthttp.ShipmentHandler
	publisher *outbox.Publisher
	consumer  *consumer.Consumer
	logger    *zap.Logger
}

func NewMemory(opts Options) *App {
	ob := outbox.NewMemoryStore()
	return build(repository.NewMemoryRepository(ob), ob, opts)
}

// NewPostgres builds the service on db, which must already be migrated.
func NewPostgres(db *sql.DB, opts Options) *App {
	return build(repository.NewRepository(db), outbox.NewPostgresStore(db, repository.OutboxTable), opts)
}

func build(repo repository.ShipmentRepository, ob outbox.Store, opts Options) *App {
	svc := service.New(repo, opts.Logger)
	return &App{
		handler:   shipmenthttp.NewShipmentHandler(svc, opts.Logger),
		publisher: outbox.NewPublisher(ob, opts.Producer, opts.Logger, opts.Outbox.Options()...),
		consumer:  consumer.New(svc, opts.Logger),
		logger:    opts.Logger,
	}
}

func (a *App) Router() http.Handler {
	r := httpapi.NewRouter(a.logger, 0)
	a.handler.Routes(r)
	return r
}

func (a *App) Handler() broker.Handler {
	return a.consumer.Handler()
}

// PublishPending runs one outbox pass.
func (a *App) PublishPending(ctx context.Context) (int, error) {
	return a.publisher.PublishPending(ctx)
}

func (a *App) Tasks(source broker.Consumer) []lifecycle.Task {
	return []lifecycle.Task{
		a.publisher.Run,
		func(ctx context.Context) error { return a.consumer.Run(ctx, source) },
	}
}

// Package app assembles payment-service from its parts.
package app

import (
	"context"
	"database/sql"
	"net/http"

	"github.com/acharyaPawan/ecommerce-platform-sub001/payment-service/internal/consumer"
	paymenthttp "github.com/acharyaPawan/ecommerce-platform-sub001/payment-service/internal/http"
	"github.com/acharyaPawan/ecommerce-platform-sub001/payment-service/internal/repository"
	"github.com/acharyaPawan/ecommerce-platform-sub001/payment-service/internal/service"
	"github.com/acharyaPawan/ecommerce-platform-sub001/pkg/broker"
	"github.com/acharyaPawan/ecommerce-platform-sub001/pkg/httpapi"
	"github.com/acharyaPawan/ecommerce-platform-sub001/pkg/lifecycle"
	"github.com/acharyaPawan/ecommerce-platform-sub001/pkg/outbox"
	"go.uber.org/zap"
)

const (
	Name            = "payment-service"
	GroupID         = consumer.GroupID
	MigrationsTable = repository.MigrationsTable
)

var Topics = consumer.Topics

type Options struct {
	Logger     *zap.Logger
	Producer   broker.Producer
	Outbox     outbox.Config
	Authorizer service.Authorizer
}

type App struct {
	svc       *service.Service
	handler   *paymenthttp.PaymentHandler
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

func build(repo repository.PaymentRepository, ob outbox.Store, opts Options) *App {
	if opts.Authorizer == nil {
		opts.Authorizer = service.ApproveAll
	}
	svc := service.New(repo, opts.Authorizer, opts.Logger)
	return &App{
		svc:       svc,
		handler:   paymenthttp.NewPaymentHandler(svc, opts.Logger),
		publisher: outbox.NewPublisher(ob, opts.Producer, opts.Logger, opts.Outbox.Options()...),
		consumer:  consumer.New(svc, opts.Logger),
		logger:    opts.Logger,
	}
}

// RandomAuthorizer approves approvalPercent of payments.
func RandomAuthorizer(approvalPercent int) service.Authorizer {
	return service.NewRandomAuthorizer(approvalPercent)
}

// DeclineAll refuses every payment with reason.
func DeclineAll(reason string) service.Authorizer {
	return service.DeclineAll(reason)
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

// Tasks returns the outbox publisher and saga consumer loops.
func (a *App) Tasks(source broker.Consumer) []lifecycle.Task {
	return []lifecycle.Task{
		a.publisher.Run,
		func(ctx context.Context) error { return a.consumer.Run(ctx, source) },
	}
}

// Package app assembles cart-service from its parts.
package app

import (
	"context"
	"net/http"
	"time"

	"github.com/acharyaPawan/ecommerce-platform-sub001/cart-service/internal/cache"
	carthttp "github.com/acharyaPawan/ecommerce-platform-sub001/cart-service/internal/http"
	"github.com/acharyaPawan/ecommerce-platform-sub001/cart-service/internal/ordersclient"
	"github.com/acharyaPawan/ecommerce-platform-sub001/cart-service/internal/pricing"
	"github.com/acharyaPawan/ecommerce-platform-sub001/cart-service/internal/reconciler"
	"github.com/acharyaPawan/ecommerce-platform-sub001/cart-service/internal/repository"
	"github.com/acharyaPawan/ecommerce-platform-sub001/cart-service/internal/service"
	pb "github.com/acharyaPawan/ecommerce-platform-sub001/orders-service/pkg/ordersapi"
	"github.com/acharyaPawan/ecommerce-platform-sub001/pkg/broker"
	"github.com/acharyaPawan/ecommerce-platform-sub001/pkg/httpapi"
	"github.com/acharyaPawan/ecommerce-platform-sub001/pkg/idempotency"
	"github.com/acharyaPawan/ecommerce-platform-sub001/pkg/lifecycle"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"google.golang.org/grpc"
)

const (
	Name    = "cart-service"
	GroupID = reconciler.GroupID
)

var Topics = reconciler.Topics

type Options struct {
	Logger  *zap.Logger
	Pricing pricing.Provider
	Orders  service.OrdersClient
	// Redis enables the cart cache and Idempotency-Key handling. May be nil.
	Redis           redis.UniversalClient
	CacheTTL        time.Duration
	IdempotencyTTL  time.Duration
	SnapshotSecret  []byte
	MaxItemQuantity int64
	RequestTimeout  time.Duration
}

type App struct {
	svc        *service.CartService
	handler    *carthttp.CartHandler
	reconciler *reconciler.Reconciler
	idem       *idempotency.Middleware
	opts       Options
}

func NewMemory(opts Options) *App {
	return build(repository.NewMemoryRepository(), opts)
}

// NewMongo builds the service on db after making sure its indexes exist.
func NewMongo(ctx context.Context, db *mongo.Database, opts Options) (*App, error) {
	repo := repository.NewMongoRepository(db)
	if err := repository.EnsureIndexes(ctx, repo); err != nil {
		return nil, err
	}
	return build(repo, opts), nil
}

func build(repo repository.CartRepository, opts Options) *App {
	var c cache.CartCache = cache.Nop{}
	var idem *idempotency.Middleware
	if opts.Redis != nil {
		c = cache.NewRedisCache(opts.Redis, opts.CacheTTL)
		idem = idempotency.New(opts.Redis, opts.IdempotencyTTL, opts.Logger)
	}
	svc := service.NewCartService(repo, c, opts.Pricing, opts.Orders, service.Config{
		SnapshotSecret:  opts.SnapshotSecret,
		MaxItemQuantity: opts.MaxItemQuantity,
	}, opts.Logger)
	return &App{
		svc:        svc,
		handler:    carthttp.NewCartHandler(svc, opts.Logger),
		reconciler: reconciler.New(svc, opts.Logger),
		idem:       idem,
		opts:       opts,
	}
}

// StaticPricing prices skus from a fixed table.
func StaticPricing(prices map[string]string) (pricing.Provider, error) {
	return pricing.NewStatic(prices)
}

// HTTPPricing calls a remote quote provider.
func HTTPPricing(url string, timeout time.Duration, l *zap.Logger) pricing.Provider {
	return pricing.NewHTTPClient(url, timeout, l)
}

// GRPCOrders creates orders over cc.
func GRPCOrders(cc grpc.ClientConnInterface, l *zap.Logger) service.OrdersClient {
	return ordersclient.NewGRPC(cc, l)
}

// LocalOrders creates orders on an in-process orders server.
func LocalOrders(srv pb.OrdersServiceServer, l *zap.Logger) service.OrdersClient {
	return ordersclient.NewLocal(srv, l)
}

// Router is the HTTP API including /health.
func (a *App) Router() http.Handler {
	r := httpapi.NewRouter(a.opts.Logger, a.opts.RequestTimeout)
	a.handler.Routes(r, a.idem)
	return r
}

// Handler is the broker handler for the OrderPlaced reconciliation.
func (a *App) Handler() broker.Handler {
	return a.reconciler.Handler()
}

// Tasks returns the reconciliation consumer loop.
func (a *App) Tasks(source broker.Consumer) []lifecycle.Task {
	return []lifecycle.Task{
		func(ctx context.Context) error { return a.reconciler.Run(ctx, source) },
	}
}

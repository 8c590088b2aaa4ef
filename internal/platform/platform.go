// Package platform runs the whole checkout saga in one process: every service
// on in-memory stores, an in-process broker and an in-process gRPC server
// behind the HTTP gateway.
package platform

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	gatewayapp "github.com/acharyaPawan/ecommerce-platform-sub001/api-gateway/app"
	cartapp "github.com/acharyaPawan/ecommerce-platform-sub001/cart-service/app"
	fulfillmentapp "github.com/acharyaPawan/ecommerce-platform-sub001/fulfillment-service/app"
	inventoryapp "github.com/acharyaPawan/ecommerce-platform-sub001/inventory-service/app"
	ordersapp "github.com/acharyaPawan/ecommerce-platform-sub001/orders-service/app"
	paymentapp "github.com/acharyaPawan/ecommerce-platform-sub001/payment-service/app"
	"github.com/acharyaPawan/ecommerce-platform-sub001/pkg/broker"
	"github.com/acharyaPawan/ecommerce-platform-sub001/pkg/broker/membus"
	"github.com/acharyaPawan/ecommerce-platform-sub001/pkg/lifecycle"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"
)

// ErrNotSettled is returned by Settle when events keep flowing past the round limit.
var ErrNotSettled = errors.New("saga did not settle")

const settleRounds = 50

type Options struct {
	Logger         *zap.Logger
	SnapshotSecret []byte
	ReservationTTL time.Duration
	Stock          map[string]int64
	Prices         map[string]string
	DeclineReason  string
	// Redis is optional.
	Redis redis.UniversalClient
}

type service struct {
	group   string
	topics  []string
	handler broker.Handler
	publish func(ctx context.Context) (int, error)
	tasks   func(source broker.Consumer) []lifecycle.Task
}

type Platform struct {
	Bus         *membus.Bus
	Carts       *cartapp.App
	Orders      *ordersapp.App
	Inventory   *inventoryapp.App
	Payments    *paymentapp.App
	Fulfillment *fulfillmentapp.App
	Gateway     *gatewayapp.App

	services  []service
	grpc      *grpc.Server
	conn      *grpc.ClientConn
	subscribe sync.Once
	logger    *zap.Logger
}

func New(ctx context.Context, opts Options) (*Platform, error) {
	l := opts.Logger
	bus := membus.New()
	p := &Platform{Bus: bus, logger: l}

	p.Orders = ordersapp.NewMemory(ordersapp.Options{
		Logger:         l.With(zap.String("service", ordersapp.Name)),
		Producer:       bus,
		SnapshotSecret: opts.SnapshotSecret,
		ReservationTTL: opts.ReservationTTL,
	})
	p.Inventory = inventoryapp.NewMemory(inventoryapp.Options{
		Logger:   l.With(zap.String("service", inventoryapp.Name)),
		Producer: bus,
	})
	if err := p.Inventory.SeedStock(ctx, opts.Stock); err != nil {
		return nil, err
	}

	payOpts := paymentapp.Options{Logger: l.With(zap.String("service", paymentapp.Name)), Producer: bus}
	if opts.DeclineReason != "" {
		payOpts.Authorizer = paymentapp.DeclineAll(opts.DeclineReason)
	}
	p.Payments = paymentapp.NewMemory(payOpts)
	p.Fulfillment = fulfillmentapp.NewMemory(fulfillmentapp.Options{
		Logger:   l.With(zap.String("service", fulfillmentapp.Name)),
		Producer: bus,
	})

	prices, err := cartapp.StaticPricing(opts.Prices)
	if err != nil {
		return nil, err
	}
	cartLogger := l.With(zap.String("service", cartapp.Name))
	p.Carts = cartapp.NewMemory(cartapp.Options{
		Logger:          cartLogger,
		Pricing:         prices,
		Orders:          cartapp.LocalOrders(p.Orders.Server(), cartLogger),
		Redis:           opts.Redis,
		CacheTTL:        15 * time.Minute,
		IdempotencyTTL:  24 * time.Hour,
		SnapshotSecret:  opts.SnapshotSecret,
		MaxItemQuantity: 99,
		RequestTimeout:  30 * time.Second,
	})

	p.services = []service{
		{ordersapp.GroupID, ordersapp.Topics, p.Orders.Handler(), p.Orders.PublishPending, p.Orders.Tasks},
		{inventoryapp.GroupID, inventoryapp.Topics, p.Inventory.Handler(), p.Inventory.PublishPending, p.Inventory.Tasks},
		{paymentapp.GroupID, paymentapp.Topics, p.Payments.Handler(), p.Payments.PublishPending, p.Payments.Tasks},
		{fulfillmentapp.GroupID, fulfillmentapp.Topics, p.Fulfillment.Handler(), p.Fulfillment.PublishPending, p.Fulfillment.Tasks},
		{cartapp.GroupID, cartapp.Topics, p.Carts.Handler(), nil, p.Carts.Tasks},
	}

	if err := p.startGRPC(); err != nil {
		return nil, err
	}
	p.Gateway = gatewayapp.New(gatewayapp.Options{
		Logger:    l.With(zap.String("service", gatewayapp.Name)),
		Orders:    gatewayapp.GRPCOrders(p.conn),
		Inventory: gatewayapp.GRPCInventory(p.conn),
		Carts:     p.Carts.Router(),
		Payments:  p.Payments.Router(),
		Shipments: p.Fulfillment.Router(),
	})
	return p, nil
}

// startGRPC serves orders and inventory on an in-memory listener so the
// gateway talks to them through the real gRPC stack.
func (p *Platform) startGRPC() error {
	lis := bufconn.Listen(1 << 20)
	p.grpc = grpc.NewServer()
	p.Orders.RegisterGRPC(p.grpc)
	p.Inventory.RegisterGRPC(p.grpc)
	go func() { _ = p.grpc.Serve(lis) }()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		p.grpc.Stop()
		return fmt.Errorf("bufconn client: %w", err)
	}
	p.conn = conn
	return nil
}

func (p *Platform) Close() {
	_ = p.conn.Close()
	p.grpc.Stop()
}

func (p *Platform) Router() http.Handler {
	return p.Gateway.Router()
}

// Settle alternates outbox passes and broker deliveries until no service has
// anything left to publish or consume. It is for step-driven use and must not
// be combined with Tasks.
func (p *Platform) Settle(ctx context.Context) error {
	p.subscribe.Do(func() {
		for _, s := range p.services {
			p.Bus.Subscribe(s.group, s.topics, s.handler)
		}
	})

	for range settleRounds {
		published := 0
		for _, s := range p.services {
			if s.publish == nil {
				continue
			}
			n, err := s.publish(ctx)
			if err != nil {
				return fmt.Errorf("%s outbox: %w", s.group, err)
			}
			published += n
		}
		delivered, err := p.Bus.DeliverPending(ctx)
		if published == 0 && delivered == 0 {
			return err
		}
	}
	return ErrNotSettled
}

// Tasks returns the background loops of every service, each consuming from the bus.
func (p *Platform) Tasks() []lifecycle.Task {
	var tasks []lifecycle.Task
	for _, s := range p.services {
		tasks = append(tasks, s.tasks(p.Bus.Consumer(s.group, s.topics...))...)
	}
	return tasks
}

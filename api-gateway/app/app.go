// Package app assembles the HTTP edge in front of the platform services.
package app

import (
	"fmt"
	"net/http"
	"net/url"
	"time"

	gatewayhttp "github.com/acharyaPawan/ecommerce-platform-sub001/api-gateway/internal/http"
	inventorypb "github.com/acharyaPawan/ecommerce-platform-sub001/inventory-service/pkg/inventoryapi"
	orderspb "github.com/acharyaPawan/ecommerce-platform-sub001/orders-service/pkg/ordersapi"
	"github.com/acharyaPawan/ecommerce-platform-sub001/pkg/httpapi"
	"go.uber.org/zap"
	"google.golang.org/grpc"
)

const Name = "api-gateway"

type Options struct {
	Logger         *zap.Logger
	RequestTimeout time.Duration

	Orders    gatewayhttp.OrdersClient
	Inventory gatewayhttp.InventoryClient

	// Carts, Payments and Shipments serve their /api/v1 prefixes. Nil ones
	// are not routed.
	Carts     http.Handler
	Payments  http.Handler
	Shipments http.Handler
}

type App struct {
	opts      Options
	orders    *gatewayhttp.OrdersHandler
	inventory *gatewayhttp.InventoryHandler
}

func New(opts Options) *App {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 10 * time.Second
	}
	a := &App{opts: opts}
	if opts.Orders != nil {
		a.orders = gatewayhttp.NewOrdersHandler(opts.Orders, opts.RequestTimeout, opts.Logger)
	}
	if opts.Inventory != nil {
		a.inventory = gatewayhttp.NewInventoryHandler(opts.Inventory, opts.RequestTimeout, opts.Logger)
	}
	return a
}

// GRPCOrders reads orders over cc.
func GRPCOrders(cc grpc.ClientConnInterface) gatewayhttp.OrdersClient {
	return orderspb.NewOrdersServiceClient(cc)
}

// GRPCInventory reads and sets stock over cc.
func GRPCInventory(cc grpc.ClientConnInterface) gatewayhttp.InventoryClient {
	return inventorypb.NewInventoryServiceClient(cc)
}

// ProxyTo reverse proxies to the service at rawURL.
func ProxyTo(rawURL string, l *zap.Logger) (http.Handler, error) {
	target, err := url.Parse(rawURL)
	if err != nil || target.Host == "" {
		return nil, fmt.Errorf("invalid upstream url %q", rawURL)
	}
	return gatewayhttp.Proxy(target, l), nil
}

func (a *App) Router() http.Handler {
	r := httpapi.NewRouter(a.opts.Logger, 0)
	r.Use(gatewayhttp.UserIDMiddleware)
	gatewayhttp.Upstreams{
		Carts:     a.opts.Carts,
		Payments:  a.opts.Payments,
		Shipments: a.opts.Shipments,
	}.Mount(r)
	if a.orders != nil {
		a.orders.Routes(r)
	}
	if a.inventory != nil {
		a.inventory.Routes(r)
	}
	return r
}

package main

import (
	"context"
	"fmt"
	"log"

	"github.com/acharyaPawan/ecommerce-platform-sub001/api-gateway/app"
	"github.com/acharyaPawan/ecommerce-platform-sub001/api-gateway/internal/config"
	pkgconfig "github.com/acharyaPawan/ecommerce-platform-sub001/pkg/config"
	"github.com/acharyaPawan/ecommerce-platform-sub001/pkg/httpapi"
	"github.com/acharyaPawan/ecommerce-platform-sub001/pkg/lifecycle"
	"github.com/acharyaPawan/ecommerce-platform-sub001/pkg/logger"
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
		l.Fatal("api gateway failed", zap.Error(err))
	}
	l.Info("api gateway stopped")
}

func dial(addr string) (*grpc.ClientConn, error) {
	return grpc.NewClient(addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithStatsHandler(otelgrpc.NewClientHandler()),
	)
}

func run(ctx context.Context, cfg config.Config, l *zap.Logger) error {
	ordersConn, err := dial(cfg.OrdersAddr)
	if err != nil {
		return fmt.Errorf("orders client: %w", err)
	}
	defer ordersConn.Close()

	inventoryConn, err := dial(cfg.InventoryAddr)
	if err != nil {
		return fmt.Errorf("inventory client: %w", err)
	}
	defer inventoryConn.Close()

	opts := app.Options{
		Logger:         l,
		RequestTimeout: cfg.RequestTimeout,
		Orders:         app.GRPCOrders(ordersConn),
		Inventory:      app.GRPCInventory(inventoryConn),
	}
	if opts.Carts, err = app.ProxyTo(cfg.CartURL, l); err != nil {
		return err
	}
	if opts.Payments, err = app.ProxyTo(cfg.PaymentsURL, l); err != nil {
		return err
	}
	if opts.Shipments, err = app.ProxyTo(cfg.ShipmentsURL, l); err != nil {
		return err
	}

	logger.Info(ctx, l, "gateway routes configured",
		zap.String("carts", cfg.CartURL),
		zap.String("payments", cfg.PaymentsURL),
		zap.String("shipments", cfg.ShipmentsURL))

	srv := httpapi.Server(cfg.HTTPAddr, app.Name, app.New(opts).Router())
	return lifecycle.Run(ctx, lifecycle.HTTP(srv, l))
}

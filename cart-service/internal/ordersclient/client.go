// Package ordersclient hands signed snapshots to orders-service.
package ordersclient

import (
	"context"
	"errors"
	"fmt"

	"github.com/acharyaPawan/ecommerce-platform-sub001/cart-service/internal/domain"
	pb "github.com/acharyaPawan/ecommerce-platform-sub001/orders-service/pkg/ordersapi"
	"github.com/acharyaPawan/ecommerce-platform-sub001/pkg/circuitbreaker"
	"github.com/acharyaPawan/ecommerce-platform-sub001/pkg/snapshot"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type createFunc func(ctx context.Context, in *pb.CreateOrderRequest) (*pb.CreateOrderResponse, error)

type Client struct {
	create  createFunc
	breaker *circuitbreaker.Breaker[*pb.CreateOrderResponse]
}

// NewGRPC calls orders-service over cc.
func NewGRPC(cc grpc.ClientConnInterface, l *zap.Logger) *Client {
	api := pb.NewOrdersServiceClient(cc)
	return newClient(func(ctx context.Context, in *pb.CreateOrderRequest) (*pb.CreateOrderResponse, error) {
		return api.CreateOrder(ctx, in)
	}, l)
}

// NewLocal calls an orders server in the same process.
func NewLocal(srv pb.OrdersServiceServer, l *zap.Logger) *Client {
	return newClient(srv.CreateOrder, l)
}

func newClient(create createFunc, l *zap.Logger) *Client {
	return &Client{
		create: create,
		breaker: circuitbreaker.New[*pb.CreateOrderResponse](circuitbreaker.Settings{
			Name: "orders",
			// Rejected snapshots mean orders is healthy.
			IsSuccessful: func(err error) bool { return err == nil || !retryable(err) },
		}, l),
	}
}

// CreateOrder returns the id of the order created from snap, or of the order
// previously created from the same snapshot.
func (c *Client) CreateOrder(ctx context.Context, snap snapshot.Snapshot, idempotencyKey string) (string, error) {
	resp, err := c.breaker.Execute(func() (*pb.CreateOrderResponse, error) {
		return c.create(ctx, &pb.CreateOrderRequest{Snapshot: snap, IdempotencyKey: idempotencyKey})
	})
	switch {
	case err == nil:
		return resp.Order.ID, nil
	case errors.Is(err, circuitbreaker.ErrOpen), retryable(err):
		return "", fmt.Errorf("%w: orders: %v", domain.ErrDependency, err)
	}
	return "", fmt.Errorf("%w: %s", domain.ErrCheckoutFailed, status.Convert(err).Message())
}

func retryable(err error) bool {
	switch status.Code(err) {
	case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted, codes.Aborted:
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}

// Package ordersapi is the gRPC contract of orders-service. Messages are JSON
// encoded through pkg/grpcjson.
package ordersapi

import (
	"context"
	"time"

	"github.com/acharyaPawan/ecommerce-platform-sub001/pkg/grpcjson"
	"github.com/acharyaPawan/ecommerce-platform-sub001/pkg/snapshot"
	"google.golang.org/grpc"
)

const ServiceName = "orders.v1.OrdersService"

type InsufficientItem struct {
	SKU       string `json:"sku"`
	Requested int64  `json:"requested"`
	Available int64  `json:"available"`
}

type Order struct {
	ID                 string             `json:"id"`
	Status             string             `json:"status"`
	Currency           string             `json:"currency"`
	UserID             *string            `json:"userId,omitempty"`
	CartID             string             `json:"cartId"`
	SnapshotID         string             `json:"snapshotId"`
	Totals             snapshot.Totals    `json:"totals"`
	Items              []snapshot.Item    `json:"items"`
	CancellationReason *string            `json:"cancellationReason,omitempty"`
	RejectionReason    *string            `json:"rejectionReason,omitempty"`
	InsufficientItems  []InsufficientItem `json:"insufficientItems,omitempty"`
	CreatedAt          time.Time          `json:"createdAt"`
	UpdatedAt          time.Time          `json:"updatedAt"`
}

type CreateOrderRequest struct {
	Snapshot       snapshot.Snapshot `json:"snapshot"`
	IdempotencyKey string            `json:"idempotencyKey,omitempty"`
}

type CreateOrderResponse struct {
	Order   Order `json:"order"`
	Created bool  `json:"created"`
}

type GetOrderRequest struct {
	OrderID string `json:"orderId"`
}

type OrderResponse struct {
	Order Order `json:"order"`
}

type ListOrdersRequest struct {
	UserID string `json:"userId"`
}

type ListOrdersResponse struct {
	Orders []Order `json:"orders"`
}

type CancelOrderRequest struct {
	OrderID string `json:"orderId"`
	Reason  string `json:"reason,omitempty"`
}

type OrdersServiceServer interface {
	CreateOrder(context.Context, *CreateOrderRequest) (*CreateOrderResponse, error)
	GetOrder(context.Context, *GetOrderRequest) (*OrderResponse, error)
	ListOrders(context.Context, *ListOrdersRequest) (*ListOrdersResponse, error)
	CancelOrder(context.Context, *CancelOrderRequest) (*OrderResponse, error)
}

func method(name string) string { return "/" + ServiceName + "/" + name }

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*OrdersServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "CreateOrder", Handler: grpcjson.UnaryHandler(method("CreateOrder"),
			func(srv any, ctx context.Context, in *CreateOrderRequest) (*CreateOrderResponse, error) {
				return srv.(OrdersServiceServer).CreateOrder(ctx, in)
			})},
		{MethodName: "GetOrder", Handler: grpcjson.UnaryHandler(method("GetOrder"),
			func(srv any, ctx context.Context, in *GetOrderRequest) (*OrderResponse, error) {
				return srv.(OrdersServiceServer).GetOrder(ctx, in)
			})},
		{MethodName: "ListOrders", Handler: grpcjson.UnaryHandler(method("ListOrders"),
			func(srv any, ctx context.Context, in *ListOrdersRequest) (*ListOrdersResponse, error) {
				return srv.(OrdersServiceServer).ListOrders(ctx, in)
			})},
		{MethodName: "CancelOrder", Handler: grpcjson.UnaryHandler(method("CancelOrder"),
			func(srv any, ctx context.Context, in *CancelOrderRequest) (*OrderResponse, error) {
				return srv.(OrdersServiceServer).CancelOrder(ctx, in)
			})},
	},
	Metadata: "ordersapi",
}

func RegisterOrdersServiceServer(s grpc.ServiceRegistrar, srv OrdersServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

type OrdersServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewOrdersServiceClient(cc grpc.ClientConnInterface) *OrdersServiceClient {
	return &OrdersServiceClient{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, name string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(grpcjson.Name)}, opts...)
	if err := cc.Invoke(ctx, method(name), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *OrdersServiceClient) CreateOrder(ctx context.Context, in *CreateOrderRequest, opts ...grpc.CallOption) (*CreateOrderResponse, error) {
	return invoke[CreateOrderResponse](ctx, c.cc, "CreateOrder", in, opts)
}

func (c *OrdersServiceClient) GetOrder(ctx context.Context, in *GetOrderRequest, opts ...grpc.CallOption) (*OrderResponse, error) {
	return invoke[OrderResponse](ctx, c.cc, "GetOrder", in, opts)
}

func (c *OrdersServiceClient) ListOrders(ctx context.Context, in *ListOrdersRequest, opts ...grpc.CallOption) (*ListOrdersResponse, error) {
	return invoke[ListOrdersResponse](ctx, c.cc, "ListOrders", in, opts)
}

func (c *OrdersServiceClient) CancelOrder(ctx context.Context, in *CancelOrderRequest, opts ...grpc.CallOption) (*OrderResponse, error) {
	return invoke[OrderResponse](ctx, c.cc, "CancelOrder", in, opts)
}

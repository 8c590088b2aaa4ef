// Package inventoryapi is the gRPC contract of inventory-service. Messages are
// JSON encoded through pkg/grpcjson.
package inventoryapi

import (
	"context"
	"time"

	"github.com/acharyaPawan/ecommerce-platform-sub001/pkg/grpcjson"
	"google.golang.org/grpc"
)

const ServiceName = "inventory.v1.InventoryService"

type Item struct {
	SKU      string `json:"sku"`
	Quantity int64  `json:"qty"`
}

type InsufficientItem struct {
	SKU       string `json:"sku"`
	Requested int64  `json:"requested"`
	Available int64  `json:"available"`
}

type ReserveRequest struct {
	OrderID    string `json:"orderId"`
	Items      []Item `json:"items"`
	TTLSeconds *int64 `json:"ttlSeconds,omitempty"`
}

type ReserveResponse struct {
	Status            string             `json:"status"`
	Items             []Item             `json:"items,omitempty"`
	Reason            string             `json:"reason,omitempty"`
	InsufficientItems []InsufficientItem `json:"insufficientItems,omitempty"`
	ExpiresAt         *time.Time         `json:"expiresAt,omitempty"`
}

type MutationRequest struct {
	OrderID string `json:"orderId"`
}

type MutationResponse struct {
	Status string `json:"status"`
}

type GetStockRequest struct {
	SKUs []string `json:"skus"`
}

type StockLevel struct {
	SKU       string `json:"sku"`
	OnHand    int64  `json:"onHand"`
	Reserved  int64  `json:"reserved"`
	Available int64  `json:"available"`
}

type GetStockResponse struct {
	Stocks []StockLevel `json:"stocks"`
}

type SetStockRequest struct {
	SKU    string `json:"sku"`
	OnHand int64  `json:"onHand"`
}

type AdjustStockRequest struct {
	SKU   string `json:"sku"`
	Delta int64  `json:"delta"`
}

type StockResponse struct {
	Stock StockLevel `json:"stock"`
}

type InventoryServiceServer interface {
	Reserve(context.Context, *ReserveRequest) (*ReserveResponse, error)
	Commit(context.Context, *MutationRequest) (*MutationResponse, error)
	Release(context.Context, *MutationRequest) (*MutationResponse, error)
	Deduct(context.Context, *MutationRequest) (*MutationResponse, error)
	GetStock(context.Context, *GetStockRequest) (*GetStockResponse, error)
	SetStock(context.Context, *SetStockRequest) (*StockResponse, error)
	AdjustStock(context.Context, *AdjustStockRequest) (*StockResponse, error)
}

func method(name string) string { return "/" + ServiceName + "/" + name }

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*InventoryServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Reserve", Handler: grpcjson.UnaryHandler(method("Reserve"),
			func(srv any, ctx context.Context, in *ReserveRequest) (*ReserveResponse, error) {
				return srv.(InventoryServiceServer).Reserve(ctx, in)
			})},
		{MethodName: "Commit", Handler: grpcjson.UnaryHandler(method("Commit"),
			func(srv any, ctx context.Context, in *MutationRequest) (*MutationResponse, error) {
				return srv.(InventoryServiceServer).Commit(ctx, in)
			})},
		{MethodName: "Release", Handler: grpcjson.UnaryHandler(method("Release"),
			func(srv any, ctx context.Context, in *MutationRequest) (*MutationResponse, error) {
				return srv.(InventoryServiceServer).Release(ctx, in)
			})},
		{MethodName: "Deduct", Handler: grpcjson.UnaryHandler(method("Deduct"),
			func(srv any, ctx context.Context, in *MutationRequest) (*MutationResponse, error) {
				return srv.(InventoryServiceServer).Deduct(ctx, in)
			})},
		{MethodName: "GetStock", Handler: grpcjson.UnaryHandler(method("GetStock"),
			func(srv any, ctx context.Context, in *GetStockRequest) (*GetStockResponse, error) {
				return srv.(InventoryServiceServer).GetStock(ctx, in)
			})},
		{MethodName: "SetStock", Handler: grpcjson.UnaryHandler(method("SetStock"),
			func(srv any, ctx context.Context, in *SetStockRequest) (*StockResponse, error) {
				return srv.(InventoryServiceServer).SetStock(ctx, in)
			})},
		{MethodName: "AdjustStock", Handler: grpcjson.UnaryHandler(method("AdjustStock"),
			func(srv any, ctx context.Context, in *AdjustStockRequest) (*StockResponse, error) {
				return srv.(InventoryServiceServer).AdjustStock(ctx, in)
			})},
	},
	Metadata: "inventoryapi",
}

func RegisterInventoryServiceServer(s grpc.ServiceRegistrar, srv InventoryServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

type InventoryServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewInventoryServiceClient(cc grpc.ClientConnInterface) *InventoryServiceClient {
	return &InventoryServiceClient{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, name string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(grpcjson.Name)}, opts...)
	if err := cc.Invoke(ctx, method(name), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *InventoryServiceClient) Reserve(ctx context.Context, in *ReserveRequest, opts ...grpc.CallOption) (*ReserveResponse, error) {
	return invoke[ReserveResponse](ctx, c.cc, "Reserve", in, opts)
}

func (c *InventoryServiceClient) Commit(ctx context.Context, in *MutationRequest, opts ...grpc.CallOption) (*MutationResponse, error) {
	return invoke[MutationResponse](ctx, c.cc, "Commit", in, opts)
}

func (c *InventoryServiceClient) Release(ctx context.Context, in *MutationRequest, opts ...grpc.CallOption) (*MutationResponse, error) {
	return invoke[MutationResponse](ctx, c.cc, "Release", in, opts)
}

func (c *InventoryServiceClient) Deduct(ctx context.Context, in *MutationRequest, opts ...grpc.CallOption) (*MutationResponse, error) {
	return invoke[MutationResponse](ctx, c.cc, "Deduct", in, opts)
}

func (c *InventoryServiceClient) GetStock(ctx context.Context, in *GetStockRequest, opts ...grpc.CallOption) (*GetStockResponse, error) {
	return invoke[GetStockResponse](ctx, c.cc, "GetStock", in, opts)
}

func (c *InventoryServiceClient) SetStock(ctx context.Context, in *SetStockRequest, opts ...grpc.CallOption) (*StockResponse, error) {
	return invoke[StockResponse](ctx, c.cc, "SetStock", in, opts)
}

func (c *InventoryServiceClient) AdjustStock(ctx context.Context, in *AdjustStockRequest, opts ...grpc.CallOption) (*StockResponse, error) {
	return invoke[StockResponse](ctx, c.cc, "AdjustStock", in, opts)
}

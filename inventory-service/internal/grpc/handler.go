package grpc

import (
	"context"
	"errors"

	"github.com/acharyaPawan/ecommerce-platform-sub001/inventory-service/internal/domain"
	"github.com/acharyaPawan/ecommerce-platform-sub001/inventory-service/internal/service"
	pb "github.com/acharyaPawan/ecommerce-platform-sub001/inventory-service/pkg/inventoryapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Engine is the part of the reservation engine exposed over gRPC.
type Engine interface {
	Reserve(ctx context.Context, req service.ReserveRequest) (domain.ReserveResult, error)
	Commit(ctx context.Context, orderID string) (domain.MutationStatus, error)
	Release(ctx context.Context, orderID string) (domain.MutationStatus, error)
	Deduct(ctx context.Context, orderID string) (domain.MutationStatus, error)
	GetStock(ctx context.Context, skus []string) ([]domain.StockLevel, error)
	SetStock(ctx context.Context, sku string, onHand int64) (domain.StockLevel, error)
	AdjustStock(ctx context.Context, sku string, delta int64) (domain.StockLevel, error)
}

// InventoryServiceServer implements the gRPC inventory service
type InventoryServiceServer struct {
	engine Engine
}

// NewInventoryServiceServer creates a new gRPC handler
func NewInventoryServiceServer(engine Engine) *InventoryServiceServer {
	return &InventoryServiceServer{engine: engine}
}

// Reserve places a hold for an order. Insufficient stock and invalid items are
// reported in the response status, not as gRPC errors.
func (s *InventoryServiceServer) Reserve(ctx context.Context, req *pb.ReserveRequest) (*pb.ReserveResponse, error) {
	if req.OrderID == "" {
		return nil, status.Error(codes.InvalidArgument, "order_id is required")
	}

	items := make([]domain.ReservationItem, len(req.Items))
	for i, item := range req.Items {
		items[i] = domain.ReservationItem{SKU: item.SKU, Quantity: item.Quantity}
	}

	res, err := s.engine.Reserve(ctx, service.ReserveRequest{OrderID: req.OrderID, Items: items, TTLSeconds: req.TTLSeconds})
	if err != nil {
		return nil, mapEngineError(err)
	}

	resp := &pb.ReserveResponse{
		Status:    string(res.Status),
		Reason:    res.Reason,
		ExpiresAt: res.ExpiresAt,
	}
	for _, it := range res.Items {
		resp.Items = append(resp.Items, pb.Item{SKU: it.SKU, Quantity: it.Quantity})
	}
	for _, sh := range res.InsufficientItems {
		resp.InsufficientItems = append(resp.InsufficientItems, pb.InsufficientItem{
			SKU: sh.SKU, Requested: sh.Requested, Available: sh.Available,
		})
	}
	return resp, nil
}

func (s *InventoryServiceServer) Commit(ctx context.Context, req *pb.MutationRequest) (*pb.MutationResponse, error) {
	return s.mutate(ctx, req, s.engine.Commit)
}

func (s *InventoryServiceServer) Release(ctx context.Context, req *pb.MutationRequest) (*pb.MutationResponse, error) {
	return s.mutate(ctx, req, s.engine.Release)
}

func (s *InventoryServiceServer) Deduct(ctx context.Context, req *pb.MutationRequest) (*pb.MutationResponse, error) {
	return s.mutate(ctx, req, s.engine.Deduct)
}

func (s *InventoryServiceServer) mutate(ctx context.Context, req *pb.MutationRequest,
	fn func(context.Context, string) (domain.MutationStatus, error)) (*pb.MutationResponse, error) {
	if req.OrderID == "" {
		return nil, status.Error(codes.InvalidArgument, "order_id is required")
	}
	st, err := fn(ctx, req.OrderID)
	if err != nil {
		return nil, mapEngineError(err)
	}
	return &pb.MutationResponse{Status: string(st)}, nil
}

// GetStock returns stock levels for the requested skus
func (s *InventoryServiceServer) GetStock(ctx context.Context, req *pb.GetStockRequest) (*pb.GetStockResponse, error) {
	if len(req.SKUs) == 0 {
		return &pb.GetStockResponse{Stocks: []pb.StockLevel{}}, nil
	}

	stocks, err := s.engine.GetStock(ctx, req.SKUs)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to get stock: %v", err)
	}

	out := make([]pb.StockLevel, len(stocks))
	for i, stock := range stocks {
		out[i] = toStockLevel(stock)
	}
	return &pb.GetStockResponse{Stocks: out}, nil
}

func (s *InventoryServiceServer) SetStock(ctx context.Context, req *pb.SetStockRequest) (*pb.StockResponse, error) {
	if req.OnHand < 0 {
		return nil, status.Error(codes.InvalidArgument, "on_hand must not be negative")
	}
	lvl, err := s.engine.SetStock(ctx, req.SKU, req.OnHand)
	if err != nil {
		return nil, mapEngineError(err)
	}
	return &pb.StockResponse{Stock: toStockLevel(lvl)}, nil
}

func (s *InventoryServiceServer) AdjustStock(ctx context.Context, req *pb.AdjustStockRequest) (*pb.StockResponse, error) {
	lvl, err := s.engine.AdjustStock(ctx, req.SKU, req.Delta)
	if err != nil {
		return nil, mapEngineError(err)
	}
	return &pb.StockResponse{Stock: toStockLevel(lvl)}, nil
}

func toStockLevel(s domain.StockLevel) pb.StockLevel {
	return pb.StockLevel{SKU: s.SKU, OnHand: s.OnHand, Reserved: s.Reserved, Available: s.Available()}
}

// mapEngineError converts engine errors to appropriate gRPC status codes
func mapEngineError(err error) error {
	switch {
	case errors.Is(err, domain.ErrInvalidItems):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, domain.ErrStockBelowReserved),
		errors.Is(err, domain.ErrCommitPending),
		errors.Is(err, domain.ErrNotCommitted):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, domain.ErrSKUNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, "deadline exceeded")
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, "request canceled")
	default:
		return status.Errorf(codes.Internal, "internal error: %v", err)
	}
}

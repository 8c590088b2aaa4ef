package grpc

import (
	"context"
	"errors"

	"github.com/acharyaPawan/ecommerce-platform-sub001/orders-service/internal/domain"
	pb "github.com/acharyaPawan/ecommerce-platform-sub001/orders-service/pkg/ordersapi"
	"github.com/acharyaPawan/ecommerce-platform-sub001/pkg/snapshot"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type OrderService interface {
	CreateOrder(ctx context.Context, snap snapshot.Snapshot, idempotencyKey string) (*domain.Order, bool, error)
	GetOrder(ctx context.Context, id string) (*domain.Order, error)
	ListOrders(ctx context.Context, userID string) ([]*domain.Order, error)
	CancelOrder(ctx context.Context, id, reason string) (*domain.Order, error)
}

type OrdersHandler struct {
	svc OrderService
}

func NewOrdersHandler(svc OrderService) *OrdersHandler {
	return &OrdersHandler{svc: svc}
}

func (h *OrdersHandler) CreateOrder(ctx context.Context, req *pb.CreateOrderRequest) (*pb.CreateOrderResponse, error) {
	order, created, err := h.svc.CreateOrder(ctx, req.Snapshot, req.IdempotencyKey)
	if err != nil {
		return nil, mapError(err)
	}
	return &pb.CreateOrderResponse{Order: convertOrder(order), Created: created}, nil
}

func (h *OrdersHandler) GetOrder(ctx context.Context, req *pb.GetOrderRequest) (*pb.OrderResponse, error) {
	if req.OrderID == "" {
		return nil, status.Error(codes.InvalidArgument, "order_id is required")
	}
	order, err := h.svc.GetOrder(ctx, req.OrderID)
	if err != nil {
		return nil, mapError(err)
	}
	return &pb.OrderResponse{Order: convertOrder(order)}, nil
}

func (h *OrdersHandler) ListOrders(ctx context.Context, req *pb.ListOrdersRequest) (*pb.ListOrdersResponse, error) {
	if req.UserID == "" {
		return nil, status.Error(codes.InvalidArgument, "user_id is required")
	}
	orders, err := h.svc.ListOrders(ctx, req.UserID)
	if err != nil {
		return nil, mapError(err)
	}

	out := make([]pb.Order, 0, len(orders))
	for _, o := range orders {
		out = append(out, convertOrder(o))
	}
	return &pb.ListOrdersResponse{Orders: out}, nil
}

func (h *OrdersHandler) CancelOrder(ctx context.Context, req *pb.CancelOrderRequest) (*pb.OrderResponse, error) {
	if req.OrderID == "" {
		return nil, status.Error(codes.InvalidArgument, "order_id is required")
	}
	reason := req.Reason
	if reason == "" {
		reason = "canceled by request"
	}
	order, err := h.svc.CancelOrder(ctx, req.OrderID, reason)
	if err != nil {
		return nil, mapError(err)
	}
	return &pb.OrderResponse{Order: convertOrder(order)}, nil
}

func mapError(err error) error {
	switch {
	case errors.Is(err, domain.ErrInvalidSnapshot):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, domain.ErrOrderNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, domain.ErrIllegalTransition):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	}
	return status.Errorf(codes.Internal, "orders: %v", err)
}

func convertOrder(o *domain.Order) pb.Order {
	out := pb.Order{
		ID:                 o.ID,
		Status:             string(o.Status),
		Currency:           o.Currency,
		UserID:             o.UserID,
		CartID:             o.CartID,
		SnapshotID:         o.Snapshot.ID,
		Totals:             o.Totals,
		Items:              o.Snapshot.Items,
		CancellationReason: o.CancellationReason,
		RejectionReason:    o.RejectionReason,
		CreatedAt:          o.CreatedAt,
		UpdatedAt:          o.UpdatedAt,
	}
	for _, it := range o.InsufficientItems {
		out.InsufficientItems = append(out.InsufficientItems, pb.InsufficientItem(it))
	}
	return out
}

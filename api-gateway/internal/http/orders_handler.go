package http

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	pb "github.com/acharyaPawan/ecommerce-platform-sub001/orders-service/pkg/ordersapi"
	"github.com/acharyaPawan/ecommerce-platform-sub001/pkg/httpapi"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"google.golang.org/grpc"
)

// OrdersClient is the read and cancel side of the orders gRPC API.
type OrdersClient interface {
	GetOrder(ctx context.Context, in *pb.GetOrderRequest, opts ...grpc.CallOption) (*pb.OrderResponse, error)
	ListOrders(ctx context.Context, in *pb.ListOrdersRequest, opts ...grpc.CallOption) (*pb.ListOrdersResponse, error)
	CancelOrder(ctx context.Context, in *pb.CancelOrderRequest, opts ...grpc.CallOption) (*pb.OrderResponse, error)
}

type OrdersHandler struct {
	client  OrdersClient
	timeout time.Duration
	logger  *zap.Logger
}

func NewOrdersHandler(client OrdersClient, timeout time.Duration, l *zap.Logger) *OrdersHandler {
	return &OrdersHandler{client: client, timeout: timeout, logger: l}
}

func (h *OrdersHandler) Routes(r chi.Router) {
	r.Route("/api/v1/orders", func(r chi.Router) {
		r.Get("/", h.ListOrders)
		r.Get("/{orderID}", h.GetOrder)
		r.Post("/{orderID}/cancel", h.CancelOrder)
	})
}

type CancelOrderRequest struct {
	Reason string `json:"reason"`
}

// ListOrders returns the caller's orders. The user comes from X-User-ID.
func (h *OrdersHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	userID := UserIDFrom(r.Context())
	if userID == "" {
		httpapi.Error(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing user identity", false)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	resp, err := h.client.ListOrders(ctx, &pb.ListOrdersRequest{UserID: userID})
	if err != nil {
		grpcError(w, r, h.logger, err)
		return
	}
	orders := resp.Orders
	if orders == nil {
		orders = []pb.Order{}
	}
	httpapi.JSON(w, http.StatusOK, orders)
}

func (h *OrdersHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	resp, err := h.client.GetOrder(ctx, &pb.GetOrderRequest{OrderID: chi.URLParam(r, "orderID")})
	if err != nil {
		grpcError(w, r, h.logger, err)
		return
	}
	httpapi.JSON(w, http.StatusOK, resp.Order)
}

func (h *OrdersHandler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	var req CancelOrderRequest
	if err := httpapi.Decode(r, &req); err != nil && !errors.Is(err, io.EOF) {
		httpapi.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "malformed request body", false)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	resp, err := h.client.CancelOrder(ctx, &pb.CancelOrderRequest{
		OrderID: chi.URLParam(r, "orderID"),
		Reason:  req.Reason,
	})
	if err != nil {
		grpcError(w, r, h.logger, err)
		return
	}
	httpapi.JSON(w, http.StatusOK, resp.Order)
}

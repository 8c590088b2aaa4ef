package http

import (
	"context"
	"net/http"
	"time"

	pb "github.com/acharyaPawan/ecommerce-platform-sub001/inventory-service/pkg/inventoryapi"
	"github.com/acharyaPawan/ecommerce-platform-sub001/pkg/httpapi"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"google.golang.org/grpc"
)

type InventoryClient interface {
	GetStock(ctx context.Context, in *pb.GetStockRequest, opts ...grpc.CallOption) (*pb.GetStockResponse, error)
	SetStock(ctx context.Context, in *pb.SetStockRequest, opts ...grpc.CallOption) (*pb.StockResponse, error)
	AdjustStock(ctx context.Context, in *pb.AdjustStockRequest, opts ...grpc.CallOption) (*pb.StockResponse, error)
}

type InventoryHandler struct {
	client  InventoryClient
	timeout time.Duration
	logger  *zap.Logger
}

func NewInventoryHandler(client InventoryClient, timeout time.Duration, l *zap.Logger) *InventoryHandler {
	return &InventoryHandler{client: client, timeout: timeout, logger: l}
}

func (h *InventoryHandler) Routes(r chi.Router) {
	r.Route("/api/v1/inventory/stock", func(r chi.Router) {
		r.Get("/", h.GetStock)
		r.Put("/{sku}", h.SetStock)
		r.Post("/{sku}/adjust", h.AdjustStock)
	})
}

type SetStockRequest struct {
	OnHand *int64 `json:"onHand"`
}

type AdjustStockRequest struct {
	Delta int64 `json:"delta"`
}

// GetStock answers ?sku=A&sku=B with one level per sku.
func (h *InventoryHandler) GetStock(w http.ResponseWriter, r *http.Request) {
	skus := r.URL.Query()["sku"]
	if len(skus) == 0 {
		httpapi.Error(w, http.StatusBadRequest, "VALIDATION_FAILED", "at least one sku is required", false)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	resp, err := h.client.GetStock(ctx, &pb.GetStockRequest{SKUs: skus})
	if err != nil {
		grpcError(w, r, h.logger, err)
		return
	}
	httpapi.JSON(w, http.StatusOK, resp.Stocks)
}

func (h *InventoryHandler) SetStock(w http.ResponseWriter, r *http.Request) {
	var req SetStockRequest
	if err := httpapi.Decode(r, &req); err != nil || req.OnHand == nil {
		httpapi.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "onHand is required", false)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	resp, err := h.client.SetStock(ctx, &pb.SetStockRequest{SKU: chi.URLParam(r, "sku"), OnHand: *req.OnHand})
	if err != nil {
		grpcError(w, r, h.logger, err)
		return
	}
	httpapi.JSON(w, http.StatusOK, resp.Stock)
}

func (h *InventoryHandler) AdjustStock(w http.ResponseWriter, r *http.Request) {
	var req AdjustStockRequest
	if err := httpapi.Decode(r, &req); err != nil {
		httpapi.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "malformed request body", false)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	resp, err := h.client.AdjustStock(ctx, &pb.AdjustStockRequest{SKU: chi.URLParam(r, "sku"), Delta: req.Delta})
	if err != nil {
		grpcError(w, r, h.logger, err)
		return
	}
	httpapi.JSON(w, http.StatusOK, resp.Stock)
}

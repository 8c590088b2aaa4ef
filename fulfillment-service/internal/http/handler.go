package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/acharyaPawan/ecommerce-platform-sub001/fulfillment-service/internal/domain"
	"github.com/acharyaPawan/ecommerce-platform-sub001/pkg/httpapi"
	"github.com/acharyaPawan/ecommerce-platform-sub001/pkg/logger"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type ShipmentService interface {
	GetShipment(ctx context.Context, orderID string) (*domain.Shipment, error)
	Dispatch(ctx context.Context, orderID string) (*domain.Shipment, bool, error)
}

type ShipmentHandler struct {
	svc    ShipmentService
	logger *zap.Logger
}

func NewShipmentHandler(svc ShipmentService, l *zap.Logger) *ShipmentHandler {
	return &ShipmentHandler{svc: svc, logger: l}
}

func (h *ShipmentHandler) Routes(r chi.Router) {
	r.Route("/api/v1/shipments/{orderID}", func(r chi.Router) {
		r.Get("/", h.GetShipment)
		r.Post("/dispatch", h.Dispatch)
	})
}

type DispatchResponse struct {
	Shipment   *domain.Shipment `json:"shipment"`
	Dispatched bool             `json:"dispatched"`
}

func (h *ShipmentHandler) GetShipment(w http.ResponseWriter, r *http.Request) {
	sh, err := h.svc.GetShipment(r.Context(), chi.URLParam(r, "orderID"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpapi.JSON(w, http.StatusOK, sh)
}

func (h *ShipmentHandler) Dispatch(w http.ResponseWriter, r *http.Request) {
	sh, changed, err := h.svc.Dispatch(r.Context(), chi.URLParam(r, "orderID"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpapi.JSON(w, http.StatusOK, DispatchResponse{Shipment: sh, Dispatched: changed})
}

func (h *ShipmentHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrShipmentNotFound):
		httpapi.Error(w, http.StatusNotFound, "SHIPMENT_NOT_FOUND", err.Error(), false)
	case errors.Is(err, domain.ErrIllegalTransition):
		httpapi.Error(w, http.StatusConflict, "ILLEGAL_TRANSITION", err.Error(), false)
	default:
		logger.Error(r.Context(), h.logger, "request failed", zap.String("path", r.URL.Path), zap.Error(err))
		httpapi.Error(w, http.StatusInternalServerError, "INTERNAL", "internal server error", false)
	}
}

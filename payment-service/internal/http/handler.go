package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/acharyaPawan/ecommerce-platform-sub001/payment-service/internal/domain"
	"github.com/acharyaPawan/ecommerce-platform-sub001/pkg/httpapi"
	"github.com/acharyaPawan/ecommerce-platform-sub001/pkg/logger"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type PaymentService interface {
	GetPayment(ctx context.Context, orderID string) (*domain.Payment, error)
	Capture(ctx context.Context, orderID string) (*domain.Payment, bool, error)
}

type PaymentHandler struct {
	svc    PaymentService
	logger *zap.Logger
}

func NewPaymentHandler(svc PaymentService, l *zap.Logger) *PaymentHandler {
	return &PaymentHandler{svc: svc, logger: l}
}

func (h *PaymentHandler) Routes(r chi.Router) {
	r.Route("/api/v1/payments/{orderID}", func(r chi.Router) {
		r.Get("/", h.GetPayment)
		r.Post("/capture", h.Capture)
	})
}

type CaptureResponse struct {
	Payment  *domain.Payment `json:"payment"`
	Captured bool            `json:"captured"`
}

func (h *PaymentHandler) GetPayment(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.GetPayment(r.Context(), chi.URLParam(r, "orderID"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpapi.JSON(w, http.StatusOK, p)
}

// Capture is safe to retry: a captured payment answers 200 with captured=false.
func (h *PaymentHandler) Capture(w http.ResponseWriter, r *http.Request) {
	p, changed, err := h.svc.Capture(r.Context(), chi.URLParam(r, "orderID"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpapi.JSON(w, http.StatusOK, CaptureResponse{Payment: p, Captured: changed})
}

func (h *PaymentHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrPaymentNotFound):
		httpapi.Error(w, http.StatusNotFound, "PAYMENT_NOT_FOUND", err.Error(), false)
	case errors.Is(err, domain.ErrIllegalTransition):
		httpapi.Error(w, http.StatusConflict, "ILLEGAL_TRANSITION", err.Error(), false)
	default:
		logger.Error(r.Context(), h.logger, "request failed", zap.String("path", r.URL.Path), zap.Error(err))
		httpapi.Error(w, http.StatusInternalServerError, "INTERNAL", "internal server error", false)
	}
}

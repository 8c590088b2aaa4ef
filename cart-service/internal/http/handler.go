package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/acharyaPawan/ecommerce-platform-sub001/cart-service/internal/domain"
	"github.com/acharyaPawan/ecommerce-platform-sub001/cart-service/internal/service"
	"github.com/acharyaPawan/ecommerce-platform-sub001/pkg/httpapi"
	"github.com/acharyaPawan/ecommerce-platform-sub001/pkg/idempotency"
	"github.com/acharyaPawan/ecommerce-platform-sub001/pkg/logger"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type CartService interface {
	CreateCart(ctx context.Context, userID *string, currency string) (*domain.Cart, error)
	GetCart(ctx context.Context, cartID string) (*domain.Cart, error)
	AddItem(ctx context.Context, cartID string, expectedVersion int64, item domain.LineItem) (*domain.Cart, error)
	UpdateItem(ctx context.Context, cartID string, expectedVersion int64, key string, quantity int64) (*domain.Cart, error)
	RemoveItem(ctx context.Context, cartID string, expectedVersion int64, key string) (*domain.Cart, error)
	ApplyCoupon(ctx context.Context, cartID string, expectedVersion int64, code string) (*domain.Cart, error)
	ClearCoupon(ctx context.Context, cartID string, expectedVersion int64) (*domain.Cart, error)
	RefreshPricing(ctx context.Context, cartID string) (*domain.Cart, error)
	Checkout(ctx context.Context, cartID string, expectedVersion int64, idempotencyKey string) (*service.CheckoutResult, error)
}

type CartHandler struct {
	svc    CartService
	logger *zap.Logger
}

func NewCartHandler(svc CartService, l *zap.Logger) *CartHandler {
	return &CartHandler{svc: svc, logger: l}
}

// Routes mounts the cart API on r. idem may be nil.
func (h *CartHandler) Routes(r chi.Router, idem *idempotency.Middleware) {
	r.Route("/api/v1/carts", func(r chi.Router) {
		if idem != nil {
			r.Use(idem.Handler)
		}
		r.Post("/", h.CreateCart)
		r.Route("/{cartID}", func(r chi.Router) {
			r.Get("/", h.GetCart)
			r.Post("/items", h.AddItem)
			r.Patch("/items/{key}", h.UpdateItem)
			r.Delete("/items/{key}", h.RemoveItem)
			r.Put("/coupon", h.ApplyCoupon)
			r.Delete("/coupon", h.ClearCoupon)
			r.Post("/pricing/refresh", h.RefreshPricing)
			r.Post("/checkout", h.Checkout)
		})
	})
}

type CreateCartRequest struct {
	UserID   *string `json:"userId"`
	Currency string  `json:"currency"`
}

type AddItemRequest struct {
	Version *int64 `json:"version"`
	domain.LineItem
}

type UpdateItemRequest struct {
	Version  *int64 `json:"version"`
	Quantity int64  `json:"quantity"`
}

type CouponRequest struct {
	Version *int64 `json:"version"`
	Code    string `json:"code"`
}

type VersionRequest struct {
	Version *int64 `json:"version"`
}

var errMalformed = errors.New("malformed request body")

func (h *CartHandler) CreateCart(w http.ResponseWriter, r *http.Request) {
	var req CreateCartRequest
	if err := httpapi.Decode(r, &req); err != nil {
		h.fail(w, r, fmt.Errorf("%w: %v", errMalformed, err))
		return
	}
	cart, err := h.svc.CreateCart(r.Context(), req.UserID, req.Currency)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeCart(w, http.StatusCreated, cart)
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	cart, err := h.svc.GetCart(r.Context(), chi.URLParam(r, "cartID"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeCart(w, http.StatusOK, cart)
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req AddItemRequest
	if err := httpapi.Decode(r, &req); err != nil {
		h.fail(w, r, fmt.Errorf("%w: %v", errMalformed, err))
		return
	}
	version, err := expectedVersion(r, req.Version)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	cart, err := h.svc.AddItem(r.Context(), chi.URLParam(r, "cartID"), version, req.LineItem)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeCart(w, http.StatusOK, cart)
}

func (h *CartHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	var req UpdateItemRequest
	if err := httpapi.Decode(r, &req); err != nil {
		h.fail(w, r, fmt.Errorf("%w: %v", errMalformed, err))
		return
	}
	key, version, err := itemTarget(r, req.Version)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	cart, err := h.svc.UpdateItem(r.Context(), chi.URLParam(r, "cartID"), version, key, req.Quantity)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeCart(w, http.StatusOK, cart)
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	var req VersionRequest
	if err := decodeOptional(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	key, version, err := itemTarget(r, req.Version)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	cart, err := h.svc.RemoveItem(r.Context(), chi.URLParam(r, "cartID"), version, key)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeCart(w, http.StatusOK, cart)
}

func (h *CartHandler) ApplyCoupon(w http.ResponseWriter, r *http.Request) {
	var req CouponRequest
	if err := httpapi.Decode(r, &req); err != nil {
		h.fail(w, r, fmt.Errorf("%w: %v", errMalformed, err))
		return
	}
	version, err := expectedVersion(r, req.Version)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	cart, err := h.svc.ApplyCoupon(r.Context(), chi.URLParam(r, "cartID"), version, req.Code)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeCart(w, http.StatusOK, cart)
}

func (h *CartHandler) ClearCoupon(w http.ResponseWriter, r *http.Request) {
	var req VersionRequest
	if err := decodeOptional(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	version, err := expectedVersion(r, req.Version)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	cart, err := h.svc.ClearCoupon(r.Context(), chi.URLParam(r, "cartID"), version)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeCart(w, http.StatusOK, cart)
}

func (h *CartHandler) RefreshPricing(w http.ResponseWriter, r *http.Request) {
	cart, err := h.svc.RefreshPricing(r.Context(), chi.URLParam(r, "cartID"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeCart(w, http.StatusOK, cart)
}

func (h *CartHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req VersionRequest
	if err := decodeOptional(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	version, err := expectedVersion(r, req.Version)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	res, err := h.svc.Checkout(r.Context(), chi.URLParam(r, "cartID"), version, r.Header.Get(idempotency.HeaderKey))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpapi.JSON(w, http.StatusCreated, res)
}

func writeCart(w http.ResponseWriter, status int, cart *domain.Cart) {
	w.Header().Set("ETag", strconv.Quote(strconv.FormatInt(cart.Version, 10)))
	httpapi.JSON(w, status, cart)
}

// expectedVersion prefers If-Match over the body field. Weak and quoted tags
// are accepted.
func expectedVersion(r *http.Request, body *int64) (int64, error) {
	if tag := strings.TrimSpace(r.Header.Get("If-Match")); tag != "" {
		tag = strings.Trim(strings.TrimPrefix(tag, "W/"), `"`)
		v, err := strconv.ParseInt(tag, 10, 64)
		if err != nil || v < 1 {
			return 0, fmt.Errorf("%w: If-Match must be a cart version", domain.ErrValidation)
		}
		return v, nil
	}
	if body == nil {
		return 0, fmt.Errorf("%w: expected version required (If-Match or version)", domain.ErrValidation)
	}
	return *body, nil
}

func itemTarget(r *http.Request, body *int64) (string, int64, error) {
	key, err := url.PathUnescape(chi.URLParam(r, "key"))
	if err != nil || key == "" {
		return "", 0, fmt.Errorf("%w: invalid item key", domain.ErrValidation)
	}
	version, err := expectedVersion(r, body)
	return key, version, err
}

// decodeOptional decodes the body when there is one.
func decodeOptional(r *http.Request, v any) error {
	if r.Body == nil || r.Body == http.NoBody {
		return nil
	}
	if err := httpapi.Decode(r, v); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: %v", errMalformed, err)
	}
	return nil
}

func (h *CartHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, errMalformed):
		httpapi.Error(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), false)
	case errors.Is(err, domain.ErrValidation):
		httpapi.Error(w, http.StatusBadRequest, "VALIDATION_FAILED", err.Error(), false)
	case errors.Is(err, domain.ErrCartNotFound):
		httpapi.Error(w, http.StatusNotFound, "CART_NOT_FOUND", err.Error(), false)
	case errors.Is(err, domain.ErrItemNotFound):
		httpapi.Error(w, http.StatusNotFound, "ITEM_NOT_FOUND", err.Error(), false)
	case errors.Is(err, domain.ErrVersionConflict):
		httpapi.Error(w, http.StatusConflict, "VERSION_CONFLICT", err.Error(), true)
	case errors.Is(err, domain.ErrCartCheckedOut):
		httpapi.Error(w, http.StatusConflict, "CART_CHECKED_OUT", err.Error(), false)
	case errors.Is(err, domain.ErrCheckoutFailed):
		httpapi.Error(w, http.StatusBadGateway, "CHECKOUT_FAILED", err.Error(), false)
	case errors.Is(err, domain.ErrDependency), errors.Is(err, context.DeadlineExceeded):
		httpapi.Error(w, http.StatusServiceUnavailable, "DEPENDENCY_FAILURE", err.Error(), true)
	default:
		logger.Error(r.Context(), h.logger, "request failed",
			zap.String("method", r.Method), zap.String("path", r.URL.Path), zap.Error(err))
		httpapi.Error(w, http.StatusInternalServerError, "INTERNAL", "internal server error", false)
	}
}

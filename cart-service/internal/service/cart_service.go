package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/acharyaPawan/ecommerce-platform-sub001/cart-service/internal/cache"
	"github.com/acharyaPawan/ecommerce-platform-sub001/cart-service/internal/domain"
	"github.com/acharyaPawan/ecommerce-platform-sub001/cart-service/internal/pricing"
	"github.com/acharyaPawan/ecommerce-platform-sub001/cart-service/internal/repository"
	"github.com/acharyaPawan/ecommerce-platform-sub001/pkg/logger"
	"github.com/acharyaPawan/ecommerce-platform-sub001/pkg/snapshot"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// OrdersClient creates an order from a signed snapshot. Implementations return
// domain.ErrDependency when orders is unreachable and domain.ErrCheckoutFailed
// when it refused the snapshot.
type OrdersClient interface {
	CreateOrder(ctx context.Context, snap snapshot.Snapshot, idempotencyKey string) (string, error)
}

type Config struct {
	SnapshotSecret  []byte
	MaxItemQuantity int64
}

type CartService struct {
	repo     repository.CartRepository
	cache    cache.CartCache
	pricing  pricing.Provider
	orders   OrdersClient
	cfg      Config
	validate *validator.Validate
	logger   *zap.Logger
	now      func() time.Time
	sfg      singleflight.Group // Prevents cache stampede
}

func NewCartService(repo repository.CartRepository, c cache.CartCache, p pricing.Provider, orders OrdersClient, cfg Config, l *zap.Logger) *CartService {
	if cfg.MaxItemQuantity <= 0 {
		cfg.MaxItemQuantity = 99
	}
	return &CartService{
		repo:     repo,
		cache:    c,
		pricing:  p,
		orders:   orders,
		cfg:      cfg,
		validate: validator.New(),
		logger:   l,
		now:      time.Now,
	}
}

// WithClock replaces the service clock. Used by tests.
func (s *CartService) WithClock(now func() time.Time) *CartService {
	s.now = now
	return s
}

type createCartInput struct {
	Currency string `validate:"required,iso4217"`
}

func (s *CartService) CreateCart(ctx context.Context, userID *string, currency string) (*domain.Cart, error) {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if err := s.validate.Struct(createCartInput{Currency: currency}); err != nil {
		return nil, validationError(err)
	}
	if userID != nil && *userID == "" {
		userID = nil
	}

	cart := domain.NewCart(userID, currency, s.now().UTC())
	if err := s.repo.Create(ctx, cart); err != nil {
		return nil, err
	}
	logger.Info(ctx, s.logger, "cart created", zap.String("cart_id", cart.ID))
	return cart, nil
}

// GetCart reads through the cache. Concurrent misses for one cart share a single load.
func (s *CartService) GetCart(ctx context.Context, cartID string) (*domain.Cart, error) {
	v, err, _ := s.sfg.Do(cartID, func() (any, error) {
		cart, err := s.cache.Get(ctx, cartID)
		if err == nil {
			return cart, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			logger.Warn(ctx, s.logger, "cache get failed", zap.String("cart_id", cartID), zap.Error(err))
		}

		cart, err = s.repo.Get(ctx, cartID)
		if err != nil {
			return nil, err
		}
		if err := s.cache.Set(ctx, cart); err != nil {
			logger.Warn(ctx, s.logger, "cache set failed", zap.String("cart_id", cartID), zap.Error(err))
		}
		return cart, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.Cart).Clone(), nil
}

func (s *CartService) AddItem(ctx context.Context, cartID string, expectedVersion int64, item domain.LineItem) (*domain.Cart, error) {
	item.SKU = strings.TrimSpace(item.SKU)
	item.VariantID = strings.TrimSpace(item.VariantID)
	if err := s.validate.Struct(item); err != nil {
		return nil, validationError(err)
	}
	return s.mutate(ctx, cartID, expectedVersion, func(c *domain.Cart) error {
		return c.AddItem(item, s.cfg.MaxItemQuantity)
	})
}

// UpdateItem sets the quantity of the line with key. Zero removes the line.
func (s *CartService) UpdateItem(ctx context.Context, cartID string, expectedVersion int64, key string, quantity int64) (*domain.Cart, error) {
	return s.mutate(ctx, cartID, expectedVersion, func(c *domain.Cart) error {
		return c.UpdateItem(key, quantity, s.cfg.MaxItemQuantity)
	})
}

func (s *CartService) RemoveItem(ctx context.Context, cartID string, expectedVersion int64, key string) (*domain.Cart, error) {
	return s.mutate(ctx, cartID, expectedVersion, func(c *domain.Cart) error {
		return c.RemoveItem(key)
	})
}

type couponInput struct {
	Code string `validate:"required,max=64,alphanum"`
}

func (s *CartService) ApplyCoupon(ctx context.Context, cartID string, expectedVersion int64, code string) (*domain.Cart, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if err := s.validate.Struct(couponInput{Code: code}); err != nil {
		return nil, validationError(err)
	}
	return s.mutate(ctx, cartID, expectedVersion, func(c *domain.Cart) error {
		c.ApplyCoupon(code)
		return nil
	})
}

func (s *CartService) ClearCoupon(ctx context.Context, cartID string, expectedVersion int64) (*domain.Cart, error) {
	return s.mutate(ctx, cartID, expectedVersion, func(c *domain.Cart) error {
		c.ClearCoupon()
		return nil
	})
}

// RefreshPricing stores a fresh quote on the cart. Unlike checkout it fails when
// the provider is unreachable, since the quote is its only output.
func (s *CartService) RefreshPricing(ctx context.Context, cartID string) (*domain.Cart, error) {
	current, err := s.repo.Get(ctx, cartID)
	if err != nil {
		return nil, err
	}
	if err := current.EnsureActive(); err != nil {
		return nil, err
	}

	q, err := s.pricing.Quote(ctx, quoteRequest(current))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrDependency, err)
	}
	return s.mutate(ctx, cartID, current.Version, func(c *domain.Cart) error {
		c.Pricing = priceCart(c, q, s.now().UTC())
		return nil
	})
}

// MarkCheckedOut records orderID on an active cart. It reports false when the
// cart was already checked out.
func (s *CartService) MarkCheckedOut(ctx context.Context, cartID, orderID string) (bool, error) {
	const attempts = 3
	for range attempts {
		c, err := s.repo.Get(ctx, cartID)
		if err != nil {
			return false, err
		}
		if c.Status == domain.StatusCheckedOut {
			return false, nil
		}
		_, err = s.mutate(ctx, cartID, c.Version, func(c *domain.Cart) error {
			return c.MarkCheckedOut(orderID)
		})
		if errors.Is(err, domain.ErrVersionConflict) {
			continue
		}
		return err == nil, err
	}
	return false, domain.ErrVersionConflict
}

// mutate is the read-modify-write every change goes through: the stored version
// must equal expectedVersion both before fn runs and when the result is written.
func (s *CartService) mutate(ctx context.Context, cartID string, expectedVersion int64, fn func(*domain.Cart) error) (*domain.Cart, error) {
	cart, err := s.repo.Get(ctx, cartID)
	if err != nil {
		return nil, err
	}
	if cart.Version != expectedVersion {
		return nil, fmt.Errorf("%w: have %d, expected %d", domain.ErrVersionConflict, cart.Version, expectedVersion)
	}
	if err := cart.EnsureActive(); err != nil {
		return nil, err
	}
	if err := fn(cart); err != nil {
		return nil, err
	}

	cart.UpdatedAt = s.now().UTC()
	if err := s.repo.Update(ctx, cart, expectedVersion); err != nil {
		return nil, err
	}
	s.invalidateCache(ctx, cartID)
	return cart, nil
}

func (s *CartService) invalidateCache(ctx context.Context, cartID string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
	defer cancel()
	if err := s.cache.Delete(ctx, cartID); err != nil {
		logger.Warn(ctx, s.logger, "cache invalidate failed", zap.String("cart_id", cartID), zap.Error(err))
	}
}

func validationError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]string, len(verrs))
		for i, fe := range verrs {
			fields[i] = fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag())
		}
		return fmt.Errorf("%w: %s", domain.ErrValidation, strings.Join(fields, ", "))
	}
	return fmt.Errorf("%w: %v", domain.ErrValidation, err)
}

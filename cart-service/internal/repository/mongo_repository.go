package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/acharyaPawan/ecommerce-platform-sub001/cart-service/internal/domain"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// cartDocument is the stored form. Prices are kept as decimal strings.
type cartDocument struct {
	ID              string           `bson:"_id"`
	UserID          *string          `bson:"user_id,omitempty"`
	Currency        string           `bson:"currency"`
	Items           []itemDocument   `bson:"items"`
	Coupon          *string          `bson:"coupon,omitempty"`
	Pricing         *pricingDocument `bson:"pricing,omitempty"`
	Status          string           `bson:"status"`
	Version         int64            `bson:"version"`
	CheckoutOrderID *string          `bson:"checkout_order_id,omitempty"`
	CreatedAt       time.Time        `bson:"created_at"`
	UpdatedAt       time.Time        `bson:"updated_at"`
}

type itemDocument struct {
	SKU             string            `bson:"sku"`
	VariantID       string            `bson:"variant_id"`
	Quantity        int64             `bson:"quantity"`
	SelectedOptions map[string]string `bson:"selected_options,omitempty"`
	Metadata        map[string]any    `bson:"metadata,omitempty"`
}

type pricingDocument struct {
	Items    []pricedDocument `bson:"items"`
	Subtotal *string          `bson:"subtotal"`
	Currency string           `bson:"currency"`
	Coupon   string           `bson:"coupon,omitempty"`
	PricedAt time.Time        `bson:"priced_at"`
}

type pricedDocument struct {
	Key       string  `bson:"key"`
	SKU       string  `bson:"sku"`
	Quantity  int64   `bson:"quantity"`
	UnitPrice *string `bson:"unit_price"`
	Currency  string  `bson:"currency,omitempty"`
	Title     string  `bson:"title,omitempty"`
}

type mongoRepository struct {
	collection *mongo.Collection
}

func NewMongoRepository(db *mongo.Database) CartRepository {
	return &mongoRepository{
		collection: db.Collection("carts"),
	}
}

func (m *mongoRepository) Create(ctx context.Context, cart *domain.Cart) error {
	if _, err := m.collection.InsertOne(ctx, toDocument(cart)); err != nil {
		return fmt.Errorf("failed to create cart: %w", err)
	}
	return nil
}

func (m *mongoRepository) Get(ctx context.Context, id string) (*domain.Cart, error) {
	var doc cartDocument
	err := m.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrCartNotFound
		}
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}
	return fromDocument(doc)
}

func (m *mongoRepository) Update(ctx context.Context, cart *domain.Cart, expectedVersion int64) error {
	doc := toDocument(cart)
	set := bson.M{
		"currency":   doc.Currency,
		"items":      doc.Items,
		"status":     doc.Status,
		"updated_at": doc.UpdatedAt,
	}
	unset := bson.M{}
	optional := map[string]any{
		"user_id":           doc.UserID,
		"coupon":            doc.Coupon,
		"pricing":           doc.Pricing,
		"checkout_order_id": doc.CheckoutOrderID,
	}
	for field, v := range optional {
		if isNil(v) {
			unset[field] = ""
		} else {
			set[field] = v
		}
	}

	update := bson.M{"$set": set, "$inc": bson.M{"version": 1}}
	if len(unset) > 0 {
		update["$unset"] = unset
	}

	res, err := m.collection.UpdateOne(ctx, bson.M{"_id": cart.ID, "version": expectedVersion}, update)
	if err != nil {
		return fmt.Errorf("failed to update cart: %w", err)
	}
	if res.MatchedCount == 0 {
		n, err := m.collection.CountDocuments(ctx, bson.M{"_id": cart.ID})
		if err != nil {
			return fmt.Errorf("failed to check cart: %w", err)
		}
		if n == 0 {
			return domain.ErrCartNotFound
		}
		return domain.ErrVersionConflict
	}
	cart.Version = expectedVersion + 1
	return nil
}

func isNil(v any) bool {
	switch p := v.(type) {
	case *string:
		return p == nil
	case *pricingDocument:
		return p == nil
	}
	return v == nil
}

func (m *mongoRepository) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "user_id", Value: 1}},
		},
		{
			Keys:    bson.D{{Key: "updated_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(90 * 24 * 60 * 60), // 90 days TTL
		},
	}

	_, err := m.collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	return nil
}

// EnsureIndexes creates the collection indexes when repo is Mongo backed.
func EnsureIndexes(ctx context.Context, repo CartRepository) error {
	if m, ok := repo.(*mongoRepository); ok {
		return m.CreateIndexes(ctx)
	}
	return nil
}

func decimalString(d *decimal.Decimal) *string {
	if d == nil {
		return nil
	}
	s := d.String()
	return &s
}

func parseDecimal(s *string) (*decimal.Decimal, error) {
	if s == nil {
		return nil, nil
	}
	d, err := decimal.NewFromString(*s)
	if err != nil {
		return nil, fmt.Errorf("stored price %q: %w", *s, err)
	}
	return &d, nil
}

func toDocument(c *domain.Cart) cartDocument {
	doc := cartDocument{
		ID:              c.ID,
		UserID:          c.UserID,
		Currency:        c.Currency,
		Items:           make([]itemDocument, len(c.Items)),
		Coupon:          c.Coupon,
		Status:          string(c.Status),
		Version:         c.Version,
		CheckoutOrderID: c.CheckoutOrderID,
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       c.UpdatedAt,
	}
	for i, it := range c.Items {
		doc.Items[i] = itemDocument(it)
	}
	if p := c.Pricing; p != nil {
		pd := &pricingDocument{
			Items:    make([]pricedDocument, len(p.Items)),
			Subtotal: decimalString(p.Subtotal),
			Currency: p.Currency,
			Coupon:   p.Coupon,
			PricedAt: p.PricedAt,
		}
		for i, it := range p.Items {
			pd.Items[i] = pricedDocument{
				Key: it.Key, SKU: it.SKU, Quantity: it.Quantity,
				UnitPrice: decimalString(it.UnitPrice), Currency: it.Currency, Title: it.Title,
			}
		}
		doc.Pricing = pd
	}
	return doc
}

func fromDocument(doc cartDocument) (*domain.Cart, error) {
	c := &domain.Cart{
		ID:              doc.ID,
		UserID:          doc.UserID,
		Currency:        doc.Currency,
		Items:           make([]domain.LineItem, len(doc.Items)),
		Coupon:          doc.Coupon,
		Status:          domain.Status(doc.Status),
		Version:         doc.Version,
		CheckoutOrderID: doc.CheckoutOrderID,
		CreatedAt:       doc.CreatedAt,
		UpdatedAt:       doc.UpdatedAt,
	}
	for i, it := range doc.Items {
		c.Items[i] = domain.LineItem(it)
	}
	if pd := doc.Pricing; pd != nil {
		subtotal, err := parseDecimal(pd.Subtotal)
		if err != nil {
			return nil, err
		}
		p := &domain.PricingSnapshot{
			Items:    make([]domain.PricedItem, len(pd.Items)),
			Subtotal: subtotal,
			Currency: pd.Currency,
			Coupon:   pd.Coupon,
			PricedAt: pd.PricedAt,
		}
		for i, it := range pd.Items {
			price, err := parseDecimal(it.UnitPrice)
			if err != nil {
				return nil, err
			}
			p.Items[i] = domain.PricedItem{
				Key: it.Key, SKU: it.SKU, Quantity: it.Quantity,
				UnitPrice: price, Currency: it.Currency, Title: it.Title,
			}
		}
		c.Pricing = p
	}
	return c, nil
}

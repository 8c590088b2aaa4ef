package pricing

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Static prices skus from a fixed table. Unknown skus are left unpriced.
type Static struct {
	prices map[string]decimal.Decimal
}

// NewStatic parses prices given as decimal strings keyed by sku.
func NewStatic(prices map[string]string) (*Static, error) {
	s := &Static{prices: make(map[string]decimal.Decimal, len(prices))}
	for sku, raw := range prices {
		d, err := decimal.NewFromString(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("price for %s: %w", sku, err)
		}
		if d.IsNegative() {
			return nil, fmt.Errorf("price for %s is negative", sku)
		}
		s.prices[sku] = d
	}
	return s, nil
}

func (s *Static) Quote(_ context.Context, req QuoteRequest) (*Quote, error) {
	q := &Quote{Items: make([]QuotedItem, 0, len(req.Items))}
	for _, it := range req.Items {
		qi := QuotedItem{Key: it.Key, Title: it.SKU}
		if price, ok := s.prices[it.SKU]; ok {
			qi.UnitPrice = &price
			qi.Currency = req.Currency
		}
		q.Items = append(q.Items, qi)
	}
	return q, nil
}

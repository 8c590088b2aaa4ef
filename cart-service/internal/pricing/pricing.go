// Package pricing talks to the catalog quote provider. Prices are read only:
// a line the provider cannot price comes back with a nil UnitPrice.
package pricing

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

var ErrUnavailable = errors.New("pricing provider unavailable")

type QuoteItem struct {
	Key             string            `json:"key"`
	SKU             string            `json:"sku"`
	VariantID       string            `json:"variantId"`
	Quantity        int64             `json:"quantity"`
	SelectedOptions map[string]string `json:"selectedOptions,omitempty"`
}

type QuoteRequest struct {
	Currency string      `json:"currency"`
	Coupon   string      `json:"coupon,omitempty"`
	Items    []QuoteItem `json:"items"`
}

type QuotedItem struct {
	Key       string           `json:"key"`
	UnitPrice *decimal.Decimal `json:"unitPrice"`
	Currency  string           `json:"currency,omitempty"`
	Title     string           `json:"title,omitempty"`
}

type Quote struct {
	Items []QuotedItem `json:"items"`
}

// Lookup indexes the quote by line key.
func (q *Quote) Lookup() map[string]QuotedItem {
	out := make(map[string]QuotedItem, len(q.Items))
	for _, it := range q.Items {
		out[it.Key] = it
	}
	return out
}

type Provider interface {
	Quote(ctx context.Context, req QuoteRequest) (*Quote, error)
}

package pricing

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestHTTPClient_Quote(t *testing.T) {
	var got QuoteRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/quotes", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"items":[{"key":"A-1","unitPrice":"12.50","currency":"USD","title":"Mug"},{"key":"B-1","unitPrice":null}]}`))
	}))
	t.Cleanup(srv.Close)

	c := NewHTTPClient(srv.URL+"/", time.Second, zap.NewNop())
	q, err := c.Quote(context.Background(), QuoteRequest{
		Currency: "USD",
		Coupon:   "SAVE10",
		Items:    []QuoteItem{{Key: "A-1", SKU: "A", VariantID: "A-1", Quantity: 2}, {Key: "B-1", SKU: "B", VariantID: "B-1", Quantity: 1}},
	})
	require.NoError(t, err)
	assert.Equal(t, "SAVE10", got.Coupon)
	assert.Len(t, got.Items, 2)

	byKey := q.Lookup()
	assert.True(t, byKey["A-1"].UnitPrice.Equal(decimal.RequireFromString("12.5")))
	assert.Equal(t, "Mug", byKey["A-1"].Title)
	assert.Nil(t, byKey["B-1"].UnitPrice)
}

func TestHTTPClient_FailuresAreUnavailable(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)

	c := NewHTTPClient(srv.URL, time.Second, zap.NewNop())
	for range 7 {
		_, err := c.Quote(context.Background(), QuoteRequest{Currency: "USD"})
		assert.ErrorIs(t, err, ErrUnavailable)
	}
	assert.Equal(t, 5, calls, "breaker opens after five consecutive failures")
}

func TestStatic(t *testing.T) {
	s, err := NewStatic(map[string]string{"A": "3.10", "B": " 2 "})
	require.NoError(t, err)

	q, err := s.Quote(context.Background(), QuoteRequest{
		Currency: "EUR",
		Items:    []QuoteItem{{Key: "A-1", SKU: "A"}, {Key: "Z-1", SKU: "Z"}},
	})
	require.NoError(t, err)
	require.Len(t, q.Items, 2)
	assert.True(t, q.Items[0].UnitPrice.Equal(decimal.RequireFromString("3.1")))
	assert.Equal(t, "EUR", q.Items[0].Currency)
	assert.Nil(t, q.Items[1].UnitPrice)

	_, err = NewStatic(map[string]string{"A": "abc"})
	assert.Error(t, err)
	_, err = NewStatic(map[string]string{"A": "-1"})
	assert.Error(t, err)
}

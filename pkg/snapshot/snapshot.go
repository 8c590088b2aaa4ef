// Package snapshot defines the signed cart projection handed from checkout to
// order creation.
package snapshot

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidSignature = errors.New("invalid snapshot signature")
	ErrMissingSecret    = errors.New("snapshot signing secret is empty")
)

type Item struct {
	SKU             string            `json:"sku"`
	VariantID       string            `json:"variantId"`
	Quantity        int64             `json:"quantity"`
	SelectedOptions map[string]string `json:"selectedOptions,omitempty"`
	Title           string            `json:"title,omitempty"`

	// UnitPrice and Currency are nil/empty when the item could not be priced.
	UnitPrice *decimal.Decimal `json:"unitPrice,omitempty"`
	Currency  string           `json:"currency,omitempty"`
}

type Totals struct {
	ItemCount     int   `json:"itemCount"`
	TotalQuantity int64 `json:"totalQuantity"`

	// Subtotal is nil if any item failed to price.
	Subtotal *decimal.Decimal `json:"subtotal"`
}

type Snapshot struct {
	ID          string    `json:"id"`
	CartID      string    `json:"cartId"`
	CartVersion int64     `json:"cartVersion"`
	UserID      *string   `json:"userId"`
	Currency    string    `json:"currency"`
	Coupon      string    `json:"coupon,omitempty"`
	Items       []Item    `json:"items"`
	Totals      Totals    `json:"totals"`
	CapturedAt  time.Time `json:"capturedAt"`
	Signature   string    `json:"signature"`
}

// canonical is the signed byte form: the JSON encoding with the signature blanked.
// encoding/json writes struct fields in declaration order and map keys sorted.
func canonical(s Snapshot) ([]byte, error) {
	s.Signature = ""
	b, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("canonical snapshot: %w", err)
	}
	return b, nil
}

func digest(s Snapshot, secret []byte) ([]byte, error) {
	if len(secret) == 0 {
		return nil, ErrMissingSecret
	}
	payload, err := canonical(s)
	if err != nil {
		return nil, err
	}
	mac := hmac.New(sha256.New, secret)
	mac.Write(payload)
	return mac.Sum(nil), nil
}

// Sign returns s with its signature set.
func Sign(s Snapshot, secret []byte) (Snapshot, error) {
	sum, err := digest(s, secret)
	if err != nil {
		return Snapshot{}, err
	}
	s.Signature = hex.EncodeToString(sum)
	return s, nil
}

func Verify(s Snapshot, secret []byte) error {
	want, err := digest(s, secret)
	if err != nil {
		return err
	}
	got, err := hex.DecodeString(s.Signature)
	if err != nil || !hmac.Equal(got, want) {
		return ErrInvalidSignature
	}
	return nil
}

// TotalCents converts the subtotal to minor units. ok is false when the
// subtotal is unknown.
func (s Snapshot) TotalCents() (cents int64, ok bool) {
	if s.Totals.Subtotal == nil {
		return 0, false
	}
	return s.Totals.Subtotal.Shift(2).Round(0).IntPart(), true
}

package events

import (
	"fmt"
	"strings"
	"time"
)

type Type string

const (
	TypeOrderPlaced            Type = "orders.order_placed.v1"
	TypeOrderCanceled          Type = "orders.order_canceled.v1"
	TypeStockReserved          Type = "inventory.stock.reserved.v1"
	TypeStockReservationFailed Type = "inventory.stock.reservation_failed.v1"
	TypePaymentAuthorized      Type = "payments.payment_authorized.v1"
	TypePaymentFailed          Type = "payments.payment_failed.v1"
	TypePaymentCaptured        Type = "payments.payment_captured.v1"
	TypeShipmentCreated        Type = "fulfillment.shipment_created.v1"
	TypeShipmentDispatched     Type = "fulfillment.shipment_dispatched.v1"
	TypeShipmentCanceled       Type = "fulfillment.shipment_canceled.v1"
)

// Topics, one per producing service.
const (
	TopicOrders      = "orders.events"
	TopicInventory   = "inventory.events"
	TopicPayments    = "payments.events"
	TopicFulfillment = "fulfillment.events"
)

func (t Type) String() string { return string(t) }

// TopicFor returns the topic the producing service publishes t on.
func TopicFor(t Type) string {
	switch {
	case strings.HasPrefix(string(t), "orders."):
		return TopicOrders
	case strings.HasPrefix(string(t), "inventory."):
		return TopicInventory
	case strings.HasPrefix(string(t), "payments."):
		return TopicPayments
	case strings.HasPrefix(string(t), "fulfillment."):
		return TopicFulfillment
	}
	return ""
}

// AggregateType names the aggregate an event type is keyed by.
func (t Type) AggregateType() string {
	switch t {
	case TypeStockReserved, TypeStockReservationFailed:
		return "reservation"
	case TypePaymentAuthorized, TypePaymentFailed, TypePaymentCaptured:
		return "payment"
	case TypeShipmentCreated, TypeShipmentDispatched, TypeShipmentCanceled:
		return "shipment"
	}
	return "order"
}

func (t Type) zero() (Event, error) {
	switch t {
	case TypeOrderPlaced:
		return &OrderPlaced{}, nil
	case TypeOrderCanceled:
		return &OrderCanceled{}, nil
	case TypeStockReserved:
		return &StockReserved{}, nil
	case TypeStockReservationFailed:
		return &StockReservationFailed{}, nil
	case TypePaymentAuthorized:
		return &PaymentAuthorized{}, nil
	case TypePaymentFailed:
		return &PaymentFailed{}, nil
	case TypePaymentCaptured:
		return &PaymentCaptured{}, nil
	case TypeShipmentCreated:
		return &ShipmentCreated{}, nil
	case TypeShipmentDispatched:
		return &ShipmentDispatched{}, nil
	case TypeShipmentCanceled:
		return &ShipmentCanceled{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownType, string(t))
}

// Event is the closed set of saga payloads. Consumers switch on the concrete type.
type Event interface {
	EventType() Type
	aggregateID() string
}

type Item struct {
	SKU      string `json:"sku"`
	Quantity int64  `json:"qty"`
}

// Reservation failure reasons.
const (
	ReasonInvalidItems      = "INVALID_ITEMS"
	ReasonInsufficientStock = "INSUFFICIENT_STOCK"
)

type InsufficientItem struct {
	SKU       string `json:"sku"`
	Requested int64  `json:"requested"`
	Available int64  `json:"available"`
}

type OrderPlaced struct {
	OrderID     string `json:"orderId"`
	CartID      string `json:"cartId,omitempty"`
	Items       []Item `json:"items"`
	TTLSeconds  *int64 `json:"ttlSeconds,omitempty"`
	AmountCents *int64 `json:"amountCents,omitempty"`
	Currency    string `json:"currency,omitempty"`
}

type OrderCanceled struct {
	OrderID string `json:"orderId"`
	Reason  string `json:"reason,omitempty"`
}

type StockReserved struct {
	OrderID   string     `json:"orderId"`
	Items     []Item     `json:"items"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

type StockReservationFailed struct {
	OrderID           string             `json:"orderId"`
	Reason            string             `json:"reason"`
	InsufficientItems []InsufficientItem `json:"insufficientItems,omitempty"`
}

type PaymentAuthorized struct {
	OrderID     string `json:"orderId"`
	AmountCents int64  `json:"amountCents"`
	Currency    string `json:"currency"`
}

type PaymentFailed struct {
	OrderID string `json:"orderId"`
	Reason  string `json:"reason,omitempty"`
}

type PaymentCaptured struct {
	OrderID string `json:"orderId"`
}

type ShipmentCreated struct {
	OrderID    string `json:"orderId"`
	ShipmentID string `json:"shipmentId"`
	Items      []Item `json:"items"`
}

type ShipmentDispatched struct {
	OrderID    string `json:"orderId"`
	ShipmentID string `json:"shipmentId"`
}

// ShipmentCanceled tells inventory the order will not ship. ShipmentID is empty
// when the order was canceled before a shipment existed.
type ShipmentCanceled struct {
	OrderID    string `json:"orderId"`
	ShipmentID string `json:"shipmentId,omitempty"`
	Reason     string `json:"reason,omitempty"`
}

func (OrderPlaced) EventType() Type            { return TypeOrderPlaced }
func (OrderCanceled) EventType() Type          { return TypeOrderCanceled }
func (StockReserved) EventType() Type          { return TypeStockReserved }
func (StockReservationFailed) EventType() Type { return TypeStockReservationFailed }
func (PaymentAuthorized) EventType() Type      { return TypePaymentAuthorized }
func (PaymentFailed) EventType() Type          { return TypePaymentFailed }
func (PaymentCaptured) EventType() Type        { return TypePaymentCaptured }
func (ShipmentCreated) EventType() Type        { return TypeShipmentCreated }
func (ShipmentDispatched) EventType() Type     { return TypeShipmentDispatched }
func (ShipmentCanceled) EventType() Type       { return TypeShipmentCanceled }

// Every saga event is keyed by the order it belongs to.
func (e OrderPlaced) aggregateID() string            { return e.OrderID }
func (e OrderCanceled) aggregateID() string          { return e.OrderID }
func (e StockReserved) aggregateID() string          { return e.OrderID }
func (e StockReservationFailed) aggregateID() string { return e.OrderID }
func (e PaymentAuthorized) aggregateID() string      { return e.OrderID }
func (e PaymentFailed) aggregateID() string          { return e.OrderID }
func (e PaymentCaptured) aggregateID() string        { return e.OrderID }
func (e ShipmentCreated) aggregateID() string        { return e.OrderID }
func (e ShipmentDispatched) aggregateID() string     { return e.OrderID }
func (e ShipmentCanceled) aggregateID() string       { return e.OrderID }

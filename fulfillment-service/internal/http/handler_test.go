package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/acharyaPawan/ecommerce-platform-sub001/fulfillment-service/internal/domain"
	"github.com/acharyaPawan/ecommerce-platform-sub001/pkg/httpapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockService struct {
	getFn      func(orderID string) (*domain.Shipment, error)
	dispatchFn func(orderID string) (*domain.Shipment, bool, error)
}

func (m *mockService) GetShipment(_ context.Context, orderID string) (*domain.Shipment, error) {
	return m.getFn(orderID)
}

func (m *mockService) Dispatch(_ context.Context, orderID string) (*domain.Shipment, bool, error) {
	return m.dispatchFn(orderID)
}

func serve(svc ShipmentService, method, path string) *httptest.ResponseRecorder {
	r := httpapi.NewRouter(zap.NewNop(), 0)
	NewShipmentHandler(svc, zap.NewNop()).Routes(r)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestDispatch(t *testing.T) {
	svc := &mockService{dispatchFn: func(orderID string) (*domain.Shipment, bool, error) {
		switch orderID {
		case "o-1":
			return &domain.Shipment{OrderID: orderID, Status: domain.StatusDispatched}, true, nil
		case "canceled":
			return nil, false, domain.ErrIllegalTransition
		case "broken":
			return nil, false, errors.New("db down")
		}
		return nil, false, domain.ErrShipmentNotFound
	}}

	rec := serve(svc, http.MethodPost, "/api/v1/shipments/o-1/dispatch")
	require.Equal(t, http.StatusOK, rec.Code)
	var body DispatchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Dispatched)
	assert.Equal(t, domain.StatusDispatched, body.Shipment.Status)

	assert.Equal(t, http.StatusConflict, serve(svc, http.MethodPost, "/api/v1/shipments/canceled/dispatch").Code)
	assert.Equal(t, http.StatusNotFound, serve(svc, http.MethodPost, "/api/v1/shipments/nope/dispatch").Code)

	rec = serve(svc, http.MethodPost, "/api/v1/shipments/broken/dispatch")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var errBody httpapi.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errBody))
	assert.Equal(t, "INTERNAL", errBody.Code)
	assert.NotContains(t, errBody.Error, "db down")
}

func TestGetShipment(t *testing.T) {
	svc := &mockService{getFn: func(orderID string) (*domain.Shipment, error) {
		if orderID == "o-1" {
			return &domain.Shipment{OrderID: orderID, Status: domain.StatusPending,
				Items: []domain.Item{{SKU: "A", Quantity: 2}}}, nil
		}
		return nil, domain.ErrShipmentNotFound
	}}

	rec := serve(svc, http.MethodGet, "/api/v1/shipments/o-1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[{"sku":"A","qty":2}]`, string(mustField(t, rec.Body.Bytes(), "items")))

	rec = serve(svc, http.MethodGet, "/api/v1/shipments/o-2")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func mustField(t *testing.T, raw []byte, name string) json.RawMessage {
	t.Helper()
	var m map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &m))
	return m[name]
}

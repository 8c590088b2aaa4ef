package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	pb "github.com/acharyaPawan/ecommerce-platform-sub001/orders-service/pkg/ordersapi"
	"github.com/acharyaPawan/ecommerce-platform-sub001/pkg/httpapi"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// --- Mock ---

type OrdersClientMock struct {
	order      *pb.Order
	orders     []pb.Order
	err        error
	lastUser   string
	lastCancel *pb.CancelOrderRequest
}

func (m *OrdersClientMock) GetOrder(_ context.Context, in *pb.GetOrderRequest, _ ...grpc.CallOption) (*pb.OrderResponse, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &pb.OrderResponse{Order: *m.order}, nil
}

func (m *OrdersClientMock) ListOrders(_ context.Context, in *pb.ListOrdersRequest, _ ...grpc.CallOption) (*pb.ListOrdersResponse, error) {
	m.lastUser = in.UserID
	if m.err != nil {
		return nil, m.err
	}
	return &pb.ListOrdersResponse{Orders: m.orders}, nil
}

func (m *OrdersClientMock) CancelOrder(_ context.Context, in *pb.CancelOrderRequest, _ ...grpc.CallOption) (*pb.OrderResponse, error) {
	m.lastCancel = in
	if m.err != nil {
		return nil, m.err
	}
	o := *m.order
	o.Status = "canceled"
	o.CancellationReason = &in.Reason
	return &pb.OrderResponse{Order: o}, nil
}

// --- helper ---

func ordersRouter(m *OrdersClientMock) chi.Router {
	r := httpapi.NewRouter(zap.NewNop(), 0)
	r.Use(UserIDMiddleware)
	NewOrdersHandler(m, 5*time.Second, zap.NewNop()).Routes(r)
	return r
}

func send(r http.Handler, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body httpapi.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Code
}

// --- ListOrders tests ---

func TestListOrders_Success(t *testing.T) {
	mock := &OrdersClientMock{orders: []pb.Order{{ID: "order-1", Status: "confirmed", Currency: "USD"}}}

	rec := send(ordersRouter(mock), http.MethodGet, "/api/v1/orders", "", HeaderUserID, "u-1")

	require.Equal(t, http.StatusOK, rec.Code)
	var got []pb.Order
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "order-1", got[0].ID)
	assert.Equal(t, "u-1", mock.lastUser)
}

func TestListOrders_EmptyIsArray(t *testing.T) {
	rec := send(ordersRouter(&OrdersClientMock{}), http.MethodGet, "/api/v1/orders", "", HeaderUserID, "u-1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestListOrders_Unauthorized(t *testing.T) {
	rec := send(ordersRouter(&OrdersClientMock{}), http.MethodGet, "/api/v1/orders", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

// --- GetOrder tests ---

func TestGetOrder_StatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"not found", status.Error(codes.NotFound, "order not found"), http.StatusNotFound, "NOT_FOUND"},
		{"invalid", status.Error(codes.InvalidArgument, "order_id is required"), http.StatusBadRequest, "VALIDATION_FAILED"},
		{"unavailable", status.Error(codes.Unavailable, "down"), http.StatusServiceUnavailable, "DEPENDENCY_FAILURE"},
		{"internal", status.Error(codes.Internal, "boom"), http.StatusInternalServerError, "INTERNAL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := send(ordersRouter(&OrdersClientMock{err: tt.err}), http.MethodGet, "/api/v1/orders/o-1", "")
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.code, errorCode(t, rec))
		})
	}
}

func TestGetOrder_Success(t *testing.T) {
	mock := &OrdersClientMock{order: &pb.Order{ID: "o-1", Status: "pending_inventory"}}
	rec := send(ordersRouter(mock), http.MethodGet, "/api/v1/orders/o-1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var got pb.Order
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "pending_inventory", got.Status)
}

// --- CancelOrder tests ---

func TestCancelOrder(t *testing.T) {
	mock := &OrdersClientMock{order: &pb.Order{ID: "o-1", Status: "confirmed"}}
	rec := send(ordersRouter(mock), http.MethodPost, "/api/v1/orders/o-1/cancel", `{"reason":"changed my mind"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "o-1", mock.lastCancel.OrderID)
	assert.Equal(t, "changed my mind", mock.lastCancel.Reason)

	rec = send(ordersRouter(mock), http.MethodPost, "/api/v1/orders/o-1/cancel", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = send(ordersRouter(mock), http.MethodPost, "/api/v1/orders/o-1/cancel", `{"bogus":1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	mock.err = status.Error(codes.FailedPrecondition, "illegal transition")
	rec = send(ordersRouter(mock), http.MethodPost, "/api/v1/orders/o-1/cancel", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

package http

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/acharyaPawan/ecommerce-platform-sub001/pkg/httpapi"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestUpstreams_NestedRouterSeesFullPath(t *testing.T) {
	carts := chi.NewRouter()
	carts.Get("/api/v1/carts/{cartID}", func(w http.ResponseWriter, r *http.Request) {
		httpapi.JSON(w, http.StatusOK, map[string]string{"id": chi.URLParam(r, "cartID")})
	})

	r := httpapi.NewRouter(zap.NewNop(), 0)
	Upstreams{Carts: carts}.Mount(r)

	rec := send(r, http.MethodGet, "/api/v1/carts/c-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":"c-1"}`, rec.Body.String())

	assert.Equal(t, http.StatusNotFound, send(r, http.MethodGet, "/api/v1/payments/o-1", "").Code)
}

func TestProxy_ForwardsAndReportsOutage(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httpapi.JSON(w, http.StatusOK, map[string]string{"path": r.URL.Path})
	}))
	target, err := url.Parse(backend.URL)
	require.NoError(t, err)

	r := httpapi.NewRouter(zap.NewNop(), 0)
	Upstreams{Payments: Proxy(target, zap.NewNop())}.Mount(r)

	rec := send(r, http.MethodGet, "/api/v1/payments/o-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"path":"/api/v1/payments/o-1"}`, rec.Body.String())

	backend.Close()
	rec = send(r, http.MethodGet, "/api/v1/payments/o-1", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "UPSTREAM_UNAVAILABLE", errorCode(t, rec))
}

package http

import (
	"context"
	"net/http"
	"net/http/httputil"
	"net/url"

	"github.com/acharyaPawan/ecommerce-platform-sub001/pkg/httpapi"
	"github.com/acharyaPawan/ecommerce-platform-sub001/pkg/logger"
	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

// Upstreams serve the resource APIs the gateway fronts. Each is either a
// reverse proxy or, in a single process, the service router itself.
type Upstreams struct {
	Carts     http.Handler
	Payments  http.Handler
	Shipments http.Handler
}

// Proxy forwards requests to target unchanged.
func Proxy(target *url.URL, l *zap.Logger) http.Handler {
	p := httputil.NewSingleHostReverseProxy(target)
	p.Transport = otelhttp.NewTransport(http.DefaultTransport)
	p.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		logger.Warn(r.Context(), l, "upstream unavailable",
			zap.String("upstream", target.Host), zap.String("path", r.URL.Path), zap.Error(err))
		httpapi.Error(w, http.StatusBadGateway, "UPSTREAM_UNAVAILABLE", "upstream unavailable", true)
	}
	return p
}

// Mount routes each resource prefix to its upstream.
func (u Upstreams) Mount(r chi.Router) {
	for prefix, h := range map[string]http.Handler{
		"/api/v1/carts":     u.Carts,
		"/api/v1/payments":  u.Payments,
		"/api/v1/shipments": u.Shipments,
	} {
		if h == nil {
			continue
		}
		h = detach(h)
		r.Handle(prefix, h)
		r.Handle(prefix+"/*", h)
	}
}

// detach drops the gateway's route context so a nested chi router matches
// the full request path again.
func detach(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, nil)))
	})
}

package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_IsShared(t *testing.T) {
	assert.Same(t, Registry(), Registry())
}

func TestHandler_ExposesSagaCounters(t *testing.T) {
	OutboxPublished.WithLabelValues("orders.events").Inc()
	EventsConsumed.WithLabelValues("orders.order_placed.v1", OutcomeApplied).Inc()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, `saga_outbox_published_total{topic="orders.events"}`)
	assert.Contains(t, body, `saga_consumer_events_total{event_type="orders.order_placed.v1",outcome="applied"}`)
	assert.Contains(t, body, "go_goroutines")
}

func TestCounters_Accumulate(t *testing.T) {
	before := testutil.ToFloat64(ReservationsExpired)
	ReservationsExpired.Inc()
	ReservationsExpired.Inc()
	assert.Equal(t, before+2, testutil.ToFloat64(ReservationsExpired))
}

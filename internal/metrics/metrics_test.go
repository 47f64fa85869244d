package metrics_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/georgemunganga/prepick-backend/internal/metrics"
)

func TestMiddleware_CountsByRoutePattern(t *testing.T) {
	m := metrics.New()
	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/orders/{id}", func(w http.ResponseWriter, r *http.Request) {})

	for _, id := range []string{"a", "b"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/orders/"+id, nil))
	}

	got := testutil.ToFloat64(m.RequestTotal.WithLabelValues(http.MethodGet, "/orders/{id}", "200"))
	assert.Equal(t, 2.0, got)
	assert.Zero(t, testutil.ToFloat64(m.RequestTotal.WithLabelValues(http.MethodGet, "/orders/{id}", "0")))
}

func TestMiddleware_KeepsWrittenStatus(t *testing.T) {
	m := metrics.New()
	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/shops/{id}", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNotFound) })

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/shops/x", nil))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestTotal.WithLabelValues(http.MethodGet, "/shops/{id}", "404")))
}

func TestHandler_ExposesDomainCounters(t *testing.T) {
	m := metrics.New()
	m.OrdersPlaced.Add(3)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "prepick_checkout_orders_placed_total 3")
}

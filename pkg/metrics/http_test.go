package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestHTTPMetricsObserveRequest(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewHTTPMetrics(reg)

	m.ObserveRequest("POST", "/api/v1/orders/", 201, 20*time.Millisecond)
	m.ObserveRequest("POST", "/api/v1/orders/", 201, 30*time.Millisecond)
	m.ObserveRequest("GET", "", 404, time.Millisecond)
	m.IncPanic()

	require.Equal(t, 2.0, testutil.ToFloat64(m.requests.WithLabelValues("POST", "/api/v1/orders/", "201")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("GET", "unknown", "404")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.panics))
	count, err := testutil.GatherAndCount(reg, "tradelink_http_request_duration_seconds")
	require.NoError(t, err)
	require.Equal(t, 2, count)
}

func TestHTTPMetricsNilSafe(t *testing.T) {
	var m *HTTPMetrics
	require.Nil(t, NewHTTPMetrics(nil))
	m.ObserveRequest("GET", "/", 200, time.Millisecond)
	m.IncPanic()
}

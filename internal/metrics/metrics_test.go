package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	m := NewMetrics()

	m.RecordLookup(LookupFound)
	m.RecordLookup(LookupFound)
	m.RecordLookup(LookupNotFound)
	m.RecordCache(true)
	m.RecordCache(false)
	m.RecordValidationFailure("title")
	m.RecordWrite("create")
	m.RecordMessage(MessageDeadLettered)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.lookups.WithLabelValues(LookupFound)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.lookups.WithLabelValues(LookupNotFound)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cacheLookups.WithLabelValues("hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cacheLookups.WithLabelValues("miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.validationFailures.WithLabelValues("title")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.writes.WithLabelValues("create")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.messages.WithLabelValues(MessageDeadLettered)))
}

func TestMetrics_ConnectionState(t *testing.T) {
	m := NewMetrics()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.connectionState.WithLabelValues("empty")))

	m.ConnectionState("connecting")
	m.ConnectionState("ready")
	assert.Equal(t, 0.0, testutil.ToFloat64(m.connectionState.WithLabelValues("empty")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.connectionState.WithLabelValues("connecting")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.connectionState.WithLabelValues("ready")))

	m.ConnectAttempt(false, 2*time.Second)
	m.ConnectAttempt(true, 100*time.Millisecond)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.connectAttempts.WithLabelValues("failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.connectAttempts.WithLabelValues("success")))
}

func TestMetrics_Health(t *testing.T) {
	m := NewMetrics()
	m.SetHealth("mongodb", true)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.health.WithLabelValues("mongodb")))
	m.SetHealth("mongodb", false)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.health.WithLabelValues("mongodb")))
}

func TestMetrics_Handler(t *testing.T) {
	m := NewMetrics()
	m.RecordHTTPRequest("/api/events/:slug", http.MethodGet, http.StatusOK, 15*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `events_http_requests_total{method="GET",route="/api/events/:slug",status="200"} 1`)
	assert.Contains(t, body, "events_db_connection_state")
	assert.Contains(t, body, "go_goroutines")
}

func TestNewMetrics_Independent(t *testing.T) {
	a := NewMetrics()
	b := NewMetrics()
	a.RecordLookup(LookupError)
	assert.Equal(t, 0.0, testutil.ToFloat64(b.lookups.WithLabelValues(LookupError)))
}

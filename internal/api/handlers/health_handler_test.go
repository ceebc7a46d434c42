package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"example.com/backstage/services/events/internal/database"
	"example.com/backstage/services/events/internal/metrics"
)

type fakeProbe struct {
	state   database.State
	err     error
	acquire int
}

func (f *fakeProbe) State() database.State {
	return f.state
}

func (f *fakeProbe) Acquire(ctx context.Context) (*database.Connection, error) {
	f.acquire++
	if f.err != nil {
		return nil, f.err
	}
	f.state = database.StateReady
	return &database.Connection{}, nil
}

func serveHealth(h *HealthHandler, path string) *httptest.ResponseRecorder {
	router := gin.New()
	h.RegisterRoutes(router, true)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealth_Ready(t *testing.T) {
	probe := &fakeProbe{state: database.StateReady}
	rec := serveHealth(NewHealthHandler(probe, metrics.NewMetrics()), "/health")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","database":"ready"}`, rec.Body.String())
	assert.Equal(t, 0, probe.acquire)
}

func TestHealth_ConnectsWhenEmpty(t *testing.T) {
	probe := &fakeProbe{state: database.StateEmpty}
	rec := serveHealth(NewHealthHandler(probe, metrics.NewMetrics()), "/health")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, probe.acquire)
}

func TestHealth_Unavailable(t *testing.T) {
	probe := &fakeProbe{state: database.StateEmpty, err: errors.New("server selection timeout")}
	rec := serveHealth(NewHealthHandler(probe, metrics.NewMetrics()), "/health")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"status":"unavailable","code":"SERVICE_UNAVAILABLE","database":"empty"}`, rec.Body.String())
}

func TestMetricsRoute(t *testing.T) {
	m := metrics.NewMetrics()
	rec := serveHealth(NewHealthHandler(&fakeProbe{state: database.StateReady}, m), "/metrics")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "events_db_connection_state")
}

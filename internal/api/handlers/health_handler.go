package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"example.com/backstage/services/events/internal/database"
	"example.com/backstage/services/events/internal/metrics"
)

const probeTimeout = 3 * time.Second

// ConnectionProbe exposes the shared connection state
type ConnectionProbe interface {
	State() database.State
	Acquire(ctx context.Context) (*database.Connection, error)
}

// HealthHandler handles health and metrics requests
type HealthHandler struct {
	db      ConnectionProbe
	metrics *metrics.Metrics
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(db ConnectionProbe, metrics *metrics.Metrics) *HealthHandler {
	return &HealthHandler{
		db:      db,
		metrics: metrics,
	}
}

// HandleGetHealthCheck reports the database connection state. When the
// connection is not ready a bounded acquire is attempted first.
func (h *HealthHandler) HandleGetHealthCheck(c *gin.Context) {
	if h.db.State() != database.StateReady {
		ctx, cancel := context.WithTimeout(c.Request.Context(), probeTimeout)
		defer cancel()

		if _, err := h.db.Acquire(ctx); err != nil {
			h.metrics.SetHealth("mongodb", false)
			c.JSON(ErrServiceUnavailable.StatusCode, gin.H{
				"status":   "unavailable",
				"code":     ErrServiceUnavailable.Code,
				"database": h.db.State().String(),
			})
			return
		}
	}

	h.metrics.SetHealth("mongodb", true)
	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"database": h.db.State().String(),
	})
}

// RegisterRoutes registers the handler's routes
func (h *HealthHandler) RegisterRoutes(router gin.IRouter, exposeMetrics bool) {
	router.GET("/health", h.HandleGetHealthCheck)
	if exposeMetrics {
		router.GET("/metrics", gin.WrapH(h.metrics.Handler()))
	}
}

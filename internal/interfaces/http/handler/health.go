package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Pinger reports whether the warehouse database is reachable.
type Pinger interface {
	Ping() error
}

// HealthHandler answers liveness and readiness probes.
type HealthHandler struct {
	BaseHandler
	db Pinger
}

// NewHealthHandler creates the handler. db may be nil when the server runs
// without a database (serving static exports only).
func NewHealthHandler(db Pinger) *HealthHandler {
	return &HealthHandler{db: db}
}

// Health handles GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	if h.db != nil {
		if err := h.db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "database": "unreachable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

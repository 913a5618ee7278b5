package health

import (
	"maps"
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"
)

// Checker reports whether a dependency can serve traffic.
type Checker func() error

// Handler manages health check endpoints
type Handler struct {
	checks map[string]Checker
}

// NewHandler creates a new health check handler.
// Each named check must pass for the service to report ready.
func NewHandler(checks map[string]Checker) *Handler {
	return &Handler{checks: checks}
}

// Register mounts the probe endpoints on r.
func (h *Handler) Register(r gin.IRoutes) {
	r.GET("/health", h.Health)
	r.GET("/ready", h.Ready)
}

// Health is the liveness probe endpoint
// GET /health
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

// Ready is the readiness probe endpoint
// GET /ready
func (h *Handler) Ready(c *gin.Context) {
	for _, name := range slices.Sorted(maps.Keys(h.checks)) {
		check := h.checks[name]
		if check == nil {
			continue
		}
		if err := check(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "not ready",
				"check":  name,
				"error":  err.Error(),
			})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
	})
}

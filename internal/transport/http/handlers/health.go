package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// HealthChecker reports whether a dependency is reachable.
type HealthChecker func(ctx context.Context) error

// HealthHandler exposes liveness and readiness information.
type HealthHandler struct {
	startedAt     time.Time
	checkDB       HealthChecker
	checkRedis    HealthChecker
	smsConfigured bool
}

// NewHealthHandler builds a new health handler instance.
func NewHealthHandler(checkDB, checkRedis HealthChecker, smsConfigured bool) *HealthHandler {
	return &HealthHandler{
		startedAt:     time.Now().UTC(),
		checkDB:       checkDB,
		checkRedis:    checkRedis,
		smsConfigured: smsConfigured,
	}
}

// RegisterRoutes binds the health surface.
func (h *HealthHandler) RegisterRoutes(r gin.IRouter) {
	r.GET("/health", h.status)
	r.GET("/health/ready", h.ready)
	r.GET("/health/live", h.live)
}

func (h *HealthHandler) status(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	checks := gin.H{}
	healthy := true

	if h.checkDB != nil {
		if err := h.checkDB(ctx); err != nil {
			checks["database"] = "unreachable"
			healthy = false
		} else {
			checks["database"] = "ok"
		}
	}
	if h.checkRedis != nil {
		if err := h.checkRedis(ctx); err != nil {
			checks["redis"] = "unreachable"
			healthy = false
		} else {
			checks["redis"] = "ok"
		}
	}
	if h.smsConfigured {
		checks["sms"] = "configured"
	} else {
		checks["sms"] = "not_configured"
		healthy = false
	}

	status := "healthy"
	code := http.StatusOK
	if !healthy {
		// Degraded, not down: the process keeps serving what it can.
		status = "degraded"
	}

	c.JSON(code, gin.H{
		"status":    status,
		"startedAt": h.startedAt,
		"checks":    checks,
	})
}

func (h *HealthHandler) ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if h.checkDB != nil {
		if err := h.checkDB(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready"})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

func (h *HealthHandler) live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "alive"})
}

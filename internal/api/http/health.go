package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Pinger is anything whose reachability the health check reports.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Service   string    `json:"service"`
	Version   string    `json:"version"`
	Local     string    `json:"local"`
	Remote    string    `json:"remote"`
}

type HealthHandler struct {
	serviceName string
	version     string
	local       Pinger
	remote      Pinger
}

// NewHealthHandler reports on the device store and, when configured, the
// remote store. A nil remote is reported as "disabled".
func NewHealthHandler(serviceName, version string, local, remote Pinger) *HealthHandler {
	return &HealthHandler{
		serviceName: serviceName,
		version:     version,
		local:       local,
		remote:      remote,
	}
}

func (h *HealthHandler) HealthCheck(c *gin.Context) {
	local := pingStatus(c.Request.Context(), h.local)
	remote := pingStatus(c.Request.Context(), h.remote)

	// The remote store being down only degrades sync; the device store
	// being down means nothing can be saved.
	status, code := "healthy", http.StatusOK
	switch {
	case local == "down":
		status, code = "unhealthy", http.StatusServiceUnavailable
	case remote == "down":
		status = "degraded"
	}

	c.JSON(code, HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC(),
		Service:   h.serviceName,
		Version:   h.version,
		Local:     local,
		Remote:    remote,
	})
}

func pingStatus(ctx context.Context, p Pinger) string {
	if p == nil {
		return "disabled"
	}
	pingCtx, cancel := context.WithTimeout(ctx, 1*time.Second)
	defer cancel()

	if err := p.Ping(pingCtx); err != nil {
		return "down"
	}
	return "up"
}

func (h *HealthHandler) RegisterRoutes(r gin.IRouter) {
	r.GET("/health", h.HealthCheck)
	r.GET("/healthz", h.HealthCheck)
}

package v1

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sourcegraph/conc"
	"github.com/vidinfra/docvault/internal/logger"
)

const healthTimeout = 3 * time.Second

// Pinger is anything the health check can probe
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthCheck names one dependency probed by /health
type HealthCheck struct {
	Name   string
	Pinger Pinger
}

type HealthHandler struct {
	checks []HealthCheck
	logger *logger.Logger
}

func NewHealthHandler(logger *logger.Logger, checks ...HealthCheck) *HealthHandler {
	return &HealthHandler{
		checks: checks,
		logger: logger,
	}
}

type HealthResponse struct {
	Status     string            `json:"status"`
	Components map[string]string `json:"components,omitempty"`
}

// @Summary Health check
// @Description Probes every backing service in parallel
// @Tags Health
// @Produce json
// @Success 200 {object} HealthResponse
// @Failure 503 {object} HealthResponse
// @Router /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()

	results := make([]error, len(h.checks))
	var wg conc.WaitGroup
	for i, check := range h.checks {
		wg.Go(func() {
			results[i] = check.Pinger.Ping(ctx)
		})
	}
	wg.Wait()

	resp := HealthResponse{Status: "ok", Components: make(map[string]string, len(h.checks))}
	for i, check := range h.checks {
		if results[i] != nil {
			h.logger.Warnw("health check failed", "component", check.Name, "error", results[i])
			resp.Status = "degraded"
			resp.Components[check.Name] = "down"
			continue
		}
		resp.Components[check.Name] = "up"
	}

	if resp.Status != "ok" {
		c.JSON(http.StatusServiceUnavailable, resp)
		return
	}
	c.JSON(http.StatusOK, resp)
}

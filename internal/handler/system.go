package handler

import (
	"net/http"

	"github.com/LutfiBK25/qulron/internal/proxy"
	"github.com/LutfiBK25/qulron/internal/ratelimit"
	"github.com/gin-gonic/gin"
)

// Operational view over the gateway's proxies and admission state.
type SystemHandler struct {
	proxies   map[string]*proxy.Proxy
	admission *ratelimit.Admission
}

func NewSystemHandler(proxies map[string]*proxy.Proxy, admission *ratelimit.Admission) *SystemHandler {
	return &SystemHandler{
		proxies:   proxies,
		admission: admission,
	}
}

func (h *SystemHandler) Status(c *gin.Context) {
	backends := make(map[string]gin.H, len(h.proxies))

	for path, p := range h.proxies {
		backends[path] = gin.H{
			"circuit_breaker": p.CircuitBreakerState().String(),
			"healthy_targets": p.GetHealthyTargets(),
			"all_targets":     p.GetAllTargets(),
			"overall_health":  p.OverallHealth().String(),
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"backends":           backends,
		"rate_limit_buckets": h.admission.Buckets(),
	})
}

func (h *SystemHandler) ResetCircuitBreaker(c *gin.Context) {
	path := "/" + c.Param("service")

	p, exists := h.proxies[path]
	if !exists {
		c.JSON(http.StatusNotFound, gin.H{"error": "Unknown service: " + path})
		return
	}

	p.ResetCircuitBreaker()

	c.JSON(http.StatusOK, gin.H{"message": "Circuit breaker reset", "service": path})
}

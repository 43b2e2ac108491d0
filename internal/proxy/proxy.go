package proxy

import (
	"errors"
	"log"
	"net/http"
	"net/http/httputil"
	"net/url"
	"time"

	"github.com/LutfiBK25/qulron/internal/circuitbreaker"
	"github.com/LutfiBK25/qulron/internal/healthcheck"
	"github.com/LutfiBK25/qulron/internal/loadbalancer"
	"github.com/LutfiBK25/qulron/internal/middleware"
	"github.com/gin-gonic/gin"
)

// Forwards admitted requests to a backend service (engine or admin backend),
// balancing across its targets behind a circuit breaker, and carries the
// verified identity downstream as headers.
type Proxy struct {
	targets  []string
	proxies  map[string]*httputil.ReverseProxy
	breaker  *circuitbreaker.CircuitBreaker
	balancer loadbalancer.Strategy
	checker  *healthcheck.Checker
}

type Config struct {
	Targets  []string
	Strategy string
	Breaker  circuitbreaker.Config
	Health   healthcheck.Config
}

func New(cfg Config) (*Proxy, error) {
	if len(cfg.Targets) == 0 {
		return nil, errors.New("at least one target is required")
	}

	balancer, err := loadbalancer.NewStrategy(cfg.Strategy)
	if err != nil {
		return nil, err
	}

	proxies := make(map[string]*httputil.ReverseProxy, len(cfg.Targets))
	for _, targetURL := range cfg.Targets {
		target, err := url.Parse(targetURL)
		if err != nil {
			return nil, err
		}
		proxies[targetURL] = httputil.NewSingleHostReverseProxy(target)
	}

	if cfg.Health.Targets == nil {
		cfg.Health.Targets = cfg.Targets
	}
	checker := healthcheck.NewChecker(cfg.Health)
	checker.Start()

	if cfg.Breaker.Timeout == 0 {
		cfg.Breaker.Timeout = 30 * time.Second
	}

	p := &Proxy{
		targets:  cfg.Targets,
		proxies:  proxies,
		breaker:  circuitbreaker.New(cfg.Breaker),
		balancer: balancer,
		checker:  checker,
	}

	log.Printf("Proxy initialized with %d targets, strategy: %s", len(cfg.Targets), balancer.Name())

	return p, nil
}

// Handle forwards the request to a healthy backend target.
func (p *Proxy) Handle(c *gin.Context) {
	healthyTargets := p.checker.GetHealthyTargets()
	if len(healthyTargets) == 0 {
		log.Println("No healthy targets available")
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "No healthy backend servers available",
		})
		return
	}

	selected := p.balancer.Next(healthyTargets)
	targetProxy, exists := p.proxies[selected]
	if !exists {
		log.Printf("Proxy not found for target: %s", selected)
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "Failed to select backend server",
		})
		return
	}

	if lc, ok := p.balancer.(*loadbalancer.LeastConnections); ok {
		lc.Increment(selected)
		defer lc.Decrement(selected)
	}

	target, _ := url.Parse(selected)

	err := p.breaker.Call(func() error {
		recorder := &responseRecorder{
			ResponseWriter: c.Writer,
			statusCode:     http.StatusOK,
		}

		req := c.Request
		req.URL.Host = target.Host
		req.URL.Scheme = target.Scheme
		req.Host = target.Host

		// The backend trusts these headers; the gateway is the only way in
		req.Header.Del("X-Auth-Phone")
		req.Header.Del("X-Auth-Role")
		if phone := c.GetString(middleware.ContextPhone); phone != "" {
			req.Header.Set("X-Auth-Phone", phone)
			req.Header.Set("X-Auth-Role", c.GetString(middleware.ContextRole))
		}

		if clientIP := c.ClientIP(); clientIP != "" {
			req.Header.Set("X-Forwarded-For", clientIP)
		}

		c.Header("X-Backend-Server", selected)

		c.Writer = recorder
		targetProxy.ServeHTTP(c.Writer, req)

		if recorder.statusCode >= 500 {
			return errors.New("backend error")
		}

		return nil
	})

	if err == circuitbreaker.ErrCircuitOpen {
		log.Printf("Circuit breaker open for %s", selected)
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "Service temporarily unavailable",
		})
	}
}

func (p *Proxy) CircuitBreakerState() circuitbreaker.State {
	return p.breaker.State()
}

func (p *Proxy) ResetCircuitBreaker() {
	p.breaker.Reset()
}

func (p *Proxy) GetHealthyTargets() []string {
	return p.checker.GetHealthyTargets()
}

func (p *Proxy) GetAllTargets() []string {
	return p.checker.GetAllTargets()
}

func (p *Proxy) OverallHealth() healthcheck.HealthStatus {
	return p.checker.OverallHealth()
}

// Stop halts the health checker.
func (p *Proxy) Stop() {
	p.checker.Stop()
}

// Captures the response status code for breaker accounting.
type responseRecorder struct {
	gin.ResponseWriter
	statusCode int
}

func (r *responseRecorder) WriteHeader(statusCode int) {
	r.statusCode = statusCode
	r.ResponseWriter.WriteHeader(statusCode)
}

package healthcheck

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"
)

type Status struct {
	Target       string
	IsHealthy    bool
	LastCheck    time.Time
	FailureCount int
}

// Overall health of a backend service.
type HealthStatus int

const (
	Healthy HealthStatus = iota
	Degraded
	Unhealthy
)

func (h HealthStatus) String() string {
	switch h {
	case Healthy:
		return "healthy"
	case Degraded:
		return "degraded"
	case Unhealthy:
		return "unhealthy"
	default:
		return "unknown"
	}
}

type Config struct {
	Targets     []string
	Endpoint    string        // Health check path (default: "/health")
	Interval    time.Duration // How often to check (default: 10s)
	Timeout     time.Duration // Per-request timeout (default: 5s)
	MaxFailures int           // Consecutive failures before unhealthy (default: 3)
}

// Probes backend targets on a fixed interval and tracks which are usable.
type Checker struct {
	mu      sync.RWMutex
	status  map[string]*Status
	healthy []string

	targets     []string
	endpoint    string
	interval    time.Duration
	timeout     time.Duration
	maxFailures int
	client      *http.Client

	stop chan struct{}
	done chan struct{}
}

func NewChecker(cfg Config) *Checker {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "/health"
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 10 * time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 3
	}

	c := &Checker{
		status:      make(map[string]*Status, len(cfg.Targets)),
		healthy:     append([]string(nil), cfg.Targets...),
		targets:     cfg.Targets,
		endpoint:    cfg.Endpoint,
		interval:    cfg.Interval,
		timeout:     cfg.Timeout,
		maxFailures: cfg.MaxFailures,
		client:      &http.Client{Timeout: cfg.Timeout},
	}

	// Targets start healthy until a probe says otherwise
	for _, target := range cfg.Targets {
		c.status[target] = &Status{
			Target:    target,
			IsHealthy: true,
			LastCheck: time.Now(),
		}
	}

	return c
}

// Start runs an immediate probe and then checks on a fixed interval.
func (c *Checker) Start() {
	if c.stop != nil {
		return
	}

	c.stop = make(chan struct{})
	c.done = make(chan struct{})

	log.Printf("Starting health checks for %d targets (interval: %v)", len(c.targets), c.interval)

	c.checkAll()

	go func() {
		defer close(c.done)

		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				c.checkAll()
			case <-c.stop:
				return
			}
		}
	}()
}

func (c *Checker) Stop() {
	if c.stop == nil {
		return
	}

	close(c.stop)
	<-c.done
	c.stop = nil
}

func (c *Checker) checkAll() {
	var wg sync.WaitGroup

	for _, target := range c.targets {
		wg.Add(1)
		go func(t string) {
			defer wg.Done()
			c.record(t, c.probe(t))
		}(target)
	}

	wg.Wait()
	c.rebuildHealthy()
}

func (c *Checker) probe(target string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target+c.endpoint, nil)
	if err != nil {
		return false
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode >= 200 && resp.StatusCode < 400
}

func (c *Checker) record(target string, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	status := c.status[target]
	status.LastCheck = time.Now()

	if ok {
		if !status.IsHealthy {
			log.Printf("Target %s recovered", target)
		}
		status.IsHealthy = true
		status.FailureCount = 0
		return
	}

	status.FailureCount++
	if status.IsHealthy && status.FailureCount >= c.maxFailures {
		status.IsHealthy = false
		log.Printf("Target %s marked unhealthy after %d failures", target, status.FailureCount)
	}
}

func (c *Checker) rebuildHealthy() {
	c.mu.Lock()
	defer c.mu.Unlock()

	healthy := make([]string, 0, len(c.targets))
	for _, target := range c.targets {
		if c.status[target].IsHealthy {
			healthy = append(healthy, target)
		}
	}

	c.healthy = healthy
}

func (c *Checker) GetHealthyTargets() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return append([]string(nil), c.healthy...)
}

func (c *Checker) GetAllTargets() []string {
	return append([]string(nil), c.targets...)
}

func (c *Checker) OverallHealth() HealthStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()

	switch {
	case len(c.healthy) == len(c.targets):
		return Healthy
	case len(c.healthy) > 0:
		return Degraded
	default:
		return Unhealthy
	}
}

package server

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/LutfiBK25/qulron/internal/auth"
	"github.com/LutfiBK25/qulron/internal/config"
	"github.com/LutfiBK25/qulron/internal/handler"
	"github.com/LutfiBK25/qulron/internal/middleware"
	"github.com/LutfiBK25/qulron/internal/proxy"
	"github.com/LutfiBK25/qulron/internal/ratelimit"
	"github.com/LutfiBK25/qulron/internal/repository"
	"github.com/LutfiBK25/qulron/internal/service"
	"github.com/LutfiBK25/qulron/internal/storage"
	"github.com/gin-gonic/gin"
)

var startTime = time.Now()

type Server struct {
	router   *gin.Engine
	config   *config.Config
	redis    *storage.RedisClient
	postgres *storage.Postgres

	admission *ratelimit.Admission
	revoked   *auth.RevocationStore
	tokens    *auth.TokenService
	logWorker *middleware.RequestLogWorker
	proxies   map[string]*proxy.Proxy

	httpServer *http.Server
}

func New(cfg *config.Config, redis *storage.RedisClient, postgres *storage.Postgres, sender service.CodeSender) (*Server, error) {
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	signingKey, err := cfg.SigningKey()
	if err != nil {
		return nil, err
	}

	// Admission control
	admission := ratelimit.NewAdmission(ratelimit.AdmissionConfig{
		GlobalRequestsPerMinute:   cfg.RateLimit.GlobalRequestsPerMinute,
		IPRequestsPerMinute:       cfg.RateLimit.IPRequestsPerMinute,
		StrictRequestsPerInterval: cfg.RateLimit.StrictRequestsPerInterval,
		StrictInterval:            time.Duration(cfg.RateLimit.StrictIntervalMinutes) * time.Minute,
		BucketMaxAge:              time.Duration(cfg.RateLimit.BucketMaxAgeMinutes) * time.Minute,
		BucketCleanupInterval:     time.Duration(cfg.RateLimit.BucketCleanupMinutes) * time.Minute,
	})
	admission.Start()

	// Session trust
	revoked := auth.NewRevocationStore(
		10000,
		time.Duration(cfg.JWT.BlacklistTokenLifetimeMinutes)*time.Minute,
		time.Duration(cfg.JWT.BlacklistCleanupMinutes)*time.Minute,
	)
	revoked.Start()

	tokens := auth.NewTokenService(
		signingKey,
		time.Duration(cfg.JWT.ExpirationMinutes)*time.Minute,
		time.Duration(cfg.JWT.RefreshExpirationMinutes)*time.Minute,
		revoked,
	)

	// Auth services
	loadRepo := repository.NewLoadRepository(postgres)
	userRepo := repository.NewUserRepository(postgres)
	attempts := ratelimit.NewAttemptLimiter(
		redis,
		cfg.Auth.MaxLoginAttempts,
		time.Duration(cfg.Auth.AttemptWindowMinutes)*time.Minute,
	)
	driverAuth := service.NewDriverAuthService(
		loadRepo, redis, tokens, attempts, sender,
		time.Duration(cfg.Auth.CodeTTLMinutes)*time.Minute,
	)
	userService := service.NewUserService(userRepo, tokens)

	// Request logging and analytics
	logRepo := repository.NewRequestLogRepository(postgres)
	logWorker := middleware.NewRequestLogWorker(logRepo, 1000)
	analytics := service.NewAnalyticsService(logRepo)

	s := &Server{
		router:    gin.New(),
		config:    cfg,
		redis:     redis,
		postgres:  postgres,
		admission: admission,
		revoked:   revoked,
		tokens:    tokens,
		logWorker: logWorker,
		proxies:   make(map[string]*proxy.Proxy),
	}

	s.initializeProxies()
	s.setupMiddleware()
	s.setupRoutes(
		handler.NewAuthHandler(driverAuth, userService, tokens),
		handler.NewAnalyticsHandler(analytics),
		handler.NewSystemHandler(s.proxies, admission),
	)

	return s, nil
}

func (s *Server) initializeProxies() {
	for _, svc := range s.config.Services {
		if len(svc.Targets) == 0 {
			log.Printf("Warning: Service %s has no targets configured", svc.Path)
			continue
		}

		p, err := proxy.New(proxy.Config{
			Targets:  svc.Targets,
			Strategy: svc.Strategy,
		})
		if err != nil {
			log.Printf("Failed to create proxy for %s: %v", svc.Path, err)
			continue
		}

		s.proxies[svc.Path] = p
		log.Printf("Initialized proxy for %s -> %v", svc.Path, svc.Targets)
	}
}

// Admission runs before everything except the plumbing middleware; the
// authentication gate runs right after it, so every downstream handler sees
// a verified identity or none at all.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.Recovery())
	s.router.Use(middleware.RequestID())
	s.router.Use(middleware.Logger())
	s.router.Use(middleware.CORS())
	s.router.Use(middleware.RateLimit(s.admission))
	s.router.Use(middleware.Authenticate(s.tokens))
	s.router.Use(middleware.RequestLogger(s.logWorker))
}

func (s *Server) setupRoutes(authHandler *handler.AuthHandler, analyticsHandler *handler.AnalyticsHandler, systemHandler *handler.SystemHandler) {
	s.router.GET("/health", s.healthCheck)

	driver := s.router.Group("/driver")
	{
		driver.POST("/auth/request-code", authHandler.RequestCode)
		driver.POST("/auth/verify-code", authHandler.VerifyCode)
		driver.POST("/auth/refresh", authHandler.Refresh)
		driver.POST("/logout", authHandler.Logout)
	}

	admin := s.router.Group("/admin")
	{
		admin.POST("/auth/login", authHandler.AdminLogin)

		protected := admin.Group("", middleware.RequireRole(auth.RoleAdmin))
		{
			protected.GET("/status", s.adminStatus)
			protected.GET("/analytics/summary", analyticsHandler.GetSummary)
			protected.GET("/system/status", systemHandler.Status)
			protected.POST("/system/circuit-breaker/:service/reset", systemHandler.ResetCircuitBreaker)
		}
	}

	s.setupProxyRoutes()
}

func (s *Server) setupProxyRoutes() {
	for path, proxyInstance := range s.proxies {
		p := proxyInstance

		s.router.Any(path+"/*proxyPath", p.Handle)
		s.router.Any(path, p.Handle)

		log.Printf("Registered proxy route: %s", path)
	}
}

func (s *Server) healthCheck(c *gin.Context) {
	redisHealthy := true
	if err := s.redis.Ping(c.Request.Context()); err != nil {
		redisHealthy = false
		log.Printf("Redis health check failed: %v", err)
	}

	dbHealthy := true
	if err := s.postgres.Ping(c.Request.Context()); err != nil {
		dbHealthy = false
		log.Printf("Database health check failed: %v", err)
	}

	status := "healthy"
	statusCode := http.StatusOK
	if !redisHealthy || !dbHealthy {
		status = "degraded"
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, gin.H{
		"status":    status,
		"service":   "qulron-gateway",
		"timestamp": time.Now().Unix(),
		"checks": gin.H{
			"redis":    redisHealthy,
			"database": dbHealthy,
		},
	})
}

func (s *Server) adminStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"gateway":            "running",
		"services":           len(s.config.Services),
		"rate_limit_buckets": s.admission.Buckets(),
		"blacklist_size":     s.revoked.Len(),
		"uptime":             time.Since(startTime).Seconds(),
		"timestamp":          time.Now().Unix(),
	})
}

func (s *Server) Run(addr string) error {
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  15 * time.Second,
	}

	log.Printf("Starting Qulron gateway on %s", addr)
	log.Printf("Environment: %s", s.config.Server.Environment)

	return s.httpServer.ListenAndServe()
}

// Shutdown stops accepting requests, then tears down the background tasks:
// sweepers, health checkers and the request-log worker.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	if s.httpServer != nil {
		err = s.httpServer.Shutdown(ctx)
	}

	for _, p := range s.proxies {
		p.Stop()
	}

	s.admission.Stop()
	s.revoked.Stop()
	s.logWorker.Stop()

	return err
}

func (s *Server) GetRouter() *gin.Engine {
	return s.router
}

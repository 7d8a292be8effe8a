package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"walrusweb/pkg/api"
	"walrusweb/pkg/auth"
	"walrusweb/pkg/clients/shortio"
	"walrusweb/pkg/config"
	"walrusweb/pkg/metrics"
	"walrusweb/pkg/middleware"
	"walrusweb/pkg/ratelimit"
	"walrusweb/pkg/services"
	"walrusweb/pkg/share"
	"walrusweb/pkg/store"
)

const redisPingTimeout = 5 * time.Second

// Server wires the storage, services and HTTP router together
type Server struct {
	cfg         *config.Config
	logger      *slog.Logger
	registry    *prometheus.Registry
	store       *store.Store
	redisClient *redis.Client
	router      *gin.Engine
}

// New builds a server from the configuration. The caller must call Close
// when it is done with the server.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	s := &Server{
		cfg:      cfg,
		logger:   logger,
		registry: prometheus.NewRegistry(),
	}
	s.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	var err error
	s.store, err = store.Open(store.Config{
		Driver:       cfg.StorageDriver,
		DataDir:      cfg.DataDir,
		DSN:          cfg.DatabaseDSN,
		Logger:       logger,
		PromRegistry: s.registry,
	})
	if err != nil {
		return nil, err
	}
	logger.Info(
		fmt.Sprintf("opened %s storage", cfg.StorageDriver),
		"component", "server",
	)

	appMetrics := metrics.New(s.registry)

	guard := auth.NewGuard(cfg.OperatorSecret)
	if !guard.Configured() {
		logger.Warn(
			"no operator secret configured, operator routes are disabled",
			"component", "server",
		)
	}

	serviceOpts := []services.QuoteServiceOptionFunc{
		services.WithLogger(logger),
		services.WithMetrics(appMetrics),
	}
	if cfg.ShortLinksEnabled() {
		shortener := shortio.NewClient(
			cfg.ShortIOAPIKey,
			cfg.ShortIODomain,
			shortio.WithLogger(logger),
		)
		serviceOpts = append(serviceOpts, services.WithShortener(shortener, cfg.PublicBaseURL))
	}
	quoteService := services.NewQuoteService(
		s.store.Contacts(),
		s.store.Pitches(),
		guard,
		serviceOpts...,
	)

	router, err := s.newRouter(quoteService, appMetrics)
	if err != nil {
		_ = s.Close()
		return nil, err
	}
	s.router = router
	return s, nil
}

func (s *Server) newRouter(quoteService services.QuoteService, appMetrics *metrics.Metrics) (*gin.Engine, error) {
	// Set Gin to release mode in production
	if s.cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger(s.logger))
	if err := router.SetTrustedProxies(s.cfg.TrustedProxies); err != nil {
		return nil, fmt.Errorf("invalid trusted proxies: %w", err)
	}

	if !s.cfg.IsProduction() {
		corsHandler, err := middleware.CORS(s.cfg.AllowedOrigins)
		if err != nil {
			return nil, err
		}
		router.Use(corsHandler)
	}

	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})))

	handlers := api.NewHandlers(
		quoteService,
		api.WithLogger(s.logger),
		api.WithProduction(s.cfg.IsProduction()),
		api.WithRenderer(share.NewRenderer(s.cfg.DistDir)),
	)
	handlers.RegisterRoutes(
		router,
		middleware.RateLimit(s.newLimiter(), s.logger, appMetrics),
	)
	return router, nil
}

// newLimiter uses redis when an address is configured and reachable, and
// process memory otherwise
func (s *Server) newLimiter() ratelimit.Limiter {
	if s.cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr: s.cfg.RedisAddr,
		})
		ctx, cancel := context.WithTimeout(context.Background(), redisPingTimeout)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			s.logger.Error(
				fmt.Sprintf("failed to connect to redis at %s, using in-memory rate limiting: %s", s.cfg.RedisAddr, err),
				"component", "server",
			)
			_ = client.Close()
		} else {
			s.redisClient = client
			s.logger.Info(
				fmt.Sprintf("using redis rate limiting at %s", s.cfg.RedisAddr),
				"component", "server",
			)
			return ratelimit.NewRedisLimiter(client, s.cfg.RateLimitMax, s.cfg.RateLimitWindow)
		}
	}
	return ratelimit.NewMemoryLimiter(s.cfg.RateLimitMax, s.cfg.RateLimitWindow)
}

// Handler returns the HTTP handler serving every route
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run listens on the configured address and serves until ctx is done
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.ListenAddr())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.ListenAddr(), err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is done, then shuts down
// gracefully within the configured shutdown timeout
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	httpServer := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 60 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	s.logger.Info(
		fmt.Sprintf("server listening on %s", ln.Addr()),
		"component", "server",
	)

	errChan := make(chan error, 1)
	go func() {
		errChan <- httpServer.Serve(ln)
	}()

	select {
	case err := <-errChan:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server", "component", "server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	//nolint:contextcheck
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	<-errChan
	s.logger.Info("shutdown complete", "component", "server")
	return nil
}

// Close releases the storage and redis connections
func (s *Server) Close() error {
	var errs []error
	if s.redisClient != nil {
		if err := s.redisClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close redis client: %w", err))
		}
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close storage: %w", err))
		}
	}
	return errors.Join(errs...)
}

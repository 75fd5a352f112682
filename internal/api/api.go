// Package api provides the HTTP REST API server.
package api

import (
	"context"
	"crypto/tls"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/good-yellow-bee/staffplan/internal/api/auth"
	"github.com/good-yellow-bee/staffplan/internal/api/health"
	"github.com/good-yellow-bee/staffplan/internal/api/middleware"
	"github.com/good-yellow-bee/staffplan/internal/staffing"
	"github.com/good-yellow-bee/staffplan/internal/storage"
)

// Config contains HTTP API server configuration.
type Config struct {
	Address              string
	JWTSecret            []byte
	HTTPTLSEnabled       bool   // Enable HTTPS for API server
	HTTPTLSCertFile      string // HTTPS certificate file
	HTTPTLSKeyFile       string // HTTPS private key file
	AccessTokenTTL       time.Duration
	RefreshTokenTTL      time.Duration
	RateLimitPerIP       int // login/refresh requests per minute per client IP
	RateLimitPerUser     int // requests per minute per authenticated user
	LockoutThreshold     int
	LockoutDuration      time.Duration
	QueryTimeout         time.Duration // Timeout for storage-backed API calls
	UserCacheSize        int
	UserCacheTTL         time.Duration
	TokenCleanupInterval time.Duration
	Verbose              bool
}

// SetDefaults applies default values for missing configuration.
func (c *Config) SetDefaults() {
	if c.Address == "" {
		c.Address = ":8080"
	}
	if c.AccessTokenTTL == 0 {
		c.AccessTokenTTL = 15 * time.Minute
	}
	if c.RefreshTokenTTL == 0 {
		c.RefreshTokenTTL = 7 * 24 * time.Hour // 7 days
	}
	if c.RateLimitPerIP == 0 {
		c.RateLimitPerIP = 10
	}
	if c.RateLimitPerUser == 0 {
		c.RateLimitPerUser = 100
	}
	if c.LockoutThreshold == 0 {
		c.LockoutThreshold = 5
	}
	if c.LockoutDuration == 0 {
		c.LockoutDuration = 15 * time.Minute
	}
	if c.QueryTimeout == 0 {
		c.QueryTimeout = 10 * time.Second
	}
	if c.UserCacheSize == 0 {
		c.UserCacheSize = 1024
	}
	if c.UserCacheTTL == 0 {
		c.UserCacheTTL = 30 * time.Second
	}
	if c.TokenCleanupInterval == 0 {
		c.TokenCleanupInterval = time.Hour
	}
}

// Server is the HTTP API server.
type Server struct {
	config        *Config
	storage       storage.Storage
	service       *staffing.Service
	server        *http.Server
	healthHandler *health.Handler

	jwt         *auth.JWTService
	tokens      *auth.TokenService
	lockout     *auth.LockoutTracker
	userCache   *auth.UserCache
	ipLimiter   *middleware.RateLimiter
	userLimiter *middleware.RateLimiter
}

// New creates a new API server around the staffing service and its store.
func New(cfg *Config, service *staffing.Service) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if service == nil {
		return nil, fmt.Errorf("staffing service is required")
	}
	if len(cfg.JWTSecret) == 0 {
		return nil, fmt.Errorf("JWT secret is required")
	}

	cfg.SetDefaults()

	store := service.Store()
	s := &Server{
		config:        cfg,
		storage:       store,
		service:       service,
		healthHandler: health.NewHandler(),
		jwt:           auth.NewJWTService(cfg.JWTSecret, cfg.AccessTokenTTL),
		tokens:        auth.NewTokenService(store, cfg.RefreshTokenTTL),
		lockout:       auth.NewLockoutTracker(cfg.LockoutThreshold, cfg.LockoutDuration),
		userCache:     auth.NewUserCache(store.Users(), cfg.UserCacheSize, cfg.UserCacheTTL),
		ipLimiter:     middleware.NewRateLimiter(cfg.RateLimitPerIP),
		userLimiter:   middleware.NewRateLimiter(cfg.RateLimitPerUser),
	}

	s.server = &http.Server{
		Addr:         cfg.Address,
		Handler:      s.setupRouter(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	if cfg.HTTPTLSEnabled {
		s.server.TLSConfig = &tls.Config{
			MinVersion: tls.VersionTLS13,
		}
	}

	return s, nil
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Run starts the HTTP server and blocks until context is canceled.
func (s *Server) Run(ctx context.Context) error {
	errChan := make(chan error, 1)

	go func() {
		log.Printf("HTTP API listening on %s", s.config.Address)
		var err error
		if s.config.HTTPTLSEnabled {
			err = s.server.ListenAndServeTLS(s.config.HTTPTLSCertFile, s.config.HTTPTLSKeyFile)
		} else {
			err = s.server.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	go s.cleanupTokens(ctx)

	select {
	case <-ctx.Done():
		log.Printf("shutting down HTTP API server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.Shutdown(shutdownCtx)
	case err := <-errChan:
		s.stopBackground()
		return err
	}
}

// Shutdown stops accepting requests and releases background workers.
func (s *Server) Shutdown(ctx context.Context) error {
	s.stopBackground()
	return s.server.Shutdown(ctx)
}

func (s *Server) stopBackground() {
	s.lockout.Stop()
	s.ipLimiter.Stop()
	s.userLimiter.Stop()
}

// cleanupTokens periodically deletes expired refresh tokens.
func (s *Server) cleanupTokens(ctx context.Context) {
	ticker := time.NewTicker(s.config.TokenCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.tokens.CleanupExpiredTokens(ctx)
			if err != nil {
				log.Printf("token cleanup error: %v", err)
				continue
			}
			if n > 0 && s.config.Verbose {
				log.Printf("token cleanup: removed %d expired tokens", n)
			}
		}
	}
}

// Address returns the configured listen address.
func (s *Server) Address() string {
	return s.config.Address
}

// RegisterHealthChecker adds a health checker to the server.
func (s *Server) RegisterHealthChecker(c health.Checker) {
	if s.healthHandler != nil {
		s.healthHandler.RegisterChecker(c)
	}
}

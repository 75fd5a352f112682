package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/good-yellow-bee/staffplan/internal/api"
	"github.com/good-yellow-bee/staffplan/internal/api/health"
	"github.com/good-yellow-bee/staffplan/internal/metrics"
	"github.com/good-yellow-bee/staffplan/internal/staffing"
	"github.com/good-yellow-bee/staffplan/internal/storage"
	"github.com/good-yellow-bee/staffplan/pkg/config"
)

var (
	configFile  string
	httpAddr    string
	metricsAddr string
	dbDriver    string
	dbPath      string
	verbose     bool
)

var rootCmd = &cobra.Command{
	Use:   "staffplan-server",
	Short: "staffplan server - engineer staffing and capacity API",
	Long: `staffplan server exposes the REST API for projects, engineers and
assignments, enforcing each engineer's maximum capacity on every write.`,
	RunE: runServer,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(config.VersionString(config.ServerBinary))
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file path (optional)")
	rootCmd.PersistentFlags().StringVarP(&httpAddr, "address", "a", "", "HTTP listen address")
	rootCmd.PersistentFlags().StringVar(&metricsAddr, "metrics-address", "", "metrics listen address")
	rootCmd.PersistentFlags().StringVar(&dbDriver, "db-driver", "", "database driver (sqlite or postgres)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite database path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServer(cmd *cobra.Command, args []string) error {
	var cfg *Config

	// Load configuration from file if provided
	if configFile != "" {
		var err error
		cfg, err = LoadConfig(configFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
	} else {
		cfg = DefaultConfig()
	}

	// Override with CLI flags
	if httpAddr != "" {
		cfg.Server.HTTPAddress = httpAddr
	}
	if metricsAddr != "" {
		cfg.Metrics.Address = metricsAddr
	}
	if dbDriver != "" {
		cfg.Database.Driver = dbDriver
	}
	if dbPath != "" {
		cfg.Database.Path = dbPath
	}
	cfg.Verbose = verbose

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}

	store, err := openStorage(cfg.Database)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Migrate(); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	// Create a bootstrap manager on first run
	if err := store.EnsureManagerUser(); err != nil {
		return fmt.Errorf("ensure manager user: %w", err)
	}

	var rdb *redis.Client
	if cfg.Capacity.Lock == "redis" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
	}

	service, err := newService(cfg, store, rdb)
	if err != nil {
		return err
	}

	apiServer, err := api.New(&api.Config{
		Address:          cfg.Server.HTTPAddress,
		JWTSecret:        []byte(cfg.Auth.JWTSecret),
		HTTPTLSEnabled:   cfg.Server.TLS.Enabled,
		HTTPTLSCertFile:  cfg.Server.TLS.CertFile,
		HTTPTLSKeyFile:   cfg.Server.TLS.KeyFile,
		AccessTokenTTL:   mustDuration(cfg.Auth.AccessTokenTTL),
		RefreshTokenTTL:  mustDuration(cfg.Auth.RefreshTokenTTL),
		RateLimitPerIP:   cfg.Auth.RateLimitPerIP,
		RateLimitPerUser: cfg.Auth.RateLimitPerUser,
		LockoutThreshold: cfg.Auth.LockoutThreshold,
		LockoutDuration:  mustDuration(cfg.Auth.LockoutDuration),
		QueryTimeout:     mustDuration(cfg.Server.QueryTimeout),
		UserCacheSize:    cfg.Auth.UserCacheSize,
		UserCacheTTL:     mustDuration(cfg.Auth.UserCacheTTL),
		Verbose:          cfg.Verbose,
	}, service)
	if err != nil {
		return fmt.Errorf("create API server: %w", err)
	}
	apiServer.RegisterHealthChecker(health.NewDatabaseChecker(cfg.Database.Driver, store))
	if rdb != nil {
		apiServer.RegisterHealthChecker(health.NewRedisChecker(rdb))
	}

	metrics.SetBuildInfo(config.Version, config.Commit, config.BuildTime)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Printf("starting %s", config.VersionString(config.ServerBinary))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return apiServer.Run(gctx)
	})

	if cfg.Metrics.Enabled {
		metricsServer := metrics.NewServer(cfg.Metrics.Address)
		g.Go(metricsServer.Start)
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return metricsServer.Shutdown(shutdownCtx)
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("run server: %w", err)
	}

	log.Printf("server stopped")
	return nil
}

func openStorage(cfg DatabaseConfig) (storage.Storage, error) {
	var store storage.Storage
	switch cfg.Driver {
	case "postgres":
		store = storage.NewPostgresStorage(cfg.DSN)
	default:
		// Auto-create data directory
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0750); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
		store = storage.NewSQLiteStorage(cfg.Path)
	}

	if err := store.Open(); err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	log.Printf("database opened (%s)", cfg.Driver)
	return store, nil
}

func newService(cfg *Config, store storage.Storage, rdb *redis.Client) (*staffing.Service, error) {
	policy, err := staffing.ParseCreatePolicy(cfg.Capacity.CreateCheck)
	if err != nil {
		return nil, err
	}
	mode, err := staffing.ParseAvailabilityMode(cfg.Capacity.Availability)
	if err != nil {
		return nil, err
	}

	var locker staffing.Locker
	switch cfg.Capacity.Lock {
	case "redis":
		locker = staffing.NewRedisLocker(rdb, mustDuration(cfg.Capacity.LockTTL))
	case "none":
		locker = staffing.NoopLocker{}
	default:
		locker = staffing.NewKeyedMutex()
	}
	log.Printf("capacity engine: create check %s, availability %s, lock %s", policy, mode, locker.Backend())

	return staffing.NewService(store,
		staffing.WithLocker(locker),
		staffing.WithCreatePolicy(policy),
		staffing.WithAvailabilityMode(mode),
	), nil
}

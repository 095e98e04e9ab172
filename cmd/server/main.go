package main

import (
	"context"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/lychee-technology/filterdetect"
	"github.com/lychee-technology/filterdetect/factory"
	"go.uber.org/zap"
)

// cacheSource is the part of factory.CacheProvider the handlers use.
type cacheSource interface {
	Current() filterdetect.GraphicFilterCache
	Reload(ctx context.Context) (filterdetect.GraphicFilterCache, error)
}

// Server represents the HTTP server exposing type detection and the filter cache
type Server struct {
	detector       filterdetect.TypeDetector
	caches         cacheSource
	maxPackageSize int64
	mux            *http.ServeMux
}

// NewServer creates a new Server instance
func NewServer(detector filterdetect.TypeDetector, caches cacheSource, maxPackageSize int64) *Server {
	return &Server{
		detector:       detector,
		caches:         caches,
		maxPackageSize: maxPackageSize,
		mux:            http.NewServeMux(),
	}
}

// RegisterRoutes registers all API routes
func (s *Server) RegisterRoutes() {
	s.mux.HandleFunc("/api/v1/detect", s.handleDetect)
	s.mux.HandleFunc("/api/v1/filters/reload", s.handleReload)
	s.mux.HandleFunc("/api/v1/filters/", s.handleFilters)
}

// Start starts the HTTP server on the given port
func (s *Server) Start(port string) error {
	zap.S().Infow("starting server", "port", port)
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return srv.ListenAndServe()
}

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)
	sugar := logger.Sugar()

	cfg := loadConfigFromEnv()
	if err := cfg.Validate(); err != nil {
		sugar.Fatalf("invalid configuration: %v", err)
	}

	ctx := context.Background()

	var provider filterdetect.ConfigurationProvider
	if cfg.Cache.UseConfiguration {
		p, closeFn, err := factory.NewConfigurationProvider(ctx, cfg)
		if err != nil {
			sugar.Fatalf("failed to create configuration provider: %v", err)
		}
		defer closeFn()
		provider = p
	}

	caches, err := factory.NewCacheProvider(ctx, cfg, provider)
	if err != nil {
		sugar.Fatalf("failed to build filter cache: %v", err)
	}

	server := NewServer(factory.NewTypeDetector(cfg), caches, cfg.Detection.MaxPackageSize)
	server.RegisterRoutes()

	port := getEnv("PORT", "8080")
	if err := server.Start(port); err != nil {
		sugar.Fatalf("server error: %v", err)
	}
}

// loadConfigFromEnv overlays environment variables on the default configuration
func loadConfigFromEnv() *filterdetect.Config {
	cfg := filterdetect.DefaultConfig()

	cfg.Detection.Embedded = getEnvBool("FILTERDETECT_EMBEDDED", cfg.Detection.Embedded)
	cfg.Detection.MaxPackageSize = int64(getEnvInt("MAX_PACKAGE_SIZE", int(cfg.Detection.MaxPackageSize)))

	cfg.Cache.UseConfiguration = getEnvBool("USE_CONFIGURATION", cfg.Cache.UseConfiguration)
	cfg.Cache.Fuzzing = getEnvBool(filterdetect.FuzzingEnvVar, cfg.Cache.Fuzzing)

	cfg.Store.Kind = filterdetect.StoreKind(getEnv("STORE_KIND", string(cfg.Store.Kind)))
	cfg.Store.JSONDirectory = getEnv("STORE_JSON_DIR", cfg.Store.JSONDirectory)
	cfg.Store.HCLFile = getEnv("STORE_HCL_FILE", cfg.Store.HCLFile)

	cfg.Store.Postgres.Host = getEnv("DB_HOST", cfg.Store.Postgres.Host)
	cfg.Store.Postgres.Port = getEnvInt("DB_PORT", cfg.Store.Postgres.Port)
	cfg.Store.Postgres.Database = getEnv("DB_NAME", "filterdetect")
	cfg.Store.Postgres.Username = getEnv("DB_USER", "postgres")
	cfg.Store.Postgres.Password = getEnv("DB_PASSWORD", "")
	cfg.Store.Postgres.SSLMode = getEnv("DB_SSL_MODE", cfg.Store.Postgres.SSLMode)
	cfg.Store.Postgres.MaxConnections = getEnvInt("DB_MAX_CONNECTIONS", cfg.Store.Postgres.MaxConnections)
	cfg.Store.Postgres.Timeout = time.Duration(getEnvInt("DB_TIMEOUT_SECONDS", int(cfg.Store.Postgres.Timeout/time.Second))) * time.Second
	cfg.Store.Postgres.Table = getEnv("CONFIG_TABLE", cfg.Store.Postgres.Table)
	cfg.Store.Postgres.UseIAM = getEnvBool("DB_USE_IAM", false)
	cfg.Store.Postgres.Region = getEnv("AWS_REGION", "")

	cfg.Store.SQL.Driver = getEnv("SQL_DRIVER", cfg.Store.SQL.Driver)
	cfg.Store.SQL.DSN = getEnv("SQL_DSN", cfg.Store.SQL.DSN)
	cfg.Store.SQL.Table = getEnv("CONFIG_TABLE", cfg.Store.SQL.Table)

	cfg.Store.S3.Bucket = getEnv("S3_BUCKET", "")
	cfg.Store.S3.Prefix = getEnv("S3_PREFIX", "")
	cfg.Store.S3.Region = getEnv("AWS_REGION", "")
	cfg.Store.S3.Endpoint = getEnv("S3_ENDPOINT", "")
	cfg.Store.S3.AccessKey = getEnv("S3_ACCESS_KEY", "")
	cfg.Store.S3.SecretKey = getEnv("S3_SECRET_KEY", "")
	cfg.Store.S3.PathStyle = getEnvBool("S3_PATH_STYLE", false)

	cfg.Store.Breaker.Threshold = getEnvInt("STORE_BREAKER_THRESHOLD", cfg.Store.Breaker.Threshold)
	cfg.Store.Breaker.OpenDuration = time.Duration(getEnvInt("STORE_BREAKER_OPEN_SECONDS", int(cfg.Store.Breaker.OpenDuration/time.Second))) * time.Second

	return cfg
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

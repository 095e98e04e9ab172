package configstore

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lychee-technology/filterdetect"
)

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// ValidateTableName rejects names that cannot be interpolated into SQL as identifiers.
func ValidateTableName(table string) error {
	if !tableNamePattern.MatchString(table) {
		return fmt.Errorf("invalid table name %q", table)
	}
	return nil
}

// ValidatePostgresConfig performs basic sanity checks on Postgres-related settings.
func ValidatePostgresConfig(cfg filterdetect.PostgresConfig) error {
	if cfg.Host == "" {
		return fmt.Errorf("store.postgres.host is required")
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return fmt.Errorf("store.postgres.port must be a valid TCP port")
	}
	if cfg.MaxConnections <= 0 {
		return fmt.Errorf("store.postgres.maxConnections must be greater than 0")
	}
	if cfg.UseIAM && cfg.Region == "" {
		return fmt.Errorf("store.postgres.region is required when useIAM is set")
	}
	return ValidateTableName(cfg.Table)
}

// ValidateSQLConfig checks the database/sql store settings.
func ValidateSQLConfig(cfg filterdetect.SQLConfig) error {
	if cfg.Driver != DriverPostgres && cfg.Driver != DriverDuckDB {
		return fmt.Errorf("store.sql.driver must be %s or %s", DriverPostgres, DriverDuckDB)
	}
	if cfg.Driver == DriverPostgres && cfg.DSN == "" {
		return fmt.Errorf("store.sql.dsn is required for the postgres driver")
	}
	return ValidateTableName(cfg.Table)
}

// ValidateS3Config checks the S3 store settings.
func ValidateS3Config(cfg filterdetect.S3Config) error {
	if cfg.Bucket == "" {
		return fmt.Errorf("store.s3.bucket is required")
	}
	if cfg.AccessKey != "" && cfg.SecretKey == "" {
		return fmt.Errorf("s3 accessKey provided without secretKey")
	}
	if cfg.SecretKey != "" && cfg.AccessKey == "" {
		return fmt.Errorf("s3 secretKey provided without accessKey")
	}
	return nil
}

// PostgresDSN builds a connection string; password overrides cfg.Password when not empty.
func PostgresDSN(cfg filterdetect.PostgresConfig, password string) string {
	if password == "" {
		password = cfg.Password
	}
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.Username, password, cfg.Database, sslMode)
}

// PostgresHealthCheck attempts to connect and ping a Postgres instance using a DSN.
// timeout may be 0 to use a sensible default (5s).
func PostgresHealthCheck(ctx context.Context, dsn string, timeout time.Duration) error {
	if dsn == "" {
		return fmt.Errorf("empty dsn")
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return fmt.Errorf("parse postgres dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("postgres ping failed: %w", err)
	}
	return nil
}

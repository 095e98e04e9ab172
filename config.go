package filterdetect

import (
	"time"
)

// StoreKind selects the configuration store backing the filter cache.
type StoreKind string

const (
	StoreKindMemory   StoreKind = "memory"
	StoreKindJSON     StoreKind = "json"
	StoreKindHCL      StoreKind = "hcl"
	StoreKindPostgres StoreKind = "postgres"
	StoreKindSQL      StoreKind = "sql"
	StoreKindS3       StoreKind = "s3"
)

// Config consolidates detection, cache and store settings
type Config struct {
	Detection DetectionConfig `json:"detection"`
	Cache     CacheConfig     `json:"cache"`
	Store     StoreConfig     `json:"store"`
	Logging   LoggingConfig   `json:"logging"`
}

// DetectionConfig contains storage type detection settings
type DetectionConfig struct {
	// Embedded turns on the restricted display mode (draw templates are detected as drawings,
	// approved repairs are not saved as templates).
	Embedded       bool  `json:"embedded"`
	MaxPackageSize int64 `json:"maxPackageSize"`
}

// CacheConfig contains graphic filter cache settings
type CacheConfig struct {
	UseConfiguration bool `json:"useConfiguration"`
	Fuzzing          bool `json:"fuzzing"`
}

// StoreConfig selects and configures the configuration store
type StoreConfig struct {
	Kind          StoreKind      `json:"kind"`
	JSONDirectory string         `json:"jsonDirectory"`
	HCLFile       string         `json:"hclFile"`
	Postgres      PostgresConfig `json:"postgres"`
	SQL           SQLConfig      `json:"sql"`
	S3            S3Config       `json:"s3"`
	Breaker       BreakerConfig  `json:"breaker"`
}

// BreakerConfig guards the postgres, sql and s3 stores. Threshold 0 disables it.
type BreakerConfig struct {
	Threshold    int           `json:"threshold"`
	Window       time.Duration `json:"window"`
	OpenDuration time.Duration `json:"openDuration"`
}

// PostgresConfig contains connection settings for the pgx-backed store
type PostgresConfig struct {
	Host           string        `json:"host"`
	Port           int           `json:"port"`
	Database       string        `json:"database"`
	Username       string        `json:"username"`
	Password       string        `json:"password"`
	SSLMode        string        `json:"sslMode"`
	MaxConnections int           `json:"maxConnections"`
	Timeout        time.Duration `json:"timeout"`
	Table          string        `json:"table"`
	UseIAM         bool          `json:"useIAM"`
	Region         string        `json:"region"`
}

// SQLConfig contains settings for the database/sql-backed store
type SQLConfig struct {
	Driver string `json:"driver"` // postgres or duckdb
	DSN    string `json:"dsn"`
	Table  string `json:"table"`
}

// S3Config contains settings for the S3-backed store
type S3Config struct {
	Bucket    string `json:"bucket"`
	Prefix    string `json:"prefix"`
	Region    string `json:"region"`
	Endpoint  string `json:"endpoint"`
	AccessKey string `json:"accessKey"`
	SecretKey string `json:"secretKey"`
	PathStyle bool   `json:"pathStyle"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		Detection: DetectionConfig{
			Embedded:       false,
			MaxPackageSize: 256 * 1024 * 1024, // 256MB
		},
		Cache: CacheConfig{
			UseConfiguration: true,
			Fuzzing:          false,
		},
		Store: StoreConfig{
			Kind: StoreKindMemory,
			Postgres: PostgresConfig{
				Host:           "localhost",
				Port:           5432,
				SSLMode:        "disable",
				MaxConnections: 4,
				Timeout:        10 * time.Second,
				Table:          "filter_config",
			},
			SQL: SQLConfig{
				Driver: "duckdb",
				Table:  "filter_config",
			},
			Breaker: BreakerConfig{
				Threshold:    5,
				Window:       time.Minute,
				OpenDuration: 30 * time.Second,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Detection.MaxPackageSize < 0 {
		return &ConfigError{Field: "detection.maxPackageSize", Message: "must be greater than or equal to 0"}
	}

	if !c.Cache.UseConfiguration {
		return nil
	}

	if c.Store.Breaker.Threshold < 0 {
		return &ConfigError{Field: "store.breaker.threshold", Message: "must be greater than or equal to 0"}
	}
	if c.Store.Breaker.Threshold > 0 && (c.Store.Breaker.Window <= 0 || c.Store.Breaker.OpenDuration <= 0) {
		return &ConfigError{Field: "store.breaker.window", Message: "window and openDuration must be positive when threshold is set"}
	}

	switch c.Store.Kind {
	case StoreKindMemory:
	case StoreKindJSON:
		if c.Store.JSONDirectory == "" {
			return &ConfigError{Field: "store.jsonDirectory", Message: "is required for json store"}
		}
	case StoreKindHCL:
		if c.Store.HCLFile == "" {
			return &ConfigError{Field: "store.hclFile", Message: "is required for hcl store"}
		}
	case StoreKindPostgres:
		if c.Store.Postgres.Host == "" {
			return &ConfigError{Field: "store.postgres.host", Message: "is required for postgres store"}
		}
		if c.Store.Postgres.Port <= 0 || c.Store.Postgres.Port > 65535 {
			return &ConfigError{Field: "store.postgres.port", Message: "must be a valid TCP port"}
		}
		if c.Store.Postgres.Table == "" {
			return &ConfigError{Field: "store.postgres.table", Message: "is required for postgres store"}
		}
		if c.Store.Postgres.UseIAM && c.Store.Postgres.Region == "" {
			return &ConfigError{Field: "store.postgres.region", Message: "is required when useIAM is set"}
		}
	case StoreKindSQL:
		if c.Store.SQL.Driver != "postgres" && c.Store.SQL.Driver != "duckdb" {
			return &ConfigError{Field: "store.sql.driver", Message: "must be postgres or duckdb"}
		}
		if c.Store.SQL.Table == "" {
			return &ConfigError{Field: "store.sql.table", Message: "is required for sql store"}
		}
	case StoreKindS3:
		if c.Store.S3.Bucket == "" {
			return &ConfigError{Field: "store.s3.bucket", Message: "is required for s3 store"}
		}
		if (c.Store.S3.AccessKey == "") != (c.Store.S3.SecretKey == "") {
			return &ConfigError{Field: "store.s3.accessKey", Message: "accessKey and secretKey must be set together"}
		}
	default:
		return &ConfigError{Field: "store.kind", Message: "unknown store kind '" + string(c.Store.Kind) + "'"}
	}

	return nil
}

// ConfigError represents a configuration validation error
type ConfigError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ConfigError) Error() string {
	return "config validation error for field '" + e.Field + "': " + e.Message
}

package factory

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/dsql/auth"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lychee-technology/filterdetect"
	"github.com/lychee-technology/filterdetect/internal"
	"github.com/lychee-technology/filterdetect/internal/configstore"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// NewConfigurationProvider creates the configuration store selected by cfg.Store.Kind.
// The returned close function releases connections held by the store and is never nil.
//
// Usage:
//
//	cfg := filterdetect.DefaultConfig()
//	cfg.Store.Kind = filterdetect.StoreKindJSON
//	cfg.Store.JSONDirectory = "./config"
//	provider, closeFn, err := factory.NewConfigurationProvider(ctx, cfg)
//	if err != nil {
//	    // handle error
//	}
//	defer closeFn()
func NewConfigurationProvider(ctx context.Context, cfg *filterdetect.Config) (filterdetect.ConfigurationProvider, func(), error) {
	noop := func() {}
	if err := cfg.Validate(); err != nil {
		return nil, noop, err
	}

	store := cfg.Store
	switch store.Kind {
	case filterdetect.StoreKindMemory, "":
		nodes, err := internal.BuiltinConfigNodes()
		if err != nil {
			return nil, noop, err
		}
		return configstore.NewMemoryStore(nodes...), noop, nil

	case filterdetect.StoreKindJSON:
		return configstore.NewJSONStore(store.JSONDirectory), noop, nil

	case filterdetect.StoreKindHCL:
		return configstore.NewHCLStore(store.HCLFile), noop, nil

	case filterdetect.StoreKindPostgres:
		if err := configstore.ValidatePostgresConfig(store.Postgres); err != nil {
			return nil, noop, err
		}
		pool, err := NewPostgresPool(ctx, store.Postgres)
		if err != nil {
			return nil, noop, err
		}
		return guard("postgres", configstore.NewPostgresStore(pool, store.Postgres.Table), store.Breaker), pool.Close, nil

	case filterdetect.StoreKindSQL:
		if err := configstore.ValidateSQLConfig(store.SQL); err != nil {
			return nil, noop, err
		}
		s, err := configstore.OpenSQLStore(ctx, store.SQL.Driver, store.SQL.DSN, store.SQL.Table)
		if err != nil {
			return nil, noop, err
		}
		return guard("sql", s, store.Breaker), func() { _ = s.Close() }, nil

	case filterdetect.StoreKindS3:
		if err := configstore.ValidateS3Config(store.S3); err != nil {
			return nil, noop, err
		}
		client, err := NewS3Client(ctx, store.S3)
		if err != nil {
			return nil, noop, err
		}
		return guard("s3", configstore.NewS3Store(client, store.S3.Bucket, store.S3.Prefix), store.Breaker), noop, nil

	default:
		return nil, noop, filterdetect.NewFilterError(filterdetect.ErrorTypeConfiguration, filterdetect.ErrCodeUnknownStoreKind,
			"unknown store kind").WithDetail("kind", string(store.Kind))
	}
}

// guard wraps a remote store in a circuit breaker unless cfg disables it.
func guard(name string, store filterdetect.ConfigurationProvider, cfg filterdetect.BreakerConfig) filterdetect.ConfigurationProvider {
	if cfg.Threshold <= 0 {
		return store
	}
	return configstore.NewGuardedStore(name, store,
		configstore.NewCircuitBreaker(cfg.Threshold, cfg.Window, cfg.OpenDuration))
}

// NewPostgresPool opens a pgx pool. With UseIAM the password is a generated DSQL auth token.
func NewPostgresPool(ctx context.Context, cfg filterdetect.PostgresConfig) (*pgxpool.Pool, error) {
	password, err := postgresPassword(ctx, cfg)
	if err != nil {
		return nil, err
	}
	poolCfg, err := pgxpool.ParseConfig(configstore.PostgresDSN(cfg, password))
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}
	if cfg.MaxConnections > 0 {
		poolCfg.MaxConns = int32(cfg.MaxConnections)
	}

	connectCtx := ctx
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		connectCtx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}
	pool, err := pgxpool.NewWithConfig(connectCtx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping failed: %w", err)
	}
	return pool, nil
}

func postgresPassword(ctx context.Context, cfg filterdetect.PostgresConfig) (string, error) {
	if !cfg.UseIAM {
		return cfg.Password, nil
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(cfg.Region))
	if err != nil {
		return "", fmt.Errorf("load aws config: %w", err)
	}
	token, err := authTokenGenerator(ctx, fmt.Sprintf("%s:%d", cfg.Host, cfg.Port), cfg.Region, awsCfg.Credentials)
	if err != nil {
		zap.S().Warnw("failed to generate IAM auth token; falling back to configured password", "err", err)
		return cfg.Password, nil
	}
	zap.S().Infow("generated IAM auth token for Postgres connection (dsql)", "host", cfg.Host)
	return token, nil
}

// authTokenGenerator is replaced in tests.
var authTokenGenerator = iamAuthToken

func iamAuthToken(ctx context.Context, endpoint, region string, creds aws.CredentialsProvider) (string, error) {
	return auth.GenerateDbConnectAuthToken(ctx, endpoint, region, creds)
}

// NewS3Client builds an S3 client, using static credentials and a custom endpoint when configured.
func NewS3Client(ctx context.Context, cfg filterdetect.S3Config) (*s3.Client, error) {
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.AccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}
	if cfg.Endpoint != "" {
		loadOpts = append(loadOpts, config.WithBaseEndpoint(cfg.Endpoint))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.PathStyle
	}), nil
}

// NewTypeDetector creates the package type detector. Embedded mode is pinned per detector from cfg
// or the process-wide flag; the flag itself is left untouched.
func NewTypeDetector(cfg *filterdetect.Config) filterdetect.TypeDetector {
	return internal.NewStorageFilterDetect(
		internal.WithMaxPackageSize(cfg.Detection.MaxPackageSize),
		internal.WithEmbedded(cfg.Detection.Embedded || filterdetect.IsEmbedded()),
	)
}

// NewFilterConfigCache builds a graphic filter cache. provider may be nil when
// cfg.Cache.UseConfiguration is false.
func NewFilterConfigCache(ctx context.Context, cfg *filterdetect.Config, provider filterdetect.ConfigurationProvider) (filterdetect.GraphicFilterCache, error) {
	cache, err := internal.NewFilterConfigCache(ctx, cfg.Cache.UseConfiguration, provider,
		internal.WithFuzzing(cfg.Cache.Fuzzing))
	if err != nil {
		return nil, err
	}
	return cache, nil
}

// CacheProvider holds the current filter cache. Reload builds a new cache and swaps it in;
// concurrent reloads share one build.
type CacheProvider struct {
	cfg      *filterdetect.Config
	provider filterdetect.ConfigurationProvider
	current  atomic.Pointer[cacheHolder]
	group    singleflight.Group
}

type cacheHolder struct {
	cache filterdetect.GraphicFilterCache
}

// NewCacheProvider builds the initial cache.
func NewCacheProvider(ctx context.Context, cfg *filterdetect.Config, provider filterdetect.ConfigurationProvider) (*CacheProvider, error) {
	p := &CacheProvider{cfg: cfg, provider: provider}
	if _, err := p.build(ctx); err != nil {
		return nil, err
	}
	return p, nil
}

// Current returns the active cache.
func (p *CacheProvider) Current() filterdetect.GraphicFilterCache {
	return p.current.Load().cache
}

// Reload rebuilds the cache from the provider. On error the active cache is kept. The shared build
// does not inherit the cancellation of whichever caller started it.
func (p *CacheProvider) Reload(ctx context.Context) (filterdetect.GraphicFilterCache, error) {
	v, err, shared := p.group.Do("reload", func() (any, error) {
		return p.build(context.WithoutCancel(ctx))
	})
	internal.EmitCacheReload(ctx, err == nil)
	if err != nil {
		zap.S().Warnw("filter cache reload failed", "error", err)
		return nil, err
	}
	zap.S().Infow("filter cache reloaded", "shared", shared)
	return v.(filterdetect.GraphicFilterCache), nil
}

func (p *CacheProvider) build(ctx context.Context) (filterdetect.GraphicFilterCache, error) {
	cache, err := NewFilterConfigCache(ctx, p.cfg, p.provider)
	if err != nil {
		return nil, err
	}
	p.current.Store(&cacheHolder{cache: cache})
	return cache, nil
}

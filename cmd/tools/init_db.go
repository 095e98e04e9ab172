package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/lychee-technology/filterdetect"
	"github.com/lychee-technology/filterdetect/factory"
	"github.com/lychee-technology/filterdetect/internal"
	"github.com/lychee-technology/filterdetect/internal/configstore"
	"go.uber.org/zap"
)

type initDBOptions struct {
	driver     string
	host       string
	port       int
	database   string
	user       string
	password   string
	sslMode    string
	useIAM     bool
	region     string
	dsn        string
	table      string
	source     string
	sourcePath string
}

func runInitDB(args []string) error {
	flags := flag.NewFlagSet("init-db", flag.ContinueOnError)
	flags.SetOutput(os.Stdout)
	flags.Usage = func() {
		fmt.Println("Usage: filterdetect-tools init-db [options]")
		fmt.Println("")
		fmt.Println("Options:")
		flags.PrintDefaults()
	}

	opts := initDBOptions{}
	flags.StringVar(&opts.driver, "driver", getenvDefault("SQL_DRIVER", "pgx"), "pgx (Postgres via pgx), postgres (lib/pq) or duckdb")
	flags.StringVar(&opts.host, "db-host", getenvDefault("DB_HOST", "localhost"), "database host")
	flags.IntVar(&opts.port, "db-port", getenvDefaultInt("DB_PORT", 5432), "database port")
	flags.StringVar(&opts.database, "db-name", getenvDefault("DB_NAME", "filterdetect"), "database name")
	flags.StringVar(&opts.user, "db-user", getenvDefault("DB_USER", "postgres"), "database user")
	flags.StringVar(&opts.password, "db-password", getenvDefault("DB_PASSWORD", "postgres"), "database password")
	flags.StringVar(&opts.sslMode, "db-ssl-mode", getenvDefault("DB_SSL_MODE", "disable"), "database sslmode")
	flags.BoolVar(&opts.useIAM, "db-use-iam", false, "authenticate with a generated DSQL IAM token")
	flags.StringVar(&opts.region, "region", getenvDefault("AWS_REGION", ""), "AWS region for IAM authentication")
	flags.StringVar(&opts.dsn, "dsn", getenvDefault("SQL_DSN", ""), "DSN for the postgres or duckdb drivers")
	flags.StringVar(&opts.table, "table", getenvDefault("CONFIG_TABLE", "filter_config"), "configuration table name")
	flags.StringVar(&opts.source, "source", "builtin", "seed source: builtin, json or hcl")
	flags.StringVar(&opts.sourcePath, "source-path", "", "JSON directory or HCL file for -source json|hcl")

	if err := flags.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}

	return initDatabase(context.Background(), opts)
}

func initDatabase(ctx context.Context, opts initDBOptions) error {
	if err := configstore.ValidateTableName(opts.table); err != nil {
		return err
	}
	nodes, err := loadSeedNodes(ctx, opts.source, opts.sourcePath)
	if err != nil {
		return err
	}

	switch opts.driver {
	case "pgx":
		pgCfg := filterdetect.PostgresConfig{
			Host:           opts.host,
			Port:           opts.port,
			Database:       opts.database,
			Username:       opts.user,
			Password:       opts.password,
			SSLMode:        opts.sslMode,
			MaxConnections: 1,
			Table:          opts.table,
			UseIAM:         opts.useIAM,
			Region:         opts.region,
		}
		if err := configstore.ValidatePostgresConfig(pgCfg); err != nil {
			return err
		}
		pool, err := factory.NewPostgresPool(ctx, pgCfg)
		if err != nil {
			return err
		}
		defer pool.Close()
		if err := configstore.SeedPostgres(ctx, pool, opts.table, nodes); err != nil {
			return err
		}
	case configstore.DriverPostgres, configstore.DriverDuckDB:
		store, err := configstore.OpenSQLStore(ctx, opts.driver, opts.dsn, opts.table)
		if err != nil {
			return err
		}
		defer store.Close()
		if err := store.Seed(ctx, nodes); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unsupported driver %q", opts.driver)
	}

	for _, n := range nodes {
		zap.S().Infow("seeded configuration node", "table", opts.table, "node_path", n.Path, "entry_count", n.Len())
	}
	return nil
}

// loadSeedNodes reads the types and filters nodes from the chosen source.
func loadSeedNodes(ctx context.Context, source, path string) ([]*configstore.Node, error) {
	switch source {
	case "builtin":
		return internal.BuiltinConfigNodes()
	case "json":
		if path == "" {
			return nil, fmt.Errorf("-source-path is required for json")
		}
		store := configstore.NewJSONStore(path)
		var nodes []*configstore.Node
		for _, p := range []string{filterdetect.TypesNodePath, filterdetect.FiltersNodePath} {
			n, err := store.OpenNode(ctx, p)
			if err != nil {
				return nil, err
			}
			nodes = append(nodes, n.(*configstore.Node))
		}
		return nodes, nil
	case "hcl":
		if path == "" {
			return nil, fmt.Errorf("-source-path is required for hcl")
		}
		src, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		return configstore.DecodeHCL(path, src)
	default:
		return nil, fmt.Errorf("unknown source %q", source)
	}
}

func getenvDefault(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getenvDefaultInt(key string, def int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return def
}

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/lychee-technology/filterdetect"
	"github.com/lychee-technology/filterdetect/internal/configstore"
	"go.uber.org/zap"
)

func runCheckDB(args []string) error {
	flags := flag.NewFlagSet("check-db", flag.ContinueOnError)
	flags.SetOutput(os.Stdout)
	flags.Usage = func() {
		fmt.Println("Usage: filterdetect-tools check-db [options]")
		fmt.Println("")
		fmt.Println("Options:")
		flags.PrintDefaults()
	}

	cfg := filterdetect.DefaultConfig().Store.Postgres
	var timeoutSeconds int
	flags.StringVar(&cfg.Host, "db-host", getenvDefault("DB_HOST", cfg.Host), "database host")
	flags.IntVar(&cfg.Port, "db-port", getenvDefaultInt("DB_PORT", cfg.Port), "database port")
	flags.StringVar(&cfg.Database, "db-name", getenvDefault("DB_NAME", "filterdetect"), "database name")
	flags.StringVar(&cfg.Username, "db-user", getenvDefault("DB_USER", "postgres"), "database user")
	flags.StringVar(&cfg.Password, "db-password", getenvDefault("DB_PASSWORD", "postgres"), "database password")
	flags.StringVar(&cfg.SSLMode, "db-ssl-mode", getenvDefault("DB_SSL_MODE", cfg.SSLMode), "database sslmode")
	flags.StringVar(&cfg.Table, "table", getenvDefault("CONFIG_TABLE", cfg.Table), "configuration table name")
	flags.IntVar(&timeoutSeconds, "timeout", 5, "connect timeout in seconds")

	if err := flags.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}

	return checkDatabase(context.Background(), cfg, time.Duration(timeoutSeconds)*time.Second)
}

func checkDatabase(ctx context.Context, cfg filterdetect.PostgresConfig, timeout time.Duration) error {
	if err := configstore.ValidatePostgresConfig(cfg); err != nil {
		return err
	}
	if err := configstore.PostgresHealthCheck(ctx, configstore.PostgresDSN(cfg, ""), timeout); err != nil {
		return err
	}
	zap.S().Infow("postgres reachable", "host", cfg.Host, "port", cfg.Port, "database", cfg.Database)
	return nil
}

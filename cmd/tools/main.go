package main

import (
	"fmt"
	"os"

	"go.uber.org/zap"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(fmt.Errorf("failed to set up logger: %w", err))
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)
	sugar := logger.Sugar()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "detect":
		if err := runDetect(os.Args[2:]); err != nil {
			sugar.Fatalf("detect: %v", err)
		}
	case "list-filters":
		if err := runListFilters(os.Args[2:]); err != nil {
			sugar.Fatalf("list-filters: %v", err)
		}
	case "init-db":
		if err := runInitDB(os.Args[2:]); err != nil {
			sugar.Fatalf("init-db: %v", err)
		}
	case "check-db":
		if err := runCheckDB(os.Args[2:]); err != nil {
			sugar.Fatalf("check-db: %v", err)
		}
	case "export-config":
		if err := runExportConfig(os.Args[2:]); err != nil {
			sugar.Fatalf("export-config: %v", err)
		}
	default:
		sugar.Errorf("unknown command %q", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	logger := zap.S()
	logger.Info("Usage: filterdetect-tools <command> [options]")
	logger.Info("")
	logger.Info("Commands:")
	logger.Info("  detect          Detect the format identifier of a package file")
	logger.Info("  list-filters    Print the graphic import or export filter list")
	logger.Info("  init-db         Create the filter configuration table and seed it")
	logger.Info("  check-db        Check that the Postgres configuration database is reachable")
	logger.Info("  export-config   Write the built-in filter table as configuration documents")
}

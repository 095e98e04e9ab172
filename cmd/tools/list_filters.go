package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/lychee-technology/filterdetect"
	"github.com/lychee-technology/filterdetect/factory"
)

type listFiltersOptions struct {
	direction string
	builtin   bool
	storeKind string
	jsonDir   string
	hclFile   string
}

func runListFilters(args []string) error {
	flags := flag.NewFlagSet("list-filters", flag.ContinueOnError)
	flags.SetOutput(os.Stdout)
	flags.Usage = func() {
		fmt.Println("Usage: filterdetect-tools list-filters [options]")
		fmt.Println("")
		fmt.Println("Options:")
		flags.PrintDefaults()
	}

	opts := listFiltersOptions{}
	flags.StringVar(&opts.direction, "direction", "import", "import or export")
	flags.BoolVar(&opts.builtin, "builtin", false, "use the built-in table instead of configuration")
	flags.StringVar(&opts.storeKind, "store", string(filterdetect.StoreKindMemory), "configuration store: memory, json or hcl")
	flags.StringVar(&opts.jsonDir, "json-dir", getenvDefault("STORE_JSON_DIR", ""), "directory holding types.json and filters.json")
	flags.StringVar(&opts.hclFile, "hcl-file", getenvDefault("STORE_HCL_FILE", ""), "HCL configuration file")

	if err := flags.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}

	ctx := context.Background()
	cfg := filterdetect.DefaultConfig()
	cfg.Cache.UseConfiguration = !opts.builtin
	cfg.Store.Kind = filterdetect.StoreKind(opts.storeKind)
	cfg.Store.JSONDirectory = opts.jsonDir
	cfg.Store.HCLFile = opts.hclFile

	var provider filterdetect.ConfigurationProvider
	if cfg.Cache.UseConfiguration {
		p, closeFn, err := factory.NewConfigurationProvider(ctx, cfg)
		if err != nil {
			return err
		}
		defer closeFn()
		provider = p
	}

	cache, err := factory.NewFilterConfigCache(ctx, cfg, provider)
	if err != nil {
		return err
	}
	return printFilters(os.Stdout, cache, opts.direction)
}

func printFilters(out io.Writer, cache filterdetect.GraphicFilterCache, direction string) error {
	var entries []filterdetect.FilterEntry
	var wildcard func(uint16, int) string
	switch strings.ToLower(direction) {
	case "import":
		entries, wildcard = cache.ImportEntries(), cache.GetImportWildcard
	case "export":
		entries, wildcard = cache.ExportEntries(), cache.GetExportWildcard
	default:
		return fmt.Errorf("-direction must be import or export")
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FORMAT\tFILTER\tUI NAME\tTYPE\tMEDIA TYPE\tWILDCARD\tPIXEL")
	for i, e := range entries {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%t\n",
			i, e.FilterName, e.UIName, e.Type, e.MediaType, wildcard(uint16(i), 0), e.IsPixelFormat)
	}
	return tw.Flush()
}

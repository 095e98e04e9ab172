package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/lychee-technology/filterdetect"
	"github.com/lychee-technology/filterdetect/factory"
	"github.com/lychee-technology/filterdetect/internal"
	"github.com/lychee-technology/filterdetect/internal/configstore"
	"go.uber.org/zap"
)

type exportConfigOptions struct {
	format string
	out    string
	s3     filterdetect.S3Config
}

func runExportConfig(args []string) error {
	flags := flag.NewFlagSet("export-config", flag.ContinueOnError)
	flags.SetOutput(os.Stdout)
	flags.Usage = func() {
		fmt.Println("Usage: filterdetect-tools export-config -format json|hcl -out <dir>")
		fmt.Println("")
		fmt.Println("Options:")
		flags.PrintDefaults()
	}

	opts := exportConfigOptions{}
	flags.StringVar(&opts.format, "format", "json", "json or hcl")
	flags.StringVar(&opts.out, "out", ".", "output directory")
	flags.StringVar(&opts.s3.Bucket, "s3-bucket", "", "also upload JSON documents to this bucket")
	flags.StringVar(&opts.s3.Prefix, "s3-prefix", "", "key prefix for the uploaded documents")
	flags.StringVar(&opts.s3.Endpoint, "s3-endpoint", getenvDefault("S3_ENDPOINT", ""), "custom S3 endpoint")
	flags.StringVar(&opts.s3.Region, "s3-region", getenvDefault("AWS_REGION", ""), "S3 region")
	flags.BoolVar(&opts.s3.PathStyle, "s3-path-style", false, "use path-style addressing")

	if err := flags.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}
	opts.s3.AccessKey = os.Getenv("S3_ACCESS_KEY")
	opts.s3.SecretKey = os.Getenv("S3_SECRET_KEY")

	nodes, err := internal.BuiltinConfigNodes()
	if err != nil {
		return err
	}
	if err := writeConfigDocuments(opts.format, opts.out, nodes); err != nil {
		return err
	}

	if opts.s3.Bucket != "" {
		ctx := context.Background()
		if err := configstore.ValidateS3Config(opts.s3); err != nil {
			return err
		}
		client, err := factory.NewS3Client(ctx, opts.s3)
		if err != nil {
			return err
		}
		if err := configstore.NewS3Store(client, opts.s3.Bucket, opts.s3.Prefix).Upload(ctx, nodes); err != nil {
			return err
		}
		zap.S().Infow("uploaded configuration documents", "bucket", opts.s3.Bucket, "prefix", opts.s3.Prefix)
	}
	return nil
}

func writeConfigDocuments(format, out string, nodes []*configstore.Node) error {
	switch format {
	case "json":
		if err := configstore.WriteJSONDirectory(out, nodes); err != nil {
			return fmt.Errorf("write json documents: %w", err)
		}
		zap.S().Infow("wrote configuration documents", "format", format, "directory", out)
	case "hcl":
		if err := os.MkdirAll(out, 0o755); err != nil {
			return err
		}
		file := filepath.Join(out, "filters.hcl")
		if err := os.WriteFile(file, configstore.EncodeHCL(nodes), 0o644); err != nil {
			return fmt.Errorf("write hcl: %w", err)
		}
		zap.S().Infow("wrote configuration documents", "format", format, "file", file)
	default:
		return fmt.Errorf("-format must be json or hcl")
	}
	return nil
}

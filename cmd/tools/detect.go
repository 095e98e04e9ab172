package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/lychee-technology/filterdetect"
	"github.com/lychee-technology/filterdetect/factory"
)

type detectOptions struct {
	file     string
	typeName string
	url      string
	repair   string
	embedded bool
	maxSize  int64
}

func runDetect(args []string) error {
	flags := flag.NewFlagSet("detect", flag.ContinueOnError)
	flags.SetOutput(os.Stdout)
	flags.Usage = func() {
		fmt.Println("Usage: filterdetect-tools detect -file <path> [options]")
		fmt.Println("")
		fmt.Println("Options:")
		flags.PrintDefaults()
	}

	opts := detectOptions{}
	flags.StringVar(&opts.file, "file", "", "package file to inspect (required)")
	flags.StringVar(&opts.typeName, "type-name", "", "previously detected type, adopted when a repair is approved")
	flags.StringVar(&opts.url, "url", "", "document URL used for the repair prompt title (defaults to -file)")
	flags.StringVar(&opts.repair, "repair", "", "answer to a repair prompt: approve or decline")
	flags.BoolVar(&opts.embedded, "embedded", false, "detect in embedded mode")
	flags.Int64Var(&opts.maxSize, "max-size", filterdetect.DefaultConfig().Detection.MaxPackageSize, "maximum package size in bytes")

	if err := flags.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}
	if opts.file == "" {
		flags.Usage()
		return fmt.Errorf("-file is required")
	}

	f, err := os.Open(opts.file)
	if err != nil {
		return fmt.Errorf("open %s: %w", opts.file, err)
	}
	defer f.Close()

	return detectFile(context.Background(), os.Stdout, f, opts)
}

func detectFile(ctx context.Context, out io.Writer, in io.Reader, opts detectOptions) error {
	cfg := filterdetect.DefaultConfig()
	cfg.Detection.Embedded = opts.embedded
	cfg.Detection.MaxPackageSize = opts.maxSize

	url := opts.url
	if url == "" {
		url = opts.file
	}
	desc := &filterdetect.MediaDescriptor{
		InputStream: in,
		TypeName:    opts.typeName,
		URL:         url,
	}

	switch strings.ToLower(opts.repair) {
	case "":
	case "approve", "decline":
		answer := filterdetect.OutcomeDecline
		if strings.EqualFold(opts.repair, "approve") {
			answer = filterdetect.OutcomeApprove
		}
		desc.InteractionHandler = filterdetect.InteractionHandlerFunc(
			func(ctx context.Context, req *filterdetect.InteractionRequest) filterdetect.Outcome {
				fmt.Fprintf(out, "request: %s (%s)\n", req.Kind, req.DocumentTitle)
				return answer
			})
	default:
		return fmt.Errorf("-repair must be approve or decline")
	}

	typeName, err := factory.NewTypeDetector(cfg).Detect(ctx, desc)
	if err != nil {
		return err
	}
	if typeName == "" {
		fmt.Fprintln(out, "type: (not detected)")
	} else {
		fmt.Fprintf(out, "type: %s\n", typeName)
	}
	if desc.RepairPackage {
		fmt.Fprintf(out, "repair: requested, as_template=%t, title=%s\n", desc.AsTemplate, desc.DocumentTitle)
	}
	if !desc.IsRepairAllowed() {
		fmt.Fprintln(out, "repair: not allowed")
	}
	return nil
}

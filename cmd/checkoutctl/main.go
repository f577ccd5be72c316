package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/samvad-hq/checkout-connector/internal/app"
	"github.com/samvad-hq/checkout-connector/internal/config"
	"github.com/samvad-hq/checkout-connector/internal/logger"
	"github.com/samvad-hq/checkout-connector/pkg/checkout"
	"github.com/samvad-hq/checkout-connector/pkg/snippet"
	"github.com/spf13/pflag"
)

const usage = `usage: checkoutctl <command> [flags]

commands:
  create --file order.json [--ref REF]   create an order
  fetch  --ref REF | --location URL      fetch an order
  update --ref REF | --location URL --file data.json
`

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "checkoutctl: %v\n", err)
		var statusErr *checkout.StatusError
		if errors.As(err, &statusErr) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

type options struct {
	command  string
	file     string
	ref      string
	location string
	snippet  bool
}

func parseArgs(args []string) (options, error) {
	if len(args) == 0 {
		return options{}, errors.New(usage)
	}
	opts := options{command: args[0]}

	fs := pflag.NewFlagSet(opts.command, pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVarP(&opts.file, "file", "f", "", "path to a JSON document with order data")
	fs.StringVarP(&opts.ref, "ref", "r", "", "merchant order reference")
	fs.StringVarP(&opts.location, "location", "l", "", "order location URL")
	fs.BoolVar(&opts.snippet, "snippet", false, "print a summary of the order's embed snippet")
	if err := fs.Parse(args[1:]); err != nil {
		return options{}, fmt.Errorf("%s: %w", opts.command, err)
	}

	switch opts.command {
	case "create":
		if opts.file == "" {
			return options{}, errors.New("create: --file is required")
		}
	case "fetch":
		if opts.ref == "" && opts.location == "" {
			return options{}, errors.New("fetch: --ref or --location is required")
		}
	case "update":
		if opts.ref == "" && opts.location == "" {
			return options{}, errors.New("update: --ref or --location is required")
		}
		if opts.file == "" {
			return options{}, errors.New("update: --file is required")
		}
	default:
		return options{}, fmt.Errorf("unknown command %q\n%s", opts.command, usage)
	}
	return opts, nil
}

func run(args []string, out io.Writer) error {
	opts, err := parseArgs(args)
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.Init(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc, err := app.NewService(ctx, cfg, log)
	if err != nil {
		logger.ErrorObj("failed to initialize checkout service", "error", err)
		return err
	}
	defer svc.Close()

	var data map[string]any
	if opts.file != "" {
		if data, err = readData(opts.file); err != nil {
			return err
		}
	}

	target := opts.location
	if target == "" {
		target = opts.ref
	}

	var order *checkout.Order
	switch opts.command {
	case "create":
		order, err = svc.CreateOrder(ctx, opts.ref, data)
	case "fetch":
		order, err = svc.FetchOrder(ctx, target)
	case "update":
		order, err = svc.UpdateOrder(ctx, target, data)
	}
	if err != nil {
		return err
	}

	return printOrder(out, svc.Snippet, order, opts.snippet)
}

func readData(path string) (map[string]any, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read order data: %w", err)
	}
	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("decode order data %s: %w", path, err)
	}
	return data, nil
}

// printOrder writes the order summary. A snippet that cannot be parsed is
// logged and reported in the output instead of failing the command.
func printOrder(out io.Writer, parse func(*checkout.Order) (snippet.Snippet, error), order *checkout.Order, withSnippet bool) error {
	doc := map[string]any{
		"id":       order.ID(),
		"location": order.Location(),
		"status":   order.Status(),
	}
	if withSnippet {
		s, err := parse(order)
		if err != nil {
			logger.WarnObj("order snippet unavailable", "snippet_error", map[string]any{
				"order_id": order.ID(),
				"error":    err.Error(),
			})
			doc["snippet_error"] = err.Error()
		} else {
			doc["snippet"] = map[string]any{
				"container_id":   s.ContainerID,
				"script_sources": s.ScriptSources,
				"inline_scripts": s.InlineScripts,
			}
		}
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/tabq/tabq/internal/config"
	"github.com/tabq/tabq/internal/observability"
	"github.com/tabq/tabq/internal/persist"
	"github.com/tabq/tabq/internal/service"
)

func main() {
	cfg, err := config.LoadFromEnv("tabq")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg, os.Stderr)
	svc := service.New(logger, persist.Options{
		LockRetries: cfg.Save.LockRetries,
		RetryBase:   cfg.Save.RetryBase,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, svc, os.Args[1:], os.Stdout); err != nil {
		logger.Error("command failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, svc *service.Service, args []string, stdout io.Writer) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: tabq <load|export> [flags] ...")
	}

	switch args[0] {
	case "load":
		flags := flag.NewFlagSet("load", flag.ContinueOnError)
		offset := flags.Int64("offset", 0, "row offset")
		limit := flags.Int64("limit", 100, "page size")
		search := flags.String("search", "", "substring filter across all columns")
		sqlText := flags.String("sql", "", "raw SQL against the ingested table (overrides --search)")
		if err := flags.Parse(args[1:]); err != nil {
			return err
		}
		if flags.NArg() != 1 {
			return fmt.Errorf("usage: tabq load [--offset N] [--limit N] [--search S] [--sql Q] <file>")
		}

		result, err := svc.LoadPage(ctx, service.PageRequest{
			Path:   flags.Arg(0),
			Offset: *offset,
			Limit:  *limit,
			Search: *search,
			SQL:    *sqlText,
		})
		if err != nil {
			return err
		}
		encoder := json.NewEncoder(stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(result)

	case "export":
		flags := flag.NewFlagSet("export", flag.ContinueOnError)
		search := flags.String("search", "", "substring filter across all columns")
		sqlText := flags.String("sql", "", "raw SQL against the ingested table (overrides --search)")
		if err := flags.Parse(args[1:]); err != nil {
			return err
		}
		if flags.NArg() != 2 {
			return fmt.Errorf("usage: tabq export [--search S] [--sql Q] <file> <out.csv>")
		}
		return svc.ExportToCSV(ctx, flags.Arg(0), flags.Arg(1), *search, *sqlText)

	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}

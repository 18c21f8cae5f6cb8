package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/raaihank/pii-sentinel/internal/audit"
	"github.com/raaihank/pii-sentinel/internal/config"
	"github.com/raaihank/pii-sentinel/internal/logger"
)

// auditexport dumps the Postgres audit archive to a Parquet file for
// offline analysis.
func main() {
	var (
		configPath = flag.String("config", "", "Configuration file path")
		output     = flag.String("output", "audit.parquet", "Output Parquet file")
		jobID      = flag.String("job", "", "Export a single job's trail")
		sinceStr   = flag.String("since", "", "Export entries created after this time (RFC3339)")
		days       = flag.Int("days", 0, "Export entries from the last N days")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if !cfg.Audit.Enabled {
		fmt.Fprintln(os.Stderr, "Audit archive is disabled in configuration")
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	since, err := resolveSince(*sinceStr, *days)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info("Received shutdown signal, cancelling export")
		cancel()
	}()

	archive, err := audit.NewArchive(cfg.Audit.DatabaseURL, cfg.Audit.Table, log.WithComponent("audit"))
	if err != nil {
		log.Fatal("Failed to connect audit archive", zap.Error(err))
	}
	defer archive.Close()

	var entries []audit.Entry
	if *jobID != "" {
		entries, err = archive.ListByJob(ctx, *jobID)
	} else {
		entries, err = archive.ListSince(ctx, since)
	}
	if err != nil {
		log.Fatal("Failed to query audit archive", zap.Error(err))
	}
	if len(entries) == 0 {
		log.Warn("No audit entries matched; nothing written")
		return
	}

	if err := audit.ExportParquet(*output, entries, log); err != nil {
		log.Fatal("Failed to write Parquet export", zap.Error(err))
	}

	log.Info("Audit export complete",
		zap.String("output", *output),
		zap.Int("entries", len(entries)))
}

// resolveSince turns the -since/-days flags into a cutoff. With
// neither set the whole archive is exported.
func resolveSince(sinceStr string, days int) (time.Time, error) {
	if sinceStr != "" && days > 0 {
		return time.Time{}, fmt.Errorf("use either -since or -days, not both")
	}
	if sinceStr != "" {
		t, err := time.Parse(time.RFC3339, sinceStr)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid -since value: %w", err)
		}
		return t, nil
	}
	if days > 0 {
		return time.Now().AddDate(0, 0, -days), nil
	}
	return time.Time{}, nil
}

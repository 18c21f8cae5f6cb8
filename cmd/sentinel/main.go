package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/raaihank/pii-sentinel/internal/audit"
	"github.com/raaihank/pii-sentinel/internal/config"
	"github.com/raaihank/pii-sentinel/internal/detect"
	"github.com/raaihank/pii-sentinel/internal/engines"
	"github.com/raaihank/pii-sentinel/internal/job"
	"github.com/raaihank/pii-sentinel/internal/logger"
	"github.com/raaihank/pii-sentinel/internal/pipeline"
	"github.com/raaihank/pii-sentinel/internal/server"
	"github.com/raaihank/pii-sentinel/internal/stats"
	"github.com/raaihank/pii-sentinel/internal/storage"
	"github.com/raaihank/pii-sentinel/internal/verify"
	"github.com/raaihank/pii-sentinel/internal/websocket"
)

var (
	version = "0.1.0"
	commit  = "dev"
	date    = "unknown"
)

func main() {
	var (
		configPath  = flag.String("config", "", "Path to configuration file")
		showVersion = flag.Bool("version", false, "Show version information")
		healthCheck = flag.Bool("health-check", false, "Perform health check and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("PII-Sentinel %s (commit: %s, built: %s)\n", version, commit, date)
		os.Exit(0)
	}
	if *healthCheck {
		performHealthCheck()
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	loggerConfig := logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	}
	if cfg.Logging.File.Enabled {
		loggerConfig.File = &logger.FileConfig{
			Enabled:  cfg.Logging.File.Enabled,
			Path:     cfg.Logging.File.Path,
			MaxSize:  cfg.Logging.File.MaxSize,
			MaxAge:   cfg.Logging.File.MaxAge,
			Compress: cfg.Logging.File.Compress,
		}
	}
	log, err := logger.New(loggerConfig)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting PII-Sentinel",
		zap.String("version", version),
		zap.String("commit", commit),
		zap.String("build_date", date),
		zap.Int("port", cfg.Server.Port))

	// Detection engines
	detectors := []detect.Detector{detect.NewRegexDetector()}
	for _, name := range cfg.Detectors.Enabled {
		if name != "nlp" {
			continue
		}
		backend := detect.NewNERBackend(
			log.WithComponent("ner").Logger,
			cfg.Detectors.NER.ModelPath,
			cfg.Detectors.NER.TokenizerPath,
			cfg.Detectors.NER.MaxLength)
		detectors = append(detectors, detect.NewNERDetector(backend))
	}
	runner := detect.NewRunner(detectors, cfg.Detectors.Timeout, log)
	verifier := verify.New(detectors, cfg.Pipeline.MinConfidence)

	// Artifact storage and optional Redis job mirror
	store, err := storage.NewFileStore(cfg.Storage.Dir, log.WithComponent("storage"))
	if err != nil {
		log.Fatal("Failed to initialize artifact store", zap.Error(err))
	}
	var mirror *storage.RedisJobStore
	if cfg.Storage.Redis.Enabled {
		mirror, err = storage.NewRedisJobStore(cfg.Storage.Redis.URL, cfg.Storage.Redis.Prefix, log.WithComponent("redis"))
		if err != nil {
			log.Fatal("Failed to connect Redis job store", zap.Error(err))
		}
		defer mirror.Close()
	}

	jobs := job.NewManager(cfg.Jobs, store, mirror, log.WithComponent("jobs"))
	defer jobs.Close()

	// Optional Postgres audit archive
	var archive *audit.Archive
	if cfg.Audit.Enabled {
		archive, err = audit.NewArchive(cfg.Audit.DatabaseURL, cfg.Audit.Table, log.WithComponent("audit"))
		if err != nil {
			log.Fatal("Failed to connect audit archive", zap.Error(err))
		}
		defer archive.Close()
	}

	var wsHub *websocket.Hub
	var notifier pipeline.Notifier
	if cfg.WebSocket.Enabled {
		wsHub = websocket.NewHub(cfg.WebSocket, log.WithComponent("websocket").Logger)
		notifier = wsHub
	}

	collab := pipeline.Collaborators{
		Store:    store,
		Archive:  archive,
		Notifier: notifier,
	}
	if cfg.Engines.Enabled {
		eng := engines.New(cfg.Engines, log)
		collab.OCR = eng.OCR()
		collab.ASR = eng.ASR()
		collab.PDF = eng.PDF()
		collab.Video = eng.Video()
		log.Info("Media engine sidecar enabled", zap.String("url", cfg.Engines.URL))
	}

	agg := stats.New()
	orch := pipeline.New(cfg, runner, verifier, jobs, agg, collab, log)

	srv := server.New(cfg, orch, jobs, agg, wsHub, log)

	// Most wiring is fixed at startup; watching still surfaces edits so
	// operators know a restart is needed.
	if err := config.Watch(cfg, func(updated *config.Config) {
		log.Info("Configuration file changed; restart to apply", zap.Int("port", updated.Server.Port))
	}); err != nil {
		log.Warn("Config watch unavailable", zap.Error(err))
	}

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- srv.Start()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		log.Error("Server error", zap.Error(err))
	case sig := <-shutdown:
		log.Info("Shutdown signal received", zap.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Stop(ctx); err != nil {
			log.Error("Failed to shutdown server gracefully", zap.Error(err))
			os.Exit(1)
		}
		log.Info("Server shutdown complete")
	}
}

// performHealthCheck probes the running server and exits accordingly
func performHealthCheck() {
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get("http://localhost:8080/health")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Health check failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		fmt.Fprintf(os.Stderr, "Health check failed: HTTP %d\n", resp.StatusCode)
		os.Exit(1)
	}
	fmt.Println("Health check passed")
	os.Exit(0)
}

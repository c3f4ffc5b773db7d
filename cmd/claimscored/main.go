// Command claimscored is the claimscore platform service.
// It serves the batch API, a health check, and Prometheus metrics.
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/claimscore/claimscore/internal/api"
	"github.com/claimscore/claimscore/internal/ingestion"
	"github.com/claimscore/claimscore/internal/platform"
	"github.com/claimscore/claimscore/pkg/config"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	}

	cfg, err := loadServerConfig()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		logger = logger.Level(level)
	}

	engineCfg := config.DefaultConfig()
	if cfg.ConfigFile != "" {
		engineCfg, err = config.Load(cfg.ConfigFile)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to load engine config")
		}
	}
	scorer, err := engineCfg.ScoringEngine()
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid scoring config")
	}

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("open database")
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Fatal().Err(err).Msg("ping database")
	}
	if err := platform.AutoMigrate(db); err != nil {
		logger.Fatal().Err(err).Msg("migrate database")
	}
	if v, _, err := platform.SchemaVersion(db); err == nil {
		logger.Info().Uint("schema_version", v).Msg("connected to database")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	storage, err := newStorage(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Str("backend", cfg.StorageBackend).Msg("init storage")
	}

	// Initialize services
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := ingestion.NewMetrics(reg)

	ingestionSvc := ingestion.NewService(db, storage, engineCfg.FeatureEngine(), scorer, metrics, logger)
	apiHandler := api.NewHandler(ingestionSvc, api.NewSummaryCache(cfg.SummaryCache), logger)
	apiHandler.MaxUploadBytes = cfg.MaxUploadMB << 20

	// Set up HTTP routes
	apiMux := http.NewServeMux()
	apiHandler.RegisterRoutes(apiMux)

	mux := http.NewServeMux()
	mux.Handle("/api/", api.APIKeyAuth(cfg.APIKey)(apiMux))
	mux.HandleFunc("GET /healthz", healthHandler(db))
	mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           api.RequestLogger(logger)(api.CORS(mux)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info().Str("port", cfg.Port).Str("storage", cfg.StorageBackend).Msg("starting claimscored")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("listen")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("shutdown error")
	}
}

func newStorage(ctx context.Context, cfg *serverConfig) (ingestion.StorageClient, error) {
	switch cfg.StorageBackend {
	case "s3":
		return ingestion.NewS3Storage(ctx, ingestion.S3Config{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Prefix:    cfg.S3Prefix,
		})
	case "gcs":
		return ingestion.NewGCSStorage(ctx, cfg.GCSBucket)
	default:
		return ingestion.NewLocalStorage(cfg.LocalStorage), nil
	}
}

func healthHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			http.Error(w, "database unreachable", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}
}

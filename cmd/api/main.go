package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"

	"github.com/landmarklens/landmark-api/api/routes"
	"github.com/landmarklens/landmark-api/internal/analysis"
	"github.com/landmarklens/landmark-api/internal/photos"
	"github.com/landmarklens/landmark-api/pkg/auth/session"
	"github.com/landmarklens/landmark-api/pkg/config"
	"github.com/landmarklens/landmark-api/pkg/db"
	"github.com/landmarklens/landmark-api/pkg/logger"
	"github.com/landmarklens/landmark-api/pkg/maps"
	"github.com/landmarklens/landmark-api/pkg/metrics"
	"github.com/landmarklens/landmark-api/pkg/migrate"
	"github.com/landmarklens/landmark-api/pkg/pubsub"
	"github.com/landmarklens/landmark-api/pkg/redis"
	"github.com/landmarklens/landmark-api/pkg/storage/gcs"
	"github.com/landmarklens/landmark-api/pkg/vision"
)

const shutdownTimeout = 20 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var closers []func() error
	closeAll := func() {
		var errs error
		for i := len(closers) - 1; i >= 0; i-- {
			errs = multierr.Append(errs, closers[i]())
		}
		if errs != nil {
			logg.Error(context.Background(), "error releasing resources", errs)
		}
	}
	defer closeAll()

	fatal := func(msg string, err error) {
		logg.Error(context.Background(), msg, err)
		closeAll()
		os.Exit(1)
	}

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		fatal("failed to bootstrap database", err)
	}
	closers = append(closers, dbClient.Close)

	if err := migrate.AutoRun(ctx, cfg, logg, dbClient); err != nil {
		fatal("failed to apply migrations", err)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		fatal("failed to bootstrap redis", err)
	}
	closers = append(closers, redisClient.Close)

	sessions, err := session.NewChecker(redisClient)
	if err != nil {
		fatal("failed to create session checker", err)
	}

	gcsClient, err := gcs.NewClient(ctx, cfg.GCS, cfg.GCP, logg)
	if err != nil {
		fatal("failed to bootstrap gcs", err)
	}
	closers = append(closers, gcsClient.Close)
	bucket := gcsClient.BucketHandle("")

	detector, err := vision.NewClient(ctx, cfg.Vision.ClientOptions(cfg.GCP)...)
	if err != nil {
		fatal("failed to bootstrap vision", err)
	}

	var mapsOpts []maps.Option
	if cfg.GoogleMaps.BaseURL != "" {
		mapsOpts = append(mapsOpts, maps.WithBaseURL(cfg.GoogleMaps.BaseURL))
	}
	geocoder, err := maps.NewClient(cfg.GoogleMaps.APIKey, mapsOpts...)
	if err != nil {
		fatal("failed to create geocoding client", err)
	}

	var publisher analysis.EventPublisher
	if cfg.PubSub.AnalysisTopic != "" {
		psClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg, cfg.GCP.ClientOptions()...)
		if err != nil {
			fatal("failed to bootstrap pubsub", err)
		}
		closers = append(closers, psClient.Close)
		publisher = psClient.AnalysisPublisher()
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	repo := photos.NewRepository(dbClient.DB())
	photoService, err := photos.NewService(photos.ServiceParams{
		Repo:         repo,
		Storage:      bucket,
		Logger:       logg,
		SignedURLTTL: cfg.GCS.DownloadURLExpiry,
		MaxBytes:     cfg.Upload.MaxBytes(),
		PublicURL:    cfg.GCS.PublicURL,
	})
	if err != nil {
		fatal("failed to create photo service", err)
	}

	orchestrator, err := analysis.New(analysis.Params{
		Photos:       repo,
		Signer:       bucket,
		Detector:     detector,
		Geocoder:     geocoder,
		Publisher:    publisher,
		Metrics:      metrics.NewAnalysisMetrics(registry),
		Logger:       logg,
		SignedURLTTL: cfg.GCS.DownloadURLExpiry,
	})
	if err != nil {
		fatal("failed to create analysis orchestrator", err)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	logCtx := logg.WithFields(context.Background(), map[string]any{
		"env":    cfg.App.Env,
		"addr":   addr,
		"bucket": bucket.Name(),
	})

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			bucket,
			sessions,
			redisClient,
			registry,
			photoService,
			orchestrator,
		),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logg.Info(logCtx, "starting api server")
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			fatal("api server stopped unexpectedly", err)
		}
	case <-ctx.Done():
		logg.Info(logCtx, "shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(logCtx, "graceful shutdown failed", err)
		}
	}
}

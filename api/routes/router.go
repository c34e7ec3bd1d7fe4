package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/landmarklens/landmark-api/api/controllers"
	"github.com/landmarklens/landmark-api/api/middleware"
	"github.com/landmarklens/landmark-api/internal/photos"
	"github.com/landmarklens/landmark-api/pkg/auth/session"
	"github.com/landmarklens/landmark-api/pkg/config"
	"github.com/landmarklens/landmark-api/pkg/db"
	"github.com/landmarklens/landmark-api/pkg/logger"
	"github.com/landmarklens/landmark-api/pkg/redis"
	"github.com/landmarklens/landmark-api/pkg/storage/gcs"
)

// NewRouter assembles the HTTP surface. gatherer may be nil, in which case
// /metrics serves the default registry.
func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisP redis.Pinger,
	gcsP gcs.Pinger,
	sessions session.AccessSessionChecker,
	limiter middleware.RateLimiterStore,
	gatherer prometheus.Gatherer,
	photoService photos.Service,
	analyzer controllers.Analyzer,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	analyzePolicy := middleware.NewRateLimitPolicy(
		"analyze",
		cfg.RateLimit.AnalyzeWindow,
		cfg.RateLimit.AnalyzeLimit,
	)

	readiness := map[string]controllers.Pinger{}
	if dbP != nil {
		readiness["db"] = dbP
	}
	if redisP != nil {
		readiness["redis"] = redisP
	}
	if gcsP != nil {
		readiness["gcs"] = gcsP
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, readiness, logg))
	})

	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	publicURL := cfg.GCS.PublicURL

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, sessions, logg))

		r.Route("/photos", func(r chi.Router) {
			r.Post("/", controllers.PhotoUpload(photoService, cfg.Upload.MaxBytes(), publicURL, logg))
			r.Get("/", controllers.PhotoList(photoService, logg))

			r.Route("/{photoId}", func(r chi.Router) {
				r.Get("/", controllers.PhotoGet(photoService, publicURL, logg))
				r.Delete("/", controllers.PhotoDelete(photoService, logg))
				r.Get("/signed-url", controllers.PhotoSignedURL(photoService, logg))
				r.With(middleware.RateLimit(analyzePolicy, limiter, logg)).
					Post("/analyze", controllers.PhotoAnalyze(analyzer, publicURL, logg))
			})
		})

		r.Get("/users/{userId}/photos", controllers.UserPhotoList(photoService, logg))
	})

	return r
}

package routes

import (
	"net/http"
	"time"

	"infinite-experiment/clubhouse/internal/api"
	"infinite-experiment/clubhouse/internal/logging"
	"infinite-experiment/clubhouse/internal/metrics"
	"infinite-experiment/clubhouse/internal/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

// RouterDeps carries what the router needs beyond the wired services.
type RouterDeps struct {
	Deps        *api.Dependencies
	SQL         *sqlx.DB
	Redis       *redis.Client
	MetricsReg  *metrics.MetricsRegistry
	AuthLimiter *middleware.RateLimiter
	UpSince     time.Time
}

func RegisterRoutes(rd RouterDeps) http.Handler {

	// initialize Chi router
	r := chi.NewRouter()

	// global middleware
	r.Use(middleware.RequestIDMiddleware)
	r.Use(middleware.MetricsMiddleware(rd.MetricsReg))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://localhost:8081"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"Link", "X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	}))

	logging.Info("Router initialized with metrics and request id middleware")

	r.Get("/healthCheck", api.HealthCheckHandler(rd.SQL, rd.Redis, rd.UpSince))
	r.Handle("/metrics", promhttp.Handler())

	limiter := rd.AuthLimiter
	if limiter == nil {
		limiter = middleware.NewRateLimiter(5, 10)
	}
	RegisterAPIRoutes(r, rd.Deps, limiter)

	return r
}

package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/stockcast-backend/api/controllers"
	"github.com/angelmondragon/stockcast-backend/api/middleware"
	"github.com/angelmondragon/stockcast-backend/internal/forecasting"
	"github.com/angelmondragon/stockcast-backend/internal/sales"
	"github.com/angelmondragon/stockcast-backend/pkg/config"
	"github.com/angelmondragon/stockcast-backend/pkg/logger"
	"github.com/angelmondragon/stockcast-backend/pkg/redis"
)

// Deps groups what the router hands to controllers and middleware.
type Deps struct {
	Config      *config.Config
	Logger      *logger.Logger
	DB          controllers.Pinger
	Redis       controllers.Pinger
	RateLimiter redis.RateLimiter
	Idempotency redis.IdempotencyStore
	Gatherer    prometheus.Gatherer
	Sales       sales.Service
	Forecasts   forecasting.Service
}

func NewRouter(deps Deps) http.Handler {
	cfg, logg := deps.Config, deps.Logger
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSAllowedOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.DB, deps.Redis))
	})

	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
	})

	policy := middleware.NewRateLimitPolicy("api", cfg.RateLimit.Window, cfg.RateLimit.IPLimit, cfg.RateLimit.ShopLimit)

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.RateLimitIP(policy, deps.RateLimiter, logg))
		r.Use(middleware.ShopContext(logg))
		r.Use(middleware.RateLimitShop(policy, deps.RateLimiter, logg))
		r.Get("/ping", controllers.ShopPing())

		r.Route("/v1", func(r chi.Router) {
			r.Use(middleware.Idempotency(deps.Idempotency, logg))
			r.Post("/sales", controllers.RecordSales(deps.Sales, logg))
			r.Route("/products/{productId}", func(r chi.Router) {
				r.Get("/sales", controllers.ProductSales(deps.Sales, logg))
				r.Route("/forecast", func(r chi.Router) {
					r.Get("/", controllers.ProductForecast(deps.Forecasts, logg))
					r.Get("/daily", controllers.ProductForecastDaily(deps.Forecasts, logg))
					r.Get("/accuracy", controllers.ProductForecastAccuracy(deps.Forecasts, logg))
					r.Get("/summary", controllers.ProductForecastSummary(deps.Forecasts, logg))
				})
			})
		})
	})

	return r
}

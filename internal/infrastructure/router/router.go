package router

import (
	"net/http"

	"flight-tracker-service/internal/interface/handler"
	"flight-tracker-service/pkg/logger"
	"flight-tracker-service/pkg/metrics"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Options holds everything the router needs
type Options struct {
	Flights  *handler.FlightHandler
	Tracking *handler.TrackingHandler
	Health   http.HandlerFunc

	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer
	Logger   logger.Logger

	AllowedOrigins []string
	RateLimitRPS   float64
	RateLimitBurst int
}

// NewRouter registers every route and the global middleware
func NewRouter(opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(Observe(opts.Metrics, opts.Logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", RequestIDHeader},
		ExposedHeaders: []string{RequestIDHeader},
		MaxAge:         300,
	}))

	// operational endpoints are not rate limited
	r.Get("/health", opts.Health)
	if opts.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Group(func(api chi.Router) {
		if opts.RateLimitRPS > 0 {
			api.Use(NewRateLimiter(opts.RateLimitRPS, opts.RateLimitBurst).Middleware)
		}

		api.Get("/", opts.Flights.Index)
		api.Get("/seed", opts.Flights.Seed)
		api.Get("/flights", opts.Flights.List)
		api.Post("/flight", opts.Flights.Create)
		api.Get("/flight/{id}", opts.Flights.Get)
		api.Put("/flight/{id}", opts.Flights.Update)
		api.Delete("/flight/{id}", opts.Flights.Delete)
		api.Get("/time-series", opts.Flights.TimeSeries)
		api.Get("/search", opts.Flights.Search)

		api.Post("/tracking/{interval}/run", opts.Tracking.Run)
		api.Get("/tracking/{interval}/runs", opts.Tracking.Runs)
	})

	return r
}

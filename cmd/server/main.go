package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"flight-tracker-service/internal/domain/repository"
	"flight-tracker-service/internal/infrastructure/cache"
	"flight-tracker-service/internal/infrastructure/config"
	"flight-tracker-service/internal/infrastructure/persistence"
	"flight-tracker-service/internal/infrastructure/router"
	"flight-tracker-service/internal/interface/handler"
	repoimpl "flight-tracker-service/internal/interface/repository"
	"flight-tracker-service/internal/usecase"
	"flight-tracker-service/pkg/logger"
	"flight-tracker-service/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.mongodb.org/mongo-driver/mongo"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.NewLogger("production", "info").Fatal("Failed to load config", "error", err)
	}

	// Create logger
	log := logger.NewLogger(cfg.AppEnv, cfg.LogLevel)
	defer log.Sync()
	log.Info("Starting Flight Tracker Service", "version", cfg.AppVersion, "env", cfg.AppEnv)

	// Set up context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	appMetrics := metrics.NewMetrics(cfg.MetricsNamespace, registry)

	healthChecks := make(map[string]handler.HealthCheck)

	// Set up the flight store
	var (
		flightRepo  repository.FlightRepository
		mongoClient *mongo.Client
	)
	switch cfg.StoreDriver {
	case "memory":
		log.Warn("Using in-memory flight store, data is lost on restart")
		flightRepo = repoimpl.NewMemoryFlightRepository()
	default:
		log.Info("Connecting to MongoDB", "database", cfg.MongoDB)
		client, db, err := persistence.NewMongoClient(ctx, persistence.MongoOptions{
			URI:        cfg.MongoURI,
			Database:   cfg.MongoDB,
			Username:   cfg.MongoUser,
			Password:   cfg.MongoPassword,
			MaxRetries: cfg.MongoConnectRetries,
		})
		if err != nil {
			log.Fatal("Failed to connect to MongoDB", "error", err)
		}
		mongoClient = client

		flightRepo, err = repoimpl.NewMongoFlightRepository(ctx, db, cfg.MongoCollection)
		if err != nil {
			log.Fatal("Failed to initialise flight repository", "error", err)
		}
		healthChecks["mongodb"] = func(ctx context.Context) error { return client.Ping(ctx, nil) }
	}

	// Tracking run audit, optional
	var runRepo repository.TrackingRunRepository
	gormDB, err := persistence.NewPostgresDB(cfg.PostgresURI)
	if err != nil {
		log.Fatal("Failed to connect to PostgreSQL", "error", err)
	}
	if gormDB != nil {
		gormRunRepo := repoimpl.NewGormTrackingRunRepository(gormDB)
		if err := gormRunRepo.AutoMigrate(); err != nil {
			log.Fatal("Failed to migrate tracking runs", "error", err)
		}
		runRepo = gormRunRepo

		sqlDB, err := gormDB.DB()
		if err != nil {
			log.Fatal("Failed to get PostgreSQL handle", "error", err)
		}
		defer sqlDB.Close()
		healthChecks["postgres"] = sqlDB.PingContext
	} else {
		log.Info("POSTGRES_URI not set, tracking runs are not persisted")
	}

	// Use cases
	searchCache := cache.NewSearchCache(cfg.SearchCacheTTL)
	if searchCache == nil {
		log.Info("SEARCH_CACHE_TTL is not positive, search results are not cached")
	}
	flightSearch := usecase.NewFlightSearch(flightRepo, searchCache, appMetrics, log)
	flightService := usecase.NewFlightService(flightRepo, flightSearch, log)

	location, err := cfg.TrackingLocation()
	if err != nil {
		log.Fatal("Invalid TRACKING_TIMEZONE", "timezone", cfg.TrackingTimezone, "error", err)
	}
	trackerOpts := []usecase.TrackerOption{
		usecase.WithInvalidator(flightSearch),
		usecase.WithMetrics(appMetrics),
		usecase.WithLocation(location),
	}
	if runRepo != nil {
		trackerOpts = append(trackerOpts, usecase.WithRunRepository(runRepo))
	}
	tracker := usecase.NewPriceTracker(flightRepo, usecase.NewPriceSimulator(cfg.TrackingRandomSeed), log, trackerOpts...)

	// Start price tracking
	if cfg.TrackingEnabled {
		if err := tracker.Start(ctx); err != nil {
			log.Fatal("Failed to start price tracking", "error", err)
		}
	} else {
		log.Warn("Automated price tracking is disabled")
	}

	// Set up HTTP server
	upSince := time.Now()
	mux := router.NewRouter(router.Options{
		Flights:        handler.NewFlightHandler(flightService, flightSearch, cfg.SeedFile, log),
		Tracking:       handler.NewTrackingHandler(tracker, log),
		Health:         handler.HealthHandler(healthChecks, tracker.Running, upSince),
		Metrics:        appMetrics,
		Gatherer:       registry,
		Logger:         log,
		AllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      mux,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	// Start HTTP server in a goroutine
	go func() {
		log.Info("Starting HTTP server", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server error", "error", err)
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	log.Info("Received signal", "signal", sig)

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", "error", err)
	}

	tracker.Stop()
	cancel()

	// Disconnect from MongoDB
	if mongoClient != nil {
		if err := mongoClient.Disconnect(shutdownCtx); err != nil {
			log.Error("MongoDB disconnect error", "error", err)
		}
	}

	log.Info("Flight Tracker Service stopped")
}

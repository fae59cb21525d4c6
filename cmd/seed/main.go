package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"flight-tracker-service/internal/infrastructure/config"
	"flight-tracker-service/internal/infrastructure/persistence"
	repoimpl "flight-tracker-service/internal/interface/repository"
	"flight-tracker-service/internal/usecase"
	"flight-tracker-service/pkg/logger"
)

// Replaces the flight store contents with the records in a seed file.
// A running server keeps serving cached searches until SEARCH_CACHE_TTL expires.
func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.NewLogger("production", "info").Fatal("Failed to load config", "error", err)
	}
	log := logger.NewLogger(cfg.AppEnv, cfg.LogLevel)
	defer log.Sync()

	seedFile := flag.String("file", cfg.SeedFile, "path to a JSON array of flights")
	flag.Parse()

	if err := run(cfg, *seedFile, log); err != nil {
		log.Fatal("Seeding failed", "file", *seedFile, "error", err)
	}
}

func run(cfg *config.Config, seedFile string, log logger.Logger) error {
	if cfg.StoreDriver != "mongo" {
		return fmt.Errorf("seeding needs a persistent store, STORE_DRIVER is %q", cfg.StoreDriver)
	}

	inputs, err := usecase.LoadSeedFile(seedFile)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	client, db, err := persistence.NewMongoClient(ctx, persistence.MongoOptions{
		URI:        cfg.MongoURI,
		Database:   cfg.MongoDB,
		Username:   cfg.MongoUser,
		Password:   cfg.MongoPassword,
		MaxRetries: cfg.MongoConnectRetries,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	defer func() {
		if err := client.Disconnect(context.Background()); err != nil {
			log.Error("MongoDB disconnect error", "error", err)
		}
	}()

	flightRepo, err := repoimpl.NewMongoFlightRepository(ctx, db, cfg.MongoCollection)
	if err != nil {
		return fmt.Errorf("failed to initialise flight repository: %w", err)
	}

	n, err := usecase.NewFlightService(flightRepo, nil, log).Seed(ctx, inputs)
	if err != nil {
		return err
	}
	log.Info("Seed complete", "file", seedFile, "count", n)
	return nil
}
